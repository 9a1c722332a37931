package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/pickerkt/internal/core/auth"
	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/types"
)

// Decode and validation errors map to INVALID_ARGUMENT.
// Missing rows map to NOT_FOUND.
// Token signature errors map to UNAUTHENTICATED (see auth.TokenErrorCode).
// Context timeouts map to DEADLINE_EXCEEDED.
// Everything else, including database errors, is INTERNAL.
var invalidArgument = []error{
	types.ErrMalformedEncoding,
	types.ErrUnsupportedVersion,
	types.ErrInvalidSelection,
	types.ErrInvalidPagination,
	types.ErrDuplicateOrdering,
	types.ErrEmptyFold,
	types.ErrUnknownMimeType,
	types.ErrUnknownColumn,
	types.ErrUnknownOperator,
	types.ErrExpressionTooDeep,
	types.ErrTooManyArguments,
	types.ErrUnsafeLiteral,
	picker.ErrInvalidSpec,
}

var notFound = []error{
	types.ErrNoResults,
	types.ErrContentNotFound,
	types.ErrCollectionNotFound,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// toStatus converts a domain error into a gRPC status error. Errors that
// already carry a status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case isAny(err, invalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case isAny(err, notFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	if code := auth.TokenErrorCode(err); code == codes.Unauthenticated {
		return status.Error(code, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
