// Package api implements the pickerkt.v1.Picker gRPC service.
//
// Requests and responses are google.protobuf.Struct messages, so the
// service needs no generated code: the configuration travels either as a
// (signed) token, as its transport encoding, or as a declarative picker spec.
package api

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/pickerkt/internal/core/auth"
	"github.com/solatis/pickerkt/internal/core/config"
	"github.com/solatis/pickerkt/internal/core/logging"
	"github.com/solatis/pickerkt/internal/mediastore"
	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/selection"
)

// Request fields.
const (
	fieldToken         = "token"
	fieldConfiguration = "configuration"
	fieldSpec          = "spec"
	fieldPageKey       = "page_key"
	fieldCollectionID  = "collection_id"
	fieldID            = "id"
	fieldIDs           = "ids"
)

// PickerService implements PickerServer over the media index.
// Thin orchestration layer delegating to picker, auth and mediastore.
type PickerService struct {
	store  *mediastore.Store
	signer *auth.Signer
	cfg    *config.ServiceConfig
}

var _ PickerServer = (*PickerService)(nil)

// NewPickerService creates service instance with dependencies.
func NewPickerService(store *mediastore.Store, signer *auth.Signer, cfg *config.ServiceConfig) (*PickerService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	return &PickerService{store: store, signer: signer, cfg: cfg}, nil
}

// configuration resolves the request's configuration. Precedence: the token
// field, the configuration field, the picker spec field, then the token from
// request metadata. Unsigned forms are refused when signatures are required.
func (s *PickerService) configuration(ctx context.Context, req *structpb.Struct) (*picker.Configuration, error) {
	fields := req.GetFields()

	if v, ok := fields[fieldToken]; ok {
		token := v.GetStringValue()
		if token == "" {
			return nil, status.Error(codes.InvalidArgument, "token must be a non-empty string")
		}
		return s.signer.OpenConfiguration(token)
	}

	if v, ok := fields[fieldConfiguration]; ok {
		if s.cfg.RequireSignedTokens {
			return nil, auth.ErrMissingSignature
		}
		cfg, err := picker.FromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		if err := query.ValidateUntrusted(cfg.Predicate()); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if v, ok := fields[fieldSpec]; ok {
		if s.cfg.RequireSignedTokens {
			return nil, auth.ErrMissingSignature
		}
		spec, err := picker.DecodeSpec(v.GetStructValue().AsMap())
		if err != nil {
			return nil, err
		}
		return spec.Build()
	}

	if cfg := auth.ConfigurationFromContext(ctx); cfg != nil {
		return cfg, nil
	}
	return nil, status.Error(codes.InvalidArgument, "request carries no configuration")
}

// bounded clamps the configuration's page size to the service maximum.
func (s *PickerService) bounded(cfg *picker.Configuration) (*picker.Configuration, error) {
	if cfg.Pagination().PageSize <= s.cfg.MaxPageSize {
		return cfg, nil
	}
	return cfg.AsBuilder().Pagination(func(p *picker.Pagination) {
		p.PageSize = s.cfg.MaxPageSize
	}).Build()
}

// Plan renders a configuration: predicate, bound arguments, ordering, a
// token the client can send back to the listing methods and a new session
// id for the x-picker-session header.
func (s *PickerService) Plan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cfg, err := s.configuration(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	token, err := s.signer.SignConfiguration(cfg)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(planFields(cfg, token))
}

// ListContents returns one page of the configuration's results, optionally
// narrowed to a collection.
func (s *PickerService) ListContents(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cfg, err := s.configuration(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	if id := req.GetFields()[fieldCollectionID].GetStringValue(); id != "" {
		if cfg, err = cfg.InCollection(id); err != nil {
			return nil, toStatus(err)
		}
	}
	if cfg, err = s.bounded(cfg); err != nil {
		return nil, toStatus(err)
	}

	var key *int
	if v, ok := req.GetFields()[fieldPageKey]; ok {
		if _, null := v.GetKind().(*structpb.Value_NullValue); !null {
			k, err := intField(v, fieldPageKey)
			if err != nil {
				return nil, err
			}
			if k > math.MaxInt32 {
				return nil, status.Errorf(codes.InvalidArgument, "%s %d out of range", fieldPageKey, k)
			}
			offset := int(k)
			key = &offset
		}
	}

	logging.FromContext(ctx).Debug("listing contents",
		zap.String("predicate", cfg.PredicateString()),
		zap.Strings("arguments", cfg.PredicateArguments()),
		zap.String("order_by", cfg.OrderByString()))

	page, err := mediastore.NewPager(s.store, cfg).Load(ctx, key)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(pageFields(page))
}

// ListCollections returns the collections the configuration admits.
func (s *PickerService) ListCollections(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cfg, err := s.configuration(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	collections, err := s.store.Collections(ctx, cfg)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, len(collections))
	for i, c := range collections {
		items[i] = collectionFields(c)
	}
	return newStruct(map[string]any{"collections": items})
}

// GetContent returns one item if the configuration admits it.
func (s *PickerService) GetContent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cfg, err := s.configuration(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	v, ok := req.GetFields()[fieldID]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	id, err := intField(v, fieldID)
	if err != nil {
		return nil, err
	}
	content, err := s.store.Get(ctx, cfg, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"content": contentFields(content)})
}

// Select restores a saved selection under the configuration. It returns the
// surviving items in selection order and whether the user may confirm them.
func (s *PickerService) Select(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cfg, err := s.configuration(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	ids, err := s.idsField(req)
	if err != nil {
		return nil, err
	}
	res, err := selection.Reconcile(ctx, s.store, cfg, ids)
	if err != nil {
		return nil, toStatus(err)
	}

	logging.FromContext(ctx).Debug("reconciled selection",
		zap.Int("requested", len(ids)),
		zap.Int("selected", res.Tracker.Len()),
		zap.Int64s("missing", res.Missing),
		zap.Int64s("excluded", res.Excluded),
		zap.Int64s("dropped", res.Dropped),
		zap.Bool("in_memory", res.InMemory))

	return newStruct(selectFields(res))
}

// idsField reads the ids list, bounded by the service's maximum page size.
func (s *PickerService) idsField(req *structpb.Struct) ([]int64, error) {
	v, ok := req.GetFields()[fieldIDs]
	if !ok || v.GetListValue() == nil {
		return nil, status.Error(codes.InvalidArgument, "ids must be a list")
	}
	values := v.GetListValue().GetValues()
	if len(values) > s.cfg.MaxPageSize {
		return nil, status.Errorf(codes.InvalidArgument, "ids has %d entries, at most %d allowed", len(values), s.cfg.MaxPageSize)
	}
	ids := make([]int64, len(values))
	for i, item := range values {
		id, err := intField(item, fieldIDs)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// maxExactNumber is the largest integer a JSON number carries exactly.
const maxExactNumber = 1 << 53

// intField reads a whole, non-negative number or a decimal string. Ids past
// maxExactNumber must be sent as strings.
func intField(v *structpb.Value, name string) (int64, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n < 0 || n > maxExactNumber || n != math.Trunc(n) {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer, got %v", name, n)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(k.StringValue, 10, 64)
		if err != nil || n < 0 {
			return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer, got %q", name, k.StringValue)
		}
		return n, nil
	}
	return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", name)
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}
