package types

import "errors"

// Sentinel errors for pickerkt operations.
var (
	// ErrDuplicateOrdering indicates two orderings target the same column.
	ErrDuplicateOrdering = errors.New("duplicate ordering column")

	// ErrInvalidSelection indicates selection bounds are not 1 <= min <= max.
	ErrInvalidSelection = errors.New("invalid selection bounds")

	// ErrInvalidPagination indicates a non-positive page size or a negative
	// prefetch distance.
	ErrInvalidPagination = errors.New("invalid pagination")

	// ErrEmptyFold indicates a fold combinator received no operands.
	ErrEmptyFold = errors.New("fold requires at least one operand")

	// ErrUnknownMimeType indicates a name that is not a known MIME type.
	ErrUnknownMimeType = errors.New("unknown mime type")

	// ErrUnknownColumn indicates a name that is not a known column.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrUnknownOperator indicates a name that is not a known operator.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrExpressionTooDeep indicates a predicate exceeds MaxExpressionDepth.
	ErrExpressionTooDeep = errors.New("expression exceeds maximum depth")

	// ErrTooManyArguments indicates a predicate binds more than
	// MaxBoundArguments list literals.
	ErrTooManyArguments = errors.New("predicate binds too many arguments")

	// ErrUnsafeLiteral indicates a client-supplied literal or column name
	// that would not render as a single bound or quoted value.
	ErrUnsafeLiteral = errors.New("unsafe literal")

	// ErrUnsupportedVersion indicates an encoding from an incompatible schema.
	ErrUnsupportedVersion = errors.New("unsupported encoding version")

	// ErrMalformedEncoding indicates an encoding that cannot be decoded.
	ErrMalformedEncoding = errors.New("malformed encoding")

	// ErrNoResults indicates the first page of a query is empty.
	ErrNoResults = errors.New("query returned no results")

	// ErrContentNotFound indicates a content id has no matching row.
	ErrContentNotFound = errors.New("content not found")

	// ErrCollectionNotFound indicates a collection id has no matching rows.
	ErrCollectionNotFound = errors.New("collection not found")
)
