package picker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

// EncodingVersion is the schema version Encode writes and Decode accepts.
const EncodingVersion = 1

// Operand type discriminators.
const (
	typeExpression    = "expression"
	typeBinary        = "binary"
	typeColumn        = "column"
	typeContentColumn = "content_column"
	typeString        = "string"
	typeLong          = "long"
	typeDouble        = "double"
	typeStringList    = "string_list"
	typeLongList      = "long_list"
	typeDoubleList    = "double_list"
)

// DecodeError reports where decoding stopped. Err wraps
// types.ErrUnsupportedVersion or types.ErrMalformedEncoding, or an invariant
// violation from Finalize.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "decode configuration: " + e.Err.Error()
	}
	return "decode configuration at " + e.Path + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

func malformed(path string, format string, args ...any) *DecodeError {
	return &DecodeError{Path: path, Err: fmt.Errorf("%w: "+format, append([]any{types.ErrMalformedEncoding}, args...)...)}
}

type envelope struct {
	Version       int             `json:"version"`
	Configuration json.RawMessage `json:"configuration"`
}

type wireConfiguration struct {
	MimeTypes          []types.MimeType `json:"mime_types"`
	Selection          wireSelection    `json:"selection"`
	Pagination         wirePagination   `json:"pagination"`
	Ordering           []wireOrdering   `json:"ordering"`
	Predicate          *wireOperand     `json:"predicate"`
	DownloadFolderOnly bool             `json:"download_folder_only"`
	Rebuilt            bool             `json:"rebuilt"`
}

type wireSelection struct {
	Min int `json:"min"`
	Max int `json:"max,omitempty"`
}

type wirePagination struct {
	PageSize         int `json:"page_size"`
	PrefetchDistance int `json:"prefetch_distance"`
}

type wireOrdering struct {
	Column types.Column `json:"column"`
	Order  types.Order  `json:"order"`
}

// wireOperand is the tagged form of every query.Operand variant. Only the
// fields of the variant named by Type are set. Integers travel as decimal
// strings so they survive JSON number handling in other runtimes.
type wireOperand struct {
	Type string `json:"type"`

	Operator   *query.Operator `json:"operator,omitempty"`
	Conditions []*wireOperand  `json:"conditions,omitempty"`
	Left       *wireOperand    `json:"left,omitempty"`
	Right      *wireOperand    `json:"right,omitempty"`

	Name         string        `json:"name,omitempty"`
	SurroundedBy string        `json:"surrounded_by,omitempty"`
	Column       *types.Column `json:"column,omitempty"`

	Value  json.RawMessage `json:"value,omitempty"`
	Values json.RawMessage `json:"values,omitempty"`
}

// Encode writes c in the versioned transport encoding. The encoded
// configuration is marked rebuilt, so decoding never injects implicit
// filters a second time.
func Encode(c *Configuration) ([]byte, error) {
	body, err := json.Marshal(toWire(c))
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	return json.Marshal(envelope{Version: EncodingVersion, Configuration: body})
}

// Decode reads a configuration written by Encode. Any deviation from the
// schema fails the whole decode with a *DecodeError.
func Decode(data []byte) (*Configuration, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, malformed("", "%v", err)
	}
	if env.Version != EncodingVersion {
		return nil, &DecodeError{
			Path: "version",
			Err:  fmt.Errorf("%w: got %d, want %d", types.ErrUnsupportedVersion, env.Version, EncodingVersion),
		}
	}
	if len(env.Configuration) == 0 {
		return nil, malformed("configuration", "missing")
	}

	dec := json.NewDecoder(bytes.NewReader(env.Configuration))
	dec.DisallowUnknownFields()
	var w wireConfiguration
	if err := dec.Decode(&w); err != nil {
		return nil, malformed("configuration", "%v", err)
	}
	return fromWire(&w)
}

func toWire(c *Configuration) *wireConfiguration {
	w := &wireConfiguration{
		MimeTypes:          c.MimeTypes(),
		Selection:          wireSelection{Min: c.selection.Min, Max: c.selection.Max},
		Pagination:         wirePagination{PageSize: c.pagination.PageSize, PrefetchDistance: c.pagination.PrefetchDistance},
		Ordering:           make([]wireOrdering, len(c.orderings)),
		Predicate:          encodeOperand(c.predicate),
		DownloadFolderOnly: c.downloadFolderOnly,
		Rebuilt:            true,
	}
	if w.MimeTypes == nil {
		w.MimeTypes = []types.MimeType{}
	}
	for i, o := range c.orderings {
		w.Ordering[i] = wireOrdering{Column: o.Column, Order: o.Order}
	}
	return w
}

func fromWire(w *wireConfiguration) (*Configuration, error) {
	if w.Predicate == nil {
		return nil, malformed("configuration.predicate", "missing")
	}
	operand, err := decodeOperand(w.Predicate, "configuration.predicate", 1)
	if err != nil {
		return nil, err
	}
	predicate, ok := operand.(*query.Expression)
	if !ok {
		return nil, malformed("configuration.predicate", "root must be an expression, got %q", w.Predicate.Type)
	}

	d := Draft{
		MimeTypes:          w.MimeTypes,
		Selection:          Selection{Min: w.Selection.Min, Max: w.Selection.Max},
		Pagination:         Pagination{PageSize: w.Pagination.PageSize, PrefetchDistance: w.Pagination.PrefetchDistance},
		Predicate:          predicate,
		DownloadFolderOnly: w.DownloadFolderOnly,
		Rebuilt:            w.Rebuilt,
	}
	for _, o := range w.Ordering {
		d.Orderings = append(d.Orderings, Ordering{Column: o.Column, Order: o.Order})
	}

	cfg, err := Finalize(d)
	if err != nil {
		return nil, &DecodeError{Path: "configuration", Err: err}
	}
	return cfg, nil
}

func encodeOperand(o query.Operand) *wireOperand {
	switch v := o.(type) {
	case *query.Expression:
		op := v.Operator()
		w := &wireOperand{Type: typeExpression, Operator: &op}
		for _, c := range v.Conditions() {
			w.Conditions = append(w.Conditions, encodeOperand(c))
		}
		return w
	case query.BinaryExpression:
		op := v.Operator
		return &wireOperand{Type: typeBinary, Operator: &op, Left: encodeOperand(v.Left), Right: encodeOperand(v.Right)}
	case query.Column:
		return &wireOperand{Type: typeColumn, Name: v.Name, SurroundedBy: v.SurroundedBy}
	case query.ContentColumn:
		c := v.Column
		return &wireOperand{Type: typeContentColumn, Column: &c}
	case query.StringValue:
		return &wireOperand{Type: typeString, Value: mustJSON(v.Value)}
	case query.LongValue:
		return &wireOperand{Type: typeLong, Value: mustJSON(strconv.FormatInt(v.Value, 10))}
	case query.DoubleValue:
		return &wireOperand{Type: typeDouble, Value: mustJSON(v.Value)}
	case query.StringListValue:
		return &wireOperand{Type: typeStringList, Values: mustJSON(nonNil(v.Values))}
	case query.LongListValue:
		out := make([]string, len(v.Values))
		for i, n := range v.Values {
			out[i] = strconv.FormatInt(n, 10)
		}
		return &wireOperand{Type: typeLongList, Values: mustJSON(out)}
	case query.DoubleListValue:
		return &wireOperand{Type: typeDoubleList, Values: mustJSON(nonNil(v.Values))}
	}
	// Operand is a closed set; Finalize has validated the tree.
	panic(fmt.Sprintf("picker: unencodable operand %T", o))
}

func decodeOperand(w *wireOperand, path string, depth int) (query.Operand, error) {
	if w == nil {
		return nil, malformed(path, "null operand")
	}
	if depth > types.MaxExpressionDepth {
		return nil, &DecodeError{Path: path, Err: types.ErrExpressionTooDeep}
	}

	switch w.Type {
	case typeExpression:
		if w.Operator == nil {
			return nil, malformed(path, "expression without operator")
		}
		e := query.NewExpression(*w.Operator)
		for i, c := range w.Conditions {
			child, err := decodeOperand(c, fmt.Sprintf("%s.conditions[%d]", path, i), depth+1)
			if err != nil {
				return nil, err
			}
			e.Add(child)
		}
		return e, nil

	case typeBinary:
		if w.Operator == nil {
			return nil, malformed(path, "binary expression without operator")
		}
		left, err := decodeOperand(w.Left, path+".left", depth+1)
		if err != nil {
			return nil, err
		}
		right, err := decodeOperand(w.Right, path+".right", depth+1)
		if err != nil {
			return nil, err
		}
		return query.Binary(left, *w.Operator, right), nil

	case typeColumn:
		if w.Name == "" {
			return nil, malformed(path, "column without name")
		}
		return query.Column{Name: w.Name, SurroundedBy: w.SurroundedBy}, nil

	case typeContentColumn:
		if w.Column == nil {
			return nil, malformed(path, "content column without column")
		}
		return query.Col(*w.Column), nil

	case typeString:
		var s string
		if err := unmarshalField(w.Value, &s); err != nil {
			return nil, malformed(path+".value", "%v", err)
		}
		return query.String(s), nil

	case typeLong:
		var s string
		if err := unmarshalField(w.Value, &s); err != nil {
			return nil, malformed(path+".value", "%v", err)
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, malformed(path+".value", "%v", err)
		}
		return query.Long(n), nil

	case typeDouble:
		var f float64
		if err := unmarshalField(w.Value, &f); err != nil {
			return nil, malformed(path+".value", "%v", err)
		}
		return query.Double(f), nil

	case typeStringList:
		var ss []string
		if err := unmarshalField(w.Values, &ss); err != nil {
			return nil, malformed(path+".values", "%v", err)
		}
		return query.Strings(ss...), nil

	case typeLongList:
		var ss []string
		if err := unmarshalField(w.Values, &ss); err != nil {
			return nil, malformed(path+".values", "%v", err)
		}
		ns := make([]int64, len(ss))
		for i, s := range ss {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, malformed(fmt.Sprintf("%s.values[%d]", path, i), "%v", err)
			}
			ns[i] = n
		}
		return query.Longs(ns...), nil

	case typeDoubleList:
		var fs []float64
		if err := unmarshalField(w.Values, &fs); err != nil {
			return nil, malformed(path+".values", "%v", err)
		}
		return query.Doubles(fs...), nil
	}

	return nil, malformed(path+".type", "unknown operand type %q", w.Type)
}

var errMissingField = errors.New("missing")

func unmarshalField(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errMissingField
	}
	return json.Unmarshal(raw, dst)
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// Finalize rejects non-finite doubles, so only plain values reach here.
		panic(fmt.Sprintf("picker: marshal %T: %v", v, err))
	}
	return b
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
