package picker

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/pickerkt/internal/types"
)

// maxTokenSize bounds the decompressed size of a token.
const maxTokenSize = 1 << 20

var (
	tokenCodec = sync.OnceValues(func() (*zstdCodec, error) {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxTokenSize))
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		return &zstdCodec{enc: enc, dec: dec}, nil
	})
)

// zstdCodec holds a shared encoder and decoder. EncodeAll and DecodeAll are
// safe for concurrent use.
type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// EncodeToken returns c as a compact URL-safe string: the Encode parcel,
// zstd-compressed and base64url-encoded without padding.
func EncodeToken(c *Configuration) (string, error) {
	raw, err := Encode(c)
	if err != nil {
		return "", err
	}
	codec, err := tokenCodec()
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(codec.enc.EncodeAll(raw, nil)), nil
}

// DecodeToken reverses EncodeToken.
func DecodeToken(token string) (*Configuration, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, malformed("token", "base64: %v", err)
	}
	codec, err := tokenCodec()
	if err != nil {
		return nil, err
	}
	raw, err := codec.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, malformed("token", "zstd: %v", err)
	}
	return Decode(raw)
}

// ToStruct returns the Encode parcel as a structpb.Struct for embedding in
// protobuf messages.
func ToStruct(c *Configuration) (*structpb.Struct, error) {
	raw, err := Encode(c)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("configuration to struct: %w", err)
	}
	return s, nil
}

// FromStruct decodes a configuration carried as a structpb.Struct.
func FromStruct(s *structpb.Struct) (*Configuration, error) {
	if s == nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: nil struct", types.ErrMalformedEncoding)}
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return nil, malformed("", "%v", err)
	}
	return Decode(raw)
}
