package auth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/query"
	"github.com/solatis/pickerkt/internal/types"
)

const (
	oldID = "0190a1b2c3d4e5f60718293a4b5c6d7e"
	newID = "0190f1b2c3d4e5f60718293a4b5c6d7e"
)

func testSecrets() map[string][]byte {
	return map[string][]byte{
		oldID: bytes.Repeat([]byte{1}, 32),
		newID: bytes.Repeat([]byte{2}, 32),
	}
}

func TestSignUsesNewestSecret(t *testing.T) {
	s := NewSigner(testSecrets(), false)
	signed, err := s.Sign("abc-def_123")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if !strings.HasPrefix(signed, "pk-v1-"+newID+"-abc-def_123-") {
		t.Errorf("Sign() = %q, want newest secret id", signed)
	}

	token, err := s.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if token != "abc-def_123" {
		t.Errorf("Verify() = %q", token)
	}
}

func TestVerifyAcceptsRotatedSecret(t *testing.T) {
	old := NewSigner(map[string][]byte{oldID: testSecrets()[oldID]}, false)
	signed, err := old.Sign("tok")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if _, err := NewSigner(testSecrets(), false).Verify(signed); err != nil {
		t.Errorf("Verify() with rotated secrets error = %v", err)
	}
}

func TestVerifyErrors(t *testing.T) {
	s := NewSigner(testSecrets(), false)
	valid, err := s.Sign("tok")
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	unknown := strings.Replace(valid, newID, "ffffffffffffffffffffffffffffffff", 1)
	tampered := strings.Replace(valid, "-tok-", "-tak-", 1)
	flipped := valid[:len(valid)-1] + string("0123456789abcdef"[(strings.IndexByte("0123456789abcdef", valid[len(valid)-1])+1)%16])

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"wrong prefix", "tk-v1-" + strings.TrimPrefix(valid, "pk-v1-"), ErrInvalidTokenFormat},
		{"too short", "pk-v1-abc", ErrInvalidTokenFormat},
		{"uppercase id", strings.Replace(valid, newID, strings.ToUpper(newID), 1), ErrInvalidTokenFormat},
		{"empty token", "pk-v1-" + newID + "--" + strings.Repeat("a", 64), ErrInvalidTokenFormat},
		{"unknown key", unknown, ErrUnknownKey},
		{"tampered token", tampered, ErrInvalidSignature},
		{"tampered mac", flipped, ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Verify(tt.input); !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignWithoutSecret(t *testing.T) {
	s := NewSigner(nil, false)
	if s.Enabled() {
		t.Fatal("Enabled() = true without secrets")
	}
	if _, err := s.Sign("tok"); !errors.Is(err, ErrNoSigningKey) {
		t.Errorf("Sign() error = %v", err)
	}
}

func TestConfigurationRoundTrip(t *testing.T) {
	cfg := picker.New().AllowMimeTypes(types.Jpeg).MustBuild()

	for _, s := range []*Signer{NewSigner(nil, false), NewSigner(testSecrets(), true)} {
		token, err := s.SignConfiguration(cfg)
		if err != nil {
			t.Fatalf("SignConfiguration() error = %v", err)
		}
		back, err := s.OpenConfiguration(token)
		if err != nil {
			t.Fatalf("OpenConfiguration() error = %v", err)
		}
		if !back.Equal(cfg) {
			t.Errorf("OpenConfiguration() = %s, want %s", back, cfg)
		}
	}

	plain, err := picker.EncodeToken(cfg)
	if err != nil {
		t.Fatalf("EncodeToken() error = %v", err)
	}
	if _, err := NewSigner(testSecrets(), true).OpenConfiguration(plain); !errors.Is(err, ErrMissingSignature) {
		t.Errorf("OpenConfiguration(unsigned) error = %v", err)
	}
}

func TestOpenConfigurationUnsafePredicate(t *testing.T) {
	cfg := picker.New().Where(func(e *query.Expression) {
		e.Equal(query.Col(types.ColumnName), query.String("1 OR 1=1"))
	}).MustBuild()

	plain, err := picker.EncodeToken(cfg)
	if err != nil {
		t.Fatalf("EncodeToken() error = %v", err)
	}
	if _, err := NewSigner(nil, false).OpenConfiguration(plain); !errors.Is(err, types.ErrUnsafeLiteral) {
		t.Errorf("OpenConfiguration(unsigned) error = %v, want ErrUnsafeLiteral", err)
	}

	s := NewSigner(testSecrets(), false)
	signed, err := s.SignConfiguration(cfg)
	if err != nil {
		t.Fatalf("SignConfiguration() error = %v", err)
	}
	if _, err := s.OpenConfiguration(signed); err != nil {
		t.Errorf("OpenConfiguration(signed) error = %v", err)
	}
}

func TestUnaryInterceptor(t *testing.T) {
	s := NewSigner(testSecrets(), true)
	cfg := picker.New().AllowMimeTypes(types.Png).MustBuild()
	signed, err := s.SignConfiguration(cfg)
	if err != nil {
		t.Fatalf("SignConfiguration() error = %v", err)
	}

	var seen *picker.Configuration
	handler := func(ctx context.Context, req any) (any, error) {
		seen = ConfigurationFromContext(ctx)
		return "ok", nil
	}
	intercept := s.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/pickerkt.v1.Picker/Plan"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(TokenMetadataKey, signed))
	if _, err := intercept(ctx, nil, info, handler); err != nil {
		t.Fatalf("interceptor error = %v", err)
	}
	if seen == nil || !seen.Equal(cfg) {
		t.Errorf("context configuration = %v, want %s", seen, cfg)
	}

	seen = nil
	if _, err := intercept(context.Background(), nil, info, handler); err != nil || seen != nil {
		t.Errorf("request without metadata: err = %v, configuration = %v", err, seen)
	}

	bad := metadata.NewIncomingContext(context.Background(), metadata.Pairs(TokenMetadataKey, "pk-v1-nope"))
	_, err = intercept(bad, nil, info, handler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("bad token code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestGenerateSecret(t *testing.T) {
	value, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	id, secret, ok := strings.Cut(value, ":")
	if !ok || len(id) != 32 || !isLowerHex(id) || secret == "" {
		t.Errorf("GenerateSecret() = %q", value)
	}
}
