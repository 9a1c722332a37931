// Package auth signs and verifies configuration tokens with HMAC-SHA256.
//
// A signed token lets a service hand a client a picker configuration it can
// echo back later without the client being able to widen it.
package auth

import (
	"context"
	"errors"
	"sort"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/solatis/pickerkt/internal/picker"
	"github.com/solatis/pickerkt/internal/query"
)

// TokenMetadataKey is the gRPC metadata key carrying a configuration token.
const TokenMetadataKey = "x-picker-token"

type contextKey string

const configurationKey = contextKey("configuration")

// Signer holds the signing secrets. Tokens are signed with the newest
// secret; every secret verifies.
type Signer struct {
	secrets  map[string][]byte
	activeID string
	required bool
}

// NewSigner returns a signer over secrets (secret_id -> secret). The
// greatest secret id, i.e. the most recent UUIDv7, signs new tokens. When
// required is set, unsigned tokens are rejected.
func NewSigner(secrets map[string][]byte, required bool) *Signer {
	ids := make([]string, 0, len(secrets))
	for id := range secrets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s := &Signer{secrets: secrets, required: required}
	if len(ids) > 0 {
		s.activeID = ids[len(ids)-1]
	}
	return s
}

// Enabled reports whether a signing secret is configured.
func (s *Signer) Enabled() bool { return s.activeID != "" }

// Sign wraps token in a signed envelope.
func (s *Signer) Sign(token string) (string, error) {
	if !s.Enabled() {
		return "", ErrNoSigningKey
	}
	mac := ComputeHMAC(s.secrets[s.activeID], signedMessage(s.activeID, token))
	return FormatSignedToken(s.activeID, token, mac), nil
}

// Verify checks a signed token and returns the configuration token inside.
func (s *Signer) Verify(signed string) (string, error) {
	secretID, token, mac, err := ParseSignedToken(signed)
	if err != nil {
		return "", err
	}
	secret, ok := s.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}
	if !VerifyHMAC(mac, ComputeHMAC(secret, signedMessage(secretID, token))) {
		return "", ErrInvalidSignature
	}
	return token, nil
}

// SignConfiguration encodes cfg as a token and signs it when a secret is
// configured.
func (s *Signer) SignConfiguration(cfg *picker.Configuration) (string, error) {
	token, err := picker.EncodeToken(cfg)
	if err != nil {
		return "", err
	}
	if !s.Enabled() {
		return token, nil
	}
	return s.Sign(token)
}

// OpenConfiguration decodes a signed or plain configuration token. Plain
// tokens are refused when signatures are required, and their predicates
// must pass query.ValidateUntrusted.
func (s *Signer) OpenConfiguration(token string) (*picker.Configuration, error) {
	signed := strings.HasPrefix(token, signedPrefix)
	if signed {
		inner, err := s.Verify(token)
		if err != nil {
			return nil, err
		}
		token = inner
	} else if s.required {
		return nil, ErrMissingSignature
	}

	cfg, err := picker.DecodeToken(token)
	if err != nil {
		return nil, err
	}
	if !signed {
		if err := query.ValidateUntrusted(cfg.Predicate()); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// UnaryInterceptor decodes the configuration token in the x-picker-token
// metadata, when present, and stores the configuration in the request
// context. Requests without the header pass through untouched.
func (s *Signer) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return handler(ctx, req)
		}
		tokens := md.Get(TokenMetadataKey)
		if len(tokens) == 0 {
			return handler(ctx, req)
		}

		cfg, err := s.OpenConfiguration(tokens[0])
		if err != nil {
			return nil, status.Error(TokenErrorCode(err), err.Error())
		}
		return handler(WithConfiguration(ctx, cfg), req)
	}
}

// TokenErrorCode maps a token error to its gRPC code: signature problems are
// UNAUTHENTICATED, anything else is a malformed argument.
func TokenErrorCode(err error) codes.Code {
	switch {
	case errors.Is(err, ErrMissingSignature),
		errors.Is(err, ErrInvalidTokenFormat),
		errors.Is(err, ErrUnknownKey),
		errors.Is(err, ErrInvalidSignature):
		return codes.Unauthenticated
	default:
		return codes.InvalidArgument
	}
}

// WithConfiguration returns a context carrying cfg.
func WithConfiguration(ctx context.Context, cfg *picker.Configuration) context.Context {
	return context.WithValue(ctx, configurationKey, cfg)
}

// ConfigurationFromContext returns the configuration stored by the
// interceptor, or nil.
func ConfigurationFromContext(ctx context.Context) *picker.Configuration {
	cfg, _ := ctx.Value(configurationKey).(*picker.Configuration)
	return cfg
}
