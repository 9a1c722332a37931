package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	signedPrefix = "pk-v1-"
	secretIDLen  = 32
	macHexLen    = sha256.Size * 2
)

// ParseSignedToken splits a signed token into its parts.
// Format: pk-v1-<secret_id>-<token>-<mac>, where secret_id is 32 hex chars,
// token is a raw base64url configuration token (which may itself contain
// '-') and mac is the hex HMAC-SHA256 of everything before the last '-'.
func ParseSignedToken(signed string) (secretID, token string, mac []byte, err error) {
	rest, ok := strings.CutPrefix(signed, signedPrefix)
	if !ok || len(rest) < secretIDLen+1+1+1+macHexLen {
		return "", "", nil, ErrInvalidTokenFormat
	}

	secretID = rest[:secretIDLen]
	if rest[secretIDLen] != '-' || !isLowerHex(secretID) {
		return "", "", nil, ErrInvalidTokenFormat
	}

	macHex := rest[len(rest)-macHexLen:]
	if rest[len(rest)-macHexLen-1] != '-' || !isLowerHex(macHex) {
		return "", "", nil, ErrInvalidTokenFormat
	}
	mac, err = hex.DecodeString(macHex)
	if err != nil {
		return "", "", nil, ErrInvalidTokenFormat
	}

	token = rest[secretIDLen+1 : len(rest)-macHexLen-1]
	if token == "" {
		return "", "", nil, ErrInvalidTokenFormat
	}
	return secretID, token, mac, nil
}

func isLowerHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// signedMessage is the text the MAC covers.
func signedMessage(secretID, token string) string {
	return signedPrefix + secretID + "-" + token
}

// ComputeHMAC computes the HMAC-SHA256 of message using secret.
func ComputeHMAC(secret []byte, message string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(message))
	return h.Sum(nil)
}

// VerifyHMAC compares MACs in constant time.
func VerifyHMAC(expected, computed []byte) bool {
	return hmac.Equal(expected, computed)
}

// FormatSignedToken assembles a signed token from its parts.
func FormatSignedToken(secretID, token string, mac []byte) string {
	return signedMessage(secretID, token) + "-" + hex.EncodeToString(mac)
}

// GenerateSecret returns a new secret in the <secret_id>:<base64_secret>
// form PICKERKT_SIGNING_SECRET expects. Secret IDs are UUIDv7 without
// hyphens, so later secrets sort after earlier ones.
func GenerateSecret() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate secret id: %w", err)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", "") + ":" + base64.StdEncoding.EncodeToString(secret), nil
}
