package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that are malformed or carry a
// signature that does not match the cart id.
var ErrInvalidToken = errors.New("invalid cart token")

// Signer issues and verifies cart tokens of the form "<uuid>.<hex mac>"
// where mac is HMAC-SHA256 of the uuid keyed by the secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer with the given secret.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Issue creates a token for a new random cart id.
func (s *Signer) Issue() (token, cartID string) {
	cartID = uuid.NewString()
	return s.Sign(cartID), cartID
}

// Sign returns the token for cartID.
func (s *Signer) Sign(cartID string) string {
	return cartID + "." + hex.EncodeToString(s.mac(cartID))
}

// Verify checks token and returns the cart id it carries.
func (s *Signer) Verify(token string) (string, error) {
	cartID, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(cartID); err != nil {
		return "", ErrInvalidToken
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return "", ErrInvalidToken
	}
	if subtle.ConstantTimeCompare(got, s.mac(cartID)) != 1 {
		return "", ErrInvalidToken
	}
	return cartID, nil
}

func (s *Signer) mac(cartID string) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(cartID))
	return m.Sum(nil)
}
