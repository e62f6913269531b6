package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired means the token was valid but its expiry claim passed.
	ErrTokenExpired = errors.New("token expired")
)

// ResetTokenTTL is the validity window for password-reset tokens.
const ResetTokenTTL = 10 * time.Minute

// Claims carries the owning user's id alongside the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// TokenService issues and verifies signed session tokens and computes
// password-reset token digests.
type TokenService struct {
	secret   []byte
	validity time.Duration
}

func NewTokenService(secret string, validity time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), validity: validity}
}

// Issue signs a session token for the given user id.
func (t *TokenService) Issue(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.validity)),
		},
		UserID: userID,
	})
	return token.SignedString(t.secret)
}

// Verify checks the token's signature and expiry and returns the subject id
// and issued-at time. Malformed input surfaces as ErrInvalidToken, never a
// panic, so callers can map it straight to a 401.
func (t *TokenService) Verify(tokenString string) (string, time.Time, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", time.Time{}, ErrTokenExpired
		}
		return "", time.Time{}, ErrInvalidToken
	}
	if !token.Valid || claims.UserID == "" || claims.IssuedAt == nil {
		return "", time.Time{}, ErrInvalidToken
	}
	return claims.UserID, claims.IssuedAt.Time, nil
}

// GenerateResetToken creates a one-time password-reset credential. The raw
// value goes to the user; only the digest is persisted.
func GenerateResetToken() (raw, digest string, expiresAt time.Time, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", time.Time{}, err
	}
	raw = hex.EncodeToString(b)
	return raw, HashResetToken(raw), time.Now().Add(ResetTokenTTL), nil
}

// HashResetToken computes the deterministic digest of a raw reset token so
// the stored value can be found again without keeping the raw token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
