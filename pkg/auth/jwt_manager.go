package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Purpose scopes a signed action token to a single use case so a password
// reset token can never confirm an email and vice versa.
type Purpose string

const (
	PurposeConfirmEmail  Purpose = "confirm_email"
	PurposeResetPassword Purpose = "reset_password"
)

var (
	ErrInvalidActionToken = errors.New("invalid or expired token")
	ErrMissingCredentials = errors.New("invalid Authorization header")
)

type actionClaims struct {
	Purpose Purpose `json:"purpose"`
	Binding string  `json:"bnd,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs short-lived action tokens (email confirmation, password
// reset). API authentication uses opaque bearer tokens, not JWTs.
type JWTManager struct {
	secretKey string
	now       func() time.Time
}

func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{secretKey: secret, now: time.Now}
}

// Generate creates a token for userID valid for ttl.
func (m *JWTManager) Generate(purpose Purpose, userID uint, ttl time.Duration) (string, error) {
	return m.GenerateBound(purpose, userID, "", ttl)
}

// GenerateBound creates a token carrying binding, which VerifyBound hands
// back so the caller can check it still matches the account state.
func (m *JWTManager) GenerateBound(purpose Purpose, userID uint, binding string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := actionClaims{
		Purpose: purpose,
		Binding: binding,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(m.secretKey))
}

// Verify parses the token and returns the user id it was issued for.
func (m *JWTManager) Verify(purpose Purpose, raw string) (uint, error) {
	id, _, err := m.VerifyBound(purpose, raw)
	return id, err
}

// VerifyBound is Verify that also returns the token's binding.
func (m *JWTManager) VerifyBound(purpose Purpose, raw string) (uint, string, error) {
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS512.Alg()}}
	claims := &actionClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.secretKey), nil
	})
	if err != nil || !token.Valid {
		return 0, "", ErrInvalidActionToken
	}
	if claims.Purpose != purpose {
		return 0, "", ErrInvalidActionToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, "", ErrInvalidActionToken
	}
	return uint(id), claims.Binding, nil
}

// ExtractTokenFromHeader returns the token from an "Authorization: Bearer" header.
func ExtractTokenFromHeader(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMissingCredentials
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingCredentials
	}
	return token, nil
}

// ExtractBasicCredentials returns username and password from an
// "Authorization: Basic" header.
func ExtractBasicCredentials(r *http.Request) (string, string, error) {
	username, password, ok := r.BasicAuth()
	if !ok || username == "" {
		return "", "", ErrMissingCredentials
	}
	return username, password, nil
}
