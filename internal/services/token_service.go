package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/pkg/cryptox"
	"go.uber.org/zap"
)

// A token this close to expiry is replaced instead of handed out again.
const tokenReuseWindow = 60 * time.Second

// TokenService issues, validates and revokes the opaque bearer tokens kept
// on the user row, and checks username/password credentials.
type TokenService struct {
	db  *database.Database
	ttl time.Duration
	log *zap.Logger

	Now func() time.Time
}

func NewTokenService(db *database.Database, ttl time.Duration, log *zap.Logger) *TokenService {
	return &TokenService{
		db:  db,
		ttl: ttl,
		log: log,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate returns the user owning username when password matches.
func (s *TokenService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.db.FindUserByUsername(ctx, normalize(username))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrInvalidHash) {
			s.log.Warn("unreadable password hash", zap.Uint("user_id", user.ID), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Issue returns the user's current token if it stays valid for more than a
// minute, otherwise stores and returns a fresh one. Concurrent calls for the
// same user are last-writer-wins.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (string, error) {
	now := s.Now()
	if user.Token != nil && user.TokenExpiration != nil && user.TokenExpiration.After(now.Add(tokenReuseWindow)) {
		return *user.Token, nil
	}

	token, err := cryptox.GenerateToken(cryptox.BearerTokenSize)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	exp := now.Add(s.ttl)

	if err := s.db.UpdateToken(ctx, user.ID, &token, &exp); err != nil {
		return "", notFound(err)
	}
	if err := s.db.UpdateLastSeen(ctx, user.ID, now); err != nil {
		s.log.Warn("update last seen", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	user.Token = &token
	user.TokenExpiration = &exp
	user.LastSeen = now
	return token, nil
}

// Revoke expires the user's token immediately. The value is kept, so it can
// never validate again but still occupies its unique slot.
func (s *TokenService) Revoke(ctx context.Context, user *models.User) error {
	exp := s.Now().Add(-time.Second)
	if err := s.db.UpdateToken(ctx, user.ID, user.Token, &exp); err != nil {
		return notFound(err)
	}
	user.TokenExpiration = &exp
	return nil
}

// Validate resolves token to its owner. Unknown, expired and empty tokens
// all yield ErrInvalidToken.
func (s *TokenService) Validate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.db.FindUserByToken(ctx, token)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	if user.TokenExpiration == nil || !s.Now().Before(*user.TokenExpiration) {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// normalize lowercases and trims usernames and emails.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
