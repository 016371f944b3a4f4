package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/pkg/auth"
	"github.com/thereayou/flasker/pkg/cryptox"
	"go.uber.org/zap"
)

const (
	confirmationTTL  = 7 * 24 * time.Hour
	resetPasswordTTL = 10 * time.Minute

	EmailConfirm       = "confirm_email"
	EmailResetPassword = "reset_password"
)

// EmailPayload is the send_email job argument.
type EmailPayload struct {
	Template string `json:"template"`
	Token    string `json:"token"`
}

// AccountService handles email confirmation and password resets through
// signed, purpose-scoped tokens delivered by email.
type AccountService struct {
	db     *database.Database
	jwt    *auth.JWTManager
	tasks  *TaskService
	tokens *TokenService
	log    *zap.Logger

	Now func() time.Time
}

func NewAccountService(db *database.Database, jwt *auth.JWTManager, tasks *TaskService, tokens *TokenService, log *zap.Logger) *AccountService {
	return &AccountService{
		db:     db,
		jwt:    jwt,
		tasks:  tasks,
		tokens: tokens,
		log:    log,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// RequestConfirmation queues a confirmation email for the user identified
// by publicID. Users may only request it for themselves.
func (s *AccountService) RequestConfirmation(ctx context.Context, actor *models.User, publicID string) (*models.Task, error) {
	if actor.PublicID != publicID {
		return nil, ErrForbidden
	}
	if actor.EmailConfirmedAt != nil {
		return nil, invalid("email already confirmed")
	}

	token, err := s.jwt.Generate(auth.PurposeConfirmEmail, actor.ID, confirmationTTL)
	if err != nil {
		return nil, fmt.Errorf("sign confirmation token: %w", err)
	}
	return s.tasks.Launch(ctx, actor, TaskSendEmail, "Sending confirmation email", EmailPayload{
		Template: EmailConfirm,
		Token:    token,
	})
}

// ConfirmEmail marks the token owner's email as confirmed.
func (s *AccountService) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	user, err := s.userFromToken(ctx, auth.PurposeConfirmEmail, token)
	if err != nil {
		return nil, err
	}
	if user.EmailConfirmedAt != nil {
		return user, nil
	}

	now := s.Now()
	user.EmailConfirmedAt = &now
	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset queues a reset email when email belongs to a user.
// Unknown addresses are ignored so callers cannot probe for accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.db.FindUserByEmail(ctx, normalize(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.jwt.GenerateBound(auth.PurposeResetPassword, user.ID, cryptox.Fingerprint(user.PasswordHash), resetPasswordTTL)
	if err != nil {
		return fmt.Errorf("sign reset token: %w", err)
	}
	_, err = s.tasks.Launch(ctx, user, TaskSendEmail, "Sending password reset email", EmailPayload{
		Template: EmailResetPassword,
		Token:    token,
	})
	return err
}

// ResetPassword sets a new password for the token owner and revokes the
// owner's bearer token.
func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return invalid("password must not be empty")
	}
	user, err := s.userFromToken(ctx, auth.PurposeResetPassword, token)
	if err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.db.UpdateUser(ctx, user); err != nil {
		return err
	}

	if user.Token != nil {
		if err := s.tokens.Revoke(ctx, user); err != nil {
			return err
		}
	}
	s.log.Info("password reset", zap.Uint("user_id", user.ID))
	return nil
}

// userFromToken resolves an action token to its user. Reset tokens are bound
// to the password hash they were issued against, so they stop working once
// the password changes.
func (s *AccountService) userFromToken(ctx context.Context, purpose auth.Purpose, token string) (*models.User, error) {
	id, binding, err := s.jwt.VerifyBound(purpose, token)
	if err != nil {
		return nil, invalid(auth.ErrInvalidActionToken.Error())
	}
	user, err := s.db.GetUser(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, invalid(auth.ErrInvalidActionToken.Error())
	}
	if err != nil {
		return nil, err
	}
	if purpose == auth.PurposeResetPassword && binding != cryptox.Fingerprint(user.PasswordHash) {
		return nil, invalid(auth.ErrInvalidActionToken.Error())
	}
	return user, nil
}
