package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/internal/pagination"
	"github.com/thereayou/flasker/pkg/cryptox"
	"go.uber.org/zap"
)

const (
	msgMissingFields  = "must include username, email, name, and password fields"
	msgTakenUsername  = "please use a different username"
	msgTakenEmail     = "please use a different email address"
	maxUsernameLength = 64
	maxEmailLength    = 120
	maxNameLength     = 100
	maxAboutMeLength  = 200
)

// NewUser is a registration request. Nil fields were not supplied.
type NewUser struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// UserPatch is a partial profile update. Nil fields are left unchanged.
type UserPatch struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	AboutMe  *string `json:"about_me"`
	Points   *int    `json:"points"`
	Privacy  *bool   `json:"privacy"`
	Group    *string `json:"group"`
}

type UserService struct {
	db      *database.Database
	admins  map[string]struct{}
	blocked map[string]struct{}
	log     *zap.Logger

	Now func() time.Time
}

func NewUserService(db *database.Database, admins, blockedUsernames []string, log *zap.Logger) *UserService {
	s := &UserService{
		db:      db,
		admins:  make(map[string]struct{}, len(admins)),
		blocked: make(map[string]struct{}, len(blockedUsernames)),
		log:     log,
		Now:     func() time.Time { return time.Now().UTC() },
	}
	for _, a := range admins {
		s.admins[normalize(a)] = struct{}{}
	}
	for _, u := range blockedUsernames {
		s.blocked[normalize(u)] = struct{}{}
	}
	return s
}

// Register creates an account. Emails listed as admins join the admin group.
func (s *UserService) Register(ctx context.Context, in NewUser) (*models.User, error) {
	if in.Username == nil || in.Email == nil || in.Name == nil || in.Password == nil {
		return nil, invalid(msgMissingFields)
	}

	username := normalize(*in.Username)
	email := normalize(*in.Email)
	name := strings.TrimSpace(*in.Name)
	if username == "" || email == "" || *in.Password == "" {
		return nil, invalid(msgMissingFields)
	}

	if err := s.checkUsername(ctx, username, 0); err != nil {
		return nil, err
	}
	if err := s.checkEmail(ctx, email, 0); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, invalid(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}

	hash, err := cryptox.HashPassword(*in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	publicID, err := cryptox.GeneratePublicID()
	if err != nil {
		return nil, fmt.Errorf("generate public id: %w", err)
	}

	group := models.GroupUser
	if _, ok := s.admins[email]; ok {
		group = models.GroupAdmin
	}

	user := &models.User{
		PublicID:     publicID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Group:        group,
		Name:         name,
		LastSeen:     s.Now(),
	}
	if err := s.db.SaveUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, s.conflictReason(ctx, username, 0)
		}
		return nil, err
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("group", group))
	return user, nil
}

// conflictReason explains a unique violation that slipped past the checks.
func (s *UserService) conflictReason(ctx context.Context, username string, selfID uint) error {
	if existing, err := s.db.FindUserByUsername(ctx, username); err == nil && existing.ID != selfID {
		return invalid(msgTakenUsername)
	}
	return invalid(msgTakenEmail)
}

// checkUsername rejects reserved names and names owned by a user other
// than selfID.
func (s *UserService) checkUsername(ctx context.Context, username string, selfID uint) error {
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		return invalid(msgTakenUsername)
	}
	if _, ok := s.blocked[username]; ok {
		return invalid(msgTakenUsername)
	}

	existing, err := s.db.FindUserByUsername(ctx, username)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return invalid(msgTakenUsername)
	}
	return nil
}

func (s *UserService) checkEmail(ctx context.Context, email string, selfID uint) error {
	if !strings.Contains(email, "@") || utf8.RuneCountInString(email) > maxEmailLength {
		return invalid("invalid email address")
	}

	existing, err := s.db.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return invalid(msgTakenEmail)
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, publicID string) (*models.User, error) {
	user, err := s.db.GetUserByPublicID(ctx, publicID)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// List pages through all users ordered by id.
func (s *UserService) List(ctx context.Context, page, perPage int, endpoint pagination.Endpoint) (*pagination.Page[models.User], error) {
	src := pagination.Query[models.User]{
		CountFn: s.db.CountUsers,
		FetchFn: s.db.ListUsers,
	}
	return pagination.Paginate[models.User](ctx, src, page, perPage, endpoint)
}

// Update applies patch to the user identified by publicID. Only the user
// and admins may edit; only admins may change the group. Every supplied
// field is validated before anything is written.
func (s *UserService) Update(ctx context.Context, actor *models.User, publicID string, patch UserPatch) (*models.User, error) {
	user, err := s.Get(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if actor.ID != user.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	next := *user

	if patch.Username != nil {
		next.Username = normalize(*patch.Username)
		if next.Username != user.Username {
			if err := s.checkUsername(ctx, next.Username, user.ID); err != nil {
				return nil, err
			}
		}
	}
	if patch.Email != nil {
		next.Email = normalize(*patch.Email)
		if next.Email != user.Email {
			if err := s.checkEmail(ctx, next.Email, user.ID); err != nil {
				return nil, err
			}
			next.EmailConfirmedAt = nil
		}
	}
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
		if utf8.RuneCountInString(next.Name) > maxNameLength {
			return nil, invalid(fmt.Sprintf("name must be at most %d characters", maxNameLength))
		}
	}
	if patch.AboutMe != nil {
		next.AboutMe = strings.TrimSpace(*patch.AboutMe)
		if utf8.RuneCountInString(next.AboutMe) > maxAboutMeLength {
			return nil, invalid(fmt.Sprintf("about_me must be at most %d characters", maxAboutMeLength))
		}
	}
	if patch.Points != nil {
		points := *patch.Points
		next.Points = &points
	}
	if patch.Privacy != nil {
		next.Privacy = *patch.Privacy
	}
	if patch.Group != nil {
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		if *patch.Group != models.GroupUser && *patch.Group != models.GroupAdmin {
			return nil, invalid("group must be user or admin")
		}
		next.Group = *patch.Group
	}

	if err := s.db.UpdateUser(ctx, &next); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, s.conflictReason(ctx, next.Username, user.ID)
		}
		return nil, err
	}
	return &next, nil
}

// Delete removes a user and everything it owns. Admins only, and never
// their own account.
func (s *UserService) Delete(ctx context.Context, actor *models.User, publicID string) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	user, err := s.Get(ctx, publicID)
	if err != nil {
		return err
	}
	if user.ID == actor.ID {
		return ErrForbidden
	}

	if err := s.db.DeleteUser(ctx, user.ID); err != nil {
		return notFound(err)
	}
	s.log.Info("user deleted", zap.Uint("user_id", user.ID), zap.Uint("by", actor.ID))
	return nil
}
