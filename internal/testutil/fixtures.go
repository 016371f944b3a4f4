package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/pkg/cryptox"
)

// DefaultPassword is the password of every user created by Fixtures.
const DefaultPassword = "cat-dog-123"

// Fixtures creates test rows directly through the database layer.
type Fixtures struct {
	db *database.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *database.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// CreateUser inserts a user in the "user" group with DefaultPassword.
func (f *Fixtures) CreateUser(ctx context.Context, username string) *models.User {
	f.t.Helper()
	return f.createUser(ctx, username, models.GroupUser)
}

// CreateAdmin inserts a user in the "admin" group with DefaultPassword.
func (f *Fixtures) CreateAdmin(ctx context.Context, username string) *models.User {
	f.t.Helper()
	return f.createUser(ctx, username, models.GroupAdmin)
}

func (f *Fixtures) createUser(ctx context.Context, username, group string) *models.User {
	hash, err := cryptox.HashPassword(DefaultPassword)
	require.NoError(f.t, err)

	publicID, err := cryptox.GeneratePublicID()
	require.NoError(f.t, err)

	user := &models.User{
		PublicID:     publicID,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Group:        group,
		Name:         username,
		LastSeen:     time.Now().UTC(),
	}
	require.NoError(f.t, f.db.SaveUser(ctx, user))
	return user
}

// Follow inserts the edge follower -> followed.
func (f *Fixtures) Follow(ctx context.Context, follower, followed *models.User) {
	f.t.Helper()
	_, err := f.db.AddFollow(ctx, follower.ID, followed.ID)
	require.NoError(f.t, err)
}
