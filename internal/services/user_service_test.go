package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/pkg/cryptox"
)

func newUser(username, email string) NewUser {
	return NewUser{
		Username: strPtr(username),
		Email:    strPtr(email),
		Name:     strPtr("  Some Name "),
		Password: strPtr("cat-dog-123"),
	}
}

func requireReason(t *testing.T, err error, reason string) {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, reason, verr.Reason)
}

func TestUserService_RegistrationConflict(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	user, err := e.users.Register(ctx, newUser("josh", "josh@x.com"))
	require.NoError(t, err)
	require.Equal(t, "josh", user.Username)
	require.Equal(t, "Some Name", user.Name)
	require.Equal(t, models.GroupUser, user.Group)
	require.Len(t, user.PublicID, 24)
	require.Nil(t, user.Token)
	require.NoError(t, cryptox.VerifyPassword("cat-dog-123", user.PasswordHash))

	_, err = e.users.Register(ctx, newUser("josh", "other@x.com"))
	requireReason(t, err, "please use a different username")

	_, err = e.users.Register(ctx, newUser("  JOSH ", "third@x.com"))
	requireReason(t, err, "please use a different username")

	_, err = e.users.Register(ctx, newUser("sara", "JOSH@x.com"))
	requireReason(t, err, "please use a different email address")
}

func TestUserService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	missing := newUser("josh", "josh@x.com")
	missing.Name = nil
	_, err := e.users.Register(ctx, missing)
	requireReason(t, err, "must include username, email, name, and password fields")

	_, err = e.users.Register(ctx, newUser("Flasker", "f@x.com"))
	requireReason(t, err, "please use a different username")

	_, err = e.users.Register(ctx, newUser("josh", "not-an-email"))
	requireReason(t, err, "invalid email address")
}

func TestUserService_RegisterAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	user, err := e.users.Register(ctx, newUser("boss", "boss@example.com"))
	require.NoError(t, err)
	require.Equal(t, models.GroupAdmin, user.Group)
	require.True(t, user.IsAdmin())
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	josh := e.fx.CreateUser(ctx, "josh")
	sara := e.fx.CreateUser(ctx, "sara")
	admin := e.fx.CreateAdmin(ctx, "root2")

	updated, err := e.users.Update(ctx, josh, josh.PublicID, UserPatch{
		Name:    strPtr("  Joshua  "),
		AboutMe: strPtr("hi"),
		Email:   strPtr("NEW@x.com"),
	})
	require.NoError(t, err)
	require.Equal(t, "Joshua", updated.Name)
	require.Equal(t, "new@x.com", updated.Email)

	stored, err := e.users.Get(ctx, josh.PublicID)
	require.NoError(t, err)
	require.Equal(t, "Joshua", stored.Name)
	require.Equal(t, "hi", stored.AboutMe)

	_, err = e.users.Update(ctx, sara, josh.PublicID, UserPatch{Name: strPtr("hacked")})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = e.users.Update(ctx, josh, josh.PublicID, UserPatch{Username: strPtr("sara")})
	requireReason(t, err, "please use a different username")

	_, err = e.users.Update(ctx, josh, josh.PublicID, UserPatch{Email: strPtr("sara@example.com")})
	requireReason(t, err, "please use a different email address")

	// keeping your own username is not a conflict
	_, err = e.users.Update(ctx, josh, josh.PublicID, UserPatch{Username: strPtr("JOSH")})
	require.NoError(t, err)

	admin2 := models.GroupAdmin
	_, err = e.users.Update(ctx, josh, josh.PublicID, UserPatch{Group: &admin2})
	require.ErrorIs(t, err, ErrForbidden)

	promoted, err := e.users.Update(ctx, admin, sara.PublicID, UserPatch{Group: &admin2})
	require.NoError(t, err)
	require.True(t, promoted.IsAdmin())

	_, err = e.users.Update(ctx, josh, "missing", UserPatch{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_UpdateValidatesBeforeWriting(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	josh := e.fx.CreateUser(ctx, "josh")
	e.fx.CreateUser(ctx, "sara")

	_, err := e.users.Update(ctx, josh, josh.PublicID, UserPatch{
		Name:     strPtr("Changed"),
		Username: strPtr("sara"),
	})
	require.Error(t, err)

	stored, err := e.users.Get(ctx, josh.PublicID)
	require.NoError(t, err)
	require.Equal(t, "josh", stored.Name)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	josh := e.fx.CreateUser(ctx, "josh")
	admin := e.fx.CreateAdmin(ctx, "boss")

	require.ErrorIs(t, e.users.Delete(ctx, josh, admin.PublicID), ErrForbidden)
	require.ErrorIs(t, e.users.Delete(ctx, admin, admin.PublicID), ErrForbidden)

	require.NoError(t, e.users.Delete(ctx, admin, josh.PublicID))
	_, err := e.users.Get(ctx, josh.PublicID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	for _, name := range []string{"a", "b", "c"} {
		e.fx.CreateUser(ctx, name)
	}

	p, err := e.users.List(ctx, 2, 2, endpoint)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, usernames(p.Items))
	require.Equal(t, 2, p.Meta.TotalPages)
	require.NotNil(t, p.Links.Prev)
	require.Nil(t, p.Links.Next)
}
