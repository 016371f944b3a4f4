package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/internal/services"
	"github.com/thereayou/flasker/pkg/auth"
	"go.uber.org/zap"
)

const CurrentUserKey = "currentUser"

type TokenValidator interface {
	Validate(ctx context.Context, token string) (*models.User, error)
}

type CredentialChecker interface {
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

func unauthorized(c *gin.Context, scheme string) {
	c.Header("WWW-Authenticate", scheme+` realm="Authentication Required"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// rejected answers 401 for refused credentials. Any other error means the
// user store failed and is logged as a 500.
func rejected(c *gin.Context, log *zap.Logger, scheme string, err error) {
	if errors.Is(err, services.ErrInvalidToken) || errors.Is(err, services.ErrInvalidCredentials) {
		unauthorized(c, scheme)
		return
	}
	Logger(c, log).Error("authentication failed", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// TokenAuth requires a valid bearer token and stores its owner on the
// context.
func TokenAuth(v TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			unauthorized(c, "Bearer")
			return
		}

		user, err := v.Validate(c.Request.Context(), token)
		if err != nil {
			rejected(c, log, "Bearer", err)
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// WSTokenAuth is TokenAuth for websocket upgrades, where browsers cannot set
// headers: the token may also come in the "token" query parameter.
func WSTokenAuth(v TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token, _ = auth.ExtractTokenFromHeader(c.Request)
		}

		user, err := v.Validate(c.Request.Context(), token)
		if err != nil {
			rejected(c, log, "Bearer", err)
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// OptionalTokenAuth sets the current user when a valid bearer token is
// present. Missing or refused tokens pass through anonymously.
func OptionalTokenAuth(v TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := auth.ExtractTokenFromHeader(c.Request); err == nil {
			user, err := v.Validate(c.Request.Context(), token)
			switch {
			case err == nil:
				c.Set(CurrentUserKey, user)
			case !errors.Is(err, services.ErrInvalidToken):
				rejected(c, log, "Bearer", err)
				return
			}
		}
		c.Next()
	}
}

// BasicAuth requires username/password credentials. It is only mounted on
// token issuance.
func BasicAuth(checker CredentialChecker, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, err := auth.ExtractBasicCredentials(c.Request)
		if err != nil {
			unauthorized(c, "Basic")
			return
		}

		user, err := checker.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			rejected(c, log, "Basic", err)
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// RejectGuest blocks the shared guest account.
func RejectGuest() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := OptionalUser(c); user != nil && user.IsGuest() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user. It panics when no auth
// middleware ran.
func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet(CurrentUserKey).(*models.User)
}

// OptionalUser returns the authenticated user or nil.
func OptionalUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CurrentUserKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
