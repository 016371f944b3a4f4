package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/flasker/internal/handlers/dto"
	"github.com/thereayou/flasker/internal/middleware"
	"github.com/thereayou/flasker/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	tokens   *services.TokenService
	accounts *services.AccountService
	log      *zap.Logger
}

func NewAuthHandler(tokens *services.TokenService, accounts *services.AccountService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{tokens: tokens, accounts: accounts, log: log}
}

// IssueToken hands the basic-authenticated user a bearer token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	user := middleware.CurrentUser(c)

	token, err := h.tokens.Issue(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{
		PublicID: user.PublicID,
		Username: user.Username,
		Token:    token,
	})
}

// RevokeToken expires the bearer token used for this request.
func (h *AuthHandler) RevokeToken(c *gin.Context) {
	if err := h.tokens.Revoke(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) RequestConfirmation(c *gin.Context) {
	task, err := h.accounts.RequestConfirmation(c.Request.Context(), middleware.CurrentUser(c), c.Param("public_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewTaskResponse(task, 0))
}

func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	user, err := h.accounts.ConfirmEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_id": user.PublicID, "email_confirmed_at": user.EmailConfirmedAt})
}

// RequestPasswordReset always answers 202 so it cannot be used to probe
// which emails are registered.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request", "message": "must include email field"})
		return
	}

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		middleware.Logger(c, h.log).Error("password reset request", zap.Error(err))
	}
	c.Status(http.StatusAccepted)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.NewPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request", "message": "must include password field"})
		return
	}

	if err := h.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
