package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/flasker/internal/handlers/dto"
	"github.com/thereayou/flasker/internal/middleware"
	"github.com/thereayou/flasker/internal/models"
	"github.com/thereayou/flasker/internal/pagination"
	"github.com/thereayou/flasker/internal/services"
	"go.uber.org/zap"
)

type UserHandler struct {
	users   *services.UserService
	follows *services.FollowService
	log     *zap.Logger
}

func NewUserHandler(users *services.UserService, follows *services.FollowService, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, follows: follows, log: log}
}

func (h *UserHandler) render(ctx context.Context, u *models.User, includeEmail bool) (dto.UserResponse, error) {
	followers, followed, err := h.follows.Counts(ctx, u)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(u, followers, followed, includeEmail), nil
}

func (h *UserHandler) renderPage(ctx context.Context, p *pagination.Page[models.User]) (*pagination.Page[dto.UserResponse], error) {
	var renderErr error
	out := pagination.Map(p, func(u models.User) dto.UserResponse {
		if renderErr != nil {
			return dto.UserResponse{}
		}
		resp, err := h.render(ctx, &u, false)
		renderErr = err
		return resp
	})
	if renderErr != nil {
		return nil, renderErr
	}
	return out, nil
}

// CreateUser registers a new account.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.NewUser
	if err := decodeJSON(c, &req, true); err != nil {
		respondError(c, h.log, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp, err := h.render(c.Request.Context(), user, true)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Location", dto.UserPath(user.PublicID))
	c.JSON(http.StatusCreated, resp)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, perPage := pageParams(c, pagination.DefaultPerPage)

	p, err := h.users.List(c.Request.Context(), page, perPage, pageURL("/v1/users"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out, err := h.renderPage(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetUser returns a profile; the email is shown only to its owner.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("public_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	self := middleware.CurrentUser(c).ID == user.ID
	resp, err := h.render(c.Request.Context(), user, self)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var patch services.UserPatch
	if err := decodeJSON(c, &patch, true); err != nil {
		respondError(c, h.log, err)
		return
	}

	user, err := h.users.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("public_id"), patch)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	resp, err := h.render(c.Request.Context(), user, true)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("public_id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Follow(c *gin.Context) {
	target, err := h.users.Get(c.Request.Context(), c.Param("public_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.follows.Follow(c.Request.Context(), middleware.CurrentUser(c), target); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	target, err := h.users.Get(c.Request.Context(), c.Param("public_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.follows.Unfollow(c.Request.Context(), middleware.CurrentUser(c), target); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Followers(c *gin.Context) {
	h.edges(c, "followers", h.follows.Followers)
}

func (h *UserHandler) Followed(c *gin.Context) {
	h.edges(c, "followed", h.follows.Followed)
}

type edgeLister func(ctx context.Context, user *models.User, page, perPage int, endpoint pagination.Endpoint) (*pagination.Page[models.User], error)

func (h *UserHandler) edges(c *gin.Context, direction string, list edgeLister) {
	user, err := h.users.Get(c.Request.Context(), c.Param("public_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	page, perPage := pageParams(c, pagination.DefaultPerPage)
	p, err := list(c.Request.Context(), user, page, perPage, pageURL(dto.UserPath(user.PublicID)+"/"+direction))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out, err := h.renderPage(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
