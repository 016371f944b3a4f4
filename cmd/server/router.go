package main

import (
	"github.com/gin-gonic/gin"
	"github.com/thereayou/flasker/internal/handlers"
	"github.com/thereayou/flasker/internal/middleware"
	"github.com/thereayou/flasker/internal/services"
	"go.uber.org/zap"
)

type routeHandlers struct {
	auth          *handlers.AuthHandler
	users         *handlers.UserHandler
	tasks         *handlers.TaskHandler
	notifications *handlers.NotificationHandler
	content       *handlers.ContentHandler
	health        *handlers.HealthHandler
	ws            *handlers.WebSocketHandler
}

func APIEndpoints(r *gin.Engine, h routeHandlers, tokens *services.TokenService, tokensPerMinute int, log *zap.Logger) {
	r.GET("/healthz", h.health.Health)

	v1 := r.Group("/v1")

	bearer := middleware.TokenAuth(tokens, log)
	noGuest := middleware.RejectGuest()

	// Tokens
	v1.POST("/tokens", middleware.RateLimitByIP(tokensPerMinute), middleware.BasicAuth(tokens, log), h.auth.IssueToken)
	v1.DELETE("/tokens", bearer, h.auth.RevokeToken)

	// Account
	v1.POST("/confirm/:token", h.auth.ConfirmEmail)
	v1.POST("/reset_password", h.auth.RequestPasswordReset)
	v1.POST("/reset_password/:token", h.auth.ResetPassword)

	// Users
	v1.POST("/users", h.users.CreateUser)
	users := v1.Group("/users", bearer, noGuest)
	{
		users.GET("", h.users.ListUsers)
		users.GET("/:public_id", h.users.GetUser)
		users.PUT("/:public_id", h.users.UpdateUser)
		users.DELETE("/:public_id", h.users.DeleteUser)
		users.POST("/:public_id/follow", h.users.Follow)
		users.DELETE("/:public_id/follow", h.users.Unfollow)
		users.GET("/:public_id/followers", h.users.Followers)
		users.GET("/:public_id/followed", h.users.Followed)
		users.POST("/:public_id/confirmation", h.auth.RequestConfirmation)
	}

	// Tasks and notifications
	authed := v1.Group("", bearer)
	{
		authed.POST("/tasks/export_followers", h.tasks.ExportFollowers)
		authed.GET("/tasks", h.tasks.ListTasks)
		authed.GET("/tasks/:id", h.tasks.GetTask)
		authed.GET("/notifications", h.notifications.ListNotifications)
	}
	v1.GET("/ws", middleware.WSTokenAuth(tokens, log), h.ws.HandleWebSocket)

	// Content
	content := v1.Group("/content")
	{
		content.GET("", middleware.OptionalTokenAuth(tokens, log), h.content.ListContent)
		content.GET("/:public_id", middleware.OptionalTokenAuth(tokens, log), h.content.GetContent)
		content.POST("", bearer, h.content.CreateContent)
		content.PUT("/:public_id", bearer, h.content.UpdateContent)
		content.DELETE("/:public_id", bearer, h.content.DeleteContent)
	}
}
