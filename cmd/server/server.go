package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/flasker/internal/config"
	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/handlers"
	"github.com/thereayou/flasker/internal/jobs"
	"github.com/thereayou/flasker/internal/middleware"
	"github.com/thereayou/flasker/internal/services"
	ws "github.com/thereayou/flasker/internal/websocket"
	"github.com/thereayou/flasker/pkg/auth"
	"go.uber.org/zap"
)

type Server struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	Hub        *ws.Hub
	JWTManager *auth.JWTManager
	log        *zap.Logger
}

// NewServer connects to the database and Redis and wires the API.
func NewServer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	db, err := database.Open(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	rdb, err := database.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newServer(cfg, db, rdb, log), nil
}

func newServer(cfg config.Config, db *database.Database, rdb *redis.Client, log *zap.Logger) *Server {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtMgr := auth.NewJWTManager(cfg.SecretKey)
	queue := jobs.NewRedisQueue(rdb, cfg.AppNickname, cfg.ResultTTL)
	hub := ws.NewHub(log.Named("ws"))

	notifications := services.NewNotificationService(db, rdb, database.NotificationChannel(cfg.AppNickname), log)
	tokens := services.NewTokenService(db, cfg.TokenTTL, log)
	users := services.NewUserService(db, cfg.Admins, cfg.BlockedUsernames, log)
	follows := services.NewFollowService(db, notifications, log)
	tasks := services.NewTaskService(db, queue, notifications, log)
	accounts := services.NewAccountService(db, jwtMgr, tasks, tokens, log)
	content := services.NewContentService(db, log)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	APIEndpoints(router, routeHandlers{
		auth:          handlers.NewAuthHandler(tokens, accounts, log),
		users:         handlers.NewUserHandler(users, follows, log),
		tasks:         handlers.NewTaskHandler(tasks, log),
		notifications: handlers.NewNotificationHandler(notifications, log),
		content:       handlers.NewContentHandler(content, log),
		health:        handlers.NewHealthHandler(db, rdb, log),
		ws:            handlers.NewWebSocketHandler(hub, cfg.AllowedOrigins, log),
	}, tokens, cfg.TokenRequestsPerMinute, log)

	return &Server{
		Config:     cfg,
		Router:     router,
		DB:         db,
		Redis:      rdb,
		Hub:        hub,
		JWTManager: jwtMgr,
		log:        log,
	}
}

// Run serves HTTP until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()
	go s.Hub.Subscribe(ctx, s.Redis, database.NotificationChannel(s.Config.AppNickname))
	defer s.Hub.Stop()

	srv := &http.Server{
		Addr:              ":" + s.Config.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("port", s.Config.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) Close() {
	if err := s.Redis.Close(); err != nil {
		s.log.Warn("close redis", zap.Error(err))
	}
	if err := s.DB.Close(); err != nil {
		s.log.Warn("close database", zap.Error(err))
	}
}
