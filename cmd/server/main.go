package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"video_hearings/internal/config"
	"video_hearings/internal/handler"
	"video_hearings/internal/middleware"
	"video_hearings/internal/repository"
	"video_hearings/internal/service"
	"video_hearings/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	// postgres is only needed for the durable state-store backend
	var dbPool *pgxpool.Pool
	if cfg.StateStore.Backend == config.StateStorePostgres {
		dbPool, err = pgxpool.New(context.Background(), cfg.Database.DSN)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", "error", err)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(context.Background()); err != nil {
			appLogger.Fatal("Failed to ping database", "error", err)
		}
		appLogger.Info("Database connection established")
	}

	apiClient := service.NewVideoAPIClient(cfg.VideoAPI, appLogger)
	repos := repository.NewRepositories(cfg, dbPool, rdb, apiClient, appLogger)
	services := service.NewServices(repos, cfg, apiClient, appLogger)
	defer services.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	services.Start(ctx)

	authMiddleware := middleware.NewAuthMiddleware(cfg.VideoAPI, appLogger)
	handlers := handler.NewHandlers(services, cfg, appLogger)
	router := setupRouter(handlers, authMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)
	router.GET("/server-info", handlers.Health.ServerInfo)

	v1 := router.Group("/api/v1")
	{
		conference := v1.Group("/conference")
		conference.Use(authMiddleware.RequireAuth())
		{
			conference.POST("", handlers.Conference.Select)
			conference.DELETE("", handlers.Conference.Clear)
			conference.GET("", handlers.Conference.GetCurrent)

			conference.GET("/participants", handlers.Roster.GetParticipants)
			conference.GET("/vmrs", handlers.Roster.GetVirtualMeetingRooms)
			conference.GET("/participants/:participantId/pexip-id", handlers.Roster.GetPexipID)
			conference.GET("/recorder", handlers.Roster.GetRecorderPresence)

			conference.GET("/spotlighted", handlers.Control.GetSpotlighted)
			conference.PUT("/participants/:participantId/spotlight", handlers.Control.SetSpotlight)
			conference.PUT("/participants/:participantId/remote-mute", handlers.Control.SetRemoteMute)
			conference.PUT("/participants/:participantId/local-audio-mute", handlers.Control.SetLocalAudioMute)
			conference.PUT("/participants/:participantId/local-video-mute", handlers.Control.SetLocalVideoMute)
			conference.POST("/participants/:participantId/restore-spotlight", handlers.Control.RestoreSpotlight)
		}
	}

	return router
}
