package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rollcall/rollcall-backend/internal/config"
	"github.com/rollcall/rollcall-backend/internal/database"
	"github.com/rollcall/rollcall-backend/internal/handler"
	"github.com/rollcall/rollcall-backend/internal/logger"
	"github.com/rollcall/rollcall-backend/internal/repository"
	"github.com/rollcall/rollcall-backend/internal/router"
	"github.com/rollcall/rollcall-backend/internal/service"
	"github.com/rollcall/rollcall-backend/internal/validator"
	"github.com/rollcall/rollcall-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting RollCall Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)

	// Services
	authService := service.NewAuthService(cfg)
	directoryService := service.NewDirectoryService(userRepo, courseRepo, authService, log)
	courseService := service.NewCourseService(courseRepo, log)
	sessionService := service.NewSessionService(sessionRepo, rdb, cfg, log)
	attendanceService := service.NewAttendanceService(attendanceRepo, userRepo, rdb, log)

	// Handlers
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, directoryService),
		Teacher:    handler.NewTeacherHandler(sessionService, directoryService),
		Attendance: handler.NewAttendanceHandler(attendanceService),
		Admin:      handler.NewAdminHandler(directoryService),
		Course:     handler.NewCourseHandler(courseService),
		WS:         handler.NewWSHandler(rdb, log, cfg.AllowedOrigins),
	}

	// Background sweeper deactivates expired sessions nobody resolved.
	workerCtx, workerCancel := context.WithCancel(context.Background())

	sweepWorker := worker.NewSweepWorker(sessionRepo, sessionService, cfg.SweepInterval, log)
	go sweepWorker.Start(workerCtx)

	r := router.SetupRouter(authService, handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
