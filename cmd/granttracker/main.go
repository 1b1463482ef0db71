package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/grant-tracker/internal/application"
	"github.com/example/grant-tracker/internal/config"
	httptransport "github.com/example/grant-tracker/internal/http"
	"github.com/example/grant-tracker/internal/persistence/sqlite"
)

func main() {
	// A missing .env file is fine, the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLitePath))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.Migrate(context.Background(), pool, logger); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	organizationRepo := sqlite.NewOrganizationRepository(pool)
	sessionRepo := sqlite.NewSessionRepository(pool)
	registrationRepo := sqlite.NewRegistrationRepository(pool)
	studentRepo := sqlite.NewStudentRepository(pool)
	attendanceRepo := sqlite.NewAttendanceRepository(pool)
	userRepo := sqlite.NewUserRepository(pool)
	authSessionRepo := sqlite.NewAuthSessionRepository(pool)

	sessionService := application.NewSessionService(sessionRepo, organizationRepo, registrationRepo, attendanceRepo, idGenerator, now, logger)
	registrationService := application.NewRegistrationService(registrationRepo, studentRepo, sessionRepo, organizationRepo, logger)
	attendanceService := application.NewAttendanceService(attendanceRepo, sessionRepo, organizationRepo, organizationRepo, idGenerator, now, logger)
	organizationService := application.NewOrganizationService(organizationRepo, studentRepo, sessionRepo, idGenerator, now, logger)
	userService := application.NewUserService(userRepo, nil, idGenerator, now, logger)
	authService := application.NewAuthService(userRepo, authSessionRepo, application.VerifyPassword, tokenGenerator, now, cfg.SessionTTL, logger)

	bootstrapCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	admin, err := userService.EnsureUser(bootstrapCtx, application.CreateUserParams{
		Email:       cfg.AdminEmail,
		DisplayName: "Administrator",
		Password:    cfg.AdminPassword,
		IsAdmin:     true,
	})
	cancel()
	if err != nil {
		logger.Error("failed to provision administrator account", "error", err)
		os.Exit(1)
	}
	logger.Info("administrator account ready", "user_id", admin.ID)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(authService, logger),
		Sessions:       httptransport.NewSessionHandler(sessionService, logger),
		Registrations:  httptransport.NewRegistrationHandler(registrationService, logger),
		Attendance:     httptransport.NewAttendanceHandler(attendanceService, logger),
		Organizations:  httptransport.NewOrganizationHandler(organizationService, logger),
		Users:          httptransport.NewUserHandler(userService, logger),
		RequireSession: httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("grant tracker API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
