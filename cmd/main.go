package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/roster-system/config"
	"github.com/Dosada05/roster-system/db"
	"github.com/Dosada05/roster-system/handlers"
	"github.com/Dosada05/roster-system/jobs"
	"github.com/Dosada05/roster-system/live"
	"github.com/Dosada05/roster-system/metrics"
	"github.com/Dosada05/roster-system/repositories"
	api "github.com/Dosada05/roster-system/routes"
	"github.com/Dosada05/roster-system/services"
	"github.com/Dosada05/roster-system/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("environment", cfg.Environment),
		slog.Bool("auth_required", cfg.AuthRequired))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Пул подключений открывается лениво, при первом запросе
	pool := newPool(cfg, logger)
	defer func() {
		if err := pool.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	// Хранилище файлов: R2 если настроено, иначе локальный диск
	store, err := newFileStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize file storage", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация WebSocket Hub
	hub := live.NewHub(logger)
	go hub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	categoryRepo := repositories.NewPostgresCategoryRepository(pool)
	teamRepo := repositories.NewPostgresTeamRepository(pool)
	playerRepo := repositories.NewPostgresPlayerRepository(pool)
	userRepo := repositories.NewPostgresUserRepository(pool)
	maintenanceRepo := repositories.NewPostgresMaintenanceRepository(pool)

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, logger)
	categoryService := services.NewCategoryService(categoryRepo, teamRepo, userRepo)
	teamService := services.NewTeamService(pool, teamRepo, categoryRepo, hub, logger)
	playerService := services.NewPlayerService(playerRepo, categoryRepo, teamRepo, hub, logger)
	userService := services.NewUserService(userRepo)
	mediaService := services.NewMediaService(store, logger)
	maintenanceService := services.NewMaintenanceService(pool, maintenanceRepo, teamRepo, categoryRepo, playerRepo, logger)
	logger.Info("Services initialized")

	// Периодические задачи
	scheduler, err := jobs.NewScheduler(pool, maintenanceService, jobs.Intervals{
		HealthCheck: cfg.HealthCheckInterval,
		DriftReport: cfg.DriftReportInterval,
	}, logger)
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AuthRequired:   cfg.AuthRequired,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	}, api.Handlers{
		Auth:      handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Category:  handlers.NewCategoryHandler(categoryService),
		Team:      handlers.NewTeamHandler(teamService),
		Player:    handlers.NewPlayerHandler(playerService),
		User:      handlers.NewUserHandler(userService),
		Upload:    handlers.NewUploadHandler(mediaService),
		WebSocket: handlers.NewWebSocketHandler(hub, cfg.AllowedOrigins, logger),
		System:    handlers.NewSystemHandler(pool, cfg.Environment),
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			exitCode = 1
		} else {
			logger.Info("server shutdown complete")
		}
	}

	if err := scheduler.Shutdown(); err != nil {
		logger.Error("failed to stop scheduler", slog.Any("error", err))
	}
	// Останавливаем hub, websocket клиенты отключаются
	stop()

	logger.Info("application exited")
	if exitCode != 0 {
		// os.Exit пропускает defer, закрываем пул явно
		pool.Close()
		os.Exit(exitCode)
	}
}

func newPool(cfg *config.Config, logger *slog.Logger) *db.Pool {
	open := db.Opener(cfg.DatabaseURL, cfg.DBConnectTimeout)
	return db.NewPool(
		func(ctx context.Context) (*sql.DB, error) {
			metrics.IncPoolConnectAttempts()
			return open(ctx)
		},
		db.WithLogger(logger),
		db.WithBackoff(cfg.DBRetryBase, cfg.DBRetryMax),
		db.WithStateHook(func(s db.State) { metrics.SetPoolState(int(s)) }),
	)
}

func newFileStore(ctx context.Context, cfg *config.Config) (storage.FileStore, error) {
	if cfg.R2Enabled() {
		store, err := storage.NewCloudflareR2Store(ctx, storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("Cloudflare R2 storage initialized", slog.String("bucket", cfg.R2BucketName))
		return store, nil
	}

	store, err := storage.NewLocalStore(storage.LocalStoreConfig{
		Dir:           cfg.UploadDir,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("local upload storage initialized", slog.String("dir", cfg.UploadDir))
	return store, nil
}
