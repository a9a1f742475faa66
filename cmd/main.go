package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/clanwars/battles/brackets"
	"github.com/clanwars/battles/config"
	"github.com/clanwars/battles/db"
	"github.com/clanwars/battles/handlers"
	"github.com/clanwars/battles/repositories"
	api "github.com/clanwars/battles/routes"
	"github.com/clanwars/battles/services"
	"github.com/clanwars/battles/storage"
	"github.com/clanwars/battles/wgapi"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Клиент API Wargaming
	wgClient := wgapi.NewClient(wgapi.Config{
		ApplicationID:  cfg.WargamingAppID,
		PAPIBaseURL:    cfg.PAPIBaseURL,
		WGNBaseURL:     cfg.WGNBaseURL,
		GameAPIBaseURL: cfg.GameAPIBaseURL,
		CacheTTL:       cfg.APICacheTTL,
		Logger:         logger,
	})

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	clanRepo := repositories.NewPostgresClanRepository(dbConn)
	provinceRepo := repositories.NewPostgresProvinceRepository(dbConn)
	scheduleRepo := repositories.NewPostgresScheduleRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)

	// Инициализация сервисов
	clanService := services.NewClanService(clanRepo, wgClient, logger)
	scheduleService := services.NewScheduleService(scheduleRepo, provinceRepo, matchRepo, clanRepo, logger)
	syncService := services.NewSyncService(clanRepo, provinceRepo, scheduleRepo, matchRepo, wgClient, logger)
	logger.Info("services initialized")

	// Архив завершённых расписаний в Cloudflare R2, если он настроен.
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiveService := services.NewArchiveService(scheduleRepo, provinceRepo, matchRepo, clanRepo, uploader, logger)
		go runArchiveScheduler(archiveService, cfg.ArchiveInterval, logger)
	} else {
		logger.Info("R2 is not configured, schedule archiving disabled")
	}

	// Инициализация обработчиков HTTP
	scheduleHandler := handlers.NewScheduleHandler(clanService, syncService, scheduleService, wsHub, logger)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, scheduleHandler, webSocketHandler)

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
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

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server stopped gracefully")
		}
	}
}

// runArchiveScheduler раз в интервал выгружает в хранилище завершённые
// расписания прошлой игровой даты.
func runArchiveScheduler(archiveService services.ArchiveService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("archive scheduler started", slog.Duration("interval", interval))

	archive := func() {
		date := services.Today().AddDate(0, 0, -1)
		count, err := archiveService.ArchiveFinishedSchedules(context.Background(), date)
		if err != nil {
			logger.Error("archive run failed", slog.Any("error", err))
			return
		}
		if count > 0 {
			logger.Info("archive run finished", slog.Int("schedules", count), slog.Time("date", date))
		}
	}

	archive()
	for range ticker.C {
		archive()
	}
}
