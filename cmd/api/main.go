package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"salonbook/internal/api"
	"salonbook/internal/availability"
	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/google"
	"salonbook/internal/logging"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/notify"
	"salonbook/internal/repository"
	"salonbook/internal/service"
	"salonbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	loc, err := cfg.Business.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, loc, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}

	ttl := time.Duration(cfg.Redis.SlotCacheTTL) * time.Second
	cache := repository.NewFailoverCache(
		repository.NewRedisCache(redisClient, ttl),
		repository.NewMemoryCache(ttl),
		logging.Component(&logger, "cache"),
	)

	catalog := service.NewCatalogService(db, cfg.Catalog.EligibilityDefault, logging.Component(&logger, "catalog"))
	if err := catalog.Refresh(ctx); err != nil {
		logger.Error().Err(err).Msg("load catalog")
		return err
	}

	engine := availability.NewEngine(catalog, db, availability.Schedule(cfg.Business.WeeklyHours()), availability.Options{
		Location:       loc,
		MaxBookingDays: cfg.Business.MaxBookingDays,
		SkipElapsed:    cfg.Business.SkipElapsedSlots,
	}, logging.Component(&logger, "availability"))
	engine.SetCache(cache)

	eventBus := events.NewEventBus(logging.Component(&logger, "events"))
	bookings, err := service.NewBookingService(engine, db, eventBus, cfg.Business.PhonePattern, logging.Component(&logger, "booking"))
	if err != nil {
		return err
	}

	sender := initSMSSender(cfg, &logger)
	managers := initManagerNotifier(cfg, &logger)
	syncWorker := initSyncWorker(ctx, cfg, db, redisClient, sender, managers, &logger)
	worker.SubscribeBookingEvents(ctx, eventBus, syncWorker, logging.Component(&logger, "events"))
	go syncWorker.Start(ctx)

	if cfg.Reminders.Enabled {
		hour, minute, _ := cfg.Reminders.Clock()
		reminders := worker.NewReminderScheduler(
			db, sender, cfg.Business.Name, cfg.Business.DefaultCountryCode,
			hour, minute, loc, logging.Component(&logger, "reminders"),
		)
		go reminders.Start(ctx)
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup"))
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	server := api.NewServer(cfg.API, cfg.Business, api.Deps{
		Catalog:  catalog,
		Slots:    engine,
		Bookings: bookings,
		Reader:   db,
		Limiter:  cache,
		DB:       db,
	}, logging.Component(&logger, "http"))

	return serve(ctx, server, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	for _, dir := range []string{filepath.Dir(cfg.Database.Path), cfg.Exports.Path} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error().Err(err).Str("dir", dir).Msg("create directory")
			return err
		}
	}
	return nil
}

func loadCatalog(cfg *config.Config, logger *zerolog.Logger) (models.Catalog, error) {
	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		catalogPath = cfg.Catalog.Path
	}

	var catalog models.Catalog
	data, err := os.ReadFile(catalogPath)
	if err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("read catalog")
		return catalog, err
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("parse catalog")
		return catalog, err
	}
	if err := config.ValidateCatalog(catalog); err != nil {
		logger.Error().Err(err).Str("catalog_path", catalogPath).Msg("catalog validation failed")
		return catalog, err
	}
	return catalog, nil
}

// initDatabase opens the store and seeds the catalog when the services table is empty.
func initDatabase(ctx context.Context, cfg *config.Config, loc *time.Location, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	db.SetLocation(loc)

	count, err := db.CountServices(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if count > 0 {
		return db, nil
	}

	catalog, err := loadCatalog(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := db.SyncCatalog(ctx, catalog); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info().Int("services", len(catalog.Services)).Int("staff", len(catalog.Staff)).Msg("catalog seeded")
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initSMSSender(cfg *config.Config, logger *zerolog.Logger) domain.SMSSender {
	if cfg.SMS.WebhookURL == "" {
		logger.Warn().Msg("sms webhook not configured, messages will only be logged")
		return notify.NewLogSender(logging.Component(logger, "sms"))
	}
	return notify.NewWebhookSender(cfg.SMS.WebhookURL, cfg.SMS.Token, cfg.SMS.SenderName)
}

func initSyncWorker(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	sender domain.SMSSender,
	managers *notify.ManagerNotifier,
	logger *zerolog.Logger,
) *worker.SyncWorker {
	baseDelay, maxDelay := cfg.Worker.RetryDelays()
	pollInterval, _ := time.ParseDuration(cfg.Worker.PollInterval)
	retryPolicy := worker.RetryPolicy{
		MaxRetries:    cfg.Worker.MaxRetries,
		InitialDelay:  baseDelay,
		MaxDelay:      maxDelay,
		BackoffFactor: 2,
	}

	workerLogger := logging.Component(logger, "sync-worker")
	syncWorker := worker.NewSyncWorker(db, redisClient, retryPolicy, pollInterval, workerLogger)
	syncWorker.Register(models.TaskSMSConfirmation, worker.NewConfirmationHandler(
		sender, db, cfg.Business.Name, cfg.Business.DefaultCountryCode, workerLogger,
	))

	if sheetsService := initGoogleSheets(ctx, cfg, logger); sheetsService != nil {
		syncWorker.Register(models.TaskSheetsUpsert, worker.NewSheetsHandler(sheetsService, db))
	}
	if managers != nil {
		syncWorker.Register(models.TaskTelegramNotify, worker.NewManagerAlertHandler(managers, db))
	}
	return syncWorker
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		return nil
	}

	sheetsLogger := logging.Component(logger, "sheets")
	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID, sheetsLogger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		if email, emailErr := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile); emailErr == nil {
			logger.Warn().Err(err).Str("share_with", email).Msg("google sheets unreachable, share the spreadsheet with the service account")
		} else {
			logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets")
		}
		return nil
	}
	if err := sheetsService.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets header update failed")
	}

	go sheetsService.RunCacheRefresh(ctx, time.Duration(models.SheetsCacheTTL)*time.Second)

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func initManagerNotifier(cfg *config.Config, logger *zerolog.Logger) *notify.ManagerNotifier {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.Managers) == 0 {
		return nil
	}

	bot, err := notify.NewTelegramBot(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, managers will not be notified")
		return nil
	}
	logger.Info().Str("bot", bot.Self.UserName).Int("managers", len(cfg.Telegram.Managers)).Msg("telegram connected")
	return notify.NewManagerNotifier(bot, cfg.Telegram.Managers, cfg.Business.Currency, logging.Component(logger, "telegram"))
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(ctx context.Context, server *api.Server, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("business", cfg.Business.Name).Msg("booking API started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}
