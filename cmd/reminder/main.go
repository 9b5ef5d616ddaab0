package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/logging"
	"salonbook/internal/models"
	"salonbook/internal/notify"
	"salonbook/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	var (
		configPath = flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to config.yaml")
		dbPath     = flag.String("db", "", "override database path")
		once       = flag.Bool("once", false, "send reminders for tomorrow's appointments and exit")
		scheduler  = flag.Bool("scheduler", false, "send reminders every day at reminders.time")
	)
	flag.BoolVar(once, "remind", false, "alias for -once")
	flag.Parse()

	if *once == *scheduler {
		flag.Usage()
		return errors.New("exactly one of -once or -scheduler is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := baseLogger.With().Str("component", "reminder-main").Logger()

	loc, err := cfg.Business.Location()
	if err != nil {
		return err
	}
	hour, minute, err := cfg.Reminders.Clock()
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logging.Component(&logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()
	db.SetLocation(loc)

	var sender domain.SMSSender
	if cfg.SMS.WebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.SMS.WebhookURL, cfg.SMS.Token, cfg.SMS.SenderName)
	} else {
		logger.Warn().Msg("sms webhook not configured, reminders will only be logged")
		sender = notify.NewLogSender(logging.Component(&logger, "sms"))
	}

	reminders := worker.NewReminderScheduler(
		db, sender, cfg.Business.Name, cfg.Business.DefaultCountryCode,
		hour, minute, loc, logging.Component(&logger, "reminders"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		res, err := reminders.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Reminders for %s: %d sent, %d failed, %d total\n", res.Date.Format(models.DateLayout), res.Sent, res.Failed, res.Total)
		return nil
	}

	logger.Info().Str("time", cfg.Reminders.Time).Msg("reminder scheduler started")
	reminders.Start(ctx)
	logger.Info().Msg("reminder scheduler stopped")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
