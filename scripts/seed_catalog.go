package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		catalogPath = flag.String("catalog", "configs/catalog.yaml", "path to catalog.yaml")
		dbPath      = flag.String("db", "./data/salon.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*catalogPath)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var catalog models.Catalog
	if err = yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	if len(catalog.Services) == 0 {
		return fmt.Errorf("no services in yaml")
	}
	if err = config.ValidateCatalog(catalog); err != nil {
		return err
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	before, err := db.CountServices(ctx)
	if err != nil {
		return fmt.Errorf("count services: %w", err)
	}
	if err = db.SyncCatalog(ctx, catalog); err != nil {
		return err
	}
	after, err := db.CountServices(ctx)
	if err != nil {
		return fmt.Errorf("count services: %w", err)
	}

	logger.Info().
		Int("created", after-before).
		Int("updated", len(catalog.Services)-(after-before)).
		Int("staff", len(catalog.Staff)).
		Msg("catalog seed complete")
	return nil
}
