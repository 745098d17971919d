// Package bootstrap builds the fitter and the material catalog from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/corefit/internal/config"
	"github.com/RMahshie/corefit/internal/repository"
	"github.com/RMahshie/corefit/internal/repository/ndjson"
	"github.com/RMahshie/corefit/internal/repository/postgres"
	"github.com/RMahshie/corefit/internal/steinmetz"
	"github.com/RMahshie/corefit/internal/storage"
)

// FitOptions converts fit settings into orchestrator options
func FitOptions(cfg config.FitConfig) (steinmetz.Options, error) {
	mode, err := steinmetz.ParseTemperatureMode(cfg.TemperatureMode)
	if err != nil {
		return steinmetz.Options{}, err
	}

	opts := steinmetz.DefaultOptions()
	opts.Retry = steinmetz.RetryPolicy{
		InitialWindow: cfg.InitialWindow,
		Step:          cfg.WindowStep,
		MaxAttempts:   cfg.MaxAttempts,
	}
	opts.MaxIterations = cfg.MaxIterations
	opts.AcceptanceThreshold = cfg.AcceptanceThreshold
	opts.TemperatureMode = mode
	opts.ManufacturerOnly = cfg.ManufacturerOnly
	return opts, nil
}

// NewOrchestrator builds the coefficient fitter from configuration
func NewOrchestrator(cfg config.FitConfig) (*steinmetz.Orchestrator, error) {
	opts, err := FitOptions(cfg)
	if err != nil {
		return nil, err
	}
	return steinmetz.New(opts), nil
}

// Catalog is an open material repository and the resources behind it
type Catalog struct {
	Repository repository.MaterialRepository
	Store      storage.S3Service
	db         *sql.DB
}

// Close releases the database connection, if any
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// OpenCatalog opens the material repository selected by MATERIALS_SOURCE
func OpenCatalog(ctx context.Context, cfg *config.Config) (*Catalog, error) {
	switch cfg.Materials.Source {
	case config.SourcePostgres:
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Msg("Using PostgreSQL material catalog")
		return &Catalog{Repository: postgres.NewPostgresMaterialRepository(db), db: db}, nil

	case config.SourceS3:
		store, err := storage.NewS3Service(ctx, storage.S3Config{
			Bucket:    cfg.AWS.S3Bucket,
			Endpoint:  cfg.AWS.S3Endpoint,
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKeyID,
			SecretKey: cfg.AWS.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		source := ndjson.ObjectBlob{Store: store, Key: cfg.Materials.Path}
		var sink ndjson.Blob
		if cfg.Materials.OutputPath != "" {
			sink = ndjson.ObjectBlob{Store: store, Key: cfg.Materials.OutputPath}
		}
		log.Info().Str("bucket", cfg.AWS.S3Bucket).Str("key", cfg.Materials.Path).Msg("Using S3 material catalog")
		return &Catalog{Repository: ndjson.NewMaterialRepository(source, sink), Store: store}, nil

	case config.SourceFile:
		source := ndjson.FileBlob{Path: cfg.Materials.Path}
		var sink ndjson.Blob
		if cfg.Materials.OutputPath != "" {
			sink = ndjson.FileBlob{Path: cfg.Materials.OutputPath}
		}
		log.Info().Str("path", cfg.Materials.Path).Msg("Using file material catalog")
		return &Catalog{Repository: ndjson.NewMaterialRepository(source, sink)}, nil

	default:
		return nil, fmt.Errorf("unknown materials source %q", cfg.Materials.Source)
	}
}
