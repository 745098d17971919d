// Command autofit refits the Steinmetz coefficients of every material in the
// catalog and writes the accepted ones back.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/corefit/internal/bootstrap"
	"github.com/RMahshie/corefit/internal/config"
	"github.com/RMahshie/corefit/internal/processing"
)

func main() {
	reportPath := flag.String("report", "", "write the run report as JSON to this file")
	verbose := flag.Bool("v", false, "log every partition tried")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := bootstrap.OpenCatalog(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open material catalog")
	}
	defer catalog.Close()

	orchestrator, err := bootstrap.NewOrchestrator(cfg.Fit)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fit configuration")
	}

	report, err := processing.NewFitService(catalog.Repository, orchestrator).ProcessCatalog(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Catalog refit failed")
	}

	if catalog.Store != nil && cfg.Materials.OutputPath != "" && report.Committed > 0 {
		url, err := catalog.Store.GenerateDownloadURL(ctx, cfg.Materials.OutputPath)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to sign catalog download URL")
		} else {
			log.Info().Str("url", url).Msg("Refitted catalog available")
		}
	}

	if *reportPath != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to encode report")
		}
		if err := os.WriteFile(*reportPath, data, 0o644); err != nil {
			log.Fatal().Err(err).Msg("Failed to write report")
		}
	}
}
