package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/ltnam/categorize/internal/classify"
	"github.com/ltnam/categorize/internal/core/config"
	"github.com/ltnam/categorize/internal/core/domain"
	"github.com/ltnam/categorize/internal/core/taxonomy"
	"github.com/ltnam/categorize/internal/health"
	"github.com/ltnam/categorize/internal/infra/anthropic"
	"github.com/ltnam/categorize/internal/infra/storage/postgres"
	"github.com/ltnam/categorize/internal/pipeline"
	"github.com/ltnam/categorize/internal/standardize"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	output := flag.String("output", "", "Final output file path (default: derived from input filename)")
	standardizeOnly := flag.Bool("standardize", false, "Standardize an already-labeled file instead of running the full pipeline")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return 1
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	categories := cfg.Categories
	if len(categories) == 0 {
		categories = taxonomy.Default()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Determine the input file
	inputPath := flag.Arg(0)
	if inputPath == "" {
		inputPath = findDefaultInput(cfg.Paths.RawDir)
		if inputPath == "" {
			slog.Error("No input file specified and no CSV files found", "dir", cfg.Paths.RawDir)
			return 1
		}
		if *standardizeOnly {
			// Standardize the interim file derived from the default input.
			base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
			inputPath = filepath.Join(cfg.Paths.InterimDir, base+"_categorized.csv")
		}
		slog.Info("Using default input file", "path", inputPath)
	}

	runID := uuid.NewString()
	log := slog.Default().With("run_id", runID)

	// Optional Postgres sink
	var sink pipeline.Sink
	if cfg.Database.URL != "" {
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			log.Error("Failed to connect to database", "error", err)
			return 1
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			log.Error("Failed to migrate database", "error", err)
			return 1
		}
		sink = postgres.NewContributionRepo(db)
		log.Info("Database sink enabled")
	}

	// Optional health/metrics server for long runs
	if cfg.Server.Port > 0 {
		srv := health.NewServer(cfg.Server.Port)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Health server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Stop(shutdownCtx)
		}()
		log.Info("Health server started", "port", cfg.Server.Port)
	}

	provider := anthropic.NewProvider(anthropic.Config{
		APIKey:    cfg.API.Key,
		Model:     cfg.API.Model,
		MaxTokens: cfg.API.MaxTokens,
		Timeout:   cfg.API.TimeoutDuration(),
	})
	defer provider.Close()

	limiter := classify.NewLimiter(cfg.API.BaseDelayDuration())
	classifier := classify.NewClient(provider, limiter, cfg.API.MaxRetries, categories)
	standardizer := standardize.New(categories, cfg.Processing.FuzzyMatchThreshold)

	p := pipeline.New(classifier, standardizer, sink, pipeline.Config{
		InterimDir:   cfg.Paths.InterimDir,
		ProcessedDir: cfg.Paths.ProcessedDir,
		SaveInterval: cfg.Processing.ProgressSaveInterval,
	}, runID)

	if *standardizeOnly {
		log.Info("Running in standardization mode", "input", inputPath)
		finalPath, err := p.StandardizeOnly(ctx, inputPath, *output)
		if err != nil {
			return reportError(err)
		}
		log.Info("Standardization complete", "final", finalPath)
		return 0
	}

	log.Info("Running full categorization pipeline", "input", inputPath)
	paths, err := p.Run(ctx, inputPath, *output)
	if err != nil {
		return reportError(err)
	}
	log.Info("Processing complete", "interim", paths.Interim, "final", paths.Final)
	return 0
}

// reportError distinguishes validation failures, which get a clear
// dedicated message, from runtime errors.
func reportError(err error) int {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(os.Stderr, "Validation error: %s\n", verr.Msg)
		return 1
	}
	slog.Error("Pipeline failed", "error", err)
	return 1
}

// findDefaultInput returns the first CSV file in dir, or "".
func findDefaultInput(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var csvs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			csvs = append(csvs, e.Name())
		}
	}
	if len(csvs) == 0 {
		return ""
	}
	sort.Strings(csvs)
	return filepath.Join(dir, csvs[0])
}
