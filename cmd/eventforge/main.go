// EventForge generates prediction market events from live evidence.
// One invocation runs the full pipeline across every category and
// topic, then prints a run report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/config"
	"github.com/gamima/eventforge/internal/llm"
	"github.com/gamima/eventforge/internal/media"
	"github.com/gamima/eventforge/internal/pipeline"
	"github.com/gamima/eventforge/internal/scraper"
	"github.com/gamima/eventforge/internal/search"
	"github.com/gamima/eventforge/internal/sentiment"
	"github.com/gamima/eventforge/internal/sports"
	"github.com/gamima/eventforge/internal/storage"
	"github.com/gamima/eventforge/internal/synth"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("EventForge - Starting event generation run")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Cancel the run on SIGINT/SIGTERM so no partial writes happen
	// after shutdown begins.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := storage.NewStore(ctx, cfg.MongoURI, cfg.DatabaseName, cfg.EventCollection)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer store.Close(context.Background())

	// Initialize LLM client
	llmClient := llm.NewClient(llm.Config{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
	})
	log.Info().Str("model", cfg.OpenAIModel).Msg("LLM client initialized")

	synthesizer := synth.NewSynthesizer(llmClient, cfg.MaxDraftsPerResult)
	queryGen := synth.NewQueryGenerator(llmClient)

	// Assemble evidence sources
	var sources []pipeline.EvidenceSource
	var searchClient *search.Client
	if cfg.GoogleAPIKey != "" && cfg.GoogleCSEID != "" {
		searchClient = search.NewClient(cfg.GoogleAPIKey, cfg.GoogleCSEID, cfg.MaxImageSearches)
		sources = append(sources,
			search.NewSource(searchClient, queryGen.Generate, cfg.SearchResults),
			scraper.NewSource(scraper.New(0), searchClient, queryGen.Generate, 2),
		)
		log.Info().Msg("Search and scrape sources initialized")
	}
	if cfg.OddsAPIKey != "" {
		sources = append(sources, sports.NewSource(sports.NewClient(cfg.OddsAPIKey)))
		log.Info().Msg("Sports source initialized")
	}
	if len(sources) == 0 {
		log.Fatal().Msg("No evidence sources configured")
	}

	// Signal scorers
	scorers := []pipeline.SignalScorer{
		sentiment.NewAnalyzer(),
		sports.NewEstimator(),
	}

	// Media resolution is optional
	var resolver pipeline.MediaResolver
	if searchClient != nil && cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		r, err := media.NewResolver(ctx, searchClient, media.Config{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.AWSBucketName,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize media resolver")
		}
		resolver = r
		log.Info().Str("bucket", cfg.AWSBucketName).Msg("Media resolver initialized")
	}

	orch := pipeline.NewOrchestrator(store, store, synthesizer, resolver, sources, scorers,
		pipeline.OrchestratorConfig{
			Retry: pipeline.RetryPolicy{
				MaxAttempts: cfg.RetryCount,
				Delay:       cfg.RetryDelay,
			},
			Concurrency:    cfg.Concurrency,
			AdapterTimeout: cfg.AdapterTimeout,
		})

	report, err := orch.RunAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Pipeline run failed")
	}

	// Topic-cycle failures are reported, not fatal; only failing to
	// start the run exits non-zero.
	printReport(report)
}

func printReport(report *pipeline.RunReport) {
	log.Info().
		Int("succeeded", report.Succeeded()).
		Int("skipped", report.Skipped()).
		Int("failed", report.Failed()).
		Int("events_persisted", report.Persisted()).
		Msg("Run complete")

	for _, r := range report.Results() {
		line := fmt.Sprintf("%-12s %-24s %s", r.Category, r.Topic, r.Outcome)
		switch {
		case r.Err != "":
			log.Warn().Str("error", r.Err).Msg(line)
		case r.Persisted > 0:
			log.Info().Int("persisted", r.Persisted).Msg(line)
		default:
			log.Info().Msg(line)
		}
	}
}
