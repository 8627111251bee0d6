// dedupe-events removes stored events that share a question text,
// keeping the oldest of each group. The unique fingerprint index only
// guards one topic; this also catches the same question filed under
// different topics.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/config"
	"github.com/gamima/eventforge/internal/storage"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report counts without deleting")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	store, err := storage.NewStore(ctx, cfg.MongoURI, cfg.DatabaseName, cfg.EventCollection)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer store.Close(ctx)

	before, err := store.CountEvents(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count events")
	}
	log.Info().Int64("events", before).Msg("Counted stored events")

	if *dryRun {
		log.Info().Msg("Dry run, nothing deleted")
		return
	}

	removed, err := store.RemoveDuplicateQuestions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to remove duplicates")
	}

	after, err := store.CountEvents(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count events")
	}

	log.Info().
		Int64("removed", removed).
		Int64("remaining", after).
		Msg("Deduplication complete")
}
