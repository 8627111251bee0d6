// seed-topics seeds the default categories and optionally attaches
// topics to one of them.
//
// Usage:
//
//	seed-topics                              # seed default categories
//	seed-topics -category sports -topics "NFL,NBA,Soccer"
package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/config"
	"github.com/gamima/eventforge/internal/models"
	"github.com/gamima/eventforge/internal/storage"
)

func main() {
	categorySlug := flag.String("category", "", "category slug to attach topics to")
	topicList := flag.String("topics", "", "comma-separated topic names")
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

	created, err := store.SeedCategories(ctx, models.DefaultCategories)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed categories")
	}
	log.Info().Int("created", created).Msg("Categories seeded")

	if *categorySlug == "" || *topicList == "" {
		return
	}

	categories, err := store.ListCategories(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list categories")
	}

	var category *models.Category
	for i := range categories {
		if categories[i].Slug == *categorySlug {
			category = &categories[i]
			break
		}
	}
	if category == nil {
		log.Fatal().Str("slug", *categorySlug).Msg("Unknown category slug")
	}

	added := 0
	for _, name := range strings.Split(*topicList, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := store.AddTopic(ctx, category.ID, name); err != nil {
			log.Fatal().Err(err).Str("topic", name).Msg("Failed to add topic")
		}
		added++
	}

	log.Info().
		Str("category", category.Name).
		Int("topics", added).
		Msg("Topics seeded")
}
