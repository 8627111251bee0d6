package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/models"
	"github.com/gamima/eventforge/internal/search"
)

// Source adapts the scraper into an evidence source: it searches for the
// topic, then scrapes the top result pages into full-text snippets.
type Source struct {
	scraper  *Scraper
	searcher *search.Client
	query    search.QueryFunc
	maxPages int
}

// NewSource creates a scrape evidence source. maxPages bounds how many
// result pages one fetch scrapes.
func NewSource(scraper *Scraper, searcher *search.Client, query search.QueryFunc, maxPages int) *Source {
	if maxPages <= 0 {
		maxPages = 2
	}
	return &Source{scraper: scraper, searcher: searcher, query: query, maxPages: maxPages}
}

// Kind implements pipeline.EvidenceSource.
func (s *Source) Kind() models.SourceKind { return models.SourceScrape }

// Applicable implements pipeline.EvidenceSource.
func (s *Source) Applicable(category models.Category) bool {
	return !category.IsSports()
}

// Fetch implements pipeline.EvidenceSource. Individual page failures are
// tolerated; the fetch fails only when every candidate page fails.
func (s *Source) Fetch(ctx context.Context, category models.Category, topic models.Topic) ([]models.Snippet, error) {
	query := topic.Name + " " + category.Name + " news"
	if s.query != nil {
		if q, err := s.query(ctx, category.Name, topic.Name); err == nil && q != "" {
			query = q
		}
	}

	results, err := s.searcher.Search(ctx, query, 10)
	if err != nil {
		return nil, err
	}

	var snippets []models.Snippet
	var lastErr error
	now := time.Now()

	for _, r := range results {
		if len(snippets) >= s.maxPages {
			break
		}

		text, err := s.scraper.Load(ctx, r.Link)
		if err != nil {
			if !errors.Is(err, ErrSkippedURL) {
				log.Debug().Err(err).Str("url", r.Link).Msg("Page scrape failed")
				lastErr = err
			}
			continue
		}

		snippets = append(snippets, models.Snippet{
			Source:    models.SourceScrape,
			Title:     r.Title,
			Text:      text,
			Link:      r.Link,
			Published: r.Published,
			FetchedAt: now,
		})
	}

	if len(snippets) == 0 && lastErr != nil {
		return nil, lastErr
	}

	log.Debug().
		Str("topic", topic.Name).
		Int("pages", len(snippets)).
		Msg("Scrape evidence fetched")

	return snippets, nil
}
