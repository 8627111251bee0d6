package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/models"
)

// QueryFunc turns a (category, topic) pair into a search engine query.
// Usually backed by the LLM; the fallback query is used when nil or
// failing.
type QueryFunc func(ctx context.Context, category, topic string) (string, error)

// Source adapts the search client into an evidence source: it contributes
// one snippet per search result, carrying title, snippet text and link.
type Source struct {
	client  *Client
	query   QueryFunc
	results int
}

// NewSource creates a search evidence source. results bounds how many
// snippets one fetch contributes.
func NewSource(client *Client, query QueryFunc, results int) *Source {
	if results <= 0 {
		results = 10
	}
	return &Source{client: client, query: query, results: results}
}

// Kind implements pipeline.EvidenceSource.
func (s *Source) Kind() models.SourceKind { return models.SourceSearch }

// Applicable implements pipeline.EvidenceSource. Search serves every
// category except sports, which has its own feed.
func (s *Source) Applicable(category models.Category) bool {
	return !category.IsSports()
}

// Fetch implements pipeline.EvidenceSource.
func (s *Source) Fetch(ctx context.Context, category models.Category, topic models.Topic) ([]models.Snippet, error) {
	query := s.buildQuery(ctx, category.Name, topic.Name)

	results, err := s.client.Search(ctx, query, s.results)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	snippets := make([]models.Snippet, 0, len(results))
	for _, r := range results {
		if r.Snippet == "" {
			continue
		}
		snippets = append(snippets, models.Snippet{
			Source:    models.SourceSearch,
			Title:     r.Title,
			Text:      r.Snippet,
			Link:      r.Link,
			Published: r.Published,
			FetchedAt: now,
		})
	}

	log.Debug().
		Str("topic", topic.Name).
		Str("query", query).
		Int("snippets", len(snippets)).
		Msg("Search evidence fetched")

	return snippets, nil
}

func (s *Source) buildQuery(ctx context.Context, category, topic string) string {
	if s.query != nil {
		if q, err := s.query(ctx, category, topic); err == nil && q != "" {
			return q
		} else if err != nil {
			log.Warn().Err(err).Msg("Query generation failed, using fallback query")
		}
	}
	return fmt.Sprintf("%s %s news", strings.TrimSpace(topic), strings.ToLower(category))
}
