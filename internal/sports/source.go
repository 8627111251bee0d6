package sports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/models"
)

const (
	// maxSportsPerTopic bounds how many matching sport keys we pull
	// odds for in a single fetch.
	maxSportsPerTopic = 3
	// maxFixturesPerSport bounds fixtures per sport key so a busy
	// league does not crowd out the rest of the bundle.
	maxFixturesPerSport = 10
	// feedPace throttles consecutive odds calls.
	feedPace = 200 * time.Millisecond
)

// Source adapts the odds feed to an evidence source for sports topics.
type Source struct {
	client *Client
}

// NewSource creates a sports evidence source backed by the given client.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

func (s *Source) Kind() models.SourceKind {
	return models.SourceSports
}

// Applicable reports whether this source serves the category. The odds
// feed only carries sports data.
func (s *Source) Applicable(category models.Category) bool {
	return category.IsSports()
}

// Fetch lists sport keys matching the topic and returns their upcoming
// fixtures as snippets. A topic with no matching sport yields an empty
// result, not an error.
func (s *Source) Fetch(ctx context.Context, category models.Category, topic models.Topic) ([]models.Snippet, error) {
	sports, err := s.client.ListSports(ctx)
	if err != nil {
		return nil, err
	}

	keys := matchTopic(sports, topic.Name)
	if len(keys) == 0 {
		log.Debug().Str("topic", topic.Name).Msg("No sport keys match topic")
		return nil, nil
	}
	if len(keys) > maxSportsPerTopic {
		keys = keys[:maxSportsPerTopic]
	}

	var snippets []models.Snippet
	for i, key := range keys {
		if i > 0 {
			select {
			case <-ctx.Done():
				return snippets, ctx.Err()
			case <-time.After(feedPace):
			}
		}

		events, err := s.client.ListOdds(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("sport", key).Msg("Failed to fetch odds, skipping sport")
			continue
		}
		if len(events) > maxFixturesPerSport {
			events = events[:maxFixturesPerSport]
		}

		for _, ev := range events {
			snippets = append(snippets, snippetFor(ev))
		}
	}

	log.Info().
		Str("topic", topic.Name).
		Int("fixtures", len(snippets)).
		Msg("Fetched sports fixtures")
	return snippets, nil
}

func snippetFor(ev Event) models.Snippet {
	fx := &models.Fixture{
		SportKey:       ev.SportKey,
		SportTitle:     ev.SportTitle,
		HomeTeam:       ev.HomeTeam,
		AwayTeam:       ev.AwayTeam,
		CommenceTime:   ev.CommenceTime,
		WinProbability: ev.ImpliedHomeWinProbability(),
	}

	var title, text string
	if fx.HasTeams() {
		title = fmt.Sprintf("%s vs %s", ev.HomeTeam, ev.AwayTeam)
		text = fmt.Sprintf("%s: %s hosts %s on %s",
			ev.SportTitle, ev.HomeTeam, ev.AwayTeam,
			ev.CommenceTime.Format("January 2, 2006"))
	} else {
		// Outright markets carry no team pairing.
		title = ev.SportTitle
		text = fmt.Sprintf("%s outright starting %s",
			ev.SportTitle, ev.CommenceTime.Format("January 2, 2006"))
	}

	return models.Snippet{
		Source:    models.SourceSports,
		Title:     title,
		Text:      text,
		Published: ev.CommenceTime.Format(time.RFC3339),
		Fixture:   fx,
		FetchedAt: time.Now().UTC(),
	}
}

// matchTopic returns active sport keys whose title, group, or key
// mentions the topic name (or vice versa).
func matchTopic(sports []Sport, topicName string) []string {
	needle := strings.ToLower(strings.TrimSpace(topicName))
	if needle == "" {
		return nil
	}

	var keys []string
	for _, sp := range sports {
		if !sp.Active {
			continue
		}
		if containsEither(sp.Title, needle) ||
			containsEither(sp.Group, needle) ||
			containsEither(sp.Key, needle) {
			keys = append(keys, sp.Key)
		}
	}
	return keys
}

func containsEither(field, needle string) bool {
	f := strings.ToLower(field)
	return strings.Contains(f, needle) || strings.Contains(needle, f)
}
