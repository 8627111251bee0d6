// Package sports provides a client for the-odds-api sports data feed.
package sports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/pipeline"
)

const baseURL = "https://api.the-odds-api.com/v4"

// Client calls the-odds-api.
type Client struct {
	client *resty.Client
	apiKey string
}

// NewClient creates a new sports data client.
func NewClient(apiKey string) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second),
		apiKey: apiKey,
	}
}

// Sport is one sport category offered by the feed.
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

// Event is one upcoming fixture, with bookmaker head-to-head prices when
// the odds endpoint was used.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers,omitempty"`
}

// Bookmaker is one book's markets for an event.
type Bookmaker struct {
	Key     string   `json:"key"`
	Markets []Market `json:"markets"`
}

// Market is one odds market, usually h2h.
type Market struct {
	Key      string    `json:"key"`
	Outcomes []Outcome `json:"outcomes"`
}

// Outcome is one priced outcome within a market. Price is decimal odds.
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ListSports returns all sport categories.
func (c *Client) ListSports(ctx context.Context) ([]Sport, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("apiKey", c.apiKey).
		Get("/sports/")
	if err != nil {
		return nil, pipeline.Transient(fmt.Errorf("failed to fetch sports list: %w", err))
	}
	if resp.StatusCode() != 200 {
		err := fmt.Errorf("sports API returned %d: %s", resp.StatusCode(), resp.String())
		if pipeline.TransientStatus(resp.StatusCode()) {
			return nil, pipeline.Transient(err)
		}
		return nil, err
	}

	var sports []Sport
	if err := json.Unmarshal(resp.Body(), &sports); err != nil {
		return nil, fmt.Errorf("failed to parse sports list: %w", err)
	}

	log.Debug().Int("sports", len(sports)).Msg("Fetched sports list")
	return sports, nil
}

// ListOdds returns upcoming fixtures for a sport with US head-to-head
// prices attached.
func (c *Client) ListOdds(ctx context.Context, sportKey string) ([]Event, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apiKey":  c.apiKey,
			"regions": "us",
			"markets": "h2h",
		}).
		Get(fmt.Sprintf("/sports/%s/odds", sportKey))
	if err != nil {
		return nil, pipeline.Transient(fmt.Errorf("failed to fetch odds for %s: %w", sportKey, err))
	}
	if resp.StatusCode() != 200 {
		err := fmt.Errorf("odds API returned %d for %s: %s", resp.StatusCode(), sportKey, resp.String())
		if pipeline.TransientStatus(resp.StatusCode()) {
			return nil, pipeline.Transient(err)
		}
		return nil, err
	}

	var events []Event
	if err := json.Unmarshal(resp.Body(), &events); err != nil {
		return nil, fmt.Errorf("failed to parse odds for %s: %w", sportKey, err)
	}

	return events, nil
}

// ImpliedHomeWinProbability derives the home team's win probability from
// the first bookmaker quoting a head-to-head market, normalizing away the
// bookmaker margin. Returns 0 when no usable prices exist.
func (e Event) ImpliedHomeWinProbability() float64 {
	for _, bm := range e.Bookmakers {
		for _, m := range bm.Markets {
			if m.Key != "h2h" {
				continue
			}
			var home, total float64
			for _, o := range m.Outcomes {
				if o.Price <= 1 {
					continue
				}
				inv := 1 / o.Price
				total += inv
				if o.Name == e.HomeTeam {
					home = inv
				}
			}
			if home > 0 && total > 0 {
				return home / total
			}
		}
	}
	return 0
}
