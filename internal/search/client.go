// Package search provides a Google Custom Search client used for web and
// image evidence.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/pipeline"
)

const apiURL = "https://www.googleapis.com/customsearch/v1"

// Client calls the Google Custom Search API.
type Client struct {
	client *resty.Client
	apiKey string
	cseID  string

	// Per-run image search quota guard. The first 429 disables image
	// search for the rest of the run; maxImageSearches caps total calls.
	imageMu          sync.Mutex
	imageDisabled    bool
	imageSearches    int
	maxImageSearches int
}

// NewClient creates a new search client.
func NewClient(apiKey, cseID string, maxImageSearches int) *Client {
	if maxImageSearches <= 0 {
		maxImageSearches = 200
	}
	return &Client{
		client: resty.New().
			SetTimeout(30 * time.Second),
		apiKey:           apiKey,
		cseID:            cseID,
		maxImageSearches: maxImageSearches,
	}
}

// Result is a single web search result.
type Result struct {
	Title     string
	Link      string
	Snippet   string
	ImageURL  string
	Published string
}

type apiResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		DisplayLink string `json:"displayLink"`
		Snippet     string `json:"snippet"`
		Pagemap     struct {
			Metatags []map[string]string `json:"metatags"`
		} `json:"pagemap"`
	} `json:"items"`
}

// Search performs a web search and returns up to num results.
func (c *Client) Search(ctx context.Context, query string, num int) ([]Result, error) {
	if num <= 0 || num > 10 {
		num = 10
	}

	log.Debug().Str("query", query).Int("num", num).Msg("Google search")

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key": c.apiKey,
			"cx":  c.cseID,
			"q":   query,
			"num": fmt.Sprintf("%d", num),
		}).
		Get(apiURL)
	if err != nil {
		return nil, pipeline.Transient(fmt.Errorf("google search failed: %w", err))
	}
	if resp.StatusCode() != 200 {
		err := fmt.Errorf("google search returned %d: %s", resp.StatusCode(), resp.String())
		if pipeline.TransientStatus(resp.StatusCode()) {
			return nil, pipeline.Transient(err)
		}
		return nil, err
	}

	var parsed apiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		r := Result{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		}
		if len(item.Pagemap.Metatags) > 0 {
			meta := item.Pagemap.Metatags[0]
			r.ImageURL = meta["og:image"]
			r.Published = meta["article:published_time"]
		}
		results = append(results, r)
	}

	log.Debug().Int("results", len(results)).Msg("Google search complete")
	return results, nil
}

// SearchImage returns the first downloadable image URL for a query, or an
// empty string when the per-run quota guard is engaged. Instagram links
// are skipped because they refuse hotlinking.
func (c *Client) SearchImage(ctx context.Context, query string) (string, error) {
	c.imageMu.Lock()
	if c.imageDisabled {
		c.imageMu.Unlock()
		log.Debug().Msg("Image search disabled for this run, skipping")
		return "", nil
	}
	if c.imageSearches >= c.maxImageSearches {
		c.imageMu.Unlock()
		log.Warn().
			Str("query", query).
			Int("cap", c.maxImageSearches).
			Msg("Per-run image search cap reached, skipping")
		return "", nil
	}
	c.imageSearches++
	c.imageMu.Unlock()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":        c.apiKey,
			"cx":         c.cseID,
			"q":          query,
			"searchType": "image",
			"num":        "10",
		}).
		Get(apiURL)
	if err != nil {
		return "", pipeline.Transient(fmt.Errorf("image search failed: %w", err))
	}
	if resp.StatusCode() == 429 {
		c.imageMu.Lock()
		c.imageDisabled = true
		c.imageMu.Unlock()
		log.Error().Msg("Image search quota hit (429), disabling for the rest of the run")
		return "", nil
	}
	if resp.StatusCode() != 200 {
		err := fmt.Errorf("image search returned %d: %s", resp.StatusCode(), resp.String())
		if pipeline.TransientStatus(resp.StatusCode()) {
			return "", pipeline.Transient(err)
		}
		return "", err
	}

	var parsed apiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse image search response: %w", err)
	}

	for _, item := range parsed.Items {
		link := item.Link
		if link == "" || strings.Contains(strings.ToLower(link), "instagram") {
			continue
		}
		if c.downloadable(ctx, link) {
			log.Debug().Str("link", link).Msg("Valid image URL found")
			return link, nil
		}
	}

	return "", fmt.Errorf("no downloadable image found for %q", query)
}

// downloadable checks an image URL with a HEAD request.
func (c *Client) downloadable(ctx context.Context, link string) bool {
	resp, err := c.client.R().SetContext(ctx).Head(link)
	if err != nil {
		return false
	}
	return resp.StatusCode() == 200
}
