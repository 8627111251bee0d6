package synth

import (
	"context"
	"fmt"
	"strings"

	"github.com/gamima/eventforge/internal/llm"
)

const querySystemPrompt = `You craft web search queries for a news research pipeline. Given a category and topic, respond with one short search query surfacing the latest developments. Respond with the query text only, no quotes.`

// QueryGenerator asks the model for a search query tuned to a topic.
// It satisfies the query function signature used by the search and
// scrape sources.
type QueryGenerator struct {
	client chatClient
}

// NewQueryGenerator creates a query generator.
func NewQueryGenerator(client chatClient) *QueryGenerator {
	return &QueryGenerator{client: client}
}

// Generate returns a search query for the topic. Errors bubble up so
// callers can fall back to a static query.
func (g *QueryGenerator) Generate(ctx context.Context, category, topic string) (string, error) {
	resp, err := g.client.Chat(ctx, llm.ChatRequest{
		SystemPrompt: querySystemPrompt,
		UserPrompt:   fmt.Sprintf("Category: %s\nTopic: %s", category, topic),
		Temperature:  0.3,
		MaxTokens:    50,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate search query: %w", err)
	}

	query := strings.Trim(strings.TrimSpace(resp.Content), `"'`)
	if query == "" {
		return "", fmt.Errorf("model returned empty query")
	}
	return query, nil
}
