// Package synth turns scored evidence bundles into event drafts using
// an LLM.
package synth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/llm"
	"github.com/gamima/eventforge/internal/models"
	"github.com/gamima/eventforge/internal/pipeline"
)

// chatClient is the slice of the LLM client the synthesizer needs.
type chatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
	ChatJSON(ctx context.Context, req llm.ChatRequest, result interface{}) error
}

// Synthesizer generates event drafts from evidence bundles.
type Synthesizer struct {
	client    chatClient
	maxDrafts int
}

// NewSynthesizer creates a synthesizer. maxDrafts caps drafts per
// bundle; values below 1 fall back to 3.
func NewSynthesizer(client chatClient, maxDrafts int) *Synthesizer {
	if maxDrafts < 1 {
		maxDrafts = 3
	}
	return &Synthesizer{client: client, maxDrafts: maxDrafts}
}

var (
	_ pipeline.QuestionSynthesizer = (*Synthesizer)(nil)
	_ pipeline.FollowupSynthesizer = (*Synthesizer)(nil)
)

const synthesisSystemPrompt = `You are an editor for a prediction market. From the evidence provided, write forecastable questions about concrete future outcomes.

Rules for each question:
- It must resolve to exactly one of its options by a specific date.
- It must be answerable from public information at resolution time.
- BINARY questions have exactly the options "Yes" and "No".
- MULTI_OPTION questions list every plausible outcome, at least two.
- Never write questions about past events.

Respond with JSON: {"events": [{"question": "...", "kind": "BINARY" or "MULTI_OPTION", "options": [{"label": "...", "probability": 0.5}], "rules": "...", "description": "...", "end_date": "YYYY-MM-DD"}]}`

type rawDraft struct {
	Question    string `json:"question"`
	Kind        string `json:"kind"`
	Options     []struct {
		Label       string  `json:"label"`
		Probability float64 `json:"probability"`
	} `json:"options"`
	Rules       string `json:"rules"`
	Description string `json:"description"`
	EndDate     string `json:"end_date"`
}

type synthesisResult struct {
	Events []rawDraft `json:"events"`
}

// Synthesize produces up to maxDrafts validated-shape drafts for the
// bundle. Signals steer option probabilities: a win probability signal
// overrides binary Yes/No pricing, and absent signals leave the model's
// estimates (normalized) in place.
func (s *Synthesizer) Synthesize(ctx context.Context, bundle *models.EvidenceBundle, signals models.SignalSet) ([]*models.EventDraft, error) {
	prompt := buildPrompt(bundle, signals, s.maxDrafts)

	var result synthesisResult
	err := s.client.ChatJSON(ctx, llm.ChatRequest{
		SystemPrompt: synthesisSystemPrompt,
		UserPrompt:   prompt,
		Temperature:  0.4,
		MaxTokens:    2000,
		JSONMode:     true,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed for topic %s: %w", bundle.Topic.Name, err)
	}

	drafts := make([]*models.EventDraft, 0, s.maxDrafts)
	for _, raw := range result.Events {
		if len(drafts) >= s.maxDrafts {
			break
		}
		draft, err := s.buildDraft(ctx, raw, bundle, signals)
		if err != nil {
			log.Warn().Err(err).Str("question", raw.Question).Msg("Discarding malformed draft")
			continue
		}
		drafts = append(drafts, draft)
	}

	log.Info().
		Str("topic", bundle.Topic.Name).
		Int("drafts", len(drafts)).
		Msg("Synthesized event drafts")
	return drafts, nil
}

func (s *Synthesizer) buildDraft(ctx context.Context, raw rawDraft, bundle *models.EvidenceBundle, signals models.SignalSet) (*models.EventDraft, error) {
	question := strings.TrimSpace(raw.Question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	kind := models.EventKind(strings.ToUpper(strings.TrimSpace(raw.Kind)))
	switch kind {
	case models.KindBinary, models.KindMultiOption:
	default:
		return nil, fmt.Errorf("unknown event kind %q", raw.Kind)
	}

	options, err := shapeOptions(kind, raw, signals)
	if err != nil {
		return nil, err
	}

	rules := strings.TrimSpace(raw.Rules)
	if rules == "" {
		rules, err = s.generateRules(ctx, question, options)
		if err != nil {
			return nil, fmt.Errorf("failed to generate rules: %w", err)
		}
	}

	endDate := strings.TrimSpace(raw.EndDate)
	if endDate != "" {
		if _, err := time.Parse("2006-01-02", endDate); err != nil {
			endDate = ""
		}
	}

	return &models.EventDraft{
		Question:    question,
		Kind:        kind,
		Options:     options,
		Rules:       rules,
		Description: strings.TrimSpace(raw.Description),
		CategoryID:  bundle.Category.ID,
		TopicID:     bundle.Topic.ID,
		EndDate:     endDate,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// shapeOptions enforces the option shape for the kind and prices the
// options from the available signals.
func shapeOptions(kind models.EventKind, raw rawDraft, signals models.SignalSet) ([]models.OptionDraft, error) {
	if kind == models.KindBinary {
		p, ok := signals.WinProbability()
		if !ok {
			p = binaryYesProbability(raw)
		}
		return []models.OptionDraft{
			{Label: "Yes", Probability: p},
			{Label: "No", Probability: 1 - p},
		}, nil
	}

	if len(raw.Options) < 2 {
		return nil, fmt.Errorf("multi-option draft has %d options", len(raw.Options))
	}

	options := make([]models.OptionDraft, 0, len(raw.Options))
	seen := make(map[string]bool)
	var sum float64
	for _, o := range raw.Options {
		label := strings.TrimSpace(o.Label)
		if label == "" || seen[strings.ToLower(label)] {
			return nil, fmt.Errorf("blank or duplicate option label %q", o.Label)
		}
		seen[strings.ToLower(label)] = true
		p := o.Probability
		if p < 0 {
			p = 0
		}
		sum += p
		options = append(options, models.OptionDraft{Label: label, Probability: p})
	}

	if sum <= 0 {
		// No usable estimates; price the options uniformly.
		uniform := 1 / float64(len(options))
		for i := range options {
			options[i].Probability = uniform
		}
		return options, nil
	}

	for i := range options {
		options[i].Probability /= sum
	}
	return options, nil
}

// binaryYesProbability extracts the model's Yes estimate from the raw
// options, defaulting to an even split.
func binaryYesProbability(raw rawDraft) float64 {
	for _, o := range raw.Options {
		if strings.EqualFold(strings.TrimSpace(o.Label), "yes") &&
			o.Probability > 0 && o.Probability < 1 {
			return o.Probability
		}
	}
	return 0.5
}

const followupSystemPrompt = `You write follow-up questions for prediction markets. Given a multi-option question and one of its outcomes, write a single binary question of the form "Will ...?" asking whether that outcome happens. Respond with the question text only.`

// Followup derives a binary child draft for one option of a multi-option
// draft. The child prices Yes at the option's probability and inherits
// the parent's rules, dates and topic.
func (s *Synthesizer) Followup(ctx context.Context, parent *models.EventDraft, option models.OptionDraft) (*models.EventDraft, error) {
	resp, err := s.client.Chat(ctx, llm.ChatRequest{
		SystemPrompt: followupSystemPrompt,
		UserPrompt: fmt.Sprintf("Question: %s\nOutcome: %s",
			parent.Question, option.Label),
		Temperature: 0.3,
		MaxTokens:   100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate follow-up question: %w", err)
	}

	question := strings.Trim(strings.TrimSpace(resp.Content), `"'`)
	if question == "" {
		return nil, fmt.Errorf("model returned empty follow-up question")
	}

	p := option.Probability
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	return &models.EventDraft{
		Question: question,
		Kind:     models.KindBinary,
		Options: []models.OptionDraft{
			{Label: "Yes", Probability: p},
			{Label: "No", Probability: 1 - p},
		},
		Rules:       parent.Rules,
		Description: parent.Description,
		CategoryID:  parent.CategoryID,
		TopicID:     parent.TopicID,
		EndDate:     parent.EndDate,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

const rulesSystemPrompt = `You write resolution rules for prediction market questions. Rules state, in two or three sentences, exactly what source and criteria decide the outcome and when. Respond with the rules text only.`

func (s *Synthesizer) generateRules(ctx context.Context, question string, options []models.OptionDraft) (string, error) {
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = o.Label
	}

	resp, err := s.client.Chat(ctx, llm.ChatRequest{
		SystemPrompt: rulesSystemPrompt,
		UserPrompt: fmt.Sprintf("Question: %s\nOptions: %s",
			question, strings.Join(labels, ", ")),
		Temperature: 0.2,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}

	rules := strings.TrimSpace(resp.Content)
	if rules == "" {
		return "", fmt.Errorf("model returned empty rules")
	}
	return rules, nil
}

func buildPrompt(bundle *models.EvidenceBundle, signals models.SignalSet, maxDrafts int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\nTopic: %s\nToday: %s\n\n",
		bundle.Category.Name, bundle.Topic.Name,
		time.Now().UTC().Format("2006-01-02"))

	fmt.Fprintf(&b, "Overall sentiment of the evidence: %s (%.2f)\n",
		sentimentLabel(signals.Sentiment()), signals.Sentiment())
	if p, ok := signals.WinProbability(); ok {
		fmt.Fprintf(&b, "Bookmaker-implied home win probability: %.2f\n", p)
	}

	b.WriteString("\nEvidence:\n")
	for i, sn := range bundle.Snippets {
		fmt.Fprintf(&b, "%d. [%s] %s", i+1, sn.Source, sn.Title)
		if sn.Text != "" {
			fmt.Fprintf(&b, ": %s", truncate(sn.Text, 400))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nWrite up to %d questions grounded in this evidence.", maxDrafts)
	return b.String()
}

func sentimentLabel(v float64) string {
	switch {
	case v >= 0.05:
		return "positive"
	case v <= -0.05:
		return "negative"
	default:
		return "neutral"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
