package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gamima/eventforge/internal/models"
)

// OrchestratorConfig holds the tunables of a pipeline run.
type OrchestratorConfig struct {
	// Retry policy applied uniformly around every adapter call.
	Retry RetryPolicy

	// Concurrency bounds the number of topic-cycles in flight.
	Concurrency int

	// AdapterTimeout caps each individual adapter call.
	AdapterTimeout time.Duration
}

// DefaultOrchestratorConfig returns the stock configuration.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Retry:          DefaultRetryPolicy(),
		Concurrency:    4,
		AdapterTimeout: 30 * time.Second,
	}
}

// Orchestrator drives one pipeline run over all (category, topic) pairs.
// Topic-cycles are independent: one failing cycle never aborts or
// corrupts another.
type Orchestrator struct {
	catalog Catalog
	sources []EvidenceSource
	scorers []SignalScorer
	synth   QuestionSynthesizer
	media   MediaResolver
	repo    EventRepository
	config  OrchestratorConfig
}

// NewOrchestrator wires the pipeline collaborators together. media may be
// nil, in which case drafts are persisted without an image reference.
func NewOrchestrator(
	catalog Catalog,
	repo EventRepository,
	synth QuestionSynthesizer,
	media MediaResolver,
	sources []EvidenceSource,
	scorers []SignalScorer,
	config OrchestratorConfig,
) *Orchestrator {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.AdapterTimeout <= 0 {
		config.AdapterTimeout = 30 * time.Second
	}
	return &Orchestrator{
		catalog: catalog,
		sources: sources,
		scorers: scorers,
		synth:   synth,
		media:   media,
		repo:    repo,
		config:  config,
	}
}

// RunAll lists all categories from the catalog and runs over them.
func (o *Orchestrator) RunAll(ctx context.Context) (*RunReport, error) {
	categories, err := o.catalog.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return o.Run(ctx, categories)
}

// Run executes one topic-cycle per topic across the given categories,
// bounded by the configured concurrency. The returned report aggregates
// per-topic outcomes; individual cycle failures are never fatal.
func (o *Orchestrator) Run(ctx context.Context, categories []models.Category) (*RunReport, error) {
	report := NewRunReport()

	log.Info().
		Int("categories", len(categories)).
		Int("concurrency", o.config.Concurrency).
		Msg("Starting pipeline run")

	sem := make(chan struct{}, o.config.Concurrency)
	var wg sync.WaitGroup

	for _, category := range categories {
		topics, err := o.catalog.ListTopics(ctx, category.ID)
		if err != nil {
			log.Error().Err(err).Str("category", category.Name).Msg("Failed to list topics")
			continue
		}
		if len(topics) == 0 {
			log.Warn().Str("category", category.Name).Msg("No topics for category")
			continue
		}

		for _, topic := range topics {
			wg.Add(1)
			go func(category models.Category, topic models.Topic) {
				defer wg.Done()

				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					report.record(TopicResult{
						Category: category.Name,
						Topic:    topic.Name,
						Outcome:  OutcomeFailed,
						Err:      ctx.Err().Error(),
					})
					return
				}

				report.record(o.runCycle(ctx, category, topic))
			}(category, topic)
		}
	}

	wg.Wait()
	report.FinishedAt = time.Now()

	log.Info().
		Int("succeeded", report.Succeeded()).
		Int("skipped", report.Skipped()).
		Int("failed", report.Failed()).
		Int("persisted", report.Persisted()).
		Msg("Pipeline run complete")

	return report, nil
}

// runCycle executes the strict per-topic step order: evidence, score,
// synthesize, resolve media, validate, persist.
func (o *Orchestrator) runCycle(ctx context.Context, category models.Category, topic models.Topic) TopicResult {
	result := TopicResult{Category: category.Name, Topic: topic.Name}

	log.Info().
		Str("category", category.Name).
		Str("topic", topic.Name).
		Msg("Starting topic-cycle")

	// Step 1: gather evidence from all applicable sources.
	bundle := o.gatherEvidence(ctx, category, topic)
	if err := ctx.Err(); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err.Error()
		return result
	}
	if bundle.Empty() {
		log.Warn().Str("topic", topic.Name).Msg("No evidence gathered, skipping cycle")
		result.Outcome = OutcomeSkippedEmpty
		result.Err = ErrEmptyEvidence.Error()
		return result
	}

	// Step 2: score signals over the bundle.
	signals := o.scoreSignals(ctx, bundle)

	// Step 3: synthesize candidate drafts.
	var drafts []*models.EventDraft
	err := o.config.Retry.Do(ctx, "synthesize", func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
		defer cancel()
		var serr error
		drafts, serr = o.synth.Synthesize(cctx, bundle, signals)
		return serr
	})
	if err != nil {
		log.Error().Err(err).Str("topic", topic.Name).Msg("Synthesis failed")
		result.Outcome = OutcomeFailed
		result.Err = err.Error()
		return result
	}
	if len(drafts) == 0 {
		log.Warn().Str("topic", topic.Name).Msg("Synthesizer produced no usable drafts")
		result.Outcome = OutcomeFailed
		result.Err = "synthesizer produced no drafts"
		return result
	}

	for _, draft := range drafts {
		// Cancellation before persistence guarantees no partial write.
		if err := ctx.Err(); err != nil {
			result.Outcome = OutcomeFailed
			result.Err = err.Error()
			return result
		}

		// Step 4: resolve media, best effort.
		o.resolveMedia(ctx, draft)

		// Step 5: validate. Invalid drafts are dropped; the rest of the
		// batch is unaffected.
		if err := ValidateDraft(draft); err != nil {
			log.Warn().
				Err(err).
				Str("topic", topic.Name).
				Str("question", draft.Question).
				Msg("Draft failed validation, dropping")
			continue
		}

		// Step 6: persist keyed by fingerprint.
		record := models.NewRecord(draft)
		err := o.config.Retry.Do(ctx, "persist", func(ctx context.Context) error {
			cctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
			defer cancel()
			_, perr := o.repo.Upsert(cctx, record)
			return perr
		})
		if err != nil {
			log.Error().Err(err).Str("question", draft.Question).Msg("Failed to persist event")
			continue
		}

		result.Persisted++
		log.Info().
			Str("question", draft.Question).
			Str("fingerprint", record.Fingerprint).
			Msg("Event persisted")

		// Step 7: multi-option events spawn one binary follow-up per
		// option, linked back to the parent.
		if draft.Kind == models.KindMultiOption {
			result.Persisted += o.persistFollowups(ctx, draft, record.Fingerprint)
		}
	}

	result.Outcome = OutcomeSucceeded
	return result
}

// persistFollowups derives one binary child event per option of a
// persisted multi-option draft and upserts each, returning how many
// were stored. Best effort: a failing child never affects the parent
// or its sibling options.
func (o *Orchestrator) persistFollowups(ctx context.Context, parent *models.EventDraft, parentFingerprint string) int {
	fs, ok := o.synth.(FollowupSynthesizer)
	if !ok {
		return 0
	}

	persisted := 0
	for _, option := range parent.Options {
		if ctx.Err() != nil {
			return persisted
		}

		var child *models.EventDraft
		err := o.config.Retry.Do(ctx, "followup", func(ctx context.Context) error {
			cctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
			defer cancel()
			var ferr error
			child, ferr = fs.Followup(cctx, parent, option)
			return ferr
		})
		if err != nil {
			log.Warn().Err(err).Str("option", option.Label).Msg("Follow-up synthesis failed, skipping option")
			continue
		}

		child.ParentFingerprint = parentFingerprint
		if err := ValidateDraft(child); err != nil {
			log.Warn().Err(err).Str("question", child.Question).Msg("Follow-up failed validation, dropping")
			continue
		}

		record := models.NewRecord(child)
		err = o.config.Retry.Do(ctx, "persist", func(ctx context.Context) error {
			cctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
			defer cancel()
			_, perr := o.repo.Upsert(cctx, record)
			return perr
		})
		if err != nil {
			log.Error().Err(err).Str("question", child.Question).Msg("Failed to persist follow-up event")
			continue
		}

		persisted++
		log.Info().
			Str("question", child.Question).
			Str("parent", parentFingerprint).
			Msg("Follow-up event persisted")
	}
	return persisted
}

// gatherEvidence fans out to every applicable source concurrently and
// joins their contributions. A single source failure only removes that
// source's contribution from the bundle.
func (o *Orchestrator) gatherEvidence(ctx context.Context, category models.Category, topic models.Topic) *models.EvidenceBundle {
	bundle := &models.EvidenceBundle{Topic: topic, Category: category}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, source := range o.sources {
		if !source.Applicable(category) {
			continue
		}

		wg.Add(1)
		go func(source EvidenceSource) {
			defer wg.Done()

			var snippets []models.Snippet
			err := o.config.Retry.Do(ctx, string(source.Kind()), func(ctx context.Context) error {
				cctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
				defer cancel()
				var ferr error
				snippets, ferr = source.Fetch(cctx, category, topic)
				return ferr
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().
					Err(err).
					Str("source", string(source.Kind())).
					Str("topic", topic.Name).
					Msg("Evidence source failed, degrading bundle")
				return
			}
			bundle.Snippets = append(bundle.Snippets, snippets...)
		}(source)
	}

	wg.Wait()

	log.Debug().
		Str("topic", topic.Name).
		Int("snippets", len(bundle.Snippets)).
		Msg("Evidence gathered")

	return bundle
}

// scoreSignals runs every scorer over the bundle. A failing sentiment
// scorer defaults to the neutral 0.0; a failing probability estimator
// leaves its signal absent, which forces the uniform fallback at
// synthesis time.
func (o *Orchestrator) scoreSignals(ctx context.Context, bundle *models.EvidenceBundle) models.SignalSet {
	signals := make(models.SignalSet, len(o.scorers))

	for _, scorer := range o.scorers {
		var value float64
		err := o.config.Retry.Do(ctx, scorer.Name(), func(ctx context.Context) error {
			cctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
			defer cancel()
			var serr error
			value, serr = scorer.Score(cctx, bundle)
			return serr
		})
		if err != nil {
			if scorer.SignalKind() == models.SignalSentiment {
				log.Warn().Err(err).Str("scorer", scorer.Name()).Msg("Scorer failed, defaulting to neutral")
				signals.Put(models.Signal{Name: scorer.Name(), Kind: models.SignalSentiment, Value: 0})
			} else {
				log.Warn().Err(err).Str("scorer", scorer.Name()).Msg("Scorer failed, signal absent")
			}
			continue
		}

		signal := models.Signal{Name: scorer.Name(), Kind: scorer.SignalKind(), Value: value}
		if !signal.InRange() {
			log.Warn().
				Str("scorer", scorer.Name()).
				Float64("value", value).
				Msg("Scorer produced out-of-range value, discarding")
			continue
		}
		signals.Put(signal)
	}

	return signals
}

// resolveMedia attaches an image reference when the resolver succeeds.
// Failures never block persistence.
func (o *Orchestrator) resolveMedia(ctx context.Context, draft *models.EventDraft) {
	if o.media == nil {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, o.config.AdapterTimeout)
	defer cancel()

	ref, err := o.media.Resolve(cctx, draft)
	if err != nil {
		log.Warn().Err(err).Str("question", draft.Question).Msg("Media resolution failed, continuing without image")
		return
	}
	draft.ImageRef = ref
}
