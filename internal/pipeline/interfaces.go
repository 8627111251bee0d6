package pipeline

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gamima/eventforge/internal/models"
)

// EvidenceSource fetches raw, unstructured signal for a topic. Sources
// run independently; a failing source degrades the bundle but never
// aborts the cycle on its own.
type EvidenceSource interface {
	// Kind tags the snippets this source contributes.
	Kind() models.SourceKind

	// Applicable reports whether the source should run for a category
	// (the sports feed only serves the sports category, web search
	// serves everything else).
	Applicable(category models.Category) bool

	// Fetch gathers snippets for the topic. Implementations must honor
	// the context deadline set by the orchestrator.
	Fetch(ctx context.Context, category models.Category, topic models.Topic) ([]models.Snippet, error)
}

// SignalScorer reduces an evidence bundle to one numeric signal.
type SignalScorer interface {
	Name() string
	SignalKind() models.SignalKind
	Score(ctx context.Context, bundle *models.EvidenceBundle) (float64, error)
}

// QuestionSynthesizer turns an evidence bundle plus signals into candidate
// event drafts. Implementations own structural shape: returned drafts must
// already satisfy option-count rules for their kind and carry normalized
// probabilities; the validator only checks, never repairs.
type QuestionSynthesizer interface {
	Synthesize(ctx context.Context, bundle *models.EvidenceBundle, signals models.SignalSet) ([]*models.EventDraft, error)
}

// FollowupSynthesizer derives one binary child draft per option of a
// multi-option draft. Synthesizers that implement it get their
// follow-ups persisted alongside the parent; those that do not simply
// stop at the parent record.
type FollowupSynthesizer interface {
	Followup(ctx context.Context, parent *models.EventDraft, option models.OptionDraft) (*models.EventDraft, error)
}

// MediaResolver resolves a representative image reference for a draft.
// Best effort: a failure leaves the draft without an image.
type MediaResolver interface {
	Resolve(ctx context.Context, draft *models.EventDraft) (string, error)
}

// EventRepository persists validated drafts keyed by fingerprint.
// Upsert must be idempotent: the same fingerprint always maps to the
// same stored record, with probabilities and image refreshed in place.
type EventRepository interface {
	Upsert(ctx context.Context, record *models.EventRecord) (string, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.EventRecord, error)
}

// Catalog reads the authored categories and topics.
type Catalog interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListTopics(ctx context.Context, categoryID primitive.ObjectID) ([]models.Topic, error)
}
