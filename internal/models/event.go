package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventKind distinguishes binary yes/no markets from multi-option markets.
type EventKind string

const (
	KindBinary      EventKind = "BINARY"
	KindMultiOption EventKind = "MULTI_OPTION"
)

// OptionDraft is one outcome of a candidate event.
type OptionDraft struct {
	Label       string  `bson:"label" json:"label"`
	Probability float64 `bson:"probability" json:"probability"`
}

// EventDraft is an in-memory candidate event produced by synthesis. Drafts
// exist only within one topic-cycle; validation promotes them to records.
type EventDraft struct {
	Question    string
	Kind        EventKind
	Options     []OptionDraft
	Rules       string
	Description string
	CategoryID  primitive.ObjectID
	TopicID     primitive.ObjectID
	ImageRef    string
	EndDate     string
	CreatedAt   time.Time

	// ParentFingerprint links a binary follow-up to the multi-option
	// event it was derived from. Empty for top-level drafts.
	ParentFingerprint string
}

// EventRecord is the persisted form of a validated draft. Fingerprint is
// the idempotency key: repeated runs producing the same normalized question
// for the same topic update the existing record instead of inserting.
type EventRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Fingerprint string             `bson:"fingerprint" json:"fingerprint"`
	Question    string             `bson:"question" json:"question"`
	Kind        EventKind          `bson:"kind" json:"kind"`
	Options     []OptionDraft      `bson:"options" json:"options"`
	Rules       string             `bson:"rules" json:"rules"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CategoryID  primitive.ObjectID `bson:"category_id" json:"category_id"`
	TopicID     primitive.ObjectID `bson:"topic_id" json:"topic_id"`
	ImageRef    string             `bson:"image_ref,omitempty" json:"image_ref,omitempty"`
	EndDate     string             `bson:"end_date,omitempty" json:"end_date,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`

	ParentFingerprint string `bson:"parent_fingerprint,omitempty" json:"parent_fingerprint,omitempty"`
}

// NewRecord builds the persisted form of a draft, computing its fingerprint.
func NewRecord(draft *EventDraft) *EventRecord {
	return &EventRecord{
		Fingerprint: Fingerprint(draft.Question, draft.TopicID),
		Question:    draft.Question,
		Kind:        draft.Kind,
		Options:     draft.Options,
		Rules:       draft.Rules,
		Description: draft.Description,
		CategoryID:  draft.CategoryID,
		TopicID:     draft.TopicID,
		ImageRef:    draft.ImageRef,
		EndDate:     draft.EndDate,

		ParentFingerprint: draft.ParentFingerprint,
	}
}

// Fingerprint returns the deterministic idempotency key for a question and
// topic: sha256 over the normalized question text plus the topic id.
func Fingerprint(question string, topicID primitive.ObjectID) string {
	h := sha256.New()
	h.Write([]byte(NormalizeQuestion(question)))
	h.Write([]byte("|"))
	h.Write([]byte(topicID.Hex()))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeQuestion lowercases the question, strips punctuation and
// collapses whitespace so cosmetic rephrasings hash identically.
func NormalizeQuestion(q string) string {
	var b strings.Builder
	b.Grow(len(q))
	lastSpace := true
	for _, r := range strings.ToLower(q) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// ProbabilitySum returns the sum of the option probabilities.
func (d *EventDraft) ProbabilitySum() float64 {
	var sum float64
	for _, o := range d.Options {
		sum += o.Probability
	}
	return sum
}
