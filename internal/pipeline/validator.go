package pipeline

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/gamima/eventforge/internal/models"
)

const (
	// MaxQuestionLength bounds the question text in characters.
	MaxQuestionLength = 280

	// ProbabilityEpsilon is the tolerance on the option probability sum.
	ProbabilityEpsilon = 1e-3
)

// Invariant names reported by validation failures.
const (
	InvariantQuestionText = "question_text"
	InvariantOptionCount  = "option_count"
	InvariantLabelUnique  = "label_unique"
	InvariantProbRange    = "probability_range"
	InvariantProbSum      = "probability_sum"
	InvariantRulesPresent = "rules_present"
)

// ValidationError names the specific invariant a draft violated.
type ValidationError struct {
	Invariant string
	Detail    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Invariant, e.Detail)
}

// ValidateDraft checks a draft against the structural invariants, in
// order, short-circuiting on the first failure. It is pure: no side
// effects, no I/O, and it never mutates the draft.
func ValidateDraft(d *models.EventDraft) error {
	if d.Question == "" {
		return &ValidationError{InvariantQuestionText, "question text is empty"}
	}
	if n := utf8.RuneCountInString(d.Question); n > MaxQuestionLength {
		return &ValidationError{
			InvariantQuestionText,
			fmt.Sprintf("question exceeds %d characters (%d)", MaxQuestionLength, n),
		}
	}

	switch d.Kind {
	case models.KindBinary:
		if len(d.Options) != 2 {
			return &ValidationError{
				InvariantOptionCount,
				fmt.Sprintf("binary event needs exactly 2 options, got %d", len(d.Options)),
			}
		}
	case models.KindMultiOption:
		if len(d.Options) < 2 {
			return &ValidationError{
				InvariantOptionCount,
				fmt.Sprintf("multi-option event needs at least 2 options, got %d", len(d.Options)),
			}
		}
	default:
		return &ValidationError{
			InvariantOptionCount,
			fmt.Sprintf("unknown event kind %q", d.Kind),
		}
	}

	seen := make(map[string]struct{}, len(d.Options))
	for _, o := range d.Options {
		if o.Label == "" {
			return &ValidationError{InvariantLabelUnique, "option label is empty"}
		}
		if _, dup := seen[o.Label]; dup {
			return &ValidationError{
				InvariantLabelUnique,
				fmt.Sprintf("duplicate option label %q", o.Label),
			}
		}
		seen[o.Label] = struct{}{}
	}

	for _, o := range d.Options {
		if o.Probability < 0 || o.Probability > 1 {
			return &ValidationError{
				InvariantProbRange,
				fmt.Sprintf("option %q probability %.4f outside [0,1]", o.Label, o.Probability),
			}
		}
	}

	if sum := d.ProbabilitySum(); math.Abs(sum-1.0) > ProbabilityEpsilon {
		return &ValidationError{
			InvariantProbSum,
			fmt.Sprintf("option probabilities sum to %.4f, want 1.0 ±%.0e", sum, ProbabilityEpsilon),
		}
	}

	if d.Rules == "" {
		return &ValidationError{InvariantRulesPresent, "rules text is missing"}
	}

	return nil
}
