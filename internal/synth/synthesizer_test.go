package synth_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gamima/eventforge/internal/llm"
	"github.com/gamima/eventforge/internal/models"
	"github.com/gamima/eventforge/internal/pipeline"
	"github.com/gamima/eventforge/internal/synth"
)

// fakeChat cans LLM responses: jsonBody answers ChatJSON calls and
// chatText answers plain Chat calls.
type fakeChat struct {
	jsonBody string
	jsonErr  error
	chatText string
	chatErr  error

	jsonCalls int
	chatCalls int
	lastJSON  llm.ChatRequest
}

func (f *fakeChat) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.chatCalls++
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &llm.ChatResponse{Content: f.chatText}, nil
}

func (f *fakeChat) ChatJSON(ctx context.Context, req llm.ChatRequest, result interface{}) error {
	f.jsonCalls++
	f.lastJSON = req
	if f.jsonErr != nil {
		return f.jsonErr
	}
	return json.Unmarshal([]byte(f.jsonBody), result)
}

func testBundle() *models.EvidenceBundle {
	return &models.EvidenceBundle{
		Category: models.Category{ID: primitive.NewObjectID(), Slug: "politics", Name: "Politics"},
		Topic:    models.Topic{ID: primitive.NewObjectID(), Name: "Elections"},
		Snippets: []models.Snippet{
			{Source: models.SourceSearch, Title: "Poll update", Text: "The incumbent leads by five points."},
		},
	}
}

var _ = Describe("Synthesizer", func() {
	var (
		chat   *fakeChat
		bundle *models.EvidenceBundle
		ctx    context.Context
	)

	BeforeEach(func() {
		chat = &fakeChat{chatText: "Resolves per the official certified result."}
		bundle = testBundle()
		ctx = context.Background()
	})

	It("builds a binary draft that passes validation", func() {
		chat.jsonBody = `{"events": [{
			"question": "Will the incumbent win re-election?",
			"kind": "BINARY",
			"options": [{"label": "Yes", "probability": 0.55}, {"label": "No", "probability": 0.45}],
			"rules": "Resolves Yes if the incumbent is certified the winner.",
			"description": "Re-election odds.",
			"end_date": "2026-11-03"
		}]}`

		drafts, err := synth.NewSynthesizer(chat, 3).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).NotTo(HaveOccurred())
		Expect(drafts).To(HaveLen(1))

		d := drafts[0]
		Expect(d.Kind).To(Equal(models.KindBinary))
		Expect(d.Options).To(HaveLen(2))
		Expect(d.Options[0].Label).To(Equal("Yes"))
		Expect(d.Options[1].Label).To(Equal("No"))
		Expect(d.Options[0].Probability).To(BeNumerically("~", 0.55, 1e-9))
		Expect(d.TopicID).To(Equal(bundle.Topic.ID))
		Expect(d.CategoryID).To(Equal(bundle.Category.ID))
		Expect(d.EndDate).To(Equal("2026-11-03"))
		Expect(pipeline.ValidateDraft(d)).To(Succeed())
	})

	It("prices binary options from the win probability signal when present", func() {
		chat.jsonBody = `{"events": [{
			"question": "Will the home side win the final?",
			"kind": "BINARY",
			"options": [{"label": "Yes", "probability": 0.5}, {"label": "No", "probability": 0.5}],
			"rules": "Resolves Yes on an official home win."
		}]}`

		signals := models.SignalSet{}
		signals.Put(models.Signal{Name: models.SignalNameWinProbability, Kind: models.SignalProbability, Value: 0.65})

		drafts, err := synth.NewSynthesizer(chat, 3).Synthesize(ctx, bundle, signals)
		Expect(err).NotTo(HaveOccurred())
		Expect(drafts).To(HaveLen(1))
		Expect(drafts[0].Options[0].Probability).To(BeNumerically("~", 0.65, 1e-9))
		Expect(drafts[0].Options[1].Probability).To(BeNumerically("~", 0.35, 1e-9))
	})

	It("defaults binary pricing to an even split when no estimate exists", func() {
		chat.jsonBody = `{"events": [{
			"question": "Will the summit produce an agreement?",
			"kind": "BINARY",
			"options": [{"label": "Yes", "probability": 0}, {"label": "No", "probability": 0}],
			"rules": "Resolves Yes on a signed joint statement."
		}]}`

		drafts, err := synth.NewSynthesizer(chat, 3).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).NotTo(HaveOccurred())
		Expect(drafts[0].Options[0].Probability).To(BeNumerically("~", 0.5, 1e-9))
		Expect(drafts[0].Options[1].Probability).To(BeNumerically("~", 0.5, 1e-9))
	})

	It("normalizes multi-option probabilities to sum to one", func() {
		chat.jsonBody = `{"events": [{
			"question": "Who will win the nomination?",
			"kind": "MULTI_OPTION",
			"options": [
				{"label": "Candidate A", "probability": 2},
				{"label": "Candidate B", "probability": 1},
				{"label": "Someone else", "probability": 1}
			],
			"rules": "Resolves to the officially nominated candidate."
		}]}`

		drafts, err := synth.NewSynthesizer(chat, 3).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).NotTo(HaveOccurred())
		Expect(drafts).To(HaveLen(1))

		opts := drafts[0].Options
		Expect(opts[0].Probability).To(BeNumerically("~", 0.5, 1e-9))
		Expect(opts[1].Probability).To(BeNumerically("~", 0.25, 1e-9))
		Expect(opts[2].Probability).To(BeNumerically("~", 0.25, 1e-9))
		Expect(pipeline.ValidateDraft(drafts[0])).To(Succeed())
	})

	It("falls back to uniform pricing when every estimate is zero", func() {
		chat.jsonBody = `{"events": [{
			"question": "Which proposal passes first?",
			"kind": "MULTI_OPTION",
			"options": [
				{"label": "Proposal A", "probability": 0},
				{"label": "Proposal B", "probability": 0},
				{"label": "Proposal C", "probability": 0},
				{"label": "None of them", "probability": 0}
			],
			"rules": "Resolves to the first proposal enacted."
		}]}`

		drafts, err := synth.NewSynthesizer(chat, 3).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).NotTo(HaveOccurred())
		for _, o := range drafts[0].Options {
			Expect(o.Probability).To(BeNumerically("~", 0.25, 1e-9))
		}
	})

	It("caps the number of drafts", func() {
		chat.jsonBody = `{"events": [
			{"question": "Q1?", "kind": "BINARY", "options": [{"label": "Yes", "probability": 0.5}, {"label": "No", "probability": 0.5}], "rules": "r"},
			{"question": "Q2?", "kind": "BINARY", "options": [{"label": "Yes", "probability": 0.5}, {"label": "No", "probability": 0.5}], "rules": "r"},
			{"question": "Q3?", "kind": "BINARY", "options": [{"label": "Yes", "probability": 0.5}, {"label": "No", "probability": 0.5}], "rules": "r"}
		]}`

		drafts, err := synth.NewSynthesizer(chat, 2).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).NotTo(HaveOccurred())
		Expect(drafts).To(HaveLen(2))
	})

	It("discards malformed drafts and keeps the rest", func() {
		chat.jsonBody = `{"events": [
			{"question": "", "kind": "BINARY", "options": [{"label": "Yes", "probability": 0.5}, {"label": "No", "probability": 0.5}], "rules": "r"},
			{"question": "Bad kind?", "kind": "SCALAR", "options": [{"label": "Yes", "probability": 1}], "rules": "r"},
			{"question": "Too few options?", "kind": "MULTI_OPTION", "options": [{"label": "Only", "probability": 1}], "rules": "r"},
			{"question": "Will the good one survive?", "kind": "BINARY", "options": [{"label": "Yes", "probability": 0.5}, {"label": "No", "probability": 0.5}], "rules": "r"}
		]}`

		drafts, err := synth.NewSynthesizer(chat, 5).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).NotTo(HaveOccurred())
		Expect(drafts).To(HaveLen(1))
		Expect(drafts[0].Question).To(Equal("Will the good one survive?"))
	})

	It("generates rules when the model omits them", func() {
		chat.jsonBody = `{"events": [{
			"question": "Will the merger close this quarter?",
			"kind": "BINARY",
			"options": [{"label": "Yes", "probability": 0.4}, {"label": "No", "probability": 0.6}],
			"rules": ""
		}]}`

		drafts, err := synth.NewSynthesizer(chat, 3).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).NotTo(HaveOccurred())
		Expect(drafts).To(HaveLen(1))
		Expect(drafts[0].Rules).To(Equal("Resolves per the official certified result."))
		Expect(chat.chatCalls).To(Equal(1))
	})

	It("drops an invalid end date instead of the draft", func() {
		chat.jsonBody = `{"events": [{
			"question": "Will it happen soon?",
			"kind": "BINARY",
			"options": [{"label": "Yes", "probability": 0.5}, {"label": "No", "probability": 0.5}],
			"rules": "r",
			"end_date": "soonish"
		}]}`

		drafts, err := synth.NewSynthesizer(chat, 3).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).NotTo(HaveOccurred())
		Expect(drafts).To(HaveLen(1))
		Expect(drafts[0].EndDate).To(BeEmpty())
	})

	It("propagates model failures", func() {
		chat.jsonErr = errors.New("model unavailable")
		_, err := synth.NewSynthesizer(chat, 3).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("model unavailable"))
	})

	It("requests JSON mode with the evidence in the prompt", func() {
		chat.jsonBody = `{"events": []}`
		_, err := synth.NewSynthesizer(chat, 3).Synthesize(ctx, bundle, models.SignalSet{})
		Expect(err).NotTo(HaveOccurred())
		Expect(chat.lastJSON.JSONMode).To(BeTrue())
		Expect(chat.lastJSON.UserPrompt).To(ContainSubstring("Elections"))
		Expect(chat.lastJSON.UserPrompt).To(ContainSubstring("Poll update"))
	})
})

var _ = Describe("Followup", func() {
	var (
		chat   *fakeChat
		parent *models.EventDraft
		ctx    context.Context
	)

	BeforeEach(func() {
		chat = &fakeChat{chatText: "Will Candidate A win the nomination?"}
		ctx = context.Background()
		parent = &models.EventDraft{
			Question: "Who will win the nomination?",
			Kind:     models.KindMultiOption,
			Options: []models.OptionDraft{
				{Label: "Candidate A", Probability: 0.4},
				{Label: "Candidate B", Probability: 0.35},
				{Label: "Someone else", Probability: 0.25},
			},
			Rules:       "Resolves to the officially nominated candidate.",
			Description: "Nomination race.",
			CategoryID:  primitive.NewObjectID(),
			TopicID:     primitive.NewObjectID(),
			EndDate:     "2026-11-03",
		}
	})

	It("derives a binary child priced from the option", func() {
		child, err := synth.NewSynthesizer(chat, 3).Followup(ctx, parent, parent.Options[0])
		Expect(err).NotTo(HaveOccurred())

		Expect(child.Question).To(Equal("Will Candidate A win the nomination?"))
		Expect(child.Kind).To(Equal(models.KindBinary))
		Expect(child.Options).To(HaveLen(2))
		Expect(child.Options[0].Label).To(Equal("Yes"))
		Expect(child.Options[0].Probability).To(BeNumerically("~", 0.4, 1e-9))
		Expect(child.Options[1].Label).To(Equal("No"))
		Expect(child.Options[1].Probability).To(BeNumerically("~", 0.6, 1e-9))
		Expect(child.Rules).To(Equal(parent.Rules))
		Expect(child.CategoryID).To(Equal(parent.CategoryID))
		Expect(child.TopicID).To(Equal(parent.TopicID))
		Expect(child.EndDate).To(Equal(parent.EndDate))
		Expect(pipeline.ValidateDraft(child)).To(Succeed())
	})

	It("clamps option probabilities into [0, 1]", func() {
		child, err := synth.NewSynthesizer(chat, 3).Followup(ctx, parent, models.OptionDraft{Label: "Long shot", Probability: -0.1})
		Expect(err).NotTo(HaveOccurred())
		Expect(child.Options[0].Probability).To(BeZero())
		Expect(child.Options[1].Probability).To(BeNumerically("~", 1, 1e-9))
	})

	It("rejects an empty model response", func() {
		chat.chatText = "  "
		_, err := synth.NewSynthesizer(chat, 3).Followup(ctx, parent, parent.Options[0])
		Expect(err).To(HaveOccurred())
	})

	It("propagates model failures", func() {
		chat.chatErr = errors.New("model unavailable")
		_, err := synth.NewSynthesizer(chat, 3).Followup(ctx, parent, parent.Options[0])
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("model unavailable"))
	})
})

var _ = Describe("QueryGenerator", func() {
	It("returns the trimmed model output", func() {
		chat := &fakeChat{chatText: "  \"Elections polling latest\"  "}
		q, err := synth.NewQueryGenerator(chat).Generate(context.Background(), "Politics", "Elections")
		Expect(err).NotTo(HaveOccurred())
		Expect(q).To(Equal("Elections polling latest"))
	})

	It("fails on empty model output", func() {
		chat := &fakeChat{chatText: "   "}
		_, err := synth.NewQueryGenerator(chat).Generate(context.Background(), "Politics", "Elections")
		Expect(err).To(HaveOccurred())
	})

	It("propagates model errors", func() {
		chat := &fakeChat{chatErr: errors.New("timeout")}
		_, err := synth.NewQueryGenerator(chat).Generate(context.Background(), "Politics", "Elections")
		Expect(err).To(HaveOccurred())
	})
})
