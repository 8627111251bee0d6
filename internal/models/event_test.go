package models_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/gamima/eventforge/internal/models"
)

var _ = Describe("NormalizeQuestion", func() {
	DescribeTable("normalizes cosmetic variants to the same text",
		func(input, want string) {
			Expect(models.NormalizeQuestion(input)).To(Equal(want))
		},
		Entry("lowercases", "Will BTC Hit 100K?", "will btc hit 100k"),
		Entry("strips punctuation", "Will it pass?!", "will it pass"),
		Entry("collapses whitespace", "will   it \t pass", "will it pass"),
		Entry("trims edges", "  will it pass  ", "will it pass"),
		Entry("keeps digits", "Will team win 3 games?", "will team win 3 games"),
		Entry("empty input", "", ""),
		Entry("punctuation only", "?!...", ""),
	)
})

var _ = Describe("Fingerprint", func() {
	var topicID, otherTopicID primitive.ObjectID

	BeforeEach(func() {
		topicID = primitive.NewObjectID()
		otherTopicID = primitive.NewObjectID()
	})

	It("is deterministic", func() {
		a := models.Fingerprint("Will the bill pass?", topicID)
		b := models.Fingerprint("Will the bill pass?", topicID)
		Expect(a).To(Equal(b))
	})

	It("treats cosmetic rephrasings as the same question", func() {
		a := models.Fingerprint("Will the bill pass?", topicID)
		b := models.Fingerprint("  will the BILL pass ", topicID)
		Expect(a).To(Equal(b))
	})

	It("differs across topics for the same question", func() {
		a := models.Fingerprint("Will the bill pass?", topicID)
		b := models.Fingerprint("Will the bill pass?", otherTopicID)
		Expect(a).NotTo(Equal(b))
	})

	It("differs across question texts", func() {
		a := models.Fingerprint("Will the bill pass?", topicID)
		b := models.Fingerprint("Will the bill fail?", topicID)
		Expect(a).NotTo(Equal(b))
	})

	It("is a lowercase hex sha256 digest", func() {
		fp := models.Fingerprint("Will the bill pass?", topicID)
		Expect(fp).To(HaveLen(64))
		Expect(fp).To(MatchRegexp(`^[0-9a-f]{64}$`))
	})
})

var _ = Describe("NewRecord", func() {
	It("carries the draft fields and computes the fingerprint", func() {
		draft := &models.EventDraft{
			Question: "Will the rover land safely?",
			Kind:     models.KindBinary,
			Options: []models.OptionDraft{
				{Label: "Yes", Probability: 0.7},
				{Label: "No", Probability: 0.3},
			},
			Rules:       "Resolves Yes on confirmed touchdown telemetry.",
			Description: "Mission status.",
			CategoryID:  primitive.NewObjectID(),
			TopicID:     primitive.NewObjectID(),
			ImageRef:    "https://cdn.example.com/rover.jpg",
			EndDate:     "2026-12-31",

			ParentFingerprint: "abc123",
		}

		record := models.NewRecord(draft)
		Expect(record.Question).To(Equal(draft.Question))
		Expect(record.Kind).To(Equal(models.KindBinary))
		Expect(record.Options).To(Equal(draft.Options))
		Expect(record.Rules).To(Equal(draft.Rules))
		Expect(record.CategoryID).To(Equal(draft.CategoryID))
		Expect(record.TopicID).To(Equal(draft.TopicID))
		Expect(record.ImageRef).To(Equal(draft.ImageRef))
		Expect(record.EndDate).To(Equal(draft.EndDate))
		Expect(record.Fingerprint).To(Equal(models.Fingerprint(draft.Question, draft.TopicID)))
		Expect(record.ParentFingerprint).To(Equal("abc123"))
	})
})

var _ = Describe("EvidenceBundle", func() {
	It("reports emptiness and filters by source", func() {
		bundle := &models.EvidenceBundle{}
		Expect(bundle.Empty()).To(BeTrue())

		bundle.Snippets = []models.Snippet{
			{Source: models.SourceSearch, Text: "a"},
			{Source: models.SourceScrape, Text: "b"},
			{Source: models.SourceSearch, Text: "c"},
		}
		Expect(bundle.Empty()).To(BeFalse())
		Expect(bundle.BySource(models.SourceSearch)).To(HaveLen(2))
		Expect(bundle.BySource(models.SourceSports)).To(BeEmpty())
	})

	It("collects attached fixtures", func() {
		fx := &models.Fixture{SportKey: "americanfootball_nfl", HomeTeam: "A", AwayTeam: "B"}
		bundle := &models.EvidenceBundle{Snippets: []models.Snippet{
			{Source: models.SourceSports, Fixture: fx},
			{Source: models.SourceSearch, Text: "no fixture"},
		}}
		Expect(bundle.Fixtures()).To(ConsistOf(fx))
	})
})

var _ = Describe("SignalSet", func() {
	It("defaults sentiment to neutral", func() {
		ss := models.SignalSet{}
		Expect(ss.Sentiment()).To(BeZero())
	})

	It("reports win probability absence", func() {
		ss := models.SignalSet{}
		_, ok := ss.WinProbability()
		Expect(ok).To(BeFalse())

		ss.Put(models.Signal{Name: models.SignalNameWinProbability, Kind: models.SignalProbability, Value: 0.65})
		p, ok := ss.WinProbability()
		Expect(ok).To(BeTrue())
		Expect(p).To(Equal(0.65))
	})

	DescribeTable("range checks by kind",
		func(kind models.SignalKind, value float64, want bool) {
			s := models.Signal{Name: "s", Kind: kind, Value: value}
			Expect(s.InRange()).To(Equal(want))
		},
		Entry("sentiment in range", models.SignalSentiment, -0.4, true),
		Entry("sentiment at bound", models.SignalSentiment, 1.0, true),
		Entry("sentiment out of range", models.SignalSentiment, 1.2, false),
		Entry("probability in range", models.SignalProbability, 0.5, true),
		Entry("probability negative", models.SignalProbability, -0.1, false),
		Entry("probability above one", models.SignalProbability, 1.1, false),
	)
})
