package sentiment_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gamima/eventforge/internal/models"
	"github.com/gamima/eventforge/internal/pipeline"
	"github.com/gamima/eventforge/internal/sentiment"
)

func textBundle(texts ...string) *models.EvidenceBundle {
	bundle := &models.EvidenceBundle{}
	for _, t := range texts {
		bundle.Snippets = append(bundle.Snippets, models.Snippet{Source: models.SourceSearch, Text: t})
	}
	return bundle
}

func score(analyzer *sentiment.Analyzer, texts ...string) float64 {
	GinkgoHelper()
	s, err := analyzer.Score(context.Background(), textBundle(texts...))
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Analyzer", func() {
	var analyzer *sentiment.Analyzer

	BeforeEach(func() {
		analyzer = sentiment.NewAnalyzer()
	})

	It("identifies itself as the sentiment signal", func() {
		Expect(analyzer.Name()).To(Equal(models.SignalNameSentiment))
		Expect(analyzer.SignalKind()).To(Equal(models.SignalSentiment))
	})

	It("scores positive language above the positive threshold", func() {
		Expect(score(analyzer, "The team secured a great win.")).
			To(BeNumerically(">=", sentiment.PositiveThreshold))
	})

	It("scores negative language below the negative threshold", func() {
		Expect(score(analyzer, "The crisis caused terrible losses.")).
			To(BeNumerically("<=", sentiment.NegativeThreshold))
	})

	It("scores unknown vocabulary inside the neutral band", func() {
		s := score(analyzer, "The committee convened on Tuesday.")
		Expect(s).To(BeNumerically("<", sentiment.PositiveThreshold))
		Expect(s).To(BeNumerically(">", sentiment.NegativeThreshold))
	})

	It("stays within [-1, 1]", func() {
		s := score(analyzer, "Great, excellent, the best victory and a huge success!")
		Expect(s).To(BeNumerically("<=", 1))
		Expect(s).To(BeNumerically(">", 0))

		s = score(analyzer, "A terrible crisis, the worst collapse and a total failure.")
		Expect(s).To(BeNumerically(">=", -1))
		Expect(s).To(BeNumerically("<", 0))
	})

	It("flips polarity under negation", func() {
		plain := score(analyzer, "The outlook is good.")
		negated := score(analyzer, "The outlook is not good.")
		Expect(plain).To(BeNumerically(">", 0))
		Expect(negated).To(BeNumerically("<", 0))
	})

	It("intensifies under boosters", func() {
		plain := score(analyzer, "The results were good.")
		boosted := score(analyzer, "The results were extremely good.")
		Expect(boosted).To(BeNumerically(">", plain))
	})

	It("dampens under downtoners", func() {
		plain := score(analyzer, "The results were good.")
		dampened := score(analyzer, "The results were slightly good.")
		Expect(dampened).To(BeNumerically("<", plain))
		Expect(dampened).To(BeNumerically(">", 0))
	})

	It("averages sentence scores across the bundle", func() {
		s := score(analyzer,
			"A great win for the campaign. Supporters are optimistic.",
			"Analysts expect strong growth.")
		Expect(s).To(BeNumerically(">", 0))
		Expect(s).To(BeNumerically("<=", 1))
	})

	It("nets mixed evidence toward the dominant polarity", func() {
		s := score(analyzer,
			"The crisis deepens. Losses mount. Fears of a crash grow.",
			"One small gain was reported.")
		Expect(s).To(BeNumerically("<", 0))
	})

	It("produces no signal for an empty bundle", func() {
		_, err := analyzer.Score(context.Background(), &models.EvidenceBundle{})
		Expect(err).To(MatchError(pipeline.ErrNoSignal))
	})

	It("produces no signal when snippets carry no text", func() {
		bundle := &models.EvidenceBundle{Snippets: []models.Snippet{
			{Source: models.SourceSports, Text: ""},
		}}
		_, err := analyzer.Score(context.Background(), bundle)
		Expect(err).To(MatchError(pipeline.ErrNoSignal))
	})
})

var _ = Describe("Label", func() {
	DescribeTable("maps compound scores onto classes",
		func(score float64, want string) {
			Expect(sentiment.Label(score)).To(Equal(want))
		},
		Entry("clearly positive", 0.6, "positive"),
		Entry("at positive threshold", 0.05, "positive"),
		Entry("inside neutral band", 0.04, "neutral"),
		Entry("zero", 0.0, "neutral"),
		Entry("inside neutral band negative", -0.04, "neutral"),
		Entry("at negative threshold", -0.05, "negative"),
		Entry("clearly negative", -0.6, "negative"),
	)
})
