package sports_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gamima/eventforge/internal/models"
	"github.com/gamima/eventforge/internal/pipeline"
	"github.com/gamima/eventforge/internal/sports"
)

func fixtureSnippet(fx *models.Fixture) models.Snippet {
	return models.Snippet{Source: models.SourceSports, Fixture: fx}
}

var _ = Describe("Estimator", func() {
	var estimator *sports.Estimator

	BeforeEach(func() {
		estimator = sports.NewEstimator()
	})

	It("identifies itself as the win probability signal", func() {
		Expect(estimator.Name()).To(Equal(models.SignalNameWinProbability))
		Expect(estimator.SignalKind()).To(Equal(models.SignalProbability))
	})

	It("averages implied probabilities across priced fixtures", func() {
		bundle := &models.EvidenceBundle{Snippets: []models.Snippet{
			fixtureSnippet(&models.Fixture{HomeTeam: "A", AwayTeam: "B", WinProbability: 0.6}),
			fixtureSnippet(&models.Fixture{HomeTeam: "C", AwayTeam: "D", WinProbability: 0.7}),
		}}

		p, err := estimator.Score(context.Background(), bundle)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeNumerically("~", 0.65, 1e-9))
	})

	It("ignores outright fixtures and fixtures without prices", func() {
		bundle := &models.EvidenceBundle{Snippets: []models.Snippet{
			fixtureSnippet(&models.Fixture{SportTitle: "NFL Championship Winner", WinProbability: 0.9}),
			fixtureSnippet(&models.Fixture{HomeTeam: "A", AwayTeam: "B"}),
			fixtureSnippet(&models.Fixture{HomeTeam: "C", AwayTeam: "D", WinProbability: 0.55}),
		}}

		p, err := estimator.Score(context.Background(), bundle)
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeNumerically("~", 0.55, 1e-9))
	})

	It("produces no signal without usable fixtures", func() {
		bundle := &models.EvidenceBundle{Snippets: []models.Snippet{
			{Source: models.SourceSearch, Text: "no fixtures here"},
			fixtureSnippet(&models.Fixture{SportTitle: "Outright only"}),
		}}

		_, err := estimator.Score(context.Background(), bundle)
		Expect(err).To(MatchError(pipeline.ErrNoSignal))
	})
})

var _ = Describe("Event", func() {
	It("derives the implied home win probability from h2h prices", func() {
		ev := sports.Event{
			HomeTeam: "Kansas City Chiefs",
			AwayTeam: "Buffalo Bills",
			Bookmakers: []sports.Bookmaker{{
				Key: "draftkings",
				Markets: []sports.Market{{
					Key: "h2h",
					Outcomes: []sports.Outcome{
						{Name: "Kansas City Chiefs", Price: 1.5},
						{Name: "Buffalo Bills", Price: 3.0},
					},
				}},
			}},
		}

		// 1/1.5 against 1/3.0 normalizes to two thirds.
		Expect(ev.ImpliedHomeWinProbability()).To(BeNumerically("~", 2.0/3.0, 1e-9))
	})

	It("normalizes away the bookmaker margin on three-way markets", func() {
		ev := sports.Event{
			HomeTeam: "Arsenal",
			AwayTeam: "Chelsea",
			Bookmakers: []sports.Bookmaker{{
				Markets: []sports.Market{{
					Key: "h2h",
					Outcomes: []sports.Outcome{
						{Name: "Arsenal", Price: 2.0},
						{Name: "Chelsea", Price: 4.0},
						{Name: "Draw", Price: 4.0},
					},
				}},
			}},
		}

		p := ev.ImpliedHomeWinProbability()
		Expect(p).To(BeNumerically("~", 0.5, 1e-9))
	})

	It("returns zero without a h2h market", func() {
		ev := sports.Event{
			HomeTeam: "A",
			AwayTeam: "B",
			Bookmakers: []sports.Bookmaker{{
				Markets: []sports.Market{{
					Key: "totals",
					Outcomes: []sports.Outcome{
						{Name: "Over", Price: 1.9},
						{Name: "Under", Price: 1.9},
					},
				}},
			}},
		}
		Expect(ev.ImpliedHomeWinProbability()).To(BeZero())
	})

	It("returns zero with no bookmakers", func() {
		Expect(sports.Event{HomeTeam: "A", AwayTeam: "B"}.ImpliedHomeWinProbability()).To(BeZero())
	})

	It("ignores degenerate prices at or below even money one", func() {
		ev := sports.Event{
			HomeTeam: "A",
			AwayTeam: "B",
			Bookmakers: []sports.Bookmaker{{
				Markets: []sports.Market{{
					Key: "h2h",
					Outcomes: []sports.Outcome{
						{Name: "A", Price: 1.0},
						{Name: "B", Price: 0.0},
					},
				}},
			}},
		}
		Expect(ev.ImpliedHomeWinProbability()).To(BeZero())
	})
})

var _ = Describe("Source", func() {
	It("serves only the sports category", func() {
		src := sports.NewSource(sports.NewClient("key"))
		Expect(src.Kind()).To(Equal(models.SourceSports))
		Expect(src.Applicable(models.Category{Slug: "sports"})).To(BeTrue())
		Expect(src.Applicable(models.Category{Slug: "politics"})).To(BeFalse())
	})
})
