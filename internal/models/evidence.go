package models

import "time"

// SourceKind tags a snippet with the evidence source that produced it.
type SourceKind string

const (
	SourceSearch SourceKind = "search"
	SourceScrape SourceKind = "scrape"
	SourceSports SourceKind = "sports"
)

// Snippet is one raw piece of evidence about a topic.
type Snippet struct {
	Source    SourceKind `json:"source"`
	Title     string     `json:"title,omitempty"`
	Text      string     `json:"text"`
	Link      string     `json:"link,omitempty"`
	Published string     `json:"published,omitempty"`
	Fixture   *Fixture   `json:"fixture,omitempty"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Fixture is a structured sports event record attached to a sports snippet.
// WinProbability is the implied probability of the home team winning,
// derived from head-to-head odds; zero when no odds were available.
type Fixture struct {
	SportKey       string    `json:"sport_key"`
	SportTitle     string    `json:"sport_title"`
	HomeTeam       string    `json:"home_team,omitempty"`
	AwayTeam       string    `json:"away_team,omitempty"`
	CommenceTime   time.Time `json:"commence_time"`
	WinProbability float64   `json:"win_probability,omitempty"`
}

// HasTeams reports whether the fixture names both participants. Fixtures
// without teams are outrights (tournament winners, season awards).
func (f *Fixture) HasTeams() bool {
	return f.HomeTeam != "" && f.AwayTeam != ""
}

// EvidenceBundle aggregates all raw evidence gathered for one topic-cycle.
// It lives only for the duration of the cycle and is never persisted.
type EvidenceBundle struct {
	Topic    Topic
	Category Category
	Snippets []Snippet
}

// Empty reports whether no source contributed any snippet.
func (b *EvidenceBundle) Empty() bool {
	return len(b.Snippets) == 0
}

// BySource returns the snippets contributed by one source kind.
func (b *EvidenceBundle) BySource(kind SourceKind) []Snippet {
	var out []Snippet
	for _, s := range b.Snippets {
		if s.Source == kind {
			out = append(out, s)
		}
	}
	return out
}

// Fixtures returns all structured fixtures in the bundle.
func (b *EvidenceBundle) Fixtures() []*Fixture {
	var out []*Fixture
	for _, s := range b.Snippets {
		if s.Fixture != nil {
			out = append(out, s.Fixture)
		}
	}
	return out
}
