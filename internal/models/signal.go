package models

// SignalKind constrains the value range of a derived signal.
type SignalKind string

const (
	// SignalSentiment values lie in [-1, 1].
	SignalSentiment SignalKind = "sentiment"
	// SignalProbability values lie in [0, 1].
	SignalProbability SignalKind = "probability"
)

// Well-known signal names produced by the built-in scorers.
const (
	SignalNameSentiment      = "sentiment"
	SignalNameWinProbability = "win_probability"
)

// Signal is one derived numeric value over an evidence bundle.
type Signal struct {
	Name  string
	Kind  SignalKind
	Value float64
}

// InRange reports whether the value respects the range of its kind.
func (s Signal) InRange() bool {
	switch s.Kind {
	case SignalSentiment:
		return s.Value >= -1 && s.Value <= 1
	case SignalProbability:
		return s.Value >= 0 && s.Value <= 1
	}
	return false
}

// SignalSet holds the derived signals of one topic-cycle keyed by name.
type SignalSet map[string]Signal

// Put stores a signal under its name.
func (ss SignalSet) Put(s Signal) { ss[s.Name] = s }

// Sentiment returns the sentiment score, defaulting to the neutral 0.0
// when the scorer contributed nothing.
func (ss SignalSet) Sentiment() float64 {
	if s, ok := ss[SignalNameSentiment]; ok {
		return s.Value
	}
	return 0
}

// WinProbability returns the estimated win probability and whether the
// estimator produced one. Absence triggers the uniform fallback at
// synthesis time.
func (ss SignalSet) WinProbability() (float64, bool) {
	s, ok := ss[SignalNameWinProbability]
	if !ok {
		return 0, false
	}
	return s.Value, true
}
