package brain

import (
	"strings"

	"github.com/tosachii/ryosa/internal/persona"
)

// Scorer estimates how much a non-command message wants an answer. Scores
// are additive and capped at 1: a direct mention alone clears any sane
// threshold, weaker signals have to stack.
type Scorer struct {
	p         *persona.Persona
	threshold float64
}

const (
	mentionWeight  = 1.0
	questionWeight = 0.4
	keywordWeight  = 0.3
)

func NewScorer(p *persona.Persona, threshold float64) *Scorer {
	return &Scorer{p: p, threshold: threshold}
}

func (s *Scorer) Score(text string) float64 {
	score := 0.0
	if s.p.Mentioned(text) {
		score += mentionWeight
	}
	if isQuestion(text) {
		score += questionWeight
	}
	lowered := strings.ToLower(text)
	for _, kw := range s.p.Keywords {
		if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
			score += keywordWeight
			break
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Relevant applies the configured threshold.
func (s *Scorer) Relevant(text string) bool {
	return s.Score(text) >= s.threshold
}

func isQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "?") {
		return true
	}
	lowered := strings.ToLower(trimmed)
	for _, opener := range []string{"who ", "what ", "when ", "where ", "why ", "how ", "is ", "are ", "can ", "does ", "do "} {
		if strings.HasPrefix(lowered, opener) {
			return true
		}
	}
	return false
}
