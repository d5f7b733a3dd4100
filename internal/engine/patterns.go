package engine

import (
	"strings"

	"github.com/mfcastellanos/negobot/internal/domain"
)

// ContextKeyDebtorFound gates patterns that only make sense once the
// account lookup has succeeded.
const ContextKeyDebtorFound = "cliente_encontrado"

// PatternMatch is the result of a successful pattern table scan.
type PatternMatch struct {
	Condition      string
	Confidence     float64
	MatchedPattern string
}

// MatchPattern scans the snapshot's pattern table, ordered by
// descending static confidence (ties: longest pattern first), and
// returns the first satisfying entry. A nil result means no match,
// never an error.
func MatchPattern(snap *Snapshot, text, currentState string, cctx *domain.ConversationContext) *PatternMatch {
	message := strings.ToLower(strings.TrimSpace(text))
	debtorFound, _ := cctx.Get(ContextKeyDebtorFound).Bool()

	for _, p := range snap.Patterns {
		if p.Scope != "" && p.Scope != currentState {
			continue
		}
		if p.RequiresDebtor && !debtorFound {
			continue
		}
		if !patternMatches(p, message) {
			continue
		}
		return &PatternMatch{
			Condition:      p.Condition,
			Confidence:     p.Confidence,
			MatchedPattern: p.Pattern,
		}
	}
	return nil
}

func patternMatches(p CompiledPattern, message string) bool {
	switch p.Type {
	case domain.PatternExact:
		return message == strings.ToLower(strings.TrimSpace(p.Pattern))
	case domain.PatternRegex:
		return p.re != nil && p.re.MatchString(message)
	default:
		return strings.Contains(message, strings.ToLower(p.Pattern))
	}
}
