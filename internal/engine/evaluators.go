package engine

import (
	"strings"

	"github.com/mfcastellanos/negobot/internal/domain"
	"go.uber.org/zap"
)

// EvaluateCondition runs a single compiled evaluator against the
// message and context. A fault inside an evaluator is logged and
// counts as a non-match for that evaluator only; the caller's scan
// continues.
func EvaluateCondition(ev CompiledEvaluator, text string, cctx *domain.ConversationContext, logger *zap.Logger) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("condition evaluator panicked",
				zap.String("evaluator", ev.Name),
				zap.Any("panic", r))
			matched = false
		}
	}()

	message := strings.ToLower(strings.TrimSpace(text))

	switch ev.Kind {
	case domain.EvaluatorRegex:
		if ev.re == nil {
			logger.Warn("regex evaluator has no compiled pattern", zap.String("evaluator", ev.Name))
			return false
		}
		return ev.re.MatchString(message)

	case domain.EvaluatorKeywordRatio:
		if ev.KeywordRatio == nil || len(ev.KeywordRatio.Keywords) == 0 {
			return false
		}
		var hits int
		for _, kw := range ev.KeywordRatio.Keywords {
			if strings.Contains(message, strings.ToLower(kw)) {
				hits++
			}
		}
		ratio := float64(hits) / float64(len(ev.KeywordRatio.Keywords))
		return ratio >= ev.SuccessThreshold

	case domain.EvaluatorContextPredicate:
		if ev.ContextPredicate == nil || len(ev.ContextPredicate.Expected) == 0 {
			return false
		}
		for key, expected := range ev.ContextPredicate.Expected {
			if !cctx.Get(key).Equal(domain.Text(expected)) {
				return false
			}
		}
		return true

	default:
		logger.Warn("unknown evaluator kind",
			zap.String("evaluator", ev.Name),
			zap.String("kind", string(ev.Kind)))
		return false
	}
}

// ScanEvaluators runs the registry in declared order and returns the
// name of the first evaluator that holds, with its threshold as the
// reported confidence.
func ScanEvaluators(snap *Snapshot, text string, cctx *domain.ConversationContext, logger *zap.Logger) (string, float64, bool) {
	for _, ev := range snap.Evaluators {
		if EvaluateCondition(ev, text, cctx, logger) {
			return ev.Name, ev.SuccessThreshold, true
		}
	}
	return "", 0, false
}
