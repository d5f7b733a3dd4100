package engine

import (
	"time"

	"github.com/mfcastellanos/negobot/internal/domain"
	"go.uber.org/zap"
)

// Resolver computes the transition decision for one message. The three
// detection tiers run strictly in priority order; a tier is only
// accepted when its condition actually moves the conversation to a
// different state, so a low-confidence match can never be swallowed as
// a no-op.
type Resolver struct {
	logger *zap.Logger
}

func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve tries ML mapping, then keyword patterns, then condition
// evaluators, halting at the first tier whose detected condition
// changes the state. When nothing changes the state it reports
// no_transition and stays put.
func (r *Resolver) Resolve(snap *Snapshot, currentState, text string, cls domain.ClassificationResult, cctx *domain.ConversationContext) domain.TransitionDecision {
	start := time.Now()

	// Tier 1: classifier label mapped through the ML table.
	if mapping, ok := snap.MLMappings[cls.Label]; ok && cls.Confidence >= mapping.ConfidenceThreshold {
		if next := r.applyCondition(snap, currentState, mapping.Condition); next != currentState {
			r.logger.Debug("transition via ML mapping",
				zap.String("label", cls.Label),
				zap.String("condition", mapping.Condition),
				zap.Float64("confidence", cls.Confidence))
			return decision(mapping.Condition, next, cls.Confidence, domain.MethodMLMapping, "", start)
		}
	}

	// Tier 2: keyword pattern table.
	if m := MatchPattern(snap, text, currentState, cctx); m != nil {
		if next := r.applyCondition(snap, currentState, m.Condition); next != currentState {
			r.logger.Debug("transition via keyword pattern",
				zap.String("pattern", m.MatchedPattern),
				zap.String("condition", m.Condition))
			return decision(m.Condition, next, m.Confidence, domain.MethodKeywordPattern, m.MatchedPattern, start)
		}
	}

	// Tier 3: condition evaluator registry.
	if name, conf, ok := ScanEvaluators(snap, text, cctx, r.logger); ok {
		if next := r.applyCondition(snap, currentState, name); next != currentState {
			r.logger.Debug("transition via condition evaluator", zap.String("evaluator", name))
			return decision(name, next, conf, domain.MethodConditionEvaluator, "", start)
		}
	}

	return decision(domain.ConditionNoTransition, currentState, 0, domain.MethodNoChange, "", start)
}

// applyCondition resolves the next state for a detected condition. A
// state whose required condition is satisfied (directly or through the
// equivalence table) follows onTrue, else onFalse, each falling back
// to onDefault and finally the current state. Dangling references
// degrade to staying put rather than failing the request.
func (r *Resolver) applyCondition(snap *Snapshot, currentState, detected string) string {
	def, ok := snap.State(currentState)
	if !ok {
		r.logger.Warn("current state not in graph", zap.String("state", currentState))
		return currentState
	}

	met := def.RequiredCondition == "" ||
		snap.Equivalences.Satisfies(def.RequiredCondition, detected)

	var next string
	if met {
		next = firstNonEmpty(def.OnTrue, def.OnDefault, currentState)
	} else {
		next = firstNonEmpty(def.OnFalse, def.OnDefault, currentState)
	}

	if next != currentState && next != domain.StateTerminal {
		if _, ok := snap.State(next); !ok {
			r.logger.Error("transition target missing from graph",
				zap.String("from", currentState),
				zap.String("to", next),
				zap.String("condition", detected))
			return currentState
		}
	}
	return next
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func decision(condition, next string, confidence float64, method domain.DetectionMethod, pattern string, start time.Time) domain.TransitionDecision {
	return domain.TransitionDecision{
		DetectedCondition: condition,
		NextState:         next,
		Confidence:        confidence,
		Method:            method,
		MatchedPattern:    pattern,
		Elapsed:           time.Since(start),
	}
}
