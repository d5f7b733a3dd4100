package domain

import (
	"fmt"
	"time"
)

// DetectionMethod identifies which resolver tier produced a decision.
type DetectionMethod string

const (
	MethodMLMapping          DetectionMethod = "ml_mapping"
	MethodKeywordPattern     DetectionMethod = "keyword_pattern"
	MethodConditionEvaluator DetectionMethod = "condition_evaluator"
	MethodNoChange           DetectionMethod = "no_change"
)

// ConditionNoTransition is the detected condition reported when no tier
// changed the state.
const ConditionNoTransition = "no_transition"

// StateTerminal is the sentinel a transition may point at to end the
// conversation; it is not a state definition.
const StateTerminal = "fin"

// ConditionMapping maps a classifier label to a flow condition. The
// mapping only fires when the classification confidence reaches
// ConfidenceThreshold.
type ConditionMapping struct {
	Label               string  `validate:"required"`
	Condition           string  `validate:"required"`
	ConfidenceThreshold float64 `validate:"gte=0,lte=1"`
	Priority            int
}

// PatternType selects the match operator for a keyword pattern.
type PatternType string

const (
	PatternExact    PatternType = "exact"
	PatternContains PatternType = "contains"
	PatternRegex    PatternType = "regex"
)

// KeywordPattern maps a textual pattern to a condition with a static
// confidence. Scope restricts the pattern to one state; RequiresDebtor
// gates it on a populated debtor lookup in the context.
type KeywordPattern struct {
	Pattern        string `validate:"required"`
	Condition      string `validate:"required"`
	Confidence     float64
	Type           PatternType
	Scope          string
	RequiresDebtor bool
}

// EvaluatorKind tags the variant of a condition evaluator.
type EvaluatorKind string

const (
	EvaluatorRegex            EvaluatorKind = "regex"
	EvaluatorKeywordRatio     EvaluatorKind = "keyword_ratio"
	EvaluatorContextPredicate EvaluatorKind = "context_predicate"
)

type RegexConfig struct {
	Pattern string `json:"pattern" yaml:"pattern"`
}

type KeywordRatioConfig struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
}

type ContextPredicateConfig struct {
	Expected map[string]string `json:"expected" yaml:"expected"`
}

// EvaluatorSpec is a tagged variant over the three evaluator kinds.
// Exactly one config field matching Kind is populated.
type EvaluatorSpec struct {
	Name             string        `validate:"required"`
	Kind             EvaluatorKind `validate:"required"`
	SuccessThreshold float64       `validate:"gte=0,lte=1"`
	Regex            *RegexConfig
	KeywordRatio     *KeywordRatioConfig
	ContextPredicate *ContextPredicateConfig
}

// Button is a quick-reply option attached to a state.
type Button struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// StateDefinition is one node of the conversation graph.
type StateDefinition struct {
	Name              string `validate:"required"`
	RequiredCondition string
	OnTrue            string
	OnFalse           string
	OnDefault         string
	Template          string
	TimeoutSeconds    int
	Buttons           []Button
}

// EquivalenceTable maps a logical condition to the set of concrete
// detected conditions that satisfy it.
type EquivalenceTable map[string][]string

// Satisfies reports whether detected satisfies the logical condition,
// either directly or through a registered equivalence.
func (t EquivalenceTable) Satisfies(logical, detected string) bool {
	if logical == detected {
		return true
	}
	for _, c := range t[logical] {
		if c == detected {
			return true
		}
	}
	return false
}

// FlowConfig is the full set of configuration records one cache epoch
// is built from. Loaded wholesale; never mutated after construction.
type FlowConfig struct {
	MLMappings      []ConditionMapping
	KeywordPatterns []KeywordPattern
	Evaluators      []EvaluatorSpec
	States          []StateDefinition
	Equivalences    EquivalenceTable
	SystemVariables map[string]string
	VariableAliases map[string]string
}

// Validate checks referential integrity of the state graph. Dangling
// transition targets are configuration errors reported here; at
// runtime they degrade to staying in the current state.
func (c *FlowConfig) Validate() []error {
	names := make(map[string]bool, len(c.States))
	for _, s := range c.States {
		names[s.Name] = true
	}
	var errs []error
	check := func(state, field, target string) {
		if target == "" || target == StateTerminal {
			return
		}
		if !names[target] {
			errs = append(errs, fmt.Errorf("state %q: %s references unknown state %q", state, field, target))
		}
	}
	for _, s := range c.States {
		check(s.Name, "on_true", s.OnTrue)
		check(s.Name, "on_false", s.OnFalse)
		check(s.Name, "on_default", s.OnDefault)
	}
	return errs
}

// TransitionDecision is the immutable result of one resolve call.
type TransitionDecision struct {
	DetectedCondition string          `json:"detected_condition"`
	NextState         string          `json:"next_state"`
	Confidence        float64         `json:"confidence"`
	Method            DetectionMethod `json:"method"`
	MatchedPattern    string          `json:"matched_pattern,omitempty"`
	Elapsed           time.Duration   `json:"-"`
}
