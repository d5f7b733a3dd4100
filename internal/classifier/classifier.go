// Package classifier maps raw user text to an intent label with a
// confidence. A statistical model artifact is preferred when present;
// a fixed table of substring and regex rules backs it so a missing or
// broken model never reaches the caller.
package classifier

import (
	"strings"
	"sync/atomic"

	"github.com/mfcastellanos/negobot/internal/domain"
	"go.uber.org/zap"
)

type Classifier struct {
	model  atomic.Pointer[modelBox]
	rules  []rule
	logger *zap.Logger
}

// modelBox wraps the interface so atomic.Pointer has a concrete type.
type modelBox struct{ m Model }

// New builds a classifier over the embedded rule table. model may be
// nil; the rule table then serves every request.
func New(model Model, logger *zap.Logger) (*Classifier, error) {
	rules, err := loadRules()
	if err != nil {
		return nil, err
	}
	c := &Classifier{rules: rules, logger: logger}
	if model != nil {
		c.model.Store(&modelBox{m: model})
	}
	return c, nil
}

// SwapModel replaces the model artifact in use. Passing nil removes
// the model and leaves the rule table serving alone.
func (c *Classifier) SwapModel(model Model) {
	if model == nil {
		c.model.Store(nil)
		return
	}
	c.model.Store(&modelBox{m: model})
}

// Classify never fails: model errors fall back to the rule table, and
// an unmatched message becomes the UNKNOWN result.
func (c *Classifier) Classify(text string) domain.ClassificationResult {
	if box := c.model.Load(); box != nil {
		label, prob, err := box.m.Predict(text)
		if err == nil {
			return domain.ClassificationResult{
				Label:      label,
				Confidence: prob,
				Method:     domain.ClassifiedByModel,
			}
		}
		c.logger.Debug("model prediction failed, using rules",
			zap.String("text", text),
			zap.Error(err))
	}
	return c.classifyByRules(text)
}

func (c *Classifier) classifyByRules(text string) domain.ClassificationResult {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, r := range c.rules {
		if r.matches(normalized) {
			return domain.ClassificationResult{
				Label:      r.label,
				Confidence: r.confidence,
				Method:     domain.ClassifiedByRule,
			}
		}
	}
	return domain.Unknown()
}
