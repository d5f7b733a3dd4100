package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

var ErrNoArtifact = errors.New("classifier: no model artifact loaded")

// Model scores raw text against the trained intent labels. The
// probability is the model's own posterior for the winning label.
type Model interface {
	Predict(text string) (label string, probability float64, err error)
}

// artifact is the on-disk format produced by the offline training
// pipeline: log priors per label and per-token log-likelihood weights.
type artifact struct {
	Version string                        `json:"version"`
	Labels  []string                      `json:"labels"`
	Priors  map[string]float64            `json:"priors"`
	Tokens  map[string]map[string]float64 `json:"tokens"`
}

// ArtifactModel is a linear bag-of-words scorer over a trained
// artifact. It is immutable after load; hot swapping is done by
// loading a new model and handing it to the classifier.
type ArtifactModel struct {
	art *artifact
}

var tokenRe = regexp.MustCompile(`[\p{L}\d]+`)

func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// LoadArtifact reads and validates a model artifact from disk.
func LoadArtifact(path string) (*ArtifactModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if len(art.Labels) == 0 {
		return nil, errors.New("model artifact has no labels")
	}
	return &ArtifactModel{art: &art}, nil
}

// Predict scores the text against every label and returns the winner
// with its softmax posterior.
func (m *ArtifactModel) Predict(text string) (string, float64, error) {
	if m == nil || m.art == nil {
		return "", 0, ErrNoArtifact
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return "", 0, errors.New("empty input after tokenization")
	}

	scores := make(map[string]float64, len(m.art.Labels))
	for _, label := range m.art.Labels {
		scores[label] = m.art.Priors[label]
	}
	for _, tok := range tokens {
		weights, ok := m.art.Tokens[tok]
		if !ok {
			continue
		}
		for label, w := range weights {
			scores[label] += w
		}
	}

	best := m.art.Labels[0]
	for _, label := range m.art.Labels[1:] {
		if scores[label] > scores[best] {
			best = label
		}
	}

	// softmax normalized against the max score for stability
	var denom float64
	for _, label := range m.art.Labels {
		denom += math.Exp(scores[label] - scores[best])
	}
	return best, 1 / denom, nil
}
