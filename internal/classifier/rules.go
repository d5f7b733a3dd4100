package classifier

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type ruleSpec struct {
	Label      string   `yaml:"label"`
	Confidence float64  `yaml:"confidence"`
	Contains   []string `yaml:"contains"`
	Regexes    []string `yaml:"regexes"`
}

type rulesFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

// rule is one compiled entry of the fallback table.
type rule struct {
	label      string
	confidence float64
	substrings []string
	regexes    []*regexp.Regexp
}

func (r rule) matches(text string) bool {
	for _, s := range r.substrings {
		if strings.Contains(text, s) {
			return true
		}
	}
	for _, re := range r.regexes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// loadRules compiles the embedded rule table. The table ships with the
// binary, so a compile failure is a build defect, not a runtime state.
func loadRules() ([]rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(rulesYAML, &f); err != nil {
		return nil, fmt.Errorf("parse embedded rules: %w", err)
	}

	rules := make([]rule, 0, len(f.Rules))
	for _, spec := range f.Rules {
		r := rule{label: spec.Label, confidence: spec.Confidence, substrings: spec.Contains}
		for _, expr := range spec.Regexes {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("rule %s: compile %q: %w", spec.Label, expr, err)
			}
			r.regexes = append(r.regexes, re)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
