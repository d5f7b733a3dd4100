package engine

import (
	_ "embed"
	"fmt"

	"github.com/mfcastellanos/negobot/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed emergency.yaml
var emergencyYAML []byte

type emergencyMapping struct {
	Label     string  `yaml:"label"`
	Condition string  `yaml:"condition"`
	Threshold float64 `yaml:"threshold"`
}

type emergencyPattern struct {
	Pattern        string  `yaml:"pattern"`
	Condition      string  `yaml:"condition"`
	Confidence     float64 `yaml:"confidence"`
	RequiresDebtor bool    `yaml:"requires_debtor"`
}

type emergencyState struct {
	Name              string          `yaml:"name"`
	RequiredCondition string          `yaml:"required_condition"`
	OnTrue            string          `yaml:"on_true"`
	OnFalse           string          `yaml:"on_false"`
	OnDefault         string          `yaml:"on_default"`
	Template          string          `yaml:"template"`
	Buttons           []domain.Button `yaml:"buttons"`
}

type emergencyFile struct {
	MLMappings      []emergencyMapping  `yaml:"ml_mappings"`
	KeywordPatterns []emergencyPattern  `yaml:"keyword_patterns"`
	Equivalences    map[string][]string `yaml:"equivalences"`
	States          []emergencyState    `yaml:"states"`
	SystemVariables map[string]string   `yaml:"system_variables"`
}

// emergencyConfig parses the embedded fallback flow. It ships with the
// binary, so a parse failure is a build defect.
func emergencyConfig() (*domain.FlowConfig, error) {
	var f emergencyFile
	if err := yaml.Unmarshal(emergencyYAML, &f); err != nil {
		return nil, fmt.Errorf("parse embedded emergency flow: %w", err)
	}

	cfg := &domain.FlowConfig{
		Equivalences:    domain.EquivalenceTable(f.Equivalences),
		SystemVariables: f.SystemVariables,
	}
	for _, m := range f.MLMappings {
		cfg.MLMappings = append(cfg.MLMappings, domain.ConditionMapping{
			Label:               m.Label,
			Condition:           m.Condition,
			ConfidenceThreshold: m.Threshold,
		})
	}
	for _, p := range f.KeywordPatterns {
		cfg.KeywordPatterns = append(cfg.KeywordPatterns, domain.KeywordPattern{
			Pattern:        p.Pattern,
			Condition:      p.Condition,
			Confidence:     p.Confidence,
			Type:           domain.PatternContains,
			RequiresDebtor: p.RequiresDebtor,
		})
	}
	for _, s := range f.States {
		cfg.States = append(cfg.States, domain.StateDefinition{
			Name:              s.Name,
			RequiredCondition: s.RequiredCondition,
			OnTrue:            s.OnTrue,
			OnFalse:           s.OnFalse,
			OnDefault:         s.OnDefault,
			Template:          s.Template,
			Buttons:           s.Buttons,
		})
	}
	return cfg, nil
}
