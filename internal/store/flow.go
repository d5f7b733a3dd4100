package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mfcastellanos/negobot/internal/domain"
)

// FlowStore loads the conversation flow configuration wholesale. The
// engine's cache calls LoadFlowConfig once per epoch, so each load is
// a handful of full-table scans over small configuration tables.
type FlowStore struct {
	db *pgxpool.Pool
}

func NewFlowStore(db *pgxpool.Pool) *FlowStore {
	return &FlowStore{db: db}
}

func (s *FlowStore) LoadFlowConfig(ctx context.Context) (*domain.FlowConfig, error) {
	cfg := &domain.FlowConfig{}

	var err error
	if cfg.MLMappings, err = s.loadMLMappings(ctx); err != nil {
		return nil, fmt.Errorf("load ml mappings: %w", err)
	}
	if cfg.KeywordPatterns, err = s.loadKeywordPatterns(ctx); err != nil {
		return nil, fmt.Errorf("load keyword patterns: %w", err)
	}
	if cfg.Evaluators, err = s.loadEvaluators(ctx); err != nil {
		return nil, fmt.Errorf("load evaluators: %w", err)
	}
	if cfg.States, err = s.loadStates(ctx); err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}
	if cfg.Equivalences, err = s.loadEquivalences(ctx); err != nil {
		return nil, fmt.Errorf("load equivalences: %w", err)
	}
	if cfg.SystemVariables, err = s.loadKeyValues(ctx, "system_variables"); err != nil {
		return nil, fmt.Errorf("load system variables: %w", err)
	}
	if cfg.VariableAliases, err = s.loadKeyValues(ctx, "variable_aliases"); err != nil {
		return nil, fmt.Errorf("load variable aliases: %w", err)
	}
	return cfg, nil
}

func (s *FlowStore) loadMLMappings(ctx context.Context) ([]domain.ConditionMapping, error) {
	rows, err := s.db.Query(ctx,
		`SELECT label, condition, confidence_threshold, priority
		 FROM ml_intent_mappings
		 WHERE active
		 ORDER BY priority, label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ConditionMapping
	for rows.Next() {
		var m domain.ConditionMapping
		if err := rows.Scan(&m.Label, &m.Condition, &m.ConfidenceThreshold, &m.Priority); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *FlowStore) loadKeywordPatterns(ctx context.Context) ([]domain.KeywordPattern, error) {
	rows, err := s.db.Query(ctx,
		`SELECT pattern, condition, confidence, pattern_type, COALESCE(scope, ''), requires_debtor
		 FROM keyword_patterns
		 WHERE active
		 ORDER BY confidence DESC, pattern`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.KeywordPattern
	for rows.Next() {
		var p domain.KeywordPattern
		var ptype string
		if err := rows.Scan(&p.Pattern, &p.Condition, &p.Confidence, &ptype, &p.Scope, &p.RequiresDebtor); err != nil {
			return nil, err
		}
		p.Type = domain.PatternType(ptype)
		out = append(out, p)
	}
	return out, rows.Err()
}

// evaluatorConfig is the JSONB payload of one condition_evaluators row.
// Only the fields matching the row's kind are populated.
type evaluatorConfig struct {
	Pattern  string            `json:"pattern"`
	Keywords []string          `json:"keywords"`
	Expected map[string]string `json:"expected"`
}

func (s *FlowStore) loadEvaluators(ctx context.Context) ([]domain.EvaluatorSpec, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, kind, success_threshold, config
		 FROM condition_evaluators
		 WHERE active
		 ORDER BY priority, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EvaluatorSpec
	for rows.Next() {
		var (
			ev      domain.EvaluatorSpec
			kind    string
			rawConf []byte
		)
		if err := rows.Scan(&ev.Name, &kind, &ev.SuccessThreshold, &rawConf); err != nil {
			return nil, err
		}
		ev.Kind = domain.EvaluatorKind(kind)

		var conf evaluatorConfig
		if len(rawConf) > 0 {
			if err := json.Unmarshal(rawConf, &conf); err != nil {
				return nil, fmt.Errorf("evaluator %q config: %w", ev.Name, err)
			}
		}
		switch ev.Kind {
		case domain.EvaluatorRegex:
			ev.Regex = &domain.RegexConfig{Pattern: conf.Pattern}
		case domain.EvaluatorKeywordRatio:
			ev.KeywordRatio = &domain.KeywordRatioConfig{Keywords: conf.Keywords}
		case domain.EvaluatorContextPredicate:
			ev.ContextPredicate = &domain.ContextPredicateConfig{Expected: conf.Expected}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *FlowStore) loadStates(ctx context.Context) ([]domain.StateDefinition, error) {
	rows, err := s.db.Query(ctx,
		`SELECT nombre, COALESCE(condicion_requerida, ''),
		        COALESCE(estado_siguiente_true, ''), COALESCE(estado_siguiente_false, ''),
		        COALESCE(estado_siguiente_default, ''),
		        COALESCE(template, ''), COALESCE(timeout_seconds, 0), COALESCE(buttons, '[]')
		 FROM conversation_states
		 WHERE active
		 ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StateDefinition
	for rows.Next() {
		var (
			def        domain.StateDefinition
			rawButtons []byte
		)
		if err := rows.Scan(&def.Name, &def.RequiredCondition,
			&def.OnTrue, &def.OnFalse, &def.OnDefault,
			&def.Template, &def.TimeoutSeconds, &rawButtons); err != nil {
			return nil, err
		}
		if len(rawButtons) > 0 {
			if err := json.Unmarshal(rawButtons, &def.Buttons); err != nil {
				return nil, fmt.Errorf("state %q buttons: %w", def.Name, err)
			}
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func (s *FlowStore) loadEquivalences(ctx context.Context) (domain.EquivalenceTable, error) {
	rows, err := s.db.Query(ctx,
		`SELECT logical_condition, detected_condition
		 FROM condition_equivalences
		 ORDER BY logical_condition, detected_condition`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := domain.EquivalenceTable{}
	for rows.Next() {
		var logical, detected string
		if err := rows.Scan(&logical, &detected); err != nil {
			return nil, err
		}
		table[logical] = append(table[logical], detected)
	}
	return table, rows.Err()
}

func (s *FlowStore) loadKeyValues(ctx context.Context, table string) (map[string]string, error) {
	rows, err := s.db.Query(ctx, `SELECT name, value FROM `+table+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}
