package engine

import (
	"testing"

	"github.com/mfcastellanos/negobot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPattern_ContainsCaseInsensitive(t *testing.T) {
	snap := testSnapshot(t)
	cctx := debtorContext()

	m := MatchPattern(snap, "  Prefiero el PAGO UNICO por favor ", "proponer_planes_pago", cctx)
	require.NotNil(t, m)
	assert.Equal(t, "cliente_selecciona_pago_unico", m.Condition)
	assert.Equal(t, "pago unico", m.MatchedPattern)
	assert.Equal(t, 0.9, m.Confidence)
}

func TestMatchPattern_RequiresDebtorGate(t *testing.T) {
	snap := testSnapshot(t)

	// Without the lookup flag the plan patterns are invisible; the
	// message still hits the unrestricted "si" pattern.
	m := MatchPattern(snap, "si, pago unico", "proponer_planes_pago", domain.NewContext())
	require.NotNil(t, m)
	assert.Equal(t, "cliente_confirma_interes", m.Condition)

	m = MatchPattern(snap, "si, pago unico", "proponer_planes_pago", debtorContext())
	require.NotNil(t, m)
	assert.Equal(t, "cliente_selecciona_pago_unico", m.Condition)
}

func TestMatchPattern_ScopeRestrictsToState(t *testing.T) {
	cfg := testFlowConfig()
	cfg.KeywordPatterns = []domain.KeywordPattern{
		{Pattern: "acepto", Condition: "cliente_confirma_acuerdo", Confidence: 0.9, Scope: "confirmar_plan_elegido"},
	}
	snap := buildSnapshotForTest(t, cfg)

	assert.Nil(t, MatchPattern(snap, "acepto", "informar_deuda", domain.NewContext()))

	m := MatchPattern(snap, "acepto", "confirmar_plan_elegido", domain.NewContext())
	require.NotNil(t, m)
	assert.Equal(t, "cliente_confirma_acuerdo", m.Condition)
}

func TestMatchPattern_ExactAndRegexTypes(t *testing.T) {
	cfg := testFlowConfig()
	cfg.KeywordPatterns = []domain.KeywordPattern{
		{Pattern: "no", Condition: "cliente_rechaza", Confidence: 0.9, Type: domain.PatternExact},
		{Pattern: `^\s*\d{7,12}\s*$`, Condition: "cedula_detectada", Confidence: 0.95, Type: domain.PatternRegex},
	}
	snap := buildSnapshotForTest(t, cfg)

	m := MatchPattern(snap, "NO", "informar_deuda", domain.NewContext())
	require.NotNil(t, m)
	assert.Equal(t, "cliente_rechaza", m.Condition)

	// Exact means the whole message, so a longer sentence misses.
	assert.Nil(t, MatchPattern(snap, "no gracias", "informar_deuda", domain.NewContext()))

	m = MatchPattern(snap, " 93388915 ", "validar_documento", domain.NewContext())
	require.NotNil(t, m)
	assert.Equal(t, "cedula_detectada", m.Condition)
}

func TestMatchPattern_HigherConfidenceWins(t *testing.T) {
	cfg := testFlowConfig()
	cfg.KeywordPatterns = []domain.KeywordPattern{
		{Pattern: "pago", Condition: "weak", Confidence: 0.6},
		{Pattern: "pago unico", Condition: "strong", Confidence: 0.9},
	}
	snap := buildSnapshotForTest(t, cfg)

	m := MatchPattern(snap, "quiero el pago unico", "proponer_planes_pago", domain.NewContext())
	require.NotNil(t, m)
	assert.Equal(t, "strong", m.Condition)
}

func TestMatchPattern_TieBreaksTowardLongerPattern(t *testing.T) {
	cfg := testFlowConfig()
	cfg.KeywordPatterns = []domain.KeywordPattern{
		{Pattern: "pago", Condition: "short", Confidence: 0.8},
		{Pattern: "pago unico", Condition: "long", Confidence: 0.8},
	}
	snap := buildSnapshotForTest(t, cfg)

	m := MatchPattern(snap, "pago unico", "proponer_planes_pago", domain.NewContext())
	require.NotNil(t, m)
	assert.Equal(t, "long", m.Condition)
}

func TestMatchPattern_NoMatchReturnsNil(t *testing.T) {
	snap := testSnapshot(t)
	assert.Nil(t, MatchPattern(snap, "qwertyuiop", "informar_deuda", domain.NewContext()))
}
