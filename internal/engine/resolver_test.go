package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/mfcastellanos/negobot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func classification(label string, conf float64) domain.ClassificationResult {
	return domain.ClassificationResult{Label: label, Confidence: conf, Method: domain.ClassifiedByModel}
}

func TestResolve_MLMappingTierWins(t *testing.T) {
	r := NewResolver(zap.NewNop())
	snap := testSnapshot(t)

	// The message also matches the "si" keyword pattern, but the ML
	// tier resolves first and halts the scan.
	dec := r.Resolve(snap, "informar_deuda", "si quiero", classification("CONFIRMACION", 0.92), debtorContext())

	assert.Equal(t, "cliente_confirma_interes", dec.DetectedCondition)
	assert.Equal(t, "proponer_planes_pago", dec.NextState)
	assert.Equal(t, domain.MethodMLMapping, dec.Method)
	assert.Equal(t, 0.92, dec.Confidence)
}

func TestResolve_BelowThresholdFallsToPatterns(t *testing.T) {
	r := NewResolver(zap.NewNop())
	snap := testSnapshot(t)

	dec := r.Resolve(snap, "informar_deuda", "si quiero", classification("CONFIRMACION", 0.4), debtorContext())

	assert.Equal(t, domain.MethodKeywordPattern, dec.Method)
	assert.Equal(t, "cliente_confirma_interes", dec.DetectedCondition)
	assert.Equal(t, "proponer_planes_pago", dec.NextState)
	assert.Equal(t, "si", dec.MatchedPattern)
}

func TestResolve_UnmappedLabelFallsThrough(t *testing.T) {
	r := NewResolver(zap.NewNop())
	snap := testSnapshot(t)

	dec := r.Resolve(snap, "confirmar_plan_elegido", "confirmo y acepto", classification("SALUDO", 0.99), debtorContext())

	assert.Equal(t, domain.MethodConditionEvaluator, dec.Method)
	assert.Equal(t, "cliente_confirma_acuerdo", dec.DetectedCondition)
	assert.Equal(t, "generar_acuerdo", dec.NextState)
}

func TestResolve_NoTierChangesState(t *testing.T) {
	r := NewResolver(zap.NewNop())
	snap := testSnapshot(t)

	dec := r.Resolve(snap, "informar_deuda", "mensaje neutro", domain.Unknown(), domain.NewContext())

	assert.Equal(t, domain.ConditionNoTransition, dec.DetectedCondition)
	assert.Equal(t, "informar_deuda", dec.NextState)
	assert.Equal(t, domain.MethodNoChange, dec.Method)
	assert.Zero(t, dec.Confidence)
}

func TestResolve_NoOpConditionDoesNotSwallowLaterTiers(t *testing.T) {
	r := NewResolver(zap.NewNop())
	cfg := testFlowConfig()
	// Self-loop: the default for confirmar_plan_elegido points back at
	// itself, so a condition that misses required_condition is a no-op
	// and must not terminate the scan.
	cfg.MLMappings = append(cfg.MLMappings, domain.ConditionMapping{
		Label: "CONSULTA_DEUDA", Condition: "consulta_info", ConfidenceThreshold: 0.5,
	})
	snap := buildSnapshotForTest(t, cfg)

	dec := r.Resolve(snap, "confirmar_plan_elegido", "confirmo acepto todo", classification("CONSULTA_DEUDA", 0.9), debtorContext())

	assert.Equal(t, domain.MethodConditionEvaluator, dec.Method)
	assert.Equal(t, "generar_acuerdo", dec.NextState)
}

func TestResolve_EquivalenceSatisfiesLogicalCondition(t *testing.T) {
	r := NewResolver(zap.NewNop())
	snap := testSnapshot(t)
	cctx := debtorContext()

	for _, msg := range []string{"prefiero pago unico", "mejor en cuotas"} {
		dec := r.Resolve(snap, "proponer_planes_pago", msg, domain.Unknown(), cctx)
		assert.Equal(t, "confirmar_plan_elegido", dec.NextState, msg)
		assert.Equal(t, domain.MethodKeywordPattern, dec.Method, msg)
	}
}

func TestResolve_UnmetConditionFollowsOnFalse(t *testing.T) {
	r := NewResolver(zap.NewNop())
	snap := testSnapshot(t)

	// RECHAZO maps to cliente_rechaza, which does not satisfy
	// informar_deuda's required condition, so the state follows on_false.
	dec := r.Resolve(snap, "informar_deuda", "no me interesa nada de eso", classification("RECHAZO", 0.9), debtorContext())

	assert.Equal(t, "cliente_rechaza", dec.DetectedCondition)
	assert.Equal(t, "gestionar_objecion", dec.NextState)
}

func TestApplyCondition_Fallbacks(t *testing.T) {
	r := NewResolver(zap.NewNop())
	snap := testSnapshot(t)

	// Unknown current state stays put.
	assert.Equal(t, "no_existe", r.applyCondition(snap, "no_existe", "cedula_detectada"))

	// Terminal state with no transitions stays put.
	assert.Equal(t, "generar_acuerdo", r.applyCondition(snap, "generar_acuerdo", "cliente_confirma_interes"))
}

func TestApplyCondition_DanglingTargetDegradesToCurrent(t *testing.T) {
	r := NewResolver(zap.NewNop())
	cfg := testFlowConfig()
	cfg.States = append(cfg.States, domain.StateDefinition{
		Name:              "roto",
		RequiredCondition: "cedula_detectada",
		OnTrue:            "estado_inexistente",
	})
	snap := buildSnapshotForTest(t, cfg)

	assert.Equal(t, "roto", r.applyCondition(snap, "roto", "cedula_detectada"))
}

func TestApplyCondition_TerminalTargetIsAllowed(t *testing.T) {
	r := NewResolver(zap.NewNop())
	cfg := testFlowConfig()
	cfg.States = append(cfg.States, domain.StateDefinition{
		Name:              "despedida",
		RequiredCondition: "cliente_confirma_acuerdo",
		OnTrue:            domain.StateTerminal,
	})
	snap := buildSnapshotForTest(t, cfg)

	assert.Equal(t, domain.StateTerminal, r.applyCondition(snap, "despedida", "cliente_confirma_acuerdo"))
}

func TestResolve_ThresholdBoundaryIsInclusive(t *testing.T) {
	r := NewResolver(zap.NewNop())
	snap := testSnapshot(t)

	dec := r.Resolve(snap, "validar_documento", "texto sin patrones", classification("IDENTIFICACION", 0.8), domain.NewContext())
	assert.Equal(t, domain.MethodMLMapping, dec.Method)

	dec = r.Resolve(snap, "validar_documento", "texto sin patrones", classification("IDENTIFICACION", 0.7999), domain.NewContext())
	assert.Equal(t, domain.MethodNoChange, dec.Method)
}

func TestResolve_RandomizedConfidenceRespectsThreshold(t *testing.T) {
	r := NewResolver(zap.NewNop())
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		threshold := rng.Float64()
		conf := rng.Float64()

		cfg := testFlowConfig()
		cfg.MLMappings = []domain.ConditionMapping{
			{Label: "IDENTIFICACION", Condition: "cedula_detectada", ConfidenceThreshold: threshold},
		}
		snap := buildSnapshotForTest(t, cfg)

		dec := r.Resolve(snap, "validar_documento", "texto sin patrones", classification("IDENTIFICACION", conf), domain.NewContext())
		if conf >= threshold {
			require.Equal(t, domain.MethodMLMapping, dec.Method, fmt.Sprintf("confidence %f threshold %f", conf, threshold))
			require.Equal(t, conf, dec.Confidence)
		} else {
			require.Equal(t, domain.MethodNoChange, dec.Method, fmt.Sprintf("confidence %f threshold %f", conf, threshold))
		}
	}
}
