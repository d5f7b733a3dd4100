package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mfcastellanos/negobot/internal/domain"
	"go.uber.org/zap"
)

// testFlowConfig is a small but complete flow mirroring the production
// graph shape: identification, debt info, plan proposal, confirmation.
func testFlowConfig() *domain.FlowConfig {
	return &domain.FlowConfig{
		MLMappings: []domain.ConditionMapping{
			{Label: "IDENTIFICACION", Condition: "cedula_detectada", ConfidenceThreshold: 0.8},
			{Label: "CONFIRMACION", Condition: "cliente_confirma_interes", ConfidenceThreshold: 0.7},
			{Label: "RECHAZO", Condition: "cliente_rechaza", ConfidenceThreshold: 0.7},
		},
		KeywordPatterns: []domain.KeywordPattern{
			{Pattern: "pago unico", Condition: "cliente_selecciona_pago_unico", Confidence: 0.9, RequiresDebtor: true},
			{Pattern: "cuotas", Condition: "cliente_selecciona_cuotas", Confidence: 0.85, RequiresDebtor: true},
			{Pattern: "si", Condition: "cliente_confirma_interes", Confidence: 0.8},
			{Pattern: `^\s*\d{7,12}\s*$`, Condition: "cedula_detectada", Confidence: 0.95, Type: domain.PatternRegex},
		},
		Evaluators: []domain.EvaluatorSpec{
			{
				Name: "cliente_confirma_acuerdo", Kind: domain.EvaluatorKeywordRatio, SuccessThreshold: 0.5,
				KeywordRatio: &domain.KeywordRatioConfig{Keywords: []string{"confirmo", "acepto"}},
			},
		},
		States: []domain.StateDefinition{
			{
				Name:              "validar_documento",
				RequiredCondition: "cedula_detectada",
				OnTrue:            "informar_deuda",
				Template:          "Para continuar necesito tu número de cédula.",
			},
			{
				Name:              "informar_deuda",
				RequiredCondition: "cliente_confirma_interes",
				OnTrue:            "proponer_planes_pago",
				OnFalse:           "gestionar_objecion",
				Template:          "Hola {{nombre_cliente}}, tu saldo con {{banco}} es {{saldo_total}}. ¿Quieres conocer tus opciones?",
			},
			{
				Name:              "proponer_planes_pago",
				RequiredCondition: "cliente_selecciona_plan",
				OnTrue:            "confirmar_plan_elegido",
				OnFalse:           "gestionar_objecion",
				Template:          "Pago único por {{oferta_2}} o plan en cuotas de {{cuota_mensual}}. ¿Cuál prefieres?",
				Buttons: []domain.Button{
					{ID: "pago_unico", Label: "Pago único"},
					{ID: "cuotas", Label: "Plan en cuotas"},
				},
			},
			{
				Name:              "confirmar_plan_elegido",
				RequiredCondition: "cliente_confirma_acuerdo",
				OnTrue:            "generar_acuerdo",
				OnDefault:         "confirmar_plan_elegido",
				Template:          "¿Confirmas el plan seleccionado?",
			},
			{
				Name:     "generar_acuerdo",
				Template: "Perfecto {{nombre_cliente}}, tu acuerdo quedó registrado.",
			},
			{
				Name:              "gestionar_objecion",
				RequiredCondition: "cliente_confirma_interes",
				OnTrue:            "proponer_planes_pago",
				Template:          "Entiendo. ¿Hay algo que te preocupa?",
			},
		},
		Equivalences: domain.EquivalenceTable{
			"cliente_selecciona_plan": {"cliente_selecciona_pago_unico", "cliente_selecciona_cuotas"},
		},
		SystemVariables: map[string]string{
			"entidad":        "Entidad Financiera",
			"nombre_cliente": "Cliente",
		},
		VariableAliases: map[string]string{
			"saldo": "saldo_total",
		},
	}
}

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	return buildSnapshotForTest(t, testFlowConfig())
}

func buildSnapshotForTest(t *testing.T, cfg *domain.FlowConfig) *Snapshot {
	t.Helper()
	return buildSnapshot(cfg, SourceConfigStore, validator.New(validator.WithRequiredStructEnabled()), zap.NewNop())
}

func debtorContext() *domain.ConversationContext {
	cctx := domain.NewContext()
	cctx.Set(ContextKeyDebtorFound, domain.Bool(true))
	cctx.Set("nombre_cliente", domain.Text("María González"))
	cctx.Set("banco", domain.Text("Banco Popular"))
	cctx.Set("saldo_total", domain.Integer(2500000))
	cctx.Set("oferta_1", domain.Integer(2000000))
	cctx.Set("oferta_2", domain.Integer(1750000))
	return cctx
}

// fakeFlowStore hands out a configurable FlowConfig and counts loads.
// delay is fixed at construction and makes every load slow.
type fakeFlowStore struct {
	mu    sync.Mutex
	cfg   *domain.FlowConfig
	err   error
	loads int
	delay time.Duration
}

func (f *fakeFlowStore) LoadFlowConfig(ctx context.Context) (*domain.FlowConfig, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.err != nil {
		return nil, f.err
	}
	return f.cfg, nil
}

func (f *fakeFlowStore) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func (f *fakeFlowStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// fakeDebtorStore serves debtors keyed by document.
type fakeDebtorStore struct {
	debtors map[string]*domain.Debtor
	err     error
	delay   time.Duration
	calls   int
}

func (f *fakeDebtorStore) LookupByDocument(ctx context.Context, document string) (*domain.Debtor, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.debtors[document]
	if !ok {
		return nil, domain.ErrDebtorNotFound
	}
	return d, nil
}

type fakeDecisionLog struct {
	mu      sync.Mutex
	records []*domain.DecisionRecord
	err     error
}

func (f *fakeDecisionLog) Record(ctx context.Context, rec *domain.DecisionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeDecisionLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeEnhancer struct {
	reply string
	err   error
	calls int
}

func (f *fakeEnhancer) Enhance(ctx context.Context, message string, cctx *domain.ConversationContext) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return message, nil
}
