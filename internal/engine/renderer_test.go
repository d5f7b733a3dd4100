package engine

import (
	"testing"
	"time"

	"github.com/mfcastellanos/negobot/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testRenderer() *Renderer {
	r := NewRenderer(zap.NewNop())
	r.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	return r
}

func TestRender_SubstitutesContextValues(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	got := r.Render(snap, "Hola {{nombre_cliente}}, tu saldo con {{banco}} es {{saldo_total}}.", debtorContext())
	assert.Equal(t, "Hola María González, tu saldo con Banco Popular es $2,500,000.", got)
}

func TestRender_MissingVariableKeepsVisibleMarker(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	cctx := domain.NewContext()
	cctx.Set("nombre", domain.Text("María"))

	got := r.Render(snap, "Hola {{nombre}}, tu saldo es {{balance}}", cctx)
	assert.Equal(t, "Hola María, tu saldo es [balance]", got)
}

func TestRender_IsIdempotent(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	once := r.Render(snap, "Hola {{nombre_cliente}}, saldo {{saldo_total}}, falta {{desconocida}}", debtorContext())
	twice := r.Render(snap, once, debtorContext())
	assert.Equal(t, once, twice)
}

func TestRender_SystemVariableFallback(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	// nombre_cliente is absent from the context but has a configured
	// system default.
	got := r.Render(snap, "Hola {{nombre_cliente}}, te atiende {{entidad}}", domain.NewContext())
	assert.Equal(t, "Hola Cliente, te atiende Entidad Financiera", got)
}

func TestRender_ContextShadowsSystemVariable(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	got := r.Render(snap, "Hola {{nombre_cliente}}", debtorContext())
	assert.Equal(t, "Hola María González", got)
}

func TestRender_AliasResolution(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	got := r.Render(snap, "Debes {{saldo}}", debtorContext())
	assert.Equal(t, "Debes $2,500,000", got)
}

func TestRender_CaseInsensitiveKeyMatch(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	cctx := domain.NewContext()
	cctx.Set("Nombre_Cliente", domain.Text("Pedro"))

	got := r.Render(snap, "Hola {{nombre_cliente}}", cctx)
	assert.Equal(t, "Hola Pedro", got)
}

func TestRender_WhitespaceInsidePlaceholder(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	got := r.Render(snap, "Hola {{ nombre_cliente }}", debtorContext())
	assert.Equal(t, "Hola María González", got)
}

func TestRender_DerivedDate(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	got := r.Render(snap, "Hoy es {{fecha}} ({{fecha_actual}})", domain.NewContext())
	assert.Equal(t, "Hoy es 15/03/2026 (15/03/2026)", got)
}

func TestRender_DerivedInstallmentAndSavings(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	cctx := debtorContext()
	cctx.Set("num_cuotas", domain.Integer(10))

	got := r.Render(snap, "Cuota: {{cuota_mensual}}, ahorras {{ahorro_oferta_1}}", cctx)
	assert.Equal(t, "Cuota: $250,000, ahorras $500,000", got)

	// Without num_cuotas the split defaults to 6.
	got = r.Render(snap, "{{cuota_mensual}}", debtorContext())
	assert.Equal(t, "$416,667", got)
}

func TestRender_DerivedSavingsRequiresConsistentOffer(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	cctx := domain.NewContext()
	cctx.Set("saldo_total", domain.Integer(1000))
	cctx.Set("oferta_1", domain.Integer(5000))

	// An offer above the balance cannot yield savings.
	got := r.Render(snap, "{{ahorro_oferta_1}}", cctx)
	assert.Equal(t, "[ahorro_oferta_1]", got)
}

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in   domain.Value
		want string
	}{
		{domain.Integer(1234567), "$1,234,567"},
		{domain.Real(1234567.49), "$1,234,567"},
		{domain.Real(1234567.5), "$1,234,568"},
		{domain.Text("1234567.00"), "$1,234,567"},
		{domain.Text("2500000"), "$2,500,000"},
		{domain.Integer(0), "$0"},
		{domain.Text("sin saldo"), "sin saldo"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatCurrency(tc.in), tc.in.Text())
	}
}

func TestRender_CurrencyOnlyForMonetaryNames(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)

	cctx := domain.NewContext()
	cctx.Set("saldo_total", domain.Integer(1234567))
	cctx.Set("num_cuotas", domain.Integer(12))

	got := r.Render(snap, "{{saldo_total}} en {{num_cuotas}} cuotas", cctx)
	assert.Equal(t, "$1,234,567 en 12 cuotas", got)
}

func TestRender_EmptyTemplate(t *testing.T) {
	r := testRenderer()
	snap := testSnapshot(t)
	assert.Equal(t, "", r.Render(snap, "", debtorContext()))
}
