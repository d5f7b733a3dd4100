package engine

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/mfcastellanos/negobot/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// currencyPrefixes marks variable names rendered as thousands-grouped
// currency regardless of the numeric representation they arrive in.
var currencyPrefixes = []string{
	"saldo", "oferta_", "ahorro_", "pago_", "cuota", "capital", "intereses", "balance",
}

func isCurrencyVar(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

var currencyPrinter = message.NewPrinter(language.English)

// FormatCurrency renders any numeric representation (integer, real or
// numeric text) as a grouped integer amount with no fractional digits.
// Non-numeric values pass through untouched.
func FormatCurrency(v domain.Value) string {
	f, ok := v.Float()
	if !ok {
		return v.Text()
	}
	return currencyPrinter.Sprintf("$%d", int64(math.Round(f)))
}

// Renderer resolves {{name}} placeholders against the conversation
// context, the snapshot's alias table and system defaults, and a small
// set of derived values. Resolution is pure and idempotent: a fully
// rendered string contains no placeholders and re-renders unchanged.
type Renderer struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{logger: logger, now: time.Now}
}

func (r *Renderer) Render(snap *Snapshot, template string, cctx *domain.ConversationContext) string {
	if template == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(tok string) string {
		name := strings.TrimSpace(tok[2 : len(tok)-2])
		return r.resolve(snap, name, cctx)
	})
}

func (r *Renderer) resolve(snap *Snapshot, name string, cctx *domain.ConversationContext) string {
	// 1. direct key in the merged context
	if v, ok := lookupVar(snap, cctx, name); ok {
		return formatVar(name, v)
	}

	// 2. configured alias
	if alias, ok := snap.Aliases[name]; ok {
		if v, ok := lookupVar(snap, cctx, alias); ok {
			return formatVar(name, v)
		}
	}

	// 3. case-insensitive key match
	for _, key := range cctx.Keys() {
		if strings.EqualFold(key, name) {
			if v := cctx.Get(key); !v.IsAbsent() {
				return formatVar(name, v)
			}
		}
	}
	for key, val := range snap.SystemVars {
		if strings.EqualFold(key, name) {
			return formatVar(name, domain.Text(val))
		}
	}

	// 4. derived value
	if v, ok := r.derive(name, cctx); ok {
		return v
	}

	// 5. visible unresolved marker
	r.logger.Warn("unresolved template variable", zap.String("variable", name))
	return "[" + name + "]"
}

// lookupVar consults the caller context first, then the configured
// system defaults.
func lookupVar(snap *Snapshot, cctx *domain.ConversationContext, name string) (domain.Value, bool) {
	if v := cctx.Get(name); !v.IsAbsent() {
		return v, true
	}
	if val, ok := snap.SystemVars[name]; ok {
		return domain.Text(val), true
	}
	return domain.Absent(), false
}

func formatVar(name string, v domain.Value) string {
	if isCurrencyVar(name) {
		if _, numeric := v.Float(); numeric {
			return FormatCurrency(v)
		}
	}
	return v.Text()
}

// derive computes values that are conventionally available even when
// the lookup did not populate them.
func (r *Renderer) derive(name string, cctx *domain.ConversationContext) (string, bool) {
	switch name {
	case "fecha", "fecha_actual":
		return r.now().Format("02/01/2006"), true

	case "cuota_mensual":
		saldo, ok := cctx.Get("saldo_total").Float()
		if !ok || saldo <= 0 {
			return "", false
		}
		cuotas, ok := cctx.Get("num_cuotas").Float()
		if !ok || cuotas <= 0 {
			cuotas = 6
		}
		return FormatCurrency(domain.Real(saldo / cuotas)), true

	case "ahorro_oferta_1", "ahorro_oferta_2":
		saldo, ok := cctx.Get("saldo_total").Float()
		if !ok {
			return "", false
		}
		offerKey := "oferta_1"
		if name == "ahorro_oferta_2" {
			offerKey = "oferta_2"
		}
		oferta, ok := cctx.Get(offerKey).Float()
		if !ok || oferta <= 0 || oferta > saldo {
			return "", false
		}
		return FormatCurrency(domain.Real(saldo - oferta)), true
	}
	return "", false
}
