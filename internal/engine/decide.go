package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mfcastellanos/negobot/internal/classifier"
	"github.com/mfcastellanos/negobot/internal/domain"
	"go.uber.org/zap"
)

const (
	DefaultLookupTimeout = 1500 * time.Millisecond

	// Shown when the resolved state has no template or the graph has
	// no definition for it. Raw errors never reach the user.
	fallbackMessage = "No estoy seguro de entender. ¿Podrías ser más específico?"
)

var fallbackButtons = []domain.Button{
	{ID: "opciones", Label: "Ver opciones"},
	{ID: "asesor", Label: "Hablar con asesor"},
}

// DecideRequest is one conversation turn handed to the engine.
type DecideRequest struct {
	ConversationID string
	CurrentState   string
	Message        string
	Context        *domain.ConversationContext
}

// DecideResult is the engine's answer for one turn. Context carries
// the caller's context extended with whatever the turn discovered.
type DecideResult struct {
	NextState         string                      `json:"next_state"`
	Message           string                      `json:"message"`
	Buttons           []domain.Button             `json:"buttons"`
	DetectedCondition string                      `json:"detected_condition"`
	Confidence        float64                     `json:"confidence"`
	Method            domain.DetectionMethod      `json:"method"`
	Classification    domain.ClassificationResult `json:"classification"`
	Context           *domain.ConversationContext `json:"context"`
}

// Service wires the classifier, resolver and renderer behind the
// single Decide operation. Requests are stateless; the only shared
// state is the config cache.
type Service struct {
	classifier *classifier.Classifier
	cache      *Cache
	resolver   *Resolver
	renderer   *Renderer
	debtors    domain.DebtorStore
	decisions  domain.DecisionLogStore
	enhancer   domain.ResponseEnhancer

	lookupTimeout time.Duration
	logger        *zap.Logger
}

func NewService(cls *classifier.Classifier, cache *Cache, debtors domain.DebtorStore, logger *zap.Logger) *Service {
	return &Service{
		classifier:    cls,
		cache:         cache,
		resolver:      NewResolver(logger),
		renderer:      NewRenderer(logger),
		debtors:       debtors,
		lookupTimeout: DefaultLookupTimeout,
		logger:        logger,
	}
}

// SetDecisionLog enables best-effort decision auditing.
func (s *Service) SetDecisionLog(log domain.DecisionLogStore) { s.decisions = log }

// SetEnhancer enables optional response enhancement. The engine works
// identically when it is absent or failing.
func (s *Service) SetEnhancer(e domain.ResponseEnhancer) { s.enhancer = e }

func (s *Service) SetLookupTimeout(d time.Duration) {
	if d > 0 {
		s.lookupTimeout = d
	}
}

// Stats exposes the config cache state for diagnostics.
func (s *Service) Stats() CacheStats { return s.cache.Stats() }

// RefreshConfig forces a config reload outside the TTL cycle.
func (s *Service) RefreshConfig(ctx context.Context) error { return s.cache.Refresh(ctx) }

// Decide classifies the message, resolves the transition and renders
// the reply for the state the conversation lands on. It always returns
// a usable result; every internal failure has a degraded path.
func (s *Service) Decide(ctx context.Context, req DecideRequest) *DecideResult {
	snap := s.cache.Current(ctx)

	cctx := req.Context
	if cctx == nil {
		cctx = domain.NewContext()
	}

	cls := s.classifier.Classify(req.Message)

	if doc := ExtractDocument(req.Message); doc != "" {
		s.enrichFromLookup(ctx, cctx, doc)
	}

	dec := s.resolver.Resolve(snap, req.CurrentState, req.Message, cls, cctx)

	result := &DecideResult{
		NextState:         dec.NextState,
		DetectedCondition: dec.DetectedCondition,
		Confidence:        dec.Confidence,
		Method:            dec.Method,
		Classification:    cls,
		Context:           cctx,
	}

	if def, ok := snap.State(dec.NextState); ok && def.Template != "" {
		result.Message = s.renderer.Render(snap, def.Template, cctx)
		result.Buttons = def.Buttons
	} else {
		result.Message = fallbackMessage
		result.Buttons = fallbackButtons
	}

	s.enhance(ctx, result, cctx)
	s.record(ctx, req, cls, dec)

	return result
}

// enrichFromLookup performs the single blocking external call allowed
// per request: resolving a detected document to account data. Timeouts
// and misses leave the context as it was.
func (s *Service) enrichFromLookup(ctx context.Context, cctx *domain.ConversationContext, doc string) {
	cctx.Set("cedula_detectada", domain.Text(doc))
	if s.debtors == nil {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	debtor, err := s.debtors.LookupByDocument(lookupCtx, doc)
	if err != nil {
		if !errors.Is(err, domain.ErrDebtorNotFound) {
			s.logger.Warn("debtor lookup failed, continuing with existing context",
				zap.String("document", doc), zap.Error(err))
		}
		cctx.SetIfAbsent(ContextKeyDebtorFound, domain.Bool(false))
		return
	}

	cctx.Set(ContextKeyDebtorFound, domain.Bool(true))
	cctx.Set("nombre_cliente", domain.Text(debtor.Name))
	cctx.Set("banco", domain.Text(debtor.Bank))
	cctx.Set("saldo_total", domain.Integer(debtor.Balance))
	if debtor.Product != "" {
		cctx.Set("producto", domain.Text(debtor.Product))
	}
	if debtor.Offer1 > 0 {
		cctx.Set("oferta_1", domain.Integer(debtor.Offer1))
		cctx.Set("porcentaje_desc_1", domain.Integer(int64(debtor.DiscountPct1)))
	}
	if debtor.Offer2 > 0 {
		cctx.Set("oferta_2", domain.Integer(debtor.Offer2))
		cctx.Set("porcentaje_desc_2", domain.Integer(int64(debtor.DiscountPct2)))
	}
	if debtor.MinPayment > 0 {
		cctx.Set("pago_minimo", domain.Integer(debtor.MinPayment))
	}
	if debtor.Installments > 0 {
		cctx.Set("num_cuotas", domain.Integer(int64(debtor.Installments)))
	}
}

func (s *Service) enhance(ctx context.Context, result *DecideResult, cctx *domain.ConversationContext) {
	if s.enhancer == nil {
		return
	}
	enhanced, err := s.enhancer.Enhance(ctx, result.Message, cctx)
	if err != nil {
		s.logger.Debug("response enhancement failed, keeping rendered message", zap.Error(err))
		return
	}
	if len(enhanced) > 0 {
		result.Message = enhanced
	}
}

func (s *Service) record(ctx context.Context, req DecideRequest, cls domain.ClassificationResult, dec domain.TransitionDecision) {
	if s.decisions == nil {
		return
	}
	rec := &domain.DecisionRecord{
		ID:                uuid.New(),
		ConversationID:    req.ConversationID,
		CurrentState:      req.CurrentState,
		UserMessage:       req.Message,
		Label:             cls.Label,
		LabelConfidence:   cls.Confidence,
		DetectedCondition: dec.DetectedCondition,
		Method:            dec.Method,
		NextState:         dec.NextState,
		Confidence:        dec.Confidence,
		Elapsed:           dec.Elapsed,
		CreatedAt:         time.Now(),
	}
	if err := s.decisions.Record(ctx, rec); err != nil {
		s.logger.Warn("decision audit record failed", zap.Error(err))
	}
}
