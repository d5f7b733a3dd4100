package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDebtorNotFound is returned by DebtorStore when no account matches
// the document.
var ErrDebtorNotFound = errors.New("debtor not found")

// FlowStore loads the flow configuration from the external config
// store. Implementations return the records as of now; the engine
// snapshots and caches them.
type FlowStore interface {
	LoadFlowConfig(ctx context.Context) (*FlowConfig, error)
}

// Debtor is the flat record returned by the external account lookup.
type Debtor struct {
	Document     string
	Name         string
	Bank         string
	Product      string
	Balance      int64
	Offer1       int64
	Offer2       int64
	DiscountPct1 int
	DiscountPct2 int
	MinPayment   int64
	Installments int
}

// DebtorStore resolves an identification document extracted from user
// text to a debtor record. Not found is ErrDebtorNotFound, not an
// empty record.
type DebtorStore interface {
	LookupByDocument(ctx context.Context, document string) (*Debtor, error)
}

// DecisionRecord is the audit row persisted per resolve call.
// Recording is best effort and never affects the request.
type DecisionRecord struct {
	ID                uuid.UUID
	ConversationID    string
	CurrentState      string
	UserMessage       string
	Label             string
	LabelConfidence   float64
	DetectedCondition string
	Method            DetectionMethod
	NextState         string
	Confidence        float64
	Elapsed           time.Duration
	CreatedAt         time.Time
}

type DecisionLogStore interface {
	Record(ctx context.Context, rec *DecisionRecord) error
}

// ResponseEnhancer optionally rewrites a rendered message into a
// richer one. Errors or empty results leave the original untouched.
type ResponseEnhancer interface {
	Enhance(ctx context.Context, message string, cctx *ConversationContext) (string, error)
}
