package enhance

import (
	"context"

	"github.com/mfcastellanos/negobot/internal/domain"
)

// MockEnhancer is a configurable enhancer for testing. Set the
// response fields to control what Enhance returns.
type MockEnhancer struct {
	EnhanceResponse string
	EnhanceError    error

	// Call tracking for assertions
	EnhanceCalls []string
}

func NewMockEnhancer() *MockEnhancer {
	return &MockEnhancer{}
}

func (m *MockEnhancer) Enhance(ctx context.Context, msg string, cctx *domain.ConversationContext) (string, error) {
	m.EnhanceCalls = append(m.EnhanceCalls, msg)
	if m.EnhanceError != nil {
		return "", m.EnhanceError
	}
	if m.EnhanceResponse != "" {
		return m.EnhanceResponse, nil
	}
	return msg, nil
}
