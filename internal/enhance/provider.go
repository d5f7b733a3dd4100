// Package enhance holds the optional response-enhancement providers.
// An enhancer rewrites the engine's rendered reply into a warmer
// message; the conversation works identically without one.
package enhance

import (
	"fmt"

	"github.com/mfcastellanos/negobot/internal/domain"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
	ProviderNone   = "none"
)

// NewEnhancer creates an enhancer based on the provider name. The
// empty name and "none" disable enhancement.
func NewEnhancer(provider, apiKey string) (domain.ResponseEnhancer, error) {
	switch provider {
	case "", ProviderNone:
		return nil, nil

	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("ENHANCER_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIEnhancer(apiKey), nil

	case ProviderMock:
		return NewMockEnhancer(), nil

	default:
		return nil, fmt.Errorf("unknown enhancer provider: %s", provider)
	}
}
