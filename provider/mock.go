package provider

import (
	"context"

	"github.com/lingomark/lingomark"
)

// MockProvider is a placeholder translation provider. The daemon falls back
// to it when no API credential is configured, and tests use it to keep
// everything offline.
type MockProvider struct {
	Translations map[string]string // Per-text overrides, mainly for tests
	CallCount    int               // Number of times Translate was called
	LastRequest  *TranslateRequest // Last request received
	Err          error             // If set, Translate returns this error
}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{},
	}
}

// Translate returns placeholder translations. Every text comes back with the
// mock prefix unless an override is seeded, so a missing credential is always
// visible in the output.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	m.CallCount++
	m.LastRequest = &req

	if m.Err != nil {
		return nil, m.Err
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if translation, ok := m.Translations[text]; ok {
			results[i] = translation
		} else {
			results[i] = lingomark.MockPrefix + text
		}
	}

	return results, nil
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string {
	return "mock"
}

// Reset resets the call count, last request, and forced error.
func (m *MockProvider) Reset() {
	m.CallCount = 0
	m.LastRequest = nil
	m.Err = nil
}

// Verify MockProvider implements Provider
var _ Provider = (*MockProvider)(nil)
