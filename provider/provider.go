// Package provider defines the translation provider interface and
// implementations. DeepLProvider talks to the DeepL HTTP API (the default
// backend), OpenAIProvider uses chat completions, and MockProvider keeps
// everything offline for tests and keyless setups.
package provider

import "github.com/lingomark/lingomark"

// Provider is the interface for translation backends.
// This is an alias to the main package interface for convenience.
type Provider = lingomark.Provider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = lingomark.TranslateRequest
