package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lingomark/lingomark"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider using OpenAI's chat completion API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey      string  // OpenAI API key (uses OPENAI_API_KEY env var if empty)
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Translate translates a batch of texts using OpenAI.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	systemPrompt := p.buildSystemPrompt(req)
	userMessage := p.buildUserMessage(req)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, &lingomark.ProviderError{
			Provider:  p.Name(),
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &lingomark.ProviderError{
			Provider:  p.Name(),
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	translations, err := p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
	if err != nil {
		return nil, err
	}

	return translations, nil
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	targetName := lingomark.GetLanguageName(req.TargetLang)

	sourceText := "Detect the source language automatically."
	if req.SourceLang != "" {
		sourceText = fmt.Sprintf("The source language is %s.", lingomark.GetLanguageName(req.SourceLang))
	}

	contextText := "The texts are short passages highlighted on web pages."
	if req.Context != "" {
		contextText = fmt.Sprintf("The texts were highlighted inside the following passage. Use it to disambiguate, but translate only the provided texts:\n%s", req.Context)
	}

	prompt := fmt.Sprintf(`# Role
You are an expert native translator. You translate short passages into %s with the fluency of a highly educated native speaker.

# Source
%s

# Context
%s

# Task
Translate each provided text into idiomatic %s.

# Style Guide
- **Natural Flow**: Avoid literal translations. Rephrase so the result sounds natural to a native speaker.
- **Idioms**: Never translate idioms word for word. Use the natural %s equivalent.
- **Fidelity**: Keep the meaning, register, and approximate length of the original.
- **No Extras**: Do not add explanations, notes, or alternative renderings.`, targetName, sourceText, contextText, targetName, targetName)

	prompt += `

# Format
Return a valid JSON object with a single key "translations" containing an array of strings in the exact same order as the input.
Example: { "translations": ["translated string 1", "translated string 2"] }
- Do NOT wrap in Markdown code blocks.`

	return prompt
}

func (p *OpenAIProvider) buildUserMessage(req TranslateRequest) string {
	data, _ := json.Marshal(req.Texts)
	return string(data)
}

func (p *OpenAIProvider) parseResponse(content string, expectedCount int) ([]string, error) {
	// Try parsing as object first
	var objResult map[string]interface{}
	if err := json.Unmarshal([]byte(content), &objResult); err == nil {
		// Look for "translations" key
		if translations, ok := objResult["translations"]; ok {
			if arr, ok := translations.([]interface{}); ok {
				return toStringSlice(arr, expectedCount)
			}
		}

		// Fallback: find first array value
		for _, v := range objResult {
			if arr, ok := v.([]interface{}); ok {
				return toStringSlice(arr, expectedCount)
			}
		}
	}

	// Try parsing as direct array
	var arrResult []interface{}
	if err := json.Unmarshal([]byte(content), &arrResult); err == nil {
		return toStringSlice(arrResult, expectedCount)
	}

	return nil, &lingomark.ProviderError{
		Provider:  p.Name(),
		Message:   "invalid response format from OpenAI",
		Retryable: false,
	}
}

func toStringSlice(arr []interface{}, expectedCount int) ([]string, error) {
	result := make([]string, len(arr))
	for i, v := range arr {
		if s, ok := v.(string); ok {
			result[i] = s
		} else {
			result[i] = fmt.Sprintf("%v", v)
		}
	}

	if len(result) != expectedCount {
		return nil, &lingomark.CountMismatchError{
			Expected: expectedCount,
			Got:      len(result),
		}
	}

	return result, nil
}

func isRetryableError(err error) bool {
	// Check for common retryable conditions
	errStr := err.Error()
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"temporary",
		"503",
		"502",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(strings.ToLower(errStr), pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
