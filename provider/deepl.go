package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lingomark/lingomark"
)

const (
	deeplPaidEndpoint = "https://api.deepl.com/v2/translate"
	deeplFreeEndpoint = "https://api-free.deepl.com/v2/translate"

	// deeplFreeKeySuffix marks free-tier API keys, which must be sent to
	// the api-free host.
	deeplFreeKeySuffix = ":fx"
)

// DeepLProvider implements Provider using the DeepL translation API.
type DeepLProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// DeepLConfig holds configuration for the DeepL provider.
type DeepLConfig struct {
	APIKey   string        // DeepL API key; a ":fx" suffix selects the free endpoint
	Endpoint string        // Custom endpoint (optional, overrides key-based selection)
	Timeout  time.Duration // HTTP timeout (default: 30s)
	Client   *http.Client  // Custom HTTP client (optional)
}

// NewDeepLProvider creates a new DeepL provider.
func NewDeepLProvider(cfg DeepLConfig) *DeepLProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = deeplPaidEndpoint
		if strings.HasSuffix(cfg.APIKey, deeplFreeKeySuffix) {
			endpoint = deeplFreeEndpoint
		}
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &DeepLProvider{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		client:   client,
	}
}

// deeplResponse mirrors the DeepL API response body.
type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate translates a batch of texts using the DeepL API.
// It issues a single form-encoded POST per call and never retries on its own.
func (p *DeepLProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	form := url.Values{}
	form.Set("auth_key", p.apiKey)
	for _, text := range req.Texts {
		form.Add("text", text)
	}
	form.Set("target_lang", lingomark.WireTarget(req.TargetLang))
	if req.SourceLang != "" {
		form.Set("source_lang", strings.ToUpper(req.SourceLang))
	}
	if req.Context != "" {
		form.Set("context", req.Context)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &lingomark.ProviderError{
			Provider: p.Name(),
			Message:  "building DeepL request",
			Cause:    err,
		}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", lingomark.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &lingomark.ProviderError{
			Provider:  p.Name(),
			Message:   "DeepL API call failed",
			Cause:     err,
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &lingomark.ProviderError{
			Provider:  p.Name(),
			Message:   "reading DeepL response",
			Cause:     err,
			Retryable: true,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &lingomark.ProviderError{
			Provider:   p.Name(),
			Message:    fmt.Sprintf("DeepL API returned %s", http.StatusText(resp.StatusCode)),
			StatusCode: resp.StatusCode,
			Retryable:  isRetryableStatus(resp.StatusCode),
		}
	}

	var parsed deeplResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &lingomark.ProviderError{
			Provider: p.Name(),
			Message:  "invalid response format from DeepL",
			Cause:    err,
		}
	}

	if len(parsed.Translations) != len(req.Texts) {
		return nil, &lingomark.CountMismatchError{
			Expected: len(req.Texts),
			Got:      len(parsed.Translations),
		}
	}

	results := make([]string, len(parsed.Translations))
	for i, t := range parsed.Translations {
		results[i] = t.Text
	}
	return results, nil
}

// Name returns the provider identifier.
func (p *DeepLProvider) Name() string {
	return "deepl"
}

// isRetryableStatus reports whether an HTTP status is worth retrying:
// 429 (rate limited) and all 5xx responses.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Verify DeepLProvider implements Provider
var _ Provider = (*DeepLProvider)(nil)
