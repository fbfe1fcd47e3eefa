package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"candybowl/internal/agent"
	"candybowl/internal/apperr"
	"candybowl/internal/config"
	"candybowl/internal/policy"
)

const (
	defaultProviderTimeout = 90 * time.Second
	maxResponseTokens      = 20000
)

// NewModel builds the hosted-model backend named by model.provider.
func NewModel(cfg config.Config, logger *slog.Logger) (agent.Model, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pName := strings.ToLower(strings.TrimSpace(cfg.Model.Provider))
	endpoint, err := providerEndpoint(cfg, pName)
	if err != nil {
		return nil, err
	}
	apiKey := config.ResolveSecret(endpoint.APIKey, endpoint.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("model provider %q is missing API key (set %s or providers.%s.api_key)", pName, endpoint.APIKeyEnv, pName)
	}

	base := strings.TrimRight(strings.TrimSpace(endpoint.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("model provider %q requires a base_url", pName)
	}

	timeout := defaultProviderTimeout
	if cfg.Model.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Model.TimeoutSeconds) * time.Second
	}
	maxTokens := cfg.Model.MaxTokens
	if maxTokens < 0 || maxTokens > maxResponseTokens {
		maxTokens = maxResponseTokens
	}

	common := httpBackend{
		providerName: pName,
		modelName:    cfg.Model.Name,
		baseURL:      base,
		apiKey:       apiKey,
		headers:      copyHeaders(endpoint.Headers),
		httpClient:   &http.Client{Timeout: timeout},
		timeout:      timeout,
		temperature:  cfg.Model.Temperature,
		maxTokens:    maxTokens,
		logger:       logger.With("provider", pName, "model", cfg.Model.Name),
	}

	if pName == "gemini" {
		return &GeminiModel{httpBackend: common}, nil
	}
	common.baseURL = strings.TrimSuffix(common.baseURL, "/chat/completions")
	return &OpenAIModel{httpBackend: common}, nil
}

func providerEndpoint(cfg config.Config, provider string) (config.ProviderEndpointConfig, error) {
	switch provider {
	case "gemini":
		return cfg.Providers.Gemini, nil
	case "openai":
		return cfg.Providers.OpenAI, nil
	case "openrouter":
		return cfg.Providers.OpenRouter, nil
	case "generic":
		return cfg.Providers.Generic, nil
	default:
		return config.ProviderEndpointConfig{}, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func copyHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// httpBackend carries what both wire formats share: endpoint, credentials
// and one JSON POST round trip.
type httpBackend struct {
	providerName string
	modelName    string
	baseURL      string
	apiKey       string
	headers      map[string]string
	httpClient   *http.Client
	timeout      time.Duration
	temperature  float64
	maxTokens    int
	logger       *slog.Logger
}

func (b *httpBackend) ProviderName() string { return b.providerName }
func (b *httpBackend) ModelName() string    { return b.modelName }

// postJSON sends body to url and decodes the reply into out. Non-2xx replies
// are decoded into errOut when it is non-nil and reported as model errors.
func (b *httpBackend) postJSON(ctx context.Context, op, url string, setAuth func(*http.Request), body, out any, errText func() string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return apperr.Wrap(apperr.KindModel, op, err)
	}

	if b.httpClient == nil {
		b.httpClient = &http.Client{Timeout: defaultProviderTimeout}
	}
	reqCtx, cancel := ensureProviderRequestTimeout(ctx, b.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return apperr.New(apperr.KindModel, op, b.redact(err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if setAuth != nil {
		setAuth(httpReq)
	}
	for k, v := range b.headers {
		httpReq.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		msg := b.redact(err.Error())
		b.logger.Warn("model request failed", "error", msg)
		return apperr.New(apperr.KindModel, op, msg)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.New(apperr.KindModel, op, b.redact(fmt.Sprintf("decode provider response (status=%d): %v", resp.StatusCode, err)))
	}
	b.logger.Debug("model request complete", "status", resp.StatusCode, "duration", time.Since(started))
	if resp.StatusCode >= 300 {
		detail := ""
		if errText != nil {
			detail = errText()
		}
		return apperr.New(apperr.KindModel, op, b.redact(fmt.Sprintf("provider %s request failed: status=%d error=%s", b.providerName, resp.StatusCode, detail)))
	}
	return nil
}

// redact keeps the API key and header values out of anything that reaches
// users or logs.
func (b *httpBackend) redact(s string) string {
	secrets := []string{b.apiKey}
	for _, v := range b.headers {
		secrets = append(secrets, v)
	}
	return policy.RedactSecrets(s, secrets...)
}

func ensureProviderRequestTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// argsObject turns raw tool-call arguments into a JSON object, treating
// empty input as {}.
func argsObject(raw json.RawMessage) map[string]any {
	out := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
