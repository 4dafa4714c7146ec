package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"letterscribe/internal/services"
	"letterscribe/internal/transcription"
)

const (
	defaultHTTPTimeout = 300 * time.Second
	apiVersion         = "v1beta"
	retryInfoType      = "type.googleapis.com/google.rpc.RetryInfo"
	generateAction     = "generateContent"
)

// Config captures the runtime settings required to talk to Gemini.
type Config struct {
	APIKey  string
	BaseURL string
	// Model is the provider model name used by HealthCheck.
	Model          string
	TimeoutSeconds int
	// IncludeThoughts asks the service to return thought summaries.
	IncludeThoughts bool
}

// DefaultHTTPTimeout returns the default per-request timeout.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

// Client wraps the genai Models service.
type Client struct {
	cfg     Config
	models  *genai.Models
	timeout time.Duration
}

// Option customizes the client.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
}

// WithHTTPClient overrides the HTTP client used by the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", "new client", "api key required (set GEMINI_API_KEY or gemini.api_key)", nil)
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
		HTTPOptions: genai.HTTPOptions{
			APIVersion: apiVersion,
		},
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = normalizeBaseURL(cfg.BaseURL)
	}

	sdk, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{cfg: cfg, models: sdk.Models, timeout: timeout}, nil
}

// Generate sends one group's images and instruction and maps the response.
func (c *Client) Generate(ctx context.Context, req transcription.Request) (transcription.Result, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}
	if model == "" {
		return transcription.Result{}, &transcription.RemoteError{Kind: transcription.FailureStatus, Detail: "model name required"}
	}

	contents, config := c.buildRequest(req)
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.models.GenerateContent(callCtx, model, contents, config)
	if err != nil {
		if ctx.Err() != nil {
			return transcription.Result{}, ctx.Err()
		}
		return transcription.Result{}, classifyError(err)
	}
	return mapResponse(resp)
}

// HealthCheck verifies the API key and configured model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.Model == "" {
		return errors.New("gemini health: model required")
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	model, err := c.models.Get(callCtx, c.cfg.Model, nil)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("gemini health: %w", classifyError(err))
	}
	if !supportsGenerateContent(model) {
		return fmt.Errorf("gemini health: model %s does not support generateContent", c.cfg.Model)
	}
	return nil
}

func (c *Client) buildRequest(req transcription.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	parts := make([]*genai.Part, 0, len(req.Payload.Images)+1)
	for _, img := range req.Payload.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Payload.Instruction))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{}
	if instruction := strings.TrimSpace(req.SystemInstruction); instruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if c.cfg.IncludeThoughts {
		config.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}
	return contents, config
}

func mapResponse(resp *genai.GenerateContentResponse) (transcription.Result, error) {
	if resp == nil {
		return transcription.Result{}, &transcription.RemoteError{Kind: transcription.FailureEmpty, Detail: "empty response"}
	}
	raw, _ := json.MarshalIndent(resp, "", "  ")
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return transcription.Result{}, &transcription.RemoteError{
			Kind:   transcription.FailureBlocked,
			Detail: "prompt blocked: " + string(resp.PromptFeedback.BlockReason),
			Raw:    raw,
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return transcription.Result{}, &transcription.RemoteError{
			Kind:   transcription.FailureEmpty,
			Detail: "no candidates returned",
			Raw:    raw,
		}
	}

	candidate := resp.Candidates[0]
	result := transcription.Result{
		FinishReason: string(candidate.FinishReason),
		Blocked:      candidate.FinishReason == genai.FinishReasonSafety,
		ModelVersion: resp.ModelVersion,
		Raw:          raw,
	}
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.Thought {
				if t := strings.TrimSpace(part.Text); t != "" {
					result.Thoughts = append(result.Thoughts, t)
				}
				continue
			}
			text.WriteString(part.Text)
		}
	}
	result.Text = text.String()
	if usage := resp.UsageMetadata; usage != nil {
		result.Usage = transcription.Usage{
			PromptTokens:    int64(usage.PromptTokenCount),
			CandidateTokens: int64(usage.CandidatesTokenCount),
			ThoughtTokens:   int64(usage.ThoughtsTokenCount),
			TotalTokens:     int64(usage.TotalTokenCount),
		}
	}

	if strings.TrimSpace(result.Text) == "" {
		kind := transcription.FailureEmpty
		if result.Blocked {
			kind = transcription.FailureBlocked
		}
		return transcription.Result{}, &transcription.RemoteError{
			Kind:   kind,
			Detail: "candidate has no text (finish reason " + firstNonEmpty(result.FinishReason, "unknown") + ")",
			Raw:    raw,
		}
	}
	return result, nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return &transcription.RemoteError{Kind: transcription.FailureTransport, Err: err}
	}
	remote := &transcription.RemoteError{
		Kind:       transcription.FailureStatus,
		StatusCode: apiErr.Code,
		Detail:     strings.TrimSpace(apiErr.Message),
	}
	if raw, marshalErr := json.Marshal(apiErr); marshalErr == nil {
		remote.Raw = raw
	}
	if apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED" {
		remote.Kind = transcription.FailureRateLimited
		if delay, ok := retryInfoDelay(apiErr.Details); ok {
			remote.RetryAfter = delay
		}
	}
	if remote.Detail == "" {
		remote.Err = err
	}
	return remote
}

// retryInfoDelay extracts google.rpc.RetryInfo.retryDelay from error details.
func retryInfoDelay(details []map[string]any) (time.Duration, bool) {
	for _, fields := range details {
		if fields["@type"] != retryInfoType {
			continue
		}
		value, ok := fields["retryDelay"].(string)
		if !ok {
			continue
		}
		delay, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || delay < 0 {
			continue
		}
		return delay, true
	}
	return 0, false
}

func supportsGenerateContent(model *genai.Model) bool {
	if model == nil {
		return false
	}
	if len(model.SupportedActions) == 0 {
		return true
	}
	for _, action := range model.SupportedActions {
		if action == generateAction {
			return true
		}
	}
	return false
}

// normalizeBaseURL strips a trailing API version so configured endpoints
// may be written either way.
func normalizeBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/"+apiVersion)
	return base + "/"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
