// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pjq/chatcat/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTimeout is the timeout for non-streaming API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps response bodies.
	// SECURITY: size limit prevents memory exhaustion from a hostile server.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

var (
	// PERFORMANCE: shared HTTP client with connection pooling for all
	// request/response calls.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; streaming lifetime is
	// controlled through the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoAPIKey indicates a request was attempted without an API key.
	// Checked before any network traffic.
	ErrNoAPIKey = errors.New("API key is not set")

	// ErrNoResponse indicates the server answered without any choices.
	ErrNoResponse = errors.New("No response from assistant")
)

// APIError represents a non-2xx response from the chat endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status: %d", e.Status)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// wireMessage is the chat completions message envelope.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for /chat/completions.
type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []wireMessage `json:"messages"`
	Stream           bool          `json:"stream"`
	Temperature      float64       `json:"temperature,omitempty"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	TopP             float64       `json:"top_p,omitempty"`
	FrequencyPenalty float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  float64       `json:"presence_penalty,omitempty"`
}

// chatResponse is the non-streaming response body.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// modelsResponse is the /models listing body.
type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// apiErrorResponse is the error envelope some servers return.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one OpenAI-compatible provider. Safe for concurrent use;
// Configure swaps the provider atomically.
type Client struct {
	mu       sync.Mutex
	provider model.ModelProvider
	log      zerolog.Logger

	// cancel aborts the in-flight stream, if any.
	cancel context.CancelFunc
}

// NewClient creates a client configured against the given provider.
func NewClient(provider model.ModelProvider, log zerolog.Logger) *Client {
	return &Client{
		provider: provider,
		log:      log.With().Str("component", "chat").Logger(),
	}
}

// Configure swaps the active provider. A change of identity, credential, or
// base URL takes effect on the next request; an in-flight stream keeps the
// provider it started with.
func (c *Client) Configure(provider model.ModelProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := c.provider.ID != provider.ID ||
		c.provider.APIKey != provider.APIKey ||
		c.provider.BaseURL != provider.BaseURL
	c.provider = provider
	if changed {
		c.log.Info().Str("provider", provider.ID).Msg("provider reconfigured")
	}
}

// Provider returns the currently configured provider.
func (c *Client) Provider() model.ModelProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider
}

// resolveModel picks the request model: the conversation's configured model
// wins, then the provider's selected model, then the per-type default.
func resolveModel(provider model.ModelProvider, cfg model.ModelConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return provider.EffectiveModel()
}

// baseURL returns the provider base URL without a trailing slash.
func baseURL(provider model.ModelProvider) string {
	return strings.TrimSuffix(provider.BaseURL, "/")
}

// setHeaders sets the required request headers.
func setHeaders(req *http.Request, provider model.ModelProvider) {
	req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "chatcat/1.0")
}

// toWire converts conversation messages to the wire envelope, dropping
// error placeholders that never belong in the request context.
func toWire(messages []model.Message) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		if m.IsError {
			continue
		}
		out = append(out, wireMessage{Role: m.Role.String(), Content: m.Content})
	}
	return out
}

// =============================================================================
// NON-STREAMING SEND
// =============================================================================

// Send performs a blocking chat completion and returns the assistant reply.
func (c *Client) Send(ctx context.Context, messages []model.Message, cfg model.ModelConfig) (model.Message, error) {
	provider := c.Provider()
	if provider.APIKey == "" {
		return model.Message{}, ErrNoAPIKey
	}

	reqBody := chatRequest{
		Model:            resolveModel(provider, cfg),
		Messages:         toWire(messages),
		Stream:           false,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL(provider)+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, provider)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return model.Message{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return model.Message{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return model.Message{}, decodeError(resp.StatusCode, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Message{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return model.Message{}, ErrNoResponse
	}
	return model.NewAssistantMessage(parsed.Choices[0].Message.Content), nil
}

// =============================================================================
// AVAILABILITY AND MODELS
// =============================================================================

// IsAvailable probes the provider's /models route. Any 2xx counts as
// reachable; auth failures and network errors do not.
func (c *Client) IsAvailable(ctx context.Context) bool {
	provider := c.Provider()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL(provider)+"/models", nil)
	if err != nil {
		return false
	}
	setHeaders(req, provider)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("provider", provider.ID).Msg("availability probe failed")
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// ListModels fetches the provider's model list. OpenAI providers are
// filtered to chat-capable gpt- models. On failure the static per-type
// fallback list is returned together with the error, so callers can both
// populate the picker and surface the problem.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	provider := c.Provider()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL(provider)+"/models", nil)
	if err != nil {
		return provider.Type.FallbackModels(), err
	}
	setHeaders(req, provider)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("provider", provider.ID).Msg("model listing failed, using fallback")
		return provider.Type.FallbackModels(), err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return provider.Type.FallbackModels(), err
	}
	if resp.StatusCode != http.StatusOK {
		err := decodeError(resp.StatusCode, body)
		c.log.Warn().Err(err).Str("provider", provider.ID).Msg("model listing failed, using fallback")
		return provider.Type.FallbackModels(), err
	}

	var parsed modelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return provider.Type.FallbackModels(), fmt.Errorf("failed to parse models response: %w", err)
	}

	var models []string
	for _, m := range parsed.Data {
		if provider.Type == model.ProviderOpenAI && !strings.HasPrefix(m.ID, "gpt-") {
			continue
		}
		models = append(models, m.ID)
	}
	if len(models) == 0 {
		return provider.Type.FallbackModels(), nil
	}
	sort.Strings(models)
	return models, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// decodeError converts a non-2xx response into an APIError, picking up the
// server's error envelope when one is present.
func decodeError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
