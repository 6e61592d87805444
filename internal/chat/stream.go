// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pjq/chatcat/internal/model"
)

// STREAMING: robust SSE parsing with error handling

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Result is one streaming update. Message carries the complete accumulated
// content so far under a stable id; consumers replace, never append.
// Exactly one of the terminal conditions holds on the final value: Done is
// true or Err is non-nil.
type Result struct {
	Message model.Message
	Done    bool
	Err     error
}

// streamChunk is one SSE delta from the server.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the delta content from the first choice.
func (c *streamChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// done reports whether the server marked the stream finished.
func (c *streamChunk) done() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != ""
}

// =============================================================================
// STREAMING SEND
// =============================================================================

// SendStream performs a streaming chat completion. The returned channel
// delivers growing snapshots of the assistant reply and is closed after the
// terminal Result. Setup failures (missing key, bad request) are returned
// directly without touching the network.
func (c *Client) SendStream(ctx context.Context, messages []model.Message, cfg model.ModelConfig) (<-chan Result, error) {
	provider := c.Provider()
	if provider.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	reqBody := chatRequest{
		Model:            resolveModel(provider, cfg),
		Messages:         toWire(messages),
		Stream:           true,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	c.setCancel(cancel)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodPost, baseURL(provider)+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setHeaders(req, provider)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	results := make(chan Result, 64)
	go func() {
		defer close(results)
		defer cancel()
		c.runStream(streamCtx, req, results)
	}()
	return results, nil
}

// runStream performs the request and pumps snapshots into results.
func (c *Client) runStream(ctx context.Context, req *http.Request, results chan<- Result) {
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		results <- Result{Err: streamErr(ctx, err)}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		results <- Result{Err: decodeError(resp.StatusCode, body)}
		return
	}

	// One stable id for the whole reply; every snapshot reuses it.
	placeholder := model.NewAssistantMessage("")
	var buf strings.Builder

	reader := bufio.NewReader(resp.Body)
	for {
		select {
		case <-ctx.Done():
			results <- Result{Message: placeholder.WithContent(buf.String()), Err: ctx.Err()}
			return
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if buf.Len() == 0 {
					results <- Result{Err: ErrNoResponse}
					return
				}
				results <- Result{Message: placeholder.WithContent(buf.String()), Done: true}
				return
			}
			results <- Result{Message: placeholder.WithContent(buf.String()), Err: streamErr(ctx, err)}
			return
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == "[DONE]" {
			if buf.Len() == 0 {
				results <- Result{Err: ErrNoResponse}
				return
			}
			results <- Result{Message: placeholder.WithContent(buf.String()), Done: true}
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks; one bad event must not kill the stream.
			c.log.Debug().Err(err).Msg("skipping malformed stream chunk")
			continue
		}

		if content := chunk.content(); content != "" {
			buf.WriteString(content)
			results <- Result{Message: placeholder.WithContent(buf.String())}
		}
		if chunk.done() {
			if buf.Len() == 0 {
				results <- Result{Err: ErrNoResponse}
				return
			}
			results <- Result{Message: placeholder.WithContent(buf.String()), Done: true}
			return
		}
	}
}

// streamErr maps context cancellation onto ctx.Err so callers can
// distinguish a user cancel from a transport failure.
func streamErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("stream failed: %w", err)
}

// =============================================================================
// CANCELLATION
// =============================================================================

// setCancel registers the cancel function for the stream being started,
// aborting any previous stream first.
func (c *Client) setCancel(cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
}

// Cancel aborts the in-flight stream, if any. Safe to call repeatedly and
// when nothing is streaming.
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
