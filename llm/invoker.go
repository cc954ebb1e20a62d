package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/guardchat/orchestrator/domain"
	"github.com/guardchat/orchestrator/telemetry"
)

// Invoker dispatches a conversation to a model endpoint and returns the
// generated text.
type Invoker interface {
	Invoke(ctx context.Context, modelID string, history []domain.ChatMessage) (string, error)
}

// Ensure Client implements Invoker.
var _ Invoker = (*Client)(nil)

// Client is the HTTP model-endpoint client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	registry   *Registry
	tracer     trace.Tracer
}

// NewClient creates a new model-endpoint client.
func NewClient(baseURL, apiKey string, timeout time.Duration, tracer trace.Tracer) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		registry: NewRegistry(),
		tracer:   tracer,
	}
}

// Invoke sends history to modelID and returns the generated text. Token-usage
// counters, when the provider reports them, land on the span. Errors are
// recorded on the span and returned to the caller untouched; this component
// never swallows model failures.
func (c *Client) Invoke(ctx context.Context, modelID string, history []domain.ChatMessage) (text string, err error) {
	ctx, span := c.tracer.Start(ctx, "llm.invoke", trace.WithAttributes(
		telemetry.AttrModelID.String(modelID),
	))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
	}()

	adapter := c.registry.Select(modelID)

	body, err := adapter.BuildRequest(history)
	if err != nil {
		return "", fmt.Errorf("failed to build model request: %w", err)
	}

	endpoint := c.baseURL + "/model/" + url.PathEscape(modelID) + "/invoke"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model API error [%d]: %s", resp.StatusCode, string(respBody))
	}

	text, usage, err := adapter.ParseResponse(respBody)
	if err != nil {
		return "", err
	}

	span.SetAttributes(
		telemetry.AttrInputTokens.Int(usage.InputTokens),
		telemetry.AttrOutputTokens.Int(usage.OutputTokens),
		telemetry.AttrTotalTokens.Int(usage.TotalTokens),
		telemetry.AttrCacheReadTokens.Int(usage.CacheReadTokens),
		telemetry.AttrCacheWriteTokens.Int(usage.CacheWriteTokens),
	)
	return text, nil
}

// setHeaders sets common request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
