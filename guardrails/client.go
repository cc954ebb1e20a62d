// Package guardrails screens text against an external content classifier and
// normalizes whatever the classifier reports into four fixed categories:
// harmful, hateful, sexual and toxic.
//
// Classifier failures never block the caller. Any transport, permission,
// quota or server error produces an outcome with Error set, zero scores and
// nothing filtered: the gate fails open.
package guardrails

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/guardchat/orchestrator/domain"
	"github.com/guardchat/orchestrator/telemetry"
)

// Classifier is the Safety Gate contract consumed by the orchestrator.
type Classifier interface {
	Classify(ctx context.Context, content string, direction domain.Direction) domain.GuardrailsOutcome
}

// Ensure Client implements Classifier.
var _ Classifier = (*Client)(nil)

// Client calls the classifier capability over HTTP.
type Client struct {
	baseURL          string
	guardrailID      string
	guardrailVersion string
	httpClient       *http.Client
	tracer           trace.Tracer
}

// NewClient creates a new classifier client.
func NewClient(baseURL, guardrailID, guardrailVersion string, timeout time.Duration, tracer trace.Tracer) *Client {
	return &Client{
		baseURL:          strings.TrimSuffix(baseURL, "/"),
		guardrailID:      guardrailID,
		guardrailVersion: guardrailVersion,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		tracer: tracer,
	}
}

// applyRequest is the wire request for the classifier capability.
type applyRequest struct {
	GuardrailIdentifier string `json:"guardrailIdentifier"`
	GuardrailVersion    string `json:"guardrailVersion"`
	Source              string `json:"source"`
	Content             string `json:"content"`
}

// applyResponse mirrors the classifier's assessment payload. Only the content
// policy filters are consumed here.
type applyResponse struct {
	Action      string       `json:"action,omitempty"`
	Assessments []assessment `json:"assessments"`
}

type assessment struct {
	ContentPolicy *contentPolicy `json:"contentPolicy,omitempty"`
}

type contentPolicy struct {
	Filters []contentFilter `json:"filters"`
}

type contentFilter struct {
	Type       string   `json:"type"`
	Action     string   `json:"action,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
	Score      *float64 `json:"score,omitempty"`
}

// Classify screens content for the given direction. The returned outcome is
// always fully populated; it never carries a Go error.
func (c *Client) Classify(ctx context.Context, content string, direction domain.Direction) domain.GuardrailsOutcome {
	ctx, span := c.tracer.Start(ctx, "guardrails.classify", trace.WithAttributes(
		telemetry.AttrDirection.String(string(direction)),
	))
	defer span.End()

	raw, err := c.apply(ctx, content, direction)
	if err != nil {
		telemetry.RecordError(span, err)
		span.SetAttributes(telemetry.AttrDegraded.Bool(true))
		return domain.GuardrailsOutcome{Error: failOpenMessage(err)}
	}

	results := normalize(raw)
	span.SetAttributes(telemetry.AttrFiltered.Bool(results.AnyFiltered()))
	return domain.GuardrailsOutcome{ContentFilterResults: results}
}

func (c *Client) apply(ctx context.Context, content string, direction domain.Direction) (*applyResponse, error) {
	body, err := json.Marshal(applyRequest{
		GuardrailIdentifier: c.guardrailID,
		GuardrailVersion:    c.guardrailVersion,
		Source:              string(direction),
		Content:             content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/guardrails/apply", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	var result applyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// statusError carries the classifier's HTTP status so the fail-open message
// can name the failure class.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("classifier API error [%d]: %s", e.code, e.body)
}

// failOpenMessage maps a classifier failure to the human-readable message
// surfaced on the outcome. The raw provider error stays in telemetry only.
func failOpenMessage(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == http.StatusUnauthorized || se.code == http.StatusForbidden:
			return "content classifier rejected our credentials; screening skipped"
		case se.code == http.StatusTooManyRequests:
			return "content classifier is throttling requests; screening skipped"
		case se.code >= 500:
			return "content classifier failed internally; screening skipped"
		default:
			return "content classifier returned an unexpected status; screening skipped"
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "content classifier timed out; screening skipped"
	}
	return "content classifier unreachable; screening skipped"
}
