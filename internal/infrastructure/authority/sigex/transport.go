package sigex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/infrastructure/resilience"
)

// statusError carries the HTTP status so the classifier can separate
// retryable authority failures from permanent rejections.
type statusError struct {
	Operation string
	Code      int
	Body      string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sigex %s status %d", e.Operation, e.Code)
	}
	return fmt.Sprintf("sigex %s status %d: %s", e.Operation, e.Code, e.Body)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), out, operation)
}

func (c *Client) postBinary(ctx context.Context, path string, content []byte, operation string) error {
	return c.do(ctx, http.MethodPost, path, "application/octet-stream", bytes.NewReader(content), nil, operation)
}

func (c *Client) getJSON(ctx context.Context, path string, out any, operation string) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out, operation)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrUpstreamUnavailable, "sigex "+operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return domain.WrapError(domain.ErrUpstreamUnavailable, "sigex "+operation, &statusError{
			Operation: operation,
			Code:      resp.StatusCode,
			Body:      strings.TrimSpace(string(raw)),
		})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapError(domain.ErrUpstreamUnavailable, "sigex "+operation,
			fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func classifyAuthorityError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}

	var status *statusError
	if errors.As(err, &status) {
		// 5xx is worth a retry, a 4xx rejection is not.
		if status.Code >= 500 {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	// Transport-level failure.
	if domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
