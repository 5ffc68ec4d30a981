// Package sigex implements the external signing authority boundary over
// its HTTP API. The authority is a black box: this package only shapes
// requests, decodes responses and classifies failures.
package sigex

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/qazdocs/docsign/internal/core/domain"
	"github.com/qazdocs/docsign/internal/core/ports"
	"github.com/qazdocs/docsign/internal/infrastructure/resilience"
)

const (
	qrSignFormat = 0
	qrVersion    = 25
	qrLevel      = "M"
)

// Observer receives one observation per authority request.
type Observer interface {
	ObserveAuthorityRequest(operation, status string, elapsed time.Duration)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	observer   Observer
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

func WithObserver(observer Observer) Option {
	return func(c *Client) { c.observer = observer }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetNonce(ctx context.Context) (string, error) {
	var response struct {
		Nonce string `json:"nonce"`
	}
	err := c.call(ctx, "auth.nonce", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/auth", map[string]any{}, &response, "auth.nonce")
	})
	if err != nil {
		return "", err
	}
	return response.Nonce, nil
}

func (c *Client) VerifyAuth(ctx context.Context, nonce, signature string) (*ports.AuthVerification, error) {
	request := map[string]any{
		"nonce":     nonce,
		"signature": signature,
		"external":  true,
	}
	var response struct {
		Subject    string `json:"subject"`
		UserID     string `json:"userId"`
		BusinessID string `json:"businessId"`
	}
	err := c.call(ctx, "auth.verify", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/auth", request, &response, "auth.verify")
	})
	if err != nil {
		return nil, err
	}
	return &ports.AuthVerification{
		Subject:    response.Subject,
		UserID:     response.UserID,
		BusinessID: response.BusinessID,
	}, nil
}

func (c *Client) Register(ctx context.Context, req ports.RegisterRequest) (string, error) {
	request := map[string]any{
		"title":       req.Title,
		"description": req.Description,
		"signType":    req.SignType,
		"signature":   req.Signature,
		"settings": map[string]any{
			"signaturesLimit": req.SignaturesLimit,
			"uniqueness":      req.Uniqueness,
		},
	}
	var response struct {
		DocumentID json.Number `json:"documentId"`
	}
	err := c.call(ctx, "register", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/register", request, &response, "register")
	})
	if err != nil {
		return "", err
	}
	if response.DocumentID.String() == "" {
		return "", domain.WrapError(domain.ErrUpstreamUnavailable, "register",
			fmt.Errorf("authority returned no document id"))
	}
	return response.DocumentID.String(), nil
}

func (c *Client) UploadContent(ctx context.Context, externalID string, content []byte) error {
	return c.call(ctx, "upload", func(ctx context.Context) error {
		return c.postBinary(ctx, "/api/"+externalID+"/data", content, "upload")
	})
}

func (c *Client) AddSignature(ctx context.Context, externalID, signature string) error {
	request := map[string]any{
		"signType":  "cms",
		"signature": signature,
	}
	var ack map[string]any
	return c.call(ctx, "addsign", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/"+externalID, request, &ack, "addsign")
	})
}

func (c *Client) FetchSignatures(ctx context.Context, externalID string) ([]domain.RawSignature, error) {
	var response struct {
		SignaturesTotal int                   `json:"signaturesTotal"`
		Signatures      []domain.RawSignature `json:"signatures"`
	}
	err := c.call(ctx, "signatures", func(ctx context.Context) error {
		return c.getJSON(ctx, "/api/"+externalID, &response, "signatures")
	})
	if err != nil {
		return nil, err
	}
	return response.Signatures, nil
}

func (c *Client) FetchQR(ctx context.Context, externalID string, signID int64) ([][]byte, error) {
	path := fmt.Sprintf("/api/%s/signature/%d/qr?signFormat=%d&qrVersion=%d&qrLevel=%s",
		externalID, signID, qrSignFormat, qrVersion, qrLevel)

	var response struct {
		QRCodes []string `json:"qrCodes"`
	}
	err := c.call(ctx, "qr", func(ctx context.Context) error {
		return c.getJSON(ctx, path, &response, "qr")
	})
	if err != nil {
		return nil, err
	}

	codes := make([][]byte, 0, len(response.QRCodes))
	for i, encoded := range response.QRCodes {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode qr code %d: %w", i, err)
		}
		codes = append(codes, raw)
	}
	return codes, nil
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "sigex."+operation, fn, classifyAuthorityError)
	} else {
		err = fn(ctx)
	}
	if c.observer != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.observer.ObserveAuthorityRequest(operation, status, time.Since(start))
	}
	return err
}
