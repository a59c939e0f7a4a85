package payment

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

	"go-engsite/internal/model"
)

var (
	// ErrDisabled is returned while payments are switched off in config.
	ErrDisabled = errors.New("payments are disabled")
	// ErrProvider wraps every failed or rejected collection request.
	ErrProvider = errors.New("payment provider error")
)

// Request is what the site sends to the mobile-money provider.
type Request struct {
	Reference string  `json:"externalId"`
	Phone     string  `json:"accountNumber"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Provider  string  `json:"provider,omitempty"`
}

// Response is the provider's answer to a collection request.
type Response struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Message       string `json:"message"`
}

// Provider starts a mobile-money collection.
type Provider interface {
	Initiate(ctx context.Context, req Request) (Response, error)
}

// NoopProvider is installed while payments are disabled.
type NoopProvider struct{}

func (NoopProvider) Initiate(context.Context, Request) (Response, error) {
	return Response{}, ErrDisabled
}

// ProviderError reports a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider returned %d: %s", e.StatusCode, e.Body)
}

// HTTPProvider posts JSON to a checkout endpoint with a bearer API key.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPProvider returns a provider for endpoint. A zero timeout means 30s.
func NewHTTPProvider(endpoint, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Initiate(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("calling payment provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Response{}, fmt.Errorf("reading payment provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Response{}, fmt.Errorf("decoding payment provider response: %w", err)
	}
	return out, nil
}

func validStatus(s model.PaymentStatus) bool {
	return s == model.PaymentPending || s == model.PaymentCompleted || s == model.PaymentFailed
}
