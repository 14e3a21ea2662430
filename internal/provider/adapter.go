package provider

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

	"github.com/mcpgateway/mcpgw/internal/gwerrors"
)

// Adapter is the Provider Adapter: a capability-checked HTTP client for an
// OpenAI-Responses-style create/retrieve endpoint. Retry/backoff and error
// classification follow the teacher's providers.OpenAIProvider
// (internal/agent/providers/openai.go isRetryableError/maxRetries
// pattern), adapted from Chat Completions streaming to Responses-style
// request/response bodies.
type Adapter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
}

// NewAdapter builds an Adapter. baseURL defaults to the OpenAI API root
// when empty, matching OPENAI_BASE_URL being unset.
func NewAdapter(apiKey, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Adapter{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Create submits a new response creation request and returns its initial
// (possibly non-terminal) ProviderResponse.
func (a *Adapter) Create(ctx context.Context, req CreateRequest) (*ProviderResponse, error) {
	if a.apiKey == "" {
		return nil, gwerrors.New(gwerrors.KindProviderUnavailable, "provider API key not configured")
	}
	return a.doWithRetry(ctx, http.MethodPost, "/responses", req)
}

// Retrieve fetches the current state of a previously created response by
// id. Called by the Response Poller until the status is terminal.
func (a *Adapter) Retrieve(ctx context.Context, responseID string) (*ProviderResponse, error) {
	if a.apiKey == "" {
		return nil, gwerrors.New(gwerrors.KindProviderUnavailable, "provider API key not configured")
	}
	return a.doWithRetry(ctx, http.MethodGet, "/responses/"+responseID, nil)
}

func (a *Adapter) doWithRetry(ctx context.Context, method, path string, body any) (*ProviderResponse, error) {
	var lastErr error
	for attempt := 0; attempt < a.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, gwerrors.Wrap(gwerrors.KindCancelled, "provider call cancelled", ctx.Err())
			case <-time.After(a.retryDelay * time.Duration(attempt)):
			}
		}

		resp, err := a.do(ctx, method, path, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}
	return nil, gwerrors.Wrap(gwerrors.KindProviderTransport, "max retries exceeded", lastErr)
}

func (a *Adapter) do(ctx context.Context, method, path string, payload any) (*ProviderResponse, error) {
	var bodyReader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindInternal, "encode provider request", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bodyReader)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInternal, "build provider request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindProviderTransport, "provider request failed", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindProviderTransport, "read provider response", err)
	}

	if httpResp.StatusCode >= 400 {
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if jsonErr := json.Unmarshal(raw, &envelope); jsonErr == nil && envelope.Error != nil {
			return nil, gwerrors.Wrap(gwerrors.KindProviderRejected, envelope.Error.Message, envelope.Error)
		}
		return nil, gwerrors.New(gwerrors.KindProviderRejected, fmt.Sprintf("provider returned status %d", httpResp.StatusCode))
	}

	var pr ProviderResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindProviderTransport, "decode provider response", err)
	}
	if pr.Error != nil {
		return nil, gwerrors.Wrap(gwerrors.KindProviderRejected, pr.Error.Message, pr.Error).WithResponseID(pr.ID)
	}
	return &pr, nil
}

// isRetryable classifies transport-level failures (request errors whose
// text names a timeout, rate limit or 5xx code, or that report Timeout())
// as retryable, mirroring the teacher's isRetryableError. Any HTTP status
// >= 400 from the provider, including 429 and 5xx, is a ProviderRejected
// error and is never retried.
func isRetryable(err error) bool {
	if gwerrors.KindOf(err) == gwerrors.KindProviderRejected {
		return false
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, needle := range []string{"rate limit", "429", "500", "502", "503", "504", "timeout", "deadline exceeded"} {
		if strings.Contains(strings.ToLower(msg), needle) {
			return true
		}
	}
	return false
}
