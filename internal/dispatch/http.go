package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CalculationsPath is appended to the calculator base URL.
const CalculationsPath = "/api/prayer-debt/calculations"

// HTTP posts jobs to an external calculator service.
type HTTP struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTP targets baseURL. A nil client gets a 10 second timeout.
func NewHTTP(baseURL, apiKey string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{
		endpoint: strings.TrimRight(baseURL, "/") + CalculationsPath,
		apiKey:   apiKey,
		client:   client,
	}
}

// Dispatch sends req as JSON. Any non-2xx answer is an error.
func (h *HTTP) Dispatch(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("dispatch: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("dispatch: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("dispatch: post %s: %w", h.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("dispatch: calculator responded %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
