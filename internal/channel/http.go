package channel

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
)

// HTTPTransport talks to the page bridge over its local HTTP endpoint.
// Requests POST to <base>/rpc as {"action": ..., "payload": ...}; health
// checks GET <base>/healthz. HTTP 410 from the bridge means the page context
// is gone; network-level failures are transient.
type HTTPTransport struct {
	base   string
	client *http.Client
}

func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{base: strings.TrimRight(baseURL, "/"), client: client}
}

type rpcRequest struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

type rpcResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func (t *HTTPTransport) Call(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{Action: action, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+"/rpc", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: bridge reported page gone", ErrContextInvalidated)
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: bridge status %d", ErrConnectionTransient, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("bridge status %d for %s", resp.StatusCode, action)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", action, err)
	}
	if !out.OK {
		return nil, fmt.Errorf("bridge error for %s: %s", action, out.Error)
	}
	return out.Result, nil
}

func (t *HTTPTransport) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.base+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionTransient, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge health status %d", resp.StatusCode)
	}
	return nil
}
