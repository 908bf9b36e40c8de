// Package dispatch sends canonical payloads to the backend scoring service.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vitalink/platform/pkg/common/config"
	"github.com/vitalink/platform/pkg/common/httpclient"
	"golang.org/x/oauth2"
)

// DispatchErrorCode classifies a backend dispatch failure on the push
// surface, distinct from connector failures on the hospital side.
const DispatchErrorCode = "PIPE_DISPATCH_001"

// DispatchError is a non-success response from the backend. It propagates and
// aborts the run, matching connector-error treatment.
type DispatchError struct {
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dispatch failed: %v", e.Err)
	}
	return fmt.Sprintf("dispatch failed: backend returned status %d", e.StatusCode)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatcher sends one canonical payload and returns the backend response.
type Dispatcher interface {
	Send(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error)
}

type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds the backend client. When an API key is configured the
// bearer token rides on an oauth2 static token source wrapped around the
// tuned outbound transport.
func NewClient(cfg *config.Config) *Client {
	base := httpclient.New(cfg.RequestTimeout)

	client := base
	if cfg.BackendAPIKey != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		source := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.BackendAPIKey,
			TokenType:   "Bearer",
		})
		client = oauth2.NewClient(ctx, source)
		client.Timeout = cfg.RequestTimeout
	}

	return &Client{baseURL: cfg.BackendBaseURL, client: client}
}

func (c *Client) Send(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &DispatchError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &DispatchError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &DispatchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DispatchError{StatusCode: resp.StatusCode}
	}

	var response map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, &DispatchError{Err: err}
	}
	return response, nil
}
