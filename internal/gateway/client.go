package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrRejected marks errors where the gateway answered and refused the
// request, as opposed to a transport or decoding failure. Callers use
// errors.Is to tell a refusal from an unreachable gateway.
var ErrRejected = errors.New("request rejected")

// Envelope is the gateway's uniform response wrapper. Any response with
// Success=false is treated as a failure by this layer regardless of the
// payload shape.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination json.RawMessage `json:"pagination,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Client is a thin HTTP client for the remote data gateway REST API.
// It attaches the session token as a Bearer header when one is set and
// decodes the JSON response envelope.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a gateway client rooted at baseURL. Every request
// is bounded by timeout; a zero timeout disables the bound.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// SetToken installs the session token attached to subsequent requests.
// An empty string clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the currently installed session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// get performs a GET request and unmarshals the envelope data into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// post performs a POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// put performs a PUT request with a JSON body.
func (c *Client) put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// delete performs a DELETE request.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do is the core HTTP method: it builds the request, attaches auth,
// checks the HTTP status and the envelope's success flag, and decodes
// the envelope data into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response body: %w", readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env Envelope
		if json.Unmarshal(respBody, &env) == nil && env.Message != "" {
			if resp.StatusCode < 500 {
				return fmt.Errorf("gateway error (%d) on %s %s: %s: %w",
					resp.StatusCode, method, path, env.Message, ErrRejected)
			}
			return fmt.Errorf("gateway error (%d) on %s %s: %s",
				resp.StatusCode, method, path, env.Message)
		}
		return fmt.Errorf("unexpected status %d on %s %s", resp.StatusCode, method, path)
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("unmarshaling envelope from %s %s: %w", method, path, err)
	}

	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "no reason given"
		}
		return fmt.Errorf("gateway rejected %s %s: %s: %w", method, path, msg, ErrRejected)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("unmarshaling data from %s %s: %w", method, path, err)
	}

	return nil
}
