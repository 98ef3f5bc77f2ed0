package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bryanwahyu/synthscreen/internal/domain/screening"
)

// Client is the HTTP adapter for the opaque screening call, talking to a
// synthclient-compatible endpoint. The protocol behind that endpoint
// (keyserver/HDB communication, cryptography) is out of scope here; this
// adapter only moves the request config and the response JSON.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("engine base URL is empty: %w", screening.ErrEngineUnavailable)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}, nil
}

type screenRequest struct {
	Sequence string                  `json:"sequence"`
	Config   screening.RequestConfig `json:"config"`
}

// Screen implements the screening.Engine port. Any failure is returned
// verbatim to the caller, never swallowed.
func (c *Client) Screen(ctx context.Context, sequence string, cfg screening.RequestConfig) (*screening.Response, error) {
	body, err := json.Marshal(screenRequest{Sequence: sequence, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("encode screen request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/screen", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build screen request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("screen call: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("screen call failed: %s: %s", res.Status, strings.TrimSpace(string(msg)))
	}

	var out screening.Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode screen response: %w", err)
	}
	return &out, nil
}
