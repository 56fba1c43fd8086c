package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flowchat-be/pkg/apperror"
)

const DefaultTimeout = 30 * time.Second

type Config struct {
	BaseURL       string
	APIKey        string
	DefaultFlowID string
	Timeout       time.Duration
	// Tweaks are forwarded verbatim on every run.
	Tweaks map[string]any
}

type Client struct {
	BaseURL       string
	APIKey        string
	DefaultFlowID string
	Tweaks        map[string]any
	Strategies    []Strategy
	HTTPClient    *http.Client

	now func() time.Time
}

var _ Invoker = &Client{}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:        cfg.APIKey,
		DefaultFlowID: cfg.DefaultFlowID,
		Tweaks:        cfg.Tweaks,
		Strategies:    DefaultStrategies,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

type runRequest struct {
	InputValue string         `json:"input_value"`
	InputType  string         `json:"input_type"`
	OutputType string         `json:"output_type"`
	SessionID  string         `json:"session_id,omitempty"`
	Tweaks     map[string]any `json:"tweaks,omitempty"`
}

func (c *Client) Invoke(ctx context.Context, message, sessionID, workflowID string) (*Result, error) {
	flowID := workflowID
	if flowID == "" {
		flowID = c.DefaultFlowID
	}

	payload, err := json.Marshal(runRequest{
		InputValue: message,
		InputType:  "chat",
		OutputType: "chat",
		SessionID:  sessionID,
		Tweaks:     c.Tweaks,
	})
	if err != nil {
		return nil, apperror.Internal("marshal workflow request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.runURL(flowID), bytes.NewReader(payload))
	if err != nil {
		return nil, apperror.Internal("create workflow request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	start := c.now()
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	finished := c.now()

	extracted := Extract(body, c.Strategies)
	return &Result{
		Text:            extracted.Text,
		RemoteSessionID: extracted.RemoteSessionID,
		DurationMs:      finished.Sub(start).Milliseconds(),
		Timestamp:       finished.UTC(),
		Strategy:        extracted.Strategy,
	}, nil
}

func (c *Client) runURL(flowID string) string {
	if flowID == "" {
		return c.BaseURL + "/api/v1/run"
	}
	return c.BaseURL + "/api/v1/run/" + url.PathEscape(flowID) + "?stream=false"
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}

// do sends req and returns the body of a 2xx response. Transport failures and
// timeouts map to UpstreamUnavailable, other statuses to Upstream.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, apperror.UpstreamUnavailable(unavailableMessage(err), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.UpstreamUnavailable("read workflow response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.Upstream(resp.StatusCode, fmt.Sprintf("workflow engine returned status %d", resp.StatusCode))
	}
	return body, nil
}

func unavailableMessage(err error) string {
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "workflow engine timed out"
	}
	return "workflow engine unreachable"
}
