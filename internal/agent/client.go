package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const maxBody = 1 << 20

// Client talks to an agent service: GET lists its agents and POST asks one
// of them for an action.
type Client struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// NewClient returns a client for the agent service at url.
func NewClient(url string, logger *log.Logger) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.WithPrefix("agent-client").With("url", url),
	}
}

// List returns the names of the agents the service hosts.
func (c *Client) List(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var names []string
	if err := c.do(req, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// Agent returns the named agent hosted by the service.
func (c *Client) Agent(name string) Agent {
	return Func(func(ctx context.Context, r Request) (Response, error) {
		r.AgentName = name
		return c.Decide(ctx, r)
	})
}

// Decide POSTs r to the service as is.
func (c *Client) Decide(ctx context.Context, r Request) (Response, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	var resp Response
	if err := c.do(req, &resp); err != nil {
		return Response{}, err
	}
	c.logger.Debug("Agent decided", "agent", r.AgentName, "game", r.Game, "took", time.Since(start))

	if len(bytes.TrimSpace(resp.Action)) == 0 || string(bytes.TrimSpace(resp.Action)) == "null" {
		return Response{}, ErrNoAction
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, c.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: status %d: %s", req.Method, c.url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
