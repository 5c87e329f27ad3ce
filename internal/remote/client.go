package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal client for the snapshot document API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Ping calls GET /v1/ping and returns nil only when status is 200.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/v1/ping", nil)
	if err != nil {
		return fmt.Errorf("call ping endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping failed with status %d", resp.StatusCode)
	}
	return nil
}

// Load calls GET /v1/users/{id}/snapshot. A 404 maps to ErrNotFound.
func (c *Client) Load(ctx context.Context, userID string) (*Document, error) {
	resp, err := c.do(ctx, http.MethodGet, documentPath(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, statusError("load snapshot", resp)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot document: %w", err)
	}
	return &doc, nil
}

// Save calls PUT /v1/users/{id}/snapshot with the whole document.
func (c *Client) Save(ctx context.Context, userID string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot document: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, documentPath(userID), body)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("save snapshot", resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

func documentPath(userID string) string {
	return "/v1/users/" + url.PathEscape(userID) + "/snapshot"
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	text := strings.TrimSpace(string(msg))
	if text == "" {
		return fmt.Errorf("%s failed with status %d", op, resp.StatusCode)
	}
	return fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, text)
}
