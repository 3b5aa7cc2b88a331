// Package paste publishes text blobs to a hastebin-style paste service and
// returns the resulting URL. Uploads carry a short fixed timeout; callers
// treat failures as non-fatal.
package paste

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single upload.
const DefaultTimeout = 5 * time.Second

// Client is a paste service client.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the service at baseURL (e.g. https://hastebin.com).
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Publish uploads text and returns the URL of the created document.
func (c *Client) Publish(ctx context.Context, text string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents", strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read upload response: %w", err)
	}

	var decoded struct {
		Key     string `json:"key"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("unexpected upload response (status %d): %w", resp.StatusCode, err)
	}

	switch {
	case decoded.Key != "":
		return fmt.Sprintf("%s/%s.txt", c.baseURL, decoded.Key), nil
	case decoded.Message != "":
		return "", fmt.Errorf("upload rejected: %s", decoded.Message)
	default:
		return "", fmt.Errorf("upload failed with no error message (status %d)", resp.StatusCode)
	}
}
