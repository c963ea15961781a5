// Package ingest notifies the mailbox ingestion service that a credential
// became available.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
)

// WatchPath is the ingestion service endpoint that (re)establishes a mailbox watch.
const WatchPath = "/gmail/watch"

const maxErrorBody = 512

type watchRequest struct {
	Email string `json:"email"`
}

// Client calls the ingestion service. The zero base URL disables it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a base URL was configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Watch asks the ingestion service to watch email's mailbox. bearer is the
// user's application access token, not the provider token.
func (c *Client) Watch(ctx context.Context, email, bearer string) error {
	if !c.Enabled() {
		return apperrors.ErrIngestDisabled
	}

	body, err := json.Marshal(watchRequest{Email: email})
	if err != nil {
		return fmt.Errorf("[ingest Watch] marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+WatchPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("[ingest Watch] new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("[ingest Watch] %w: %v", apperrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("[ingest Watch] %w: status %d: %s", apperrors.ErrTransport, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
