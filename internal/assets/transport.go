package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTransport fetches URLs with a standard HTTP client. It is the default
// transport wired into a cache when none is injected.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport creates a transport with a conservative request timeout.
// The timeout bounds the whole download, not just connection setup; a fetch
// that exceeds it surfaces as a fetch error like any other network failure.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch downloads rawURL into dst. Any non-2xx status is a failure.
func (t *HTTPTransport) Fetch(ctx context.Context, rawURL string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	_, err = io.Copy(dst, resp.Body)
	return err
}
