package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

const maxBodySize = 32 << 20

// Client fetches feed documents and image assets over HTTP
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP transport
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// GetBody performs a GET and returns the response body.
// Non-2xx responses and network failures are reported as domain.ErrFetchFailed.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	body, _, err := c.get(ctx, url)
	return body, err
}

// GetAsset performs a GET and returns the body with its content type
func (c *Client) GetAsset(ctx context.Context, url string) ([]byte, string, error) {
	return c.get(ctx, url)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: %s returned HTTP %d", domain.ErrFetchFailed, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading body: %v", domain.ErrFetchFailed, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// LastModified performs a HEAD and returns the Last-Modified header.
// The second return value is false when the request failed or the header is absent.
func (c *Client) LastModified(ctx context.Context, url string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", false
	}
	c.decorate(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false
	}
	value := strings.TrimSpace(resp.Header.Get("Last-Modified"))
	return value, value != ""
}

func (c *Client) decorate(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.8")
}
