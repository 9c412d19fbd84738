package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amiyamandal-dev/podsync/internal/domain"
)

// apiClient calls the podsync HTTP API
type apiClient struct {
	base       string
	token      string
	httpClient *http.Client
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newAPIClient(base, token string, timeout time.Duration) *apiClient {
	return &apiClient{
		base:       strings.TrimRight(base, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) CreateFeed(ctx context.Context, req *domain.FeedCreateRequest) (*domain.FeedConfig, error) {
	var feed domain.FeedConfig
	if err := c.do(ctx, http.MethodPost, "/api/v1/feeds", req, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

func (c *apiClient) GetFeed(ctx context.Context, id string) (*domain.FeedConfig, error) {
	var feed domain.FeedConfig
	if err := c.do(ctx, http.MethodGet, "/api/v1/feeds/"+id, nil, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

func (c *apiClient) ListFeeds(ctx context.Context) ([]*domain.FeedConfig, error) {
	var feeds []*domain.FeedConfig
	if err := c.do(ctx, http.MethodGet, "/api/v1/feeds", nil, &feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

func (c *apiClient) ImportChunk(ctx context.Context, id string, offset, limit int) (*domain.ChunkResult, error) {
	var result domain.ChunkResult
	req := &domain.ChunkRequest{Offset: offset, Limit: limit}
	if err := c.do(ctx, http.MethodPost, "/api/v1/feeds/"+id+"/import/chunk", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: HTTP %d with unreadable body: %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return fmt.Errorf("%s %s: %s (HTTP %d)", method, path, env.Error, resp.StatusCode)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
