package reciters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mfarhan/tarteel/internal/domain"
)

const (
	defaultTimeout = 15 * time.Second
	userAgent      = "Tarteel/1.0"
)

// Client implements domain.ReciterDirectory against the public reciter
// listing endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new reciter directory client
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// Reciters fetches the full directory (Arabic listing)
func (c *Client) Reciters(ctx context.Context) ([]domain.Reciter, error) {
	query := url.Values{}
	query.Set("language", "ar")

	reqURL := fmt.Sprintf("%s/reciters?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("reciter directory request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("reciter directory request failed", "error", err)
		return nil, domain.ErrUpstreamUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("reciter directory error", "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var listing recitersResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse reciter listing: %w", err)
	}

	return mapReciters(listing.Reciters), nil
}
