package holiday

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rpggio/plantrack/internal/observability"
)

const defaultTimeout = 10 * time.Second

// Client fetches holiday tables over HTTP.
type Client struct {
	httpClient *http.Client
	urlPattern string
	logger     *slog.Logger
}

// NewClient creates a client for urlPattern, which must contain a %d verb for
// the year. Empty values fall back to the defaults.
func NewClient(urlPattern string, timeout time.Duration, logger *slog.Logger) *Client {
	if urlPattern == "" {
		urlPattern = DefaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		urlPattern: urlPattern,
		logger:     logger,
	}
}

// Fetch downloads and parses the holidays of year.
func (c *Client) Fetch(ctx context.Context, year int) (days map[string]string, err error) {
	defer func() { observability.RecordHolidayFetch(err) }()

	url := c.urlPattern
	if strings.Contains(url, "%d") {
		url = fmt.Sprintf(url, year)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build holiday request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch holidays %d: %w", year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch holidays %d: unexpected status %s", year, resp.Status)
	}
	days, err = Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse holidays %d: %w", year, err)
	}
	c.logger.Debug("fetched holidays", "year", year, "count", len(days))
	return days, nil
}
