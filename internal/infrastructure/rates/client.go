package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pledgehub/backend/internal/domain/currency"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
)

// feedPayload is the wire format of the exchange-rate feed. Rates are
// local currency units per 1 USD.
type feedPayload struct {
	Source string                 `json:"source"`
	Date   string                 `json:"date"`
	Rates  map[string]json.Number `json:"rates"`
}

// Client fetches USD cross rates from an HTTP JSON feed
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new rate feed client
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("rates"),
	}
}

// Fetch retrieves the current rate table from the feed
func (c *Client) Fetch(ctx context.Context) (*currency.RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate feed returned status %d", resp.StatusCode)
	}

	var payload feedPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode rate feed response: %w", err)
	}

	rates := make(map[valueobject.Currency]decimal.Decimal, len(payload.Rates))
	for code, raw := range payload.Rates {
		cur := valueobject.Currency(code)
		if !cur.IsSupported() {
			continue
		}
		rate, err := decimal.NewFromString(raw.String())
		if err != nil || !rate.IsPositive() {
			c.logger.Warn("Skipping invalid rate from feed",
				zap.String("currency", code),
				zap.String("value", raw.String()),
			)
			continue
		}
		rates[cur] = rate
	}

	if len(rates) == 0 {
		return nil, fmt.Errorf("rate feed returned no usable rates")
	}

	asOf := time.Now()
	if payload.Date != "" {
		if parsed, err := time.Parse("2006-01-02", payload.Date); err == nil {
			asOf = parsed
		}
	}

	source := payload.Source
	if source == "" {
		source = c.url
	}

	c.logger.Debug("Fetched rate table",
		zap.Int("currencies", len(rates)),
		zap.String("source", source),
	)

	return currency.NewRateTable(rates, asOf, source), nil
}
