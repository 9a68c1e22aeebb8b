package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Provider supplies the current fiat price per unit of an asset.
type Provider interface {
	GetRate(ctx context.Context, symbol string) (float64, error)
}

// HTTPProvider fetches rates from a JSON endpoint of the form
// GET {base}?symbol=ETH -> {"symbol":"ETH","price":123.45}.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

// NewHTTPProvider creates an HTTP rate provider.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetRate fetches the current price for a symbol.
func (p *HTTPProvider) GetRate(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s?symbol=%s", p.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate request returned status %d", resp.StatusCode)
	}

	var body struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode rate response: %w", err)
	}

	return body.Price, nil
}
