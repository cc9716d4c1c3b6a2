package fx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/govalues/decimal"

	"unifiedprice/internal/httpx"
	"unifiedprice/internal/provider"
)

// Config controls the converter.
type Config struct {
	URL string // latest-rates API base, e.g. https://open.er-api.com
}

// Converter looks up exchange rates. Every call is a fresh round trip.
type Converter struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Converter {
	if cfg.URL == "" {
		cfg.URL = "https://open.er-api.com"
	}
	return &Converter{cfg: cfg, client: hc}
}

type latestResponse struct {
	Result    string                 `json:"result"`
	ErrorType string                 `json:"error-type"`
	Base      string                 `json:"base_code"`
	Rates     map[string]json.Number `json:"rates"`
}

// Rate returns how many units of to one unit of from buys.
func (c *Converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/v6/latest/%s", c.cfg.URL, url.PathEscape(from))
	body, err := c.client.Get(ctx, u, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %w", provider.ErrTransport, err)
	}

	var res latestResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: decode rates: %w", provider.ErrParse, err)
	}
	if res.Result == "error" {
		return decimal.Decimal{}, fmt.Errorf("%w: rates for %s: %s", provider.ErrMissingData, from, res.ErrorType)
	}
	raw, ok := res.Rates[to]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: no rate %s->%s", provider.ErrMissingData, from, to)
	}
	rate, err := provider.ParseNumber(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if rate.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%w: zero rate %s->%s", provider.ErrMissingData, from, to)
	}
	return rate, nil
}
