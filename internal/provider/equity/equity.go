package equity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/govalues/decimal"

	"unifiedprice/internal/httpx"
	"unifiedprice/internal/provider"
)

// Config controls the equity provider.
type Config struct {
	Name string
	URL  string // chart API base, e.g. https://query1.finance.yahoo.com
}

// Price is a single equity quote. Date is empty for current quotes.
type Price struct {
	Price    decimal.Decimal
	Currency string
	Date     string
}

// Provider fetches equity prices from a quote-chart JSON API.
type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Equity"
	}
	if cfg.URL == "" {
		cfg.URL = "https://query1.finance.yahoo.com"
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Fetch implements provider.Source.
func (p *Provider) Fetch(ctx context.Context, code string, date time.Time) (provider.Record, error) {
	pr, err := p.FetchPrice(ctx, code, date)
	if err != nil {
		return provider.Record{}, err
	}
	return provider.Record{Price: pr.Price, Currency: pr.Currency, Date: pr.Date}, nil
}

// FetchPrice returns the regular-market price when date is zero, otherwise the
// first daily close inside [date, date+1d). The bar returned by the upstream
// is not checked against the requested day, so holidays may yield an
// adjacent session.
func (p *Provider) FetchPrice(ctx context.Context, code string, date time.Time) (Price, error) {
	u := p.chartURL(code, date)
	body, err := p.client.Get(ctx, u, nil)
	if err != nil {
		return Price{}, fmt.Errorf("%w: %w", provider.ErrTransport, err)
	}

	var res chartResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		return Price{}, fmt.Errorf("%w: decode chart: %w", provider.ErrParse, err)
	}
	if len(res.Chart.Result) == 0 {
		if res.Chart.Error != nil {
			return Price{}, fmt.Errorf("%w: %s: %s", provider.ErrMissingData, res.Chart.Error.Code, res.Chart.Error.Description)
		}
		return Price{}, fmt.Errorf("%w: empty chart result for %s", provider.ErrMissingData, code)
	}
	r := res.Chart.Result[0]

	if date.IsZero() {
		return current(r)
	}
	return historical(r)
}

func (p *Provider) chartURL(code string, date time.Time) string {
	u := fmt.Sprintf("%s/v8/finance/chart/%s", p.cfg.URL, url.PathEscape(code))
	if date.IsZero() {
		return u
	}
	start := truncateDay(date)
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(start.AddDate(0, 0, 1).Unix(), 10))
	q.Set("interval", "1d")
	return u + "?" + q.Encode()
}

func current(r chartResult) (Price, error) {
	if r.Meta.RegularMarketPrice == "" {
		return Price{}, fmt.Errorf("%w: meta.regularMarketPrice", provider.ErrMissingData)
	}
	price, err := provider.ParseNumber(r.Meta.RegularMarketPrice)
	if err != nil {
		return Price{}, err
	}
	if price.IsZero() {
		return Price{}, fmt.Errorf("%w: meta.regularMarketPrice is zero", provider.ErrMissingData)
	}
	return Price{Price: price, Currency: r.Meta.Currency}, nil
}

func historical(r chartResult) (Price, error) {
	if len(r.Timestamp) == 0 || len(r.Indicators.Quote) == 0 || len(r.Indicators.Quote[0].Close) == 0 {
		return Price{}, fmt.Errorf("%w: no bar in window", provider.ErrMissingData)
	}
	ts := r.Timestamp[0]
	closePx := r.Indicators.Quote[0].Close[0]
	if ts == 0 || closePx == nil {
		return Price{}, fmt.Errorf("%w: no close in window", provider.ErrMissingData)
	}
	price, err := provider.ParseNumber(*closePx)
	if err != nil {
		return Price{}, err
	}
	if price.IsZero() {
		return Price{}, fmt.Errorf("%w: close is zero", provider.ErrMissingData)
	}
	return Price{
		Price:    price,
		Currency: r.Meta.Currency,
		Date:     provider.FormatDate(time.Unix(ts, 0)),
	}, nil
}

// truncateDay returns UTC midnight of t's calendar date as written.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Currency           string      `json:"currency"`
		Symbol             string      `json:"symbol"`
		RegularMarketPrice json.Number `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*json.Number `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}
