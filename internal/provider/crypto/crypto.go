package crypto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/govalues/decimal"

	"unifiedprice/internal/httpx"
	"unifiedprice/internal/provider"
)

// Currency of every crypto price served by this provider.
const Currency = "USD"

// assetIDs maps short tickers to the upstream's canonical asset ids.
var assetIDs = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"usdt": "tether",
	"bnb":  "binancecoin",
	"xrp":  "ripple",
	"ada":  "cardano",
	"doge": "dogecoin",
	"sol":  "solana",
}

// Known reports whether ticker is in the ticker table, ignoring case.
func Known(ticker string) bool {
	_, ok := assetIDs[strings.ToLower(ticker)]
	return ok
}

// AssetID returns the asset id for ticker. Unknown tickers pass through lower-cased.
func AssetID(ticker string) string {
	t := strings.ToLower(ticker)
	if id, ok := assetIDs[t]; ok {
		return id
	}
	return t
}

// Config controls the crypto provider.
type Config struct {
	Name string
	URL  string // simple-price API base, e.g. https://api.coingecko.com
}

// Price is a USD spot price.
type Price struct {
	Price    decimal.Decimal
	Currency string
}

// Provider fetches spot prices from a simple-price JSON API.
type Provider struct {
	cfg    Config
	client *httpx.Client
	now    func() time.Time
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Crypto"
	}
	if cfg.URL == "" {
		cfg.URL = "https://api.coingecko.com"
	}
	return &Provider{cfg: cfg, client: hc, now: time.Now}
}

// WithClock replaces the clock used to date spot prices.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

func (p *Provider) Name() string { return p.cfg.Name }

// Fetch implements provider.Source. The upstream has no history, so date is
// ignored and the record is dated today (UTC).
func (p *Provider) Fetch(ctx context.Context, code string, _ time.Time) (provider.Record, error) {
	pr, err := p.FetchPrice(ctx, code)
	if err != nil {
		return provider.Record{}, err
	}
	return provider.Record{Price: pr.Price, Currency: pr.Currency, Date: provider.FormatDate(p.now())}, nil
}

func (p *Provider) FetchPrice(ctx context.Context, ticker string) (Price, error) {
	id := AssetID(ticker)
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	u := fmt.Sprintf("%s/api/v3/simple/price?%s", p.cfg.URL, q.Encode())

	body, err := p.client.Get(ctx, u, nil)
	if err != nil {
		return Price{}, fmt.Errorf("%w: %w", provider.ErrTransport, err)
	}

	// {"bitcoin":{"usd":67187.12}}
	var res map[string]map[string]json.Number
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&res); err != nil {
		return Price{}, fmt.Errorf("%w: decode simple price: %w", provider.ErrParse, err)
	}
	usd, ok := res[id]["usd"]
	if !ok || usd == "" {
		return Price{}, fmt.Errorf("%w: no usd price for %q", provider.ErrMissingData, id)
	}
	price, err := provider.ParseNumber(usd)
	if err != nil {
		return Price{}, err
	}
	if price.IsZero() {
		return Price{}, fmt.Errorf("%w: zero usd price for %q", provider.ErrMissingData, id)
	}
	return Price{Price: price, Currency: Currency}, nil
}
