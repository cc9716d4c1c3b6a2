package fund

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"

	"unifiedprice/internal/httpx"
	"unifiedprice/internal/provider"
)

// Kind tells whether a NAV is an intraday estimate or a disclosed value.
type Kind string

const (
	Realtime   Kind = "realtime"
	Historical Kind = "historical"
)

// Currency of every fund NAV served by this provider.
const Currency = "CNY"

const (
	jsonpPrefix = "jsonpgz("
	jsonpSuffix = ");"
)

// Config controls the fund provider.
type Config struct {
	Name        string
	RealtimeURL string // JSONP estimate host, e.g. https://fundgz.1234567.com.cn
	HistoryURL  string // NAV history host, e.g. https://fund.eastmoney.com
	Referer     string
}

// NAV is a fund's per-unit net asset value as published, kept as text.
type NAV struct {
	Value string
	Date  string
	Kind  Kind
}

// Provider fetches fund NAVs from the real-time estimate feed or the
// historical NAV table.
type Provider struct {
	cfg    Config
	client *httpx.Client
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Fund"
	}
	if cfg.RealtimeURL == "" {
		cfg.RealtimeURL = "https://fundgz.1234567.com.cn"
	}
	if cfg.HistoryURL == "" {
		cfg.HistoryURL = "https://fund.eastmoney.com"
	}
	if cfg.Referer == "" {
		cfg.Referer = "https://fund.eastmoney.com/"
	}
	return &Provider{cfg: cfg, client: hc}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Fetch implements provider.Source. Prices are in CNY.
func (p *Provider) Fetch(ctx context.Context, code string, date time.Time) (provider.Record, error) {
	nav, err := p.FetchNAV(ctx, code, date)
	if err != nil {
		return provider.Record{}, err
	}
	price, err := provider.ParseNumber(json.Number(nav.Value))
	if err != nil {
		return provider.Record{}, fmt.Errorf("nav %q: %w", nav.Value, err)
	}
	return provider.Record{Price: price, Currency: Currency, Date: nav.Date, Kind: string(nav.Kind)}, nil
}

// FetchNAV returns the real-time estimate when date is zero, otherwise the
// NAV disclosed for that day.
func (p *Provider) FetchNAV(ctx context.Context, code string, date time.Time) (NAV, error) {
	if date.IsZero() {
		return p.realtime(ctx, code)
	}
	return p.historical(ctx, code, provider.FormatDate(date))
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Accept":  "*/*",
		"Referer": p.cfg.Referer,
	}
}

func (p *Provider) realtime(ctx context.Context, code string) (NAV, error) {
	u := fmt.Sprintf("%s/js/%s.js", p.cfg.RealtimeURL, url.PathEscape(code))
	raw, err := p.client.Get(ctx, u, p.headers())
	if err != nil {
		return NAV{}, fmt.Errorf("%w: %w", provider.ErrTransport, err)
	}
	text, err := simplifiedchinese.GBK.NewDecoder().Bytes(raw)
	if err != nil {
		return NAV{}, fmt.Errorf("%w: gbk decode: %w", provider.ErrParse, err)
	}
	return parseRealtime(string(text))
}

// estimate is the JSONP payload of the real-time feed. Values are strings upstream.
type estimate struct {
	Code        string `json:"fundcode"`
	Name        string `json:"name"`
	NAVDate     string `json:"jzrq"`
	NAV         string `json:"dwjz"`
	Estimate    string `json:"gsz"`
	Change      string `json:"gszzl"`
	EstimatedAt string `json:"gztime"`
}

func parseRealtime(text string) (NAV, error) {
	body := strings.TrimSpace(text)
	if !strings.HasPrefix(body, jsonpPrefix) || !strings.HasSuffix(body, jsonpSuffix) {
		return NAV{}, fmt.Errorf("%w: not a jsonpgz payload", provider.ErrParse)
	}
	body = body[len(jsonpPrefix) : len(body)-len(jsonpSuffix)]
	if strings.TrimSpace(body) == "" {
		return NAV{}, fmt.Errorf("%w: empty jsonpgz payload", provider.ErrMissingData)
	}

	var e estimate
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return NAV{}, fmt.Errorf("%w: decode estimate: %w", provider.ErrParse, err)
	}
	value := e.Estimate
	if value == "" {
		value = e.NAV
	}
	if value == "" {
		return NAV{}, fmt.Errorf("%w: neither gsz nor dwjz present", provider.ErrMissingData)
	}
	return NAV{Value: value, Date: e.NAVDate, Kind: Realtime}, nil
}

func (p *Provider) historical(ctx context.Context, code, day string) (NAV, error) {
	q := url.Values{}
	q.Set("type", "lsjz")
	q.Set("code", code)
	q.Set("sdate", day)
	q.Set("edate", day)
	q.Set("per", "1")
	u := fmt.Sprintf("%s/f10/F10DataApi.aspx?%s", p.cfg.HistoryURL, q.Encode())
	raw, err := p.client.Get(ctx, u, p.headers())
	if err != nil {
		return NAV{}, fmt.Errorf("%w: %w", provider.ErrTransport, err)
	}
	return parseHistory(string(raw))
}
