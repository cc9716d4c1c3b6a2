package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/govalues/decimal"
	"go.uber.org/zap"

	"unifiedprice/internal/provider"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrNoSource    = errors.New("no source for class")
)

// RateSource converts between currencies.
//
//go:generate mockgen -package=resolve_test -destination=mock_rates_test.go -source=resolve.go RateSource
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Request carries the caller's already-validated strings. Date is
// "YYYY-MM-DD" or empty; TargetCurrency is empty when no conversion is wanted.
type Request struct {
	Code           string `json:"code"`
	Date           string `json:"date,omitempty"`
	TargetCurrency string `json:"targetCurrency,omitempty"`
}

// Resolver routes a code to the source for its class and optionally converts
// the result. It keeps no state between calls.
type Resolver struct {
	sources map[Class]provider.Source
	rates   RateSource
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for soft failures.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func New(sources map[Class]provider.Source, rates RateSource, opts ...Option) *Resolver {
	r := &Resolver{
		sources: sources,
		rates:   rates,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the price for req, or nil when it cannot be resolved. The
// cause of a nil result is logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, req Request) (price *UnifiedPrice) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("resolve panicked", zap.String("code", req.Code), zap.Any("panic", rec))
			price = nil
		}
	}()

	p, err := r.Lookup(ctx, req)
	if err != nil {
		r.logger.Warn("price unavailable",
			zap.String("code", req.Code),
			zap.String("date", req.Date),
			zap.String("class", string(Classify(req.Code))),
			zap.String("kind", provider.Kind(err)),
			zap.Error(err))
		return nil
	}
	return p
}

// Lookup is Resolve with the failure cause kept. A failed conversion is not a
// failure: the unconverted price is returned.
func (r *Resolver) Lookup(ctx context.Context, req Request) (*UnifiedPrice, error) {
	class := Classify(req.Code)

	var date time.Time
	if req.Date != "" {
		d, err := time.Parse(provider.DateLayout, req.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
		}
		date = d
	}

	src, ok := r.sources[class]
	if !ok || src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, class)
	}
	rec, err := src.Fetch(ctx, req.Code, date)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", src.Name(), req.Code, err)
	}

	price := &UnifiedPrice{
		Price:    rec.Price,
		Currency: rec.Currency,
		Date:     rec.Date,
		Kind:     rec.Kind,
	}

	target := strings.ToUpper(strings.TrimSpace(req.TargetCurrency))
	if target == "" || target == price.Currency {
		return price, nil
	}
	return r.convert(ctx, price, target), nil
}

func (r *Resolver) convert(ctx context.Context, price *UnifiedPrice, target string) *UnifiedPrice {
	if r.rates == nil {
		r.logger.Warn("no rate source configured; returning unconverted price",
			zap.String("from", price.Currency), zap.String("to", target))
		return price
	}
	rate, err := r.rates.Rate(ctx, price.Currency, target)
	if err != nil {
		r.logger.Warn("conversion failed; returning unconverted price",
			zap.String("from", price.Currency),
			zap.String("to", target),
			zap.String("kind", provider.Kind(err)),
			zap.Error(err))
		return price
	}
	converted, err := price.Price.Mul(rate)
	if err != nil {
		r.logger.Warn("conversion overflow; returning unconverted price",
			zap.String("price", price.Price.String()),
			zap.String("rate", rate.String()),
			zap.Error(err))
		return price
	}
	original := price.Price
	return &UnifiedPrice{
		Price:            converted,
		Currency:         target,
		Date:             price.Date,
		Kind:             price.Kind,
		OriginalPrice:    &original,
		OriginalCurrency: price.Currency,
	}
}
