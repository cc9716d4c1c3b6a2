package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/govalues/decimal"
)

// DateLayout is the calendar-date format used on every upstream and in results.
const DateLayout = "2006-01-02"

// Record is the normalized shape returned by all price sources.
// Date and Kind are empty when the source does not report them.
type Record struct {
	Price    decimal.Decimal
	Currency string
	Date     string
	Kind     string
}

// Source resolves one instrument code. A zero date asks for the current price.
//
//go:generate mockgen -package=resolve_test -destination=../resolve/mock_source_test.go -source=provider.go Source
type Source interface {
	Name() string
	Fetch(ctx context.Context, code string, date time.Time) (Record, error)
}

// Failure kinds. Adapters wrap the underlying cause with one of these.
var (
	ErrTransport   = errors.New("transport error")
	ErrParse       = errors.New("parse error")
	ErrMissingData = errors.New("missing data")
	ErrNoData      = errors.New("no data")
)

// Kind names the failure kind of err for logging, or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrMissingData):
		return "missing_data"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "unknown"
}

// FormatDate renders t as a calendar date in UTC.
func FormatDate(t time.Time) string { return t.UTC().Format(DateLayout) }

// ParseNumber converts a JSON number into a decimal, falling back to a float
// round trip for exponent forms.
func ParseNumber(n json.Number) (decimal.Decimal, error) {
	s := strings.TrimSpace(n.String())
	if d, err := decimal.Parse(s); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: number %q", ErrParse, s)
	}
	d, err := decimal.NewFromFloat64(f)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: number %q: %w", ErrParse, s, err)
	}
	return d, nil
}
