package resolve

import (
	"encoding/json"

	"github.com/govalues/decimal"
)

// UnifiedPrice is the single result shape of a resolution. OriginalPrice and
// OriginalCurrency are set only when a conversion took place; Currency is
// always the final currency.
type UnifiedPrice struct {
	Price            decimal.Decimal
	Currency         string
	Date             string
	Kind             string
	OriginalPrice    *decimal.Decimal
	OriginalCurrency string
}

// Converted reports whether a currency conversion was applied.
func (p *UnifiedPrice) Converted() bool { return p.OriginalPrice != nil }

type unifiedPriceJSON struct {
	Price            json.Number  `json:"price"`
	Currency         string       `json:"currency"`
	Date             string       `json:"date,omitempty"`
	Kind             string       `json:"kind,omitempty"`
	OriginalPrice    *json.Number `json:"originalPrice,omitempty"`
	OriginalCurrency string       `json:"originalCurrency,omitempty"`
}

// MarshalJSON writes prices as JSON numbers without trailing zeros.
func (p UnifiedPrice) MarshalJSON() ([]byte, error) {
	out := unifiedPriceJSON{
		Price:            number(p.Price),
		Currency:         p.Currency,
		Date:             p.Date,
		Kind:             p.Kind,
		OriginalCurrency: p.OriginalCurrency,
	}
	if p.OriginalPrice != nil {
		n := number(*p.OriginalPrice)
		out.OriginalPrice = &n
	}
	return json.Marshal(out)
}

func number(d decimal.Decimal) json.Number { return json.Number(d.Trim(0).String()) }
