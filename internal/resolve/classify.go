package resolve

import (
	"regexp"

	"unifiedprice/internal/provider/crypto"
)

// Class is the kind of instrument a code refers to.
type Class string

const (
	Stock  Class = "stock"
	Fund   Class = "fund"
	Crypto Class = "crypto"
)

var fundCodeRe = regexp.MustCompile(`^[0-9]{6}$`)

// Classify maps any code to a Class. Six digits is a fund, a known crypto
// ticker (any case) is crypto, anything else is treated as a stock ticker.
func Classify(code string) Class {
	if fundCodeRe.MatchString(code) {
		return Fund
	}
	if crypto.Known(code) {
		return Crypto
	}
	return Stock
}
