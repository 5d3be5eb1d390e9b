package ledger

import (
	"fmt"
	"strings"

	"github.com/govalues/decimal"
)

// Decimal converts the amount's quantity to a [decimal.Decimal] for interop
// with fixed-precision code. Values whose internal precision exceeds
// [decimal.MaxScale] are first rescaled to it, rounding half to even as the
// decimal package itself does. The null amount converts to decimal zero.
//
// Decimal returns an error if the integer part does not fit the decimal
// type's 19-digit coefficient.
func (a Amount) Decimal() (decimal.Decimal, error) {
	if a.qty == nil {
		return decimal.Decimal{}, nil
	}
	q := a.qty
	if q.prec > decimal.MaxScale {
		q = q.rescale(decimal.MaxScale)
	}
	d, err := decimal.Parse(q.text())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("converting %v to decimal: %w", a, ErrNotConvertible)
	}
	return d, nil
}

// NewAmountFromDecimal converts a [decimal.Decimal] to an uncommoditized
// amount carrying the decimal's exact value and scale.
func NewAmountFromDecimal(d decimal.Decimal) Amount {
	s := d.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intpart, fracpart, _ := strings.Cut(s, ".")
	q, err := bigintFromDigits(intpart, fracpart, neg)
	if err != nil {
		// decimal.Decimal always renders parseable digits.
		panic(err)
	}
	return Amount{qty: q}
}
