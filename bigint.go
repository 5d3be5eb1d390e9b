package ledger

import (
	"fmt"
	"math/big"
	"strings"
)

// minExtendedDigits is the number of extra fractional digits every quotient
// carries past the operand precision.
const minExtendedDigits = 6

// bigint is an arbitrary-precision signed decimal: the represented value is
// num / 10^prec. prec is the internal precision of the value; arithmetic
// only ever grows it, display rounding happens at print time.
//
// A bigint is immutable after construction. Operations allocate fresh
// numerators, so sharing a *bigint between amounts is always safe.
type bigint struct {
	num  *big.Int
	prec int
}

var bigTen = big.NewInt(10)

// pow10 returns 10^n for n >= 0.
func pow10(n int) *big.Int {
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

func newBigint(num *big.Int, prec int) *bigint {
	return &bigint{num: num, prec: prec}
}

func bigintFromInt64(v int64) *bigint {
	return newBigint(big.NewInt(v), 0)
}

// bigintFromDigits builds a value from a cleaned digit string, e.g.
// ("1000", "005") => 1000.005 with precision 3.
func bigintFromDigits(intpart, fracpart string, neg bool) (*bigint, error) {
	digits := intpart + fracpart
	if digits == "" {
		return nil, fmt.Errorf("empty quantity: %w", ErrParse)
	}
	num, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("quantity %q: %w", digits, ErrParse)
	}
	if neg {
		num.Neg(num)
	}
	return newBigint(num, len(fracpart)), nil
}

func (q *bigint) isZero() bool {
	return q.num.Sign() == 0
}

func (q *bigint) sign() int {
	return q.num.Sign()
}

func (q *bigint) neg() *bigint {
	return newBigint(new(big.Int).Neg(q.num), q.prec)
}

func (q *bigint) abs() *bigint {
	return newBigint(new(big.Int).Abs(q.num), q.prec)
}

// aligned returns both numerators scaled to the common precision
// max(a.prec, b.prec) without mutating either operand.
func aligned(a, b *bigint) (x, y *big.Int, prec int) {
	switch {
	case a.prec == b.prec:
		return a.num, b.num, a.prec
	case a.prec < b.prec:
		x = new(big.Int).Mul(a.num, pow10(b.prec-a.prec))
		return x, b.num, b.prec
	default:
		y = new(big.Int).Mul(b.num, pow10(a.prec-b.prec))
		return a.num, y, a.prec
	}
}

func (q *bigint) add(r *bigint) *bigint {
	x, y, prec := aligned(q, r)
	return newBigint(new(big.Int).Add(x, y), prec)
}

func (q *bigint) sub(r *bigint) *bigint {
	x, y, prec := aligned(q, r)
	return newBigint(new(big.Int).Sub(x, y), prec)
}

func (q *bigint) mul(r *bigint) *bigint {
	return newBigint(new(big.Int).Mul(q.num, r.num), q.prec+r.prec)
}

// quo divides q by r, extending the dividend so the result carries
// minExtendedDigits fractional digits past the operand precision. The
// division truncates toward zero; the extension keeps enough digits for
// later display rounding to be exact.
func (q *bigint) quo(r *bigint) (*bigint, error) {
	if r.isZero() {
		return nil, ErrDivideByZero
	}
	prec := q.prec + r.prec + minExtendedDigits
	// q.num/10^qp / (r.num/10^rp) scaled to 10^prec.
	x := new(big.Int).Mul(q.num, pow10(prec-q.prec+r.prec))
	x.Quo(x, r.num)
	return newBigint(x, prec), nil
}

// cmp compares the mathematical values: -1 if q < r, 0 if equal, +1 if q > r.
// Values at different precisions compare equal iff they denote the same
// rational.
func (q *bigint) cmp(r *bigint) int {
	x, y, _ := aligned(q, r)
	return x.Cmp(y)
}

// rescale changes the precision to p. Widening pads the numerator with
// zeros; narrowing rounds half to even.
func (q *bigint) rescale(p int) *bigint {
	if p < 0 {
		p = 0
	}
	switch {
	case p == q.prec:
		return q
	case p > q.prec:
		return newBigint(new(big.Int).Mul(q.num, pow10(p-q.prec)), p)
	default:
		return q.roundNarrow(p, false)
	}
}

// roundAway changes the precision to p rounding half away from zero, the
// policy used for display values. Widening pads.
func (q *bigint) roundAway(p int) *bigint {
	if p < 0 {
		p = 0
	}
	switch {
	case p == q.prec:
		return q
	case p > q.prec:
		return newBigint(new(big.Int).Mul(q.num, pow10(p-q.prec)), p)
	default:
		return q.roundNarrow(p, true)
	}
}

// roundNarrow reduces precision to p < q.prec. With away set, ties round
// away from zero; otherwise ties round to even.
func (q *bigint) roundNarrow(p int, away bool) *bigint {
	div := pow10(q.prec - p)
	quo, rem := new(big.Int).QuoRem(q.num, div, new(big.Int))
	if rem.Sign() != 0 {
		twice := new(big.Int).Abs(rem)
		twice.Mul(twice, big.NewInt(2))
		switch twice.Cmp(div) {
		case +1:
			roundAwayFromZero(quo, q.num.Sign())
		case 0:
			if away || quo.Bit(0) == 1 {
				roundAwayFromZero(quo, q.num.Sign())
			}
		}
	}
	return newBigint(quo, p)
}

func roundAwayFromZero(quo *big.Int, sign int) {
	if sign < 0 {
		quo.Sub(quo, big.NewInt(1))
	} else {
		quo.Add(quo, big.NewInt(1))
	}
}

// trunc reduces precision to p, discarding extra digits toward zero.
func (q *bigint) trunc(p int) *bigint {
	if p >= q.prec {
		return q.rescale(p)
	}
	return newBigint(new(big.Int).Quo(q.num, pow10(q.prec-p)), p)
}

// isInt reports whether the value has no non-zero fractional digits.
func (q *bigint) isInt() bool {
	if q.prec == 0 {
		return true
	}
	rem := new(big.Int).Rem(q.num, pow10(q.prec))
	return rem.Sign() == 0
}

// int64 converts to int64, failing when the value is non-integral or out of
// range.
func (q *bigint) int64() (int64, error) {
	if !q.isInt() {
		return 0, ErrPrecisionLoss
	}
	n := q.trunc(0).num
	if !n.IsInt64() {
		return 0, ErrNotConvertible
	}
	return n.Int64(), nil
}

// float64 converts to the nearest float64. Precision loss is silent.
func (q *bigint) float64() float64 {
	f := new(big.Float).SetInt(q.num)
	if q.prec > 0 {
		f.Quo(f, new(big.Float).SetInt(pow10(q.prec)))
	}
	v, _ := f.Float64()
	return v
}

// text renders the plain decimal value at the internal precision, e.g.
// "-100.005" or "0.50".
func (q *bigint) text() string {
	s := new(big.Int).Abs(q.num).String()
	var b strings.Builder
	if q.num.Sign() < 0 {
		b.WriteByte('-')
	}
	if q.prec == 0 {
		b.WriteString(s)
		return b.String()
	}
	if len(s) <= q.prec {
		b.WriteByte('0')
		b.WriteByte('.')
		for i := len(s); i < q.prec; i++ {
			b.WriteByte('0')
		}
		b.WriteString(s)
		return b.String()
	}
	b.WriteString(s[:len(s)-q.prec])
	b.WriteByte('.')
	b.WriteString(s[len(s)-q.prec:])
	return b.String()
}
