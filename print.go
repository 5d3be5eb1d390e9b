package ledger

import (
	"io"
	"strings"
)

// print renders the amount in its commodity's learned style. The display
// value is rounded to the commodity's precision unless fullPrecision is
// requested or the amount was marked unrounded; uncommoditized numbers are
// never truncated. Scaling commodities are shown in their most compact unit
// unless the process-wide KeepBase toggle is set.
func (a Amount) print(w io.Writer, omitCommodity, fullPrecision bool) error {
	if a.qty == nil {
		_, err := io.WriteString(w, "<null>")
		return err
	}
	if !KeepBase {
		a = a.Unreduce()
	}

	comm := a.effComm()
	qty := a.qty
	if comm != nil && !fullPrecision && !a.keepPrec {
		qty = qty.roundAway(comm.Precision())
	}

	var style Style
	if comm != nil {
		style = comm.StyleFlags()
	}
	number := formatQuantity(qty, style)
	neg := strings.HasPrefix(number, "-")
	number = strings.TrimPrefix(number, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	switch {
	case comm == nil || omitCommodity:
		b.WriteString(number)
	case style&StyleSuffixed != 0:
		b.WriteString(number)
		if style&StyleSeparated != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(comm.Symbol())
	default:
		b.WriteString(comm.Symbol())
		if style&StyleSeparated != 0 {
			b.WriteByte(' ')
		}
		b.WriteString(number)
	}
	if comm != nil && !omitCommodity && comm.Annotated() {
		b.WriteString(comm.Details().String())
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// formatQuantity renders the digits with the style's separator marks:
// "," as the decimal mark and "." grouping under [StyleEuropean], grouping
// only under [StyleThousands].
func formatQuantity(q *bigint, style Style) string {
	text := q.text()
	neg := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")
	intpart, fracpart, _ := strings.Cut(text, ".")

	decimalMark, groupMark := byte('.'), byte(',')
	if style&StyleEuropean != 0 {
		decimalMark, groupMark = ',', '.'
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if style&StyleThousands == 0 || len(intpart) <= 3 {
		b.WriteString(intpart)
	} else {
		lead := len(intpart) % 3
		if lead > 0 {
			b.WriteString(intpart[:lead])
		}
		for i := lead; i < len(intpart); i += 3 {
			if i > 0 {
				b.WriteByte(groupMark)
			}
			b.WriteString(intpart[i : i+3])
		}
	}
	if fracpart != "" {
		b.WriteByte(decimalMark)
		b.WriteString(fracpart)
	}
	return b.String()
}
