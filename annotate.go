package ledger

import (
	"strings"
	"time"
)

// Annotation carries the lot details a commodity may be decorated with: the
// price it was acquired at, the acquisition date, and a free-form tag. Each
// field is optional; the zero Annotation means "no details".
type Annotation struct {
	Price *Amount
	Date  time.Time
	Tag   string
}

// annotationDateLayout is the canonical date rendering inside "[...]".
const annotationDateLayout = "2006-01-02"

// IsZero reports whether the annotation carries no details at all.
func (a Annotation) IsZero() bool {
	return a.Price == nil && a.Date.IsZero() && a.Tag == ""
}

// Equal reports structural equality of two annotations. Prices compare by
// value and commodity, dates by instant, tags literally.
func (a Annotation) Equal(o Annotation) bool {
	switch {
	case (a.Price == nil) != (o.Price == nil):
		return false
	case a.Price != nil && (!a.Price.Commodity().Equal(o.Price.Commodity()) || !a.Price.Equal(*o.Price)):
		return false
	}
	return a.Date.Equal(o.Date) && a.Tag == o.Tag
}

// keep returns a copy retaining only the requested subset of details.
func (a Annotation) keep(price, date, tag bool) Annotation {
	var out Annotation
	if price {
		out.Price = a.Price
	}
	if date {
		out.Date = a.Date
	}
	if tag {
		out.Tag = a.Tag
	}
	return out
}

// String renders the annotation in its canonical input form, price first:
// " {$20.00} [2024-03-01] (lot-a)". The leading space separates it from a
// preceding symbol; an empty annotation renders as "".
func (a Annotation) String() string {
	var b strings.Builder
	if a.Price != nil {
		b.WriteString(" {")
		b.WriteString(a.Price.FullString())
		b.WriteByte('}')
	}
	if !a.Date.IsZero() {
		b.WriteString(" [")
		b.WriteString(a.Date.Format(annotationDateLayout))
		b.WriteByte(']')
	}
	if a.Tag != "" {
		b.WriteString(" (")
		b.WriteString(a.Tag)
		b.WriteByte(')')
	}
	return b.String()
}
