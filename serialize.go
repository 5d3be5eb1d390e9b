package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Binary amount format: a presence byte (0x00 null, 0x01 present); the
// quantity as little-endian int32 scale, little-endian uint32 byte count
// and a big-endian two's-complement numerator; then the little-endian
// uint32 pool identifier of the commodity, 0 meaning none. The identifiers
// are only meaningful against the pool that produced them, so a pool
// snapshot is written first and restored first:
//
//	pool.Write(out)  a.WriteBinary(out)        // writing side
//	pool := ReadPool(in)  a.ReadBinary(pool, in)  // reading side

// WriteBinary writes the amount in the compact binary format.
func (a Amount) WriteBinary(w io.Writer) error {
	if a.qty == nil {
		_, err := w.Write([]byte{0x00})
		return err
	}
	if _, err := w.Write([]byte{0x01}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(a.qty.prec)); err != nil {
		return err
	}
	num := twosComplement(a.qty.num)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(num))); err != nil {
		return err
	}
	if _, err := w.Write(num); err != nil {
		return err
	}
	var ident uint32
	if c := a.effComm(); c != nil {
		ident = c.ident
	}
	return binary.Write(w, binary.LittleEndian, ident)
}

// ReadBinary reads an amount previously written with [Amount.WriteBinary].
// The pool must be the one the amount was written against, or its restored
// snapshot; identifier drift otherwise makes the result undefined.
//
// ReadBinary returns an error if the data is truncated or references a
// commodity identifier the pool does not contain.
func (a *Amount) ReadBinary(p *Pool, r io.Reader) error {
	var presence [1]byte
	if _, err := io.ReadFull(r, presence[:]); err != nil {
		return fmt.Errorf("reading amount: %w", err)
	}
	if presence[0] == 0x00 {
		*a = Amount{}
		return nil
	}
	var prec int32
	if err := binary.Read(r, binary.LittleEndian, &prec); err != nil {
		return fmt.Errorf("reading amount scale: %w", err)
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("reading amount length: %w", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("reading amount numerator: %w", err)
	}
	var ident uint32
	if err := binary.Read(r, binary.LittleEndian, &ident); err != nil {
		return fmt.Errorf("reading amount commodity: %w", err)
	}
	var comm *Commodity
	if ident != 0 {
		if comm = p.FindByIdent(ident); comm == nil {
			return fmt.Errorf("reading amount: ident %d: %w", ident, ErrUnknownCommodity)
		}
	}
	*a = Amount{qty: newBigint(fromTwosComplement(buf), int(prec)), comm: comm}
	return nil
}

// twosComplement encodes the integer big-endian with a sign bit, one byte
// minimum.
func twosComplement(num *big.Int) []byte {
	switch num.Sign() {
	case 0:
		return []byte{0x00}
	case 1:
		b := num.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0x00}, b...)
		}
		return b
	default:
		abs := new(big.Int).Neg(num)
		k := (abs.BitLen() + 8) / 8
		tc := new(big.Int).Lsh(big.NewInt(1), uint(8*k))
		tc.Sub(tc, abs)
		return tc.FillBytes(make([]byte, k))
	}
}

func fromTwosComplement(b []byte) *big.Int {
	v := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(8*len(b))))
	}
	return v
}

// snapshot schema for Pool.Write / ReadPool. Amounts nested in commodity
// metadata (scaling links, price history, lot prices) are embedded in the
// binary amount format; they may reference any commodity of the pool, so
// the restore creates every handle before decoding them.
type poolSnapshot struct {
	Version     int                 `msgpack:"version"`
	Commodities []commoditySnapshot `msgpack:"commodities"`
}

type commoditySnapshot struct {
	Ident      uint32          `msgpack:"ident"`
	Symbol     string          `msgpack:"symbol"`
	MappingKey string          `msgpack:"mapping_key"`
	Precision  int             `msgpack:"precision"`
	Flags      uint16          `msgpack:"flags"`
	Name       string          `msgpack:"name,omitempty"`
	Note       string          `msgpack:"note,omitempty"`
	Smaller    []byte          `msgpack:"smaller,omitempty"`
	Larger     []byte          `msgpack:"larger,omitempty"`
	Prices     []priceSnapshot `msgpack:"prices,omitempty"`
	LastLookup time.Time       `msgpack:"last_lookup,omitempty"`

	Annotated bool      `msgpack:"annotated,omitempty"`
	Referent  uint32    `msgpack:"referent,omitempty"`
	LotPrice  []byte    `msgpack:"lot_price,omitempty"`
	LotDate   time.Time `msgpack:"lot_date,omitempty"`
	LotTag    string    `msgpack:"lot_tag,omitempty"`
}

type priceSnapshot struct {
	When  time.Time `msgpack:"when"`
	Price []byte    `msgpack:"price"`
}

const poolSnapshotVersion = 1

func amountBytes(a *Amount) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := a.WriteBinary(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes the pool as a versioned msgpack snapshot: every commodity
// in identifier order with its display metadata, scaling links, price
// history and lot details. Quote subscribers are not persisted; the host
// re-registers them after [ReadPool].
func (p *Pool) Write(w io.Writer) error {
	snap := poolSnapshot{Version: poolSnapshotVersion}
	for _, c := range p.byIdent[1:] {
		cs := commoditySnapshot{
			Ident:      c.ident,
			Symbol:     c.base.symbol,
			MappingKey: c.MappingKey(),
		}
		if c.Annotated() {
			cs.Annotated = true
			cs.Referent = c.referent.ident
			d := c.Details()
			lot, err := amountBytes(d.Price)
			if err != nil {
				return fmt.Errorf("writing pool: %v: %w", c, err)
			}
			cs.LotPrice = lot
			cs.LotDate = d.Date
			cs.LotTag = d.Tag
		} else {
			cs.Precision = c.base.precision
			cs.Flags = uint16(c.base.flags)
			cs.Name = c.base.name
			cs.Note = c.base.note
			var err error
			if cs.Smaller, err = amountBytes(c.base.smaller); err != nil {
				return fmt.Errorf("writing pool: %v: %w", c, err)
			}
			if cs.Larger, err = amountBytes(c.base.larger); err != nil {
				return fmt.Errorf("writing pool: %v: %w", c, err)
			}
			if h := c.base.history; h != nil {
				cs.LastLookup = h.lastLookup
				for _, pp := range h.prices {
					pp := pp
					pb, err := amountBytes(&pp.Price)
					if err != nil {
						return fmt.Errorf("writing pool: %v: %w", c, err)
					}
					cs.Prices = append(cs.Prices, priceSnapshot{When: pp.When, Price: pb})
				}
			}
		}
		snap.Commodities = append(snap.Commodities, cs)
	}
	return msgpack.NewEncoder(w).Encode(&snap)
}

// ReadPool reconstructs a pool from a snapshot written by [Pool.Write].
// Identifier assignment is preserved, so amounts written against the
// original pool decode against the restored one.
func ReadPool(r io.Reader) (*Pool, error) {
	var snap poolSnapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("reading pool: %w", err)
	}
	if snap.Version != poolSnapshotVersion {
		return nil, fmt.Errorf("reading pool: snapshot version %d: %w", snap.Version, ErrInvalidState)
	}

	p := NewPool()
	// First pass: create every handle so identifiers line up.
	for _, cs := range snap.Commodities {
		var c *Commodity
		if cs.Annotated {
			ref := p.FindByIdent(cs.Referent)
			if ref == nil || ref.Annotated() {
				return nil, fmt.Errorf("reading pool: %q referent %d: %w", cs.MappingKey, cs.Referent, ErrUnknownCommodity)
			}
			c = &Commodity{
				base:            ref.base,
				pool:            p,
				qualifiedSymbol: ref.qualifiedSymbol,
				mappingKey:      cs.MappingKey,
				details:         &Annotation{Date: cs.LotDate, Tag: cs.LotTag},
				referent:        ref,
			}
		} else {
			c = &Commodity{
				base: &commodityBase{
					symbol:    cs.Symbol,
					precision: cs.Precision,
					flags:     Style(cs.Flags),
					name:      cs.Name,
					note:      cs.Note,
				},
				pool: p,
			}
			if SymbolNeedsQuotes(cs.Symbol) {
				c.qualifiedSymbol = `"` + cs.Symbol + `"`
			}
		}
		if p.intern(c); c.ident != cs.Ident {
			return nil, fmt.Errorf("reading pool: %q ident %d, want %d: %w", cs.MappingKey, c.ident, cs.Ident, ErrInvalidState)
		}
	}

	// Second pass: decode nested amounts now that every commodity exists.
	for _, cs := range snap.Commodities {
		c := p.byIdent[cs.Ident]
		if cs.Annotated {
			if cs.LotPrice != nil {
				price, err := readAmountBytes(p, cs.LotPrice)
				if err != nil {
					return nil, fmt.Errorf("reading pool: %q lot price: %w", cs.MappingKey, err)
				}
				c.details.Price = price
			}
			continue
		}
		var err error
		if c.base.smaller, err = readAmountBytesOpt(p, cs.Smaller); err != nil {
			return nil, fmt.Errorf("reading pool: %q smaller: %w", cs.MappingKey, err)
		}
		if c.base.larger, err = readAmountBytesOpt(p, cs.Larger); err != nil {
			return nil, fmt.Errorf("reading pool: %q larger: %w", cs.MappingKey, err)
		}
		if len(cs.Prices) > 0 || !cs.LastLookup.IsZero() {
			h := &priceHistory{lastLookup: cs.LastLookup}
			for _, ps := range cs.Prices {
				price, err := readAmountBytes(p, ps.Price)
				if err != nil {
					return nil, fmt.Errorf("reading pool: %q price at %v: %w", cs.MappingKey, ps.When, err)
				}
				h.prices = append(h.prices, PricePoint{When: ps.When, Price: *price})
			}
			c.base.history = h
		}
	}
	log.Debug().Int("commodities", len(snap.Commodities)).Msg("pool snapshot restored")
	return p, nil
}

func readAmountBytes(p *Pool, b []byte) (*Amount, error) {
	var a Amount
	if err := a.ReadBinary(p, bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return &a, nil
}

func readAmountBytesOpt(p *Pool, b []byte) (*Amount, error) {
	if b == nil {
		return nil, nil
	}
	return readAmountBytes(p, b)
}
