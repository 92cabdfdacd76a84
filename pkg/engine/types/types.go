// Package types holds the data model shared by every engine subpackage:
// tokens, users, pairs, sides, orders, and the checked u128 arithmetic the
// balance ledger needs. None of it performs I/O.
package types

import (
	"math/big"

	"github.com/hyle-spot/spotbook/pkg/engine/errs"
)

// Token is a short UTF-8 symbol. Equality is byte equality; there is no
// normalization.
type Token string

// User is an opaque UTF-8 string supplied by the host as the authenticated
// caller. The engine never synthesizes one.
type User string

// Pair is an ordered (base, quote) tuple of tokens.
type Pair struct {
	Base  Token
	Quote Token
}

// Valid reports whether the pair is well-formed: both tokens non-empty and
// distinct.
func (p Pair) Valid() bool {
	return p.Base != "" && p.Quote != "" && p.Base != p.Quote
}

func (p Pair) String() string {
	return string(p.Base) + "/" + string(p.Quote)
}

// Less gives pairs a total order (base then quote), used when the state
// container enumerates books for snapshotting.
func (p Pair) Less(o Pair) bool {
	if p.Base != o.Base {
		return p.Base < o.Base
	}
	return p.Quote < o.Quote
}

// Side is which way an order trades. Buy orders spend quote to acquire
// base; sell orders spend base to acquire quote. The numeric values match
// the wire tag in spec §6 (0=Buy, 1=Sell).
type Side uint8

const (
	Buy  Side = 0
	Sell Side = 1
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Order is a resting or about-to-rest order. Price is nil for a market
// order (place-time only; a market order never rests). Quantity is the
// remaining (not original) amount.
type Order struct {
	ID       string
	Owner    User
	Side     Side
	Price    *uint32 // nil => market
	Pair     Pair
	Quantity uint32
}

// IsMarket reports whether the order carries no limit price.
func (o *Order) IsMarket() bool { return o.Price == nil }

// Clone returns a deep copy safe to mutate independently of o.
func (o *Order) Clone() *Order {
	cp := *o
	if o.Price != nil {
		p := *o.Price
		cp.Price = &p
	}
	return &cp
}

// Amount is an unsigned 128-bit-capacity balance amount. Go has no native
// u128, so amounts are carried as *big.Int the way the teacher already
// carries wire-level numeric fields (pkg/app/core/transaction/types.go
// parses Price/Qty/Nonce as *big.Int); every mutation here goes through a
// checked helper rather than raw big.Int arithmetic.
type Amount = *big.Int

// MaxAmount is 2^128 - 1, the ceiling spec §3 places on a free balance.
var MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Zero returns a fresh zero amount.
func Zero() Amount { return new(big.Int) }

// FromUint32 lifts a wire-level u32 amount/quantity into an Amount.
func FromUint32(v uint32) Amount { return new(big.Int).SetUint64(uint64(v)) }

// CheckedAdd returns a+b, or ArithmeticOverflow if the result would exceed
// MaxAmount.
func CheckedAdd(a, b Amount) (Amount, error) {
	sum := new(big.Int).Add(a, b)
	if sum.Cmp(MaxAmount) > 0 {
		return nil, errs.Newf(errs.ArithmeticOverflow, "amount overflow: %s + %s", a, b)
	}
	return sum, nil
}

// CheckedSub returns a-b, or InsufficientBalance if b > a. Balances are
// never allowed to go negative.
func CheckedSub(a, b Amount) (Amount, error) {
	if a.Cmp(b) < 0 {
		return nil, errs.Newf(errs.InsufficientBalance, "have %s, need %s", a, b)
	}
	return new(big.Int).Sub(a, b), nil
}

// CheckedMul returns price*quantity as an Amount, checked against
// MaxAmount. Two u32 operands can never actually overflow a u128 (their
// product tops out under 2^64), but the check is kept so the contract in
// spec §4.C ("all multiplications are checked") holds structurally rather
// than by argument about input ranges.
func CheckedMul(price, quantity uint32) (Amount, error) {
	p := new(big.Int).SetUint64(uint64(price))
	q := new(big.Int).SetUint64(uint64(quantity))
	product := new(big.Int).Mul(p, q)
	if product.Cmp(MaxAmount) > 0 {
		return nil, errs.Newf(errs.ArithmeticOverflow, "price*quantity overflow: %d*%d", price, quantity)
	}
	return product, nil
}
