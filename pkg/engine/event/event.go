// Package event implements §4.E and §6: the tagged-union Event model
// emitted by a step, plus its canonical encoding for the indexer boundary.
package event

import (
	"bytes"
	"encoding/binary"

	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

// Kind is the tag of an Event's wire encoding.
type Kind uint8

const (
	KindOrderCreated   Kind = 0
	KindOrderUpdate    Kind = 1
	KindOrderExecuted  Kind = 2
	KindOrderCancelled Kind = 3
	KindBalanceUpdated Kind = 4
)

// OrderCreated carries the full order as placed (possibly with a reduced
// residue quantity if it rests after partial matching).
type OrderCreated struct {
	Order types.Order
}

// OrderUpdate reports a maker's remaining quantity after a partial fill.
type OrderUpdate struct {
	OrderID           string
	RemainingQuantity uint32
	Pair              types.Pair
}

// OrderExecuted reports an order (maker or taker) that fully filled, or a
// market taker that finished its walk; a market taker gets this event even
// when part of its quantity went unfilled, since market orders never rest.
type OrderExecuted struct {
	OrderID string
	Pair    types.Pair
}

// OrderCancelled reports a successful cancel.
type OrderCancelled struct {
	OrderID string
	Pair    types.Pair
}

// BalanceUpdated carries the new free balance, not the delta (§6).
type BalanceUpdated struct {
	User   types.User
	Token  types.Token
	Amount types.Amount
}

// Event is a tagged union; exactly one field is set per Kind.
type Event struct {
	Kind           Kind
	OrderCreated   *OrderCreated
	OrderUpdate    *OrderUpdate
	OrderExecuted  *OrderExecuted
	OrderCancelled *OrderCancelled
	BalanceUpdated *BalanceUpdated
}

func NewOrderCreated(o types.Order) Event {
	return Event{Kind: KindOrderCreated, OrderCreated: &OrderCreated{Order: o}}
}

func NewOrderUpdate(orderID string, remaining uint32, pair types.Pair) Event {
	return Event{Kind: KindOrderUpdate, OrderUpdate: &OrderUpdate{OrderID: orderID, RemainingQuantity: remaining, Pair: pair}}
}

func NewOrderExecuted(orderID string, pair types.Pair) Event {
	return Event{Kind: KindOrderExecuted, OrderExecuted: &OrderExecuted{OrderID: orderID, Pair: pair}}
}

func NewOrderCancelled(orderID string, pair types.Pair) Event {
	return Event{Kind: KindOrderCancelled, OrderCancelled: &OrderCancelled{OrderID: orderID, Pair: pair}}
}

func NewBalanceUpdated(user types.User, token types.Token, amount types.Amount) Event {
	return Event{Kind: KindBalanceUpdated, BalanceUpdated: &BalanceUpdated{User: user, Token: token, Amount: amount}}
}

// Encode renders ev in the same length-prefixed little-endian style as the
// action wire format, for indexers that want a byte stream rather than
// Go values.
func Encode(ev *Event) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(ev.Kind))
	switch ev.Kind {
	case KindOrderCreated:
		o := ev.OrderCreated.Order
		writeString(&buf, o.ID)
		writeString(&buf, string(o.Owner))
		buf.WriteByte(byte(o.Side))
		writeOptionU32(&buf, o.Price)
		writeString(&buf, string(o.Pair.Base))
		writeString(&buf, string(o.Pair.Quote))
		writeU32(&buf, o.Quantity)
	case KindOrderUpdate:
		u := ev.OrderUpdate
		writeString(&buf, u.OrderID)
		writeU32(&buf, u.RemainingQuantity)
		writeString(&buf, string(u.Pair.Base))
		writeString(&buf, string(u.Pair.Quote))
	case KindOrderExecuted:
		e := ev.OrderExecuted
		writeString(&buf, e.OrderID)
		writeString(&buf, string(e.Pair.Base))
		writeString(&buf, string(e.Pair.Quote))
	case KindOrderCancelled:
		c := ev.OrderCancelled
		writeString(&buf, c.OrderID)
		writeString(&buf, string(c.Pair.Base))
		writeString(&buf, string(c.Pair.Quote))
	case KindBalanceUpdated:
		b := ev.BalanceUpdated
		writeString(&buf, string(b.User))
		writeString(&buf, string(b.Token))
		amountBytes := b.Amount.Bytes()
		writeU32(&buf, uint32(len(amountBytes)))
		buf.Write(amountBytes)
	}
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func writeOptionU32(buf *bytes.Buffer, v *uint32) {
	if v == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	writeU32(buf, *v)
}
