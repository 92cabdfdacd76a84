// Package action implements §4.B and §6: the tagged-union Action type and
// its canonical length-prefixed little-endian wire encoding.
package action

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hyle-spot/spotbook/pkg/engine/errs"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

// Kind is the tag of an Action's wire encoding.
type Kind uint8

const (
	KindCreateOrder Kind = 0
	KindCancel      Kind = 1
	KindDeposit     Kind = 2
	KindWithdraw    Kind = 3
)

// CreateOrderPayload is the body of a CreateOrder action.
type CreateOrderPayload struct {
	OrderID  string
	Side     types.Side
	Price    *uint32 // nil => market order
	Pair     types.Pair
	Quantity uint32
}

// CancelPayload is the body of a Cancel action.
type CancelPayload struct {
	OrderID string
}

// DepositPayload is the body of a Deposit action.
type DepositPayload struct {
	Token  types.Token
	Amount uint32
}

// WithdrawPayload is the body of a Withdraw action.
type WithdrawPayload struct {
	Token  types.Token
	Amount uint32
}

// Action is a tagged union: exactly one of the payload fields is non-nil,
// matching Kind. §9 calls for a tagged union over subclassing; this mirrors
// the teacher's SignedTransaction{Type, Order, Cancel} shape.
type Action struct {
	Kind     Kind
	Create   *CreateOrderPayload
	Cancel   *CancelPayload
	Deposit  *DepositPayload
	Withdraw *WithdrawPayload
}

// Validate checks the structural constraints §4.B requires before an action
// reaches the ledger/matcher. Decode already calls this; callers building
// an Action by hand (tests, cmd/actionctl) should call it too.
func (a *Action) Validate() error {
	switch a.Kind {
	case KindCreateOrder:
		c := a.Create
		if c == nil {
			return errs.New(errs.MalformedAction, "missing create payload")
		}
		if c.OrderID == "" {
			return errs.New(errs.MalformedAction, "empty order id")
		}
		if c.Quantity == 0 {
			return errs.New(errs.MalformedAction, "zero quantity")
		}
		if !c.Pair.Valid() {
			return errs.New(errs.MalformedAction, "base == quote or empty token")
		}
		if c.Side != types.Buy && c.Side != types.Sell {
			return errs.Newf(errs.MalformedAction, "unknown side %d", c.Side)
		}
		return nil
	case KindCancel:
		if a.Cancel == nil || a.Cancel.OrderID == "" {
			return errs.New(errs.MalformedAction, "empty order id")
		}
		return nil
	case KindDeposit:
		if a.Deposit == nil || a.Deposit.Token == "" {
			return errs.New(errs.MalformedAction, "empty token")
		}
		if a.Deposit.Amount == 0 {
			return errs.New(errs.MalformedAction, "zero amount")
		}
		return nil
	case KindWithdraw:
		if a.Withdraw == nil || a.Withdraw.Token == "" {
			return errs.New(errs.MalformedAction, "empty token")
		}
		if a.Withdraw.Amount == 0 {
			return errs.New(errs.MalformedAction, "zero amount")
		}
		return nil
	default:
		return errs.Newf(errs.MalformedAction, "unknown action tag %d", a.Kind)
	}
}

// Encode produces the canonical byte representation. Re-encoding a decoded
// action must reproduce its input byte-for-byte (§6, §8 invariant 6).
func Encode(a *Action) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(a.Kind))
	switch a.Kind {
	case KindCreateOrder:
		c := a.Create
		writeString(&buf, c.OrderID)
		buf.WriteByte(byte(c.Side))
		writeOptionU32(&buf, c.Price)
		writeString(&buf, string(c.Pair.Base))
		writeString(&buf, string(c.Pair.Quote))
		writeU32(&buf, c.Quantity)
	case KindCancel:
		writeString(&buf, a.Cancel.OrderID)
	case KindDeposit:
		writeString(&buf, string(a.Deposit.Token))
		writeU32(&buf, a.Deposit.Amount)
	case KindWithdraw:
		writeString(&buf, string(a.Withdraw.Token))
		writeU32(&buf, a.Withdraw.Amount)
	}
	return buf.Bytes(), nil
}

// Decode parses the canonical byte representation back into an Action,
// validating structural well-formedness along the way.
func Decode(b []byte) (*Action, error) {
	r := bytes.NewReader(b)
	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, errs.New(errs.MalformedAction, "empty input")
	}
	a := &Action{Kind: Kind(tagByte)}
	switch a.Kind {
	case KindCreateOrder:
		orderID, err := readString(r)
		if err != nil {
			return nil, err
		}
		sideByte, err := r.ReadByte()
		if err != nil {
			return nil, errs.New(errs.MalformedAction, "truncated side")
		}
		price, err := readOptionU32(r)
		if err != nil {
			return nil, err
		}
		base, err := readString(r)
		if err != nil {
			return nil, err
		}
		quote, err := readString(r)
		if err != nil {
			return nil, err
		}
		quantity, err := readU32(r)
		if err != nil {
			return nil, err
		}
		a.Create = &CreateOrderPayload{
			OrderID:  orderID,
			Side:     types.Side(sideByte),
			Price:    price,
			Pair:     types.Pair{Base: types.Token(base), Quote: types.Token(quote)},
			Quantity: quantity,
		}
	case KindCancel:
		orderID, err := readString(r)
		if err != nil {
			return nil, err
		}
		a.Cancel = &CancelPayload{OrderID: orderID}
	case KindDeposit:
		token, err := readString(r)
		if err != nil {
			return nil, err
		}
		amount, err := readU32(r)
		if err != nil {
			return nil, err
		}
		a.Deposit = &DepositPayload{Token: types.Token(token), Amount: amount}
	case KindWithdraw:
		token, err := readString(r)
		if err != nil {
			return nil, err
		}
		amount, err := readU32(r)
		if err != nil {
			return nil, err
		}
		a.Withdraw = &WithdrawPayload{Token: types.Token(token), Amount: amount}
	default:
		return nil, errs.Newf(errs.MalformedAction, "unknown action tag %d", tagByte)
	}
	if r.Len() != 0 {
		return nil, errs.New(errs.MalformedAction, "trailing bytes")
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
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

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errs.New(errs.MalformedAction, "truncated u32")
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(r.Len()) {
		return "", errs.New(errs.MalformedAction, "string length exceeds input")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", errs.New(errs.MalformedAction, "truncated string")
	}
	return string(b), nil
}

func readOptionU32(r *bytes.Reader) (*uint32, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, errs.New(errs.MalformedAction, "truncated option tag")
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		v, err := readU32(r)
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, errs.Newf(errs.MalformedAction, "bad option tag %d", tag)
	}
}

// String renders an action for logs; never used in wire encoding.
func (a *Action) String() string {
	switch a.Kind {
	case KindCreateOrder:
		return fmt.Sprintf("CreateOrder{%s}", a.Create.OrderID)
	case KindCancel:
		return fmt.Sprintf("Cancel{%s}", a.Cancel.OrderID)
	case KindDeposit:
		return fmt.Sprintf("Deposit{%s,%d}", a.Deposit.Token, a.Deposit.Amount)
	case KindWithdraw:
		return fmt.Sprintf("Withdraw{%s,%d}", a.Withdraw.Token, a.Withdraw.Amount)
	default:
		return "Action{unknown}"
	}
}
