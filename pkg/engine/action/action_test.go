package action

import (
	"bytes"
	"testing"

	"github.com/hyle-spot/spotbook/pkg/engine/errs"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

func price(v uint32) *uint32 { return &v }

func TestRoundTrip(t *testing.T) {
	cases := []*Action{
		{
			Kind: KindCreateOrder,
			Create: &CreateOrderPayload{
				OrderID:  "o1",
				Side:     types.Buy,
				Price:    price(10),
				Pair:     types.Pair{Base: "ORANJ", Quote: "USDC"},
				Quantity: 5,
			},
		},
		{
			Kind: KindCreateOrder,
			Create: &CreateOrderPayload{
				OrderID:  "o2",
				Side:     types.Sell,
				Price:    nil,
				Pair:     types.Pair{Base: "ORANJ", Quote: "USDC"},
				Quantity: 4,
			},
		},
		{Kind: KindCancel, Cancel: &CancelPayload{OrderID: "o1"}},
		{Kind: KindDeposit, Deposit: &DepositPayload{Token: "USDC", Amount: 1000}},
		{Kind: KindWithdraw, Withdraw: &WithdrawPayload{Token: "USDC", Amount: 1}},
	}

	for _, want := range cases {
		encoded, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%v): %v", want, err)
		}
		got, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		reEncoded, err := Encode(got)
		if err != nil {
			t.Fatalf("re-Encode: %v", err)
		}
		if !bytes.Equal(encoded, reEncoded) {
			t.Fatalf("encode(decode(b)) != b: %x vs %x", reEncoded, encoded)
		}
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	encoded, _ := Encode(&Action{Kind: KindCancel, Cancel: &CancelPayload{OrderID: "o1"}})
	_, err := Decode(append(encoded, 0xFF))
	if k, ok := errs.KindOf(err); !ok || k != errs.MalformedAction {
		t.Fatalf("expected MalformedAction, got %v", err)
	}
}

func TestValidateRejectsZeroQuantity(t *testing.T) {
	a := &Action{
		Kind: KindCreateOrder,
		Create: &CreateOrderPayload{
			OrderID:  "o1",
			Side:     types.Buy,
			Price:    price(10),
			Pair:     types.Pair{Base: "ORANJ", Quote: "USDC"},
			Quantity: 0,
		},
	}
	if _, err := Encode(a); err == nil {
		t.Fatal("expected MalformedAction for zero quantity")
	}
}

func TestValidateRejectsEqualPair(t *testing.T) {
	a := &Action{
		Kind: KindCreateOrder,
		Create: &CreateOrderPayload{
			OrderID:  "o1",
			Side:     types.Buy,
			Price:    price(10),
			Pair:     types.Pair{Base: "USDC", Quote: "USDC"},
			Quantity: 1,
		},
	}
	if _, err := Encode(a); err == nil {
		t.Fatal("expected MalformedAction for base == quote")
	}
}
