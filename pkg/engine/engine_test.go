package engine

import (
	"testing"

	"github.com/hyle-spot/spotbook/pkg/engine/action"
	"github.com/hyle-spot/spotbook/pkg/engine/errs"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

func priceOf(v uint32) *uint32 { return &v }

func TestApplyRollsBackOnError(t *testing.T) {
	e := New()
	if _, err := e.Apply("carol", &action.Action{Kind: action.KindDeposit, Deposit: &action.DepositPayload{Token: "USDC", Amount: 5}}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	seqBefore := e.Sequence()
	hashBefore := e.StateHash()

	_, err := e.Apply("carol", &action.Action{
		Kind: action.KindCreateOrder,
		Create: &action.CreateOrderPayload{
			OrderID: "o1", Side: types.Buy, Price: priceOf(3),
			Pair: types.Pair{Base: "ORANJ", Quote: "USDC"}, Quantity: 2,
		},
	})
	k, ok := errs.KindOf(err)
	if !ok || k != errs.InsufficientBalance {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
	if e.Sequence() != seqBefore {
		t.Fatalf("sequence advanced on a failed apply: %d != %d", e.Sequence(), seqBefore)
	}
	if e.StateHash() != hashBefore {
		t.Fatal("state hash advanced on a failed apply")
	}
	if _, ok := e.Order("o1"); ok {
		t.Fatal("failed apply must not leave the order resting")
	}
}

func TestApplyBytesRoundTrip(t *testing.T) {
	e := New()
	encoded, err := action.Encode(&action.Action{
		Kind: action.KindDeposit, Deposit: &action.DepositPayload{Token: "USDC", Amount: 100},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := e.ApplyBytes("alice", encoded); err != nil {
		t.Fatalf("apply bytes: %v", err)
	}
	if got := e.Balance("alice", "USDC"); got.Sign() == 0 {
		t.Fatal("expected nonzero balance after deposit")
	}
}

func TestSequenceAndHashAdvanceOnSuccess(t *testing.T) {
	e := New()
	h0 := e.StateHash()
	if _, err := e.Apply("alice", &action.Action{Kind: action.KindDeposit, Deposit: &action.DepositPayload{Token: "USDC", Amount: 1}}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if e.Sequence() != 1 {
		t.Fatalf("expected sequence 1, got %d", e.Sequence())
	}
	if e.StateHash() == h0 {
		t.Fatal("expected hash chain to advance after a committed step")
	}
}
