package state

import (
	"testing"

	"github.com/hyle-spot/spotbook/pkg/engine/action"
	"github.com/hyle-spot/spotbook/pkg/engine/errs"
	"github.com/hyle-spot/spotbook/pkg/engine/event"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

const (
	alice types.User = "alice"
	bob   types.User = "bob"
	carol types.User = "carol"

	oranj types.Token = "ORANJ"
	usdc  types.Token = "USDC"
)

var oranjUSDC = types.Pair{Base: oranj, Quote: usdc}

func price(v uint32) *uint32 { return &v }

func mustApply(t *testing.T, s *State, caller types.User, a *action.Action) []event.Event {
	t.Helper()
	events, err := s.Apply(caller, a)
	if err != nil {
		t.Fatalf("apply %v as %s: %v", a, caller, err)
	}
	return events
}

func deposit(token types.Token, amount uint32) *action.Action {
	return &action.Action{Kind: action.KindDeposit, Deposit: &action.DepositPayload{Token: token, Amount: amount}}
}

func createLimit(id string, side types.Side, p uint32, pair types.Pair, qty uint32) *action.Action {
	return &action.Action{Kind: action.KindCreateOrder, Create: &action.CreateOrderPayload{
		OrderID: id, Side: side, Price: price(p), Pair: pair, Quantity: qty,
	}}
}

func createMarket(id string, side types.Side, pair types.Pair, qty uint32) *action.Action {
	return &action.Action{Kind: action.KindCreateOrder, Create: &action.CreateOrderPayload{
		OrderID: id, Side: side, Price: nil, Pair: pair, Quantity: qty,
	}}
}

func cancel(id string) *action.Action {
	return &action.Action{Kind: action.KindCancel, Cancel: &action.CancelPayload{OrderID: id}}
}

func assertBalance(t *testing.T, s *State, user types.User, token types.Token, want uint32) {
	t.Helper()
	got := s.Balance(user, token)
	if got.Cmp(types.FromUint32(want)) != 0 {
		t.Errorf("balance(%s,%s) = %s, want %d", user, token, got, want)
	}
}

// Scenario A: simple match, both orders fully fill at the maker's price.
func TestScenarioA_SimpleMatch(t *testing.T) {
	s := New()
	mustApply(t, s, alice, deposit(oranj, 100))
	mustApply(t, s, bob, deposit(usdc, 1000))
	mustApply(t, s, alice, createLimit("o1", types.Sell, 10, oranjUSDC, 5))
	events := mustApply(t, s, bob, createLimit("o2", types.Buy, 10, oranjUSDC, 5))

	assertBalance(t, s, alice, oranj, 95)
	assertBalance(t, s, alice, usdc, 50)
	assertBalance(t, s, bob, usdc, 950)
	assertBalance(t, s, bob, oranj, 5)

	if bids, asks := s.OrdersByPair(oranjUSDC); len(bids) != 0 || len(asks) != 0 {
		t.Fatalf("expected empty book, got bids=%v asks=%v", bids, asks)
	}

	last := events[len(events)-1]
	if last.Kind != event.KindOrderExecuted || last.OrderExecuted.OrderID != "o2" {
		t.Fatalf("expected last event OrderExecuted{o2}, got %+v", last)
	}
	secondLast := events[len(events)-2]
	if secondLast.Kind != event.KindOrderExecuted || secondLast.OrderExecuted.OrderID != "o1" {
		t.Fatalf("expected second-to-last event OrderExecuted{o1}, got %+v", secondLast)
	}
}

// Scenario B: partial fill leaves a residue resting at the taker's limit.
func TestScenarioB_PartialFillResidueRests(t *testing.T) {
	s := New()
	mustApply(t, s, alice, deposit(oranj, 100))
	mustApply(t, s, bob, deposit(usdc, 1000))
	mustApply(t, s, alice, createLimit("o1", types.Sell, 10, oranjUSDC, 5))
	mustApply(t, s, bob, createLimit("o2", types.Buy, 10, oranjUSDC, 5))

	mustApply(t, s, alice, createLimit("o3", types.Sell, 10, oranjUSDC, 3))
	mustApply(t, s, bob, createLimit("o4", types.Buy, 12, oranjUSDC, 5))

	assertBalance(t, s, alice, oranj, 92)
	assertBalance(t, s, alice, usdc, 80)
	assertBalance(t, s, bob, usdc, 896)
	assertBalance(t, s, bob, oranj, 8)

	resting, ok := s.Order("o4")
	if !ok {
		t.Fatal("expected o4 to rest")
	}
	if resting.Quantity != 2 {
		t.Fatalf("expected o4 residue qty 2, got %d", resting.Quantity)
	}
}

// Scenario C: cancel refunds exactly the remaining escrow.
func TestScenarioC_CancelRefundsEscrow(t *testing.T) {
	s := New()
	mustApply(t, s, alice, deposit(oranj, 100))
	mustApply(t, s, bob, deposit(usdc, 1000))
	mustApply(t, s, alice, createLimit("o1", types.Sell, 10, oranjUSDC, 5))
	mustApply(t, s, bob, createLimit("o2", types.Buy, 10, oranjUSDC, 5))
	mustApply(t, s, alice, createLimit("o3", types.Sell, 10, oranjUSDC, 3))
	mustApply(t, s, bob, createLimit("o4", types.Buy, 12, oranjUSDC, 5))

	events := mustApply(t, s, bob, cancel("o4"))
	assertBalance(t, s, bob, usdc, 920)
	if len(events) != 2 {
		t.Fatalf("expected 2 events (cancelled+balance), got %d", len(events))
	}
	if events[0].Kind != event.KindOrderCancelled || events[0].OrderCancelled.OrderID != "o4" {
		t.Fatalf("expected OrderCancelled{o4} first, got %+v", events[0])
	}
	if _, ok := s.Order("o4"); ok {
		t.Fatal("expected o4 to be gone from the directory")
	}
}

// Scenario D: cancel by a non-owner is rejected and changes nothing.
func TestScenarioD_UnauthorizedCancelRejected(t *testing.T) {
	s := New()
	mustApply(t, s, bob, deposit(usdc, 1000))
	mustApply(t, s, bob, createLimit("o4", types.Buy, 12, oranjUSDC, 5))

	before := s.Balance(bob, usdc)
	events, err := s.Apply(alice, cancel("o4"))
	if events != nil {
		t.Fatalf("expected no events, got %v", events)
	}
	k, ok := errs.KindOf(err)
	if !ok || k != errs.Unauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if s.Balance(bob, usdc).Cmp(before) != 0 {
		t.Fatal("expected no balance change on rejected cancel")
	}
	if _, ok := s.Order("o4"); !ok {
		t.Fatal("expected o4 to remain resting")
	}
}

// Scenario E: insufficient balance at placement fails cleanly.
func TestScenarioE_InsufficientBalanceOnPlacement(t *testing.T) {
	s := New()
	mustApply(t, s, carol, deposit(usdc, 5))

	events, err := s.Apply(carol, createLimit("o5", types.Buy, 3, oranjUSDC, 2))
	if events != nil {
		t.Fatalf("expected no events, got %v", events)
	}
	k, ok := errs.KindOf(err)
	if !ok || k != errs.InsufficientBalance {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
	assertBalance(t, s, carol, usdc, 5)
	if _, ok := s.Order("o5"); ok {
		t.Fatal("expected o5 to not exist")
	}
}

// Scenario F: a market buy walks two price levels and never rests.
func TestScenarioF_MarketBuyWalksLevels(t *testing.T) {
	s := New()
	mustApply(t, s, alice, deposit(oranj, 10))
	mustApply(t, s, bob, deposit(usdc, 1000))
	mustApply(t, s, alice, createLimit("ask1", types.Sell, 10, oranjUSDC, 2))
	mustApply(t, s, alice, createLimit("ask2", types.Sell, 11, oranjUSDC, 3))

	events := mustApply(t, s, bob, createMarket("taker", types.Buy, oranjUSDC, 4))

	assertBalance(t, s, bob, usdc, 1000-42)
	assertBalance(t, s, bob, oranj, 4)

	if _, ok := s.Order("ask1"); ok {
		t.Fatal("expected ask1 fully consumed")
	}
	remaining, ok := s.Order("ask2")
	if !ok || remaining.Quantity != 1 {
		t.Fatalf("expected ask2 residual qty 1, got %v", remaining)
	}
	if _, ok := s.Order("taker"); ok {
		t.Fatal("market orders must never rest")
	}

	last := events[len(events)-1]
	if last.Kind != event.KindOrderExecuted || last.OrderExecuted.OrderID != "taker" {
		t.Fatalf("expected final event OrderExecuted{taker}, got %+v", last)
	}
}

func TestMarketOrderFailsNoLiquidity(t *testing.T) {
	s := New()
	mustApply(t, s, bob, deposit(usdc, 1000))

	_, err := s.Apply(bob, createMarket("t1", types.Buy, oranjUSDC, 1))
	k, ok := errs.KindOf(err)
	if !ok || k != errs.NoLiquidity {
		t.Fatalf("expected NoLiquidity, got %v", err)
	}
}

func TestCancelUnknownOrderFails(t *testing.T) {
	s := New()
	_, err := s.Apply(alice, cancel("nope"))
	k, ok := errs.KindOf(err)
	if !ok || k != errs.UnknownOrder {
		t.Fatalf("expected UnknownOrder, got %v", err)
	}
}

func TestSnapshotDeterminism(t *testing.T) {
	run := func() *State {
		s := New()
		mustApply(t, s, alice, deposit(oranj, 100))
		mustApply(t, s, bob, deposit(usdc, 1000))
		mustApply(t, s, alice, createLimit("o1", types.Sell, 10, oranjUSDC, 5))
		mustApply(t, s, bob, createLimit("o2", types.Buy, 12, oranjUSDC, 3))
		return s
	}
	s1, s2 := run(), run()
	snap1, snap2 := s1.Snapshot(), s2.Snapshot()
	if string(snap1) != string(snap2) {
		t.Fatal("replaying the same actions on two fresh engines produced different snapshots")
	}
}

// TestSnapshotOmitsDrainedBook covers a state that reached a given
// balances/resting-orders position by fully draining a pair's book, against
// a state that reached the same logical position without ever touching
// that pair. A resting-order slot emptying out must not leave a trace in
// the canonical encoding, or two engines with equal logical state could
// diverge on their state hash.
func TestSnapshotOmitsDrainedBook(t *testing.T) {
	withDrainedBook := New()
	mustApply(t, withDrainedBook, alice, deposit(oranj, 10))
	mustApply(t, withDrainedBook, bob, deposit(usdc, 1000))
	mustApply(t, withDrainedBook, alice, createLimit("o1", types.Sell, 10, oranjUSDC, 10))
	mustApply(t, withDrainedBook, bob, createLimit("o2", types.Buy, 10, oranjUSDC, 10))
	// o1 and o2 fully cross at price 10 for qty 10: alice ends with 0 ORANJ,
	// 100 USDC; bob ends with 900 USDC, 10 ORANJ; no resting orders remain.
	assertBalance(t, withDrainedBook, alice, oranj, 0)
	assertBalance(t, withDrainedBook, alice, usdc, 100)
	assertBalance(t, withDrainedBook, bob, usdc, 900)
	assertBalance(t, withDrainedBook, bob, oranj, 10)

	// Reach the same final balances without ever creating an order on the
	// pair, so s.books never gains an entry for it.
	equivalent := New()
	mustApply(t, equivalent, alice, deposit(usdc, 100))
	mustApply(t, equivalent, bob, deposit(usdc, 900))
	mustApply(t, equivalent, bob, deposit(oranj, 10))

	if withDrainedBook.books[oranjUSDC] == nil || !withDrainedBook.books[oranjUSDC].IsEmpty() {
		t.Fatalf("expected a drained-but-present book entry for %v", oranjUSDC)
	}

	got, want := withDrainedBook.Snapshot(), equivalent.Snapshot()
	if string(got) != string(want) {
		t.Fatalf("snapshot differs for logically equal state reached via a drained book:\ngot:  %x\nwant: %x", got, want)
	}
}

func TestCloneIsolatesMutation(t *testing.T) {
	s := New()
	mustApply(t, s, alice, deposit(oranj, 100))
	mustApply(t, s, alice, createLimit("o1", types.Sell, 10, oranjUSDC, 5))

	clone := s.Clone()
	if _, err := clone.Apply(alice, cancel("o1")); err != nil {
		t.Fatalf("cancel on clone: %v", err)
	}
	if _, ok := s.Order("o1"); !ok {
		t.Fatal("mutating the clone must not affect the original")
	}
	if _, ok := clone.Order("o1"); ok {
		t.Fatal("expected o1 cancelled on the clone")
	}
}
