// Package state implements §4.A (the state container) and §4.D (the
// matching engine): the mutable order directory, per-pair books, and
// balance ledger, plus the apply step that drives matching.
package state

import (
	"sort"

	"github.com/hyle-spot/spotbook/pkg/engine/action"
	"github.com/hyle-spot/spotbook/pkg/engine/errs"
	"github.com/hyle-spot/spotbook/pkg/engine/event"
	"github.com/hyle-spot/spotbook/pkg/engine/ledger"
	"github.com/hyle-spot/spotbook/pkg/engine/orderbook"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

// State holds every order, every pair's book, and the balance ledger. The
// zero value is not usable; construct with New.
type State struct {
	orders map[string]*types.Order
	books  map[types.Pair]*orderbook.Book
	ledger *ledger.Ledger
}

// New returns an empty state.
func New() *State {
	return &State{
		orders: make(map[string]*types.Order),
		books:  make(map[types.Pair]*orderbook.Book),
		ledger: ledger.New(),
	}
}

func (s *State) bookFor(pair types.Pair) *orderbook.Book {
	b, ok := s.books[pair]
	if !ok {
		b = orderbook.NewBook(pair)
		s.books[pair] = b
	}
	return b
}

// Clone returns a deep, independent copy of s. The step driver in
// pkg/engine calls this before attempting a mutation and only keeps the
// clone on success — a failed apply is indistinguishable from an
// unattempted one (§4.A).
func (s *State) Clone() *State {
	cp := &State{
		orders: make(map[string]*types.Order, len(s.orders)),
		books:  make(map[types.Pair]*orderbook.Book, len(s.books)),
		ledger: s.ledger.Clone(),
	}
	for pair, b := range s.books {
		if b.IsEmpty() {
			continue
		}
		cb := b.Clone()
		cp.books[pair] = cb
		for _, o := range cb.All() {
			cp.orders[o.ID] = o
		}
	}
	return cp
}

// Apply decodes nothing — a is already a decoded Action — and dispatches
// to the matcher or ledger, returning the events the step produced. It
// mutates s directly; callers that need all-or-nothing semantics operate
// on a Clone and discard it on error (see pkg/engine.Engine.Apply).
func (s *State) Apply(caller types.User, a *action.Action) ([]event.Event, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	switch a.Kind {
	case action.KindCreateOrder:
		return s.applyCreateOrder(caller, a.Create)
	case action.KindCancel:
		return s.applyCancel(caller, a.Cancel)
	case action.KindDeposit:
		return s.applyDeposit(caller, a.Deposit)
	case action.KindWithdraw:
		return s.applyWithdraw(caller, a.Withdraw)
	default:
		return nil, errs.Newf(errs.MalformedAction, "unknown action kind %d", a.Kind)
	}
}

func (s *State) applyCancel(caller types.User, p *action.CancelPayload) ([]event.Event, error) {
	o, ok := s.orders[p.OrderID]
	if !ok {
		return nil, errs.Newf(errs.UnknownOrder, "order %q not found", p.OrderID)
	}
	if o.Owner != caller {
		return nil, errs.New(errs.Unauthorized, "caller is not the order owner")
	}

	book := s.bookFor(o.Pair)
	book.Cancel(o.ID)
	delete(s.orders, o.ID)

	token, _, err := s.ledger.ReleaseEscrow(o, o.Quantity)
	if err != nil {
		return nil, err
	}
	return []event.Event{
		event.NewOrderCancelled(o.ID, o.Pair),
		event.NewBalanceUpdated(caller, token, s.ledger.Free(caller, token)),
	}, nil
}

func (s *State) applyDeposit(caller types.User, p *action.DepositPayload) ([]event.Event, error) {
	if err := s.ledger.Credit(caller, p.Token, types.FromUint32(p.Amount)); err != nil {
		return nil, err
	}
	return []event.Event{event.NewBalanceUpdated(caller, p.Token, s.ledger.Free(caller, p.Token))}, nil
}

func (s *State) applyWithdraw(caller types.User, p *action.WithdrawPayload) ([]event.Event, error) {
	if err := s.ledger.Debit(caller, p.Token, types.FromUint32(p.Amount)); err != nil {
		return nil, err
	}
	return []event.Event{event.NewBalanceUpdated(caller, p.Token, s.ledger.Free(caller, p.Token))}, nil
}

// Order returns a copy of the live order with the given id.
func (s *State) Order(id string) (*types.Order, bool) {
	o, ok := s.orders[id]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// Orders enumerates every live order, sorted by id.
func (s *State) Orders() []*types.Order {
	out := make([]*types.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OrdersByOwner enumerates owner's live orders, sorted by id.
func (s *State) OrdersByOwner(owner types.User) []*types.Order {
	out := make([]*types.Order, 0)
	for _, o := range s.orders {
		if o.Owner == owner {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OrdersByPair returns pair's resting orders split into buy/sell, each in
// the price-time order the book would match them.
func (s *State) OrdersByPair(pair types.Pair) (bids, asks []*types.Order) {
	b, ok := s.books[pair]
	if !ok {
		return nil, nil
	}
	for _, o := range b.PriceTimeOrder(types.Buy) {
		bids = append(bids, o.Clone())
	}
	for _, o := range b.PriceTimeOrder(types.Sell) {
		asks = append(asks, o.Clone())
	}
	return bids, asks
}

// Balance returns user's free balance in token.
func (s *State) Balance(user types.User, token types.Token) types.Amount {
	return s.ledger.Free(user, token)
}

// Balances returns every nonzero (token, amount) user holds.
func (s *State) Balances(user types.User) []ledger.Entry {
	return s.ledger.Balances(user)
}

// AllBalances returns every nonzero (user, token, amount) triple in the
// ledger.
func (s *State) AllBalances() []ledger.Entry {
	return s.ledger.Snapshot()
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
