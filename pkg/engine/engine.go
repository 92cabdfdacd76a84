// Package engine is the step driver of §4.F: it owns the current state,
// gives apply all-or-nothing semantics by operating on a clone and only
// keeping it on success, and exposes the read surface of §6.
package engine

import (
	"github.com/hyle-spot/spotbook/pkg/engine/action"
	"github.com/hyle-spot/spotbook/pkg/engine/event"
	"github.com/hyle-spot/spotbook/pkg/engine/ledger"
	"github.com/hyle-spot/spotbook/pkg/engine/state"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

// Engine wraps a state.State with the transactional Apply contract and a
// running hash chain over the steps it has committed.
type Engine struct {
	state    *state.State
	hasher   *state.Hasher
	sequence uint64
}

// New returns a fresh engine with empty state.
func New() *Engine {
	return &Engine{state: state.New(), hasher: state.NewHasher()}
}

// Apply decodes nothing itself (decoding happens in pkg/engine/action) but
// composes decode→dispatch→commit-or-rollback: it runs a on a clone of the
// current state and only keeps the clone if a succeeds. On error, the
// engine's state is untouched and no events are returned.
func (e *Engine) Apply(caller types.User, a *action.Action) ([]event.Event, error) {
	clone := e.state.Clone()
	events, err := clone.Apply(caller, a)
	if err != nil {
		return nil, err
	}
	e.state = clone
	e.sequence++
	e.hasher.Chain(e.sequence, e.state.Snapshot())
	return events, nil
}

// ApplyBytes decodes the canonical wire format then applies it, the path a
// host driving the engine from serialized actions (e.g. from a zkVM
// calldata blob) would use.
func (e *Engine) ApplyBytes(caller types.User, encoded []byte) ([]event.Event, error) {
	a, err := action.Decode(encoded)
	if err != nil {
		return nil, err
	}
	return e.Apply(caller, a)
}

// Snapshot returns the canonical encoding of the current state.
func (e *Engine) Snapshot() []byte { return e.state.Snapshot() }

// StateHash returns the current tip of the hash chain over every step
// committed so far.
func (e *Engine) StateHash() [32]byte { return e.hasher.PrevHash() }

// Sequence returns the number of steps successfully committed so far.
func (e *Engine) Sequence() uint64 { return e.sequence }

// Order returns the live order with the given id.
func (e *Engine) Order(id string) (*types.Order, bool) { return e.state.Order(id) }

// Orders enumerates every live order, sorted by id.
func (e *Engine) Orders() []*types.Order { return e.state.Orders() }

// OrdersByOwner enumerates owner's live orders, sorted by id.
func (e *Engine) OrdersByOwner(owner types.User) []*types.Order {
	return e.state.OrdersByOwner(owner)
}

// OrdersByPair returns pair's resting orders split into buy/sell, each in
// price-time order.
func (e *Engine) OrdersByPair(pair types.Pair) (bids, asks []*types.Order) {
	return e.state.OrdersByPair(pair)
}

// Balance returns user's free balance in token.
func (e *Engine) Balance(user types.User, token types.Token) types.Amount {
	return e.state.Balance(user, token)
}

// Balances returns every nonzero (token, amount) user holds.
func (e *Engine) Balances(user types.User) []ledger.Entry {
	return e.state.Balances(user)
}

// AllBalances returns every nonzero (user, token, amount) triple in the
// ledger.
func (e *Engine) AllBalances() []ledger.Entry {
	return e.state.AllBalances()
}
