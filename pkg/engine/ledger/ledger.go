// Package ledger implements spec §4.C: per-user, per-token free balances,
// with escrow bookkeeping for resting orders. Mirrors the shape of the
// teacher's account.AccountManager (lock/unlock collateral, checked
// arithmetic, thread-unaware — the engine is single-threaded) but keyed by
// opaque (User, Token) pairs rather than an Ethereum address and a single
// USDC balance.
package ledger

import (
	"math/big"

	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

type key struct {
	user  types.User
	token types.Token
}

// Ledger holds free balances. It has no notion of escrow accounts: funds
// removed from a user's free balance by EscrowForOrder are tracked
// implicitly by the resting order itself (spec §3's "the order object is
// the escrow receipt").
type Ledger struct {
	free map[key]types.Amount
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{free: make(map[key]types.Amount)}
}

// Free returns the free balance for (user, token), or zero if unset.
func (l *Ledger) Free(user types.User, token types.Token) types.Amount {
	if v, ok := l.free[key{user, token}]; ok {
		return new(big.Int).Set(v)
	}
	return types.Zero()
}

// Credit adds amount to the user's free balance. Used by Deposit and by
// match proceeds.
func (l *Ledger) Credit(user types.User, token types.Token, amount types.Amount) error {
	k := key{user, token}
	cur, ok := l.free[k]
	if !ok {
		cur = types.Zero()
	}
	sum, err := types.CheckedAdd(cur, amount)
	if err != nil {
		return err
	}
	l.free[k] = sum
	return nil
}

// Debit subtracts amount from the user's free balance. Fails with
// InsufficientBalance if free < amount. Used by Withdraw and by escrow at
// order placement.
func (l *Ledger) Debit(user types.User, token types.Token, amount types.Amount) error {
	k := key{user, token}
	cur, ok := l.free[k]
	if !ok {
		cur = types.Zero()
	}
	diff, err := types.CheckedSub(cur, amount)
	if err != nil {
		return err
	}
	l.free[k] = diff
	return nil
}

// EscrowForOrder debits the owner the cost of resting o at price/quantity.
// Buy escrows price*quantity of the pair's quote token; sell escrows
// quantity of the base token. Returns the token and amount debited, for
// BalanceUpdated event construction.
func (l *Ledger) EscrowForOrder(o *types.Order, price uint32, quantity uint32) (types.Token, types.Amount, error) {
	if o.Side == types.Buy {
		cost, err := types.CheckedMul(price, quantity)
		if err != nil {
			return "", nil, err
		}
		if err := l.Debit(o.Owner, o.Pair.Quote, cost); err != nil {
			return "", nil, err
		}
		return o.Pair.Quote, cost, nil
	}
	cost := types.FromUint32(quantity)
	if err := l.Debit(o.Owner, o.Pair.Base, cost); err != nil {
		return "", nil, err
	}
	return o.Pair.Base, cost, nil
}

// ReleaseEscrow credits back the portion of an order's escrow that
// corresponds to remainingQuantity still resting (used on cancel). Returns
// the token and amount refunded, for BalanceUpdated event construction.
func (l *Ledger) ReleaseEscrow(o *types.Order, remainingQuantity uint32) (types.Token, types.Amount, error) {
	if o.Side == types.Buy {
		price := uint32(0)
		if o.Price != nil {
			price = *o.Price
		}
		refund, err := types.CheckedMul(price, remainingQuantity)
		if err != nil {
			return "", nil, err
		}
		if err := l.Credit(o.Owner, o.Pair.Quote, refund); err != nil {
			return "", nil, err
		}
		return o.Pair.Quote, refund, nil
	}
	refund := types.FromUint32(remainingQuantity)
	if err := l.Credit(o.Owner, o.Pair.Base, refund); err != nil {
		return "", nil, err
	}
	return o.Pair.Base, refund, nil
}

// Entry is one row of a ledger snapshot.
type Entry struct {
	User   types.User
	Token  types.Token
	Amount types.Amount
}

// Snapshot returns every (user, token, amount) triple with a nonzero
// balance, for the state container's canonical encoder. The caller sorts
// the result if it needs a stable order.
func (l *Ledger) Snapshot() []Entry {
	out := make([]Entry, 0, len(l.free))
	for k, v := range l.free {
		if v.Sign() == 0 {
			continue
		}
		out = append(out, Entry{User: k.user, Token: k.token, Amount: v})
	}
	return out
}

// Balances returns every nonzero (token, amount) held by user.
func (l *Ledger) Balances(user types.User) []Entry {
	out := make([]Entry, 0)
	for k, v := range l.free {
		if k.user != user || v.Sign() == 0 {
			continue
		}
		out = append(out, Entry{User: k.user, Token: k.token, Amount: new(big.Int).Set(v)})
	}
	return out
}

// Clone deep-copies the ledger so a failed step can be rolled back by
// discarding the clone and keeping the original (spec §4.A's "a failed
// step is indistinguishable from an unattempted one").
func (l *Ledger) Clone() *Ledger {
	cp := &Ledger{free: make(map[key]types.Amount, len(l.free))}
	for k, v := range l.free {
		cp.free[k] = new(big.Int).Set(v)
	}
	return cp
}
