package orderbook

import (
	"container/heap"
	"sort"

	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

// priceHeap is the common surface MaxPriceHeap and MinPriceHeap both offer;
// Book only ever needs to know "the best price is on top".
type priceHeap interface {
	heap.Interface
	Peek() uint32
}

// Book is the resting-order store for one pair: a heap-ordered set of price
// levels on each side, each level a FIFO queue (price-time priority, §4.D).
// Stale price-level entries are removed from the heaps lazily, the first
// time BestPrice finds the level's queue empty — container/heap has no
// cheap arbitrary-element removal, so a level that drains via Cancel just
// leaves its price sitting in the heap until the next lookup notices.
type Book struct {
	Pair types.Pair

	bids MaxPriceHeap
	asks MinPriceHeap

	bidQueue map[uint32][]*types.Order
	askQueue map[uint32][]*types.Order

	orders map[string]*types.Order
}

// NewBook returns an empty book for pair.
func NewBook(pair types.Pair) *Book {
	return &Book{
		Pair:     pair,
		bidQueue: make(map[uint32][]*types.Order),
		askQueue: make(map[uint32][]*types.Order),
		orders:   make(map[string]*types.Order),
	}
}

func (b *Book) heapFor(side types.Side) priceHeap {
	if side == types.Buy {
		return &b.bids
	}
	return &b.asks
}

func (b *Book) queueFor(side types.Side) map[uint32][]*types.Order {
	if side == types.Buy {
		return b.bidQueue
	}
	return b.askQueue
}

// Insert rests o at its limit price. o must not already be in the book and
// must carry a non-nil Price (market orders never rest, per §4.D).
func (b *Book) Insert(o *types.Order) {
	price := *o.Price
	q := b.queueFor(o.Side)
	if _, exists := q[price]; !exists {
		heap.Push(b.heapFor(o.Side), price)
	}
	q[price] = append(q[price], o)
	b.orders[o.ID] = o
}

// BestPrice returns the best (highest bid / lowest ask) price on side with
// at least one resting order, discarding any stale, now-empty levels it
// finds sitting on top of the heap along the way.
func (b *Book) BestPrice(side types.Side) (uint32, bool) {
	h := b.heapFor(side)
	q := b.queueFor(side)
	for h.Len() > 0 {
		top := h.Peek()
		if len(q[top]) > 0 {
			return top, true
		}
		heap.Pop(h)
		delete(q, top)
	}
	return 0, false
}

// Front returns the oldest resting order at side's best price, without
// removing it.
func (b *Book) Front(side types.Side) (*types.Order, bool) {
	price, ok := b.BestPrice(side)
	if !ok {
		return nil, false
	}
	q := b.queueFor(side)[price]
	return q[0], true
}

// PopFront removes and returns the oldest resting order at side's best
// price. Used when a fill fully consumes that order.
func (b *Book) PopFront(side types.Side) (*types.Order, bool) {
	key, ok := b.BestPrice(side)
	if !ok {
		return nil, false
	}
	q := b.queueFor(side)
	front := q[key][0]
	rest := q[key][1:]
	if len(rest) == 0 {
		delete(q, key)
	} else {
		q[key] = rest
	}
	delete(b.orders, front.ID)
	return front, true
}

// Get looks up a resting order by id.
func (b *Book) Get(id string) (*types.Order, bool) {
	o, ok := b.orders[id]
	return o, ok
}

// Cancel removes the resting order with the given id from its level's
// queue, wherever it sits in FIFO order, and returns it.
func (b *Book) Cancel(id string) (*types.Order, bool) {
	o, ok := b.orders[id]
	if !ok {
		return nil, false
	}
	key := *o.Price
	q := b.queueFor(o.Side)
	level := q[key]
	for i, x := range level {
		if x.ID == id {
			level = append(level[:i], level[i+1:]...)
			break
		}
	}
	if len(level) == 0 {
		delete(q, key)
	} else {
		q[key] = level
	}
	delete(b.orders, id)
	return o, true
}

// All returns every resting order in the book, in no particular order; the
// state container sorts this itself when it needs a canonical ordering.
func (b *Book) All() []*types.Order {
	out := make([]*types.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o)
	}
	return out
}

// Len reports how many orders rest on side.
func (b *Book) Len(side types.Side) int {
	count := 0
	for _, level := range b.queueFor(side) {
		count += len(level)
	}
	return count
}

// IsEmpty reports whether no orders rest on either side. A book can reach
// this state without ever being removed from its owning state's pair map
// (e.g. a taker that fully drains the opposite side), so callers that
// enumerate pairs must check this rather than assuming map membership
// implies a nonempty book.
func (b *Book) IsEmpty() bool {
	return b.Len(types.Buy) == 0 && b.Len(types.Sell) == 0
}

// Crossed reports whether the book's best bid is >= its best ask, which
// should never be observable after a step completes (§8 invariant: no
// crossed book).
func (b *Book) Crossed() bool {
	bid, okB := b.BestPrice(types.Buy)
	ask, okA := b.BestPrice(types.Sell)
	return okB && okA && bid >= ask
}

// PriceLevel is one price and the orders resting there, in FIFO order.
type PriceLevel struct {
	Price  uint32
	Orders []*types.Order
}

// SortedLevels returns side's non-empty price levels in ascending price
// order, used by the canonical snapshot encoder.
func (b *Book) SortedLevels(side types.Side) []PriceLevel {
	q := b.queueFor(side)
	prices := make([]uint32, 0, len(q))
	for p, level := range q {
		if len(level) > 0 {
			prices = append(prices, p)
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	out := make([]PriceLevel, 0, len(prices))
	for _, p := range prices {
		out = append(out, PriceLevel{Price: p, Orders: q[p]})
	}
	return out
}

// PriceTimeOrder flattens side into the order the matching engine would
// consume it: best price first, FIFO within a level. Bids are
// highest-price-first, asks lowest-price-first.
func (b *Book) PriceTimeOrder(side types.Side) []*types.Order {
	levels := b.SortedLevels(side)
	if side == types.Buy {
		for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
			levels[i], levels[j] = levels[j], levels[i]
		}
	}
	out := make([]*types.Order, 0, len(b.orders))
	for _, lvl := range levels {
		out = append(out, lvl.Orders...)
	}
	return out
}

// Clone deep-copies the book: every resting order is copied, and FIFO
// order within each level is preserved.
func (b *Book) Clone() *Book {
	cp := NewBook(b.Pair)
	for price, level := range b.bidQueue {
		if len(level) == 0 {
			continue
		}
		cloned := make([]*types.Order, len(level))
		for i, o := range level {
			cloned[i] = o.Clone()
			cp.orders[cloned[i].ID] = cloned[i]
		}
		cp.bidQueue[price] = cloned
		heap.Push(&cp.bids, price)
	}
	for price, level := range b.askQueue {
		if len(level) == 0 {
			continue
		}
		cloned := make([]*types.Order, len(level))
		for i, o := range level {
			cloned[i] = o.Clone()
			cp.orders[cloned[i].ID] = cloned[i]
		}
		cp.askQueue[price] = cloned
		heap.Push(&cp.asks, price)
	}
	return cp
}
