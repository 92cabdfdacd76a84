package state

import (
	"math"
	"math/big"

	"github.com/hyle-spot/spotbook/pkg/engine/action"
	"github.com/hyle-spot/spotbook/pkg/engine/errs"
	"github.com/hyle-spot/spotbook/pkg/engine/event"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

// applyCreateOrder implements §4.D end to end: normalize, escrow, walk the
// opposite book under price-time priority, then either terminate the taker
// (full fill or market order) or rest its residue.
func (s *State) applyCreateOrder(caller types.User, p *action.CreateOrderPayload) ([]event.Event, error) {
	if _, exists := s.orders[p.OrderID]; exists {
		return nil, errs.Newf(errs.DuplicateOrderId, "order id %q already rests", p.OrderID)
	}

	taker := &types.Order{
		ID:       p.OrderID,
		Owner:    caller,
		Side:     p.Side,
		Price:    p.Price,
		Pair:     p.Pair,
		Quantity: p.Quantity,
	}
	isMarket := taker.IsMarket()

	if !isMarket {
		if _, _, err := s.ledger.EscrowForOrder(taker, *taker.Price, taker.Quantity); err != nil {
			return nil, err
		}
	} else if taker.Side == types.Sell {
		if err := s.ledger.Debit(caller, taker.Pair.Base, types.FromUint32(taker.Quantity)); err != nil {
			return nil, err
		}
	}

	book := s.bookFor(taker.Pair)
	oppositeSide := types.Sell
	if taker.Side == types.Sell {
		oppositeSide = types.Buy
	}

	var events []event.Event
	filled := uint32(0)

	for taker.Quantity > 0 {
		maker, ok := book.Front(oppositeSide)
		if !ok {
			break
		}
		makerPrice := *maker.Price
		tradeQty := minU32(taker.Quantity, maker.Quantity)

		if isMarket {
			if taker.Side == types.Buy {
				free := s.ledger.Free(caller, taker.Pair.Quote)
				affordable := affordableQuantity(free, makerPrice)
				if affordable == 0 {
					break
				}
				tradeQty = minU32(tradeQty, affordable)
			}
		} else {
			if taker.Side == types.Buy && makerPrice > *taker.Price {
				break
			}
			if taker.Side == types.Sell && makerPrice < *taker.Price {
				break
			}
		}

		cost, err := types.CheckedMul(makerPrice, tradeQty)
		if err != nil {
			return nil, err
		}
		baseAmt := types.FromUint32(tradeQty)

		var buyer, seller types.User
		if taker.Side == types.Buy {
			buyer, seller = taker.Owner, maker.Owner
		} else {
			buyer, seller = maker.Owner, taker.Owner
		}

		// Quote leg for the buyer's side of the trade. A maker buyer already
		// escrowed exactly makerPrice*quantity at rest time, so only a buyer
		// who is this step's taker needs anything done here: a limit taker
		// over-escrowed at its own (worse-or-equal) price and gets the
		// difference refunded; a market taker never pre-escrowed and is
		// debited now.
		if taker.Side == types.Buy {
			if isMarket {
				if err := s.ledger.Debit(buyer, taker.Pair.Quote, cost); err != nil {
					return nil, err
				}
			} else if *taker.Price > makerPrice {
				refund, err := types.CheckedMul(*taker.Price-makerPrice, tradeQty)
				if err != nil {
					return nil, err
				}
				if err := s.ledger.Credit(buyer, taker.Pair.Quote, refund); err != nil {
					return nil, err
				}
			}
		}

		if err := s.ledger.Credit(seller, taker.Pair.Quote, cost); err != nil {
			return nil, err
		}
		events = append(events, event.NewBalanceUpdated(seller, taker.Pair.Quote, s.ledger.Free(seller, taker.Pair.Quote)))

		if err := s.ledger.Credit(buyer, taker.Pair.Base, baseAmt); err != nil {
			return nil, err
		}
		events = append(events, event.NewBalanceUpdated(buyer, taker.Pair.Base, s.ledger.Free(buyer, taker.Pair.Base)))

		taker.Quantity -= tradeQty
		maker.Quantity -= tradeQty
		filled += tradeQty

		if maker.Quantity == 0 {
			book.PopFront(oppositeSide)
			delete(s.orders, maker.ID)
			events = append(events, event.NewOrderExecuted(maker.ID, taker.Pair))
		} else {
			events = append(events, event.NewOrderUpdate(maker.ID, maker.Quantity, taker.Pair))
		}
	}

	if isMarket {
		if filled == 0 {
			return nil, errs.New(errs.NoLiquidity, "market order matched no counter-liquidity")
		}
		if taker.Side == types.Sell && taker.Quantity > 0 {
			refund := types.FromUint32(taker.Quantity)
			if err := s.ledger.Credit(caller, taker.Pair.Base, refund); err != nil {
				return nil, err
			}
			events = append(events, event.NewBalanceUpdated(caller, taker.Pair.Base, s.ledger.Free(caller, taker.Pair.Base)))
		}
		events = append(events, event.NewOrderExecuted(taker.ID, taker.Pair))
		return events, nil
	}

	if taker.Quantity == 0 {
		events = append(events, event.NewOrderExecuted(taker.ID, taker.Pair))
		return events, nil
	}

	resting := taker.Clone()
	book.Insert(resting)
	s.orders[resting.ID] = resting
	events = append(events, event.NewOrderCreated(*resting))
	return events, nil
}

// affordableQuantity returns how many units at price the caller can afford
// out of free, used to cap a market buy's walk as its escrow is drawn down
// incrementally (§4.D.7). A zero price is treated as free of charge.
func affordableQuantity(free types.Amount, price uint32) uint32 {
	if price == 0 {
		return math.MaxUint32
	}
	q := new(big.Int).Div(free, big.NewInt(int64(price)))
	if !q.IsUint64() || q.Uint64() > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(q.Uint64())
}
