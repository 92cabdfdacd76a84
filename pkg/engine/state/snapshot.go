package state

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/hyle-spot/spotbook/pkg/engine/ledger"
	"github.com/hyle-spot/spotbook/pkg/engine/orderbook"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

// Snapshot returns the canonical encoding of s (§6): balances sorted by
// user then token, orders sorted by order_id, books sorted by pair then by
// price within each side. Two states with equal logical content produce
// byte-identical snapshots.
func (s *State) Snapshot() []byte {
	var buf bytes.Buffer

	balances := s.ledger.Snapshot()
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].User != balances[j].User {
			return balances[i].User < balances[j].User
		}
		return balances[i].Token < balances[j].Token
	})
	writeU32(&buf, uint32(len(balances)))
	for _, b := range balances {
		writeEntry(&buf, b)
	}

	orders := s.Orders() // already sorted by id
	writeU32(&buf, uint32(len(orders)))
	for _, o := range orders {
		writeOrder(&buf, o)
	}

	pairs := make([]types.Pair, 0, len(s.books))
	for pair, b := range s.books {
		if b.IsEmpty() {
			continue
		}
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Less(pairs[j]) })
	writeU32(&buf, uint32(len(pairs)))
	for _, pair := range pairs {
		writeString(&buf, string(pair.Base))
		writeString(&buf, string(pair.Quote))
		writeSide(&buf, s.books[pair].SortedLevels(types.Buy))
		writeSide(&buf, s.books[pair].SortedLevels(types.Sell))
	}

	return buf.Bytes()
}

func writeSide(buf *bytes.Buffer, levels []orderbook.PriceLevel) {
	writeU32(buf, uint32(len(levels)))
	for _, lvl := range levels {
		writeU32(buf, lvl.Price)
		writeU32(buf, uint32(len(lvl.Orders)))
		for _, o := range lvl.Orders {
			writeString(buf, o.ID)
		}
	}
}

func writeEntry(buf *bytes.Buffer, e ledger.Entry) {
	writeString(buf, string(e.User))
	writeString(buf, string(e.Token))
	amt := e.Amount.Bytes()
	writeU32(buf, uint32(len(amt)))
	buf.Write(amt)
}

func writeOrder(buf *bytes.Buffer, o *types.Order) {
	writeString(buf, o.ID)
	writeString(buf, string(o.Owner))
	buf.WriteByte(byte(o.Side))
	if o.Price == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeU32(buf, *o.Price)
	}
	writeString(buf, string(o.Pair.Base))
	writeString(buf, string(o.Pair.Quote))
	writeU32(buf, o.Quantity)
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, str string) {
	writeU32(buf, uint32(len(str)))
	buf.WriteString(str)
}
