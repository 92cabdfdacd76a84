package api

// API response and request types for the read-only indexer surface (§6
// "Read surface") and the demo action-submission route this host adds on
// top of it.

// OrderInfo is the wire-JSON shape of a live order.
type OrderInfo struct {
	OrderID  string  `json:"orderId"`
	Owner    string  `json:"owner"`
	Side     string  `json:"side"`
	Price    *uint32 `json:"price,omitempty"`
	Base     string  `json:"base"`
	Quote    string  `json:"quote"`
	Quantity uint32  `json:"quantity"`
}

// BookSnapshot is a pair's resting orders, split by side, each already in
// the price-time order the engine would match them.
type BookSnapshot struct {
	Base  string      `json:"base"`
	Quote string      `json:"quote"`
	Bids  []OrderInfo `json:"bids"`
	Asks  []OrderInfo `json:"asks"`
}

// BalanceInfo is one (token, amount) free-balance entry. Amount is a
// decimal string because a u128 balance does not always fit a JSON number
// without precision loss.
type BalanceInfo struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// UserBalances is every nonzero balance for one user.
type UserBalances struct {
	User     string        `json:"user"`
	Balances []BalanceInfo `json:"balances"`
}

// SubmitActionRequest carries a hex-encoded canonical action (§6) plus the
// caller to attribute it to. Signature verification and identity
// resolution happen upstream of this boundary, outside the core (§1); this
// demo indexer trusts the caller field directly rather than authenticating
// it itself.
type SubmitActionRequest struct {
	Caller string `json:"caller"`
	Action string `json:"action"`
}

// SubmitActionResponse reports the events a submitted action produced, or
// the error kind if it was rejected.
type SubmitActionResponse struct {
	Status string      `json:"status"`
	Events []EventInfo `json:"events,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// EventInfo is the JSON projection of an engine event for API consumers.
type EventInfo struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// ErrorResponse is returned for all REST errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WSSubscribeRequest is sent by a client to manage its channel
// subscriptions: "events" for the full event stream, or
// "book:BASE/QUOTE" for one pair's book.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// EventBroadcast is pushed to subscribers of "events" after each committed
// step.
type EventBroadcast struct {
	Sequence uint64      `json:"sequence"`
	Events   []EventInfo `json:"events"`
}

// BookBroadcast is pushed to subscribers of "book:BASE/QUOTE" after a step
// touches that pair.
type BookBroadcast struct {
	Type string `json:"type"`
	BookSnapshot
}
