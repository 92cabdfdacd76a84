package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/hyle-spot/spotbook/params"
	"github.com/hyle-spot/spotbook/pkg/engine"
	"github.com/hyle-spot/spotbook/pkg/engine/event"
	"github.com/hyle-spot/spotbook/pkg/engine/ledger"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

// ActionRecorder durably appends a committed action before it is
// acknowledged to the submitter, so a host can replay past a crash. A nil
// recorder disables durability and the action log file becomes the only
// record, which is fine for a scratch devnet.
type ActionRecorder interface {
	AppendAction(sequence uint64, caller string, raw []byte) error
}

// Server exposes the read-only indexer surface of §6 plus a demo action
// submission route, over REST and a WebSocket event feed.
type Server struct {
	engine   *engine.Engine
	recorder ActionRecorder
	seed     params.Seed
	router   *mux.Router
	hub      *Hub
	txLog    *os.File
	log      *zap.Logger
}

// NewServer wires router, websocket hub and the action-submission tx log
// around an already-constructed engine. recorder may be nil. seed is the
// demo instance's intended tokens/pairs, surfaced over /status for clients
// like actionctl to discover — the engine itself never restricts which
// tokens or pairs an action may name.
func NewServer(eng *engine.Engine, recorder ActionRecorder, seed params.Seed, logger *zap.Logger) *Server {
	txLogPath := os.Getenv("TX_LOG_FILE")
	if txLogPath == "" {
		txLogPath = "data/actions.log"
	}
	os.MkdirAll("data", 0755)

	txLog, err := os.OpenFile(txLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Warn("failed to open action log file", zap.String("path", txLogPath), zap.Error(err))
		txLog = nil
	} else {
		logger.Info("action log", zap.String("path", txLogPath))
	}

	s := &Server{
		engine:   eng,
		recorder: recorder,
		seed:     seed,
		router:   mux.NewRouter(),
		hub:      NewHub(logger),
		txLog:    txLog,
		log:      logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/orders/by-owner/{owner}", s.handleGetOrdersByOwner).Methods("GET")
	api.HandleFunc("/orders/{base}/{quote}", s.handleGetBook).Methods("GET")
	api.HandleFunc("/balances", s.handleGetAllBalances).Methods("GET")
	api.HandleFunc("/balances/{user}", s.handleGetUserBalances).Methods("GET")
	api.HandleFunc("/actions", s.handleSubmitAction).Methods("POST")
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the websocket hub loop and serves the API.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(s.router)

	s.log.Info("api server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, handler)
}

// ==============================
// REST handlers
// ==============================

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.engine.Orders()
	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = toOrderInfo(o)
	}
	respondJSON(w, out)
}

func (s *Server) handleGetOrdersByOwner(w http.ResponseWriter, r *http.Request) {
	owner := types.User(mux.Vars(r)["owner"])
	orders := s.engine.OrdersByOwner(owner)
	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = toOrderInfo(o)
	}
	respondJSON(w, out)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	base, quote := types.Token(vars["base"]), types.Token(vars["quote"])
	pair := types.Pair{Base: base, Quote: quote}

	bids, asks := s.engine.OrdersByPair(pair)
	respondJSON(w, toBookSnapshot(pair, bids, asks))
}

func (s *Server) handleGetAllBalances(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, toBalanceEntries(s.engine.AllBalances()))
}

func (s *Server) handleGetUserBalances(w http.ResponseWriter, r *http.Request) {
	user := types.User(mux.Vars(r)["user"])
	entries := s.engine.Balances(user)
	out := make([]BalanceInfo, len(entries))
	for i, e := range entries {
		out[i] = BalanceInfo{Token: string(e.Token), Amount: e.Amount.String()}
	}
	respondJSON(w, UserBalances{User: string(user), Balances: out})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	hash := s.engine.StateHash()
	respondJSON(w, map[string]any{
		"sequence":  s.engine.Sequence(),
		"stateHash": hex.EncodeToString(hash[:]),
		"seed": map[string]any{
			"tokens": s.seed.Tokens,
			"pairs":  s.seed.Pairs,
		},
	})
}

// handleSubmitAction decodes a hex-encoded canonical action (§9) and applies
// it as caller. Signature verification, sequencing and identity resolution
// are a host concern outside this boundary (§1); this demo route trusts the
// caller field directly.
func (s *Server) handleSubmitAction(w http.ResponseWriter, r *http.Request) {
	var req SubmitActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Caller == "" {
		respondError(w, http.StatusBadRequest, "missing caller", "")
		return
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(req.Action, "0x"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid hex action payload", err.Error())
		return
	}

	events, err := s.engine.ApplyBytes(types.User(req.Caller), raw)
	if err != nil {
		s.logAction(req.Caller, req.Action, "rejected", err.Error())
		respondJSON(w, SubmitActionResponse{Status: "rejected", Error: err.Error()})
		return
	}

	if s.recorder != nil {
		if err := s.recorder.AppendAction(s.engine.Sequence(), req.Caller, raw); err != nil {
			s.log.Warn("failed to append action to durable log", zap.Error(err))
		}
	}

	s.logAction(req.Caller, req.Action, "applied", "")
	infos := toEventInfos(events)
	s.broadcastEvents(infos)

	respondJSON(w, SubmitActionResponse{Status: "applied", Events: infos})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast
// ==============================

func (s *Server) broadcastEvents(infos []EventInfo) {
	if len(infos) == 0 {
		return
	}
	s.hub.BroadcastToChannel("events", EventBroadcast{Sequence: s.engine.Sequence(), Events: infos})

	touched := map[types.Pair]bool{}
	for _, info := range infos {
		if pair, ok := info.Data.(map[string]any)["pair"]; ok {
			if p, ok := pair.(types.Pair); ok {
				touched[p] = true
			}
		}
	}
	for pair := range touched {
		bids, asks := s.engine.OrdersByPair(pair)
		s.hub.BroadcastToChannel("book:"+pair.String(), BookBroadcast{Type: "book", BookSnapshot: toBookSnapshot(pair, bids, asks)})
	}
}

// ==============================
// Conversions
// ==============================

func toOrderInfo(o *types.Order) OrderInfo {
	info := OrderInfo{
		OrderID:  o.ID,
		Owner:    string(o.Owner),
		Side:     o.Side.String(),
		Base:     string(o.Pair.Base),
		Quote:    string(o.Pair.Quote),
		Quantity: o.Quantity,
	}
	if o.Price != nil {
		p := *o.Price
		info.Price = &p
	}
	return info
}

func toBookSnapshot(pair types.Pair, bids, asks []*types.Order) BookSnapshot {
	snap := BookSnapshot{Base: string(pair.Base), Quote: string(pair.Quote)}
	snap.Bids = make([]OrderInfo, len(bids))
	for i, o := range bids {
		snap.Bids[i] = toOrderInfo(o)
	}
	snap.Asks = make([]OrderInfo, len(asks))
	for i, o := range asks {
		snap.Asks[i] = toOrderInfo(o)
	}
	return snap
}

func toBalanceEntries(entries []ledger.Entry) []map[string]string {
	out := make([]map[string]string, len(entries))
	for i, e := range entries {
		out[i] = map[string]string{
			"user":   string(e.User),
			"token":  string(e.Token),
			"amount": e.Amount.String(),
		}
	}
	return out
}

func toEventInfos(events []event.Event) []EventInfo {
	out := make([]EventInfo, len(events))
	for i, ev := range events {
		out[i] = toEventInfo(ev)
	}
	return out
}

func toEventInfo(ev event.Event) EventInfo {
	switch ev.Kind {
	case event.KindOrderCreated:
		o := ev.OrderCreated.Order
		return EventInfo{Kind: "OrderCreated", Data: map[string]any{"order": toOrderInfo(&o), "pair": o.Pair}}
	case event.KindOrderUpdate:
		u := ev.OrderUpdate
		return EventInfo{Kind: "OrderUpdate", Data: map[string]any{
			"orderId": u.OrderID, "remainingQuantity": u.RemainingQuantity, "pair": u.Pair,
		}}
	case event.KindOrderExecuted:
		e := ev.OrderExecuted
		return EventInfo{Kind: "OrderExecuted", Data: map[string]any{"orderId": e.OrderID, "pair": e.Pair}}
	case event.KindOrderCancelled:
		c := ev.OrderCancelled
		return EventInfo{Kind: "OrderCancelled", Data: map[string]any{"orderId": c.OrderID, "pair": c.Pair}}
	case event.KindBalanceUpdated:
		b := ev.BalanceUpdated
		return EventInfo{Kind: "BalanceUpdated", Data: map[string]any{
			"user": string(b.User), "token": string(b.Token), "amount": b.Amount.String(),
		}}
	default:
		return EventInfo{Kind: "Unknown"}
	}
}

// ==============================
// Helpers
// ==============================

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: message})
}

// logAction appends one line per submitted action to the tx log, applied
// or rejected, after the engine has processed it.
func (s *Server) logAction(caller, action, status, reason string) {
	if s.txLog == nil {
		return
	}
	entry := map[string]any{
		"timestamp": time.Now().Format(time.RFC3339),
		"caller":    caller,
		"action":    action,
		"status":    status,
	}
	if reason != "" {
		entry["reason"] = reason
	}
	jsonData, err := json.Marshal(entry)
	if err != nil {
		s.log.Warn("failed to marshal action log entry", zap.Error(err))
		return
	}
	s.txLog.Write(jsonData)
	s.txLog.Write([]byte("\n"))
}
