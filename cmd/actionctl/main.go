// Command actionctl builds, encodes and optionally submits one canonical
// action (§9) against a running hostd instance. It is a debugging tool,
// not a wallet: it trusts the caller flag directly rather than signing
// anything, the same shortcut the demo API route takes.
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/hyle-spot/spotbook/pkg/engine/action"
	"github.com/hyle-spot/spotbook/pkg/engine/types"
)

func main() {
	var (
		kind     = flag.String("kind", "", "create-order | cancel | deposit | withdraw")
		caller   = flag.String("caller", "", "caller user id")
		orderID  = flag.String("order-id", "", "order id (create-order, cancel); default: random uuid")
		side     = flag.String("side", "buy", "buy | sell (create-order)")
		price    = flag.Uint64("price", 0, "limit price; omit for a market order (create-order)")
		market   = flag.Bool("market", false, "force a market order (create-order)")
		base     = flag.String("base", "", "base token (create-order)")
		quote    = flag.String("quote", "", "quote token (create-order)")
		quantity = flag.Uint64("quantity", 0, "quantity (create-order)")
		token    = flag.String("token", "", "token (deposit/withdraw)")
		amount   = flag.Uint64("amount", 0, "amount (deposit/withdraw)")
		submit   = flag.String("submit", "", "if set, POST the action to this hostd base URL, e.g. http://localhost:8080")
	)
	flag.Parse()

	if *caller == "" {
		fmt.Fprintln(os.Stderr, "missing -caller")
		os.Exit(1)
	}

	var a *action.Action
	switch *kind {
	case "create-order":
		if *orderID == "" {
			*orderID = uuid.NewString()
		}
		s := types.Buy
		if *side == "sell" {
			s = types.Sell
		}
		var p *uint32
		if !*market && *price != 0 {
			pv := uint32(*price)
			p = &pv
		}
		a = &action.Action{Kind: action.KindCreateOrder, Create: &action.CreateOrderPayload{
			OrderID: *orderID, Side: s, Price: p,
			Pair:     types.Pair{Base: types.Token(*base), Quote: types.Token(*quote)},
			Quantity: uint32(*quantity),
		}}
	case "cancel":
		if *orderID == "" {
			fmt.Fprintln(os.Stderr, "missing -order-id")
			os.Exit(1)
		}
		a = &action.Action{Kind: action.KindCancel, Cancel: &action.CancelPayload{OrderID: *orderID}}
	case "deposit":
		a = &action.Action{Kind: action.KindDeposit, Deposit: &action.DepositPayload{Token: types.Token(*token), Amount: uint32(*amount)}}
	case "withdraw":
		a = &action.Action{Kind: action.KindWithdraw, Withdraw: &action.WithdrawPayload{Token: types.Token(*token), Amount: uint32(*amount)}}
	default:
		fmt.Fprintln(os.Stderr, "unknown -kind, want one of: create-order, cancel, deposit, withdraw")
		os.Exit(1)
	}

	if err := a.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid action: %v\n", err)
		os.Exit(1)
	}

	encoded, err := action.Encode(a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	encodedHex := hex.EncodeToString(encoded)

	fmt.Printf("action: %s\n", a)
	fmt.Printf("caller: %s\n", *caller)
	fmt.Printf("encoded (%d bytes): 0x%s\n", len(encoded), encodedHex)

	if *submit == "" {
		return
	}

	body, err := json.Marshal(map[string]string{"caller": *caller, "action": encodedHex})
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal request: %v\n", err)
		os.Exit(1)
	}

	resp, err := http.Post(*submit+"/api/v1/actions", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	out.WriteString(fmt.Sprintf("response status: %s\n", resp.Status))
	fmt.Print(out.String())
	var pretty map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&pretty); err == nil {
		encodedResp, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(encodedResp))
	}
}
