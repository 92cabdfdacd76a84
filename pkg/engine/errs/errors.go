// Package errs defines the closed error taxonomy the engine can return.
// Every failure surfaced by pkg/engine maps to exactly one Kind; a step that
// returns an error is required to leave state untouched (see
// engine.Engine.Apply, which discards the working clone on error).
package errs

import "fmt"

// Kind is one of the seven recoverable failure classes a step can produce.
type Kind uint8

const (
	// MalformedAction covers decode failures and structural violations:
	// zero quantity, base == quote, empty order id.
	MalformedAction Kind = iota
	// DuplicateOrderId: an order with this id already rests in the book.
	DuplicateOrderId
	// UnknownOrder: a cancel target does not exist.
	UnknownOrder
	// Unauthorized: caller != owner on cancel.
	Unauthorized
	// InsufficientBalance: escrow or withdraw cannot be covered by free balance.
	InsufficientBalance
	// ArithmeticOverflow: price*quantity or a balance addition would overflow.
	ArithmeticOverflow
	// NoLiquidity: a market order found no fillable counter-liquidity.
	NoLiquidity
)

func (k Kind) String() string {
	switch k {
	case MalformedAction:
		return "MalformedAction"
	case DuplicateOrderId:
		return "DuplicateOrderId"
	case UnknownOrder:
		return "UnknownOrder"
	case Unauthorized:
		return "Unauthorized"
	case InsufficientBalance:
		return "InsufficientBalance"
	case ArithmeticOverflow:
		return "ArithmeticOverflow"
	case NoLiquidity:
		return "NoLiquidity"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind with a human-readable reason. It is always recoverable:
// the engine never panics on bad input, it returns an Error.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// New builds an *Error for the given kind.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Newf builds an *Error with a formatted reason.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given kind, so callers can
// write errors.Is(err, errs.New(errs.UnknownOrder, "")) style checks, or
// more simply use KindOf.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind from an error produced by this package, or
// returns (0, false) if err wasn't one of ours.
func KindOf(err error) (Kind, bool) {
	e, ok := err.(*Error)
	if !ok {
		return 0, false
	}
	return e.Kind, true
}
