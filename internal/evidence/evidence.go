// Package evidence implements the write-behind decision-event sink: one
// row per {detect, reject, submit, confirm} event, never read in the hot
// path.
package evidence

import "time"

// Kind is the fixed set of decision-event kinds.
type Kind string

const (
	KindDetect  Kind = "detect"
	KindReject  Kind = "reject"
	KindSubmit  Kind = "submit"
	KindConfirm Kind = "confirm"
)

// Event is one row written to the sink. ReserveIn/ReserveOut/AmountIn/FeeBps
// record the inputs a decision's profit estimate was computed from, so an
// offline validator can recompute against the same sim kernel rather than
// trusting the recorded estimate at face value.
type Event struct {
	Kind       Kind      `json:"kind"`
	Timestamp  time.Time `json:"ts"`
	Pool       string    `json:"pool"`
	Venue      string    `json:"venue"`
	Reason     string    `json:"reason,omitempty"`
	ProfitEst  int64     `json:"profitEst,omitempty"`
	Signature  string    `json:"sig,omitempty"`
	ReserveIn  uint64    `json:"reserveIn,omitempty"`
	ReserveOut uint64    `json:"reserveOut,omitempty"`
	AmountIn   uint64    `json:"amountIn,omitempty"`
	FeeBps     uint32    `json:"feeBps,omitempty"`
}

// Sink accepts decision events for durable write-behind persistence.
type Sink interface {
	Write(Event) error
	Close() error
}
