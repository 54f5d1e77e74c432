// Package ingress abstracts the inbound event stream as a synchronous
// push-callback interface, standing in for whatever shred-stream,
// WebSocket, or gRPC driver actually produces AccountUpdate and TxUpdate
// events (that driver itself is out of scope here).
package ingress

import "github.com/aerofoil/solmev/internal/types"

// TxUpdate is a transaction-shaped ingress event.
type TxUpdate struct {
	Signature [64]byte
	Message   []byte
	Slot      uint64
	Source    types.Source

	// Raw is the full signed wire-encoded transaction, carried alongside
	// the decoded Message so a pending victim transaction can be
	// rebroadcast verbatim as the first leg of a backrun bundle. Empty on
	// drivers that only surface the decoded message.
	Raw []byte

	// Confirmed-only fields; zero values on a pending TxUpdate.
	Confirmed          bool
	PreTokenBalances   []uint64
	PostTokenBalances  []uint64
	LoadedALTAddresses []types.Pubkey
}

// Event is the stream's leaf unit: exactly one of AccountUpdate or
// TxUpdate is non-nil.
type Event struct {
	Account *types.AccountUpdate
	Tx      *TxUpdate
}

// Handler processes one Event synchronously on the critical worker. Only
// I/O the handler itself performs asynchronously (ALT fetch, relay
// submit, bootstrap RPC) should suspend; the handler call itself must not
// block on network I/O.
type Handler func(Event)

// Stream is the push-callback abstraction: an ordered sequence of Event
// with no synchronous return value, since the driver behind it may be a
// socket, a channel, or a replay log.
type Stream interface {
	OnEvent(Handler)
	Run() error
	Stop()
}

// ChannelStream is a channel-backed reference implementation, usable in
// tests and for bootstrapping from a finite replay of events.
type ChannelStream struct {
	events  chan Event
	handler Handler
	stop    chan struct{}
}

// NewChannelStream constructs a ChannelStream with the given buffer depth.
func NewChannelStream(depth int) *ChannelStream {
	return &ChannelStream{
		events: make(chan Event, depth),
		stop:   make(chan struct{}),
	}
}

// OnEvent registers the handler invoked for each pushed event.
func (s *ChannelStream) OnEvent(h Handler) { s.handler = h }

// Push enqueues an event for delivery. Returns false if the buffer is
// saturated (backpressure): callers should bump a drop counter.
func (s *ChannelStream) Push(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// Run drains events to the registered handler until Stop is called.
func (s *ChannelStream) Run() error {
	for {
		select {
		case ev := <-s.events:
			if s.handler != nil {
				s.handler(ev)
			}
		case <-s.stop:
			return nil
		}
	}
}

// Stop terminates Run.
func (s *ChannelStream) Stop() { close(s.stop) }
