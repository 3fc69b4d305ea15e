// Package media defines the peer link a call negotiates. Session
// descriptions travel as opaque JSON blobs through signaling.
package media

import "context"

type State string

const (
	StateNew          State = "new"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateFailed       State = "failed"
	StateClosed       State = "closed"
)

// Transport is one side of a single call. Offers and answers are complete
// descriptions: candidate gathering finishes before they are returned.
type Transport interface {
	CreateOffer(ctx context.Context) ([]byte, error)
	AcceptOffer(ctx context.Context, offer []byte) (answer []byte, err error)
	AcceptAnswer(answer []byte) error
	// OnStateChange registers the link-state callback. It must be set
	// before negotiation starts.
	OnStateChange(fn func(State))
	Close() error
}

// Factory builds a fresh transport per call attempt.
type Factory func() (Transport, error)

// Stats counts inbound media for a link.
type Stats struct {
	Packets uint64
	Bytes   uint64
}

// StatsSource is implemented by transports that count received media.
type StatsSource interface {
	Stats() Stats
}
