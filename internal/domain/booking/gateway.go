package booking

import "context"

// Gateway abstracts the layer that talks to the reservation service. One
// gateway instance serves one attempt: acquired at attempt start, closed on
// every exit path. Implementations must report structural problems as
// *Failure, never panic into the session.
type Gateway interface {
	Login(ctx context.Context) error
	CheckAvailability(ctx context.Context, stay Stay) (Report, error)
	SubmitReservation(ctx context.Context, req Request) error
	JoinWaitlist(ctx context.Context, req Request) error

	// Snapshot returns a dump of the current page/service state for the
	// snapshot sink. Best effort.
	Snapshot(ctx context.Context) ([]byte, error)

	Close() error
}

// GatewayFactory builds a fresh gateway for one attempt.
type GatewayFactory func(ctx context.Context) (Gateway, error)
