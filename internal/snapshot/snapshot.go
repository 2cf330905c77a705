// Package snapshot persists per-step captures of the reservation flow so an
// operator can reconstruct what the bot saw. Sinks are best effort: callers
// fire and forget.
package snapshot

import "context"

type Sink interface {
	// Capture stores one step capture. attempt is 1-based, step is the
	// 1-based position within the attempt, label names the step.
	Capture(ctx context.Context, attempt, step int, label string, data []byte) error
}

// Nop discards captures.
type Nop struct{}

func (Nop) Capture(context.Context, int, int, string, []byte) error { return nil }
