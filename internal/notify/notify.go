// Package notify delivers text-message summaries to callers. Delivery is
// best-effort: the voice flow never waits on it and never fails because of
// it.
package notify

import "context"

// Notifier is the interface a message transport must satisfy.
type Notifier interface {
	// Send delivers body to the given contact address.
	Send(ctx context.Context, to, body string) error
}
