package repo

import (
	"context"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

// SessionDriver is the transport behind the WhatsApp session
type SessionDriver interface {
	// Start begins authentication; lifecycle events are delivered on events
	// until ctx is cancelled. It must not close events.
	Start(ctx context.Context, events chan<- domain.SessionEvent) error

	// Send delivers a text message to a phone number (digits only)
	Send(ctx context.Context, to, text string) error

	// Logout ends the authenticated session
	Logout(ctx context.Context) error
}
