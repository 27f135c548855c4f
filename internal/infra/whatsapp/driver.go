package whatsapp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/log"
)

func emit(ctx context.Context, events chan<- domain.SessionEvent, ev domain.SessionEvent) bool {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// CloudDriver authenticates against the Cloud API. Inbound messages arrive
// through the webhook, not through the driver.
type CloudDriver struct {
	graph *GraphClient
}

// NewCloudDriver creates a Cloud API session driver
func NewCloudDriver(graph *GraphClient) *CloudDriver {
	return &CloudDriver{graph: graph}
}

// Start verifies the phone number id with the access token
func (d *CloudDriver) Start(ctx context.Context, events chan<- domain.SessionEvent) error {
	logger := log.WithComponent("whatsapp")

	phone, err := d.graph.VerifyPhoneNumber(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Cloud API verification failed")
		emit(ctx, events, domain.SessionEvent{Type: domain.EventAuthFailure, Reason: err.Error()})
		return nil
	}

	logger.Info().
		Str("phone", phone.DisplayPhoneNumber).
		Str("name", phone.VerifiedName).
		Msg("Cloud API verified")

	if !emit(ctx, events, domain.SessionEvent{Type: domain.EventAuthenticated}) {
		return ctx.Err()
	}
	emit(ctx, events, domain.SessionEvent{Type: domain.EventReady})
	return nil
}

// Send posts a text message
func (d *CloudDriver) Send(ctx context.Context, to, text string) error {
	_, err := d.graph.SendText(ctx, to, text)
	return err
}

// Logout is a no-op; Cloud API tokens are not session bound
func (d *CloudDriver) Logout(ctx context.Context) error {
	return nil
}

// PairingDriver imitates a QR pairing flow for demos without Cloud credentials.
// It shows one pairing code and reports ready after Delay.
type PairingDriver struct {
	Delay time.Duration

	mu   sync.Mutex
	sent []SentMessage
}

// SentMessage is a message accepted by the pairing driver
type SentMessage struct {
	To   string
	Text string
}

// NewPairingDriver creates a pairing driver
func NewPairingDriver(delay time.Duration) *PairingDriver {
	return &PairingDriver{Delay: delay}
}

// Start emits a pairing payload, then authenticated and ready after the delay
func (d *PairingDriver) Start(ctx context.Context, events chan<- domain.SessionEvent) error {
	code := "whatslive-pair:" + uuid.New().String()
	if !emit(ctx, events, domain.SessionEvent{Type: domain.EventQR, QRCode: code}) {
		return ctx.Err()
	}

	go func() {
		timer := time.NewTimer(d.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
		if emit(ctx, events, domain.SessionEvent{Type: domain.EventAuthenticated}) {
			emit(ctx, events, domain.SessionEvent{Type: domain.EventReady})
		}
	}()
	return nil
}

// Send records the message
func (d *PairingDriver) Send(ctx context.Context, to, text string) error {
	d.mu.Lock()
	d.sent = append(d.sent, SentMessage{To: to, Text: text})
	d.mu.Unlock()
	logger := log.WithComponent("whatsapp")
	logger.Info().Str("to", to).Msg("demo message accepted")
	return nil
}

// Sent returns the messages accepted so far
func (d *PairingDriver) Sent() []SentMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SentMessage(nil), d.sent...)
}

// Logout clears nothing; pairing state lives only in the session
func (d *PairingDriver) Logout(ctx context.Context) error {
	return nil
}
