package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/log"
	"github.com/DevRickLin/whats-live/internal/metrics"
)

const (
	maxReconnectAttempts = 3
	authFailureDelay     = 5 * time.Second
	disconnectDelay      = 10 * time.Second
)

var sessionStatuses = []string{
	string(domain.SessionInitializing),
	string(domain.SessionQRPending),
	string(domain.SessionReady),
	string(domain.SessionDisconnected),
	string(domain.SessionAuthFailure),
	string(domain.SessionNotAvailable),
}

// MessageSink receives messages pushed by the session
type MessageSink interface {
	Ingest(ctx context.Context, p domain.Platform, msgs []domain.Message) (int, error)
}

// Session is the WhatsApp client lifecycle: pairing, readiness, capped
// reconnects and outbound sends
type Session struct {
	driver repo.SessionDriver
	events *Broker[domain.SessionEvent]
	sink   MessageSink

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	status         domain.SessionStatus
	qrCode         string // PNG data URL
	authenticated  bool
	initializing   bool
	hasClient      bool
	lastErr        string
	attempts       int
	reconnectTimer *time.Timer
	runCancel      context.CancelFunc

	maxAttempts      int
	authFailureDelay time.Duration
	disconnectDelay  time.Duration

	logger zerolog.Logger
}

// NewSession creates a session. A nil driver leaves it NOT_AVAILABLE.
func NewSession(driver repo.SessionDriver, events *Broker[domain.SessionEvent], sink MessageSink) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		driver:           driver,
		events:           events,
		sink:             sink,
		ctx:              ctx,
		cancel:           cancel,
		status:           domain.SessionDisconnected,
		maxAttempts:      maxReconnectAttempts,
		authFailureDelay: authFailureDelay,
		disconnectDelay:  disconnectDelay,
		logger:           log.WithComponent("whatsapp"),
	}
	if driver == nil {
		s.status = domain.SessionNotAvailable
	}
	metrics.SetSessionStatus(string(s.status), sessionStatuses)
	return s
}

// Initialize starts the driver. It is a no-op when already ready and fails
// while a previous initialization is still running.
func (s *Session) Initialize(ctx context.Context) error {
	if s.driver == nil {
		return domain.ErrSessionUnavailable
	}

	s.mu.Lock()
	if s.initializing {
		s.mu.Unlock()
		return domain.ErrSessionInitializing
	}
	if s.status == domain.SessionReady {
		s.mu.Unlock()
		return nil
	}
	if s.hasClient {
		s.logger.Debug().Msg("client exists, destroying before re-initialize")
		s.teardownLocked()
	}

	runCtx, runCancel := context.WithCancel(s.ctx)
	ch := make(chan domain.SessionEvent, 16)
	s.runCancel = runCancel
	s.initializing = true
	s.hasClient = true
	s.lastErr = ""
	s.setStatusLocked(domain.SessionInitializing)
	s.mu.Unlock()

	s.publishStatus()
	go s.consume(runCtx, ch)

	s.logger.Info().Msg("initializing WhatsApp client")
	err := s.driver.Start(runCtx, ch)

	s.mu.Lock()
	s.initializing = false
	if err != nil {
		runCancel()
		s.lastErr = err.Error()
		s.setStatusLocked(domain.SessionAuthFailure)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("initialize failed")
		s.publishStatus()
		return err
	}
	return nil
}

// Logout ends the authenticated session without scheduling a reconnect
func (s *Session) Logout(ctx context.Context) error {
	if s.driver == nil {
		return domain.ErrSessionUnavailable
	}
	if err := s.driver.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()

	s.logger.Info().Msg("logged out")
	s.publish(domain.SessionEvent{Type: domain.EventDisconnected, Reason: domain.LogoutReason})
	return nil
}

// Destroy drops the client and resets all session state
func (s *Session) Destroy() {
	s.mu.Lock()
	s.teardownLocked()
	s.initializing = false
	s.mu.Unlock()

	s.logger.Info().Msg("client destroyed")
	s.publishStatus()
}

// Send delivers a text message; number is reduced to its digits
func (s *Session) Send(ctx context.Context, number, text string) error {
	s.mu.Lock()
	ready := s.status == domain.SessionReady && s.hasClient
	s.mu.Unlock()
	if !ready {
		return domain.ErrSessionNotReady
	}

	digits := digitsOnly(number)
	if digits == "" {
		return domain.NewValidationError("phoneNumber", "must contain digits")
	}
	if strings.TrimSpace(text) == "" {
		return domain.NewValidationError("message", "is required")
	}

	if err := s.driver.Send(ctx, digits, text); err != nil {
		s.logger.Error().Err(err).Str("to", digits).Msg("send failed")
		return err
	}
	s.logger.Info().Str("to", digits).Msg("message sent")
	return nil
}

// State returns a snapshot of the session
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Available reports whether a driver is configured
func (s *Session) Available() bool {
	return s.driver != nil
}

// Stop cancels the driver and any pending reconnect
func (s *Session) Stop() {
	s.mu.Lock()
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) stateLocked() domain.SessionState {
	return domain.SessionState{
		Status:          s.status,
		IsReady:         s.status == domain.SessionReady,
		IsAuthenticated: s.authenticated,
		IsInitializing:  s.initializing,
		HasClient:       s.hasClient,
		QRCode:          s.qrCode,
		Error:           s.lastErr,
	}
}

func (s *Session) teardownLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	s.hasClient = false
	s.authenticated = false
	s.qrCode = ""
	s.attempts = 0
	s.setStatusLocked(domain.SessionDisconnected)
}

func (s *Session) setStatusLocked(status domain.SessionStatus) {
	s.status = status
	metrics.SetSessionStatus(string(status), sessionStatuses)
}

func (s *Session) consume(ctx context.Context, ch <-chan domain.SessionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev domain.SessionEvent) {
	s.mu.Lock()
	var reconnectAfter time.Duration
	switch ev.Type {
	case domain.EventQR:
		dataURL, err := qrDataURL(ev.QRCode)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to render QR code")
		}
		s.qrCode = dataURL
		ev.QRCode = dataURL
		s.setStatusLocked(domain.SessionQRPending)
		s.logger.Info().Msg("QR code generated")

	case domain.EventAuthenticated:
		s.authenticated = true
		s.logger.Info().Msg("authenticated")

	case domain.EventReady:
		s.qrCode = ""
		s.attempts = 0
		s.lastErr = ""
		s.authenticated = true
		s.setStatusLocked(domain.SessionReady)
		s.logger.Info().Msg("WhatsApp ready")

	case domain.EventAuthFailure:
		s.authenticated = false
		s.lastErr = ev.Reason
		s.setStatusLocked(domain.SessionAuthFailure)
		reconnectAfter = s.authFailureDelay
		s.logger.Error().Str("reason", ev.Reason).Msg("authentication failed")

	case domain.EventDisconnected:
		s.authenticated = false
		s.qrCode = ""
		s.setStatusLocked(domain.SessionDisconnected)
		if ev.Reason != domain.LogoutReason {
			reconnectAfter = s.disconnectDelay
		}
		s.logger.Warn().Str("reason", ev.Reason).Msg("disconnected")

	case domain.EventMessage:
		s.mu.Unlock()
		if ev.Message != nil && s.sink != nil {
			if _, err := s.sink.Ingest(ctx, domain.PlatformWhatsApp, []domain.Message{*ev.Message}); err != nil {
				s.logger.Debug().Err(err).Msg("session message not ingested")
			}
		}
		s.publish(ev)
		return
	}
	if reconnectAfter > 0 {
		s.scheduleReconnectLocked(reconnectAfter)
	}
	s.mu.Unlock()

	s.publish(ev)
}

func (s *Session) scheduleReconnectLocked(delay time.Duration) {
	if s.attempts >= s.maxAttempts {
		s.logger.Warn().Int("attempts", s.attempts).Msg("maximum reconnect attempts reached")
		return
	}
	s.attempts++
	s.logger.Info().
		Int("attempt", s.attempts).
		Int("max", s.maxAttempts).
		Dur("delay", delay).
		Msg("scheduling reconnect")

	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
	}
	s.reconnectTimer = time.AfterFunc(delay, func() {
		if err := s.reconnect(); err != nil {
			s.logger.Error().Err(err).Msg("reconnect failed")
		}
	})
}

// reconnect re-runs the driver keeping the attempt counter
func (s *Session) reconnect() error {
	s.mu.Lock()
	if s.ctx.Err() != nil || s.initializing || !s.hasClient {
		s.mu.Unlock()
		return nil
	}
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	s.hasClient = false
	s.reconnectTimer = nil
	s.mu.Unlock()

	return s.Initialize(s.ctx)
}

func (s *Session) publish(ev domain.SessionEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if s.events != nil {
		s.events.Publish(ev)
	}
}

func (s *Session) publishStatus() {
	state := s.State()
	s.publish(domain.SessionEvent{Type: domain.EventStatus, Status: &state})
}

// qrDataURL renders a pairing payload as a PNG data URL
func qrDataURL(content string) (string, error) {
	if content == "" {
		return "", nil
	}
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
