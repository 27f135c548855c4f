// Package api serves the operator HTTP API, the WhatsApp webhook and the
// presentation surface feeds.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/usecase"
	"github.com/DevRickLin/whats-live/internal/log"
	"github.com/DevRickLin/whats-live/internal/metrics"
	"github.com/DevRickLin/whats-live/internal/service"
)

// Connections drives platform connections
type Connections interface {
	Connect(ctx context.Context, p domain.Platform, in service.ConnectInput) (domain.Connection, int, error)
	Disconnect(ctx context.Context, p domain.Platform) (domain.Connection, error)
	Refresh(ctx context.Context, p domain.Platform) (int, error)
	RefreshAll(ctx context.Context) int
	LoadMore(ctx context.Context, p domain.Platform) (int, error)
	Ingest(ctx context.Context, p domain.Platform, msgs []domain.Message) (int, error)
	Interval(p domain.Platform) time.Duration
	SetInterval(p domain.Platform, interval time.Duration) error
	ApplyAutoRefresh(interval time.Duration)
}

// Session is the WhatsApp client lifecycle
type Session interface {
	Initialize(ctx context.Context) error
	Logout(ctx context.Context) error
	Destroy()
	Send(ctx context.Context, number, text string) error
	State() domain.SessionState
}

// ProfileLookup resolves a WhatsApp profile picture URL; empty when unknown
type ProfileLookup interface {
	ProfilePicture(ctx context.Context, phone string) string
}

// Options configures the server
type Options struct {
	Addr        string
	VerifyToken string // WhatsApp webhook verify token; empty rejects every verification
}

// Server is the HTTP front of the board
type Server struct {
	board       *usecase.Board
	settings    *usecase.SettingsUsecase
	reports     *usecase.ReportUsecase
	connections Connections
	session     Session
	events      *service.Broker[domain.SessionEvent]
	profiles    ProfileLookup

	opts     Options
	upgrader websocket.Upgrader
	hub      *hub

	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new API server. session and events may be nil when
// WhatsApp is not configured.
func NewServer(opts Options, board *usecase.Board, settings *usecase.SettingsUsecase, reports *usecase.ReportUsecase,
	connections Connections, session Session, events *service.Broker[domain.SessionEvent]) *Server {
	s := &Server{
		board:       board,
		settings:    settings,
		reports:     reports,
		connections: connections,
		session:     session,
		events:      events,
		opts:        opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.WithComponent("api"),
	}
	s.hub = newHub(s.displaySnapshot)
	board.OnChange(func(usecase.Change) { s.hub.broadcast() })
	settings.OnChange(s.hub.broadcast)
	go s.hub.run()
	return s
}

// SetProfileLookup enables avatar lookups for webhook messages
func (s *Server) SetProfileLookup(p ProfileLookup) {
	s.profiles = p
}

// Handler builds the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WhatsApp
	s.handle(mux, "/api/whatsapp-webhook", s.handleWebhook)
	s.handle(mux, "/api/whatsapp", s.handleWhatsAppAction)
	s.handle(mux, "/api/whatsapp/init", s.handleWhatsAppInit)
	s.handle(mux, "/api/whatsapp/disconnect", s.handleWhatsAppDisconnect)
	s.handle(mux, "/api/whatsapp/status", s.handleWhatsAppStatus)
	s.handle(mux, "/api/whatsapp/send", s.handleWhatsAppSend)
	mux.HandleFunc("/api/whatsapp/status/stream", s.handleStatusStream)

	// Connections
	s.handle(mux, "/api/connections", s.handleConnections)
	s.handle(mux, "/api/connections/", s.handleConnectionItem)
	s.handle(mux, "/api/refresh", s.handleRefreshAll)

	// Messages
	s.handle(mux, "/api/messages", s.handleMessages)
	s.handle(mux, "/api/messages/", s.handleMessageItem)
	s.handle(mux, "/api/phone-messages", s.handlePhoneMessages)
	s.handle(mux, "/api/stats", s.handleStats)

	// Display queue and history
	s.handle(mux, "/api/display", s.handleDisplay)
	s.handle(mux, "/api/display/", s.handleDisplayItem)
	s.handle(mux, "/api/history", s.handleHistory)

	// Reports
	s.handle(mux, "/api/reports/received", s.handleReportReceived)
	s.handle(mux, "/api/reports/stats", s.handleReportStats)
	s.handle(mux, "/api/reports/dates", s.handleReportDates)

	// Persisted settings
	s.handle(mux, "/api/config", s.handleConfig)
	s.handle(mux, "/api/config/auto-refresh", s.handleAutoRefresh)
	s.handle(mux, "/api/layouts", s.handleLayouts)
	s.handle(mux, "/api/layouts/", s.handleLayoutItem)
	s.handle(mux, "/api/programs", s.handlePrograms)
	s.handle(mux, "/api/programs/", s.handleProgramItem)
	s.handle(mux, "/api/reset", s.handleReset)

	// Presentation surfaces
	s.handle(mux, "/api/surfaces/display", s.handleDisplaySurface)
	s.handle(mux, "/api/surfaces/presenter", s.handlePresenterSurface)
	s.handle(mux, "/api/surfaces/manager", s.handleManagerSurface)
	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", s.opts.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.hub.stop()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ============ Helpers ============

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handle(mux *http.ServeMux, route string, fn http.HandlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Msg("request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorStatus(w, statusFor(err), err.Error())
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrNoConnection),
		errors.Is(err, domain.ErrUnknownConnection),
		errors.Is(err, domain.ErrUnsupportedPlatform),
		errors.Is(err, domain.ErrSessionNotReady):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionInitializing):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, domain.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

func (s *Server) parsePlatform(w http.ResponseWriter, raw string) (domain.Platform, bool) {
	p, err := domain.ParsePlatform(raw)
	if err != nil {
		s.writeErrorStatus(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return p, true
}
