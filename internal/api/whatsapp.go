package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/infra/whatsapp"
	"github.com/DevRickLin/whats-live/internal/log"
)

const maxWebhookBody = 1 << 20

// relayed to status stream listeners
var streamedEvents = map[domain.SessionEventType]bool{
	domain.EventStatus:        true,
	domain.EventQR:            true,
	domain.EventAuthenticated: true,
	domain.EventReady:         true,
	domain.EventAuthFailure:   true,
	domain.EventDisconnected:  true,
}

// ============ Webhook ============

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")

	if mode == "subscribe" && s.opts.VerifyToken != "" && token == s.opts.VerifyToken {
		logger := log.WithComponent("webhook")
		logger.Info().Msg("webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte("Forbidden"))
}

func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponent("webhook")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.writeError(w, fmt.Errorf("failed to read body: %w", err))
		return
	}
	payload, err := whatsapp.ParseWebhook(body)
	if err != nil {
		logger.Error().Err(err).Msg("failed to process webhook")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
		return
	}

	var msgs []domain.Message
	for _, in := range payload.Messages() {
		msg := in.ToDomain()
		if s.profiles != nil {
			if pic := s.profiles.ProfilePicture(r.Context(), in.Message.From); pic != "" {
				msg.SenderAvatar = pic
			}
		}
		logger.Info().
			Str("id", in.Message.ID).
			Str("from", in.Message.From).
			Str("type", in.Message.Type).
			Msg("message received")
		msgs = append(msgs, msg)
	}
	for _, st := range payload.Statuses() {
		logger.Debug().
			Str("id", st.ID).
			Str("status", st.Status).
			Str("recipient", st.RecipientID).
			Msg("message status")
	}

	if len(msgs) > 0 {
		if _, err := s.connections.Ingest(r.Context(), domain.PlatformWhatsApp, msgs); err != nil {
			logger.Warn().Err(err).Int("count", len(msgs)).Msg("webhook messages not stored")
		}
	}
	s.writeJSON(w, map[string]interface{}{"status": "success"})
}

// ============ Client Control ============

func (s *Server) requireSession(w http.ResponseWriter) bool {
	if s.session == nil {
		s.writeError(w, domain.ErrSessionUnavailable)
		return false
	}
	return true
}

func (s *Server) handleWhatsAppAction(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeSessionState(w)
	case http.MethodPost:
		if !s.requireSession(w) {
			return
		}
		var req struct {
			Action  string `json:"action"`
			Number  string `json:"number"`
			Message string `json:"message"`
		}
		if !s.decode(w, r, &req) {
			return
		}

		switch req.Action {
		case "initialize":
			if err := s.session.Initialize(r.Context()); err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, map[string]interface{}{"success": true, "message": "Initializing..."})
		case "logout":
			if err := s.session.Logout(r.Context()); err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, map[string]interface{}{"success": true, "message": "Logged out"})
		case "destroy":
			s.session.Destroy()
			s.writeJSON(w, map[string]interface{}{"success": true, "message": "Client destroyed"})
		case "sendMessage":
			if req.Number == "" || req.Message == "" {
				s.writeError(w, domain.NewValidationError("number", "number and message are required"))
				return
			}
			if err := s.session.Send(r.Context(), req.Number, req.Message); err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, map[string]interface{}{"success": true})
		default:
			s.writeError(w, domain.NewValidationError("action", fmt.Sprintf("invalid action %q", req.Action)))
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWhatsAppInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireSession(w) {
		return
	}
	if err := s.session.Initialize(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true, "status": s.session.State()})
}

func (s *Server) handleWhatsAppDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireSession(w) {
		return
	}
	if err := s.session.Logout(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true})
}

func (s *Server) handleWhatsAppStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeSessionState(w)
}

func (s *Server) writeSessionState(w http.ResponseWriter) {
	if s.session == nil {
		s.writeJSON(w, domain.SessionState{Status: domain.SessionNotAvailable})
		return
	}
	s.writeJSON(w, s.session.State())
}

func (s *Server) handleWhatsAppSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireSession(w) {
		return
	}
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
		Message     string `json:"message"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" || strings.TrimSpace(req.Message) == "" {
		s.writeError(w, domain.NewValidationError("phoneNumber", "phone number and message are required"))
		return
	}
	if err := s.session.Send(r.Context(), req.PhoneNumber, req.Message); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true})
}

// ============ Status Stream ============

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	state := domain.SessionState{Status: domain.SessionNotAvailable}
	if s.session != nil {
		state = s.session.State()
	}
	writeEvent(w, domain.SessionEvent{Type: domain.EventStatus, Status: &state, Timestamp: time.Now()})
	flusher.Flush()

	if s.events == nil {
		<-r.Context().Done()
		return
	}
	sub := s.events.Subscribe()
	defer s.events.Unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if !streamedEvents[ev.Type] {
				continue
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE frame; status fields are flattened next to type
func writeEvent(w io.Writer, ev domain.SessionEvent) {
	var payload interface{} = ev
	if ev.Type == domain.EventStatus && ev.Status != nil {
		payload = struct {
			Type domain.SessionEventType `json:"type"`
			domain.SessionState
			Timestamp time.Time `json:"timestamp"`
		}{ev.Type, *ev.Status, ev.Timestamp}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
