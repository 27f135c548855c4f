package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/biz/usecase"
	"github.com/DevRickLin/whats-live/internal/metrics"
	"github.com/DevRickLin/whats-live/internal/service"
)

// ConnectionView is a connection with its running refresh interval
type ConnectionView struct {
	domain.Connection
	RefreshInterval int `json:"refresh_interval"` // seconds, 0 when not refreshing
}

// ============ Connection Handlers ============

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	views := []ConnectionView{}
	for _, c := range s.board.Connections() {
		views = append(views, ConnectionView{
			Connection:      c,
			RefreshInterval: int(s.connections.Interval(c.Platform) / time.Second),
		})
	}
	s.writeJSON(w, map[string]interface{}{"connections": views})
}

func (s *Server) handleConnectionItem(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/connections/{platform}[/refresh|/load-more|/interval|/messages]
	path := strings.TrimPrefix(r.URL.Path, "/api/connections/")
	parts := strings.SplitN(path, "/", 2)
	p, ok := s.parsePlatform(w, parts[0])
	if !ok {
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			conn, ok := s.board.Connection(p)
			if !ok {
				s.writeError(w, domain.ErrNotConnected)
				return
			}
			s.writeJSON(w, ConnectionView{Connection: conn, RefreshInterval: int(s.connections.Interval(p) / time.Second)})
		case http.MethodPost:
			s.connect(w, r, p)
		case http.MethodDelete:
			conn, err := s.connections.Disconnect(r.Context(), p)
			if err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, map[string]interface{}{"success": true, "connection": conn})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "refresh":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		added, err := s.connections.Refresh(r.Context(), p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "added": added})

	case "load-more":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		added, err := s.connections.LoadMore(r.Context(), p)
		if errors.Is(err, domain.ErrNoMorePages) {
			s.writeJSON(w, map[string]interface{}{"success": true, "added": 0, "has_more": false})
			return
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "added": added, "has_more": true})

	case "interval":
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Seconds int `json:"seconds"`
		}
		if !s.decode(w, r, &req) {
			return
		}
		if req.Seconds < 0 {
			s.writeError(w, domain.NewValidationError("seconds", "must not be negative"))
			return
		}
		if err := s.connections.SetInterval(p, time.Duration(req.Seconds)*time.Second); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true})

	case "messages":
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		removed, err := s.board.ClearConnectionMessages(p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "removed": removed})

	default:
		s.writeErrorStatus(w, http.StatusNotFound, "unknown action")
	}
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request, p domain.Platform) {
	var req struct {
		Identifier      string `json:"identifier"`
		AccountName     string `json:"account_name"`
		RefreshInterval *int   `json:"refresh_interval"` // seconds
	}
	if r.ContentLength != 0 && !s.decode(w, r, &req) {
		return
	}

	in := service.ConnectInput{ConnectRequest: repo.ConnectRequest{
		Identifier:  strings.TrimSpace(req.Identifier),
		AccountName: strings.TrimSpace(req.AccountName),
	}}
	if req.RefreshInterval != nil {
		if *req.RefreshInterval < 0 {
			s.writeError(w, domain.NewValidationError("refresh_interval", "must not be negative"))
			return
		}
		d := time.Duration(*req.RefreshInterval) * time.Second
		in.RefreshInterval = &d
	}

	conn, added, err := s.connections.Connect(r.Context(), p, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true, "connection": conn, "added": added})
}

func (s *Server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]interface{}{"success": true, "added": s.connections.RefreshAll(r.Context())})
}

// ============ Message Handlers ============

type messagePatch struct {
	Content     *string             `json:"content"`
	MessageType *domain.MessageType `json:"message_type"`
	ProgramID   *string             `json:"program_id"`
	IsRead      *bool               `json:"is_read"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		filter := usecase.MessageFilter{
			ConnectionID: q.Get("connection_id"),
			Search:       q.Get("q"),
		}
		if raw := q.Get("platform"); raw != "" && raw != "all" {
			p, ok := s.parsePlatform(w, raw)
			if !ok {
				return
			}
			filter.Platform = p
		}
		s.writeJSON(w, map[string]interface{}{"messages": s.board.Messages(filter)})

	case http.MethodPost:
		var msg domain.Message
		if !s.decode(w, r, &msg) {
			return
		}
		if strings.TrimSpace(msg.Content) == "" {
			s.writeError(w, domain.NewValidationError("content", "required"))
			return
		}
		stored, err := s.board.AddMessage(msg)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "message": stored})

	case http.MethodDelete:
		removed := s.board.ClearMessages()
		// clearing also pauses auto-refresh
		if err := s.settings.SetAutoRefresh(r.Context(), 0); err != nil {
			s.writeError(w, err)
			return
		}
		s.connections.ApplyAutoRefresh(0)
		s.writeJSON(w, map[string]interface{}{"success": true, "removed": removed})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMessageItem(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/messages/{id}[/promote]
	path := strings.TrimPrefix(r.URL.Path, "/api/messages/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		s.writeErrorStatus(w, http.StatusBadRequest, "message id is required")
		return
	}

	if action == "promote" {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		entry, err := s.board.PromoteByID(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		metrics.DisplayPromotions.Inc()
		s.writeJSON(w, map[string]interface{}{"success": true, "history": entry, "display": s.board.Display()})
		return
	}
	if action != "" {
		s.writeErrorStatus(w, http.StatusNotFound, "unknown action")
		return
	}

	switch r.Method {
	case http.MethodGet:
		msg, ok := s.board.Message(id)
		if !ok {
			s.writeError(w, domain.ErrMessageNotFound)
			return
		}
		s.writeJSON(w, msg)

	case http.MethodPatch:
		var patch messagePatch
		if !s.decode(w, r, &patch) {
			return
		}
		msg, err := s.applyPatch(id, patch)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "message": msg})

	case http.MethodDelete:
		if err := s.board.DeleteMessage(id); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// applyPatch validates the whole patch before the board sees any of it
func (s *Server) applyPatch(id string, patch messagePatch) (domain.Message, error) {
	if _, ok := s.board.Message(id); !ok {
		return domain.Message{}, domain.ErrMessageNotFound
	}
	if patch.ProgramID != nil && *patch.ProgramID != "" {
		if _, err := s.settings.Program(*patch.ProgramID); err != nil {
			return domain.Message{}, err
		}
	}
	return s.board.Edit(id, usecase.MessageEdit{
		Content:     patch.Content,
		MessageType: patch.MessageType,
		ProgramID:   patch.ProgramID,
		IsRead:      patch.IsRead,
	})
}

func (s *Server) handlePhoneMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Sender      string             `json:"sender"`
		Content     string             `json:"content"`
		PhoneNumber string             `json:"phone_number"`
		City        string             `json:"city"`
		State       string             `json:"state"`
		MessageType domain.MessageType `json:"message_type"`
		ProgramID   string             `json:"program_id"`
		Promote     bool               `json:"promote"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	msg, err := s.board.AddPhoneMessage(usecase.PhoneMessage{
		Sender:      req.Sender,
		Content:     req.Content,
		PhoneNumber: req.PhoneNumber,
		City:        req.City,
		State:       req.State,
		MessageType: req.MessageType,
		ProgramID:   req.ProgramID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if req.Promote {
		s.board.Promote(msg)
		metrics.DisplayPromotions.Inc()
	}
	s.writeJSON(w, map[string]interface{}{"success": true, "message": msg})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]interface{}{"counts": s.board.PlatformCounts()})
}

// ============ Display Handlers ============

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, s.board.Display())
	case http.MethodDelete:
		s.board.ClearDisplay()
		s.writeJSON(w, map[string]interface{}{"success": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDisplayItem(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/display/{next|previous|select} or /api/display/{message_id}
	action := strings.TrimPrefix(r.URL.Path, "/api/display/")
	switch action {
	case "next", "previous":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if action == "next" {
			s.writeJSON(w, s.board.Next())
		} else {
			s.writeJSON(w, s.board.Previous())
		}

	case "select":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			ID string `json:"id"`
		}
		if !s.decode(w, r, &req) {
			return
		}
		queue, err := s.board.Select(req.ID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, queue)

	case "":
		s.writeErrorStatus(w, http.StatusBadRequest, "invalid path")

	default:
		if r.Method != http.MethodDelete {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := s.board.Demote(action); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "display": s.board.Display()})
	}
}

// ============ History & Report Handlers ============

func (s *Server) reportFilter(w http.ResponseWriter, r *http.Request) (usecase.ReportFilter, bool) {
	q := r.URL.Query()
	f := usecase.ReportFilter{
		Date:        q.Get("date"),
		ProgramName: q.Get("program"),
		Search:      q.Get("q"),
	}
	if raw := q.Get("platform"); raw != "" && raw != "all" {
		p, ok := s.parsePlatform(w, raw)
		if !ok {
			return f, false
		}
		f.Platform = p
	}
	return f, true
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		f, ok := s.reportFilter(w, r)
		if !ok {
			return
		}
		entries, err := s.reports.History(f)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"history": entries, "total": len(entries)})
	case http.MethodDelete:
		s.board.ClearHistory()
		s.writeJSON(w, map[string]interface{}{"success": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleReportReceived(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f, ok := s.reportFilter(w, r)
	if !ok {
		return
	}
	msgs, err := s.reports.Received(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"messages": msgs, "total": len(msgs)})
}

func (s *Server) handleReportStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if programID := r.URL.Query().Get("program_id"); programID != "" {
		s.writeJSON(w, map[string]interface{}{"stats": s.reports.StatsByProgram(programID)})
		return
	}
	f, ok := s.reportFilter(w, r)
	if !ok {
		return
	}
	stats, err := s.reports.Stats(f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"stats": stats})
}

func (s *Server) handleReportDates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]interface{}{"dates": s.reports.Dates()})
}
