package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/usecase"
)

// ============ Display Config Handlers ============

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, s.settings.DisplayConfig())

	case http.MethodPut:
		// start from the active config so partial bodies keep the other fields
		cfg := s.settings.DisplayConfig()
		before := cfg.AutoRefreshInterval
		if !s.decode(w, r, &cfg) {
			return
		}
		if err := s.settings.UpdateDisplayConfig(r.Context(), cfg); err != nil {
			s.writeError(w, err)
			return
		}
		if cfg.AutoRefreshInterval != before {
			s.connections.ApplyAutoRefresh(time.Duration(cfg.AutoRefreshInterval) * time.Second)
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "config": cfg})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAutoRefresh(w http.ResponseWriter, r *http.Request) {
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
	if err := s.settings.SetAutoRefresh(r.Context(), req.Seconds); err != nil {
		s.writeError(w, err)
		return
	}
	s.connections.ApplyAutoRefresh(time.Duration(req.Seconds) * time.Second)
	s.writeJSON(w, map[string]interface{}{"success": true})
}

// ============ Layout Handlers ============

func (s *Server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		layouts, err := s.settings.Layouts(ctx)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if layouts == nil {
			layouts = []domain.SavedLayout{}
		}
		s.writeJSON(w, map[string]interface{}{"layouts": layouts})

	case http.MethodPost:
		var req struct {
			Name   string                `json:"name"`
			Config *domain.DisplayConfig `json:"config"`
		}
		if !s.decode(w, r, &req) {
			return
		}
		layout, err := s.settings.SaveLayout(ctx, req.Name, req.Config)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "layout": layout})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLayoutItem(w http.ResponseWriter, r *http.Request) {
	// Parse path: /api/layouts/{name}[/load]
	path := strings.TrimPrefix(r.URL.Path, "/api/layouts/")
	rawName, action, _ := strings.Cut(path, "/")
	name, err := url.PathUnescape(rawName)
	if err != nil || name == "" {
		s.writeErrorStatus(w, http.StatusBadRequest, "layout name is required")
		return
	}

	switch {
	case action == "load":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		before := s.settings.DisplayConfig().AutoRefreshInterval
		cfg, err := s.settings.LoadLayout(r.Context(), name)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if cfg.AutoRefreshInterval != before {
			s.connections.ApplyAutoRefresh(time.Duration(cfg.AutoRefreshInterval) * time.Second)
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "config": cfg})

	case action == "" && r.Method == http.MethodDelete:
		if err := s.settings.DeleteLayout(r.Context(), name); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true})

	case action == "":
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

	default:
		s.writeErrorStatus(w, http.StatusNotFound, "unknown action")
	}
}

// ============ Program Handlers ============

type programRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsActive    *bool      `json:"is_active"`
	ClearDates  bool       `json:"clear_dates"`
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, map[string]interface{}{"programs": s.settings.Programs()})

	case http.MethodPost:
		var req programRequest
		if !s.decode(w, r, &req) {
			return
		}
		p := domain.Program{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			IsActive:  true,
		}
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		created, err := s.settings.AddProgram(r.Context(), p)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "program": created})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProgramItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/programs/")
	if id == "" {
		s.writeErrorStatus(w, http.StatusBadRequest, "program id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.settings.Program(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, p)

	case http.MethodPatch:
		var req programRequest
		if !s.decode(w, r, &req) {
			return
		}
		p, err := s.settings.UpdateProgram(r.Context(), id, usecase.ProgramPatch{
			Name:        req.Name,
			Description: req.Description,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			IsActive:    req.IsActive,
			ClearDates:  req.ClearDates,
		})
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true, "program": p})

	case http.MethodDelete:
		if err := s.settings.DeleteProgram(r.Context(), id); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, map[string]interface{}{"success": true})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// ============ Reset ============

// handleReset clears the live board and every persisted setting
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.connections.ApplyAutoRefresh(0)
	s.board.Reset()
	if err := s.settings.Reset(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info().Msg("board and settings reset")
	s.writeJSON(w, map[string]interface{}{"success": true})
}
