package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/log"
)

// ProgramPatch is a partial program update; nil fields are left unchanged
type ProgramPatch struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	IsActive    *bool
	ClearDates  bool
}

// SettingsUsecase serves the persisted display config, layouts and programs.
// Config and programs are cached in memory; every write goes through to the repo.
type SettingsUsecase struct {
	repo repo.SettingsRepo

	mu       sync.RWMutex
	config   domain.DisplayConfig
	programs map[string]domain.Program

	listeners []func()
	logger    zerolog.Logger
}

// NewSettingsUsecase loads persisted settings, falling back to defaults
func NewSettingsUsecase(ctx context.Context, settingsRepo repo.SettingsRepo) (*SettingsUsecase, error) {
	uc := &SettingsUsecase{
		repo:     settingsRepo,
		config:   domain.DefaultDisplayConfig(),
		programs: make(map[string]domain.Program),
		logger:   log.WithComponent("settings"),
	}
	if err := uc.load(ctx); err != nil {
		return nil, err
	}
	return uc, nil
}

func (uc *SettingsUsecase) load(ctx context.Context) error {
	cfg, err := uc.repo.GetDisplayConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load display config: %w", err)
	}
	programs, err := uc.repo.ListPrograms(ctx)
	if err != nil {
		return fmt.Errorf("failed to load programs: %w", err)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if cfg != nil {
		uc.config = *cfg
	}
	for _, p := range programs {
		uc.programs[p.ID] = p
	}
	uc.logger.Debug().Int("programs", len(programs)).Bool("stored_config", cfg != nil).Msg("settings loaded")
	return nil
}

// OnChange registers a listener fired after any settings write
func (uc *SettingsUsecase) OnChange(fn func()) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.listeners = append(uc.listeners, fn)
}

func (uc *SettingsUsecase) notify() {
	uc.mu.RLock()
	listeners := append([]func(){}, uc.listeners...)
	uc.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// ============ Display Config ============

// DisplayConfig returns the active config
func (uc *SettingsUsecase) DisplayConfig() domain.DisplayConfig {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.config
}

// UpdateDisplayConfig validates and stores cfg as the active config
func (uc *SettingsUsecase) UpdateDisplayConfig(ctx context.Context, cfg domain.DisplayConfig) error {
	if err := validateDisplayConfig(cfg); err != nil {
		return err
	}
	if err := uc.repo.SaveDisplayConfig(ctx, cfg); err != nil {
		return err
	}
	uc.mu.Lock()
	uc.config = cfg
	uc.mu.Unlock()

	uc.notify()
	return nil
}

// SetAutoRefresh changes only the auto-refresh interval; 0 pauses refresh
func (uc *SettingsUsecase) SetAutoRefresh(ctx context.Context, seconds int) error {
	cfg := uc.DisplayConfig()
	cfg.AutoRefreshInterval = seconds
	return uc.UpdateDisplayConfig(ctx, cfg)
}

func validateDisplayConfig(cfg domain.DisplayConfig) error {
	if cfg.FontSize <= 0 {
		return domain.NewValidationError("font_size", "must be positive")
	}
	if cfg.CardOpacity < 0 || cfg.CardOpacity > 100 {
		return domain.NewValidationError("card_opacity", "must be between 0 and 100")
	}
	if cfg.AutoRefreshInterval < 0 {
		return domain.NewValidationError("auto_refresh_interval", "must not be negative")
	}
	return nil
}

// ============ Layouts ============

// Layouts lists saved layouts
func (uc *SettingsUsecase) Layouts(ctx context.Context) ([]domain.SavedLayout, error) {
	return uc.repo.ListLayouts(ctx)
}

// SaveLayout stores cfg under name, or the active config when cfg is nil. Existing names are overwritten.
func (uc *SettingsUsecase) SaveLayout(ctx context.Context, name string, cfg *domain.DisplayConfig) (domain.SavedLayout, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SavedLayout{}, domain.NewValidationError("name", "required")
	}
	layout := domain.SavedLayout{Name: name, Config: uc.DisplayConfig(), UpdatedAt: time.Now()}
	if cfg != nil {
		if err := validateDisplayConfig(*cfg); err != nil {
			return domain.SavedLayout{}, err
		}
		layout.Config = *cfg
	}
	if err := uc.repo.SaveLayout(ctx, layout); err != nil {
		return domain.SavedLayout{}, err
	}
	uc.notify()
	return layout, nil
}

// LoadLayout makes the named layout the active config
func (uc *SettingsUsecase) LoadLayout(ctx context.Context, name string) (domain.DisplayConfig, error) {
	layouts, err := uc.repo.ListLayouts(ctx)
	if err != nil {
		return domain.DisplayConfig{}, err
	}
	for _, l := range layouts {
		if l.Name == name {
			if err := uc.UpdateDisplayConfig(ctx, l.Config); err != nil {
				return domain.DisplayConfig{}, err
			}
			return l.Config, nil
		}
	}
	return domain.DisplayConfig{}, fmt.Errorf("%s: %w", name, domain.ErrLayoutNotFound)
}

// DeleteLayout removes a saved layout
func (uc *SettingsUsecase) DeleteLayout(ctx context.Context, name string) error {
	ok, err := uc.repo.DeleteLayout(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", name, domain.ErrLayoutNotFound)
	}
	uc.notify()
	return nil
}

// ============ Programs ============

// Programs lists programs sorted by name
func (uc *SettingsUsecase) Programs() []domain.Program {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	result := make([]domain.Program, 0, len(uc.programs))
	for _, p := range uc.programs {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name == result[j].Name {
			return result[i].ID < result[j].ID
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Program looks up a program by id
func (uc *SettingsUsecase) Program(id string) (domain.Program, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	p, ok := uc.programs[id]
	if !ok {
		return domain.Program{}, fmt.Errorf("%s: %w", id, domain.ErrProgramNotFound)
	}
	return p, nil
}

// ProgramName resolves the history label: the program's name, else the config's program name
func (uc *SettingsUsecase) ProgramName(id string) string {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	if p, ok := uc.programs[id]; ok && id != "" {
		return p.Name
	}
	return uc.config.ProgramName
}

// AddProgram creates a program with a generated id
func (uc *SettingsUsecase) AddProgram(ctx context.Context, p domain.Program) (domain.Program, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.Program{}, domain.NewValidationError("name", "required")
	}
	if err := validateProgramDates(p); err != nil {
		return domain.Program{}, err
	}
	p.ID = "program-" + uuid.NewString()
	if err := uc.repo.SaveProgram(ctx, p); err != nil {
		return domain.Program{}, err
	}

	uc.mu.Lock()
	uc.programs[p.ID] = p
	uc.mu.Unlock()

	uc.logger.Info().Str("program", p.ID).Str("name", p.Name).Msg("program added")
	uc.notify()
	return p, nil
}

// UpdateProgram applies a partial update
func (uc *SettingsUsecase) UpdateProgram(ctx context.Context, id string, patch ProgramPatch) (domain.Program, error) {
	p, err := uc.Program(id)
	if err != nil {
		return domain.Program{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Program{}, domain.NewValidationError("name", "required")
		}
		p.Name = name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.ClearDates {
		p.StartDate, p.EndDate = nil, nil
	}
	if patch.StartDate != nil {
		start := *patch.StartDate
		p.StartDate = &start
	}
	if patch.EndDate != nil {
		end := *patch.EndDate
		p.EndDate = &end
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	if err := validateProgramDates(p); err != nil {
		return domain.Program{}, err
	}
	if err := uc.repo.SaveProgram(ctx, p); err != nil {
		return domain.Program{}, err
	}

	uc.mu.Lock()
	uc.programs[p.ID] = p
	uc.mu.Unlock()

	uc.notify()
	return p, nil
}

// DeleteProgram removes a program. Messages keep their dangling program id.
func (uc *SettingsUsecase) DeleteProgram(ctx context.Context, id string) error {
	ok, err := uc.repo.DeleteProgram(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrProgramNotFound)
	}

	uc.mu.Lock()
	delete(uc.programs, id)
	uc.mu.Unlock()

	uc.notify()
	return nil
}

func validateProgramDates(p domain.Program) error {
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return domain.NewValidationError("end_date", "must not be before start_date")
	}
	return nil
}

// Reset wipes persisted settings and restores defaults
func (uc *SettingsUsecase) Reset(ctx context.Context) error {
	if err := uc.repo.Reset(ctx); err != nil {
		return err
	}
	uc.mu.Lock()
	uc.config = domain.DefaultDisplayConfig()
	uc.programs = make(map[string]domain.Program)
	uc.mu.Unlock()

	uc.logger.Info().Msg("settings reset")
	uc.notify()
	return nil
}
