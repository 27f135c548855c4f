package repo

import (
	"context"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

// SettingsRepo is the persisted settings interface
// Only display config, saved layouts and programs survive a restart (SQLite)
type SettingsRepo interface {
	// GetDisplayConfig returns the stored config, nil if never saved
	GetDisplayConfig(ctx context.Context) (*domain.DisplayConfig, error)

	// SaveDisplayConfig stores the active config
	SaveDisplayConfig(ctx context.Context, cfg domain.DisplayConfig) error

	// ListLayouts lists saved layouts ordered by name
	ListLayouts(ctx context.Context) ([]domain.SavedLayout, error)

	// SaveLayout upserts a layout by name
	SaveLayout(ctx context.Context, layout domain.SavedLayout) error

	// DeleteLayout removes a layout, reports whether it existed
	DeleteLayout(ctx context.Context, name string) (bool, error)

	// ListPrograms lists programs
	ListPrograms(ctx context.Context) ([]domain.Program, error)

	// SaveProgram upserts a program by id
	SaveProgram(ctx context.Context, program domain.Program) error

	// DeleteProgram removes a program, reports whether it existed
	DeleteProgram(ctx context.Context, id string) (bool, error)

	// Reset wipes every persisted setting
	Reset(ctx context.Context) error
}
