package biz

import (
	"context"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/repo"
	"github.com/DevRickLin/whats-live/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Board    *usecase.Board
	Settings *usecase.SettingsUsecase
	Report   *usecase.ReportUsecase
}

// NewUsecases loads persisted settings and builds the live board around them
func NewUsecases(ctx context.Context, settingsRepo repo.SettingsRepo, loc *time.Location) (*Usecases, error) {
	settings, err := usecase.NewSettingsUsecase(ctx, settingsRepo)
	if err != nil {
		return nil, err
	}
	board := usecase.NewBoard(settings)
	return &Usecases{
		Board:    board,
		Settings: settings,
		Report:   usecase.NewReportUsecase(board, settings, loc),
	}, nil
}
