package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
)

// MockSettingsRepo implements repo.SettingsRepo for testing
type MockSettingsRepo struct {
	config   *domain.DisplayConfig
	layouts  map[string]domain.SavedLayout
	programs map[string]domain.Program
	saveErr  error
	resets   int
}

func NewMockSettingsRepo() *MockSettingsRepo {
	return &MockSettingsRepo{
		layouts:  make(map[string]domain.SavedLayout),
		programs: make(map[string]domain.Program),
	}
}

func (m *MockSettingsRepo) GetDisplayConfig(ctx context.Context) (*domain.DisplayConfig, error) {
	return m.config, nil
}

func (m *MockSettingsRepo) SaveDisplayConfig(ctx context.Context, cfg domain.DisplayConfig) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.config = &cfg
	return nil
}

func (m *MockSettingsRepo) ListLayouts(ctx context.Context) ([]domain.SavedLayout, error) {
	var result []domain.SavedLayout
	for _, l := range m.layouts {
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MockSettingsRepo) SaveLayout(ctx context.Context, layout domain.SavedLayout) error {
	m.layouts[layout.Name] = layout
	return nil
}

func (m *MockSettingsRepo) DeleteLayout(ctx context.Context, name string) (bool, error) {
	_, ok := m.layouts[name]
	delete(m.layouts, name)
	return ok, nil
}

func (m *MockSettingsRepo) ListPrograms(ctx context.Context) ([]domain.Program, error) {
	var result []domain.Program
	for _, p := range m.programs {
		result = append(result, p)
	}
	return result, nil
}

func (m *MockSettingsRepo) SaveProgram(ctx context.Context, p domain.Program) error {
	m.programs[p.ID] = p
	return nil
}

func (m *MockSettingsRepo) DeleteProgram(ctx context.Context, id string) (bool, error) {
	_, ok := m.programs[id]
	delete(m.programs, id)
	return ok, nil
}

func (m *MockSettingsRepo) Reset(ctx context.Context) error {
	m.resets++
	m.config = nil
	m.layouts = make(map[string]domain.SavedLayout)
	m.programs = make(map[string]domain.Program)
	return nil
}

func newTestSettings(t *testing.T) (*SettingsUsecase, *MockSettingsRepo) {
	t.Helper()
	r := NewMockSettingsRepo()
	uc, err := NewSettingsUsecase(context.Background(), r)
	require.NoError(t, err)
	return uc, r
}

func TestSettings_DefaultsWhenEmpty(t *testing.T) {
	uc, _ := newTestSettings(t)
	assert.Equal(t, domain.DefaultDisplayConfig(), uc.DisplayConfig())
	assert.Empty(t, uc.Programs())
}

func TestSettings_LoadsPersisted(t *testing.T) {
	r := NewMockSettingsRepo()
	cfg := domain.DefaultDisplayConfig()
	cfg.FontSize = 40
	r.config = &cfg
	r.programs["program-1"] = domain.Program{ID: "program-1", Name: "Morning"}

	uc, err := NewSettingsUsecase(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 40, uc.DisplayConfig().FontSize)
	assert.Equal(t, "Morning", uc.ProgramName("program-1"))
}

func TestSettings_UpdateDisplayConfig(t *testing.T) {
	uc, r := newTestSettings(t)
	ctx := context.Background()

	fired := 0
	uc.OnChange(func() { fired++ })

	cfg := uc.DisplayConfig()
	cfg.BackgroundColor = "#000"
	require.NoError(t, uc.UpdateDisplayConfig(ctx, cfg))
	assert.Equal(t, "#000", r.config.BackgroundColor)
	assert.Equal(t, 1, fired)

	cfg.FontSize = 0
	assert.True(t, domain.IsValidation(uc.UpdateDisplayConfig(ctx, cfg)))
	cfg.FontSize = 10
	cfg.CardOpacity = 150
	assert.True(t, domain.IsValidation(uc.UpdateDisplayConfig(ctx, cfg)))
	assert.Equal(t, "#000", uc.DisplayConfig().BackgroundColor)

	r.saveErr = errors.New("disk full")
	cfg.CardOpacity = 50
	assert.EqualError(t, uc.UpdateDisplayConfig(ctx, cfg), "disk full")
	assert.Equal(t, 90, uc.DisplayConfig().CardOpacity)
}

func TestSettings_SetAutoRefresh(t *testing.T) {
	uc, _ := newTestSettings(t)
	require.NoError(t, uc.SetAutoRefresh(context.Background(), 0))
	assert.Equal(t, 0, uc.DisplayConfig().AutoRefreshInterval)
	assert.Error(t, uc.SetAutoRefresh(context.Background(), -1))
}

func TestSettings_Layouts(t *testing.T) {
	uc, _ := newTestSettings(t)
	ctx := context.Background()

	_, err := uc.SaveLayout(ctx, "  ", nil)
	assert.True(t, domain.IsValidation(err))

	cfg := uc.DisplayConfig()
	cfg.FontSize = 50
	require.NoError(t, uc.UpdateDisplayConfig(ctx, cfg))
	_, err = uc.SaveLayout(ctx, "Big", nil)
	require.NoError(t, err)

	cfg.FontSize = 60
	_, err = uc.SaveLayout(ctx, "Big", &cfg)
	require.NoError(t, err)

	layouts, err := uc.Layouts(ctx)
	require.NoError(t, err)
	require.Len(t, layouts, 1)
	assert.Equal(t, 60, layouts[0].Config.FontSize)

	require.NoError(t, uc.SetAutoRefresh(ctx, 30))
	loaded, err := uc.LoadLayout(ctx, "Big")
	require.NoError(t, err)
	assert.Equal(t, 60, loaded.FontSize)
	assert.Equal(t, 60, uc.DisplayConfig().FontSize)

	_, err = uc.LoadLayout(ctx, "Small")
	assert.True(t, errors.Is(err, domain.ErrLayoutNotFound))

	require.NoError(t, uc.DeleteLayout(ctx, "Big"))
	assert.True(t, errors.Is(uc.DeleteLayout(ctx, "Big"), domain.ErrLayoutNotFound))
}

func TestSettings_Programs(t *testing.T) {
	uc, r := newTestSettings(t)
	ctx := context.Background()

	_, err := uc.AddProgram(ctx, domain.Program{})
	assert.True(t, domain.IsValidation(err))

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err = uc.AddProgram(ctx, domain.Program{Name: "Bad", StartDate: &start, EndDate: &end})
	assert.True(t, domain.IsValidation(err))

	p, err := uc.AddProgram(ctx, domain.Program{Name: "Evening Show", IsActive: true})
	require.NoError(t, err)
	assert.Contains(t, p.ID, "program-")
	assert.Contains(t, r.programs, p.ID)

	name := "Late Show"
	inactive := false
	updated, err := uc.UpdateProgram(ctx, p.ID, ProgramPatch{Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Late Show", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Late Show", uc.ProgramName(p.ID))

	_, err = uc.UpdateProgram(ctx, "program-x", ProgramPatch{Name: &name})
	assert.True(t, errors.Is(err, domain.ErrProgramNotFound))

	require.NoError(t, uc.DeleteProgram(ctx, p.ID))
	assert.True(t, errors.Is(uc.DeleteProgram(ctx, p.ID), domain.ErrProgramNotFound))
	assert.Empty(t, uc.Programs())
}

func TestSettings_ProgramNameFallback(t *testing.T) {
	uc, _ := newTestSettings(t)
	ctx := context.Background()
	cfg := uc.DisplayConfig()
	cfg.ProgramName = "Live Broadcast"
	require.NoError(t, uc.UpdateDisplayConfig(ctx, cfg))

	assert.Equal(t, "Live Broadcast", uc.ProgramName(""))
	assert.Equal(t, "Live Broadcast", uc.ProgramName("program-unknown"))
}

func TestSettings_Reset(t *testing.T) {
	uc, r := newTestSettings(t)
	ctx := context.Background()
	_, err := uc.AddProgram(ctx, domain.Program{Name: "X"})
	require.NoError(t, err)
	require.NoError(t, uc.SetAutoRefresh(ctx, 0))

	require.NoError(t, uc.Reset(ctx))
	assert.Equal(t, 1, r.resets)
	assert.Equal(t, domain.DefaultDisplayConfig(), uc.DisplayConfig())
	assert.Empty(t, uc.Programs())
}
