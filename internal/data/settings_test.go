package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"
)

func newTestSettingsRepo(t *testing.T) (repo.SettingsRepo, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "settings.db")
	r, err := NewSettingsRepo(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.(*settingsRepo).Close() })
	return r, path
}

func TestSettingsRepo_DisplayConfig(t *testing.T) {
	r, _ := newTestSettingsRepo(t)
	ctx := context.Background()

	cfg, err := r.GetDisplayConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	want := domain.DefaultDisplayConfig()
	want.FontSize = 32
	want.ShowLogo = true
	want.LogoURL = "https://example.com/logo.png"
	require.NoError(t, r.SaveDisplayConfig(ctx, want))

	got, err := r.GetDisplayConfig(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestSettingsRepo_SurvivesReopen(t *testing.T) {
	r, path := newTestSettingsRepo(t)
	ctx := context.Background()

	cfg := domain.DefaultDisplayConfig()
	cfg.ProgramName = "Sunday Live"
	require.NoError(t, r.SaveDisplayConfig(ctx, cfg))
	require.NoError(t, r.SaveProgram(ctx, domain.Program{ID: "program-1", Name: "Sunday Live"}))
	r.(*settingsRepo).Close()

	reopened, err := NewSettingsRepo(path)
	require.NoError(t, err)
	defer reopened.(*settingsRepo).Close()

	got, err := reopened.GetDisplayConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sunday Live", got.ProgramName)

	programs, err := reopened.ListPrograms(ctx)
	require.NoError(t, err)
	assert.Len(t, programs, 1)
}

func TestSettingsRepo_Layouts(t *testing.T) {
	r, _ := newTestSettingsRepo(t)
	ctx := context.Background()

	base := domain.DefaultDisplayConfig()
	require.NoError(t, r.SaveLayout(ctx, domain.SavedLayout{Name: "Night", Config: base}))
	base.FontSize = 48
	require.NoError(t, r.SaveLayout(ctx, domain.SavedLayout{Name: "Day", Config: base}))
	base.FontSize = 64
	require.NoError(t, r.SaveLayout(ctx, domain.SavedLayout{Name: "Night", Config: base}))

	layouts, err := r.ListLayouts(ctx)
	require.NoError(t, err)
	require.Len(t, layouts, 2)
	assert.Equal(t, "Day", layouts[0].Name)
	assert.Equal(t, 48, layouts[0].Config.FontSize)
	assert.Equal(t, "Night", layouts[1].Name)
	assert.Equal(t, 64, layouts[1].Config.FontSize)

	ok, err := r.DeleteLayout(ctx, "Day")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.DeleteLayout(ctx, "Day")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingsRepo_Programs(t *testing.T) {
	r, _ := newTestSettingsRepo(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	require.NoError(t, r.SaveProgram(ctx, domain.Program{
		ID: "program-b", Name: "Worship Night", Description: "Friday", StartDate: &start, EndDate: &end, IsActive: true,
	}))
	require.NoError(t, r.SaveProgram(ctx, domain.Program{ID: "program-a", Name: "Announcements"}))

	programs, err := r.ListPrograms(ctx)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, "Announcements", programs[0].Name)
	assert.Nil(t, programs[0].StartDate)

	worship := programs[1]
	assert.True(t, worship.IsActive)
	require.NotNil(t, worship.StartDate)
	assert.True(t, start.Equal(*worship.StartDate))
	assert.True(t, end.Equal(*worship.EndDate))

	ok, err := r.DeleteProgram(ctx, "program-a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSettingsRepo_Reset(t *testing.T) {
	r, _ := newTestSettingsRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveDisplayConfig(ctx, domain.DefaultDisplayConfig()))
	require.NoError(t, r.SaveLayout(ctx, domain.SavedLayout{Name: "X", Config: domain.DefaultDisplayConfig()}))
	require.NoError(t, r.SaveProgram(ctx, domain.Program{ID: "p", Name: "P"}))

	require.NoError(t, r.Reset(ctx))

	cfg, err := r.GetDisplayConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)
	layouts, _ := r.ListLayouts(ctx)
	assert.Empty(t, layouts)
	programs, _ := r.ListPrograms(ctx)
	assert.Empty(t, programs)
}
