package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DevRickLin/whats-live/internal/biz/domain"
	"github.com/DevRickLin/whats-live/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// StorageKey scopes the persisted settings rows
const StorageKey = "whats-live-storage"

// settingsRepo implements the Settings repository
type settingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo opens (or creates) the settings database
func NewSettingsRepo(dbPath string) (repo.SettingsRepo, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			scope TEXT NOT NULL,
			setting TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (scope, setting)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS layouts (
			name TEXT PRIMARY KEY,
			config TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create layouts table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS programs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_date INTEGER,
			end_date INTEGER,
			is_active INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create programs table: %w", err)
	}

	return &settingsRepo{db: db}, nil
}

// GetDisplayConfig returns the stored config
func (r *settingsRepo) GetDisplayConfig(ctx context.Context) (*domain.DisplayConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE scope = ? AND setting = 'display_config'
	`, StorageKey)

	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query display config: %w", err)
	}

	// Unknown or missing fields keep their defaults
	cfg := domain.DefaultDisplayConfig()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode display config: %w", err)
	}
	return &cfg, nil
}

// SaveDisplayConfig stores the active config
func (r *settingsRepo) SaveDisplayConfig(ctx context.Context, cfg domain.DisplayConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode display config: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (scope, setting, value, updated_at)
		VALUES (?, 'display_config', ?, ?)
	`, StorageKey, string(raw), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save display config: %w", err)
	}
	return nil
}

// ListLayouts lists saved layouts ordered by name
func (r *settingsRepo) ListLayouts(ctx context.Context) ([]domain.SavedLayout, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, config, updated_at FROM layouts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query layouts: %w", err)
	}
	defer rows.Close()

	var layouts []domain.SavedLayout
	for rows.Next() {
		var layout domain.SavedLayout
		var raw string
		var updatedAt int64
		if err := rows.Scan(&layout.Name, &raw, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan layout: %w", err)
		}
		layout.Config = domain.DefaultDisplayConfig()
		if err := json.Unmarshal([]byte(raw), &layout.Config); err != nil {
			return nil, fmt.Errorf("failed to decode layout %s: %w", layout.Name, err)
		}
		layout.UpdatedAt = time.Unix(updatedAt, 0)
		layouts = append(layouts, layout)
	}
	return layouts, rows.Err()
}

// SaveLayout upserts a layout by name
func (r *settingsRepo) SaveLayout(ctx context.Context, layout domain.SavedLayout) error {
	raw, err := json.Marshal(layout.Config)
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	if layout.UpdatedAt.IsZero() {
		layout.UpdatedAt = time.Now()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO layouts (name, config, updated_at) VALUES (?, ?, ?)
	`, layout.Name, string(raw), layout.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save layout: %w", err)
	}
	return nil
}

// DeleteLayout removes a layout
func (r *settingsRepo) DeleteLayout(ctx context.Context, name string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM layouts WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete layout: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ListPrograms lists programs ordered by name
func (r *settingsRepo) ListPrograms(ctx context.Context) ([]domain.Program, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, start_date, end_date, is_active
		FROM programs
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query programs: %w", err)
	}
	defer rows.Close()

	var programs []domain.Program
	for rows.Next() {
		var p domain.Program
		var start, end sql.NullInt64
		var active int
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &start, &end, &active); err != nil {
			return nil, fmt.Errorf("failed to scan program: %w", err)
		}
		p.StartDate = fromNullUnix(start)
		p.EndDate = fromNullUnix(end)
		p.IsActive = active == 1
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// SaveProgram upserts a program by id
func (r *settingsRepo) SaveProgram(ctx context.Context, p domain.Program) error {
	active := 0
	if p.IsActive {
		active = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO programs (id, name, description, start_date, end_date, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, toNullUnix(p.StartDate), toNullUnix(p.EndDate), active)
	if err != nil {
		return fmt.Errorf("failed to save program: %w", err)
	}
	return nil
}

// DeleteProgram removes a program
func (r *settingsRepo) DeleteProgram(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete program: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// Reset wipes every persisted setting
func (r *settingsRepo) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM settings`,
		`DELETE FROM layouts`,
		`DELETE FROM programs`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to reset settings: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the database connection
func (r *settingsRepo) Close() error {
	return r.db.Close()
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
