package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrBuiltIn is returned when deleting a preset that ships with the server.
var ErrBuiltIn = errors.New("built-in preset cannot be deleted")

// SQLitePresetRepository implements PresetRepository for SQLite.
type SQLitePresetRepository struct {
	db *sql.DB
}

func NewSQLitePresetRepository(db *sql.DB) *SQLitePresetRepository {
	return &SQLitePresetRepository{db: db}
}

func (r *SQLitePresetRepository) Upsert(ctx context.Context, p Preset) error {
	if p.Name == "" {
		return fmt.Errorf("failed to upsert preset: empty name")
	}
	query := `
		INSERT INTO presets (name, description, width, height, depth, reproduce, survive, dying, topology, seed_mode, seed_probability, built_in, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description=excluded.description,
			width=excluded.width,
			height=excluded.height,
			depth=excluded.depth,
			reproduce=excluded.reproduce,
			survive=excluded.survive,
			dying=excluded.dying,
			topology=excluded.topology,
			seed_mode=excluded.seed_mode,
			seed_probability=excluded.seed_probability,
			built_in=excluded.built_in,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		p.Name, p.Description, p.Width, p.Height, p.Depth, p.Reproduce, p.Survive, p.Dying,
		p.Topology, p.SeedMode, p.SeedProbability, p.BuiltIn, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert preset %s: %w", p.Name, err)
	}
	return nil
}

const presetColumns = `name, description, width, height, depth, reproduce, survive, dying, topology, seed_mode, seed_probability, built_in, last_updated`

func scanPreset(row interface{ Scan(...interface{}) error }) (Preset, error) {
	var p Preset
	err := row.Scan(
		&p.Name, &p.Description, &p.Width, &p.Height, &p.Depth, &p.Reproduce, &p.Survive, &p.Dying,
		&p.Topology, &p.SeedMode, &p.SeedProbability, &p.BuiltIn, &p.LastUpdated,
	)
	return p, err
}

func (r *SQLitePresetRepository) Get(ctx context.Context, name string) (*Preset, error) {
	query := `SELECT ` + presetColumns + ` FROM presets WHERE name = ?`
	p, err := scanPreset(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("preset %s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func (r *SQLitePresetRepository) List(ctx context.Context) ([]Preset, error) {
	query := `SELECT ` + presetColumns + ` FROM presets ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (r *SQLitePresetRepository) Delete(ctx context.Context, name string) error {
	p, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	if p.BuiltIn {
		return fmt.Errorf("preset %s: %w", name, ErrBuiltIn)
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM presets WHERE name = ?`, name)
	return err
}

// ---------------------------------------------------------
// SQLiteRunRepository
// ---------------------------------------------------------

type SQLiteRunRepository struct {
	db *sql.DB
}

func NewSQLiteRunRepository(db *sql.DB) *SQLiteRunRepository {
	return &SQLiteRunRepository{db: db}
}

func (r *SQLiteRunRepository) Create(ctx context.Context, run RunRecord) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	query := `
		INSERT INTO runs (run_id, width, height, depth, rules, topology, seed_mode, seed_probability, seed_rng, step_rng, seeded, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.RunID, run.Width, run.Height, run.Depth, run.Rules, run.Topology, run.SeedMode,
		run.SeedProbability, run.SeedRNG, run.StepRNG, run.Seeded, run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *SQLiteRunRepository) Reseeded(ctx context.Context, runID string, seeded int) error {
	return r.update(ctx, runID, `UPDATE runs SET reseeds = reseeds + 1, seeded = ?, generations = 0 WHERE run_id = ?`, seeded, runID)
}

func (r *SQLiteRunRepository) Finish(ctx context.Context, runID string, o RunOutcome) error {
	if o.FinishedAt.IsZero() {
		o.FinishedAt = time.Now()
	}
	query := `
		UPDATE runs SET finished_at = ?, generations = ?, final_alive = ?, final_dying = ?, stable = ?, extinct = ?
		WHERE run_id = ?
	`
	return r.update(ctx, runID, query,
		o.FinishedAt.UTC(), o.Generations, o.FinalAlive, o.FinalDying, o.Stable, o.Extinct, runID)
}

func (r *SQLiteRunRepository) update(ctx context.Context, runID, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `run_id, width, height, depth, rules, topology, seed_mode, seed_probability, seed_rng, step_rng, seeded, reseeds, started_at, finished_at, generations, final_alive, final_dying, stable, extinct`

func scanRun(row interface{ Scan(...interface{}) error }) (RunRecord, error) {
	var run RunRecord
	var finished sql.NullTime
	err := row.Scan(
		&run.RunID, &run.Width, &run.Height, &run.Depth, &run.Rules, &run.Topology, &run.SeedMode,
		&run.SeedProbability, &run.SeedRNG, &run.StepRNG, &run.Seeded, &run.Reseeds, &run.StartedAt,
		&finished, &run.Generations, &run.FinalAlive, &run.FinalDying, &run.Stable, &run.Extinct,
	)
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return run, err
}

func (r *SQLiteRunRepository) Get(ctx context.Context, runID string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE run_id = ?`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, err
	}
	return &run, nil
}

func (r *SQLiteRunRepository) ListRecent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
