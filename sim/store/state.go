package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lattice-sim/lattice-sim/sim"
)

// StateDB is a state database: initial state, per-seed cutoffs and
// trajectories. It implements sim.CheckpointStore.
type StateDB struct {
	db *sql.DB
}

var _ sim.CheckpointStore = (*StateDB)(nil)

// OpenStateDB opens (creating if needed) a state database.
func OpenStateDB(path string) (*StateDB, error) {
	db, err := openSQLite(path, stateSchema)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return &StateDB{db: db}, nil
}

// Close closes the database handle.
func (s *StateDB) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WriteInitialState replaces the initial counts and site occupancy.
func (s *StateDB) WriteInitialState(ctx context.Context, counts []sim.InitialStateRecord, sites []sim.SiteOccupancyRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM initial_state`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM initial_sites`); err != nil {
		return err
	}
	for _, c := range counts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO initial_state(species_id, count) VALUES(?, ?)`,
			c.SpeciesID, c.Count); err != nil {
			return fmt.Errorf("writing initial count of species %d: %w", c.SpeciesID, err)
		}
	}
	for _, o := range sites {
		if _, err := tx.ExecContext(ctx, `INSERT INTO initial_sites(site_id, species_id) VALUES(?, ?)`,
			o.SiteID, o.SpeciesID); err != nil {
			return fmt.Errorf("writing initial site %d: %w", o.SiteID, err)
		}
	}
	return tx.Commit()
}

// InitialState reads the initial counts and site occupancy in id order.
func (s *StateDB) InitialState(ctx context.Context) ([]sim.InitialStateRecord, []sim.SiteOccupancyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT species_id, count FROM initial_state ORDER BY species_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("reading initial state: %w", err)
	}
	var counts []sim.InitialStateRecord
	for rows.Next() {
		var c sim.InitialStateRecord
		if err := rows.Scan(&c.SpeciesID, &c.Count); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("reading initial state: %w", err)
		}
		counts = append(counts, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT site_id, species_id FROM initial_sites ORDER BY site_id`)
	if err != nil {
		return nil, nil, fmt.Errorf("reading initial sites: %w", err)
	}
	defer rows.Close()
	var sites []sim.SiteOccupancyRecord
	for rows.Next() {
		var o sim.SiteOccupancyRecord
		if err := rows.Scan(&o.SiteID, &o.SpeciesID); err != nil {
			return nil, nil, fmt.Errorf("reading initial sites: %w", err)
		}
		sites = append(sites, o)
	}
	return counts, sites, rows.Err()
}

// ReadCutoffs returns the last recorded cutoff of every seed.
func (s *StateDB) ReadCutoffs(ctx context.Context) (map[int64]sim.Cutoff, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seed, step, time FROM cutoffs`)
	if err != nil {
		return nil, fmt.Errorf("reading cutoffs: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]sim.Cutoff)
	for rows.Next() {
		var c sim.Cutoff
		if err := rows.Scan(&c.Seed, &c.Step, &c.Time); err != nil {
			return nil, fmt.Errorf("reading cutoffs: %w", err)
		}
		out[c.Seed] = c
	}
	return out, rows.Err()
}

// WriteCutoff records c, replacing any earlier cutoff of the same seed.
func (s *StateDB) WriteCutoff(ctx context.Context, c sim.Cutoff) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO cutoffs(seed, step, time) VALUES(?, ?, ?)
		ON CONFLICT(seed) DO UPDATE SET step = excluded.step, time = excluded.time`,
		c.Seed, c.Step, c.Time)
	if err != nil {
		return fmt.Errorf("writing cutoff of seed %d: %w", c.Seed, err)
	}
	return nil
}

// WriteTrajectory appends one history packet in a single transaction.
func (s *StateDB) WriteTrajectory(ctx context.Context, p sim.HistoryPacket) error {
	if len(p.Elements) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO trajectories(seed, step, time, reaction_id, site_1, site_2)
		VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range p.Elements {
		if _, err := stmt.ExecContext(ctx, p.Seed, e.Step, e.Time, e.Reaction, e.Sites[0], e.Sites[1]); err != nil {
			return fmt.Errorf("writing trajectory of seed %d step %d: %w", p.Seed, e.Step, err)
		}
	}
	return tx.Commit()
}

// ReadTrajectory returns the stored trajectory of seed in step order.
func (s *StateDB) ReadTrajectory(ctx context.Context, seed int64) ([]sim.TrajectoryElement, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT step, time, reaction_id, site_1, site_2
		FROM trajectories WHERE seed = ? ORDER BY step`, seed)
	if err != nil {
		return nil, fmt.Errorf("reading trajectory of seed %d: %w", seed, err)
	}
	defer rows.Close()
	var out []sim.TrajectoryElement
	for rows.Next() {
		var e sim.TrajectoryElement
		if err := rows.Scan(&e.Step, &e.Time, &e.Reaction, &e.Sites[0], &e.Sites[1]); err != nil {
			return nil, fmt.Errorf("reading trajectory of seed %d: %w", seed, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TruncateTrajectory drops every element of seed after step.
func (s *StateDB) TruncateTrajectory(ctx context.Context, seed int64, step int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM trajectories WHERE seed = ? AND step > ?`, seed, step); err != nil {
		return fmt.Errorf("truncating trajectory of seed %d: %w", seed, err)
	}
	return nil
}
