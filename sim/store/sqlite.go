// Package store persists reaction-network models, initial states, replica
// cutoffs and trajectories in SQLite databases.
//
// A model database holds the static network (metadata, species, reactions,
// factors). A state database holds everything per run: the initial state,
// the cutoffs of each seed and the trajectories.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func openSQLite(path string, schema []string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers from concurrent replicas.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, s := range schema {
		if _, err := db.Exec(s); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: schema: %w", path, err)
		}
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

var modelSchema = []string{
	`CREATE TABLE IF NOT EXISTS metadata (
		number_of_species INTEGER NOT NULL,
		number_of_reactions INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS species (
		species_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		phase TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS reactions (
		reaction_id INTEGER PRIMARY KEY,
		type TEXT NOT NULL,
		number_of_sites INTEGER NOT NULL,
		number_of_reactants INTEGER NOT NULL,
		number_of_products INTEGER NOT NULL,
		reactant_1 INTEGER,
		reactant_2 INTEGER,
		product_1 INTEGER,
		product_2 INTEGER,
		site_reactant_1 INTEGER,
		site_reactant_2 INTEGER,
		site_product_1 INTEGER,
		site_product_2 INTEGER,
		rate REAL NOT NULL DEFAULT 0,
		prefactor REAL,
		transfer_coefficient REAL,
		electrons INTEGER,
		equilibrium_potential REAL,
		reorganization_energy REAL,
		direction TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS factors (
		factor_zero REAL NOT NULL,
		factor_two REAL NOT NULL,
		factor_duplicate REAL NOT NULL
	);`,
}

var stateSchema = []string{
	`CREATE TABLE IF NOT EXISTS initial_state (
		species_id INTEGER PRIMARY KEY,
		count INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS initial_sites (
		site_id INTEGER PRIMARY KEY,
		species_id INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS cutoffs (
		seed INTEGER PRIMARY KEY,
		step INTEGER NOT NULL,
		time REAL NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS trajectories (
		seed INTEGER NOT NULL,
		step INTEGER NOT NULL,
		time REAL NOT NULL,
		reaction_id INTEGER NOT NULL,
		site_1 INTEGER NOT NULL,
		site_2 INTEGER NOT NULL,
		PRIMARY KEY (seed, step)
	);`,
}

func nullInt(v int, ok bool) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: ok}
}
