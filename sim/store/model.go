package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lattice-sim/lattice-sim/sim"
)

// ModelDB is a model database.
type ModelDB struct {
	db *sql.DB
}

// OpenModelDB opens (creating if needed) a model database.
func OpenModelDB(path string) (*ModelDB, error) {
	db, err := openSQLite(path, modelSchema)
	if err != nil {
		return nil, fmt.Errorf("open model db: %w", err)
	}
	return &ModelDB{db: db}, nil
}

// Close closes the database handle.
func (m *ModelDB) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// WriteModel replaces the stored network with records, including metadata.
// Initial counts and sites belong to the state database and are ignored.
func (m *ModelDB) WriteModel(ctx context.Context, records *sim.ModelRecords) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"metadata", "species", "reactions", "factors"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO metadata(number_of_species, number_of_reactions) VALUES(?, ?)`,
		len(records.Species), len(records.Reactions)); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	for _, s := range records.Species {
		if _, err := tx.ExecContext(ctx, `INSERT INTO species(species_id, name, phase) VALUES(?, ?, ?)`,
			s.ID, s.Name, s.Phase); err != nil {
			return fmt.Errorf("writing species %d: %w", s.ID, err)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO reactions(
		reaction_id, type, number_of_sites, number_of_reactants, number_of_products,
		reactant_1, reactant_2, product_1, product_2,
		site_reactant_1, site_reactant_2, site_product_1, site_product_2,
		rate, prefactor, transfer_coefficient, electrons,
		equilibrium_potential, reorganization_energy, direction
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range records.Reactions {
		args, err := reactionArgs(r)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("writing reaction %d: %w", r.ID, err)
		}
	}
	f := records.Factors
	if _, err := tx.ExecContext(ctx, `INSERT INTO factors(factor_zero, factor_two, factor_duplicate) VALUES(?, ?, ?)`,
		f.FactorZero, f.FactorTwo, f.FactorDuplicate); err != nil {
		return fmt.Errorf("writing factors: %w", err)
	}
	return tx.Commit()
}

func reactionArgs(r sim.ReactionRecord) ([]any, error) {
	if len(r.Reactants) > 2 || len(r.Products) > 2 || len(r.SiteReactants) > 2 || len(r.SiteProducts) > 2 {
		return nil, fmt.Errorf("reaction %d: at most two reactants, products and sites can be stored", r.ID)
	}
	slot := func(ids []int, i int) sql.NullInt64 {
		if i < len(ids) {
			return nullInt(ids[i], true)
		}
		return sql.NullInt64{}
	}
	args := []any{
		r.ID, r.Type, r.NumberOfSites, len(r.Reactants), len(r.Products),
		slot(r.Reactants, 0), slot(r.Reactants, 1), slot(r.Products, 0), slot(r.Products, 1),
		slot(r.SiteReactants, 0), slot(r.SiteReactants, 1), slot(r.SiteProducts, 0), slot(r.SiteProducts, 1),
		r.Rate,
	}
	if ct := r.ChargeTransfer; ct != nil {
		args = append(args, ct.Prefactor, ct.TransferCoefficient, ct.Electrons,
			ct.EquilibriumPotential, ct.ReorganizationEnergy, ct.Direction.String())
	} else {
		args = append(args, nil, nil, nil, nil, nil, nil)
	}
	return args, nil
}

// Species reads the species table in id order.
func (m *ModelDB) Species(ctx context.Context) ([]sim.SpeciesRecord, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT species_id, name, phase FROM species ORDER BY species_id`)
	if err != nil {
		return nil, fmt.Errorf("reading species: %w", err)
	}
	defer rows.Close()
	var out []sim.SpeciesRecord
	for rows.Next() {
		var s sim.SpeciesRecord
		if err := rows.Scan(&s.ID, &s.Name, &s.Phase); err != nil {
			return nil, fmt.Errorf("reading species: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Reactions reads the reactions table in id order.
func (m *ModelDB) Reactions(ctx context.Context) ([]sim.ReactionRecord, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT
		reaction_id, type, number_of_sites, number_of_reactants, number_of_products,
		reactant_1, reactant_2, product_1, product_2,
		site_reactant_1, site_reactant_2, site_product_1, site_product_2,
		rate, prefactor, transfer_coefficient, electrons,
		equilibrium_potential, reorganization_energy, direction
	FROM reactions ORDER BY reaction_id`)
	if err != nil {
		return nil, fmt.Errorf("reading reactions: %w", err)
	}
	defer rows.Close()

	var out []sim.ReactionRecord
	for rows.Next() {
		var (
			r                sim.ReactionRecord
			nReac, nProd     int
			reac, prod       [2]sql.NullInt64
			siteReac, sitePr [2]sql.NullInt64
			prefactor, alpha sql.NullFloat64
			e0, lambda       sql.NullFloat64
			electrons        sql.NullInt64
			direction        sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.Type, &r.NumberOfSites, &nReac, &nProd,
			&reac[0], &reac[1], &prod[0], &prod[1],
			&siteReac[0], &siteReac[1], &sitePr[0], &sitePr[1],
			&r.Rate, &prefactor, &alpha, &electrons, &e0, &lambda, &direction,
		); err != nil {
			return nil, fmt.Errorf("reading reactions: %w", err)
		}
		var err error
		if r.Reactants, err = columns(reac, nReac); err != nil {
			return nil, &sim.RecordError{Table: "reactions", ID: r.ID, Err: fmt.Errorf("%w: reactants: %v", sim.ErrMalformedRecord, err)}
		}
		if r.Products, err = columns(prod, nProd); err != nil {
			return nil, &sim.RecordError{Table: "reactions", ID: r.ID, Err: fmt.Errorf("%w: products: %v", sim.ErrMalformedRecord, err)}
		}
		if r.SiteReactants, err = columns(siteReac, r.NumberOfSites); err != nil {
			return nil, &sim.RecordError{Table: "reactions", ID: r.ID, Err: fmt.Errorf("%w: site reactants: %v", sim.ErrMalformedRecord, err)}
		}
		if r.SiteProducts, err = columns(sitePr, r.NumberOfSites); err != nil {
			return nil, &sim.RecordError{Table: "reactions", ID: r.ID, Err: fmt.Errorf("%w: site products: %v", sim.ErrMalformedRecord, err)}
		}
		if prefactor.Valid {
			dir, err := sim.ParseChargeTransferDirection(direction.String)
			if err != nil {
				return nil, &sim.RecordError{Table: "reactions", ID: r.ID, Err: fmt.Errorf("%w: %v", sim.ErrMalformedRecord, err)}
			}
			r.ChargeTransfer = &sim.ChargeTransferParams{
				Prefactor:            prefactor.Float64,
				TransferCoefficient:  alpha.Float64,
				Electrons:            int(electrons.Int64),
				EquilibriumPotential: e0.Float64,
				ReorganizationEnergy: lambda.Float64,
				Direction:            dir,
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// columns returns the first n slot values, all of which must be set.
func columns(slots [2]sql.NullInt64, n int) ([]int, error) {
	if n < 0 || n > len(slots) {
		return nil, fmt.Errorf("count %d out of range", n)
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		if !slots[i].Valid {
			return nil, fmt.Errorf("slot %d is empty", i+1)
		}
		out[i] = int(slots[i].Int64)
	}
	return out, nil
}

// Factors reads the single factors row. A missing row yields unit factors.
func (m *ModelDB) Factors(ctx context.Context) (sim.FactorsRecord, error) {
	var f sim.FactorsRecord
	err := m.db.QueryRowContext(ctx, `SELECT factor_zero, factor_two, factor_duplicate FROM factors LIMIT 1`).
		Scan(&f.FactorZero, &f.FactorTwo, &f.FactorDuplicate)
	if errors.Is(err, sql.ErrNoRows) {
		return sim.DefaultFactors(), nil
	}
	if err != nil {
		return f, fmt.Errorf("reading factors: %w", err)
	}
	return f, nil
}

// Metadata reads the declared species and reaction counts.
func (m *ModelDB) Metadata(ctx context.Context) (species, reactions int, err error) {
	err = m.db.QueryRowContext(ctx, `SELECT number_of_species, number_of_reactions FROM metadata LIMIT 1`).
		Scan(&species, &reactions)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("%w: metadata table is empty", sim.ErrMalformedRecord)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("reading metadata: %w", err)
	}
	return species, reactions, nil
}
