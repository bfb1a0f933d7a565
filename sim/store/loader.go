package store

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lattice-sim/lattice-sim/sim"
)

// Loader reads a model from a model database and its initial state from a
// state database.
type Loader struct {
	Model *ModelDB
	State *StateDB
}

var _ sim.ModelStore = (*Loader)(nil)

// LoadModel reads every table and checks the row counts against metadata.
func (l *Loader) LoadModel(ctx context.Context) (*sim.ModelRecords, error) {
	nSpecies, nReactions, err := l.Model.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	species, err := l.Model.Species(ctx)
	if err != nil {
		return nil, err
	}
	if len(species) != nSpecies {
		return nil, fmt.Errorf("%w: metadata declares %d species, found %d", sim.ErrMalformedRecord, nSpecies, len(species))
	}
	reactions, err := l.Model.Reactions(ctx)
	if err != nil {
		return nil, err
	}
	if len(reactions) != nReactions {
		return nil, fmt.Errorf("%w: metadata declares %d reactions, found %d", sim.ErrMalformedRecord, nReactions, len(reactions))
	}
	factors, err := l.Model.Factors(ctx)
	if err != nil {
		return nil, err
	}
	counts, sites, err := l.State.InitialState(ctx)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("loaded model: %d species, %d reactions, %d initial sites", nSpecies, nReactions, len(sites))
	return &sim.ModelRecords{
		Species:       species,
		Reactions:     reactions,
		InitialCounts: counts,
		InitialSites:  sites,
		Factors:       factors,
	}, nil
}

// WriteModel stores records across both databases.
func (l *Loader) WriteModel(ctx context.Context, records *sim.ModelRecords) error {
	if err := l.Model.WriteModel(ctx, records); err != nil {
		return err
	}
	return l.State.WriteInitialState(ctx, records.InitialCounts, records.InitialSites)
}
