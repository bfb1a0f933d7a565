package sim

import (
	"context"
	"errors"
	"fmt"
)

// EmptySite marks a vacant site in site slots and occupancy records.
const EmptySite = -1

// Sentinel errors. Construction failures wrap them in a *RecordError so
// callers can both match the cause and see the offending record.
var (
	ErrMalformedRecord            = errors.New("malformed record")
	ErrUndefinedSpecies           = errors.New("undefined species")
	ErrUnknownChargeTransferStyle = errors.New("unknown charge transfer style")
	ErrMalformedInitialState      = errors.New("malformed initial state")
	ErrDependencyIncomplete       = errors.New("dependency graph incomplete")
	ErrInvalidReaction            = errors.New("invalid reaction")
	ErrNegativeCount              = errors.New("species count would become negative")
	ErrSiteOccupied               = errors.New("site already occupied")
	ErrSiteMismatch               = errors.New("site occupant does not match reaction")
	ErrHistoryQueueClosed         = errors.New("history queue closed")
	ErrPropensityOverflow         = errors.New("propensity is not finite")
)

// RecordError names the persisted record that made network construction fail.
type RecordError struct {
	Table string // "species", "reactions", "initial_state", "initial_sites", "factors"
	ID    int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s record %d: %v", e.Table, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

func recordErr(table string, id int, err error, format string, args ...any) error {
	if format != "" {
		err = fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...))
	}
	return &RecordError{Table: table, ID: id, Err: err}
}

// SpeciesRecord is one row of the species table.
type SpeciesRecord struct {
	ID    int
	Name  string
	Phase string // "solution" or "lattice"
}

// ReactionRecord is one row of the reactions table.
// Reactants and Products list solution species; a species listed twice has
// stoichiometry 2. SiteReactants/SiteProducts hold one entry per site slot
// (species id or EmptySite); slot 1 is a neighbour of slot 0.
type ReactionRecord struct {
	ID             int
	Type           string
	NumberOfSites  int
	Reactants      []int
	Products       []int
	SiteReactants  []int
	SiteProducts   []int
	Rate           float64
	ChargeTransfer *ChargeTransferParams // required for charge_transfer reactions
}

// InitialStateRecord is one row of the initial_state table.
type InitialStateRecord struct {
	SpeciesID int
	Count     int
}

// SiteOccupancyRecord is one row of the optional initial_sites table.
type SiteOccupancyRecord struct {
	SiteID    int
	SpeciesID int
}

// FactorsRecord holds the three global rate-scaling factors.
type FactorsRecord struct {
	FactorZero      float64 // reactions with no reactants
	FactorTwo       float64 // reactions with two reactant molecules
	FactorDuplicate float64 // reactions whose reactants are the same species
}

// DefaultFactors leaves every rate unscaled.
func DefaultFactors() FactorsRecord {
	return FactorsRecord{FactorZero: 1, FactorTwo: 1, FactorDuplicate: 1}
}

// ModelRecords is everything a ModelStore supplies, in persisted id order.
type ModelRecords struct {
	Species       []SpeciesRecord
	Reactions     []ReactionRecord
	InitialCounts []InitialStateRecord
	InitialSites  []SiteOccupancyRecord
	Factors       FactorsRecord
}

// ModelStore loads a persisted reaction-network model.
type ModelStore interface {
	LoadModel(ctx context.Context) (*ModelRecords, error)
}
