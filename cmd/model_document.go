package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lattice-sim/lattice-sim/sim"
)

// ModelDocument is the YAML form of a reaction-network model, written into
// the sqlite databases by the import command.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type ModelDocument struct {
	Species      []SpeciesDocument  `yaml:"species"`
	Reactions    []ReactionDocument `yaml:"reactions"`
	InitialState []InitialCount     `yaml:"initial_state"`
	InitialSites []InitialSite      `yaml:"initial_sites"`
	Factors      *FactorsDocument   `yaml:"factors"`
}

type SpeciesDocument struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Phase string `yaml:"phase"`
}

type ReactionDocument struct {
	ID             int                     `yaml:"id"`
	Type           string                  `yaml:"type"`
	Reactants      []int                   `yaml:"reactants"`
	Products       []int                   `yaml:"products"`
	SiteReactants  []int                   `yaml:"site_reactants"`
	SiteProducts   []int                   `yaml:"site_products"`
	Rate           float64                 `yaml:"rate"`
	ChargeTransfer *ChargeTransferDocument `yaml:"charge_transfer"`
}

type ChargeTransferDocument struct {
	Prefactor            float64 `yaml:"prefactor"`
	TransferCoefficient  float64 `yaml:"transfer_coefficient"`
	Electrons            int     `yaml:"electrons"`
	EquilibriumPotential float64 `yaml:"equilibrium_potential"`
	ReorganizationEnergy float64 `yaml:"reorganization_energy"`
	Direction            string  `yaml:"direction"`
}

type InitialCount struct {
	SpeciesID int `yaml:"species_id"`
	Count     int `yaml:"count"`
}

type InitialSite struct {
	SiteID    int `yaml:"site_id"`
	SpeciesID int `yaml:"species_id"`
}

type FactorsDocument struct {
	FactorZero      float64 `yaml:"factor_zero"`
	FactorTwo       float64 `yaml:"factor_two"`
	FactorDuplicate float64 `yaml:"factor_duplicate"`
}

// LoadModelDocument reads a model document with strict field checking, so
// typos are errors instead of silently dropped keys.
func LoadModelDocument(path string) (*ModelDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model document: %w", err)
	}
	var doc ModelDocument
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing model document %s: %w", path, err)
	}
	return &doc, nil
}

// Records converts the document into model records. The number of sites of
// a reaction is the length of its site reactant list.
func (d *ModelDocument) Records() (*sim.ModelRecords, error) {
	out := &sim.ModelRecords{Factors: sim.DefaultFactors()}
	for _, s := range d.Species {
		out.Species = append(out.Species, sim.SpeciesRecord{ID: s.ID, Name: s.Name, Phase: s.Phase})
	}
	for _, r := range d.Reactions {
		rec := sim.ReactionRecord{
			ID:            r.ID,
			Type:          r.Type,
			NumberOfSites: len(r.SiteReactants),
			Reactants:     r.Reactants,
			Products:      r.Products,
			SiteReactants: r.SiteReactants,
			SiteProducts:  r.SiteProducts,
			Rate:          r.Rate,
		}
		if ct := r.ChargeTransfer; ct != nil {
			dir, err := sim.ParseChargeTransferDirection(ct.Direction)
			if err != nil {
				return nil, fmt.Errorf("reaction %d: %w", r.ID, err)
			}
			rec.ChargeTransfer = &sim.ChargeTransferParams{
				Prefactor:            ct.Prefactor,
				TransferCoefficient:  ct.TransferCoefficient,
				Electrons:            ct.Electrons,
				EquilibriumPotential: ct.EquilibriumPotential,
				ReorganizationEnergy: ct.ReorganizationEnergy,
				Direction:            dir,
			}
		}
		out.Reactions = append(out.Reactions, rec)
	}
	for _, c := range d.InitialState {
		out.InitialCounts = append(out.InitialCounts, sim.InitialStateRecord{SpeciesID: c.SpeciesID, Count: c.Count})
	}
	for _, s := range d.InitialSites {
		out.InitialSites = append(out.InitialSites, sim.SiteOccupancyRecord{SiteID: s.SiteID, SpeciesID: s.SpeciesID})
	}
	if f := d.Factors; f != nil {
		out.Factors = sim.FactorsRecord{FactorZero: f.FactorZero, FactorTwo: f.FactorTwo, FactorDuplicate: f.FactorDuplicate}
	}
	return out, nil
}
