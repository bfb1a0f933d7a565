package sim

import (
	"fmt"
	"math"
)

// Physical constants (CODATA 2018).
const (
	FaradayConstant   = 96485.33212    // C/mol
	GasConstant       = 8.314462618    // J/(mol K)
	BoltzmannEV       = 8.617333262e-5 // eV/K
	maxRateExponent   = 700.0          // exp() overflows past ~709
	minReorganization = 1e-12          // eV
)

// ChargeTransferStyle selects the electrochemical rate theory for a whole
// simulation.
type ChargeTransferStyle int

const (
	ButlerVolmer ChargeTransferStyle = iota
	Marcus
)

var chargeTransferStyleNames = map[ChargeTransferStyle]string{
	ButlerVolmer: "butler_volmer",
	Marcus:       "marcus",
}

func (s ChargeTransferStyle) String() string {
	if name, ok := chargeTransferStyleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ChargeTransferStyle(%d)", int(s))
}

// Valid reports whether s names a known theory.
func (s ChargeTransferStyle) Valid() bool {
	_, ok := chargeTransferStyleNames[s]
	return ok
}

// ParseChargeTransferStyle maps a configuration name to a style.
func ParseChargeTransferStyle(name string) (ChargeTransferStyle, error) {
	for s, n := range chargeTransferStyleNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChargeTransferStyle, name)
}

// ChargeTransferDirection selects the cathodic or anodic branch.
type ChargeTransferDirection int

const (
	// Reduction consumes electrons (cathodic branch).
	Reduction ChargeTransferDirection = -1
	// Oxidation releases electrons (anodic branch).
	Oxidation ChargeTransferDirection = 1
)

// ParseChargeTransferDirection maps "reduction"/"oxidation" to a direction.
func ParseChargeTransferDirection(s string) (ChargeTransferDirection, error) {
	switch s {
	case "reduction":
		return Reduction, nil
	case "oxidation":
		return Oxidation, nil
	}
	return 0, fmt.Errorf("unknown charge transfer direction %q", s)
}

func (d ChargeTransferDirection) String() string {
	if d == Oxidation {
		return "oxidation"
	}
	return "reduction"
}

// ChargeTransferParams are the per-reaction inputs of both theories.
// TransferCoefficient is the coefficient of the branch named by Direction.
// ReorganizationEnergy (eV) is used by Marcus only.
type ChargeTransferParams struct {
	Prefactor            float64
	TransferCoefficient  float64
	Electrons            int
	EquilibriumPotential float64 // V
	ReorganizationEnergy float64 // eV
	Direction            ChargeTransferDirection
}

// Overpotential is the applied potential minus the equilibrium potential.
func (p ChargeTransferParams) Overpotential(potential float64) float64 {
	return potential - p.EquilibriumPotential
}

// RateConstant computes the rate constant of one charge-transfer reaction at
// the given electrode potential (V) and temperature (K).
func RateConstant(style ChargeTransferStyle, p ChargeTransferParams, potential, temperature float64) (float64, error) {
	if temperature <= 0 {
		return 0, fmt.Errorf("temperature must be positive, got %v", temperature)
	}
	if p.Prefactor < 0 {
		return 0, fmt.Errorf("prefactor must be non-negative, got %v", p.Prefactor)
	}
	if p.Direction != Reduction && p.Direction != Oxidation {
		return 0, fmt.Errorf("unknown charge transfer direction %d", int(p.Direction))
	}
	switch style {
	case ButlerVolmer:
		return butlerVolmerRate(p, potential, temperature)
	case Marcus:
		return marcusRate(p, potential, temperature)
	}
	return 0, fmt.Errorf("%w: %v", ErrUnknownChargeTransferStyle, style)
}

// k = k0 exp(±α n F η / RT); the sign follows the direction, so a negative
// overpotential speeds up reductions and slows down oxidations.
func butlerVolmerRate(p ChargeTransferParams, potential, temperature float64) (float64, error) {
	if p.TransferCoefficient < 0 || p.TransferCoefficient > 1 {
		return 0, fmt.Errorf("transfer coefficient must be in [0, 1], got %v", p.TransferCoefficient)
	}
	eta := p.Overpotential(potential)
	exponent := float64(p.Direction) * p.TransferCoefficient * float64(p.Electrons) *
		FaradayConstant * eta / (GasConstant * temperature)
	return p.Prefactor * math.Exp(math.Min(exponent, maxRateExponent)), nil
}

// k = k0 exp(-ΔG‡ / kT) with ΔG‡ = (λ + ΔG)² / 4λ and ΔG = -dir · n · η (eV).
func marcusRate(p ChargeTransferParams, potential, temperature float64) (float64, error) {
	lambda := p.ReorganizationEnergy
	if lambda < minReorganization {
		return 0, fmt.Errorf("reorganization energy must be positive, got %v", lambda)
	}
	dG := -float64(p.Direction) * float64(p.Electrons) * p.Overpotential(potential)
	barrier := (lambda + dG) * (lambda + dG) / (4 * lambda)
	return p.Prefactor * math.Exp(-barrier/(BoltzmannEV*temperature)), nil
}
