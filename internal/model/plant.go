package model

import "errors"

// PlantParams describes the power plant whose orientations are compared.
// Units:
// - RatedPowerMW: MW (turbine nameplate)
type PlantParams struct {
	Name         string
	RatedPowerMW float64
}

// Plant bundles the params with the orientation names being compared.
type Plant struct {
	Params   PlantParams
	Variants []string
}

func NewPlant(params PlantParams, variants ...string) (*Plant, error) {
	p := &Plant{Params: params, Variants: variants}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate rejects negative ratings. A zero rating is accepted: energy-equivalent
// hours then report as unavailable instead of failing the whole comparison.
func (p *Plant) Validate() error {
	if p.Params.RatedPowerMW < 0 {
		return errors.New("RatedPowerMW must be >= 0")
	}
	seen := map[string]bool{}
	for _, v := range p.Variants {
		if v == "" {
			return errors.New("variant name must not be empty")
		}
		if seen[v] {
			return errors.New("duplicate variant name: " + v)
		}
		seen[v] = true
	}
	return nil
}
