package erosion

import "fmt"

// Params controls a run. The engine never mutates it.
type Params struct {
	Steps int

	Hydraulic     bool
	KC            float32 // sediment capacity
	KD            float32 // deposition rate
	KS            float32 // dissolving rate
	KE            float32 // evaporation multiplier per step
	Rain          float32
	RainFrequency int // steps between rain events, 0 rains only at step 0

	Thermal bool
	KT      float32 // talus threshold
	CT      float32 // thermal transfer rate
}

func DefaultParams() Params {
	return Params{
		Steps:         2500,
		Hydraulic:     true,
		KC:            0.75,
		KD:            0.015,
		KS:            0.15,
		KE:            1.0,
		Rain:          0.15,
		RainFrequency: 0,
		Thermal:       true,
		KT:            0.6,
		CT:            0.05,
	}
}

func (p Params) Validate() error {
	switch {
	case p.Steps < 0:
		return fmt.Errorf("%w: steps %d", ErrInvalidParams, p.Steps)
	case p.RainFrequency < 0:
		return fmt.Errorf("%w: rain frequency %d", ErrInvalidParams, p.RainFrequency)
	case p.KE < 0 || p.KE > 1:
		return fmt.Errorf("%w: evaporation %g not in [0,1]", ErrInvalidParams, p.KE)
	case p.KC < 0 || p.KD < 0 || p.KS < 0:
		return fmt.Errorf("%w: negative hydraulic rate", ErrInvalidParams)
	case p.Rain < 0:
		return fmt.Errorf("%w: rain %g", ErrInvalidParams, p.Rain)
	case p.KT < 0 || p.CT < 0:
		return fmt.Errorf("%w: negative thermal rate", ErrInvalidParams)
	}
	return nil
}

// ParamNames lists the names accepted by Set.
var ParamNames = []string{"steps", "kc", "kd", "ks", "ke", "rain", "rain_frequency", "kt", "ct"}

// Set assigns a tunable parameter by name. Integer parameters truncate v.
func (p *Params) Set(name string, v float64) error {
	switch name {
	case "steps":
		p.Steps = int(v)
	case "kc":
		p.KC = float32(v)
	case "kd":
		p.KD = float32(v)
	case "ks":
		p.KS = float32(v)
	case "ke":
		p.KE = float32(v)
	case "rain":
		p.Rain = float32(v)
	case "rain_frequency":
		p.RainFrequency = int(v)
	case "kt":
		p.KT = float32(v)
	case "ct":
		p.CT = float32(v)
	default:
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParams, name)
	}
	return nil
}
