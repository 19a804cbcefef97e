package sim

// InputKind enumerates control panel and keyboard events.
type InputKind uint8

const (
	SetDT InputKind = iota
	SetG
	SetSoftening
	SetDamping
	SetParticles
	ToggleWrap
	ToggleColorBySpeed
	TogglePause
	PressReset
	PressStep
	PressResetParams
)

// Input is one UI event. Value carries slider positions, N the particle count.
type Input struct {
	Kind  InputKind
	Value float32
	N     uint32
}

// rank orders actions so a frame with several inputs keeps the one with the
// largest effect.
func rank(a Action) int {
	switch a.Kind {
	case ActionParameterChanged:
		if a.Change != Same {
			return 5
		}
		return 1
	case ActionReset:
		return 4
	case ActionResetParameters:
		return 3
	case ActionStep:
		return 2
	default:
		return 0
	}
}

// Reduce folds a frame's inputs into new parameters and at most one action.
// It is pure: p is not modified and nothing is clamped, so an invalid particle
// count reaches the controller as is. PressStep is ignored while running, the
// way the disabled button behaves.
func Reduce(p Params, inputs []Input) (Params, Action) {
	action := NoAction
	raise := func(a Action) {
		if rank(a) >= rank(action) {
			action = a
		}
	}

	for _, in := range inputs {
		switch in.Kind {
		case SetDT:
			if in.Value != p.DT {
				p.DT = in.Value
				raise(ParameterChanged(Same))
			}
		case SetG:
			if in.Value != p.G {
				p.G = in.Value
				raise(ParameterChanged(Same))
			}
		case SetSoftening:
			if in.Value != p.Softening {
				p.Softening = in.Value
				raise(ParameterChanged(Same))
			}
		case SetDamping:
			if in.Value != p.Damping {
				p.Damping = in.Value
				raise(ParameterChanged(Same))
			}
		case SetParticles:
			if c := CompareN(p.N, in.N); c != Same {
				p.N = in.N
				raise(ParameterChanged(c))
			}
		case ToggleWrap:
			p.Wrap = !p.Wrap
			raise(ParameterChanged(Same))
		case ToggleColorBySpeed:
			p.ColorBySpeed = !p.ColorBySpeed
			raise(ParameterChanged(Same))
		case TogglePause:
			p.Paused = !p.Paused
			raise(ParameterChanged(Same))
		case PressReset:
			raise(ResetAction)
		case PressStep:
			if p.Paused {
				raise(StepAction)
			}
		case PressResetParams:
			raise(ResetParamsAction)
		}
	}
	return p, action
}

// ParticleStep is the particle slider granularity.
const ParticleStep = 1000

// QuantizeParticles rounds a slider position to the nearest multiple of
// ParticleStep within [ParticleStep, limit]. limit is rounded down to a multiple.
func QuantizeParticles(v float32, limit uint32) uint32 {
	top := limit / ParticleStep * ParticleStep
	if top < ParticleStep {
		top = ParticleStep
	}
	if v <= ParticleStep {
		return ParticleStep
	}
	if v >= float32(top) {
		return top
	}
	n := uint32(v/ParticleStep+0.5) * ParticleStep
	return min(n, top)
}
