package sim

import "fmt"

// ParticleChange tells how a parameter update affected the particle count.
type ParticleChange uint8

const (
	Same ParticleChange = iota
	Less
	More
)

func (c ParticleChange) String() string {
	switch c {
	case Less:
		return "less"
	case More:
		return "more"
	default:
		return "same"
	}
}

// CompareN classifies a particle count change from old to new.
func CompareN(old, new uint32) ParticleChange {
	switch {
	case new < old:
		return Less
	case new > old:
		return More
	default:
		return Same
	}
}

// ActionKind enumerates the user actions the controller accepts.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionReset
	ActionParameterChanged
	ActionStep
	ActionResetParameters
)

// Action is a discrete user request delivered once per frame at most.
type Action struct {
	Kind   ActionKind
	Change ParticleChange // Only meaningful for ActionParameterChanged
}

// Convenience constructors.
var (
	NoAction          = Action{Kind: ActionNone}
	ResetAction       = Action{Kind: ActionReset}
	StepAction        = Action{Kind: ActionStep}
	ResetParamsAction = Action{Kind: ActionResetParameters}
)

// ParameterChanged returns a parameter update action.
func ParameterChanged(c ParticleChange) Action {
	return Action{Kind: ActionParameterChanged, Change: c}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionNone:
		return "none"
	case ActionReset:
		return "reset"
	case ActionParameterChanged:
		return fmt.Sprintf("parameter_changed(%s)", a.Change)
	case ActionStep:
		return "step"
	case ActionResetParameters:
		return "reset_parameters"
	default:
		return fmt.Sprintf("action(%d)", a.Kind)
	}
}
