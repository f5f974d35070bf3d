package types

// InsertMode is the accumulation mode of a pending write to a distributed
// vector or matrix
type InsertMode uint8

const (
	NotSetValues InsertMode = iota
	AddValues
	InsertValues
)

func (m InsertMode) String() string {
	switch m {
	case AddValues:
		return "AddValues"
	case InsertValues:
		return "InsertValues"
	}
	return "NotSetValues"
}

// Phase is the state of a boundary condition within one evaluation
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhasePreprocessed
	PhaseResidualBuilt
	PhaseJacobianBuilt
	PhaseACFilled
)

func (p Phase) String() string {
	names := [...]string{"NotStarted", "Preprocessed", "ResidualBuilt", "JacobianBuilt", "ACFilled"}
	if int(p) < len(names) {
		return names[p]
	}
	return "Unknown"
}
