package bc

import (
	"fmt"

	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/types"
)

/*
Machine enforces the call order of a boundary condition within one evaluation

	DC: NotStarted -> Preprocessed -> ResidualBuilt -> JacobianBuilt
	AC: NotStarted -> Preprocessed -> ACFilled

Reset starts the next evaluation.
*/
type Machine struct {
	bc    BoundaryCondition
	phase types.Phase
	ac    bool
}

func NewMachine(bc BoundaryCondition) *Machine { return &Machine{bc: bc} }

func (m *Machine) Condition() BoundaryCondition { return m.bc }
func (m *Machine) Phase() types.Phase           { return m.phase }

func (m *Machine) Reset() {
	m.phase, m.ac = types.PhaseNotStarted, false
}

func (m *Machine) advance(from, to types.Phase, ac bool) error {
	if m.phase != from || (from != types.PhaseNotStarted && m.ac != ac) {
		return fmt.Errorf("%s: cannot move to %s from %s: %w", m.bc.Name(), to, m.phase, ErrPhaseOrder)
	}
	m.phase, m.ac = to, ac
	return nil
}

func (m *Machine) Preprocess() (recs assembly.Redirections, err error) {
	if err = m.advance(types.PhaseNotStarted, types.PhasePreprocessed, false); err != nil {
		return
	}
	recs = m.bc.Preprocess()
	return
}

func (m *Machine) Function(x []float64, f *assembly.VectorSession) (err error) {
	if err = m.advance(types.PhasePreprocessed, types.PhaseResidualBuilt, false); err != nil {
		return
	}
	return m.bc.Function(x, f)
}

func (m *Machine) Jacobian(x []float64, j assembly.JacobianWriter) (err error) {
	if err = m.advance(types.PhaseResidualBuilt, types.PhaseJacobianBuilt, false); err != nil {
		return
	}
	return m.bc.Jacobian(x, j)
}

func (m *Machine) ACPreprocess() (recs assembly.Redirections, err error) {
	if err = m.advance(types.PhaseNotStarted, types.PhasePreprocessed, true); err != nil {
		return
	}
	recs = m.bc.ACPreprocess()
	return
}

func (m *Machine) FillAC(x []float64, a *assembly.ACWriter, omega float64) (err error) {
	if err = m.advance(types.PhasePreprocessed, types.PhaseACFilled, true); err != nil {
		return
	}
	return m.bc.FillAC(x, a, omega)
}
