package bc

import (
	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/autodiff"
	"github.com/notargets/gosemi/fvm"
	"github.com/notargets/gosemi/types"
	"go.uber.org/zap"
)

// CouplingLaw is the residual tying a node's quantity to the master's
type CouplingLaw func(own, master autodiff.Scalar) autodiff.Scalar

func Equality(own, master autodiff.Scalar) autodiff.Scalar { return own.Sub(master) }

/*
InterfaceBC ties every region at a point to the master region, the first one
enumerated there. Each other valid node gets its potential row, and its lattice
temperature row when both regions carry one, moved onto the master's row and
replaced by the coupling law.
*/
type InterfaceBC struct {
	base
	law CouplingLaw
}

func NewInterfaceBC(spec Spec, d *fvm.Directory, logger *zap.Logger) (bc BoundaryCondition, err error) {
	var b base
	if b, err = newBase(spec, d, logger); err != nil {
		return
	}
	bc = &InterfaceBC{base: b, law: Equality}
	return
}

// WithLaw returns a copy of the condition using law instead of equality
func (ib *InterfaceBC) WithLaw(law CouplingLaw) *InterfaceBC {
	c := *ib
	c.law = law
	return &c
}

type coupling struct {
	q           types.Quantity
	own, master *fvm.Node
}

// couplings walks the owned points and lists every constrained quantity
func (ib *InterfaceBC) couplings() (cs []coupling) {
	for _, pt := range ib.ownedPoints() {
		rns := ib.regionNodes(pt)
		if len(rns) < 2 || !ib.d.IsValid(rns[0].Node) {
			continue
		}
		master := rns[0]
		for _, rn := range rns[1:] {
			if !ib.d.IsValid(rn.Node) {
				continue
			}
			cs = append(cs, coupling{q: types.Potential, own: rn.Node, master: master.Node})
			if hasT(rn.Region) && hasT(master.Region) {
				cs = append(cs, coupling{q: types.Temperature, own: rn.Node, master: master.Node})
			}
		}
	}
	return
}

func (ib *InterfaceBC) Preprocess() assembly.Redirections {
	var (
		cs   = ib.couplings()
		recs = make([]assembly.Redirect, 0, len(cs))
	)
	for _, c := range cs {
		recs = append(recs, assembly.Redirect{Src: ib.row(c.own, c.q), Dst: ib.row(c.master, c.q), Clear: true})
	}
	ib.logger.Debug("interface preprocess", zap.Int("records", len(recs)))
	return assembly.NewRedirections(recs...)
}

func (ib *InterfaceBC) emit(x []float64, em fvm.Emitter) {
	numDir := em.NumDir(2)
	for _, c := range ib.couplings() {
		var (
			row    = ib.row(c.own, c.q)
			cols   = []int{row, ib.row(c.master, c.q)}
			own    = ib.scalar(x, c.own, c.q, 0, numDir)
			master = ib.scalar(x, c.master, c.q, 1, numDir)
		)
		em.Set(row, cols, ib.law(own, master))
	}
}

func (ib *InterfaceBC) Function(x []float64, f *assembly.VectorSession) error {
	ib.emit(x, fvm.ResidualEmitter(f))
	return nil
}

func (ib *InterfaceBC) Jacobian(x []float64, j assembly.JacobianWriter) error {
	ib.emit(x, fvm.JacobianEmitter(j))
	return nil
}

func (ib *InterfaceBC) ACPreprocess() assembly.Redirections {
	return ib.Preprocess().ToAC(ib.d)
}

// FillAC writes the coupling on the real and the imaginary block, the law has
// no frequency dependence
func (ib *InterfaceBC) FillAC(x []float64, a *assembly.ACWriter, omega float64) error {
	ib.emit(x, fvm.JacobianEmitter(a))
	return nil
}
