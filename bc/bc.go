package bc

import (
	"errors"
	"fmt"
	"slices"

	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/autodiff"
	"github.com/notargets/gosemi/fvm"
	"github.com/notargets/gosemi/types"
	"go.uber.org/zap"
)

var (
	ErrPhaseOrder  = errors.New("boundary condition phase out of order")
	ErrUnknownType = errors.New("unknown boundary condition type")
	ErrBadRegions  = errors.New("boundary condition regions do not fit its type")
)

/*
BoundaryCondition couples the regions meeting at a set of points. One instance
serves one rank and only visits the points that rank owns. For a DC evaluation
the driver calls Preprocess, moves and clears the returned rows in both the
residual and the Jacobian, then calls Function and Jacobian. The AC path calls
ACPreprocess, moves and clears rows of the AC matrix, then FillAC.
*/
type BoundaryCondition interface {
	Name() string
	Type() types.BCType
	Preprocess() assembly.Redirections
	Function(x []float64, f *assembly.VectorSession) error
	Jacobian(x []float64, j assembly.JacobianWriter) error
	ACPreprocess() assembly.Redirections
	FillAC(x []float64, a *assembly.ACWriter, omega float64) error
}

// Spec describes a boundary condition independently of any rank
type Spec struct {
	Name    string
	Type    types.BCType
	Points  []int
	Regions []string // ordered, the first region is the master where one applies
	Params  map[string]float64
}

func (s Spec) Param(name string, def float64) float64 {
	if v, ok := s.Params[name]; ok {
		return v
	}
	return def
}

type Factory func(spec Spec, d *fvm.Directory, logger *zap.Logger) (BoundaryCondition, error)

var registry = map[types.BCType]Factory{
	types.BCInsulatorInterface: NewInterfaceBC,
	types.BCSchottkyContact:    NewSchottkyBC,
}

// Register installs or replaces the factory of a boundary condition type
func Register(bt types.BCType, f Factory) { registry[bt] = f }

// New builds the instance of spec serving the rank of d
func New(spec Spec, d *fvm.Directory, logger *zap.Logger) (bc BoundaryCondition, err error) {
	var (
		f, ok = registry[spec.Type]
	)
	if !ok {
		err = fmt.Errorf("%s: %w %s", spec.Name, ErrUnknownType, spec.Type)
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return f(spec, d, logger)
}

// base holds what every condition needs to walk its points
type base struct {
	spec    Spec
	d       *fvm.Directory
	regions []int // restricts the regions visited at a point, nil for all
	logger  *zap.Logger
}

func newBase(spec Spec, d *fvm.Directory, logger *zap.Logger) (b base, err error) {
	b = base{spec: spec, d: d, logger: logger.With(zap.String("bc", spec.Name), zap.Int("rank", d.Rank))}
	for _, name := range spec.Regions {
		var ri int
		if ri, err = d.RegionIndex(name); err != nil {
			err = fmt.Errorf("%s: %w", spec.Name, err)
			return
		}
		b.regions = append(b.regions, ri)
	}
	b.spec.Points = append([]int(nil), spec.Points...)
	slices.Sort(b.spec.Points)
	b.spec.Points = slices.Compact(b.spec.Points)
	return
}

func (b *base) Name() string       { return b.spec.Name }
func (b *base) Type() types.BCType { return b.spec.Type }

// ownedPoints lists the points of the condition this rank owns
func (b *base) ownedPoints() (points []int) {
	for _, pt := range b.spec.Points {
		if b.d.Owned(pt, b.d.Rank) {
			points = append(points, pt)
		}
	}
	return
}

// regionNodes lists the nodes at a point in master first order, limited to
// the regions of the condition when it names any
func (b *base) regionNodes(point int) (rns []fvm.RegionNode) {
	all := b.d.RegionsAt(point)
	if len(b.regions) == 0 {
		return all
	}
	for _, rn := range all {
		for _, ri := range b.regions {
			if rn.Index == ri {
				rns = append(rns, rn)
				break
			}
		}
	}
	return
}

// scalar loads q of node n seeded along direction dir
func (b *base) scalar(x []float64, n *fvm.Node, q types.Quantity, dir, numDir int) autodiff.Scalar {
	v := x[b.d.LocalOffset(n, q)]
	if numDir == 0 {
		return autodiff.New(v, 0)
	}
	return autodiff.Var(v, dir, numDir)
}

func (b *base) row(n *fvm.Node, q types.Quantity) int { return b.d.GlobalOffset(n, q) }

func hasT(r fvm.Region) bool { return r.Layout().Has(types.Temperature) }
