package bc

import (
	"fmt"

	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/autodiff"
	"github.com/notargets/gosemi/fvm"
	"github.com/notargets/gosemi/material"
	"github.com/notargets/gosemi/types"
	"go.uber.org/zap"
)

/*
SchottkyBC is a rectifying contact between a semiconductor region, the first
region of the spec, and a metal region, the second. At every point:

  - the semiconductor potential row holds V - Vm - dVB
  - thermionic currents Fn and -Fp are added to the carrier rows, Fn + Fp to
    the metal potential row
  - the semiconductor lattice temperature equals the metal's
  - energy balance rows hold n(Tn - T) and p(Tp - T)
  - any other region at the point is tied to the metal node
*/
type SchottkyBC struct {
	base
	semi, metal int
	band        material.Band
	text        float64 // temperature used where a region has no lattice heating
}

func NewSchottkyBC(spec Spec, d *fvm.Directory, logger *zap.Logger) (bc BoundaryCondition, err error) {
	var b base
	if b, err = newBase(spec, d, logger); err != nil {
		return
	}
	if len(b.regions) != 2 {
		err = fmt.Errorf("%s: need a semiconductor and a metal region, have %v: %w",
			spec.Name, spec.Regions, ErrBadRegions)
		return
	}
	var (
		regions = d.Regions()
		semi    = regions[b.regions[0]]
		metal   = regions[b.regions[1]]
	)
	br, ok := semi.(fvm.BandRegion)
	if !ok || semi.Type() != types.Semiconductor || metal.Type() != types.Metal {
		err = fmt.Errorf("%s: regions %q (%s) and %q (%s): %w", spec.Name,
			semi.Name(), semi.Type(), metal.Name(), metal.Type(), ErrBadRegions)
		return
	}
	bc = &SchottkyBC{
		base:  b,
		semi:  b.regions[0],
		metal: b.regions[1],
		band:  br.Band(),
		text:  spec.Param("T_external", semi.TExternal()),
	}
	return
}

// contact is the node pair at one point plus the extra nodes tied to the metal
type contact struct {
	s, m  *fvm.Node
	extra []fvm.RegionNode
}

func (sb *SchottkyBC) contacts() (cs []contact) {
	for _, pt := range sb.ownedPoints() {
		var (
			s = sb.d.NodeAt(pt, sb.semi)
			m = sb.d.NodeAt(pt, sb.metal)
		)
		if !sb.d.IsValid(s) || !sb.d.IsValid(m) {
			continue
		}
		c := contact{s: s, m: m}
		for _, rn := range sb.d.ExtraRegions(pt, sb.semi, sb.metal) {
			if sb.d.IsValid(rn.Node) {
				c.extra = append(c.extra, rn)
			}
		}
		cs = append(cs, c)
	}
	return
}

func (sb *SchottkyBC) region(n *fvm.Node) fvm.Region { return sb.d.RegionOf(n) }

func (sb *SchottkyBC) Preprocess() assembly.Redirections {
	var (
		recs      []assembly.Redirect
		metalHasT = hasT(sb.d.Regions()[sb.metal])
	)
	clearOnly := func(row int) {
		recs = append(recs, assembly.Redirect{Src: row, Dst: assembly.NoRow})
	}
	move := func(src, dst int) {
		recs = append(recs, assembly.Redirect{Src: src, Dst: dst, Clear: true})
	}
	tieT := func(n, m *fvm.Node) {
		switch {
		case !hasT(sb.region(n)):
		case metalHasT:
			move(sb.row(n, types.Temperature), sb.row(m, types.Temperature))
		default:
			clearOnly(sb.row(n, types.Temperature))
		}
	}
	for _, c := range sb.contacts() {
		vl := sb.region(c.s).Layout()
		clearOnly(sb.row(c.s, types.Potential))
		tieT(c.s, c.m)
		for _, q := range []types.Quantity{types.ElectronTemp, types.HoleTemp} {
			if vl.Has(q) {
				clearOnly(sb.row(c.s, q))
			}
		}
		for _, rn := range c.extra {
			move(sb.row(rn.Node, types.Potential), sb.row(c.m, types.Potential))
			tieT(rn.Node, c.m)
		}
	}
	sb.logger.Debug("schottky preprocess", zap.Int("records", len(recs)))
	return assembly.NewRedirections(recs...)
}

func (sb *SchottkyBC) ACPreprocess() assembly.Redirections {
	return sb.Preprocess().ToAC(sb.d)
}

func (sb *SchottkyBC) Function(x []float64, f *assembly.VectorSession) error {
	sb.emit(x, fvm.ResidualEmitter(f))
	return nil
}

func (sb *SchottkyBC) Jacobian(x []float64, j assembly.JacobianWriter) error {
	sb.emit(x, fvm.JacobianEmitter(j))
	return nil
}

// FillAC writes the contact coupling on both blocks and the displacement
// current through the semiconductor surface into the metal potential row
func (sb *SchottkyBC) FillAC(x []float64, a *assembly.ACWriter, omega float64) error {
	sb.emit(x, fvm.JacobianEmitter(a))
	for _, c := range sb.contacts() {
		var (
			mPsi = sb.row(c.m, types.Potential)
			sPsi = sb.row(c.s, types.Potential)
		)
		for _, nb := range c.s.Neighbors {
			other := sb.d.Node(nb.Node)
			if !sb.d.IsValid(other) {
				continue
			}
			var (
				V   = sb.scalar(x, c.s, types.Potential, 0, 2)
				Vnb = sb.scalar(x, other, types.Potential, 1, 2)
				D   = V.Sub(Vnb).MulConst(c.s.Data.Eps / nb.Distance)
			)
			// d/dt replaced by j*omega
			a.AccumulateComplex(mPsi, sPsi, 0, -nb.Area*D.Derivative(0)*omega)
			a.AccumulateComplex(mPsi, sb.row(other, types.Potential), 0, -nb.Area*D.Derivative(1)*omega)
		}
	}
	return nil
}

func (sb *SchottkyBC) emit(x []float64, em fvm.Emitter) {
	for _, c := range sb.contacts() {
		sb.emitContact(x, c, em)
		for _, rn := range c.extra {
			sb.tieToMetal(x, rn.Node, c.m, types.Potential, em)
			if hasT(rn.Region) {
				sb.tieToMetal(x, rn.Node, c.m, types.Temperature, em)
			}
		}
	}
}

func (sb *SchottkyBC) emitContact(x []float64, c contact, em fvm.Emitter) {
	var (
		sr, mr = sb.region(c.s), sb.region(c.m)
		sl, ml = sr.Layout(), mr.Layout()
		nS     = sl.NumVars()
		numDir = em.NumDir(nS + ml.NumVars())
		cols   = append(sb.d.Columns(c.s), sb.d.Columns(c.m)...)
	)
	// semiconductor block first, then the metal block
	load := func(n *fvm.Node, q types.Quantity, dirBase int) autodiff.Scalar {
		return sb.d.Load(x, n, q, dirBase, numDir)
	}
	V, n, p := load(c.s, types.Potential, 0), load(c.s, types.Electron, 0), load(c.s, types.Hole, 0)
	T, Tn, Tp := autodiff.New(sb.text, numDir), autodiff.New(sb.text, numDir), autodiff.New(sb.text, numDir)
	if sl.Has(types.Temperature) {
		T = load(c.s, types.Temperature, 0)
	}
	if sl.Has(types.ElectronTemp) {
		Tn = load(c.s, types.ElectronTemp, 0).Div(n)
	}
	if sl.Has(types.HoleTemp) {
		Tp = load(c.s, types.HoleTemp, 0).Div(p)
	}
	Vm, Tm := load(c.m, types.Potential, nS), autodiff.New(sb.text, numDir)
	if ml.Has(types.Temperature) {
		Tm = load(c.m, types.Temperature, nS)
	}

	var (
		sd  = c.s.Data
		dVB = sb.band.SchottkyBarrierLowering(sd.Eps, sd.Field)
		S   = sd.OutsideArea
		dAf = c.m.Data.Affinity - sd.Affinity
		Fn  = sb.band.SchottkyJsn(n, T, dAf-dVB).MulConst(S)
		Fp  = sb.band.SchottkyJsp(p, T, dAf+dVB).MulConst(S)
	)
	em.Set(sb.row(c.s, types.Potential), cols, V.Sub(Vm).SubConst(dVB))
	em.Add(sb.row(c.s, types.Electron), cols, Fn)
	em.Add(sb.row(c.s, types.Hole), cols, Fp.Neg())
	if sl.Has(types.Temperature) {
		em.Set(sb.row(c.s, types.Temperature), cols, T.Sub(Tm))
	}
	if sl.Has(types.ElectronTemp) {
		em.Set(sb.row(c.s, types.ElectronTemp), cols, n.Mul(Tn.Sub(T)))
	}
	if sl.Has(types.HoleTemp) {
		em.Set(sb.row(c.s, types.HoleTemp), cols, p.Mul(Tp.Sub(T)))
	}
	em.Add(sb.row(c.m, types.Potential), cols, Fn.Add(Fp))
}

// tieToMetal writes q(n) - q(m) into the row of n, the metal side is a
// constant when the metal does not carry q
func (sb *SchottkyBC) tieToMetal(x []float64, n, m *fvm.Node, q types.Quantity, em fvm.Emitter) {
	row := sb.row(n, q)
	if !sb.region(m).Layout().Has(q) {
		numDir := em.NumDir(1)
		em.Set(row, []int{row}, sb.scalar(x, n, q, 0, numDir).SubConst(sb.text))
		return
	}
	numDir := em.NumDir(2)
	own := sb.scalar(x, n, q, 0, numDir)
	metal := sb.scalar(x, m, q, 1, numDir)
	em.Set(row, []int{row, sb.row(m, q)}, own.Sub(metal))
}
