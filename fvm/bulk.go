package fvm

import (
	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/autodiff"
	"github.com/notargets/gosemi/material"
	"github.com/notargets/gosemi/types"
)

func (r *SimulationRegion) BulkFunction(d *Directory, x []float64, f *assembly.VectorSession) error {
	return r.bulk(d, x, ResidualEmitter(f))
}

func (r *SimulationRegion) BulkJacobian(d *Directory, x []float64, j assembly.JacobianWriter) error {
	return r.bulk(d, x, JacobianEmitter(j))
}

// BulkAC writes the real coupling through the AC writer and adds the carrier
// storage terms, with d/dt replaced by j*omega
func (r *SimulationRegion) BulkAC(d *Directory, x []float64, a *assembly.ACWriter, omega float64) (err error) {
	if err = r.bulk(d, x, JacobianEmitter(a)); err != nil {
		return
	}
	if r.cfg.Type != types.Semiconductor {
		return
	}
	var ri int
	if ri, err = d.RegionIndex(r.cfg.Name); err != nil {
		return
	}
	for _, n := range d.OwnedNodes(ri) {
		for _, q := range []types.Quantity{types.Electron, types.Hole} {
			row := d.GlobalOffset(n, q)
			a.AccumulateComplex(row, row, 0, -omega*material.Q*n.Volume)
		}
	}
	return
}

// unknowns of one node as dual numbers, absent quantities are constants
type unknowns struct {
	V, n, p  autodiff.Scalar
	T        autodiff.Scalar
	nTn, pTp autodiff.Scalar
}

func (r *SimulationRegion) load(d *Directory, x []float64, n *Node, dirBase, numDir int) (u unknowns) {
	get := func(q types.Quantity) autodiff.Scalar {
		if !r.layout.Has(q) {
			return autodiff.New(0, numDir)
		}
		return d.Load(x, n, q, dirBase, numDir)
	}
	u.V, u.n, u.p = get(types.Potential), get(types.Electron), get(types.Hole)
	u.nTn, u.pTp = get(types.ElectronTemp), get(types.HoleTemp)
	u.T = autodiff.New(r.cfg.TExt, numDir)
	if r.layout.Has(types.Temperature) {
		u.T = get(types.Temperature)
	}
	return
}

func (r *SimulationRegion) bulk(d *Directory, x []float64, em Emitter) (err error) {
	var (
		ri int
		nv = r.layout.NumVars()
	)
	if ri, err = d.RegionIndex(r.cfg.Name); err != nil {
		return
	}
	for _, n := range d.OwnedNodes(ri) {
		cols := d.Columns(n)
		r.nodeTerms(d, n, r.load(d, x, n, 0, em.NumDir(nv)), cols, em)
		for _, nb := range n.Neighbors {
			other := d.Node(nb.Node)
			if !d.IsValid(other) {
				continue
			}
			var (
				numDir = em.NumDir(2 * nv)
				ui     = r.load(d, x, n, 0, numDir)
				uj     = r.load(d, x, other, nv, numDir)
			)
			r.edgeTerms(d, n, nb, ui, uj, append(append([]int{}, cols...), d.Columns(other)...), em)
		}
	}
	return
}

// nodeTerms are the volume integrals: space charge, recombination and energy
// relaxation
func (r *SimulationRegion) nodeTerms(d *Directory, n *Node, u unknowns, cols []int, em Emitter) {
	if r.cfg.Type != types.Semiconductor {
		return
	}
	var (
		vol = n.Volume
		nie = r.cfg.Band.Nie(u.p, u.n, u.T)
	)
	// SRH: (np - nie^2) / (tau(n + nie) + tau(p + nie))
	R := u.n.Mul(u.p).Sub(nie.Mul(nie)).Div(u.n.Add(nie).Add(u.p).Add(nie).MulConst(r.cfg.Tau))
	rho := u.p.Sub(u.n).AddConst(n.Data.Doping).MulConst(material.Q * vol)
	em.Add(d.GlobalOffset(n, types.Potential), cols, rho)
	em.Add(d.GlobalOffset(n, types.Electron), cols, R.MulConst(-material.Q*vol))
	em.Add(d.GlobalOffset(n, types.Hole), cols, R.MulConst(-material.Q*vol))
	if r.layout.Has(types.ElectronTemp) {
		f := u.nTn.Sub(u.n.Mul(u.T)).MulConst(-vol / r.cfg.TauE)
		em.Add(d.GlobalOffset(n, types.ElectronTemp), cols, f)
	}
	if r.layout.Has(types.HoleTemp) {
		f := u.pTp.Sub(u.p.Mul(u.T)).MulConst(-vol / r.cfg.TauE)
		em.Add(d.GlobalOffset(n, types.HoleTemp), cols, f)
	}
}

// edgeTerms are the fluxes from node n towards one neighbor
func (r *SimulationRegion) edgeTerms(d *Directory, n *Node, nb Neighbor, ui, uj unknowns,
	cols []int, em Emitter) {
	var (
		S = nb.Area
		h = nb.Distance
	)
	switch r.cfg.Type {
	case types.Metal:
		em.Add(d.GlobalOffset(n, types.Potential), cols, uj.V.Sub(ui.V).MulConst(r.cfg.Sigma*S/h))
	default:
		em.Add(d.GlobalOffset(n, types.Potential), cols, uj.V.Sub(ui.V).MulConst(n.Data.Eps*S/h))
	}
	if r.layout.Has(types.Temperature) {
		em.Add(d.GlobalOffset(n, types.Temperature), cols, uj.T.Sub(ui.T).MulConst(r.cfg.Kappa*S/h))
	}
	if r.cfg.Type != types.Semiconductor {
		return
	}
	// Scharfetter-Gummel fluxes
	var (
		Vt  = material.ThermalVoltage(ui.T.Add(uj.T).MulConst(0.5))
		dV  = uj.V.Sub(ui.V).Div(Vt)
		Bp  = material.Bernoulli(dV)
		Bm  = material.Bernoulli(dV.Neg())
		pre = Vt.MulConst(material.Q * S / h)
		Jn  = uj.n.Mul(Bp).Sub(ui.n.Mul(Bm)).Mul(pre).MulConst(r.cfg.Mun)
		Jp  = ui.p.Mul(Bp).Sub(uj.p.Mul(Bm)).Mul(pre).MulConst(r.cfg.Mup)
	)
	em.Add(d.GlobalOffset(n, types.Electron), cols, Jn)
	em.Add(d.GlobalOffset(n, types.Hole), cols, Jp.Neg())
}
