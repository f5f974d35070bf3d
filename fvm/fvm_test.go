package fvm

import (
	"context"
	"math"
	"testing"

	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/material"
	"github.com/notargets/gosemi/parallel"
	"github.com/notargets/gosemi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func TestVariableLayout(t *testing.T) {
	{
		vl := NewVariableLayout(types.Semiconductor, AdvancedModel{Tl: true, Tn: true, Tp: true})
		assert.Equal(t, 6, vl.NumVars())
		for q := types.Quantity(0); q < types.NumQuantities; q++ {
			assert.Equal(t, int(q), vl.Offset(q))
		}
	}
	{ // Energy balance only exists in semiconductors
		vl := NewVariableLayout(types.Insulator, AdvancedModel{Tl: true, Tn: true})
		assert.Equal(t, []types.Quantity{types.Potential, types.Temperature}, vl.Quantities())
		assert.Equal(t, 1, vl.Offset(types.Temperature))
		assert.Panics(t, func() { vl.Offset(types.Electron) })
	}
	{
		vl := NewVariableLayout(types.Semiconductor, AdvancedModel{Tp: true})
		assert.Equal(t, 3, vl.Offset(types.HoleTemp))
		assert.False(t, vl.Has(types.Temperature))
		assert.False(t, vl.Has(types.NumQuantities))
	}
}

// twoRankDevice is laid out as
//
//	point 0 (rank 0): si n0, ox n1
//	point 1 (rank 1): si n2, ox n3 (rows on rank 0)
//	point 2 (rank 1): al n4, ox n5 (degenerate)
func twoRankDevice(t *testing.T) (b *Builder, nodes []int) {
	b = NewBuilder(nil)
	for _, cfg := range []RegionConfig{
		{Name: "si", Type: types.Semiconductor},
		{Name: "ox", Type: types.Insulator},
		{Name: "al", Type: types.Metal},
	} {
		_, err := b.AddRegion(NewRegion(cfg))
		require.NoError(t, err)
	}
	b.AddPoint(0, 0)
	b.AddPoint(1, 1)
	b.AddPoint(2, 1)
	add := func(point int, region string, opts ...NodeOption) {
		ni, err := b.AddNode(point, region, 1, NodeData{Psi: float64(len(nodes))}, opts...)
		require.NoError(t, err)
		nodes = append(nodes, ni)
	}
	add(0, "si")
	add(0, "ox")
	add(1, "si")
	add(1, "ox", WithOwner(0))
	add(2, "al")
	add(2, "ox", Degenerate())
	require.NoError(t, b.Connect(nodes[0], nodes[2], 1, 1))
	require.NoError(t, b.Connect(nodes[1], nodes[3], 1, 1))
	return
}

func TestDirectory(t *testing.T) {
	b, nodes := twoRankDevice(t)
	dirs, err := b.Build(2)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	d0, d1 := dirs[0], dirs[1]
	{ // Rank major global numbering
		assert.Equal(t, []int{5, 4}, d0.RowCounts())
		assert.Equal(t, 9, d0.GlobalSize())
		bases := []int{0, 3, 5, 4, 8}
		for i, base := range bases {
			assert.Equal(t, base, d0.GlobalBase(d0.Node(nodes[i])))
			assert.Equal(t, base, d1.GlobalBase(d1.Node(nodes[i])))
		}
		assert.Panics(t, func() { d1.GlobalBase(d1.Node(nodes[5])) })
		assert.Equal(t, 6, d0.GlobalOffset(d0.Node(nodes[2]), types.Electron))
		assert.Panics(t, func() { d0.GlobalOffset(d0.Node(nodes[1]), types.Electron) })
		pm := d1.Partition()
		bn, _, _ := pm.GetBucket(4)
		assert.Equal(t, 0, bn)
		bn, _, _ = pm.GetBucket(5)
		assert.Equal(t, 1, bn)
	}
	{ // Hosting, owned rows first
		assert.Equal(t, 8, d0.LocalSize())
		assert.Equal(t, 9, d1.LocalSize())
		assert.False(t, d0.IsValid(d0.Node(nodes[4])))
		assert.True(t, d1.IsValid(d1.Node(nodes[4])))
		assert.False(t, d1.IsValid(d1.Node(nodes[5])))
		assert.Equal(t, 5, d0.LocalOffset(d0.Node(nodes[2]), types.Potential))
		assert.Panics(t, func() { d0.LocalOffset(d0.Node(nodes[4]), types.Potential) })
		x := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8}
		assert.Equal(t, []float64{5, 6, 7, 8, 0, 1, 2, 3, 4}, d1.Gather(x))
		assert.Equal(t, []float64{0, 1, 2, 3, 4, 5, 6, 7}, d0.Gather(x))
		assert.Panics(t, func() { d0.Gather(x[:3]) })
	}
	{ // Point queries
		si, _ := d0.RegionIndex("si")
		ox, _ := d0.RegionIndex("ox")
		al, _ := d0.RegionIndex("al")
		rns := d1.RegionsAt(1)
		require.Len(t, rns, 2)
		assert.Equal(t, "si", rns[0].Region.Name())
		assert.Equal(t, nodes[3], rns[1].Node.Index)
		extra := d1.ExtraRegions(2, al)
		require.Len(t, extra, 1)
		assert.Equal(t, ox, extra[0].Index)
		assert.Nil(t, d1.NodeAt(2, si))
		assert.Equal(t, nodes[4], d1.NodeAt(2, al).Index)
		assert.True(t, d1.Owned(1, 1))
		assert.False(t, d0.Owned(1, 0))
		assert.False(t, d0.Owned(7, 0))
		assert.Len(t, d0.OwnedNodes(ox), 2)
		assert.Len(t, d1.OwnedNodes(ox), 0)
		_, err := d0.Region("poly")
		assert.ErrorIs(t, err, ErrUnknownRegion)
		_, isBand := rns[0].Region.(BandRegion)
		assert.True(t, isBand)
		_, isBand = rns[1].Region.(BandRegion)
		assert.False(t, isBand)
	}
	{ // Doubled AC layout
		re, im := d0.ACIndex(6)
		assert.Equal(t, [2]int{11, 14}, [2]int{re, im})
		re, im = d0.ACOffset(d0.Node(nodes[2]), types.Electron)
		assert.Equal(t, [2]int{11, 14}, [2]int{re, im})
		re, im = d0.ACIndex(4)
		assert.Equal(t, [2]int{8, 9}, [2]int{re, im})
		assert.Panics(t, func() { d0.ACIndex(9) })
		assert.Panics(t, func() { d0.ACIndex(-1) })
		// Every AC row is hit exactly once
		seen := make(map[int]bool)
		for dc := 0; dc < d0.GlobalSize(); dc++ {
			re, im := d0.ACIndex(dc)
			seen[re], seen[im] = true, true
		}
		assert.Len(t, seen, 18)
	}
}

func TestBuilderErrors(t *testing.T) {
	b := NewBuilder(nil)
	_, err := b.AddRegion(NewRegion(RegionConfig{Name: "si", Type: types.Semiconductor}))
	require.NoError(t, err)
	_, err = b.AddRegion(NewRegion(RegionConfig{Name: "ox", Type: types.Insulator}))
	require.NoError(t, err)
	_, err = b.AddRegion(NewRegion(RegionConfig{Name: "si", Type: types.Metal}))
	assert.ErrorIs(t, err, ErrBadTopology)
	b.AddPoint(0, 0)
	_, err = b.AddNode(0, "poly", 1, NodeData{})
	assert.ErrorIs(t, err, ErrUnknownRegion)
	_, err = b.AddNode(3, "si", 1, NodeData{})
	assert.ErrorIs(t, err, ErrBadTopology)
	n0, err := b.AddNode(0, "si", 1, NodeData{})
	require.NoError(t, err)
	_, err = b.AddNode(0, "si", 1, NodeData{})
	assert.ErrorIs(t, err, ErrBadTopology)
	n1, err := b.AddNode(0, "ox", 1, NodeData{})
	require.NoError(t, err)
	assert.ErrorIs(t, b.Connect(n0, n1, 1, 1), ErrBadTopology)
	assert.ErrorIs(t, b.Connect(n0, 9, 1, 1), ErrBadTopology)
	b.AddPoint(2, 0)
	n2, err := b.AddNode(2, "si", 1, NodeData{})
	require.NoError(t, err)
	require.NoError(t, b.Connect(n0, n2, 1, 1))
	// A link is undirected, either order is a duplicate
	assert.ErrorIs(t, b.Connect(n2, n0, 2, 1), ErrBadTopology)
	assert.ErrorIs(t, b.Connect(n0, n2, 1, 1), ErrBadTopology)
	b.AddPoint(1, 3)
	_, err = b.Build(2)
	assert.ErrorIs(t, err, ErrBadTopology)
	_, err = b.Build(0)
	assert.ErrorIs(t, err, ErrBadTopology)
}

func TestDirectoryOwnsNodeData(t *testing.T) {
	b, nodes := twoRankDevice(t)
	dirs, err := b.Build(2)
	require.NoError(t, err)
	d0, d1 := dirs[0], dirs[1]
	assert.NotSame(t, d0.Node(nodes[2]).Data, d1.Node(nodes[2]).Data)
	// Growing the builder after Build leaves the directories untouched
	for i := 0; i < 64; i++ {
		b.AddPoint(10+i, 0)
		_, err = b.AddNode(10+i, "si", 1, NodeData{Psi: -1})
		require.NoError(t, err)
	}
	for i, ni := range nodes {
		assert.Equal(t, float64(i), d0.Node(ni).Data.Psi)
		assert.Equal(t, float64(i), d1.Node(ni).Data.Psi)
	}
	d0.Node(nodes[0]).Data.Psi = 42
	assert.Equal(t, 0., d1.Node(nodes[0]).Data.Psi)
}

// lineDevice is a three node semiconductor with lattice heating and electron
// energy balance next to a two node metal
func lineDevice(t *testing.T) *Directory {
	b := NewBuilder(nil)
	_, err := b.AddRegion(NewRegion(RegionConfig{Name: "si", Type: types.Semiconductor,
		Model: AdvancedModel{Tl: true, Tn: true}}))
	require.NoError(t, err)
	_, err = b.AddRegion(NewRegion(RegionConfig{Name: "al", Type: types.Metal, Sigma: 1.e3}))
	require.NoError(t, err)
	var (
		V  = []float64{0.1, 0.3, 0.45}
		n  = []float64{1.e21, 5.e20, 2.e20}
		p  = []float64{1.e18, 3.e18, 2.e19}
		T  = []float64{300, 305, 310}
		Tn = []float64{300, 320, 340}
		si []int
	)
	for i := range V {
		b.AddPoint(i, 0)
		ni, err := b.AddNode(i, "si", 1.e-18, NodeData{Psi: V[i], N: n[i], P: p[i], T: T[i], Tn: Tn[i],
			Eps: 11.7 * material.Eps0, Doping: 1.e21})
		require.NoError(t, err)
		si = append(si, ni)
	}
	require.NoError(t, b.Connect(si[0], si[1], 1.e-6, 1.e-12))
	require.NoError(t, b.Connect(si[1], si[2], 1.e-6, 1.e-12))
	b.AddPoint(10, 0)
	b.AddPoint(11, 0)
	m0, err := b.AddNode(10, "al", 1.e-18, NodeData{Psi: 0.2})
	require.NoError(t, err)
	m1, err := b.AddNode(11, "al", 1.e-18, NodeData{Psi: 0.7})
	require.NoError(t, err)
	require.NoError(t, b.Connect(m0, m1, 2.e-6, 1.e-12))
	dirs, err := b.Build(1)
	require.NoError(t, err)
	return dirs[0]
}

func bulkResidual(t *testing.T, d *Directory, x []float64) (f []float64) {
	v := assembly.NewVector("f", d.Partition())
	require.NoError(t, parallel.NewWorld(1, nil).Run(context.Background(),
		func(ctx context.Context, r parallel.Rank) error {
			s := v.Session(r)
			for _, reg := range d.Regions() {
				if err := reg.(BulkRegion).BulkFunction(d, d.Gather(x), s); err != nil {
					return err
				}
			}
			return s.Assemble(ctx)
		}))
	return v.Dense().RawVector().Data
}

func bulkJacobian(t *testing.T, d *Directory, x []float64) (m *assembly.Matrix) {
	m = assembly.NewMatrix("J", d.Partition())
	require.NoError(t, parallel.NewWorld(1, nil).Run(context.Background(),
		func(ctx context.Context, r parallel.Rank) error {
			s := m.Session(r)
			for _, reg := range d.Regions() {
				if err := reg.(BulkRegion).BulkJacobian(d, d.Gather(x), s); err != nil {
					return err
				}
			}
			return s.Assemble(ctx)
		}))
	return
}

func TestBulkJacobianMatchesResidual(t *testing.T) {
	var (
		d     = lineDevice(t)
		x0    = d.InitialSolution()
		N     = len(x0)
		scale = make([]float64, N)
	)
	require.Equal(t, 3*5+2, N)
	for i, v := range x0 {
		scale[i] = math.Max(math.Abs(v), 1)
	}
	// Differentiate in scaled variables so one step size fits every unknown
	fdJ := mat.NewDense(N, N, nil)
	fd.Jacobian(fdJ, func(y, xi []float64) {
		x := make([]float64, N)
		for i := range x {
			x[i] = x0[i] + xi[i]*scale[i]
		}
		copy(y, bulkResidual(t, d, x))
	}, make([]float64, N), &fd.JacobianSettings{Formula: fd.Central, Step: 1.e-6})

	J := bulkJacobian(t, d, x0).Dense()
	for i := 0; i < N; i++ {
		var rowScale float64
		for j := 0; j < N; j++ {
			rowScale = math.Max(rowScale, math.Abs(J.At(i, j)*scale[j]))
		}
		for j := 0; j < N; j++ {
			assert.InDeltaf(t, fdJ.At(i, j), J.At(i, j)*scale[j], 1.e-5*rowScale+1.e-300,
				"J[%d][%d]", i, j)
		}
	}
	// Metal conduction couples only the two metal nodes
	assert.InDelta(t, 1.e3*1.e-12/2.e-6, J.At(15, 16), 1.e-12)
	assert.InDelta(t, -1.e3*1.e-12/2.e-6, J.At(15, 15), 1.e-12)
}

func TestBulkAC(t *testing.T) {
	var (
		d   = lineDevice(t)
		x0  = d.InitialSolution()
		dcJ = bulkJacobian(t, d, x0)
	)
	fill := func(omega float64) (m *assembly.Matrix) {
		m = assembly.NewMatrix("A", d.Partition().Scale(2))
		require.NoError(t, parallel.NewWorld(1, nil).Run(context.Background(),
			func(ctx context.Context, r parallel.Rank) error {
				a := assembly.NewACWriter(m.Session(r), d)
				for _, reg := range d.Regions() {
					if err := reg.(BulkRegion).BulkAC(d, d.Gather(x0), a, omega); err != nil {
						return err
					}
				}
				return a.Session().Assemble(ctx)
			}))
		return
	}
	{ // Zero frequency copies the DC Jacobian into both blocks
		A := fill(0)
		for i := 0; i < dcJ.Size(); i++ {
			for _, e := range dcJ.Row(i) {
				rre, rim := d.ACIndex(i)
				cre, cim := d.ACIndex(e.Col)
				assert.Equal(t, e.Value, A.At(rre, cre))
				assert.Equal(t, e.Value, A.At(rim, cim))
				assert.Equal(t, 0., A.At(rre, cim))
				assert.Equal(t, 0., A.At(rim, cre))
			}
		}
		assert.Equal(t, 2*dcJ.NNZ(), A.NNZ())
	}
	{ // Carrier storage
		omega := 1.e6
		A := fill(omega)
		si, _ := d.RegionIndex("si")
		n := d.OwnedNodes(si)[1]
		re, im := d.ACOffset(n, types.Electron)
		want := omega * material.Q * n.Volume
		assert.InDelta(t, want, A.At(re, im), want*1.e-12)
		assert.InDelta(t, -want, A.At(im, re), want*1.e-12)
		assert.Equal(t, A.At(re, re), A.At(im, im))
	}
}
