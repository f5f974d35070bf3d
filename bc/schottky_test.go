package bc

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/autodiff"
	"github.com/notargets/gosemi/fvm"
	"github.com/notargets/gosemi/material"
	"github.com/notargets/gosemi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

var schottkySpec = Spec{
	Name:    "anode",
	Type:    types.BCSchottkyContact,
	Points:  []int{0},
	Regions: []string{"si", "al"},
	Params:  map[string]float64{"T_external": 350},
}

const (
	contactArea = 1.e-12
	contactDist = 1.e-6
)

var siEps = 11.7 * material.Eps0

// contactDevice has a semiconductor with lattice heating and electron energy
// balance, a metal and an oxide meeting at point 0, plus one semiconductor
// node at point 1. With metal heating the global rows are
//
//	si@0 [psi 0, n 1, p 2, T 3, nTn 4], al@0 [psi 5, T 6], ox@0 [psi 7, T 8]
//	si@1 [9, 14)
func contactDevice(t *testing.T, metalT bool) *fvm.Directory {
	b := fvm.NewBuilder(nil)
	for _, cfg := range []fvm.RegionConfig{
		{Name: "si", Type: types.Semiconductor, Model: fvm.AdvancedModel{Tl: true, Tn: true}},
		{Name: "al", Type: types.Metal, Model: fvm.AdvancedModel{Tl: metalT}},
		{Name: "ox", Type: types.Insulator, Model: fvm.AdvancedModel{Tl: true}},
	} {
		_, err := b.AddRegion(fvm.NewRegion(cfg))
		require.NoError(t, err)
	}
	b.AddPoint(0, 0)
	b.AddPoint(1, 0)
	s0, err := b.AddNode(0, "si", 1.e-18, fvm.NodeData{Psi: 0.3, N: 1.e22, P: 1.e10, T: 300, Tn: 310,
		Eps: siEps, Affinity: 4.05, OutsideArea: contactArea, Field: 1.e6})
	require.NoError(t, err)
	_, err = b.AddNode(0, "al", 1.e-18, fvm.NodeData{Psi: 0.1, T: 301, Affinity: 4.7})
	require.NoError(t, err)
	_, err = b.AddNode(0, "ox", 1.e-18, fvm.NodeData{Psi: 0.15, T: 302, Eps: 3.9 * material.Eps0})
	require.NoError(t, err)
	s1, err := b.AddNode(1, "si", 1.e-18, fvm.NodeData{Psi: 0.35, N: 2.e22, P: 1.e10, T: 300, Tn: 300,
		Eps: siEps, Affinity: 4.05})
	require.NoError(t, err)
	require.NoError(t, b.Connect(s0, s1, contactDist, contactArea))
	dirs, err := b.Build(1)
	require.NoError(t, err)
	return dirs[0]
}

func TestSchottkyPreprocess(t *testing.T) {
	{
		d := contactDevice(t, true)
		bc, err := New(schottkySpec, d, nil)
		require.NoError(t, err)
		want := []assembly.Redirect{
			{Src: 0, Dst: assembly.NoRow},
			{Src: 3, Dst: 6, Clear: true},
			{Src: 4, Dst: assembly.NoRow},
			{Src: 7, Dst: 5, Clear: true},
			{Src: 8, Dst: 6, Clear: true},
		}
		if diff := cmp.Diff(want, bc.Preprocess().Records()); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
		// Every DC record becomes a real and an imaginary record
		assert.Equal(t, 2*len(want), bc.ACPreprocess().Len())
	}
	{ // Without metal heating the temperature rows are only cleared
		d := contactDevice(t, false)
		bc, err := New(schottkySpec, d, nil)
		require.NoError(t, err)
		want := []assembly.Redirect{
			{Src: 0, Dst: assembly.NoRow},
			{Src: 3, Dst: assembly.NoRow},
			{Src: 4, Dst: assembly.NoRow},
			{Src: 6, Dst: 5, Clear: true},
			{Src: 7, Dst: assembly.NoRow},
		}
		assert.Equal(t, want, bc.Preprocess().Records())

		f, J := evalDC(t, []*fvm.Directory{d}, []Spec{schottkySpec}, d.InitialSolution(), nil)
		assert.InDelta(t, -50., f.At(3), 1.e-12)
		assert.InDelta(t, -48., f.At(7), 1.e-12)
		assert.Equal(t, entries(7, 7, 1), J.Row(7))
	}
}

func TestSchottkyResidual(t *testing.T) {
	var (
		d    = contactDevice(t, true)
		f, _ = evalDC(t, []*fvm.Directory{d}, []Spec{schottkySpec}, d.InitialSolution(), nil)
		si   = material.NewSilicon()
		dVB  = si.SchottkyBarrierLowering(siEps, 1.e6)
		T    = autodiff.New(300, 0)
		Fn   = si.SchottkyJsn(autodiff.New(1.e22, 0), T, 4.7-4.05-dVB).Value() * contactArea
		Fp   = si.SchottkyJsp(autodiff.New(1.e10, 0), T, 4.7-4.05+dVB).Value() * contactArea
	)
	assert.Greater(t, dVB, 0.)
	assert.InDelta(t, 0.3-0.1-dVB, f.At(0), 1.e-14)
	assert.InDelta(t, Fn, f.At(1), math.Abs(Fn)*1.e-12)
	assert.InDelta(t, -Fp, f.At(2), math.Abs(Fp)*1.e-12)
	assert.InDelta(t, -1., f.At(3), 1.e-12)
	assert.InDelta(t, 1.e23, f.At(4), 1.e23*1.e-12)
	// The metal collects the total contact current
	assert.InDelta(t, f.At(1)-f.At(2), f.At(5), math.Abs(Fn+Fp)*1.e-12)
	assert.Equal(t, 0., f.At(6))
	assert.InDelta(t, 0.05, f.At(7), 1.e-15)
	assert.InDelta(t, 1., f.At(8), 1.e-12)
	for row := 9; row < 14; row++ {
		assert.Equal(t, 0., f.At(row))
	}
}

func TestSchottkyJacobianMatchesResidual(t *testing.T) {
	var (
		d     = contactDevice(t, true)
		dirs  = []*fvm.Directory{d}
		specs = []Spec{schottkySpec}
		x0    = d.InitialSolution()
		N     = len(x0)
		scale = make([]float64, N)
	)
	require.Equal(t, 14, N)
	for i, v := range x0 {
		scale[i] = math.Max(math.Abs(v), 1)
	}
	fdJ := mat.NewDense(N, N, nil)
	fd.Jacobian(fdJ, func(y, xi []float64) {
		x := make([]float64, N)
		for i := range x {
			x[i] = x0[i] + xi[i]*scale[i]
		}
		f, _ := evalDC(t, dirs, specs, x, nil)
		copy(y, f.Dense().RawVector().Data)
	}, make([]float64, N), &fd.JacobianSettings{Formula: fd.Central, Step: 1.e-6})

	_, Jm := evalDC(t, dirs, specs, x0, nil)
	J := Jm.Dense()
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
	// Constraint rows
	assert.Equal(t, entries(0, 0, 1, 5, -1), Jm.Row(0))
	assert.Equal(t, entries(3, 3, 1, 6, -1), Jm.Row(3))
	assert.Equal(t, entries(7, 5, -1, 7, 1), Jm.Row(7))
	assert.Equal(t, entries(8, 6, -1, 8, 1), Jm.Row(8))
}

func TestSchottkyAC(t *testing.T) {
	var (
		d     = contactDevice(t, true)
		dirs  = []*fvm.Directory{d}
		specs = []Spec{schottkySpec}
		x     = d.InitialSolution()
		_, J  = evalDC(t, dirs, specs, x, nil)
	)
	diagonalBlocks := func(A *assembly.Matrix) {
		for row := 0; row < d.GlobalSize(); row++ {
			reRow, imRow := d.ACIndex(row)
			for _, e := range J.Row(row) {
				reCol, imCol := d.ACIndex(e.Col)
				assert.Equal(t, e.Value, A.At(reRow, reCol))
				assert.Equal(t, e.Value, A.At(imRow, imCol))
			}
		}
	}
	{ // Zero frequency has no coupling between the blocks
		A := evalAC(t, dirs, specs, x, 0)
		diagonalBlocks(A)
		assert.Equal(t, 2*J.NNZ(), A.NNZ())
	}
	{ // Displacement current into the metal potential row
		var (
			omega      = 1.e9
			A          = evalAC(t, dirs, specs, x, omega)
			g          = contactArea * siEps / contactDist * omega
			mRe, mIm   = d.ACIndex(5)
			sRe, sIm   = d.ACIndex(0)
			nbRe, nbIm = d.ACIndex(9)
		)
		require.Equal(t, []int{10, 12, 0, 5, 18, 23}, []int{mRe, mIm, sRe, sIm, nbRe, nbIm})
		diagonalBlocks(A)
		assert.Equal(t, 2*J.NNZ()+4, A.NNZ())
		assert.InDelta(t, g, A.At(mRe, sIm), g*1.e-12)
		assert.InDelta(t, -g, A.At(mRe, nbIm), g*1.e-12)
		// The imaginary block mirrors the real one with the opposite sign
		assert.Equal(t, -A.At(mRe, sIm), A.At(mIm, sRe))
		assert.Equal(t, -A.At(mRe, nbIm), A.At(mIm, nbRe))
	}
}

func TestSchottkyRegions(t *testing.T) {
	d := contactDevice(t, true)
	for _, regions := range [][]string{{"si"}, {"al", "si"}, {"si", "ox"}, {"si", "al", "ox"}} {
		spec := schottkySpec
		spec.Regions = regions
		_, err := New(spec, d, nil)
		assert.ErrorIsf(t, err, ErrBadRegions, "%v", regions)
	}
	spec := schottkySpec
	spec.Params = nil
	bc, err := New(spec, d, nil)
	require.NoError(t, err)
	// Defaults to the semiconductor's external temperature
	assert.Equal(t, 300., bc.(*SchottkyBC).text)
}
