package InputParameters

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/notargets/gosemi/fvm"
	"github.com/notargets/gosemi/solver"
	"github.com/notargets/gosemi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExample(t *testing.T) {
	var dk DeviceDeck
	require.NoError(t, dk.Parse([]byte(ExampleDeck)))
	assert.Equal(t, "Schottky diode with field oxide", dk.Title)
	assert.Equal(t, 2, dk.Ranks)
	assert.Equal(t, 1.e6, dk.Frequency)
	assert.InDelta(t, 2*3.141592653589793*1.e6, dk.Omega(), 1.e-6)
	require.Len(t, dk.Regions, 3)
	assert.True(t, dk.Regions[0].LatticeHeating)
	assert.False(t, dk.Regions[2].LatticeHeating)
	require.Len(t, dk.Nodes, 6)
	assert.Nil(t, dk.Nodes[0].Owner)
	assert.Equal(t, [2]int{4, 5}, dk.Links[2].Nodes)
	assert.Equal(t, []string{"si", "al"}, dk.BCs[0].Regions)

	var buf bytes.Buffer
	dk.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "BCs[anode] = schottky at [0] on [si al]")
	assert.Contains(t, out, "Region[ox] = insulator")
}

func TestBuild(t *testing.T) {
	var dk DeviceDeck
	require.NoError(t, dk.Parse([]byte(ExampleDeck)))
	dirs, specs, err := dk.Build(nil)
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	require.Len(t, specs, 2)
	assert.Equal(t, types.BCSchottkyContact, specs[0].Type)
	assert.Equal(t, types.BCInsulatorInterface, specs[1].Type)
	{ // si and al carry lattice heating, si nodes live on the point owners
		d := dirs[0]
		si, err := d.RegionIndex("si")
		require.NoError(t, err)
		al, err := d.RegionIndex("al")
		require.NoError(t, err)
		assert.Equal(t, 4, d.Regions()[si].Layout().NumVars())
		assert.Equal(t, 2, d.Regions()[al].Layout().NumVars())
		assert.Equal(t, []int{4 + 4 + 2, 4 + 1 + 1}, d.RowCounts())
		n := d.NodeAt(0, si)
		assert.Equal(t, 300., n.Data.T)
		assert.InDelta(t, 11.7*8.8541878128e-12, n.Data.Eps, 1.e-20)
	}
	{ // The deck evaluates end to end
		ev, err := solver.NewEvaluator(dirs, specs, nil)
		require.NoError(t, err)
		x := dirs[0].InitialSolution()
		dc, err := ev.DC(context.Background(), x)
		require.NoError(t, err)
		d := dirs[1]
		si, _ := d.RegionIndex("si")
		ox, _ := d.RegionIndex("ox")
		row := d.GlobalOffset(d.NodeAt(2, ox), types.Potential)
		assert.InDelta(t, 0.42-0.4, dc.F.At(row), 1.e-15)
		assert.Equal(t, -1., dc.J.At(row, d.GlobalOffset(d.NodeAt(2, si), types.Potential)))
		ac, err := ev.AC(context.Background(), x, dk.Omega())
		require.NoError(t, err)
		assert.Equal(t, 2*dc.J.Size(), ac.A.Size())
	}
}

func TestDeckErrors(t *testing.T) {
	build := func(mod func(string) string) error {
		var dk DeviceDeck
		if err := dk.Parse([]byte(mod(ExampleDeck))); err != nil {
			return err
		}
		_, _, err := dk.Build(nil)
		return err
	}
	cases := map[string]func(string) string{
		"yaml": func(s string) string { return s + "\nRanks: [\n" },
		"ranks": func(s string) string {
			return strings.Replace(s, "Ranks: 2", "Ranks: -1", 1)
		},
		"region type": func(s string) string {
			return strings.Replace(s, "Type: insulator", "Type: plasma", 1)
		},
		"bc type": func(s string) string {
			return strings.Replace(s, "Type: schottky", "Type: ohmic", 1)
		},
		"link": func(s string) string {
			return strings.Replace(s, "Nodes: [4, 5]", "Nodes: [4, 9]", 1)
		},
		"node region": func(s string) string {
			return strings.Replace(s, "Region: ox, Volume: 1.e-18, Psi: 0.5", "Region: poly, Volume: 1.e-18, Psi: 0.5", 1)
		},
		"owner": func(s string) string {
			return strings.Replace(s, "{ID: 3, Owner: 1}", "{ID: 3, Owner: 2}", 1)
		},
	}
	for name, mod := range cases {
		err := build(mod)
		assert.ErrorIsf(t, err, ErrBadDeck, "case %s", name)
	}
	err := build(func(s string) string {
		return strings.Replace(s, "Region: ox, Volume: 1.e-18, Psi: 0.5", "Region: poly, Volume: 1.e-18, Psi: 0.5", 1)
	})
	assert.ErrorIs(t, err, fvm.ErrUnknownRegion)
}
