package fvm

import (
	"fmt"

	"github.com/notargets/gosemi/types"
)

// AdvancedModel flags the optional equations a region solves
type AdvancedModel struct {
	Tl bool // lattice heating
	Tn bool // electron energy balance, semiconductors only
	Tp bool // hole energy balance, semiconductors only
}

/*
VariableLayout maps each quantity a region carries to its offset in the
per node unknown block. Quantities keep the order of types.Quantity:

	semiconductor: psi, n, p [, T][, nTn][, pTp]
	insulator:     psi [, T]
	metal:         psi [, T]
*/
type VariableLayout struct {
	offsets [types.NumQuantities]int
	nVar    int
}

func NewVariableLayout(rt types.RegionType, am AdvancedModel) (vl VariableLayout) {
	var (
		present [types.NumQuantities]bool
	)
	present[types.Potential] = true
	present[types.Temperature] = am.Tl
	if rt == types.Semiconductor {
		present[types.Electron] = true
		present[types.Hole] = true
		present[types.ElectronTemp] = am.Tn
		present[types.HoleTemp] = am.Tp
	}
	for q := types.Quantity(0); q < types.NumQuantities; q++ {
		vl.offsets[q] = -1
		if present[q] {
			vl.offsets[q] = vl.nVar
			vl.nVar++
		}
	}
	return
}

func (vl VariableLayout) NumVars() int { return vl.nVar }

func (vl VariableLayout) Has(q types.Quantity) bool {
	return q < types.NumQuantities && vl.offsets[q] >= 0
}

// Offset panics for a quantity the region does not carry
func (vl VariableLayout) Offset(q types.Quantity) int {
	if !vl.Has(q) {
		panic(fmt.Errorf("quantity %s is not part of this layout", q))
	}
	return vl.offsets[q]
}

func (vl VariableLayout) Quantities() (qs []types.Quantity) {
	for q := types.Quantity(0); q < types.NumQuantities; q++ {
		if vl.Has(q) {
			qs = append(qs, q)
		}
	}
	return
}
