package fvm

import (
	"fmt"
	"sort"

	"github.com/notargets/gosemi/autodiff"
	"github.com/notargets/gosemi/parallel"
	"github.com/notargets/gosemi/types"
)

// Directory is one rank's view of the node topology and the row layout
type Directory struct {
	Rank, NP int
	*shared
	nodes     []*Node
	hosted    []int // node indices in local order
	localSize int
	counts    []int // rows owned by each rank
}

func (d *Directory) Regions() []Region { return d.regions }

func (d *Directory) RegionIndex(name string) (index int, err error) {
	var ok bool
	if index, ok = d.byName[name]; !ok {
		err = fmt.Errorf("%w %q", ErrUnknownRegion, name)
	}
	return
}

func (d *Directory) Region(name string) (r Region, err error) {
	var index int
	if index, err = d.RegionIndex(name); err != nil {
		return
	}
	r = d.regions[index]
	return
}

func (d *Directory) RegionOf(n *Node) Region { return d.regions[n.Region] }

func (d *Directory) Node(index int) *Node { return d.nodes[index] }

func (d *Directory) NumNodes() int { return len(d.nodes) }

// NodeAt returns nil when the region has no node at point
func (d *Directory) NodeAt(point, region int) *Node {
	if ni, ok := d.byKey[types.NewNodeKey(point, region)]; ok {
		return d.nodes[ni]
	}
	return nil
}

// Points returns every point ordered by id
func (d *Directory) Points() []BoundaryPoint { return d.points }

func (d *Directory) Point(id int) (pt BoundaryPoint, ok bool) {
	var i int
	if i, ok = d.pointByID[id]; ok {
		pt = d.points[i]
	}
	return
}

func (d *Directory) Owned(point, rank int) bool {
	pt, ok := d.Point(point)
	return ok && pt.Owner == rank
}

// RegionsAt lists the nodes at a point in region registration order, the first
// entry is the coupling master
func (d *Directory) RegionsAt(point int) (rns []RegionNode) {
	for _, ni := range d.atPoint[point] {
		n := d.nodes[ni]
		rns = append(rns, RegionNode{Region: d.regions[n.Region], Index: n.Region, Node: n})
	}
	return
}

// ExtraRegions lists the nodes at a point whose region is not one of the named
// primary regions
func (d *Directory) ExtraRegions(point int, primary ...int) (rns []RegionNode) {
	skip := make(map[int]bool, len(primary))
	for _, ri := range primary {
		skip[ri] = true
	}
	for _, rn := range d.RegionsAt(point) {
		if !skip[rn.Index] {
			rns = append(rns, rn)
		}
	}
	return
}

// IsValid reports whether this rank hosts a usable discretization node
func (d *Directory) IsValid(n *Node) bool {
	return n != nil && !n.degenerate && n.local >= 0
}

// OwnedNodes lists the valid nodes of a region whose rows this rank owns
func (d *Directory) OwnedNodes(region int) (nodes []*Node) {
	for _, ni := range d.hosted {
		n := d.nodes[ni]
		if n.Region == region && n.Owner == d.Rank {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Index < nodes[j].Index })
	return
}

func (d *Directory) layout(n *Node) VariableLayout { return d.regions[n.Region].Layout() }

// GlobalBase is the first global row of the node's unknown block
func (d *Directory) GlobalBase(n *Node) int {
	if n.global < 0 {
		panic(fmt.Errorf("%v carries no unknowns", n))
	}
	return n.global
}

func (d *Directory) GlobalOffset(n *Node, q types.Quantity) int {
	return d.GlobalBase(n) + d.layout(n).Offset(q)
}

func (d *Directory) LocalOffset(n *Node, q types.Quantity) int {
	if !d.IsValid(n) {
		panic(fmt.Errorf("%v is not hosted on rank %d", n, d.Rank))
	}
	return n.local + d.layout(n).Offset(q)
}

// ACOffset places the real part of q at 2*base+offset and the imaginary part
// one block further
func (d *Directory) ACOffset(n *Node, q types.Quantity) (re, im int) {
	var (
		vl = d.layout(n)
	)
	re = 2*d.GlobalBase(n) + vl.Offset(q)
	im = re + vl.NumVars()
	return
}

// ACIndex maps any DC global row onto the doubled AC layout
func (d *Directory) ACIndex(dc int) (re, im int) {
	k := sort.SearchInts(d.rowStart, dc+1) - 1
	if k < 0 || dc >= d.GlobalSize() {
		panic(fmt.Errorf("row %d outside [0, %d)", dc, d.GlobalSize()))
	}
	var (
		n    = d.nodes[d.rowNode[k]]
		nVar = d.layout(n).NumVars()
	)
	re = 2*n.global + (dc - n.global)
	im = re + nVar
	return
}

// Columns returns the global rows of the node's unknown block in layout order
func (d *Directory) Columns(n *Node) (cols []int) {
	var (
		base = d.GlobalBase(n)
		nVar = d.layout(n).NumVars()
	)
	cols = make([]int, nVar)
	for i := range cols {
		cols[i] = base + i
	}
	return
}

/*
Load reads q of node n from the local solution x. With numDir > 0 the value is
seeded along direction dirBase + offset of q, so a node block loaded at
dirBase lines up with the columns returned by Columns.
*/
func (d *Directory) Load(x []float64, n *Node, q types.Quantity, dirBase, numDir int) autodiff.Scalar {
	v := x[d.LocalOffset(n, q)]
	if numDir == 0 {
		return autodiff.New(v, 0)
	}
	return autodiff.Var(v, dirBase+d.layout(n).Offset(q), numDir)
}

func (d *Directory) GlobalSize() (n int) {
	for _, c := range d.counts {
		n += c
	}
	return
}

func (d *Directory) LocalSize() int { return d.localSize }

// RowCounts returns the number of rows owned by each rank
func (d *Directory) RowCounts() []int { return append([]int(nil), d.counts...) }

func (d *Directory) Partition() *parallel.PartitionMap {
	return parallel.NewPartitionMapFromCounts(d.counts)
}

// InitialSolution builds the global unknown vector from the node data
func (d *Directory) InitialSolution() (x []float64) {
	x = make([]float64, d.GlobalSize())
	for _, n := range d.nodes {
		if n.global < 0 {
			continue
		}
		for _, q := range d.layout(n).Quantities() {
			x[d.GlobalOffset(n, q)] = n.Data.Value(q)
		}
	}
	return
}

// Gather copies the rows this rank hosts from a global vector into its local
// buffer
func (d *Directory) Gather(global []float64) (local []float64) {
	if len(global) != d.GlobalSize() {
		panic(fmt.Errorf("global vector has %d rows, want %d", len(global), d.GlobalSize()))
	}
	local = make([]float64, d.localSize)
	for _, ni := range d.hosted {
		var (
			n    = d.nodes[ni]
			nVar = d.layout(n).NumVars()
		)
		copy(local[n.local:n.local+nVar], global[n.global:n.global+nVar])
	}
	return
}
