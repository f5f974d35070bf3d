package fvm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/notargets/gosemi/types"
	"go.uber.org/zap"
)

var (
	ErrUnknownRegion = errors.New("unknown region")
	ErrBadTopology   = errors.New("bad topology")
)

type nodeSpec struct {
	point, region int
	owner         int // -1 follows the point owner
	volume        float64
	data          NodeData
	degenerate    bool
	neighbors     []Neighbor
}

type NodeOption func(ns *nodeSpec)

// WithOwner places the rows of a node on a rank other than its point's owner
func WithOwner(rank int) NodeOption { return func(ns *nodeSpec) { ns.owner = rank } }

// Degenerate marks a node that carries no unknowns
func Degenerate() NodeOption { return func(ns *nodeSpec) { ns.degenerate = true } }

// Builder collects regions, points, nodes and links, then lays out the rows
// for a number of ranks
type Builder struct {
	regions []Region
	byName  map[string]int
	points  map[int]BoundaryPoint
	nodes   []nodeSpec
	byKey   map[types.NodeKey]int
	links   map[types.LinkKey]bool
	logger  *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		byName: make(map[string]int),
		points: make(map[int]BoundaryPoint),
		byKey:  make(map[types.NodeKey]int),
		links:  make(map[types.LinkKey]bool),
		logger: logger,
	}
}

// AddRegion registers a region, the registration order decides which region
// is the master at a shared point
func (b *Builder) AddRegion(r Region) (index int, err error) {
	if _, exists := b.byName[r.Name()]; exists {
		err = fmt.Errorf("region %q registered twice: %w", r.Name(), ErrBadTopology)
		return
	}
	index = len(b.regions)
	b.regions = append(b.regions, r)
	b.byName[r.Name()] = index
	return
}

func (b *Builder) AddPoint(id, owner int) {
	b.points[id] = BoundaryPoint{ID: id, Owner: owner}
}

// AddNode instantiates region at point and returns the node index
func (b *Builder) AddNode(point int, region string, volume float64, data NodeData,
	opts ...NodeOption) (index int, err error) {
	var (
		ri, ok = b.byName[region]
	)
	if !ok {
		err = fmt.Errorf("node at point %d: %w %q", point, ErrUnknownRegion, region)
		return
	}
	if _, ok = b.points[point]; !ok {
		err = fmt.Errorf("node of region %q at undeclared point %d: %w", region, point, ErrBadTopology)
		return
	}
	key := types.NewNodeKey(point, ri)
	if _, exists := b.byKey[key]; exists {
		err = fmt.Errorf("region %q already has a node at point %d: %w", region, point, ErrBadTopology)
		return
	}
	ns := nodeSpec{point: point, region: ri, owner: -1, volume: volume, data: data}
	for _, opt := range opts {
		opt(&ns)
	}
	index = len(b.nodes)
	b.nodes = append(b.nodes, ns)
	b.byKey[key] = index
	return
}

// Connect links two nodes of the same region
func (b *Builder) Connect(n1, n2 int, distance, area float64) (err error) {
	if n1 < 0 || n1 >= len(b.nodes) || n2 < 0 || n2 >= len(b.nodes) || n1 == n2 {
		err = fmt.Errorf("cannot link nodes %d and %d: %w", n1, n2, ErrBadTopology)
		return
	}
	if b.nodes[n1].region != b.nodes[n2].region {
		err = fmt.Errorf("nodes %d and %d belong to different regions: %w", n1, n2, ErrBadTopology)
		return
	}
	if distance <= 0 {
		err = fmt.Errorf("non positive distance %g between nodes %d and %d: %w",
			distance, n1, n2, ErrBadTopology)
		return
	}
	lk := types.NewLinkKey(n1, n2)
	if b.links[lk] {
		lo, hi := lk.Nodes()
		err = fmt.Errorf("nodes %d and %d are already linked: %w", lo, hi, ErrBadTopology)
		return
	}
	b.links[lk] = true
	b.nodes[n1].neighbors = append(b.nodes[n1].neighbors, Neighbor{Node: n2, Distance: distance, Area: area})
	b.nodes[n2].neighbors = append(b.nodes[n2].neighbors, Neighbor{Node: n1, Distance: distance, Area: area})
	return
}

func (b *Builder) owner(ns nodeSpec) int {
	if ns.owner >= 0 {
		return ns.owner
	}
	return b.points[ns.point].Owner
}

/*
Build lays out the global rows rank by rank, so each rank owns a contiguous
range, and returns one directory per rank. Within a rank nodes keep their
insertion order.
*/
func (b *Builder) Build(np int) (dirs []*Directory, err error) {
	if np < 1 {
		err = fmt.Errorf("need at least one rank, have %d: %w", np, ErrBadTopology)
		return
	}
	for _, pt := range b.points {
		if pt.Owner < 0 || pt.Owner >= np {
			err = fmt.Errorf("point %d owned by rank %d outside [0, %d): %w",
				pt.ID, pt.Owner, np, ErrBadTopology)
			return
		}
	}
	var (
		global = make([]int, len(b.nodes))
		counts = make([]int, np)
		next   int
	)
	for i, ns := range b.nodes {
		if o := b.owner(ns); o < 0 || o >= np {
			err = fmt.Errorf("node %d owned by rank %d outside [0, %d): %w", i, o, np, ErrBadTopology)
			return
		}
		global[i] = -1
	}
	for rank := 0; rank < np; rank++ {
		for i, ns := range b.nodes {
			if b.owner(ns) != rank || ns.degenerate {
				continue
			}
			nv := b.regions[ns.region].Layout().NumVars()
			global[i] = next
			next += nv
			counts[rank] += nv
		}
	}
	shared := b.shared(global)
	for rank := 0; rank < np; rank++ {
		dirs = append(dirs, b.directory(rank, np, global, counts, shared))
	}
	b.logger.Debug("built node directories",
		zap.Int("ranks", np),
		zap.Int("regions", len(b.regions)),
		zap.Int("points", len(b.points)),
		zap.Int("nodes", len(b.nodes)),
		zap.Int("rows", next))
	return
}

// shared holds the rank independent part of every directory
type shared struct {
	regions   []Region
	byName    map[string]int
	points    []BoundaryPoint
	pointByID map[int]int
	atPoint   map[int][]int // point id to node indices in region order
	byKey     map[types.NodeKey]int
	rowStart  []int // sorted global bases of the non degenerate nodes
	rowNode   []int // node index for each entry of rowStart
}

func (b *Builder) shared(global []int) (sh *shared) {
	sh = &shared{
		regions:   append([]Region(nil), b.regions...),
		byName:    make(map[string]int, len(b.byName)),
		pointByID: make(map[int]int, len(b.points)),
		atPoint:   make(map[int][]int, len(b.points)),
		byKey:     make(map[types.NodeKey]int, len(b.byKey)),
	}
	for name, ri := range b.byName {
		sh.byName[name] = ri
	}
	for key, ni := range b.byKey {
		sh.byKey[key] = ni
	}
	for _, pt := range b.points {
		sh.points = append(sh.points, pt)
	}
	sort.Slice(sh.points, func(i, j int) bool { return sh.points[i].ID < sh.points[j].ID })
	for i, pt := range sh.points {
		sh.pointByID[pt.ID] = i
	}
	for i, ns := range b.nodes {
		sh.atPoint[ns.point] = append(sh.atPoint[ns.point], i)
		if global[i] >= 0 {
			sh.rowNode = append(sh.rowNode, i)
		}
	}
	for _, list := range sh.atPoint {
		sort.SliceStable(list, func(i, j int) bool {
			return b.nodes[list[i]].region < b.nodes[list[j]].region
		})
	}
	sort.Slice(sh.rowNode, func(i, j int) bool { return global[sh.rowNode[i]] < global[sh.rowNode[j]] })
	sh.rowStart = make([]int, len(sh.rowNode))
	for i, ni := range sh.rowNode {
		sh.rowStart[i] = global[ni]
	}
	return
}

// directory builds the view of one rank. A rank hosts the nodes it owns, every
// node at a point it owns and the neighbors of both.
func (b *Builder) directory(rank, np int, global, counts []int, sh *shared) (d *Directory) {
	var (
		hosted = make(map[int]bool)
		host   = func(i int) {
			hosted[i] = true
			for _, nb := range b.nodes[i].neighbors {
				hosted[nb.Node] = true
			}
		}
	)
	for i, ns := range b.nodes {
		if b.owner(ns) == rank || b.points[ns.point].Owner == rank {
			host(i)
		}
	}
	d = &Directory{
		Rank:   rank,
		NP:     np,
		shared: sh,
		nodes:  make([]*Node, len(b.nodes)),
		counts: append([]int(nil), counts...),
	}
	for i, ns := range b.nodes {
		data := ns.data
		d.nodes[i] = &Node{
			Index:      i,
			Point:      ns.point,
			Region:     ns.region,
			Owner:      b.owner(ns),
			Volume:     ns.volume,
			Neighbors:  append([]Neighbor(nil), ns.neighbors...),
			Data:       &data,
			degenerate: ns.degenerate,
			global:     global[i],
			local:      -1,
		}
	}
	// Owned rows first, then ghosts, both in global order
	var order []int
	for i := range b.nodes {
		if hosted[i] && global[i] >= 0 {
			order = append(order, i)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		oi, oj := d.nodes[order[i]].Owner == rank, d.nodes[order[j]].Owner == rank
		if oi != oj {
			return oi
		}
		return global[order[i]] < global[order[j]]
	})
	for _, i := range order {
		d.nodes[i].local = d.localSize
		d.localSize += b.regions[b.nodes[i].region].Layout().NumVars()
		d.hosted = append(d.hosted, i)
	}
	return
}
