package types

import (
	"fmt"
	"math"
)

/*
NodeKey packs a (point, region) pair into a single ordered key, used to find the
control volume node a region instantiates at a geometric point
*/
type NodeKey uint64

func NewNodeKey(point, region int) (packed NodeKey) {
	var (
		limit = math.MaxUint32
	)
	if point < 0 || point > limit || region < 0 || region > limit {
		panic(fmt.Errorf("unable to pack point %d and region %d into a uint64",
			point, region))
	}
	packed = NodeKey(uint64(point)<<32 + uint64(region))
	return
}

func (nk NodeKey) Split() (point, region int) {
	point = int(nk >> 32)
	region = int(nk & math.MaxUint32)
	return
}

// LinkKey names the undirected link between two nodes, the smaller index in the
// low word
type LinkKey uint64

func NewLinkKey(n1, n2 int) LinkKey {
	if n2 < n1 {
		n1, n2 = n2, n1
	}
	if n1 < 0 || n2 > math.MaxUint32 {
		panic(fmt.Errorf("nodes %d and %d do not fit a link key", n1, n2))
	}
	return LinkKey(uint64(n2)<<32 | uint64(n1))
}

// Nodes returns the linked nodes in ascending order
func (lk LinkKey) Nodes() (lo, hi int) {
	return int(lk & math.MaxUint32), int(lk >> 32)
}
