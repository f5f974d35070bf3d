package fvm

import (
	"fmt"

	"github.com/notargets/gosemi/types"
)

// BoundaryPoint is a geometric mesh point shared by the nodes of several
// regions. It has no physics state.
type BoundaryPoint struct {
	ID    int
	Owner int // rank
}

type Neighbor struct {
	Node     int     // index of the neighbor node in the directory
	Distance float64 // distance between the two root points
	Area     float64 // control volume surface shared with the neighbor
}

// NodeData carries the solution and material values of one node
type NodeData struct {
	Psi, N, P   float64
	T, Tn, Tp   float64 // lattice, electron and hole temperatures
	Eps         float64 // absolute permittivity
	Affinity    float64 // electron affinity or work function [V]
	Doping      float64 // net donor minus acceptor density
	OutsideArea float64 // control volume surface on the region boundary
	Field       float64 // electric field magnitude
}

// Value returns the unknown stored for q. Energy balance unknowns are the
// products n*Tn and p*Tp.
func (nd *NodeData) Value(q types.Quantity) float64 {
	switch q {
	case types.Potential:
		return nd.Psi
	case types.Electron:
		return nd.N
	case types.Hole:
		return nd.P
	case types.Temperature:
		return nd.T
	case types.ElectronTemp:
		return nd.N * nd.Tn
	case types.HoleTemp:
		return nd.P * nd.Tp
	}
	panic(fmt.Errorf("no value for quantity %v", q))
}

/*
Node is the control volume a region instantiates at a point. Topology is fixed
once the directory is built. Each rank's directory holds its own copies
because local offsets differ between ranks.
*/
type Node struct {
	Index     int // position in the directory
	Point     int
	Region    int // region index in registration order
	Owner     int // rank owning the rows of this node
	Volume    float64
	Neighbors []Neighbor
	Data      *NodeData

	degenerate bool
	global     int // base global row, -1 when degenerate
	local      int // base local index, -1 when not hosted
}

func (n *Node) String() string {
	return fmt.Sprintf("node %d (point %d, region %d)", n.Index, n.Point, n.Region)
}

// RegionNode pairs a region with its node at one point
type RegionNode struct {
	Region Region
	Index  int // region index
	Node   *Node
}
