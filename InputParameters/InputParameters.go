package InputParameters

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/ghodss/yaml"
	"github.com/notargets/gosemi/bc"
	"github.com/notargets/gosemi/fvm"
	"github.com/notargets/gosemi/material"
	"github.com/notargets/gosemi/types"
	"go.uber.org/zap"
)

var ErrBadDeck = errors.New("bad device deck")

type RegionInput struct {
	Name           string  `json:"Name"`
	Type           string  `json:"Type"`
	LatticeHeating bool    `json:"LatticeHeating"`
	ElectronEnergy bool    `json:"ElectronEnergy"`
	HoleEnergy     bool    `json:"HoleEnergy"`
	Kappa          float64 `json:"Kappa"`
	Sigma          float64 `json:"Sigma"`
	Mun            float64 `json:"Mun"`
	Mup            float64 `json:"Mup"`
	Tau            float64 `json:"Tau"`
	TauE           float64 `json:"TauE"`
	TExternal      float64 `json:"TExternal"`
}

type PointInput struct {
	ID    int `json:"ID"`
	Owner int `json:"Owner"`
}

// NodeInput is one region's control volume at a point. Temperatures left at
// zero default to the region's external temperature.
type NodeInput struct {
	Point       int     `json:"Point"`
	Region      string  `json:"Region"`
	Volume      float64 `json:"Volume"`
	Owner       *int    `json:"Owner"` // rank holding the rows, the point owner when absent
	Degenerate  bool    `json:"Degenerate"`
	Psi         float64 `json:"Psi"`
	N           float64 `json:"N"`
	P           float64 `json:"P"`
	T           float64 `json:"T"`
	Tn          float64 `json:"Tn"`
	Tp          float64 `json:"Tp"`
	EpsR        float64 `json:"EpsR"`
	Affinity    float64 `json:"Affinity"`
	Doping      float64 `json:"Doping"`
	OutsideArea float64 `json:"OutsideArea"`
	Field       float64 `json:"Field"`
}

// LinkInput connects two nodes by their position in the Nodes list
type LinkInput struct {
	Nodes    [2]int  `json:"Nodes"`
	Distance float64 `json:"Distance"`
	Area     float64 `json:"Area"`
}

type BCInput struct {
	Name    string             `json:"Name"`
	Type    string             `json:"Type"`
	Points  []int              `json:"Points"`
	Regions []string           `json:"Regions"`
	Params  map[string]float64 `json:"Params"`
}

// DeviceDeck is the YAML description of a device, its partition and its
// boundary conditions
type DeviceDeck struct {
	Title     string        `json:"Title"`
	Ranks     int           `json:"Ranks"`
	Frequency float64       `json:"Frequency"` // small signal frequency [Hz]
	Regions   []RegionInput `json:"Regions"`
	Points    []PointInput  `json:"Points"`
	Nodes     []NodeInput   `json:"Nodes"`
	Links     []LinkInput   `json:"Links"`
	BCs       []BCInput     `json:"BCs"`
}

const ExampleDeck = `
########################################
Title: "Schottky diode with field oxide"
Ranks: 2
Frequency: 1.e6
Regions:
  - {Name: si, Type: semiconductor, LatticeHeating: true}
  - {Name: al, Type: metal, LatticeHeating: true}
  - {Name: ox, Type: insulator}
Points:
  - {ID: 0, Owner: 0}
  - {ID: 1, Owner: 0}
  - {ID: 2, Owner: 1}
  - {ID: 3, Owner: 1}
Nodes:
  - {Point: 0, Region: si, Volume: 1.e-18, Psi: 0.3, N: 1.e22, P: 1.e10, EpsR: 11.7, Affinity: 4.05, Doping: 1.e22, OutsideArea: 1.e-12, Field: 1.e6}
  - {Point: 1, Region: si, Volume: 1.e-18, Psi: 0.35, N: 1.e22, P: 1.e10, EpsR: 11.7, Affinity: 4.05, Doping: 1.e22}
  - {Point: 2, Region: si, Volume: 1.e-18, Psi: 0.4, N: 1.e22, P: 1.e10, EpsR: 11.7, Affinity: 4.05, Doping: 1.e22}
  - {Point: 0, Region: al, Volume: 1.e-18, Psi: 0.1, Affinity: 4.7}
  - {Point: 2, Region: ox, Volume: 1.e-18, Psi: 0.42, EpsR: 3.9}
  - {Point: 3, Region: ox, Volume: 1.e-18, Psi: 0.5, EpsR: 3.9}
Links:
  - {Nodes: [0, 1], Distance: 1.e-6, Area: 1.e-12}
  - {Nodes: [1, 2], Distance: 1.e-6, Area: 1.e-12}
  - {Nodes: [4, 5], Distance: 1.e-6, Area: 1.e-12}
BCs:
  - {Name: anode, Type: schottky, Points: [0], Regions: [si, al]}
  - {Name: field_oxide, Type: interface, Points: [2]}
########################################
`

func (dk *DeviceDeck) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, dk); err != nil {
		return fmt.Errorf("%w: %w", ErrBadDeck, err)
	}
	if dk.Ranks == 0 {
		dk.Ranks = 1
	}
	if dk.Ranks < 0 {
		return fmt.Errorf("%w: %d ranks", ErrBadDeck, dk.Ranks)
	}
	return
}

// Omega is the angular frequency of the small signal analysis
func (dk *DeviceDeck) Omega() float64 { return 2 * math.Pi * dk.Frequency }

func (dk *DeviceDeck) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", dk.Title)
	fmt.Fprintf(w, "[%d]\t\t\t= Ranks\n", dk.Ranks)
	fmt.Fprintf(w, "%8.5g\t\t= Frequency\n", dk.Frequency)
	for _, r := range dk.Regions {
		fmt.Fprintf(w, "Region[%s] = %s, Tl=%v Tn=%v Tp=%v\n", r.Name, r.Type,
			r.LatticeHeating, r.ElectronEnergy, r.HoleEnergy)
	}
	fmt.Fprintf(w, "[%d]\t\t\t= Points\n", len(dk.Points))
	fmt.Fprintf(w, "[%d]\t\t\t= Nodes\n", len(dk.Nodes))
	fmt.Fprintf(w, "[%d]\t\t\t= Links\n", len(dk.Links))
	for _, b := range dk.BCs {
		keys := make([]string, 0, len(b.Params))
		for k := range b.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "BCs[%s] = %s at %v on %v", b.Name, b.Type, b.Points, b.Regions)
		for _, k := range keys {
			fmt.Fprintf(w, " %s=%g", k, b.Params[k])
		}
		fmt.Fprintln(w)
	}
}

// Build creates the node directory of every rank and the boundary condition
// specs of the deck
func (dk *DeviceDeck) Build(logger *zap.Logger) (dirs []*fvm.Directory, specs []bc.Spec, err error) {
	var (
		b       = fvm.NewBuilder(logger)
		regions = make(map[string]fvm.Region)
		nodes   = make([]int, len(dk.Nodes))
	)
	for _, ri := range dk.Regions {
		rt, ok := types.ParseRegionType(ri.Type)
		if !ok {
			err = fmt.Errorf("%w: region %s has unknown type %q", ErrBadDeck, ri.Name, ri.Type)
			return
		}
		r := fvm.NewRegion(fvm.RegionConfig{
			Name:  ri.Name,
			Type:  rt,
			Model: fvm.AdvancedModel{Tl: ri.LatticeHeating, Tn: ri.ElectronEnergy, Tp: ri.HoleEnergy},
			Kappa: ri.Kappa,
			Sigma: ri.Sigma,
			Mun:   ri.Mun,
			Mup:   ri.Mup,
			Tau:   ri.Tau,
			TauE:  ri.TauE,
			TExt:  ri.TExternal,
		})
		if _, err = b.AddRegion(r); err != nil {
			err = fmt.Errorf("%w: %w", ErrBadDeck, err)
			return
		}
		regions[ri.Name] = r
	}
	for _, pt := range dk.Points {
		b.AddPoint(pt.ID, pt.Owner)
	}
	for i, ni := range dk.Nodes {
		var opts []fvm.NodeOption
		if ni.Owner != nil {
			opts = append(opts, fvm.WithOwner(*ni.Owner))
		}
		if ni.Degenerate {
			opts = append(opts, fvm.Degenerate())
		}
		if nodes[i], err = b.AddNode(ni.Point, ni.Region, ni.Volume, ni.data(regions[ni.Region]), opts...); err != nil {
			err = fmt.Errorf("%w: node %d: %w", ErrBadDeck, i, err)
			return
		}
	}
	for _, l := range dk.Links {
		for _, k := range l.Nodes {
			if k < 0 || k >= len(nodes) {
				err = fmt.Errorf("%w: link %v references node %d of %d", ErrBadDeck, l.Nodes, k, len(nodes))
				return
			}
		}
		if err = b.Connect(nodes[l.Nodes[0]], nodes[l.Nodes[1]], l.Distance, l.Area); err != nil {
			err = fmt.Errorf("%w: %w", ErrBadDeck, err)
			return
		}
	}
	for _, bi := range dk.BCs {
		bt, ok := types.ParseBCType(bi.Type)
		if !ok {
			err = fmt.Errorf("%w: boundary condition %s has unknown type %q", ErrBadDeck, bi.Name, bi.Type)
			return
		}
		specs = append(specs, bc.Spec{Name: bi.Name, Type: bt, Points: bi.Points, Regions: bi.Regions, Params: bi.Params})
	}
	if dirs, err = b.Build(dk.Ranks); err != nil {
		err = fmt.Errorf("%w: %w", ErrBadDeck, err)
	}
	return
}

func (ni NodeInput) data(r fvm.Region) (nd fvm.NodeData) {
	nd = fvm.NodeData{
		Psi:         ni.Psi,
		N:           ni.N,
		P:           ni.P,
		T:           ni.T,
		Tn:          ni.Tn,
		Tp:          ni.Tp,
		Eps:         ni.EpsR * material.Eps0,
		Affinity:    ni.Affinity,
		Doping:      ni.Doping,
		OutsideArea: ni.OutsideArea,
		Field:       ni.Field,
	}
	if nd.T == 0 && r != nil {
		nd.T = r.TExternal()
	}
	if nd.Tn == 0 {
		nd.Tn = nd.T
	}
	if nd.Tp == 0 {
		nd.Tp = nd.T
	}
	return
}
