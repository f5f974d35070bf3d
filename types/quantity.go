package types

import "strings"

// Quantity names a per node unknown. The declaration order is the order in
// which a region lays out its unknown block.
type Quantity uint8

const (
	Potential    Quantity = iota // electrostatic potential psi
	Electron                     // electron density n
	Hole                         // hole density p
	Temperature                  // lattice temperature T
	ElectronTemp                 // electron energy density n*Tn
	HoleTemp                     // hole energy density p*Tp
	NumQuantities
)

func (q Quantity) String() string {
	names := map[Quantity]string{
		Potential:    "Potential",
		Electron:     "Electron",
		Hole:         "Hole",
		Temperature:  "Temperature",
		ElectronTemp: "ElectronTemp",
		HoleTemp:     "HoleTemp",
	}
	if name, ok := names[q]; ok {
		return name
	}
	return "Unknown"
}

// QuantityNameMap keys are lowercase for case-insensitive matching
var QuantityNameMap = map[string]Quantity{
	"psi":          Potential,
	"potential":    Potential,
	"v":            Potential,
	"n":            Electron,
	"electron":     Electron,
	"p":            Hole,
	"hole":         Hole,
	"t":            Temperature,
	"tl":           Temperature,
	"temperature":  Temperature,
	"ntn":          ElectronTemp,
	"tn":           ElectronTemp,
	"electrontemp": ElectronTemp,
	"ptp":          HoleTemp,
	"tp":           HoleTemp,
	"holetemp":     HoleTemp,
}

func ParseQuantity(name string) (q Quantity, ok bool) {
	q, ok = QuantityNameMap[strings.ToLower(strings.TrimSpace(name))]
	return
}

type RegionType uint8

const (
	RegionNone RegionType = iota
	Semiconductor
	Insulator
	Metal // resistive conductor, electrode material
)

func (rt RegionType) String() string {
	switch rt {
	case Semiconductor:
		return "Semiconductor"
	case Insulator:
		return "Insulator"
	case Metal:
		return "Metal"
	}
	return "None"
}

var RegionTypeNameMap = map[string]RegionType{
	"semiconductor": Semiconductor,
	"insulator":     Insulator,
	"oxide":         Insulator,
	"metal":         Metal,
	"conductor":     Metal,
	"resistance":    Metal,
}

func ParseRegionType(name string) (rt RegionType, ok bool) {
	rt, ok = RegionTypeNameMap[strings.ToLower(strings.TrimSpace(name))]
	return
}
