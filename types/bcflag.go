package types

import "strings"

// BCType represents the coupling law family of a boundary condition
type BCType uint16

const (
	BCNone BCType = iota

	// Interfaces between regions
	BCInsulatorInterface // continuity of potential and lattice temperature
	BCSchottkyContact    // thermionic emission between semiconductor and metal
)

func (bc BCType) String() string {
	names := map[BCType]string{
		BCNone:               "None",
		BCInsulatorInterface: "InsulatorInterface",
		BCSchottkyContact:    "SchottkyContact",
	}
	if name, ok := names[bc]; ok {
		return name
	}
	return "Unknown"
}

// BCNameMap keys are lowercase for case-insensitive matching
var BCNameMap = map[string]BCType{
	"insulatorinterface":  BCInsulatorInterface,
	"insulator_interface": BCInsulatorInterface,
	"ii_interface":        BCInsulatorInterface,
	"interface":           BCInsulatorInterface,
	"schottky":            BCSchottkyContact,
	"schottkycontact":     BCSchottkyContact,
	"if_metal_schottky":   BCSchottkyContact,
}

func ParseBCType(name string) (bc BCType, ok bool) {
	bc, ok = BCNameMap[strings.ToLower(strings.TrimSpace(name))]
	return
}
