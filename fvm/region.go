package fvm

import (
	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/material"
	"github.com/notargets/gosemi/types"
)

// Region is the capability every simulation region offers to boundary
// conditions and to the evaluation driver
type Region interface {
	Name() string
	Type() types.RegionType
	Model() AdvancedModel
	Layout() VariableLayout
	// TExternal is the temperature used when lattice heating is off
	TExternal() float64
}

// BandRegion is implemented by regions with a semiconductor band structure
type BandRegion interface {
	Region
	Band() material.Band
}

// BulkRegion fills the rows of the region's own nodes
type BulkRegion interface {
	Region
	BulkFunction(d *Directory, x []float64, f *assembly.VectorSession) error
	BulkJacobian(d *Directory, x []float64, j assembly.JacobianWriter) error
	BulkAC(d *Directory, x []float64, a *assembly.ACWriter, omega float64) error
}

type RegionConfig struct {
	Name  string
	Type  types.RegionType
	Model AdvancedModel
	Band  material.Band // required for semiconductors
	Kappa float64       // thermal conductivity [W/m/K]
	Sigma float64       // electrical conductivity of metals [S/m]
	Mun   float64       // electron mobility [m^2/V/s]
	Mup   float64
	Tau   float64 // SRH lifetime [s]
	TauE  float64 // energy relaxation time [s]
	TExt  float64 // external temperature, 300K when zero
}

// SimulationRegion is the reference region used by the driver and the tests
type SimulationRegion struct {
	cfg    RegionConfig
	layout VariableLayout
}

// SemiconductorRegion adds the band structure capability
type SemiconductorRegion struct {
	*SimulationRegion
}

func (r *SemiconductorRegion) Band() material.Band { return r.cfg.Band }

// NewRegion returns a *SemiconductorRegion for semiconductors and a
// *SimulationRegion otherwise
func NewRegion(cfg RegionConfig) BulkRegion {
	r := NewSimulationRegion(cfg)
	if r.cfg.Type == types.Semiconductor {
		return &SemiconductorRegion{r}
	}
	return r
}

func NewSimulationRegion(cfg RegionConfig) (r *SimulationRegion) {
	if cfg.Type != types.Semiconductor {
		cfg.Model.Tn, cfg.Model.Tp = false, false
	}
	if cfg.Type == types.Semiconductor && cfg.Band == nil {
		cfg.Band = material.NewSilicon()
	}
	if cfg.TExt == 0 {
		cfg.TExt = 300
	}
	setDefault := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	setDefault(&cfg.Kappa, 148)
	setDefault(&cfg.Sigma, 1.e6)
	setDefault(&cfg.Mun, 0.135)
	setDefault(&cfg.Mup, 0.048)
	setDefault(&cfg.Tau, 1.e-7)
	setDefault(&cfg.TauE, 1.e-12)
	r = &SimulationRegion{
		cfg:    cfg,
		layout: NewVariableLayout(cfg.Type, cfg.Model),
	}
	return
}

func (r *SimulationRegion) Name() string           { return r.cfg.Name }
func (r *SimulationRegion) Type() types.RegionType { return r.cfg.Type }
func (r *SimulationRegion) Model() AdvancedModel   { return r.cfg.Model }
func (r *SimulationRegion) Layout() VariableLayout { return r.layout }
func (r *SimulationRegion) TExternal() float64     { return r.cfg.TExt }
func (r *SimulationRegion) Config() RegionConfig   { return r.cfg }
