package material

import (
	"math"

	"github.com/notargets/gosemi/autodiff"
)

// Physical constants in SI units
const (
	Q    = 1.602176634e-19 // elementary charge [C]
	Kb   = 1.380649e-23    // Boltzmann constant [J/K]
	Eps0 = 8.8541878128e-12
)

// ThermalVoltage returns kT/q in volts
func ThermalVoltage(T autodiff.Scalar) autodiff.Scalar { return T.MulConst(Kb / Q) }

/*
Band is the band structure capability of a semiconductor material. Every
method works on dual numbers so the caller controls which quantities are
independent variables. Densities are in m^-3, energies and potentials in
volts, currents in A/m^2.
*/
type Band interface {
	Nc(T autodiff.Scalar) autodiff.Scalar
	Nv(T autodiff.Scalar) autodiff.Scalar
	Eg(T autodiff.Scalar) autodiff.Scalar
	Nie(p, n, T autodiff.Scalar) autodiff.Scalar
	// SchottkyJsn is the thermionic electron current density into the
	// semiconductor for a barrier height Vb
	SchottkyJsn(n, T autodiff.Scalar, Vb float64) autodiff.Scalar
	SchottkyJsp(p, T autodiff.Scalar, Vb float64) autodiff.Scalar
	// SchottkyBarrierLowering is the image force lowering for a surface field E
	SchottkyBarrierLowering(eps, E float64) float64
}

type Silicon struct {
	Nc300, Nv300 float64 // effective densities of states at 300K
	Eg0          float64 // gap at 0K
	Alpha, Beta  float64 // Varshni coefficients
	ARichN       float64 // Richardson constant for electrons [A/m^2/K^2]
	ARichP       float64
}

func NewSilicon() *Silicon {
	return &Silicon{
		Nc300:  2.86e25,
		Nv300:  3.10e25,
		Eg0:    1.1696,
		Alpha:  4.73e-4,
		Beta:   636,
		ARichN: 1.1e6,
		ARichP: 0.3e6,
	}
}

func (si *Silicon) Nc(T autodiff.Scalar) autodiff.Scalar {
	return autodiff.Pow(T.DivConst(300), 1.5).MulConst(si.Nc300)
}

func (si *Silicon) Nv(T autodiff.Scalar) autodiff.Scalar {
	return autodiff.Pow(T.DivConst(300), 1.5).MulConst(si.Nv300)
}

func (si *Silicon) Eg(T autodiff.Scalar) autodiff.Scalar {
	// Varshni: Eg0 - alpha*T^2/(T+beta)
	return T.Mul(T).MulConst(si.Alpha).Div(T.AddConst(si.Beta)).Neg().AddConst(si.Eg0)
}

// Nie ignores band gap narrowing, p and n are kept for models that use it
func (si *Silicon) Nie(p, n, T autodiff.Scalar) autodiff.Scalar {
	var (
		Vt = ThermalVoltage(T)
	)
	return autodiff.Sqrt(si.Nc(T).Mul(si.Nv(T))).Mul(autodiff.Exp(si.Eg(T).Div(Vt.MulConst(-2))))
}

func (si *Silicon) SchottkyJsn(n, T autodiff.Scalar, Vb float64) autodiff.Scalar {
	var (
		Vt = ThermalVoltage(T)
		Nc = si.Nc(T)
		nb = Nc.Mul(autodiff.Exp(Vt.ConstDiv(-Vb)))
	)
	return T.Mul(T).MulConst(-si.ARichN).Div(Nc).Mul(n.Sub(nb))
}

func (si *Silicon) SchottkyJsp(p, T autodiff.Scalar, Vb float64) autodiff.Scalar {
	var (
		Vt = ThermalVoltage(T)
		Nv = si.Nv(T)
		pb = Nv.Mul(autodiff.Exp(si.Eg(T).Neg().AddConst(Vb).Div(Vt)))
	)
	return T.Mul(T).MulConst(si.ARichP).Div(Nv).Mul(p.Sub(pb))
}

func (si *Silicon) SchottkyBarrierLowering(eps, E float64) float64 {
	return math.Sqrt(Q / (4 * math.Pi * eps) * E)
}

// Bernoulli returns x/(exp(x)-1), using a series near zero where the direct
// form loses precision
func Bernoulli(x autodiff.Scalar) autodiff.Scalar {
	var (
		xv = x.Value()
	)
	switch {
	case math.Abs(xv) < 1.e-4:
		// 1 - x/2 + x^2/12
		return x.Mul(x).DivConst(12).Sub(x.DivConst(2)).AddConst(1)
	case xv > 500:
		return x.Mul(autodiff.Exp(x.Neg()))
	}
	return x.Div(autodiff.Exp(x).SubConst(1))
}
