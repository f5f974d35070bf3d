package autodiff

import (
	"fmt"
	"strings"
)

// Scalar is a forward mode dual number: a primal value plus a fixed length
// vector of directional derivatives. The number of directions is chosen when
// the first independent variable of an expression is created and every value
// combined with it must carry the same count.
type Scalar struct {
	v float64
	d []float64
}

// New returns a constant with numDir zero derivatives. A zero direction count
// gives a primal only value, which is what residual evaluation uses.
func New(v float64, numDir int) (s Scalar) {
	if numDir < 0 {
		panic(fmt.Errorf("negative direction count %d", numDir))
	}
	s = Scalar{v: v}
	if numDir > 0 {
		s.d = make([]float64, numDir)
	}
	return
}

// Var returns an independent variable seeded along direction dir.
func Var(v float64, dir, numDir int) (s Scalar) {
	s = New(v, numDir)
	s.SetDerivative(dir, 1)
	return
}

func (s Scalar) Value() float64 { return s.v }
func (s Scalar) NumDir() int    { return len(s.d) }

func (s Scalar) Derivative(i int) float64 {
	s.checkDir(i)
	return s.d[i]
}

func (s *Scalar) SetDerivative(i int, val float64) {
	s.checkDir(i)
	s.d[i] = val
}

// Derivatives returns a copy of the derivative vector.
func (s Scalar) Derivatives() (d []float64) {
	d = make([]float64, len(s.d))
	copy(d, s.d)
	return
}

func (s Scalar) String() string {
	var (
		sb strings.Builder
	)
	fmt.Fprintf(&sb, "%g", s.v)
	if len(s.d) != 0 {
		sb.WriteString(" [")
		for i, dv := range s.d {
			if i != 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%g", dv)
		}
		sb.WriteString("]")
	}
	return sb.String()
}

func (s Scalar) checkDir(i int) {
	if i < 0 || i >= len(s.d) {
		panic(fmt.Errorf("derivative direction %d out of range, scalar carries %d directions",
			i, len(s.d)))
	}
}

func checkDirs(a, b Scalar) {
	if len(a.d) != len(b.d) {
		panic(fmt.Errorf("direction count mismatch: %d and %d", len(a.d), len(b.d)))
	}
}

// unary applies the chain rule with df = f'(a).
func unary(a Scalar, f, df float64) (r Scalar) {
	r = Scalar{v: f}
	if len(a.d) != 0 {
		r.d = make([]float64, len(a.d))
		for i, dv := range a.d {
			r.d[i] = df * dv
		}
	}
	return
}

// binary combines two scalars with partials dfa = df/da and dfb = df/db.
func binary(a, b Scalar, f, dfa, dfb float64) (r Scalar) {
	checkDirs(a, b)
	r = Scalar{v: f}
	if len(a.d) != 0 {
		r.d = make([]float64, len(a.d))
		for i := range a.d {
			r.d[i] = dfa*a.d[i] + dfb*b.d[i]
		}
	}
	return
}

func (a Scalar) Add(b Scalar) Scalar { return binary(a, b, a.v+b.v, 1, 1) }
func (a Scalar) Sub(b Scalar) Scalar { return binary(a, b, a.v-b.v, 1, -1) }
func (a Scalar) Mul(b Scalar) Scalar { return binary(a, b, a.v*b.v, b.v, a.v) }

func (a Scalar) Div(b Scalar) Scalar {
	return binary(a, b, a.v/b.v, 1/b.v, -a.v/(b.v*b.v))
}

func (a Scalar) Neg() Scalar               { return unary(a, -a.v, -1) }
func (a Scalar) AddConst(c float64) Scalar { return unary(a, a.v+c, 1) }
func (a Scalar) SubConst(c float64) Scalar { return unary(a, a.v-c, 1) }
func (a Scalar) MulConst(c float64) Scalar { return unary(a, a.v*c, c) }
func (a Scalar) DivConst(c float64) Scalar { return unary(a, a.v/c, 1/c) }

// ConstDiv returns c / a.
func (a Scalar) ConstDiv(c float64) Scalar { return unary(a, c/a.v, -c/(a.v*a.v)) }
