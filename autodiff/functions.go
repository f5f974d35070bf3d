package autodiff

import "math"

func Exp(a Scalar) Scalar {
	e := math.Exp(a.v)
	return unary(a, e, e)
}

func Log(a Scalar) Scalar { return unary(a, math.Log(a.v), 1/a.v) }

func Sqrt(a Scalar) Scalar {
	r := math.Sqrt(a.v)
	return unary(a, r, 0.5/r)
}

// Pow raises a to a constant power p.
func Pow(a Scalar, p float64) Scalar {
	switch p {
	case 0:
		return unary(a, 1, 0)
	case 1:
		return unary(a, a.v, 1)
	}
	return unary(a, math.Pow(a.v, p), p*math.Pow(a.v, p-1))
}

func Sin(a Scalar) Scalar { return unary(a, math.Sin(a.v), math.Cos(a.v)) }
func Cos(a Scalar) Scalar { return unary(a, math.Cos(a.v), -math.Sin(a.v)) }

func Tanh(a Scalar) Scalar {
	t := math.Tanh(a.v)
	return unary(a, t, 1-t*t)
}

func Asinh(a Scalar) Scalar {
	return unary(a, math.Asinh(a.v), 1/math.Sqrt(a.v*a.v+1))
}

// Abs uses the derivative of the positive branch at zero.
func Abs(a Scalar) Scalar {
	if a.v < 0 {
		return unary(a, -a.v, -1)
	}
	return unary(a, a.v, 1)
}

// Max selects one operand, the derivative follows the selected branch.
func Max(a, b Scalar) Scalar {
	checkDirs(a, b)
	if b.v > a.v {
		return unary(b, b.v, 1)
	}
	return unary(a, a.v, 1)
}

func Min(a, b Scalar) Scalar {
	checkDirs(a, b)
	if b.v < a.v {
		return unary(b, b.v, 1)
	}
	return unary(a, a.v, 1)
}
