package fvm

import (
	"fmt"

	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/autodiff"
)

/*
Emitter writes dual number row expressions. The residual emitter keeps the
primal value and ignores the columns, the Jacobian emitter writes one entry per
column from the matching derivative. Physics code builds its expressions once
and runs them through either emitter, asking NumDir how many directions to seed.
*/
type Emitter interface {
	NumDir(n int) int
	// Add accumulates e into row
	Add(row int, cols []int, e autodiff.Scalar)
	// Set writes e into a row that has been cleared by a redirection. Writes
	// stay additive so a row reached twice agrees between residual and Jacobian.
	Set(row int, cols []int, e autodiff.Scalar)
}

type residualEmitter struct {
	f *assembly.VectorSession
}

func ResidualEmitter(f *assembly.VectorSession) Emitter { return residualEmitter{f: f} }

func (re residualEmitter) NumDir(int) int { return 0 }

func (re residualEmitter) Add(row int, _ []int, e autodiff.Scalar) { re.f.Accumulate(row, e.Value()) }

func (re residualEmitter) Set(row int, cols []int, e autodiff.Scalar) { re.Add(row, cols, e) }

type jacobianEmitter struct {
	j assembly.JacobianWriter
}

// JacobianEmitter writes through a MatrixSession for DC or an ACWriter for
// the real coupling of a small signal system
func JacobianEmitter(j assembly.JacobianWriter) Emitter { return jacobianEmitter{j: j} }

func (je jacobianEmitter) NumDir(n int) int { return n }

func (je jacobianEmitter) Add(row int, cols []int, e autodiff.Scalar) {
	if len(cols) != e.NumDir() {
		panic(fmt.Errorf("%d columns for an expression with %d directions", len(cols), e.NumDir()))
	}
	for k, col := range cols {
		if dv := e.Derivative(k); dv != 0 {
			je.j.Accumulate(row, col, dv)
		}
	}
}

func (je jacobianEmitter) Set(row int, cols []int, e autodiff.Scalar) { je.Add(row, cols, e) }
