package cmd

import (
	"fmt"
	"io"

	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/solver"
)

// PrintDC writes one equation per row: its Jacobian entries and residual
func PrintDC(w io.Writer, res solver.DCResult) {
	fmt.Fprintf(w, "\nDC system %s (%dx%d, %d non zeros):\n", res.RunID, res.J.Size(), res.J.Size(), res.J.NNZ())
	for row := 0; row < res.J.Size(); row++ {
		printRow(w, res.J, row)
		fmt.Fprintf(w, " = %g\n", res.F.At(row))
	}
}

// PrintAC writes the doubled real matrix row by row
func PrintAC(w io.Writer, res solver.ACResult) {
	fmt.Fprintf(w, "\nAC system %s (%dx%d, %d non zeros):\n", res.RunID, res.A.Size(), res.A.Size(), res.A.NNZ())
	for row := 0; row < res.A.Size(); row++ {
		printRow(w, res.A, row)
		fmt.Fprintln(w)
	}
}

func printRow(w io.Writer, m *assembly.Matrix, row int) {
	fmt.Fprintf(w, "Equation %d:", row)
	for _, e := range m.Row(row) {
		fmt.Fprintf(w, "  %+g*x%d", e.Value, e.Col)
	}
}
