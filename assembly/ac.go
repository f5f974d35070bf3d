package assembly

// Layout maps a DC global row or column onto its real and imaginary rows in
// the doubled AC system
type Layout interface {
	ACIndex(dc int) (re, im int)
}

/*
ACWriter writes into the doubled real system of a small signal problem. A
complex unknown u = ur + j*ui of a node is stored as two real unknowns, and a
complex coefficient a = ar + j*ai multiplying it expands into the 2x2 block

	| ar  -ai |
	| ai   ar |
*/
type ACWriter struct {
	s      *MatrixSession
	layout Layout
}

func NewACWriter(s *MatrixSession, layout Layout) *ACWriter {
	return &ACWriter{s: s, layout: layout}
}

func (a *ACWriter) Session() *MatrixSession { return a.s }

// Accumulate writes a real coefficient given in DC indices into both the real
// and the imaginary block, with no cross terms
func (a *ACWriter) Accumulate(row, col int, v float64) {
	rre, rim := a.layout.ACIndex(row)
	cre, cim := a.layout.ACIndex(col)
	a.s.Accumulate(rre, cre, v)
	a.s.Accumulate(rim, cim, v)
}

// AccumulateComplex writes the complex coefficient re + j*im given in DC
// indices
func (a *ACWriter) AccumulateComplex(row, col int, re, im float64) {
	rre, rim := a.layout.ACIndex(row)
	cre, cim := a.layout.ACIndex(col)
	a.s.Accumulate(rre, cre, re)
	a.s.Accumulate(rre, cim, -im)
	a.s.Accumulate(rim, cre, im)
	a.s.Accumulate(rim, cim, re)
}
