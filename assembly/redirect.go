package assembly

import "fmt"

// NoRow marks a redirection without a destination: the source row is only
// cleared.
const NoRow = -1

// Redirect moves the contents of row Src onto row Dst and, when Clear is set,
// empties Src afterwards
type Redirect struct {
	Src, Dst int
	Clear    bool
}

func (r Redirect) String() string {
	if r.Dst == NoRow {
		return fmt.Sprintf("clear %d", r.Src)
	}
	if r.Clear {
		return fmt.Sprintf("%d -> %d, clear %d", r.Src, r.Dst, r.Src)
	}
	return fmt.Sprintf("%d -> %d", r.Src, r.Dst)
}

// Redirections is an immutable list of row redirections
type Redirections struct {
	recs []Redirect
}

func NewRedirections(recs ...Redirect) (r Redirections) {
	for _, rec := range recs {
		if rec.Src < 0 || rec.Dst < NoRow {
			panic(fmt.Errorf("invalid redirection %v", rec))
		}
	}
	r.recs = append([]Redirect(nil), recs...)
	return
}

func (r Redirections) Len() int { return len(r.recs) }

func (r Redirections) At(i int) Redirect { return r.recs[i] }

// Records returns a copy of the records in insertion order
func (r Redirections) Records() []Redirect { return append([]Redirect(nil), r.recs...) }

// Append returns a new value holding the records of r followed by those of o
func (r Redirections) Append(o Redirections) Redirections {
	recs := make([]Redirect, 0, len(r.recs)+len(o.recs))
	recs = append(recs, r.recs...)
	recs = append(recs, o.recs...)
	return Redirections{recs: recs}
}

// ToAC maps every record onto the doubled real/imaginary layout: one record
// for the real rows and one for the imaginary rows.
func (r Redirections) ToAC(l Layout) Redirections {
	recs := make([]Redirect, 0, 2*len(r.recs))
	for _, rec := range r.recs {
		sre, sim := l.ACIndex(rec.Src)
		dre, dim := NoRow, NoRow
		if rec.Dst != NoRow {
			dre, dim = l.ACIndex(rec.Dst)
		}
		recs = append(recs,
			Redirect{Src: sre, Dst: dre, Clear: rec.Clear},
			Redirect{Src: sim, Dst: dim, Clear: rec.Clear})
	}
	return Redirections{recs: recs}
}
