package assembly

import (
	"context"
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/notargets/gosemi/parallel"
	"github.com/notargets/gosemi/types"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a square sparse matrix distributed by rows. Rank n stores the
// rows of bucket n as a dictionary of keys over all columns.
type Matrix struct {
	exchange
	blocks []*sparse.DOK // nil for an empty bucket
}

func NewMatrix(name string, pm *parallel.PartitionMap) (m *Matrix) {
	m = &Matrix{
		exchange: newExchange(name, pm),
		blocks:   make([]*sparse.DOK, pm.ParallelDegree),
	}
	for n := range m.blocks {
		if size := pm.GetBucketDimension(n); size > 0 {
			m.blocks[n] = sparse.NewDOK(size, pm.MaxIndex)
		}
	}
	return
}

func (m *Matrix) Name() string { return m.name }
func (m *Matrix) Size() int    { return m.pm.MaxIndex }

func (m *Matrix) Partition() *parallel.PartitionMap { return m.pm }

func (m *Matrix) checkCol(col int) {
	if col < 0 || col >= m.pm.MaxIndex {
		panic(fmt.Errorf("%s: column %d outside [0, %d)", m.name, col, m.pm.MaxIndex))
	}
}

func (m *Matrix) At(row, col int) float64 {
	m.checkCol(col)
	bn, li := ownerOf(m.pm, row)
	return m.blocks[bn].At(li, col)
}

// Row returns the non-zero entries of a global row sorted by column
func (m *Matrix) Row(row int) (entries []Entry) {
	bn, li := ownerOf(m.pm, row)
	m.blocks[bn].DoNonZero(func(i, j int, v float64) {
		if i == li && v != 0 {
			entries = append(entries, Entry{Row: row, Col: j, Value: v})
		}
	})
	sort.Slice(entries, func(a, b int) bool { return entries[a].Col < entries[b].Col })
	return
}

func (m *Matrix) NNZRow(row int) int { return len(m.Row(row)) }

// NNZ counts the non-zero entries of the whole matrix
func (m *Matrix) NNZ() (nnz int) {
	for _, blk := range m.blocks {
		if blk == nil {
			continue
		}
		blk.DoNonZero(func(i, j int, v float64) {
			if v != 0 {
				nnz++
			}
		})
	}
	return
}

func (m *Matrix) global() (g *sparse.DOK) {
	g = sparse.NewDOK(m.Size(), m.Size())
	for n, blk := range m.blocks {
		if blk == nil {
			continue
		}
		blk.DoNonZero(func(i, j int, v float64) {
			if v != 0 {
				g.Set(m.pm.GetGlobalK(i, n), j, v)
			}
		})
	}
	return
}

// Dense gathers all rows into a dense matrix, nil when the matrix is empty
func (m *Matrix) Dense() (d *mat.Dense) {
	if m.Size() == 0 {
		return
	}
	d = mat.DenseCopyOf(m.global())
	return
}

func (m *Matrix) CSR() *sparse.CSR {
	return m.global().ToCSR()
}

func (m *Matrix) apply(rank int, e Entry) {
	m.checkCol(e.Col)
	_, li := ownerOf(m.pm, e.Row)
	blk := m.blocks[rank]
	switch e.Mode {
	case types.InsertValues:
		blk.Set(li, e.Col, e.Value)
	default:
		blk.Set(li, e.Col, blk.At(li, e.Col)+e.Value)
	}
}

func (m *Matrix) snapshotRows(rank int, rows []int) (snaps map[int][]Entry) {
	var (
		want = make(map[int]bool, len(rows))
	)
	snaps = make(map[int][]Entry, len(rows))
	for _, row := range rows {
		_, li := ownerOf(m.pm, row)
		want[li] = true
	}
	if len(want) == 0 {
		return
	}
	m.blocks[rank].DoNonZero(func(i, j int, v float64) {
		if want[i] && v != 0 {
			row := m.pm.GetGlobalK(i, rank)
			snaps[row] = append(snaps[row], Entry{Row: row, Col: j, Value: v})
		}
	})
	for row := range snaps {
		s := snaps[row]
		sort.Slice(s, func(a, b int) bool { return s[a].Col < s[b].Col })
	}
	return
}

// clearRows rebuilds the rank's block without the cleared rows, a DOK keeps
// explicit zeros as stored entries
func (m *Matrix) clearRows(rank int, rows []int) {
	if len(rows) == 0 {
		return
	}
	var (
		drop = make(map[int]bool, len(rows))
		old  = m.blocks[rank]
	)
	for _, row := range rows {
		_, li := ownerOf(m.pm, row)
		drop[li] = true
	}
	r, c := old.Dims()
	blk := sparse.NewDOK(r, c)
	old.DoNonZero(func(i, j int, v float64) {
		if !drop[i] {
			blk.Set(i, j, v)
		}
	})
	m.blocks[rank] = blk
}

func (m *Matrix) Session(r parallel.Rank) *MatrixSession {
	return &MatrixSession{session{st: m, rank: r}}
}

// JacobianWriter receives additive Jacobian entries in DC global indices
type JacobianWriter interface {
	Accumulate(row, col int, v float64)
}

type MatrixSession struct {
	session
}

func (s *MatrixSession) Matrix() *Matrix { return s.st.(*Matrix) }

func (s *MatrixSession) Accumulate(row, col int, v float64) {
	s.Matrix().checkCol(col)
	s.write(row, Entry{Row: row, Col: col, Value: v, Mode: types.AddValues})
}

func (s *MatrixSession) Overwrite(row, col int, v float64) {
	s.Matrix().checkCol(col)
	s.write(row, Entry{Row: row, Col: col, Value: v, Mode: types.InsertValues})
}

// TransplantAndClear is collective. See Redirect.
func (s *MatrixSession) TransplantAndClear(ctx context.Context, recs Redirections) error {
	return s.transplantAndClear(ctx, recs, func(dst int, e Entry) {
		s.Accumulate(dst, e.Col, e.Value)
	})
}
