package assembly

import (
	"context"

	"github.com/notargets/gosemi/parallel"
	"github.com/notargets/gosemi/types"
	"gonum.org/v1/gonum/mat"
)

// Vector is distributed by rows: rank n stores the rows of bucket n of the
// partition map in a dense block.
type Vector struct {
	exchange
	blocks []*mat.VecDense // nil for an empty bucket
}

func NewVector(name string, pm *parallel.PartitionMap) (v *Vector) {
	v = &Vector{
		exchange: newExchange(name, pm),
		blocks:   make([]*mat.VecDense, pm.ParallelDegree),
	}
	for n := range v.blocks {
		if size := pm.GetBucketDimension(n); size > 0 {
			v.blocks[n] = mat.NewVecDense(size, nil)
		}
	}
	return
}

func (v *Vector) Name() string { return v.name }
func (v *Vector) Size() int    { return v.pm.MaxIndex }

func (v *Vector) Partition() *parallel.PartitionMap { return v.pm }

// At reads a global row from the owner's block. Values written by other ranks
// are only visible after Assemble.
func (v *Vector) At(row int) float64 {
	bn, li := ownerOf(v.pm, row)
	return v.blocks[bn].AtVec(li)
}

// Dense gathers all blocks into one vector
func (v *Vector) Dense() (d *mat.VecDense) {
	if v.Size() == 0 {
		return
	}
	d = mat.NewVecDense(v.Size(), nil)
	for n, blk := range v.blocks {
		if blk == nil {
			continue
		}
		kmin, kmax := v.pm.GetBucketRange(n)
		d.SliceVec(kmin, kmax).(*mat.VecDense).CopyVec(blk)
	}
	return
}

func (v *Vector) apply(rank int, e Entry) {
	_, li := ownerOf(v.pm, e.Row)
	blk := v.blocks[rank]
	switch e.Mode {
	case types.InsertValues:
		blk.SetVec(li, e.Value)
	default:
		blk.SetVec(li, blk.AtVec(li)+e.Value)
	}
}

func (v *Vector) snapshotRows(rank int, rows []int) (snaps map[int][]Entry) {
	snaps = make(map[int][]Entry, len(rows))
	for _, row := range rows {
		_, li := ownerOf(v.pm, row)
		snaps[row] = []Entry{{Row: row, Value: v.blocks[rank].AtVec(li)}}
	}
	return
}

func (v *Vector) clearRows(rank int, rows []int) {
	for _, row := range rows {
		_, li := ownerOf(v.pm, row)
		v.blocks[rank].SetVec(li, 0)
	}
}

// Session returns the write handle of one rank
func (v *Vector) Session(r parallel.Rank) *VectorSession {
	return &VectorSession{session{st: v, rank: r}}
}

type VectorSession struct {
	session
}

func (s *VectorSession) Vector() *Vector { return s.st.(*Vector) }

func (s *VectorSession) Accumulate(row int, val float64) {
	s.write(row, Entry{Row: row, Value: val, Mode: types.AddValues})
}

func (s *VectorSession) Overwrite(row int, val float64) {
	s.write(row, Entry{Row: row, Value: val, Mode: types.InsertValues})
}

// TransplantAndClear is collective. See Redirect.
func (s *VectorSession) TransplantAndClear(ctx context.Context, recs Redirections) error {
	return s.transplantAndClear(ctx, recs, func(dst int, e Entry) {
		s.Accumulate(dst, e.Value)
	})
}
