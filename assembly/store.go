package assembly

import (
	"context"
	"fmt"
	"sort"

	"github.com/notargets/gosemi/parallel"
	"github.com/notargets/gosemi/types"
)

// Entry is one pending or stored value. Vectors leave Col at zero.
type Entry struct {
	Row, Col int
	Value    float64
	Mode     types.InsertMode
	// Ordering key for writes that travel to another rank
	Epoch, Src, Seq int
}

// store is the rank local side of a distributed vector or matrix
type store interface {
	partition() *parallel.PartitionMap
	apply(rank int, e Entry)
	snapshotRows(rank int, rows []int) map[int][]Entry
	clearRows(rank int, rows []int)
	entries() *parallel.MailBox[Entry]
	moves() *parallel.MailBox[Redirect]
}

type exchange struct {
	name string
	pm   *parallel.PartitionMap
	mbE  *parallel.MailBox[Entry]
	mbR  *parallel.MailBox[Redirect]
}

func newExchange(name string, pm *parallel.PartitionMap) exchange {
	return exchange{
		name: name,
		pm:   pm,
		mbE:  parallel.NewMailBox[Entry](pm.ParallelDegree),
		mbR:  parallel.NewMailBox[Redirect](pm.ParallelDegree),
	}
}

func (x *exchange) partition() *parallel.PartitionMap  { return x.pm }
func (x *exchange) entries() *parallel.MailBox[Entry]  { return x.mbE }
func (x *exchange) moves() *parallel.MailBox[Redirect] { return x.mbR }

/*
session tracks the insertion mode of one rank's writes. Writes to owned rows
land immediately, writes to rows of other ranks are queued and applied by the
owner during the collective Assemble, ordered by (Epoch, Src, Seq). Switching
between adding and inserting starts a new epoch so a later overwrite lands
after every earlier addition from the same rank.
*/
type session struct {
	st    store
	rank  parallel.Rank
	mode  types.InsertMode
	epoch int
	seq   int
}

func (s *session) write(row int, e Entry) {
	if s.mode != types.NotSetValues && s.mode != e.Mode {
		s.Flush()
	}
	s.mode = e.Mode
	var (
		pm    = s.st.partition()
		bn, _ = ownerOf(pm, row)
	)
	if bn == s.rank.ID {
		s.st.apply(s.rank.ID, e)
		return
	}
	e.Epoch, e.Src, e.Seq = s.epoch, s.rank.ID, s.seq
	s.seq++
	s.st.entries().PostMessage(s.rank.ID, bn, e)
}

// ownerOf panics for rows outside [0, N)
func ownerOf(pm *parallel.PartitionMap, row int) (bn, local int) {
	if local, bn = pm.GetLocalK(row); bn == -1 {
		panic(fmt.Errorf("row %d outside [0, %d)", row, pm.MaxIndex))
	}
	return
}

func (s *session) Mode() types.InsertMode { return s.mode }

// Flush closes the current run of same mode writes
func (s *session) Flush() {
	if s.mode != types.NotSetValues {
		s.epoch++
	}
	s.mode = types.NotSetValues
}

// Assemble is collective: every rank of the world must call it
func (s *session) Assemble(ctx context.Context) (err error) {
	var (
		id = s.rank.ID
		mb = s.st.entries()
	)
	mb.DeliverMyMessages(id)
	if err = s.rank.Barrier(ctx); err != nil {
		return
	}
	mb.ReceiveMyMessages(id)
	msgs := mb.MyMessages(id)
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if a.Epoch != b.Epoch {
			return a.Epoch < b.Epoch
		}
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		return a.Seq < b.Seq
	})
	for _, e := range msgs {
		s.st.apply(id, e)
	}
	mb.ClearMyMessages(id)
	s.mode, s.epoch, s.seq = types.NotSetValues, 0, 0
	err = s.rank.Barrier(ctx)
	return
}

/*
transplantAndClear is collective. Pending writes are assembled first, then each
record is routed to the rank owning its source row. The owner snapshots every
source row, clears the rows marked for clearing and adds the snapshots onto the
destination rows. A final assemble lands the remote additions, so on return
every cleared row is empty and every destination holds its original contents
plus the moved source contents.
*/
func (s *session) transplantAndClear(ctx context.Context, recs Redirections,
	move func(dst int, e Entry)) (err error) {
	var (
		id = s.rank.ID
		mb = s.st.moves()
		pm = s.st.partition()
	)
	if err = s.Assemble(ctx); err != nil {
		return
	}
	var mine []Redirect
	for _, rec := range recs.recs {
		if rec.Dst != NoRow {
			ownerOf(pm, rec.Dst)
		}
		bn, _ := ownerOf(pm, rec.Src)
		if bn == id {
			mine = append(mine, rec)
			continue
		}
		mb.PostMessage(id, bn, rec)
	}
	mb.DeliverMyMessages(id)
	if err = s.rank.Barrier(ctx); err != nil {
		return
	}
	mb.ReceiveMyMessages(id)
	mine = append(mine, mb.MyMessages(id)...)
	mb.ClearMyMessages(id)

	mine = dedupe(mine)

	var (
		srcRows   = make([]int, 0, len(mine))
		clearRows = make([]int, 0, len(mine))
	)
	for _, rec := range mine {
		srcRows = append(srcRows, rec.Src)
		if rec.Clear || rec.Dst == NoRow {
			clearRows = append(clearRows, rec.Src)
		}
	}
	snaps := s.st.snapshotRows(id, srcRows)
	s.st.clearRows(id, clearRows)
	for _, rec := range mine {
		if rec.Dst == NoRow {
			continue
		}
		for _, e := range snaps[rec.Src] {
			move(rec.Dst, e)
		}
	}
	err = s.Assemble(ctx)
	return
}

// dedupe merges records with the same source and destination so a source row
// is moved onto a destination once, keeping the clear flag if any copy has it
func dedupe(recs []Redirect) (out []Redirect) {
	type pair struct{ src, dst int }
	var (
		at = make(map[pair]int, len(recs))
	)
	for _, rec := range recs {
		k := pair{rec.Src, rec.Dst}
		if i, ok := at[k]; ok {
			out[i].Clear = out[i].Clear || rec.Clear
			continue
		}
		at[k] = len(out)
		out = append(out, rec)
	}
	return
}
