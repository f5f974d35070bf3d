package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/notargets/gosemi/assembly"
	"github.com/notargets/gosemi/bc"
	"github.com/notargets/gosemi/fvm"
	"github.com/notargets/gosemi/parallel"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

/*
Evaluator assembles the residual and Jacobian of a device, one goroutine per
rank. The order inside one DC evaluation is fixed:

	bulk residual and Jacobian of every region
	assemble
	Preprocess of every boundary condition
	TransplantAndClear on the residual and the Jacobian
	Function and Jacobian of every boundary condition
	assemble

The AC path fills the doubled real system the same way, starting from the
bulk AC fill and using ACPreprocess and FillAC.
*/
type Evaluator struct {
	dirs     []*fvm.Directory
	world    *parallel.World
	machines [][]*bc.Machine // per rank, in condition order
	logger   *zap.Logger
}

// DCResult holds the assembled system of one DC evaluation
type DCResult struct {
	RunID uuid.UUID
	F     *assembly.Vector
	J     *assembly.Matrix
	Norm  float64 // L2 norm of F
}

type ACResult struct {
	RunID uuid.UUID
	Omega float64
	A     *assembly.Matrix
}

// NewEvaluator builds every boundary condition on every rank of dirs
func NewEvaluator(dirs []*fvm.Directory, specs []bc.Spec, logger *zap.Logger) (ev *Evaluator, err error) {
	if len(dirs) == 0 {
		err = fmt.Errorf("evaluator needs at least one rank")
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ev = &Evaluator{
		dirs:     dirs,
		world:    parallel.NewWorld(len(dirs), logger),
		machines: make([][]*bc.Machine, len(dirs)),
		logger:   logger,
	}
	for rank, d := range dirs {
		for _, spec := range specs {
			var cond bc.BoundaryCondition
			if cond, err = bc.New(spec, d, logger); err != nil {
				return nil, err
			}
			ev.machines[rank] = append(ev.machines[rank], bc.NewMachine(cond))
		}
	}
	return
}

func (ev *Evaluator) NP() int                           { return len(ev.dirs) }
func (ev *Evaluator) Directory(rank int) *fvm.Directory { return ev.dirs[rank] }

func (ev *Evaluator) reset() {
	for _, ms := range ev.machines {
		for _, m := range ms {
			m.Reset()
		}
	}
}

func bulkRegions(d *fvm.Directory) (brs []fvm.BulkRegion) {
	for _, r := range d.Regions() {
		if br, ok := r.(fvm.BulkRegion); ok {
			brs = append(brs, br)
		}
	}
	return
}

// DC evaluates the residual and the Jacobian at the global solution x
func (ev *Evaluator) DC(ctx context.Context, x []float64) (res DCResult, err error) {
	var (
		pm    = ev.dirs[0].Partition()
		start = time.Now()
	)
	if len(x) != pm.MaxIndex {
		err = fmt.Errorf("solution has %d rows, want %d", len(x), pm.MaxIndex)
		return
	}
	res = DCResult{
		RunID: uuid.New(),
		F:     assembly.NewVector("residual", pm),
		J:     assembly.NewMatrix("jacobian", pm),
	}
	ev.reset()
	err = ev.world.Run(ctx, func(ctx context.Context, r parallel.Rank) (err error) {
		var (
			d    = ev.dirs[r.ID]
			xl   = d.Gather(x)
			fs   = res.F.Session(r)
			js   = res.J.Session(r)
			recs assembly.Redirections
		)
		for _, br := range bulkRegions(d) {
			if err = br.BulkFunction(d, xl, fs); err != nil {
				return
			}
			if err = br.BulkJacobian(d, xl, js); err != nil {
				return
			}
		}
		if err = fs.Assemble(ctx); err != nil {
			return
		}
		if err = js.Assemble(ctx); err != nil {
			return
		}
		for _, m := range ev.machines[r.ID] {
			var mRecs assembly.Redirections
			if mRecs, err = m.Preprocess(); err != nil {
				return
			}
			recs = recs.Append(mRecs)
		}
		if err = fs.TransplantAndClear(ctx, recs); err != nil {
			return
		}
		if err = js.TransplantAndClear(ctx, recs); err != nil {
			return
		}
		for _, m := range ev.machines[r.ID] {
			if err = m.Function(xl, fs); err != nil {
				return
			}
			if err = m.Jacobian(xl, js); err != nil {
				return
			}
		}
		if err = fs.Assemble(ctx); err != nil {
			return
		}
		return js.Assemble(ctx)
	})
	if err != nil {
		err = fmt.Errorf("dc evaluation %s: %w", res.RunID, err)
		return
	}
	res.Norm = floats.Norm(res.F.Dense().RawVector().Data, 2)
	ev.logger.Info("dc evaluation",
		zap.Stringer("run", res.RunID),
		zap.Int("ranks", ev.NP()),
		zap.Int("rows", pm.MaxIndex),
		zap.Int("nnz", res.J.NNZ()),
		zap.Float64("norm", res.Norm),
		zap.Duration("elapsed", time.Since(start)))
	return
}

// AC fills the small signal matrix at angular frequency omega around the DC
// solution x
func (ev *Evaluator) AC(ctx context.Context, x []float64, omega float64) (res ACResult, err error) {
	var (
		pm    = ev.dirs[0].Partition()
		start = time.Now()
	)
	if len(x) != pm.MaxIndex {
		err = fmt.Errorf("solution has %d rows, want %d", len(x), pm.MaxIndex)
		return
	}
	res = ACResult{
		RunID: uuid.New(),
		Omega: omega,
		A:     assembly.NewMatrix("ac", pm.Scale(2)),
	}
	ev.reset()
	err = ev.world.Run(ctx, func(ctx context.Context, r parallel.Rank) (err error) {
		var (
			d    = ev.dirs[r.ID]
			xl   = d.Gather(x)
			a    = assembly.NewACWriter(res.A.Session(r), d)
			recs assembly.Redirections
		)
		for _, br := range bulkRegions(d) {
			if err = br.BulkAC(d, xl, a, omega); err != nil {
				return
			}
		}
		if err = a.Session().Assemble(ctx); err != nil {
			return
		}
		for _, m := range ev.machines[r.ID] {
			var mRecs assembly.Redirections
			if mRecs, err = m.ACPreprocess(); err != nil {
				return
			}
			recs = recs.Append(mRecs)
		}
		if err = a.Session().TransplantAndClear(ctx, recs); err != nil {
			return
		}
		for _, m := range ev.machines[r.ID] {
			if err = m.FillAC(xl, a, omega); err != nil {
				return
			}
		}
		return a.Session().Assemble(ctx)
	})
	if err != nil {
		err = fmt.Errorf("ac evaluation %s: %w", res.RunID, err)
		return
	}
	ev.logger.Info("ac evaluation",
		zap.Stringer("run", res.RunID),
		zap.Float64("omega", omega),
		zap.Int("rows", res.A.Size()),
		zap.Int("nnz", res.A.NNZ()),
		zap.Duration("elapsed", time.Since(start)))
	return
}
