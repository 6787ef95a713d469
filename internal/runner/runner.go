// Package runner executes compiled plans against an engine and records every
// statement outcome in the run history.
//
// Execution is sequential in plan order by default. With a parallelism limit
// above one, steps run wave by wave: waves are executed in order, and the
// steps inside a wave run concurrently because they cannot depend on each
// other. The first failure aborts the run; everything not yet submitted is
// recorded as skipped, never silently dropped.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sluice/internal/plan"
	"github.com/leapstack-labs/sluice/internal/state"
	"github.com/leapstack-labs/sluice/pkg/core"
	"github.com/leapstack-labs/sluice/pkg/engine"
)

// Options control how a plan is executed.
type Options struct {
	// Parallel is the maximum number of steps in flight at once. Values
	// below two mean sequential execution in plan order.
	Parallel int
}

// Result summarizes a finished run, counting resources rather than
// individual statements.
type Result struct {
	Run       *core.Run
	Succeeded int
	Failed    int
	Skipped   int
}

// Runner applies plans through an engine client.
type Runner struct {
	client engine.Client
	store  *state.Store
	target string
	logger *slog.Logger
}

// New creates a runner for a connected client. The store must be open and
// migrated; target names the profile the run is recorded under.
func New(client engine.Client, store *state.Store, target string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{client: client, store: store, target: target, logger: logger}
}

// Apply executes every step of the plan and records the run. The command
// names the CLI verb for the history ("apply", "source create"). Apply
// returns the first execution error together with the result; the result is
// non-nil whenever a run record was created.
func (r *Runner) Apply(ctx context.Context, p *plan.Plan, command string, opts Options) (*Result, error) {
	r.logger.Info("starting run",
		slog.String("target", r.target),
		slog.String("command", command),
		slog.Int("steps", len(p.Steps)))

	run, err := r.store.BeginRun(r.target, command)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	r.logger.Debug("created run", slog.String("run_id", run.ID))

	res := &Result{Run: run}
	var runErr error
	if opts.Parallel > 1 && len(p.Waves) > 0 {
		runErr = r.applyWaves(ctx, run.ID, p, opts.Parallel, res)
	} else {
		runErr = r.applySequential(ctx, run.ID, p.Steps, res)
	}

	if runErr != nil {
		r.logger.Info("run failed", slog.String("run_id", run.ID), slog.String("error", runErr.Error()))
		_ = r.store.FinishRun(run.ID, core.RunStatusFailed, runErr.Error())
	} else {
		r.logger.Info("run completed", slog.String("run_id", run.ID), slog.Int("resources", res.Succeeded))
		_ = r.store.FinishRun(run.ID, core.RunStatusCompleted, "")
	}

	if updated, err := r.store.GetRun(run.ID); err == nil {
		res.Run = updated
	}
	return res, runErr
}

// applySequential runs steps one after another in plan order. After the
// first failure every remaining step is recorded as skipped.
func (r *Runner) applySequential(ctx context.Context, runID string, steps []plan.Step, res *Result) error {
	for i, step := range steps {
		if err := r.executeStep(ctx, runID, step); err != nil {
			res.Failed++
			reason := fmt.Sprintf("skipped: upstream %s failed", step.Key)
			for _, rest := range steps[i+1:] {
				r.skipStep(runID, rest, reason)
				res.Skipped++
			}
			return err
		}
		res.Succeeded++
	}
	return nil
}

// applyWaves runs the plan wave by wave with up to parallel steps in flight.
func (r *Runner) applyWaves(ctx context.Context, runID string, p *plan.Plan, parallel int, res *Result) error {
	stepsByKey := make(map[string]plan.Step, len(p.Steps))
	for _, s := range p.Steps {
		stepsByKey[s.Key] = s
	}

	var (
		fail firstFailure
		mu   sync.Mutex
	)

	for _, wave := range p.Waves {
		if key, ferr := fail.get(); ferr != nil {
			reason := fmt.Sprintf("skipped: upstream %s failed", key)
			for _, k := range wave {
				r.skipStep(runID, stepsByKey[k], reason)
				res.Skipped++
			}
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallel)
		for _, key := range wave {
			step := stepsByKey[key]
			g.Go(func() error {
				if gctx.Err() != nil {
					reason := "skipped: run cancelled"
					if fkey, ferr := fail.get(); ferr != nil {
						reason = fmt.Sprintf("skipped: upstream %s failed", fkey)
					}
					r.skipStep(runID, step, reason)
					mu.Lock()
					res.Skipped++
					mu.Unlock()
					return nil
				}
				if err := r.executeStep(gctx, runID, step); err != nil {
					fail.set(step.Key, err)
					mu.Lock()
					res.Failed++
					mu.Unlock()
					return err
				}
				mu.Lock()
				res.Succeeded++
				mu.Unlock()
				return nil
			})
		}
		// The first error is kept in fail; later waves are skipped above.
		_ = g.Wait()
	}

	if _, err := fail.get(); err != nil {
		return err
	}
	return ctx.Err()
}

// executeStep submits every statement of a step in order. The first failure
// marks the step's remaining statements skipped and aborts the step.
func (r *Runner) executeStep(ctx context.Context, runID string, step plan.Step) error {
	for i, stmt := range step.Statements {
		id, err := r.store.StartStatement(runID, step.Key, step.Kind.String(), stmt)
		if err != nil {
			return fmt.Errorf("failed to record statement: %w", err)
		}

		start := time.Now()
		submitErr := r.client.Submit(ctx, stmt)
		execMS := time.Since(start).Milliseconds()

		if submitErr != nil {
			r.logger.Debug("statement failed",
				slog.String("resource", step.Key),
				slog.String("error", submitErr.Error()))
			_ = r.store.FinishStatement(id, core.StatementStatusFailed, submitErr.Error())

			reason := "skipped: earlier statement of this resource failed"
			for _, rest := range step.Statements[i+1:] {
				_ = r.store.SkipStatement(runID, step.Key, step.Kind.String(), rest, reason)
			}
			return fmt.Errorf("%s: %w", step.Key, submitErr)
		}

		r.logger.Debug("statement executed",
			slog.String("resource", step.Key),
			slog.Int64("exec_ms", execMS))
		_ = r.store.FinishStatement(id, core.StatementStatusSuccess, "")
	}
	return nil
}

// skipStep records every statement of a step as skipped.
func (r *Runner) skipStep(runID string, step plan.Step, reason string) {
	for _, stmt := range step.Statements {
		_ = r.store.SkipStatement(runID, step.Key, step.Kind.String(), stmt, reason)
	}
}

// firstFailure keeps the first step failure of a run. Later failures are
// still recorded in the statement history but do not replace the run error.
type firstFailure struct {
	mu  sync.Mutex
	key string
	err error
}

func (f *firstFailure) set(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		f.key, f.err = key, err
	}
}

func (f *firstFailure) get() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.key, f.err
}
