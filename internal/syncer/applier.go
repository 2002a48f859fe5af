package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const defaultConcurrency = 4

// Applier executes a change plan against the API client. Operations run on a
// bounded worker pool; dependency edges are honored by waiting on the
// referenced operations' completion before starting. Failures are recorded
// per operation and independent work continues, unless fail-fast is set, in
// which case operations run sequentially and everything after the first
// failure is marked skipped. A dry-run applier never calls a mutating client
// method.
type Applier struct {
	client      APIClient
	logger      *zap.Logger
	concurrency int
	dryRun      bool
	failFast    bool
}

// NewApplier creates an applier. concurrency <= 0 selects the default.
func NewApplier(logger *zap.Logger, client APIClient, concurrency int, dryRun, failFast bool) *Applier {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Applier{
		client:      client,
		logger:      logger,
		concurrency: concurrency,
		dryRun:      dryRun,
		failFast:    failFast,
	}
}

// Apply runs the plan and returns the per-operation report, in plan order.
func (a *Applier) Apply(ctx context.Context, zone string, ops []ChangeOperation) *ChangeReport {
	report := &ChangeReport{
		Zone:    zone,
		DryRun:  a.dryRun,
		Results: make([]OperationResult, len(ops)),
	}
	for i := range ops {
		report.Results[i].Operation = ops[i]
	}
	if len(ops) == 0 {
		return report
	}

	workerCount := a.concurrency
	if a.failFast {
		// Fail-fast promises that nothing after the first failure is
		// attempted, which requires strictly ordered execution.
		workerCount = 1
	}
	if len(ops) < workerCount {
		workerCount = len(ops)
	}

	// done[i] is closed once ops[i] has settled; report.Results[i] is
	// written before the close, so dependents may read it afterwards.
	done := make([]chan struct{}, len(ops))
	for i := range done {
		done[i] = make(chan struct{})
	}

	taskChan := make(chan int, len(ops))
	for i := range ops {
		taskChan <- i
	}
	close(taskChan)

	var aborted atomic.Bool
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range taskChan {
				outcome, err := a.runOperation(ctx, zone, ops[idx], report, done)
				report.Results[idx].Outcome = outcome
				report.Results[idx].Err = err
				close(done[idx])

				if outcome == OutcomeFailed && a.failFast {
					aborted.Store(true)
				}
				if aborted.Load() {
					a.drainSkipped(taskChan, report, done)
					return
				}
			}
		}()
	}
	wg.Wait()

	a.logger.Info("Applied change plan", zap.String("summary", report.Summary()))
	return report
}

func (a *Applier) runOperation(ctx context.Context, zone string, op ChangeOperation, report *ChangeReport, done []chan struct{}) (Outcome, error) {
	for _, dep := range op.DependsOn {
		select {
		case <-done[dep]:
		case <-ctx.Done():
			return OutcomeSkipped, ctx.Err()
		}
		if report.Results[dep].Outcome != OutcomeSuccess {
			// The create half of a rename did not land; deleting the old
			// record now would leave the name unresolvable.
			a.logger.Warn("Skipping operation, dependency did not succeed",
				zap.String("zone", zone),
				zap.String("operation", op.String()),
				zap.String("dependency", report.Results[dep].Operation.String()))
			return OutcomeSkipped, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return OutcomeSkipped, err
	}

	if a.dryRun {
		a.logger.Info("Would apply operation (dry-run)",
			zap.String("zone", zone),
			zap.String("action", op.Action),
			zap.String("record", op.Record.Key().String()))
		return OutcomeSuccess, nil
	}

	var err error
	switch op.Action {
	case CREATE:
		_, err = a.client.CreateRecord(ctx, zone, op.Record)
	case UPDATE:
		err = a.client.UpdateRecord(ctx, zone, op.Old, op.Record)
	case DELETE:
		err = a.client.DeleteRecord(ctx, zone, op.Record)
	default:
		err = fmt.Errorf("unknown action: %s", op.Action)
	}
	if err != nil {
		a.logger.Error("Operation failed",
			zap.String("zone", zone),
			zap.String("action", op.Action),
			zap.String("record", op.Record.Key().String()),
			zap.Error(err))
		return OutcomeFailed, err
	}
	return OutcomeSuccess, nil
}

// drainSkipped marks every not-yet-started operation skipped after a
// fail-fast abort.
func (a *Applier) drainSkipped(taskChan <-chan int, report *ChangeReport, done []chan struct{}) {
	for idx := range taskChan {
		report.Results[idx].Outcome = OutcomeSkipped
		close(done[idx])
	}
}
