package syncer

import (
	"fmt"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
)

const (
	CREATE = "CREATE"
	UPDATE = "UPDATE"
	DELETE = "DELETE"
)

// ChangeOperation is one step of the edit script produced by the differ.
// Record is the target state: the new record for CREATE and UPDATE, the
// existing record for DELETE. Old carries the current state for UPDATE and
// DELETE, including the provider record ids the applier needs.
type ChangeOperation struct {
	Action string
	Record *dnsmodel.Record
	Old    *dnsmodel.Record

	// DependsOn lists indices of operations in the same plan that must
	// finish before this one may start. Populated for deletes that share an
	// owner name or a target value with an earlier create or update, so a
	// rename never opens a window with no valid record.
	DependsOn []int
}

func (op ChangeOperation) String() string {
	return fmt.Sprintf("%s %s", op.Action, op.Record.Key())
}

// Outcome of a single applied operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	// OutcomeSkipped marks operations not attempted: remaining work after a
	// fail-fast abort, or operations whose dependencies failed.
	OutcomeSkipped Outcome = "skipped"
)

// OperationResult pairs an operation with what happened to it.
type OperationResult struct {
	Operation ChangeOperation
	Outcome   Outcome
	Err       error
}

// ChangeReport is the outcome of one sync run, in plan order.
type ChangeReport struct {
	Zone    string
	DryRun  bool
	Results []OperationResult
}

// Count returns how many results carry the given outcome.
func (r *ChangeReport) Count(outcome Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

// OK reports whether the run completed without any failed operation.
func (r *ChangeReport) OK() bool {
	return r.Count(OutcomeFailed) == 0
}

// ExitCode maps the report onto a process exit status: 0 when every
// operation succeeded or the run was a dry run, 1 otherwise.
func (r *ChangeReport) ExitCode() int {
	if r.DryRun || r.OK() {
		return 0
	}
	return 1
}

// Summary renders a one-line overview for logs and CLI output.
func (r *ChangeReport) Summary() string {
	return fmt.Sprintf("zone=%s total=%d success=%d failed=%d skipped=%d dry_run=%t",
		r.Zone, len(r.Results),
		r.Count(OutcomeSuccess), r.Count(OutcomeFailed), r.Count(OutcomeSkipped),
		r.DryRun)
}
