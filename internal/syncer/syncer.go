package syncer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
)

// Options control a single sync run.
type Options struct {
	// DryRun computes and reports the plan without mutating anything.
	DryRun bool
	// FailFast aborts remaining operations on the first failure.
	FailFast bool
	// RecordTypeFilter restricts the run to the listed types; records of
	// other types are excluded from both current and desired state before
	// diffing, so unmanaged types are never touched. Empty means all
	// supported types.
	RecordTypeFilter []dnsmodel.Type
	// Concurrency bounds parallel dispatch during apply. <= 0 uses the
	// default. Ignored under FailFast, which is sequential.
	Concurrency int
	// Timeout caps the whole run, retry waits included. Zero means no
	// per-run deadline beyond the caller's context.
	Timeout time.Duration
}

// Syncer is the top-level orchestrator: fetch current state, diff against
// desired, apply the plan, report. One Syncer may serve many zones; each
// Sync call owns its own state.
type Syncer struct {
	client  APIClient
	fetcher *Fetcher
	logger  *zap.Logger
}

// New creates a syncer on top of the given API client.
func New(logger *zap.Logger, client APIClient, policy UnsupportedPolicy) *Syncer {
	return &Syncer{
		client:  client,
		fetcher: NewFetcher(logger.With(zap.String("component", "fetcher")), client, policy),
		logger:  logger,
	}
}

// FetchZoneState returns the live state of a zone in model form.
func (s *Syncer) FetchZoneState(ctx context.Context, zoneName string) (*dnsmodel.Zone, error) {
	return s.fetcher.FetchZoneState(ctx, zoneName)
}

// Sync reconciles the zone's live state with desired and returns the change
// report. Desired state is never mutated. A fetch failure is fatal for the
// run: there is no safe diff against unknown state.
func (s *Syncer) Sync(ctx context.Context, zoneName string, desired *dnsmodel.Zone, opts Options) (*ChangeReport, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	current, err := s.fetcher.FetchZoneState(ctx, zoneName)
	if err != nil {
		return nil, fmt.Errorf("fetching current state of %s: %w", zoneName, err)
	}

	keep := typeFilter(opts.RecordTypeFilter)
	currentFiltered := current.Filter(keep)
	desiredFiltered := desired.Filter(keep)

	ops := ComputeChanges(currentFiltered, desiredFiltered)
	s.logger.Info("Computed change plan",
		zap.String("zone", current.Name),
		zap.Int("current_records", currentFiltered.Len()),
		zap.Int("desired_records", desiredFiltered.Len()),
		zap.Int("operations", len(ops)),
		zap.Bool("dry_run", opts.DryRun))

	applier := NewApplier(
		s.logger.With(zap.String("component", "applier")),
		s.client, opts.Concurrency, opts.DryRun, opts.FailFast)
	return applier.Apply(ctx, zoneName, ops), nil
}

func typeFilter(types []dnsmodel.Type) map[dnsmodel.Type]bool {
	if len(types) == 0 {
		return nil
	}
	keep := make(map[dnsmodel.Type]bool, len(types))
	for _, t := range types {
		keep[t] = true
	}
	return keep
}
