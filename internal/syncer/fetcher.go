package syncer

import (
	"context"

	"go.uber.org/zap"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
)

// APIClient is the provider surface the sync engine depends on. The
// Constellix implementation lives in internal/constellix; tests substitute
// mocks.
type APIClient interface {
	// ListRecords returns all record entries of the zone in model form,
	// possibly with several entries per (name, type) key.
	ListRecords(ctx context.Context, zone string) ([]*dnsmodel.Record, error)
	// CreateRecord creates a record set and returns the provider ids.
	CreateRecord(ctx context.Context, zone string, rec *dnsmodel.Record) ([]int64, error)
	// UpdateRecord replaces the content behind old's provider ids with updated.
	UpdateRecord(ctx context.Context, zone string, old, updated *dnsmodel.Record) error
	// DeleteRecord removes every provider entry backing the record set.
	DeleteRecord(ctx context.Context, zone string, rec *dnsmodel.Record) error
}

// UnsupportedPolicy decides what happens to record types the engine does not
// model. Either way the situation is logged; it is never silent.
type UnsupportedPolicy string

const (
	// DropWithWarning leaves unsupported records out of the fetched state.
	// They are invisible to the differ and therefore never touched.
	DropWithWarning UnsupportedPolicy = "drop"
	// PreserveOpaque keeps unsupported records in the zone as opaque
	// entries. They are still excluded from diffing, but remain visible to
	// callers inspecting the fetched state.
	PreserveOpaque UnsupportedPolicy = "preserve"
)

// Fetcher retrieves the live zone state and normalizes it into the common
// record model.
type Fetcher struct {
	client APIClient
	logger *zap.Logger
	policy UnsupportedPolicy
}

// NewFetcher creates a fetcher with the given unsupported-type policy.
// An empty policy defaults to DropWithWarning.
func NewFetcher(logger *zap.Logger, client APIClient, policy UnsupportedPolicy) *Fetcher {
	if policy == "" {
		policy = DropWithWarning
	}
	return &Fetcher{client: client, logger: logger, policy: policy}
}

// FetchZoneState lists the zone's records and groups them by (name, type),
// merging split provider entries into one record set per key. The result is
// built fresh on every call; nothing is cached between runs.
func (f *Fetcher) FetchZoneState(ctx context.Context, zoneName string) (*dnsmodel.Zone, error) {
	zone, err := dnsmodel.NewZone(zoneName)
	if err != nil {
		return nil, err
	}

	records, err := f.client.ListRecords(ctx, zoneName)
	if err != nil {
		return nil, err
	}

	grouped := make(map[dnsmodel.Key]*dnsmodel.Record)
	order := make([]dnsmodel.Key, 0, len(records))
	dropped := 0

	for _, rec := range records {
		if rec.Opaque && f.policy == DropWithWarning {
			f.logger.Warn("Dropping record of unsupported type",
				zap.String("zone", zone.Name),
				zap.String("name", rec.Name),
				zap.String("type", string(rec.Type)))
			dropped++
			continue
		}

		key := rec.Key()
		existing, ok := grouped[key]
		if !ok {
			grouped[key] = rec.Copy()
			order = append(order, key)
			continue
		}

		// Several raw entries for one key: merge into a single record set.
		// The first entry's TTL wins; a mismatch is worth knowing about.
		if existing.TTL != rec.TTL {
			f.logger.Warn("Split record set has inconsistent TTLs, keeping the first",
				zap.String("zone", zone.Name),
				zap.String("record", key.String()),
				zap.Int("kept", existing.TTL),
				zap.Int("ignored", rec.TTL))
		}
		existing.Values = append(existing.Values, rec.Values...)
		existing.ProviderIDs = append(existing.ProviderIDs, rec.ProviderIDs...)
	}

	for _, key := range order {
		if err := zone.AddRecord(grouped[key]); err != nil {
			return nil, err
		}
	}

	f.logger.Debug("Fetched zone state",
		zap.String("zone", zone.Name),
		zap.Int("records", zone.Len()),
		zap.Int("dropped_unsupported", dropped))
	return zone, nil
}
