package constellix

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
)

// DecodeRecord converts one raw Constellix entry into the common record
// model. Provider-specific value encodings (MX "level", flattened SRV fields,
// CAA flag/tag/data) are normalized here and never leak past this boundary.
// Unsupported types come back as opaque records; the fetcher decides their
// fate by policy.
func DecodeRecord(raw RawRecord) *dnsmodel.Record {
	rec := &dnsmodel.Record{
		// Owner names are matched case-insensitively; desired-state names
		// come in lowercase, so fetched names must be keyed the same way.
		Name: strings.ToLower(raw.Name),
		Type: dnsmodel.Type(raw.Type),
		TTL:  raw.TTL,
	}
	if raw.ID != 0 {
		rec.ProviderIDs = []int64{raw.ID}
	}

	switch rec.Type {
	case dnsmodel.TypeCNAME:
		rec.Values = []dnsmodel.Value{{Target: raw.ValueString}}
	case dnsmodel.TypeMX:
		for _, v := range raw.ValueList {
			rec.Values = append(rec.Values, dnsmodel.Value{
				Target:   v.Value,
				Priority: v.Level,
			})
		}
	case dnsmodel.TypeSRV:
		for _, v := range raw.ValueList {
			rec.Values = append(rec.Values, dnsmodel.Value{
				Target:   v.Value,
				Priority: v.Priority,
				Weight:   v.Weight,
				Port:     v.Port,
			})
		}
	case dnsmodel.TypeCAA:
		for _, v := range raw.ValueList {
			rec.Values = append(rec.Values, dnsmodel.Value{
				Target: v.Data,
				Flags:  v.Flag,
				Tag:    v.Tag,
			})
		}
	case dnsmodel.TypeA, dnsmodel.TypeAAAA, dnsmodel.TypeALIAS, dnsmodel.TypeNS,
		dnsmodel.TypePTR, dnsmodel.TypeSPF, dnsmodel.TypeTXT:
		rec.Values = rawValues(raw)
	default:
		rec.Opaque = true
		rec.Values = rawValues(raw)
	}
	return rec
}

func rawValues(raw RawRecord) []dnsmodel.Value {
	if raw.ValueString != "" && len(raw.ValueList) == 0 {
		return []dnsmodel.Value{{Target: raw.ValueString}}
	}
	values := make([]dnsmodel.Value, 0, len(raw.ValueList))
	for _, v := range raw.ValueList {
		values = append(values, dnsmodel.Value{Target: v.Value})
	}
	return values
}

// EncodeRecord converts a model record into the Constellix write payload.
func EncodeRecord(rec *dnsmodel.Record) RecordPayload {
	payload := RecordPayload{
		Name: rec.Name,
		TTL:  rec.TTL,
	}

	switch rec.Type {
	case dnsmodel.TypeCNAME:
		if len(rec.Values) > 0 {
			payload.Host = rec.Values[0].Target
		}
	case dnsmodel.TypeMX:
		for _, v := range rec.Values {
			payload.RoundRobin = append(payload.RoundRobin, RawValue{
				Value: v.Target,
				Level: v.Priority,
			})
		}
	case dnsmodel.TypeSRV:
		for _, v := range rec.Values {
			payload.RoundRobin = append(payload.RoundRobin, RawValue{
				Value:    v.Target,
				Priority: v.Priority,
				Weight:   v.Weight,
				Port:     v.Port,
			})
		}
	case dnsmodel.TypeCAA:
		for _, v := range rec.Values {
			payload.RoundRobin = append(payload.RoundRobin, RawValue{
				Data: v.Target,
				Flag: v.Flags,
				Tag:  v.Tag,
			})
		}
	case dnsmodel.TypeALIAS, dnsmodel.TypePTR:
		for _, v := range rec.Values {
			payload.RoundRobin = append(payload.RoundRobin, RawValue{
				Value:       v.Target,
				DisableFlag: false,
			})
		}
	default:
		for _, v := range rec.Values {
			payload.RoundRobin = append(payload.RoundRobin, RawValue{Value: v.Target})
		}
	}
	return payload
}

// RecordService exposes record CRUD in terms of the common record model. It
// is the implementation behind the sync engine's API client interface.
type RecordService struct {
	client *Client
	logger *zap.Logger
}

// NewRecordService wraps a low-level client.
func NewRecordService(logger *zap.Logger, client *Client) *RecordService {
	return &RecordService{client: client, logger: logger}
}

// ListRecords returns all record entries of the zone in model form. Entries
// are not yet grouped by (name, type); that is the fetcher's job.
func (s *RecordService) ListRecords(ctx context.Context, zone string) ([]*dnsmodel.Record, error) {
	raws, err := s.client.ListRawRecords(ctx, zone)
	if err != nil {
		return nil, err
	}
	records := make([]*dnsmodel.Record, 0, len(raws))
	for _, raw := range raws {
		records = append(records, DecodeRecord(raw))
	}
	return records, nil
}

// CreateRecord creates a record set and returns the provider-assigned ids.
func (s *RecordService) CreateRecord(ctx context.Context, zone string, rec *dnsmodel.Record) ([]int64, error) {
	ids, err := s.client.CreateRawRecord(ctx, zone, rec.Type, EncodeRecord(rec))
	if err != nil {
		return nil, err
	}
	s.logger.Info("Created record",
		zap.String("zone", zone),
		zap.String("record", rec.Key().String()),
		zap.Int("ttl", rec.TTL))
	return ids, nil
}

// UpdateRecord replaces the content of an existing record set. When the
// logical record maps onto exactly one provider entry the update is done in
// place; otherwise it degrades to delete-all plus create, the only update
// path the v1 API offers for split record sets.
func (s *RecordService) UpdateRecord(ctx context.Context, zone string, old, updated *dnsmodel.Record) error {
	if len(old.ProviderIDs) == 1 {
		if err := s.client.UpdateRawRecord(ctx, zone, old.Type, old.ProviderIDs[0], EncodeRecord(updated)); err != nil {
			return err
		}
		s.logger.Info("Updated record",
			zap.String("zone", zone),
			zap.String("record", updated.Key().String()),
			zap.Int("ttl", updated.TTL))
		return nil
	}

	if err := s.DeleteRecord(ctx, zone, old); err != nil {
		return err
	}
	_, err := s.CreateRecord(ctx, zone, updated)
	return err
}

// DeleteRecord removes every provider entry backing the record set.
func (s *RecordService) DeleteRecord(ctx context.Context, zone string, rec *dnsmodel.Record) error {
	if len(rec.ProviderIDs) == 0 {
		return fmt.Errorf("record %s in %s has no provider id", rec.Key(), zone)
	}
	for _, id := range rec.ProviderIDs {
		if err := s.client.DeleteRawRecord(ctx, zone, rec.Type, id); err != nil {
			if IsNotFound(err) {
				// Already gone; deleting is idempotent.
				s.logger.Debug("Record id vanished before delete",
					zap.String("zone", zone),
					zap.Int64("id", id))
				continue
			}
			return err
		}
	}
	s.logger.Info("Deleted record",
		zap.String("zone", zone),
		zap.String("record", rec.Key().String()))
	return nil
}
