package syncer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
)

// MockAPIClient is a mock implementation of the APIClient interface
type MockAPIClient struct {
	mock.Mock
}

func (m *MockAPIClient) ListRecords(ctx context.Context, zone string) ([]*dnsmodel.Record, error) {
	args := m.Called(ctx, zone)
	return args.Get(0).([]*dnsmodel.Record), args.Error(1)
}

func (m *MockAPIClient) CreateRecord(ctx context.Context, zone string, rec *dnsmodel.Record) ([]int64, error) {
	args := m.Called(ctx, zone, rec)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockAPIClient) UpdateRecord(ctx context.Context, zone string, old, updated *dnsmodel.Record) error {
	args := m.Called(ctx, zone, old, updated)
	return args.Error(0)
}

func (m *MockAPIClient) DeleteRecord(ctx context.Context, zone string, rec *dnsmodel.Record) error {
	args := m.Called(ctx, zone, rec)
	return args.Error(0)
}

func mustZone(name string, records ...*dnsmodel.Record) *dnsmodel.Zone {
	zone, err := dnsmodel.NewZone(name)
	if err != nil {
		panic(err)
	}
	for _, rec := range records {
		if err := zone.AddRecord(rec); err != nil {
			panic(err)
		}
	}
	return zone
}

func aRecord(name string, ttl int, targets ...string) *dnsmodel.Record {
	rec := &dnsmodel.Record{Name: name, Type: dnsmodel.TypeA, TTL: ttl}
	for _, t := range targets {
		rec.Values = append(rec.Values, dnsmodel.Value{Target: t})
	}
	return rec
}
