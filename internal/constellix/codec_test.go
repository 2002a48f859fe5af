package constellix

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
)

func TestDecodeRecordMX(t *testing.T) {
	rec := DecodeRecord(RawRecord{
		ID: 1, Name: "mail", Type: "MX", TTL: 300,
		ValueList: []RawValue{
			{Value: "mx1.example.com.", Level: 10},
			{Value: "mx2.example.com.", Level: 20},
		},
	})

	assert.Equal(t, dnsmodel.TypeMX, rec.Type)
	require.Len(t, rec.Values, 2)
	assert.Equal(t, 10, rec.Values[0].Priority)
	assert.Equal(t, "mx1.example.com.", rec.Values[0].Target)
	assert.Equal(t, []int64{1}, rec.ProviderIDs)
	assert.False(t, rec.Opaque)
}

func TestDecodeRecordSRV(t *testing.T) {
	rec := DecodeRecord(RawRecord{
		ID: 2, Name: "_sip._tcp", Type: "SRV", TTL: 300,
		ValueList: []RawValue{{Value: "sip.example.com.", Priority: 10, Weight: 20, Port: 5060}},
	})

	require.Len(t, rec.Values, 1)
	assert.Equal(t, dnsmodel.Value{
		Target: "sip.example.com.", Priority: 10, Weight: 20, Port: 5060,
	}, rec.Values[0])
}

func TestDecodeRecordCAA(t *testing.T) {
	rec := DecodeRecord(RawRecord{
		ID: 3, Name: "", Type: "CAA", TTL: 300,
		ValueList: []RawValue{{Flag: 0, Tag: "issue", Data: "letsencrypt.org"}},
	})

	require.Len(t, rec.Values, 1)
	assert.Equal(t, "letsencrypt.org", rec.Values[0].Target)
	assert.Equal(t, "issue", rec.Values[0].Tag)
}

func TestDecodeRecordCNAMEScalar(t *testing.T) {
	rec := DecodeRecord(RawRecord{
		ID: 4, Name: "www", Type: "CNAME", TTL: 300,
		ValueString: "target.example.com.",
	})

	require.Len(t, rec.Values, 1)
	assert.Equal(t, "target.example.com.", rec.Values[0].Target)
}

func TestDecodeRecordLowercasesName(t *testing.T) {
	rec := DecodeRecord(RawRecord{
		ID: 6, Name: "WWW", Type: "A", TTL: 300,
		ValueList: []RawValue{{Value: "1.2.3.4"}},
	})

	// Desired-state names are lowercase; a mixed-case provider name must key
	// to the same record set instead of producing a create/delete pair.
	assert.Equal(t, "www", rec.Name)
	assert.Equal(t, dnsmodel.Key{Name: "www", Type: dnsmodel.TypeA}, rec.Key())
}

func TestDecodeRecordUnknownTypeIsOpaque(t *testing.T) {
	rec := DecodeRecord(RawRecord{
		ID: 5, Name: "odd", Type: "NAPTR", TTL: 300,
		ValueList: []RawValue{{Value: "raw payload"}},
	})

	assert.True(t, rec.Opaque)
	assert.Equal(t, dnsmodel.Type("NAPTR"), rec.Type)
}

func TestEncodeRecordRoundtripShapes(t *testing.T) {
	mx := EncodeRecord(&dnsmodel.Record{
		Name: "mail", Type: dnsmodel.TypeMX, TTL: 300,
		Values: []dnsmodel.Value{{Target: "mx1.example.com.", Priority: 10}},
	})
	require.Len(t, mx.RoundRobin, 1)
	assert.Equal(t, 10, mx.RoundRobin[0].Level)
	assert.Zero(t, mx.RoundRobin[0].Priority)

	cname := EncodeRecord(&dnsmodel.Record{
		Name: "www", Type: dnsmodel.TypeCNAME, TTL: 300,
		Values: []dnsmodel.Value{{Target: "target.example.com."}},
	})
	assert.Equal(t, "target.example.com.", cname.Host)
	assert.Empty(t, cname.RoundRobin)

	caa := EncodeRecord(&dnsmodel.Record{
		Name: "", Type: dnsmodel.TypeCAA, TTL: 300,
		Values: []dnsmodel.Value{{Target: "letsencrypt.org", Tag: "issue"}},
	})
	require.Len(t, caa.RoundRobin, 1)
	assert.Equal(t, "letsencrypt.org", caa.RoundRobin[0].Data)
	assert.Equal(t, "issue", caa.RoundRobin[0].Tag)
}

func TestRecordServiceUpdateInPlace(t *testing.T) {
	var puts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/domains" {
			_, _ = w.Write([]byte(`[{"id":1,"name":"example.com"}]`))
			return
		}
		if r.Method == http.MethodPut {
			puts.Add(1)
			require.Equal(t, "/domains/1/records/A/11", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	service := NewRecordService(zap.NewNop(), testClient(t, server.URL))
	old := &dnsmodel.Record{Name: "www", Type: dnsmodel.TypeA, TTL: 300,
		Values: []dnsmodel.Value{{Target: "1.2.3.4"}}, ProviderIDs: []int64{11}}
	updated := &dnsmodel.Record{Name: "www", Type: dnsmodel.TypeA, TTL: 600,
		Values: []dnsmodel.Value{{Target: "1.2.3.4"}}}

	require.NoError(t, service.UpdateRecord(context.Background(), "example.com", old, updated))
	assert.Equal(t, int32(1), puts.Load())
}

// An update of a record set split over several provider entries has no
// in-place path; it must delete all entries and create the replacement.
func TestRecordServiceUpdateSplitSetDegrades(t *testing.T) {
	var deletes, posts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/domains":
			_, _ = w.Write([]byte(`[{"id":1,"name":"example.com"}]`))
		case r.Method == http.MethodDelete:
			deletes.Add(1)
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPost:
			posts.Add(1)
			_, _ = w.Write([]byte(`[{"id":99,"name":"www","type":"A","ttl":600}]`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	service := NewRecordService(zap.NewNop(), testClient(t, server.URL))
	old := &dnsmodel.Record{Name: "www", Type: dnsmodel.TypeA, TTL: 300,
		Values:      []dnsmodel.Value{{Target: "1.2.3.4"}, {Target: "5.6.7.8"}},
		ProviderIDs: []int64{11, 12}}
	updated := &dnsmodel.Record{Name: "www", Type: dnsmodel.TypeA, TTL: 600,
		Values: []dnsmodel.Value{{Target: "1.2.3.4"}}}

	require.NoError(t, service.UpdateRecord(context.Background(), "example.com", old, updated))
	assert.Equal(t, int32(2), deletes.Load())
	assert.Equal(t, int32(1), posts.Load())
}

func TestRecordServiceDeleteWithoutIDs(t *testing.T) {
	service := NewRecordService(zap.NewNop(), mustNewClient(t))
	err := service.DeleteRecord(context.Background(), "example.com",
		&dnsmodel.Record{Name: "www", Type: dnsmodel.TypeA, TTL: 300})
	assert.Error(t, err)
}

func mustNewClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(zap.NewNop(), Config{APIKey: "key", APISecret: "secret"})
	require.NoError(t, err)
	return client
}
