package constellix

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
	pkgerrors "github.com/hugovk/constellix-dns-sync/pkg/errors"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(zap.NewNop(), Config{
		APIKey:       "key",
		APISecret:    "secret",
		BaseURL:      baseURL,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(zap.NewNop(), Config{APISecret: "secret"})
	assert.ErrorIs(t, err, pkgerrors.ErrMissingAPIKey)

	_, err = NewClient(zap.NewNop(), Config{APIKey: "key"})
	assert.ErrorIs(t, err, pkgerrors.ErrMissingAPISecret)
}

func TestClientSendsSignatureHeaders(t *testing.T) {
	var apiKey, hmacHeader, requestDate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-cnsdns-apiKey")
		hmacHeader = r.Header.Get("x-cnsdns-hmac")
		requestDate = r.Header.Get("x-cnsdns-requestDate")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.ListDomains(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "key", apiKey)
	require.NotEmpty(t, requestDate)

	mac := hmac.New(sha1.New, []byte("secret"))
	mac.Write([]byte(requestDate))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), hmacHeader)
}

// A create that is rate limited twice must end in exactly one successful
// write, not three.
func TestClientRetriesRateLimitWithoutDuplicates(t *testing.T) {
	var attempts, created atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/domains" {
			_, _ = w.Write([]byte(`[{"id":1,"name":"example.com"}]`))
			return
		}
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		created.Add(1)
		_, _ = w.Write([]byte(`[{"id":42,"name":"www","type":"A","ttl":300}]`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	ids, err := client.CreateRawRecord(context.Background(), "example.com", dnsmodel.TypeA, RecordPayload{
		Name: "www", TTL: 300, RoundRobin: []RawValue{{Value: "1.2.3.4"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, ids)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int32(1), created.Load())
}

func TestClientHonorsRetryAfter(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	start := time.Now()
	_, err := client.ListDomains(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), attempts.Load())
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

// A rate limit that exhausts retries must still classify as rate-limit, not
// transient, even when the 429 carried a Retry-After hint.
func TestClientRateLimitExhaustedKeepsKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(zap.NewNop(), Config{
		APIKey: "key", APISecret: "secret", BaseURL: server.URL, MaxAttempts: 2,
	})
	require.NoError(t, err)

	_, err = client.ListDomains(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindRateLimit, apiErr.Kind)
	assert.Equal(t, KindRateLimit, ErrorKindOf(err))
}

func TestCreateRawRecordUndecodableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/domains" {
			_, _ = w.Write([]byte(`[{"id":1,"name":"example.com"}]`))
			return
		}
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	ids, err := client.CreateRawRecord(context.Background(), "example.com", dnsmodel.TypeA, RecordPayload{
		Name: "www", TTL: 300, RoundRobin: []RawValue{{Value: "1.2.3.4"}},
	})

	// The write succeeded; only the ids are unknown until the next list.
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestClientDoesNotRetryAuthFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":["invalid credentials"]}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.ListDomains(context.Background())
	require.Error(t, err)

	assert.Equal(t, int32(1), attempts.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindAuth, apiErr.Kind)
	assert.Contains(t, apiErr.Messages, "invalid credentials")
}

func TestClientDoesNotRetryValidationFailures(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/domains" {
			_, _ = w.Write([]byte(`[{"id":1,"name":"example.com"}]`))
			return
		}
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":["ttl must be positive"]}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.CreateRawRecord(context.Background(), "example.com", dnsmodel.TypeA, RecordPayload{Name: "www"})
	require.Error(t, err)

	assert.Equal(t, int32(1), attempts.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.False(t, apiErr.Retryable())
}

func TestClientRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.ListDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestListRawRecordsDrainsAllPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/domains" {
			_, _ = w.Write([]byte(`[{"id":7,"name":"example.com"}]`))
			return
		}
		require.Equal(t, "/domains/7/records", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("max"))

		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(`[
				{"id":1,"name":"www","type":"A","ttl":300,"value":[{"value":"1.2.3.4"}]},
				{"id":2,"name":"mail","type":"MX","ttl":300,"value":[{"value":"mx1","level":10}]}
			]`))
		case "2":
			_, _ = w.Write([]byte(`[
				{"id":3,"name":"alias","type":"ANAME","ttl":300,"value":[{"value":"target"}]}
			]`))
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()

	client, err := NewClient(zap.NewNop(), Config{
		APIKey: "key", APISecret: "secret", BaseURL: server.URL, PageSize: 2,
	})
	require.NoError(t, err)

	records, err := client.ListRawRecords(context.Background(), "example.com")
	require.NoError(t, err)
	require.Len(t, records, 3)

	// ANAME comes back as ALIAS, relative targets absolutized against the apex.
	assert.Equal(t, string(dnsmodel.TypeALIAS), records[2].Type)
	assert.Equal(t, "target.example.com.", records[2].ValueList[0].Value)
	assert.Equal(t, "mx1.example.com.", records[1].ValueList[0].Value)
	assert.Equal(t, 10, records[1].ValueList[0].Level)
}

func TestDomainIDUnknownZone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"name":"other.org"}]`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.ListRawRecords(context.Background(), "example.com")
	assert.ErrorIs(t, err, pkgerrors.ErrZoneNotFound)
}

func TestRawRecordUnmarshalScalarValue(t *testing.T) {
	var rec RawRecord
	require.NoError(t, json.Unmarshal(
		[]byte(`{"id":5,"name":"www","type":"CNAME","ttl":300,"value":"target.example.com."}`), &rec))

	assert.Equal(t, "target.example.com.", rec.ValueString)
	assert.Empty(t, rec.ValueList)
}
