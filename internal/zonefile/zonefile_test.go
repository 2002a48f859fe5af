package zonefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
	"github.com/hugovk/constellix-dns-sync/pkg/errors"
)

const sampleZone = `
zone: example.com
records:
  - name: www
    type: A
    ttl: 300
    values: [1.2.3.4, 5.6.7.8]
  - name: ""
    type: MX
    ttl: 3600
    values:
      - value: mx1.example.com.
        priority: 10
      - value: mx2.example.com.
        priority: 20
  - name: alias
    type: CNAME
    ttl: 300
    value: target.example.com.
`

func TestParse(t *testing.T) {
	zone, err := Parse([]byte(sampleZone))
	require.NoError(t, err)

	assert.Equal(t, "example.com.", zone.Name)
	require.Equal(t, 3, zone.Len())

	www := zone.Get(dnsmodel.Key{Name: "www", Type: dnsmodel.TypeA})
	require.NotNil(t, www)
	assert.Equal(t, 300, www.TTL)
	require.Len(t, www.Values, 2)
	assert.Equal(t, "1.2.3.4", www.Values[0].Target)

	mx := zone.Get(dnsmodel.Key{Name: "", Type: dnsmodel.TypeMX})
	require.NotNil(t, mx)
	require.Len(t, mx.Values, 2)
	assert.Equal(t, 10, mx.Values[0].Priority)
	assert.Equal(t, "mx1.example.com.", mx.Values[0].Target)

	cname := zone.Get(dnsmodel.Key{Name: "alias", Type: dnsmodel.TypeCNAME})
	require.NotNil(t, cname)
	require.Len(t, cname.Values, 1)
	assert.Equal(t, "target.example.com.", cname.Values[0].Target)
}

func TestParseCanonicalizesNameTargets(t *testing.T) {
	zone, err := Parse([]byte(`
zone: example.com
records:
  - name: www
    type: CNAME
    ttl: 300
    value: foo.example.org
  - name: host
    type: A
    ttl: 300
    value: 1.2.3.4
`))
	require.NoError(t, err)

	cname := zone.Get(dnsmodel.Key{Name: "www", Type: dnsmodel.TypeCNAME})
	require.NotNil(t, cname)
	assert.Equal(t, "foo.example.org.", cname.Values[0].Target)

	// Address values are not names and stay untouched.
	a := zone.Get(dnsmodel.Key{Name: "host", Type: dnsmodel.TypeA})
	require.NotNil(t, a)
	assert.Equal(t, "1.2.3.4", a.Values[0].Target)
}

func TestParseRejectsMissingZoneName(t *testing.T) {
	_, err := Parse([]byte("records: []\n"))
	assert.ErrorContains(t, err, "missing the zone name")
}

func TestParseRejectsUnsupportedType(t *testing.T) {
	_, err := Parse([]byte(`
zone: example.com
records:
  - name: odd
    type: NAPTR
    ttl: 300
    value: whatever
`))
	assert.ErrorIs(t, err, errors.ErrUnsupportedRecordType)
}

func TestParseRejectsBadTTL(t *testing.T) {
	_, err := Parse([]byte(`
zone: example.com
records:
  - name: www
    type: A
    value: 1.2.3.4
`))
	assert.ErrorContains(t, err, "ttl must be positive")
}

func TestParseRejectsEmptyValues(t *testing.T) {
	_, err := Parse([]byte(`
zone: example.com
records:
  - name: www
    type: A
    ttl: 300
`))
	assert.ErrorContains(t, err, "no values")
}

func TestParseRejectsDuplicateRecords(t *testing.T) {
	_, err := Parse([]byte(`
zone: example.com
records:
  - name: www
    type: A
    ttl: 300
    value: 1.2.3.4
  - name: www
    type: A
    ttl: 600
    value: 5.6.7.8
`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zone.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleZone), 0o600))

	zone, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, zone.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
