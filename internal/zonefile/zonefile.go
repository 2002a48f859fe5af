// Package zonefile loads a desired-state zone description from YAML, in the
// shape configuration layers commonly produce:
//
//	zone: example.com
//	records:
//	  - name: www
//	    type: A
//	    ttl: 300
//	    values: [1.2.3.4, 1.2.3.5]
//	  - name: ""
//	    type: MX
//	    ttl: 3600
//	    values:
//	      - value: mx1.example.com.
//	        priority: 10
//
// Scalar values are shorthand for {value: ...}.
package zonefile

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
	"github.com/hugovk/constellix-dns-sync/pkg/errors"
)

type fileValue struct {
	dnsmodel.Value
}

func (v *fileValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v.Target = node.Value
		return nil
	}
	return node.Decode(&v.Value)
}

type fileRecord struct {
	Name   string      `yaml:"name"`
	Type   string      `yaml:"type"`
	TTL    int         `yaml:"ttl"`
	Value  *fileValue  `yaml:"value"`
	Values []fileValue `yaml:"values"`
}

type file struct {
	Zone    string       `yaml:"zone"`
	Records []fileRecord `yaml:"records"`
}

// Load reads and parses a zone file from disk.
func Load(path string) (*dnsmodel.Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading zone file: %w", err)
	}
	return Parse(data)
}

// Parse builds a desired-state zone from YAML content.
func Parse(data []byte) (*dnsmodel.Zone, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing zone file: %w", err)
	}
	if f.Zone == "" {
		return nil, fmt.Errorf("zone file is missing the zone name")
	}

	zone, err := dnsmodel.NewZone(f.Zone)
	if err != nil {
		return nil, err
	}

	for i, fr := range f.Records {
		rtype := dnsmodel.Type(fr.Type)
		if !dnsmodel.Supported(rtype) {
			return nil, fmt.Errorf("record %d (%q): %w: %q", i, fr.Name, errors.ErrUnsupportedRecordType, fr.Type)
		}
		if fr.TTL <= 0 {
			return nil, fmt.Errorf("record %d (%q %s): ttl must be positive", i, fr.Name, fr.Type)
		}

		rec := &dnsmodel.Record{
			Name: fr.Name,
			Type: rtype,
			TTL:  fr.TTL,
		}
		if fr.Value != nil {
			rec.Values = append(rec.Values, fr.Value.Value)
		}
		for _, v := range fr.Values {
			rec.Values = append(rec.Values, v.Value)
		}
		if len(rec.Values) == 0 {
			return nil, fmt.Errorf("record %d (%q %s): no values", i, fr.Name, fr.Type)
		}
		if dnsmodel.NameValued(rtype) {
			for j := range rec.Values {
				rec.Values[j].Target = dnsmodel.Fqdn(rec.Values[j].Target)
			}
		}

		if err := zone.AddRecord(rec); err != nil {
			return nil, err
		}
	}
	return zone, nil
}
