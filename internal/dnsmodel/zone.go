package dnsmodel

import (
	"fmt"
	"sort"
)

// Zone is a DNS domain under management together with its record sets.
// Records are keyed by (name, type); the key is unique within a zone.
type Zone struct {
	Name string // fully qualified, trailing dot

	records map[Key]*Record
}

// NewZone creates an empty zone for the given domain name. The name is
// canonicalized to a fully qualified lowercase form.
func NewZone(name string) (*Zone, error) {
	if name == "" {
		return nil, fmt.Errorf("zone name must not be empty")
	}
	if !ValidName(name) {
		return nil, fmt.Errorf("invalid zone name %q", name)
	}
	return &Zone{
		Name:    Fqdn(name),
		records: make(map[Key]*Record),
	}, nil
}

// AddRecord adds a record set to the zone. Adding a second record with an
// already present (name, type) key is an error; provider responses that carry
// several raw entries per key are merged by the fetcher before this point.
func (z *Zone) AddRecord(r *Record) error {
	key := r.Key()
	if _, ok := z.records[key]; ok {
		return fmt.Errorf("duplicate record %s in zone %s", key, z.Name)
	}
	z.records[key] = r
	return nil
}

// Get returns the record set for the given key, or nil.
func (z *Zone) Get(key Key) *Record {
	return z.records[key]
}

// Len returns the number of record sets in the zone.
func (z *Zone) Len() int {
	return len(z.records)
}

// Records returns all record sets ordered lexicographically by name then
// type, so iteration over a zone is deterministic.
func (z *Zone) Records() []*Record {
	out := make([]*Record, 0, len(z.records))
	for _, r := range z.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Remove drops the record set with the given key, if present.
func (z *Zone) Remove(key Key) {
	delete(z.records, key)
}

// Clone returns a deep copy of the zone. Mutating the clone leaves the
// original untouched.
func (z *Zone) Clone() *Zone {
	out := &Zone{Name: z.Name, records: make(map[Key]*Record, len(z.records))}
	for key, r := range z.records {
		out.records[key] = r.Copy()
	}
	return out
}

// Filter returns a shallow copy of the zone containing only records whose
// type is in keep. A nil keep set keeps everything.
func (z *Zone) Filter(keep map[Type]bool) *Zone {
	if keep == nil {
		return z
	}
	out := &Zone{Name: z.Name, records: make(map[Key]*Record)}
	for key, r := range z.records {
		if keep[key.Type] {
			out.records[key] = r
		}
	}
	return out
}
