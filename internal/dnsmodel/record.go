package dnsmodel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/miekg/dns"
)

// Type is a DNS record type managed by the sync engine.
type Type string

const (
	TypeA     Type = "A"
	TypeAAAA  Type = "AAAA"
	TypeALIAS Type = "ALIAS"
	TypeCAA   Type = "CAA"
	TypeCNAME Type = "CNAME"
	TypeMX    Type = "MX"
	TypeNS    Type = "NS"
	TypePTR   Type = "PTR"
	TypeSPF   Type = "SPF"
	TypeSRV   Type = "SRV"
	TypeTXT   Type = "TXT"
)

// SupportedTypes lists the record types the engine understands, in the order
// used for deterministic iteration.
var SupportedTypes = []Type{
	TypeA, TypeAAAA, TypeALIAS, TypeCAA, TypeCNAME,
	TypeMX, TypeNS, TypePTR, TypeSPF, TypeSRV, TypeTXT,
}

// Supported reports whether t is part of the managed type set.
func Supported(t Type) bool {
	for _, s := range SupportedTypes {
		if s == t {
			return true
		}
	}
	return false
}

// NameValued reports whether the type's target values are domain names and
// therefore subject to canonicalization.
func NameValued(t Type) bool {
	switch t {
	case TypeALIAS, TypeCNAME, TypeMX, TypeNS, TypePTR, TypeSRV:
		return true
	}
	return false
}

// Value is one payload of a record set. Only the fields relevant for the
// record type are populated: Target for address/name/text types, Priority for
// MX preference and SRV priority, Weight/Port for SRV, Flags/Tag for CAA.
type Value struct {
	Target   string `json:"target" yaml:"value"`
	Priority int    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Weight   int    `json:"weight,omitempty" yaml:"weight,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Flags    int    `json:"flags,omitempty" yaml:"flags,omitempty"`
	Tag      string `json:"tag,omitempty" yaml:"tag,omitempty"`
}

// key returns a canonical form used for order-insensitive set comparison.
// Priority is part of the key so MX/SRV payloads with swapped positions but
// identical (priority, target) pairs compare equal.
func (v Value) key() string {
	return fmt.Sprintf("%d|%d|%d|%d|%s|%s",
		v.Priority, v.Weight, v.Port, v.Flags, v.Tag, strings.ToLower(v.Target))
}

// Render formats the value in zone-file order for the given record type.
// The type decides the layout: a null MX (preference 0) still renders its
// preference, an SRV still renders weight and port when they are zero.
func (v Value) Render(t Type) string {
	switch t {
	case TypeSRV:
		return fmt.Sprintf("%d %d %d %s", v.Priority, v.Weight, v.Port, v.Target)
	case TypeCAA:
		return fmt.Sprintf("%d %s %q", v.Flags, v.Tag, v.Target)
	case TypeMX:
		return fmt.Sprintf("%d %s", v.Priority, v.Target)
	default:
		return v.Target
	}
}

// Key identifies a record set within a zone. Name is the owner name relative
// to the zone apex, "" for the apex itself.
type Key struct {
	Name string
	Type Type
}

func (k Key) String() string {
	if k.Name == "" {
		return fmt.Sprintf("@/%s", k.Type)
	}
	return fmt.Sprintf("%s/%s", k.Name, k.Type)
}

// Record is one DNS record set: owner name, type, TTL and its value set.
type Record struct {
	Name   string  `json:"name" yaml:"name"`
	Type   Type    `json:"type" yaml:"type"`
	TTL    int     `json:"ttl" yaml:"ttl"`
	Values []Value `json:"values" yaml:"values"`

	// ProviderIDs holds the raw Constellix record IDs backing this record
	// set. Metadata only: it never takes part in diffing.
	ProviderIDs []int64 `json:"-" yaml:"-"`

	// Opaque marks a record of an unsupported type preserved verbatim under
	// the PreserveOpaque fetch policy. Opaque records are excluded from
	// diffing so the engine never touches them.
	Opaque bool `json:"-" yaml:"-"`
}

// Key returns the (name, type) identity of the record.
func (r *Record) Key() Key {
	return Key{Name: r.Name, Type: r.Type}
}

// EqualContent reports whether two records carry the same TTL and value set.
// Value comparison is order-insensitive: RRset position is not semantically
// significant, and MX/SRV priorities are compared together with their targets.
func (r *Record) EqualContent(other *Record) bool {
	if r.TTL != other.TTL || len(r.Values) != len(other.Values) {
		return false
	}
	return valueSetKey(r.Values) == valueSetKey(other.Values)
}

// Copy returns a deep copy. Desired-state records are copied before any
// internal bookkeeping so callers' data is never mutated.
func (r *Record) Copy() *Record {
	c := *r
	c.Values = append([]Value(nil), r.Values...)
	c.ProviderIDs = append([]int64(nil), r.ProviderIDs...)
	return &c
}

func (r *Record) String() string {
	vals := make([]string, len(r.Values))
	for i, v := range r.Values {
		vals[i] = v.Render(r.Type)
	}
	return fmt.Sprintf("%s %d [%s]", r.Key(), r.TTL, strings.Join(vals, ", "))
}

func valueSetKey(values []Value) string {
	keys := make([]string, len(values))
	for i, v := range values {
		keys[i] = v.key()
	}
	sort.Strings(keys)
	return strings.Join(keys, "\n")
}

// Fqdn canonicalizes a DNS name: lowercase with a trailing dot.
func Fqdn(name string) string {
	return dns.CanonicalName(name)
}

// ValidName reports whether name is a syntactically valid domain name.
func ValidName(name string) bool {
	_, ok := dns.IsDomainName(dns.Fqdn(name))
	return ok
}

// RelativeName converts a fully qualified owner name to its form relative to
// the zone apex ("" for the apex itself). Names outside the zone are returned
// unchanged without the trailing dot.
func RelativeName(fqdn, zone string) string {
	fqdn = Fqdn(fqdn)
	zone = Fqdn(zone)
	if fqdn == zone {
		return ""
	}
	return strings.TrimSuffix(strings.TrimSuffix(fqdn, "."+zone), ".")
}

// AbsoluteName joins a relative owner name with the zone apex into an fqdn.
func AbsoluteName(name, zone string) string {
	zone = Fqdn(zone)
	if name == "" {
		return zone
	}
	return Fqdn(name + "." + zone)
}
