package constellixprovider

import (
	"fmt"
	"strconv"
	"strings"

	"sigs.k8s.io/external-dns/endpoint"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
	"github.com/hugovk/constellix-dns-sync/pkg/errors"
)

// zoneForName returns the configured zone the name belongs to, preferring
// the longest suffix match. Empty when no zone matches.
func zoneForName(name string, zones []string) string {
	fqdn := dnsmodel.Fqdn(name)
	best := ""
	for _, zone := range zones {
		zfqdn := dnsmodel.Fqdn(zone)
		if fqdn == zfqdn || strings.HasSuffix(fqdn, "."+zfqdn) {
			if len(zfqdn) > len(best) {
				best = zfqdn
			}
		}
	}
	return best
}

// endpointToRecord converts an external-dns endpoint into a model record
// relative to its zone. Structured targets (MX, SRV, CAA) arrive as
// space-separated strings and are split into typed values here.
func endpointToRecord(ep *endpoint.Endpoint, zone string, defaultTTL int) (*dnsmodel.Record, error) {
	rec := &dnsmodel.Record{
		Name: dnsmodel.RelativeName(ep.DNSName, zone),
		Type: dnsmodel.Type(ep.RecordType),
		TTL:  defaultTTL,
	}
	if !dnsmodel.Supported(rec.Type) {
		return nil, fmt.Errorf("endpoint %s: %w: %s", ep.DNSName, errors.ErrUnsupportedRecordType, ep.RecordType)
	}
	if ep.RecordTTL > 0 {
		rec.TTL = int(ep.RecordTTL)
	}

	for _, target := range ep.Targets {
		value, err := parseTarget(rec.Type, target)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", ep.DNSName, err)
		}
		rec.Values = append(rec.Values, value)
	}
	return rec, nil
}

func parseTarget(rtype dnsmodel.Type, target string) (dnsmodel.Value, error) {
	switch rtype {
	case dnsmodel.TypeMX:
		fields := strings.Fields(target)
		if len(fields) != 2 {
			return dnsmodel.Value{}, fmt.Errorf("malformed MX target %q, want \"preference exchange\"", target)
		}
		pref, err := strconv.Atoi(fields[0])
		if err != nil {
			return dnsmodel.Value{}, fmt.Errorf("malformed MX preference in %q: %w", target, err)
		}
		return dnsmodel.Value{Priority: pref, Target: dnsmodel.Fqdn(fields[1])}, nil

	case dnsmodel.TypeSRV:
		fields := strings.Fields(target)
		if len(fields) != 4 {
			return dnsmodel.Value{}, fmt.Errorf("malformed SRV target %q, want \"priority weight port target\"", target)
		}
		nums := make([]int, 3)
		for i := 0; i < 3; i++ {
			n, err := strconv.Atoi(fields[i])
			if err != nil {
				return dnsmodel.Value{}, fmt.Errorf("malformed SRV field in %q: %w", target, err)
			}
			nums[i] = n
		}
		return dnsmodel.Value{Priority: nums[0], Weight: nums[1], Port: nums[2], Target: dnsmodel.Fqdn(fields[3])}, nil

	case dnsmodel.TypeCAA:
		fields := strings.SplitN(target, " ", 3)
		if len(fields) != 3 {
			return dnsmodel.Value{}, fmt.Errorf("malformed CAA target %q, want \"flags tag value\"", target)
		}
		flags, err := strconv.Atoi(fields[0])
		if err != nil {
			return dnsmodel.Value{}, fmt.Errorf("malformed CAA flags in %q: %w", target, err)
		}
		return dnsmodel.Value{Flags: flags, Tag: fields[1], Target: trimTXTQuotes(fields[2])}, nil

	case dnsmodel.TypeTXT, dnsmodel.TypeSPF:
		return dnsmodel.Value{Target: trimTXTQuotes(target)}, nil

	default:
		// external-dns delivers name-valued targets without a trailing dot;
		// fetched state carries them fully qualified. Canonicalize here or
		// every reconcile loop diffs the same record again.
		if dnsmodel.NameValued(rtype) {
			return dnsmodel.Value{Target: dnsmodel.Fqdn(target)}, nil
		}
		return dnsmodel.Value{Target: target}, nil
	}
}

// recordToEndpoint converts a model record into an external-dns endpoint
// with a fully qualified name, no trailing dot.
func recordToEndpoint(rec *dnsmodel.Record, zone string) *endpoint.Endpoint {
	name := strings.TrimSuffix(dnsmodel.AbsoluteName(rec.Name, zone), ".")
	targets := make([]string, len(rec.Values))
	for i, v := range rec.Values {
		targets[i] = v.Render(rec.Type)
	}
	return endpoint.NewEndpointWithTTL(name, string(rec.Type), endpoint.TTL(rec.TTL), targets...)
}

// trimTXTQuotes removes surrounding quotes and flattens whitespace the way
// upstream sources tend to deliver TXT payloads.
func trimTXTQuotes(value string) string {
	value = strings.Trim(value, "\"'")
	value = strings.ReplaceAll(value, "\"", "")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	return value
}
