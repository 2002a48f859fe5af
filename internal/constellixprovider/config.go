package constellixprovider

import (
	"sigs.k8s.io/external-dns/endpoint"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
	"github.com/hugovk/constellix-dns-sync/internal/syncer"
)

// Config is used to configure the creation of the ConstellixProvider.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string

	// Zones are the zone names this provider manages. Endpoints are mapped
	// onto the longest matching zone suffix.
	Zones []string

	DomainFilter endpoint.DomainFilter
	DryRun       bool
	FailFast     bool

	// TTL is applied to endpoints that carry none.
	TTL int

	// RecordTypeFilter restricts syncing to the listed types. Empty means
	// all supported types.
	RecordTypeFilter []dnsmodel.Type

	// UnsupportedPolicy selects what the fetcher does with record types the
	// engine does not model.
	UnsupportedPolicy syncer.UnsupportedPolicy

	// Concurrency bounds parallel record operations per zone.
	Concurrency int
}
