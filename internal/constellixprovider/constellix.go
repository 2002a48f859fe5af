package constellixprovider

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"sigs.k8s.io/external-dns/endpoint"
	"sigs.k8s.io/external-dns/plan"
	"sigs.k8s.io/external-dns/provider"

	"github.com/hugovk/constellix-dns-sync/internal/constellix"
	"github.com/hugovk/constellix-dns-sync/internal/syncer"
)

// ConstellixProvider is an external-dns provider backed by the Constellix
// sync engine.
type ConstellixProvider struct {
	provider.BaseProvider
	syncer       *syncer.Syncer
	logger       *zap.Logger
	zones        []string
	domainFilter endpoint.DomainFilter
	ttl          int
	opts         syncer.Options
}

// NewConstellixProvider initializes the provider and its API client.
func NewConstellixProvider(logger *zap.Logger, cfg Config) (*ConstellixProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.APISecret == "" {
		return nil, ErrMissingAPISecret
	}
	if len(cfg.Zones) == 0 {
		return nil, ErrMissingZone
	}

	client, err := constellix.NewClient(
		logger.With(zap.String("component", "constellix")),
		constellix.Config{
			APIKey:    cfg.APIKey,
			APISecret: cfg.APISecret,
			BaseURL:   cfg.BaseURL,
		},
	)
	if err != nil {
		logger.Error("Failed to create Constellix API client", zap.Error(err))
		return nil, fmt.Errorf("failed to create Constellix API client: %w", err)
	}
	service := constellix.NewRecordService(
		logger.With(zap.String("component", "records")), client)

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 300
	}

	return &ConstellixProvider{
		BaseProvider: provider.BaseProvider{},
		syncer: syncer.New(
			logger.With(zap.String("component", "syncer")),
			service, cfg.UnsupportedPolicy),
		logger:       logger,
		zones:        cfg.Zones,
		domainFilter: cfg.DomainFilter,
		ttl:          ttl,
		opts: syncer.Options{
			DryRun:           cfg.DryRun,
			FailFast:         cfg.FailFast,
			RecordTypeFilter: cfg.RecordTypeFilter,
			Concurrency:      cfg.Concurrency,
		},
	}, nil
}

// Records returns all managed records of the configured zones as endpoints.
func (p *ConstellixProvider) Records(ctx context.Context) ([]*endpoint.Endpoint, error) {
	var endpoints []*endpoint.Endpoint
	for _, zone := range p.zones {
		state, err := p.syncer.FetchZoneState(ctx, zone)
		if err != nil {
			p.logger.Error("Failed to fetch zone state",
				zap.String("zone", zone),
				zap.Error(err))
			return nil, fmt.Errorf("failed listing records for %s: %w", zone, err)
		}

		for _, rec := range state.Records() {
			if rec.Opaque {
				continue
			}
			ep := recordToEndpoint(rec, zone)
			if !p.domainFilter.Match(ep.DNSName) {
				continue
			}
			endpoints = append(endpoints, ep)
		}
	}

	p.logger.Info("Collected records",
		zap.Int("zones", len(p.zones)),
		zap.Int("endpoints", len(endpoints)))
	return endpoints, nil
}

// AdjustEndpoints fills in the default TTL on endpoints that carry none.
func (p *ConstellixProvider) AdjustEndpoints(endpoints []*endpoint.Endpoint) ([]*endpoint.Endpoint, error) {
	for _, ep := range endpoints {
		if ep.RecordTTL <= 0 {
			ep.RecordTTL = endpoint.TTL(p.ttl)
		}
	}
	return endpoints, nil
}

// GetDomainFilter returns the domain filter for the provider
func (p *ConstellixProvider) GetDomainFilter() endpoint.DomainFilterInterface {
	return p.domainFilter
}

// ApplyChanges applies the given endpoint changes through the sync engine.
func (p *ConstellixProvider) ApplyChanges(ctx context.Context, changes *plan.Changes) error {
	return p.applyChanges(ctx, changes)
}
