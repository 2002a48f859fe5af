package constellixprovider

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"sigs.k8s.io/external-dns/endpoint"
	"sigs.k8s.io/external-dns/plan"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
)

// ErrUpdateSlicesMismatch is returned when update slices have different lengths
var ErrUpdateSlicesMismatch = errors.New("update slices have different lengths")

// applyChanges turns the endpoint deltas into a desired-state zone per
// affected zone and hands each one to the sync engine. The engine refetches
// live state, diffs and applies with the configured options; a report with
// any failed operation fails the whole call.
func (p *ConstellixProvider) applyChanges(ctx context.Context, changes *plan.Changes) error {
	p.logger.Info("Applying DNS changes",
		zap.Int("create", len(changes.Create)),
		zap.Int("updateOld", len(changes.UpdateOld)),
		zap.Int("updateNew", len(changes.UpdateNew)),
		zap.Int("delete", len(changes.Delete)))

	if len(changes.UpdateOld) != len(changes.UpdateNew) {
		p.logger.Error("Update slices have different lengths",
			zap.Int("updateOld", len(changes.UpdateOld)),
			zap.Int("updateNew", len(changes.UpdateNew)))
		return ErrUpdateSlicesMismatch
	}
	if len(changes.Create) == 0 && len(changes.UpdateNew) == 0 && len(changes.Delete) == 0 {
		p.logger.Info("No changes to apply")
		return nil
	}

	zones := p.affectedZones(changes)
	for _, zone := range zones {
		if err := p.applyZoneChanges(ctx, zone, changes); err != nil {
			return err
		}
	}
	return nil
}

func (p *ConstellixProvider) applyZoneChanges(ctx context.Context, zone string, changes *plan.Changes) error {
	current, err := p.syncer.FetchZoneState(ctx, zone)
	if err != nil {
		return fmt.Errorf("fetching state of %s: %w", zone, err)
	}

	desired := current.Clone()

	for _, ep := range changes.Delete {
		if zoneForName(ep.DNSName, p.zones) != dnsmodel.Fqdn(zone) {
			continue
		}
		desired.Remove(dnsmodel.Key{
			Name: dnsmodel.RelativeName(ep.DNSName, zone),
			Type: dnsmodel.Type(ep.RecordType),
		})
	}
	for _, ep := range changes.UpdateOld {
		if zoneForName(ep.DNSName, p.zones) != dnsmodel.Fqdn(zone) {
			continue
		}
		desired.Remove(dnsmodel.Key{
			Name: dnsmodel.RelativeName(ep.DNSName, zone),
			Type: dnsmodel.Type(ep.RecordType),
		})
	}

	for _, ep := range append(changes.Create, changes.UpdateNew...) {
		if zoneForName(ep.DNSName, p.zones) != dnsmodel.Fqdn(zone) {
			continue
		}
		rec, err := endpointToRecord(ep, zone, p.ttl)
		if err != nil {
			p.logger.Error("Skipping malformed endpoint",
				zap.String("dnsName", ep.DNSName),
				zap.String("type", ep.RecordType),
				zap.Error(err))
			continue
		}
		desired.Remove(rec.Key())
		if err := desired.AddRecord(rec); err != nil {
			return err
		}
	}

	report, err := p.syncer.Sync(ctx, zone, desired, p.opts)
	if err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%w: %s", ErrAPIRequestFailed, report.Summary())
	}
	p.logger.Info("Zone synced", zap.String("summary", report.Summary()))
	return nil
}

// affectedZones returns the configured zones touched by the change set, in
// configuration order.
func (p *ConstellixProvider) affectedZones(changes *plan.Changes) []string {
	touched := make(map[string]bool)
	mark := func(eps []*endpoint.Endpoint) {
		for _, ep := range eps {
			if zone := zoneForName(ep.DNSName, p.zones); zone != "" {
				touched[zone] = true
			} else {
				p.logger.Warn("Endpoint matches no configured zone",
					zap.String("dnsName", ep.DNSName))
			}
		}
	}
	mark(changes.Create)
	mark(changes.UpdateNew)
	mark(changes.UpdateOld)
	mark(changes.Delete)

	var zones []string
	for _, zone := range p.zones {
		if touched[dnsmodel.Fqdn(zone)] {
			zones = append(zones, zone)
		}
	}
	return zones
}
