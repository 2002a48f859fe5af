package constellix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hugovk/constellix-dns-sync/internal/dnsmodel"
	pkgerrors "github.com/hugovk/constellix-dns-sync/pkg/errors"
)

// Domain is a Constellix-managed zone.
type Domain struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	HasGeoIP bool   `json:"hasGeoIP"`
}

// RawValue is one roundRobin entry in the wire shape. Field usage varies by
// record type: Level is the MX preference, Data the CAA payload.
type RawValue struct {
	Value       string `json:"value,omitempty"`
	Level       int    `json:"level,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Weight      int    `json:"weight,omitempty"`
	Port        int    `json:"port,omitempty"`
	Flag        int    `json:"flag,omitempty"`
	Tag         string `json:"tag,omitempty"`
	Data        string `json:"data,omitempty"`
	DisableFlag bool   `json:"disableFlag,omitempty"`
}

// RawRecord is a record entry as returned by GET /domains/{id}/records.
// Value is either a bare string (CNAME) or a roundRobin list; ValueList is
// populated for the latter.
type RawRecord struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	TTL          int    `json:"ttl"`
	RecordOption string `json:"recordOption,omitempty"`

	ValueString string
	ValueList   []RawValue
}

func (r *RawRecord) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID           int64           `json:"id"`
		Name         string          `json:"name"`
		Type         string          `json:"type"`
		TTL          int             `json:"ttl"`
		RecordOption string          `json:"recordOption"`
		Value        json.RawMessage `json:"value"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	r.ID = a.ID
	r.Name = a.Name
	r.Type = a.Type
	r.TTL = a.TTL
	r.RecordOption = a.RecordOption

	if len(a.Value) == 0 {
		return nil
	}
	if a.Value[0] == '[' {
		return json.Unmarshal(a.Value, &r.ValueList)
	}
	return json.Unmarshal(a.Value, &r.ValueString)
}

// RecordPayload is the write shape for record creation and update.
type RecordPayload struct {
	Name       string     `json:"name"`
	TTL        int        `json:"ttl"`
	Host       string     `json:"host,omitempty"`
	RoundRobin []RawValue `json:"roundRobin,omitempty"`
}

// ListDomains fetches all domains of the account and refreshes the
// name-to-id cache.
func (c *Client) ListDomains(ctx context.Context) ([]Domain, error) {
	data, err := c.do(ctx, "GET", "/domains", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}
	var domains []Domain
	if err := json.Unmarshal(data, &domains); err != nil {
		return nil, fmt.Errorf("decoding domains response: %w", err)
	}

	c.mu.Lock()
	for _, d := range domains {
		c.domains[dnsmodel.Fqdn(d.Name)] = d.ID
	}
	c.mu.Unlock()

	return domains, nil
}

// CreateDomain creates a zone at Constellix and caches its id.
func (c *Client) CreateDomain(ctx context.Context, zone string) error {
	name := strings.TrimSuffix(dnsmodel.Fqdn(zone), ".")
	data, err := c.do(ctx, "POST", "/domains", nil, map[string][]string{"names": {name}})
	if err != nil {
		return fmt.Errorf("creating domain %s: %w", zone, err)
	}
	var created []Domain
	if err := json.Unmarshal(data, &created); err != nil {
		return fmt.Errorf("decoding domain create response: %w", err)
	}
	if len(created) > 0 {
		c.mu.Lock()
		c.domains[dnsmodel.Fqdn(zone)] = created[0].ID
		c.mu.Unlock()
	}
	return nil
}

// domainID resolves a zone name to its Constellix domain id, loading the
// domain list on first use.
func (c *Client) domainID(ctx context.Context, zone string) (int64, error) {
	fqdn := dnsmodel.Fqdn(zone)

	c.mu.Lock()
	id, ok := c.domains[fqdn]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	if _, err := c.ListDomains(ctx); err != nil {
		return 0, err
	}

	c.mu.Lock()
	id, ok = c.domains[fqdn]
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", pkgerrors.ErrZoneNotFound, zone)
	}
	return id, nil
}

// ListRawRecords drains all record pages of a zone. ANAME entries are
// reported as ALIAS and relative target values are made absolute, so callers
// never see Constellix-specific encodings of names.
func (c *Client) ListRawRecords(ctx context.Context, zone string) ([]RawRecord, error) {
	domainID, err := c.domainID(ctx, zone)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/domains/%d/records", domainID)
	var all []RawRecord
	for page := 1; ; page++ {
		query := url.Values{
			"page": {strconv.Itoa(page)},
			"max":  {strconv.Itoa(c.pageSize)},
		}
		data, err := c.do(ctx, "GET", path, query, nil)
		if err != nil {
			return nil, fmt.Errorf("listing records for %s: %w", zone, err)
		}
		var records []RawRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decoding records response for %s: %w", zone, err)
		}
		all = append(all, records...)
		if len(records) < c.pageSize {
			break
		}
	}

	fqdn := dnsmodel.Fqdn(zone)
	for i := range all {
		if all[i].Type == "ANAME" {
			all[i].Type = string(dnsmodel.TypeALIAS)
		}
		switch dnsmodel.Type(all[i].Type) {
		case dnsmodel.TypeALIAS, dnsmodel.TypeCNAME, dnsmodel.TypeMX,
			dnsmodel.TypeNS, dnsmodel.TypeSRV, dnsmodel.TypePTR:
			if all[i].ValueString != "" {
				all[i].ValueString = absolutize(all[i].ValueString, fqdn)
			}
			for j := range all[i].ValueList {
				all[i].ValueList[j].Value = absolutize(all[i].ValueList[j].Value, fqdn)
			}
		}
	}

	c.logger.Debug("Listed raw records",
		zap.String("zone", zone),
		zap.Int("count", len(all)))
	return all, nil
}

// CreateRawRecord posts a new record and returns the provider-assigned ids.
func (c *Client) CreateRawRecord(ctx context.Context, zone string, rtype dnsmodel.Type, payload RecordPayload) ([]int64, error) {
	domainID, err := c.domainID(ctx, zone)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/domains/%d/records/%s", domainID, wireType(rtype))
	data, err := c.do(ctx, "POST", path, nil, payload)
	if err != nil {
		return nil, fmt.Errorf("creating %s record %q in %s: %w", rtype, payload.Name, zone, err)
	}

	var created []RawRecord
	if err := json.Unmarshal(data, &created); err != nil {
		// Some create endpoints answer with an empty body; the record id
		// is then only discoverable through a re-list.
		if len(data) > 0 {
			c.logger.Warn("Could not decode record create response, ids unknown",
				zap.String("zone", zone),
				zap.String("record", payload.Name),
				zap.Error(err))
		}
		return nil, nil
	}
	ids := make([]int64, 0, len(created))
	for _, r := range created {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// UpdateRawRecord replaces the payload of an existing record id.
func (c *Client) UpdateRawRecord(ctx context.Context, zone string, rtype dnsmodel.Type, id int64, payload RecordPayload) error {
	domainID, err := c.domainID(ctx, zone)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/domains/%d/records/%s/%d", domainID, wireType(rtype), id)
	if _, err := c.do(ctx, "PUT", path, nil, payload); err != nil {
		return fmt.Errorf("updating %s record %q (id %d) in %s: %w", rtype, payload.Name, id, zone, err)
	}
	return nil
}

// DeleteRawRecord removes a record by provider id.
func (c *Client) DeleteRawRecord(ctx context.Context, zone string, rtype dnsmodel.Type, id int64) error {
	domainID, err := c.domainID(ctx, zone)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/domains/%d/records/%s/%d", domainID, wireType(rtype), id)
	if _, err := c.do(ctx, "DELETE", path, nil, nil); err != nil {
		return fmt.Errorf("deleting %s record id %d in %s: %w", rtype, id, zone, err)
	}
	return nil
}

// wireType maps the model type onto the Constellix endpoint segment. ALIAS is
// called ANAME on the wire.
func wireType(t dnsmodel.Type) string {
	if t == dnsmodel.TypeALIAS {
		return "ANAME"
	}
	return string(t)
}

// absolutize expands a relative target value against the zone apex, matching
// how Constellix stores name-valued payloads.
func absolutize(value, zoneFqdn string) string {
	if value == "" {
		return zoneFqdn
	}
	if strings.HasSuffix(value, ".") {
		return value
	}
	return value + "." + zoneFqdn
}
