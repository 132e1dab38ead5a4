package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// DefaultDNSAPIBase mirrors DropletClient's provider (the droplet provider
// and DNS provider are the same service in the reference deployment, per
// spec §6.4's DIGITALOCEAN_API_TOKEN/DNS_API_TOKEN pairing).
const DefaultDNSAPIBase = "https://api.digitalocean.com/v2"

// DNSClient manages A records for a domain via the provider's REST API.
type DNSClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewDNSClient builds a DNSClient with sane defaults.
func NewDNSClient(token string) *DNSClient {
	return &DNSClient{
		BaseURL: DefaultDNSAPIBase,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SplitDomain splits a fully-qualified domain into (sub, root) per spec
// §4.10 step 3, treating the final two labels as the root zone (e.g.
// "app.example.com" -> ("app", "example.com")). A bare two-label domain
// splits to ("@", domain) per DNS convention for the apex record.
func SplitDomain(domain string) (sub, root string) {
	labels := strings.Split(domain, ".")
	if len(labels) <= 2 {
		return "@", domain
	}
	return strings.Join(labels[:len(labels)-2], "."), strings.Join(labels[len(labels)-2:], ".")
}

// aRecord mirrors the provider's domain-record shape for type A.
type aRecord struct {
	ID   int64  `json:"id,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
	Data string `json:"data"`
	TTL  int    `json:"ttl,omitempty"`
}

// EnsureARecord creates or updates an A record for sub under root pointing
// at ip, per spec §4.10 step 3. Idempotent: an existing record with the
// same name is updated in place rather than duplicated.
func (c *DNSClient) EnsureARecord(ctx context.Context, root, sub, ip string) error {
	existing, err := c.listRecords(ctx, root)
	if err != nil {
		return err
	}

	for _, r := range existing {
		if r.Type == "A" && r.Name == sub {
			if r.Data == ip {
				return nil
			}
			return c.updateRecord(ctx, root, r.ID, aRecord{Type: "A", Name: sub, Data: ip, TTL: 300})
		}
	}

	return c.createRecord(ctx, root, aRecord{Type: "A", Name: sub, Data: ip, TTL: 300})
}

func (c *DNSClient) listRecords(ctx context.Context, root string) ([]aRecord, error) {
	var envelope struct {
		DomainRecords []aRecord `json:"domain_records"`
	}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/domains/%s/records", root), nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.DomainRecords, nil
}

func (c *DNSClient) createRecord(ctx context.Context, root string, rec aRecord) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/domains/%s/records", root), rec, nil)
}

func (c *DNSClient) updateRecord(ctx context.Context, root string, id int64, rec aRecord) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/domains/%s/records/%d", root, id), rec, nil)
}

func (c *DNSClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return dterrors.Wrap(err, dterrors.CategoryPush, "DNS_MARSHAL", "failed to marshal DNS-provider request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryPush, "DNS_REQUEST", "failed to build DNS-provider request")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
			"DNS-provider request failed: %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return dterrors.Newf(dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
			"DNS provider returned %d for %s %s: %s", resp.StatusCode, method, path, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryPush, "DNS_DECODE", "failed to decode DNS-provider response")
	}
	return nil
}
