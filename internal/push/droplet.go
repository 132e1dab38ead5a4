package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/griffithind/dockertree/internal/dterrors"
)

// DefaultDropletAPIBase is the droplet provider's REST API root. Grounded
// on the DigitalOcean API's request/response shape, since spec §6.4 names
// DIGITALOCEAN_API_TOKEN as the droplet-provider token's default env var.
const DefaultDropletAPIBase = "https://api.digitalocean.com/v2"

// DropletClient is a minimal typed REST client over the droplet provider
// API, structured the way the example pack's own cloud provisioners are
// structured (typed request/response structs, context-bound calls) —
// no droplet-provider SDK exists anywhere in the retrieved corpus (see
// DESIGN.md), so this is built directly on net/http + encoding/json.
type DropletClient struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewDropletClient builds a DropletClient with sane defaults.
func NewDropletClient(token string) *DropletClient {
	return &DropletClient{
		BaseURL: DefaultDropletAPIBase,
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Droplet is the subset of droplet-provider fields dockertree cares about.
type Droplet struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Region   string   `json:"region_slug,omitempty"`
	PublicIP string   `json:"-"`
	VPCUUID  string   `json:"vpc_uuid,omitempty"`
	PrivateIP string  `json:"-"`
	Networks NetworksEnvelope `json:"networks,omitempty"`
}

// NetworksEnvelope mirrors the droplet provider's `networks` object.
type NetworksEnvelope struct {
	V4 []NetworkV4 `json:"v4"`
}

// NetworkV4 is one IPv4 network interface record.
type NetworkV4 struct {
	IPAddress string `json:"ip_address"`
	Type      string `json:"type"` // "public" or "private"
}

func (d *Droplet) resolveIPs() {
	for _, n := range d.Networks.V4 {
		switch n.Type {
		case "public":
			d.PublicIP = n.IPAddress
		case "private":
			d.PrivateIP = n.IPAddress
		}
	}
}

// CreateDropletRequest parameterizes droplet creation, per spec §6.1's
// `droplet create` flags.
type CreateDropletRequest struct {
	Name     string   `json:"name"`
	Region   string   `json:"region"`
	Size     string   `json:"size"`
	Image    string   `json:"image"`
	SSHKeys  []string `json:"ssh_keys,omitempty"`
	VPCUUID  string   `json:"vpc_uuid,omitempty"`
}

// Create provisions a new droplet and returns it in its initial (likely
// "new") state; callers should poll WaitUntilActive for readiness.
func (c *DropletClient) Create(ctx context.Context, req CreateDropletRequest) (*Droplet, error) {
	var envelope struct {
		Droplet Droplet `json:"droplet"`
	}
	if err := c.call(ctx, http.MethodPost, "/droplets", req, &envelope); err != nil {
		return nil, err
	}
	envelope.Droplet.resolveIPs()
	return &envelope.Droplet, nil
}

// Get fetches a droplet by numeric ID.
func (c *DropletClient) Get(ctx context.Context, id int64) (*Droplet, error) {
	var envelope struct {
		Droplet Droplet `json:"droplet"`
	}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/droplets/%d", id), nil, &envelope); err != nil {
		return nil, err
	}
	envelope.Droplet.resolveIPs()
	return &envelope.Droplet, nil
}

// List returns every droplet visible to the token.
func (c *DropletClient) List(ctx context.Context) ([]Droplet, error) {
	var envelope struct {
		Droplets []Droplet `json:"droplets"`
	}
	if err := c.call(ctx, http.MethodGet, "/droplets", nil, &envelope); err != nil {
		return nil, err
	}
	for i := range envelope.Droplets {
		envelope.Droplets[i].resolveIPs()
	}
	return envelope.Droplets, nil
}

// FindByName looks up a droplet by exact name match, for spec §4.10 step
// 1's "droplet id or name" target resolution.
func (c *DropletClient) FindByName(ctx context.Context, name string) (*Droplet, error) {
	droplets, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range droplets {
		if d.Name == name {
			return &d, nil
		}
	}
	return nil, dterrors.Newf(dterrors.CategoryNotFound, dterrors.CodeDropletNotFound,
		"no droplet named %q", name)
}

// Destroy deletes one or more droplets by ID.
func (c *DropletClient) Destroy(ctx context.Context, ids []int64) error {
	for _, id := range ids {
		if err := c.call(ctx, http.MethodDelete, fmt.Sprintf("/droplets/%d", id), nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// Region is one entry of the droplet provider's region catalog.
type Region struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Regions lists the droplet provider's available regions.
func (c *DropletClient) Regions(ctx context.Context) ([]Region, error) {
	var envelope struct {
		Regions []Region `json:"regions"`
	}
	if err := c.call(ctx, http.MethodGet, "/regions", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Regions, nil
}

// WaitUntilActive polls Get until the droplet reports status "active" and
// has a public IP, or ctx is done. Spec §5 budgets droplet readiness at
// 600s; callers should bound ctx accordingly.
func (c *DropletClient) WaitUntilActive(ctx context.Context, id int64) (*Droplet, error) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		d, err := c.Get(ctx, id)
		if err == nil && d.Status == "active" && d.PublicIP != "" {
			return d, nil
		}
		select {
		case <-ctx.Done():
			return nil, dterrors.Wrap(ctx.Err(), dterrors.CategoryTimeout, dterrors.CodeOperationTimedOut,
				"timed out waiting for droplet to become reachable")
		case <-ticker.C:
		}
	}
}

func (c *DropletClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return dterrors.Wrap(err, dterrors.CategoryPush, "DROPLET_MARSHAL", "failed to marshal droplet-provider request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return dterrors.Wrap(err, dterrors.CategoryPush, "DROPLET_REQUEST", "failed to build droplet-provider request")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return dterrors.Wrapf(err, dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
			"droplet-provider request failed: %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return dterrors.Newf(dterrors.CategoryNetwork, dterrors.CodeConnectivityFailed,
			"droplet provider returned %d for %s %s: %s", resp.StatusCode, method, path, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dterrors.Wrap(err, dterrors.CategoryPush, "DROPLET_DECODE", "failed to decode droplet-provider response")
	}
	return nil
}
