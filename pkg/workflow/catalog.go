package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flowchat-be/pkg/apperror"

	"github.com/patrickmn/go-cache"
)

const DefaultCatalogTTL = 30 * time.Second

const flowListKey = "flows"

// CatalogClient proxies the engine's flow and health endpoints. Flow lookups are
// cached; health is always fetched live.
type CatalogClient struct {
	client *Client
	cache  *cache.Cache
}

var _ Catalog = &CatalogClient{}

func NewCatalogClient(client *Client, ttl time.Duration) *CatalogClient {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogClient{
		client: client,
		cache:  cache.New(ttl, 2*ttl),
	}
}

func (c *CatalogClient) ListFlows(ctx context.Context) (any, error) {
	return c.cached(ctx, flowListKey, c.client.BaseURL+"/api/v1/flows/")
}

func (c *CatalogClient) GetFlow(ctx context.Context, id string) (any, error) {
	if id == "" {
		return nil, apperror.Validation("flow id is required")
	}
	return c.cached(ctx, "flow:"+id, c.client.BaseURL+"/api/v1/flows/"+url.PathEscape(id))
}

// Health calls {base}/health, with subPath appended when given.
func (c *CatalogClient) Health(ctx context.Context, subPath string) (any, error) {
	target := c.client.BaseURL + "/health"
	if sub := strings.Trim(subPath, "/"); sub != "" {
		target += "/" + sub
	}
	return c.get(ctx, target)
}

// Invalidate drops every cached catalog entry.
func (c *CatalogClient) Invalidate() {
	c.cache.Flush()
}

func (c *CatalogClient) cached(ctx context.Context, key, target string) (any, error) {
	if v, found := c.cache.Get(key); found {
		return v, nil
	}
	v, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, v)
	return v, nil
}

func (c *CatalogClient) get(ctx context.Context, target string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperror.Internal("create workflow catalog request", err)
	}
	req.Header.Set("Accept", "application/json")
	c.client.authorize(req)

	body, err := c.client.do(req)
	if err != nil {
		return nil, err
	}

	var doc any
	if len(body) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		// Non-JSON bodies (plain "ok" health checks) are passed through as text.
		return string(body), nil
	}
	return doc, nil
}

// Flow is one entry of the engine's flow list, keyed for lookup by name.
type Flow struct {
	Key         string `json:"key"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// IndexFlows turns a flow list document (a bare array or {"flows": [...]}) into
// entries keyed by lower-cased name with spaces replaced by dashes. Entries
// without an id are skipped; on duplicate keys the first one wins.
func IndexFlows(doc any) []Flow {
	var list []any
	switch v := doc.(type) {
	case []any:
		list = v
	case map[string]any:
		list, _ = v["flows"].([]any)
	}

	seen := make(map[string]bool, len(list))
	flows := make([]Flow, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := firstString(obj, "id", "flow_id")
		if id == "" {
			continue
		}
		name := firstString(obj, "name", "title")
		if name == "" {
			name = "Workflow " + shortID(id)
		}
		key := FlowKey(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		desc, _ := obj["description"].(string)
		flows = append(flows, Flow{Key: key, ID: id, Name: name, Description: desc})
	}
	return flows
}

// FlowKey normalizes a flow name the way directives refer to it.
func FlowKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

// FindFlow looks a flow up by key.
func FindFlow(flows []Flow, name string) (Flow, bool) {
	key := FlowKey(name)
	for _, f := range flows {
		if f.Key == key {
			return f, true
		}
	}
	return Flow{}, false
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
