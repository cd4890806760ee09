package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
)

// RESTClient issues anonymous calls against the project's REST surface.
type RESTClient interface {
	// Probe GETs RESTPrefix+path and returns the status code. Any response,
	// whatever its status, is a success; only transport failures error.
	Probe(ctx context.Context, path string) (int, error)
	// ListEndpoints reads the published OpenAPI document.
	ListEndpoints(ctx context.Context) ([]Endpoint, error)
}

// Endpoint is one path of the REST surface.
type Endpoint struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
	Summary string   `json:"summary,omitempty"`
}

type restClient struct {
	t *transport
}

// NewRESTClient configures an anonymous client for url. publicKey may be
// empty, in which case no key header is sent. It performs no I/O.
func NewRESTClient(url, publicKey string, opts ...ClientOption) RESTClient {
	return &restClient{t: newTransport(url, publicKey, false, opts)}
}

// ProbeURL returns the address a probe of path would hit.
func ProbeURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + RESTPrefix + path
}

func (c *restClient) Probe(ctx context.Context, path string) (int, error) {
	resp, err := c.t.do(ctx, http.MethodGet, RESTPrefix+path, nil)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *restClient) ListEndpoints(ctx context.Context) ([]Endpoint, error) {
	resp, err := c.t.do(ctx, http.MethodGet, RESTPrefix+"/", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var doc openapi2.T
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	return endpointsFromDoc(&doc), nil
}

func endpointsFromDoc(doc *openapi2.T) []Endpoint {
	endpoints := make([]Endpoint, 0, len(doc.Paths))
	for path, item := range doc.Paths {
		if item == nil {
			continue
		}
		ep := Endpoint{Path: path}
		ops := []struct {
			method string
			op     *openapi2.Operation
		}{
			{http.MethodGet, item.Get},
			{http.MethodPost, item.Post},
			{http.MethodPut, item.Put},
			{http.MethodPatch, item.Patch},
			{http.MethodDelete, item.Delete},
			{http.MethodHead, item.Head},
			{http.MethodOptions, item.Options},
		}
		for _, o := range ops {
			if o.op == nil {
				continue
			}
			ep.Methods = append(ep.Methods, o.method)
			if ep.Summary == "" {
				ep.Summary = o.op.Summary
			}
		}
		endpoints = append(endpoints, ep)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Path < endpoints[j].Path })
	return endpoints
}
