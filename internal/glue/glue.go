// Package glue defines the boundary the core evaluator calls through for
// HTTP work (spec.md §1's "HTTP client glue... `fetch(request) -> response`
// contract"). The engine never dials a socket itself: every action that
// needs the network — ExpandShortLink, HTTP-response string sources —
// goes through a Fetcher the caller supplies, so the core stays testable
// with a stub and swappable for a real client at the edges.
package glue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrFetchFailed wraps any error a Fetcher implementation returns, giving
// callers one sentinel to match against regardless of the underlying
// transport.
var ErrFetchFailed = errors.New("glue: fetch failed")

// Method is the small, closed set of HTTP methods the engine issues.
type Method string

const (
	MethodGet  Method = http.MethodGet
	MethodHead Method = http.MethodHead
)

// HeaderValue is one HTTP header's values, preserving repetition order —
// a header may legally appear more than once on the wire.
type HeaderValue []string

// HeaderMap is a case-insensitive multi-map of HTTP headers. Lookups
// normalize to the canonical MIME header form; serialization preserves
// insertion order of distinct header names for determinism in tests and
// on-disk fixtures.
type HeaderMap struct {
	order []string
	m     map[string]HeaderValue
}

// NewHeaderMap returns an empty HeaderMap.
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{m: make(map[string]HeaderValue)}
}

func canonicalKey(name string) string {
	return http.CanonicalHeaderKey(name)
}

// Add appends value to name's HeaderValue, preserving any existing ones.
func (h *HeaderMap) Add(name, value string) {
	key := canonicalKey(name)
	if _, ok := h.m[key]; !ok {
		h.order = append(h.order, key)
	}
	h.m[key] = append(h.m[key], value)
}

// Set replaces name's HeaderValue with a single value.
func (h *HeaderMap) Set(name, value string) {
	key := canonicalKey(name)
	if _, ok := h.m[key]; !ok {
		h.order = append(h.order, key)
	}
	h.m[key] = HeaderValue{value}
}

// Get returns the first value for name, if present.
func (h *HeaderMap) Get(name string) (string, bool) {
	vs, ok := h.m[canonicalKey(name)]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns every value for name in insertion order.
func (h *HeaderMap) Values(name string) HeaderValue {
	return h.m[canonicalKey(name)]
}

// Names returns header names in the order they were first set.
func (h *HeaderMap) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// headerMapJSON is the wire form: an ordered list keeps MarshalJSON
// deterministic, since Go map iteration order is not.
type headerMapJSON struct {
	Name   string      `json:"name"`
	Values HeaderValue `json:"values"`
}

// MarshalJSON renders the map as an ordered list of {name, values}.
func (h HeaderMap) MarshalJSON() ([]byte, error) {
	rows := make([]headerMapJSON, 0, len(h.order))
	for _, name := range h.order {
		rows = append(rows, headerMapJSON{Name: name, Values: h.m[name]})
	}
	return json.Marshal(rows)
}

// UnmarshalJSON restores a HeaderMap from its {name, values} list form.
func (h *HeaderMap) UnmarshalJSON(data []byte) error {
	var rows []headerMapJSON
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	h.m = make(map[string]HeaderValue, len(rows))
	h.order = h.order[:0]
	for _, row := range rows {
		key := canonicalKey(row.Name)
		if _, ok := h.m[key]; !ok {
			h.order = append(h.order, key)
		}
		h.m[key] = row.Values
	}
	return nil
}

// Request describes one outbound HTTP call the engine wants performed.
type Request struct {
	Method  Method
	URL     string
	Headers *HeaderMap
}

// NewRequest builds a Request with an empty header map.
func NewRequest(method Method, url string) Request {
	return Request{Method: method, URL: url, Headers: NewHeaderMap()}
}

// Response is what the engine's HTTP-dependent actions and string sources
// consume: status, headers, and a body already read to completion (the
// engine never streams).
type Response struct {
	StatusCode int
	Headers    *HeaderMap
	Body       []byte
}

// Fetcher is the sole seam between the core evaluator and the network.
// Implementations are expected to honor ctx cancellation and to return a
// Response for any HTTP-level outcome (4xx/5xx included) — only transport
// failures (DNS, TLS, timeout) should surface as an error.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) (Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Disabled returns a Fetcher that always fails, used when the networking
// feature is compiled out (spec.md §6's FeatureDisabled contract) but the
// rest of the engine still needs something satisfying the interface.
func Disabled() Fetcher {
	return FetcherFunc(func(ctx context.Context, req Request) (Response, error) {
		return Response{}, fmt.Errorf("%w: networking feature disabled", ErrFetchFailed)
	})
}

// ExtractLocation returns the Location header of a redirect response,
// used by ExpandShortLink to follow one hop without the engine itself
// implementing redirect-chasing policy.
func ExtractLocation(resp Response) (string, bool) {
	if resp.Headers == nil {
		return "", false
	}
	loc, ok := resp.Headers.Get("Location")
	if !ok || strings.TrimSpace(loc) == "" {
		return "", false
	}
	return loc, true
}
