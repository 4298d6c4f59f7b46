package glue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFetcher is the real-world Fetcher the package doc promises: the
// engine itself never dials a socket, so cmd/urlcleaner-server wires one
// of these in wherever a job needs ExpandShortLink or an HTTP-backed
// string source to actually reach the network.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher builds an HTTPFetcher with the given per-request
// timeout. Redirects are never followed automatically — ExtractLocation
// needs the 3xx response itself, not whatever it points to.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Fetch implements Fetcher against net/http.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if req.Headers != nil {
		for _, name := range req.Headers.Names() {
			for _, v := range req.Headers.Values(name) {
				httpReq.Header.Add(name, v)
			}
		}
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	headers := NewHeaderMap()
	for name, values := range resp.Header {
		for _, v := range values {
			headers.Add(name, v)
		}
	}

	return Response{StatusCode: resp.StatusCode, Headers: headers, Body: body}, nil
}
