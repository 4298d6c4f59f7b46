package glue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderMap_AddSetGet(t *testing.T) {
	t.Parallel()

	h := NewHeaderMap()
	h.Add("X-Trace", "a")
	h.Add("x-trace", "b")

	v, ok := h.Get("X-TRACE")
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, HeaderValue{"a", "b"}, h.Values("X-Trace"))

	h.Set("X-Trace", "only")
	assert.Equal(t, HeaderValue{"only"}, h.Values("X-Trace"))
}

func TestHeaderMap_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	h := NewHeaderMap()
	h.Add("Location", "https://example.com/a")
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")

	data, err := json.Marshal(h)
	require.NoError(t, err)

	var got HeaderMap
	require.NoError(t, json.Unmarshal(data, &got))

	loc, ok := got.Get("Location")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a", loc)
	assert.Equal(t, HeaderValue{"a=1", "b=2"}, got.Values("Set-Cookie"))
}

func TestFetcherFunc(t *testing.T) {
	t.Parallel()

	var f Fetcher = FetcherFunc(func(ctx context.Context, req Request) (Response, error) {
		return Response{StatusCode: 200, Body: []byte(req.URL)}, nil
	})

	resp, err := f.Fetch(context.Background(), NewRequest(MethodGet, "https://example.com/"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "https://example.com/", string(resp.Body))
}

func TestDisabledFetcherAlwaysFails(t *testing.T) {
	t.Parallel()

	_, err := Disabled().Fetch(context.Background(), NewRequest(MethodGet, "https://example.com/"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
}

func TestExtractLocation(t *testing.T) {
	t.Parallel()

	h := NewHeaderMap()
	h.Set("Location", "https://example.com/target")
	resp := Response{StatusCode: 301, Headers: h}

	loc, ok := ExtractLocation(resp)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/target", loc)

	_, ok = ExtractLocation(Response{StatusCode: 200, Headers: NewHeaderMap()})
	assert.False(t, ok)
}
