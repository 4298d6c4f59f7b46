package cleaner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urlcleaner-go/engine/internal/containers"
)

func TestStringMatcher_Equals(t *testing.T) {
	t.Parallel()

	view := newTestTaskState(t, "https://example.com/")
	m, err := ParseStringMatcher([]byte(`{"Equals":{"value":"foo"}}`))
	require.NoError(t, err)

	ok, err := m.Matches(context.Background(), view, "foo")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Matches(context.Background(), view, "bar")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStringMatcher_Regex(t *testing.T) {
	t.Parallel()

	view := newTestTaskState(t, "https://example.com/")
	m, err := ParseStringMatcher([]byte(`{"Regex":{"pattern":"^utm_"}}`))
	require.NoError(t, err)

	ok, err := m.Matches(context.Background(), view, "utm_source")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Matches(context.Background(), view, "ref")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStringMatcher_Glob(t *testing.T) {
	t.Parallel()

	view := newTestTaskState(t, "https://example.com/")
	m, err := ParseStringMatcher([]byte(`{"Glob":{"pattern":"utm_*"}}`))
	require.NoError(t, err)

	ok, err := m.Matches(context.Background(), view, "utm_campaign")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStringMatcher_LengthIs(t *testing.T) {
	t.Parallel()

	view := newTestTaskState(t, "https://example.com/")
	min, max := 2, 4
	m := matcherLengthIs{Min: &min, Max: &max}

	ok, err := m.Matches(context.Background(), view, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Matches(context.Background(), view, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStringMatcher_AllAnyNot(t *testing.T) {
	t.Parallel()

	view := newTestTaskState(t, "https://example.com/")

	all, err := ParseStringMatcher([]byte(`{"All":[{"Equals":{"value":"x"}},{"Equals":{"value":"x"}}]}`))
	require.NoError(t, err)
	ok, err := all.Matches(context.Background(), view, "x")
	require.NoError(t, err)
	assert.True(t, ok)

	any, err := ParseStringMatcher([]byte(`{"Any":[{"Equals":{"value":"x"}},{"Equals":{"value":"y"}}]}`))
	require.NoError(t, err)
	ok, err = any.Matches(context.Background(), view, "y")
	require.NoError(t, err)
	assert.True(t, ok)

	not, err := ParseStringMatcher([]byte(`{"Not":{"Equals":{"value":"x"}}}`))
	require.NoError(t, err)
	ok, err = not.Matches(context.Background(), view, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStringMatcher_SetMembership(t *testing.T) {
	t.Parallel()

	view := newTestTaskState(t, "https://example.com/")
	view.Params().NamedSets["tracking"] = makeTestSet("utm_source", "utm_medium")

	m, err := ParseStringMatcher([]byte(`{"SetMembership":{"set":"tracking"}}`))
	require.NoError(t, err)

	ok, err := m.Matches(context.Background(), view, "utm_source")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Matches(context.Background(), view, "ref")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Matches(context.Background(), newTestTaskState(t, "https://example.com/"), "utm_source")
	assert.Error(t, err)
}

func TestStringMatcher_PartitionGroupIs(t *testing.T) {
	t.Parallel()

	view := newTestTaskState(t, "https://example.com/")
	view.Params().NamedPartMaps["hosts"] = containers.NewNamedPartitioning(map[string][]containers.OptString{
		"social": {containers.Some("x.com"), containers.Some("facebook.com")},
		"search": {containers.Some("google.com")},
	})

	m, err := ParseStringMatcher([]byte(`{"PartitionGroupIs":{"partitioning":"hosts","group":"social"}}`))
	require.NoError(t, err)

	ok, err := m.Matches(context.Background(), view, "x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Matches(context.Background(), view, "google.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Matches(context.Background(), newTestTaskState(t, "https://example.com/"), "x.com")
	assert.Error(t, err)
}

func TestStringMatcher_AllCharsMatch(t *testing.T) {
	t.Parallel()

	view := newTestTaskState(t, "https://example.com/")
	m, err := ParseStringMatcher([]byte(`{"AllCharsMatch":{"matcher":{"Category":{"name":"digit"}}}}`))
	require.NoError(t, err)

	ok, err := m.Matches(context.Background(), view, "12345")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Matches(context.Background(), view, "123a5")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Matches(context.Background(), view, "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStringMatcher_AnyCharMatches(t *testing.T) {
	t.Parallel()

	view := newTestTaskState(t, "https://example.com/")
	m, err := ParseStringMatcher([]byte(`{"AnyCharMatches":{"matcher":{"Set":{"chars":"_-"}}}}`))
	require.NoError(t, err)

	ok, err := m.Matches(context.Background(), view, "utm_source")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Matches(context.Background(), view, "utmsource")
	require.NoError(t, err)
	assert.False(t, ok)
}
