package cleaner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/urlcleaner-go/engine/internal/betterurl"
	"github.com/urlcleaner-go/engine/internal/cache"
	"github.com/urlcleaner-go/engine/internal/containers"
	"github.com/urlcleaner-go/engine/internal/glue"
	"github.com/urlcleaner-go/engine/internal/unthreader"
)

// makeTestSet builds a containers.Set of present string keys.
func makeTestSet(values ...string) *containers.Set {
	keys := make([]containers.OptString, 0, len(values))
	for _, v := range values {
		keys = append(keys, containers.Some(v))
	}
	return containers.NewSet(keys...)
}

// testJob is a minimal JobHandle for tests that don't exercise job
// wiring directly.
type testJob struct {
	ctx        JobContext
	commons    *Commons
	fetcher    glue.Fetcher
	cache      *cache.Cache
	unthreader *unthreader.Unthreader
}

func (j *testJob) Context() JobContext                { return j.ctx }
func (j *testJob) Commons() *Commons                  { return j.commons }
func (j *testJob) Fetcher() glue.Fetcher              { return j.fetcher }
func (j *testJob) Cache() *cache.Cache                { return j.cache }
func (j *testJob) Unthreader() *unthreader.Unthreader { return j.unthreader }

func newTestTaskState(t *testing.T, rawURL string) *TaskState {
	t.Helper()

	u, err := betterurl.Parse(rawURL)
	require.NoError(t, err)

	job := &testJob{
		ctx:        JobContext{},
		commons:    NewCommons(),
		unthreader: unthreader.New(unthreader.Off),
	}

	return NewTaskState(u, TaskContext{}, NewParams(), job)
}
