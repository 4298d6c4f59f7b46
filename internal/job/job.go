// Package job implements the lazy iteration model that drives the
// cleaner engine over a batch of URLs (spec.md §4.K, component K): a
// Job pairs a cleaner program and a resolved profile with a lazy
// sequence of LazyTaskConfig, and yields LazyTasks that materialize a
// TaskState and run the cleaner's root action on demand.
package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/urlcleaner-go/engine/internal/betterurl"
	"github.com/urlcleaner-go/engine/internal/cache"
	"github.com/urlcleaner-go/engine/internal/cleaner"
	"github.com/urlcleaner-go/engine/internal/glue"
	"github.com/urlcleaner-go/engine/internal/unthreader"
)

// TaskContext and JobContext are re-exported so callers constructing a Job
// don't need to import package cleaner directly just to build one.
type TaskContext = cleaner.TaskContext
type JobContext = cleaner.JobContext

// LazyTaskConfig is one row of raw task input (spec.md §3/§6): either a
// bare URL string, or an object carrying a URL plus optional context. A
// LazyTaskConfig with a nil Context is the "small" task flavor — it omits
// context for throughput-sensitive call sites but shares the same
// execution path as a full task.
type LazyTaskConfig struct {
	URL     string
	Context TaskContext
}

// UnmarshalJSON accepts either shape spec.md §6 names for task input.
func (c *LazyTaskConfig) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		c.URL, c.Context = bare, nil
		return nil
	}

	var obj struct {
		URL     string      `json:"url"`
		Context TaskContext `json:"context"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&obj); err != nil {
		return fmt.Errorf("job: invalid task config: %w", err)
	}
	c.URL, c.Context = obj.URL, obj.Context
	return nil
}

// GetTaskError surfaces a malformed input row without aborting the rest
// of the batch (spec.md §4.K's Result<LazyTask, GetTaskError>). Go has no
// sum type to model that union directly; TaskIterator.Next returns the
// two as a (value, error, ok) triple instead, with exactly one of
// LazyTask/GetTaskError populated whenever ok is true.
type GetTaskError struct {
	Index int
	Err   error
}

func (e *GetTaskError) Error() string { return fmt.Sprintf("job: task %d: %v", e.Index, e.Err) }
func (e *GetTaskError) Unwrap() error { return e.Err }

// Config is the construction input for New: the cleaner program to run,
// which named profile (if any) supplies this job's Params, shared job
// context, and the three resources that can block (spec.md §5) — the
// HTTP fetcher, cache, and unthreader.
type Config struct {
	Cleaner    *cleaner.Cleaner
	Profile    string
	Context    JobContext
	Fetcher    glue.Fetcher
	Cache      *cache.Cache
	Unthreader *unthreader.Unthreader
}

// Job holds a cleaner reference plus the job-wide state every task in the
// batch shares: resolved Params, context, and the blocking resources
// (spec.md §3). It satisfies cleaner.JobHandle so a TaskState can reach
// back into it.
type Job struct {
	id         uuid.UUID
	cleaner    *cleaner.Cleaner
	params     *cleaner.Params
	context    JobContext
	fetcher    glue.Fetcher
	cache      *cache.Cache
	unthreader *unthreader.Unthreader
	configs    []LazyTaskConfig
}

// New resolves cfg's profile against the cleaner's default Params and
// builds a Job over tasks. tasks is consumed lazily by the returned Job's
// TaskIterator — New itself does no URL parsing.
func New(cfg Config, tasks []LazyTaskConfig) (*Job, error) {
	if cfg.Cleaner == nil {
		return nil, errors.New("job: cleaner is required")
	}
	params, err := cfg.Cleaner.ResolveProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}

	u := cfg.Unthreader
	if u == nil {
		u = unthreader.New(unthreader.Off)
	}

	return &Job{
		id:         uuid.New(),
		cleaner:    cfg.Cleaner,
		params:     params,
		context:    cfg.Context,
		fetcher:    cfg.Fetcher,
		cache:      cfg.Cache,
		unthreader: u,
		configs:    tasks,
	}, nil
}

// Context, Commons, Fetcher, Cache, and Unthreader implement
// cleaner.JobHandle.
func (j *Job) Context() JobContext                { return j.context }
func (j *Job) Commons() *cleaner.Commons          { return j.cleaner.Commons }
func (j *Job) Fetcher() glue.Fetcher              { return j.fetcher }
func (j *Job) Cache() *cache.Cache                { return j.cache }
func (j *Job) Unthreader() *unthreader.Unthreader { return j.unthreader }

// ID returns the job's unique identifier, generated at construction and
// stable for the job's lifetime — a caller's logging correlates every
// task outcome and cache build within a batch back to this one value.
func (j *Job) ID() uuid.UUID { return j.id }

// Params returns the job's resolved Params (the program default, or a
// named profile's diff applied over it).
func (j *Job) Params() *cleaner.Params { return j.params }

// Len reports how many task configs this job holds.
func (j *Job) Len() int { return len(j.configs) }

// Tasks returns a fresh iterator over the job's lazy task configs.
func (j *Job) Tasks() *TaskIterator { return &TaskIterator{job: j} }

// TaskIterator walks a Job's LazyTaskConfigs one at a time, deferring URL
// parsing to each LazyTask's own Materialize/Do (spec.md §4.K).
type TaskIterator struct {
	job *Job
	idx int
}

// Next returns the next task in the batch. ok is false once the batch is
// exhausted. Exactly one of task/taskErr is non-nil when ok is true — a
// malformed row never aborts iteration, it's surfaced as taskErr and the
// caller moves on to the next row.
func (it *TaskIterator) Next() (task *LazyTask, taskErr *GetTaskError, ok bool) {
	if it.idx >= len(it.job.configs) {
		return nil, nil, false
	}
	cfg := it.job.configs[it.idx]
	lt := &LazyTask{job: it.job, config: cfg, index: it.idx}
	it.idx++
	if cfg.URL == "" {
		return nil, &GetTaskError{Index: lt.index, Err: errors.New("empty url")}, true
	}
	return lt, nil, true
}

// TaskConfig is a LazyTaskConfig with its URL parsed (spec.md §3).
type TaskConfig struct {
	URL     *betterurl.BetterURL
	Context TaskContext
}

// LazyTask defers parsing its URL until Materialize or Do is called
// (spec.md §3/§4.K).
type LazyTask struct {
	job          *Job
	config       LazyTaskConfig
	index        int
	materialized *TaskConfig
}

// Index returns this task's position in the originating batch.
func (lt *LazyTask) Index() int { return lt.index }

// Materialize parses the task's URL, caching the result so a later Do
// doesn't re-parse.
func (lt *LazyTask) Materialize() (*TaskConfig, *GetTaskError) {
	if lt.materialized != nil {
		return lt.materialized, nil
	}
	u, err := betterurl.Parse(lt.config.URL)
	if err != nil {
		return nil, &GetTaskError{Index: lt.index, Err: err}
	}
	lt.materialized = &TaskConfig{URL: u, Context: lt.config.Context}
	return lt.materialized, nil
}

// CleanError is the task-output error shape spec.md §6 names: a Kind
// drawn from the taxonomy in §7, a human message, and — for an
// Aggregate — the ordered child errors that produced it.
type CleanError struct {
	Kind    string        `json:"kind"`
	Message string        `json:"message"`
	Chain   []*CleanError `json:"chain,omitempty"`
}

func cleanErrorFrom(err error) *CleanError {
	var ce *cleaner.CleanerError
	if errors.As(err, &ce) {
		out := &CleanError{Kind: string(ce.Kind), Message: ce.Message}
		for _, child := range ce.Children {
			out.Chain = append(out.Chain, &CleanError{Kind: string(child.Kind), Message: child.Message})
		}
		return out
	}
	return &CleanError{Kind: "Unknown", Message: err.Error()}
}

// CleanResult is a task's outcome: either a cleaned URL (Success) or a
// CleanError, matching spec.md §6's CleanSuccess/CleanError union.
type CleanResult struct {
	Success bool
	URL     string
	Error   *CleanError
}

// MarshalJSON renders a CleanResult as whichever of the two shapes
// applies, since Go has no tagged union to express the choice in the
// struct's own field layout.
func (r CleanResult) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			URL string `json:"url"`
		}{r.URL})
	}
	return json.Marshal(r.Error)
}

// Do materializes the task if needed, builds its TaskState against the
// job's resolved Params, and runs the cleaner's root action
// (spec.md §4.K). A per-task failure never panics or aborts the batch —
// it comes back as a CleanResult with Error set.
func (lt *LazyTask) Do(ctx context.Context) CleanResult {
	tc, taskErr := lt.Materialize()
	if taskErr != nil {
		return CleanResult{Error: &CleanError{Kind: "ParseError", Message: taskErr.Err.Error()}}
	}

	state := cleaner.NewTaskState(tc.URL, tc.Context, lt.job.params, lt.job)
	if err := lt.job.cleaner.Clean(ctx, state); err != nil {
		return CleanResult{Error: cleanErrorFrom(err)}
	}
	return CleanResult{Success: true, URL: state.URL().String()}
}
