package cleaner

import (
	"github.com/urlcleaner-go/engine/internal/betterurl"
	"github.com/urlcleaner-go/engine/internal/cache"
	"github.com/urlcleaner-go/engine/internal/glue"
	"github.com/urlcleaner-go/engine/internal/unthreader"
)

// TaskContext is per-task context data supplied alongside the URL in a
// LazyTaskConfig (spec.md §3).
type TaskContext map[string]string

// JobContext is context shared by every task in one Job (spec.md §3).
type JobContext map[string]string

// JobHandle is the slice of a running Job a TaskState borrows: the
// commons table, shared context, and the three resources that can block
// (spec.md §5) — HTTP fetcher, cache, unthreader. Defined here rather
// than imported from package job to avoid an import cycle (job depends
// on cleaner, not the other way around); package job's *Job satisfies it.
type JobHandle interface {
	Context() JobContext
	Commons() *Commons
	Fetcher() glue.Fetcher
	Cache() *cache.Cache
	Unthreader() *unthreader.Unthreader
}

// TaskState is the mutable execution context handed to Actions: owned
// URL, borrowed task context, borrowed params, borrowed job, and a
// current CallArgs slot for stacked function calls (spec.md §3).
type TaskState struct {
	url        *betterurl.BetterURL
	scratchpad *Scratchpad
	context    TaskContext
	params     *Params
	callArgs   CallArgs
	job        JobHandle
}

// NewTaskState constructs the state a LazyTask.do() runs its root Action
// against.
func NewTaskState(url *betterurl.BetterURL, taskCtx TaskContext, params *Params, job JobHandle) *TaskState {
	return &TaskState{
		url:        url,
		scratchpad: NewScratchpad(),
		context:    taskCtx,
		params:     params,
		callArgs:   EmptyCallArgs(),
		job:        job,
	}
}

// TaskStateView is the read-only narrowing of TaskState that
// StringSource/Condition evaluators receive (spec.md §3's "immutable
// siblings... constructed by narrowing"). *TaskState satisfies it
// directly; Actions hold the full *TaskState for mutation.
type TaskStateView interface {
	URL() *betterurl.BetterURL
	Scratchpad() *Scratchpad
	Context() TaskContext
	Params() *Params
	CallArgs() CallArgs
	Job() JobHandle
}

func (s *TaskState) URL() *betterurl.BetterURL { return s.url }
func (s *TaskState) Scratchpad() *Scratchpad   { return s.scratchpad }
func (s *TaskState) Context() TaskContext      { return s.context }
func (s *TaskState) Params() *Params           { return s.params }
func (s *TaskState) CallArgs() CallArgs        { return s.callArgs }
func (s *TaskState) Job() JobHandle            { return s.job }

// snapshot is the (URL clone + scratchpad clone) pair TryElse/FirstNotError
// take on entry, per spec.md §4.H's error-recovery contract.
type snapshot struct {
	url        *betterurl.BetterURL
	scratchpad *Scratchpad
}

func (s *TaskState) snapshot() snapshot {
	return snapshot{url: s.url.Clone(), scratchpad: s.scratchpad.Clone()}
}

// rollback restores s to snap in place, so every Action that captured a
// pointer to s's *Scratchpad or *BetterURL observes the rollback too.
func (s *TaskState) rollback(snap snapshot) {
	*s.url = *snap.url
	s.scratchpad.restoreFrom(snap.scratchpad)
}

// pushCallArgs installs args as the current-call slot, returning the
// previous one so the caller can restore it once the call returns
// (spec.md §4.I).
func (s *TaskState) pushCallArgs(args CallArgs) CallArgs {
	prev := s.callArgs
	s.callArgs = args
	return prev
}

func (s *TaskState) popCallArgs(prev CallArgs) {
	s.callArgs = prev
}
