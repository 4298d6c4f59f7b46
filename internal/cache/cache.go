// Package cache implements the (category, key) -> value memo (spec.md §4,
// component D) with at-most-once build semantics: a miss registers an
// in-progress lease, concurrent lookups for the same key wait on that
// lease instead of racing to rebuild, and the result is shared with every
// waiter once the lease completes.
package cache

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/urlcleaner-go/engine/internal/unthreader"
)

var (
	// ErrCacheIO covers failures loading or appending to the on-disk store.
	ErrCacheIO = errors.New("cache: io error")
	// ErrCacheRecursion is surfaced when a build would re-enter its own
	// in-flight (category, key), directly or transitively.
	ErrCacheRecursion = errors.New("cache: recursive build detected")
)

// EntryKey identifies one memoized value.
type EntryKey struct {
	Category string
	Key      string
}

type state int

const (
	missing state = iota
	building
	done
	errored
)

type entry struct {
	state    state
	value    string
	buildErr error
	duration time.Duration
	ready    chan struct{}
	lease    uuid.UUID
}

// Config controls lookup/persistence behavior for one Cache.
type Config struct {
	// Read, if false, treats every lookup as a miss regardless of what is
	// stored (spec.md §4.H CacheUrl semantics).
	Read bool
	// Write, if false, never persists a build result to disk.
	Write bool
	// Delay, if true, replays the original build's wall-clock duration on
	// a hit instead of returning immediately, for reproducible benchmarks.
	Delay bool
	// Path, if non-empty, backs the cache with an on-disk file loaded at
	// construction and appended to after every build.
	Path string
	// OnLeaseStart, if set, is called with a fresh lease token whenever a
	// miss begins a build, letting a caller correlate concurrent cache
	// builds in its own logs (spec.md's cache build-lease token).
	OnLeaseStart func(EntryKey, uuid.UUID)
	// Seed prepopulates the cache at construction from an external store
	// (e.g. internal/sqlcache), alongside or instead of the flat-file Path.
	Seed map[EntryKey]SeedEntry
	// OnPersist, if set and Write is true, is called after every completed
	// build (hits excluded) so an external store can be kept in sync the
	// same way the on-disk file is appended to.
	OnPersist func(EntryKey, SeedEntry) error
}

// SeedEntry is one externally-sourced cache outcome, used both to
// prepopulate a Cache (Config.Seed) and to hand a freshly built result to
// Config.OnPersist.
type SeedEntry struct {
	Value    string
	Err      error
	Duration time.Duration
}

// DefaultConfig returns a Config with read/write enabled, delay off, and
// no on-disk backing.
func DefaultConfig() Config {
	return Config{Read: true, Write: true}
}

// BuildFunc computes the value for a cache miss. It receives a context
// carrying the chain of (category, key) pairs currently being built, used
// to detect recursive re-entry.
type BuildFunc func(ctx context.Context) (string, error)

// Cache is a process-wide (category, key) -> value memo, optionally backed
// by a single on-disk file (spec.md §6's tab-separated layout).
type Cache struct {
	mu         sync.Mutex
	entries    map[EntryKey]*entry
	cfg        Config
	file       *os.File
	unthreader *unthreader.Unthreader
}

// New constructs a Cache. If cfg.Path is non-empty, existing entries are
// loaded from it and the file is opened for append; u, if non-nil, is used
// as the stable baseline for Delay replay instead of time.Now().
func New(cfg Config, u *unthreader.Unthreader) (*Cache, error) {
	c := &Cache{
		entries:    make(map[EntryKey]*entry),
		cfg:        cfg,
		unthreader: u,
	}
	for ek, seed := range cfg.Seed {
		e := &entry{duration: seed.Duration, ready: closedChan()}
		if seed.Err != nil {
			e.state = errored
			e.buildErr = seed.Err
		} else {
			e.state = done
			e.value = seed.Value
		}
		c.entries[ek] = e
	}
	if cfg.Path == "" {
		return c, nil
	}
	if err := c.load(cfg.Path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	c.file = f
	return c, nil
}

// Peek reads a stored entry without registering a build lease, for
// callers that have no inner action to run on a miss (a read-only cache
// lookup rather than CacheUrl's memoize-or-build). A miss, an in-progress
// build, or an errored entry are all reported as "not found".
func (c *Cache) Peek(category, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, exists := c.entries[EntryKey{Category: category, Key: key}]
	if !exists || e.state != done {
		return "", false
	}
	return e.value, true
}

// Close releases the on-disk file handle, if any.
func (c *Cache) Close() error {
	if c.file == nil {
		return nil
	}
	return c.file.Close()
}

func (c *Cache) load(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) != 4 {
			continue
		}

		var category, key string
		if err := json.Unmarshal([]byte(parts[0]), &category); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(parts[1]), &key); err != nil {
			continue
		}
		ms, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}

		e := &entry{
			state:    done,
			duration: time.Duration(ms) * time.Millisecond,
			ready:    closedChan(),
		}
		payload := parts[3]
		if strings.HasPrefix(payload, "!") {
			var msg string
			if err := json.Unmarshal([]byte(payload[1:]), &msg); err != nil {
				continue
			}
			e.state = errored
			e.buildErr = errors.New(msg)
		} else {
			var val string
			if err := json.Unmarshal([]byte(payload), &val); err != nil {
				continue
			}
			e.value = val
		}

		c.entries[EntryKey{Category: category, Key: key}] = e
	}
	return sc.Err()
}

func (c *Cache) persist(ek EntryKey, e *entry) error {
	if !c.cfg.Write {
		return nil
	}
	if c.cfg.OnPersist != nil {
		seed := SeedEntry{Value: e.value, Duration: e.duration}
		if e.state == errored {
			seed.Err = e.buildErr
		}
		if err := c.cfg.OnPersist(ek, seed); err != nil {
			return err
		}
	}
	if c.file == nil {
		return nil
	}
	catJSON, err := json.Marshal(ek.Category)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	keyJSON, err := json.Marshal(ek.Key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheIO, err)
	}

	var payload []byte
	if e.state == errored {
		msgJSON, err := json.Marshal(e.buildErr.Error())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheIO, err)
		}
		payload = append([]byte("!"), msgJSON...)
	} else {
		payload, err = json.Marshal(e.value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheIO, err)
		}
	}

	line := fmt.Sprintf("%s\t%s\t%d\t%s\n", catJSON, keyJSON, e.duration.Milliseconds(), payload)
	if _, err := c.file.WriteString(line); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	if err := c.file.Sync(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	return nil
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type inFlightKey struct{}

func withInFlight(ctx context.Context, ek EntryKey) (context.Context, bool) {
	existing, _ := ctx.Value(inFlightKey{}).(map[EntryKey]bool)
	if existing[ek] {
		return ctx, false
	}
	next := make(map[EntryKey]bool, len(existing)+1)
	for k := range existing {
		next[k] = true
	}
	next[ek] = true
	return context.WithValue(ctx, inFlightKey{}, next), true
}

// GetOrBuild looks up (category, key). On a hit it returns the stored
// value or error, replaying the original build's duration if Delay is
// set. On a miss it registers an in-progress lease, runs build, and
// publishes the result to any concurrent waiters for the same key.
func (c *Cache) GetOrBuild(ctx context.Context, category, key string, build BuildFunc) (string, error) {
	ek := EntryKey{Category: category, Key: key}

	if building, ok := ctx.Value(inFlightKey{}).(map[EntryKey]bool); ok && building[ek] {
		return "", fmt.Errorf("%w: %s %s", ErrCacheRecursion, category, key)
	}

	if !c.cfg.Read {
		return c.buildFresh(ctx, ek, build)
	}

	for {
		c.mu.Lock()
		e, exists := c.entries[ek]
		if !exists {
			e = &entry{state: building, ready: make(chan struct{}), lease: uuid.New()}
			c.entries[ek] = e
			c.mu.Unlock()
			if c.cfg.OnLeaseStart != nil {
				c.cfg.OnLeaseStart(ek, e.lease)
			}
			return c.runBuild(ctx, ek, e, build)
		}

		switch e.state {
		case done:
			c.mu.Unlock()
			c.replayDelay(e.duration)
			return e.value, nil
		case errored:
			c.mu.Unlock()
			c.replayDelay(e.duration)
			return "", e.buildErr
		default: // building
			ready := e.ready
			c.mu.Unlock()
			<-ready
			// loop around: re-read, since the lease holder may have
			// dropped it back to missing (panic/cancellation) rather
			// than publishing a result.
		}
	}
}

func (c *Cache) runBuild(ctx context.Context, ek EntryKey, e *entry, build BuildFunc) (result string, resultErr error) {
	childCtx, _ := withInFlight(ctx, ek)

	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			delete(c.entries, ek)
			close(e.ready)
			c.mu.Unlock()
			panic(r)
		}
	}()

	start := time.Now()
	val, err := build(childCtx)
	dur := time.Since(start)

	c.mu.Lock()
	e.duration = dur
	if err != nil {
		e.state = errored
		e.buildErr = err
	} else {
		e.state = done
		e.value = val
	}
	close(e.ready)
	c.mu.Unlock()

	if perr := c.persist(ek, e); perr != nil {
		return val, perr
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (c *Cache) buildFresh(ctx context.Context, ek EntryKey, build BuildFunc) (string, error) {
	childCtx, _ := withInFlight(ctx, ek)

	lease := uuid.New()
	if c.cfg.OnLeaseStart != nil {
		c.cfg.OnLeaseStart(ek, lease)
	}

	start := time.Now()
	val, err := build(childCtx)
	dur := time.Since(start)

	e := &entry{duration: dur}
	if err != nil {
		e.state = errored
		e.buildErr = err
	} else {
		e.state = done
		e.value = val
	}
	if perr := c.persist(ek, e); perr != nil {
		return val, perr
	}
	return val, err
}

func (c *Cache) replayDelay(d time.Duration) {
	if !c.cfg.Delay {
		return
	}
	if c.unthreader != nil {
		if last, ok := c.unthreader.LastRelease(); ok {
			if remaining := d - time.Since(last); remaining > 0 {
				time.Sleep(remaining)
			}
			return
		}
	}
	time.Sleep(d)
}
