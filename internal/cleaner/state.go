package cleaner

import (
	"github.com/urlcleaner-go/engine/internal/containers"
)

// Scratchpad is per-task mutable state: created empty when a task starts,
// discarded when it ends (spec.md §3).
type Scratchpad struct {
	flags map[string]struct{}
	vars  map[string]string
}

// NewScratchpad returns an empty Scratchpad.
func NewScratchpad() *Scratchpad {
	return &Scratchpad{flags: make(map[string]struct{}), vars: make(map[string]string)}
}

// Clone deep-copies the scratchpad, used for the rollback snapshot taken
// on entry to TryElse/FirstNotError.
func (s *Scratchpad) Clone() *Scratchpad {
	c := NewScratchpad()
	for f := range s.flags {
		c.flags[f] = struct{}{}
	}
	for k, v := range s.vars {
		c.vars[k] = v
	}
	return c
}

func (s *Scratchpad) HasFlag(name string) bool { _, ok := s.flags[name]; return ok }
func (s *Scratchpad) SetFlag(name string)      { s.flags[name] = struct{}{} }
func (s *Scratchpad) UnsetFlag(name string)    { delete(s.flags, name) }

func (s *Scratchpad) GetVar(name string) (string, bool) { v, ok := s.vars[name]; return v, ok }
func (s *Scratchpad) SetVar(name, value string)         { s.vars[name] = value }
func (s *Scratchpad) DeleteVar(name string)             { delete(s.vars, name) }

// restoreFrom overwrites s's contents with snapshot's, in place, so a
// rolled-back TaskState keeps the same *Scratchpad identity actions may
// have captured a reference to.
func (s *Scratchpad) restoreFrom(snapshot *Scratchpad) {
	c := snapshot.Clone()
	s.flags = c.flags
	s.vars = c.vars
}

// CacheConfig controls the behavior of CacheUrl (spec.md §4.H).
type CacheConfig struct {
	Read  bool
	Write bool
	Delay bool
	Path  string
}

// Params is per-job immutable state shared across every task (spec.md
// §3): flags, vars, and named collections a program references by name.
type Params struct {
	Flags         *containers.Set
	Vars          *containers.Map
	NamedSets     map[string]*containers.Set
	NamedMaps     map[string]*containers.Map
	NamedPartMaps map[string]*containers.NamedPartitioning
	Cache         CacheConfig
}

// NewParams returns an empty, ready-to-use Params.
func NewParams() *Params {
	return &Params{
		Flags:         containers.NewSet(),
		Vars:          containers.NewMap(nil),
		NamedSets:     make(map[string]*containers.Set),
		NamedMaps:     make(map[string]*containers.Map),
		NamedPartMaps: make(map[string]*containers.NamedPartitioning),
	}
}

// ParamsDiffOp is one add/remove/set step of a ParamsDiff.
type ParamsDiffOp struct {
	// Kind selects which field the op targets: "flag", "var", "set",
	// "map", "partitioning".
	Kind   string
	Name   string // named-collection name, empty for flags/vars
	Key    string
	Value  string
	Remove bool
}

// ParamsDiff is an ordered recipe of operations applicable to a Params
// (spec.md §3). Applying it is idempotent if the ops' targets are
// disjoint, per spec, but the engine does not itself enforce disjointness
// — a malformed diff simply produces whatever sequential application
// yields.
type ParamsDiff struct {
	Ops []ParamsDiffOp
}

// Apply returns a new Params with the diff's operations applied over a
// copy of base; base itself is never mutated (profiles must be
// constructible without disturbing the program's default Params).
func (d *ParamsDiff) Apply(base *Params) *Params {
	p := base.clone()
	for _, op := range d.Ops {
		switch op.Kind {
		case "flag":
			if op.Remove {
				p.Flags.Remove(containers.Some(op.Name))
			} else {
				p.Flags.Insert(containers.Some(op.Name))
			}
		case "var":
			if op.Remove {
				// Map has no delete; represent removal as absence by
				// rebuilding without the key.
				p.Vars = removeMapKey(p.Vars, op.Name)
			} else {
				p.Vars.Set(containers.Some(op.Name), op.Value)
			}
		case "set":
			s, ok := p.NamedSets[op.Name]
			if !ok {
				s = containers.NewSet()
				p.NamedSets[op.Name] = s
			}
			if op.Remove {
				s.Remove(containers.Some(op.Key))
			} else {
				s.Insert(containers.Some(op.Key))
			}
		case "map":
			m, ok := p.NamedMaps[op.Name]
			if !ok {
				m = containers.NewMap(nil)
				p.NamedMaps[op.Name] = m
			}
			if !op.Remove {
				m.Set(containers.Some(op.Key), op.Value)
			}
		case "partitioning":
			part, ok := p.NamedPartMaps[op.Name]
			if !ok {
				part = containers.NewNamedPartitioning(nil)
				p.NamedPartMaps[op.Name] = part
			}
			if op.Remove {
				part.Unassign(containers.Some(op.Key))
			} else {
				part.Assign(containers.Some(op.Key), op.Value)
			}
		}
	}
	return p
}

func removeMapKey(m *containers.Map, key string) *containers.Map {
	out := containers.NewMap(nil)
	for _, k := range allMapKeys(m) {
		if k == key {
			continue
		}
		if v, ok := m.GetStr(k); ok {
			out.Set(containers.Some(k), v)
		}
	}
	return out
}

// allMapKeys lists m's present keys via containers.Map.KeysStr; a None
// key is not listed. ParamsDiff is the only caller that needs to
// enumerate keys.
func allMapKeys(m *containers.Map) []string {
	return m.KeysStr()
}

func (p *Params) clone() *Params {
	c := &Params{
		Flags:         containers.NewSet(p.Flags.Keys()...),
		Vars:          p.Vars.Clone(),
		NamedSets:     make(map[string]*containers.Set, len(p.NamedSets)),
		NamedMaps:     make(map[string]*containers.Map, len(p.NamedMaps)),
		NamedPartMaps: make(map[string]*containers.NamedPartitioning, len(p.NamedPartMaps)),
		Cache:         p.Cache,
	}
	for name, s := range p.NamedSets {
		c.NamedSets[name] = containers.NewSet(s.Keys()...)
	}
	for name, m := range p.NamedMaps {
		c.NamedMaps[name] = m.Clone()
	}
	for name, part := range p.NamedPartMaps {
		c.NamedPartMaps[name] = part.Clone()
	}
	return c
}

// ProfileConfig names a ParamsDiff applied to the program's default
// Params to produce one named Profile (spec.md §3).
type ProfileConfig struct {
	Name string
	Diff *ParamsDiff
}

// CallArgs is the (flags overlay, vars overlay) pushed onto TaskState's
// current-call slot for the duration of one CommonCall (spec.md §3).
type CallArgs struct {
	Flags *containers.Set
	Vars  *containers.Map
}

// EmptyCallArgs is used at the root, before any CommonCall has run.
func EmptyCallArgs() CallArgs {
	return CallArgs{Flags: containers.NewSet(), Vars: containers.NewMap(nil)}
}

// CallArgsJSON is CallArgs' wire form: a call site writes plain flag
// names and a plain string map, not containers.Set/Map literals.
type CallArgsJSON struct {
	Flags []string          `json:"flags"`
	Vars  map[string]string `json:"vars"`
}

func (c CallArgsJSON) toCallArgs() CallArgs {
	keys := make([]containers.OptString, 0, len(c.Flags))
	for _, f := range c.Flags {
		keys = append(keys, containers.Some(f))
	}
	entries := make(map[containers.OptString]string, len(c.Vars))
	for k, v := range c.Vars {
		entries[containers.Some(k)] = v
	}
	return CallArgs{Flags: containers.NewSet(keys...), Vars: containers.NewMap(entries)}
}
