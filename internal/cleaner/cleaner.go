package cleaner

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/urlcleaner-go/engine/internal/containers"
)

// Cleaner is the top-level program (spec.md §3/§4.J): default Params, a
// Commons table of named reusable fragments, a set of named Profiles each
// supplying a ParamsDiff, and the root Action that Clean runs once per
// task. The Cleaner owns every grammar tree; a running TaskState only
// ever borrows into it.
type Cleaner struct {
	Docs     string
	Params   *Params
	Commons  *Commons
	Profiles map[string]*ProfileConfig
	Actions  Action
}

// Clean runs the cleaner's root Action against an already-materialized
// TaskState exactly once (spec.md §4.J).
func (c *Cleaner) Clean(ctx context.Context, s *TaskState) error {
	return c.Actions.Execute(ctx, s)
}

// ResolveProfile returns the Params a job should run with: the program's
// default Params when name is empty, or a named profile's diff applied
// over them (spec.md §3's Profile). For a named profile the returned
// Params is freshly built per call; for an empty name it is the program's
// own Params. Either way the caller treats it as immutable and shares it
// across every task in the job.
func (c *Cleaner) ResolveProfile(name string) (*Params, error) {
	if name == "" {
		return c.Params, nil
	}
	pc, ok := c.Profiles[name]
	if !ok {
		return nil, newErr(KindLookup, "no such profile %q", name)
	}
	return pc.Diff.Apply(c.Params), nil
}

// cleanerJSON is the wire form of a Cleaner (spec.md §6): docs, params,
// commons, profiles, actions.
type cleanerJSON struct {
	Docs     string                     `json:"docs"`
	Params   paramsJSON                 `json:"params"`
	Commons  json.RawMessage            `json:"commons"`
	Profiles map[string]profileDiffJSON `json:"profiles"`
	Actions  json.RawMessage            `json:"actions"`
}

// ParseCleaner decodes a complete cleaner program from its canonical JSON
// form. Loaders accept both the original and a minified form, since the
// default program is embedded as compressed JSON at build time (spec.md
// §4.J) — both are just JSON to encoding/json, so no special-casing is
// needed here beyond ordinary unmarshaling.
func ParseCleaner(data []byte) (*Cleaner, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw cleanerJSON
	if err := dec.Decode(&raw); err != nil {
		return nil, newErr(KindParse, "invalid cleaner program: %v", err)
	}

	params, err := raw.Params.toParams()
	if err != nil {
		return nil, err
	}

	commons, err := ParseCommons(raw.Commons)
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*ProfileConfig, len(raw.Profiles))
	for name, pj := range raw.Profiles {
		diff, err := pj.toParamsDiff()
		if err != nil {
			return nil, err
		}
		profiles[name] = &ProfileConfig{Name: name, Diff: diff}
	}

	if len(raw.Actions) == 0 {
		return nil, newErr(KindParse, "cleaner program missing \"actions\"")
	}
	actions, err := ParseAction(raw.Actions)
	if err != nil {
		return nil, err
	}

	return &Cleaner{
		Docs:     raw.Docs,
		Params:   params,
		Commons:  commons,
		Profiles: profiles,
		Actions:  actions,
	}, nil
}

// paramsJSON is Params' wire form: plain flag names, a plain string map,
// and the named auxiliary tables, each keyed by name.
type paramsJSON struct {
	Flags         []string                    `json:"flags"`
	Vars          map[string]string           `json:"vars"`
	Sets          map[string][]string         `json:"sets"`
	Maps          map[string]map[string]string `json:"maps"`
	Partitionings map[string]map[string][]string `json:"partitionings"`
	Cache         cacheConfigJSON             `json:"cache"`
}

type cacheConfigJSON struct {
	Read  *bool  `json:"read"`
	Write *bool  `json:"write"`
	Delay bool   `json:"delay"`
	Path  string `json:"path"`
}

func (c cacheConfigJSON) toCacheConfig() CacheConfig {
	read, write := true, true
	if c.Read != nil {
		read = *c.Read
	}
	if c.Write != nil {
		write = *c.Write
	}
	return CacheConfig{Read: read, Write: write, Delay: c.Delay, Path: c.Path}
}

func (p paramsJSON) toParams() (*Params, error) {
	out := NewParams()

	keys := make([]containers.OptString, 0, len(p.Flags))
	for _, f := range p.Flags {
		keys = append(keys, containers.Some(f))
	}
	out.Flags = containers.NewSet(keys...)

	entries := make(map[containers.OptString]string, len(p.Vars))
	for k, v := range p.Vars {
		entries[containers.Some(k)] = v
	}
	out.Vars = containers.NewMap(entries)

	for name, values := range p.Sets {
		setKeys := make([]containers.OptString, 0, len(values))
		for _, v := range values {
			setKeys = append(setKeys, containers.Some(v))
		}
		out.NamedSets[name] = containers.NewSet(setKeys...)
	}

	for name, m := range p.Maps {
		mapEntries := make(map[containers.OptString]string, len(m))
		for k, v := range m {
			mapEntries[containers.Some(k)] = v
		}
		out.NamedMaps[name] = containers.NewMap(mapEntries)
	}

	for name, groups := range p.Partitionings {
		groupKeys := make(map[string][]containers.OptString, len(groups))
		for group, members := range groups {
			ks := make([]containers.OptString, 0, len(members))
			for _, v := range members {
				ks = append(ks, containers.Some(v))
			}
			groupKeys[group] = ks
		}
		out.NamedPartMaps[name] = containers.NewNamedPartitioning(groupKeys)
	}

	out.Cache = p.Cache.toCacheConfig()
	return out, nil
}

// profileDiffJSON is a named ProfileConfig's wire form: an ordered list
// of add/remove/set operations (spec.md §3's ParamsDiff).
type profileDiffJSON struct {
	Ops []paramsDiffOpJSON `json:"ops"`
}

type paramsDiffOpJSON struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Key    string `json:"key"`
	Value  string `json:"value"`
	Remove bool   `json:"remove"`
}

func (pj profileDiffJSON) toParamsDiff() (*ParamsDiff, error) {
	ops := make([]ParamsDiffOp, 0, len(pj.Ops))
	for _, op := range pj.Ops {
		switch op.Kind {
		case "flag", "var", "set", "map", "partitioning":
		default:
			return nil, newErr(KindParse, "profile diff: unknown op kind %q", op.Kind)
		}
		ops = append(ops, ParamsDiffOp{
			Kind:   op.Kind,
			Name:   op.Name,
			Key:    op.Key,
			Value:  op.Value,
			Remove: op.Remove,
		})
	}
	return &ParamsDiff{Ops: ops}, nil
}
