// Package containers provides the small set of specialized collections the
// cleaner grammar is built on: a set and map keyed by an optional string
// (so "the query has no value for this param" and "the value is the empty
// string" stay distinct), plus a partitioning that assigns keys to named
// groups.
package containers

import "sort"

// OptString is a key that is either present with a value or absent
// entirely. It exists because the grammar distinguishes "this query
// parameter is missing" from "this query parameter is present but empty".
type OptString struct {
	Valid bool
	Value string
}

// Some wraps a present value.
func Some(v string) OptString { return OptString{Valid: true, Value: v} }

// None is the absent key.
var None = OptString{}

// Set is a set of OptString keys.
type Set struct {
	m map[OptString]struct{}
}

// NewSet builds a Set from the given keys.
func NewSet(keys ...OptString) *Set {
	s := &Set{m: make(map[OptString]struct{}, len(keys))}
	for _, k := range keys {
		s.m[k] = struct{}{}
	}
	return s
}

// Contains reports whether key is a member of the set.
func (s *Set) Contains(key OptString) bool {
	if s == nil {
		return false
	}
	_, ok := s.m[key]
	return ok
}

// ContainsStr is a convenience for the common case of a present string key.
func (s *Set) ContainsStr(v string) bool {
	return s.Contains(Some(v))
}

// Insert adds key to the set, returning true if it was newly added.
func (s *Set) Insert(key OptString) bool {
	if _, ok := s.m[key]; ok {
		return false
	}
	s.m[key] = struct{}{}
	return true
}

// Remove deletes key from the set, returning true if it was present.
func (s *Set) Remove(key OptString) bool {
	if _, ok := s.m[key]; !ok {
		return false
	}
	delete(s.m, key)
	return true
}

// Len returns the number of elements in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// Keys returns the set's keys in a stable (sorted) order, for deterministic
// iteration in tests and serialization.
func (s *Set) Keys() []OptString {
	keys := make([]OptString, 0, s.Len())
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Valid != keys[j].Valid {
			return !keys[i].Valid // None sorts first
		}
		return keys[i].Value < keys[j].Value
	})
	return keys
}

// Map is a map keyed by OptString with string values.
type Map struct {
	m map[OptString]string
}

// NewMap builds a Map from the given entries.
func NewMap(entries map[OptString]string) *Map {
	m := &Map{m: make(map[OptString]string, len(entries))}
	for k, v := range entries {
		m.m[k] = v
	}
	return m
}

// Get looks up key, returning the value and whether it was present.
func (m *Map) Get(key OptString) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.m[key]
	return v, ok
}

// GetStr is a convenience for the common case of a present string key.
func (m *Map) GetStr(v string) (string, bool) {
	return m.Get(Some(v))
}

// Set stores value under key, overwriting any existing entry.
func (m *Map) Set(key OptString, value string) {
	m.m[key] = value
}

// Len returns the number of entries in the map.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.m)
}

// Clone returns a shallow copy with its own backing map, so mutating the
// clone never affects the original (used when deriving a profile's Params
// from the program's default).
func (m *Map) Clone() *Map {
	out := NewMap(nil)
	if m == nil {
		return out
	}
	for k, v := range m.m {
		out.m[k] = v
	}
	return out
}

// KeysStr returns the map's present (non-None) string keys, in sorted
// order, for callers that need to enumerate entries rather than look one
// up directly.
func (m *Map) KeysStr() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.m))
	for k := range m.m {
		if k.Valid {
			keys = append(keys, k.Value)
		}
	}
	sort.Strings(keys)
	return keys
}

// NamedPartitioning assigns each key to zero or one named group. It answers
// two questions: "which group is this key in?" and "what keys are in this
// group?" — used by StringMatcher's set-membership variants and by Params'
// auxiliary named tables.
type NamedPartitioning struct {
	groupOf map[OptString]string
	members map[string]map[OptString]struct{}
}

// NewNamedPartitioning builds a partitioning from group name -> member keys.
func NewNamedPartitioning(groups map[string][]OptString) *NamedPartitioning {
	p := &NamedPartitioning{
		groupOf: make(map[OptString]string),
		members: make(map[string]map[OptString]struct{}, len(groups)),
	}
	for name, keys := range groups {
		set := make(map[OptString]struct{}, len(keys))
		for _, k := range keys {
			set[k] = struct{}{}
			p.groupOf[k] = name
		}
		p.members[name] = set
	}
	return p
}

// GroupOf returns the name of the group key belongs to, if any.
func (p *NamedPartitioning) GroupOf(key OptString) (string, bool) {
	if p == nil {
		return "", false
	}
	name, ok := p.groupOf[key]
	return name, ok
}

// InGroup reports whether key is a member of the named group.
func (p *NamedPartitioning) InGroup(name string, key OptString) bool {
	if p == nil {
		return false
	}
	members, ok := p.members[name]
	if !ok {
		return false
	}
	_, ok = members[key]
	return ok
}

// Members returns the keys assigned to the named group.
func (p *NamedPartitioning) Members(name string) []OptString {
	members := p.members[name]
	keys := make([]OptString, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	return keys
}

// Assign puts key in the named group, moving it out of whatever group (if
// any) it previously belonged to.
func (p *NamedPartitioning) Assign(key OptString, name string) {
	if old, ok := p.groupOf[key]; ok {
		delete(p.members[old], key)
	}
	p.groupOf[key] = name
	if p.members[name] == nil {
		p.members[name] = make(map[OptString]struct{})
	}
	p.members[name][key] = struct{}{}
}

// Unassign removes key from whatever group it belongs to, if any.
func (p *NamedPartitioning) Unassign(key OptString) {
	old, ok := p.groupOf[key]
	if !ok {
		return
	}
	delete(p.members[old], key)
	delete(p.groupOf, key)
}

// Clone returns a deep copy with its own backing maps, so mutating the
// clone never affects the original (used when deriving a profile's Params
// from the program's default).
func (p *NamedPartitioning) Clone() *NamedPartitioning {
	c := &NamedPartitioning{
		groupOf: make(map[OptString]string, len(p.groupOf)),
		members: make(map[string]map[OptString]struct{}, len(p.members)),
	}
	for k, v := range p.groupOf {
		c.groupOf[k] = v
	}
	for name, set := range p.members {
		m := make(map[OptString]struct{}, len(set))
		for k := range set {
			m[k] = struct{}{}
		}
		c.members[name] = m
	}
	return c
}
