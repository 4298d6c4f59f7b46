package cleaner

import "encoding/json"

// Commons is the program-wide table of named fragments a CommonCall
// variant resolves against: reusable StringSource/StringMatcher/Action
// definitions referenced by name from anywhere in the grammar (spec.md
// §3's "commons" table, §4.I).
type Commons struct {
	Sources       map[string]StringSource
	Modifications map[string]StringModification
	Matchers      map[string]StringMatcher
	Conditions    map[string]Condition
	Actions       map[string]Action
}

// conditions exposes the Conditions table through an unexported accessor
// so call sites inside this package read it the same way they read the
// other four tables, without exporting mutable internals beyond the
// struct fields themselves.
func (c *Commons) conditions() map[string]Condition { return c.Conditions }

// NewCommons returns an empty, ready-to-populate Commons.
func NewCommons() *Commons {
	return &Commons{
		Sources:       make(map[string]StringSource),
		Modifications: make(map[string]StringModification),
		Matchers:      make(map[string]StringMatcher),
		Conditions:    make(map[string]Condition),
		Actions:       make(map[string]Action),
	}
}

// commonsJSON is Commons' wire form: five name -> definition tables.
type commonsJSON struct {
	Sources       map[string]json.RawMessage `json:"sources"`
	Modifications map[string]json.RawMessage `json:"modifications"`
	Matchers      map[string]json.RawMessage `json:"matchers"`
	Conditions    map[string]json.RawMessage `json:"conditions"`
	Actions       map[string]json.RawMessage `json:"actions"`
}

// ParseCommons decodes a program's "commons" object.
func ParseCommons(data []byte) (*Commons, error) {
	if len(data) == 0 {
		return NewCommons(), nil
	}
	var raw commonsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newErr(KindParse, "invalid commons object: %v", err)
	}

	c := NewCommons()
	for name, payload := range raw.Sources {
		v, err := ParseStringSource(payload)
		if err != nil {
			return nil, err
		}
		c.Sources[name] = v
	}
	for name, payload := range raw.Modifications {
		v, err := ParseStringModification(payload)
		if err != nil {
			return nil, err
		}
		c.Modifications[name] = v
	}
	for name, payload := range raw.Matchers {
		v, err := ParseStringMatcher(payload)
		if err != nil {
			return nil, err
		}
		c.Matchers[name] = v
	}
	for name, payload := range raw.Conditions {
		v, err := ParseCondition(payload)
		if err != nil {
			return nil, err
		}
		c.Conditions[name] = v
	}
	for name, payload := range raw.Actions {
		v, err := ParseAction(payload)
		if err != nil {
			return nil, err
		}
		c.Actions[name] = v
	}
	return c, nil
}
