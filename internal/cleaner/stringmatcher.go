package cleaner

import (
	"context"
	"encoding/json"
	"path"
	"regexp"

	"github.com/urlcleaner-go/engine/internal/containers"
)

// StringMatcher is a boolean test over a string, evaluated against a
// read-only task state view since some matchers (set membership) read
// Params (spec.md §4.F).
type StringMatcher interface {
	Matches(ctx context.Context, view TaskStateView, s string) (bool, error)
}

// ParseStringMatcher decodes one StringMatcher from its JSON form.
func ParseStringMatcher(data []byte) (StringMatcher, error) {
	return decodeVariant(data, stringMatcherCtors, nil)
}

// StringMatcherList decodes a JSON array of StringMatcher.
type StringMatcherList []StringMatcher

func (l *StringMatcherList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return newErr(KindParse, "expected array of string matchers: %v", err)
	}
	out := make(StringMatcherList, 0, len(raws))
	for _, raw := range raws {
		m, err := ParseStringMatcher(raw)
		if err != nil {
			return err
		}
		out = append(out, m)
	}
	*l = out
	return nil
}

var stringMatcherCtors = map[string]variantConstructor[StringMatcher]{
	"Equals": func(p json.RawMessage) (StringMatcher, error) {
		var f struct {
			Value string `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return matcherEquals{Value: f.Value}, nil
	},
	"Regex": func(p json.RawMessage) (StringMatcher, error) {
		var f struct {
			Pattern string `json:"pattern"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, wrapErr(KindRegex, err)
		}
		return matcherRegex{re: re}, nil
	},
	"Glob": func(p json.RawMessage) (StringMatcher, error) {
		var f struct {
			Pattern string `json:"pattern"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return matcherGlob{Pattern: f.Pattern}, nil
	},
	"SetMembership": func(p json.RawMessage) (StringMatcher, error) {
		var f struct {
			Set string `json:"set"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return matcherSetMembership{Set: f.Set}, nil
	},
	"PartitionGroupIs": func(p json.RawMessage) (StringMatcher, error) {
		var f struct {
			Partitioning string `json:"partitioning"`
			Group        string `json:"group"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return matcherPartitionGroupIs{Partitioning: f.Partitioning, Group: f.Group}, nil
	},
	"AllCharsMatch": func(p json.RawMessage) (StringMatcher, error) {
		cm, err := decodeCharMatcherField(p)
		if err != nil {
			return nil, err
		}
		return matcherAllCharsMatch{Matcher: cm}, nil
	},
	"AnyCharMatches": func(p json.RawMessage) (StringMatcher, error) {
		cm, err := decodeCharMatcherField(p)
		if err != nil {
			return nil, err
		}
		return matcherAnyCharMatches{Matcher: cm}, nil
	},
	"LengthIs": func(p json.RawMessage) (StringMatcher, error) {
		var f struct {
			Min *int `json:"min"`
			Max *int `json:"max"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return matcherLengthIs{Min: f.Min, Max: f.Max}, nil
	},
	"All": func(p json.RawMessage) (StringMatcher, error) {
		var list StringMatcherList
		if err := decodeField(p, &list); err != nil {
			return nil, err
		}
		return matcherAll{Matchers: list}, nil
	},
	"Any": func(p json.RawMessage) (StringMatcher, error) {
		var list StringMatcherList
		if err := decodeField(p, &list); err != nil {
			return nil, err
		}
		return matcherAny{Matchers: list}, nil
	},
	"Not": func(p json.RawMessage) (StringMatcher, error) {
		var inner json.RawMessage
		if err := decodeField(p, &inner); err != nil {
			return nil, err
		}
		m, err := ParseStringMatcher(inner)
		if err != nil {
			return nil, err
		}
		return matcherNot{Inner: m}, nil
	},
}

type matcherEquals struct{ Value string }

func (m matcherEquals) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	return s == m.Value, nil
}

type matcherRegex struct{ re *regexp.Regexp }

func (m matcherRegex) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	return m.re.MatchString(s), nil
}

// matcherGlob uses path.Match (stdlib): no glob-pattern library appears
// anywhere in the example pack, and a single shell-style match is all
// this variant needs — pulling in a dependency for one function call
// would not exercise any of its other capabilities.
type matcherGlob struct{ Pattern string }

func (m matcherGlob) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	ok, err := path.Match(m.Pattern, s)
	if err != nil {
		return false, newErr(KindParse, "invalid glob pattern %q: %v", m.Pattern, err)
	}
	return ok, nil
}

type matcherSetMembership struct{ Set string }

func (m matcherSetMembership) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	set, ok := view.Params().NamedSets[m.Set]
	if !ok {
		return false, newErr(KindLookup, "no such named set %q", m.Set)
	}
	return set.ContainsStr(s), nil
}

// decodeCharMatcherField unmarshals the nested "matcher" field a
// per-character StringMatcher/StringModification variant carries, the
// same way decodeConditionField/decodeSourceField unwrap their nested
// grammar node.
func decodeCharMatcherField(p json.RawMessage) (CharMatcher, error) {
	var f struct {
		Matcher json.RawMessage `json:"matcher"`
	}
	if err := decodeField(p, &f); err != nil {
		return nil, err
	}
	if len(f.Matcher) == 0 {
		return nil, newErr(KindParse, "missing \"matcher\"")
	}
	return ParseCharMatcher(f.Matcher)
}

type matcherPartitionGroupIs struct{ Partitioning, Group string }

func (m matcherPartitionGroupIs) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	part, ok := view.Params().NamedPartMaps[m.Partitioning]
	if !ok {
		return false, newErr(KindLookup, "no such named partitioning %q", m.Partitioning)
	}
	return part.InGroup(m.Group, containers.Some(s)), nil
}

// matcherAllCharsMatch reports whether every rune in s matches Matcher;
// the empty string vacuously matches.
type matcherAllCharsMatch struct{ Matcher CharMatcher }

func (m matcherAllCharsMatch) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	for _, r := range s {
		if !m.Matcher.Matches(r) {
			return false, nil
		}
	}
	return true, nil
}

// matcherAnyCharMatches reports whether at least one rune in s matches
// Matcher.
type matcherAnyCharMatches struct{ Matcher CharMatcher }

func (m matcherAnyCharMatches) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	for _, r := range s {
		if m.Matcher.Matches(r) {
			return true, nil
		}
	}
	return false, nil
}

type matcherLengthIs struct{ Min, Max *int }

func (m matcherLengthIs) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	n := len([]rune(s))
	if m.Min != nil && n < *m.Min {
		return false, nil
	}
	if m.Max != nil && n > *m.Max {
		return false, nil
	}
	return true, nil
}

type matcherAll struct{ Matchers []StringMatcher }

func (m matcherAll) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	for _, sub := range m.Matchers {
		ok, err := sub.Matches(ctx, view, s)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

type matcherAny struct{ Matchers []StringMatcher }

func (m matcherAny) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	for _, sub := range m.Matchers {
		ok, err := sub.Matches(ctx, view, s)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type matcherNot struct{ Inner StringMatcher }

func (m matcherNot) Matches(ctx context.Context, view TaskStateView, s string) (bool, error) {
	ok, err := m.Inner.Matches(ctx, view, s)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
