package cleaner

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// StringModification mutates a string in place or rejects it (spec.md
// §4.F).
type StringModification interface {
	Apply(ctx context.Context, view TaskStateView, s string) (string, error)
}

// ParseStringModification decodes one StringModification from its JSON
// form.
func ParseStringModification(data []byte) (StringModification, error) {
	return decodeVariant(data, stringModCtors, stringModBareFallback)
}

func stringModBareFallback(name string) (StringModification, bool) {
	switch name {
	case "Lowercase":
		return modLowercase{}, true
	case "Uppercase":
		return modUppercase{}, true
	case "Trim":
		return modTrim{}, true
	case "URLDecode":
		return modURLDecode{}, true
	default:
		return modCommonCall{Name: name}, true
	}
}

// StringModificationList decodes a JSON array of StringModification.
type StringModificationList []StringModification

func (l *StringModificationList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return newErr(KindParse, "expected array of string modifications: %v", err)
	}
	out := make(StringModificationList, 0, len(raws))
	for _, raw := range raws {
		m, err := ParseStringModification(raw)
		if err != nil {
			return err
		}
		out = append(out, m)
	}
	*l = out
	return nil
}

var stringModCtors = map[string]variantConstructor[StringModification]{
	"Slice": func(p json.RawMessage) (StringModification, error) {
		var f struct {
			Start int  `json:"start"`
			End   *int `json:"end"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return modSlice{Start: f.Start, End: f.End}, nil
	},
	"SplitKeep": func(p json.RawMessage) (StringModification, error) {
		var f struct {
			Sep string `json:"sep"`
			N   int    `json:"n"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return modSplitKeep{Sep: f.Sep, N: f.N}, nil
	},
	"RegexReplace": func(p json.RawMessage) (StringModification, error) {
		var f struct {
			Pattern     string `json:"pattern"`
			Replacement string `json:"replacement"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, wrapErr(KindRegex, err)
		}
		return modRegexReplace{re: re, replacement: f.Replacement}, nil
	},
	"PercentEncode": func(json.RawMessage) (StringModification, error) { return modPercentEncode{}, nil },
	"PercentDecode": func(json.RawMessage) (StringModification, error) { return modPercentDecode{}, nil },
	"Base64Encode":  func(json.RawMessage) (StringModification, error) { return modBase64Encode{}, nil },
	"Base64Decode":  func(json.RawMessage) (StringModification, error) { return modBase64Decode{}, nil },
	"Lowercase":     func(json.RawMessage) (StringModification, error) { return modLowercase{}, nil },
	"Uppercase":     func(json.RawMessage) (StringModification, error) { return modUppercase{}, nil },
	"Trim": func(p json.RawMessage) (StringModification, error) {
		var f struct {
			Cutset string `json:"cutset"`
		}
		_ = decodeField(p, &f) // Trim's payload is optional; absence means "whitespace"
		return modTrim{Cutset: f.Cutset}, nil
	},
	"Prepend": func(p json.RawMessage) (StringModification, error) {
		var f struct {
			Value string `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return modPrepend{Value: f.Value}, nil
	},
	"Append": func(p json.RawMessage) (StringModification, error) {
		var f struct {
			Value string `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return modAppend{Value: f.Value}, nil
	},
	"URLDecode": func(json.RawMessage) (StringModification, error) { return modURLDecode{}, nil },
	"KeepMatchingChars": func(p json.RawMessage) (StringModification, error) {
		cm, err := decodeCharMatcherField(p)
		if err != nil {
			return nil, err
		}
		return modKeepMatchingChars{Matcher: cm}, nil
	},
	"StripMatchingChars": func(p json.RawMessage) (StringModification, error) {
		cm, err := decodeCharMatcherField(p)
		if err != nil {
			return nil, err
		}
		return modStripMatchingChars{Matcher: cm}, nil
	},
	"JSONQuery": func(p json.RawMessage) (StringModification, error) {
		var f struct {
			Path string `json:"path"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return modJSONQuery{Path: f.Path}, nil
	},
	"All": func(p json.RawMessage) (StringModification, error) {
		var list StringModificationList
		if err := decodeField(p, &list); err != nil {
			return nil, err
		}
		return modAll{Modifications: list}, nil
	},
	"CommonCall": func(p json.RawMessage) (StringModification, error) {
		var f struct {
			Name string       `json:"name"`
			Args CallArgsJSON `json:"args"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return modCommonCall{Name: f.Name, Args: f.Args}, nil
	},
}

// --- concrete variants -----------------------------------------------

type modSlice struct {
	Start int
	End   *int
}

func (m modSlice) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	r := []rune(s)
	n := len(r)
	start := resolveIndex(m.Start, n)
	end := n
	if m.End != nil {
		end = resolveIndex(*m.End, n)
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		return "", newErr(KindType, "slice: start %d after end %d", start, end)
	}
	return string(r[start:end]), nil
}

func resolveIndex(i, n int) int {
	if i < 0 {
		return n + i
	}
	return i
}

type modSplitKeep struct {
	Sep string
	N   int
}

func (m modSplitKeep) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	parts := strings.Split(s, m.Sep)
	idx := resolveIndex(m.N, len(parts))
	if idx < 0 || idx >= len(parts) {
		return "", newErr(KindType, "split-keep: index %d out of range for %d parts", m.N, len(parts))
	}
	return parts[idx], nil
}

type modRegexReplace struct {
	re          *regexp.Regexp
	replacement string
}

func (m modRegexReplace) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	return m.re.ReplaceAllString(s, m.replacement), nil
}

type modPercentEncode struct{}

func (m modPercentEncode) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	return url.QueryEscape(s), nil
}

type modPercentDecode struct{}

func (m modPercentDecode) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	v, err := url.QueryUnescape(s)
	if err != nil {
		return "", wrapErr(KindPercent, err)
	}
	return v, nil
}

type modBase64Encode struct{}

func (m modBase64Encode) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(s)), nil
}

type modBase64Decode struct{}

func (m modBase64Decode) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	v, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", wrapErr(KindBase64, err)
	}
	return string(v), nil
}

type modLowercase struct{}

func (m modLowercase) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	return strings.Map(unicode.ToLower, s), nil
}

type modUppercase struct{}

func (m modUppercase) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	return strings.Map(unicode.ToUpper, s), nil
}

type modTrim struct{ Cutset string }

func (m modTrim) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	if m.Cutset == "" {
		return strings.TrimSpace(s), nil
	}
	return strings.Trim(s, m.Cutset), nil
}

type modPrepend struct{ Value string }

func (m modPrepend) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	return m.Value + s, nil
}

type modAppend struct{ Value string }

func (m modAppend) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	return s + m.Value, nil
}

type modURLDecode struct{}

func (m modURLDecode) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	v, err := url.PathUnescape(s)
	if err != nil {
		return "", wrapErr(KindPercent, err)
	}
	return v, nil
}

// modKeepMatchingChars drops every rune that does not match Matcher.
type modKeepMatchingChars struct{ Matcher CharMatcher }

func (m modKeepMatchingChars) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	return strings.Map(func(r rune) rune {
		if m.Matcher.Matches(r) {
			return r
		}
		return -1
	}, s), nil
}

// modStripMatchingChars drops every rune that matches Matcher.
type modStripMatchingChars struct{ Matcher CharMatcher }

func (m modStripMatchingChars) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	return strings.Map(func(r rune) rune {
		if m.Matcher.Matches(r) {
			return -1
		}
		return r
	}, s), nil
}

// modJSONQuery extracts a value at Path from s (treated as a JSON
// document) using gjson's dotted-path syntax.
type modJSONQuery struct{ Path string }

func (m modJSONQuery) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	if !gjson.Valid(s) {
		return "", newErr(KindJSON, "json-query: input is not valid json")
	}
	r := gjson.Get(s, m.Path)
	if !r.Exists() {
		return "", newErr(KindJSON, "json-query: no value at path %q", m.Path)
	}
	return r.String(), nil
}

type modAll struct{ Modifications []StringModification }

func (m modAll) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	cur := s
	for _, sub := range m.Modifications {
		var err error
		cur, err = sub.Apply(ctx, view, cur)
		if err != nil {
			return "", err
		}
	}
	return cur, nil
}

type modCommonCall struct {
	Name string
	Args CallArgsJSON
}

func (m modCommonCall) Apply(ctx context.Context, view TaskStateView, s string) (string, error) {
	commons := view.Job().Commons()
	frag, ok := commons.Modifications[m.Name]
	if !ok {
		return "", newErr(KindLookup, "no such common string modification %q", m.Name)
	}

	state, ok := view.(*TaskState)
	if !ok {
		return frag.Apply(ctx, view, s)
	}
	prev := state.pushCallArgs(m.Args.toCallArgs())
	defer state.popCallArgs(prev)
	return frag.Apply(ctx, state, s)
}
