package cleaner

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/urlcleaner-go/engine/internal/betterurl"
	"github.com/urlcleaner-go/engine/internal/containers"
	"github.com/urlcleaner-go/engine/internal/glue"
)

// StringSource evaluates to an optional string given a read-only view of
// the task state (spec.md §4.F).
type StringSource interface {
	Eval(ctx context.Context, view TaskStateView) (containers.OptString, error)
}

// ParseStringSource decodes one StringSource from its JSON form.
func ParseStringSource(data []byte) (StringSource, error) {
	return decodeVariant(data, stringSourceCtors, stringSourceBareFallback)
}

// UnmarshalJSON lets *StringSourceList and struct fields of type
// StringSource decode directly via encoding/json.
type StringSourceField struct{ Value StringSource }

func (f *StringSourceField) UnmarshalJSON(data []byte) error {
	v, err := ParseStringSource(data)
	if err != nil {
		return err
	}
	f.Value = v
	return nil
}

// StringSourceList decodes a JSON array of StringSource.
type StringSourceList []StringSource

func (l *StringSourceList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return newErr(KindParse, "expected array of string sources: %v", err)
	}
	out := make(StringSourceList, 0, len(raws))
	for _, raw := range raws {
		v, err := ParseStringSource(raw)
		if err != nil {
			return err
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

func stringSourceBareFallback(name string) (StringSource, bool) {
	return sourceCommonCall{Name: name}, true
}

var stringSourceCtors = map[string]variantConstructor[StringSource]{
	"Literal": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Value string `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return sourceLiteral{Value: f.Value}, nil
	},
	"Part": func(p json.RawMessage) (StringSource, error) {
		part, err := decodePartField(p)
		if err != nil {
			return nil, err
		}
		return sourcePart{Part: part}, nil
	},
	"Var": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Name string `json:"name"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return sourceVar{Name: f.Name}, nil
	},
	"Flag": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Name string `json:"name"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return sourceFlag{Name: f.Name}, nil
	},
	"IfFlag": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Flag string          `json:"flag"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		then, err := ParseStringSource(f.Then)
		if err != nil {
			return nil, err
		}
		var elseSrc StringSource
		if len(f.Else) > 0 {
			if elseSrc, err = ParseStringSource(f.Else); err != nil {
				return nil, err
			}
		}
		return sourceIfFlag{Flag: f.Flag, Then: then, Else: elseSrc}, nil
	},
	"IfSourceIs": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Value json.RawMessage `json:"value"`
			Is     json.RawMessage `json:"is"`
			Then   json.RawMessage `json:"then"`
			Else   json.RawMessage `json:"else"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		value, err := ParseStringSource(f.Value)
		if err != nil {
			return nil, err
		}
		is, err := ParseStringSource(f.Is)
		if err != nil {
			return nil, err
		}
		then, err := ParseStringSource(f.Then)
		if err != nil {
			return nil, err
		}
		var elseSrc StringSource
		if len(f.Else) > 0 {
			if elseSrc, err = ParseStringSource(f.Else); err != nil {
				return nil, err
			}
		}
		return sourceIfSourceIs{Value: value, Is: is, Then: then, Else: elseSrc}, nil
	},
	"Join": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Sources StringSourceList `json:"sources"`
			Sep     string           `json:"sep"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return sourceJoin{Sources: f.Sources, Sep: f.Sep}, nil
	},
	"MapLookup": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Map string          `json:"map"`
			Key json.RawMessage `json:"key"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		key, err := ParseStringSource(f.Key)
		if err != nil {
			return nil, err
		}
		return sourceMapLookup{Map: f.Map, Key: key}, nil
	},
	"CacheRead": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Category string          `json:"category"`
			Key      json.RawMessage `json:"key"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		key, err := ParseStringSource(f.Key)
		if err != nil {
			return nil, err
		}
		return sourceCacheRead{Category: f.Category, Key: key}, nil
	},
	"HTTPGetBody": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			URL json.RawMessage `json:"url"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		u, err := ParseStringSource(f.URL)
		if err != nil {
			return nil, err
		}
		return sourceHTTPGetBody{URL: u}, nil
	},
	"Base64Decode": func(p json.RawMessage) (StringSource, error) {
		src, err := decodeSourceField(p)
		if err != nil {
			return nil, err
		}
		return sourceBase64Decode{Source: src}, nil
	},
	"Base64Encode": func(p json.RawMessage) (StringSource, error) {
		src, err := decodeSourceField(p)
		if err != nil {
			return nil, err
		}
		return sourceBase64Encode{Source: src}, nil
	},
	"PercentEncode": func(p json.RawMessage) (StringSource, error) {
		src, err := decodeSourceField(p)
		if err != nil {
			return nil, err
		}
		return sourcePercentEncode{Source: src}, nil
	},
	"PercentDecode": func(p json.RawMessage) (StringSource, error) {
		src, err := decodeSourceField(p)
		if err != nil {
			return nil, err
		}
		return sourcePercentDecode{Source: src}, nil
	},
	"CommonCall": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Name string       `json:"name"`
			Args CallArgsJSON `json:"args"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return sourceCommonCall{Name: f.Name, Args: f.Args}, nil
	},
	"TryElse": func(p json.RawMessage) (StringSource, error) {
		var f struct {
			Try  json.RawMessage `json:"try"`
			Else json.RawMessage `json:"else"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		try, err := ParseStringSource(f.Try)
		if err != nil {
			return nil, err
		}
		elseSrc, err := ParseStringSource(f.Else)
		if err != nil {
			return nil, err
		}
		return sourceTryElse{Try: try, Else: elseSrc}, nil
	},
	"FirstNotError": func(p json.RawMessage) (StringSource, error) {
		var list StringSourceList
		if err := decodeField(p, &list); err != nil {
			return nil, err
		}
		return sourceFirstNotError{Sources: list}, nil
	},
}

// decodeSourceField decodes a payload that is itself one nested
// StringSource (the common shape for single-argument wrappers like
// Base64Decode/PercentEncode), accepting either {"source": ...} or the
// bare nested variant directly.
func decodeSourceField(p json.RawMessage) (StringSource, error) {
	var f struct {
		Source json.RawMessage `json:"source"`
	}
	if err := decodeField(p, &f); err == nil && len(f.Source) > 0 {
		return ParseStringSource(f.Source)
	}
	return ParseStringSource(p)
}

func decodePartField(p json.RawMessage) (betterurl.Part, error) {
	var f struct {
		Part json.RawMessage `json:"part"`
	}
	if err := json.Unmarshal(p, &f); err == nil && len(f.Part) > 0 {
		return betterurl.ParsePart(f.Part)
	}
	return betterurl.ParsePart(p)
}

// --- concrete variants -----------------------------------------------

type sourceLiteral struct{ Value string }

func (s sourceLiteral) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	return containers.Some(s.Value), nil
}

type sourcePart struct{ Part betterurl.Part }

func (s sourcePart) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	v, ok := view.URL().Get(s.Part)
	if !ok {
		return containers.None, nil
	}
	return containers.Some(v), nil
}

type sourceVar struct{ Name string }

func (s sourceVar) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	if v, ok := view.CallArgs().Vars.GetStr(s.Name); ok {
		return containers.Some(v), nil
	}
	if v, ok := view.Scratchpad().GetVar(s.Name); ok {
		return containers.Some(v), nil
	}
	if v, ok := view.Params().Vars.GetStr(s.Name); ok {
		return containers.Some(v), nil
	}
	return containers.None, nil
}

type sourceFlag struct{ Name string }

func (s sourceFlag) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	if view.CallArgs().Flags.ContainsStr(s.Name) || view.Scratchpad().HasFlag(s.Name) || view.Params().Flags.ContainsStr(s.Name) {
		return containers.Some("true"), nil
	}
	return containers.None, nil
}

type sourceIfFlag struct {
	Flag string
	Then StringSource
	Else StringSource
}

func (s sourceIfFlag) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	set := view.CallArgs().Flags.ContainsStr(s.Flag) || view.Scratchpad().HasFlag(s.Flag) || view.Params().Flags.ContainsStr(s.Flag)
	if set {
		return s.Then.Eval(ctx, view)
	}
	if s.Else != nil {
		return s.Else.Eval(ctx, view)
	}
	return containers.None, nil
}

type sourceIfSourceIs struct {
	Value StringSource
	Is    StringSource
	Then  StringSource
	Else  StringSource
}

func (s sourceIfSourceIs) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	v, err := s.Value.Eval(ctx, view)
	if err != nil {
		return containers.None, err
	}
	is, err := s.Is.Eval(ctx, view)
	if err != nil {
		return containers.None, err
	}
	if v == is {
		return s.Then.Eval(ctx, view)
	}
	if s.Else != nil {
		return s.Else.Eval(ctx, view)
	}
	return containers.None, nil
}

type sourceJoin struct {
	Sources []StringSource
	Sep     string
}

func (s sourceJoin) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	parts := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		v, err := src.Eval(ctx, view)
		if err != nil {
			return containers.None, err
		}
		if !v.Valid {
			return containers.None, nil
		}
		parts = append(parts, v.Value)
	}
	return containers.Some(strings.Join(parts, s.Sep)), nil
}

type sourceMapLookup struct {
	Map string
	Key StringSource
}

func (s sourceMapLookup) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	key, err := s.Key.Eval(ctx, view)
	if err != nil {
		return containers.None, err
	}
	if !key.Valid {
		return containers.None, nil
	}
	m, ok := view.Params().NamedMaps[s.Map]
	if !ok {
		return containers.None, newErr(KindLookup, "no such named map %q", s.Map)
	}
	v, ok := m.GetStr(key.Value)
	if !ok {
		return containers.None, nil
	}
	return containers.Some(v), nil
}

type sourceCacheRead struct {
	Category string
	Key      StringSource
}

func (s sourceCacheRead) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	key, err := s.Key.Eval(ctx, view)
	if err != nil {
		return containers.None, err
	}
	if !key.Valid {
		return containers.None, nil
	}
	c := view.Job().Cache()
	if c == nil {
		return containers.None, nil
	}
	v, ok := c.Peek(s.Category, key.Value)
	if !ok {
		return containers.None, nil
	}
	return containers.Some(v), nil
}

type sourceHTTPGetBody struct{ URL StringSource }

func (s sourceHTTPGetBody) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	u, err := s.URL.Eval(ctx, view)
	if err != nil {
		return containers.None, err
	}
	if !u.Valid {
		return containers.None, newErr(KindType, "HTTPGetBody: url source produced none")
	}

	fetcher := view.Job().Fetcher()
	if fetcher == nil {
		return containers.None, newErr(KindFeatureDisabled, "no HTTP fetcher configured")
	}

	handle, ctx := view.Job().Unthreader().Acquire(ctx)
	defer handle.Release()

	resp, err := fetcher.Fetch(ctx, glue.NewRequest(glue.MethodGet, u.Value))
	if err != nil {
		return containers.None, wrapErr(KindHTTP, err)
	}
	return containers.Some(string(resp.Body)), nil
}

type sourceBase64Decode struct{ Source StringSource }

func (s sourceBase64Decode) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	v, err := s.Source.Eval(ctx, view)
	if err != nil || !v.Valid {
		return containers.None, err
	}
	decoded, derr := base64.StdEncoding.DecodeString(v.Value)
	if derr != nil {
		return containers.None, wrapErr(KindBase64, derr)
	}
	return containers.Some(string(decoded)), nil
}

type sourceBase64Encode struct{ Source StringSource }

func (s sourceBase64Encode) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	v, err := s.Source.Eval(ctx, view)
	if err != nil || !v.Valid {
		return containers.None, err
	}
	return containers.Some(base64.StdEncoding.EncodeToString([]byte(v.Value))), nil
}

type sourcePercentEncode struct{ Source StringSource }

func (s sourcePercentEncode) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	v, err := s.Source.Eval(ctx, view)
	if err != nil || !v.Valid {
		return containers.None, err
	}
	return containers.Some(url.QueryEscape(v.Value)), nil
}

type sourcePercentDecode struct{ Source StringSource }

func (s sourcePercentDecode) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	v, err := s.Source.Eval(ctx, view)
	if err != nil || !v.Valid {
		return containers.None, err
	}
	decoded, derr := url.QueryUnescape(v.Value)
	if derr != nil {
		return containers.None, wrapErr(KindPercent, derr)
	}
	return containers.Some(decoded), nil
}

type sourceCommonCall struct {
	Name string
	Args CallArgsJSON
}

func (s sourceCommonCall) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	commons := view.Job().Commons()
	frag, ok := commons.Sources[s.Name]
	if !ok {
		return containers.None, newErr(KindLookup, "no such common string source %q", s.Name)
	}

	state, ok := view.(*TaskState)
	if !ok {
		return frag.Eval(ctx, view)
	}
	prev := state.pushCallArgs(s.Args.toCallArgs())
	defer state.popCallArgs(prev)
	return frag.Eval(ctx, state)
}

type sourceTryElse struct {
	Try  StringSource
	Else StringSource
}

func (s sourceTryElse) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	v, err := s.Try.Eval(ctx, view)
	if err == nil {
		return v, nil
	}
	return s.Else.Eval(ctx, view)
}

type sourceFirstNotError struct{ Sources []StringSource }

func (s sourceFirstNotError) Eval(ctx context.Context, view TaskStateView) (containers.OptString, error) {
	var children []*CleanerError
	for _, src := range s.Sources {
		v, err := src.Eval(ctx, view)
		if err == nil {
			return v, nil
		}
		children = append(children, asCleanerError(err))
	}
	return containers.None, aggregate(children)
}
