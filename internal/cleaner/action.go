package cleaner

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/urlcleaner-go/engine/internal/betterurl"
	"github.com/urlcleaner-go/engine/internal/glue"
)

// Action mutates a TaskState: the URL, its scratchpad, or both (spec.md
// §4.H). Every Action runs to completion before returning — there are no
// suspension points inside the interpreter (spec.md §5).
type Action interface {
	Execute(ctx context.Context, s *TaskState) error
}

// ParseAction decodes one Action from its JSON form.
func ParseAction(data []byte) (Action, error) {
	return decodeVariant(data, actionCtors, actionBareFallback)
}

func actionBareFallback(name string) (Action, bool) {
	return actionCommonCall{Name: name}, true
}

// ActionList decodes a JSON array of Action.
type ActionList []Action

func (l *ActionList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return newErr(KindParse, "expected array of actions: %v", err)
	}
	out := make(ActionList, 0, len(raws))
	for _, raw := range raws {
		a, err := ParseAction(raw)
		if err != nil {
			return err
		}
		out = append(out, a)
	}
	*l = out
	return nil
}

var actionCtors = map[string]variantConstructor[Action]{
	"None": func(p json.RawMessage) (Action, error) {
		return actionNone{}, nil
	},
	"Error": func(p json.RawMessage) (Action, error) {
		var f struct {
			Message string `json:"message"`
		}
		if err := decodeField(p, &f); err != nil {
			// Error also accepts the bare-string payload shape
			// {"Error": "message text"}.
			var msg string
			if jerr := json.Unmarshal(p, &msg); jerr == nil {
				return actionError{Message: msg}, nil
			}
			return nil, err
		}
		return actionError{Message: f.Message}, nil
	},
	"If": func(p json.RawMessage) (Action, error) {
		var f struct {
			If   json.RawMessage `json:"if"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		cond, err := ParseCondition(f.If)
		if err != nil {
			return nil, err
		}
		then, err := ParseAction(f.Then)
		if err != nil {
			return nil, err
		}
		var elseA Action
		if len(f.Else) > 0 {
			if elseA, err = ParseAction(f.Else); err != nil {
				return nil, err
			}
		}
		return actionIf{If: cond, Then: then, Else: elseA}, nil
	},
	"All": func(p json.RawMessage) (Action, error) {
		var list ActionList
		if err := decodeField(p, &list); err != nil {
			return nil, err
		}
		return actionAll{Actions: list}, nil
	},
	"PartMap": func(p json.RawMessage) (Action, error) {
		var f struct {
			Part json.RawMessage `json:"part"`
			Map  string          `json:"map"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		part, err := decodePartField(f.Part)
		if err != nil {
			return nil, err
		}
		return actionPartMap{Part: part, Map: f.Map}, nil
	},
	"Repeat": func(p json.RawMessage) (Action, error) {
		var f struct {
			Action json.RawMessage `json:"action"`
			Limit  int             `json:"limit"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		inner, err := ParseAction(f.Action)
		if err != nil {
			return nil, err
		}
		return actionRepeat{Inner: inner, Limit: f.Limit}, nil
	},
	"TryElse": func(p json.RawMessage) (Action, error) {
		var f struct {
			Try  json.RawMessage `json:"try"`
			Else json.RawMessage `json:"else"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		try, err := ParseAction(f.Try)
		if err != nil {
			return nil, err
		}
		elseA, err := ParseAction(f.Else)
		if err != nil {
			return nil, err
		}
		return actionTryElse{Try: try, Else: elseA}, nil
	},
	"FirstNotError": func(p json.RawMessage) (Action, error) {
		var list ActionList
		if err := decodeField(p, &list); err != nil {
			return nil, err
		}
		return actionFirstNotError{Actions: list}, nil
	},
	"SetPart": func(p json.RawMessage) (Action, error) {
		var f struct {
			Part  json.RawMessage `json:"part"`
			Value json.RawMessage `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		part, err := decodePartField(f.Part)
		if err != nil {
			return nil, err
		}
		value, err := ParseStringSource(f.Value)
		if err != nil {
			return nil, err
		}
		return actionSetPart{Part: part, Value: value}, nil
	},
	"ModifyPart": func(p json.RawMessage) (Action, error) {
		var f struct {
			Part         json.RawMessage `json:"part"`
			Modification json.RawMessage `json:"modification"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		part, err := decodePartField(f.Part)
		if err != nil {
			return nil, err
		}
		mod, err := ParseStringModification(f.Modification)
		if err != nil {
			return nil, err
		}
		return actionModifyPart{Part: part, Modification: mod}, nil
	},
	"RemoveQueryParams": func(p json.RawMessage) (Action, error) {
		var names []string
		if err := decodeField(p, &names); err != nil {
			return nil, err
		}
		return actionRemoveQueryParams{Names: names}, nil
	},
	"AllowQueryParams": func(p json.RawMessage) (Action, error) {
		var names []string
		if err := decodeField(p, &names); err != nil {
			return nil, err
		}
		return actionAllowQueryParams{Names: names}, nil
	},
	"RemoveQuery": func(p json.RawMessage) (Action, error) {
		return actionRemoveQuery{}, nil
	},
	"NormalizeHost": func(p json.RawMessage) (Action, error) {
		return actionNormalizeHost{}, nil
	},
	"SetHost": func(p json.RawMessage) (Action, error) {
		value, err := decodeSourceField(p)
		if err != nil {
			return nil, err
		}
		return actionSetHost{Value: value}, nil
	},
	"SetScheme": func(p json.RawMessage) (Action, error) {
		var f struct {
			Value string `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return actionSetScheme{Value: f.Value}, nil
	},
	"SetFlag": func(p json.RawMessage) (Action, error) {
		var f struct {
			Name string `json:"name"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return actionSetFlag{Name: f.Name}, nil
	},
	"UnsetFlag": func(p json.RawMessage) (Action, error) {
		var f struct {
			Name string `json:"name"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return actionUnsetFlag{Name: f.Name}, nil
	},
	"SetVar": func(p json.RawMessage) (Action, error) {
		var f struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		value, err := ParseStringSource(f.Value)
		if err != nil {
			return nil, err
		}
		return actionSetVar{Name: f.Name, Value: value}, nil
	},
	"DeleteVar": func(p json.RawMessage) (Action, error) {
		var f struct {
			Name string `json:"name"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return actionDeleteVar{Name: f.Name}, nil
	},
	"ExpandShortLink": func(p json.RawMessage) (Action, error) {
		return actionExpandShortLink{}, nil
	},
	"CacheUrl": func(p json.RawMessage) (Action, error) {
		var f struct {
			Category string          `json:"category"`
			Action   json.RawMessage `json:"action"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		inner, err := ParseAction(f.Action)
		if err != nil {
			return nil, err
		}
		return actionCacheURL{Category: f.Category, Inner: inner}, nil
	},
	"CommonCall": func(p json.RawMessage) (Action, error) {
		var f struct {
			Name string       `json:"name"`
			Args CallArgsJSON `json:"args"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return actionCommonCall{Name: f.Name, Args: f.Args}, nil
	},
}

// --- concrete variants -----------------------------------------------

type actionNone struct{}

func (a actionNone) Execute(ctx context.Context, s *TaskState) error { return nil }

type actionError struct{ Message string }

func (a actionError) Execute(ctx context.Context, s *TaskState) error {
	return newErr(KindExplicit, "%s", a.Message)
}

type actionIf struct {
	If   Condition
	Then Action
	Else Action
}

func (a actionIf) Execute(ctx context.Context, s *TaskState) error {
	ok, err := a.If.Eval(ctx, s)
	if err != nil {
		return err
	}
	if ok {
		return a.Then.Execute(ctx, s)
	}
	if a.Else != nil {
		return a.Else.Execute(ctx, s)
	}
	return nil
}

type actionAll struct{ Actions []Action }

func (a actionAll) Execute(ctx context.Context, s *TaskState) error {
	for _, sub := range a.Actions {
		if err := sub.Execute(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// actionPartMap reads the named map under Params and replaces the part's
// current value with the looked-up one; a part that's absent, or a value
// with no entry in the map, leaves the URL untouched (spec.md §4.H).
type actionPartMap struct {
	Part betterurl.Part
	Map  string
}

func (a actionPartMap) Execute(ctx context.Context, s *TaskState) error {
	current, ok := s.URL().Get(a.Part)
	if !ok {
		return nil
	}
	m, ok := s.Params().NamedMaps[a.Map]
	if !ok {
		return newErr(KindLookup, "no such named map %q", a.Map)
	}
	mapped, ok := m.GetStr(current)
	if !ok {
		return nil
	}
	if err := s.URL().Set(a.Part, &mapped); err != nil {
		return wrapErr(KindPart, err)
	}
	return nil
}

// actionRepeat applies Inner up to Limit times, stopping early once a pass
// produces no observable change to (URL, scratchpad) — spec.md §4.H.
type actionRepeat struct {
	Inner Action
	Limit int
}

func (a actionRepeat) Execute(ctx context.Context, s *TaskState) error {
	for i := 0; i < a.Limit; i++ {
		before := s.URL().String()
		beforeFlags, beforeVars := scratchpadFingerprint(s.Scratchpad())

		if err := a.Inner.Execute(ctx, s); err != nil {
			return err
		}

		after := s.URL().String()
		afterFlags, afterVars := scratchpadFingerprint(s.Scratchpad())
		if before == after && beforeFlags == afterFlags && beforeVars == afterVars {
			return nil
		}
	}
	return nil
}

// scratchpadFingerprint returns a comparable snapshot of a Scratchpad's
// contents so Repeat can detect a no-op pass. Same-package access to the
// unexported fields avoids growing Scratchpad's public surface for this
// one caller.
func scratchpadFingerprint(s *Scratchpad) (flags string, vars string) {
	flagList := make([]string, 0, len(s.flags))
	for f := range s.flags {
		flagList = append(flagList, f)
	}
	sort.Strings(flagList)
	for _, f := range flagList {
		flags += f + "\x00"
	}

	varList := make([]string, 0, len(s.vars))
	for k := range s.vars {
		varList = append(varList, k)
	}
	sort.Strings(varList)
	for _, k := range varList {
		vars += k + "\x01" + s.vars[k] + "\x00"
	}
	return flags, vars
}

// TryElse runs Try; if it errors, runs Else against the pre-Try snapshot
// (spec.md §4.H's rollback-per-attempt contract).
type actionTryElse struct {
	Try  Action
	Else Action
}

func (a actionTryElse) Execute(ctx context.Context, s *TaskState) error {
	snap := s.snapshot()
	if err := a.Try.Execute(ctx, s); err == nil {
		return nil
	}
	s.rollback(snap)
	return a.Else.Execute(ctx, s)
}

// FirstNotError iterates its children with the same rollback-per-attempt
// contract as TryElse; the result is the first success, or an Aggregate of
// every child's error (spec.md §4.H, §8).
type actionFirstNotError struct{ Actions []Action }

func (a actionFirstNotError) Execute(ctx context.Context, s *TaskState) error {
	snap := s.snapshot()
	var children []*CleanerError
	for _, sub := range a.Actions {
		if err := sub.Execute(ctx, s); err == nil {
			return nil
		} else {
			children = append(children, asCleanerError(err))
			s.rollback(snap)
		}
	}
	return aggregate(children)
}

// actionSetPart evaluates Value and sets Part to the result, or removes
// the part if Value evaluates to none (spec.md §4.A's optional-string set
// contract).
type actionSetPart struct {
	Part  betterurl.Part
	Value StringSource
}

func (a actionSetPart) Execute(ctx context.Context, s *TaskState) error {
	v, err := a.Value.Eval(ctx, s)
	if err != nil {
		return err
	}
	var ptr *string
	if v.Valid {
		ptr = &v.Value
	}
	if err := s.URL().Set(a.Part, ptr); err != nil {
		return wrapErr(KindPart, err)
	}
	return nil
}

// actionModifyPart reads Part's current value (empty string if absent),
// runs Modification over it, and writes the result back.
type actionModifyPart struct {
	Part         betterurl.Part
	Modification StringModification
}

func (a actionModifyPart) Execute(ctx context.Context, s *TaskState) error {
	current, _ := s.URL().Get(a.Part)
	next, err := a.Modification.Apply(ctx, s, current)
	if err != nil {
		return err
	}
	if err := s.URL().Set(a.Part, &next); err != nil {
		return wrapErr(KindPart, err)
	}
	return nil
}

type actionRemoveQueryParams struct{ Names []string }

func (a actionRemoveQueryParams) Execute(ctx context.Context, s *TaskState) error {
	names := make(map[string]struct{}, len(a.Names))
	for _, n := range a.Names {
		names[n] = struct{}{}
	}
	s.URL().RemoveQueryParams(names)
	return nil
}

type actionAllowQueryParams struct{ Names []string }

func (a actionAllowQueryParams) Execute(ctx context.Context, s *TaskState) error {
	names := make(map[string]struct{}, len(a.Names))
	for _, n := range a.Names {
		names[n] = struct{}{}
	}
	s.URL().AllowQueryParams(names)
	return nil
}

type actionRemoveQuery struct{}

func (a actionRemoveQuery) Execute(ctx context.Context, s *TaskState) error {
	return s.URL().Set(betterurl.Query(), nil)
}

// actionNormalizeHost lowercases and IDNA-normalizes the host, so
// downstream host comparisons are stable regardless of how the input URL
// capitalized or encoded it (spec.md §9).
type actionNormalizeHost struct{}

func (a actionNormalizeHost) Execute(ctx context.Context, s *TaskState) error {
	host, ok := s.URL().Get(betterurl.Host())
	if !ok {
		return nil
	}
	normalized, err := betterurl.NormalizeHost(host)
	if err != nil {
		return wrapErr(KindPart, err)
	}
	return s.URL().Set(betterurl.Host(), &normalized)
}

type actionSetHost struct{ Value StringSource }

func (a actionSetHost) Execute(ctx context.Context, s *TaskState) error {
	v, err := a.Value.Eval(ctx, s)
	if err != nil {
		return err
	}
	if !v.Valid {
		return newErr(KindType, "SetHost: value source produced none")
	}
	if err := s.URL().Set(betterurl.Host(), &v.Value); err != nil {
		return wrapErr(KindPart, err)
	}
	return nil
}

type actionSetScheme struct{ Value string }

func (a actionSetScheme) Execute(ctx context.Context, s *TaskState) error {
	if err := s.URL().Set(betterurl.Scheme(), &a.Value); err != nil {
		return wrapErr(KindPart, err)
	}
	return nil
}

type actionSetFlag struct{ Name string }

func (a actionSetFlag) Execute(ctx context.Context, s *TaskState) error {
	s.Scratchpad().SetFlag(a.Name)
	return nil
}

type actionUnsetFlag struct{ Name string }

func (a actionUnsetFlag) Execute(ctx context.Context, s *TaskState) error {
	s.Scratchpad().UnsetFlag(a.Name)
	return nil
}

type actionSetVar struct {
	Name  string
	Value StringSource
}

func (a actionSetVar) Execute(ctx context.Context, s *TaskState) error {
	v, err := a.Value.Eval(ctx, s)
	if err != nil {
		return err
	}
	if !v.Valid {
		return newErr(KindType, "SetVar: value source produced none for %q", a.Name)
	}
	s.Scratchpad().SetVar(a.Name, v.Value)
	return nil
}

type actionDeleteVar struct{ Name string }

func (a actionDeleteVar) Execute(ctx context.Context, s *TaskState) error {
	s.Scratchpad().DeleteVar(a.Name)
	return nil
}

// actionExpandShortLink follows a single redirect hop via the external
// fetch glue, replacing the URL with the Location it was pointed to
// (spec.md §4.H). Callers compose it with Repeat to walk a redirect
// chain, and with CacheUrl to memoize the hop.
type actionExpandShortLink struct{}

func (a actionExpandShortLink) Execute(ctx context.Context, s *TaskState) error {
	fetcher := s.Job().Fetcher()
	if fetcher == nil {
		return newErr(KindFeatureDisabled, "no HTTP fetcher configured")
	}

	handle, ctx := s.Job().Unthreader().Acquire(ctx)
	defer handle.Release()

	req := glue.NewRequest(glue.MethodHead, s.URL().String())
	resp, err := fetcher.Fetch(ctx, req)
	if err != nil {
		return wrapErr(KindHTTP, err)
	}
	loc, ok := glue.ExtractLocation(resp)
	if !ok {
		return newErr(KindHTTP, "ExpandShortLink: response carried no Location header")
	}

	parsed, perr := betterurl.Parse(loc)
	if perr != nil {
		return wrapErr(KindParse, perr)
	}
	*s.url = *parsed
	return nil
}

// actionCacheURL memoizes Inner under Category, keyed by the URL string on
// entry (spec.md §4.H CacheUrl semantics): a hit replaces the URL with the
// stored value without re-running Inner; a miss runs Inner once under the
// cache's at-most-one-builder contract and stores the final URL, or an
// errored marker, on completion.
type actionCacheURL struct {
	Category string
	Inner    Action
}

func (a actionCacheURL) Execute(ctx context.Context, s *TaskState) error {
	c := s.Job().Cache()
	if c == nil {
		return newErr(KindFeatureDisabled, "no cache configured")
	}

	key := s.URL().String()
	snap := s.snapshot()

	value, err := c.GetOrBuild(ctx, a.Category, key, func(ctx context.Context) (string, error) {
		if berr := a.Inner.Execute(ctx, s); berr != nil {
			s.rollback(snap)
			return "", berr
		}
		return s.URL().String(), nil
	})
	if err != nil {
		return wrapErr(KindCache, err)
	}

	parsed, perr := betterurl.Parse(value)
	if perr != nil {
		return wrapErr(KindParse, perr)
	}
	*s.url = *parsed
	return nil
}

type actionCommonCall struct {
	Name string
	Args CallArgsJSON
}

func (a actionCommonCall) Execute(ctx context.Context, s *TaskState) error {
	commons := s.Job().Commons()
	frag, ok := commons.Actions[a.Name]
	if !ok {
		return newErr(KindLookup, "no such common action %q", a.Name)
	}

	prev := s.pushCallArgs(a.Args.toCallArgs())
	defer s.popCallArgs(prev)
	return frag.Execute(ctx, s)
}
