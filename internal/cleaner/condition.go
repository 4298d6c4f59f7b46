package cleaner

import (
	"context"
	"encoding/json"

	"github.com/urlcleaner-go/engine/internal/betterurl"
)

// Condition is a pure boolean predicate over a read-only task state view
// (spec.md §4.G).
type Condition interface {
	Eval(ctx context.Context, view TaskStateView) (bool, error)
}

// ParseCondition decodes one Condition from its JSON form.
func ParseCondition(data []byte) (Condition, error) {
	return decodeVariant(data, conditionCtors, conditionBareFallback)
}

func conditionBareFallback(name string) (Condition, bool) {
	return conditionCommonCall{Name: name}, true
}

// ConditionList decodes a JSON array of Condition.
type ConditionList []Condition

func (l *ConditionList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return newErr(KindParse, "expected array of conditions: %v", err)
	}
	out := make(ConditionList, 0, len(raws))
	for _, raw := range raws {
		c, err := ParseCondition(raw)
		if err != nil {
			return err
		}
		out = append(out, c)
	}
	*l = out
	return nil
}

var conditionCtors = map[string]variantConstructor[Condition]{
	"PartIs": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Part  json.RawMessage `json:"part"`
			Value string          `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		part, err := decodePartField(f.Part)
		if err != nil {
			return nil, err
		}
		return conditionPartIs{Part: part, Value: f.Value}, nil
	},
	"HostIs": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Value string `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return conditionHostIs{Value: f.Value}, nil
	},
	"HostEndsWith": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Value string `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return conditionHostEndsWith{Value: f.Value}, nil
	},
	"HostIsInSet": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Set string `json:"set"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return conditionHostIsInSet{Set: f.Set}, nil
	},
	"FlagSet": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Name string `json:"name"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return conditionFlagSet{Name: f.Name}, nil
	},
	"VarEquals": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return conditionVarEquals{Name: f.Name, Value: f.Value}, nil
	},
	"SourceMatches": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Source  json.RawMessage `json:"source"`
			Matcher json.RawMessage `json:"matcher"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		src, err := ParseStringSource(f.Source)
		if err != nil {
			return nil, err
		}
		matcher, err := ParseStringMatcher(f.Matcher)
		if err != nil {
			return nil, err
		}
		return conditionSourceMatches{Source: src, Matcher: matcher}, nil
	},
	"PathHasSegments": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Min int `json:"min"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return conditionPathHasSegments{Min: f.Min}, nil
	},
	"QueryHasParam": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Name string `json:"name"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return conditionQueryHasParam{Name: f.Name}, nil
	},
	"All": func(p json.RawMessage) (Condition, error) {
		var list ConditionList
		if err := decodeField(p, &list); err != nil {
			return nil, err
		}
		return conditionAll{Conditions: list}, nil
	},
	"Any": func(p json.RawMessage) (Condition, error) {
		var list ConditionList
		if err := decodeField(p, &list); err != nil {
			return nil, err
		}
		return conditionAny{Conditions: list}, nil
	},
	"Not": func(p json.RawMessage) (Condition, error) {
		var inner json.RawMessage
		if err := decodeField(p, &inner); err != nil {
			return nil, err
		}
		c, err := ParseCondition(inner)
		if err != nil {
			return nil, err
		}
		return conditionNot{Inner: c}, nil
	},
	"If": func(p json.RawMessage) (Condition, error) {
		var f struct {
			If   json.RawMessage `json:"if"`
			Then json.RawMessage `json:"then"`
			Else json.RawMessage `json:"else"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		ifC, err := ParseCondition(f.If)
		if err != nil {
			return nil, err
		}
		thenC, err := ParseCondition(f.Then)
		if err != nil {
			return nil, err
		}
		var elseC Condition
		if len(f.Else) > 0 {
			if elseC, err = ParseCondition(f.Else); err != nil {
				return nil, err
			}
		}
		return conditionIf{If: ifC, Then: thenC, Else: elseC}, nil
	},
	"TreatErrorAsFail": func(p json.RawMessage) (Condition, error) {
		inner, err := decodeConditionField(p)
		if err != nil {
			return nil, err
		}
		return conditionTreatErrorAsFail{Inner: inner}, nil
	},
	"TreatErrorAsPass": func(p json.RawMessage) (Condition, error) {
		inner, err := decodeConditionField(p)
		if err != nil {
			return nil, err
		}
		return conditionTreatErrorAsPass{Inner: inner}, nil
	},
	"CommonCall": func(p json.RawMessage) (Condition, error) {
		var f struct {
			Name string       `json:"name"`
			Args CallArgsJSON `json:"args"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return conditionCommonCall{Name: f.Name, Args: f.Args}, nil
	},
	"FirstNotError": func(p json.RawMessage) (Condition, error) {
		var list ConditionList
		if err := decodeField(p, &list); err != nil {
			return nil, err
		}
		return conditionFirstNotError{Conditions: list}, nil
	},
}

func decodeConditionField(p json.RawMessage) (Condition, error) {
	var f struct {
		Condition json.RawMessage `json:"condition"`
	}
	if err := decodeField(p, &f); err == nil && len(f.Condition) > 0 {
		return ParseCondition(f.Condition)
	}
	return ParseCondition(p)
}

// --- concrete variants -----------------------------------------------

type conditionPartIs struct {
	Part  betterurl.Part
	Value string
}

func (c conditionPartIs) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	v, ok := view.URL().Get(c.Part)
	return ok && v == c.Value, nil
}

type conditionHostIs struct{ Value string }

func (c conditionHostIs) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	v, ok := view.URL().Get(betterurl.Host())
	v, _ = betterurl.NormalizeHost(v)
	return ok && v == c.Value, nil
}

type conditionHostEndsWith struct{ Value string }

func (c conditionHostEndsWith) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	v, ok := view.URL().Get(betterurl.Host())
	if !ok {
		return false, nil
	}
	v, _ = betterurl.NormalizeHost(v)
	n := len(c.Value)
	return len(v) >= n && v[len(v)-n:] == c.Value, nil
}

type conditionHostIsInSet struct{ Set string }

func (c conditionHostIsInSet) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	v, ok := view.URL().Get(betterurl.Host())
	if !ok {
		return false, nil
	}
	v, _ = betterurl.NormalizeHost(v)
	set, ok := view.Params().NamedSets[c.Set]
	if !ok {
		return false, newErr(KindLookup, "no such named set %q", c.Set)
	}
	return set.ContainsStr(v), nil
}

type conditionFlagSet struct{ Name string }

func (c conditionFlagSet) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	return view.CallArgs().Flags.ContainsStr(c.Name) || view.Scratchpad().HasFlag(c.Name) || view.Params().Flags.ContainsStr(c.Name), nil
}

type conditionVarEquals struct {
	Name  string
	Value string
}

func (c conditionVarEquals) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	if v, ok := view.CallArgs().Vars.GetStr(c.Name); ok {
		return v == c.Value, nil
	}
	if v, ok := view.Scratchpad().GetVar(c.Name); ok {
		return v == c.Value, nil
	}
	if v, ok := view.Params().Vars.GetStr(c.Name); ok {
		return v == c.Value, nil
	}
	return false, nil
}

type conditionSourceMatches struct {
	Source  StringSource
	Matcher StringMatcher
}

func (c conditionSourceMatches) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	v, err := c.Source.Eval(ctx, view)
	if err != nil {
		return false, err
	}
	if !v.Valid {
		return false, nil
	}
	return c.Matcher.Matches(ctx, view, v.Value)
}

type conditionPathHasSegments struct{ Min int }

func (c conditionPathHasSegments) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	v, ok := view.URL().Get(betterurl.Path())
	if !ok || v == "" || v == "/" {
		return c.Min <= 0, nil
	}
	n := 0
	for _, ch := range v {
		if ch == '/' {
			n++
		}
	}
	return n >= c.Min, nil
}

type conditionQueryHasParam struct{ Name string }

func (c conditionQueryHasParam) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	_, ok := view.URL().Get(betterurl.QueryParam(c.Name))
	return ok, nil
}

type conditionAll struct{ Conditions []Condition }

func (c conditionAll) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	for _, sub := range c.Conditions {
		ok, err := sub.Eval(ctx, view)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

type conditionAny struct{ Conditions []Condition }

func (c conditionAny) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	for _, sub := range c.Conditions {
		ok, err := sub.Eval(ctx, view)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type conditionNot struct{ Inner Condition }

func (c conditionNot) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	ok, err := c.Inner.Eval(ctx, view)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type conditionIf struct {
	If   Condition
	Then Condition
	Else Condition
}

func (c conditionIf) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	ok, err := c.If.Eval(ctx, view)
	if err != nil {
		return false, err
	}
	if ok {
		return c.Then.Eval(ctx, view)
	}
	if c.Else != nil {
		return c.Else.Eval(ctx, view)
	}
	return false, nil
}

type conditionTreatErrorAsFail struct{ Inner Condition }

func (c conditionTreatErrorAsFail) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	ok, err := c.Inner.Eval(ctx, view)
	if err != nil {
		return false, nil
	}
	return ok, nil
}

type conditionTreatErrorAsPass struct{ Inner Condition }

func (c conditionTreatErrorAsPass) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	ok, err := c.Inner.Eval(ctx, view)
	if err != nil {
		return true, nil
	}
	return ok, nil
}

type conditionCommonCall struct {
	Name string
	Args CallArgsJSON
}

func (c conditionCommonCall) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	commons := view.Job().Commons()
	frag, ok := commons.conditions()[c.Name]
	if !ok {
		return false, newErr(KindLookup, "no such common condition %q", c.Name)
	}

	state, ok := view.(*TaskState)
	if !ok {
		return frag.Eval(ctx, view)
	}
	prev := state.pushCallArgs(c.Args.toCallArgs())
	defer state.popCallArgs(prev)
	return frag.Eval(ctx, state)
}

type conditionFirstNotError struct{ Conditions []Condition }

func (c conditionFirstNotError) Eval(ctx context.Context, view TaskStateView) (bool, error) {
	var children []*CleanerError
	for _, sub := range c.Conditions {
		ok, err := sub.Eval(ctx, view)
		if err == nil {
			return ok, nil
		}
		children = append(children, asCleanerError(err))
	}
	return false, aggregate(children)
}
