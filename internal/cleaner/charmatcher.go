package cleaner

import (
	"encoding/json"
	"strings"
	"unicode"
)

// CharMatcher is a boolean test over a single rune (spec.md §4.F).
type CharMatcher interface {
	Matches(r rune) bool
}

// ParseCharMatcher decodes one CharMatcher from its JSON form.
func ParseCharMatcher(data []byte) (CharMatcher, error) {
	return decodeVariant(data, charMatcherCtors, nil)
}

var charMatcherCtors = map[string]variantConstructor[CharMatcher]{
	"Range": func(p json.RawMessage) (CharMatcher, error) {
		var f struct {
			Low  string `json:"low"`
			High string `json:"high"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		low, high, err := runeBounds(f.Low, f.High)
		if err != nil {
			return nil, err
		}
		return charRange{Low: low, High: high}, nil
	},
	"Category": func(p json.RawMessage) (CharMatcher, error) {
		var f struct {
			Name string `json:"name"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return charCategory{Name: f.Name}, nil
	},
	"Set": func(p json.RawMessage) (CharMatcher, error) {
		var f struct {
			Chars string `json:"chars"`
		}
		if err := decodeField(p, &f); err != nil {
			return nil, err
		}
		return charSet{Chars: f.Chars}, nil
	},
	"Not": func(p json.RawMessage) (CharMatcher, error) {
		var inner json.RawMessage
		if err := decodeField(p, &inner); err != nil {
			return nil, err
		}
		m, err := ParseCharMatcher(inner)
		if err != nil {
			return nil, err
		}
		return charNot{Inner: m}, nil
	},
}

func runeBounds(low, high string) (rune, rune, error) {
	lo := []rune(low)
	hi := []rune(high)
	if len(lo) != 1 || len(hi) != 1 {
		return 0, 0, newErr(KindParse, "char range bounds must be single characters")
	}
	return lo[0], hi[0], nil
}

type charRange struct{ Low, High rune }

func (m charRange) Matches(r rune) bool { return r >= m.Low && r <= m.High }

type charCategory struct{ Name string }

func (m charCategory) Matches(r rune) bool {
	switch strings.ToLower(m.Name) {
	case "alpha", "letter":
		return unicode.IsLetter(r)
	case "digit", "number":
		return unicode.IsDigit(r)
	case "alphanumeric":
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	case "space", "whitespace":
		return unicode.IsSpace(r)
	case "upper":
		return unicode.IsUpper(r)
	case "lower":
		return unicode.IsLower(r)
	case "punct":
		return unicode.IsPunct(r)
	default:
		return false
	}
}

type charSet struct{ Chars string }

func (m charSet) Matches(r rune) bool { return strings.ContainsRune(m.Chars, r) }

type charNot struct{ Inner CharMatcher }

func (m charNot) Matches(r rune) bool { return !m.Inner.Matches(r) }
