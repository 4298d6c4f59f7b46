package cleaner

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a CleanerError the way spec.md §7 names error *kinds*,
// not Go type names — every error the evaluator produces carries one of
// these as a string so a caller can branch on it without type-asserting
// into this package.
type Kind string

const (
	KindParse          Kind = "ParseError"
	KindPart           Kind = "PartError"
	KindLookup         Kind = "LookupError"
	KindType           Kind = "TypeError"
	KindExplicit       Kind = "ExplicitError"
	KindHTTP           Kind = "HttpError"
	KindCache          Kind = "CacheError"
	KindRegex          Kind = "RegexError"
	KindBase64         Kind = "Base64Error"
	KindJSON           Kind = "JsonError"
	KindPercent        Kind = "PercentError"
	KindFeatureDisabled Kind = "FeatureDisabled"
	KindAggregate      Kind = "Aggregate"
)

// CleanerError is the one error type every evaluator function returns.
// Message is human-readable; Children holds the ordered child errors of
// an Aggregate (produced when every branch of a FirstNotError fails).
type CleanerError struct {
	Kind     Kind
	Message  string
	Children []*CleanerError
	wrapped  error
}

func newErr(kind Kind, format string, args ...any) *CleanerError {
	return &CleanerError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, err error) *CleanerError {
	return &CleanerError{Kind: kind, Message: err.Error(), wrapped: err}
}

func (e *CleanerError) Error() string {
	if e.Kind == KindAggregate && len(e.Children) > 0 {
		return fmt.Sprintf("%s: %s (%d causes)", e.Kind, e.Message, len(e.Children))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CleanerError) Unwrap() error { return e.wrapped }

// sentinels usable with errors.Is for callers that only care about the
// taxonomy and not the exact message.
var (
	ErrParse           = errors.New("parse error")
	ErrPart            = errors.New("part error")
	ErrLookup          = errors.New("lookup error")
	ErrType            = errors.New("type error")
	ErrExplicit        = errors.New("explicit error")
	ErrHTTP            = errors.New("http error")
	ErrCache           = errors.New("cache error")
	ErrRegex           = errors.New("regex error")
	ErrBase64          = errors.New("base64 error")
	ErrJSON            = errors.New("json error")
	ErrPercent         = errors.New("percent error")
	ErrFeatureDisabled = errors.New("feature disabled")
)

func kindSentinel(kind Kind) error {
	switch kind {
	case KindParse:
		return ErrParse
	case KindPart:
		return ErrPart
	case KindLookup:
		return ErrLookup
	case KindType:
		return ErrType
	case KindExplicit:
		return ErrExplicit
	case KindHTTP:
		return ErrHTTP
	case KindCache:
		return ErrCache
	case KindRegex:
		return ErrRegex
	case KindBase64:
		return ErrBase64
	case KindJSON:
		return ErrJSON
	case KindPercent:
		return ErrPercent
	case KindFeatureDisabled:
		return ErrFeatureDisabled
	default:
		return nil
	}
}

// Is lets errors.Is(err, cleaner.ErrCache) match any CleanerError of that
// Kind, in addition to the exact sentinel comparison Unwrap gives for
// errors that wrap a lower-level cause.
func (e *CleanerError) Is(target error) bool {
	return kindSentinel(e.Kind) == target
}

// asCleanerError normalizes any error into a *CleanerError, for call
// sites (FirstNotError's child collection) that need every entry to
// carry a Kind even if it arrived as a plain wrapped error.
func asCleanerError(err error) *CleanerError {
	var ce *CleanerError
	if errors.As(err, &ce) {
		return ce
	}
	return wrapErr(KindType, err)
}

func aggregate(children []*CleanerError) *CleanerError {
	msgs := make([]string, 0, len(children))
	for _, c := range children {
		msgs = append(msgs, c.Error())
	}
	return &CleanerError{
		Kind:     KindAggregate,
		Message:  fmt.Sprintf("all %d branches failed: %s", len(children), strings.Join(msgs, "; ")),
		Children: children,
	}
}
