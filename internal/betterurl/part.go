package betterurl

import (
	"fmt"
	"net/url"
	"strings"
)

// PartKind enumerates every addressable region of a BetterURL (spec.md
// §4.B). A Part is a PartKind plus whichever of N/Name/RangeEnd that kind
// needs; unused fields are simply left zero.
type PartKind int

const (
	PartWhole PartKind = iota
	PartScheme
	PartUsername
	PartPassword
	PartHost
	PartPort
	PartPath
	PartQuery
	PartFragment

	PartDomain
	PartSubdomain
	PartRegDomain
	PartDomainMiddle
	PartDomainSuffix
	PartNotDomainSuffix
	PartDomainSegment
	PartSubdomainSegment
	PartDomainSuffixSegment

	PartPathSegment
	PartPathSegments
	PartBeforePathSegment
	PartAfterPathSegment

	PartQueryParam
	PartNthQueryParam
	PartNthQueryPair
)

// Part addresses one region of a BetterURL. N is the index for *Segment(n)
// and NthQueryParam; RangeStart/RangeEnd bound PathSegments; Name carries
// the query parameter name for QueryParam/NthQueryParam.
type Part struct {
	Kind       PartKind
	N          int
	RangeStart int
	RangeEnd   int
	HasRange   bool
	Name       string
}

// Whole-URL convenience constructors.
func Whole() Part          { return Part{Kind: PartWhole} }
func Scheme() Part         { return Part{Kind: PartScheme} }
func Username() Part       { return Part{Kind: PartUsername} }
func Password() Part       { return Part{Kind: PartPassword} }
func Host() Part           { return Part{Kind: PartHost} }
func Port() Part           { return Part{Kind: PartPort} }
func Path() Part           { return Part{Kind: PartPath} }
func Query() Part          { return Part{Kind: PartQuery} }
func Fragment() Part       { return Part{Kind: PartFragment} }
func Domain() Part         { return Part{Kind: PartDomain} }
func Subdomain() Part      { return Part{Kind: PartSubdomain} }
func RegDomain() Part      { return Part{Kind: PartRegDomain} }
func DomainMiddle() Part   { return Part{Kind: PartDomainMiddle} }
func DomainSuffix() Part   { return Part{Kind: PartDomainSuffix} }
func NotDomainSuffix() Part {
	return Part{Kind: PartNotDomainSuffix}
}
func DomainSegment(n int) Part       { return Part{Kind: PartDomainSegment, N: n} }
func SubdomainSegment(n int) Part    { return Part{Kind: PartSubdomainSegment, N: n} }
func DomainSuffixSegment(n int) Part { return Part{Kind: PartDomainSuffixSegment, N: n} }
func PathSegment(n int) Part         { return Part{Kind: PartPathSegment, N: n} }
func PathSegments(start, end int) Part {
	return Part{Kind: PartPathSegments, RangeStart: start, RangeEnd: end, HasRange: true}
}
func BeforePathSegment(n int) Part { return Part{Kind: PartBeforePathSegment, N: n} }
func AfterPathSegment(n int) Part  { return Part{Kind: PartAfterPathSegment, N: n} }
func QueryParam(name string) Part  { return Part{Kind: PartQueryParam, Name: name} }
func NthQueryParam(name string, n int) Part {
	return Part{Kind: PartNthQueryParam, Name: name, N: n}
}
func NthQueryPair(n int) Part { return Part{Kind: PartNthQueryPair, N: n} }

// resolveIndex applies spec.md §9's negative-index rule: i >= 0 ? i : n + i.
// ok is false when the resolved index still falls outside [0, length).
func resolveIndex(i, length int) (idx int, ok bool) {
	if i < 0 {
		i = length + i
	}
	if i < 0 || i >= length {
		return 0, false
	}
	return i, true
}

// Get returns the borrowed string for part, or ok=false if the part is
// absent (wrong host kind, out of range, etc. — getters never error).
func (b *BetterURL) Get(part Part) (string, bool) {
	switch part.Kind {
	case PartWhole:
		return b.String(), true
	case PartScheme:
		return b.scheme, true
	case PartUsername:
		if b.username == "" {
			return "", false
		}
		return b.username, true
	case PartPassword:
		if !b.hasPass {
			return "", false
		}
		return b.password, true
	case PartHost:
		if b.host == "" {
			return "", false
		}
		return b.host, true
	case PartPort:
		if b.port == "" {
			return "", false
		}
		return b.port, true
	case PartPath:
		return b.path, true
	case PartQuery:
		if !b.hasQuery {
			return "", false
		}
		return b.query, true
	case PartFragment:
		if !b.hasFrag {
			return "", false
		}
		return b.fragment, true

	case PartDomain:
		if b.hostKind != HostDomain {
			return "", false
		}
		return b.host, true
	case PartSubdomain:
		return b.subdomain()
	case PartRegDomain:
		return b.regDomain()
	case PartDomainMiddle:
		return b.domainMiddle()
	case PartDomainSuffix:
		return b.domainSuffix()
	case PartNotDomainSuffix:
		return b.notDomainSuffix()
	case PartDomainSegment:
		return b.domainSegment(part.N)
	case PartSubdomainSegment:
		return b.subdomainSegment(part.N)
	case PartDomainSuffixSegment:
		return b.domainSuffixSegment(part.N)

	case PartPathSegment:
		segs := b.pathSegments()
		i, ok := resolveIndex(part.N, len(segs))
		if !ok {
			return "", false
		}
		return segs[i], true
	case PartPathSegments:
		return b.pathSegmentsRange(part.RangeStart, part.RangeEnd)
	case PartBeforePathSegment:
		return b.beforePathSegment(part.N)
	case PartAfterPathSegment:
		return b.afterPathSegment(part.N)

	case PartQueryParam:
		v, _, ok := b.nthQueryParam(part.Name, 0)
		return v, ok
	case PartNthQueryParam:
		v, _, ok := b.nthQueryParam(part.Name, part.N)
		return v, ok
	case PartNthQueryPair:
		return b.nthQueryPairString(part.N)
	}
	return "", false
}

// Set validates and applies value (nil means "remove this part") to part,
// splicing the serialized form and re-deriving host decomposition if the
// host region changed.
func (b *BetterURL) Set(part Part, value *string) error {
	switch part.Kind {
	case PartScheme:
		if value == nil {
			return fmt.Errorf("%w: scheme cannot be removed", ErrInvalidPartValue)
		}
		return b.setScheme(*value)
	case PartUsername:
		if value == nil {
			b.username = ""
			return nil
		}
		b.username = *value
		return nil
	case PartPassword:
		if value == nil {
			b.password, b.hasPass = "", false
			return nil
		}
		b.password, b.hasPass = *value, true
		return nil
	case PartHost:
		if value == nil {
			return b.setHost("")
		}
		return b.setHost(*value)
	case PartPort:
		if value == nil {
			b.port = ""
			return nil
		}
		return b.setPort(*value)
	case PartPath:
		if value == nil {
			b.path = ""
			return nil
		}
		b.path = *value
		return nil
	case PartQuery:
		if value == nil {
			b.hasQuery, b.query = false, ""
			return nil
		}
		b.hasQuery, b.query = true, *value
		return nil
	case PartFragment:
		if value == nil {
			b.hasFrag, b.fragment = false, ""
			return nil
		}
		b.hasFrag, b.fragment = true, *value
		return nil

	case PartDomain:
		if b.hostKind != HostDomain && b.hostKind != HostEmpty {
			return fmt.Errorf("%w: cannot set Domain on %s host", ErrWrongHostKind, b.hostKind)
		}
		if value == nil {
			return b.setHost("")
		}
		return b.setHost(*value)
	case PartSubdomain:
		return b.setSubdomain(value)
	case PartRegDomain:
		return b.setRegDomain(value)
	case PartDomainSegment:
		return b.setDomainSegment(part.N, value)

	case PartPathSegment:
		return b.setPathSegment(part.N, value)
	case PartQueryParam:
		return b.setQueryParam(part.Name, value)
	}
	return fmt.Errorf("%w: part %d does not support Set", ErrInvalidPartValue, part.Kind)
}

// --- domain-derived getters ---

func (b *BetterURL) subdomain() (string, bool) {
	if b.hostKind != HostDomain {
		return "", false
	}
	segs := b.domain.Segments
	if b.domain.SuffixStart < 2 {
		return "", false
	}
	return joinSegs(b.host, segs[:b.domain.SuffixStart-1]), true
}

func (b *BetterURL) regDomain() (string, bool) {
	if b.hostKind != HostDomain {
		return "", false
	}
	segs := b.domain.Segments
	start := b.domain.SuffixStart - 1
	if start < 0 {
		start = 0
	}
	if start >= len(segs) {
		return "", false
	}
	return joinSegs(b.host, segs[start:]), true
}

func (b *BetterURL) domainMiddle() (string, bool) {
	if b.hostKind != HostDomain {
		return "", false
	}
	i := b.domain.SuffixStart - 1
	if i < 0 || i >= len(b.domain.Segments) {
		return "", false
	}
	return b.domain.Segments[i].slice(b.host), true
}

func (b *BetterURL) domainSuffix() (string, bool) {
	if b.hostKind != HostDomain {
		return "", false
	}
	segs := b.domain.Segments
	if b.domain.SuffixStart >= len(segs) {
		return "", false
	}
	return joinSegs(b.host, segs[b.domain.SuffixStart:]), true
}

func (b *BetterURL) notDomainSuffix() (string, bool) {
	if b.hostKind != HostDomain {
		return "", false
	}
	segs := b.domain.Segments
	if b.domain.SuffixStart <= 0 {
		return "", false
	}
	end := b.domain.SuffixStart
	if end > len(segs) {
		end = len(segs)
	}
	return joinSegs(b.host, segs[:end]), true
}

func (b *BetterURL) domainSegment(n int) (string, bool) {
	if b.hostKind != HostDomain {
		return "", false
	}
	i, ok := resolveIndex(n, len(b.domain.Segments))
	if !ok {
		return "", false
	}
	return b.domain.Segments[i].slice(b.host), true
}

func (b *BetterURL) subdomainSegment(n int) (string, bool) {
	if b.hostKind != HostDomain {
		return "", false
	}
	subLen := b.domain.SuffixStart - 1
	if subLen <= 0 {
		return "", false
	}
	i, ok := resolveIndex(n, subLen)
	if !ok {
		return "", false
	}
	return b.domain.Segments[i].slice(b.host), true
}

func (b *BetterURL) domainSuffixSegment(n int) (string, bool) {
	if b.hostKind != HostDomain {
		return "", false
	}
	segs := b.domain.Segments[b.domain.SuffixStart:]
	i, ok := resolveIndex(n, len(segs))
	if !ok {
		return "", false
	}
	return segs[i].slice(b.host), true
}

func joinSegs(host string, segs []Span) string {
	if len(segs) == 0 {
		return ""
	}
	return host[segs[0].Start:segs[len(segs)-1].End]
}

// --- path-derived getters ---

// pathSegments splits the path on '/' ignoring a single leading slash, so
// "/a/b/c" -> ["a","b","c"] and "" -> [].
func (b *BetterURL) pathSegments() []string {
	trimmed := strings.TrimPrefix(b.path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func setPathSegments(segs []string) string {
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/")
}

func (b *BetterURL) pathSegmentsRange(start, end int) (string, bool) {
	segs := b.pathSegments()
	s, ok := resolveIndex(start, len(segs)+1)
	if !ok {
		s = 0
	}
	e, ok := resolveIndex(end, len(segs)+1)
	if !ok {
		e = len(segs)
	}
	if s > e || s > len(segs) {
		return "", false
	}
	if e > len(segs) {
		e = len(segs)
	}
	return strings.Join(segs[s:e], "/"), true
}

func (b *BetterURL) beforePathSegment(n int) (string, bool) {
	segs := b.pathSegments()
	i, ok := resolveIndex(n, len(segs))
	if !ok {
		return "", false
	}
	return setPathSegments(segs[:i]), true
}

func (b *BetterURL) afterPathSegment(n int) (string, bool) {
	segs := b.pathSegments()
	i, ok := resolveIndex(n, len(segs))
	if !ok {
		return "", false
	}
	return setPathSegments(segs[i+1:]), true
}

func (b *BetterURL) setPathSegment(n int, value *string) error {
	segs := b.pathSegments()
	if n == len(segs) || (n < 0 && n == -len(segs)-1) {
		// Policy: one-past-the-end index on PathSegment extends the path
		// by appending, so programs can grow a path without a separate
		// "append segment" action.
		if value == nil {
			return fmt.Errorf("%w: cannot remove a path segment that doesn't exist", ErrIndexOutOfRange)
		}
		segs = append(segs, *value)
		b.path = setPathSegments(segs)
		return nil
	}
	i, ok := resolveIndex(n, len(segs))
	if !ok {
		return fmt.Errorf("%w: path segment %d", ErrIndexOutOfRange, n)
	}
	if value == nil {
		segs = append(segs[:i], segs[i+1:]...)
	} else {
		segs[i] = *value
	}
	b.path = setPathSegments(segs)
	return nil
}

// --- query-derived getters ---

type queryPair struct {
	key, value string
	hasValue   bool
}

func parseQueryPairs(query string) []queryPair {
	if query == "" {
		return nil
	}
	parts := strings.Split(query, "&")
	pairs := make([]queryPair, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if eq := strings.IndexByte(p, '='); eq >= 0 {
			pairs = append(pairs, queryPair{key: p[:eq], value: p[eq+1:], hasValue: true})
		} else {
			pairs = append(pairs, queryPair{key: p})
		}
	}
	return pairs
}

func serializeQueryPairs(pairs []queryPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.hasValue {
			parts = append(parts, p.key+"="+p.value)
		} else {
			parts = append(parts, p.key)
		}
	}
	return strings.Join(parts, "&")
}

func decodeKey(raw string) string {
	if decoded, err := url.QueryUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// nthQueryParam finds the nth (0-indexed, negative from end) pair whose
// decoded key equals name, returning its decoded value.
func (b *BetterURL) nthQueryParam(name string, n int) (value string, index int, ok bool) {
	if !b.hasQuery {
		return "", 0, false
	}
	pairs := parseQueryPairs(b.query)
	var matches []int
	for i, p := range pairs {
		if decodeKey(p.key) == name {
			matches = append(matches, i)
		}
	}
	idx, ok := resolveIndex(n, len(matches))
	if !ok {
		return "", 0, false
	}
	pi := matches[idx]
	if pairs[pi].hasValue {
		return decodeKey(pairs[pi].value), pi, true
	}
	return "", pi, true
}

func (b *BetterURL) nthQueryPairString(n int) (string, bool) {
	if !b.hasQuery {
		return "", false
	}
	pairs := parseQueryPairs(b.query)
	i, ok := resolveIndex(n, len(pairs))
	if !ok {
		return "", false
	}
	p := pairs[i]
	if p.hasValue {
		return p.key + "=" + p.value, true
	}
	return p.key, true
}

// setQueryParam replaces the value of the first pair whose key matches
// name, or appends a new pair if none exists (policy: QueryParam set
// always succeeds — a missing param is grown, matching RemoveQueryParams'
// contract that query editing never errors on "not found").
func (b *BetterURL) setQueryParam(name string, value *string) error {
	pairs := parseQueryPairs(b.query)
	for i, p := range pairs {
		if decodeKey(p.key) == name {
			if value == nil {
				pairs = append(pairs[:i], pairs[i+1:]...)
			} else {
				pairs[i] = queryPair{key: p.key, value: url.QueryEscape(*value), hasValue: true}
			}
			b.query, b.hasQuery = serializeQueryPairs(pairs), len(pairs) > 0
			return nil
		}
	}
	if value == nil {
		return nil // removing an absent param is a no-op, not an error
	}
	pairs = append(pairs, queryPair{key: url.QueryEscape(name), value: url.QueryEscape(*value), hasValue: true})
	b.query, b.hasQuery = serializeQueryPairs(pairs), true
	return nil
}

// RemoveQueryParams deletes every query pair whose decoded key is in names.
func (b *BetterURL) RemoveQueryParams(names map[string]struct{}) {
	if !b.hasQuery {
		return
	}
	pairs := parseQueryPairs(b.query)
	kept := pairs[:0]
	for _, p := range pairs {
		if _, drop := names[decodeKey(p.key)]; drop {
			continue
		}
		kept = append(kept, p)
	}
	b.query, b.hasQuery = serializeQueryPairs(kept), len(kept) > 0
}

// AllowQueryParams keeps only query pairs whose decoded key is in names,
// removing everything else.
func (b *BetterURL) AllowQueryParams(names map[string]struct{}) {
	if !b.hasQuery {
		return
	}
	pairs := parseQueryPairs(b.query)
	kept := pairs[:0]
	for _, p := range pairs {
		if _, keep := names[decodeKey(p.key)]; keep {
			kept = append(kept, p)
		}
	}
	b.query, b.hasQuery = serializeQueryPairs(kept), len(kept) > 0
}

// --- subdomain / reg-domain setters ---

func (b *BetterURL) setSubdomain(value *string) error {
	if b.hostKind != HostDomain {
		return fmt.Errorf("%w: cannot set Subdomain on %s host", ErrWrongHostKind, b.hostKind)
	}
	reg, ok := b.regDomain()
	if !ok {
		return fmt.Errorf("%w: host has no registrable domain", ErrInvalidPartValue)
	}
	var newHost string
	if value == nil || *value == "" {
		newHost = reg
	} else {
		newHost = *value + "." + reg
	}
	return b.setHost(newHost)
}

func (b *BetterURL) setRegDomain(value *string) error {
	if b.hostKind != HostDomain {
		return fmt.Errorf("%w: cannot set RegDomain on %s host", ErrWrongHostKind, b.hostKind)
	}
	if value == nil {
		return fmt.Errorf("%w: RegDomain cannot be removed", ErrInvalidPartValue)
	}
	sub, hasSub := b.subdomain()
	var newHost string
	if hasSub && sub != "" {
		newHost = sub + "." + *value
	} else {
		newHost = *value
	}
	return b.setHost(newHost)
}

func (b *BetterURL) setDomainSegment(n int, value *string) error {
	if b.hostKind != HostDomain {
		return fmt.Errorf("%w: cannot set DomainSegment on %s host", ErrWrongHostKind, b.hostKind)
	}
	segs := b.pathSegmentsFromHost()
	i, ok := resolveIndex(n, len(segs))
	if !ok {
		return fmt.Errorf("%w: domain segment %d", ErrIndexOutOfRange, n)
	}
	if value == nil {
		segs = append(segs[:i], segs[i+1:]...)
	} else {
		segs[i] = *value
	}
	return b.setHost(strings.Join(segs, "."))
}

func (b *BetterURL) pathSegmentsFromHost() []string {
	segs := make([]string, len(b.domain.Segments))
	for i, s := range b.domain.Segments {
		segs[i] = s.slice(b.host)
	}
	return segs
}
