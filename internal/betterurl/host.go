package betterurl

import (
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// HostKind classifies the host component of a BetterURL. It is the tagged
// variant spec.md §3 describes as {Domain, Ipv4, Ipv6, Empty}.
type HostKind int

const (
	// HostEmpty is a URL with no host (e.g. "file:///a/b" or "mailto:a@b").
	HostEmpty HostKind = iota
	HostDomain
	HostIPv4
	HostIPv6
)

func (k HostKind) String() string {
	switch k {
	case HostDomain:
		return "Domain"
	case HostIPv4:
		return "Ipv4"
	case HostIPv6:
		return "Ipv6"
	default:
		return "Empty"
	}
}

// Span is a byte-range [Start, End) into the host string. Segment getters
// return slices of the host string bounded by Spans rather than allocating
// new strings; only Set splices.
type Span struct {
	Start, End int
}

func (s Span) slice(host string) string { return host[s.Start:s.End] }

// DomainDetails is the precomputed decomposition of a domain-kind host:
// the ordered label spans plus the index (into Segments) where the public
// suffix begins. IPv4Details and IPv6Details are deliberately empty structs
// — original_source keeps them as placeholder payloads on the host-kind
// variant for symmetry and future extension (see open question, spec.md §9).
type DomainDetails struct {
	Segments    []Span
	SuffixStart int // index into Segments; len(Segments) if there is no known suffix
}

type IPv4Details struct{}
type IPv6Details struct{}

// decomposeHost classifies host and, for a domain host, computes its label
// spans and public-suffix boundary. host must already be the raw host
// string (no brackets around an IPv6 literal — those are stripped by the
// caller before this runs).
func decomposeHost(host string) (HostKind, DomainDetails, IPv4Details, IPv6Details) {
	if host == "" {
		return HostEmpty, DomainDetails{}, IPv4Details{}, IPv6Details{}
	}
	if isIPv4(host) {
		return HostIPv4, DomainDetails{}, IPv4Details{}, IPv6Details{}
	}
	if isIPv6(host) {
		return HostIPv6, DomainDetails{}, IPv4Details{}, IPv6Details{}
	}
	return HostDomain, domainDetailsOf(host), IPv4Details{}, IPv6Details{}
}

func isIPv4(host string) bool {
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

func isIPv6(host string) bool {
	return strings.Count(host, ":") >= 2
}

// domainDetailsOf computes label spans over host and locates the public
// suffix boundary via golang.org/x/net/publicsuffix, the same list Chromium
// and Firefox ship — this is what makes RegDomain/DomainSuffix agree with
// what a browser would consider the registrable domain.
func domainDetailsOf(host string) DomainDetails {
	segments := labelSpans(host)

	suffix, _ := publicsuffix.PublicSuffix(strings.ToLower(host))
	suffixStart := len(segments)
	if suffix != "" {
		suffixLabels := strings.Count(suffix, ".") + 1
		if suffixLabels <= len(segments) {
			suffixStart = len(segments) - suffixLabels
		}
	}

	return DomainDetails{Segments: segments, SuffixStart: suffixStart}
}

// labelSpans splits host on '.' and returns a Span per label, without
// allocating the label substrings themselves.
func labelSpans(host string) []Span {
	var spans []Span
	start := 0
	for i := 0; i <= len(host); i++ {
		if i == len(host) || host[i] == '.' {
			spans = append(spans, Span{Start: start, End: i})
			start = i + 1
		}
	}
	return spans
}

// NormalizeHost lowercases and IDNA-ASCII-normalizes a domain host. It is
// used by the NormalizeHost action and by host-comparison Conditions, so
// "HTTP://Example.COM" and "http://xn--e-0n.com" compare as their
// canonical forms rather than byte-for-byte.
func NormalizeHost(host string) (string, error) {
	lower := strings.ToLower(host)
	ascii, err := idna.Lookup.ToASCII(lower)
	if err != nil {
		// Not every host that shows up on the open web is strict-IDNA
		// valid (stray underscores, etc.); fall back to the lowercased
		// form rather than rejecting the URL outright.
		return lower, nil
	}
	return ascii, nil
}
