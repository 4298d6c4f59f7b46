// Package betterurl implements the structured URL representation (spec.md
// component A) and its part-addressing layer (component B): a parsed
// absolute URL plus a cached host-kind decomposition, with named getters
// and setters — including virtual parts like subdomain and reg-domain —
// addressed over byte ranges rather than allocated substrings.
package betterurl

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Sentinel errors for the part-addressing contract (spec.md §7 PartError).
var (
	ErrWrongHostKind    = errors.New("betterurl: part not addressable for this host kind")
	ErrIndexOutOfRange  = errors.New("betterurl: index out of range")
	ErrInvalidPartValue = errors.New("betterurl: value invalid for part")
	ErrParse            = errors.New("betterurl: could not parse url")
)

// BetterURL is a parsed absolute URL plus a cached decomposition of its
// host. Mutations go through Set, which validates, splices the affected
// region of the serialized form, and re-derives the host decomposition if
// the host region changed — spec.md §4.A's round-trip invariant
// (parse(serialize(u)) == u) depends on every setter doing this.
type BetterURL struct {
	scheme   string
	username string
	password string
	hasPass  bool
	host     string // not including brackets for IPv6, or port
	port     string // digits only, no ':'
	path     string // always begins with "/" if non-empty
	query    string // without leading '?'
	fragment string // without leading '#'
	hasQuery bool
	hasFrag  bool

	hostKind HostKind
	domain   DomainDetails
}

// Parse parses rawurl into a BetterURL, deriving its host decomposition.
func Parse(rawurl string) (*BetterURL, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("%w: not an absolute url", ErrParse)
	}

	b := &BetterURL{
		scheme:   u.Scheme,
		username: u.User.Username(),
		path:     u.Path,
		hasQuery: u.ForceQuery || u.RawQuery != "",
		query:    u.RawQuery,
		hasFrag:  u.Fragment != "" || u.RawFragment != "",
		fragment: u.Fragment,
	}
	if pw, ok := u.User.Password(); ok {
		b.password, b.hasPass = pw, true
	}

	host := u.Hostname()
	b.port = u.Port()
	b.host = host

	b.hostKind, b.domain, _, _ = decomposeHost(host)

	return b, nil
}

// String serializes the BetterURL back into its textual form.
func (b *BetterURL) String() string {
	var sb strings.Builder
	sb.WriteString(b.scheme)
	sb.WriteString("://")
	if b.username != "" || b.hasPass {
		sb.WriteString(url.User(b.username).String())
		if b.hasPass {
			sb.WriteByte(':')
			sb.WriteString(url.UserPassword("", b.password).String()[1:])
		}
		sb.WriteByte('@')
	}
	sb.WriteString(b.hostForSerialization())
	if b.port != "" {
		sb.WriteByte(':')
		sb.WriteString(b.port)
	}
	sb.WriteString(b.path)
	if b.hasQuery {
		sb.WriteByte('?')
		sb.WriteString(b.query)
	}
	if b.hasFrag {
		sb.WriteByte('#')
		sb.WriteString(b.fragment)
	}
	return sb.String()
}

func (b *BetterURL) hostForSerialization() string {
	if b.hostKind == HostIPv6 {
		return "[" + b.host + "]"
	}
	return b.host
}

// Clone returns a deep (value) copy suitable for the rollback snapshots
// TryElse/FirstNotError take on entry (spec.md §4.H error recovery).
func (b *BetterURL) Clone() *BetterURL {
	clone := *b
	clone.domain = DomainDetails{
		Segments:    append([]Span(nil), b.domain.Segments...),
		SuffixStart: b.domain.SuffixStart,
	}
	return &clone
}

// HostKind reports the classification of the current host.
func (b *BetterURL) HostKind() HostKind { return b.hostKind }

// Scheme, Host, Path etc. are the raw-component accessors used internally
// by Get/Set and exposed for callers that don't want the Part indirection.
func (b *BetterURL) Scheme() string   { return b.scheme }
func (b *BetterURL) Host() string     { return b.host }
func (b *BetterURL) Port() string     { return b.port }
func (b *BetterURL) Path() string     { return b.path }
func (b *BetterURL) RawQuery() string { return b.query }

func (b *BetterURL) setScheme(v string) error {
	if v == "" {
		return fmt.Errorf("%w: scheme cannot be empty", ErrInvalidPartValue)
	}
	b.scheme = strings.ToLower(v)
	return nil
}

func (b *BetterURL) setHost(v string) error {
	if b.hostKind == HostIPv6 && strings.HasPrefix(v, "[") {
		v = strings.TrimSuffix(strings.TrimPrefix(v, "["), "]")
	}
	b.host = v
	b.hostKind, b.domain, _, _ = decomposeHost(v)
	return nil
}

func (b *BetterURL) setPort(v string) error {
	if v == "" {
		b.port = ""
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("%w: invalid port %q", ErrInvalidPartValue, v)
	}
	b.port = v
	return nil
}
