// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"net/url"
	"regexp"
	"strings"
)

// PayloadParam is the query parameter the identity provider appends to the
// redirect URI.
const PayloadParam = "startapp"

// LinkKind classifies a received deep link.
type LinkKind string

const (
	// LinkIgnored is a URL that cannot carry a session payload.
	LinkIgnored LinkKind = "ignored"
	// LinkSession carries a session payload.
	LinkSession LinkKind = "registration"
	// LinkLogout is an explicit logout signal.
	LinkLogout LinkKind = "logout"
	// LinkUnknown looked like a redirect but no payload was found.
	LinkUnknown LinkKind = "unparsed"
)

// Link is a parsed deep link.
type Link struct {
	Kind    LinkKind
	Payload string
	URL     string
}

// LinkParser extracts session payloads from redirect URLs.
type LinkParser struct {
	scheme string
	origin *url.URL
}

var payloadPattern = regexp.MustCompile(`[?&]` + PayloadParam + `=([^&?#]+)`)

// NewLinkParser returns a parser for redirect URIs with the scheme of
// redirectURI. origin resolves relative links; an unparseable origin falls
// back to http://localhost.
func NewLinkParser(redirectURI, origin string) *LinkParser {
	scheme := "lootsurvivor"
	if u, err := url.Parse(redirectURI); err == nil && u.Scheme != "" {
		scheme = strings.ToLower(u.Scheme)
	}
	base, err := url.Parse(origin)
	if err != nil || base.Scheme == "" || base.Host == "" {
		base = &url.URL{Scheme: "http", Host: "localhost"}
	}
	return &LinkParser{scheme: scheme, origin: base}
}

// Parse classifies raw. It never fails: each extraction strategy that does
// not yield a payload falls through to the next one.
func (p *LinkParser) Parse(raw string) Link {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Link{Kind: LinkIgnored}
	}
	if p.isLogout(raw) {
		return Link{Kind: LinkLogout, URL: raw}
	}

	custom := p.hasScheme(raw)
	web := strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
	if !strings.Contains(raw, PayloadParam+"=") && !custom && !(strings.Contains(raw, "://") && !web) {
		return Link{Kind: LinkIgnored, URL: raw}
	}

	for _, extract := range []func(string) string{
		p.fromCustomScheme,
		p.fromWebURL,
		p.fromPattern,
		p.fromRelative,
	} {
		if payload := extract(raw); payload != "" {
			return Link{Kind: LinkSession, Payload: payload, URL: raw}
		}
	}
	return Link{Kind: LinkUnknown, URL: raw}
}

func (p *LinkParser) hasScheme(raw string) bool {
	prefix := p.scheme + "://"
	return len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix)
}

func (p *LinkParser) isLogout(raw string) bool {
	normalized := raw
	if p.hasScheme(raw) {
		normalized = "https://placeholder/" + raw[len(p.scheme)+3:]
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	q := u.Query()
	if v, ok := q["logout"]; ok && len(v) > 0 {
		if strings.EqualFold(v[0], "1") || strings.EqualFold(v[0], "true") {
			return true
		}
	}
	return q.Get(PayloadParam) == "logout"
}

func (p *LinkParser) fromCustomScheme(raw string) string {
	if !p.hasScheme(raw) {
		return ""
	}
	u, err := url.Parse("https://" + raw[len(p.scheme)+3:])
	if err != nil {
		return ""
	}
	return u.Query().Get(PayloadParam)
}

func (p *LinkParser) fromWebURL(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get(PayloadParam)
}

func (p *LinkParser) fromPattern(raw string) string {
	m := payloadPattern.FindStringSubmatch(raw)
	if len(m) < 2 {
		return ""
	}
	v, err := url.PathUnescape(m[1])
	if err != nil {
		return ""
	}
	return v
}

func (p *LinkParser) fromRelative(raw string) string {
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return p.origin.ResolveReference(ref).Query().Get(PayloadParam)
}
