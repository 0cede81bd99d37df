package render

import (
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/idna"
)

// CanonicalLink rewrites a link into its ASCII form: IDNA host, upper-case
// percent-encoded path and query. Unicode and pre-encoded spellings of the same URL
// map to the same string. Input that cannot be parsed is returned as is.
func CanonicalLink(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return raw
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return raw
	}

	host, err := asciiHost(u.Hostname())
	if err != nil {
		return raw
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}

	// An escaped slash changes the path segments, so keep the original
	// encoding in that case.
	if !strings.Contains(strings.ToLower(u.RawPath), "%2f") {
		u.RawPath = ""
	}
	u.RawQuery = normalizeEscapes(u.RawQuery)

	return u.String()
}

const upperHex = "0123456789ABCDEF"

// normalizeEscapes percent-encodes non-ASCII bytes and upper-cases existing
// escapes. Every other byte, including '&' and '=', is kept in place.
func normalizeEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte('%')
			b.WriteString(strings.ToUpper(s[i+1 : i+3]))
			i += 2
		case c >= 0x80:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0F])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func asciiHost(host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		// Lookup rejects hosts like "my_site.example" that still resolve in
		// practice.
		ascii, err = idna.Punycode.ToASCII(host)
		if err != nil {
			return "", err
		}
	}
	return strings.ToLower(ascii), nil
}

// EnclosureFilename returns the last path segment of an enclosure URL as
// written, escapes included, ignoring any query string or fragment.
func EnclosureFilename(raw string) string {
	if raw == "" {
		return ""
	}

	if u, err := url.Parse(raw); err == nil {
		base := path.Base(u.EscapedPath())
		if base == "." || base == "/" {
			return ""
		}
		return base
	}

	s := raw
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
