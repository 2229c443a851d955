// Package linkurl validates candidate URLs and splits them into the
// protocol, domain and path components stored alongside each link.
package linkurl

import (
	"net/url"
	"regexp"
)

var (
	illegalChars = regexp.MustCompile(`(?i)[^a-z0-9:/?#\[\]@!$&'()*+,;=.\-_~%]`)
	badEscape    = regexp.MustCompile(`(?i)%[^0-9a-f]|%[0-9a-f](?:[^0-9a-f]|$)`)
	uriParts     = regexp.MustCompile(`^(?:([^:/?#]+):)?(?://([^/?#]*))?([^?#]*)(?:\?([^#]*))?(?:#(.*))?$`)
	schemeRule   = regexp.MustCompile(`(?i)^[a-z][a-z0-9+\-.]*$`)
)

// Components are the advisory parts of a URL kept for display and metrics
type Components struct {
	Protocol string
	Domain   string
	Path     string
}

// IsValid reports whether candidate is a well-formed absolute URI
func IsValid(candidate string) bool {
	if candidate == "" {
		return false
	}

	if illegalChars.MatchString(candidate) || badEscape.MatchString(candidate) {
		return false
	}

	parts := uriParts.FindStringSubmatch(candidate)
	if parts == nil {
		return false
	}
	scheme, authority, path := parts[1], parts[2], parts[3]

	if scheme == "" || !schemeRule.MatchString(scheme) {
		return false
	}

	// With an authority the path must be empty or absolute; without one it
	// must not look like an authority
	if authority != "" {
		if path != "" && path[0] != '/' {
			return false
		}
	} else if len(path) >= 2 && path[:2] == "//" {
		return false
	}

	return true
}

// Decompose splits a valid URL into protocol, domain (host followed by
// userinfo) and path (path, query and fragment). Missing parts are empty.
func Decompose(raw string) Components {
	u, err := url.Parse(raw)
	if err != nil {
		return Components{}
	}

	domain := u.Host
	if u.User != nil {
		domain += u.User.String()
	}

	path := u.EscapedPath()
	if u.Opaque != "" {
		path = u.Opaque
	}
	if u.RawQuery != "" || u.ForceQuery {
		path += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		path += "#" + u.EscapedFragment()
	}

	return Components{
		Protocol: u.Scheme,
		Domain:   domain,
		Path:     path,
	}
}
