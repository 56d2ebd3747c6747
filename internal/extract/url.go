package extract

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/IshaanNene/gameharvest/internal/types"
)

// Canonicalize normalizes an absolute URL into the join key used across
// passes: lowercase scheme and host, no fragment, no default port, sorted
// query and no trailing slash.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not absolute", types.ErrInvalidURL, rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}
	u.ForceQuery = false

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// CanonicalRef resolves ref against base and canonicalizes the result.
func CanonicalRef(base *url.URL, ref string) (string, bool) {
	abs, ok := ResolveURL(base, ref)
	if !ok {
		return "", false
	}
	c, err := Canonicalize(abs)
	if err != nil {
		return "", false
	}
	return c, true
}

// Slug returns the path segment that follows itemPath in rawURL, e.g.
// "moto-x3m" for https://site/game/moto-x3m.
func Slug(rawURL, itemPath string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	idx := strings.Index(u.Path, itemPath)
	if idx < 0 {
		return ""
	}
	rest := strings.Trim(u.Path[idx+len(itemPath):], "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// Origin returns scheme://host of rawURL.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}

// HasPathSegment reports whether the URL path contains /segment/.
func HasPathSegment(rawURL, segment string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(path.Clean(u.Path)+"/", "/"+segment+"/")
}
