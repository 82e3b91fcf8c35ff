package routepath

import "strings"

// Split separates a raw location into its pathname, query and fragment.
// The "?" and "#" markers are removed. The fragment starts at the first
// "#"; the query is whatever follows the first "?" before it. An empty
// pathname is returned as "/".
func Split(raw string) (pathname, search, hash string) {
	rest, hash, _ := strings.Cut(raw, "#")
	pathname, search, _ = strings.Cut(rest, "?")
	if pathname == "" {
		pathname = "/"
	}
	return pathname, search, hash
}

// Normalize enforces a single leading slash, collapses repeated slashes
// and removes a trailing slash, except for the root path.
func Normalize(p string) string {
	if p == "" || p == "/" {
		return "/"
	}

	var b strings.Builder
	b.Grow(len(p) + 1)
	if p[0] != '/' {
		b.WriteByte('/')
	}
	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}

	out := b.String()
	if len(out) > 1 && strings.HasSuffix(out, "/") {
		out = out[:len(out)-1]
	}
	return out
}

// Join concatenates path parts with "/" and normalizes the result.
func Join(parts ...string) string {
	return Normalize(strings.Join(parts, "/"))
}

// WithBase prefixes p with the mount point base. An empty or root base
// leaves p normalized but otherwise unchanged.
func WithBase(base, p string) string {
	base = Normalize(base)
	pathname, search, hash := splitKeepMarkers(p)
	if base == "/" {
		return Normalize(pathname) + search + hash
	}
	return Join(base, pathname) + search + hash
}

// StripBase removes the mount point base from p. A pathname equal to base
// becomes "/". A pathname outside base is returned normalized; "/app" does
// not own "/application".
func StripBase(base, p string) string {
	base = Normalize(base)
	pathname, search, hash := splitKeepMarkers(p)
	pathname = Normalize(pathname)
	if base == "/" {
		return pathname + search + hash
	}
	switch {
	case pathname == base:
		pathname = "/"
	case strings.HasPrefix(pathname, base+"/"):
		pathname = pathname[len(base):]
	}
	return pathname + search + hash
}

// HasBase reports whether p lives under the mount point base.
func HasBase(base, p string) bool {
	base = Normalize(base)
	if base == "/" {
		return true
	}
	pathname, _, _ := splitKeepMarkers(p)
	pathname = Normalize(pathname)
	return pathname == base || strings.HasPrefix(pathname, base+"/")
}

// Build reassembles a location from its parts, adding the "?" and "#"
// markers only for non-empty parts.
func Build(pathname, search, hash string) string {
	var b strings.Builder
	b.WriteString(Normalize(pathname))
	if search != "" {
		b.WriteByte('?')
		b.WriteString(strings.TrimPrefix(search, "?"))
	}
	if hash != "" {
		b.WriteByte('#')
		b.WriteString(strings.TrimPrefix(hash, "#"))
	}
	return b.String()
}

// splitKeepMarkers is Split without dropping "?" and "#", so callers can
// rebuild the location after rewriting the pathname.
func splitKeepMarkers(raw string) (pathname, search, hash string) {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw, hash = raw[:i], raw[i:]
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw, search = raw[:i], raw[i:]
	}
	return raw, search, hash
}
