package routepath

import (
	"net/url"
	"slices"
	"strings"
)

// Query holds parsed query parameters. A key that appears once maps to a
// single-element list; repeated keys keep every value in order.
type Query map[string][]string

// Get returns the first value for key, or "" if absent.
func (q Query) Get(key string) string {
	if vs := q[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns every value for key in order.
func (q Query) Values(key string) []string {
	return q[key]
}

// Has reports whether key is present.
func (q Query) Has(key string) bool {
	_, ok := q[key]
	return ok
}

// Set replaces the values for key with value.
func (q Query) Set(key, value string) {
	q[key] = []string{value}
}

// Add appends value to the values for key.
func (q Query) Add(key, value string) {
	q[key] = append(q[key], value)
}

// Clone returns a deep copy of q. A nil Query clones to nil.
func (q Query) Clone() Query {
	if q == nil {
		return nil
	}
	out := make(Query, len(q))
	for k, vs := range q {
		out[k] = slices.Clone(vs)
	}
	return out
}

// ParseSearch decodes a query string. A leading "?" is tolerated, a key
// without "=" decodes to the empty string, "+" decodes to a space, and a
// malformed percent escape is kept as its literal text rather than
// failing.
func ParseSearch(search string) Query {
	search = strings.TrimPrefix(search, "?")
	q := make(Query)
	if search == "" {
		return q
	}
	for _, pair := range strings.Split(search, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key = decodeComponent(key)
		if key == "" {
			continue
		}
		q.Add(key, decodeComponent(value))
	}
	return q
}

// StringifySearch encodes q as a query string without the leading "?".
// Keys are sorted so the output is deterministic. Keys with no values are
// dropped, which is why only clean inputs round-trip through ParseSearch.
func StringifySearch(q Query) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k, vs := range q {
		if k == "" || len(vs) == 0 {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		ek := url.QueryEscape(k)
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(ek)
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func decodeComponent(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
