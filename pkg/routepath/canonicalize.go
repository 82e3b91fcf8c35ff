package routepath

import (
	"errors"
	"strings"
)

// CanonicalizeResult contains the result of path canonicalization.
type CanonicalizeResult struct {
	// Path is the canonicalized pathname.
	Path string

	// Search is the query string (without leading "?").
	Search string

	// Hash is the fragment (without leading "#").
	Hash string

	// Changed indicates if the pathname was modified.
	Changed bool
}

// String reassembles the canonical location.
func (r CanonicalizeResult) String() string {
	return Build(r.Path, r.Search, r.Hash)
}

// Canonicalization errors.
var (
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
	ErrAbsoluteURL          = errors.New("path is an absolute URL")
)

// Canonicalize normalizes a location received from an untrusted client.
// On top of Normalize it removes "." segments and resolves ".." segments.
//
// The following inputs are rejected:
//   - absolute URLs ("http://", "https://", "//")
//   - backslashes
//   - NUL bytes, literal or encoded as %00
//   - invalid percent escapes (e.g., %GG, %2)
//   - ".." that would escape the root
//
// Query and fragment are carried through untouched.
func Canonicalize(input string) (CanonicalizeResult, error) {
	if input == "" {
		return CanonicalizeResult{Path: "/", Changed: true}, nil
	}
	if strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "//") {
		return CanonicalizeResult{}, ErrAbsoluteURL
	}

	rest, hash, _ := strings.Cut(input, "#")
	path, search, _ := strings.Cut(rest, "?")

	if strings.Contains(path, "\\") {
		return CanonicalizeResult{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return CanonicalizeResult{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return CanonicalizeResult{}, err
		}
	}

	original := path
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				return CanonicalizeResult{}, ErrPathEscapesRoot
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}
	path = "/" + strings.Join(segments, "/")

	return CanonicalizeResult{
		Path:    path,
		Search:  search,
		Hash:    hash,
		Changed: path != original,
	}, nil
}

// validatePercentEscapes checks that every "%" starts a %XX hex escape.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
