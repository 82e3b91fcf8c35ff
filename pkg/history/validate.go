package history

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vango-dev/navkit/pkg/routeerr"
)

// MaxPathLength is the longest path Validate accepts, in bytes.
const MaxPathLength = 2048

// Validation sentinels. Use errors.Is; the returned errors carry the
// offending path.
var (
	ErrEmptyPath    = routeerr.New(routeerr.CodeEmptyPath)
	ErrPathTooLong  = routeerr.New(routeerr.CodePathTooLong)
	ErrNullByte     = routeerr.New(routeerr.CodeNullByte)
	ErrControlChar  = routeerr.New(routeerr.CodeControlChar)
	ErrUnsafeScheme = routeerr.New(routeerr.CodeUnsafeScheme)
)

var unsafeSchemes = []string{"javascript:", "data:", "vbscript:", "file:"}

// Validate checks a path before it reaches a history store.
func Validate(path string) error {
	if path == "" {
		return routeerr.InvalidPath(routeerr.CodeEmptyPath, path)
	}
	if len(path) > MaxPathLength {
		return routeerr.InvalidPath(routeerr.CodePathTooLong, path).
			WithDetail("maximum length is 2048 bytes")
	}
	if strings.IndexByte(path, 0) >= 0 {
		return routeerr.InvalidPath(routeerr.CodeNullByte, path)
	}
	for _, r := range path {
		if r == utf8.RuneError || !unicode.IsControl(r) {
			continue
		}
		return routeerr.InvalidPath(routeerr.CodeControlChar, path)
	}

	trimmed := strings.ToLower(strings.TrimLeftFunc(path, unicode.IsSpace))
	for _, scheme := range unsafeSchemes {
		if strings.HasPrefix(trimmed, scheme) {
			return routeerr.InvalidPath(routeerr.CodeUnsafeScheme, path).
				WithDetail("scheme " + strings.TrimSuffix(scheme, ":"))
		}
	}
	return nil
}
