package router

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/vango-dev/navkit/pkg/routepath"
)

// Specificity weights per segment kind.
const (
	ScoreStatic   = 1000
	ScoreParam    = 100
	ScoreOptional = 50
	ScoreWildcard = 50
	ScoreCatchAll = 1
)

// ErrEmptyParamName is returned for a ":" or ":?" segment.
var ErrEmptyParamName = errors.New("router: empty parameter name")

var catchAllRegexp = regexp.MustCompile(`^/.*$`)

// CompiledPattern is the matching automaton derived from a route pattern.
// It is a pure function of the pattern string.
type CompiledPattern struct {
	// Source is the pattern as registered.
	Source string

	// Normalized is the pattern after slash normalization.
	Normalized string

	// Regexp is the anchored automaton. Only named parameters capture.
	Regexp *regexp.Regexp

	// ParamNames lists parameter names in textual order, first occurrence
	// wins.
	ParamNames []string

	// Score is the specificity score.
	Score int

	// CatchAll is set for the whole-pattern "*" or "/*".
	CatchAll bool
}

// compiled memoizes Compile by source pattern.
var compiled sync.Map // string -> *CompiledPattern

// Compile compiles pattern, reusing a previous compilation of the same
// string.
func Compile(pattern string) (*CompiledPattern, error) {
	if cp, ok := compiled.Load(pattern); ok {
		return cp.(*CompiledPattern), nil
	}
	cp, err := compilePattern(pattern)
	if err != nil {
		return nil, err
	}
	actual, _ := compiled.LoadOrStore(pattern, cp)
	return actual.(*CompiledPattern), nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *CompiledPattern {
	cp, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return cp
}

func compilePattern(pattern string) (*CompiledPattern, error) {
	norm := routepath.Normalize(pattern)
	if norm == "/*" {
		return &CompiledPattern{
			Source:     pattern,
			Normalized: norm,
			Regexp:     catchAllRegexp,
			Score:      ScoreCatchAll,
			CatchAll:   true,
		}, nil
	}

	var (
		expr  strings.Builder
		names []string
		score int
	)
	expr.WriteString("^")

	for _, seg := range strings.Split(strings.TrimPrefix(norm, "/"), "/") {
		switch {
		case seg == "":
			// Root pattern.
		case strings.HasPrefix(seg, ":"):
			name, optional := strings.CutSuffix(seg[1:], "?")
			if name == "" {
				return nil, fmt.Errorf("%w in pattern %q", ErrEmptyParamName, pattern)
			}
			if optional {
				expr.WriteString(`(?:/([^/]+))?`)
				score += ScoreOptional
			} else {
				expr.WriteString(`/([^/]+)`)
				score += ScoreParam
			}
			names = appendUnique(names, name)
		case seg == "*":
			expr.WriteString(`(?:/.*)?`)
			score += ScoreWildcard
		case strings.Contains(seg, "*"):
			parts := strings.Split(seg, "*")
			for i, p := range parts {
				parts[i] = regexp.QuoteMeta(p)
			}
			expr.WriteString("/")
			expr.WriteString(strings.Join(parts, ".*"))
			score += ScoreWildcard
		default:
			expr.WriteString("/")
			expr.WriteString(regexp.QuoteMeta(seg))
			score += ScoreStatic
		}
	}
	expr.WriteString("/?$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, fmt.Errorf("router: compile %q: %w", pattern, err)
	}

	return &CompiledPattern{
		Source:     pattern,
		Normalized: norm,
		Regexp:     re,
		ParamNames: names,
		Score:      score,
	}, nil
}

// Test reports whether the automaton accepts the normalized pathname.
func (cp *CompiledPattern) Test(pathname string) bool {
	return cp.Regexp.MatchString(routepath.Normalize(pathname))
}

// Params extracts parameters from pathname. It returns nil if the pattern
// does not accept pathname. Optional segments that did not participate
// are omitted.
func (cp *CompiledPattern) Params(pathname string) map[string]string {
	loc := cp.Regexp.FindStringSubmatchIndex(routepath.Normalize(pathname))
	if loc == nil {
		return nil
	}
	return cp.zip(routepath.Normalize(pathname), loc)
}

// zip pairs parameter names with capture groups in order, stopping at
// whichever runs out first.
func (cp *CompiledPattern) zip(s string, loc []int) map[string]string {
	params := make(map[string]string, len(cp.ParamNames))
	groups := len(loc)/2 - 1
	for i, name := range cp.ParamNames {
		if i >= groups {
			break
		}
		start, end := loc[2*(i+1)], loc[2*(i+1)+1]
		if start < 0 {
			continue
		}
		params[name] = decodeParam(s[start:end])
	}
	return params
}

// ExtractParams compiles pattern and extracts its parameters from
// pathname. It returns nil if the pattern is invalid or does not match.
func ExtractParams(pathname, pattern string) map[string]string {
	cp, err := Compile(pattern)
	if err != nil {
		return nil
	}
	return cp.Params(pathname)
}

// decodeParam percent-decodes a captured value, keeping the raw text when
// the escape sequence is malformed.
func decodeParam(raw string) string {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func appendUnique(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}
