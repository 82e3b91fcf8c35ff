package routepath

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestQueryRoundTripProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Clean inputs: non-empty keys, every key has at least one value.
	cleanQuery := gen.MapOf(
		gen.Identifier(),
		gen.SliceOfN(3, gen.AnyString()),
	).Map(func(m map[string][]string) Query { return Query(m) })

	properties.Property("parse(stringify(q)) == q", prop.ForAll(
		func(q Query) bool {
			got := ParseSearch(StringifySearch(q))
			if len(q) == 0 {
				return len(got) == 0
			}
			return reflect.DeepEqual(got, q)
		},
		cleanQuery,
	))

	properties.Property("stringify is deterministic", prop.ForAll(
		func(q Query) bool {
			return StringifySearch(q) == StringifySearch(q.Clone())
		},
		cleanQuery,
	))

	properties.Property("parse never panics on arbitrary input", prop.ForAll(
		func(s string) bool {
			_ = ParseSearch(s)
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestNormalizeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("normalize is idempotent", prop.ForAll(
		func(s string) bool {
			once := Normalize(s)
			return Normalize(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("strip(with(p)) == normalize(p)", prop.ForAll(
		func(seg string) bool {
			p := "/" + seg
			return StripBase("/mount", WithBase("/mount", p)) == Normalize(p)
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
