package router

import (
	"maps"

	"github.com/vango-dev/navkit/pkg/routepath"
)

// Flatten expands nested route definitions into a flat list of routes with
// absolute patterns. Parents come before their children and siblings keep
// declaration order. A child's Meta is layered over its parent's. A parent
// that has children but no Component only contributes a prefix.
func Flatten(defs []RouteDefinition) []*RouteDefinition {
	var out []*RouteDefinition
	flattenInto(&out, "", nil, defs)
	return out
}

func flattenInto(out *[]*RouteDefinition, prefix string, meta map[string]any, defs []RouteDefinition) {
	for i := range defs {
		def := &defs[i]
		full := def.Path
		if prefix != "" {
			full = routepath.Join(prefix, def.Path)
		}

		merged := mergeMeta(meta, def.Meta)
		if def.Component != nil || len(def.Children) == 0 {
			*out = append(*out, &RouteDefinition{
				Path:      full,
				Component: def.Component,
				Meta:      merged,
			})
		}
		if len(def.Children) > 0 {
			flattenInto(out, full, merged, def.Children)
		}
	}
}

func mergeMeta(parent, child map[string]any) map[string]any {
	if len(parent) == 0 && len(child) == 0 {
		return nil
	}
	merged := make(map[string]any, len(parent)+len(child))
	maps.Copy(merged, parent)
	maps.Copy(merged, child)
	return merged
}
