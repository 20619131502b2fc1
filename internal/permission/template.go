package permission

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// templateVarPattern matches {{ name }} markers, with optional surrounding
// whitespace, as used by viewFilters and other permission-set templates.
var templateVarPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// substituteFilters walks filters recursively, replacing every {{ var }}
// marker in a string leaf with its resolved value. Supported substitutions
// are {{ userId }}, {{ profile }} (ctx.Profiles[0]), and any key, including
// gjson-style dotted paths, found in ctx.Metadata. An unresolved marker is
// left verbatim. Because only literal markers are ever replaced and the
// substituted value never reintroduces a {{ }} marker unless the source data
// itself contained one, running substitution twice on already-substituted
// output is idempotent (spec.md §8 invariant 8).
func substituteFilters(filters map[string]any, ctx Context) map[string]any {
	if filters == nil {
		return nil
	}
	out, _ := substituteValue(filters, ctx).(map[string]any)
	return out
}

func substituteValue(v any, ctx Context) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = substituteValue(vv, ctx)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = substituteValue(vv, ctx)
		}
		return out
	case string:
		return substituteString(val, ctx)
	default:
		return v
	}
}

func substituteString(s string, ctx Context) string {
	return templateVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := templateVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		key := sub[1]
		switch key {
		case "userId":
			return ctx.UserID
		case "profile":
			return ctx.firstProfile()
		default:
			if v, ok := lookupMetadata(ctx.Metadata, key); ok {
				return fmt.Sprint(v)
			}
			return match
		}
	})
}

// lookupMetadata resolves key against ctx.Metadata, first as a flat key and
// then, if it contains a dot, as a gjson dotted path against the metadata
// marshaled as JSON, supporting metadata supplied as nested structures
// (e.g. {{ account.region }}) the way tidwall/gjson resolves a dotted path
// over raw JSON elsewhere in the pack.
func lookupMetadata(meta map[string]any, key string) (any, bool) {
	if meta == nil {
		return nil, false
	}
	if v, ok := meta[key]; ok {
		return v, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(data, key)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}
