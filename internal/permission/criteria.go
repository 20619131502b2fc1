package permission

import (
	"github.com/PaesslerAG/jsonpath"
	"github.com/dop251/goja"
)

// matchesCriteria evaluates a criteria_based sharing rule's JSONPath
// expression against a candidate record, grounded on the teacher's use of
// PaesslerAG/jsonpath-shaped record queries (services/datafeed, pkg uses
// gjson for HTTP bodies; jsonpath is used here for structured record
// criteria instead, since unlike gjson it evaluates boolean/comparison
// expressions, not just path extraction).
func matchesCriteria(criteria string, record map[string]any) (bool, error) {
	if criteria == "" {
		return false, nil
	}
	v, err := jsonpath.Get(criteria, record)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case []any:
		return len(val) > 0
	default:
		return true
	}
}

// evaluateExpression runs a ProfilePermission's optional goja boolean
// expression against a candidate record, for permission sets that need
// dynamic record gating beyond a static filter map (grounded in the
// teacher's system/tee/script_engine.go goja embedding pattern).
func evaluateExpression(expr string, record map[string]any) (bool, error) {
	vm := goja.New()
	for k, v := range record {
		if err := vm.Set(k, v); err != nil {
			return false, err
		}
	}
	val, err := vm.RunString(expr)
	if err != nil {
		return false, err
	}
	return val.ToBoolean(), nil
}
