package notify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	pkgerrors "github.com/objectql/objectos-sub004/pkg/errors"
)

// templateVarPattern matches {{ path.to.value }} markers, the same marker
// grammar internal/permission/template.go uses for viewFilters, applied
// here to a notification's subject/body before dispatch (spec.md §4.9).
var templateVarPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Render resolves every {{ path.to.value }} marker in req.Subject and
// req.Body against req.Data, returning the rendered pair. An unresolved
// marker surfaces as an OPERATIONAL "template rendering failed" error per
// spec.md §7's error-kind list, rather than being silently left in place,
// unlike internal/permission's record-filter templating: a notification
// whose greeting can't be rendered shouldn't go out with a literal
// "{{ user.name }}" in it.
func Render(req Request) (subject, body string, err error) {
	subject, firstErr := renderString(req.Subject, req.Data)
	body, secondErr := renderString(req.Body, req.Data)
	if firstErr != nil {
		return "", "", firstErr
	}
	if secondErr != nil {
		return "", "", secondErr
	}
	return subject, body, nil
}

func renderString(tmpl string, data map[string]any) (string, error) {
	if tmpl == "" || !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	var unresolved string
	rendered := templateVarPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		sub := templateVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		v, ok := lookup(data, sub[1])
		if !ok {
			unresolved = sub[1]
			return match
		}
		return fmt.Sprint(v)
	})

	if unresolved != "" {
		return "", pkgerrors.TemplateError(tmpl, fmt.Errorf("unresolved variable %q", unresolved))
	}
	return rendered, nil
}

func lookup(data map[string]any, key string) (any, bool) {
	if data == nil {
		return nil, false
	}
	if v, ok := data[key]; ok {
		return v, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(raw, key)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}
