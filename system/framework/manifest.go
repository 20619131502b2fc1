package framework

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern matches reverse-DNS or kebab-case plugin identifiers,
// e.g. "crm-core" or "com.example.billing".
var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*([.-][a-z0-9]+)*$`)

// semverPattern matches MAJOR.MINOR.PATCH with an optional prerelease tag.
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

// Manifest describes a plugin's contract with the kernel: identity,
// versioning, dependencies, and declared permissions.
type Manifest struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	Author       string            `json:"author"`
	License      string            `json:"license"`
	Keywords     []string          `json:"keywords,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"` // identifier -> semver range
	Engines      map[string]string `json:"engines,omitempty"`      // constraint name -> range
	Permissions  []string          `json:"permissions,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// Normalize trims whitespace on every string field and dedupes list fields,
// without rejecting anything, use Validate for that.
func (m *Manifest) Normalize() {
	if m == nil {
		return
	}
	m.ID = strings.TrimSpace(m.ID)
	m.Name = strings.TrimSpace(m.Name)
	m.Version = strings.TrimSpace(m.Version)
	m.Description = strings.TrimSpace(m.Description)
	m.Author = strings.TrimSpace(m.Author)
	m.License = strings.TrimSpace(m.License)
	m.Keywords = dedupeStrings(m.Keywords)
	m.Permissions = dedupeStrings(m.Permissions)

	if m.Dependencies != nil {
		cleaned := make(map[string]string, len(m.Dependencies))
		for k, v := range m.Dependencies {
			k, v = strings.TrimSpace(k), strings.TrimSpace(v)
			if k != "" && v != "" {
				cleaned[k] = v
			}
		}
		m.Dependencies = cleaned
	}
}

// ValidationError names one rule a manifest violated.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a non-fail-fast collection of every ValidationError a
// manifest triggered, so an operator sees every problem in one pass.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate runs every manifest rule and collects all violations rather than
// stopping at the first one. A nil return means the manifest is valid.
func (m *Manifest) Validate() error {
	if m == nil {
		return ValidationErrors{{Field: "manifest", Message: "is nil"}}
	}

	var errs ValidationErrors

	if m.ID == "" {
		errs = append(errs, ValidationError{"id", "required"})
	} else if !identifierPattern.MatchString(m.ID) {
		errs = append(errs, ValidationError{"id", "must match " + identifierPattern.String()})
	}

	if m.Version == "" {
		errs = append(errs, ValidationError{"version", "required"})
	} else if !semverPattern.MatchString(m.Version) {
		errs = append(errs, ValidationError{"version", "must be semver MAJOR.MINOR.PATCH[-prerelease]"})
	}

	if m.Name == "" {
		errs = append(errs, ValidationError{"name", "required"})
	}
	if m.Description == "" {
		errs = append(errs, ValidationError{"description", "required"})
	}
	if m.Author == "" {
		errs = append(errs, ValidationError{"author", "required"})
	}
	if m.License == "" {
		errs = append(errs, ValidationError{"license", "required"})
	}

	for dep, rng := range m.Dependencies {
		if !identifierPattern.MatchString(dep) {
			errs = append(errs, ValidationError{"dependencies." + dep, "key is not a valid identifier"})
		}
		if _, err := ParseRange(rng); err != nil {
			errs = append(errs, ValidationError{"dependencies." + dep, "invalid semver range: " + err.Error()})
		}
	}

	for _, p := range m.Permissions {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, ValidationError{"permissions", "entries must be non-empty strings"})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}

// HasTag reports whether the manifest carries a tag key.
func (m *Manifest) HasTag(key string) bool {
	if m == nil || m.Tags == nil {
		return false
	}
	_, ok := m.Tags[key]
	return ok
}

// DependsOnPlugin reports whether the manifest declares a dependency on id.
func (m *Manifest) DependsOnPlugin(id string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Dependencies[id]
	return ok
}
