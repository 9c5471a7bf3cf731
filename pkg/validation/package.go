// Package validation checks that workspace packages are laid out the way
// depot commands expect
package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/depot-build/depot/pkg/utils"
	"github.com/depot-build/depot/pkg/workspace"
)

// ValidationError represents a validation error
type ValidationError struct {
	Package string
	Field   string
	Message string
	Level   ValidationLevel
}

// ValidationLevel represents error severity
type ValidationLevel string

const (
	ValidationLevelError   ValidationLevel = "error"
	ValidationLevelWarning ValidationLevel = "warning"
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Level, e.Package, e.Field, e.Message)
}

// ValidationResult contains validation results
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// AddError adds an error to the validation result
func (r *ValidationResult) AddError(pkg, field, message string, level ValidationLevel) {
	r.Errors = append(r.Errors, ValidationError{
		Package: pkg,
		Field:   field,
		Message: message,
		Level:   level,
	})
	if level == ValidationLevelError {
		r.Valid = false
	}
}

func (r *ValidationResult) merge(other *ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	if !other.Valid {
		r.Valid = false
	}
}

// Count returns the number of issues at level
func (r *ValidationResult) Count(level ValidationLevel) int {
	n := 0
	for _, e := range r.Errors {
		if e.Level == level {
			n++
		}
	}
	return n
}

// npm package name rules: lowercase, URL-safe, optionally scoped
var packageName = regexp.MustCompile(`^(?:@[a-z0-9~-][a-z0-9._~-]*/)?[a-z0-9~-][a-z0-9._~-]*$`)

const maxNameLength = 214

// Validate checks a single package
func Validate(pkg *workspace.Package) *ValidationResult {
	result := &ValidationResult{Valid: true}

	validateName(pkg, result)
	validateEntryPoint(pkg, result)

	if !utils.FileExists(pkg.Path("tsconfig.json")) {
		result.AddError(pkg.Name, "tsconfig", "no tsconfig.json, tsc will use its defaults", ValidationLevelWarning)
	}
	return result
}

// ValidateWorkspace checks every package, how they depend on each other
// and whether ordered commands can schedule them
func ValidateWorkspace(ws *workspace.Workspace) *ValidationResult {
	result := &ValidationResult{Valid: true}

	for _, pkg := range ws.Packages {
		result.merge(Validate(pkg))
		validateWorkspaceDeps(ws, pkg, result)
	}

	if err := ws.Graph.Cycles(ws.Graph.Names()); err != nil {
		result.AddError("workspace", "dependencies", err.Error(), ValidationLevelError)
	}

	sort.SliceStable(result.Errors, func(i, j int) bool {
		return result.Errors[i].Level == ValidationLevelError && result.Errors[j].Level != ValidationLevelError
	})
	return result
}

func validateName(pkg *workspace.Package, result *ValidationResult) {
	name := pkg.Name
	switch {
	case name == "":
		result.AddError("", "name", "package name is required", ValidationLevelError)
	case len(name) > maxNameLength:
		result.AddError(name, "name", fmt.Sprintf("package name is longer than %d characters", maxNameLength), ValidationLevelError)
	case !packageName.MatchString(name):
		result.AddError(name, "name", "package name must be lowercase and URL-safe", ValidationLevelError)
	}
}

func validateEntryPoint(pkg *workspace.Package, result *ValidationResult) {
	switch {
	case pkg.Target.IsSite():
		if !utils.FileExists(pkg.Path("index.html")) {
			result.AddError(pkg.Name, "target", "site packages need an index.html", ValidationLevelError)
		}
	case pkg.Target.IsScript():
		if !anyExists(pkg, "src/main.ts", "src/main.tsx") {
			result.AddError(pkg.Name, "target", "script packages need src/main.ts or src/main.tsx", ValidationLevelError)
		}
	default:
		if !anyExists(pkg, "src/index.ts", "src/index.tsx") {
			result.AddError(pkg.Name, "target", "library has no src/index.ts or src/index.tsx", ValidationLevelWarning)
		}
	}
}

// validateWorkspaceDeps warns about dependencies on workspace packages
// that pnpm would resolve from the registry instead
func validateWorkspaceDeps(ws *workspace.Workspace, pkg *workspace.Package, result *ValidationResult) {
	m := pkg.Manifest
	for _, deps := range []map[string]string{m.Dependencies, m.DevDependencies, m.PeerDependencies} {
		for _, name := range sortedKeys(deps) {
			if _, ok := ws.Package(name); !ok {
				continue
			}
			if name == pkg.Name {
				result.AddError(pkg.Name, "dependencies", "package depends on itself", ValidationLevelError)
				continue
			}
			if !strings.HasPrefix(deps[name], "workspace:") {
				result.AddError(pkg.Name, "dependencies",
					fmt.Sprintf("%s is a workspace package but is required as %q, use workspace:*", name, deps[name]),
					ValidationLevelWarning)
			}
		}
	}
}

func anyExists(pkg *workspace.Package, rels ...string) bool {
	for _, rel := range rels {
		if utils.FileExists(pkg.Path(filepath.FromSlash(rel))) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
