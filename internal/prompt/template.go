package prompt

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

//go:embed templates
var templateFS embed.FS

var (
	varRe      = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)
	ifOpenRe   = regexp.MustCompile(`\{\{#if\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
	ifCloseStr = "{{/if}}"
)

// Vars is a map of variable names to values for template rendering.
type Vars map[string]string

// Library resolves prompt templates: an optional override directory is
// checked first, then the embedded defaults.
type Library struct {
	overrideDir string
}

// NewLibrary creates a Library. overrideDir may be empty.
func NewLibrary(overrideDir string) *Library {
	return &Library{overrideDir: overrideDir}
}

// Load returns the template source for the given name (e.g. "sketch.md").
func (l *Library) Load(name string) (string, error) {
	if l.overrideDir != "" {
		path := filepath.Join(l.overrideDir, name)
		if data, err := os.ReadFile(path); err == nil {
			return string(data), nil
		}
	}
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("no prompt template %q (checked %s and embedded defaults)", name, l.overrideDir)
	}
	return string(data), nil
}

// Render loads and expands a template with the given variables.
func (l *Library) Render(name string, vars Vars) (string, error) {
	src, err := l.Load(name)
	if err != nil {
		return "", err
	}
	out, err := Render(src, vars)
	if err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return out, nil
}

// Render expands a template string with the given variables.
// {{variable}} is replaced with its value. Missing required variables cause an
// error. {{#if variable}}...{{/if}} blocks are included only if the variable
// is non-empty.
func Render(tmpl string, vars Vars) (string, error) {
	// Process conditional blocks iteratively, innermost first
	result, err := processConditionals(tmpl, vars)
	if err != nil {
		return "", err
	}

	// Second pass: expand variables, collecting any missing ones
	var missing []string
	expanded := varRe.ReplaceAllStringFunc(result, func(match string) string {
		m := varRe.FindStringSubmatch(match)
		if m == nil {
			return match
		}
		varName := m[1]
		if val, ok := vars[varName]; ok {
			return val
		}
		missing = append(missing, varName)
		return match // leave placeholder for error reporting
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	return expanded, nil
}

// processConditionals handles {{#if var}}...{{/if}} blocks, supporting nesting.
// It processes innermost blocks first by finding the last {{#if before each {{/if}}.
func processConditionals(tmpl string, vars Vars) (string, error) {
	result := tmpl
	for {
		// Find the first {{/if}}
		closeIdx := strings.Index(result, ifCloseStr)
		if closeIdx == -1 {
			break
		}

		// The last {{#if ...}} before this {{/if}} is the innermost block
		prefix := result[:closeIdx]
		openLocs := ifOpenRe.FindAllStringIndex(prefix, -1)
		if openLocs == nil {
			return "", fmt.Errorf("dangling {{/if}} without matching {{#if}}")
		}

		lastOpen := openLocs[len(openLocs)-1]
		openStart := lastOpen[0]
		openEnd := lastOpen[1]

		openTag := prefix[openStart:openEnd]
		m := ifOpenRe.FindStringSubmatch(openTag)
		if m == nil {
			return "", fmt.Errorf("failed to parse conditional tag: %s", openTag)
		}
		varName := m[1]

		body := result[openEnd:closeIdx]
		replacement := ""
		if vars[varName] != "" {
			replacement = body
		}
		result = result[:openStart] + replacement + result[closeIdx+len(ifCloseStr):]
	}
	return result, nil
}
