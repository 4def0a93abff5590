package prompts

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

var ErrMissingVariable = errors.New("prompts: template is missing a variable")

// PromptTemplate represents a string template that can be formatted.
type PromptTemplate struct {
	Template string
}

// NewPromptTemplate creates a new prompt template.
func NewPromptTemplate(template string) PromptTemplate {
	return PromptTemplate{Template: template}
}

// Format substitutes variables in the template string.
// Variables are in the format `{{.variable_name}}`.
func (p PromptTemplate) Format(vars map[string]string) string {
	prompt := p.Template
	for key, value := range vars {
		placeholder := "{{." + key + "}}"
		prompt = strings.ReplaceAll(prompt, placeholder, value)
	}
	return prompt
}

// Variables lists the placeholder names used by the template, sorted.
func (p PromptTemplate) Variables() []string {
	seen := map[string]bool{}
	rest := p.Template
	for {
		start := strings.Index(rest, "{{.")
		if start < 0 {
			break
		}
		rest = rest[start+3:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			break
		}
		seen[rest[:end]] = true
		rest = rest[end+2:]
	}

	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// Requires reports the first of names that the template never uses.
func (p PromptTemplate) Requires(names ...string) error {
	vars := p.Variables()
	for _, name := range names {
		if !slices.Contains(vars, name) {
			return fmt.Errorf("%w: {{.%s}}", ErrMissingVariable, name)
		}
	}
	return nil
}
