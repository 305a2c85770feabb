package workflow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholderRe matches {name} placeholders. Names follow identifier rules so
// literal braces in prose (JSON snippets, set notation) pass through intact.
var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// renderTemplate substitutes {name} placeholders from env. Every placeholder
// must resolve; unresolved names are collected and returned as one error so
// the caller sees the full list at once.
func renderTemplate(tmpl string, env map[string]any) (string, []string) {
	var missing []string
	seen := make(map[string]bool)

	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := env[name]; ok {
			return fmt.Sprint(v)
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return match
	})

	sort.Strings(missing)
	return out, missing
}

// templatePlaceholders lists the distinct placeholder names in a template,
// in order of first appearance.
func templatePlaceholders(tmpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// joinQuoted renders a name list for error messages and Describe output.
func joinQuoted(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Join(quoted, ", ")
}
