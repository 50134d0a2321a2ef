// Package paramtest expands declarative parameterized-test tables into
// individually named subtests. The table form keeps the per-variant flags
// next to the test body, and the expansion gives each variant its own name
// in `go test -run` output.
package paramtest

import (
	"sort"
	"testing"
)

// Case is one expanded parameterization.
type Case struct {
	Name string
	Args []string
}

// Expand flattens a suffix → args table into cases sorted by name, so the
// execution order is deterministic regardless of map iteration.
func Expand(cases map[string][]string) []Case {
	out := make([]Case, 0, len(cases))
	for name, args := range cases {
		out = append(out, Case{Name: name, Args: args})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run expands the table into named subtests of t. An empty suffix runs the
// variant under the parent test's own name.
func Run(t *testing.T, cases map[string][]string, fn func(t *testing.T, args []string)) {
	for _, c := range Expand(cases) {
		if c.Name == "" {
			fn(t, c.Args)
			continue
		}
		c := c
		t.Run(c.Name, func(t *testing.T) {
			fn(t, c.Args)
		})
	}
}
