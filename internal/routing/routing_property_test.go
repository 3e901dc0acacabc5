//go:build property

package routing

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestRoutingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(8642)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	segment := gen.AlphaString().SuchThat(func(s string) bool { return s != "" && len(s) < 12 })

	properties.Property("a static route matches its own path", prop.ForAll(
		func(parts []string) bool {
			p := "/" + strings.Join(parts, "/")
			_, ok := NewRoute(p, "").Match(p)
			return ok
		},
		gen.SliceOf(segment),
	))

	properties.Property("a dynamic segment captures any value", prop.ForAll(
		func(prefix, value string) bool {
			params, ok := NewRoute("/"+prefix+"/[slug]", "").Match("/" + prefix + "/" + value)
			return ok && params["slug"] == value
		},
		segment,
		segment,
	))

	properties.Property("the first matching route in insertion order wins", prop.ForAll(
		func(prefix, value string) bool {
			table := NewTable[int]()
			table.Add(NewRoute("/"+prefix+"/:id", ""), 1)
			table.Add(NewRoute("/"+prefix+"/"+value, ""), 2)

			m, ok := table.Match("/" + prefix + "/" + value)
			return ok && m.Module == 1
		},
		segment,
		segment,
	))

	properties.TestingRun(t)
}
