package rune_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/rune/cmd"
	"github.com/conneroisu/rune/internal/registry"
	"github.com/conneroisu/rune/pkg/rune"
)

func TestViewHelpers(t *testing.T) {
	v := rune.NewView("Greeting", map[string]any{"who": "world"},
		rune.El("p", rune.Attrs{"class": "greet"}, rune.Group(rune.Text("hello "), rune.Text("<world>"))))

	var buf bytes.Buffer
	require.NoError(t, v.Render(context.Background(), &buf))
	assert.Equal(t, `<p class="greet">hello &lt;world&gt;</p>`, buf.String())
	assert.Equal(t, "Greeting", v.ViewName())
}

func TestRegisterComponents(t *testing.T) {
	table := registry.NewTable()
	rune.RegisterComponents(table)

	assert.Equal(t, []string{"Button", "Collapsible", "Toggle"}, table.Names())
	assert.Contains(t, rune.ComponentsScript(), `["Toggle", Toggle]`)
}

func TestAppRunsCommands(t *testing.T) {
	app := rune.App{
		Name: "site",
		Catalog: rune.Catalog{
			Pages: []*rune.Page{{
				Name:  "IndexPage",
				Route: "/",
				New: func(data map[string]any) (rune.View, error) {
					return rune.NewView("IndexPage", data, rune.Text("hi")), nil
				},
			}},
		},
	}

	root := cmd.NewRootCommand(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--short"})
	require.NoError(t, root.Execute())
	assert.NotEmpty(t, out.String())
	assert.Equal(t, "site", root.Name())
}
