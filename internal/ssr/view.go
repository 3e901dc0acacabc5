package ssr

import (
	"context"
	"encoding/json"
	"io"

	"github.com/a-h/templ"

	runeerrors "github.com/conneroisu/rune/internal/errors"
)

// View is a server-renderable component that knows its constructor name and
// the props it was created with.
type View interface {
	templ.Component
	ViewName() string
	ViewProps() map[string]any
}

// InternalProps are managed by the view layer and never serialized.
var InternalProps = []string{
	"children",
	"parentView",
	"subViewsFromTemplate",
	"key",
	"_base_name",
	"className",
}

// SerializableProps drops internal props and verifies that the rest encode
// as JSON. It returns nil for empty input.
func SerializableProps(props map[string]any) (map[string]any, error) {
	if len(props) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	for _, k := range InternalProps {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil, nil
	}

	if _, err := json.Marshal(out); err != nil {
		return nil, runeerrors.NewSerializationError("", err)
	}

	return out, nil
}

// NewView builds a View from a name, props and a body component.
func NewView(name string, props map[string]any, body templ.Component) View {
	return &funcView{name: name, props: props, body: body}
}

type funcView struct {
	name  string
	props map[string]any
	body  templ.Component
}

func (v *funcView) Render(ctx context.Context, w io.Writer) error {
	if v.body == nil {
		return nil
	}
	return v.body.Render(ctx, w)
}

func (v *funcView) ViewName() string          { return v.name }
func (v *funcView) ViewProps() map[string]any { return v.props }
