package components

import "github.com/conneroisu/rune/internal/registry"

// Constructors returns the hydration constructors of every component, keyed
// by constructor name.
func Constructors() map[string]registry.Constructor {
	return map[string]registry.Constructor{
		ToggleName: registry.ConstructorFunc(func(props map[string]any) (any, error) {
			return ToggleFromProps(props), nil
		}),
		CollapsibleName: registry.ConstructorFunc(func(props map[string]any) (any, error) {
			return CollapsibleFromProps(props), nil
		}),
		ButtonName: registry.ConstructorFunc(func(props map[string]any) (any, error) {
			return ButtonFromProps(props), nil
		}),
	}
}

// Register adds every component constructor to t.
func Register(t *registry.Table) {
	ctors := Constructors()
	for _, name := range []string{ButtonName, CollapsibleName, ToggleName} {
		t.Register(name, ctors[name])
	}
}
