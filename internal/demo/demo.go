// Package demo is the bundled example application served by the rune
// binary. It exercises every built-in component, a dynamic route with server
// side props and a pair of API routes.
package demo

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/conneroisu/rune/internal/api"
	"github.com/conneroisu/rune/internal/components"
	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/page"
	"github.com/conneroisu/rune/internal/registry"
	"github.com/conneroisu/rune/internal/server"
	"github.com/conneroisu/rune/internal/ssr"
)

// User is a demo record.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

var users = map[string]User{
	"1":  {ID: "1", Name: "Ada", Role: "admin"},
	"2":  {ID: "2", Name: "Grace", Role: "editor"},
	"42": {ID: "42", Name: "Arthur", Role: "guest"},
}

// Catalog returns the demo pages and API routes.
func Catalog() server.Catalog {
	return server.Catalog{
		Pages: []*page.Module{
			indexPage(),
			aboutPage(),
			userPage(),
		},
		APIs: []server.APIRoute{
			{Route: "/api/hello", Module: helloAPI()},
			{Route: "/api/users/[id]", Module: userAPI()},
		},
	}
}

// Register adds the client constructors the demo pages need to t.
func Register(t *registry.Table) {
	components.Register(t)
	for _, mod := range Catalog().Pages {
		t.Register(mod.Name, pageConstructor{mod: mod})
	}
}

// pageConstructor hydrates a demo page root. It renders its own template so
// the hydrator treats it as the page-level component.
type pageConstructor struct {
	mod *page.Module
}

func (p pageConstructor) New(data map[string]any) (any, error) {
	return &pageInstance{name: p.mod.Name, data: data}, nil
}

func (p pageConstructor) Template(data map[string]any) templ.Component {
	view, err := p.mod.New(data)
	if err != nil {
		return templ.NopComponent
	}

	return view
}

type pageInstance struct {
	name string
	data map[string]any
}

func (*pageInstance) HydrateFromSSR(el *html.Node) error {
	if el == nil {
		return fmt.Errorf("page root missing")
	}

	return nil
}

func layout(title string, body ...templ.Component) templ.Component {
	return ssr.El("div", ssr.Attrs{"class": "layout"},
		ssr.El("nav", nil,
			ssr.El("a", ssr.Attrs{"href": "/"}, ssr.Text("Home")),
			ssr.Text(" · "),
			ssr.El("a", ssr.Attrs{"href": "/about"}, ssr.Text("About")),
			ssr.Text(" · "),
			ssr.El("a", ssr.Attrs{"href": "/users/42"}, ssr.Text("User 42")),
		),
		ssr.El("main", nil,
			ssr.El("h1", nil, ssr.Text(title)),
			ssr.Group(body...),
		),
	)
}

func indexPage() *page.Module {
	return &page.Module{
		Name:  "IndexPage",
		Route: "/",
		New: func(data map[string]any) (ssr.View, error) {
			toggle := components.NewToggle(components.ToggleProps{Label: "Dark mode"})
			faq := components.NewCollapsible(components.CollapsibleProps{ID: "faq"})
			save := components.NewButton(components.ButtonProps{Label: "Save", Variant: "primary"})

			body := layout("Rune",
				ssr.El("p", nil, ssr.Text("Server rendered, hydrated in place.")),
				toggle.View(),
				faq.Root(
					faq.Trigger(ssr.Text("What is hydration? "), faq.Indicator()),
					faq.Content(ssr.El("p", nil,
						ssr.Text("Attaching behaviour to markup the server already sent."))),
				),
				save.Root(save.Inner(save.LeftIcon(ssr.Text("✓")), save.Label())),
			)

			return ssr.NewView("IndexPage", data, body), nil
		},
		Metadata: func(map[string]any) document.Metadata {
			return document.Metadata{
				Title:       "Rune",
				Description: "Server rendering with client hydration",
				OGTitle:     "Rune",
			}
		},
		ClientScript: func(map[string]any) string { return components.ClientScript() },
	}
}

func aboutPage() *page.Module {
	return &page.Module{
		Name:  "AboutPage",
		Route: "/about",
		New: func(data map[string]any) (ssr.View, error) {
			body := layout("About",
				ssr.El("p", nil, ssr.Text("Pages render on the server and navigate without full reloads.")),
			)

			return ssr.NewView("AboutPage", data, body), nil
		},
		Metadata: func(map[string]any) document.Metadata {
			return document.Metadata{Title: "About - Rune", Description: "About the demo"}
		},
	}
}

func userPage() *page.Module {
	return &page.Module{
		Name:  "UsersIdPage",
		Route: "/users/[id]",
		ServerSideProps: func(_ context.Context, sc page.ServerContext) (map[string]any, error) {
			user, ok := users[sc.Params["id"]]
			if !ok {
				user = User{ID: sc.Params["id"], Name: "Unknown", Role: "none"}
			}

			return map[string]any{"user": user}, nil
		},
		New: func(data map[string]any) (ssr.View, error) {
			user, ok := userFrom(data)
			if !ok {
				return nil, fmt.Errorf("missing user")
			}
			details := components.NewCollapsible(components.CollapsibleProps{Expanded: true, ID: "user-" + user.ID})

			body := layout(user.Name,
				details.Root(
					details.Trigger(ssr.Text("Details "), details.Indicator()),
					details.Content(ssr.El("dl", nil,
						ssr.El("dt", nil, ssr.Text("ID")), ssr.El("dd", nil, ssr.Text(user.ID)),
						ssr.El("dt", nil, ssr.Text("Role")), ssr.El("dd", nil, ssr.Text(user.Role)),
					)),
				),
			)

			return ssr.NewView("UsersIdPage", map[string]any{"user": user}, body), nil
		},
		Metadata: func(data map[string]any) document.Metadata {
			name := "User"
			if user, ok := userFrom(data); ok {
				name = user.Name
			}
			return document.Metadata{Title: name + " - Rune"}
		},
		ClientScript: func(map[string]any) string { return components.ClientScript() },
	}
}

// userFrom reads the user from page data, which holds a User on the server
// and decoded JSON on the client.
func userFrom(data map[string]any) (User, bool) {
	switch v := data["user"].(type) {
	case User:
		return v, true
	case map[string]any:
		id, _ := v["id"].(string)
		name, _ := v["name"].(string)
		role, _ := v["role"].(string)
		return User{ID: id, Name: name, Role: role}, id != ""
	}

	return User{}, false
}

func helloAPI() *api.Module {
	return &api.Module{
		GET: func(w http.ResponseWriter, r *http.Request) error {
			name := r.URL.Query().Get("name")
			if name == "" {
				name = "world"
			}
			return api.Success(w, map[string]string{"greeting": "hello " + name}, "")
		},
		POST: func(w http.ResponseWriter, r *http.Request) error {
			var body struct {
				Name string `json:"name"`
			}
			if err := api.ParseBody(r, &body); err != nil {
				return api.Error(w, http.StatusBadRequest, err.Error())
			}
			if strings.TrimSpace(body.Name) == "" {
				return api.Error(w, http.StatusBadRequest, "name is required")
			}
			return api.Success(w, map[string]string{"greeting": "hello " + body.Name}, "created")
		},
	}
}

func userAPI() *api.Module {
	return &api.Module{
		GET: func(w http.ResponseWriter, r *http.Request) error {
			id := api.Params(r)["id"]
			if id == "all" {
				list := make([]User, 0, len(users))
				for _, u := range users {
					list = append(list, u)
				}
				sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
				return api.JSON(w, http.StatusOK, list)
			}
			user, ok := users[id]
			if !ok {
				return api.Error(w, http.StatusNotFound, "user not found")
			}
			return api.JSON(w, http.StatusOK, user)
		},
	}
}
