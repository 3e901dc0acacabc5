package page

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"

	"github.com/conneroisu/rune/internal/ssr"
)

var textPolicy = bluemonday.StrictPolicy()

// ErrorPage renders the development error page: the error message, its
// cause chain and the props the page was rendered with.
func ErrorPage(err error, props Props) string {
	var causes []templ.Component
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		causes = append(causes, ssr.El("li", nil, templ.Raw(textPolicy.Sanitize(e.Error()))))
	}

	propsJSON, jerr := json.MarshalIndent(props, "", "  ")
	if jerr != nil {
		propsJSON = []byte("{}")
	}

	body := ssr.Group(
		ssr.El("h1", nil, ssr.Text("Page Rendering Error")),
		ssr.El("p", ssr.Attrs{"class": "message"}, templ.Raw(textPolicy.Sanitize(err.Error()))),
		ssr.If(len(causes) > 0, ssr.Group(
			ssr.El("h2", nil, ssr.Text("Caused by")),
			ssr.El("ul", ssr.Attrs{"class": "causes"}, causes...),
		)),
		ssr.El("h2", nil, ssr.Text("Props")),
		ssr.El("pre", nil, ssr.Text(string(propsJSON))),
	)

	return shell("Error", body)
}

// ServerErrorPage renders the production error page.
func ServerErrorPage() string {
	return shell("500 - Internal Server Error", ssr.Group(
		ssr.El("h1", nil, ssr.Text("500 - Internal Server Error")),
		ssr.El("p", nil, ssr.Text("Something went wrong while rendering this page.")),
	))
}

// NotFoundPage renders the 404 page.
func NotFoundPage() string {
	return shell("404 - Page Not Found", ssr.Group(
		ssr.El("h1", nil, ssr.Text("404 - Page Not Found")),
		ssr.El("p", nil, ssr.Text("The page you are looking for does not exist.")),
	))
}

func shell(title string, body templ.Component) string {
	doc := ssr.El("html", ssr.Attrs{"lang": "en"},
		ssr.El("head", nil,
			ssr.El("meta", ssr.Attrs{"charset": "utf-8"}),
			ssr.El("title", nil, ssr.Text(title)),
		),
		ssr.El("body", nil, body),
	)

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n")
	// Only static elements; rendering into a buffer cannot fail.
	_ = doc.Render(context.Background(), &buf)

	return buf.String()
}
