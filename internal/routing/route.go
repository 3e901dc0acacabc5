// Package routing maps URL paths to page and API modules.
//
// Routes are derived from file paths relative to a pages or API directory:
// index files map to their directory, [name] segments become :name
// parameters and the extension is dropped. Matching walks routes in
// insertion order and returns the first match, so a dynamic route added
// before a static sibling shadows it.
package routing

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// APIPrefix is prepended to every API route.
const APIPrefix = "/api"

// Route is one file-derived route.
type Route struct {
	Path      string   `json:"path"      yaml:"path"`
	FilePath  string   `json:"filePath"  yaml:"filePath"`
	IsDynamic bool     `json:"isDynamic" yaml:"isDynamic"`
	Params    []string `json:"params"    yaml:"params"`
}

var (
	bracketParam = regexp.MustCompile(`\[([^\]]+)\]`)
	colonParam   = regexp.MustCompile(`:([^/]+)`)
)

// FromFile derives the route for rel, a slash-separated file path relative
// to the scanned directory. prefix is prepended to the result ("" for pages,
// APIPrefix for API routes).
func FromFile(rel, prefix string) Route {
	rel = strings.TrimPrefix(path.Clean("/"+filepathToSlash(rel)), "/")
	dir, file := path.Split(rel)
	base := strings.TrimSuffix(file, path.Ext(file))

	routePath := "/" + strings.TrimSuffix(dir, "/")
	if base != "index" {
		routePath = path.Join(routePath, base)
	}
	if prefix != "" {
		if routePath == "/" {
			routePath = prefix
		} else {
			routePath = prefix + routePath
		}
	}

	return NewRoute(routePath, rel)
}

// NewRoute builds a route from a pattern that may use either [name] or
// :name parameter segments.
func NewRoute(pattern, filePath string) Route {
	converted := bracketParam.ReplaceAllString(pattern, ":$1")
	if converted == "" {
		converted = "/"
	}

	var params []string
	for _, m := range colonParam.FindAllStringSubmatch(converted, -1) {
		params = append(params, m[1])
	}

	return Route{
		Path:      converted,
		FilePath:  filePath,
		IsDynamic: len(params) > 0,
		Params:    params,
	}
}

// ComponentName returns the page constructor name for a file-derived route,
// e.g. "users/[id].go" becomes "UsersIdPage" and "index.go" "IndexPage".
func ComponentName(rel string) string {
	rel = filepathToSlash(rel)
	rel = strings.TrimSuffix(rel, path.Ext(rel))

	title := cases.Title(language.English)

	var b strings.Builder
	for _, segment := range strings.FieldsFunc(rel, func(r rune) bool {
		switch r {
		case '/', '[', ']', '-', '_', '.', ' ':
			return true
		}
		return false
	}) {
		b.WriteString(title.String(segment))
	}
	if b.Len() == 0 {
		b.WriteString("Index")
	}
	b.WriteString("Page")

	return b.String()
}

// Match reports whether pathname matches the route and returns the decoded
// parameters.
func (r Route) Match(pathname string) (map[string]string, bool) {
	patternParts := splitPath(r.Path)
	pathParts := splitPath(pathname)

	if len(patternParts) != len(pathParts) {
		return nil, false
	}

	params := make(map[string]string, len(r.Params))
	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") && pathParts[i] != "" {
			value, err := url.PathUnescape(pathParts[i])
			if err != nil {
				value = pathParts[i]
			}
			params[part[1:]] = value
			continue
		}
		if part != pathParts[i] {
			return nil, false
		}
	}

	return params, true
}

func splitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}

	return parts
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
