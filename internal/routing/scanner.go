package routing

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/rune/internal/logging"
)

// PageExtensions are the file extensions treated as pages.
var PageExtensions = []string{".go", ".templ", ".ts", ".tsx", ".js", ".jsx"}

// APIExtensions are the file extensions treated as API handlers.
var APIExtensions = []string{".go", ".ts", ".js"}

// Scanner derives routes from a directory tree.
type Scanner struct {
	Dir        string
	Prefix     string
	Extensions []string
	Logger     logging.Logger
}

// NewPageScanner scans dir for pages.
func NewPageScanner(dir string, logger logging.Logger) *Scanner {
	return &Scanner{Dir: dir, Extensions: PageExtensions, Logger: logger}
}

// NewAPIScanner scans dir for API handlers mounted under APIPrefix.
func NewAPIScanner(dir string, logger logging.Logger) *Scanner {
	return &Scanner{Dir: dir, Prefix: APIPrefix, Extensions: APIExtensions, Logger: logger}
}

// Scan walks the directory in lexical order and returns a route per
// matching file. A missing directory yields no routes and no error.
func (s *Scanner) Scan(ctx context.Context) ([]Route, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("routing")

	if _, err := os.Stat(s.Dir); os.IsNotExist(err) {
		logger.Warn(ctx, nil, "Route directory not found", "dir", s.Dir)
		return nil, nil
	}

	var routes []Route
	err := filepath.WalkDir(s.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !s.accepts(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(s.Dir, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		if strings.Contains(rel, "..") {
			return nil
		}

		route := FromFile(filepath.ToSlash(rel), s.Prefix)
		route.FilePath = p
		routes = append(routes, route)
		logger.Debug(ctx, "Route discovered", "path", route.Path, "file", p)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.Dir, err)
	}

	return routes, nil
}

func (s *Scanner) accepts(name string) bool {
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, "_test.go") {
		return false
	}
	ext := filepath.Ext(name)
	for _, allowed := range s.Extensions {
		if ext == allowed {
			return true
		}
	}

	return false
}
