// Package inspect fetches a served page and hydrates it headlessly with the
// Go client runtime, reporting what bound and whether the markup agrees with
// the props registry snapshot.
package inspect

import (
	"context"
	"fmt"
	"sort"

	"github.com/conneroisu/rune/internal/browser"
	"github.com/conneroisu/rune/internal/document"
	"github.com/conneroisu/rune/internal/dom"
	runeerrors "github.com/conneroisu/rune/internal/errors"
	"github.com/conneroisu/rune/internal/hydrator"
	"github.com/conneroisu/rune/internal/logging"
	"github.com/conneroisu/rune/internal/registry"
	"github.com/conneroisu/rune/internal/ssr"
)

// Options configure an inspection.
type Options struct {
	Fetcher browser.Fetcher
	// Constructors are tried before the probe constructors that accept any
	// name.
	Constructors registry.Constructors
	Logger       logging.Logger
}

// Node is the outcome for one hydrated element.
type Node struct {
	Name  string `json:"name"   yaml:"name"`
	ID    string `json:"id,omitempty"    yaml:"id,omitempty"`
	Page  bool   `json:"page,omitempty"  yaml:"page,omitempty"`
	State string `json:"state"  yaml:"state"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report summarizes an inspection.
type Report struct {
	URL      string `json:"url"      yaml:"url"`
	Status   int    `json:"status"   yaml:"status"`
	Page     string `json:"page,omitempty" yaml:"page,omitempty"`
	Nodes    []Node `json:"nodes"    yaml:"nodes"`
	Hydrated int    `json:"hydrated" yaml:"hydrated"`
	Failed   int    `json:"failed"   yaml:"failed"`
	// Records counts props registry entries in the snapshot.
	Records int `json:"records" yaml:"records"`
	// MissingRecords are ids marked in the DOM without a registry entry.
	MissingRecords []string `json:"missingRecords,omitempty" yaml:"missingRecords,omitempty"`
	// UnusedRecords are registry ids no element carries.
	UnusedRecords []string `json:"unusedRecords,omitempty" yaml:"unusedRecords,omitempty"`
	// DuplicateIDs are ids carried by more than one element.
	DuplicateIDs []string `json:"duplicateIds,omitempty" yaml:"duplicateIds,omitempty"`
	// NameMismatches are ids whose registry record names another component.
	NameMismatches []string `json:"nameMismatches,omitempty" yaml:"nameMismatches,omitempty"`
}

// Consistent reports whether every marked id maps to exactly one registry
// record of the same component and nothing failed to hydrate.
func (r *Report) Consistent() bool {
	return r.Failed == 0 &&
		len(r.MissingRecords) == 0 &&
		len(r.UnusedRecords) == 0 &&
		len(r.DuplicateIDs) == 0 &&
		len(r.NameMismatches) == 0
}

// URL fetches target and inspects the document it returns.
func URL(ctx context.Context, target string, opts Options) (*Report, error) {
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = browser.NewHTTPFetcher(0)
	}

	res, err := fetcher.Fetch(ctx, target, nil)
	if err != nil {
		return nil, runeerrors.NewNavigationError(runeerrors.ErrCodeNavFetch, target, "fetch page", err)
	}
	if !res.OK() {
		return nil, runeerrors.NewNavigationError(runeerrors.ErrCodeNavStatus, target,
			fmt.Sprintf("page responded %d", res.Status), nil)
	}

	report, err := Document(ctx, target, res.Body, opts)
	if err != nil {
		return nil, err
	}
	report.Status = res.Status

	return report, nil
}

// Document inspects source as if it had been loaded from href.
func Document(ctx context.Context, href, source string, opts Options) (*Report, error) {
	w, err := browser.NewWindow(href, source)
	if err != nil {
		return nil, err
	}

	ctors := chain{registry.NewProbeTable()}
	if opts.Constructors != nil {
		ctors = chain{opts.Constructors, ctors[0]}
	}

	h := hydrator.New(hydrator.Options{
		Constructors: ctors,
		Props:        w.Props(),
		PageData:     w.Data,
		Logger:       opts.Logger,
	})
	result := h.Hydrate(ctx, w.Document())

	report := &Report{URL: href, Records: w.Props().Len()}
	if root := w.Root(); root != nil {
		report.Page, _ = dom.Attr(root, document.AttrPage)
	}
	for _, o := range result.Outcomes {
		n := Node{Name: o.Name, ID: o.ID, Page: o.Page, State: o.State}
		if o.Err != nil {
			n.Error = o.Err.Error()
		}
		report.Nodes = append(report.Nodes, n)
	}
	report.Hydrated = result.Hydrated()
	report.Failed = result.Failed()

	checkIDs(report, w)

	return report, nil
}

// checkIDs compares the ids marked in the DOM with the registry snapshot.
func checkIDs(report *Report, w *browser.Window) {
	seen := make(map[string]int)
	for _, node := range dom.QueryAttr(w.Document(), ssr.AttrID) {
		id, _ := dom.Attr(node, ssr.AttrID)
		name, _ := dom.Attr(node, ssr.AttrName)
		seen[id]++
		if seen[id] > 1 {
			continue
		}

		rec, ok := w.Props().Get(id)
		switch {
		case !ok:
			report.MissingRecords = append(report.MissingRecords, id)
		case rec.ComponentName != name:
			report.NameMismatches = append(report.NameMismatches, id)
		}
	}

	for id, n := range seen {
		if n > 1 {
			report.DuplicateIDs = append(report.DuplicateIDs, id)
		}
	}
	sort.Strings(report.DuplicateIDs)

	for _, id := range w.Props().IDs() {
		if seen[id] == 0 {
			report.UnusedRecords = append(report.UnusedRecords, id)
		}
	}
}

// chain resolves names through each table in turn.
type chain []registry.Constructors

func (c chain) Lookup(name string) (registry.Constructor, bool) {
	for _, t := range c {
		if ctor, ok := t.Lookup(name); ok {
			return ctor, true
		}
	}

	return nil, false
}

func (c chain) Names() []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range c {
		for _, name := range t.Names() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	return names
}
