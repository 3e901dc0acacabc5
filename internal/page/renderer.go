package page

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/conneroisu/rune/internal/document"
	runeerrors "github.com/conneroisu/rune/internal/errors"
	"github.com/conneroisu/rune/internal/logging"
	"github.com/conneroisu/rune/internal/registry"
	"github.com/conneroisu/rune/internal/ssr"
)

// Options configure a Renderer.
type Options struct {
	Dev         bool
	Lang        string
	Stylesheets []string
	InlineProps bool
	Logger      logging.Logger
}

// Renderer turns page modules into complete documents. Component ids are
// unique across every page it renders, since the client registry only grows.
type Renderer struct {
	opts   Options
	logger logging.Logger
	ids    *registry.Sequence
}

// NewRenderer creates a renderer.
func NewRenderer(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Renderer{opts: opts, logger: logger.WithComponent("renderer"), ids: registry.NewSequence()}
}

// Result is a rendered page.
type Result struct {
	Status int
	HTML   string
	Err    error
}

// Render renders mod for props. Failures never escape: in development they
// produce a detailed error page, in production a generic 500 page.
func (r *Renderer) Render(ctx context.Context, mod *Module, props Props, w http.ResponseWriter, req *http.Request) Result {
	out, err := r.render(ctx, mod, props, w, req)
	if err == nil {
		return Result{Status: http.StatusOK, HTML: out}
	}

	name := ""
	if mod != nil {
		name = mod.Name
	}
	err = runeerrors.Wrap(err, runeerrors.ErrorTypeRender, runeerrors.ErrCodeRenderFailed, "page render failed").
		WithComponent(name).
		WithRoute(props.Pathname)
	r.logger.Error(ctx, err, "Page rendering error")

	if r.opts.Dev {
		return Result{Status: http.StatusInternalServerError, HTML: ErrorPage(err, props), Err: err}
	}

	return Result{Status: http.StatusInternalServerError, HTML: ServerErrorPage(), Err: err}
}

func (r *Renderer) render(ctx context.Context, mod *Module, props Props, w http.ResponseWriter, req *http.Request) (string, error) {
	if mod == nil || mod.New == nil {
		return "", runeerrors.New(runeerrors.ErrorTypeRouting, runeerrors.ErrCodeNoModule, "page module has no constructor")
	}

	data := props.Data()
	if mod.ServerSideProps != nil {
		serverProps, err := mod.ServerSideProps(ctx, ServerContext{
			Params:   props.Params,
			Query:    props.Query,
			Request:  req,
			Response: w,
		})
		if err != nil {
			return "", fmt.Errorf("server side props: %w", err)
		}
		for k, v := range serverProps {
			data[k] = v
		}
	}

	view, err := mod.New(data)
	if err != nil {
		return "", fmt.Errorf("construct page: %w", err)
	}

	opts := []ssr.Option{ssr.WithLogger(r.logger), ssr.WithSequence(r.ids)}
	if r.opts.InlineProps {
		opts = append(opts, ssr.WithInlineProps())
	}
	pass := ssr.NewPass(opts...)
	markup, err := pass.Render(ctx, view)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	in := document.Input{
		Markup:      markup,
		PageData:    data,
		Props:       pass.Registry().Snapshot(),
		PageScript:  mod.Script,
		PageName:    mod.Name,
		Dev:         r.opts.Dev,
		Lang:        r.opts.Lang,
		Stylesheets: r.opts.Stylesheets,
	}
	if mod.Metadata != nil {
		in.Metadata = mod.Metadata(data)
	}
	if mod.ClientScript != nil {
		in.ClientScript = mod.ClientScript(data)
	}

	if mod.Document != nil {
		var buf bytes.Buffer
		if err := mod.Document(in).Render(ctx, &buf); err != nil {
			return "", fmt.Errorf("render document: %w", err)
		}
		return buf.String(), nil
	}

	return document.Assemble(ctx, in)
}
