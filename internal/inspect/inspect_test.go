package inspect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/rune/internal/components"
	runeerrors "github.com/conneroisu/rune/internal/errors"
	"github.com/conneroisu/rune/internal/registry"
)

const consistent = `<!DOCTYPE html><html><body>
<div id="__rune_root__" data-rune-page="HomePage">
<div data-rune="Toggle" data-rune-id="Toggle_1" data-scope="toggle" data-part="root" data-state="checked"></div>
<span data-rune="Badge">new</span>
</div>
<script>window.__RUNE_DATA__ = {"pathname":"/"};</script>
<script>window.__RUNE_PROPS__ = {"Toggle_1":{"componentName":"Toggle","props":{"checked":true},"timestamp":1}};</script>
</body></html>`

const broken = `<!DOCTYPE html><html><body>
<div id="__rune_root__">
<div data-rune="Card" data-rune-id="Card_1"></div>
<div data-rune="Card" data-rune-id="Card_1"></div>
<div data-rune="Card" data-rune-id="Card_2"></div>
<div data-rune="Note" data-rune-id="Card_3"></div>
</div>
<script>window.__RUNE_PROPS__ = {"Card_1":{"componentName":"Card","props":{"a":1},"timestamp":1},"Card_3":{"componentName":"Card","props":{"a":3},"timestamp":1},"Card_9":{"componentName":"Card","props":{"a":9},"timestamp":1}};</script>
</body></html>`

func TestDocumentConsistent(t *testing.T) {
	report, err := Document(context.Background(), "http://localhost/", consistent, Options{})
	require.NoError(t, err)

	assert.Equal(t, "HomePage", report.Page)
	assert.Equal(t, 1, report.Records)
	assert.Equal(t, 2, report.Hydrated)
	assert.True(t, report.Consistent())
}

func TestDocumentInconsistent(t *testing.T) {
	report, err := Document(context.Background(), "http://localhost/", broken, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Card_2"}, report.MissingRecords)
	assert.Equal(t, []string{"Card_9"}, report.UnusedRecords)
	assert.Equal(t, []string{"Card_1"}, report.DuplicateIDs)
	assert.Equal(t, []string{"Card_3"}, report.NameMismatches)
	assert.False(t, report.Consistent())
}

func TestRealConstructorsTakePrecedence(t *testing.T) {
	table := registry.NewTable()
	components.Register(table)

	// The real Toggle refuses elements that are not its root part.
	source := `<html><body><div data-rune="Toggle"></div><div data-rune="Badge"></div></body></html>`
	report, err := Document(context.Background(), "http://localhost/", source, Options{Constructors: table})
	require.NoError(t, err)

	require.Len(t, report.Nodes, 2)
	assert.Equal(t, "failed", report.Nodes[0].State)
	assert.Contains(t, report.Nodes[0].Error, "not a toggle root part")
	assert.Equal(t, "hydrated", report.Nodes[1].State)
	assert.False(t, report.Consistent())
}

func TestURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(consistent))
	}))
	defer ts.Close()

	report, err := URL(context.Background(), ts.URL+"/", Options{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, report.Status)
	assert.True(t, report.Consistent())

	_, err = URL(context.Background(), ts.URL+"/missing", Options{})
	require.Error(t, err)
	assert.True(t, runeerrors.HasCode(err, runeerrors.ErrCodeNavStatus))
}
