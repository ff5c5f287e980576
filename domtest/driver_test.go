package domtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revature/scopecheck/log"
)

func fileURL(t *testing.T, path string) string {
	t.Helper()

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	return "file://" + filepath.ToSlash(abs)
}

func writePage(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return fileURL(t, filepath.Join(dir, "index.html"))
}

func TestDriverFixturePage(t *testing.T) {
	t.Parallel()

	d := NewDriver(log.NewNullLogger())
	ctx := context.Background()
	require.NoError(t, d.Navigate(ctx, fileURL(t, "../web/index.html")))

	v, err := d.ExecuteScript(ctx, "return document.getElementById('output-global').textContent;")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	_, err = d.ExecuteScript(ctx, "globalScopeDemo()")
	require.NoError(t, err)

	v, err = d.ExecuteScript(ctx, "return document.getElementById('output-global').textContent;")
	require.NoError(t, err)
	assert.Equal(t, "I am a global scope variable!", v)

	v, err = d.ExecuteScript(ctx, "return document.title;")
	require.NoError(t, err)
	assert.Equal(t, "JavaScript Variable Scope", v)
}

func TestDriverNavigateResets(t *testing.T) {
	t.Parallel()

	page := writePage(t, map[string]string{
		"index.html": `<html><body><p id="out">initial</p>
<script>var count = 0; function bump() { count++; document.getElementById("out").textContent = "n=" + count; }</script>
</body></html>`,
	})
	d := NewDriver(log.NewNullLogger())
	ctx := context.Background()

	require.NoError(t, d.Navigate(ctx, page))
	_, err := d.ExecuteScript(ctx, "bump(); bump();")
	require.NoError(t, err)
	v, err := d.ExecuteScript(ctx, "return document.getElementById('out').textContent;")
	require.NoError(t, err)
	assert.Equal(t, "n=2", v)

	require.NoError(t, d.Navigate(ctx, page))
	v, err = d.ExecuteScript(ctx, "return document.getElementById('out').textContent + ':' + count;")
	require.NoError(t, err)
	assert.Equal(t, "initial:0", v)
	assert.Equal(t, page, d.URL())
}

func TestDriverElements(t *testing.T) {
	t.Parallel()

	page := writePage(t, map[string]string{
		"index.html": `<html><body><div id="box" data-kind="demo"><span>a</span><span>b</span></div></body></html>`,
	})
	d := NewDriver(log.NewNullLogger())
	ctx := context.Background()
	require.NoError(t, d.Navigate(ctx, page))

	tests := []struct {
		name   string
		script string
		want   any
	}{
		{name: "nested_text", script: "return document.getElementById('box').textContent;", want: "ab"},
		{name: "tag_name", script: "return document.getElementById('box').tagName;", want: "DIV"},
		{name: "attribute", script: "return document.getElementById('box').getAttribute('data-kind');", want: "demo"},
		{name: "missing_attribute", script: "return document.getElementById('box').getAttribute('nope');", want: nil},
		{name: "missing_element", script: "return document.getElementById('nope');", want: nil},
		{name: "query_selector", script: "return document.querySelector('#box span').textContent;", want: "a"},
		{name: "no_return", script: "1 + 1;", want: nil},
		{name: "number", script: "return 6 * 7;", want: int64(42)},
	}
	for _, tt := range tests {
		v, err := d.ExecuteScript(ctx, tt.script)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, v, tt.name)
	}

	_, err := d.ExecuteScript(ctx, "document.getElementById('box').textContent = 'replaced';")
	require.NoError(t, err)
	out, err := d.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, `<div id="box" data-kind="demo">replaced</div>`)
}

func TestDriverErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no_document", func(t *testing.T) {
		t.Parallel()

		_, err := NewDriver(log.NewNullLogger()).ExecuteScript(ctx, "return 1;")
		require.ErrorIs(t, err, ErrNoDocument)
	})
	t.Run("not_file", func(t *testing.T) {
		t.Parallel()

		err := NewDriver(log.NewNullLogger()).Navigate(ctx, "http://example.com/")
		require.ErrorContains(t, err, "unsupported scheme")
	})
	t.Run("missing_file", func(t *testing.T) {
		t.Parallel()

		err := NewDriver(log.NewNullLogger()).Navigate(ctx, fileURL(t, filepath.Join(t.TempDir(), "index.html")))
		require.Error(t, err)
	})
	t.Run("missing_script", func(t *testing.T) {
		t.Parallel()

		page := writePage(t, map[string]string{"index.html": `<script src="gone.js"></script>`})
		err := NewDriver(log.NewNullLogger()).Navigate(ctx, page)
		require.ErrorContains(t, err, `loading script "gone.js"`)
	})
	t.Run("script_exception", func(t *testing.T) {
		t.Parallel()

		d := NewDriver(log.NewNullLogger())
		require.NoError(t, d.Navigate(ctx, writePage(t, map[string]string{"index.html": `<p></p>`})))
		_, err := d.ExecuteScript(ctx, "undefinedFunction()")
		require.ErrorContains(t, err, "undefinedFunction")
	})
	t.Run("remote_script_skipped", func(t *testing.T) {
		t.Parallel()

		page := writePage(t, map[string]string{"index.html": `<script src="https://cdn.example.com/lib.js"></script>`})
		require.NoError(t, NewDriver(log.NewNullLogger()).Navigate(ctx, page))
	})
	t.Run("interrupted", func(t *testing.T) {
		t.Parallel()

		d := NewDriver(log.NewNullLogger())
		require.NoError(t, d.Navigate(ctx, writePage(t, map[string]string{"index.html": `<p></p>`})))

		tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := d.ExecuteScript(tctx, "for (;;) {}")
		require.Error(t, err)

		v, err := d.ExecuteScript(ctx, "return 'still usable';")
		require.NoError(t, err)
		assert.Equal(t, "still usable", v)
	})
}

func TestDriverQuit(t *testing.T) {
	t.Parallel()

	d := NewDriver(log.NewNullLogger())
	ctx := context.Background()
	require.NoError(t, d.Navigate(ctx, fileURL(t, "../web/index.html")))

	require.NoError(t, d.Quit(ctx))
	require.NoError(t, d.Quit(ctx))
	assert.Equal(t, 2, d.Quits())

	_, err := d.ExecuteScript(ctx, "return 1;")
	require.ErrorIs(t, err, ErrQuit)
	require.ErrorIs(t, d.Navigate(ctx, fileURL(t, "../web/index.html")), ErrQuit)
}
