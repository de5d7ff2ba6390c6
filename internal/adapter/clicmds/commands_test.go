package clicmds

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"browser-query/internal/infrastructure/logger"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

const listPage = `<html><head><title>Home</title></head><body>
<ul><li class="item">One</li><li class="item">Two</li><li class="item" hidden>Three</li></ul>
</body></html>`

type emptyConfig struct{}

func (emptyConfig) Get(string) string                        { return "" }
func (emptyConfig) MustGet(string) string                    { return "" }
func (emptyConfig) GetWithDefault(_ string, d string) string { return d }
func (emptyConfig) GetBool(_ string, d bool) bool            { return d }
func (emptyConfig) GetInt(_ string, d int) int               { return d }
func (emptyConfig) GetDuration(_ string, d time.Duration) time.Duration {
	return d
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	cli.OsExiter = func(int) {}

	out := new(bytes.Buffer)
	app := NewApp(&Runner{Out: out, Logger: logger.NewNop(), Config: emptyConfig{}})
	app.ErrWriter = out
	err := app.Run(append([]string{"query"}, args...))
	return out.String(), err
}

func serve(t *testing.T, html string) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, html)
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func exitCode(err error) int {
	if ec, ok := err.(cli.ExitCoder); ok {
		return ec.ExitCode()
	}
	return -1
}

func TestFind(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "find", "--static", "--url", url, "--css", ".item", "--text", "Two")
	require.NoError(t, err)

	assert.Contains(t, out, `css .item (containing "Two")`)
	assert.Contains(t, out, "[0] Two")
}

func TestFind_NotFound(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "find", "--static", "--url", url, "--css", ".missing")
	require.Error(t, err)

	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "No such element: css .missing")
}

func TestFindAll(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "find-all", "--static", "--url", url, "--xpath", "//li")
	require.NoError(t, err)

	assert.Contains(t, out, "● [0] One")
	assert.Contains(t, out, "● [1] Two")
	assert.Contains(t, out, "○ [2]")
	assert.NotContains(t, out, "Three")
}

func TestFindAll_VisibleOnly(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "find-all", "--static", "--url", url, "--css", "li", "--visible")
	require.NoError(t, err)

	assert.Contains(t, out, "css li (visible)")
	assert.NotContains(t, out, "Three")
}

func TestExists(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "exists", "--static", "--url", url, "--css", "li", "--text-regexp", "^On")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ exists")

	out, err = run(t, "exists", "--static", "--url", url, "--css", "table")
	assert.Equal(t, 1, exitCode(err))
	assert.Contains(t, out, "✗ does not exist")
}

func TestWait(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "wait", "--static", "--url", url, "--title", "Home", "--css", ".item", "--timeout", "500ms")
	require.NoError(t, err)

	assert.Contains(t, out, "for every of these:")
	assert.Contains(t, out, "✓ satisfied")
}

func TestWait_SingleElementPrintsIt(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "wait", "--static", "--url", url, "--id", "nope", "--timeout", "100ms")
	require.Error(t, err)
	assert.Contains(t, out, "Waiting for id nope\nWait timed out after")

	out, err = run(t, "wait", "--static", "--url", url, "--css", "li", "--text", "Two", "--timeout", "100ms")
	require.NoError(t, err)
	assert.Contains(t, out, "[0] Two")
}

func TestWait_CustomMessage(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "wait", "--static", "--url", url, "--title", "Other", "--timeout", "60ms", "--message", "still home")
	require.Error(t, err)
	assert.Contains(t, out, "still home\nWait timed out after")
}

func TestWait_Unless(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "wait", "--static", "--url", url, "--css", ".later", "--unless-css", ".item", "--timeout", "2s")
	require.Error(t, err)
	assert.Contains(t, out, "unless violated")
}

func TestWait_NoCondition(t *testing.T) {
	url := serve(t, listPage)

	_, err := run(t, "wait", "--static", "--url", url)
	assert.ErrorContains(t, err, "no condition given")
}

func TestReloadUntil(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) >= 3 {
			fmt.Fprint(w, `<html><body><p class="ready">Ready</p></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><p>Working</p></body></html>`)
	}))
	defer server.Close()

	out, err := run(t, "reload-until", "--static", "--url", server.URL, "--css", ".ready", "--timeout", "2s")
	require.NoError(t, err)

	assert.Contains(t, out, "[0] Ready")
	assert.GreaterOrEqual(t, hits.Load(), int32(3))
}

func TestSelectorFlags_Conflicts(t *testing.T) {
	url := serve(t, listPage)

	_, err := run(t, "find", "--static", "--url", url, "--css", "li", "--id", "x")
	assert.ErrorContains(t, err, "only one of")

	_, err = run(t, "find", "--static", "--url", url)
	assert.ErrorContains(t, err, "is required")

	_, err = run(t, "find", "--static", "--url", url, "--css", "li", "--text", "a", "--text-regexp", "b")
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestScreenshot_IgnoredWithoutBrowser(t *testing.T) {
	url := serve(t, listPage)

	out, err := run(t, "find", "--static", "--url", url, "--css", ".missing", "--screenshot", t.TempDir()+"/shot.jpg")
	require.Error(t, err)
	assert.Contains(t, out, "screenshots need a browser")
}
