package chromium

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revature/scopecheck/cdp"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/log"
	"github.com/revature/scopecheck/storage"
)

const (
	testTargetID  = "T1"
	testSessionID = "S1"

	// closeConn as a response frame makes the fake browser drop the
	// connection.
	closeConn = "<close>"
)

type cdpRequest struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
}

type responder func(req cdpRequest) []string

// fakeChromium speaks just enough CDP to attach to a page target. Methods
// without a responder get an empty result, except Browser.close which
// drops the connection like a closing browser does.
type fakeChromium struct {
	responders map[string]responder

	mu       sync.Mutex
	requests []cdpRequest
}

func (f *fakeChromium) record(req cdpRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func (f *fakeChromium) calls() []cdpRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cdpRequest(nil), f.requests...)
}

func (f *fakeChromium) respond(req cdpRequest) []string {
	if r, ok := f.responders[req.Method]; ok {
		return r(req)
	}
	switch req.Method {
	case "Target.createTarget":
		return []string{result(req, fmt.Sprintf(`{"targetId":%q}`, testTargetID))}
	case "Target.attachToTarget":
		return []string{result(req, fmt.Sprintf(`{"sessionId":%q}`, testSessionID))}
	case "Browser.close":
		return []string{closeConn}
	default:
		return []string{result(req, `{}`)}
	}
}

func result(req cdpRequest, res string) string {
	if req.SessionID == "" {
		return fmt.Sprintf(`{"id":%d,"result":%s}`, req.ID, res)
	}
	return fmt.Sprintf(`{"id":%d,"sessionId":%q,"result":%s}`, req.ID, req.SessionID, res)
}

func lifecycleEvent(name, loaderID string) string {
	return fmt.Sprintf(
		`{"method":"Page.lifecycleEvent","sessionId":%q,"params":{"frameId":"F1","loaderId":%q,"name":%q,"timestamp":1}}`,
		testSessionID, loaderID, name,
	)
}

func newFakeChromium(t *testing.T, responders map[string]responder) (*fakeChromium, string) {
	t.Helper()

	f := &fakeChromium{responders: responders}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close() //nolint:errcheck
		for {
			_, buf, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req cdpRequest
			if err := json.Unmarshal(buf, &req); err != nil {
				return
			}
			f.record(req)
			for _, frame := range f.respond(req) {
				if frame == closeConn {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)

	return f, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestDriver(
	t *testing.T, responders map[string]responder, proc *common.BrowserProcess,
) (*driver, *fakeChromium) {
	t.Helper()

	f, wsURL := newFakeChromium(t, responders)
	logger := log.NewNullLogger()
	client := cdp.NewClient(logger)
	require.NoError(t, client.Connect(context.Background(), wsURL))
	t.Cleanup(func() { _ = client.Close() })

	d, err := newDriver(context.Background(), client, proc, logger)
	require.NoError(t, err)

	return d, f
}

func methods(reqs []cdpRequest) []string {
	ms := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ms = append(ms, r.Method+"@"+r.SessionID)
	}
	return ms
}

func TestNewDriverAttachesToPage(t *testing.T) {
	t.Parallel()

	d, f := newTestDriver(t, nil, nil)
	assert.Equal(t, testTargetID, d.targetID)
	assert.Equal(t, testSessionID, d.sessionID)

	calls := f.calls()
	assert.Equal(t, []string{
		"Target.createTarget@",
		"Target.attachToTarget@",
		"Page.enable@" + testSessionID,
		"Page.setLifecycleEventsEnabled@" + testSessionID,
	}, methods(calls))

	var attach struct {
		TargetID string `json:"targetId"`
		Flatten  bool   `json:"flatten"`
	}
	require.NoError(t, json.Unmarshal(calls[1].Params, &attach))
	assert.Equal(t, testTargetID, attach.TargetID)
	assert.True(t, attach.Flatten)
}

func TestNewDriverAttachFails(t *testing.T) {
	t.Parallel()

	_, wsURL := newFakeChromium(t, map[string]responder{
		"Target.attachToTarget": func(req cdpRequest) []string {
			return []string{fmt.Sprintf(`{"id":%d,"error":{"code":-32602,"message":"No target with given id found"}}`, req.ID)}
		},
	})
	logger := log.NewNullLogger()
	client := cdp.NewClient(logger)
	require.NoError(t, client.Connect(context.Background(), wsURL))
	t.Cleanup(func() { _ = client.Close() })

	d, err := newDriver(context.Background(), client, nil, logger)
	require.Error(t, err)
	assert.Nil(t, d)
	assert.Contains(t, err.Error(), "No target with given id found")
}

func TestDriverNavigate(t *testing.T) {
	t.Parallel()

	t.Run("waits_for_load_of_new_document", func(t *testing.T) {
		t.Parallel()

		d, f := newTestDriver(t, map[string]responder{
			"Page.navigate": func(req cdpRequest) []string {
				return []string{
					lifecycleEvent("load", "L0"),
					lifecycleEvent("DOMContentLoaded", "L1"),
					result(req, `{"frameId":"F1","loaderId":"L1"}`),
					lifecycleEvent("load", "L1"),
				}
			},
		}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, d.Navigate(ctx, "http://localhost/page"))

		var nav struct {
			URL string `json:"url"`
		}
		calls := f.calls()
		last := calls[len(calls)-1]
		require.Equal(t, "Page.navigate", last.Method)
		assert.Equal(t, testSessionID, last.SessionID)
		require.NoError(t, json.Unmarshal(last.Params, &nav))
		assert.Equal(t, "http://localhost/page", nav.URL)
	})

	t.Run("ignores_other_documents", func(t *testing.T) {
		t.Parallel()

		d, _ := newTestDriver(t, map[string]responder{
			"Page.navigate": func(req cdpRequest) []string {
				return []string{
					lifecycleEvent("load", "L0"),
					result(req, `{"frameId":"F1","loaderId":"L1"}`),
					lifecycleEvent("DOMContentLoaded", "L1"),
				}
			},
		}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		err := d.Navigate(ctx, "http://localhost/page")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("same_document", func(t *testing.T) {
		t.Parallel()

		d, _ := newTestDriver(t, map[string]responder{
			"Page.navigate": func(req cdpRequest) []string {
				return []string{result(req, `{"frameId":"F1"}`)}
			},
		}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, d.Navigate(ctx, "http://localhost/page#top"))
	})

	t.Run("error_text", func(t *testing.T) {
		t.Parallel()

		d, _ := newTestDriver(t, map[string]responder{
			"Page.navigate": func(req cdpRequest) []string {
				return []string{result(req, `{"frameId":"F1","loaderId":"L1","errorText":"net::ERR_NAME_NOT_RESOLVED"}`)}
			},
		}, nil)

		err := d.Navigate(context.Background(), "http://no-such-host.invalid/")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "net::ERR_NAME_NOT_RESOLVED")
		assert.Contains(t, err.Error(), "no-such-host.invalid")
	})

	t.Run("connection_lost", func(t *testing.T) {
		t.Parallel()

		d, _ := newTestDriver(t, map[string]responder{
			"Page.navigate": func(req cdpRequest) []string {
				return []string{result(req, `{"frameId":"F1","loaderId":"L1"}`), closeConn}
			},
		}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := d.Navigate(ctx, "http://localhost/page")
		require.ErrorIs(t, err, cdp.ErrConnectionClosed)
	})
}

func TestDriverExecuteScript(t *testing.T) {
	t.Parallel()

	t.Run("wraps_script_in_function", func(t *testing.T) {
		t.Parallel()

		exprs := make(chan string, 1)
		d, _ := newTestDriver(t, map[string]responder{
			"Runtime.evaluate": func(req cdpRequest) []string {
				var p struct {
					Expression    string `json:"expression"`
					ReturnByValue bool   `json:"returnByValue"`
				}
				if err := json.Unmarshal(req.Params, &p); err == nil && p.ReturnByValue {
					exprs <- p.Expression
				}
				return []string{result(req, `{"result":{"type":"string","value":"hello"}}`)}
			},
		}, nil)

		v, err := d.ExecuteScript(context.Background(), "return document.title;")
		require.NoError(t, err)
		assert.Equal(t, "hello", v)
		assert.Equal(t, "(function() {\nreturn document.title;\n})()", <-exprs)
	})

	t.Run("undefined_result", func(t *testing.T) {
		t.Parallel()

		d, _ := newTestDriver(t, map[string]responder{
			"Runtime.evaluate": func(req cdpRequest) []string {
				return []string{result(req, `{"result":{"type":"undefined"}}`)}
			},
		}, nil)

		v, err := d.ExecuteScript(context.Background(), "document.title = 'x';")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("exception", func(t *testing.T) {
		t.Parallel()

		d, _ := newTestDriver(t, map[string]responder{
			"Runtime.evaluate": func(req cdpRequest) []string {
				return []string{result(req, `{"result":{"type":"object"},"exceptionDetails":{`+
					`"exceptionId":1,"text":"Uncaught","lineNumber":1,"columnNumber":0,`+
					`"exception":{"type":"object","description":"ReferenceError: x is not defined"}}}`)}
			},
		}, nil)

		v, err := d.ExecuteScript(context.Background(), "return x;")
		require.Error(t, err)
		assert.Nil(t, v)
		assert.Contains(t, err.Error(), "ReferenceError: x is not defined")
	})
}

func TestDriverQuit(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("needs a shell script")
	}

	_, wsURL := newFakeChromium(t, nil)
	fake := filepath.Join(t.TempDir(), "fake-chrome")
	script := fmt.Sprintf("#!/bin/sh\necho 'DevTools listening on %s' >&2\nexec sleep 1\n", wsURL)
	require.NoError(t, os.WriteFile(fake, []byte(script), 0o700)) //nolint:gosec

	logger := log.NewNullLogger()
	dataDir := &storage.Dir{}
	require.NoError(t, dataDir.Make(t.TempDir(), ""))

	ctx := context.Background()
	launchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	proc, err := common.NewLocalBrowserProcess(ctx, launchCtx, fake, nil, dataDir, logger)
	require.NoError(t, err)
	require.Equal(t, wsURL, proc.WsURL())

	client := cdp.NewClient(logger)
	require.NoError(t, client.Connect(ctx, proc.WsURL()))
	d, err := newDriver(ctx, client, proc, logger)
	require.NoError(t, err)

	// Browser.close drops the connection before replying.
	require.NoError(t, d.Quit(ctx))
	select {
	case <-proc.Done():
	default:
		t.Fatal("browser process still running after Quit")
	}
	select {
	case <-client.Done():
	default:
		t.Fatal("CDP connection still open after Quit")
	}
	_, err = os.Stat(dataDir.Dir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// Quitting again is a no-op.
	require.NoError(t, d.Quit(ctx))
}
