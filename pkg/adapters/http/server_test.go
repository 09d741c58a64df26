package http_test

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/gameflow/internal/runtime"
	gfhttp "github.com/aretw0/gameflow/pkg/adapters/http"
	"github.com/aretw0/gameflow/pkg/adapters/memory"
	"github.com/aretw0/gameflow/pkg/compiler"
	"github.com/aretw0/gameflow/pkg/domain"
	"github.com/aretw0/gameflow/pkg/dsl"
	"github.com/aretw0/gameflow/pkg/observability"
	"github.com/aretw0/gameflow/pkg/registry"
	"github.com/aretw0/gameflow/pkg/session"
)

// newServer serves a door flow: "open" unlocks when the code matches.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	b := dsl.New("door")
	b.Variable("code", "int")
	b.Event("try", map[string]string{"code": "int"})
	b.Entry("start").Go("wait")
	b.State("wait").Go("check")
	b.Condition("check").When("compare", map[string]any{"left": "event.code", "op": "==", "right": "var.code"}).
		True("open").
		False("wait")
	b.Exit("open")
	g, err := b.Build()
	require.NoError(t, err)
	flow, err := compiler.Compile(g)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	engine, err := runtime.NewEngine(flow, registry.NewWithBuiltins(), runtime.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)

	streams := gfhttp.NewStreamManager(nil)
	mgr := session.NewManager(engine, memory.NewStore(), session.WithCommitHook(streams.CommitHook))
	srv := gfhttp.NewServer(mgr, streams, gfhttp.WithFlow(flow), gfhttp.WithMetrics(reg))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeState(t *testing.T, data []byte) *domain.FlowState {
	t.Helper()
	var s domain.FlowState
	require.NoError(t, sonic.ConfigStd.Unmarshal(data, &s))
	return &s
}

func TestServer_Lifecycle(t *testing.T) {
	ts := newServer(t)

	code, body := do(t, http.MethodPost, ts.URL+"/instances", `{"id":"door-1","bindings":{"code":42}}`)
	require.Equal(t, http.StatusCreated, code, string(body))
	assert.Equal(t, "door-1", decodeState(t, body).InstanceID)

	code, body = do(t, http.MethodGet, ts.URL+"/instances", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `["door-1"]`, string(body))

	// start -> wait, wait -> check, check -> wait on a wrong code
	for _, ev := range []string{`{}`, `{}`, `{"name":"try","payload":{"code":1}}`} {
		code, body = do(t, http.MethodPost, ts.URL+"/instances/door-1/events", ev)
		require.Equal(t, http.StatusOK, code, string(body))
	}
	var step gfhttp.StepResponse
	require.NoError(t, sonic.ConfigStd.Unmarshal(body, &step))
	assert.Equal(t, 1, step.State.Current, "wrong code loops back to wait")

	do(t, http.MethodPost, ts.URL+"/instances/door-1/events", `{}`)
	code, body = do(t, http.MethodPost, ts.URL+"/instances/door-1/events", `{"name":"try","payload":{"code":42}}`)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, sonic.ConfigStd.Unmarshal(body, &step))
	assert.Equal(t, domain.StatusTerminated, step.State.Status)

	code, _ = do(t, http.MethodPost, ts.URL+"/instances/door-1/events", `{}`)
	assert.Equal(t, http.StatusConflict, code)

	code, body = do(t, http.MethodGet, ts.URL+"/instances/door-1", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decodeState(t, body).Terminated())

	code, _ = do(t, http.MethodDelete, ts.URL+"/instances/door-1", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, http.MethodGet, ts.URL+"/instances/door-1", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_Errors(t *testing.T) {
	ts := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed body", http.MethodPost, "/instances", `{`, http.StatusBadRequest},
		{"id with slash", http.MethodPost, "/instances", `{"id":"a/b"}`, http.StatusBadRequest},
		{"bad binding", http.MethodPost, "/instances", `{"bindings":{"code":"x"}}`, http.StatusBadRequest},
		{"unknown instance", http.MethodPost, "/instances/nope/events", `{}`, http.StatusNotFound},
		{"stream unknown instance", http.MethodGet, "/instances/nope/stream", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.want, code, string(body))
			assert.Contains(t, string(body), `"error"`)
		})
	}

	code, _ := do(t, http.MethodPost, ts.URL+"/instances", `{"id":"dup"}`)
	require.Equal(t, http.StatusCreated, code)
	code, _ = do(t, http.MethodPost, ts.URL+"/instances", `{"id":"dup"}`)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = do(t, http.MethodPost, ts.URL+"/instances/dup/events", `{"name":"ring"}`)
	assert.Equal(t, http.StatusBadRequest, code, "undeclared events are rejected")
}

func TestServer_FlowAndMetrics(t *testing.T) {
	ts := newServer(t)

	code, body := do(t, http.MethodGet, ts.URL+"/flow", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"door"`)

	code, _ = do(t, http.MethodPost, ts.URL+"/instances", `{"id":"m"}`)
	require.Equal(t, http.StatusCreated, code)
	do(t, http.MethodPost, ts.URL+"/instances/m/events", `{}`)

	code, body = do(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `gameflow_transitions_total{flow="door",node="start",port="out"} 1`)

	code, body = do(t, http.MethodGet, ts.URL+"/health", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestServer_Stream(t *testing.T) {
	ts := newServer(t)
	code, _ := do(t, http.MethodPost, ts.URL+"/instances", `{"id":"s"}`)
	require.Equal(t, http.StatusCreated, code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/instances/s/stream?watch=current", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	require.Equal(t, "event: ping", lines.Text())

	code, _ = do(t, http.MethodPost, ts.URL+"/instances/s/events", `{}`)
	require.Equal(t, http.StatusOK, code)

	for lines.Scan() {
		line := lines.Text()
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var diff domain.StateDiff
		require.NoError(t, sonic.ConfigStd.Unmarshal(bytes.TrimPrefix([]byte(line), []byte("data: ")), &diff))
		require.NotNil(t, diff.Current)
		assert.Equal(t, 1, *diff.Current)
		assert.Equal(t, "s", diff.InstanceID)
		return
	}
	t.Fatal("stream ended without a diff")
}
