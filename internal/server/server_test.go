package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/kindview/pkg/eval"
	"github.com/matzehuels/kindview/pkg/kernel/starlark"
	"github.com/matzehuels/kindview/pkg/mime"
	"github.com/matzehuels/kindview/pkg/observability"
	"github.com/matzehuels/kindview/pkg/render/builtin"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	e, err := builtin.NewEngine(builtin.Config{})
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithLogger(log.New(io.Discard))}, opts...)
	srv := httptest.NewServer(New(eval.New(starlark.New(), e), opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, contentType, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestEval(t *testing.T) {
	srv := newTestServer(t)

	resp, out := post(t, srv.URL+"/eval", "application/json", `{"form": "md('**bold**')"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %v", resp.StatusCode, out)
	}
	html, _ := out["html"].(string)
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Errorf("html = %q", html)
	}
	bundle, _ := out["bundle"].(map[string]any)
	if _, ok := bundle[mime.TypeText]; !ok {
		t.Errorf("bundle = %v, want a text/plain entry", bundle)
	}
}

func TestEvalKeepsGlobals(t *testing.T) {
	srv := newTestServer(t)

	resp, out := post(t, srv.URL+"/eval", "application/json", `{"form": "x = 20"}`)
	if resp.StatusCode != http.StatusOK || out["passthrough"] != true {
		t.Fatalf("assignment: status %d, body %v", resp.StatusCode, out)
	}
	_, out = post(t, srv.URL+"/eval", "application/json", `{"form": "x + 1"}`)
	bundle := out["bundle"].(map[string]any)
	if bundle[mime.TypeText] != "21" {
		t.Errorf("text/plain = %v, want 21", bundle[mime.TypeText])
	}
}

func TestEvalErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{`, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty form", `{"form": ""}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"kernel error", `{"form": "undefined_name"}`, http.StatusUnprocessableEntity, "KERNEL_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := post(t, srv.URL+"/eval", "application/json", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if out["code"] != tt.code {
				t.Errorf("code = %v, want %s", out["code"], tt.code)
			}
		})
	}
}

func TestRender(t *testing.T) {
	srv := newTestServer(t)

	resp, out := post(t, srv.URL+"/render", "application/yaml", "kind: markdown\nvalue: '# Title'\n")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %v", resp.StatusCode, out)
	}
	if html, _ := out["html"].(string); !strings.Contains(html, "<h1") {
		t.Errorf("html = %q", html)
	}

	resp, out = post(t, srv.URL+"/render", "application/yaml", "colour: red\n")
	if resp.StatusCode != http.StatusBadRequest || out["code"] != "INVALID_INPUT" {
		t.Errorf("unknown field: status %d, body %v", resp.StatusCode, out)
	}
}

func TestKinds(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/kinds")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var kinds []kindInfo
	if err := json.NewDecoder(resp.Body).Decode(&kinds); err != nil {
		t.Fatal(err)
	}
	if len(kinds) != 22 {
		t.Errorf("got %d kinds, want 22", len(kinds))
	}
	for _, k := range kinds {
		if k.Kind == "graphviz" && k.Options["engine"] == "" {
			t.Errorf("graphviz options = %v, want engine", k.Options)
		}
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "ok" || out["environment"] != "kindview" {
		t.Errorf("health = %v", out)
	}
}

func TestMetricsMount(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("metrics without handler: status %d, want 404", resp.StatusCode)
	}

	srv = newTestServer(t, WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	})))
	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("metrics body = %q", body)
	}
}

type httpRecorder struct {
	observability.NoopHTTPHooks
	mu     sync.Mutex
	routes []string
	codes  []int
}

func (h *httpRecorder) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.routes = append(h.routes, method+" "+route)
	h.codes = append(h.codes, status)
}

func TestHTTPHooks(t *testing.T) {
	rec := &httpRecorder{}
	observability.SetHTTPHooks(rec)
	t.Cleanup(observability.Reset)

	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	want := []string{"GET /healthz", "GET unmatched"}
	if strings.Join(rec.routes, ",") != strings.Join(want, ",") {
		t.Errorf("routes = %v, want %v", rec.routes, want)
	}
	if rec.codes[1] != http.StatusNotFound {
		t.Errorf("status = %v", rec.codes)
	}
}

func TestListenAndServeShutsDown(t *testing.T) {
	e, err := builtin.NewEngine(builtin.Config{})
	if err != nil {
		t.Fatal(err)
	}
	s := New(eval.New(starlark.New(), e), WithLogger(log.New(io.Discard)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx, "127.0.0.1:0", time.Second, time.Second)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
