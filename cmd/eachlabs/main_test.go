package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neonkit/neon/internal/config"
	"github.com/neonkit/neon/internal/journal"
	"github.com/neonkit/neon/pkg/eachlabs"
)

const testKey = "test-key"

type fakeFlows struct {
	mu     sync.Mutex
	bodies []string
}

func (f *fakeFlows) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		return ""
	}
	return f.bodies[len(f.bodies)-1]
}

func (f *fakeFlows) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/flow-1/trigger", func(w http.ResponseWriter, r *http.Request) {
		f.capture(r)
		_, _ = io.WriteString(w, `{"trigger_id":"trig-1"}`)
	})
	mux.HandleFunc("POST /api/v1/flow-1/bulk", func(w http.ResponseWriter, r *http.Request) {
		body := f.capture(r)
		var req struct {
			Count int `json:"count"`
		}
		_ = json.Unmarshal(body, &req)
		ids := make([]string, req.Count)
		for i := range ids {
			ids[i] = fmt.Sprintf("exec-%d", i+1)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"execution_ids": ids})
	})
	mux.HandleFunc("GET /api/v1/flow-1/executions/{id}", func(w http.ResponseWriter, r *http.Request) {
		state := "succeeded"
		if r.PathValue("id") == "trig-running" {
			state = "running"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": state, "id": r.PathValue("id")})
	})
	mux.HandleFunc("POST /api/v1/broken/trigger", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(eachlabs.HeaderAPIKey) != testKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeFlows) capture(r *http.Request) []byte {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()
	return body
}

type cliEnv struct {
	flows *fakeFlows
	dir   string
}

func setupCLI(t *testing.T) *cliEnv {
	t.Helper()
	flows := &fakeFlows{}
	srv := httptest.NewServer(flows.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv(config.EnvAPIKey, testKey)
	t.Setenv(config.EnvBaseURL, srv.URL+"/api/v1/")
	t.Setenv(config.EnvJournal, "sqlite:"+filepath.Join(dir, "runs.db"))
	t.Setenv(config.EnvTimeout, "5s")
	t.Setenv(config.EnvLogLevel, "error")
	return &cliEnv{flows: flows, dir: dir}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(e.dir, "absent.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCLI_TriggerThenStatusFromJournal(t *testing.T) {
	env := setupCLI(t)

	out, err := env.run(t, "trigger", "flow-1", "-p", "prompt=cat", "-p", "steps=20", "--webhook", "https://hooks.test/done")
	require.NoError(t, err)
	require.JSONEq(t, `{"flow_id":"flow-1","trigger_id":"trig-1"}`, out)
	require.JSONEq(t, `{"parameters":{"prompt":"cat","steps":20},"webhook_url":"https://hooks.test/done"}`, env.flows.lastBody())

	out, err = env.run(t, "status", "trig-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"succeeded","id":"trig-1"}`, out)

	out, err = env.run(t, "runs", "--flow", "flow-1")
	require.NoError(t, err)
	var runs []runView
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	require.Equal(t, "trig-1", runs[0].TriggerID)
	require.Equal(t, "https://hooks.test/done", runs[0].WebhookURL)
}

func TestCLI_ParamsFile(t *testing.T) {
	env := setupCLI(t)
	file := filepath.Join(env.dir, "params.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"prompt":"dog","size":{"w":512}}`), 0o600))

	_, err := env.run(t, "trigger", "flow-1", "--params-file", file, "-p", "prompt=cat")
	require.NoError(t, err)
	require.JSONEq(t, `{"parameters":{"prompt":"cat","size":{"w":512}}}`, env.flows.lastBody())
}

func TestCLI_BulkRecordsBatch(t *testing.T) {
	env := setupCLI(t)

	out, err := env.run(t, "bulk", "flow-1", "--count", "3", "-p", "prompt=cat")
	require.NoError(t, err)
	var view bulkView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Equal(t, []string{"exec-1", "exec-2", "exec-3"}, view.ExecutionIDs)
	require.NotEmpty(t, view.BatchID)
	require.JSONEq(t, `{"parameters":{"prompt":"cat"},"count":3}`, env.flows.lastBody())

	out, err = env.run(t, "runs", "--batch", view.BatchID, "--limit", "0")
	require.NoError(t, err)
	var runs []runView
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 3)
}

func TestCLI_BulkWithoutCountLeavesItToService(t *testing.T) {
	env := setupCLI(t)

	_, err := env.run(t, "bulk", "flow-1", "-p", "prompt=cat")
	require.NoError(t, err)
	require.JSONEq(t, `{"parameters":{"prompt":"cat"},"count":0}`, env.flows.lastBody())
}

func TestCLI_TriggerKeepsWideIntegers(t *testing.T) {
	env := setupCLI(t)
	file := filepath.Join(env.dir, "params.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"id":12345678901234567890}`), 0o600))

	_, err := env.run(t, "trigger", "flow-1", "--params-file", file, "-p", "seed=9007199254740993")
	require.NoError(t, err)
	body := env.flows.lastBody()
	require.Contains(t, body, `"seed":9007199254740993`)
	require.Contains(t, body, `"id":12345678901234567890`)
}

func TestCLI_WaitStopsOnFinalState(t *testing.T) {
	env := setupCLI(t)

	out, err := env.run(t, "wait", "trig-done", "--flow", "flow-1", "--interval", "1ms")
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"succeeded","id":"trig-done"}`, out)
}

func TestCLI_WaitExhausted(t *testing.T) {
	env := setupCLI(t)

	out, err := env.run(t, "wait", "trig-running", "--flow", "flow-1", "--interval", "1ms", "--max-attempts", "2")
	require.ErrorIs(t, err, eachlabs.ErrPollExhausted)
	require.JSONEq(t, `{"status":"running","id":"trig-running"}`, out)
}

func TestCLI_Errors(t *testing.T) {
	env := setupCLI(t)

	_, err := env.run(t, "status", "unknown")
	require.ErrorIs(t, err, journal.ErrRunNotFound)

	_, err = env.run(t, "trigger", "broken")
	require.ErrorIs(t, err, eachlabs.ErrStatus)

	_, err = env.run(t, "trigger", "flow-1", "-p", "novalue")
	require.ErrorContains(t, err, "key=value")

	t.Setenv(config.EnvAPIKey, "")
	_, err = env.run(t, "trigger", "flow-1")
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestParseParams(t *testing.T) {
	p, err := parseParams("", []string{"n=3", "ok=true", "name=cat", `tags=["a","b"]`, "empty="})
	require.NoError(t, err)
	require.Equal(t, eachlabs.Parameters{
		"n":     json.Number("3"),
		"ok":    true,
		"name":  "cat",
		"tags":  []any{"a", "b"},
		"empty": "",
	}, p)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2]`), 0o600))
	_, err = parseParams(bad, nil)
	require.ErrorContains(t, err, "not a JSON object")
}
