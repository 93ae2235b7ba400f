package daytona

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"clearpath-hq/sentinel/pkg/providers"
)

func newTestExecutor(t *testing.T, baseURL string, preserve bool) *Executor {
	t.Helper()
	e, err := NewExecutor(providers.ClientConfig{
		Name:    "daytona",
		BaseURL: baseURL,
		APIKey:  "dtn-test",
		Timeout: 5 * time.Second,
	}, "us", preserve)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestCreate(t *testing.T) {
	t.Run("polls until started", func(t *testing.T) {
		var polls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("POST /sandbox", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer dtn-test" {
				t.Error("missing bearer token")
			}
			var req createRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if !req.NetworkBlockAll {
				t.Error("sandbox must be created with network blocked")
			}
			_ = json.NewEncoder(w).Encode(sandboxInfo{ID: "sb-1", State: "creating"})
		})
		mux.HandleFunc("GET /sandbox/sb-1", func(w http.ResponseWriter, r *http.Request) {
			state := "creating"
			if polls.Add(1) >= 2 {
				state = "started"
			}
			_ = json.NewEncoder(w).Encode(sandboxInfo{ID: "sb-1", State: state})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		e := newTestExecutor(t, srv.URL, false)
		defer e.Close()

		id, err := e.Create(context.Background())
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if id != "sb-1" {
			t.Errorf("id = %q", id)
		}
	})

	t.Run("destroys half-provisioned sandbox on error state", func(t *testing.T) {
		var deleted atomic.Bool
		mux := http.NewServeMux()
		mux.HandleFunc("POST /sandbox", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(sandboxInfo{ID: "sb-2", State: "creating"})
		})
		mux.HandleFunc("GET /sandbox/sb-2", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(sandboxInfo{ID: "sb-2", State: "error"})
		})
		mux.HandleFunc("DELETE /sandbox/sb-2", func(w http.ResponseWriter, r *http.Request) {
			deleted.Store(true)
			w.WriteHeader(http.StatusOK)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		e := newTestExecutor(t, srv.URL, false)
		defer e.Close()

		if _, err := e.Create(context.Background()); err == nil {
			t.Fatal("expected error for sandbox in error state")
		}
		if !deleted.Load() {
			t.Error("expected half-provisioned sandbox to be destroyed")
		}
	})
}

func TestExec(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /toolbox/sb-1/toolbox/process/execute", func(w http.ResponseWriter, r *http.Request) {
		var req execRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Timeout != 60 {
			t.Errorf("timeout = %d, want 60", req.Timeout)
		}
		_ = json.NewEncoder(w).Encode(execResponse{ExitCode: 0, Result: "SYNTAX_OK"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e := newTestExecutor(t, srv.URL, false)
	defer e.Close()

	res, err := e.Exec(context.Background(), "sb-1", "python3 -c 'pass'", 60*time.Second)
	if err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
	if res.ExitCode != 0 || res.Stdout != "SYNTAX_OK" {
		t.Errorf("result = %+v", res)
	}
}

func TestDestroy(t *testing.T) {
	t.Run("deletes the sandbox", func(t *testing.T) {
		var deleted atomic.Bool
		mux := http.NewServeMux()
		mux.HandleFunc("DELETE /sandbox/sb-1", func(w http.ResponseWriter, r *http.Request) {
			deleted.Store(true)
			w.WriteHeader(http.StatusOK)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		e := newTestExecutor(t, srv.URL, false)
		defer e.Close()

		if err := e.Destroy(context.Background(), "sb-1"); err != nil {
			t.Fatalf("Destroy failed: %v", err)
		}
		if !deleted.Load() {
			t.Error("expected DELETE call")
		}
	})

	t.Run("preserve flag skips deletion", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}))
		defer srv.Close()

		e := newTestExecutor(t, srv.URL, true)
		defer e.Close()

		if err := e.Destroy(context.Background(), "sb-1"); err != nil {
			t.Fatalf("Destroy with preserve failed: %v", err)
		}
	})
}
