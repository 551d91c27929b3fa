package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/drewdunne/ghlink/internal/metrics"
	"github.com/drewdunne/ghlink/internal/repository"
)

// newListening returns a server for wooorm/mdast on an ephemeral port.
func newListening(timeout time.Duration) *Server {
	cfg := testConfig()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = timeout
	return New(cfg, WithRepository(repository.ID{Owner: "wooorm", Project: "mdast"}))
}

// serve runs srv until ctx is done and waits for it to accept connections.
func serve(t *testing.T, ctx context.Context, srv *Server) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx)
	}()
	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("ListenAndServe() error = %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start in time")
	}
	return errCh
}

// waitForRequests blocks until the link handler has seen n requests.
func waitForRequests(t *testing.T, n uint64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for metrics.Get().RequestsReceived < n {
		if time.Now().After(deadline) {
			t.Fatalf("handler saw %d requests, want %d", metrics.Get().RequestsReceived, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// postStream posts the pipe's contents to /link and reports the response.
func postStream(addr string, body io.Reader) <-chan linkResult {
	done := make(chan linkResult, 1)
	go func() {
		resp, err := http.Post("http://"+addr+"/link", "text/markdown", body)
		if err != nil {
			done <- linkResult{err: err}
			return
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		done <- linkResult{status: resp.StatusCode, text: string(data), err: err}
	}()
	return done
}

type linkResult struct {
	status int
	text   string
	err    error
}

func wantStopped(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("server did not stop in time")
	}
}

func TestListenAndServe_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := newListening(time.Second)
	errCh := serve(t, ctx, srv)

	cancel()
	wantStopped(t, errCh)

	if _, err := http.Get("http://" + srv.Addr() + "/health"); err == nil {
		t.Error("server still accepts connections after stopping")
	}
}

func TestListenAndServe_ShutdownStopsServing(t *testing.T) {
	srv := newListening(time.Second)
	errCh := serve(t, context.Background(), srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v, want nil", err)
	}
	wantStopped(t, errCh)
}

func TestListenAndServe_FinishesInFlightLink(t *testing.T) {
	metrics.Reset()
	ctx, cancel := context.WithCancel(context.Background())
	srv := newListening(5 * time.Second)
	errCh := serve(t, ctx, srv)

	// The document arrives in two parts; the handler blocks reading the body.
	body, pw := io.Pipe()
	done := postStream(srv.Addr(), body)
	if _, err := pw.Write([]byte("Fixes ")); err != nil {
		t.Fatalf("writing body: %v", err)
	}
	waitForRequests(t, 1)

	cancel()
	time.Sleep(50 * time.Millisecond)
	pw.Write([]byte("#26"))
	pw.Close()

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("in-flight request error = %v", res.err)
		}
		if res.status != http.StatusOK {
			t.Errorf("status = %d, want %d", res.status, http.StatusOK)
		}
		if want := "Fixes [#26](https://github.com/wooorm/mdast/issues/26)"; res.text != want {
			t.Errorf("body = %q, want %q", res.text, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request did not finish")
	}
	wantStopped(t, errCh)
}

func TestListenAndServe_ShutdownTimeoutFromConfig(t *testing.T) {
	metrics.Reset()
	ctx, cancel := context.WithCancel(context.Background())
	srv := newListening(100 * time.Millisecond)
	errCh := serve(t, ctx, srv)

	// A body that never ends keeps the handler reading.
	body, pw := io.Pipe()
	defer pw.Close()
	postStream(srv.Addr(), body)
	pw.Write([]byte("#1 "))
	waitForRequests(t, 1)

	start := time.Now()
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("ListenAndServe() error = %v, want %v", err, context.DeadlineExceeded)
		}
		if elapsed := time.Since(start); elapsed > 3*time.Second {
			t.Errorf("stopping took %v, want about the configured 100ms", elapsed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server ignored server.shutdown_timeout")
	}

	pw.CloseWithError(io.ErrUnexpectedEOF)
}

func TestListenAndServe_ListenError(t *testing.T) {
	first := newListening(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := serve(t, ctx, first)
	defer func() {
		cancel()
		wantStopped(t, errCh)
	}()

	_, port, err := net.SplitHostPort(first.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort(%q) error = %v", first.Addr(), err)
	}
	cfg := testConfig()
	cfg.Server.Port, _ = strconv.Atoi(port)

	if err := New(cfg).ListenAndServe(context.Background()); err == nil {
		t.Error("ListenAndServe() on a taken port error = nil, want error")
	}
}

func TestServer_Addr(t *testing.T) {
	srv := newListening(time.Second)
	if addr := srv.Addr(); addr != "" {
		t.Errorf("Addr() before start = %q, want empty", addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := serve(t, ctx, srv)
	if addr := srv.Addr(); addr == "" {
		t.Error("Addr() after start = empty, want non-empty")
	}

	cancel()
	wantStopped(t, errCh)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := New(testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() before start error = %v, want nil", err)
	}
}
