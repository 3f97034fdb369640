package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/platinummonkey/itemsapi/pkg/config"
	"github.com/platinummonkey/itemsapi/pkg/httputil"
	"github.com/platinummonkey/itemsapi/pkg/observability"
	"github.com/platinummonkey/itemsapi/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	items    []*storage.Item
	closeErr error
	closed   int
}

func (f *fakeStore) ListItems(ctx context.Context, limit int) ([]*storage.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeStore) CreateItem(ctx context.Context, item *storage.Item) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = fmt.Sprintf("%024x", len(f.items)+1)
	f.items = append(f.items, item)
	return item.ID, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.closeErr
}

func (f *fakeStore) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func opener(store storage.ItemStore) Option {
	return WithStoreOpener(func(ctx context.Context, cfg storage.Config) (storage.ItemStore, error) {
		return store, nil
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            "0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			IdleTimeout:     5 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: storage.DefaultConfig(),
		HTTP: config.HTTPConfig{
			CORSOrigin:   "*",
			MaxBodyBytes: 100 * 1024,
		},
		RateLimit: config.RateLimitConfig{RPS: 50, Burst: 100},
		Observability: config.ObservabilityConfig{
			LogLevel:       observability.InfoLevel,
			MetricsEnabled: true,
		},
	}
}

func testLogger(buf *bytes.Buffer) *observability.Logger {
	if buf == nil {
		buf = &bytes.Buffer{}
	}
	return observability.NewLogger(observability.InfoLevel, buf)
}

func TestNew_DatabaseUnreachable(t *testing.T) {
	var logs bytes.Buffer
	connectErr := errors.New("server selection error: context deadline exceeded")

	a, err := New(context.Background(), testConfig(), testLogger(&logs), WithStoreOpener(
		func(ctx context.Context, cfg storage.Config) (storage.ItemStore, error) {
			return nil, connectErr
		}))

	assert.Nil(t, a)
	assert.ErrorIs(t, err, connectErr)
	assert.Contains(t, logs.String(), "Failed to connect to MongoDB")
}

func TestNew_PassesStorageConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.MongoURL = "mongodb://db.internal:27017/inventory"

	var got storage.Config
	_, err := New(context.Background(), cfg, testLogger(nil), WithStoreOpener(
		func(ctx context.Context, c storage.Config) (storage.ItemStore, error) {
			got = c
			return &fakeStore{}, nil
		}))

	require.NoError(t, err)
	assert.Equal(t, cfg.Storage, got)
}

func TestHandler_EndToEnd(t *testing.T) {
	store := &fakeStore{}
	a, err := New(context.Background(), testConfig(), testLogger(nil), opener(store))
	require.NoError(t, err)
	h := a.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":"widget"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/items", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, created["id"], items[0]["id"])
	assert.Equal(t, "widget", items[0]["name"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "itemsapi_heap_used_bytes")
	assert.Contains(t, body, `itemsapi_http_requests_total{method="POST",route="/api/items",status="201"} 1`)
	assert.Contains(t, body, `itemsapi_storage_operations_total{backend="mongodb",operation="create_item",status="success"} 1`)
}

func TestHandler_HeadersOnEveryResponse(t *testing.T) {
	a, err := New(context.Background(), testConfig(), testLogger(nil), opener(&fakeStore{}))
	require.NoError(t, err)

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/healthz", nil),
		httptest.NewRequest(http.MethodGet, "/does-not-exist", nil),
		httptest.NewRequest(http.MethodDelete, "/api/items", nil),
		httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":" "}`)),
		httptest.NewRequest(http.MethodOptions, "/api/items", nil),
	}

	for _, req := range requests {
		t.Run(req.Method+" "+req.URL.Path, func(t *testing.T) {
			w := httptest.NewRecorder()
			a.Handler().ServeHTTP(w, req)

			for _, h := range httputil.SecurityHeaders {
				assert.Equal(t, h.Value, w.Header().Get(h.Name), h.Name)
			}
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
			assert.NotEmpty(t, w.Header().Get(httputil.RequestIDHeader))
		})
	}
}

func TestHandler_Preflight(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.CORSOrigin = "https://app.example.com"
	a, err := New(context.Background(), cfg, testLogger(nil), opener(&fakeStore{}))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/items", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestHandler_PayloadTooLarge(t *testing.T) {
	store := &fakeStore{}
	a, err := New(context.Background(), testConfig(), testLogger(nil), opener(store))
	require.NoError(t, err)

	body := `{"name":"` + strings.Repeat("a", 200*1024) + `"}`
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"payload_too_large"}`, w.Body.String())
	assert.Empty(t, store.items)
}

func TestHandler_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.MetricsEnabled = false
	a, err := New(context.Background(), cfg, testLogger(nil), opener(&fakeStore{}))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":"widget"}`)))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandler_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.01, Burst: 2}
	a, err := New(context.Background(), cfg, testLogger(nil), opener(&fakeStore{}))
	require.NoError(t, err)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/time", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "itemsapi_rate_limit_rejects_total 1")
}

func serve(t *testing.T, a *App) (string, context.CancelFunc, <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	return "http://" + ln.Addr().String(), cancel, done
}

func TestServe_GracefulShutdown(t *testing.T) {
	store := &fakeStore{}
	a, err := New(context.Background(), testConfig(), testLogger(nil), opener(store))
	require.NoError(t, err)

	baseURL, cancel, done := serve(t, a)

	resp, err := http.Get(baseURL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.Equal(t, 1, store.closeCount())

	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, 1, store.closeCount(), "store is closed exactly once")

	_, err = http.Get(baseURL + "/healthz")
	assert.Error(t, err, "listener is closed after shutdown")
}

func TestServe_CloseErrorDoesNotFail(t *testing.T) {
	var logs bytes.Buffer
	store := &fakeStore{closeErr: errors.New("disconnect: connection reset")}
	a, err := New(context.Background(), testConfig(), testLogger(&logs), opener(store))
	require.NoError(t, err)

	_, cancel, done := serve(t, a)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.Equal(t, 1, store.closeCount())
	assert.Contains(t, logs.String(), "connection reset")
}

func TestRun_ListenFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	cfg := testConfig()
	_, port, err := net.SplitHostPort(occupied.Addr().String())
	require.NoError(t, err)
	cfg.Server.Port = port

	store := &fakeStore{}
	a, err := New(context.Background(), cfg, testLogger(nil), opener(store))
	require.NoError(t, err)

	err = a.Run(context.Background())
	assert.ErrorContains(t, err, "failed to listen")
	assert.Equal(t, 1, store.closeCount())
}

func TestNew_InterruptedWhileConnecting(t *testing.T) {
	var logs bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())

	a, err := New(ctx, testConfig(), testLogger(&logs), WithStoreOpener(
		func(ctx context.Context, cfg storage.Config) (storage.ItemStore, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}))

	assert.Nil(t, a)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, logs.String(), "Failed to connect to MongoDB")
	assert.Contains(t, logs.String(), "Shutdown requested while connecting to MongoDB")
}

func TestNew_UnreachableIsNotInterrupted(t *testing.T) {
	_, err := New(context.Background(), testConfig(), testLogger(nil), WithStoreOpener(
		func(ctx context.Context, cfg storage.Config) (storage.ItemStore, error) {
			return nil, context.DeadlineExceeded
		}))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInterrupted)
}

func TestServe_SIGTERM(t *testing.T) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := &fakeStore{}
	a, err := New(ctx, testConfig(), testLogger(nil), opener(store))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after SIGTERM")
	}
	assert.Equal(t, 1, store.closeCount())
}

func TestServe_CancelledBeforeServe(t *testing.T) {
	store := &fakeStore{}
	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, testConfig(), testLogger(nil), opener(store))
	require.NoError(t, err)
	cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	select {
	case err := <-serveAsync(ctx, a, ln):
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return for a cancelled context")
	}
	assert.Equal(t, 1, store.closeCount())
}

func serveAsync(ctx context.Context, a *App, ln net.Listener) <-chan error {
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()
	return done
}
