package admin

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/miretia/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct{ err error }

func (f fakeChecker) Ping(context.Context) error { return f.err }

func newTestRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test counter"})
	reg.MustRegister(c)
	c.Inc()
	return reg
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestHandler_Metrics(t *testing.T) {
	s := NewServer(":0", logging.Nop(), newTestRegistry(t), fakeChecker{}, false)

	code, body := get(t, s.svc.Handler, "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "test_total 1")
}

func TestHandler_Live(t *testing.T) {
	s := NewServer(":0", logging.Nop(), prometheus.NewRegistry(), fakeChecker{err: errors.New("down")}, false)

	code, _ := get(t, s.svc.Handler, "/live")
	assert.Equal(t, http.StatusOK, code)
}

func TestHandler_Ready(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"store up", nil, http.StatusOK},
		{"store down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(":0", logging.Nop(), prometheus.NewRegistry(), fakeChecker{err: tt.err}, false)

			code, body := get(t, s.svc.Handler, "/ready")
			assert.Equal(t, tt.want, code)
			assert.NotContains(t, body, "connection refused")
		})
	}
}

func TestHandler_Pprof(t *testing.T) {
	off := NewServer(":0", logging.Nop(), prometheus.NewRegistry(), fakeChecker{}, false)
	code, _ := get(t, off.svc.Handler, "/debug/pprof/heap")
	assert.Equal(t, http.StatusNotFound, code)

	on := NewServer(":0", logging.Nop(), prometheus.NewRegistry(), fakeChecker{}, true)
	code, _ = get(t, on.svc.Handler, "/debug/pprof/")
	assert.Equal(t, http.StatusOK, code)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	s := NewServer(":0", logging.Nop(), prometheus.NewRegistry(), fakeChecker{}, false)

	rec := httptest.NewRecorder()
	s.svc.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/live", strings.NewReader("")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", logging.Nop(), prometheus.NewRegistry(), fakeChecker{}, false)
	assert.Equal(t, "127.0.0.1:0", s.BindAddress())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("admin server did not stop")
	}
}

func TestRun_BadAddress(t *testing.T) {
	s := NewServer("127.0.0.1:99999", logging.Nop(), prometheus.NewRegistry(), fakeChecker{}, false)
	require.Error(t, s.Run(context.Background()))
}
