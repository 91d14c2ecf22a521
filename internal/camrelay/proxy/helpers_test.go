package proxy_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/proxy"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/service"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store/memory"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
	"github.com/BrandonDHaskell/camrelay/internal/metrics"
	"github.com/BrandonDHaskell/camrelay/internal/testutil"
)

const onlineWindow = 120 * time.Second

type fixture struct {
	clock    *testutil.Clock
	devices  *service.DeviceService
	sessions *memory.RelaySessionStore
	metrics  *metrics.Metrics
	gateway  *proxy.Gateway
}

func newFixture(t *testing.T, cfg proxy.Config) *fixture {
	t.Helper()
	clock := testutil.NewClock()
	devices := service.NewDeviceService(memory.NewDeviceStore(), onlineWindow, clock.Now)
	sessions := memory.NewRelaySessionStore()
	m := metrics.New()
	return &fixture{
		clock:    clock,
		devices:  devices,
		sessions: sessions,
		metrics:  m,
		gateway: proxy.NewGateway(proxy.Dependencies{
			Devices:  devices,
			Sessions: sessions,
			Logger:   testutil.Logger(t),
			Metrics:  m,
			Config:   cfg,
		}),
	}
}

// register points deviceID at the given upstream test server.
func (f *fixture) register(t *testing.T, deviceID string, upstream *httptest.Server) {
	t.Helper()
	addr := store.UnknownAddress
	if upstream != nil {
		addr = strings.TrimPrefix(upstream.URL, "http://")
	}
	_, err := f.devices.Register(context.Background(), types.RegisterRequest{
		DeviceID: deviceID,
		LocalIP:  addr,
	}, "http://relay.test")
	require.NoError(t, err)
}

// server exposes the gateway the way the HTTP layer does.
func (f *fixture) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	relay := func(fn func(http.ResponseWriter, *http.Request, string) error) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			err := fn(w, r, r.PathValue("id"))
			switch {
			case err == nil:
			case errors.Is(err, proxy.ErrRelayAborted):
				panic(http.ErrAbortHandler)
			case errors.Is(err, proxy.ErrDeviceNotFound):
				http.Error(w, err.Error(), http.StatusNotFound)
			default:
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
			}
		}
	}
	mux.HandleFunc("GET /stream/{id}", relay(f.gateway.Stream))
	mux.HandleFunc("GET /capture/{id}", relay(f.gateway.Capture))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// lastSession waits for the session log to hold n records and returns the
// newest one.
func (f *fixture) lastSession(t *testing.T, n int) store.RelaySessionRecord {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.sessions.Sessions()) >= n
	}, 2*time.Second, 10*time.Millisecond)
	all := f.sessions.Sessions()
	return all[len(all)-1]
}
