package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
	"github.com/BrandonDHaskell/camrelay/internal/metrics"
)

const (
	defaultStreamTimeout   = 30 * time.Second
	defaultCaptureTimeout  = 10 * time.Second
	defaultCaptureMaxBytes = 8 << 20

	recordTimeout = 2 * time.Second
)

// DeviceResolver finds a device's record and whether it is online.
type DeviceResolver interface {
	Resolve(ctx context.Context, deviceID string) (store.DeviceRecord, bool, error)
}

type Config struct {
	// StreamTimeout bounds the wait for upstream response headers and the
	// idle gap between two upstream reads.
	StreamTimeout time.Duration
	// CaptureTimeout bounds the whole capture round trip.
	CaptureTimeout  time.Duration
	CaptureMaxBytes int64
}

type Dependencies struct {
	Devices  DeviceResolver
	Sessions store.RelaySessionStore
	Logger   *zap.Logger
	Metrics  *metrics.Metrics // optional
	Config   Config
	// Client overrides the upstream HTTP client. Tests only.
	Client *http.Client
}

// Gateway proxies /stream and /capture of registered devices.
type Gateway struct {
	devices  DeviceResolver
	sessions store.RelaySessionStore
	logger   *zap.Logger
	metrics  *metrics.Metrics
	cfg      Config
	client   *http.Client

	active atomic.Int64
}

func NewGateway(d Dependencies) *Gateway {
	cfg := d.Config
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = defaultStreamTimeout
	}
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = defaultCaptureTimeout
	}
	if cfg.CaptureMaxBytes <= 0 {
		cfg.CaptureMaxBytes = defaultCaptureMaxBytes
	}

	client := d.Client
	if client == nil {
		client = newUpstreamClient(cfg.StreamTimeout)
	}

	return &Gateway{
		devices:  d.Devices,
		sessions: d.Sessions,
		logger:   d.Logger,
		metrics:  d.Metrics,
		cfg:      cfg,
		client:   client,
	}
}

// newUpstreamClient has no overall timeout: streams are unbounded and each
// relay bounds its own phases.
func newUpstreamClient(dialTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// ActiveRelays is the number of stream relays currently copying bytes.
func (g *Gateway) ActiveRelays() int64 {
	return g.active.Load()
}

// session tracks one relay attempt for the session log.
type session struct {
	rec        store.RelaySessionRecord
	clientGone bool
}

func (g *Gateway) begin(deviceID string, kind store.RelayKind) *session {
	return &session{rec: store.RelaySessionRecord{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}}
}

// finish logs, counts and records the session. It runs on every exit path.
func (g *Gateway) finish(ctx context.Context, s *session, err error) {
	s.rec.EndedAt = time.Now().UTC()
	s.rec.Outcome = outcomeOf(err, s.clientGone)
	if err != nil {
		s.rec.Error = err.Error()
	}

	fields := []zap.Field{
		zap.String("session_id", s.rec.ID),
		zap.String("device_id", s.rec.DeviceID),
		zap.String("kind", string(s.rec.Kind)),
		zap.String("outcome", string(s.rec.Outcome)),
		zap.Int64("bytes", s.rec.Bytes),
		zap.Duration("dur", s.rec.EndedAt.Sub(s.rec.StartedAt)),
	}
	switch s.rec.Outcome {
	case store.OutcomeUpstreamUnavailable, store.OutcomeUpstreamFailed:
		g.logger.Warn("relay failed", append(fields, zap.Error(err))...)
	case store.OutcomeBadRequest, store.OutcomeNotFound, store.OutcomeOffline:
		g.logger.Info("relay refused", append(fields, zap.Error(err))...)
	default:
		g.logger.Debug("relay closed", fields...)
	}

	if g.metrics != nil {
		g.metrics.RelaySessions.WithLabelValues(string(s.rec.Kind), string(s.rec.Outcome)).Inc()
		g.metrics.RelayBytes.WithLabelValues(string(s.rec.Kind)).Add(float64(s.rec.Bytes))
	}

	if g.sessions == nil {
		return
	}
	// The client's context is usually cancelled by now.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if rerr := g.sessions.RecordSession(recCtx, s.rec); rerr != nil {
		g.logger.Warn("record relay session", zap.String("session_id", s.rec.ID), zap.Error(rerr))
	}
}

// resolve is the Resolving state: the device must exist and be online.
func (g *Gateway) resolve(ctx context.Context, deviceID, endpoint string) (*url.URL, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrInvalidDeviceID
	}
	rec, online, err := g.devices.Resolve(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !online {
		return nil, fmt.Errorf("%w: %s last seen %s", ErrDeviceOffline, deviceID, rec.LastSeen.Format(time.RFC3339))
	}
	return upstreamURL(rec.Address, endpoint)
}

// upstreamURL builds http://{address}{endpoint}. Addresses that already
// carry a scheme are kept as the base.
func upstreamURL(address, endpoint string) (*url.URL, error) {
	address = strings.TrimSpace(address)
	if address == "" || address == store.UnknownAddress {
		return nil, fmt.Errorf("%w: device address unknown", ErrUpstreamUnavailable)
	}

	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: bad device address %q", ErrUpstreamUnavailable, address)
	}
	u.Path = strings.TrimRight(u.Path, "/") + endpoint
	u.RawQuery = ""
	return u, nil
}

// connect is the Connecting state. Any transport error or non-2xx status
// becomes ErrUpstreamUnavailable; on success the caller owns resp.Body.
func (g *Gateway) connect(ctx context.Context, target *url.URL, timedOut func() bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if timedOut() {
			return nil, fmt.Errorf("%w: %s timed out", ErrUpstreamUnavailable, target)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s answered %d", ErrUpstreamUnavailable, target, resp.StatusCode)
	}
	return resp, nil
}
