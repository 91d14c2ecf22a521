package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/proxy"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/service"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
	"github.com/BrandonDHaskell/camrelay/internal/metrics"
)

const serviceName = "camrelay"

type Dependencies struct {
	Logger        *zap.Logger
	Addr          string
	DeviceService *service.DeviceService
	Gateway       *proxy.Gateway
	Mailbox       *service.MailboxService
	Sessions      store.RelaySessionStore
	Metrics       *metrics.Metrics // optional; nil disables /metrics

	// PublicBaseURL prefixes stream_url in registration replies. Empty
	// derives it from the request.
	PublicBaseURL string
	MaxBodyBytes  int64

	// StartedAt and Now feed the uptime reported on GET /. Now defaults to
	// the wall clock.
	StartedAt time.Time
	Now       func() time.Time
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux

	devices       *service.DeviceService
	gateway       *proxy.Gateway
	mailbox       *service.MailboxService
	sessions      store.RelaySessionStore
	publicBaseURL string
	maxBodyBytes  int64
	startedAt     time.Time
	now           func() time.Time
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	now := d.Now
	if now == nil {
		now = time.Now
	}
	startedAt := d.StartedAt
	if startedAt.IsZero() {
		startedAt = now()
	}
	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	s := &Server{
		logger:        d.Logger,
		mux:           mux,
		devices:       d.DeviceService,
		gateway:       d.Gateway,
		mailbox:       d.Mailbox,
		sessions:      d.Sessions,
		publicBaseURL: strings.TrimRight(d.PublicBaseURL, "/"),
		maxBodyBytes:  maxBody,
		startedAt:     startedAt,
		now:           now,
	}

	mux.HandleFunc("GET /{$}", s.handleStatus)

	mux.HandleFunc("POST /api/devices/register", s.handleRegister)
	mux.HandleFunc("POST /api/devices/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("GET /api/devices", s.handleListDevices)
	mux.HandleFunc("GET /api/devices/{device_id}", s.handleGetDevice)

	mux.HandleFunc("GET /stream/{device_id}", s.handleStream)
	mux.HandleFunc("GET /capture/{device_id}", s.handleCapture)
	mux.HandleFunc("GET /api/relays", s.handleListRelays)
	mux.HandleFunc("GET /api/relays/active", s.handleActiveRelays)

	mux.HandleFunc("POST /api/device/{device_id}/command", s.handleSetCommand)
	mux.HandleFunc("GET /api/device/{device_id}/command", s.handleGetCommand)
	mux.HandleFunc("POST /api/device/{device_id}/camera", s.handlePushFrame)
	mux.HandleFunc("GET /api/device/{device_id}/camera", s.handleGetFrame)

	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	handler := loggingMiddleware(d.Logger, corsMiddleware(mux))

	// No WriteTimeout: stream relays stay open for as long as the client
	// watches.
	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          zap.NewStdLog(d.Logger.Named("http")),
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start listens on the configured address. It returns nil after Shutdown
// or Close.
func (s *Server) Start() error {
	return s.ignoreClosed(s.httpServer.ListenAndServe())
}

func (s *Server) Serve(lis net.Listener) error {
	return s.ignoreClosed(s.httpServer.Serve(lis))
}

// Shutdown stops accepting connections and waits for in-flight requests,
// relays included, until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Close drops every remaining connection, which cancels open relays.
func (s *Server) Close() error {
	return s.httpServer.Close()
}

func (s *Server) ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.devices.Count(r.Context())
	if err != nil {
		s.internalError(w, "count devices", err)
		return
	}
	writeJSON(w, http.StatusOK, types.ServiceStatus{
		Status:  "running",
		Service: serviceName,
		Devices: count,
		Uptime:  s.now().Sub(s.startedAt).Seconds(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	asProto := isProtobuf(r)
	if asProto {
		if !s.readProto(w, r, func(b []byte) error { return decodeRegisterRequest(b, &req) }) {
			return
		}
	} else if !s.readJSON(w, r, &req) {
		return
	}

	resp, err := s.devices.Register(r.Context(), req, s.baseURL(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidDeviceID) {
			writeError(w, http.StatusBadRequest, "invalid_device_id", err.Error())
			return
		}
		s.internalError(w, "register", err)
		return
	}

	s.logger.Info("device registered",
		zap.String("device_id", resp.DeviceID),
		zap.String("local_ip", req.LocalIP),
	)

	if asProto {
		writeProto(w, http.StatusOK, encodeRegisterResponse(resp))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req types.HeartbeatRequest
	asProto := isProtobuf(r)
	if asProto {
		if !s.readProto(w, r, func(b []byte) error { return decodeHeartbeatRequest(b, &req) }) {
			return
		}
	} else if !s.readJSON(w, r, &req) {
		return
	}

	resp, err := s.devices.Heartbeat(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDeviceID):
			writeError(w, http.StatusBadRequest, "invalid_device_id", err.Error())
		case errors.Is(err, service.ErrDeviceNotFound):
			writeError(w, http.StatusNotFound, "device_not_found", "Device not registered")
		default:
			s.internalError(w, "heartbeat", err)
		}
		return
	}

	if asProto {
		writeProto(w, http.StatusOK, encodeHeartbeatResponse(resp))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	view, err := s.devices.Describe(r.Context(), r.PathValue("device_id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDeviceID):
			writeError(w, http.StatusBadRequest, "invalid_device_id", err.Error())
		case errors.Is(err, service.ErrDeviceNotFound):
			writeError(w, http.StatusNotFound, "device_not_found", "Device not found")
		default:
			s.internalError(w, "describe", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	views, err := s.devices.ListAll(r.Context())
	if err != nil {
		s.internalError(w, "list devices", err)
		return
	}
	writeJSON(w, http.StatusOK, types.DeviceListResponse{Total: len(views), Devices: views})
}

// baseURL is the relay origin as the registering device sees it.
func (s *Server) baseURL(r *http.Request) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); p != "" {
		scheme = p
	}
	host := r.Host
	if h := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); h != "" {
		host = h
	}
	return scheme + "://" + host
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
}
