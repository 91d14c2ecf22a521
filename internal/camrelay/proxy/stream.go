package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
)

const (
	defaultStreamContentType = "multipart/x-mixed-replace; boundary=frame"
	relayBufferSize          = 32 * 1024
)

// Stream relays the device's multipart stream to w until either side
// closes. Errors returned before anything was written leave w untouched so
// the caller can still answer with a status; once the response has started
// the only error returned is ErrRelayAborted.
func (g *Gateway) Stream(w http.ResponseWriter, r *http.Request, deviceID string) (err error) {
	s := g.begin(deviceID, store.RelayStream)
	defer func() { g.finish(r.Context(), s, err) }()

	target, err := g.resolve(r.Context(), deviceID, "/stream")
	if err != nil {
		return err
	}

	// Cancelling ctx closes the upstream connection. It fires when the
	// client goes away, when the watchdog expires, or when Stream returns.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var timedOut atomic.Bool
	watchdog := time.AfterFunc(g.cfg.StreamTimeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer watchdog.Stop()

	resp, err := g.connect(ctx, target, timedOut.Load)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	watchdog.Reset(g.cfg.StreamTimeout)

	g.active.Add(1)
	defer g.active.Add(-1)
	if g.metrics != nil {
		g.metrics.RelayActive.Inc()
		defer g.metrics.RelayActive.Dec()
	}

	h := w.Header()
	h.Set("Content-Type", streamContentType(resp.Header.Get("Content-Type")))
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Now().Add(g.cfg.StreamTimeout))
	_ = rc.Flush()

	n, cerr := copyFlush(w, rc, resp.Body, g.cfg.StreamTimeout, func() { watchdog.Reset(g.cfg.StreamTimeout) })
	s.rec.Bytes = n

	var werr *clientWriteError
	switch {
	case cerr == nil:
		return nil
	case r.Context().Err() != nil, errors.As(cerr, &werr):
		s.clientGone = true
		return nil
	case timedOut.Load():
		return fmt.Errorf("%w: no data from device for %s", ErrRelayAborted, g.cfg.StreamTimeout)
	default:
		return fmt.Errorf("%w: %v", ErrRelayAborted, cerr)
	}
}

// clientWriteError marks a failure on the client side of the relay.
type clientWriteError struct{ err error }

func (e *clientWriteError) Error() string { return "client write: " + e.err.Error() }
func (e *clientWriteError) Unwrap() error { return e.err }

// copyFlush copies src to dst through a fixed buffer, flushing after every
// chunk so frames reach the client as soon as the device sends them. Each
// write and flush must finish within writeTimeout, so a client that stops
// reading fails the copy instead of pinning it. onWritten runs after every
// chunk the client accepted. A clean EOF from src returns nil.
func copyFlush(dst io.Writer, rc *http.ResponseController, src io.Reader, writeTimeout time.Duration, onWritten func()) (int64, error) {
	buf := make([]byte, relayBufferSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			// Writers without deadline support report ErrNotSupported.
			_ = rc.SetWriteDeadline(time.Now().Add(writeTimeout))
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr == nil && wn < n {
				werr = io.ErrShortWrite
			}
			if werr == nil {
				werr = rc.Flush()
			}
			if werr != nil {
				return written, &clientWriteError{err: werr}
			}
			onWritten()
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// streamContentType keeps the device's multipart type, boundary included,
// so the forwarded bytes still parse.
func streamContentType(upstream string) string {
	mediaType, _, err := mime.ParseMediaType(upstream)
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		return upstream
	}
	return defaultStreamContentType
}
