package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/store"
)

const defaultCaptureContentType = "image/jpeg"

// Capture fetches a single frame from the device and writes it to w in one
// piece. Nothing is written to w when an error is returned.
func (g *Gateway) Capture(w http.ResponseWriter, r *http.Request, deviceID string) (err error) {
	s := g.begin(deviceID, store.RelayCapture)
	defer func() { g.finish(r.Context(), s, err) }()

	target, err := g.resolve(r.Context(), deviceID, "/capture")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.CaptureTimeout)
	defer cancel()
	timedOut := func() bool { return errors.Is(ctx.Err(), context.DeadlineExceeded) }

	resp, err := g.connect(ctx, target, timedOut)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.cfg.CaptureMaxBytes+1))
	if err != nil {
		if r.Context().Err() != nil {
			s.clientGone = true
			return nil
		}
		if timedOut() {
			return fmt.Errorf("%w: %s timed out", ErrUpstreamUnavailable, target)
		}
		return fmt.Errorf("%w: read capture: %v", ErrUpstreamUnavailable, err)
	}
	if int64(len(body)) > g.cfg.CaptureMaxBytes {
		return fmt.Errorf("%w: capture larger than %d bytes", ErrUpstreamUnavailable, g.cfg.CaptureMaxBytes)
	}

	h := w.Header()
	h.Set("Content-Type", captureContentType(resp.Header.Get("Content-Type")))
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	n, werr := w.Write(body)
	s.rec.Bytes = int64(n)
	if werr != nil {
		s.clientGone = true
	}
	return nil
}

func captureContentType(upstream string) string {
	mediaType, _, err := mime.ParseMediaType(upstream)
	if err == nil && strings.HasPrefix(mediaType, "image/") {
		return upstream
	}
	return defaultCaptureContentType
}
