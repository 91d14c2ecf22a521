package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/camrelay/internal/camrelay/types"
)

// maxProtoBody caps protobuf request bodies. Registration and heartbeat
// messages from the camera firmware are well under 1 KiB.
const maxProtoBody = 4096

const protobufContentType = "application/x-protobuf"

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload.
func isProtobuf(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	switch mediaType {
	case protobufContentType, "application/protobuf", "application/octet-stream":
		return true
	}
	return false
}

// readProto reads the bounded request body and hands it to decode. On
// failure it has already answered and returns false.
func (s *Server) readProto(w http.ResponseWriter, r *http.Request, decode func([]byte) error) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxProtoBody))
	if err == nil {
		err = decode(body)
	}
	if err != nil {
		s.badBody(w, err, "bad_protobuf", "invalid protobuf body")
		return false
	}
	return true
}

// writeProto writes an encoded message with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", protobufContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

var errBadWireType = errors.New("unexpected wire type")

// RegisterRequest{1: device_id, 2: local_ip, 3: status}
func decodeRegisterRequest(b []byte, req *types.RegisterRequest) error {
	return decodeStrings(b, map[protowire.Number]*string{
		1: &req.DeviceID,
		2: &req.LocalIP,
		3: &req.Status,
	})
}

// HeartbeatRequest{1: device_id, 2: status}
func decodeHeartbeatRequest(b []byte, req *types.HeartbeatRequest) error {
	return decodeStrings(b, map[protowire.Number]*string{
		1: &req.DeviceID,
		2: &req.Status,
	})
}

// decodeStrings fills the string fields named in dst and skips every
// other field. A repeated field keeps its last value.
func decodeStrings(b []byte, dst map[protowire.Number]*string) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		target, known := dst[num]
		if !known {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if typ != protowire.BytesType {
			return fmt.Errorf("field %d: %w %d", num, errBadWireType, typ)
		}
		v, n := protowire.ConsumeString(b)
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		*target = v
		b = b[n:]
	}
	return nil
}

// RegisterResponse{1: success, 2: device_id, 3: stream_url, 4: message}
func encodeRegisterResponse(r types.RegisterResponse) []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	b = appendString(b, 2, r.DeviceID)
	b = appendString(b, 3, r.StreamURL)
	b = appendString(b, 4, r.Message)
	return b
}

// HeartbeatResponse{1: success, 2: message}
func encodeHeartbeatResponse(r types.HeartbeatResponse) []byte {
	var b []byte
	b = appendBool(b, 1, r.Success)
	b = appendString(b, 2, r.Message)
	return b
}

// Zero values are omitted, as proto3 does.
func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}
