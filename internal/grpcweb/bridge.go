// Package grpcweb lets browsers reach the portal gRPC service over HTTP/1.1.
// Frames are forwarded byte for byte to the gRPC server; only the binary
// grpc-web encoding is supported.
package grpcweb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	maxFrame     = 4 << 20
	flagData     = 0x00
	flagTrailers = 0x80
)

// forwarded request headers, as gRPC metadata keys.
var forwarded = []string{"authorization", "x-request-id"}

type Bridge struct {
	conn *grpc.ClientConn
	log  *zap.Logger
}

// New connects to the gRPC server at target. Extra dial options are appended
// after the insecure transport credentials.
func New(target string, log *zap.Logger, opts ...grpc.DialOption) (*Bridge, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpcweb dial: %w", err)
	}
	return &Bridge{conn: conn, log: log.Named("grpcweb")}, nil
}

func (b *Bridge) Close() error { return b.conn.Close() }

func (b *Bridge) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Grpc-Web, X-User-Agent, Authorization, X-Request-Id")
		h.Set("Access-Control-Expose-Headers", "Grpc-Status, Grpc-Message")
		h.Set("Access-Control-Max-Age", "86400")

		switch {
		case r.Method == http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
		case r.Method != http.MethodPost:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		case !isGRPCWeb(r.Header.Get("Content-Type")):
			http.Error(w, "not grpc-web", http.StatusUnsupportedMediaType)
		default:
			b.forward(w, r)
		}
	})
}

func isGRPCWeb(ct string) bool {
	ct = strings.ToLower(ct)
	return ct == "application/grpc-web" || strings.HasPrefix(ct, "application/grpc-web+proto")
}

func (b *Bridge) forward(w http.ResponseWriter, r *http.Request) {
	payload, err := readFrame(r.Body)
	if err != nil {
		writeStatus(w, status.New(codes.InvalidArgument, err.Error()))
		return
	}

	md := metadata.MD{}
	for _, k := range forwarded {
		if vals := r.Header.Values(k); len(vals) > 0 {
			md.Set(k, vals...)
		}
	}
	ctx := metadata.NewOutgoingContext(r.Context(), md)

	out := &rawMsg{}
	err = b.conn.Invoke(ctx, r.URL.Path, &rawMsg{data: payload}, out, grpc.ForceCodec(rawCodec{}))
	if err != nil {
		st := status.Convert(err)
		b.log.Debug("call failed", zap.String("method", r.URL.Path), zap.Stringer("code", st.Code()))
		writeStatus(w, st)
		return
	}
	w.Header().Set("Content-Type", "application/grpc-web+proto")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame(flagData, out.data))
	_, _ = w.Write(trailers(status.New(codes.OK, "")))
}

// readFrame returns the message of the single data frame in body.
func readFrame(body io.Reader) ([]byte, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(body, hdr[:]); err != nil {
		return nil, fmt.Errorf("body too short")
	}
	if hdr[0]&flagTrailers != 0 {
		return nil, fmt.Errorf("unexpected trailer frame")
	}
	n := binary.BigEndian.Uint32(hdr[1:])
	if n > maxFrame {
		return nil, fmt.Errorf("frame too large")
	}
	msg := make([]byte, n)
	if _, err := io.ReadFull(body, msg); err != nil {
		return nil, fmt.Errorf("incomplete frame")
	}
	return msg, nil
}

func frame(flag byte, data []byte) []byte {
	f := make([]byte, 5+len(data))
	f[0] = flag
	binary.BigEndian.PutUint32(f[1:5], uint32(len(data)))
	copy(f[5:], data)
	return f
}

func trailers(st *status.Status) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "grpc-status:%d\r\n", st.Code())
	if msg := st.Message(); msg != "" {
		fmt.Fprintf(&buf, "grpc-message:%s\r\n", encodeMessage(msg))
	}
	return frame(flagTrailers, buf.Bytes())
}

// writeStatus answers with a trailers-only response.
func writeStatus(w http.ResponseWriter, st *status.Status) {
	w.Header().Set("Content-Type", "application/grpc-web+proto")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(trailers(st))
}

// encodeMessage percent-encodes grpc-message as the gRPC wire format requires.
func encodeMessage(msg string) string {
	var sb strings.Builder
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c >= 0x20 && c <= 0x7e && c != '%' {
			sb.WriteByte(c)
			continue
		}
		fmt.Fprintf(&sb, "%%%02X", c)
	}
	return sb.String()
}

type rawMsg struct{ data []byte }

// rawCodec hands bytes through untouched.
type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) { return v.(*rawMsg).data, nil }

func (rawCodec) Unmarshal(data []byte, v any) error {
	v.(*rawMsg).data = append([]byte(nil), data...)
	return nil
}

func (rawCodec) Name() string { return "raw" }
