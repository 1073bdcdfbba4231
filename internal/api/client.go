// Package api is a typed client for the remote pet-adoption REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pet-adoption-portal/internal/obs"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBody        = 1 << 20
)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *zap.Logger
	Metrics   *obs.Metrics
}

// Client is safe for concurrent use. WithToken derives per-session copies
// that share the underlying http.Client.
type Client struct {
	http    *http.Client
	base    string
	token   string
	log     *zap.Logger
	metrics *obs.Metrics
}

func New(cfg Config) (*Client, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("api: invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	tr := cfg.Transport
	if tr == nil {
		tr = http.DefaultTransport
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout, Transport: tr},
		base:    strings.TrimRight(u.String(), "/"),
		log:     log.Named("api"),
		metrics: cfg.Metrics,
	}, nil
}

// WithToken returns a copy that sends Authorization: Bearer token. An empty
// token sends no header.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: %s: marshal: %w", op, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.send(ctx, op, method, path, contentType, body, out)
}

// Part is one multipart file upload.
type Part struct {
	Filename    string
	ContentType string
	Data        []byte
}

type field struct {
	name        string
	value       []byte
	contentType string
	filename    string
}

func (c *Client) doMultipart(ctx context.Context, op, method, path string, fields []field, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		h := make(textproto.MIMEHeader)
		disp := fmt.Sprintf(`form-data; name=%q`, f.name)
		if f.filename != "" {
			disp += fmt.Sprintf(`; filename=%q`, f.filename)
		}
		h.Set("Content-Disposition", disp)
		if f.contentType != "" {
			h.Set("Content-Type", f.contentType)
		}
		pw, err := w.CreatePart(h)
		if err != nil {
			return fmt.Errorf("api: %s: multipart: %w", op, err)
		}
		if _, err := pw.Write(f.value); err != nil {
			return fmt.Errorf("api: %s: multipart: %w", op, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("api: %s: multipart: %w", op, err)
	}
	return c.send(ctx, op, method, path, w.FormDataContentType(), &buf, out)
}

func (c *Client) send(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("api: %s: new request: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := c.log.With(zap.String("op", op), zap.String("request_id", reqID))
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(op, "transport", time.Since(start))
		log.Error("upstream call failed", zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrTransport, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		c.metrics.ObserveUpstream(op, "transport", time.Since(start))
		log.Error("read upstream body", zap.Error(err))
		return fmt.Errorf("%w: %s: read body: %w", ErrTransport, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.ObserveUpstream(op, "rejected", time.Since(start))
		apiErr := newError(op, resp.StatusCode, raw)
		log.Warn("upstream rejected", zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return apiErr
	}
	c.metrics.ObserveUpstream(op, "ok", time.Since(start))
	log.Debug("upstream ok", zap.Int("status", resp.StatusCode), zap.Duration("took", time.Since(start)))

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if s, ok := out.(*string); ok && !json.Valid(raw) {
		*s = string(raw)
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Join(ErrDecode, fmt.Errorf("api: %s: %w", op, err))
	}
	return nil
}
