package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/dmitrijs2005/aikea/internal/logging"
)

// DefaultRawUserAgent mimics the command-line client the bucket is known to
// accept.
const DefaultRawUserAgent = "curl/8.5.0"

// RawClient writes the HTTP/1.1 request by hand on a freshly dialed
// connection. Every header that goes on the wire is set explicitly, and the
// full response status line and headers are logged at debug level.
type RawClient struct {
	timeout   time.Duration
	userAgent string
	tlsConfig *tls.Config
	logger    logging.Logger
}

// NewRawClient returns a RawClient. An empty userAgent selects
// DefaultRawUserAgent.
func NewRawClient(timeout time.Duration, userAgent string, logger logging.Logger) *RawClient {
	if userAgent == "" {
		userAgent = DefaultRawUserAgent
	}
	return &RawClient{
		timeout:   timeout,
		userAgent: userAgent,
		logger:    logger.With("primitive", "raw"),
	}
}

// WithTLSConfig sets the TLS settings used for https URLs. Without it the
// system root pool verifies the bucket's certificate.
func (c *RawClient) WithTLSConfig(cfg *tls.Config) *RawClient {
	c.tlsConfig = cfg
	return c
}

func (c *RawClient) Name() string {
	return "raw"
}

func (c *RawClient) Do(ctx context.Context, req *Request) (*Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, &NetError{Primitive: c.Name(), Kind: KindMalformed, Err: err}
	}

	conn, err := c.dial(ctx, u)
	if err != nil {
		return nil, newNetError(c.Name(), err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, newNetError(c.Name(), err)
	}

	w := bufio.NewWriter(conn)
	if err := c.writeRequest(w, u, req); err != nil {
		return nil, newNetError(c.Name(), err)
	}
	if err := w.Flush(); err != nil {
		return nil, newNetError(c.Name(), err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: req.Method})
	if err != nil {
		return nil, newNetError(c.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, newNetError(c.Name(), err)
	}

	c.logResponse(ctx, req, resp)

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (c *RawClient) dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	addr := net.JoinHostPort(host, port)

	d := &net.Dialer{Timeout: c.timeout}
	if u.Scheme != "https" {
		return d.DialContext(ctx, "tcp", addr)
	}

	cfg := c.tlsConfig
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cfg = cfg.Clone()
	cfg.ServerName = host
	td := &tls.Dialer{NetDialer: d, Config: cfg}
	return td.DialContext(ctx, "tcp", addr)
}

func (c *RawClient) writeRequest(w *bufio.Writer, u *url.URL, req *Request) error {
	if _, err := fmt.Fprintf(w, "%s %s HTTP/1.1\r\n", req.Method, u.RequestURI()); err != nil {
		return err
	}

	h := cloneHeader(req.Header)
	h.Set("Host", u.Host)
	h.Set("User-Agent", c.userAgent)
	h.Set("Accept", "*/*")
	h.Set("Connection", "close")
	if req.Body != nil {
		h.Set("Content-Length", strconv.Itoa(len(req.Body)))
	}

	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range h[k] {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	if req.Body != nil {
		if _, err := w.Write(req.Body); err != nil {
			return err
		}
	}
	return nil
}

func (c *RawClient) logResponse(ctx context.Context, req *Request, resp *http.Response) {
	headers := make([]any, 0, 2*len(resp.Header)+6)
	headers = append(headers, "method", req.Method, "url", req.URL, "status", resp.Status)
	for k, v := range resp.Header {
		headers = append(headers, "header."+k, v)
	}
	c.logger.Debug(ctx, "raw response", headers...)
}
