package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

// PooledClient is the default primitive: a shared net/http client that
// reuses connections across calls.
type PooledClient struct {
	name   string
	client *http.Client
}

// NewPooledClient builds a client whose dial, TLS handshake and response
// header waits are all bounded by timeout.
func NewPooledClient(timeout time.Duration) *PooledClient {
	return newPooledClient("pooled", timeout)
}

// NewProbeClient is a PooledClient with its own connection pool, used for
// the unauthenticated pre-flight request.
func NewProbeClient(timeout time.Duration) *PooledClient {
	return newPooledClient("probe", timeout)
}

func newPooledClient(name string, timeout time.Duration) *PooledClient {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	return &PooledClient{
		name: name,
		client: &http.Client{
			Transport: tr,
			Timeout:   timeout,
		},
	}
}

func (p *PooledClient) Name() string {
	return p.name
}

func (p *PooledClient) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, &NetError{Primitive: p.name, Kind: KindMalformed, Err: err}
	}
	httpReq.Header = cloneHeader(req.Header)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, newNetError(p.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, newNetError(p.name, err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
