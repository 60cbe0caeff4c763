package netx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: KindTimeout},
		{name: "os deadline", err: os.ErrDeadlineExceeded, want: KindTimeout},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "bucket.invalid", IsNotFound: true}, want: KindDNS},
		{name: "dns timeout", err: &net.DNSError{Err: "i/o timeout", Name: "bucket.invalid", IsTimeout: true}, want: KindTimeout},
		{name: "plain", err: errors.New("boom"), want: KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassify_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := ts.Listener.Addr().String()
	ts.Close()

	_, err := net.DialTimeout("tcp", addr, time.Second)
	require.Error(t, err)
	assert.Equal(t, KindRefused, Classify(err))
}
