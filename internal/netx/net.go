// Package netx classifies low-level network failures so callers can branch
// on a kind instead of matching error text.
package netx

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
)

// Kind is a coarse class of network failure.
type Kind string

const (
	KindNone    Kind = ""
	KindTimeout Kind = "timeout"
	KindRefused Kind = "refused"
	KindDNS     Kind = "dns"
	KindOther   Kind = "other"
)

// Classify maps err to a Kind. A nil error is KindNone.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindRefused
	}

	return KindOther
}
