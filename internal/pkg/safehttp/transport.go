// Package safehttp provides an HTTP client for fetching user-supplied URLs
// that refuses to connect to private, loopback or link-local addresses.
package safehttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrDenied is returned when a connection resolves to a refused address.
var ErrDenied = errors.New("access to private address denied")

// IsDenied reports whether ip is in a range the safe transport refuses.
func IsDenied(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// NewTransport returns a transport that checks the connected remote address.
// allowPrivate disables the check, which tests against local servers need.
func NewTransport(allowPrivate bool) *http.Transport {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &http.Transport{
		Proxy: nil,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil || allowPrivate {
				return conn, err
			}

			host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
			ip := net.ParseIP(host)
			if ip == nil {
				conn.Close()
				return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
			}

			if IsDenied(ip) {
				conn.Close()
				return nil, fmt.Errorf("%w: %s", ErrDenied, ip)
			}

			return conn, nil
		},
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   2,
	}
}

// NewClient returns a client over NewTransport with an overall timeout.
func NewClient(timeout time.Duration, allowPrivate bool) *http.Client {
	return &http.Client{
		Transport: NewTransport(allowPrivate),
		Timeout:   timeout,
	}
}
