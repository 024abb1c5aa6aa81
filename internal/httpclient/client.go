// Package httpclient builds the outbound HTTP client shared by the
// spreadsheet loader and the cover probe.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds a single spreadsheet or cover request.
const DefaultTimeout = 20 * time.Second

const userAgent = "ebookgrid/1.0 (+https://github.com/lepinkainen/ebookgrid)"

// Doer is satisfied by *http.Client and test doubles.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// New returns a client with the given timeout. When proxyAddr is non-empty
// (host:port, optionally prefixed with socks5://) all traffic is dialed
// through that SOCKS5 proxy.
func New(timeout time.Duration, proxyAddr string) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyAddr = strings.TrimSpace(proxyAddr); proxyAddr != "" {
		addr := strings.TrimPrefix(proxyAddr, "socks5://")
		dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to configure SOCKS5 proxy %s: %w", addr, err)
		}

		transport.Proxy = nil
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, address string) (net.Conn, error) {
				return dialer.Dial(network, address)
			}
		}
	}

	return &http.Client{
		Transport: &uaTransport{base: transport},
		Timeout:   timeout,
	}, nil
}

// uaTransport sets a User-Agent on requests that lack one. Some static
// hosts reject the Go default.
type uaTransport struct {
	base http.RoundTripper
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", userAgent)
	}
	return t.base.RoundTrip(req)
}
