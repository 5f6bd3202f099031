// Package security validates the URLs the pipeline fetches.
//
// Search results and collected link lists are untrusted input: a crafted
// result pointing at a private address would otherwise let the fetcher
// probe the local network (SSRF). The validator blocks private ranges,
// loopback, link-local and cloud metadata targets, and rechecks resolved
// IPs at dial time so DNS rebinding cannot bypass the static check.
package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxRedirects bounds redirect chains on fetched pages.
const maxRedirects = 10

// URL validates fetch targets.
type URL struct {
	allowedSchemes map[string]struct{}
	blockedHosts   map[string]struct{}
}

// NewURL creates a validator with the default blocklist.
func NewURL() *URL {
	return &URL{
		allowedSchemes: map[string]struct{}{
			"http":  {},
			"https": {},
		},
		blockedHosts: map[string]struct{}{
			"localhost":                {},
			"metadata.google.internal": {},
			"metadata.gce.internal":    {},
			"metadata.internal":        {},
		},
	}
}

// Validate statically checks that a URL is safe to fetch. Hostnames pass
// here and are rechecked against their resolved IPs in SafeTransport.
func (v *URL) Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if _, ok := v.allowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("unsupported scheme %q (allowed: http, https)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty hostname")
	}
	return v.validateHost(host)
}

func (v *URL) validateHost(host string) error {
	if _, blocked := v.blockedHosts[strings.ToLower(host)]; blocked {
		return fmt.Errorf("blocked host: %s", host)
	}
	if ip := net.ParseIP(host); ip != nil {
		return v.checkIP(ip)
	}
	return nil
}

func (v *URL) checkIP(ip net.IP) error {
	// Normalize IPv6-mapped IPv4 (::ffff:127.0.0.1 -> 127.0.0.1).
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("loopback address not allowed: %s", ip)
	case ip.IsPrivate():
		return fmt.Errorf("private IP not allowed: %s", ip)
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return fmt.Errorf("link-local address not allowed: %s", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified address not allowed: %s", ip)
	}
	return nil
}

// SafeTransport returns a transport that validates resolved IP addresses
// before connecting, closing the DNS-rebinding gap Validate cannot cover.
func (v *URL) SafeTransport() *http.Transport {
	return &http.Transport{
		DialContext:         v.safeDialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

func (v *URL) safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		port = ""
	}

	if ip := net.ParseIP(host); ip != nil {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("fetch blocked: %w", err)
		}
		return (&net.Dialer{}).DialContext(ctx, network, addr)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed: %w", err)
	}
	for _, ip := range ips {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("fetch blocked (%s resolved to %s): %w", host, ip, err)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("no IP addresses resolved for %s", host)
	}

	// Dial the validated IP directly to avoid a second, unchecked
	// resolution.
	target := ips[0].String()
	if port != "" {
		target = net.JoinHostPort(target, port)
	}
	return (&net.Dialer{}).DialContext(ctx, network, target)
}

// ValidateRedirect is an http.Client CheckRedirect function that applies the
// same validation to every redirect target.
func (v *URL) ValidateRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return v.Validate(req.URL.String())
}
