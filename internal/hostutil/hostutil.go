// Package hostutil normalizes backend addresses given on the command line
// and decides when plain HTTP is acceptable.
package hostutil

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Normalize turns what a user types for --base-url into a URL. A scheme is
// added when missing: http for loopback hosts, https for everything else.
// The path is kept ("erp.example.co.id/api") and a trailing slash dropped.
func Normalize(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if !strings.Contains(addr, "://") {
		host, _, _ := strings.Cut(addr, "/")
		if IsLocal(host) {
			addr = "http://" + addr
		} else {
			addr = "https://" + addr
		}
	}
	return strings.TrimSuffix(addr, "/")
}

// IsLocal reports whether host, with or without a port, names this
// machine: localhost, a *.localhost name, or a loopback IP.
func IsLocal(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	host = strings.ToLower(host)

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// RequireSecure rejects plain-HTTP base URLs that point off this machine,
// where a password or token would travel unencrypted.
func RequireSecure(baseURL string) error {
	if baseURL == "" {
		return nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "http" && !IsLocal(u.Host) {
		return fmt.Errorf("refusing to send credentials to %s over plain http", u.Host)
	}
	return nil
}
