package httputil

import (
	"fmt"
	"net"
)

type lookupFunc func(host string) ([]net.IP, error)

// ValidateIP rejects addresses a public download redirect must never reach:
// private (RFC 1918), loopback, link-local unicast and multicast (which
// covers cloud metadata endpoints), multicast and unspecified.
// host is used in error messages.
func ValidateIP(ip net.IP, host string) error {
	var kind string
	switch {
	case ip.IsPrivate():
		kind = "private IP"
	case ip.IsLoopback():
		kind = "loopback IP"
	case ip.IsLinkLocalUnicast():
		kind = "link-local IP"
	case ip.IsLinkLocalMulticast():
		kind = "link-local multicast"
	case ip.IsMulticast():
		kind = "multicast IP"
	case ip.IsUnspecified():
		kind = "unspecified IP"
	default:
		return nil
	}
	return fmt.Errorf("refusing redirect to %s: %s (%s)", kind, host, ip)
}

// validateHost checks a literal IP directly, or every address a hostname
// resolves to (DNS rebinding).
func validateHost(host string, lookup lookupFunc) error {
	if ip := net.ParseIP(host); ip != nil {
		return ValidateIP(ip, host)
	}

	ips, err := lookup(host)
	if err != nil {
		return fmt.Errorf("failed to resolve redirect host %s: %w", host, err)
	}
	for _, ip := range ips {
		if err := ValidateIP(ip, host); err != nil {
			return fmt.Errorf("refusing redirect: %s resolves to blocked IP %s", host, ip)
		}
	}
	return nil
}
