package core

import (
	"fmt"
	"net"
	"strings"
)

// Resolver performs forward and reverse name lookups. Both may fail.
type Resolver interface {
	LookupIP(host string) (net.IP, error)
	LookupName(ip net.IP) (string, error)
}

// SystemResolver resolves names through the operating system resolver.
type SystemResolver struct{}

// NewSystemResolver creates a SystemResolver.
func NewSystemResolver() *SystemResolver {
	return &SystemResolver{}
}

// LookupIP resolves host to an IPv4 address.
func (r *SystemResolver) LookupIP(host string) (net.IP, error) {
	ipaddr, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return nil, err
	}

	if !isIPv4(ipaddr.IP) {
		return nil, fmt.Errorf("address %s of %s is not an IPv4 address", ipaddr.IP, host)
	}

	return ipaddr.IP.To4(), nil
}

// LookupName returns the first name registered for ip.
func (r *SystemResolver) LookupName(ip net.IP) (string, error) {
	names, err := net.LookupAddr(ip.String())
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no names registered for %s", ip)
	}

	return strings.TrimSuffix(names[0], "."), nil
}

// resolveTarget performs the forward lookup of a probing target.
func resolveTarget(resolver Resolver, target string) (net.IP, error) {
	ip, err := resolver.LookupIP(target)
	if err != nil {
		return nil, fmt.Errorf("error while resolving address %s: %w", target, err)
	}

	return ip, nil
}
