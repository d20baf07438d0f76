package services

import (
	"net"
	"strings"

	"sentryfw/system"
)

// Whitelist is an immutable set of addresses and CIDR ranges that are never
// tracked, classified or blocked. Safe for concurrent reads after
// construction; there is no mutation path.
type Whitelist struct {
	exact map[string]struct{}
	nets  []*net.IPNet
}

// NewWhitelist builds a whitelist from exact IPs and CIDR entries. A CIDR
// entry covers every address it contains, not just the literal string.
// Unparseable entries are logged and skipped rather than aborting startup.
func NewWhitelist(entries []string) *Whitelist {
	w := &Whitelist{exact: make(map[string]struct{})}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, ipnet, err := net.ParseCIDR(entry)
			if err != nil {
				system.Warn("Ignoring invalid whitelist entry %q: %v", entry, err)
				continue
			}
			w.nets = append(w.nets, ipnet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			system.Warn("Ignoring invalid whitelist entry %q", entry)
			continue
		}
		w.exact[ip.String()] = struct{}{}
	}

	return w
}

// Contains reports whether the address is whitelisted.
func (w *Whitelist) Contains(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	if _, ok := w.exact[ip.String()]; ok {
		return true
	}
	for _, ipnet := range w.nets {
		if ipnet.Contains(ip) {
			return true
		}
	}
	return false
}

// Size returns the number of configured entries.
func (w *Whitelist) Size() int {
	return len(w.exact) + len(w.nets)
}
