// Package address provides the canonical host:port representation of a
// server location used throughout the topology core.
package address

import (
	"net"
	"strings"
)

// DefaultPort is the port assumed for an address with no explicit port.
const DefaultPort = "27017"

// Address is the location of a mongod/mongos process, either a DNS name or
// an IP address, optionally followed by ":port".
type Address string

// Network returns the dial network for this address: "unix" for a
// filesystem socket path, "tcp" otherwise.
func (a Address) Network() string {
	if strings.HasSuffix(string(a), ".sock") {
		return "unix"
	}
	return "tcp"
}

// Canonicalize lower-cases the address and appends DefaultPort if no port
// is present. Unix socket paths are left untouched beyond lower-casing.
func (a Address) Canonicalize() Address {
	s := strings.ToLower(string(a))
	if s == "" {
		return ""
	}
	if a.Network() != "unix" {
		if _, _, err := net.SplitHostPort(s); err != nil && strings.Contains(err.Error(), "missing port in address") {
			s += ":" + DefaultPort
		}
	}
	return Address(s)
}

func (a Address) String() string {
	return string(a.Canonicalize())
}

// ParseSeedList parses the simple comma-delimited seedlist form
// "host[:port],host[:port],...". Each entry is canonicalized independently;
// a bare host gets DefaultPort. This is intentionally not a full connection
// string parser — that surface is out of scope for the topology core.
func ParseSeedList(s string) []Address {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	addrs := make([]Address, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		addrs = append(addrs, Address(p).Canonicalize())
	}
	return addrs
}
