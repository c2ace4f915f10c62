// Package ipv4 is the data model for IPv4 host addresses and
// prefix-delimited networks used throughout CrunchNAT. An Address is a
// plain 32-bit host-byte-order integer; a Network is an (address,
// prefix-length) pair with arithmetic indexed access in place of the
// library-level network indexing spec.md's source relies on (spec.md
// §9 design note).
package ipv4

import (
	"fmt"
	"net"
)

// Address is a 32-bit IPv4 host address in host byte order.
type Address uint32

// ParseAddress parses a dotted-quad string into an Address.
func ParseAddress(s string) (Address, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, fmt.Errorf("ipv4: invalid address %q", s)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("ipv4: %q is not an IPv4 address", s)
	}
	return Address(uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])), nil
}

// String renders the address as a dotted quad.
func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a))
}

// Network is an IPv4 network expressed as its base address and
// prefix length, prefix in [0, 32].
type Network struct {
	base   Address
	prefix int
}

// ParseNetwork parses CIDR notation ("10.0.0.0/16") into a Network.
// The base address is masked down to the network address regardless
// of whether the host bits of the input were already zero.
func ParseNetwork(s string) (Network, error) {
	_, ipNet, err := net.ParseCIDR(s)
	if err != nil {
		return Network{}, fmt.Errorf("ipv4: invalid network %q: %w", s, err)
	}
	ip4 := ipNet.IP.To4()
	if ip4 == nil {
		return Network{}, fmt.Errorf("ipv4: %q is not an IPv4 network", s)
	}
	ones, bits := ipNet.Mask.Size()
	if bits != 32 {
		return Network{}, fmt.Errorf("ipv4: %q is not an IPv4 network", s)
	}
	base := Address(uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3]))
	return Network{base: base, prefix: ones}, nil
}

// NewNetwork constructs a Network from an already-computed base
// address and prefix length, without parsing. prefix must be in [0,
// 32]; the base address is not re-masked.
func NewNetwork(base Address, prefix int) (Network, error) {
	if prefix < 0 || prefix > 32 {
		return Network{}, fmt.Errorf("ipv4: prefix %d out of range [0, 32]", prefix)
	}
	return Network{base: base, prefix: prefix}, nil
}

// NetworkAddress returns the zero-host address of the network.
func (n Network) NetworkAddress() Address { return n.base }

// Prefix returns the network's prefix length.
func (n Network) Prefix() int { return n.prefix }

// NumAddresses returns 2^(32 - prefix), the number of host addresses
// (including network/broadcast) the network spans.
func (n Network) NumAddresses() int64 {
	return int64(1) << uint(32-n.prefix)
}

// At returns the address at offset k within the network: base + k.
// It is only valid for 0 <= k < NumAddresses(); ErrIndexOutOfRange is
// returned otherwise.
func (n Network) At(k int64) (Address, error) {
	if k < 0 || k >= n.NumAddresses() {
		return 0, fmt.Errorf("%w: index %d not in [0, %d)", ErrIndexOutOfRange, k, n.NumAddresses())
	}
	return Address(int64(n.base) + k), nil
}

// ErrIndexOutOfRange is returned by Network.At for an out-of-bounds index.
var ErrIndexOutOfRange = fmt.Errorf("ipv4: index out of range")

// Contains reports whether addr falls within the network's address range.
func (n Network) Contains(addr Address) bool {
	offset := int64(addr) - int64(n.base)
	return offset >= 0 && offset < n.NumAddresses()
}

// Offset returns the offset of addr within the network: int(addr) -
// int(base). It does not validate that addr is within the network;
// use Contains first if that matters.
func (n Network) Offset(addr Address) int64 {
	return int64(addr) - int64(n.base)
}

// String renders the network in CIDR notation.
func (n Network) String() string {
	return fmt.Sprintf("%s/%d", n.base, n.prefix)
}
