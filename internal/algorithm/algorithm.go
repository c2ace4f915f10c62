// Package algorithm implements the three CrunchNAT port-mapping
// algorithms (simple, stripe, secure) that share the address mapping
// of spec.md §4.4 and differ only in how a bucket's port_bucket index
// is encoded into (and recovered from) the port list.
package algorithm

import (
	"fmt"

	"github.com/rbreathe/crunchnat/internal/ipv4"
	"github.com/rbreathe/crunchnat/internal/natparams"
	"github.com/rbreathe/crunchnat/internal/rsaperm"
)

// Name identifies one of the three algorithms.
type Name string

const (
	Simple Name = "simple"
	Stripe Name = "stripe"
	Secure Name = "secure"
)

// ErrUnknownAlgorithm is returned when a Name outside {simple, stripe,
// secure} is requested.
var ErrUnknownAlgorithm = fmt.Errorf("algorithm: unknown algorithm")

// ErrOutOfRange is returned when an address is not within the network
// it is being mapped against.
var ErrOutOfRange = fmt.Errorf("algorithm: address out of range")

// ErrUnmappedPort is returned when a port is not assigned by the
// current algorithm (below ReservedPorts, or beyond the permutation
// domain for secure).
var ErrUnmappedPort = fmt.Errorf("algorithm: unmapped port")

// PortSet is the forward result's port list. Simple and stripe express
// it as an arithmetic run (start, step, count); secure materialises it
// as a sorted slice because there is no regular stride (spec.md §4.4
// "Output shape", §9 design note).
type PortSet struct {
	start, step, count int
	materialised       []int
}

// runPortSet builds a PortSet backed by an arithmetic progression.
func runPortSet(start, step, count int) PortSet {
	return PortSet{start: start, step: step, count: count}
}

// materialisedPortSet builds a PortSet from an explicit, already
// ascending-sorted slice of ports.
func materialisedPortSet(ports []int) PortSet {
	return PortSet{materialised: ports, count: len(ports)}
}

// Len returns the number of ports in the set.
func (ps PortSet) Len() int { return ps.count }

// At returns the i-th port (0 <= i < Len()) in ascending order.
func (ps PortSet) At(i int) int {
	if ps.materialised != nil {
		return ps.materialised[i]
	}
	return ps.start + i*ps.step
}

// Slice materialises the full port list in ascending order. Prefer At
// for single-port lookups; Slice is for callers (tests, CLI printing)
// that need the whole list.
func (ps PortSet) Slice() []int {
	if ps.materialised != nil {
		out := make([]int, len(ps.materialised))
		copy(out, ps.materialised)
		return out
	}
	out := make([]int, ps.count)
	for i := range out {
		out[i] = ps.start + i*ps.step
	}
	return out
}

// Forward is the result of a forward mapping: an external address and
// the port set assigned to the internal host that mapped to it.
type Forward struct {
	ExternalAddress ipv4.Address
	Ports           PortSet
}

// Algorithm is the shared interface implemented by Simple, Stripe and
// Secure. Resolved once, by name, at facade construction (spec.md §9
// design note: "tagged variant... resolve the variant once").
type Algorithm interface {
	// Forward maps an internal address to its external address and
	// port set. Returns ErrOutOfRange if addr is not in the internal
	// network.
	Forward(addr ipv4.Address) (Forward, error)
	// Reverse maps an external address and one of its assigned ports
	// back to the originating internal address. Returns ErrOutOfRange
	// or ErrUnmappedPort as appropriate.
	Reverse(addr ipv4.Address, port int) (ipv4.Address, error)
	// CountStrides returns a histogram of consecutive-port stride
	// lengths within one host's forward port list, keyed by stride
	// length. It is a pure diagnostic (original_source/crunchnat.py's
	// count_strides), not used by Forward/Reverse.
	CountStrides(addr ipv4.Address) (map[int]int, error)
}

// New resolves name to a concrete Algorithm backed by params. perm is
// required (non-nil) only for Secure; it is ignored for Simple and
// Stripe. Fails with ErrUnknownAlgorithm for any other name.
func New(name Name, params *natparams.Params, perm *rsaperm.Permutation) (Algorithm, error) {
	switch name {
	case Simple:
		return &simpleAlgorithm{base{params}}, nil
	case Stripe:
		return &stripeAlgorithm{base{params}}, nil
	case Secure:
		return &secureAlgorithm{base{params}, perm}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// base holds the shared address-mapping logic common to all three
// algorithms (spec.md §4.4 "Shared address mapping").
type base struct {
	params *natparams.Params
}

// forwardAddress computes the external address and the bucket index
// (port_bucket) for an internal address.
func (b base) forwardAddress(addr ipv4.Address) (external ipv4.Address, bucket int64, err error) {
	if !b.params.Internal.Contains(addr) {
		return 0, 0, fmt.Errorf("%w: %s not in %s", ErrOutOfRange, addr, b.params.Internal)
	}
	internalOffset := b.params.Internal.Offset(addr)
	externalOffset := internalOffset / b.params.HostsPerExternal
	bucket = internalOffset % b.params.HostsPerExternal
	external, err = b.params.External.At(externalOffset)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrOutOfRange, err)
	}
	return external, bucket, nil
}

// reverseAddress computes the internal address given an external
// address and the already-recovered bucket index.
func (b base) reverseAddress(addr ipv4.Address, bucket int64) (ipv4.Address, error) {
	if !b.params.External.Contains(addr) {
		return 0, fmt.Errorf("%w: %s not in %s", ErrOutOfRange, addr, b.params.External)
	}
	externalOffset := b.params.External.Offset(addr)
	internal, err := b.params.Internal.At(externalOffset*b.params.HostsPerExternal + bucket)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, err)
	}
	return internal, nil
}

// natparamsReservedPorts mirrors natparams.ReservedPorts at this
// package's scope, since every algorithm needs it by name repeatedly.
const natparamsReservedPorts = natparams.ReservedPorts

func wrapUnmappedPort(port int) error {
	return fmt.Errorf("%w: port %d below reserved floor %d", ErrUnmappedPort, port, natparamsReservedPorts)
}

func countStrides(ports PortSet) map[int]int {
	strides := make(map[int]int)
	for i := 0; i < ports.Len()-1; i++ {
		length := ports.At(i+1) - ports.At(i)
		strides[length]++
	}
	return strides
}
