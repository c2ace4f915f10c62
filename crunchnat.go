// Package crunchnat is a purely functional, stateless, bijective
// mapping between a block of internal IPv4 host addresses and a
// smaller block of external IPv4 host addresses paired with disjoint
// port ranges. It performs no I/O, keeps no per-flow state, and does
// not track time; a constructed Facade is immutable and safe to share
// across any number of goroutines without synchronisation.
package crunchnat

import (
	"fmt"

	"github.com/rbreathe/crunchnat/internal/algorithm"
	"github.com/rbreathe/crunchnat/internal/ipv4"
	"github.com/rbreathe/crunchnat/internal/natparams"
	"github.com/rbreathe/crunchnat/internal/rsaperm"
	"github.com/rbreathe/crunchnat/internal/validator"
)

// Re-exported error sentinels and constants so callers need not import
// the internal packages directly.
var (
	ErrExcessiveCrunchFactor = natparams.ErrExcessiveCrunchFactor
	ErrDegenerateParameters  = natparams.ErrDegenerateParameters
	ErrInvalidKeys           = rsaperm.ErrInvalidKeys
	ErrOutOfRange            = algorithm.ErrOutOfRange
	ErrUnmappedPort          = algorithm.ErrUnmappedPort
	ErrUnknownAlgorithm      = algorithm.ErrUnknownAlgorithm
)

const (
	// PortsPerIP is the total size of a port space (0-65535).
	PortsPerIP = natparams.PortsPerIP
	// ReservedPorts are never assigned: [0, ReservedPorts).
	ReservedPorts = natparams.ReservedPorts
	// UsablePorts is PortsPerIP - ReservedPorts, the budget divided
	// among hosts for the simple and stripe algorithms.
	UsablePorts = natparams.UsablePorts

	// DefaultP, DefaultQ, DefaultE are the default secure-algorithm
	// RSA-ish parameters: n = DefaultP*DefaultQ = 64507.
	DefaultP = rsaperm.DefaultP
	DefaultQ = rsaperm.DefaultQ
	DefaultE = rsaperm.DefaultE
)

// Algorithm names accepted by New.
const (
	Simple = algorithm.Simple
	Stripe = algorithm.Stripe
	Secure = algorithm.Secure
)

// Address is a dotted-quad IPv4 host address.
type Address = ipv4.Address

// ParseAddress parses a dotted-quad string into an Address.
func ParseAddress(s string) (Address, error) { return ipv4.ParseAddress(s) }

// PortSet is a forward mapping's assigned ports: an ordered,
// finite, duplicate-free sequence of exactly ports_per_host ports.
type PortSet = algorithm.PortSet

// Forward is the result of Facade.Forward: an external address and
// its assigned port set.
type Forward = algorithm.Forward

// Options configure algorithm-specific parameters. The zero value
// selects the default (p, q, e) used by the secure algorithm; it has
// no effect on simple or stripe.
type Options struct {
	P, Q, E int64
}

func (o Options) resolve() (p, q, e int64) {
	p, q, e = o.P, o.Q, o.E
	if p == 0 {
		p = DefaultP
	}
	if q == 0 {
		q = DefaultQ
	}
	if e == 0 {
		e = DefaultE
	}
	return p, q, e
}

// Facade is the CrunchNAT core: a constructed algorithm plus its
// derived parameters. It holds no mutable state after New returns and
// requires no synchronisation to use from multiple goroutines.
type Facade struct {
	params *natparams.Params
	algo   algorithm.Algorithm
	name   algorithm.Name
}

// New constructs a Facade for the given external/internal networks
// (CIDR notation) and algorithm name ("simple", "stripe", "secure").
// opts is used only when algo == Secure; pass nil or a zero Options to
// use the default (p, q, e). Fails with ErrUnknownAlgorithm,
// ErrInvalidKeys, ErrExcessiveCrunchFactor or ErrDegenerateParameters.
func New(externalCIDR, internalCIDR string, algo string, opts *Options) (*Facade, error) {
	external, err := ipv4.ParseNetwork(externalCIDR)
	if err != nil {
		return nil, fmt.Errorf("crunchnat: external network: %w", err)
	}
	internal, err := ipv4.ParseNetwork(internalCIDR)
	if err != nil {
		return nil, fmt.Errorf("crunchnat: internal network: %w", err)
	}

	name := algorithm.Name(algo)
	switch name {
	case Simple, Stripe, Secure:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}

	var perm *rsaperm.Permutation
	numPorts := int64(UsablePorts)
	if name == Secure {
		var o Options
		if opts != nil {
			o = *opts
		}
		p, q, e := o.resolve()
		perm, err = rsaperm.New(p, q, e)
		if err != nil {
			return nil, fmt.Errorf("crunchnat: %w", err)
		}
		numPorts = perm.N()
	}

	params, err := natparams.New(external, internal, numPorts)
	if err != nil {
		return nil, fmt.Errorf("crunchnat: %w", err)
	}

	alg, err := algorithm.New(name, params, perm)
	if err != nil {
		return nil, fmt.Errorf("crunchnat: %w", err)
	}

	return &Facade{params: params, algo: alg, name: name}, nil
}

// HostsPerExternal returns the number of internal hosts sharing each
// external address.
func (f *Facade) HostsPerExternal() int64 { return f.params.HostsPerExternal }

// PortsPerHost returns the number of ports assigned to each internal host.
func (f *Facade) PortsPerHost() int64 { return f.params.PortsPerHost }

// Algorithm returns the name this facade was constructed with.
func (f *Facade) Algorithm() algorithm.Name { return f.name }

// Forward maps an internal address to its external address and
// assigned port set. Fails with ErrOutOfRange if addr is not within
// the internal network.
func (f *Facade) Forward(addr Address) (Forward, error) {
	return f.algo.Forward(addr)
}

// Reverse maps an external address and one of its assigned ports back
// to the originating internal address. Fails with ErrOutOfRange or
// ErrUnmappedPort.
func (f *Facade) Reverse(addr Address, port int) (Address, error) {
	return f.algo.Reverse(addr, port)
}

// CountStrides returns a histogram of consecutive-port stride lengths
// within addr's forward port list (original_source/crunchnat.py's
// count_strides, ported as a SPEC_FULL.md supplemented feature).
func (f *Facade) CountStrides(addr Address) (map[int]int, error) {
	return f.algo.CountStrides(addr)
}

// CheckForwardCollisions forward-maps the representative internal
// address for each bucket and returns the internal addresses whose
// port sets intersect a previously seen port. An empty result means
// well-formed parameters.
func (f *Facade) CheckForwardCollisions() ([]Address, error) {
	return validator.CheckForwardCollisions(f.algo, f.params)
}

// CheckBijection confirms reverse(forward(a)) == a for the first count
// internal addresses (count <= 0 defaults to HostsPerExternal).
func (f *Facade) CheckBijection(count int64) (bool, error) {
	return validator.CheckBijection(f.algo, f.params, count)
}
