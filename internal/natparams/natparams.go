// Package natparams derives the allocation parameters (crunch factor,
// hosts-per-external, ports-per-host) from a pair of IPv4 networks,
// once, at construction. Derived parameters are immutable thereafter.
package natparams

import (
	"fmt"

	"github.com/rbreathe/crunchnat/internal/ipv4"
)

// PortsPerIP and ReservedPorts are the port-space constants from
// spec.md §3. UsablePorts is their difference: the number of ports
// available for non-secure algorithms to divide among hosts.
const (
	PortsPerIP    = 65536
	ReservedPorts = 1024
	UsablePorts   = PortsPerIP - ReservedPorts
)

// MaxCrunchFactor is the largest permitted difference between the
// external and internal prefix lengths (spec.md §1, §3).
const MaxCrunchFactor = 8

// ErrExcessiveCrunchFactor is returned when the external/internal
// prefix difference falls outside [0, MaxCrunchFactor].
var ErrExcessiveCrunchFactor = fmt.Errorf("natparams: excessive crunch factor")

// ErrDegenerateParameters is returned when the derived ports-per-host
// would be zero.
var ErrDegenerateParameters = fmt.Errorf("natparams: degenerate parameters")

// Params holds the networks and derived allocation sizes for one
// CrunchNAT configuration. All fields are set once by New and never
// mutated.
type Params struct {
	External Network
	Internal Network

	CrunchFactor     int
	HostsPerExternal int64
	NumPorts         int64
	PortsPerHost     int64
}

// Network is an alias kept at package scope so callers of natparams
// don't also need to import ipv4 for the common case.
type Network = ipv4.Network

// New derives allocation parameters for a pair of networks and a port
// budget. numPorts is p*q for the secure algorithm, or UsablePorts for
// simple/stripe (spec.md §3). Fails with ErrExcessiveCrunchFactor or
// ErrDegenerateParameters.
func New(external, internal Network, numPorts int64) (*Params, error) {
	crunchFactor := external.Prefix() - internal.Prefix()
	if crunchFactor < 0 || crunchFactor > MaxCrunchFactor {
		return nil, fmt.Errorf("%w: %d", ErrExcessiveCrunchFactor, crunchFactor)
	}

	hostsPerExternal := internal.NumAddresses() / external.NumAddresses()

	portsPerHost := numPorts / hostsPerExternal
	if portsPerHost == 0 {
		return nil, fmt.Errorf("%w: num_ports=%d hosts_per_external=%d", ErrDegenerateParameters, numPorts, hostsPerExternal)
	}

	return &Params{
		External:         external,
		Internal:         internal,
		CrunchFactor:     crunchFactor,
		HostsPerExternal: hostsPerExternal,
		NumPorts:         numPorts,
		PortsPerHost:     portsPerHost,
	}, nil
}
