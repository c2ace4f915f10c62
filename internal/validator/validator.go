// Package validator implements the offline self-checks (spec.md §4.5)
// used to confirm a CrunchNAT configuration's port mapping is
// collision-free and its forward/reverse pair is a true bijection.
// Both checks are O(num_ports) and are meant for construction-time
// validation and test suites, not the data path.
package validator

import (
	"fmt"

	"github.com/rbreathe/crunchnat/internal/algorithm"
	"github.com/rbreathe/crunchnat/internal/ipv4"
	"github.com/rbreathe/crunchnat/internal/natparams"
)

// CheckForwardCollisions forward-maps the representative internal
// address for each bucket and reports the internal addresses whose
// port sets intersect a previously seen port. An empty, non-nil slice
// means well-formed parameters.
func CheckForwardCollisions(alg algorithm.Algorithm, params *natparams.Params) ([]ipv4.Address, error) {
	collisions := make([]ipv4.Address, 0)
	seen := make(map[int]bool, params.NumPorts)

	for offset := int64(0); offset < params.HostsPerExternal; offset++ {
		addr, err := params.Internal.At(offset)
		if err != nil {
			return nil, fmt.Errorf("validator: representative address at offset %d: %w", offset, err)
		}
		fwd, err := alg.Forward(addr)
		if err != nil {
			return nil, fmt.Errorf("validator: forward(%s): %w", addr, err)
		}
		if int64(fwd.Ports.Len()) != params.PortsPerHost {
			return nil, fmt.Errorf("validator: forward(%s) produced %d ports, want %d", addr, fwd.Ports.Len(), params.PortsPerHost)
		}

		collided := false
		for i := 0; i < fwd.Ports.Len(); i++ {
			if seen[fwd.Ports.At(i)] {
				collided = true
			}
		}
		if collided {
			collisions = append(collisions, addr)
		}
		for i := 0; i < fwd.Ports.Len(); i++ {
			seen[fwd.Ports.At(i)] = true
		}
	}
	return collisions, nil
}

// CheckBijection forward-maps the first count internal addresses
// (defaulting to hosts_per_external when count <= 0) and confirms
// that reversing every port in each result recovers the original
// internal address.
func CheckBijection(alg algorithm.Algorithm, params *natparams.Params, count int64) (bool, error) {
	if count <= 0 {
		count = params.HostsPerExternal
	}

	for offset := int64(0); offset < count; offset++ {
		addr, err := params.Internal.At(offset)
		if err != nil {
			return false, fmt.Errorf("validator: address at offset %d: %w", offset, err)
		}
		fwd, err := alg.Forward(addr)
		if err != nil {
			return false, fmt.Errorf("validator: forward(%s): %w", addr, err)
		}
		for i := 0; i < fwd.Ports.Len(); i++ {
			port := fwd.Ports.At(i)
			back, err := alg.Reverse(fwd.ExternalAddress, port)
			if err != nil {
				return false, fmt.Errorf("validator: reverse(%s, %d): %w", fwd.ExternalAddress, port, err)
			}
			if back != addr {
				return false, nil
			}
		}
	}
	return true, nil
}
