package algorithm

import "github.com/rbreathe/crunchnat/internal/ipv4"

// stripeAlgorithm assigns each bucket a strided sequence of ports,
// step hosts_per_external, truncated to ports_per_host elements
// (spec.md §4.4 "stripe").
type stripeAlgorithm struct {
	base
}

func (a *stripeAlgorithm) Forward(addr ipv4.Address) (Forward, error) {
	external, bucket, err := a.forwardAddress(addr)
	if err != nil {
		return Forward{}, err
	}
	start := natparamsReservedPorts + int(bucket)
	step := int(a.params.HostsPerExternal)
	return Forward{
		ExternalAddress: external,
		Ports:           runPortSet(start, step, int(a.params.PortsPerHost)),
	}, nil
}

func (a *stripeAlgorithm) Reverse(addr ipv4.Address, port int) (ipv4.Address, error) {
	if port < natparamsReservedPorts {
		return 0, wrapUnmappedPort(port)
	}
	bucket := int64(port-natparamsReservedPorts) % a.params.HostsPerExternal
	return a.reverseAddress(addr, bucket)
}

func (a *stripeAlgorithm) CountStrides(addr ipv4.Address) (map[int]int, error) {
	fwd, err := a.Forward(addr)
	if err != nil {
		return nil, err
	}
	return countStrides(fwd.Ports), nil
}
