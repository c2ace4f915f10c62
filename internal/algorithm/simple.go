package algorithm

import "github.com/rbreathe/crunchnat/internal/ipv4"

// simpleAlgorithm assigns each bucket a contiguous run of ports
// (spec.md §4.4 "simple"), with no obfuscation of allocation order.
type simpleAlgorithm struct {
	base
}

func (a *simpleAlgorithm) Forward(addr ipv4.Address) (Forward, error) {
	external, bucket, err := a.forwardAddress(addr)
	if err != nil {
		return Forward{}, err
	}
	start := natparamsReservedPorts + int(bucket)*int(a.params.PortsPerHost)
	return Forward{
		ExternalAddress: external,
		Ports:           runPortSet(start, 1, int(a.params.PortsPerHost)),
	}, nil
}

func (a *simpleAlgorithm) Reverse(addr ipv4.Address, port int) (ipv4.Address, error) {
	if port < natparamsReservedPorts {
		return 0, wrapUnmappedPort(port)
	}
	bucket := int64(port-natparamsReservedPorts) / a.params.PortsPerHost
	return a.reverseAddress(addr, bucket)
}

func (a *simpleAlgorithm) CountStrides(addr ipv4.Address) (map[int]int, error) {
	fwd, err := a.Forward(addr)
	if err != nil {
		return nil, err
	}
	return countStrides(fwd.Ports), nil
}
