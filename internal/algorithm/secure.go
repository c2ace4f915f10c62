package algorithm

import (
	"fmt"
	"sort"

	"github.com/rbreathe/crunchnat/internal/ipv4"
	"github.com/rbreathe/crunchnat/internal/rsaperm"
)

// secureAlgorithm obfuscates port allocation order with an RSA-style
// permutation over the bucket's index range, sorted ascending before
// being returned (spec.md §4.4 "secure"). It provides obfuscation, not
// cryptographic confidentiality (spec.md §1).
type secureAlgorithm struct {
	base
	perm *rsaperm.Permutation
}

func (a *secureAlgorithm) Forward(addr ipv4.Address) (Forward, error) {
	external, bucket, err := a.forwardAddress(addr)
	if err != nil {
		return Forward{}, err
	}
	lo := bucket * a.params.PortsPerHost
	hi := lo + a.params.PortsPerHost
	ports := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		ports = append(ports, natparamsReservedPorts+int(a.perm.Encrypt(i)))
	}
	sort.Ints(ports)
	return Forward{
		ExternalAddress: external,
		Ports:           materialisedPortSet(ports),
	}, nil
}

func (a *secureAlgorithm) Reverse(addr ipv4.Address, port int) (ipv4.Address, error) {
	if port < natparamsReservedPorts {
		return 0, wrapUnmappedPort(port)
	}
	encoded := int64(port - natparamsReservedPorts)
	if encoded >= a.perm.N() {
		return 0, fmt.Errorf("%w: port %d maps beyond permutation domain [0, %d)", ErrUnmappedPort, port, a.perm.N())
	}
	decoded := a.perm.Decrypt(encoded)
	bucket := decoded / a.params.PortsPerHost
	return a.reverseAddress(addr, bucket)
}

func (a *secureAlgorithm) CountStrides(addr ipv4.Address) (map[int]int, error) {
	fwd, err := a.Forward(addr)
	if err != nil {
		return nil, err
	}
	return countStrides(fwd.Ports), nil
}
