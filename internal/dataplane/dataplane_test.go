package dataplane

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbreathe/crunchnat"
)

// addRule's validation logic is exercised directly since opening a
// real nftables connection requires CAP_NET_ADMIN and is not available
// in a test sandbox.
func TestAddRuleRejectsInvalidAddresses(t *testing.T) {
	r := &Reconciler{}
	err := r.addRule(nil, nil, HostMapping{InternalAddr: "not-an-ip", ExternalAddr: "192.0.2.1", PortLo: 1024, PortHi: 1030})
	require.Error(t, err)
}

func TestAddRuleRejectsInvalidPortRange(t *testing.T) {
	r := &Reconciler{}
	err := r.addRule(nil, nil, HostMapping{InternalAddr: "10.0.0.1", ExternalAddr: "192.0.2.1", PortLo: 1030, PortHi: 1024})
	require.Error(t, err)
}

// buildSNATExprs touches no nftables connection, so its success path is
// directly testable: the dependency's rule-construction logic, not just
// its input validation, gets exercised here.
func TestBuildSNATExprsSuccessPath(t *testing.T) {
	exprs, err := buildSNATExprs(HostMapping{InternalAddr: "10.0.0.1", ExternalAddr: "192.0.2.1", PortLo: 1034, PortHi: 1290})
	require.NoError(t, err)
	require.Len(t, exprs, 6)
}

type fakeForwarder struct {
	forward func(addr crunchnat.Address) (crunchnat.Forward, error)
}

func (f fakeForwarder) Forward(addr crunchnat.Address) (crunchnat.Forward, error) {
	return f.forward(addr)
}

func TestMappingsForNetworkRejectsInvalidCIDR(t *testing.T) {
	_, err := MappingsForNetwork(fakeForwarder{}, "not-a-cidr")
	require.Error(t, err)
}

func TestMappingsForNetworkPropagatesForwardError(t *testing.T) {
	wantErr := errors.New("boom")
	f := fakeForwarder{forward: func(addr crunchnat.Address) (crunchnat.Forward, error) {
		return crunchnat.Forward{}, wantErr
	}}
	_, err := MappingsForNetwork(f, "10.0.0.0/30")
	require.ErrorIs(t, err, wantErr)
}

// TestMappingsForNetworkSuccessPath drives a real Facade's Forward
// results through MappingsForNetwork, exercising the product code path
// the "apply" CLI subcommand uses without needing a live nftables
// connection.
func TestMappingsForNetworkSuccessPath(t *testing.T) {
	facade, err := crunchnat.New("192.0.2.0/30", "10.0.0.0/24", string(crunchnat.Simple), nil)
	require.NoError(t, err)

	mappings, err := MappingsForNetwork(facade, "10.0.0.0/24")
	require.NoError(t, err)
	require.Len(t, mappings, 256)

	first := mappings[0]
	require.Equal(t, "10.0.0.0", first.InternalAddr)
	require.Equal(t, "192.0.2.0", first.ExternalAddr)
	require.Less(t, first.PortLo, first.PortHi)
}
