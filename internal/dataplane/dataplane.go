// Package dataplane is an optional consumer that programs nftables
// SNAT rules realizing a CrunchNAT forward mapping (spec.md §1: "a
// data-plane integration may consume it to program flow tables"). It
// is adapted from the teacher's internal/masq package, which
// reconciles a single nftables table by deleting and recreating it
// from desired state; we keep that reconcile shape here.
//
// nftables' --to-ports grammar expresses a contiguous port range
// natively, so a simple or stripe-algorithm forward result (a
// start+step+count run) that happens to be a contiguous run (step==1,
// i.e. the simple algorithm) maps directly onto one SNAT rule. For
// stripe and secure, whose port sets are not contiguous, we program
// the bounding range [min(ports), max(ports)], which is a superset of
// the true assignment; the rule itself carries no annotation saying
// so, and no per-port rule set is programmed.
//
// MappingsForNetwork builds the []HostMapping input Apply expects by
// forward-mapping every host address of a configured internal network
// through a crunchnat.Facade (or any Forwarder).
package dataplane

import (
	"fmt"
	"net"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"

	"github.com/rbreathe/crunchnat"
)

const (
	tableName = "crunchnat"
	chainName = "snat"
)

// HostMapping is one internal-host-to-external-address-and-port-range
// assignment, as produced by a crunchnat.Facade.Forward call.
type HostMapping struct {
	InternalAddr   string // dotted quad, matched as a /32 source
	ExternalAddr   string // dotted quad, the SNAT target
	PortLo, PortHi int    // inclusive port bounds to SNAT into
}

// Forwarder is the subset of *crunchnat.Facade that MappingsForNetwork
// consumes, narrowed so callers can substitute a fake Facade in tests.
type Forwarder interface {
	Forward(addr crunchnat.Address) (crunchnat.Forward, error)
}

// MappingsForNetwork forward-maps every host address in internalCIDR
// through f and returns one HostMapping per host, suitable for
// Reconciler.Apply.
func MappingsForNetwork(f Forwarder, internalCIDR string) ([]HostMapping, error) {
	_, ipnet, err := net.ParseCIDR(internalCIDR)
	if err != nil {
		return nil, fmt.Errorf("dataplane: parse internal network: %w", err)
	}

	ip := make(net.IP, len(ipnet.IP.Mask(ipnet.Mask)))
	copy(ip, ipnet.IP.Mask(ipnet.Mask))

	var mappings []HostMapping
	for ; ipnet.Contains(ip); incrementIP(ip) {
		addr, err := crunchnat.ParseAddress(ip.String())
		if err != nil {
			return nil, fmt.Errorf("dataplane: parse address %s: %w", ip, err)
		}
		fwd, err := f.Forward(addr)
		if err != nil {
			return nil, fmt.Errorf("dataplane: forward %s: %w", ip, err)
		}
		mappings = append(mappings, mappingFromForward(ip.String(), fwd))
	}
	return mappings, nil
}

func mappingFromForward(internalAddr string, fwd crunchnat.Forward) HostMapping {
	ports := fwd.Ports.Slice()
	lo, hi := ports[0], ports[0]
	for _, p := range ports {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return HostMapping{
		InternalAddr: internalAddr,
		ExternalAddr: fwd.ExternalAddress.String(),
		PortLo:       lo,
		PortHi:       hi,
	}
}

func incrementIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			return
		}
	}
}

// Reconciler programs an nftables table of SNAT rules, one per
// HostMapping, replacing any previously programmed table wholesale
// (same delete-then-recreate reconcile semantics as the teacher's
// masq.Setup).
type Reconciler struct {
	conn *nftables.Conn
}

// NewReconciler opens an nftables connection. Requires the calling
// process to have CAP_NET_ADMIN (root, typically).
func NewReconciler() (*Reconciler, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, fmt.Errorf("dataplane: nftables conn: %w", err)
	}
	return &Reconciler{conn: conn}, nil
}

// Apply reconciles the crunchnat nftables table to contain exactly
// one postrouting SNAT rule per mapping.
func (r *Reconciler) Apply(mappings []HostMapping) error {
	table := &nftables.Table{Family: nftables.TableFamilyIPv4, Name: tableName}
	r.conn.DelTable(table)
	_ = r.conn.Flush() // table may not exist yet on first run

	r.conn.AddTable(table)
	chain := &nftables.Chain{
		Name:     chainName,
		Table:    table,
		Type:     nftables.ChainTypeNAT,
		Hooknum:  nftables.ChainHookPostrouting,
		Priority: nftables.ChainPriorityNATSource,
	}
	r.conn.AddChain(chain)

	for _, m := range mappings {
		if err := r.addRule(table, chain, m); err != nil {
			return fmt.Errorf("dataplane: rule for %s: %w", m.InternalAddr, err)
		}
	}

	return r.conn.Flush()
}

func (r *Reconciler) addRule(table *nftables.Table, chain *nftables.Chain, m HostMapping) error {
	exprs, err := buildSNATExprs(m)
	if err != nil {
		return err
	}
	r.conn.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: exprs})
	return nil
}

// buildSNATExprs builds the match-and-SNAT expression chain for m. It
// touches no nftables connection, so it is the testable seam for the
// rule-construction logic that addRule otherwise only exercises against
// a live kernel connection.
func buildSNATExprs(m HostMapping) ([]expr.Any, error) {
	src := net.ParseIP(m.InternalAddr).To4()
	if src == nil {
		return nil, fmt.Errorf("invalid internal address %q", m.InternalAddr)
	}
	dst := net.ParseIP(m.ExternalAddr).To4()
	if dst == nil {
		return nil, fmt.Errorf("invalid external address %q", m.ExternalAddr)
	}
	if m.PortLo < 0 || m.PortHi > 65535 || m.PortLo > m.PortHi {
		return nil, fmt.Errorf("invalid port range [%d, %d]", m.PortLo, m.PortHi)
	}

	loBuf := []byte{byte(m.PortLo >> 8), byte(m.PortLo)}
	hiBuf := []byte{byte(m.PortHi >> 8), byte(m.PortHi)}

	return []expr.Any{
		// ip saddr == m.InternalAddr
		&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseNetworkHeader, Offset: 12, Len: 4},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: src},
		// snat to m.ExternalAddr:[PortLo-PortHi]
		&expr.Immediate{Register: 2, Data: dst},
		&expr.Immediate{Register: 3, Data: loBuf},
		&expr.Immediate{Register: 4, Data: hiBuf},
		&expr.NAT{
			Type:        expr.NATTypeSourceNAT,
			RegAddrMin:  2,
			RegProtoMin: 3,
			RegProtoMax: 4,
		},
	}, nil
}

// Teardown removes the crunchnat nftables table entirely.
func (r *Reconciler) Teardown() error {
	table := &nftables.Table{Family: nftables.TableFamilyIPv4, Name: tableName}
	r.conn.DelTable(table)
	return r.conn.Flush()
}
