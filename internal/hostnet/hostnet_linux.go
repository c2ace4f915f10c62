//go:build linux

package hostnet

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
)

type linuxChecker struct{}

func newPlatformChecker() Checker { return linuxChecker{} }

// Check lists the host's IPv4 routes and interface addresses and
// reports which routes overlap cidr and whether any local address
// falls within it.
func (linuxChecker) Check(cidr string) (Report, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return Report{}, fmt.Errorf("hostnet: parse cidr: %w", err)
	}

	report := emptyReport(cidr)

	routes, err := netlink.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return Report{}, fmt.Errorf("hostnet: list routes: %w", err)
	}
	for _, route := range routes {
		if route.Dst == nil {
			continue
		}
		routePrefix, ok := netipPrefixFromIPNet(route.Dst)
		if !ok {
			continue
		}
		if prefixesOverlap(prefix, routePrefix) {
			report.MatchedRoutes = append(report.MatchedRoutes, route.Dst.String())
		}
	}

	addrs, err := netlink.AddrList(nil, netlink.FAMILY_V4)
	if err != nil {
		return Report{}, fmt.Errorf("hostnet: list addresses: %w", err)
	}
	for _, a := range addrs {
		ip, ok := netip.AddrFromSlice(a.IP.To4())
		if !ok {
			continue
		}
		if prefix.Contains(ip) {
			report.LocalAddress = true
			break
		}
	}

	return report, nil
}

func netipPrefixFromIPNet(ipNet *net.IPNet) (netip.Prefix, bool) {
	addr, ok := netip.AddrFromSlice(ipNet.IP.To4())
	if !ok {
		return netip.Prefix{}, false
	}
	ones, _ := ipNet.Mask.Size()
	return netip.PrefixFrom(addr, ones), true
}

// prefixesOverlap reports whether a and b share any address.
func prefixesOverlap(a, b netip.Prefix) bool {
	return a.Contains(b.Addr()) || b.Contains(a.Addr())
}
