package algorithm

import (
	"errors"
	"testing"

	"github.com/rbreathe/crunchnat/internal/ipv4"
	"github.com/rbreathe/crunchnat/internal/natparams"
	"github.com/rbreathe/crunchnat/internal/rsaperm"
)

func mustNet(t *testing.T, s string) ipv4.Network {
	t.Helper()
	n, err := ipv4.ParseNetwork(s)
	if err != nil {
		t.Fatalf("ParseNetwork(%q): %v", s, err)
	}
	return n
}

func mustAddr(t *testing.T, s string) ipv4.Address {
	t.Helper()
	a, err := ipv4.ParseAddress(s)
	if err != nil {
		t.Fatalf("ParseAddress(%q): %v", s, err)
	}
	return a
}

func seedParams(t *testing.T, numPorts int64) *natparams.Params {
	t.Helper()
	ext := mustNet(t, "192.0.2.0/24")
	internal := mustNet(t, "10.0.0.0/16")
	p, err := natparams.New(ext, internal, numPorts)
	if err != nil {
		t.Fatalf("natparams.New: %v", err)
	}
	return p
}

func TestSimpleForwardSeedScenario(t *testing.T) {
	params := seedParams(t, natparams.UsablePorts)
	alg, err := New(Simple, params, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	addr := mustAddr(t, "10.0.0.10")
	fwd, err := alg.Forward(addr)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if fwd.ExternalAddress.String() != "192.0.2.0" {
		t.Errorf("external = %s, want 192.0.2.0", fwd.ExternalAddress)
	}
	if fwd.Ports.Len() != 252 {
		t.Errorf("len(ports) = %d, want 252", fwd.Ports.Len())
	}
	if fwd.Ports.At(0) != 3544 || fwd.Ports.At(fwd.Ports.Len()-1) != 3795 {
		t.Errorf("ports = [%d..%d], want [3544..3795]", fwd.Ports.At(0), fwd.Ports.At(fwd.Ports.Len()-1))
	}

	back, err := alg.Reverse(fwd.ExternalAddress, 3600)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if back != addr {
		t.Errorf("Reverse = %s, want %s", back, addr)
	}
}

func TestStripeForwardSeedScenario(t *testing.T) {
	params := seedParams(t, natparams.UsablePorts)
	alg, err := New(Stripe, params, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	addr := mustAddr(t, "10.0.0.10")
	fwd, err := alg.Forward(addr)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if fwd.ExternalAddress.String() != "192.0.2.0" {
		t.Errorf("external = %s, want 192.0.2.0", fwd.ExternalAddress)
	}
	if fwd.Ports.At(0) != 1034 || fwd.Ports.At(1) != 1290 || fwd.Ports.At(2) != 1546 {
		t.Errorf("ports = [%d, %d, %d, ...], want [1034, 1290, 1546, ...]", fwd.Ports.At(0), fwd.Ports.At(1), fwd.Ports.At(2))
	}
	if fwd.Ports.Len() != 252 {
		t.Errorf("len(ports) = %d, want 252", fwd.Ports.Len())
	}

	back, err := alg.Reverse(fwd.ExternalAddress, 1290)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if back != addr {
		t.Errorf("Reverse = %s, want %s", back, addr)
	}
}

func TestSecureForwardSeedScenario(t *testing.T) {
	params := seedParams(t, rsaperm.DefaultP*rsaperm.DefaultQ)
	perm, err := rsaperm.New(rsaperm.DefaultP, rsaperm.DefaultQ, rsaperm.DefaultE)
	if err != nil {
		t.Fatalf("rsaperm.New: %v", err)
	}
	alg, err := New(Secure, params, perm)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	addr := mustAddr(t, "10.0.0.10")
	fwd, err := alg.Forward(addr)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if fwd.ExternalAddress.String() != "192.0.2.0" {
		t.Errorf("external = %s, want 192.0.2.0", fwd.ExternalAddress)
	}
	if fwd.Ports.Len() != 251 {
		t.Errorf("len(ports) = %d, want 251", fwd.Ports.Len())
	}
	for i := 0; i < fwd.Ports.Len()-1; i++ {
		if fwd.Ports.At(i) >= fwd.Ports.At(i+1) {
			t.Fatalf("ports not strictly ascending at %d: %d >= %d", i, fwd.Ports.At(i), fwd.Ports.At(i+1))
		}
	}

	back, err := alg.Reverse(fwd.ExternalAddress, 2318)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if back != addr {
		t.Errorf("Reverse = %s, want %s", back, addr)
	}
}

func TestForwardOutOfRange(t *testing.T) {
	params := seedParams(t, natparams.UsablePorts)
	alg, _ := New(Simple, params, nil)
	outside := mustAddr(t, "10.1.0.0")
	if _, err := alg.Forward(outside); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("err = %v, want ErrOutOfRange", err)
	}
}

func TestReverseUnmappedPort(t *testing.T) {
	params := seedParams(t, natparams.UsablePorts)
	alg, _ := New(Simple, params, nil)
	ext := mustAddr(t, "192.0.2.0")
	if _, err := alg.Reverse(ext, 80); !errors.Is(err, ErrUnmappedPort) {
		t.Errorf("err = %v, want ErrUnmappedPort", err)
	}
}

func TestReverseOutOfRangeAddress(t *testing.T) {
	params := seedParams(t, natparams.UsablePorts)
	alg, _ := New(Simple, params, nil)
	outside := mustAddr(t, "192.0.3.0")
	if _, err := alg.Reverse(outside, 2000); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("err = %v, want ErrOutOfRange", err)
	}
}

func TestNewUnknownAlgorithm(t *testing.T) {
	params := seedParams(t, natparams.UsablePorts)
	if _, err := New(Name("bogus"), params, nil); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("err = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestBijectionOverAllBuckets(t *testing.T) {
	for _, name := range []Name{Simple, Stripe, Secure} {
		name := name
		t.Run(string(name), func(t *testing.T) {
			var alg Algorithm
			var err error
			if name == Secure {
				params := seedParams(t, rsaperm.DefaultP*rsaperm.DefaultQ)
				perm, perr := rsaperm.New(rsaperm.DefaultP, rsaperm.DefaultQ, rsaperm.DefaultE)
				if perr != nil {
					t.Fatalf("rsaperm.New: %v", perr)
				}
				alg, err = New(name, params, perm)
			} else {
				params := seedParams(t, natparams.UsablePorts)
				alg, err = New(name, params, nil)
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			internal := mustNet(t, "10.0.0.0/16")
			for offset := int64(0); offset < 256; offset++ {
				addr, err := internal.At(offset)
				if err != nil {
					t.Fatalf("At(%d): %v", offset, err)
				}
				fwd, err := alg.Forward(addr)
				if err != nil {
					t.Fatalf("Forward(%s): %v", addr, err)
				}
				for i := 0; i < fwd.Ports.Len(); i++ {
					port := fwd.Ports.At(i)
					back, err := alg.Reverse(fwd.ExternalAddress, port)
					if err != nil {
						t.Fatalf("Reverse(%s, %d): %v", fwd.ExternalAddress, port, err)
					}
					if back != addr {
						t.Fatalf("Reverse(Forward(%s)) = %s, want %s", addr, back, addr)
					}
				}
			}
		})
	}
}

func TestCountStridesSimpleAndStripe(t *testing.T) {
	addr := mustAddr(t, "10.0.0.10")

	simpleParams := seedParams(t, natparams.UsablePorts)
	simpleAlg, _ := New(Simple, simpleParams, nil)
	simpleStrides, err := simpleAlg.CountStrides(addr)
	if err != nil {
		t.Fatalf("CountStrides: %v", err)
	}
	if len(simpleStrides) != 1 || simpleStrides[1] != int(simpleParams.PortsPerHost)-1 {
		t.Errorf("simple strides = %v, want {1: %d}", simpleStrides, simpleParams.PortsPerHost-1)
	}

	stripeParams := seedParams(t, natparams.UsablePorts)
	stripeAlg, _ := New(Stripe, stripeParams, nil)
	stripeStrides, err := stripeAlg.CountStrides(addr)
	if err != nil {
		t.Fatalf("CountStrides: %v", err)
	}
	step := int(stripeParams.HostsPerExternal)
	if len(stripeStrides) != 1 || stripeStrides[step] != int(stripeParams.PortsPerHost)-1 {
		t.Errorf("stripe strides = %v, want {%d: %d}", stripeStrides, step, stripeParams.PortsPerHost-1)
	}
}
