package crunchnat

import (
	"errors"
	"testing"
)

func TestFacadeSeedScenarioAllAlgorithms(t *testing.T) {
	for _, algo := range []string{"simple", "stripe", "secure"} {
		algo := algo
		t.Run(algo, func(t *testing.T) {
			f, err := New("192.0.2.0/24", "10.0.0.0/16", algo, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if f.HostsPerExternal() != 256 {
				t.Errorf("HostsPerExternal() = %d, want 256", f.HostsPerExternal())
			}

			addr, err := ParseAddress("10.0.0.10")
			if err != nil {
				t.Fatalf("ParseAddress: %v", err)
			}
			fwd, err := f.Forward(addr)
			if err != nil {
				t.Fatalf("Forward: %v", err)
			}
			if int64(fwd.Ports.Len()) != f.PortsPerHost() {
				t.Errorf("len(ports) = %d, want %d", fwd.Ports.Len(), f.PortsPerHost())
			}
			for i := 0; i < fwd.Ports.Len(); i++ {
				back, err := f.Reverse(fwd.ExternalAddress, fwd.Ports.At(i))
				if err != nil {
					t.Fatalf("Reverse: %v", err)
				}
				if back != addr {
					t.Fatalf("Reverse(Forward(%s)) = %s, want %s", addr, back, addr)
				}
			}

			collisions, err := f.CheckForwardCollisions()
			if err != nil {
				t.Fatalf("CheckForwardCollisions: %v", err)
			}
			if len(collisions) != 0 {
				t.Errorf("collisions = %v, want none", collisions)
			}

			ok, err := f.CheckBijection(512)
			if err != nil {
				t.Fatalf("CheckBijection: %v", err)
			}
			if !ok {
				t.Error("CheckBijection(512) = false")
			}
		})
	}
}

func TestNewExcessiveCrunchFactor(t *testing.T) {
	_, err := New("192.0.2.0/24", "10.0.0.0/8", "simple", nil)
	if !errors.Is(err, ErrExcessiveCrunchFactor) {
		t.Fatalf("err = %v, want ErrExcessiveCrunchFactor", err)
	}
}

func TestNewUnknownAlgorithm(t *testing.T) {
	_, err := New("192.0.2.0/24", "10.0.0.0/16", "bogus", nil)
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("err = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestNewInvalidKeysSecure(t *testing.T) {
	_, err := New("192.0.2.0/24", "10.0.0.0/16", "secure", &Options{P: 997, Q: 991, E: 3})
	if !errors.Is(err, ErrInvalidKeys) {
		t.Fatalf("err = %v, want ErrInvalidKeys", err)
	}
}

func TestCountStrides(t *testing.T) {
	f, err := New("192.0.2.0/24", "10.0.0.0/16", "simple", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	addr, _ := ParseAddress("10.0.0.10")
	strides, err := f.CountStrides(addr)
	if err != nil {
		t.Fatalf("CountStrides: %v", err)
	}
	if len(strides) != 1 || strides[1] != int(f.PortsPerHost())-1 {
		t.Errorf("strides = %v, want {1: %d}", strides, f.PortsPerHost()-1)
	}
}
