package rsaperm

import (
	"errors"
	"testing"
)

func TestRoundTripDefault(t *testing.T) {
	perm, err := New(DefaultP, DefaultQ, DefaultE)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if perm.N() != 64507 {
		t.Fatalf("N() = %d, want 64507", perm.N())
	}
	for x := int64(0); x < perm.N(); x++ {
		enc := perm.Encrypt(x)
		if enc < 0 || enc >= perm.N() {
			t.Fatalf("Encrypt(%d) = %d out of range [0, %d)", x, enc, perm.N())
		}
		if dec := perm.Decrypt(enc); dec != x {
			t.Fatalf("Decrypt(Encrypt(%d)) = %d, want %d", x, dec, x)
		}
	}
}

func TestNewInvalidKeysTooLarge(t *testing.T) {
	_, err := New(997, 991, 3) // product far exceeds MaxN
	if !errors.Is(err, ErrInvalidKeys) {
		t.Fatalf("err = %v, want ErrInvalidKeys", err)
	}
}

func TestNewInvalidKeysNoInverse(t *testing.T) {
	// p=3, q=5 -> phi=8; e=2 shares a factor with 8.
	_, err := New(3, 5, 2)
	if !errors.Is(err, ErrInvalidKeys) {
		t.Fatalf("err = %v, want ErrInvalidKeys", err)
	}
}

func TestEncryptIsPermutation(t *testing.T) {
	perm, err := New(11, 13, 7) // n = 143
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seen := make(map[int64]bool, perm.N())
	for x := int64(0); x < perm.N(); x++ {
		y := perm.Encrypt(x)
		if seen[y] {
			t.Fatalf("Encrypt(%d) collides with a previous value at %d", x, y)
		}
		seen[y] = true
	}
	if int64(len(seen)) != perm.N() {
		t.Fatalf("got %d distinct images, want %d", len(seen), perm.N())
	}
}
