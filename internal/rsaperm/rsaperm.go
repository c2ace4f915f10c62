// Package rsaperm builds an RSA-style bijection on [0, n) from two
// small primes and an exponent, used by the "secure" algorithm to
// obfuscate port allocation order. It provides no cryptographic
// confidentiality; p and q are small enough to factor instantly.
package rsaperm

import (
	"fmt"

	"github.com/rbreathe/crunchnat/internal/modarith"
)

// DefaultP, DefaultQ, DefaultE are the default RSA-ish parameters: n =
// 251*257 = 64507, comfortably under the 64512 usable-port ceiling.
const (
	DefaultP = 251
	DefaultQ = 257
	DefaultE = 19
)

// MaxN is the largest permutation domain size this program's port
// space can accommodate: PORTS_PER_IP - RESERVED_PORTS.
const MaxN = 64512

// ErrInvalidKeys is returned by New when p*q exceeds MaxN or e has no
// inverse modulo (p-1)(q-1).
var ErrInvalidKeys = fmt.Errorf("rsaperm: invalid keys")

// Permutation is an immutable encrypt/decrypt pair on [0, n).
type Permutation struct {
	n, d, e int64
}

// New constructs a Permutation from primes p, q and exponent e.
// Fails with ErrInvalidKeys if p*q > MaxN or gcd(e, (p-1)(q-1)) != 1.
func New(p, q, e int64) (*Permutation, error) {
	n := p * q
	if n > MaxN {
		return nil, fmt.Errorf("%w: p*q = %d exceeds %d", ErrInvalidKeys, n, MaxN)
	}
	phi := (p - 1) * (q - 1)
	d, err := modarith.ModInverse(e, phi)
	if err != nil {
		return nil, fmt.Errorf("%w: e=%d has no inverse mod %d: %v", ErrInvalidKeys, e, phi, err)
	}
	return &Permutation{n: n, d: d, e: e}, nil
}

// N returns the size of the permutation domain, p*q.
func (perm *Permutation) N() int64 { return perm.n }

// Encrypt maps x in [0, n) to its image under x^e mod n. The caller
// must ensure x is in [0, n); behavior outside that range is
// undefined (spec.md §9, open question (c)).
func (perm *Permutation) Encrypt(x int64) int64 {
	return modarith.ModPow(x, perm.e, perm.n)
}

// Decrypt inverts Encrypt: Decrypt(Encrypt(x)) == x for all x in [0, n).
func (perm *Permutation) Decrypt(y int64) int64 {
	return modarith.ModPow(y, perm.d, perm.n)
}
