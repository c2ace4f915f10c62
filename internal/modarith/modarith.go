// Package modarith provides the small-integer modular arithmetic
// primitives (extended GCD, modular inverse, modular exponentiation)
// that the RSA-style port permutation is built on. Every modulus used
// by this program fits comfortably in 64 bits, so no big.Int is needed.
package modarith

import "fmt"

// ErrNoInverse is returned by ModInverse when a has no inverse mod m,
// i.e. gcd(a, m) != 1.
var ErrNoInverse = fmt.Errorf("modarith: no modular inverse exists")

// ExtendedGCD returns (g, x, y) such that a*x + b*y = g = gcd(a, b).
// a and b must be non-negative and not both zero. The implementation
// is iterative rather than the textbook recursive one, since the
// recursive form risks unnecessary stack growth for no benefit here.
func ExtendedGCD(a, b int64) (g, x, y int64) {
	oldR, r := a, b
	oldS, s := int64(1), int64(0)
	oldT, t := int64(0), int64(1)

	for r != 0 {
		q := oldR / r
		oldR, r = r, oldR-q*r
		oldS, s = s, oldS-q*s
		oldT, t = t, oldT-q*t
	}
	return oldR, oldS, oldT
}

// ModInverse returns a^-1 mod m, a value in [0, m). It returns
// ErrNoInverse if gcd(a, m) != 1.
func ModInverse(a, m int64) (int64, error) {
	g, x, _ := ExtendedGCD(a, m)
	if g != 1 {
		return 0, ErrNoInverse
	}
	return ((x % m) + m) % m, nil
}

// ModPow computes base^exp mod modulus using square-and-multiply.
// base and exp must be non-negative and modulus must be positive.
// Intermediate products stay within int64 range for the modulus sizes
// used by this program (modulus <= 2^20).
func ModPow(base, exp, modulus int64) int64 {
	if modulus == 1 {
		return 0
	}
	result := int64(1)
	base = base % modulus
	for exp > 0 {
		if exp&1 == 1 {
			result = (result * base) % modulus
		}
		exp >>= 1
		base = (base * base) % modulus
	}
	return result
}
