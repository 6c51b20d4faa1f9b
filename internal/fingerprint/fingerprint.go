// Package fingerprint derives the content fingerprint that links a local
// market to its on-chain question. The question contract commits
// uint128(keccak256(bytes(title))) at creation time; matching only works if
// this package produces the exact same value, so the encoding here (UTF-8
// bytes, Keccak-256, low 16 digest bytes, big-endian) must never drift.
package fingerprint

import (
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Size is the fingerprint width in bytes.
const Size = 16

// Title computes the 128-bit fingerprint of a market title. Solidity's
// uint128 truncation of a 32-byte word keeps the low-order half, which is
// digest bytes 16 through 31.
func Title(title string) *big.Int {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(title))
	digest := h.Sum(nil)
	return new(big.Int).SetBytes(digest[Size:])
}

// Hex renders a fingerprint as a fixed-width 0x-prefixed hex string, padded
// to the full 16 bytes.
func Hex(fp *big.Int) string {
	buf := make([]byte, Size)
	fp.FillBytes(buf)
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 2+2*Size)
	out[0], out[1] = '0', 'x'
	for i, b := range buf {
		out[2+2*i] = hexdigits[b>>4]
		out[3+2*i] = hexdigits[b&0x0f]
	}
	return string(out)
}
