package primitives

import (
	"math/big"

	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes the concatenation of byte slices with Keccak-256,
// matching spec §4.B's memo hash and note-encryption KDF.
func Keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Keccak256ToFr hashes its inputs and reduces the digest modulo the scalar
// field, used for the memo encoding (`memo = Keccak256(message) mod Fr`).
func Keccak256ToFr(fieldOrder *big.Int, parts ...[]byte) *big.Int {
	digest := Keccak256(parts...)
	v := new(big.Int).SetBytes(digest)
	return v.Mod(v, fieldOrder)
}
