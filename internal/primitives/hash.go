// Package primitives wraps the cryptographic building blocks the rest of
// the pool is built from: the salted domain-separated hash, EdDSA over the
// embedded twisted-Edwards curve, Keccak-256, and Groth16 proof
// verification. None of these reimplement a permutation, a curve, or a
// pairing algorithm — they call straight through to gnark/gnark-crypto,
// matching the scope spec.md's Non-goals draw around this layer.
package primitives

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/shieldpool/core/internal/params"
)

// SaltedHash hashes a salt name together with a variable-width vector of
// field elements, folding the salt in as the leading element. This is the
// single primitive every domain-separated hash in the pool (note hash,
// nullifier, tx hash, Merkle compression, diversifier/decryption-key
// derivation) is built from.
//
// The concrete permutation is MiMC over BN254's scalar field rather than
// Poseidon: gnark/gnark-crypto ship MiMC natively and in-circuit with
// guaranteed bit-for-bit agreement between the two, which this module
// depends on for soundness. See DESIGN.md for the full rationale.
func SaltedHash(p *params.Params, salt string, inputs ...*big.Int) (*big.Int, error) {
	h := mimc.NewMiMC()

	saltBytes := frBytes(p.SaltFr(salt))
	if _, err := h.Write(saltBytes); err != nil {
		return nil, fmt.Errorf("primitives: write salt: %w", err)
	}
	for i, in := range inputs {
		if in == nil {
			return nil, fmt.Errorf("primitives: salted hash input %d is nil", i)
		}
		reduced := new(big.Int).Mod(in, p.ScalarField)
		if _, err := h.Write(frBytes(reduced)); err != nil {
			return nil, fmt.Errorf("primitives: write input %d: %w", i, err)
		}
	}

	sum := h.Sum(nil)
	return new(big.Int).SetBytes(sum), nil
}

// MerkleCompress hashes two field elements together under the tree's
// internal-node salt, used to combine a node with its sibling.
func MerkleCompress(p *params.Params, salt string, left, right *big.Int) (*big.Int, error) {
	return SaltedHash(p, salt, left, right)
}

func frBytes(v *big.Int) []byte {
	var e fr.Element
	e.SetBigInt(v)
	b := e.Bytes()
	return b[:]
}
