// Package keys implements the pool's one-way key hierarchy:
// sk -> xsk -> dk -> pk_d, grounded on the derive_key_* functions in the
// native reference implementation this spec was distilled from.
package keys

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/shieldpool/core/internal/params"
	"github.com/shieldpool/core/internal/primitives"
)

// SpendingKey is the root secret of a wallet: a random scalar.
type SpendingKey struct {
	Value *big.Int
}

// NewSpendingKey draws a fresh random spending key below the scalar field.
func NewSpendingKey(p *params.Params) (*SpendingKey, error) {
	v, err := rand.Int(rand.Reader, p.ScalarField)
	if err != nil {
		return nil, fmt.Errorf("keys: random spending key: %w", err)
	}
	return &SpendingKey{Value: v}, nil
}

// ExtendedSpendingKey derives xsk, the x-coordinate of sk * G on the
// embedded curve. xsk (not sk directly) is the key material carried into
// the nullifier and decryption-key derivations.
func (sk *SpendingKey) ExtendedSpendingKey() *big.Int {
	point := primitives.ScalarMul(primitives.Base(), sk.Value)
	return point.X()
}

// DecryptionKey derives dk from xsk: a salted hash of xsk reduced modulo
// the embedded curve's subgroup order Fs, which is strictly smaller than
// the scalar field Fr the hash itself operates over. Spec §3 requires this
// reduction to keep dk a canonical Fs element regardless of which Fr
// residue the hash happens to land on.
func DecryptionKey(p *params.Params, xsk *big.Int) (*big.Int, error) {
	h, err := primitives.SaltedHash(p, params.SaltDecryptionKey, xsk)
	if err != nil {
		return nil, fmt.Errorf("keys: decryption key: %w", err)
	}
	dk := new(big.Int).Mod(h, p.EmbeddedOrder)
	orderMinusOne := new(big.Int).Sub(p.EmbeddedOrder, big.NewInt(1))
	if dk.Sign() == 0 || dk.Cmp(orderMinusOne) == 0 {
		return nil, fmt.Errorf("keys: decryption key landed on an excluded value (0 or p-1), regenerate xsk")
	}
	return dk, nil
}

// DiversifiedPublicKey derives the full curve point pk_d = dk * H(d) for a
// given diversifier. The wire encoding of a note only carries pk_d's
// x-coordinate (per spec §3/§6's NoteChunks widths); callers that need to
// perform Diffie-Hellman against an address (note encryption) need the
// full point, which is why this returns it rather than just the
// x-coordinate compressed form.
func DiversifiedPublicKey(p *params.Params, dk *big.Int, diversifier *big.Int) (*primitives.Point, error) {
	base, err := primitives.DiversifierPoint(p, diversifier)
	if err != nil {
		return nil, err
	}
	return primitives.ScalarMul(base, dk), nil
}

// Wallet bundles a spending key with its derived decryption key, the pair
// a client needs to both recognize incoming notes and spend owned ones.
type Wallet struct {
	P   *params.Params
	SK  *SpendingKey
	XSK *big.Int
	DK  *big.Int
}

// NewWallet generates a fresh spending key and derives its full hierarchy.
func NewWallet(p *params.Params) (*Wallet, error) {
	sk, err := NewSpendingKey(p)
	if err != nil {
		return nil, err
	}
	xsk := sk.ExtendedSpendingKey()
	dk, err := DecryptionKey(p, xsk)
	if err != nil {
		return nil, err
	}
	return &Wallet{P: p, SK: sk, XSK: xsk, DK: dk}, nil
}

// Address derives the diversified public key point for a given
// diversifier, the pair (diversifier, pk_d) a sender encrypts notes to.
func (w *Wallet) Address(diversifier *big.Int) (*primitives.Point, error) {
	return DiversifiedPublicKey(w.P, w.DK, diversifier)
}
