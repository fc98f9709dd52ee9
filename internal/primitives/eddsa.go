package primitives

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/shieldpool/core/internal/params"
)

// SigningKey is a Schnorr-style EdDSA-like signing key over the embedded
// curve: a scalar used directly (without the RFC 8032 seed-expansion step)
// so the same derivation can be mirrored exactly inside the transfer
// circuit using only the curve's scalar-multiplication gadget.
type SigningKey struct {
	Scalar *big.Int
}

// VerifyingKey is the public half of a SigningKey: Scalar * Base.
type VerifyingKey struct {
	Point *Point
}

// NewSigningKey wraps a scalar (typically xsk or a value derived from it)
// as a signing key.
func NewSigningKey(scalar *big.Int) *SigningKey {
	return &SigningKey{Scalar: scalar}
}

// Public derives the verifying key.
func (sk *SigningKey) Public() *VerifyingKey {
	return &VerifyingKey{Point: ScalarMul(Base(), sk.Scalar)}
}

// Sign produces a Schnorr-style signature (R, S) over a field-element
// message: R = r*G for a fresh random nonce r, c = SaltedHash(R, A, msg),
// S = (r + c*scalar) mod the embedded curve's subgroup order. The reduction
// keeps S below Fr, so the transfer circuit, which receives S as a field
// element, multiplies the base point by the same integer Verify does.
func (sk *SigningKey) Sign(p *params.Params, msg *big.Int) (*Point, *big.Int, error) {
	r, err := rand.Int(rand.Reader, p.ScalarField)
	if err != nil {
		return nil, nil, fmt.Errorf("primitives: eddsa nonce: %w", err)
	}
	R := ScalarMul(Base(), r)
	pub := sk.Public()

	c, err := SaltedHash(p, "EDDSA_CHALLENGE", R.X(), R.Y(), pub.Point.X(), pub.Point.Y(), msg)
	if err != nil {
		return nil, nil, fmt.Errorf("primitives: eddsa challenge: %w", err)
	}

	s := new(big.Int).Mul(c, sk.Scalar)
	s.Add(s, r)
	s.Mod(s, p.EmbeddedOrder)
	return R, s, nil
}

// Verify checks S*G == R + c*A, recomputing c from R, A, and msg exactly
// as Sign does.
func (vk *VerifyingKey) Verify(p *params.Params, R *Point, S *big.Int, msg *big.Int) (bool, error) {
	c, err := SaltedHash(p, "EDDSA_CHALLENGE", R.X(), R.Y(), vk.Point.X(), vk.Point.Y(), msg)
	if err != nil {
		return false, fmt.Errorf("primitives: eddsa challenge: %w", err)
	}

	lhs := ScalarMul(Base(), S)
	rhs := Add(R, ScalarMul(vk.Point, c))
	return lhs.X().Cmp(rhs.X()) == 0 && lhs.Y().Cmp(rhs.Y()) == 0, nil
}
