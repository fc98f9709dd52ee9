package primitives

import (
	"math/big"
	"testing"

	"github.com/shieldpool/core/internal/params"
)

func TestSaltedHashDeterministic(t *testing.T) {
	p := params.New()
	a, err := SaltedHash(p, params.SaltNoteHash, big.NewInt(1), big.NewInt(2))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := SaltedHash(p, params.SaltNoteHash, big.NewInt(1), big.NewInt(2))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a.Cmp(b) != 0 {
		t.Fatalf("salted hash not deterministic: %v != %v", a, b)
	}
}

func TestSaltedHashDomainSeparation(t *testing.T) {
	p := params.New()
	a, err := SaltedHash(p, params.SaltNoteHash, big.NewInt(1))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := SaltedHash(p, params.SaltNullifier, big.NewInt(1))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a.Cmp(b) == 0 {
		t.Fatalf("different salts produced the same hash")
	}
}

func TestEdDSASignVerify(t *testing.T) {
	p := params.New()
	sk := NewSigningKey(big.NewInt(424242))
	msg := big.NewInt(123456789)
	R, S, err := sk.Sign(p, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ok, err := sk.Public().Verify(p, R, S, msg)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("signature did not verify")
	}

	wrong := big.NewInt(987654321)
	ok, err = sk.Public().Verify(p, R, S, wrong)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("signature verified against a different message")
	}
}

func TestDiversifierPointNonZero(t *testing.T) {
	p := params.New()
	pt, err := DiversifierPoint(p, big.NewInt(42))
	if err != nil {
		t.Fatalf("diversifier point: %v", err)
	}
	if pt.X().Sign() == 0 && pt.Y().Cmp(big.NewInt(1)) == 0 {
		t.Fatalf("diversifier point collapsed to identity")
	}
}
