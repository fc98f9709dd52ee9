package keys

import (
	"math/big"
	"testing"

	"github.com/shieldpool/core/internal/params"
)

func TestWalletDerivationDeterministicFromSK(t *testing.T) {
	p := params.New()
	w, err := NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}

	xsk := w.SK.ExtendedSpendingKey()
	if xsk.Cmp(w.XSK) != 0 {
		t.Fatalf("xsk not reproducible from sk")
	}

	dk, err := DecryptionKey(p, xsk)
	if err != nil {
		t.Fatalf("decryption key: %v", err)
	}
	if dk.Cmp(w.DK) != 0 {
		t.Fatalf("dk not reproducible from xsk")
	}
}

func TestDecryptionKeyBelowEmbeddedOrder(t *testing.T) {
	p := params.New()
	w, err := NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	if w.DK.Cmp(p.EmbeddedOrder) >= 0 {
		t.Fatalf("dk is not reduced below the embedded subgroup order")
	}
}

func TestAddressDeterministicPerDiversifier(t *testing.T) {
	p := params.New()
	w, err := NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	d := big.NewInt(5)
	a1, err := w.Address(d)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	a2, err := w.Address(d)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if a1.X().Cmp(a2.X()) != 0 {
		t.Fatalf("address derivation not deterministic")
	}

	d2 := big.NewInt(6)
	a3, err := w.Address(d2)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	if a1.X().Cmp(a3.X()) == 0 {
		t.Fatalf("different diversifiers produced the same address")
	}
}
