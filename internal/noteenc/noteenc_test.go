package noteenc

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/shieldpool/core/internal/keys"
	"github.com/shieldpool/core/internal/params"
)

func TestEncryptDecryptAsReceiver(t *testing.T) {
	p := params.New()
	receiver, err := keys.NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	sender, err := keys.NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}

	d := big.NewInt(77)
	addr, err := receiver.Address(d)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	plaintext := []byte("a shielded note worth spending carefully")
	binding := []byte("note-hash-placeholder")

	ct, err := Encrypt(p, d, addr, sender.DK, binding, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := DecryptAsReceiver(p, ct, receiver.DK)
	if err != nil {
		t.Fatalf("decrypt as receiver: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("receiver decrypt mismatch: got %q want %q", got, plaintext)
	}
}

func TestEncryptDecryptAsSender(t *testing.T) {
	p := params.New()
	receiver, err := keys.NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	sender, err := keys.NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}

	d := big.NewInt(13)
	addr, err := receiver.Address(d)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	plaintext := []byte("sender-recoverable plaintext")
	binding := []byte("binding")

	ct, err := Encrypt(p, d, addr, sender.DK, binding, plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := DecryptAsSender(p, ct, sender.DK)
	if err != nil {
		t.Fatalf("decrypt as sender: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("sender recovery mismatch: got %q want %q", got, plaintext)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	p := params.New()
	receiver, err := keys.NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	other, err := keys.NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}
	sender, err := keys.NewWallet(p)
	if err != nil {
		t.Fatalf("new wallet: %v", err)
	}

	d := big.NewInt(3)
	addr, err := receiver.Address(d)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	plaintext := []byte("only the right key opens this")
	ct, err := Encrypt(p, d, addr, sender.DK, []byte("b"), plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := DecryptAsReceiver(p, ct, other.DK)
	if err != nil {
		t.Fatalf("decrypt as receiver: %v", err)
	}
	if bytes.Equal(got, plaintext) {
		t.Fatalf("decryption succeeded with the wrong key")
	}
}
