package types

import (
	"math/big"
	"testing"

	"github.com/shieldpool/core/internal/params"
)

func TestNoteCompressedRoundTrip(t *testing.T) {
	n := &Note{
		D:     big.NewInt(7),
		PkD:   big.NewInt(123456789),
		Value: 42,
		St:    big.NewInt(999),
	}
	b, err := n.ToCompressed()
	if err != nil {
		t.Fatalf("to compressed: %v", err)
	}
	if len(b) != params.NoteSize {
		t.Fatalf("expected %d bytes, got %d", params.NoteSize, len(b))
	}

	got, err := NoteFromCompressed(b)
	if err != nil {
		t.Fatalf("from compressed: %v", err)
	}
	if got.D.Cmp(n.D) != 0 || got.PkD.Cmp(n.PkD) != 0 || got.Value != n.Value || got.St.Cmp(n.St) != 0 {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, n)
	}
}

func TestNoteCompressedAcceptsFullWidthChunks(t *testing.T) {
	// A diversifier/state filling the entire 80-bit chunk, and a pk_d
	// filling the entire 32-byte chunk, must still round-trip: the codec
	// only rejects a value that does not fit, not one that exactly fills
	// its chunk.
	fullDiversifier := new(big.Int).Sub(MaxChunkBits, big.NewInt(1))
	fullPkD := new(big.Int).Sub(params.New().ScalarField, big.NewInt(1))
	n := &Note{D: fullDiversifier, PkD: fullPkD, Value: 7, St: fullDiversifier}

	b, err := n.ToCompressed()
	if err != nil {
		t.Fatalf("to compressed: %v", err)
	}
	got, err := NoteFromCompressed(b)
	if err != nil {
		t.Fatalf("from compressed: %v", err)
	}
	if got.D.Cmp(n.D) != 0 || got.PkD.Cmp(n.PkD) != 0 || got.St.Cmp(n.St) != 0 {
		t.Fatalf("full-width chunk round trip mismatch: got %+v, want %+v", got, n)
	}
}

func TestNoteCompressedRejectsOversizedField(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	n := &Note{D: huge, PkD: big.NewInt(1), Value: 1, St: big.NewInt(1)}
	if _, err := n.ToCompressed(); err == nil {
		t.Fatalf("expected oversized diversifier to be rejected")
	}
}

func TestNoteHashDeterministic(t *testing.T) {
	p := params.New()
	n := &Note{D: big.NewInt(1), PkD: big.NewInt(2), Value: 10, St: big.NewInt(3)}
	h1, err := NoteHash(p, n)
	if err != nil {
		t.Fatalf("note hash: %v", err)
	}
	h2, err := NoteHash(p, n)
	if err != nil {
		t.Fatalf("note hash: %v", err)
	}
	if h1.Cmp(h2) != 0 {
		t.Fatalf("note hash not deterministic")
	}
}

func TestTxHashBindsAllFields(t *testing.T) {
	p := params.New()
	pub := TransferPub{
		Root:       big.NewInt(1),
		Nullifiers: []*big.Int{big.NewInt(2), big.NewInt(3)},
		OutHashes:  []*big.Int{big.NewInt(4), big.NewInt(5)},
		Delta:      -100,
		Memo:       big.NewInt(6),
	}
	h1, err := TxHash(p, pub)
	if err != nil {
		t.Fatalf("tx hash: %v", err)
	}

	pub2 := pub
	pub2.Delta = -101
	h2, err := TxHash(p, pub2)
	if err != nil {
		t.Fatalf("tx hash: %v", err)
	}
	if h1.Cmp(h2) == 0 {
		t.Fatalf("tx hash did not change when delta changed")
	}
}

func TestPaddingNotesAreDistinct(t *testing.T) {
	p := params.New()
	a, err := NewPaddingNote(p)
	if err != nil {
		t.Fatalf("new padding note: %v", err)
	}
	b, err := NewPaddingNote(p)
	if err != nil {
		t.Fatalf("new padding note: %v", err)
	}
	ha, err := NoteHash(p, a)
	if err != nil {
		t.Fatalf("note hash: %v", err)
	}
	hb, err := NoteHash(p, b)
	if err != nil {
		t.Fatalf("note hash: %v", err)
	}
	if ha.Cmp(hb) == 0 {
		t.Fatalf("two padding notes hashed identically, would collide in the nullifier/output-hash uniqueness constraint")
	}
}

func TestHashFromBigIntRoundTrip(t *testing.T) {
	v := big.NewInt(123456789)
	h := HashFromBigInt(v)
	if h.BigInt().Cmp(v) != 0 {
		t.Fatalf("hash round trip mismatch")
	}
}
