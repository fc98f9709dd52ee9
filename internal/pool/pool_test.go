package pool

import (
	"math/big"
	"testing"

	"github.com/shieldpool/core/internal/circuit"
	"github.com/shieldpool/core/internal/params"
	"github.com/shieldpool/core/internal/primitives"
	"github.com/shieldpool/core/internal/tree"
	"github.com/shieldpool/core/pkg/types"
)

func newTestPool(t *testing.T) (*Pool, *params.Params) {
	t.Helper()
	p := params.NewSmall()
	cm := circuit.NewManager()
	store := tree.NewMemoryStore()
	pl, err := NewWithTree(p, cm, store)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return pl, p
}

func baseSubmission(p *params.Params, pl *Pool) *Submission {
	root := pl.CurrentRoot()
	message := []byte("hello")
	memo := primitives.Keccak256ToFr(p.ScalarField, message)
	return &Submission{
		Tx: types.Tx{
			Pub: types.TransferPub{
				Root:       root,
				Nullifiers: []*big.Int{big.NewInt(1), big.NewInt(2)},
				OutHashes:  []*big.Int{big.NewInt(3), big.NewInt(4)},
				Delta:      0,
				Memo:       memo,
			},
			Proof: []byte{},
		},
		Message:    message,
		BeforeRoot: root,
		AfterRoot:  big.NewInt(99),
	}
}

func TestInitialStateEmpty(t *testing.T) {
	pl, _ := newTestPool(t)
	if pl.NumTx() != 0 {
		t.Fatalf("expected 0 accepted transactions, got %d", pl.NumTx())
	}
	if len(pl.RootHistory()) != 1 {
		t.Fatalf("expected root_history of length 1, got %d", len(pl.RootHistory()))
	}
}

func TestRejectsDuplicateNullifierInTx(t *testing.T) {
	pl, p := newTestPool(t)
	sub := baseSubmission(p, pl)
	sub.Tx.Pub.Nullifiers = []*big.Int{big.NewInt(5), big.NewInt(5)}
	if err := pl.TransferAndUpdateRoot(sub); err != ErrDuplicateNullifierInTx {
		t.Fatalf("expected ErrDuplicateNullifierInTx, got %v", err)
	}
}

func TestRejectsDuplicateCommitmentInTx(t *testing.T) {
	pl, p := newTestPool(t)
	sub := baseSubmission(p, pl)
	sub.Tx.Pub.OutHashes = []*big.Int{big.NewInt(7), big.NewInt(7)}
	if err := pl.TransferAndUpdateRoot(sub); err != ErrDuplicateCommitmentInTx {
		t.Fatalf("expected ErrDuplicateCommitmentInTx, got %v", err)
	}
}

func TestRejectsUnknownRoot(t *testing.T) {
	pl, p := newTestPool(t)
	sub := baseSubmission(p, pl)
	sub.Tx.Pub.Root = big.NewInt(424242)
	if err := pl.TransferAndUpdateRoot(sub); err != ErrUnknownRoot {
		t.Fatalf("expected ErrUnknownRoot, got %v", err)
	}
}

func TestRejectsMemoMismatch(t *testing.T) {
	pl, p := newTestPool(t)
	sub := baseSubmission(p, pl)
	sub.Tx.Pub.Memo = big.NewInt(1)
	if err := pl.TransferAndUpdateRoot(sub); err != ErrMemoMismatch {
		t.Fatalf("expected ErrMemoMismatch, got %v", err)
	}
}

func TestRejectsStaleBeforeRoot(t *testing.T) {
	pl, p := newTestPool(t)
	sub := baseSubmission(p, pl)
	sub.BeforeRoot = big.NewInt(123456789)
	if err := pl.TransferAndUpdateRoot(sub); err != ErrStaleBeforeRoot {
		t.Fatalf("expected ErrStaleBeforeRoot, got %v", err)
	}
}

func TestRejectionLeavesStateUnchanged(t *testing.T) {
	pl, p := newTestPool(t)
	before := pl.RootHistory()
	sub := baseSubmission(p, pl)
	sub.Tx.Pub.Memo = big.NewInt(1)
	if err := pl.TransferAndUpdateRoot(sub); err == nil {
		t.Fatalf("expected rejection")
	}
	after := pl.RootHistory()
	if len(before) != len(after) {
		t.Fatalf("root_history length changed on rejection: %d -> %d", len(before), len(after))
	}
	if pl.HasNullifier(big.NewInt(1)) {
		t.Fatalf("nullifier recorded despite rejection")
	}
}
