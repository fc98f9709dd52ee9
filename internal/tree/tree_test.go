package tree

import (
	"math/big"
	"testing"

	"github.com/shieldpool/core/internal/params"
)

func TestEmptyTreeRootStable(t *testing.T) {
	p := params.NewSmall()
	store := NewMemoryStore()
	tr, err := New(p, store)
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	root, err := tr.Root()
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if root.Sign() == 0 {
		t.Fatalf("empty root should not be the zero leaf itself at height %d", p.Height)
	}

	size, err := tr.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 0 {
		t.Fatalf("expected empty tree size 0, got %d", size)
	}
}

func TestAddLeafChangesRootAndIsProvable(t *testing.T) {
	p := params.NewSmall()
	store := NewMemoryStore()
	tr, err := New(p, store)
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	before, _ := tr.Root()

	leaf := big.NewInt(42)
	if err := tr.AddLeaves([]*big.Int{leaf}); err != nil {
		t.Fatalf("add leaves: %v", err)
	}
	after, err := tr.Root()
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if after.Cmp(before) == 0 {
		t.Fatalf("root did not change after adding a leaf")
	}

	path, err := tr.Path(0)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	ok, err := VerifyPath(p, leaf, path, after)
	if err != nil {
		t.Fatalf("verify path: %v", err)
	}
	if !ok {
		t.Fatalf("authentication path did not reconstruct the root")
	}
}

func TestAddLeavesSequentialPositionsRemainProvable(t *testing.T) {
	p := params.NewSmall()
	store := NewMemoryStore()
	tr, err := New(p, store)
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}

	leaves := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	if err := tr.AddLeaves(leaves); err != nil {
		t.Fatalf("add leaves: %v", err)
	}
	root, _ := tr.Root()

	for i, leaf := range leaves {
		path, err := tr.Path(uint64(i))
		if err != nil {
			t.Fatalf("path %d: %v", i, err)
		}
		ok, err := VerifyPath(p, leaf, path, root)
		if err != nil {
			t.Fatalf("verify path %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("leaf %d did not verify against final root", i)
		}
	}
}

func TestWrongLeafFailsVerification(t *testing.T) {
	p := params.NewSmall()
	store := NewMemoryStore()
	tr, err := New(p, store)
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	if err := tr.AddLeaves([]*big.Int{big.NewInt(7)}); err != nil {
		t.Fatalf("add leaves: %v", err)
	}
	root, _ := tr.Root()
	path, err := tr.Path(0)
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	ok, err := VerifyPath(p, big.NewInt(999), path, root)
	if err != nil {
		t.Fatalf("verify path: %v", err)
	}
	if ok {
		t.Fatalf("verification succeeded against a substituted leaf")
	}
}
