// Package tree implements the pool's incremental, append-only commitment
// tree: a fixed-height binary Merkle tree over note hashes, with a
// precomputed empty-subtree cache so an unfilled tree never needs its
// absent leaves materialized.
package tree

import (
	"fmt"
	"math/big"

	"github.com/shieldpool/core/internal/params"
	"github.com/shieldpool/core/internal/primitives"
)

// Store is the backing key-value interface a CommitmentTree writes
// through. Implementations keep one cell per (level, index) pair plus the
// tree's current root and size.
type Store interface {
	GetNode(level int, index uint64) (*big.Int, bool, error)
	SetNode(level int, index uint64, value *big.Int) error
	GetRoot() (*big.Int, error)
	SetRoot(root *big.Int) error
	GetSize() (uint64, error)
	SetSize(size uint64) error
}

// Path is a Merkle authentication path: one sibling hash per level, and the
// bit at each level selecting whether the known node was the left or right
// child (0 = left, 1 = right).
type Path struct {
	Siblings []*big.Int
	PathBits []int
	Position uint64
}

// CommitmentTree is a fixed-height append-only Merkle tree of note hashes.
type CommitmentTree struct {
	p         *params.Params
	store     Store
	emptyNode []*big.Int // emptyNode[level] is the hash of an empty subtree rooted at that level
}

// New constructs a CommitmentTree over store, initializing the store's root
// to the empty tree's root if it has never been set.
func New(p *params.Params, store Store) (*CommitmentTree, error) {
	t := &CommitmentTree{p: p, store: store}
	if err := t.precomputeEmptySubtrees(); err != nil {
		return nil, fmt.Errorf("tree: precompute empty subtrees: %w", err)
	}

	size, err := store.GetSize()
	if err != nil {
		return nil, fmt.Errorf("tree: get size: %w", err)
	}
	if size == 0 {
		if _, found, err := store.GetNode(p.Height, 0); err != nil {
			return nil, fmt.Errorf("tree: get root node: %w", err)
		} else if !found {
			if err := store.SetRoot(t.emptyNode[p.Height]); err != nil {
				return nil, fmt.Errorf("tree: set initial root: %w", err)
			}
		}
	}
	return t, nil
}

func (t *CommitmentTree) precomputeEmptySubtrees() error {
	t.emptyNode = make([]*big.Int, t.p.Height+1)
	t.emptyNode[0] = big.NewInt(0)
	for level := 1; level <= t.p.Height; level++ {
		h, err := primitives.MerkleCompress(t.p, params.SaltCompress, t.emptyNode[level-1], t.emptyNode[level-1])
		if err != nil {
			return err
		}
		t.emptyNode[level] = h
	}
	return nil
}

// Root returns the tree's current root.
func (t *CommitmentTree) Root() (*big.Int, error) {
	return t.store.GetRoot()
}

// Size returns the number of leaves committed so far.
func (t *CommitmentTree) Size() (uint64, error) {
	return t.store.GetSize()
}

// AddLeaves appends a batch of leaf hashes at the tree's current size,
// writing each leaf and its touched interior nodes, then the new size and
// root. Every write is a separate Store call and Store has no batch or
// transaction, so a failure partway leaves the writes made so far in place.
func (t *CommitmentTree) AddLeaves(leaves []*big.Int) error {
	size, err := t.store.GetSize()
	if err != nil {
		return fmt.Errorf("tree: get size: %w", err)
	}

	for i, leaf := range leaves {
		index := size + uint64(i)
		if index>>uint(t.p.Height) != 0 {
			return fmt.Errorf("tree: full at height %d", t.p.Height)
		}
		if err := t.store.SetNode(0, index, leaf); err != nil {
			return fmt.Errorf("tree: set leaf %d: %w", index, err)
		}
		if err := t.bubbleUp(index); err != nil {
			return fmt.Errorf("tree: bubble up leaf %d: %w", index, err)
		}
	}

	newSize := size + uint64(len(leaves))
	if err := t.store.SetSize(newSize); err != nil {
		return fmt.Errorf("tree: set size: %w", err)
	}

	root, err := t.nodeAt(t.p.Height, 0)
	if err != nil {
		return fmt.Errorf("tree: recompute root: %w", err)
	}
	return t.store.SetRoot(root)
}

func (t *CommitmentTree) bubbleUp(leafIndex uint64) error {
	index := leafIndex
	for level := 0; level < t.p.Height; level++ {
		siblingIndex := index ^ 1
		sibling, err := t.nodeAt(level, siblingIndex)
		if err != nil {
			return err
		}
		self, err := t.nodeAt(level, index)
		if err != nil {
			return err
		}

		var left, right *big.Int
		if index%2 == 0 {
			left, right = self, sibling
		} else {
			left, right = sibling, self
		}
		parent, err := primitives.MerkleCompress(t.p, params.SaltCompress, left, right)
		if err != nil {
			return err
		}

		index /= 2
		if err := t.store.SetNode(level+1, index, parent); err != nil {
			return err
		}
	}
	return nil
}

// nodeAt returns the value at (level, index), falling back to the
// precomputed empty-subtree hash if the cell was never written.
func (t *CommitmentTree) nodeAt(level int, index uint64) (*big.Int, error) {
	v, found, err := t.store.GetNode(level, index)
	if err != nil {
		return nil, err
	}
	if found {
		return v, nil
	}
	return t.emptyNode[level], nil
}

// Path returns the authentication path for the leaf at position.
func (t *CommitmentTree) Path(position uint64) (*Path, error) {
	path := &Path{
		Siblings: make([]*big.Int, t.p.Height),
		PathBits: make([]int, t.p.Height),
		Position: position,
	}
	index := position
	for level := 0; level < t.p.Height; level++ {
		siblingIndex := index ^ 1
		sibling, err := t.nodeAt(level, siblingIndex)
		if err != nil {
			return nil, fmt.Errorf("tree: path sibling at level %d: %w", level, err)
		}
		path.Siblings[level] = sibling
		path.PathBits[level] = int(index % 2)
		index /= 2
	}
	return path, nil
}

// VerifyPath reconstructs a root from a leaf and its authentication path
// and reports whether it matches want.
func VerifyPath(p *params.Params, leaf *big.Int, path *Path, want *big.Int) (bool, error) {
	got, err := ReconstructRoot(p, leaf, path)
	if err != nil {
		return false, err
	}
	return got.Cmp(want) == 0, nil
}

// ReconstructRoot walks an authentication path from a leaf up to the root,
// the same recombination the circuit's Merkle-membership gate performs.
func ReconstructRoot(p *params.Params, leaf *big.Int, path *Path) (*big.Int, error) {
	cur := leaf
	for level := 0; level < len(path.Siblings); level++ {
		sib := path.Siblings[level]
		var left, right *big.Int
		if path.PathBits[level] == 0 {
			left, right = cur, sib
		} else {
			left, right = sib, cur
		}
		next, err := primitives.MerkleCompress(p, params.SaltCompress, left, right)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
