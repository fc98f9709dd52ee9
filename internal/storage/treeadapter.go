package storage

import (
	"context"
	"math/big"
)

// TreeAdapter adapts a PostgresStore to the tree.Store interface by
// fixing a context and mapping root/size onto the defaults column.
type TreeAdapter struct {
	ctx   context.Context
	store *PostgresStore
}

// NewTreeAdapter returns a tree.Store-shaped view over store.
func NewTreeAdapter(ctx context.Context, store *PostgresStore) *TreeAdapter {
	return &TreeAdapter{ctx: ctx, store: store}
}

const (
	defaultKeyRoot = "tree_root"
	defaultKeySize = "tree_size"
)

func (a *TreeAdapter) GetNode(level int, index uint64) (*big.Int, bool, error) {
	return a.store.GetCell(a.ctx, level, index)
}

func (a *TreeAdapter) SetNode(level int, index uint64, value *big.Int) error {
	return a.store.SetCell(a.ctx, level, index, value)
}

func (a *TreeAdapter) GetRoot() (*big.Int, error) {
	raw, found, err := a.store.GetDefault(a.ctx, defaultKeyRoot)
	if err != nil {
		return nil, err
	}
	if !found {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(raw), nil
}

func (a *TreeAdapter) SetRoot(root *big.Int) error {
	return a.store.SetDefault(a.ctx, defaultKeyRoot, root.Bytes())
}

func (a *TreeAdapter) GetSize() (uint64, error) {
	raw, found, err := a.store.GetDefault(a.ctx, defaultKeySize)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return bytesToUint64(raw), nil
}

func (a *TreeAdapter) SetSize(size uint64) error {
	return a.store.SetDefault(a.ctx, defaultKeySize, uint64ToBytes(size))
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func bytesToUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
