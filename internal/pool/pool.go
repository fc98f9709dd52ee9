// Package pool implements the on-chain side of the shielded pool: the
// verifier-side state machine that ingests a (transfer-proof,
// root-update-proof, public-signal) triple, checks both Groth16 proofs, and
// atomically advances the canonical root, nullifier set, and commitment
// set. Adapted from the teacher's ShieldedPool/ProcessTransaction, which
// trusted a single simulated proof blob; this version performs real Groth16
// verification against two independently compiled circuits.
package pool

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"

	"github.com/shieldpool/core/internal/circuit"
	"github.com/shieldpool/core/internal/params"
	"github.com/shieldpool/core/internal/primitives"
	"github.com/shieldpool/core/internal/tree"
	"github.com/shieldpool/core/pkg/types"
)

// Acceptance errors, one per rejection rule in the ten-step procedure.
var (
	ErrDuplicateNullifierInTx  = errors.New("pool: duplicate nullifier within transaction")
	ErrDuplicateCommitmentInTx = errors.New("pool: duplicate output commitment within transaction")
	ErrNullifierSpent          = errors.New("pool: nullifier already spent")
	ErrCommitmentExists        = errors.New("pool: commitment already exists")
	ErrUnknownRoot             = errors.New("pool: root is not in root history")
	ErrMemoMismatch            = errors.New("pool: memo does not match keccak256(message)")
	ErrStaleBeforeRoot         = errors.New("pool: before_root does not match current root")
	ErrTransferProofInvalid    = errors.New("pool: transfer proof failed verification")
	ErrUpdateRootProofInvalid  = errors.New("pool: update-root proof failed verification")
)

// Submission is the triple a client submits to the pool: the transfer
// statement and its proof, the encrypted output message, and the
// root-update proof that ties the transfer's output commitments into the
// next canonical root.
type Submission struct {
	Tx          types.Tx
	Message     []byte
	BeforeRoot  *big.Int
	AfterRoot   *big.Int
	UpdateProof []byte
}

// Pool is the verifier-side shielded pool state machine: the four
// append-only sequences spec §4.E names (root_history, nullifier_set,
// commitment_set, message_log), guarded by a single mutex standing in for
// the host's single-threaded transactional execution context.
type Pool struct {
	mu sync.Mutex

	p       *params.Params
	circuit *circuit.Manager

	rootHistory   []*big.Int
	nullifierSet  map[string]bool
	commitmentSet map[string]bool
	messageLog    [][]byte
}

// New constructs a pool seeded with the empty tree's root as R₀.
func New(p *params.Params, cm *circuit.Manager, emptyRoot *big.Int) *Pool {
	return &Pool{
		p:             p,
		circuit:       cm,
		rootHistory:   []*big.Int{new(big.Int).Set(emptyRoot)},
		nullifierSet:  make(map[string]bool),
		commitmentSet: make(map[string]bool),
	}
}

// NewWithTree constructs a pool whose R₀ is derived from an empty
// CommitmentTree of the pool's shape, matching the canonical empty-tree
// root any client computes locally.
func NewWithTree(p *params.Params, cm *circuit.Manager, store tree.Store) (*Pool, error) {
	t, err := tree.New(p, store)
	if err != nil {
		return nil, fmt.Errorf("pool: build empty tree: %w", err)
	}
	root, err := t.Root()
	if err != nil {
		return nil, fmt.Errorf("pool: empty root: %w", err)
	}
	return New(p, cm, root), nil
}

// NumTx returns the number of accepted transactions.
func (pl *Pool) NumTx() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.rootHistory) - 1
}

// CurrentRoot returns the most recently committed root.
func (pl *Pool) CurrentRoot() *big.Int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.rootHistory[len(pl.rootHistory)-1]
}

// HasNullifier reports whether a nullifier has already been spent.
func (pl *Pool) HasNullifier(nf *big.Int) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.nullifierSet[key(nf)]
}

// HasCommitment reports whether a commitment already exists.
func (pl *Pool) HasCommitment(c *big.Int) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.commitmentSet[key(c)]
}

// HasRoot reports whether a root appears anywhere in root_history.
func (pl *Pool) HasRoot(root *big.Int) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.indexOfRoot(root) >= 0
}

func (pl *Pool) indexOfRoot(root *big.Int) int {
	for i, r := range pl.rootHistory {
		if r.Cmp(root) == 0 {
			return i
		}
	}
	return -1
}

// RootHistory returns a copy of the full root sequence R₀..R_numTx.
func (pl *Pool) RootHistory() []*big.Int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	out := make([]*big.Int, len(pl.rootHistory))
	copy(out, pl.rootHistory)
	return out
}

// MessageLog returns a copy of every accepted transaction's message, in
// acceptance order.
func (pl *Pool) MessageLog() [][]byte {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	out := make([][]byte, len(pl.messageLog))
	copy(out, pl.messageLog)
	return out
}

func key(v *big.Int) string {
	return v.Text(16)
}

// TransferAndUpdateRoot runs the ten-step acceptance procedure against a
// submission. It either commits all four state sequences together or
// leaves the pool byte-identical to its pre-call state; every rejection
// reason is a distinct sentinel error so callers can distinguish a fatal
// abort's cause.
func (pl *Pool) TransferAndUpdateRoot(sub *Submission) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	pub := sub.Tx.Pub

	// 1. Nullifiers pairwise distinct.
	seenNullifiers := make(map[string]bool, len(pub.Nullifiers))
	for _, nf := range pub.Nullifiers {
		k := key(nf)
		if seenNullifiers[k] {
			return ErrDuplicateNullifierInTx
		}
		seenNullifiers[k] = true
	}

	// 2. Output commitments pairwise distinct.
	seenCommitments := make(map[string]bool, len(pub.OutHashes))
	for _, c := range pub.OutHashes {
		k := key(c)
		if seenCommitments[k] {
			return ErrDuplicateCommitmentInTx
		}
		seenCommitments[k] = true
	}

	// 3. No nullifier already spent.
	for _, nf := range pub.Nullifiers {
		if pl.nullifierSet[key(nf)] {
			return ErrNullifierSpent
		}
	}

	// 4. No commitment already present.
	for _, c := range pub.OutHashes {
		if pl.commitmentSet[key(c)] {
			return ErrCommitmentExists
		}
	}

	// 5. root must be a known root.
	if pl.indexOfRoot(pub.Root) < 0 {
		return ErrUnknownRoot
	}

	// 6. memo == keccak256(message) mod Fr.
	expectedMemo := primitives.Keccak256ToFr(pl.p.ScalarField, sub.Message)
	if pub.Memo.Cmp(expectedMemo) != 0 {
		return ErrMemoMismatch
	}

	// 7. before_root must equal the current root.
	current := pl.rootHistory[len(pl.rootHistory)-1]
	if current.Cmp(sub.BeforeRoot) != 0 {
		return ErrStaleBeforeRoot
	}

	// 8. Groth16-verify the transfer proof against [root, nullifiers…,
	// out_hashes…, delta, memo].
	transferCC, err := pl.circuit.CompileTransfer(pl.p)
	if err != nil {
		return fmt.Errorf("pool: compile transfer circuit: %w", err)
	}
	transferProof, err := decodeProof(sub.Tx.Proof)
	if err != nil {
		return fmt.Errorf("pool: decode transfer proof: %w", err)
	}
	transferPublic := publicTransferAssignment(pl.p, pub)
	if err := primitives.Verify(transferProof, transferCC.VK, transferPublic); err != nil {
		return ErrTransferProofInvalid
	}

	// 9. Groth16-verify the update-root proof against [before_root,
	// after_root, leaf_position, out_hashes…], leaf_position = num_tx*OUT.
	updateCC, err := pl.circuit.CompileUpdateRoot(pl.p)
	if err != nil {
		return fmt.Errorf("pool: compile update-root circuit: %w", err)
	}
	updateProof, err := decodeProof(sub.UpdateProof)
	if err != nil {
		return fmt.Errorf("pool: decode update-root proof: %w", err)
	}
	leafPosition := int64(len(pl.rootHistory)-1) * int64(pl.p.Out)
	updatePublic := publicUpdateRootAssignment(pl.p, sub.BeforeRoot, sub.AfterRoot, pub.OutHashes, leafPosition)
	if err := primitives.Verify(updateProof, updateCC.VK, updatePublic); err != nil {
		return ErrUpdateRootProofInvalid
	}

	// 10. Commit: insert nullifiers and commitments, append the message
	// and the new root. Every check above has already passed, so this
	// section cannot fail partway and leave torn state.
	for _, nf := range pub.Nullifiers {
		pl.nullifierSet[key(nf)] = true
	}
	for _, c := range pub.OutHashes {
		pl.commitmentSet[key(c)] = true
	}
	pl.messageLog = append(pl.messageLog, sub.Message)
	pl.rootHistory = append(pl.rootHistory, new(big.Int).Set(sub.AfterRoot))

	return nil
}

func decodeProof(b []byte) (groth16.Proof, error) {
	proof := groth16.NewProof(ecc.BN254)
	if err := proof.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("pool: unmarshal proof: %w", err)
	}
	return proof, nil
}

func publicTransferAssignment(p *params.Params, pub types.TransferPub) *circuit.TransferCircuit {
	c := circuit.NewTransferCircuit(p)
	c.Root = pub.Root
	c.Delta = pub.Delta
	c.Memo = pub.Memo
	for i := range pub.Nullifiers {
		c.Nullifiers[i] = pub.Nullifiers[i]
	}
	for i := range pub.OutHashes {
		c.OutHashes[i] = pub.OutHashes[i]
	}
	return c
}

func publicUpdateRootAssignment(p *params.Params, before, after *big.Int, outHashes []*big.Int, position int64) *circuit.UpdateRootCircuit {
	c := circuit.NewUpdateRootCircuit(p)
	c.BeforeRoot = before
	c.AfterRoot = after
	c.Position = position
	for i := range outHashes {
		c.OutHashes[i] = outHashes[i]
	}
	return c
}
