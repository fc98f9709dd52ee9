// Package client implements a wallet's local view of the pool: its own
// merkle tree replica, its set of unspent notes, and a transaction builder
// that selects notes, constructs a transfer witness, and produces a
// Groth16 proof.
package client

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/shieldpool/core/internal/circuit"
	"github.com/shieldpool/core/internal/keys"
	"github.com/shieldpool/core/internal/noteenc"
	"github.com/shieldpool/core/internal/params"
	"github.com/shieldpool/core/internal/primitives"
	"github.com/shieldpool/core/internal/tree"
	"github.com/shieldpool/core/pkg/types"
)

// OwnedNote is a note this wallet holds the spending authority for, along
// with the tree position it was committed at.
type OwnedNote struct {
	Note     *types.Note
	Position uint64
	Spent    bool
}

// State is a client's local replica of the pool: its wallet, its tree
// mirror (so it can produce Merkle paths without trusting a third party),
// and its set of owned notes.
type State struct {
	p       *params.Params
	Wallet  *keys.Wallet
	Tree    *tree.CommitmentTree
	Notes   []*OwnedNote
	circuit *circuit.Manager
}

// NewState constructs a fresh client state over an existing tree replica.
func NewState(p *params.Params, wallet *keys.Wallet, t *tree.CommitmentTree, cm *circuit.Manager) *State {
	return &State{p: p, Wallet: wallet, Tree: t, circuit: cm}
}

// Balance returns the sum of all unspent owned notes' values.
func (s *State) Balance() uint64 {
	var total uint64
	for _, n := range s.Notes {
		if !n.Spent {
			total += n.Note.Value
		}
	}
	return total
}

// ReceiveNote records a note this wallet now controls at the given tree
// position (called after decrypting an incoming ciphertext, or after
// building one's own change/output note).
func (s *State) ReceiveNote(note *types.Note, position uint64) {
	s.Notes = append(s.Notes, &OwnedNote{Note: note, Position: position})
}

// unspent returns every unspent owned note.
func (s *State) unspent() []*OwnedNote {
	out := make([]*OwnedNote, 0, len(s.Notes))
	for _, n := range s.Notes {
		if !n.Spent {
			out = append(out, n)
		}
	}
	return out
}

// ErrInsufficientFunds is returned when no selection of unspent notes
// covers the requested amount.
var ErrInsufficientFunds = fmt.Errorf("client: insufficient funds")

// selectNotes picks up to p.In unspent notes covering amount, sorted
// descending by value and then greedily downsized: while removing the
// smallest chosen note in favor of a smaller unchosen one still covers the
// amount, swap it in, shrinking the eventual change note. This mirrors the
// reference client's note-selection/downsizing algorithm.
func (s *State) selectNotes(amount uint64) ([]*OwnedNote, error) {
	candidates := s.unspent()
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Note.Value > candidates[j].Note.Value
	})

	var chosen []*OwnedNote
	var sum uint64
	for _, c := range candidates {
		if sum >= amount {
			break
		}
		if len(chosen) >= s.p.In {
			break
		}
		chosen = append(chosen, c)
		sum += c.Note.Value
	}
	if sum < amount {
		return nil, ErrInsufficientFunds
	}

	unchosen := candidates[len(chosen):]
	improved := true
	for improved {
		improved = false
		sort.Slice(chosen, func(i, j int) bool { return chosen[i].Note.Value < chosen[j].Note.Value })
		for _, u := range unchosen {
			if len(chosen) == 0 {
				break
			}
			smallest := chosen[0]
			if u.Note.Value >= smallest.Note.Value {
				continue
			}
			newSum := sum - smallest.Note.Value + u.Note.Value
			if newSum >= amount {
				sum = newSum
				chosen[0] = u
				improved = true
				break
			}
		}
	}

	if len(chosen) > s.p.In {
		return nil, fmt.Errorf("client: selection requires more than %d input slots", s.p.In)
	}
	return chosen, nil
}

// Transfer builds, signs, and proves a transfer spending `amount` to a
// recipient address, with any excess returned to the wallet's own address
// as a change note. Returns the submittable Tx and the client-side note
// bookkeeping the caller should apply once the pool accepts it.
func (s *State) Transfer(recipientDiversifier *big.Int, recipientPkD *primitives.Point, amount uint64, memoMessage []byte) (*types.Tx, []*types.Note, error) {
	chosen, err := s.selectNotes(amount)
	if err != nil {
		return nil, nil, err
	}

	inputs := make([]*types.Note, s.p.In)
	inPositions := make([]uint64, s.p.In)
	var spendSum uint64
	for i := 0; i < s.p.In; i++ {
		if i < len(chosen) {
			inputs[i] = chosen[i].Note
			inPositions[i] = chosen[i].Position
			spendSum += chosen[i].Note.Value
		} else {
			pad, err := types.NewPaddingNote(s.p)
			if err != nil {
				return nil, nil, err
			}
			inputs[i] = pad
		}
	}

	change := spendSum - amount
	outputs := make([]*types.Note, s.p.Out)
	outSt, err := types.RandomChunkScalar()
	if err != nil {
		return nil, nil, err
	}
	outputs[0] = &types.Note{D: recipientDiversifier, PkD: recipientPkD.X(), Value: amount, St: outSt}
	for i := 1; i < s.p.Out; i++ {
		if i == 1 && change > 0 {
			selfDiversifier, err := types.RandomChunkScalar()
			if err != nil {
				return nil, nil, err
			}
			selfAddr, err := s.Wallet.Address(selfDiversifier)
			if err != nil {
				return nil, nil, err
			}
			changeSt, err := types.RandomChunkScalar()
			if err != nil {
				return nil, nil, err
			}
			outputs[i] = &types.Note{D: selfDiversifier, PkD: selfAddr.X(), Value: change, St: changeSt}
		} else {
			pad, err := types.NewPaddingNote(s.p)
			if err != nil {
				return nil, nil, err
			}
			outputs[i] = pad
		}
	}

	pub, sec, err := s.buildWitness(inputs, inPositions, outputs, memoMessage)
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.signAndProve(pub, sec)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range chosen {
		c.Spent = true
	}
	return tx, outputs, nil
}

// Deposit builds, signs, and proves an externally-funded transfer: every
// input slot is padding and the recipient's output note is funded entirely
// by the positive signed delta, per spec §8 scenario 1 (the "deposit-
// equivalent" transaction).
func (s *State) Deposit(recipientDiversifier *big.Int, recipientPkD *primitives.Point, amount uint64, memoMessage []byte) (*types.Tx, []*types.Note, error) {
	inputs := make([]*types.Note, s.p.In)
	inPositions := make([]uint64, s.p.In)
	for i := range inputs {
		pad, err := types.NewPaddingNote(s.p)
		if err != nil {
			return nil, nil, err
		}
		inputs[i] = pad
	}

	outputs := make([]*types.Note, s.p.Out)
	outSt, err := types.RandomChunkScalar()
	if err != nil {
		return nil, nil, err
	}
	outputs[0] = &types.Note{D: recipientDiversifier, PkD: recipientPkD.X(), Value: amount, St: outSt}
	for i := 1; i < s.p.Out; i++ {
		pad, err := types.NewPaddingNote(s.p)
		if err != nil {
			return nil, nil, err
		}
		outputs[i] = pad
	}

	pub, sec, err := s.buildWitness(inputs, inPositions, outputs, memoMessage)
	if err != nil {
		return nil, nil, err
	}

	tx, err := s.signAndProve(pub, sec)
	if err != nil {
		return nil, nil, err
	}
	return tx, outputs, nil
}

// signAndProve signs pub's TxHash with sec.XSK and proves the resulting
// statement, shared between Transfer and Deposit.
func (s *State) signAndProve(pub types.TransferPub, sec types.TransferSec) (*types.Tx, error) {
	txHash, err := types.TxHash(s.p, pub)
	if err != nil {
		return nil, err
	}

	// The signer's scalar is xsk, matching the circuit's derivation of
	// the signer's public key from xsk directly.
	signer := primitives.NewSigningKey(sec.XSK)
	R, S, err := signer.Sign(s.p, txHash)
	if err != nil {
		return nil, fmt.Errorf("client: sign: %w", err)
	}
	sec.SigR8X = R.X()
	sec.SigR8Y = R.Y()
	sec.SigS = S

	proof, err := s.prove(pub, sec)
	if err != nil {
		return nil, err
	}

	return &types.Tx{Pub: pub, Proof: proof}, nil
}

// prove compiles (or reuses the cached compilation of) the transfer
// circuit for this client's parameter shape, assigns the witness from pub
// and sec, and returns the serialized Groth16 proof.
func (s *State) prove(pub types.TransferPub, sec types.TransferSec) ([]byte, error) {
	cc, err := s.circuit.CompileTransfer(s.p)
	if err != nil {
		return nil, fmt.Errorf("client: compile transfer circuit: %w", err)
	}

	assignment := circuit.NewTransferCircuit(s.p)
	assignment.Root = pub.Root
	assignment.Delta = pub.Delta
	assignment.Memo = pub.Memo
	assignment.SigR8X = sec.SigR8X
	assignment.SigR8Y = sec.SigR8Y
	assignment.SigS = sec.SigS
	assignment.XSK = sec.XSK

	for i := range pub.Nullifiers {
		assignment.Nullifiers[i] = pub.Nullifiers[i]
	}
	for i := range pub.OutHashes {
		assignment.OutHashes[i] = pub.OutHashes[i]
	}
	for i, n := range sec.In {
		assignment.In[i] = circuit.NoteVar{
			D:     n.D,
			PkD:   n.PkD,
			Value: new(big.Int).SetUint64(n.Value),
			St:    n.St,
		}
		for level := 0; level < s.p.Height; level++ {
			assignment.InPaths[i].Siblings[level] = sec.InPaths[i][level]
			assignment.InPaths[i].PathBits[level] = sec.InPathBits[i][level]
		}
	}
	for i, n := range sec.Out {
		assignment.Out[i] = circuit.NoteVar{
			D:     n.D,
			PkD:   n.PkD,
			Value: new(big.Int).SetUint64(n.Value),
			St:    n.St,
		}
	}

	proof, err := primitives.Prove(cc.CCS, cc.PK, assignment)
	if err != nil {
		return nil, fmt.Errorf("client: prove: %w", err)
	}

	return proof.MarshalBinary(), nil
}

func (s *State) buildWitness(inputs []*types.Note, positions []uint64, outputs []*types.Note, memoMessage []byte) (types.TransferPub, types.TransferSec, error) {
	root, err := s.Tree.Root()
	if err != nil {
		return types.TransferPub{}, types.TransferSec{}, fmt.Errorf("client: root: %w", err)
	}

	nullifiers := make([]*big.Int, len(inputs))
	inPaths := make([][]*big.Int, len(inputs))
	inPathBits := make([][]int, len(inputs))
	for i, n := range inputs {
		nh, err := types.NoteHash(s.p, n)
		if err != nil {
			return types.TransferPub{}, types.TransferSec{}, err
		}
		nullifiers[i], err = types.Nullifier(s.p, nh, s.Wallet.XSK)
		if err != nil {
			return types.TransferPub{}, types.TransferSec{}, err
		}
		if n.Value == 0 {
			// Padding input: exempt from Merkle membership, so its
			// path is the all-zeros filler the circuit ignores.
			inPaths[i] = make([]*big.Int, s.p.Height)
			for level := range inPaths[i] {
				inPaths[i][level] = big.NewInt(0)
			}
			inPathBits[i] = make([]int, s.p.Height)
			continue
		}
		path, err := s.Tree.Path(positions[i])
		if err != nil {
			return types.TransferPub{}, types.TransferSec{}, fmt.Errorf("client: path for input %d: %w", i, err)
		}
		inPaths[i] = path.Siblings
		inPathBits[i] = path.PathBits
	}

	outHashes := make([]*big.Int, len(outputs))
	var outSum uint64
	for i, o := range outputs {
		h, err := types.NoteHash(s.p, o)
		if err != nil {
			return types.TransferPub{}, types.TransferSec{}, err
		}
		outHashes[i] = h
		outSum += o.Value
	}

	var inSum uint64
	for _, n := range inputs {
		inSum += n.Value
	}
	// delta = out_sum - in_sum, matching the circuit's balance constraint.
	delta := int64(outSum) - int64(inSum)

	memo := primitives.Keccak256ToFr(s.p.ScalarField, memoMessage)

	pub := types.TransferPub{
		Root:       root,
		Nullifiers: nullifiers,
		OutHashes:  outHashes,
		Delta:      delta,
		Memo:       memo,
	}
	sec := types.TransferSec{
		XSK:         s.Wallet.XSK,
		In:          inputs,
		InPaths:     inPaths,
		InPathBits:  inPathBits,
		InPositions: positions,
		Out:         outputs,
	}
	return pub, sec, nil
}

// ProveUpdateRoot proves the second Groth16 statement a submission needs:
// that appending outHashes at the tree's current size transforms the
// before-root into the after-root. It also applies the insertion to this
// client's own tree replica, so the caller's local view stays in sync with
// what it is telling the pool to commit.
func (s *State) ProveUpdateRoot(outHashes []*big.Int) (beforeRoot, afterRoot *big.Int, proofBytes []byte, err error) {
	beforeRoot, err = s.Tree.Root()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("client: before root: %w", err)
	}
	position, err := s.Tree.Size()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("client: tree size: %w", err)
	}

	if err := s.Tree.AddLeaves(outHashes); err != nil {
		return nil, nil, nil, fmt.Errorf("client: add leaves: %w", err)
	}
	afterRoot, err = s.Tree.Root()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("client: after root: %w", err)
	}

	// Paths are read after the insertion: UpdateRootCircuit checks the last
	// inserted leaf's path against AfterRoot, so that path must already
	// include every other leaf of the batch.
	paths := make([]*tree.Path, len(outHashes))
	for i := range outHashes {
		path, err := s.Tree.Path(position + uint64(i))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("client: insertion path %d: %w", i, err)
		}
		paths[i] = path
	}

	cc, err := s.circuit.CompileUpdateRoot(s.p)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("client: compile update-root circuit: %w", err)
	}

	assignment := circuit.NewUpdateRootCircuit(s.p)
	assignment.BeforeRoot = beforeRoot
	assignment.AfterRoot = afterRoot
	assignment.Position = new(big.Int).SetUint64(position)
	for i, h := range outHashes {
		assignment.OutHashes[i] = h
		for lvl := 0; lvl < s.p.Height; lvl++ {
			assignment.Paths[i].Siblings[lvl] = paths[i].Siblings[lvl]
			assignment.Paths[i].PathBits[lvl] = paths[i].PathBits[lvl]
		}
	}

	proof, err := primitives.Prove(cc.CCS, cc.PK, assignment)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("client: prove update-root: %w", err)
	}

	return beforeRoot, afterRoot, proof.MarshalBinary(), nil
}

// EncryptOutputs encrypts every non-padding output note to its recipient,
// for inclusion alongside the submitted Tx.
func EncryptOutputs(p *params.Params, outputs []*types.Note, pkDPoints []*primitives.Point, senderDK *big.Int) ([]*noteenc.Ciphertext, error) {
	out := make([]*noteenc.Ciphertext, len(outputs))
	for i, o := range outputs {
		if o.Value == 0 {
			continue
		}
		plaintext, err := o.ToCompressed()
		if err != nil {
			return nil, fmt.Errorf("client: encode output %d: %w", i, err)
		}
		nh, err := types.NoteHash(p, o)
		if err != nil {
			return nil, err
		}
		ct, err := noteenc.Encrypt(p, o.D, pkDPoints[i], senderDK, nh.Bytes(), plaintext)
		if err != nil {
			return nil, fmt.Errorf("client: encrypt output %d: %w", i, err)
		}
		out[i] = ct
	}
	return out, nil
}
