// Package types defines the pool's wire-level data model: the compressed
// note encoding, transfer public/secret inputs, and the transaction object
// a client submits to the pool.
package types

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/shieldpool/core/internal/params"
	"github.com/shieldpool/core/internal/primitives"
)

// HashSize is the width of a field-element hash as used on the wire.
const HashSize = 32

// Hash is a 32-byte field element: a note hash, nullifier, root, or tx hash.
type Hash [HashSize]byte

// HashFromBigInt encodes a big.Int as a big-endian 32-byte Hash.
func HashFromBigInt(v *big.Int) Hash {
	var h Hash
	b := v.Bytes()
	if len(b) > HashSize {
		b = b[len(b)-HashSize:]
	}
	copy(h[HashSize-len(b):], b)
	return h
}

// BigInt decodes a Hash back into a big.Int.
func (h Hash) BigInt() *big.Int {
	return new(big.Int).SetBytes(h[:])
}

// IsZero reports whether every byte of h is zero.
func (h Hash) IsZero() bool {
	for _, b := range h {
		if b != 0 {
			return false
		}
	}
	return true
}

// ErrChunkTooWide is returned when a note field does not fit in its
// assigned chunk width.
var ErrChunkTooWide = errors.New("types: note field exceeds its chunk width")

// Note is the pool's UTXO-like note: a diversifier, a diversified public
// key x-coordinate, a value, and a state/seed field. Compressed encoding
// uses the fixed chunk widths params.NoteChunks = [10, 32, 8, 10].
type Note struct {
	D     *big.Int // diversifier
	PkD   *big.Int // diversified public key x-coordinate
	Value uint64
	St    *big.Int // per-note random seed / state
}

// MaxChunkBits bounds the diversifier and state chunks (80 bits each, per
// params.NoteChunks), the ceiling any note's D/St field must stay under so
// both the wire codec's chunk width and the transfer circuit's
// api.ToBinary(_, 80) range checks accept it.
var MaxChunkBits = new(big.Int).Lsh(big.NewInt(1), 80)

// RandomChunkScalar draws a uniform value in [0, 2^80), suitable for a
// note's diversifier or state field.
func RandomChunkScalar() (*big.Int, error) {
	return primitives.RandomScalar(MaxChunkBits)
}

// NewPaddingNote returns a zero-value note used to pad unused input/output
// slots in a transfer, per spec §4.C/§4.D. Its diversifier, state, and
// pk_d are random rather than zero: the transfer circuit requires every
// nullifier, and every output hash, to be pairwise distinct even across
// padding slots, so two padding notes must never hash identically.
func NewPaddingNote(p *params.Params) (*Note, error) {
	d, err := RandomChunkScalar()
	if err != nil {
		return nil, fmt.Errorf("types: padding diversifier: %w", err)
	}
	st, err := RandomChunkScalar()
	if err != nil {
		return nil, fmt.Errorf("types: padding state: %w", err)
	}
	pkd, err := primitives.RandomScalar(p.ScalarField)
	if err != nil {
		return nil, fmt.Errorf("types: padding pk_d: %w", err)
	}
	return &Note{D: d, PkD: pkd, Value: 0, St: st}, nil
}

// ToCompressed serializes the note into its 60-byte wire form. Per spec §6
// the wire format is little-endian throughout, matching the Borsh-encoded
// original (tx.rs's to_compressed): each chunk holds a field's low bytes,
// zero-extended at the high end; a value that does not fit in its chunk's
// byte width returns ErrChunkTooWide so a caller never silently truncates a
// note field.
func (n *Note) ToCompressed() ([]byte, error) {
	out := make([]byte, params.NoteSize)
	off := 0

	if err := writeChunk(out[off:off+params.NoteChunks[0]], n.D); err != nil {
		return nil, fmt.Errorf("types: diversifier: %w", err)
	}
	off += params.NoteChunks[0]

	if err := writeChunk(out[off:off+params.NoteChunks[1]], n.PkD); err != nil {
		return nil, fmt.Errorf("types: pk_d: %w", err)
	}
	off += params.NoteChunks[1]

	valBytes := make([]byte, params.NoteChunks[2])
	binary.LittleEndian.PutUint64(valBytes, n.Value)
	copy(out[off:off+params.NoteChunks[2]], valBytes)
	off += params.NoteChunks[2]

	if err := writeChunk(out[off:off+params.NoteChunks[3]], n.St); err != nil {
		return nil, fmt.Errorf("types: state: %w", err)
	}

	return out, nil
}

// NoteFromCompressed parses a 60-byte little-endian compressed note.
func NoteFromCompressed(b []byte) (*Note, error) {
	if len(b) != params.NoteSize {
		return nil, fmt.Errorf("types: compressed note must be %d bytes, got %d", params.NoteSize, len(b))
	}
	off := 0

	d := readChunk(b[off : off+params.NoteChunks[0]])
	off += params.NoteChunks[0]

	pkd := readChunk(b[off : off+params.NoteChunks[1]])
	off += params.NoteChunks[1]

	value := binary.LittleEndian.Uint64(b[off : off+params.NoteChunks[2]])
	off += params.NoteChunks[2]

	st := readChunk(b[off : off+params.NoteChunks[3]])

	return &Note{D: d, PkD: pkd, Value: value, St: st}, nil
}

// writeChunk little-endian-encodes v's low bytes into dst, zero-extending
// at the high end. A value whose minimal encoding is wider than dst is
// rejected; one that exactly fills it (e.g. a full 80-bit diversifier or a
// full-width 32-byte pk_d x-coordinate) is accepted, matching the original
// codec (tx.rs's to_compressed) which rejects a field only when bytes
// *above* the chunk width are nonzero.
func writeChunk(dst []byte, v *big.Int) error {
	if v == nil {
		return nil
	}
	b := v.Bytes() // big-endian, minimal width
	if len(b) > len(dst) {
		return ErrChunkTooWide
	}
	for i, by := range b {
		dst[len(b)-1-i] = by
	}
	return nil
}

// readChunk decodes a fixed-width little-endian chunk back into a value.
// Every byte pattern in a fixed-width chunk decodes to exactly one value,
// so unlike writeChunk this never fails.
func readChunk(src []byte) *big.Int {
	be := make([]byte, len(src))
	for i, by := range src {
		be[len(src)-1-i] = by
	}
	return new(big.Int).SetBytes(be)
}

// NoteHash computes the salted note hash over (d, pk_d, v, st).
func NoteHash(p *params.Params, n *Note) (*big.Int, error) {
	return primitives.SaltedHash(p, params.SaltNoteHash,
		n.D, n.PkD, new(big.Int).SetUint64(n.Value), n.St)
}

// TransferPub is the public input vector of a transfer statement: root,
// nullifiers, output note hashes, the signed balance delta, and the memo.
type TransferPub struct {
	Root       *big.Int
	Nullifiers []*big.Int
	OutHashes  []*big.Int
	Delta      int64
	Memo       *big.Int
}

// TransferSec is the secret witness of a transfer statement: the spending
// key material, the EdDSA-style signature over TxHash(p, pub), and the full
// input/output note set with their Merkle paths. The signature is part of
// the witness, not the public signal: the circuit checks it against XSK
// internally and the proof attests to its validity without exposing it.
type TransferSec struct {
	XSK         *big.Int
	SigR8X      *big.Int
	SigR8Y      *big.Int
	SigS        *big.Int
	In          []*Note
	InPaths     [][]*big.Int
	InPathBits  [][]int
	InPositions []uint64
	Out         []*Note
}

// Tx is the transaction object a client submits to the pool: a transfer
// statement's public inputs plus the serialized Groth16 proof. The
// signature is not carried here; it stays in TransferSec.
type Tx struct {
	Pub   TransferPub
	Proof []byte
}

// TxHash computes the salted hash binding every public field of a transfer
// together, which the client signs and the circuit re-derives.
func TxHash(p *params.Params, pub TransferPub) (*big.Int, error) {
	inputs := make([]*big.Int, 0, 2+len(pub.Nullifiers)+len(pub.OutHashes)+1)
	inputs = append(inputs, pub.Root)
	inputs = append(inputs, pub.Nullifiers...)
	inputs = append(inputs, pub.OutHashes...)
	inputs = append(inputs, big.NewInt(pub.Delta))
	inputs = append(inputs, pub.Memo)
	return primitives.SaltedHash(p, params.SaltTxHash, inputs...)
}

// Nullifier computes the nullifier for a note hash under a spender's
// extended spending key xsk; the note's tree position is not an input.
func Nullifier(p *params.Params, noteHash *big.Int, xsk *big.Int) (*big.Int, error) {
	return primitives.SaltedHash(p, params.SaltNullifier, noteHash, xsk)
}
