// Package params bundles the pool's shape and domain-separation constants
// behind a single type, following Design Note 9's guidance to thread one
// reference-to-parameters through the circuit, the client builder, and the
// pool state machine rather than scattering them as package-level globals.
package params

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	tbn254 "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
)

// Domain salts separate the uses of the salted hash from one another. Each
// is folded in as the leading field element of the hash input vector.
const (
	SaltNoteHash      = "NOTE_HASH"
	SaltTxHash        = "TX_HASH"
	SaltNullifier     = "NULLIFIER"
	SaltDiversifier   = "DIVERSIFIER"
	SaltDecryptionKey = "DECRYPTION_KEY"
	SaltCompress      = "COMPRESS"
)

// Note chunk widths in bytes: diversifier, diversified public key x-coord,
// value, state/random seed. Their sum is the compressed note size.
var NoteChunks = [4]int{10, 32, 8, 10}

// NoteSize is the total compressed note length in bytes.
const NoteSize = 10 + 32 + 8 + 10

// Params is the production shape: six inputs, two outputs, a 32-level tree.
type Params struct {
	In     int
	Out    int
	Height int

	// ScalarField is the field the circuit and the salted hash operate
	// over (BN254's scalar field, Fr).
	ScalarField *big.Int

	// EmbeddedOrder is the order of the embedded twisted-Edwards
	// curve's prime-order subgroup (Fs), strictly smaller than Fr.
	EmbeddedOrder *big.Int
}

// New returns the production parameter set (IN=6, OUT=2, H=32).
func New() *Params {
	return &Params{
		In:            6,
		Out:           2,
		Height:        32,
		ScalarField:   ecc.BN254.ScalarField(),
		EmbeddedOrder: embeddedSubgroupOrder(),
	}
}

// NewSmall returns a reduced-shape parameter set for tests, trading a
// shallower tree and fewer input/output slots for fast fixture setup.
func NewSmall() *Params {
	return &Params{
		In:            2,
		Out:           2,
		Height:        4,
		ScalarField:   ecc.BN254.ScalarField(),
		EmbeddedOrder: embeddedSubgroupOrder(),
	}
}

// SaltFr folds a salt name into a field element by reducing it modulo the
// scalar field, matching the "prepend a domain constant" calling
// convention used throughout the salted hash.
func (p *Params) SaltFr(name string) *big.Int {
	h := new(big.Int).SetBytes([]byte(name))
	return h.Mod(h, p.ScalarField)
}

func embeddedSubgroupOrder() *big.Int {
	curve := tbn254.GetEdwardsCurve()
	order := new(big.Int).Set(&curve.Order)
	return order
}
