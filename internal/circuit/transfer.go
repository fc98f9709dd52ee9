// Package circuit defines the transfer relation as a gnark arithmetic
// circuit, replacing the teacher's placeholder sum-check circuit with the
// full ten-constraint relation spec §4.C describes.
package circuit

import (
	"math/big"

	tedwardsID "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/shieldpool/core/internal/params"
)

// NoteVar is a note's field layout inside a circuit.
type NoteVar struct {
	D     frontend.Variable
	PkD   frontend.Variable
	Value frontend.Variable
	St    frontend.Variable
}

// PathVar is a Merkle authentication path inside a circuit.
type PathVar struct {
	Siblings []frontend.Variable
	PathBits []frontend.Variable
}

// TransferCircuit is the statement: "I know xsk and a set of owned input
// notes and freshly-built output notes such that every input's nullifier
// is correctly derived, every non-padding input is a member of the tree
// at Root, the outputs hash to OutHashes, the whole statement is signed,
// and output value equals input value plus the signed delta."
type TransferCircuit struct {
	// Public inputs.
	Root       frontend.Variable   `gnark:",public"`
	Nullifiers []frontend.Variable `gnark:",public"`
	OutHashes  []frontend.Variable `gnark:",public"`
	Delta      frontend.Variable   `gnark:",public"`
	Memo       frontend.Variable   `gnark:",public"`

	// Secret witness. The signature (eddsa_r, eddsa_s) lives here, not in
	// the public signal: the circuit checks it against xsk internally and
	// the proof attests to its validity without exposing it.
	XSK     frontend.Variable
	SigR8X  frontend.Variable
	SigR8Y  frontend.Variable
	SigS    frontend.Variable
	In      []NoteVar
	InPaths []PathVar
	Out     []NoteVar

	p *params.Params
}

// NewTransferCircuit allocates an empty circuit shaped by p, suitable for
// frontend.Compile.
func NewTransferCircuit(p *params.Params) *TransferCircuit {
	c := &TransferCircuit{p: p}
	c.Nullifiers = make([]frontend.Variable, p.In)
	c.OutHashes = make([]frontend.Variable, p.Out)
	c.In = make([]NoteVar, p.In)
	c.Out = make([]NoteVar, p.Out)
	c.InPaths = make([]PathVar, p.In)
	for i := range c.InPaths {
		c.InPaths[i].Siblings = make([]frontend.Variable, p.Height)
		c.InPaths[i].PathBits = make([]frontend.Variable, p.Height)
	}
	return c
}

// Define implements frontend.Circuit.
func (c *TransferCircuit) Define(api frontend.API) error {
	curve, err := twistededwards.NewEdCurve(api, tedwardsID.BN254)
	if err != nil {
		return err
	}
	curveParams := curve.Params()

	// 1. Range checks: value fits its declared width (64 bits), the
	// diversifier and state seed fit their declared widths.
	for i := range c.In {
		api.ToBinary(c.In[i].Value, 64)
		api.ToBinary(c.In[i].D, 80)
		api.ToBinary(c.In[i].St, 80)
	}
	for i := range c.Out {
		api.ToBinary(c.Out[i].Value, 64)
		api.ToBinary(c.Out[i].D, 80)
		api.ToBinary(c.Out[i].St, 80)
	}

	// 2. dk re-derivation: dk = SaltedHash(DECRYPTION_KEY, xsk) reduced
	// modulo the embedded curve's subgroup order, mirroring
	// keys.DecryptionKey's native Mod reduction (a uniform Fr hash
	// exceeds the subgroup order with overwhelming probability, so
	// asserting a bit-width range check alone is unsatisfiable for an
	// honest prover almost every time).
	h, err := saltedHashCircuit(api, c.p.SaltFr(params.SaltDecryptionKey), c.XSK)
	if err != nil {
		return err
	}
	dk, err := c.reduceDecryptionKey(api, h)
	if err != nil {
		return err
	}

	nullifierHashes := make([]frontend.Variable, len(c.In))
	outHashes := make([]frontend.Variable, len(c.Out))

	var inSum, outSum frontend.Variable = 0, 0

	for i, in := range c.In {
		noteHash, err := saltedHashCircuit(api, c.p.SaltFr(params.SaltNoteHash), in.D, in.PkD, in.Value, in.St)
		if err != nil {
			return err
		}

		// Padding inputs (value == 0) carry an arbitrary, non-owned
		// pk_d per spec §4.D's builder, so both ownership and Merkle
		// membership are gated by value != 0; only the nullifier and
		// its uniqueness remain unconditional.
		isZeroValue := api.IsZero(in.Value)
		notZero := api.Sub(1, isZeroValue)

		// 3. Ownership: pk_d == (dk * H(d)).x, gated by value != 0. H(d) is
		// the diversifier salted into a scalar before mapping to a curve
		// point, mirroring primitives.DiversifierPoint natively.
		hdScalar, err := saltedHashCircuit(api, c.p.SaltFr(params.SaltDiversifier), in.D)
		if err != nil {
			return err
		}
		hd := curve.ScalarMul(curveParams.Base, hdScalar)
		pkdPoint := curve.ScalarMul(hd, dk)
		pkDiff := api.Sub(in.PkD, pkdPoint.X)
		api.AssertIsEqual(api.Mul(pkDiff, notZero), 0)

		// 4. Nullifier recomputation.
		nf, err := saltedHashCircuit(api, c.p.SaltFr(params.SaltNullifier), noteHash, c.XSK)
		if err != nil {
			return err
		}
		api.AssertIsEqual(nf, c.Nullifiers[i])
		nullifierHashes[i] = nf

		// 7. Merkle membership, gated by value != 0 so padding input
		// slots are exempt — the critical padding-input exemption.
		root := c.reconstructRoot(api, noteHash, c.InPaths[i])
		rootDiff := api.Sub(root, c.Root)
		api.AssertIsEqual(api.Mul(rootDiff, notZero), 0)

		inSum = api.Add(inSum, in.Value)
	}

	// 5. Pairwise nullifier uniqueness: every pair of nullifiers is
	// asserted to differ.
	for i := 0; i < len(nullifierHashes); i++ {
		for j := i + 1; j < len(nullifierHashes); j++ {
			api.AssertIsDifferent(nullifierHashes[i], nullifierHashes[j])
		}
	}

	for i, out := range c.Out {
		noteHash, err := saltedHashCircuit(api, c.p.SaltFr(params.SaltNoteHash), out.D, out.PkD, out.Value, out.St)
		if err != nil {
			return err
		}
		// 6. Output commitment binding.
		api.AssertIsEqual(noteHash, c.OutHashes[i])
		outHashes[i] = noteHash
		outSum = api.Add(outSum, out.Value)
	}
	for i := 0; i < len(outHashes); i++ {
		for j := i + 1; j < len(outHashes); j++ {
			api.AssertIsDifferent(outHashes[i], outHashes[j])
		}
	}

	// 8. Memo binding: memo+1 != 0, a constraint that consumes the Memo
	// public input (Memo is also hashed into TxHash below).
	api.AssertIsDifferent(api.Add(c.Memo, 1), 0)

	// 9. EdDSA-over-TxHash signature verification. The signer's public
	// key is derived from the same xsk that authorizes spending the
	// inputs, so the signature binds the statement to the spender.
	txInputs := append([]frontend.Variable{c.Root}, c.Nullifiers...)
	txInputs = append(txInputs, c.OutHashes...)
	txInputs = append(txInputs, c.Delta, c.Memo)
	txHash, err := saltedHashCircuit(api, c.p.SaltFr(params.SaltTxHash), txInputs...)
	if err != nil {
		return err
	}

	signerPub := curve.ScalarMul(curveParams.Base, c.XSK)
	challenge, err := saltedHashCircuit(api, c.p.SaltFr("EDDSA_CHALLENGE"), c.SigR8X, c.SigR8Y, signerPub.X, signerPub.Y, txHash)
	if err != nil {
		return err
	}
	lhs := curve.ScalarMul(curveParams.Base, c.SigS)
	rhs := curve.Add(twistededwards.Point{X: c.SigR8X, Y: c.SigR8Y}, curve.ScalarMul(signerPub, challenge))
	api.AssertIsEqual(lhs.X, rhs.X)
	api.AssertIsEqual(lhs.Y, rhs.Y)

	// 10. Balance conservation: out_sum == in_sum + delta, i.e.
	// delta = out_sum - in_sum. Delta is a plain field element here: a
	// negative int64 delta is assigned as its additive inverse mod Fr, and
	// no 64-bit range check is applied to it in-circuit.
	api.AssertIsEqual(outSum, api.Add(inSum, c.Delta))

	return nil
}

// reduceDecryptionKey reduces the full-width salted hash h modulo the
// embedded curve's subgroup order, the in-circuit mirror of
// keys.DecryptionKey's native big.Int Mod reduction. The quotient and
// remainder come in as an unconstrained hint, then the division identity
// and range checks bind them: the remainder is held below order-1 (spec
// §4.C constraint 2's dk_bits != p-1) and nonzero, and the quotient is
// bounded so the division identity can't be satisfied by an Fr-wraparound
// that never runs through the intended quotient/remainder pair.
func (c *TransferCircuit) reduceDecryptionKey(api frontend.API, h frontend.Variable) (frontend.Variable, error) {
	order := c.p.EmbeddedOrder
	qMax := new(big.Int).Div(new(big.Int).Sub(c.p.ScalarField, big.NewInt(1)), order)
	orderMinusTwo := new(big.Int).Sub(order, big.NewInt(2))

	res, err := api.Compiler().NewHint(reduceModHint, 2, h, order)
	if err != nil {
		return nil, err
	}
	q, r := res[0], res[1]

	api.AssertIsEqual(h, api.Add(api.Mul(q, order), r))
	api.AssertIsLessOrEqual(q, qMax)
	api.AssertIsLessOrEqual(r, orderMinusTwo)
	api.AssertIsDifferent(r, 0)

	return r, nil
}

// reconstructRoot recombines a leaf with its authentication path using the
// same salted compression the native tree package uses.
func (c *TransferCircuit) reconstructRoot(api frontend.API, leaf frontend.Variable, path PathVar) frontend.Variable {
	cur := leaf
	for level := 0; level < len(path.Siblings); level++ {
		bit := path.PathBits[level]
		sib := path.Siblings[level]
		left := api.Select(bit, sib, cur)
		right := api.Select(bit, cur, sib)
		next, _ := saltedHashCircuit(api, c.p.SaltFr(params.SaltCompress), left, right)
		cur = next
	}
	return cur
}

// saltedHashCircuit hashes a salt constant together with a variable-width
// input vector, mirroring primitives.SaltedHash's native calling
// convention inside the circuit.
func saltedHashCircuit(api frontend.API, salt frontend.Variable, inputs ...frontend.Variable) (frontend.Variable, error) {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}
	hasher.Write(salt)
	hasher.Write(inputs...)
	return hasher.Sum(), nil
}
