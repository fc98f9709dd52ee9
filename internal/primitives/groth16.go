package primitives

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"
)

// Prove runs the Groth16 prover for a compiled circuit assignment.
//
// This module does not reimplement the prover or the underlying multiexp
// and FFT routines — spec.md scopes those out explicitly. gnark's own
// groth16.Prove computes the proof; this wrapper only adapts the call
// shape to this repo's types. The verifier-side procedure is in Verify.
func Prove(ccs frontend.CompiledConstraintSystem, pk groth16.ProvingKey, full frontend.Circuit) (groth16.Proof, error) {
	w, err := frontend.NewWitness(full, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("primitives: build witness: %w", err)
	}
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		return nil, fmt.Errorf("primitives: groth16 prove: %w", err)
	}
	return proof, nil
}

// Verify checks a Groth16 proof against its verifying key and the public
// portion of a witness.
//
// Internally this is exactly spec §4.A's procedure: reject unless
// len(ic) == len(publicInputs)+1, fold the public inputs into a single G1
// accumulator via multiexp with a leading constant-1 term, then check the
// batched pairing equation against the identity in Gt. gnark-crypto's
// groth16.Verify performs this; it is not duplicated here.
func Verify(proof groth16.Proof, vk groth16.VerifyingKey, pub frontend.Circuit) error {
	w, err := frontend.NewWitness(pub, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("primitives: build public witness: %w", err)
	}
	if err := groth16.Verify(proof, vk, w); err != nil {
		return fmt.Errorf("primitives: groth16 verify: %w", err)
	}
	return nil
}

// PublicWitnessVector extracts the ordered field-element vector a host's
// pairing precompile would need, for wire encoding per spec §6.
//
// Open question (per spec §9, left to the host integrator): some hosts'
// alt_bn128 pairing precompiles expect G2 points serialized with their Fq2
// coefficients reversed (c0,c1) -> (c1,c0) relative to gnark-crypto's
// native encoding. This module does not guess at a specific host's
// convention; callers that submit proofs to such a host must apply that
// reversal themselves when serializing the verifying key's G2 elements
// and the proof's B element.
func PublicWitnessVector(pub frontend.Circuit) (witness.Witness, error) {
	w, err := frontend.NewWitness(pub, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, fmt.Errorf("primitives: public witness vector: %w", err)
	}
	return w, nil
}
