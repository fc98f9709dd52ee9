package circuit

import (
	"math/big"

	"github.com/consensys/gnark/constraint/solver"
)

func init() {
	solver.RegisterHint(reduceModHint)
}

// reduceModHint computes q, r such that inputs[0] = q*inputs[1] + r with
// 0 <= r < inputs[1], the quotient/remainder pair reduceDecryptionKey needs
// as an unconstrained witness before asserting the division identity and
// range-checking r in-circuit.
func reduceModHint(_ *big.Int, inputs []*big.Int, outputs []*big.Int) error {
	h, order := inputs[0], inputs[1]
	q, r := new(big.Int), new(big.Int)
	q.DivMod(h, order, r)
	outputs[0].Set(q)
	outputs[1].Set(r)
	return nil
}
