package circuit

import (
	"github.com/consensys/gnark/frontend"

	"github.com/shieldpool/core/internal/params"
)

// UpdateRootCircuit is the pool's second Groth16 statement (spec §4.E): it
// proves that appending a batch of output note hashes at a given starting
// position to a tree with root BeforeRoot yields AfterRoot, using the same
// salted Merkle compression TransferCircuit's membership check uses, just
// run in the insertion direction instead of the membership direction.
type UpdateRootCircuit struct {
	BeforeRoot frontend.Variable   `gnark:",public"`
	AfterRoot  frontend.Variable   `gnark:",public"`
	OutHashes  []frontend.Variable `gnark:",public"`
	Position   frontend.Variable   `gnark:",public"`

	// Secret: the sibling path for every inserted leaf, needed to walk
	// each insertion up to the root.
	Paths []PathVar

	p *params.Params
}

// NewUpdateRootCircuit allocates an empty circuit shaped by p.
func NewUpdateRootCircuit(p *params.Params) *UpdateRootCircuit {
	c := &UpdateRootCircuit{p: p}
	c.OutHashes = make([]frontend.Variable, p.Out)
	c.Paths = make([]PathVar, p.Out)
	for i := range c.Paths {
		c.Paths[i].Siblings = make([]frontend.Variable, p.Height)
		c.Paths[i].PathBits = make([]frontend.Variable, p.Height)
	}
	return c
}

// Define implements frontend.Circuit.
func (c *UpdateRootCircuit) Define(api frontend.API) error {
	root := c.BeforeRoot
	for i, leaf := range c.OutHashes {
		// Bind this leaf's path bits to Position+i so a prover cannot
		// reuse a path from a different slot in the tree: the path's
		// bit decomposition, read low-to-high, must equal the leaf's
		// absolute index.
		leafIndex := api.Add(c.Position, i)
		indexBits := api.ToBinary(leafIndex, len(c.Paths[i].PathBits))
		for level := range indexBits {
			api.AssertIsEqual(indexBits[level], c.Paths[i].PathBits[level])
		}

		cur := leaf
		for level := 0; level < len(c.Paths[i].Siblings); level++ {
			bit := c.Paths[i].PathBits[level]
			sib := c.Paths[i].Siblings[level]
			left := api.Select(bit, sib, cur)
			right := api.Select(bit, cur, sib)
			next, err := saltedHashCircuit(api, c.p.SaltFr(params.SaltCompress), left, right)
			if err != nil {
				return err
			}
			cur = next
		}
		root = cur
	}
	api.AssertIsEqual(root, c.AfterRoot)
	return nil
}
