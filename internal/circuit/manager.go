package circuit

import (
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/shieldpool/core/internal/params"
)

// CompiledCircuit bundles a compiled constraint system with its proving
// and verifying keys, adapted from the teacher's CircuitManager.
type CompiledCircuit struct {
	CCS frontend.CompiledConstraintSystem
	PK  groth16.ProvingKey
	VK  groth16.VerifyingKey
}

// Manager compiles and caches the pool's two circuits (transfer and
// update-root) per parameter shape, so repeated test fixtures and repeated
// production calls reuse one trusted-setup artifact instead of recompiling
// for every call.
type Manager struct {
	mu       sync.RWMutex
	transfer map[string]*CompiledCircuit
	update   map[string]*CompiledCircuit
}

// NewManager returns an empty circuit manager.
func NewManager() *Manager {
	return &Manager{
		transfer: make(map[string]*CompiledCircuit),
		update:   make(map[string]*CompiledCircuit),
	}
}

func shapeKey(p *params.Params) string {
	return fmt.Sprintf("%d-%d-%d", p.In, p.Out, p.Height)
}

// CompileTransfer compiles TransferCircuit for shape p and runs a local
// Groth16 setup. The setup artifact this produces is for local development
// and testing only; spec.md explicitly scopes the production trusted-setup
// ceremony out of this module.
func (m *Manager) CompileTransfer(p *params.Params) (*CompiledCircuit, error) {
	key := shapeKey(p)
	m.mu.RLock()
	if cc, ok := m.transfer[key]; ok {
		m.mu.RUnlock()
		return cc, nil
	}
	m.mu.RUnlock()

	circuit := NewTransferCircuit(p)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("circuit: compile transfer: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("circuit: setup transfer: %w", err)
	}

	cc := &CompiledCircuit{CCS: ccs, PK: pk, VK: vk}
	m.mu.Lock()
	m.transfer[key] = cc
	m.mu.Unlock()
	return cc, nil
}

// CompileUpdateRoot compiles UpdateRootCircuit for shape p and runs a
// local Groth16 setup, same caveat as CompileTransfer.
func (m *Manager) CompileUpdateRoot(p *params.Params) (*CompiledCircuit, error) {
	key := shapeKey(p)
	m.mu.RLock()
	if cc, ok := m.update[key]; ok {
		m.mu.RUnlock()
		return cc, nil
	}
	m.mu.RUnlock()

	circuit := NewUpdateRootCircuit(p)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("circuit: compile update-root: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("circuit: setup update-root: %w", err)
	}

	cc := &CompiledCircuit{CCS: ccs, PK: pk, VK: vk}
	m.mu.Lock()
	m.update[key] = cc
	m.mu.Unlock()
	return cc, nil
}
