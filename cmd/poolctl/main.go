// Poolctl - a local driver for the shielded pool
package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/shieldpool/core/internal/circuit"
	"github.com/shieldpool/core/internal/client"
	"github.com/shieldpool/core/internal/keys"
	"github.com/shieldpool/core/internal/params"
	"github.com/shieldpool/core/internal/pool"
	"github.com/shieldpool/core/internal/tree"
)

const (
	version = "0.1.0"
	banner  = `
  ____  _     _      _     _ ____              _
 / ___|| |__ (_) ___| | __| |  _ \ ___   ___ | |
 \___ \| '_ \| |/ _ \ |/ _' | |_) / _ \ / _ \| |
  ___) | | | | |  __/ | (_| |  __/ (_) | (_) | |
 |____/|_| |_|_|\___|_|\__,_|_|   \___/ \___/|_|

  Poolctl v%s
  Shielded pool demonstration driver
`
)

// Config holds the driver's run parameters.
type Config struct {
	Small bool
}

func main() {
	cfg := parseFlags()
	fmt.Printf(banner, version)

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}
	flag.BoolVar(&cfg.Small, "small", true, "use a reduced parameter shape (IN=2,OUT=2,H=4) for a fast local run")
	flag.Parse()
	return cfg
}

// run wires a circuit manager, a shared commitment tree, a pool, and two
// wallets (alice, bob), then walks spec §8's six scenarios against them in
// order: empty-tree deposit, exact spend, split-with-change, insufficient
// funds, double-spend, and a stale root.
func run(cfg *Config) error {
	p := params.New()
	if cfg.Small {
		p = params.NewSmall()
	}

	cm := circuit.NewManager()
	store := tree.NewMemoryStore()
	commitTree, err := tree.New(p, store)
	if err != nil {
		return fmt.Errorf("build commitment tree: %w", err)
	}
	pl, err := pool.NewWithTree(p, cm, store)
	if err != nil {
		return fmt.Errorf("build pool: %w", err)
	}

	alice, err := newParticipant(p, commitTree, cm)
	if err != nil {
		return fmt.Errorf("build alice: %w", err)
	}
	bob, err := newParticipant(p, commitTree, cm)
	if err != nil {
		return fmt.Errorf("build bob: %w", err)
	}

	fmt.Println("compiling circuits (this runs a local, non-production Groth16 setup)...")
	if _, err := cm.CompileTransfer(p); err != nil {
		return fmt.Errorf("compile transfer circuit: %w", err)
	}
	if _, err := cm.CompileUpdateRoot(p); err != nil {
		return fmt.Errorf("compile update-root circuit: %w", err)
	}

	fmt.Println("\n=== scenario 1: deposit into an empty tree ===")
	if err := scenarioDeposit(pl, alice, 100); err != nil {
		return err
	}

	fmt.Println("\n=== scenario 2: exact spend, no change ===")
	bobAddrDiversifier := big.NewInt(42)
	if err := scenarioTransfer(pl, alice, bob, bobAddrDiversifier, 100); err != nil {
		return err
	}

	fmt.Println("\n=== scenario 3: split with change ===")
	if err := scenarioDeposit(pl, alice, 100); err != nil {
		return err
	}
	if err := scenarioTransfer(pl, alice, bob, big.NewInt(43), 30); err != nil {
		return err
	}

	fmt.Println("\n=== scenario 4: insufficient funds ===")
	if err := scenarioInsufficientFunds(alice, bob); err != nil {
		return err
	}

	fmt.Println("\n=== scenario 5: double-spend rejected ===")
	if err := scenarioDoubleSpend(pl, alice, bob); err != nil {
		return err
	}

	fmt.Println("\n=== scenario 6: stale root rejected ===")
	if err := scenarioDeposit(pl, alice, 50); err != nil {
		return err
	}
	if err := scenarioStaleRoot(pl, alice, bob); err != nil {
		return err
	}

	fmt.Printf("\ndone. pool has accepted %d transactions, current root %s\n",
		pl.NumTx(), pl.CurrentRoot().Text(16))
	return nil
}

// participant bundles a wallet with the client state a real user would
// keep locally.
type participant struct {
	Wallet *keys.Wallet
	State  *client.State
}

func newParticipant(p *params.Params, t *tree.CommitmentTree, cm *circuit.Manager) (*participant, error) {
	w, err := keys.NewWallet(p)
	if err != nil {
		return nil, err
	}
	return &participant{
		Wallet: w,
		State:  client.NewState(p, w, t, cm),
	}, nil
}

func scenarioDeposit(pl *pool.Pool, recipient *participant, amount uint64) error {
	diversifier := big.NewInt(int64(len(pl.RootHistory())) + 1)
	addr, err := recipient.Wallet.Address(diversifier)
	if err != nil {
		return fmt.Errorf("derive deposit address: %w", err)
	}
	message := []byte(fmt.Sprintf("deposit %d", amount))

	tx, outputs, err := recipient.State.Deposit(diversifier, addr, amount, message)
	if err != nil {
		return fmt.Errorf("build deposit: %w", err)
	}

	beforeRoot, afterRoot, updateProof, err := recipient.State.ProveUpdateRoot(tx.Pub.OutHashes)
	if err != nil {
		return fmt.Errorf("prove update-root: %w", err)
	}

	sub := &pool.Submission{
		Tx:          *tx,
		Message:     message,
		BeforeRoot:  beforeRoot,
		AfterRoot:   afterRoot,
		UpdateProof: updateProof,
	}
	if err := pl.TransferAndUpdateRoot(sub); err != nil {
		return fmt.Errorf("pool rejected deposit: %w", err)
	}

	size, err := recipient.State.Tree.Size()
	if err != nil {
		return err
	}
	for i, o := range outputs {
		if o.Value == 0 {
			continue
		}
		recipient.State.ReceiveNote(o, size-uint64(len(outputs))+uint64(i))
	}

	fmt.Printf("accepted deposit of %d to diversifier %s; pool root now %s\n",
		amount, diversifier.Text(10), afterRoot.Text(16))
	return nil
}

func scenarioTransfer(pl *pool.Pool, sender, recipient *participant, recipientDiversifier *big.Int, amount uint64) error {
	addr, err := recipient.Wallet.Address(recipientDiversifier)
	if err != nil {
		return fmt.Errorf("derive transfer address: %w", err)
	}
	message := []byte(fmt.Sprintf("transfer %d", amount))

	tx, outputs, err := sender.State.Transfer(recipientDiversifier, addr, amount, message)
	if err != nil {
		return fmt.Errorf("build transfer: %w", err)
	}

	beforeRoot, afterRoot, updateProof, err := sender.State.ProveUpdateRoot(tx.Pub.OutHashes)
	if err != nil {
		return fmt.Errorf("prove update-root: %w", err)
	}

	sub := &pool.Submission{
		Tx:          *tx,
		Message:     message,
		BeforeRoot:  beforeRoot,
		AfterRoot:   afterRoot,
		UpdateProof: updateProof,
	}
	if err := pl.TransferAndUpdateRoot(sub); err != nil {
		return fmt.Errorf("pool rejected transfer: %w", err)
	}

	size, err := sender.State.Tree.Size()
	if err != nil {
		return err
	}
	base := size - uint64(len(outputs))
	for i, o := range outputs {
		if o.Value == 0 {
			continue
		}
		if i == 0 {
			recipient.State.ReceiveNote(o, base+uint64(i))
		} else {
			sender.State.ReceiveNote(o, base+uint64(i))
		}
	}

	fmt.Printf("accepted transfer of %d; pool root now %s; sender balance %d, recipient balance %d\n",
		amount, afterRoot.Text(16), sender.State.Balance(), recipient.State.Balance())
	return nil
}

func scenarioInsufficientFunds(sender, recipient *participant) error {
	addr, err := recipient.Wallet.Address(big.NewInt(99))
	if err != nil {
		return fmt.Errorf("derive insufficient-funds address: %w", err)
	}
	_, _, err = sender.State.Transfer(big.NewInt(99), addr, sender.State.Balance()+1_000_000, []byte("overdraw"))
	if err == nil {
		return fmt.Errorf("expected insufficient-funds rejection, got none")
	}
	fmt.Printf("rejected as expected: %v\n", err)
	return nil
}

func scenarioDoubleSpend(pl *pool.Pool, sender, recipient *participant) error {
	addr, err := recipient.Wallet.Address(big.NewInt(7))
	if err != nil {
		return fmt.Errorf("derive double-spend address: %w", err)
	}
	amount := sender.State.Balance()
	if amount == 0 {
		return fmt.Errorf("sender has no balance left to demonstrate a double-spend with")
	}

	tx, _, err := sender.State.Transfer(big.NewInt(7), addr, amount, []byte("first spend"))
	if err != nil {
		return fmt.Errorf("build first spend: %w", err)
	}
	beforeRoot, afterRoot, updateProof, err := sender.State.ProveUpdateRoot(tx.Pub.OutHashes)
	if err != nil {
		return fmt.Errorf("prove update-root: %w", err)
	}
	sub := &pool.Submission{Tx: *tx, Message: []byte("first spend"), BeforeRoot: beforeRoot, AfterRoot: afterRoot, UpdateProof: updateProof}
	if err := pl.TransferAndUpdateRoot(sub); err != nil {
		return fmt.Errorf("first spend unexpectedly rejected: %w", err)
	}
	fmt.Println("first spend accepted")

	// Replay the identical tx: its nullifiers are already in nullifierSet.
	if err := pl.TransferAndUpdateRoot(sub); err == nil {
		return fmt.Errorf("expected double-spend rejection, got none")
	} else {
		fmt.Printf("replay rejected as expected: %v\n", err)
	}
	return nil
}

func scenarioStaleRoot(pl *pool.Pool, sender, recipient *participant) error {
	addr, err := recipient.Wallet.Address(big.NewInt(8))
	if err != nil {
		return fmt.Errorf("derive stale-root address: %w", err)
	}
	amount := sender.State.Balance()
	if amount == 0 {
		fmt.Println("skipping stale-root demonstration: sender has no balance left")
		return nil
	}

	tx, _, err := sender.State.Transfer(big.NewInt(8), addr, amount, []byte("stale attempt"))
	if err != nil {
		return fmt.Errorf("build transfer: %w", err)
	}
	// Use a before_root one transaction behind the pool's current root,
	// simulating a client that raced another accepted transaction.
	history := pl.RootHistory()
	staleRoot := history[0]
	if len(history) > 1 {
		staleRoot = history[len(history)-2]
	}

	// The real before_root is discarded: we deliberately submit staleRoot
	// instead, so rejection happens at the before_root check (step 7)
	// before the update-root proof (step 9) is even evaluated.
	_, afterRoot, updateProof, err := sender.State.ProveUpdateRoot(tx.Pub.OutHashes)
	if err != nil {
		return fmt.Errorf("prove update-root: %w", err)
	}

	sub := &pool.Submission{Tx: *tx, Message: []byte("stale attempt"), BeforeRoot: staleRoot, AfterRoot: afterRoot, UpdateProof: updateProof}
	if err := pl.TransferAndUpdateRoot(sub); err == nil {
		return fmt.Errorf("expected stale-root rejection, got none")
	} else {
		fmt.Printf("rejected as expected: %v\n", err)
	}
	return nil
}
