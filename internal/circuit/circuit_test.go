package circuit

import (
	"testing"

	"github.com/shieldpool/core/internal/params"
)

func TestCompileTransferCaches(t *testing.T) {
	m := NewManager()
	p := params.NewSmall()

	cc1, err := m.CompileTransfer(p)
	if err != nil {
		t.Fatalf("compile transfer: %v", err)
	}
	cc2, err := m.CompileTransfer(p)
	if err != nil {
		t.Fatalf("compile transfer: %v", err)
	}
	if cc1 != cc2 {
		t.Fatalf("expected the second compile to hit the cache")
	}
}

func TestCompileUpdateRootCaches(t *testing.T) {
	m := NewManager()
	p := params.NewSmall()

	cc1, err := m.CompileUpdateRoot(p)
	if err != nil {
		t.Fatalf("compile update-root: %v", err)
	}
	cc2, err := m.CompileUpdateRoot(p)
	if err != nil {
		t.Fatalf("compile update-root: %v", err)
	}
	if cc1 != cc2 {
		t.Fatalf("expected the second compile to hit the cache")
	}
}
