package apptest

import (
	"testing"

	"github.com/blockberries/appcore"
)

func TestMockApp_Compliance(t *testing.T) {
	RunComplianceSuite(t, func(*testing.T) appcore.Application { return &MockApp{} }, nil)
}

func TestMockApp_RestartReportsVersion(t *testing.T) {
	app := &MockApp{}
	h := NewHarness(t, app)
	h.InitDefault(nil)
	h.ExecuteBlock(MakeEmptyBlock(1))
	h.ExecuteBlock(MakeEmptyBlock(2))

	restarted := NewHarness(t, app)
	info := restarted.Info()
	if info.LastVersion != 2 {
		t.Fatalf("expected version 2 after restart, got %d", info.LastVersion)
	}
	restarted.ExecuteBlock(MakeEmptyBlock(3))
	if got := app.InitChainCalls.Load(); got != 1 {
		t.Errorf("expected 1 InitChain call, got %d", got)
	}
	if got := app.CommitCalls.Load(); got != 3 {
		t.Errorf("expected 3 Commit calls, got %d", got)
	}
}

func TestGenesis_AppState(t *testing.T) {
	alice, bob := NewAccount("alice"), NewAccount("bob")
	NewGenesis().WithAccount(alice).WithAccount(bob)
	if alice.Number != 0 || bob.Number != 1 {
		t.Fatalf("account numbers = %d, %d", alice.Number, bob.Number)
	}
	if alice.Address == bob.Address {
		t.Fatal("derived accounts collide")
	}
}
