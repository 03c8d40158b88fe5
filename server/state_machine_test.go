package server

import (
	"strings"
	"testing"
)

func expectPanic(t *testing.T, substr string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, substr) {
			t.Fatalf("panic %v does not mention %q", r, substr)
		}
	}()
	fn()
}

func runBlock(g *LifecycleGuard, txs int) {
	g.AcquireBeginBlock()
	g.CompleteBeginBlock()
	for i := 0; i < txs; i++ {
		g.AcquireDeliverTx()
		g.CompleteDeliverTx()
	}
	g.AcquireEndBlock()
	g.CompleteEndBlock()
	g.AcquireCommit()
	g.CompleteCommit()
}

func TestLifecycleGuard_HappyPath(t *testing.T) {
	g := NewLifecycleGuard()

	g.CompleteInfo(0)
	if g.IsReady() {
		t.Fatal("expected Init until InitChain")
	}
	g.AcquireInitChain()
	g.CompleteInitChain()
	if !g.IsReady() {
		t.Fatal("expected Ready after InitChain")
	}

	runBlock(g, 3)
	if !g.IsReady() {
		t.Fatal("expected Ready after commit")
	}
	runBlock(g, 0)
	if !g.IsReady() {
		t.Fatal("expected Ready after second block")
	}
}

func TestLifecycleGuard_RestartSkipsInitChain(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(7)
	if !g.IsReady() {
		t.Fatal("expected Ready for an app with committed state")
	}
	expectPanic(t, "InitChain called in state Ready", g.AcquireInitChain)
}

func TestLifecycleGuard_InitChainBeforeInfo(t *testing.T) {
	g := NewLifecycleGuard()
	expectPanic(t, "before Info", g.AcquireInitChain)
}

func TestLifecycleGuard_FailedInitChainRetries(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(0)
	g.AcquireInitChain()
	g.FailInitChain()
	g.AcquireInitChain()
	g.CompleteInitChain()
	if !g.IsReady() {
		t.Fatal("expected Ready after retried InitChain")
	}
}

func TestLifecycleGuard_ConcurrentAfterInit(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(0)
	g.AcquireInitChain()
	g.CompleteInitChain()

	g.CheckConcurrent()

	// Concurrent calls stay valid while a block is open.
	g.AcquireBeginBlock()
	g.CompleteBeginBlock()
	g.CheckConcurrent()
}

func TestLifecycleGuard_ConcurrentBeforeInit(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(0)
	expectPanic(t, "before the chain was initialized", g.CheckConcurrent)
}

func TestLifecycleGuard_DeliverTxOutsideBlock(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(1)
	expectPanic(t, "DeliverTx called in state Ready (expected BlockOpen)", g.AcquireDeliverTx)
}

func TestLifecycleGuard_CommitBeforeEndBlock(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(1)
	g.AcquireBeginBlock()
	g.CompleteBeginBlock()
	expectPanic(t, "Commit called in state BlockOpen (expected BlockClosing)", g.AcquireCommit)
}

func TestLifecycleGuard_DoubleBeginBlock(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(1)
	g.AcquireBeginBlock()
	g.CompleteBeginBlock()
	expectPanic(t, "BeginBlock called in state BlockOpen", g.AcquireBeginBlock)
}

func TestLifecycleGuard_DeliverTxAfterEndBlock(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(1)
	g.AcquireBeginBlock()
	g.CompleteBeginBlock()
	g.AcquireEndBlock()
	g.CompleteEndBlock()
	expectPanic(t, "DeliverTx called in state BlockClosing", g.AcquireDeliverTx)
}

func TestLifecycleGuard_FailedBeginBlockStaysReady(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(1)
	g.AcquireBeginBlock()
	g.FailBeginBlock()
	if !g.IsReady() {
		t.Fatal("expected Ready after failed BeginBlock")
	}
	runBlock(g, 1)
}

func TestLifecycleGuard_Halted(t *testing.T) {
	g := NewLifecycleGuard()
	g.CompleteInfo(1)
	g.AcquireBeginBlock()
	g.Halt()
	if g.State() != "Halted" {
		t.Fatalf("state = %s, want Halted", g.State())
	}
	expectPanic(t, "after halt", g.CheckConcurrent)
	expectPanic(t, "BeginBlock called in state Halted", g.AcquireBeginBlock)
}

func TestLifecycleState_String(t *testing.T) {
	tests := []struct {
		s    lifecycleState
		want string
	}{
		{stateInit, "Init"},
		{stateReady, "Ready"},
		{stateBlockOpen, "BlockOpen"},
		{stateBlockClosing, "BlockClosing"},
		{stateHalted, "Halted"},
		{lifecycleState(99), "unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
