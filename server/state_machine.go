// Package server provides the engine-side wrapper that enforces the
// protocol call order and turns halt errors into process termination.
package server

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// lifecycleState represents a state in the protocol state machine.
type lifecycleState uint32

const (
	// stateInit: waiting for Info, then InitChain when the app has no
	// committed state. Concurrent calls are rejected.
	stateInit lifecycleState = iota
	// stateReady: no block open. Concurrent calls allowed: CheckTx,
	// Query, Simulate. BeginBlock is the only valid sequential call.
	stateReady
	// stateBlockOpen: BeginBlock returned. DeliverTx and EndBlock are
	// valid.
	stateBlockOpen
	// stateBlockClosing: EndBlock returned. Commit is the only valid
	// sequential call.
	stateBlockClosing
	// stateHalted: a call returned a HaltError. Nothing is valid.
	stateHalted
)

func (s lifecycleState) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateReady:
		return "Ready"
	case stateBlockOpen:
		return "BlockOpen"
	case stateBlockClosing:
		return "BlockClosing"
	case stateHalted:
		return "Halted"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// LifecycleGuard enforces the protocol state machine. Sequential calls
// hold seqMu for their whole duration; misuse panics since it is a bug in
// the engine, not in the application.
type LifecycleGuard struct {
	state atomic.Uint32
	seqMu sync.Mutex
	// infoDone is set by the first Info call.
	infoDone atomic.Bool
}

// NewLifecycleGuard creates a guard in the Init state.
func NewLifecycleGuard() *LifecycleGuard {
	g := &LifecycleGuard{}
	g.state.Store(uint32(stateInit))
	return g
}

// State returns the current lifecycle state.
func (g *LifecycleGuard) State() string {
	return lifecycleState(g.state.Load()).String()
}

func (g *LifecycleGuard) load() lifecycleState {
	return lifecycleState(g.state.Load())
}

// CompleteInfo records the Info result. An app with committed state skips
// InitChain and becomes Ready.
func (g *LifecycleGuard) CompleteInfo(lastVersion uint64) {
	g.infoDone.Store(true)
	if lastVersion > 0 {
		g.state.CompareAndSwap(uint32(stateInit), uint32(stateReady))
	}
}

// acquire locks the sequential path and checks the state.
func (g *LifecycleGuard) acquire(call string, want lifecycleState) {
	g.seqMu.Lock()
	if state := g.load(); state != want {
		g.seqMu.Unlock()
		panic(fmt.Sprintf("github.com/blockberries/appcore: %s called in state %s (expected %s)", call, state, want))
	}
}

// release moves to next and unlocks the sequential path.
func (g *LifecycleGuard) release(next lifecycleState) {
	g.state.Store(uint32(next))
	g.seqMu.Unlock()
}

// AcquireInitChain checks Init and that Info was called.
func (g *LifecycleGuard) AcquireInitChain() {
	if !g.infoDone.Load() {
		panic("github.com/blockberries/appcore: InitChain called before Info")
	}
	g.acquire("InitChain", stateInit)
}

// CompleteInitChain transitions Init → Ready.
func (g *LifecycleGuard) CompleteInitChain() { g.release(stateReady) }

// FailInitChain stays in Init, allowing a retry.
func (g *LifecycleGuard) FailInitChain() { g.release(stateInit) }

// AcquireBeginBlock checks Ready.
func (g *LifecycleGuard) AcquireBeginBlock() { g.acquire("BeginBlock", stateReady) }

// CompleteBeginBlock transitions Ready → BlockOpen.
func (g *LifecycleGuard) CompleteBeginBlock() { g.release(stateBlockOpen) }

// FailBeginBlock stays in Ready.
func (g *LifecycleGuard) FailBeginBlock() { g.release(stateReady) }

// AcquireDeliverTx checks BlockOpen.
func (g *LifecycleGuard) AcquireDeliverTx() { g.acquire("DeliverTx", stateBlockOpen) }

// CompleteDeliverTx stays in BlockOpen.
func (g *LifecycleGuard) CompleteDeliverTx() { g.release(stateBlockOpen) }

// AcquireEndBlock checks BlockOpen.
func (g *LifecycleGuard) AcquireEndBlock() { g.acquire("EndBlock", stateBlockOpen) }

// CompleteEndBlock transitions BlockOpen → BlockClosing.
func (g *LifecycleGuard) CompleteEndBlock() { g.release(stateBlockClosing) }

// FailEndBlock stays in BlockOpen.
func (g *LifecycleGuard) FailEndBlock() { g.release(stateBlockOpen) }

// AcquireCommit checks BlockClosing.
func (g *LifecycleGuard) AcquireCommit() { g.acquire("Commit", stateBlockClosing) }

// CompleteCommit transitions BlockClosing → Ready.
func (g *LifecycleGuard) CompleteCommit() { g.release(stateReady) }

// Halt moves to Halted. It must be called with the sequential path held.
func (g *LifecycleGuard) Halt() { g.release(stateHalted) }

// HaltConcurrent moves to Halted from a concurrent call.
func (g *LifecycleGuard) HaltConcurrent() { g.state.Store(uint32(stateHalted)) }

// CheckConcurrent verifies that concurrent calls are allowed: the chain
// is initialized and not halted.
func (g *LifecycleGuard) CheckConcurrent() {
	switch state := g.load(); state {
	case stateInit:
		panic("github.com/blockberries/appcore: concurrent call before the chain was initialized")
	case stateHalted:
		panic("github.com/blockberries/appcore: concurrent call after halt")
	}
}

// IsReady returns true if the guard is in the Ready state.
func (g *LifecycleGuard) IsReady() bool {
	return g.load() == stateReady
}
