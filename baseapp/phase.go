package baseapp

import (
	"fmt"

	"github.com/blockberries/appcore"
)

// phase is the block lifecycle position.
type phase uint8

const (
	// phaseIdle: no block open. BeginBlock is the only valid block call.
	phaseIdle phase = iota
	// phaseBlockOpen: BeginBlock returned. DeliverTx and EndBlock are valid.
	phaseBlockOpen
	// phaseBlockClosing: EndBlock returned. Commit is the only valid call.
	phaseBlockClosing
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "Idle"
	case phaseBlockOpen:
		return "BlockOpen"
	case phaseBlockClosing:
		return "BlockClosing"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

func (app *BaseApp) expectPhase(call string, want phase) error {
	if app.phase != want {
		return appcore.ErrWrongState.Wrapf("%s called in state %s (expected %s)", call, app.phase, want)
	}
	return nil
}
