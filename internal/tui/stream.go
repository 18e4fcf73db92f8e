package tui

import (
	"context"

	"gurubase-cli/internal/answer"
	"gurubase-cli/internal/store"
	"gurubase-cli/internal/submit"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Messages sent from the run goroutine to Bubble Tea ─────────────────────

type runKind int

const (
	runAsk runKind = iota
	runShow
	runOpen
)

// stateMsg carries a store snapshot taken during a run.
type stateMsg struct {
	state store.State
}

type runDoneMsg struct {
	kind    runKind
	outcome answer.Outcome
	result  *submit.Result
	err     error
	state   store.State
}

// runFunc is one asynchronous operation against the session.
type runFunc func(ctx context.Context) (answer.Outcome, *submit.Result, error)

// ─── Run command ────────────────────────────────────────────────────────────
//
// Subscribes to the store for the duration of the run and forwards every
// snapshot through a channel. The listener never blocks: snapshots carry
// the whole answer, so a dropped one loses nothing. The final snapshot
// rides on runDoneMsg.

func beginRun(st *store.Store, ctx context.Context, kind runKind, run runFunc) (chan tea.Msg, tea.Cmd) {
	ch := make(chan tea.Msg, 64)

	unsubscribe := st.Subscribe(func(s store.State, _ store.Action) {
		select {
		case ch <- stateMsg{state: s}:
		default:
		}
	})

	go func() {
		out, res, err := run(ctx)
		unsubscribe()
		ch <- runDoneMsg{kind: kind, outcome: out, result: res, err: err, state: st.Snapshot()}
	}()

	return ch, waitForStream(ch)
}

// waitForStream reads the next message from the channel.
func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}
