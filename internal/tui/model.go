package tui

import (
	"context"
	"strings"

	"gurubase-cli/internal/config"
	"gurubase-cli/internal/display"
	"gurubase-cli/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ─── App mode ───────────────────────────────────────────────────────────────

type appMode int

const (
	modeIdle appMode = iota
	modeStreaming
)

// ─── Slash command registry ─────────────────────────────────────────────────

type slashCmd struct {
	name string
	desc string
}

var slashCommands = []slashCmd{
	{"/binge", "Show the binge map"},
	{"/clear", "Clear the screen"},
	{"/config", "Show current configuration"},
	{"/guru", "List gurus or switch guru"},
	{"/help", "Show all commands"},
	{"/new", "Start a new thread"},
	{"/open", "Open a shared Gurubase link"},
	{"/quit", "Exit Gurubase"},
	{"/show", "Show a question again"},
}

const defaultPlaceholder = "Ask a question or type /help..."

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	// Bubble Tea components
	input   textinput.Model
	spinner spinner.Model

	// App state
	mode    appMode
	cfg     *config.Config
	sess    *session.Session
	version string
	profile string

	// Run state
	streamCh     chan tea.Msg
	cancel       context.CancelFunc
	cancelled    bool
	proc         *StreamProcessor
	md           *display.MarkdownState
	streamPrompt string

	// UI state
	ready        bool
	cmdMenuIdx   int
	cmdMenuOpen  bool
	lastInputVal string

	// Command history
	history      []string
	historyIdx   int
	historySaved string
}

func initialModel(version, profile string, cfg *config.Config, sess *session.Session) model {
	ti := textinput.New()
	ti.Placeholder = defaultPlaceholder
	ti.Focus()
	ti.CharLimit = 4096
	ti.Prompt = "❯ "
	ti.PromptStyle = promptSymbol
	ti.Cursor.Style = fg(colorBrand)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = fg(colorBrand)

	return model{
		input:      ti,
		spinner:    sp,
		version:    version,
		profile:    profile,
		cfg:        cfg,
		sess:       sess,
		mode:       modeIdle,
		proc:       NewStreamProcessor(),
		md:         &display.MarkdownState{},
		history:    make([]string, 0),
		historyIdx: -1,
	}
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 6

		if !m.ready {
			m.ready = true
			welcome := renderWelcome(m.version, serverStr(m.cfg), m.guru(), m.width)
			cmds = append(cmds, tea.Println(welcome))
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.mode == modeStreaming {
				return m.cancelRun()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.mode == modeStreaming {
				return m.cancelRun()
			}
			if m.cmdMenuOpen {
				m.cmdMenuOpen = false
				m.cmdMenuIdx = 0
				return m, nil
			}

		case tea.KeyUp:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx--
						if m.cmdMenuIdx < 0 {
							m.cmdMenuIdx = len(matches) - 1
						}
						return m, nil
					}
				} else if len(m.history) > 0 {
					if m.historyIdx == -1 {
						m.historySaved = m.input.Value()
						m.historyIdx = len(m.history) - 1
					} else if m.historyIdx > 0 {
						m.historyIdx--
					}
					m.input.SetValue(m.history[m.historyIdx])
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyDown:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx = (m.cmdMenuIdx + 1) % len(matches)
						return m, nil
					}
				} else if m.historyIdx != -1 {
					m.historyIdx++
					if m.historyIdx >= len(m.history) {
						m.historyIdx = -1
						m.input.SetValue(m.historySaved)
						m.historySaved = ""
					} else {
						m.input.SetValue(m.history[m.historyIdx])
					}
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyTab:
			if m.mode == modeIdle && m.cmdMenuOpen {
				matches := matchCommands(m.input.Value())
				if len(matches) > 0 {
					idx := m.cmdMenuIdx
					if idx < 0 || idx >= len(matches) {
						idx = 0
					}
					m.input.SetValue(matches[idx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
				}
				return m, nil
			}

		case tea.KeyEnter:
			if m.mode == modeStreaming {
				return m, nil
			}
			if m.cmdMenuOpen && m.cmdMenuIdx >= 0 {
				matches := matchCommands(m.input.Value())
				if m.cmdMenuIdx < len(matches) && strings.TrimSpace(m.input.Value()) != matches[m.cmdMenuIdx].name {
					m.input.SetValue(matches[m.cmdMenuIdx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
					return m, nil
				}
			}

			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}
			m.pushHistory(value)

			m.input.SetValue("")
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0
			return m.dispatchInput(value)
		}

	// ── Run messages ──────────────────────────────────────────────────
	case stateMsg:
		cmds = append(cmds, m.printEvents(m.proc.Process(msg.state))...)
		if m.streamCh != nil {
			cmds = append(cmds, waitForStream(m.streamCh))
		}
		return m, tea.Sequence(cmds...)

	case runDoneMsg:
		return m.handleRunDone(msg)

	// ── Async results ─────────────────────────────────────────────────
	case gurusLoadedMsg:
		return m.handleGurusLoaded(msg)

	case bingeLoadedMsg:
		return m.handleBingeLoaded(msg)
	}

	var cmd tea.Cmd

	if m.mode != modeStreaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	newVal := m.input.Value()
	if newVal != m.lastInputVal {
		m.lastInputVal = newVal
		if m.historyIdx != -1 && m.historyIdx < len(m.history) && m.history[m.historyIdx] != newVal {
			m.historyIdx = -1
			m.historySaved = ""
		}
		m.cmdMenuOpen = strings.HasPrefix(newVal, "/")
		m.cmdMenuIdx = 0
	}

	return m, tea.Batch(cmds...)
}

func (m *model) pushHistory(value string) {
	if len(m.history) == 0 || m.history[len(m.history)-1] != value {
		m.history = append(m.history, value)
		if len(m.history) > 1000 {
			m.history = m.history[len(m.history)-1000:]
		}
	}
	m.historyIdx = -1
	m.historySaved = ""
}

// cancelRun stops the run in flight. The run reports back through
// runDoneMsg, which returns the model to idle.
func (m model) cancelRun() (tea.Model, tea.Cmd) {
	if m.cancelled {
		return m, nil
	}
	m.cancelled = true
	if m.sess != nil {
		m.sess.Answers.Cancel()
	}
	if m.cancel != nil {
		m.cancel()
	}
	return m, nil
}

// printEvents maps processor output to print commands.
func (m *model) printEvents(events []OutputEvent) []tea.Cmd {
	var cmds []tea.Cmd
	for _, ev := range events {
		switch ev.Type {
		case OutputAnswer:
			cmds = append(cmds, tea.Println(renderAnswerLine(ev.Text, m.md)))
		case OutputTable:
			cmds = append(cmds, tea.Println(renderTable(ev.Text, m.width)))
		case OutputError:
			cmds = append(cmds, tea.Println(errorMsgStyle.Render("  ✗ "+display.ErrorMessage(ev.Error))))
		case OutputBlank:
			cmds = append(cmds, tea.Println(""))
		}
	}
	return cmds
}

// ─── View ───────────────────────────────────────────────────────────────────
//
// Inline mode: View() only shows the input prompt + hints.
// All output is printed above via tea.Println.

func (m model) View() string {
	if !m.ready {
		return ""
	}

	var s strings.Builder

	if m.mode == modeStreaming {
		status := m.proc.LastStatus()
		if m.cancelled {
			status = "Cancelling..."
		}
		s.WriteString(m.spinner.View() + " " + statusStyle.Render(status))
	} else {
		s.WriteString(m.input.View())
	}
	s.WriteString("\n")

	sepWidth := max(min(m.width, 80), 20)
	s.WriteString(separatorStyle.Render(strings.Repeat("─", sepWidth)))
	s.WriteString("\n")

	s.WriteString(m.renderHints())

	return s.String()
}

// ─── Hint bar ───────────────────────────────────────────────────────────────

func (m model) renderHints() string {
	if m.mode == modeStreaming {
		return hintBarStyle.Render("  Esc cancel")
	}

	if m.cmdMenuOpen {
		if matches := matchCommands(m.input.Value()); len(matches) > 0 {
			return m.renderCommandMenu(matches)
		}
	}

	hint := hintBarStyle.Render("  ? for help")
	if m.sess != nil {
		if b := m.sess.Store.Snapshot().Binge; b.Active() {
			hint += bingeHintStyle.Render("   thread " + b.ID + " · /new to leave")
		}
	}
	return hint
}

// renderCommandMenu renders a vertical list of matching commands.
func (m model) renderCommandMenu(matches []slashCmd) string {
	maxLen := 0
	for _, c := range matches {
		maxLen = max(maxLen, len(c.name))
	}

	var lines []string
	for i, c := range matches {
		padded := c.name + strings.Repeat(" ", maxLen-len(c.name))
		if i == m.cmdMenuIdx {
			lines = append(lines, "  "+cmdSelectedNameStyle.Render(padded)+"  "+cmdSelectedDescStyle.Render(c.desc))
		} else {
			lines = append(lines, "  "+cmdNameStyle.Render(padded)+"  "+cmdDescStyle.Render(c.desc))
		}
	}
	lines = append(lines, hintBarStyle.Render("  ↑↓ navigate  Tab/Enter select"))

	return strings.Join(lines, "\n")
}

// matchCommands returns all slash commands matching a prefix.
func matchCommands(prefix string) []slashCmd {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "/" {
		return slashCommands
	}
	var matches []slashCmd
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (m *model) resetRunState() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.cancelled = false
	m.streamCh = nil
	m.streamPrompt = ""
	m.proc = NewStreamProcessor()
	m.md = &display.MarkdownState{}
}

func (m model) guru() string {
	if m.sess != nil {
		return m.sess.Guru()
	}
	if m.cfg != nil {
		return m.cfg.GuruType
	}
	return ""
}

func serverStr(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.Server
}
