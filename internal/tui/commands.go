package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gurubase-cli/internal/answer"
	"gurubase-cli/internal/api"
	"gurubase-cli/internal/binge"
	"gurubase-cli/internal/config"
	"gurubase-cli/internal/display"
	"gurubase-cli/internal/service"
	"gurubase-cli/internal/session"
	"gurubase-cli/internal/submit"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Async result messages ──────────────────────────────────────────────────

type gurusLoadedMsg struct {
	gurus []api.Guru
	query string
	err   error
}

type bingeLoadedMsg struct {
	root     *binge.TreeNode
	id       string
	outdated bool
	yaml     bool
	current  string
	err      error
}

// ─── Input dispatcher ───────────────────────────────────────────────────────

func (m model) dispatchInput(input string) (tea.Model, tea.Cmd) {
	if input == "?" {
		return m.cmdHelp()
	}
	if strings.HasPrefix(input, "/") {
		return m.dispatchCommand(input)
	}
	return m.cmdAsk(input)
}

func (m model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/h":
		return m.cmdHelp()
	case "/guru", "/gurus":
		return m.cmdGuru(args)
	case "/new":
		return m.cmdNew()
	case "/binge", "/map":
		return m.cmdBinge(args)
	case "/show":
		return m.cmdShow(args)
	case "/open":
		return m.cmdOpen(args)
	case "/config":
		return m.cmdConfig()
	case "/clear":
		return m.cmdClear()
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	default:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Unknown command: %s. Type /help", cmd)))
	}
}

// ─── /help ──────────────────────────────────────────────────────────────────

func (m model) cmdHelp() (tea.Model, tea.Cmd) {
	pad := func(s string, w int) string {
		for len(s) < w {
			s += " "
		}
		return s
	}

	lines := []tea.Cmd{
		tea.Println(""),
		tea.Println(dimStyle.Render("  Shortcuts:")),
		tea.Println(""),
		tea.Println("  " + pad(hintKeyStyle.Render("/guru [name]"), 30) + dimStyle.Render("List gurus or switch guru")),
		tea.Println("  " + pad(hintKeyStyle.Render("/new"), 30) + dimStyle.Render("Leave the thread, next question starts fresh")),
		tea.Println("  " + pad(hintKeyStyle.Render("/binge [id] [yaml]"), 30) + dimStyle.Render("Show the binge map")),
		tea.Println("  " + pad(hintKeyStyle.Render("/show [slug]"), 30) + dimStyle.Render("Show a question again")),
		tea.Println("  " + pad(hintKeyStyle.Render("/open <url>"), 30) + dimStyle.Render("Open a shared Gurubase link")),
		tea.Println("  " + pad(hintKeyStyle.Render("/config"), 30) + dimStyle.Render("Show current configuration")),
		tea.Println("  " + pad(hintKeyStyle.Render("/clear"), 30) + dimStyle.Render("Clear the screen")),
		tea.Println("  " + pad(hintKeyStyle.Render("/quit"), 30) + dimStyle.Render("Exit Gurubase")),
		tea.Println(""),
		tea.Println(dimStyle.Render("  Type a question to ask the guru. While an answer is shown, questions are follow-ups.")),
		tea.Println(""),
	}
	return m, tea.Sequence(lines...)
}

// ─── /config ────────────────────────────────────────────────────────────────

func (m model) cmdConfig() (tea.Model, tea.Cmd) {
	if m.cfg == nil {
		return m, tea.Println(warnMsgStyle.Render("  ! No configuration found. Run gurubase login first."))
	}
	lines := m.configLines()
	cmds := make([]tea.Cmd, 0, len(lines))
	for _, l := range lines {
		cmds = append(cmds, tea.Println(l))
	}
	return m, tea.Sequence(cmds...)
}

func (m model) configLines() []string {
	val := func(s string) string {
		if s == "" {
			return dimStyle.Render("(not set)")
		}
		return s
	}

	auth := dimStyle.Render("(not set)")
	switch {
	case m.cfg.SelfHosted && m.cfg.SessionID != "":
		auth = "self-hosted session"
	case len(m.cfg.Token) > 8:
		auth = m.cfg.Token[:4] + "..." + m.cfg.Token[len(m.cfg.Token)-4:]
	case m.cfg.Token != "":
		auth = "****"
	}

	guru, thread, phase := m.cfg.GuruType, m.cfg.LastBingeID, "idle"
	if m.sess != nil {
		snap := m.sess.Store.Snapshot()
		guru, thread, phase = snap.GuruType, snap.Binge.ID, snap.Phase()
	}

	return []string{
		"",
		dimStyle.Render("  Configuration:"),
		fmt.Sprintf("    Profile:      %s", config.ProfileName(m.profile)),
		fmt.Sprintf("    Server:       %s", val(m.cfg.Server)),
		fmt.Sprintf("    Web:          %s", val(m.cfg.WebBase())),
		fmt.Sprintf("    Auth:         %s", auth),
		fmt.Sprintf("    Guru:         %s", val(guru)),
		fmt.Sprintf("    Binge:        %s", val(thread)),
		fmt.Sprintf("    Answer:       %s", display.PhaseLabel(phase)),
		"",
	}
}

// ─── /guru ──────────────────────────────────────────────────────────────────

func (m model) cmdGuru(args []string) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, notLoggedIn(m.cfg)
	}
	query := strings.Join(args, " ")
	sess := m.sess

	status := "  ⟳ Loading gurus..."
	if query != "" {
		status = fmt.Sprintf("  ⟳ Looking up %s...", query)
	}
	return m, tea.Sequence(
		tea.Println(statusStyle.Render(status)),
		func() tea.Msg {
			gurus, err := sess.Gurus(context.Background())
			return gurusLoadedMsg{gurus: gurus, query: query, err: err}
		},
	)
}

func (m model) handleGurusLoaded(msg gurusLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Failed to load gurus: %v", msg.err)))
	}

	if msg.query != "" {
		g, ok := service.FindGuru(msg.gurus, msg.query)
		if !ok {
			return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ No guru matches %q. Type /guru to list them", msg.query)))
		}
		if err := m.sess.SetGuru(g.Slug); err != nil {
			return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", err)))
		}
		return m, tea.Println(successMsgStyle.Render(fmt.Sprintf("  ✓ Guru set to %s", service.GuruName(g))))
	}

	if len(msg.gurus) == 0 {
		return m, tea.Println(warnMsgStyle.Render("  ! No gurus found."))
	}

	current := m.guru()
	cmds := []tea.Cmd{
		tea.Println(""),
		tea.Println(dimStyle.Render(fmt.Sprintf("  Gurus (%d):", len(msg.gurus)))),
		tea.Println(""),
	}
	for _, g := range msg.gurus {
		cmds = append(cmds, tea.Println(guruLine(g, current)))
	}
	cmds = append(cmds,
		tea.Println(""),
		tea.Println(dimStyle.Render("  Tip: /guru <slug> to switch")),
		tea.Println(""),
	)
	return m, tea.Sequence(cmds...)
}

// ─── /new ───────────────────────────────────────────────────────────────────

func (m model) cmdNew() (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, notLoggedIn(m.cfg)
	}
	if err := m.sess.New(); err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", err)))
	}
	return m, tea.Println(successMsgStyle.Render("  ✓ Thread closed. The next question starts fresh."))
}

// ─── /binge ─────────────────────────────────────────────────────────────────

func (m model) cmdBinge(args []string) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, notLoggedIn(m.cfg)
	}

	var id string
	asYAML := false
	for _, a := range args {
		switch a {
		case "yaml", "--yaml":
			asYAML = true
		default:
			id = a
		}
	}

	sess := m.sess
	current := sess.Store.Snapshot().CurrentSlug
	return m, func() tea.Msg {
		root, bid, outdated, err := sess.Binge(context.Background(), id)
		return bingeLoadedMsg{root: root, id: bid, outdated: outdated, yaml: asYAML, current: current, err: err}
	}
}

func (m model) handleBingeLoaded(msg bingeLoadedMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, session.ErrNoThread):
		return m, tea.Println(warnMsgStyle.Render("  ! " + msg.err.Error()))
	case msg.err != nil:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Failed to load binge: %v", msg.err)))
	case msg.root == nil:
		return m, tea.Println(warnMsgStyle.Render("  ! This binge has no questions yet."))
	}

	var body string
	if msg.yaml {
		out, err := service.TreeYAML(msg.root, msg.id, msg.outdated)
		if err != nil {
			return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", err)))
		}
		body = strings.TrimRight(string(out), "\n")
	} else {
		body = strings.TrimRight(service.RenderTree(msg.root, msg.current), "\n")
	}

	cmds := []tea.Cmd{
		tea.Println(""),
		tea.Println(dimStyle.Render(fmt.Sprintf("  Binge %s (%d questions):", msg.id, msg.root.Count()))),
		tea.Println(""),
		tea.Println(indentText(body, "  ")),
	}
	if notes := bingeNotes(msg.root, msg.current, msg.outdated); len(notes) > 0 {
		cmds = append(cmds, tea.Println(""))
		for _, n := range notes {
			cmds = append(cmds, tea.Println(n))
		}
	}
	cmds = append(cmds, tea.Println(""))
	return m, tea.Sequence(cmds...)
}

// ─── /show, /open ───────────────────────────────────────────────────────────

func (m model) cmdShow(args []string) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, notLoggedIn(m.cfg)
	}
	slug := ""
	if len(args) > 0 {
		slug = args[0]
	}
	sess := m.sess
	return m.startRun(runShow, "", func(ctx context.Context) (answer.Outcome, *submit.Result, error) {
		out, err := sess.Show(ctx, slug)
		return out, nil, err
	})
}

func (m model) cmdOpen(args []string) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, notLoggedIn(m.cfg)
	}
	if len(args) == 0 {
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /open <gurubase-url>"))
	}
	link := args[0]
	sess := m.sess
	return m.startRun(runOpen, "", func(ctx context.Context) (answer.Outcome, *submit.Result, error) {
		out, err := sess.Open(ctx, link)
		return out, nil, err
	})
}

// ─── /clear ─────────────────────────────────────────────────────────────────

func (m model) cmdClear() (tea.Model, tea.Cmd) {
	return m, tea.ClearScreen
}

// ─── Ask ────────────────────────────────────────────────────────────────────

func (m model) cmdAsk(question string) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, notLoggedIn(m.cfg)
	}
	if m.sess.Guru() == "" {
		return m, tea.Println(errorMsgStyle.Render("  ✗ No guru set. Type /guru to pick one."))
	}

	sess := m.sess
	followUp := sess.Answered()
	intro := userPromptStyle.Render("  ❯ " + question)
	return m.startRun(runAsk, intro, func(ctx context.Context) (answer.Outcome, *submit.Result, error) {
		res, err := sess.Ask(ctx, question, followUp)
		return answer.OutcomeStreamed, res, err
	})
}

// startRun switches to streaming mode and launches fn against the session.
func (m model) startRun(kind runKind, intro string, fn runFunc) (tea.Model, tea.Cmd) {
	m.resetRunState()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mode = modeStreaming
	m.streamPrompt = intro

	ch, wait := beginRun(m.sess.Store, ctx, kind, fn)
	m.streamCh = ch

	var cmds []tea.Cmd
	if intro != "" {
		cmds = append(cmds, tea.Println(intro))
	}
	cmds = append(cmds, tea.Println(""), wait)
	return m, tea.Sequence(cmds...)
}

// ─── Run completion ─────────────────────────────────────────────────────────

func (m model) handleRunDone(msg runDoneMsg) (tea.Model, tea.Cmd) {
	cancelled := m.cancelled
	cmds := m.printEvents(m.proc.Process(msg.state))
	cmds = append(cmds, m.printEvents(m.proc.Flush())...)

	if msg.err == nil && msg.outcome != answer.OutcomeNotFound && !cancelled {
		if !m.proc.Streamed() && msg.state.Content != "" {
			cmds = append(cmds, tea.Println(renderStored(msg.state.Content, m.width)))
		}
		cmds = append(cmds, tea.Println(""))
		for _, line := range renderFooter(msg.state, m.sess.WebURL()) {
			cmds = append(cmds, tea.Println(line))
		}
		if msg.state.Binge.Active() {
			cmds = append(cmds, tea.Println(bingeHintStyle.Render("  In binge "+msg.state.Binge.ID+". Keep typing to follow up, /new to leave.")))
		}
	} else if line := runErrorLine(msg, cancelled); line != "" {
		cmds = append(cmds, tea.Println(line))
	}
	cmds = append(cmds, tea.Println(""))

	m.resetRunState()
	m.mode = modeIdle
	return m, tea.Sequence(cmds...)
}

// runErrorLine is what a failed run prints. Errors the store already
// classified were printed by the processor.
func runErrorLine(msg runDoneMsg, cancelled bool) string {
	err := msg.err
	var pe *submit.PlanningError
	switch {
	case cancelled || errors.Is(err, context.Canceled):
		return warnMsgStyle.Render("  ! Answer cancelled.")
	case errors.As(err, &pe):
		return errorMsgStyle.Render("  ✗ " + display.PlanningMessage(pe))
	case errors.Is(err, submit.ErrRateLimited),
		errors.Is(err, submit.ErrEmptyInput),
		errors.Is(err, answer.ErrSuperseded):
		return ""
	case msg.state.Error.Active():
		return ""
	case errors.Is(err, answer.ErrNotFound), err == nil && msg.outcome == answer.OutcomeNotFound:
		return warnMsgStyle.Render("  ! No answer found for this question.")
	case err != nil:
		return errorMsgStyle.Render(fmt.Sprintf("  ✗ %v", err))
	}
	return ""
}

func notLoggedIn(cfg *config.Config) tea.Cmd {
	if cfg == nil {
		return tea.Println(errorMsgStyle.Render("  ✗ Not logged in. Run gurubase login <server> --token <api-key>"))
	}
	if err := cfg.Validate(); err != nil {
		return tea.Println(errorMsgStyle.Render("  ✗ " + err.Error()))
	}
	return tea.Println(errorMsgStyle.Render("  ✗ Session unavailable. Check the log for details."))
}
