package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"sync"

	"gurubase-cli/internal/answer"
	"gurubase-cli/internal/api"
	"gurubase-cli/internal/config"
	"gurubase-cli/internal/display"
	"gurubase-cli/internal/service"
	"gurubase-cli/internal/session"
	"gurubase-cli/internal/store"
	"gurubase-cli/internal/submit"
	"gurubase-cli/internal/tui"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// errShown fails a command whose error was already printed with the answer.
var errShown = errors.New("answer failed")

var activeProfile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errShown) {
			display.Error(err.Error())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gurubase",
		Short: "Ask Gurubase gurus from the terminal",
		Long: `Gurubase CLI asks a guru a question and streams the answer.
Run without a command to start interactive mode.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(".env")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(version, activeProfile)
		},
	}
	root.PersistentFlags().StringVar(&activeProfile, "profile", "", "use a named config profile")

	root.AddCommand(
		loginCmd(),
		setCmd(),
		configCmd(),
		gurusCmd(),
		askCmd(),
		openCmd(),
		showCmd(),
		bingeCmd(),
		newThreadCmd(),
		profilesCmd(),
		versionCmd(),
	)
	return root
}

// loadDotEnv exports GURUBASE_* settings from a .env file when one exists.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ─── login ───────────────────────────────────────────────────────────────────

func loginCmd() *cobra.Command {
	var token, frontend, csrf, sessionID string
	var selfHosted bool

	cmd := &cobra.Command{
		Use:   "login <server-url>",
		Short: "Store credentials for a Gurubase backend",
		Example: `  gurubase login https://api.gurubase.io --token <api-key>
  gurubase login http://localhost:8029/api --self-hosted --csrf <token> --session <id>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(activeProfile)
			if err != nil {
				return err
			}

			cfg.Server = strings.TrimRight(args[0], "/")
			cfg.SelfHosted = selfHosted
			if frontend != "" {
				cfg.Frontend = frontend
			}
			if token != "" {
				cfg.Token = token
			}
			if csrf != "" {
				cfg.CSRFToken = csrf
			}
			if sessionID != "" {
				cfg.SessionID = sessionID
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			fmt.Println()
			display.Spinner("Checking credentials against " + cfg.Server + " ...")

			sess, err := session.New(cfg)
			if err != nil {
				display.ClearLine()
				return err
			}
			defer sess.Close()

			gurus, err := sess.Gurus(cmd.Context())
			display.ClearLine()
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			display.Success(fmt.Sprintf("Authenticated (%s)", api.AuthFor(cfg).Mode()))

			if err := cfg.Save(); err != nil {
				return err
			}

			display.Info("Server:", cfg.Server)
			display.Info("Web:", cfg.WebBase())
			display.Info("Gurus:", fmt.Sprintf("%d available", len(gurus)))

			fmt.Println()
			if cfg.GuruType == "" {
				fmt.Printf("  %sNext:%s Run %sgurubase%s set guru <guru-type>%s to pick a guru.\n\n",
					display.Dim, display.Reset, display.Cyan, profileFlag(), display.Reset)
			} else {
				fmt.Printf("  %sReady!%s Guru is already set to %s.\n",
					display.Dim, display.Reset, cfg.GuruType)
				fmt.Printf("  %sNext:%s Run %sgurubase%s ask \"<question>\"%s to start.\n\n",
					display.Dim, display.Reset, display.Cyan, profileFlag(), display.Reset)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API key for hosted Gurubase")
	cmd.Flags().StringVar(&frontend, "frontend", "", "web UI origin used for links (default: server without /api)")
	cmd.Flags().BoolVar(&selfHosted, "self-hosted", false, "authenticate with a self-hosted session cookie")
	cmd.Flags().StringVar(&csrf, "csrf", "", "CSRF token for self-hosted mode")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id for self-hosted mode")
	return cmd
}

// ─── set ────────────────────────────────────────────────────────────────────

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <guru|server|frontend|token> <value>",
		Short: "Change one configuration value",
		Example: `  gurubase set guru kubernetes
  gurubase set server https://api.gurubase.io`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if key == "guru" {
				sess, err := openSession()
				if err != nil {
					return err
				}
				defer sess.Close()

				gurus, err := sess.Gurus(cmd.Context())
				if err != nil {
					return err
				}
				g, ok := service.FindGuru(gurus, value)
				if !ok {
					return fmt.Errorf("no guru matches %q. Run: gurubase%s gurus", value, profileFlag())
				}
				if err := sess.SetGuru(g.Slug); err != nil {
					return err
				}
				display.Success(fmt.Sprintf("Guru set to %s (%s)", service.GuruName(g), g.Slug))
				return nil
			}

			cfg, err := config.Load(activeProfile)
			if err != nil {
				return err
			}
			switch key {
			case "server":
				cfg.Server = strings.TrimRight(value, "/")
			case "frontend":
				cfg.Frontend = strings.TrimRight(value, "/")
			case "token":
				cfg.Token = value
			default:
				return fmt.Errorf("unknown setting: %s (expected guru, server, frontend or token)", key)
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			display.Success(fmt.Sprintf("%s updated", key))
			return nil
		},
	}
}

// ─── config ─────────────────────────────────────────────────────────────────

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(activeProfile)
			if err != nil {
				return err
			}

			notSet := display.Dim + "(not set)" + display.Reset
			val := func(s string) string {
				if s == "" {
					return notSet
				}
				return s
			}

			display.Header("Gurubase CLI Configuration")

			display.Info("Profile:", config.ProfileName(activeProfile))
			display.Info("Server:", val(cfg.Server))
			display.Info("Web:", val(cfg.WebBase()))

			mode := "hosted"
			if cfg.SelfHosted {
				mode = "self-hosted"
			}
			display.Info("Mode:", mode)

			token := notSet
			if cfg.Token != "" {
				end := min(len(cfg.Token), 8)
				token = cfg.Token[:end] + "..."
			}
			display.Info("Token:", token)
			display.Info("Guru:", val(cfg.GuruType))
			display.Info("Last question:", val(cfg.LastSlug))
			display.Info("Binge:", val(cfg.LastBingeID))
			fmt.Println()
			return nil
		},
	}
}

// ─── gurus ──────────────────────────────────────────────────────────────────

func gurusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gurus",
		Short: "List the gurus on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			fmt.Println()
			display.Spinner("Loading gurus...")
			gurus, err := sess.Gurus(cmd.Context())
			display.ClearLine()
			if err != nil {
				return err
			}

			display.Header(fmt.Sprintf("Gurus (%d)", len(gurus)))
			if len(gurus) == 0 {
				display.Warn("No gurus found.")
				return nil
			}

			current := sess.Guru()
			for _, g := range gurus {
				marker := " "
				if g.Slug == current {
					marker = display.Green + "●" + display.Reset
				}
				fmt.Printf("  %s %s%s%s  %s%s%s\n", marker, display.Bold, service.GuruName(g), display.Reset, display.Dim, g.Slug, display.Reset)
				if g.Description != "" {
					for _, line := range wrapText(service.StripHTML(g.Description), 72) {
						fmt.Printf("      %s%s%s\n", display.Gray, line, display.Reset)
					}
				}
			}
			fmt.Println()
			return nil
		},
	}
}

// ─── ask ────────────────────────────────────────────────────────────────────

func askCmd() *cobra.Command {
	var guru string
	var followUp bool

	cmd := &cobra.Command{
		Use:     "ask <question>",
		Aliases: []string{"a"},
		Short:   "Ask the guru a question and stream the answer",
		Example: `  gurubase ask "What is a pod?"
  gurubase ask --follow-up "How are pods scheduled?"
  gurubase ask --guru react "What are hooks?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			switch {
			case guru == "":
				if err := sess.Config.ValidateGuru(); err != nil {
					return err
				}
			case guru != sess.Guru():
				if err := sess.SetGuru(guru); err != nil {
					return err
				}
			}

			fmt.Printf("\n %s── Gurubase · %s ──────────────────────────────────────────────%s\n", display.Dim, sess.Guru(), display.Reset)
			fmt.Println()
			fmt.Printf("    %sQuestion:%s %s\n", display.Dim, display.Reset, question)
			if b := sess.Store.Snapshot().Binge; followUp && b.Active() {
				fmt.Printf("    %sBinge:%s    %s\n", display.Dim, display.Reset, b.ID)
			}
			fmt.Println()

			return streamRun(cmd.Context(), sess, os.Stdout, func(ctx context.Context) (answer.Outcome, error) {
				_, err := sess.Ask(ctx, question, followUp)
				return answer.OutcomeStreamed, err
			})
		},
	}
	cmd.Flags().StringVarP(&guru, "guru", "g", "", "switch to this guru before asking")
	cmd.Flags().BoolVarP(&followUp, "follow-up", "f", false, "ask inside the binge of the last answer")
	return cmd
}

// ─── open / show ────────────────────────────────────────────────────────────

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "open <url>",
		Short:   "Show the question a shared Gurubase link points at",
		Example: `  gurubase open https://gurubase.io/g/kubernetes/what-is-a-pod`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			fmt.Println()
			return streamRun(cmd.Context(), sess, os.Stdout, func(ctx context.Context) (answer.Outcome, error) {
				return sess.Open(ctx, args[0])
			})
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [slug]",
		Short: "Show a question again (defaults to the last one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			slug := ""
			if len(args) > 0 {
				slug = args[0]
			}
			fmt.Println()
			return streamRun(cmd.Context(), sess, os.Stdout, func(ctx context.Context) (answer.Outcome, error) {
				return sess.Show(ctx, slug)
			})
		},
	}
}

// ─── binge / new ────────────────────────────────────────────────────────────

func bingeCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "binge [binge-id]",
		Short: "Show the map of a binge (defaults to the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			id := ""
			if len(args) > 0 {
				id = args[0]
			}
			root, id, outdated, err := sess.Binge(cmd.Context(), id)
			if err != nil {
				return err
			}
			if root == nil {
				display.Warn("This binge has no questions yet.")
				return nil
			}

			if asYAML {
				out, err := service.TreeYAML(root, id, outdated)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(out)
				return err
			}

			current := sess.Store.Snapshot().CurrentSlug
			display.Header(fmt.Sprintf("Binge %s (%d questions)", id, root.Count()))
			for _, line := range strings.Split(strings.TrimRight(service.RenderTree(root, current), "\n"), "\n") {
				fmt.Println("  " + line)
			}
			if current != "" && root.Find(current) == nil {
				fmt.Println()
				display.Warn("Your last question is not part of this binge.")
			}
			if outdated {
				fmt.Println()
				display.Warn("Some answers in this binge are outdated.")
			}
			fmt.Println()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the map as YAML")
	return cmd
}

func newThreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Leave the binge so the next question starts fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.New(); err != nil {
				return err
			}
			display.Success("Thread closed. The next question starts a new binge.")
			return nil
		},
	}
}

// ─── profiles / version ─────────────────────────────────────────────────────

func profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List all config profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profiles, err := config.ListProfiles()
			if err != nil {
				return err
			}

			display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))

			if len(profiles) == 0 {
				display.Warn("No profiles found.")
				return nil
			}

			for _, p := range profiles {
				marker := " "
				if p == config.ProfileName(activeProfile) {
					marker = display.Green + "●" + display.Reset
				}
				fmt.Printf("  %s %s\n", marker, p)
			}
			fmt.Println()
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gurubase %s\n", version)
		},
	}
}

// ─── streaming ──────────────────────────────────────────────────────────────

// streamRun runs fn while printing the store's answer as it streams. Ctrl-C
// cancels the run.
func streamRun(parent context.Context, sess *session.Session, w io.Writer, fn func(ctx context.Context) (answer.Outcome, error)) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	var mu sync.Mutex
	proc := tui.NewStreamProcessor()
	printer := display.NewLinePrinter(w, "  ")
	emit := func(events []tui.OutputEvent) {
		for _, ev := range events {
			switch ev.Type {
			case tui.OutputAnswer, tui.OutputTable:
				printer.Write(ev.Text + "\n")
			case tui.OutputError:
				printer.Flush()
				fmt.Fprintf(w, "\n  %s %s\n", display.ErrorKindLabel(ev.Error.Kind), display.ErrorMessage(ev.Error))
			}
		}
	}

	// A late timer dispatch can still be delivering when unsubscribe returns.
	unsubscribe := sess.Store.Subscribe(func(s store.State, _ store.Action) {
		mu.Lock()
		defer mu.Unlock()
		emit(proc.Process(s))
	})
	out, err := fn(ctx)
	unsubscribe()

	mu.Lock()
	final := sess.Store.Snapshot()
	emit(proc.Process(final))
	emit(proc.Flush())
	printer.Flush()
	streamed := proc.Streamed()
	mu.Unlock()

	if ctx.Err() != nil {
		sess.Answers.Cancel()
		fmt.Fprintln(w)
		display.Warn("Answer cancelled.")
		return nil
	}
	if err != nil || out == answer.OutcomeNotFound {
		return runError(err, out, final)
	}

	if !streamed && final.Content != "" {
		rendered, rerr := display.RenderMarkdown(final.Content, "", 96)
		if rerr != nil {
			rendered = display.RenderBlock(final.Content)
		}
		fmt.Fprintln(w, strings.TrimRight(rendered, "\n"))
	}
	printFooter(w, final, sess.WebURL())
	return nil
}

// runError maps a failed run to what the command reports. A nil return
// means the run was aborted quietly; errShown means the store's error
// classification was already printed with the answer.
func runError(err error, out answer.Outcome, s store.State) error {
	var pe *submit.PlanningError
	switch {
	case errors.As(err, &pe):
		return errors.New(display.PlanningMessage(pe))
	case errors.Is(err, submit.ErrRateLimited), errors.Is(err, answer.ErrSuperseded):
		return nil
	case s.Error.Active():
		return errShown
	case errors.Is(err, answer.ErrNotFound), err == nil && out == answer.OutcomeNotFound:
		return errors.New("no answer found for this question")
	}
	return err
}

func printFooter(w io.Writer, s store.State, webURL string) {
	fmt.Fprintln(w)
	level := service.TrustLevel(s.TrustScore)
	meta := display.TrustColor(level) + service.FormatTrustScore(s.TrustScore) + display.Reset
	if s.DateUpdated != "" {
		meta += fmt.Sprintf("  %s·  Updated %s%s", display.Dim, display.FormatTime(s.DateUpdated), display.Reset)
	}
	fmt.Fprintf(w, "  %s\n", meta)

	if refs := service.FormatReferences(s.References); len(refs) > 0 {
		fmt.Fprintf(w, "\n  %sSources:%s\n", display.Cyan, display.Reset)
		for _, r := range refs {
			fmt.Fprintf(w, "    • %s %s(%s)%s\n", r.Title, display.Dim, r.Link, display.Reset)
		}
	}

	if len(s.Suggestions) > 0 {
		fmt.Fprintf(w, "\n  %sFollow-up suggestions:%s\n", display.Cyan, display.Reset)
		for i, q := range s.Suggestions {
			fmt.Fprintf(w, "    %d. %s\n", i+1, q)
		}
		fmt.Fprintf(w, "\n  %sTip:%s Run %sgurubase%s ask --follow-up \"<question>\"%s to keep going.\n",
			display.Dim, display.Reset, display.Cyan, profileFlag(), display.Reset)
	}

	if webURL != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %sWeb:%s %s%s%s\n", display.Dim, display.Reset, display.Blue, webURL, display.Reset)
	}
	fmt.Fprintln(w)
}

// ─── helpers ────────────────────────────────────────────────────────────────

func openSession() (*session.Session, error) {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return nil, err
	}
	return session.New(cfg)
}

func profileFlag() string {
	if activeProfile == "" {
		return ""
	}
	return " --profile " + activeProfile
}

func wrapText(text string, width int) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		if paragraph == "" {
			lines = append(lines, "")
			continue
		}
		words := strings.Fields(paragraph)
		current := ""
		for _, word := range words {
			if current == "" {
				current = word
			} else if len(current)+1+len(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}
