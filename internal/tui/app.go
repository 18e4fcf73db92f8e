package tui

import (
	"fmt"

	"gurubase-cli/internal/config"
	"gurubase-cli/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Run launches the interactive TUI mode (inline, printing above the prompt).
func Run(version, profile string) error {
	cfg, err := config.Load(profile)
	if err != nil {
		return err
	}

	var sess *session.Session
	if cfg.Validate() == nil {
		sess, err = session.New(cfg)
		if err != nil {
			return err
		}
		defer sess.Close()
	}

	m := initialModel(version, profile, cfg, sess)
	p := tea.NewProgram(m)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
