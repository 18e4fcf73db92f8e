package tui

import (
	"fmt"
	"strings"

	"gurubase-cli/internal/api"
	"gurubase-cli/internal/binge"
	"gurubase-cli/internal/display"
	"gurubase-cli/internal/service"
	"gurubase-cli/internal/store"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// ─── Welcome Screen ─────────────────────────────────────────────────────────

func renderWelcome(version, server, guru string, width int) string {
	titleLine := bannerTitleStyle.Render("Gurubase CLI") + " " + versionStyle.Render("v"+version)

	var infoLine string
	if server == "" {
		infoLine = welcomeHintStyle.Render("Run gurubase login <server> --token <api-key> to get started")
	} else {
		serverDisplay := truncate(server, 40)
		guruDisplay := dimStyle.Render("no guru set")
		if guru != "" {
			guruDisplay = truncate(guru, 36)
		}
		infoLine = welcomeInfoLabel.Render(fmt.Sprintf("%s · %s", serverDisplay, guruDisplay))
	}

	return fmt.Sprintf("\n%s\n\n%s\n%s\n", renderLogo(), titleLine, infoLine)
}

const logoArt = `
   .-------.
  /  .---. \
 |  |  __ \_|
 |  | |_  |
  \  '---' /
   '-------'
`

func renderLogo() string {
	lines := strings.Split(strings.Trim(logoArt, "\n"), "\n")
	for i, line := range lines {
		lines[i] = colorizeLogoLine(line)
	}
	return strings.Join(lines, "\n")
}

// colorizeLogoLine paints the ring and the inner stroke in different colors.
func colorizeLogoLine(line string) string {
	var out strings.Builder
	for _, r := range line {
		switch r {
		case '_', '|':
			out.WriteString(bannerMarkStyle.Render(string(r)))
		case ' ':
			out.WriteRune(r)
		default:
			out.WriteString(bannerStyle.Render(string(r)))
		}
	}
	return out.String()
}

func truncate(s string, max int) string {
	if r := []rune(s); len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}

// ─── Answers ────────────────────────────────────────────────────────────────

func renderAnswerLine(line string, st *display.MarkdownState) string {
	return "  " + display.RenderLine(line, st)
}

// renderStored lays out a complete answer, falling back to the line
// renderer when glamour cannot.
func renderStored(content string, width int) string {
	wrap := min(width, 100) - 4
	if out, err := display.RenderMarkdown(content, "dark", wrap); err == nil {
		return strings.TrimRight(out, "\n")
	}
	return indentText(display.RenderBlock(content), "  ")
}

// renderTable draws a markdown pipe table with lipgloss.
func renderTable(raw string, width int) string {
	var rows [][]string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, "|"), "|")
		cells := strings.Split(trimmed, "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if isSeparatorRow(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return ""
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(separatorStyle).
		Headers(rows[0]...).
		Rows(rows[1:]...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	if width > 0 {
		t = t.Width(min(width, 100) - 2)
	}
	return indentText(t.Render(), "  ")
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func isTableLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

// renderFooter is the metadata block printed below a finished answer.
func renderFooter(s store.State, webURL string) []string {
	var lines []string

	trust := service.FormatTrustScore(s.TrustScore)
	level := service.TrustLevel(s.TrustScore)
	meta := trustStyle(level).Render(trust)
	if s.DateUpdated != "" {
		meta += dimStyle.Render("  ·  Updated " + display.FormatTime(s.DateUpdated))
	}
	lines = append(lines, "  "+meta)

	if refs := service.FormatReferences(s.References); len(refs) > 0 {
		lines = append(lines, "", referencesHeaderStyle.Render("  Sources:"))
		for _, r := range refs {
			lines = append(lines, fmt.Sprintf("    • %s %s", r.Title, dimStyle.Render("("+r.Link+")")))
		}
	}

	if len(s.Suggestions) > 0 {
		lines = append(lines, "", relatedStyle.Render("  Follow-up suggestions:"))
		for i, q := range s.Suggestions {
			lines = append(lines, relatedStyle.Render(fmt.Sprintf("     %d. %s", i+1, q)))
		}
	}

	if webURL != "" {
		lines = append(lines, "", dimStyle.Render("  "+webURL))
	}
	return lines
}

// guruLine is one row of the /guru list. The intro is cut to its first line.
func guruLine(g api.Guru, current string) string {
	marker := "  "
	if g.Slug == current {
		marker = successMsgStyle.Render("● ")
	}
	line := fmt.Sprintf("  %s%s %s", marker, service.GuruName(g), dimStyle.Render(g.Slug))
	if intro := service.ExcerptLine(g.Description, 56); intro != "" {
		line += dimStyle.Render("  " + intro)
	}
	return line
}

// bingeNotes are the warnings printed under a binge map.
func bingeNotes(root *binge.TreeNode, current string, outdated bool) []string {
	var notes []string
	if current != "" && root.Find(current) == nil {
		notes = append(notes, warnMsgStyle.Render("  ! The question on screen is not part of this binge."))
	}
	if outdated {
		notes = append(notes, warnMsgStyle.Render("  ! Some answers in this binge are outdated."))
	}
	return notes
}

func trustStyle(level string) lipgloss.Style {
	switch level {
	case "high":
		return successMsgStyle
	case "medium":
		return warnMsgStyle
	case "low":
		return errorMsgStyle
	}
	return dimStyle
}

func indentText(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
