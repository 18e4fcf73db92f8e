package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"gurubase-cli/internal/service"
)

const (
	italic    = "\033[3m"
	underline = "\033[4m"
)

// MarkdownState carries fence state between lines of one answer.
type MarkdownState struct {
	inCode bool
}

// RenderLine styles one complete line of answer markdown.
func RenderLine(line string, st *MarkdownState) string {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "```") {
		if !st.inCode {
			st.inCode = true
			if lang := strings.TrimSpace(trimmed[3:]); lang != "" {
				return fmt.Sprintf("%s┌─ %s ─%s", Dim, lang, Reset)
			}
			return Dim + "┌──" + Reset
		}
		st.inCode = false
		return Dim + "└──" + Reset
	}
	if st.inCode {
		return fmt.Sprintf("%s│%s %s", Dim, Reset, line)
	}

	if level := headingLevel(trimmed); level > 0 {
		text := trimmed[level+1:]
		if level <= 2 {
			return Bold + Cyan + text + Reset
		}
		return Bold + text + Reset
	}
	if trimmed == "---" || trimmed == "***" || trimmed == "___" {
		return Dim + strings.Repeat("─", 40) + Reset
	}
	if strings.HasPrefix(trimmed, "> ") {
		return fmt.Sprintf("%s│%s %s", Dim, Reset, renderInline(trimmed[2:]))
	}

	pad := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
		return pad + "• " + renderInline(trimmed[2:])
	}
	if num, rest, ok := numbered(trimmed); ok {
		return fmt.Sprintf("%s%s%s.%s %s", pad, Cyan, num, Reset, renderInline(rest))
	}
	return renderInline(line)
}

func headingLevel(s string) int {
	n := 0
	for n < len(s) && n < 6 && s[n] == '#' {
		n++
	}
	if n == 0 || n >= len(s) || s[n] != ' ' {
		return 0
	}
	return n
}

func numbered(s string) (num, rest string, ok bool) {
	dot := strings.Index(s, ". ")
	if dot <= 0 || dot > 3 {
		return "", "", false
	}
	for _, c := range s[:dot] {
		if c < '0' || c > '9' {
			return "", "", false
		}
	}
	return s[:dot], s[dot+2:], true
}

// renderInline handles **bold**, *italic*, `code` and [links](url).
func renderInline(text string) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		if i+3 < len(text) && text[i] == '*' && text[i+1] == '*' {
			if end := strings.Index(text[i+2:], "**"); end > 0 {
				out.WriteString(Bold + renderInline(text[i+2:i+2+end]) + Reset)
				i += 4 + end
				continue
			}
		}
		if text[i] == '*' && (i == 0 || text[i-1] == ' ') {
			if end := strings.IndexByte(text[i+1:], '*'); end > 0 {
				out.WriteString(italic + text[i+1:i+1+end] + Reset)
				i += 2 + end
				continue
			}
		}
		if text[i] == '`' {
			if end := strings.IndexByte(text[i+1:], '`'); end >= 0 {
				out.WriteString(Yellow + text[i+1:i+1+end] + Reset)
				i += 2 + end
				continue
			}
		}
		if text[i] == '[' {
			cb := strings.IndexByte(text[i:], ']')
			if cb > 1 && i+cb+1 < len(text) && text[i+cb+1] == '(' {
				if cp := strings.IndexByte(text[i+cb+1:], ')'); cp > 0 {
					out.WriteString(underline + text[i+1:i+cb] + Reset)
					out.WriteString(Dim + " (" + text[i+cb+2:i+cb+1+cp] + ")" + Reset)
					i += cb + 2 + cp
					continue
				}
			}
		}
		out.WriteByte(text[i])
		i++
	}
	return out.String()
}

// LinePrinter renders streamed answer text as complete lines arrive.
// The trailing partial line is held until the next chunk or Flush.
type LinePrinter struct {
	w      io.Writer
	buf    string
	state  MarkdownState
	indent string
}

func NewLinePrinter(w io.Writer, indent string) *LinePrinter {
	return &LinePrinter{w: w, indent: indent}
}

func (p *LinePrinter) Write(chunk string) {
	p.buf += service.StripHTML(chunk)
	for {
		idx := strings.IndexByte(p.buf, '\n')
		if idx < 0 {
			return
		}
		line := p.buf[:idx]
		p.buf = p.buf[idx+1:]
		fmt.Fprintln(p.w, p.indent+RenderLine(line, &p.state))
	}
}

func (p *LinePrinter) Flush() {
	if p.buf == "" {
		return
	}
	fmt.Fprintln(p.w, p.indent+RenderLine(p.buf, &p.state))
	p.buf = ""
}

// RenderMarkdown lays out a complete answer with glamour. style is a glamour
// standard style name; empty picks one from the terminal background.
func RenderMarkdown(text, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithEmoji()}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(service.StripHTML(text))
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

// RenderBlock renders a complete answer line by line without glamour.
func RenderBlock(text string) string {
	var st MarkdownState
	lines := strings.Split(service.StripHTML(text), "\n")
	for i, line := range lines {
		lines[i] = RenderLine(line, &st)
	}
	return strings.Join(lines, "\n")
}
