package tui

import (
	"strings"

	"gurubase-cli/internal/service"
	"gurubase-cli/internal/store"
)

// ─── Output types ───────────────────────────────────────────────────────────

// OutputType identifies the kind of stream output event.
type OutputType int

const (
	OutputStatus OutputType = iota // Spinner text changed
	OutputAnswer                   // One complete line of answer markdown
	OutputTable                    // A complete markdown pipe table
	OutputError                    // Error classification became active
	OutputBlank                    // Blank separator line
)

// OutputEvent is a structured event emitted by the StreamProcessor.
// The consumer (model.go) decides how to render each type.
type OutputEvent struct {
	Type  OutputType
	Text  string
	Error store.ErrorState
}

// ─── StreamProcessor ────────────────────────────────────────────────────────

// StreamProcessor turns successive store snapshots of one run into output
// events. Answer text is held back until the page is revealed, and only a
// streamed answer is printed line by line; stored answers are rendered whole
// by the caller. It has no dependency on Bubble Tea.
type StreamProcessor struct {
	sawStream bool
	printed   int
	buffer    string
	table     []string
	started   bool

	lastPhase string
	lastError store.ErrorKind
}

func NewStreamProcessor() *StreamProcessor {
	return &StreamProcessor{}
}

// LastStatus returns the spinner text for the latest phase.
func (sp *StreamProcessor) LastStatus() string {
	return statusText(sp.lastPhase)
}

// Streamed reports whether any streamed answer text was seen.
func (sp *StreamProcessor) Streamed() bool {
	return sp.sawStream
}

func (sp *StreamProcessor) Process(s store.State) []OutputEvent {
	var out []OutputEvent

	if phase := s.Phase(); phase != sp.lastPhase {
		sp.lastPhase = phase
		out = append(out, OutputEvent{Type: OutputStatus, Text: statusText(phase)})
	}

	if s.Error.Active() {
		if s.Error.Kind != sp.lastError {
			sp.lastError = s.Error.Kind
			out = append(out, sp.flushBuffer()...)
			out = append(out, OutputEvent{Type: OutputError, Error: s.Error})
		}
	} else {
		sp.lastError = store.ErrorNone
	}

	if s.Streaming {
		sp.sawStream = true
	}
	if !sp.sawStream || !s.SlugPageRendered {
		return out
	}

	if len(s.Content) < sp.printed {
		sp.printed = 0
		sp.buffer = ""
	}
	newText := s.Content[sp.printed:]
	sp.printed = len(s.Content)
	if newText == "" {
		return out
	}

	combined := sp.buffer + service.StripHTML(newText)
	lines := strings.Split(combined, "\n")
	for i, line := range lines {
		if i < len(lines)-1 {
			out = append(out, sp.answerLine(line)...)
		} else {
			sp.buffer = line
		}
	}
	return out
}

// answerLine emits a line, skipping leading blank lines of the answer.
// Table rows are collected until the table ends.
func (sp *StreamProcessor) answerLine(line string) []OutputEvent {
	if !sp.started {
		if strings.TrimSpace(line) == "" {
			return nil
		}
		sp.started = true
	}
	if isTableLine(line) {
		sp.table = append(sp.table, line)
		return nil
	}
	out := sp.flushTable()
	return append(out, OutputEvent{Type: OutputAnswer, Text: line})
}

func (sp *StreamProcessor) flushTable() []OutputEvent {
	if len(sp.table) == 0 {
		return nil
	}
	raw := strings.Join(sp.table, "\n")
	sp.table = nil
	return []OutputEvent{{Type: OutputTable, Text: raw}}
}

func (sp *StreamProcessor) flushBuffer() []OutputEvent {
	if strings.TrimSpace(sp.buffer) == "" {
		sp.buffer = ""
		return sp.flushTable()
	}
	line := sp.buffer
	sp.buffer = ""
	return append(sp.answerLine(line), sp.flushTable()...)
}

// Flush force-flushes the partial answer line. Called on run done/cancel.
func (sp *StreamProcessor) Flush() []OutputEvent {
	return sp.flushBuffer()
}

func statusText(phase string) string {
	switch phase {
	case "asking":
		return "Planning the answer..."
	case "waiting":
		return "Waiting for the answer..."
	case "streaming":
		return "Answering..."
	}
	return "Working..."
}
