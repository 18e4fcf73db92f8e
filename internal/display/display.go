package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gurubase-cli/internal/store"
	"gurubase-cli/internal/submit"
)

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"
)

func Header(text string) {
	fmt.Printf("\n%s%s%s\n", Bold+Cyan, text, Reset)
	fmt.Println(strings.Repeat("─", min(len([]rune(text))+4, 80)))
}

func Success(text string) {
	fmt.Printf("%s✓%s %s\n", Green, Reset, text)
}

func Error(text string) {
	fmt.Fprintf(os.Stderr, "%s✗%s %s\n", Red, Reset, text)
}

func Warn(text string) {
	fmt.Printf("%s!%s %s\n", Yellow, Reset, text)
}

func Info(label, value string) {
	fmt.Printf("  %s%-20s%s %s\n", Dim, label, Reset, value)
}

func Link(label, url string) {
	fmt.Printf("  %s%s%s %s%s%s\n", Dim, label, Reset, Blue, url, Reset)
}

func Spinner(text string) {
	fmt.Printf("\r%s⟳%s %s", Yellow, Reset, text)
}

func ClearLine() {
	fmt.Print("\r\033[K")
}

// ErrorMessage is the user-facing text for an error classification.
func ErrorMessage(e store.ErrorState) string {
	switch e.Kind {
	case store.ErrorContext:
		return "This guru doesn't have enough context to answer that. Try asking something closer to its sources."
	case store.ErrorRejected:
		if e.Message != "" {
			return e.Message
		}
		return "The question was rejected by the server."
	case store.ErrorAnswerInvalid:
		return "This question can't be answered by this guru. Try rephrasing it."
	case store.ErrorStream:
		return "Something went wrong while generating the answer. Please try again."
	}
	return ""
}

// ErrorKindLabel is a short colored tag for an error classification.
func ErrorKindLabel(kind store.ErrorKind) string {
	labels := map[store.ErrorKind]string{
		store.ErrorContext:       Yellow + "⚠ Not enough context" + Reset,
		store.ErrorStream:        Red + "✗ Stream error" + Reset,
		store.ErrorRejected:      Red + "⊘ Rejected" + Reset,
		store.ErrorAnswerInvalid: Magenta + "? Unanswerable" + Reset,
	}
	if label, ok := labels[kind]; ok {
		return label
	}
	return ""
}

// PlanningMessage renders a failed submission, with the settings link when
// there is one.
func PlanningMessage(pe *submit.PlanningError) string {
	if pe == nil {
		return ""
	}
	if pe.SettingsURL != "" {
		return pe.Message + " " + pe.SettingsURL
	}
	return pe.Message
}

// PhaseLabel colors a store.State phase name.
func PhaseLabel(phase string) string {
	labels := map[string]string{
		"idle":      Gray + "idle" + Reset,
		"asking":    Yellow + "⟳ Planning" + Reset,
		"waiting":   Yellow + "⟳ Waiting for answer" + Reset,
		"streaming": Cyan + "⟳ Answering" + Reset,
		"done":      Green + "✓ Done" + Reset,
		"error":     Red + "✗ Error" + Reset,
		"not found": Gray + "Not found" + Reset,
	}
	if label, ok := labels[phase]; ok {
		return label
	}
	return phase
}

// TrustColor picks the color for a service.TrustLevel bucket.
func TrustColor(level string) string {
	switch level {
	case "high":
		return Green
	case "medium":
		return Yellow
	case "low":
		return Red
	}
	return Gray
}

func FormatTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		t, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return ts
		}
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
