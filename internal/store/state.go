package store

import "gurubase-cli/internal/api"

// ErrorKind classifies the single error shown for a question attempt.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	// ErrorContext: the backend had too little retrieval context (406).
	ErrorContext
	// ErrorStream: any other transport or read failure.
	ErrorStream
	// ErrorRejected: structured rejection carrying a server message (405).
	ErrorRejected
	// ErrorAnswerInvalid: the summary step judged the question unanswerable.
	ErrorAnswerInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorContext:
		return "context"
	case ErrorStream:
		return "stream"
	case ErrorRejected:
		return "rejected"
	case ErrorAnswerInvalid:
		return "answerIsInvalid"
	}
	return "unknown"
}

type ErrorState struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e ErrorState) Active() bool { return e.Kind != ErrorNone }

// Binge is the follow-up thread the current question belongs to. A zero
// value means no thread.
type Binge struct {
	ID       string
	RootSlug string
	Outdated bool
}

func (b Binge) Active() bool { return b.ID != "" }

// State is the whole client state. Values are copied out of the Store, so
// slices held here are never mutated in place.
type State struct {
	GuruType string
	Input    string
	Query    string

	Loading              bool
	Asking               bool
	Streaming            bool
	WaitingForFirstChunk bool
	SlugPageRendered     bool
	HasFetched           bool
	NotFound             bool
	Content              string

	CurrentSlug string
	ParentSlug  string
	Binge       Binge

	Summary *api.QuestionSummary
	Error   ErrorState

	TrustScore  int
	DateUpdated string
	References  []api.Reference
	FollowUps   []string
	Suggestions []string
}

// Initial is the resting state before any question.
func Initial() State {
	return State{SlugPageRendered: true}
}

// Phase names the coarse lifecycle position, for display.
func (s State) Phase() string {
	switch {
	case s.Error.Active():
		return "error"
	case s.Streaming && s.WaitingForFirstChunk:
		return "waiting"
	case s.Streaming:
		return "streaming"
	case s.Asking || s.Loading:
		return "asking"
	case s.NotFound:
		return "not found"
	case s.Content != "":
		return "done"
	}
	return "idle"
}
