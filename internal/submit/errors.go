package submit

import "errors"

var (
	// ErrRateLimited is a silent abort: the caller shows nothing new.
	ErrRateLimited = errors.New("rate limited")
	ErrEmptyInput  = errors.New("question is empty")
	// ErrNoSlug means the backend planned nothing for the question.
	ErrNoSlug          = errors.New("no question slug in summary")
	ErrInvalidQuestion = errors.New("question cannot be answered")
)

type PlanningKind int

const (
	PlanningGeneric PlanningKind = iota
	PlanningReranker
	PlanningInvalidKey
)

// PlanningError is guidance to show inline after a failed summary call.
type PlanningError struct {
	Kind        PlanningKind
	Status      int
	Message     string
	SettingsURL string
}

func (e *PlanningError) Error() string { return e.Message }

const (
	msgGeneric    = "Something went wrong. Please try again."
	msgReranker   = "The reranker model is still downloading. Please wait a few minutes and try again."
	msgInvalidKey = "Your model API key is invalid. Update it in settings."
)
