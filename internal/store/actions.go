package store

import "gurubase-cli/internal/api"

// Action is a named state transition. The set is closed: only types in this
// package implement it.
type Action interface {
	isAction()
}

type (
	SetGuru  struct{ GuruType string }
	SetInput struct{ Text string }

	// StartAsking marks a summary round-trip in flight.
	StartAsking struct{ Question string }

	SetLoading struct{ On bool }

	// SetSummary installs a fresh summary and re-arms the fetch guard.
	SetSummary struct{ Summary *api.QuestionSummary }

	StartStream  struct{}
	AppendChunk  struct{ Text string }
	RevealStream struct{}
	FinishStream struct{}

	// StreamFailed puts every in-flight flag at rest after an unexpected
	// failure in the read loop.
	StreamFailed struct{}

	SetError   struct{ Error ErrorState }
	ClearError struct{}

	SetNotFound struct{}

	// ShowStored displays an answer that already exists on the backend.
	ShowStored struct {
		Slug     string
		Question string
		Content  string
	}

	SetMetadata struct {
		TrustScore  int
		DateUpdated string
		References  []api.Reference
		FollowUps   []string
	}

	SetSuggestions struct{ Questions []string }

	// AdvanceSlug moves the linkage forward. With FollowUp set the previous
	// current slug becomes the parent.
	AdvanceSlug struct {
		Slug     string
		FollowUp bool
	}

	SetBinge struct {
		ID       string
		RootSlug string
	}

	SetBingeOutdated struct{ Outdated bool }

	// LeaveBinge is the only action that drops the thread.
	LeaveBinge struct{}

	// Reset restores per-question transient fields. Binge, slugs and the
	// summary survive.
	Reset struct{}

	// Batch applies several actions as one transition with one notification.
	Batch []Action
)

func (SetGuru) isAction()          {}
func (SetInput) isAction()         {}
func (StartAsking) isAction()      {}
func (SetLoading) isAction()       {}
func (SetSummary) isAction()       {}
func (StartStream) isAction()      {}
func (AppendChunk) isAction()      {}
func (RevealStream) isAction()     {}
func (FinishStream) isAction()     {}
func (StreamFailed) isAction()     {}
func (SetError) isAction()         {}
func (ClearError) isAction()       {}
func (SetNotFound) isAction()      {}
func (ShowStored) isAction()       {}
func (SetMetadata) isAction()      {}
func (SetSuggestions) isAction()   {}
func (AdvanceSlug) isAction()      {}
func (SetBinge) isAction()         {}
func (SetBingeOutdated) isAction() {}
func (LeaveBinge) isAction()       {}
func (Reset) isAction()            {}
func (Batch) isAction()            {}

// AllActions returns one zero value of every action type.
func AllActions() []Action {
	return []Action{
		SetGuru{},
		SetInput{},
		StartAsking{},
		SetLoading{},
		SetSummary{},
		StartStream{},
		AppendChunk{},
		RevealStream{},
		FinishStream{},
		StreamFailed{},
		SetError{},
		ClearError{},
		SetNotFound{},
		ShowStored{},
		SetMetadata{},
		SetSuggestions{},
		AdvanceSlug{},
		SetBinge{},
		SetBingeOutdated{},
		LeaveBinge{},
		Reset{},
		Batch{},
	}
}
