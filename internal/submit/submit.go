package submit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"gurubase-cli/internal/api"
	"gurubase-cli/internal/binge"
	"gurubase-cli/internal/logging"
	"gurubase-cli/internal/persist"
	"gurubase-cli/internal/store"
)

// SummaryAPI is the backend call the orchestrator needs.
type SummaryAPI interface {
	Summary(ctx context.Context, req api.SummaryRequest) (*api.SummaryResponse, error)
}

// Request is one submission. BingeID is set by the caller for follow-ups
// after it has ensured the thread exists.
type Request struct {
	Input    string
	GuruType string
	BingeID  string
	FollowUp bool

	// Valid overrides the default non-blank check.
	Valid func(string) bool
}

func (r *Request) validate() error {
	valid := r.Valid
	if valid == nil {
		valid = func(s string) bool { return strings.TrimSpace(s) != "" }
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Input,
			validation.Required,
			validation.By(func(v interface{}) error {
				if !valid(v.(string)) {
					return errors.New("must not be blank")
				}
				return nil
			}),
		),
		validation.Field(&r.GuruType, validation.Required),
	)
}

// Result describes what a successful submission did.
type Result struct {
	Summary  *api.QuestionSummary
	FollowUp bool
	// Path is the page navigated to for an initial question.
	Path string
}

// Orchestrator turns user input into a planned question and hands it to
// either navigation or the stream callback.
type Orchestrator struct {
	API    SummaryAPI
	Store  *store.Store
	Jar    persist.CookieJar
	Router binge.Router
	Log    logging.Logger

	SelfHosted  bool
	SettingsURL string

	// OnFollowUp streams a follow-up in place. Required for follow-ups.
	OnFollowUp func(ctx context.Context, summary *api.QuestionSummary) error
}

func (o *Orchestrator) log() logging.Logger {
	if o.Log == nil {
		return logging.Nop()
	}
	return o.Log
}

// Submit runs one submission. Failures come back as the package sentinels,
// *PlanningError, or the context error after cancellation; in every case the
// store is left at rest.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyInput, err)
	}

	o.Store.Dispatch(store.StartAsking{Question: req.Input})
	if err := ctx.Err(); err != nil {
		o.Store.Dispatch(store.Reset{})
		return nil, err
	}

	resp, err := o.API.Summary(ctx, api.SummaryRequest{
		Question: req.Input,
		GuruType: req.GuruType,
		BingeID:  req.BingeID,
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		o.Store.Dispatch(store.Reset{})
		return nil, ctxErr
	}
	if err != nil {
		return nil, o.fail(api.StatusCode(err), err)
	}
	if resp.Failed() {
		return nil, o.fail(resp.Status, fmt.Errorf("summary error: %v", resp.Error))
	}
	if resp.QuestionSlug == "" {
		o.Store.Dispatch(store.Reset{})
		return nil, ErrNoSlug
	}

	summary := resp.QuestionSummary
	if !resp.ValidQuestion {
		o.Store.Dispatch(store.SetError{Error: store.ErrorState{Kind: store.ErrorAnswerInvalid}})
		o.log().Info("submit", "question judged invalid", map[string]interface{}{"slug": summary.QuestionSlug})
		return nil, ErrInvalidQuestion
	}

	o.Store.Dispatch(store.SetSummary{Summary: &summary})
	if o.Jar != nil {
		if err := o.Jar.Save(&persist.SummaryCookie{QuestionSummary: summary, AnswerValid: true}); err != nil {
			o.log().Warn("submit", "failed to persist summary", map[string]interface{}{"error": err})
		}
	}
	o.log().Info("submit", "summary received", map[string]interface{}{
		"slug":      summary.QuestionSlug,
		"follow_up": req.FollowUp,
		"binge_id":  req.BingeID,
	})

	res := &Result{Summary: &summary, FollowUp: req.FollowUp}
	if req.FollowUp {
		if o.OnFollowUp == nil {
			return nil, errors.New("no stream callback for follow-up")
		}
		if err := o.OnFollowUp(ctx, &summary); err != nil {
			return res, err
		}
		return res, nil
	}

	if o.Store.Snapshot().Binge.Active() {
		o.Store.Dispatch(store.LeaveBinge{})
	}
	res.Path = binge.QuestionPath(req.GuruType, summary.QuestionSlug, summary.Question)
	if o.Router != nil {
		o.Router.Navigate(res.Path)
	}
	return res, nil
}

// fail maps a failed summary call to the caller-facing error and puts the
// store at rest.
func (o *Orchestrator) fail(status int, cause error) error {
	o.Store.Dispatch(store.Reset{})

	switch {
	case status == http.StatusTooManyRequests:
		o.log().Info("submit", "rate limited", nil)
		return ErrRateLimited
	case status == api.StatusRerankerDownloading && o.SelfHosted:
		return &PlanningError{Kind: PlanningReranker, Status: status, Message: msgReranker}
	case status == api.StatusInvalidAPIKey && o.SelfHosted:
		return &PlanningError{Kind: PlanningInvalidKey, Status: status, Message: msgInvalidKey, SettingsURL: o.SettingsURL}
	}

	o.log().Error("submit", "summary failed", map[string]interface{}{"status": status, "error": cause})
	return &PlanningError{Kind: PlanningGeneric, Status: status, Message: msgGeneric}
}
