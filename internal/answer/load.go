package answer

import (
	"context"
	"errors"
	"fmt"

	"gurubase-cli/internal/api"
	"gurubase-cli/internal/binge"
	"gurubase-cli/internal/persist"
	"gurubase-cli/internal/store"
)

// Page is a question page being opened, either right after a submission or
// from a shared link.
type Page struct {
	GuruType string
	Slug     string
	Question string
	BingeID  string
	RootSlug string
	// Shared marks a page opened from a link rather than from a submission.
	Shared bool
}

// PageFromLocation builds the page a parsed client path points at.
func PageFromLocation(loc binge.Location, shared bool) Page {
	return Page{
		GuruType: loc.GuruType,
		Slug:     loc.TargetSlug(),
		Question: loc.Question,
		BingeID:  loc.BingeID,
		RootSlug: loc.RootSlug,
		Shared:   shared,
	}
}

type Outcome int

const (
	OutcomeStreamed Outcome = iota
	OutcomeStored
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStreamed:
		return "streamed"
	case OutcomeStored:
		return "stored"
	case OutcomeNotFound:
		return "not found"
	}
	return "unknown"
}

// Load reconciles a page with the stored summary. A summary whose slug
// matches the page is trusted and streamed without asking the backend
// about the slug; any other case costs exactly one slug details fetch.
func (c *Controller) Load(ctx context.Context, p Page) (Outcome, error) {
	if p.Slug == "" {
		c.Store.Dispatch(store.SetNotFound{})
		return OutcomeNotFound, ErrNotFound
	}

	snap := c.Store.Snapshot()
	var actions store.Batch
	if p.GuruType != "" && p.GuruType != snap.GuruType {
		actions = append(actions, store.SetGuru{GuruType: p.GuruType})
	}
	if p.BingeID != "" && p.BingeID != snap.Binge.ID {
		actions = append(actions, store.SetBinge{ID: p.BingeID, RootSlug: p.RootSlug})
	}
	if len(actions) > 0 {
		c.Store.Dispatch(actions)
	}

	if hint := persist.StaleIfKeyMismatch(c.hint(), p.Slug); hint != nil && hint.AnswerValid {
		summary := hint.QuestionSummary
		err := c.Stream(ctx, Input{GuruType: p.GuruType, Summary: &summary, Initializing: p.Shared})
		switch {
		case err == nil, errors.Is(err, ErrAlreadyStreamed):
			return OutcomeStreamed, nil
		case errors.Is(err, ErrNotFound) && p.Shared:
		case errors.Is(err, ErrNotFound):
			return OutcomeNotFound, err
		default:
			return OutcomeStreamed, err
		}
	}

	return c.loadStored(ctx, p)
}

func (c *Controller) hint() *persist.SummaryCookie {
	if c.Jar != nil {
		hint, err := c.Jar.Load()
		if err != nil {
			c.log().Warn("answer", "ignoring unreadable summary cookie", map[string]interface{}{"error": err})
		}
		if hint != nil {
			return hint
		}
	}
	if s := c.Store.Snapshot().Summary; s != nil {
		return &persist.SummaryCookie{QuestionSummary: *s, AnswerValid: true}
	}
	return nil
}

// loadStored shows the canonical answer the backend holds for the page.
func (c *Controller) loadStored(ctx context.Context, p Page) (Outcome, error) {
	guru := p.GuruType
	if guru == "" {
		guru = c.Store.Snapshot().GuruType
	}

	details, err := c.API.SlugDetails(ctx, p.Slug, guru, p.BingeID, p.Question)
	if err != nil {
		if api.IsNotFound(err) {
			c.Store.Dispatch(store.SetNotFound{})
			return OutcomeNotFound, ErrNotFound
		}
		return OutcomeNotFound, fmt.Errorf("fetching question: %w", err)
	}
	if details.Content == "" {
		c.log().Info("answer", "no stored answer for slug", map[string]interface{}{"slug": p.Slug})
		c.Store.Dispatch(store.SetNotFound{})
		return OutcomeNotFound, ErrNotFound
	}

	c.Store.Dispatch(store.Batch{
		store.ShowStored{Slug: p.Slug, Question: details.Question, Content: details.Content},
		store.SetMetadata{
			TrustScore:  details.TrustScore,
			DateUpdated: details.DateUpdated,
			References:  details.References,
			FollowUps:   details.FollowUps(),
		},
	})
	return OutcomeStored, nil
}
