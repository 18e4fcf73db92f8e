package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"gurubase-cli/internal/api"
	"gurubase-cli/internal/binge"
	"gurubase-cli/internal/logging"
	"gurubase-cli/internal/persist"
	"gurubase-cli/internal/service"
	"gurubase-cli/internal/store"
)

const (
	DefaultFirstChunkDelay     = 300 * time.Millisecond
	DefaultErrorBannerDuration = 5 * time.Second

	readSize = 4096
)

var (
	// ErrNotFound means the page has nothing renderable: a stale or bad link.
	ErrNotFound = errors.New("answer not found")
	// ErrSuperseded is returned by a stream that a newer one replaced.
	ErrSuperseded = errors.New("stream superseded by a newer question")
	// ErrAlreadyStreamed is returned when the current summary was streamed.
	ErrAlreadyStreamed = errors.New("answer already streamed")
)

// API is the backend surface the controller uses.
type API interface {
	StreamAnswer(ctx context.Context, guruType string, req api.AnswerRequest, scopedToken string) (io.ReadCloser, error)
	SlugDetails(ctx context.Context, slug, guruType, bingeID, question string) (*api.SlugDetails, error)
	FollowUpQuestions(ctx context.Context, guruType, bingeID, slug, question string) ([]string, error)
}

// Controller owns the life of one answer at a time, from summary to fully
// rendered with metadata. A new Stream cancels the one in flight.
type Controller struct {
	API        API
	Store      *store.Store
	Jar        persist.CookieJar
	Router     binge.Router
	Redirector *binge.Redirector
	Log        logging.Logger

	FirstChunkDelay     time.Duration
	ErrorBannerDuration time.Duration

	// After schedules f once d has elapsed. Defaults to time.AfterFunc.
	After func(d time.Duration, f func())
	Now   func() time.Time

	mu     sync.Mutex
	gen    uint64
	errSeq uint64
	cancel context.CancelFunc
}

// Input is one answer to stream.
type Input struct {
	GuruType string
	Summary  *api.QuestionSummary
	// ParentSlug and BingeID default to the store's thread.
	ParentSlug string
	BingeID    string
	// Initializing marks a shared-link load: a guard failure is reported
	// to the caller without marking the page not found.
	Initializing bool
}

func (c *Controller) log() logging.Logger {
	if c.Log == nil {
		return logging.Nop()
	}
	return c.Log
}

func (c *Controller) after(d time.Duration, f func()) {
	if c.After != nil {
		c.After(d, f)
		return
	}
	time.AfterFunc(d, f)
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Controller) firstChunkDelay() time.Duration {
	if c.FirstChunkDelay > 0 {
		return c.FirstChunkDelay
	}
	return DefaultFirstChunkDelay
}

func (c *Controller) bannerDuration() time.Duration {
	if c.ErrorBannerDuration > 0 {
		return c.ErrorBannerDuration
	}
	return DefaultErrorBannerDuration
}

// begin makes a new run current, cancelling the previous one.
func (c *Controller) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.mu.Unlock()

	return ctx, gen, func() {
		c.mu.Lock()
		if c.gen == gen {
			c.cancel = nil
		}
		c.mu.Unlock()
		cancel()
	}
}

// guarded runs fn only while gen is the current run. Writes from a replaced
// run are dropped.
func (c *Controller) guarded(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	fn()
	return true
}

// Cancel stops the stream in flight, if any. The store is put at rest
// without an error.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Streaming reports whether a run is in flight.
func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// showError sets the classification. Callers hold c.mu through guarded and
// pass the returned sequence to clearLater once it is released.
func (c *Controller) showError(e store.ErrorState) uint64 {
	c.errSeq++
	c.Store.Dispatch(store.SetError{Error: e})
	return c.errSeq
}

// clearLater clears the banner after its display time unless a newer error
// replaced it.
func (c *Controller) clearLater(seq uint64, kind store.ErrorKind) {
	c.after(c.bannerDuration(), func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.errSeq == seq && c.Store.Snapshot().Error.Kind == kind {
			c.Store.Dispatch(store.ClearError{})
		}
	})
}

// Classify maps a failed stream open to its error classification.
func Classify(err error) store.ErrorState {
	var se *api.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusNotAcceptable:
			return store.ErrorState{Kind: store.ErrorContext, Status: se.Code}
		case http.StatusMethodNotAllowed:
			return store.ErrorState{Kind: store.ErrorRejected, Status: se.Code, Message: se.Message}
		}
		return store.ErrorState{Kind: store.ErrorStream, Status: se.Code}
	}
	return store.ErrorState{Kind: store.ErrorStream}
}

// Stream runs the answer state machine for in.Summary: open the stream,
// accumulate chunks, then refresh metadata, redirect and fetch follow-up
// suggestions, in that order.
func (c *Controller) Stream(ctx context.Context, in Input) error {
	summary := in.Summary
	if !summary.Complete() {
		if !in.Initializing {
			c.Store.Dispatch(store.SetNotFound{})
		}
		return ErrNotFound
	}
	snap := c.Store.Snapshot()
	if snap.HasFetched && snap.Summary != nil && snap.Summary.QuestionSlug == summary.QuestionSlug {
		return ErrAlreadyStreamed
	}

	guru := in.GuruType
	if guru == "" {
		guru = snap.GuruType
	}
	bingeID := in.BingeID
	if bingeID == "" {
		bingeID = snap.Binge.ID
	}
	parent := in.ParentSlug
	if parent == "" && bingeID != "" && snap.CurrentSlug != summary.QuestionSlug {
		parent = snap.CurrentSlug
	}
	oldSlug := snap.CurrentSlug

	ctx, gen, done := c.begin(ctx)
	defer done()

	c.guarded(gen, func() {
		c.Store.Dispatch(store.Batch{
			store.SetSummary{Summary: summary},
			store.ClearError{},
			store.StartStream{},
		})
	})
	if exp, ok := api.ScopedTokenExpiry(summary.JWT); ok && !c.now().Before(exp) {
		c.log().Warn("answer", "scoped token already expired", map[string]interface{}{
			"slug":    summary.QuestionSlug,
			"expired": exp.Format(time.RFC3339),
		})
	}

	body, err := c.API.StreamAnswer(ctx, guru, api.NewAnswerRequest(summary, parent, bingeID), summary.JWT)
	if err != nil {
		return c.openFailed(ctx, gen, guru, err)
	}
	defer body.Close()

	if err := c.read(ctx, gen, body); err != nil {
		return err
	}
	if !c.guarded(gen, func() { c.Store.Dispatch(store.FinishStream{}) }) {
		return ErrSuperseded
	}
	c.log().Info("answer", "stream complete", map[string]interface{}{"slug": summary.QuestionSlug})

	details, err := c.API.SlugDetails(ctx, summary.QuestionSlug, guru, bingeID, summary.Question)
	if err != nil {
		if ctx.Err() != nil {
			// The answer stays as streamed; a cancelled refresh is not a wipe.
			return ctx.Err()
		}
		c.log().Warn("answer", "slug details refresh failed", map[string]interface{}{"error": err})
		details = nil
	}
	if !c.guarded(gen, func() { c.redirector().Apply(oldSlug, summary.QuestionSlug, details) }) {
		return ErrSuperseded
	}

	questions, err := c.API.FollowUpQuestions(ctx, guru, bingeID, summary.QuestionSlug, summary.Question)
	if err != nil {
		c.log().Warn("answer", "follow-up generation failed", map[string]interface{}{"error": err})
		return nil
	}
	c.guarded(gen, func() { c.Store.Dispatch(store.SetSuggestions{Questions: questions}) })
	return nil
}

func (c *Controller) redirector() *binge.Redirector {
	if c.Redirector != nil {
		return c.Redirector
	}
	return &binge.Redirector{Store: c.Store, Router: c.Router}
}

func (c *Controller) openFailed(ctx context.Context, gen uint64, guru string, err error) error {
	if ctx.Err() != nil {
		if !c.guarded(gen, func() { c.Store.Dispatch(store.StreamFailed{}) }) {
			return ErrSuperseded
		}
		return ctx.Err()
	}

	e := Classify(err)
	c.log().Error("answer", "opening stream failed", map[string]interface{}{
		"kind":   e.Kind.String(),
		"status": e.Status,
		"error":  err,
	})
	var seq uint64
	ok := c.guarded(gen, func() {
		seq = c.showError(e)
		if !c.Store.Snapshot().Binge.Active() && c.Router != nil {
			c.Router.Navigate(binge.GuruPath(guru))
		}
	})
	if !ok {
		return ErrSuperseded
	}
	c.clearLater(seq, e.Kind)
	return fmt.Errorf("opening answer stream: %w", err)
}

// read consumes body into the store. Multi-byte runes split across reads
// are held back until complete.
func (c *Controller) read(ctx context.Context, gen uint64, body io.Reader) error {
	buf := make([]byte, readSize)
	var carry []byte
	revealScheduled := false

	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			valid, rest := splitUTF8(data)
			carry = append([]byte(nil), rest...)

			if len(valid) > 0 {
				text := string(valid)
				var next store.State
				ok := c.guarded(gen, func() {
					next = c.Store.Dispatch(store.AppendChunk{Text: text})
				})
				if !ok {
					return ErrSuperseded
				}
				// A blank or lone-marker start keeps the previous answer up.
				if !next.SlugPageRendered && !revealScheduled && !service.IsTrivialContent(next.Content) {
					revealScheduled = true
					c.after(c.firstChunkDelay(), func() {
						c.guarded(gen, func() { c.Store.Dispatch(store.RevealStream{}) })
					})
				}
			}
		}

		if rerr == io.EOF {
			if len(carry) > 0 {
				text := string(carry)
				c.guarded(gen, func() { c.Store.Dispatch(store.AppendChunk{Text: text}) })
			}
			return nil
		}
		if rerr != nil {
			return c.readFailed(ctx, gen, rerr)
		}
	}
}

func (c *Controller) readFailed(ctx context.Context, gen uint64, err error) error {
	if ctx.Err() != nil {
		if !c.guarded(gen, func() { c.Store.Dispatch(store.StreamFailed{}) }) {
			return ErrSuperseded
		}
		return ctx.Err()
	}

	c.log().Error("answer", "stream read failed", map[string]interface{}{"error": err})
	var seq uint64
	ok := c.guarded(gen, func() {
		c.Store.Dispatch(store.StreamFailed{})
		seq = c.showError(store.ErrorState{Kind: store.ErrorStream})
	})
	if !ok {
		return ErrSuperseded
	}
	c.clearLater(seq, store.ErrorStream)
	return fmt.Errorf("reading answer stream: %w", err)
}

// splitUTF8 splits b before a trailing incomplete rune.
func splitUTF8(b []byte) (valid, rest []byte) {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			return b[:i], b[i:]
		}
		break
	}
	return b, nil
}
