// Package session wires the answer lifecycle for one client profile: store,
// router, cookie jar, backend client and the controllers that drive them.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gurubase-cli/internal/answer"
	"gurubase-cli/internal/api"
	"gurubase-cli/internal/binge"
	"gurubase-cli/internal/config"
	"gurubase-cli/internal/logging"
	"gurubase-cli/internal/persist"
	"gurubase-cli/internal/service"
	"gurubase-cli/internal/store"
	"gurubase-cli/internal/submit"
)

const logFileName = "gurubase.log"

var (
	// ErrNoThread is returned when a binge map is requested with no thread.
	ErrNoThread = errors.New("no active binge. Ask a follow-up first or pass a binge id")
	ErrNoGuru   = errors.New("guru not set. Run: gurubase set guru <guru-type>")
)

// Deps are the collaborators New builds from config. Build takes them
// directly so tests can substitute them.
type Deps struct {
	API api.GuruAPI
	Jar persist.CookieJar
	Log logging.Logger

	// After overrides the controller's timer scheduling.
	After func(d time.Duration, f func())
	// Save persists the config. Nil skips persistence.
	Save func() error
}

type Session struct {
	Config  *config.Config
	API     api.GuruAPI
	Store   *store.Store
	History *binge.History
	Jar     persist.CookieJar
	Log     logging.Logger

	Threads   *binge.Threads
	Answers   *answer.Controller
	Submitter *submit.Orchestrator

	save func() error
}

// New builds a session for cfg with the real backend client, a file cookie
// jar and a file logger under the config directory.
func New(cfg *config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	fp, err := persist.Fingerprint(dir)
	if err != nil {
		return nil, fmt.Errorf("loading fingerprint: %w", err)
	}

	logPath := cfg.LogFile
	if logPath == "" {
		logPath = filepath.Join(dir, logFileName)
	}
	var log logging.Logger = logging.Nop()
	if l, err := logging.NewFileLogger(logPath, cfg.Debug); err == nil {
		log = l
	}

	return Build(cfg, Deps{
		API:  api.NewClient(cfg, fp),
		Jar:  persist.NewFileCookieJar(dir, persist.DefaultMaxAge),
		Log:  log,
		Save: cfg.Save,
	}), nil
}

// Build assembles a session and restores the thread remembered in cfg.
func Build(cfg *config.Config, d Deps) *Session {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}

	st := store.New(restoredState(cfg))
	history := binge.NewHistory(startPath(cfg))
	redirector := &binge.Redirector{Store: st, Router: history}

	s := &Session{
		Config:  cfg,
		API:     d.API,
		Store:   st,
		History: history,
		Jar:     d.Jar,
		Log:     log,
		Threads: &binge.Threads{API: d.API, Store: st},
		Answers: &answer.Controller{
			API:                 d.API,
			Store:               st,
			Jar:                 d.Jar,
			Router:              history,
			Redirector:          redirector,
			Log:                 log,
			FirstChunkDelay:     cfg.FirstChunkDelay(),
			ErrorBannerDuration: cfg.ErrorBanner(),
			After:               d.After,
		},
		save: d.Save,
	}
	s.Submitter = &submit.Orchestrator{
		API:         d.API,
		Store:       st,
		Jar:         d.Jar,
		Router:      history,
		Log:         log,
		SelfHosted:  cfg.SelfHosted,
		SettingsURL: service.BuildWebURL(cfg.WebBase(), "/settings"),
		OnFollowUp: func(ctx context.Context, summary *api.QuestionSummary) error {
			return s.Answers.Stream(ctx, answer.Input{GuruType: s.Guru(), Summary: summary})
		},
	}
	return s
}

func restoredState(cfg *config.Config) store.State {
	st := store.Reduce(store.Initial(), store.SetGuru{GuruType: cfg.GuruType})
	if cfg.LastParentSlug != "" && cfg.LastBingeID != "" {
		st = store.Reduce(st, store.AdvanceSlug{Slug: cfg.LastParentSlug})
	}
	if cfg.LastSlug != "" {
		st = store.Reduce(st, store.AdvanceSlug{Slug: cfg.LastSlug, FollowUp: cfg.LastBingeID != ""})
	}
	if cfg.LastBingeID != "" {
		st = store.Reduce(st, store.SetBinge{ID: cfg.LastBingeID, RootSlug: cfg.LastRootSlug})
	}
	return st
}

func startPath(cfg *config.Config) string {
	switch {
	case cfg.GuruType == "":
		return "/"
	case cfg.LastBingeID != "" && cfg.LastSlug != "":
		root := cfg.LastRootSlug
		if root == "" {
			root = cfg.LastSlug
		}
		return binge.BingePath(cfg.GuruType, root, cfg.LastBingeID, cfg.LastSlug)
	case cfg.LastSlug != "":
		return binge.QuestionPath(cfg.GuruType, cfg.LastSlug, "")
	}
	return binge.GuruPath(cfg.GuruType)
}

func (s *Session) Guru() string {
	return s.Store.Snapshot().GuruType
}

// SetGuru switches the active guru. A different guru ends the thread.
func (s *Session) SetGuru(guru string) error {
	if guru == "" {
		return errors.New("guru type must not be empty")
	}
	prev := s.Guru()
	actions := store.Batch{store.SetGuru{GuruType: guru}}
	if prev != guru {
		actions = append(actions, store.LeaveBinge{}, store.AdvanceSlug{Slug: ""})
		s.Config.ForgetThread()
		s.Config.LastSlug = ""
		s.History.Navigate(binge.GuruPath(guru))
	}
	s.Store.Dispatch(actions)
	s.Config.GuruType = guru
	return s.persist()
}

// Answered reports whether an answer is on screen to follow up on.
func (s *Session) Answered() bool {
	snap := s.Store.Snapshot()
	return snap.CurrentSlug != "" && snap.Content != ""
}

// Ask submits input. A follow-up joins, or starts, the thread rooted at the
// current answer and streams in place; an initial question navigates to
// its own page and loads it there.
func (s *Session) Ask(ctx context.Context, input string, followUp bool) (*submit.Result, error) {
	guru := s.Guru()
	if guru == "" {
		return nil, ErrNoGuru
	}

	req := submit.Request{Input: input, GuruType: guru, FollowUp: followUp}
	if followUp {
		id, err := s.Threads.Ensure(ctx, guru)
		if err != nil {
			return nil, err
		}
		req.BingeID = id
	}

	res, err := s.Submitter.Submit(ctx, req)
	if err != nil {
		return res, err
	}
	if !followUp {
		if _, err := s.Answers.Load(ctx, answer.Page{
			GuruType: guru,
			Slug:     res.Summary.QuestionSlug,
			Question: res.Summary.Question,
		}); err != nil {
			return res, err
		}
	}
	return res, s.Remember()
}

// Open loads a shared web link to a question or binge page. Any link that
// is not a page of the active thread leaves that thread.
func (s *Session) Open(ctx context.Context, rawURL string) (answer.Outcome, error) {
	_, loc, err := service.ParseWebURL(rawURL)
	if err != nil {
		return answer.OutcomeNotFound, err
	}
	snap := s.Store.Snapshot()
	switch {
	case loc.GuruType != snap.GuruType:
		s.Store.Dispatch(store.Batch{store.LeaveBinge{}, store.AdvanceSlug{Slug: ""}})
		s.Config.ForgetThread()
	case snap.Binge.Active() && loc.BingeID != snap.Binge.ID:
		// A single-shot link or another thread's link ends the current one.
		s.Store.Dispatch(store.LeaveBinge{})
		s.Config.ForgetThread()
	}
	path := binge.QuestionPath(loc.GuruType, loc.Slug, loc.Question)
	if loc.InBinge() {
		path = binge.BingePath(loc.GuruType, loc.RootSlug, loc.BingeID, loc.TargetSlug())
	}
	s.History.Navigate(path)

	out, err := s.Answers.Load(ctx, answer.PageFromLocation(loc, true))
	if err != nil {
		return out, err
	}
	s.Config.GuruType = loc.GuruType
	return out, s.Remember()
}

// Show reloads the page for slug, defaulting to the current question.
func (s *Session) Show(ctx context.Context, slug string) (answer.Outcome, error) {
	snap := s.Store.Snapshot()
	if slug == "" {
		slug = snap.CurrentSlug
	}
	if slug == "" {
		return answer.OutcomeNotFound, errors.New("no question to show. Ask one first or pass a slug")
	}
	out, err := s.Answers.Load(ctx, answer.Page{
		GuruType: snap.GuruType,
		Slug:     slug,
		BingeID:  snap.Binge.ID,
		RootSlug: snap.Binge.RootSlug,
		Shared:   true,
	})
	if err != nil {
		return out, err
	}
	return out, s.Remember()
}

// Binge fetches the map of thread id, defaulting to the active thread.
func (s *Session) Binge(ctx context.Context, id string) (*binge.TreeNode, string, bool, error) {
	if id == "" {
		id = s.Store.Snapshot().Binge.ID
	}
	if id == "" {
		return nil, "", false, ErrNoThread
	}
	root, outdated, err := s.Threads.Map(ctx, s.Guru(), id)
	return root, id, outdated, err
}

// New ends the thread so the next question starts a fresh one.
func (s *Session) New() error {
	s.Answers.Cancel()
	s.Store.Dispatch(store.LeaveBinge{})
	s.Config.ForgetThread()
	if guru := s.Guru(); guru != "" {
		s.History.Navigate(binge.GuruPath(guru))
	}
	return s.persist()
}

// Remember records the current slug linkage in the config.
func (s *Session) Remember() error {
	snap := s.Store.Snapshot()
	s.Config.RememberThread(snap.CurrentSlug, snap.ParentSlug, snap.Binge.ID, snap.Binge.RootSlug)
	return s.persist()
}

func (s *Session) persist() error {
	if s.save == nil {
		return nil
	}
	if err := s.save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// Gurus lists the gurus available on the server, sorted for display.
func (s *Session) Gurus(ctx context.Context) ([]api.Guru, error) {
	gurus, err := s.API.ListGurus(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing gurus: %w", err)
	}
	return service.SortGurus(gurus), nil
}

// WebURL is the web UI link for the current location.
func (s *Session) WebURL() string {
	return service.BuildWebURL(s.Config.WebBase(), s.History.Current())
}

func (s *Session) Close() error {
	s.Answers.Cancel()
	return s.Log.Sync()
}
