package binge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gurubase-cli/internal/api"
	"gurubase-cli/internal/store"
)

// Redirector applies a finished answer to the store and, inside a thread,
// to the URL.
type Redirector struct {
	Store  *store.Store
	Router Router
}

// Apply records details for newSlug and advances the slug linkage. Inside a
// thread the current location is rewritten to the binge path of newSlug; it
// returns that path, or "" when nothing was rewritten.
func (r *Redirector) Apply(oldSlug, newSlug string, details *api.SlugDetails) string {
	meta := store.SetMetadata{FollowUps: []string{}}
	if details != nil {
		meta = store.SetMetadata{
			TrustScore:  details.TrustScore,
			DateUpdated: details.DateUpdated,
			References:  details.References,
			FollowUps:   details.FollowUps(),
		}
	}

	snap := r.Store.Snapshot()
	inBinge := snap.Binge.Active()
	r.Store.Dispatch(store.Batch{
		meta,
		store.AdvanceSlug{Slug: newSlug, FollowUp: inBinge && oldSlug != newSlug},
	})

	if !inBinge || r.Router == nil {
		return ""
	}
	root := RootSlugFromPath(r.Router.Current())
	if root == "" {
		root = oldSlug
	}
	path := BingePath(snap.GuruType, root, snap.Binge.ID, newSlug)
	r.Router.ReplaceURL(path)
	return path
}

// ErrNoRoot is returned when a thread is requested before any question was
// answered.
var ErrNoRoot = errors.New("no question to start a thread from")

// API is the slice of the backend a thread needs.
type API interface {
	CreateBinge(ctx context.Context, guruType, rootSlug string) (string, error)
	BingeData(ctx context.Context, guruType, bingeID string) (*api.BingeData, error)
}

// Threads creates and reads binge threads for the store's current guru.
type Threads struct {
	API   API
	Store *store.Store

	mu sync.Mutex
}

// Ensure returns the active binge id, creating a binge rooted at the current
// slug when there is none. Concurrent callers share one creation.
func (t *Threads) Ensure(ctx context.Context, guru string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.Store.Snapshot()
	if s.Binge.Active() {
		return s.Binge.ID, nil
	}
	if s.CurrentSlug == "" {
		return "", ErrNoRoot
	}

	id, err := t.API.CreateBinge(ctx, guru, s.CurrentSlug)
	if err != nil {
		return "", fmt.Errorf("creating binge: %w", err)
	}
	t.Store.Dispatch(store.SetBinge{ID: id, RootSlug: s.CurrentSlug})
	return id, nil
}

// Map fetches a thread's graph and builds its tree. The outdated marker is
// recorded when bingeID is the active thread.
func (t *Threads) Map(ctx context.Context, guru, bingeID string) (*TreeNode, bool, error) {
	data, err := t.API.BingeData(ctx, guru, bingeID)
	if err != nil {
		return nil, false, fmt.Errorf("fetching binge graph: %w", err)
	}
	if t.Store.Snapshot().Binge.ID == bingeID {
		t.Store.Dispatch(store.SetBingeOutdated{Outdated: data.BingeOutdated})
	}
	return BuildTree(data.GraphData), data.BingeOutdated, nil
}
