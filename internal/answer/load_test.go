package answer

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gurubase-cli/internal/api"
	"gurubase-cli/internal/binge"
	"gurubase-cli/internal/persist"
	"gurubase-cli/internal/store"
)

func countPrefix(calls []string, prefix string) int {
	n := 0
	for _, c := range calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func TestLoadTrustsMatchingCookie(t *testing.T) {
	f := &fakeAPI{open: func(context.Context, int) (io.ReadCloser, error) { return textBody("A pod is..."), nil }}
	h := newHarness(t, f)
	require.NoError(t, h.jar.Save(&persist.SummaryCookie{
		QuestionSummary: *summaryFor("what-is-a-pod", "What is a pod?"),
		AnswerValid:     true,
	}))

	out, err := h.ctrl.Load(context.Background(), Page{GuruType: "kubernetes", Slug: "what-is-a-pod", Question: "What is a pod?"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStreamed, out)

	calls := f.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "stream:what-is-a-pod", calls[0], "no slug fetch before streaming")
	assert.Equal(t, 1, countPrefix(calls, "details:"), "only the post-stream refresh")
	assert.Equal(t, "A pod is...", h.store.Snapshot().Content)
}

func TestLoadMismatchFetchesOnce(t *testing.T) {
	f := &fakeAPI{
		details: &api.SlugDetails{
			Question:   "How are pods scheduled?",
			Content:    "The scheduler...",
			TrustScore: 75,
		},
	}
	h := newHarness(t, f)
	require.NoError(t, h.jar.Save(&persist.SummaryCookie{
		QuestionSummary: *summaryFor("what-is-a-pod", "What is a pod?"),
		AnswerValid:     true,
	}))

	out, err := h.ctrl.Load(context.Background(), Page{GuruType: "kubernetes", Slug: "pod-scheduling", Shared: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, out)
	assert.Equal(t, []string{"details:pod-scheduling"}, f.Calls())

	s := h.store.Snapshot()
	assert.Equal(t, "The scheduler...", s.Content)
	assert.Equal(t, "pod-scheduling", s.CurrentSlug)
	assert.Equal(t, "How are pods scheduled?", s.Query)
	assert.Equal(t, 75, s.TrustScore)
	assert.False(t, s.Streaming)
}

func TestLoadWithoutCookieFetches(t *testing.T) {
	f := &fakeAPI{details: &api.SlugDetails{Content: "stored"}}
	h := newHarness(t, f)

	out, err := h.ctrl.Load(context.Background(), Page{Slug: "a"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, out)
	assert.Equal(t, []string{"details:a"}, f.Calls())
}

func TestLoadNotFound(t *testing.T) {
	tests := []struct {
		name    string
		details *api.SlugDetails
		err     error
	}{
		{"empty content", &api.SlugDetails{Question: "q"}, nil},
		{"404", nil, &api.StatusError{Code: 404}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeAPI{details: tt.details, detailsErr: tt.err}
			h := newHarness(t, f)

			out, err := h.ctrl.Load(context.Background(), Page{GuruType: "kubernetes", Slug: "gone"})
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, OutcomeNotFound, out)
			assert.True(t, h.store.Snapshot().NotFound)
			assert.Len(t, f.Calls(), 1)
		})
	}
}

func TestLoadBackendError(t *testing.T) {
	f := &fakeAPI{detailsErr: &api.StatusError{Code: 502}}
	h := newHarness(t, f)

	_, err := h.ctrl.Load(context.Background(), Page{Slug: "a"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.False(t, h.store.Snapshot().NotFound)
}

func TestLoadEmptySlug(t *testing.T) {
	f := &fakeAPI{}
	h := newHarness(t, f)
	_, err := h.ctrl.Load(context.Background(), Page{GuruType: "k"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.Calls())
}

func TestLoadSharedIncompleteCookieFallsBack(t *testing.T) {
	f := &fakeAPI{details: &api.SlugDetails{Content: "stored"}}
	h := newHarness(t, f)
	partial := summaryFor("a", "A?")
	partial.Description = ""
	require.NoError(t, h.jar.Save(&persist.SummaryCookie{QuestionSummary: *partial, AnswerValid: true}))

	out, err := h.ctrl.Load(context.Background(), Page{Slug: "a", Shared: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, out)
	assert.Equal(t, []string{"details:a"}, f.Calls())
	assert.False(t, h.store.Snapshot().NotFound)
}

func TestLoadBingeLinkAdoptsThread(t *testing.T) {
	f := &fakeAPI{details: &api.SlugDetails{Content: "stored"}}
	h := newHarness(t, f)

	loc, err := binge.ParsePath("/g/kubernetes/root/binge/bg_7?question_slug=leaf")
	require.NoError(t, err)
	out, err := h.ctrl.Load(context.Background(), PageFromLocation(loc, true))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStored, out)

	s := h.store.Snapshot()
	assert.Equal(t, store.Binge{ID: "bg_7", RootSlug: "root"}, s.Binge)
	assert.Equal(t, "leaf", s.CurrentSlug)
	assert.Equal(t, []string{"details:leaf"}, f.Calls())
}

func TestLoadFromStoreSummaryWithoutJar(t *testing.T) {
	f := &fakeAPI{open: func(context.Context, int) (io.ReadCloser, error) { return textBody("x"), nil }}
	h := newHarness(t, f)
	h.ctrl.Jar = nil
	h.store.Dispatch(store.SetSummary{Summary: summaryFor("a", "A?")})

	out, err := h.ctrl.Load(context.Background(), Page{Slug: "a"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStreamed, out)
	assert.Equal(t, "stream:a", f.Calls()[0])
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "stored", OutcomeStored.String())
	assert.Equal(t, "unknown", Outcome(9).String())
}
