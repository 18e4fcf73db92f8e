package binge

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gurubase-cli/internal/api"
	"gurubase-cli/internal/store"
)

func intPtr(i int) *int { return &i }

type fakeAPI struct {
	mu      sync.Mutex
	creates []string
	id      string
	err     error
	graph   *api.BingeData
}

func (f *fakeAPI) CreateBinge(_ context.Context, guru, root string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, guru+"/"+root)
	if f.err != nil {
		return "", f.err
	}
	return f.id, nil
}

func (f *fakeAPI) BingeData(_ context.Context, _, _ string) (*api.BingeData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.graph, nil
}

func TestBuildTreeChain(t *testing.T) {
	nodes := []api.BingeNode{
		{ID: 1, ParentID: nil, Slug: "a", Question: "Q1"},
		{ID: 2, ParentID: intPtr(1), Slug: "b", Question: "Q2"},
		{ID: 3, ParentID: intPtr(2), Slug: "c", Question: "Q3"},
	}

	root := BuildTree(nodes)
	require.NotNil(t, root)
	assert.Equal(t, "a", root.Slug)
	assert.Equal(t, "Q1", root.Text)
	assert.Empty(t, root.ParentSlug)

	require.Len(t, root.Children, 1)
	b := root.Children[0]
	assert.Equal(t, "b", b.Slug)
	assert.Equal(t, "a", b.ParentSlug)

	require.Len(t, b.Children, 1)
	c := b.Children[0]
	assert.Equal(t, "c", c.Slug)
	assert.Equal(t, "b", c.ParentSlug)
	assert.Empty(t, c.Children)
}

func TestBuildTreeOrphans(t *testing.T) {
	assert.Nil(t, BuildTree([]api.BingeNode{{ID: 2, ParentID: intPtr(99), Slug: "x"}}))
	assert.Nil(t, BuildTree(nil))
	assert.Nil(t, BuildTree([]api.BingeNode{}))

	root := BuildTree([]api.BingeNode{
		{ID: 1, Slug: "a"},
		{ID: 2, ParentID: intPtr(99), Slug: "x"},
		{ID: 3, ParentID: intPtr(2), Slug: "y"},
		{ID: 4, ParentID: intPtr(1), Slug: "b"},
	})
	require.NotNil(t, root)
	assert.Equal(t, 2, root.Count())
	assert.Nil(t, root.Find("x"))
	assert.Nil(t, root.Find("y"))
	assert.NotNil(t, root.Find("b"))
}

func TestBuildTreeIdempotentAndPure(t *testing.T) {
	nodes := []api.BingeNode{
		{ID: 1, Slug: "a", Question: "Q1"},
		{ID: 2, ParentID: intPtr(1), Slug: "b", Question: "Q2"},
		{ID: 3, ParentID: intPtr(1), Slug: "c", Question: "Q3"},
	}
	before := make([]api.BingeNode, len(nodes))
	copy(before, nodes)

	first := BuildTree(nodes)
	second := BuildTree(nodes)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, before, nodes)
	assert.Equal(t, []string{"b", "c"}, []string{first.Children[0].Slug, first.Children[1].Slug})
}

func TestBuildTreeCycleAndSelfParent(t *testing.T) {
	root := BuildTree([]api.BingeNode{
		{ID: 1, Slug: "a"},
		{ID: 2, ParentID: intPtr(2), Slug: "self"},
		{ID: 3, ParentID: intPtr(4), Slug: "x"},
		{ID: 4, ParentID: intPtr(3), Slug: "y"},
		{ID: 1, ParentID: intPtr(4), Slug: "dup-root"},
	})
	require.NotNil(t, root)
	assert.Equal(t, 1, root.Count())
}

func TestPaths(t *testing.T) {
	p := QuestionPath("kubernetes", "what-is-a-pod", "What is a pod?")
	u, err := url.Parse(p)
	require.NoError(t, err)
	assert.Equal(t, "/g/kubernetes/what-is-a-pod", u.Path)
	assert.Equal(t, "What is a pod?", u.Query().Get("question"))
	assert.NotContains(t, u.RawQuery, "binge")

	assert.Equal(t, "/g/kubernetes/what-is-a-pod/binge/bg_1?question_slug=pod-scheduling",
		BingePath("kubernetes", "what-is-a-pod", "bg_1", "pod-scheduling"))
	assert.Equal(t, "/g/kubernetes", GuruPath("kubernetes"))
}

func TestRootSlugFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/g/kubernetes/what-is-a-pod?question=x", "what-is-a-pod"},
		{"/g/kubernetes/root/binge/bg_1?question_slug=b", "root"},
		{"/g/kubernetes", ""},
		{"", ""},
		{"/other/a/b", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RootSlugFromPath(tt.path), tt.path)
	}
}

func TestParsePath(t *testing.T) {
	loc, err := ParsePath("https://gurubase.io/g/kubernetes/root/binge/bg_1?question_slug=b")
	require.NoError(t, err)
	assert.Equal(t, Location{GuruType: "kubernetes", RootSlug: "root", BingeID: "bg_1", QuestionSlug: "b"}, loc)
	assert.True(t, loc.InBinge())
	assert.Equal(t, "b", loc.TargetSlug())

	loc, err = ParsePath(QuestionPath("kubernetes", "what-is-a-pod", "What is a pod?"))
	require.NoError(t, err)
	assert.Equal(t, "what-is-a-pod", loc.TargetSlug())
	assert.Equal(t, "What is a pod?", loc.Question)
	assert.False(t, loc.InBinge())

	loc, err = ParsePath("/g/kubernetes")
	require.NoError(t, err)
	assert.True(t, loc.IsGuruHome())

	_, err = ParsePath("/settings")
	assert.Error(t, err)
	_, err = ParsePath("/g/kubernetes/a/b")
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	h := NewHistory("/g/k")
	var seen []string
	h.OnChange = func(p string, replaced bool) {
		if replaced {
			p = "~" + p
		}
		seen = append(seen, p)
	}

	h.Navigate("/g/k/a")
	h.ReplaceURL("/g/k/a/binge/1?question_slug=b")

	assert.Equal(t, "/g/k/a/binge/1?question_slug=b", h.Current())
	assert.Equal(t, []string{"/g/k/a", "~/g/k/a/binge/1?question_slug=b"}, seen)

	empty := NewHistory("")
	assert.Equal(t, "", empty.Current())
	empty.ReplaceURL("/x")
	assert.Equal(t, "/x", empty.Current())
}

func TestRedirectorFollowUps(t *testing.T) {
	st := store.New(store.Initial())
	st.Dispatch(store.SetGuru{GuruType: "kubernetes"})
	st.Dispatch(store.AdvanceSlug{Slug: "a"})
	st.Dispatch(store.SetBinge{ID: "bg_1", RootSlug: "a"})
	h := NewHistory(QuestionPath("kubernetes", "a", "Q1"))
	replaced, navigated := 0, 0
	h.OnChange = func(_ string, r bool) {
		if r {
			replaced++
		} else {
			navigated++
		}
	}
	r := &Redirector{Store: st, Router: h}

	prev := "a"
	for _, next := range []string{"b", "c", "d"} {
		path := r.Apply(prev, next, &api.SlugDetails{TrustScore: 70})
		s := st.Snapshot()
		assert.Equal(t, prev, s.ParentSlug)
		assert.Equal(t, next, s.CurrentSlug)
		assert.Equal(t, BingePath("kubernetes", "a", "bg_1", next), path)
		assert.Equal(t, path, h.Current())
		prev = next
	}
	assert.Equal(t, 3, replaced)
	assert.Zero(t, navigated, "follow-ups never add history entries")
}

func TestRedirectorWithoutBinge(t *testing.T) {
	st := store.New(store.Initial())
	st.Dispatch(store.AdvanceSlug{Slug: "a"})
	h := NewHistory("/g/k/a")
	changes := 0
	h.OnChange = func(string, bool) { changes++ }
	r := &Redirector{Store: st, Router: h}

	details := &api.SlugDetails{
		TrustScore:        55,
		DateUpdated:       "today",
		References:        []api.Reference{{Question: "Pods", Link: "https://k8s.io"}},
		FollowUpQuestions: []byte(`"not a list"`),
	}
	assert.Equal(t, "", r.Apply("a", "a", details))

	s := st.Snapshot()
	assert.Equal(t, 0, changes)
	assert.Equal(t, "/g/k/a", h.Current())
	assert.Equal(t, "a", s.CurrentSlug)
	assert.Empty(t, s.ParentSlug)
	assert.Equal(t, 55, s.TrustScore)
	assert.Equal(t, "today", s.DateUpdated)
	assert.Len(t, s.References, 1)
	assert.NotNil(t, s.FollowUps)
	assert.Empty(t, s.FollowUps)
}

func TestRedirectorRootFallsBackToOldSlug(t *testing.T) {
	st := store.New(store.Initial())
	st.Dispatch(store.SetGuru{GuruType: "k"})
	st.Dispatch(store.SetBinge{ID: "bg_9", RootSlug: "a"})
	h := NewHistory("")
	r := &Redirector{Store: st, Router: h}

	assert.Equal(t, "/g/k/old/binge/bg_9?question_slug=new", r.Apply("old", "new", nil))
}

func TestThreadsEnsureOnce(t *testing.T) {
	st := store.New(store.Initial())
	st.Dispatch(store.AdvanceSlug{Slug: "what-is-a-pod"})
	fake := &fakeAPI{id: "bg_1"}
	th := &Threads{API: fake, Store: st}
	ctx := context.Background()

	id1, err := th.Ensure(ctx, "kubernetes")
	require.NoError(t, err)
	st.Dispatch(store.AdvanceSlug{Slug: "pod-scheduling", FollowUp: true})
	id2, err := th.Ensure(ctx, "kubernetes")
	require.NoError(t, err)

	assert.Equal(t, "bg_1", id1)
	assert.Equal(t, id1, id2)
	assert.Equal(t, []string{"kubernetes/what-is-a-pod"}, fake.creates)
	assert.Equal(t, store.Binge{ID: "bg_1", RootSlug: "what-is-a-pod"}, st.Snapshot().Binge)
}

func TestThreadsEnsureConcurrent(t *testing.T) {
	st := store.New(store.Initial())
	st.Dispatch(store.AdvanceSlug{Slug: "a"})
	fake := &fakeAPI{id: "bg_1"}
	th := &Threads{API: fake, Store: st}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = th.Ensure(context.Background(), "k")
		}()
	}
	wg.Wait()
	assert.Len(t, fake.creates, 1)
}

func TestThreadsEnsureErrors(t *testing.T) {
	st := store.New(store.Initial())
	th := &Threads{API: &fakeAPI{id: "x"}, Store: st}
	_, err := th.Ensure(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNoRoot)

	st.Dispatch(store.AdvanceSlug{Slug: "a"})
	boom := errors.New("boom")
	th = &Threads{API: &fakeAPI{err: boom}, Store: st}
	_, err = th.Ensure(context.Background(), "k")
	assert.ErrorIs(t, err, boom)
	assert.False(t, st.Snapshot().Binge.Active())
}

func TestThreadsMap(t *testing.T) {
	st := store.New(store.Initial())
	st.Dispatch(store.SetBinge{ID: "bg_1", RootSlug: "a"})
	fake := &fakeAPI{graph: &api.BingeData{
		GraphData:     []api.BingeNode{{ID: 1, Slug: "a"}, {ID: 2, ParentID: intPtr(1), Slug: "b"}},
		BingeOutdated: true,
	}}
	th := &Threads{API: fake, Store: st}

	tree, outdated, err := th.Map(context.Background(), "k", "bg_1")
	require.NoError(t, err)
	assert.True(t, outdated)
	assert.Equal(t, 2, tree.Count())
	assert.True(t, st.Snapshot().Binge.Outdated)
}
