package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gurubase-cli/internal/api"
	"gurubase-cli/internal/binge"
	"gurubase-cli/internal/config"
	"gurubase-cli/internal/persist"
	"gurubase-cli/internal/store"
)

var slugs = map[string]string{
	"What is a pod?":          "what-is-a-pod",
	"How are pods scheduled?": "pod-scheduling",
	"What is a node?":         "what-is-a-node",
}

var answers = map[string]string{
	"what-is-a-pod":  "A pod is the smallest unit.",
	"pod-scheduling": "The scheduler picks a node.",
	"what-is-a-node": "A node is a machine.",
}

// backend is a fake Gurubase server for one guru.
type backend struct {
	mu          sync.Mutex
	creates     int
	roots       []string
	summaryReqs []map[string]interface{}
	answerReqs  []api.AnswerRequest
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/kubernetes/summary/", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.mu.Lock()
		b.summaryReqs = append(b.summaryReqs, req)
		b.mu.Unlock()

		q, _ := req["question"].(string)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"question":          q,
			"question_slug":     slugs[q],
			"description":       "about " + q,
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"user_intent":       "explain",
			"answer_length":     "short",
			"user_question":     q,
			"valid_question":    true,
		})
	})
	mux.HandleFunc("/kubernetes/answer/", func(w http.ResponseWriter, r *http.Request) {
		var req api.AnswerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.mu.Lock()
		b.answerReqs = append(b.answerReqs, req)
		b.mu.Unlock()
		w.Write([]byte(answers[req.QuestionSlug]))
	})
	mux.HandleFunc("/kubernetes/question/", func(w http.ResponseWriter, r *http.Request) {
		slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/kubernetes/question/"), "/")
		content, ok := answers[slug]
		if !ok {
			http.Error(w, `{"msg":"not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"question":            slug,
			"content":             content,
			"trust_score":         82,
			"date_updated":        "2 days ago",
			"follow_up_questions": []string{},
		})
	})
	mux.HandleFunc("/kubernetes/follow_up/binge/", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.mu.Lock()
		b.creates++
		b.roots = append(b.roots, req["root_slug"])
		id := fmt.Sprintf("bg_%d", b.creates)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	mux.HandleFunc("/kubernetes/follow_up/graph/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"graph_data":[
			{"id":1,"question":"What is a pod?","slug":"what-is-a-pod","parent_id":null},
			{"id":2,"question":"How are pods scheduled?","slug":"pod-scheduling","parent_id":1}
		],"binge_outdated":true}`))
	})
	mux.HandleFunc("/kubernetes/follow_up/examples/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["What is a node?"]`))
	})
	mux.HandleFunc("/guru_types/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"slug":"react","name":"React"},{"slug":"kubernetes","name":"Kubernetes"}]`))
	})
	return mux
}

type harness struct {
	backend *backend
	server  *httptest.Server
	cfg     *config.Config
	session *Session
	saves   int
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{backend: &backend{}}
	h.server = httptest.NewServer(h.backend.handler(t))
	t.Cleanup(h.server.Close)

	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.Server = h.server.URL
	cfg.Token = "test-key"
	if cfg.GuruType == "" {
		cfg.GuruType = "kubernetes"
	}
	h.cfg = cfg
	h.session = Build(cfg, Deps{
		API:   api.NewClient(cfg, "fp-test"),
		Jar:   persist.NewFileCookieJar(t.TempDir(), 0),
		After: func(time.Duration, func()) {},
		Save: func() error {
			h.saves++
			return nil
		},
	})
	return h
}

func TestAskInitialQuestion(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.session.Ask(context.Background(), "What is a pod?", false)
	require.NoError(t, err)
	assert.Equal(t, binge.QuestionPath("kubernetes", "what-is-a-pod", "What is a pod?"), res.Path)
	assert.Equal(t, res.Path, h.session.History.Current())

	s := h.session.Store.Snapshot()
	assert.Equal(t, "A pod is the smallest unit.", s.Content)
	assert.Equal(t, "what-is-a-pod", s.CurrentSlug)
	assert.Equal(t, 82, s.TrustScore)
	assert.Equal(t, []string{"What is a node?"}, s.Suggestions)
	assert.False(t, s.Streaming)
	assert.False(t, s.Binge.Active())
	assert.True(t, h.session.Answered())

	assert.Equal(t, "what-is-a-pod", h.cfg.LastSlug)
	assert.Positive(t, h.saves)
	assert.Equal(t, h.server.URL+res.Path, h.session.WebURL())
}

func TestAskFollowUpStartsThreadOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.session.Ask(ctx, "What is a pod?", false)
	require.NoError(t, err)
	_, err = h.session.Ask(ctx, "How are pods scheduled?", true)
	require.NoError(t, err)

	s := h.session.Store.Snapshot()
	assert.Equal(t, store.Binge{ID: "bg_1", RootSlug: "what-is-a-pod"}, s.Binge)
	assert.Equal(t, "pod-scheduling", s.CurrentSlug)
	assert.Equal(t, "what-is-a-pod", s.ParentSlug)
	assert.Equal(t, "The scheduler picks a node.", s.Content)
	assert.Equal(t, binge.BingePath("kubernetes", "what-is-a-pod", "bg_1", "pod-scheduling"), h.session.History.Current())

	_, err = h.session.Ask(ctx, "What is a node?", true)
	require.NoError(t, err)
	assert.Equal(t, binge.BingePath("kubernetes", "what-is-a-pod", "bg_1", "what-is-a-node"), h.session.History.Current())
	assert.Equal(t, "pod-scheduling", h.session.Store.Snapshot().ParentSlug)

	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	assert.Equal(t, 1, h.backend.creates, "one binge per thread")
	require.Len(t, h.backend.answerReqs, 3)
	assert.Equal(t, "what-is-a-pod", h.backend.answerReqs[1].ParentQuestionSlug)
	assert.Equal(t, "bg_1", h.backend.answerReqs[1].BingeID)
	assert.Equal(t, "bg_1", h.backend.summaryReqs[1]["binge_id"])

	assert.Equal(t, "bg_1", h.cfg.LastBingeID)
	assert.Equal(t, "what-is-a-pod", h.cfg.LastRootSlug)
	assert.Equal(t, "pod-scheduling", h.cfg.LastParentSlug)
}

func TestFollowUpWithoutAnswer(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.session.Ask(context.Background(), "How are pods scheduled?", true)
	assert.ErrorIs(t, err, binge.ErrNoRoot)
}

func TestAskWithoutGuru(t *testing.T) {
	h := newHarness(t, nil)
	h.session.Store.Dispatch(store.SetGuru{GuruType: ""})
	_, err := h.session.Ask(context.Background(), "What is a pod?", false)
	assert.ErrorIs(t, err, ErrNoGuru)
}

func TestBuildRestoresThread(t *testing.T) {
	h := newHarness(t, &config.Config{
		GuruType:       "kubernetes",
		LastSlug:       "pod-scheduling",
		LastParentSlug: "what-is-a-pod",
		LastBingeID:    "bg_1",
		LastRootSlug:   "what-is-a-pod",
	})

	s := h.session.Store.Snapshot()
	assert.Equal(t, "pod-scheduling", s.CurrentSlug)
	assert.Equal(t, "what-is-a-pod", s.ParentSlug)
	assert.Equal(t, store.Binge{ID: "bg_1", RootSlug: "what-is-a-pod"}, s.Binge)
	assert.Equal(t, binge.BingePath("kubernetes", "what-is-a-pod", "bg_1", "pod-scheduling"), h.session.History.Current())
}

func TestStartPath(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"no guru", config.Config{}, "/"},
		{"guru home", config.Config{GuruType: "k"}, "/g/k"},
		{"question", config.Config{GuruType: "k", LastSlug: "a"}, "/g/k/a"},
		{"binge", config.Config{GuruType: "k", LastSlug: "b", LastBingeID: "bg", LastRootSlug: "a"}, "/g/k/a/binge/bg?question_slug=b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, startPath(&tt.cfg))
		})
	}
}

func TestNewLeavesThread(t *testing.T) {
	h := newHarness(t, &config.Config{
		GuruType:     "kubernetes",
		LastSlug:     "pod-scheduling",
		LastBingeID:  "bg_1",
		LastRootSlug: "what-is-a-pod",
	})

	require.NoError(t, h.session.New())
	s := h.session.Store.Snapshot()
	assert.False(t, s.Binge.Active())
	assert.Empty(t, s.ParentSlug)
	assert.Empty(t, h.cfg.LastBingeID)
	assert.Equal(t, "/g/kubernetes", h.session.History.Current())
}

func TestOpenBingeLink(t *testing.T) {
	h := newHarness(t, nil)

	out, err := h.session.Open(context.Background(), "https://gurubase.io/g/kubernetes/what-is-a-pod/binge/bg_1?question_slug=pod-scheduling")
	require.NoError(t, err)
	assert.Equal(t, "stored", out.String())

	s := h.session.Store.Snapshot()
	assert.Equal(t, "The scheduler picks a node.", s.Content)
	assert.Equal(t, "pod-scheduling", s.CurrentSlug)
	assert.Equal(t, "bg_1", s.Binge.ID)
	assert.Equal(t, "bg_1", h.cfg.LastBingeID)
}

func TestOpenSingleQuestionLinkLeavesThread(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.session.Ask(ctx, "What is a pod?", false)
	require.NoError(t, err)
	_, err = h.session.Ask(ctx, "How are pods scheduled?", true)
	require.NoError(t, err)
	require.Equal(t, "bg_1", h.session.Store.Snapshot().Binge.ID)

	_, err = h.session.Open(ctx, "https://gurubase.io/g/kubernetes/what-is-a-node")
	require.NoError(t, err)

	s := h.session.Store.Snapshot()
	assert.False(t, s.Binge.Active())
	assert.Empty(t, s.ParentSlug)
	assert.Equal(t, "what-is-a-node", s.CurrentSlug)
	assert.Empty(t, h.cfg.LastBingeID)
	assert.Empty(t, h.cfg.LastRootSlug)

	_, err = h.session.Ask(ctx, "How are pods scheduled?", true)
	require.NoError(t, err)

	s = h.session.Store.Snapshot()
	assert.Equal(t, store.Binge{ID: "bg_2", RootSlug: "what-is-a-node"}, s.Binge)
	assert.Equal(t, "what-is-a-node", s.ParentSlug)
	assert.Equal(t, binge.BingePath("kubernetes", "what-is-a-node", "bg_2", "pod-scheduling"), h.session.History.Current())

	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	assert.Equal(t, []string{"what-is-a-pod", "what-is-a-node"}, h.backend.roots)
	last := h.backend.answerReqs[len(h.backend.answerReqs)-1]
	assert.Equal(t, "bg_2", last.BingeID)
	assert.Equal(t, "what-is-a-node", last.ParentQuestionSlug)
}

func TestOpenLinkOfSameThreadKeepsIt(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.session.Ask(ctx, "What is a pod?", false)
	require.NoError(t, err)
	_, err = h.session.Ask(ctx, "How are pods scheduled?", true)
	require.NoError(t, err)

	_, err = h.session.Open(ctx, "https://gurubase.io/g/kubernetes/what-is-a-pod/binge/bg_1?question_slug=what-is-a-pod")
	require.NoError(t, err)
	assert.Equal(t, store.Binge{ID: "bg_1", RootSlug: "what-is-a-pod"}, h.session.Store.Snapshot().Binge)
	assert.Equal(t, "bg_1", h.cfg.LastBingeID)
}

func TestOpenMissingQuestion(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.session.Open(context.Background(), "https://gurubase.io/g/kubernetes/gone")
	require.Error(t, err)
	assert.True(t, h.session.Store.Snapshot().NotFound)
}

func TestOpenRejectsGuruHome(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.session.Open(context.Background(), "https://gurubase.io/g/kubernetes")
	assert.Error(t, err)
}

func TestShowWithoutQuestion(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.session.Show(context.Background(), "")
	assert.Error(t, err)
}

func TestShowStoredSlug(t *testing.T) {
	h := newHarness(t, nil)
	out, err := h.session.Show(context.Background(), "what-is-a-node")
	require.NoError(t, err)
	assert.Equal(t, "stored", out.String())
	assert.Equal(t, "A node is a machine.", h.session.Store.Snapshot().Content)
}

func TestBingeMap(t *testing.T) {
	h := newHarness(t, nil)
	_, _, _, err := h.session.Binge(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoThread)

	root, id, outdated, err := h.session.Binge(context.Background(), "bg_1")
	require.NoError(t, err)
	assert.Equal(t, "bg_1", id)
	assert.True(t, outdated)
	require.NotNil(t, root)
	assert.Equal(t, "what-is-a-pod", root.Slug)
	assert.Equal(t, 2, root.Count())
}

func TestSetGuruEndsThread(t *testing.T) {
	h := newHarness(t, &config.Config{
		GuruType:    "kubernetes",
		LastSlug:    "pod-scheduling",
		LastBingeID: "bg_1",
	})

	require.NoError(t, h.session.SetGuru("kubernetes"))
	assert.True(t, h.session.Store.Snapshot().Binge.Active(), "same guru keeps the thread")

	require.NoError(t, h.session.SetGuru("react"))
	s := h.session.Store.Snapshot()
	assert.Equal(t, "react", s.GuruType)
	assert.False(t, s.Binge.Active())
	assert.Empty(t, s.CurrentSlug)
	assert.Equal(t, "react", h.cfg.GuruType)
	assert.Empty(t, h.cfg.LastSlug)
	assert.Equal(t, "/g/react", h.session.History.Current())

	assert.Error(t, h.session.SetGuru(""))
}

func TestGurusSorted(t *testing.T) {
	h := newHarness(t, nil)
	gurus, err := h.session.Gurus(context.Background())
	require.NoError(t, err)
	require.Len(t, gurus, 2)
	assert.Equal(t, "kubernetes", gurus[0].Slug)
}
