package binge

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Router is the URL projection of the client. Navigate is an ordinary page
// change; ReplaceURL rewrites the current location without leaving the page.
type Router interface {
	Navigate(path string)
	ReplaceURL(path string)
	Current() string
}

// History is an in-memory Router. OnChange, when set, sees every new
// location.
type History struct {
	mu       sync.Mutex
	entries []string

	OnChange func(path string, replaced bool)
}

func NewHistory(start string) *History {
	h := &History{}
	if start != "" {
		h.entries = append(h.entries, start)
	}
	return h
}

func (h *History) Navigate(path string) {
	h.mu.Lock()
	h.entries = append(h.entries, path)
	fn := h.OnChange
	h.mu.Unlock()
	if fn != nil {
		fn(path, false)
	}
}

func (h *History) ReplaceURL(path string) {
	h.mu.Lock()
	if len(h.entries) == 0 {
		h.entries = append(h.entries, path)
	} else {
		h.entries[len(h.entries)-1] = path
	}
	fn := h.OnChange
	h.mu.Unlock()
	if fn != nil {
		fn(path, true)
	}
}

func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

// GuruPath is a guru's home page.
func GuruPath(guru string) string {
	return "/g/" + url.PathEscape(guru)
}

// QuestionPath is the page of a single-shot question.
func QuestionPath(guru, slug, question string) string {
	p := GuruPath(guru) + "/" + url.PathEscape(slug)
	if question != "" {
		p += "?" + url.Values{"question": {question}}.Encode()
	}
	return p
}

// BingePath is the page of a question inside a thread.
func BingePath(guru, rootSlug, bingeID, slug string) string {
	p := GuruPath(guru) + "/" + url.PathEscape(rootSlug) + "/binge/" + url.PathEscape(bingeID)
	if slug != "" {
		p += "?" + url.Values{"question_slug": {slug}}.Encode()
	}
	return p
}

// Location is a parsed client path.
type Location struct {
	GuruType     string
	Slug         string
	Question     string
	RootSlug     string
	BingeID      string
	QuestionSlug string
}

// IsGuruHome reports whether the location is a guru page without a question.
func (l Location) IsGuruHome() bool { return l.GuruType != "" && l.Slug == "" && l.BingeID == "" }

func (l Location) InBinge() bool { return l.BingeID != "" }

// TargetSlug is the question the location shows.
func (l Location) TargetSlug() string {
	switch {
	case l.QuestionSlug != "":
		return l.QuestionSlug
	case l.InBinge():
		return l.RootSlug
	}
	return l.Slug
}

// ParsePath reads a path produced by GuruPath, QuestionPath or BingePath.
// Full URLs are accepted; only their path and query are used.
func ParsePath(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("parsing path: %w", err)
	}
	segs := splitPath(u.Path)
	if len(segs) < 2 || segs[0] != "g" {
		return Location{}, fmt.Errorf("not a guru path: %q", u.Path)
	}

	loc := Location{GuruType: segs[1]}
	q := u.Query()
	switch {
	case len(segs) == 2:
	case len(segs) == 3:
		loc.Slug = segs[2]
		loc.Question = q.Get("question")
		loc.QuestionSlug = q.Get("question_slug")
	case len(segs) == 5 && segs[3] == "binge":
		loc.RootSlug = segs[2]
		loc.BingeID = segs[4]
		loc.QuestionSlug = q.Get("question_slug")
	default:
		return Location{}, fmt.Errorf("unrecognized guru path: %q", u.Path)
	}
	return loc, nil
}

// RootSlugFromPath returns the question segment of a question or binge path,
// or "" when the path has none.
func RootSlugFromPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segs := splitPath(u.Path)
	if len(segs) >= 3 && segs[0] == "g" {
		return segs[2]
	}
	return ""
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
