package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"gurubase-cli/internal/api"
)

// CookieName is the name the summary cookie is stored under.
const CookieName = "questionSummary"

// DefaultMaxAge bounds how long a stored summary is trusted.
const DefaultMaxAge = time.Hour

// SummaryCookie is the persisted question summary plus the validity verdict
// from the summary call.
type SummaryCookie struct {
	api.QuestionSummary
	AnswerValid bool `json:"answerValid"`
}

// CookieJar stores at most one summary cookie.
type CookieJar interface {
	Load() (*SummaryCookie, error)
	Save(c *SummaryCookie) error
	Clear() error
}

// FileCookieJar keeps the cookie as a single Set-Cookie line on disk, with an
// in-process copy in front of it so repeated loads skip the file.
type FileCookieJar struct {
	path   string
	maxAge time.Duration
	hints  *cache.Cache
	now    func() time.Time
}

func NewFileCookieJar(dir string, maxAge time.Duration) *FileCookieJar {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &FileCookieJar{
		path:   filepath.Join(dir, "cookie"),
		maxAge: maxAge,
		hints:  cache.New(maxAge, 2*maxAge),
		now:    time.Now,
	}
}

func (j *FileCookieJar) Path() string { return j.path }

// Load returns the stored summary, or nil when there is none or it expired.
func (j *FileCookieJar) Load() (*SummaryCookie, error) {
	if v, ok := j.hints.Get(CookieName); ok {
		return v.(*SummaryCookie), nil
	}

	data, err := os.ReadFile(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cookie: %w", err)
	}

	ck, err := http.ParseSetCookie(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing cookie: %w", err)
	}
	if ck.Name != CookieName {
		return nil, nil
	}
	if !ck.Expires.IsZero() && !j.now().Before(ck.Expires) {
		_ = os.Remove(j.path)
		return nil, nil
	}

	sc, err := decodeValue(ck.Value)
	if err != nil {
		return nil, err
	}
	if !ck.Expires.IsZero() {
		j.hints.Set(CookieName, sc, ck.Expires.Sub(j.now()))
	}
	return sc, nil
}

// Save replaces the stored cookie.
func (j *FileCookieJar) Save(c *SummaryCookie) error {
	if c == nil {
		return j.Clear()
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cookie: %w", err)
	}

	ck := &http.Cookie{
		Name:    CookieName,
		Value:   url.QueryEscape(string(raw)),
		Path:    "/",
		MaxAge:  int(j.maxAge / time.Second),
		Expires: j.now().Add(j.maxAge).UTC(),
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return fmt.Errorf("creating cookie dir: %w", err)
	}
	if err := os.WriteFile(j.path, []byte(ck.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing cookie: %w", err)
	}

	j.hints.Set(CookieName, c, j.maxAge)
	return nil
}

func (j *FileCookieJar) Clear() error {
	j.hints.Delete(CookieName)
	if err := os.Remove(j.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cookie: %w", err)
	}
	return nil
}

func decodeValue(v string) (*SummaryCookie, error) {
	raw, err := url.QueryUnescape(v)
	if err != nil {
		return nil, fmt.Errorf("decoding cookie: %w", err)
	}
	var sc SummaryCookie
	if err := json.Unmarshal([]byte(raw), &sc); err != nil {
		return nil, fmt.Errorf("decoding cookie: %w", err)
	}
	return &sc, nil
}

// StaleIfKeyMismatch returns hint only when it belongs to key. Any other hint
// is a miss and the caller must fetch the canonical value.
func StaleIfKeyMismatch(hint *SummaryCookie, key string) *SummaryCookie {
	if hint == nil || key == "" || hint.QuestionSlug != key {
		return nil
	}
	return hint
}
