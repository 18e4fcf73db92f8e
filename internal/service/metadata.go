package service

import (
	"fmt"
	"net/url"
	"strings"

	"gurubase-cli/internal/api"
)

// TrustLevel buckets a trust score the way the answer page colors it.
func TrustLevel(score int) string {
	switch {
	case score >= 80:
		return "high"
	case score >= 60:
		return "medium"
	case score > 0:
		return "low"
	}
	return "unknown"
}

// FormatTrustScore renders a 0-100 trust score for display.
func FormatTrustScore(score int) string {
	if score <= 0 {
		return "Trust score: n/a"
	}
	if score > 100 {
		score = 100
	}
	return fmt.Sprintf("Trust score: %d%% (%s)", score, TrustLevel(score))
}

// ReferenceDisplay is one source line under an answer.
type ReferenceDisplay struct {
	Title string
	Host  string
	Link  string
}

// FormatReferences drops references without a link and fills in a title
// from the link host when the backend sent none.
func FormatReferences(refs []api.Reference) []ReferenceDisplay {
	out := []ReferenceDisplay{}
	seen := map[string]bool{}
	for _, r := range refs {
		link := strings.TrimSpace(r.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true

		host := ""
		if u, err := url.Parse(link); err == nil {
			host = strings.TrimPrefix(u.Host, "www.")
		}
		title := strings.TrimSpace(StripHTML(r.Question))
		if title == "" {
			title = host
		}
		if title == "" {
			title = link
		}
		out = append(out, ReferenceDisplay{Title: title, Host: host, Link: link})
	}
	return out
}
