package service

import (
	"fmt"
	"net/url"
	"strings"

	"gurubase-cli/internal/binge"
)

// BuildWebURL joins a client path onto the web UI base.
// Strips "/api" suffix if present in the base URL.
func BuildWebURL(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")

	// Strip /api suffix to get the frontend URL
	base = strings.TrimSuffix(base, "/api")

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// ParseWebURL splits a shared link into its host and the page it points at.
func ParseWebURL(rawURL string) (host string, loc binge.Location, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", binge.Location{}, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", binge.Location{}, fmt.Errorf("invalid URL: missing scheme or host")
	}

	loc, err = binge.ParsePath(u.RequestURI())
	if err != nil {
		return "", binge.Location{}, fmt.Errorf("URL path does not match /g/{guru}/...: %w", err)
	}
	if loc.IsGuruHome() {
		return "", binge.Location{}, fmt.Errorf("URL points at a guru page, not a question")
	}
	return u.Scheme + "://" + u.Host, loc, nil
}
