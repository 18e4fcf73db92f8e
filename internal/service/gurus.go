package service

import (
	"sort"
	"strings"

	"gurubase-cli/internal/api"
)

// SortGurus orders gurus by display name, then slug. The input is not
// modified. This logic is shared between CLI and TUI.
func SortGurus(gurus []api.Guru) []api.Guru {
	out := append([]api.Guru(nil), gurus...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(GuruName(out[i])), strings.ToLower(GuruName(out[j]))
		if a != b {
			return a < b
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// GuruName is the name to show for a guru.
func GuruName(g api.Guru) string {
	if g.Name != "" {
		return g.Name
	}
	return g.Slug
}

// FindGuru matches a slug or a case-insensitive name.
func FindGuru(gurus []api.Guru, query string) (api.Guru, bool) {
	q := strings.TrimSpace(query)
	for _, g := range gurus {
		if g.Slug == q {
			return g, true
		}
	}
	for _, g := range gurus {
		if strings.EqualFold(g.Name, q) {
			return g, true
		}
	}
	return api.Guru{}, false
}
