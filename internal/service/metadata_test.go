package service

import (
	"testing"

	"gurubase-cli/internal/api"
)

func TestFormatTrustScore(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "Trust score: n/a"},
		{-5, "Trust score: n/a"},
		{45, "Trust score: 45% (low)"},
		{60, "Trust score: 60% (medium)"},
		{87, "Trust score: 87% (high)"},
		{140, "Trust score: 100% (high)"},
	}

	for _, tt := range tests {
		got := FormatTrustScore(tt.score)
		if got != tt.want {
			t.Errorf("FormatTrustScore(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestFormatReferences(t *testing.T) {
	refs := []api.Reference{
		{Question: "Pods <b>overview</b>", Link: "https://kubernetes.io/docs/pods"},
		{Question: "", Link: "https://www.example.com/a"},
		{Question: "dup", Link: "https://kubernetes.io/docs/pods"},
		{Question: "no link", Link: "  "},
	}

	got := FormatReferences(refs)
	if len(got) != 2 {
		t.Fatalf("got %d references, want 2: %+v", len(got), got)
	}
	if got[0].Title != "Pods overview" || got[0].Host != "kubernetes.io" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Title != "example.com" {
		t.Errorf("got[1].Title = %q, want host fallback", got[1].Title)
	}

	if empty := FormatReferences(nil); empty == nil || len(empty) != 0 {
		t.Errorf("FormatReferences(nil) = %#v, want empty slice", empty)
	}
}
