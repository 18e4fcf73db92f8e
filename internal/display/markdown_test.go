package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
		absent   string
	}{
		{"heading", "## Pods", "Pods", "##"},
		{"bullet", "- item", "• item", "- "},
		{"numbered", "2. second", "second", "2. "},
		{"inline code", "run `kubectl`", "kubectl", "`"},
		{"link", "[docs](https://k8s.io)", "(https://k8s.io)", "]("},
		{"bold", "**strong**", "strong", "**"},
		{"rule", "---", "────", "---"},
		{"plain", "just text", "just text", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st MarkdownState
			got := RenderLine(tt.input, &st)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("RenderLine(%q) = %q, want to contain %q", tt.input, got, tt.contains)
			}
			if tt.absent != "" && strings.Contains(got, tt.absent) {
				t.Errorf("RenderLine(%q) = %q, should not contain %q", tt.input, got, tt.absent)
			}
		})
	}
}

func TestRenderLine_CodeFence(t *testing.T) {
	var st MarkdownState
	open := RenderLine("```yaml", &st)
	if !strings.Contains(open, "yaml") {
		t.Errorf("fence open = %q, want language label", open)
	}
	inside := RenderLine("# not a heading", &st)
	if !strings.Contains(inside, "# not a heading") {
		t.Errorf("code line = %q, want raw text", inside)
	}
	RenderLine("```", &st)
	if st.inCode {
		t.Error("fence should be closed")
	}
}

func TestLinePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewLinePrinter(&buf, "  ")

	p.Write("A pod is ")
	if buf.Len() != 0 {
		t.Fatalf("partial line printed early: %q", buf.String())
	}
	p.Write("the smallest unit.\nSecond")
	p.Write(" line<br>third")
	p.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{"  A pod is the smallest unit.", "  Second line", "  third"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %q, want %d", len(lines), lines, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	p.Flush()
	if n := strings.Count(buf.String(), "\n"); n != 3 {
		t.Errorf("second flush printed output, newlines = %d", n)
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("# Pods\n\nA pod runs **containers**.", "notty", 60)
	if err != nil {
		t.Fatalf("RenderMarkdown() error: %v", err)
	}
	if !strings.Contains(out, "Pods") || !strings.Contains(out, "containers") {
		t.Errorf("RenderMarkdown() = %q, missing content", out)
	}
}

func TestRenderBlock(t *testing.T) {
	out := RenderBlock("line one\n- two")
	if !strings.Contains(out, "line one\n• two") {
		t.Errorf("RenderBlock() = %q", out)
	}
}
