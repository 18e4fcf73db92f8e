package service

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"gurubase-cli/internal/binge"
)

// RenderTree draws a binge map as an indented ASCII tree. The node whose
// slug equals current is marked.
func RenderTree(root *binge.TreeNode, current string) string {
	if root == nil {
		return "(empty binge)\n"
	}
	var b strings.Builder
	b.WriteString(treeLabel(root, current))
	b.WriteString("\n")
	renderChildren(&b, root.Children, "", current)
	return b.String()
}

func renderChildren(b *strings.Builder, children []*binge.TreeNode, prefix, current string) {
	for i, c := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		b.WriteString(prefix + branch + treeLabel(c, current) + "\n")
		renderChildren(b, c.Children, prefix+next, current)
	}
}

func treeLabel(n *binge.TreeNode, current string) string {
	text := n.Text
	if text == "" {
		text = n.Slug
	}
	label := fmt.Sprintf("%s  (%s)", text, n.Slug)
	if current != "" && n.Slug == current {
		label += "  <- current"
	}
	return label
}

type treeExport struct {
	BingeID  string          `yaml:"binge_id"`
	Outdated bool            `yaml:"outdated"`
	Count    int             `yaml:"questions"`
	Root     *binge.TreeNode `yaml:"root"`
}

// TreeYAML exports a binge map.
func TreeYAML(root *binge.TreeNode, bingeID string, outdated bool) ([]byte, error) {
	out, err := yaml.Marshal(treeExport{
		BingeID:  bingeID,
		Outdated: outdated,
		Count:    root.Count(),
		Root:     root,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding binge map: %w", err)
	}
	return out, nil
}
