package project

import (
	"path"
	"sort"
	"strings"
)

type TreeNode struct {
	Name      string      `json:"name"`
	FullPath  string      `json:"fullPath"`
	Type      string      `json:"type"`
	Extension string      `json:"extension,omitempty"`
	Children  []*TreeNode `json:"children,omitempty"`
}

// BuildTree groups slash-separated paths into folders for display.
func BuildTree(paths []string) []*TreeNode {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	root := &TreeNode{Type: "folder"}
	folders := map[string]*TreeNode{"": root}

	for _, p := range sorted {
		parts := strings.Split(p, "/")
		parent := root
		for i, part := range parts {
			if part == "" {
				continue
			}
			full := strings.Join(parts[:i+1], "/")
			if i == len(parts)-1 {
				parent.Children = append(parent.Children, &TreeNode{
					Name:      part,
					FullPath:  full,
					Type:      "file",
					Extension: strings.TrimPrefix(path.Ext(part), "."),
				})
				continue
			}
			folder, ok := folders[full]
			if !ok {
				folder = &TreeNode{Name: part, FullPath: full, Type: "folder"}
				folders[full] = folder
				parent.Children = append(parent.Children, folder)
			}
			parent = folder
		}
	}
	return root.Children
}
