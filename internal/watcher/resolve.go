// Package watcher implements the local change-stream collaborator
// (§6.2) and applies its events into the tree under the single-writer
// discipline of §5 (C4).
package watcher

import (
	"path/filepath"
	"strings"

	"github.com/briarlane/duscape/internal/node"
)

// Resolve walks the parent-path chain from root down to fullPath,
// component by component, and returns the node plus its parent. ok is
// false when the path isn't found (it may be hidden under a reparse
// boundary the scanner never descended into), matching §4.4's "if not
// found, ignore" rule.
func Resolve(root *node.Node, rootPath, fullPath string) (target, parent *node.Node, ok bool) {
	rel, err := filepath.Rel(rootPath, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, nil, false
	}
	if rel == "." {
		return root, nil, true
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	cur := root
	var prev *node.Node
	for _, part := range parts {
		next := findChildByName(cur, part)
		if next == nil {
			return nil, nil, false
		}
		prev = cur
		cur = next
	}
	return cur, prev, true
}

func findChildByName(n *node.Node, name string) *node.Node {
	for _, c := range n.Children() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
