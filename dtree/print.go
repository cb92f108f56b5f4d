package dtree

import (
	"fmt"
	"strings"

	"github.com/DanMcGann/gtsam/core"
)

// String renders the branch structure with one line per choice and per leaf:
//
//	Choice(m2)
//	  0: Choice(m1)
//	    0: Leaf 1
//	    1: Leaf 4
//	  1: Leaf 0
//
// kf defaults to core.DefaultKeyFormatter, leafFmt to fmt.Sprint. Multi-line
// leaf renderings are indented to their leaf's depth.
func (t *Tree[V]) String(kf core.KeyFormatter, leafFmt func(V) string) string {
	if kf == nil {
		kf = core.DefaultKeyFormatter
	}
	if leafFmt == nil {
		leafFmt = func(v V) string { return fmt.Sprint(v) }
	}

	return strings.Join(t.render(t.root, kf, leafFmt), "\n")
}

// render returns the unindented line block for the subtree at r.
func (t *Tree[V]) render(r ref, kf core.KeyFormatter, leafFmt func(V) string) []string {
	if r.isLeaf() {
		lines := strings.Split(leafFmt(t.leaves[r.leafIndex()]), "\n")
		lines[0] = "Leaf " + lines[0]
		for i := 1; i < len(lines); i++ {
			lines[i] = "     " + lines[i]
		}

		return lines
	}

	b := t.nodes[r]
	out := []string{fmt.Sprintf("Choice(%s)", kf(b.key))}
	for v, child := range b.children {
		sub := t.render(child, kf, leafFmt)
		out = append(out, fmt.Sprintf("  %d: %s", v, sub[0]))
		for _, line := range sub[1:] {
			out = append(out, "  "+line)
		}
	}

	return out
}
