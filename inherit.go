package wlf

import (
	"sort"
	"strings"
)

// block is a {[block name]} ... {[endblock]} region. Offsets index the
// document the block was parsed from.
type block struct {
	name               string
	start, end         int
	bodyStart, bodyEnd int
	children           []*block
}

func (b *block) body(src string) string {
	return strings.TrimSpace(src[b.bodyStart:b.bodyEnd])
}

// parseBlocks builds the block tree of a document, pairing markers by nesting
// depth. Unpaired markers are not blocks and stay as text.
func parseBlocks(src, marker string) []*block {
	type tag struct {
		m    match
		open bool
	}
	var tags []tag
	for _, m := range directives.Get(dBlock).find(src, marker) {
		tags = append(tags, tag{m: m, open: true})
	}
	for _, m := range directives.Get(dEndBlock).find(src, marker) {
		tags = append(tags, tag{m: m})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].m.start < tags[j].m.start })

	var (
		roots []*block
		stack []*block
	)
	for _, t := range tags {
		if t.open {
			stack = append(stack, &block{name: t.m.group(0), start: t.m.start, bodyStart: t.m.end})
			continue
		}
		if len(stack) == 0 {
			continue
		}
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		b.bodyEnd, b.end = t.m.start, t.m.end
		if len(stack) == 0 {
			roots = append(roots, b)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, b)
		}
	}
	// blocks left open lose their marker pairing but keep their closed children
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			roots = append(roots, b.children...)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, b.children...)
		}
	}
	sortBlocks(roots)
	return roots
}

func sortBlocks(bs []*block) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].start < bs[j].start })
	for _, b := range bs {
		sortBlocks(b.children)
	}
}

// findBlock returns the first block with the name, depth first in document order.
func findBlock(bs []*block, name string) *block {
	for _, b := range bs {
		if b.name == name {
			return b
		}
		if found := findBlock(b.children, name); found != nil {
			return found
		}
	}
	return nil
}

// inherit merges a child document into its parent document.
//
// Parent placeholders of the child are resolved against the parent first, so
// blocks they expose are seen as overrides. Each top-level child block then
// replaces the body of the parent block of the same name. The markers stay so
// a deeper descendant can override the block again. Blocks the parent does not
// define are dropped, as is everything of the child outside blocks. When the
// child repeats a block name, the first occurrence wins.
func inherit(child, parent, marker string) string {
	child, _ = directives.Get(dParent).replace(child, marker, func(m match) (string, error) {
		if b := findBlock(parseBlocks(parent, marker), m.group(0)); b != nil {
			return b.body(parent), nil
		}
		return "", nil
	})

	applied := make(map[string]bool)
	for _, cb := range parseBlocks(child, marker) {
		if applied[cb.name] {
			continue
		}
		applied[cb.name] = true
		pb := findBlock(parseBlocks(parent, marker), cb.name)
		if pb == nil {
			continue
		}
		parent = parent[:pb.bodyStart] + cb.body(child) + parent[pb.bodyEnd:]
	}
	return parent
}

// cleanBlocks removes the markers of every remaining block, keeping bodies,
// and drops unresolved parent placeholders.
func cleanBlocks(src, marker string) string {
	var cuts [][2]int
	var collect func(bs []*block)
	collect = func(bs []*block) {
		for _, b := range bs {
			cuts = append(cuts, [2]int{b.start, b.bodyStart}, [2]int{b.bodyEnd, b.end})
			collect(b.children)
		}
	}
	collect(parseBlocks(src, marker))
	for _, m := range directives.Get(dParent).find(src, marker) {
		cuts = append(cuts, [2]int{m.start, m.end})
	}
	if len(cuts) == 0 {
		return src
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i][0] < cuts[j][0] })

	var b strings.Builder
	last := 0
	for _, c := range cuts {
		if c[0] < last {
			continue
		}
		b.WriteString(src[last:c[0]])
		last = c[1]
	}
	b.WriteString(src[last:])
	return b.String()
}
