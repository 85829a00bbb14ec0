package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/muallim-cli/internal/config"
	"github.com/custodia-labs/muallim-cli/internal/core/domain"
)

// markerClass ranks structural heading classes. Numbered headings have no
// fixed rank; they attach one level below the innermost open marker.
type markerClass int

const (
	classNumbered markerClass = 0
	classUnit     markerClass = 1
	classChapter  markerClass = 2
	classLesson   markerClass = 3

	// maxMarkerDepth caps how deep numbered headings can nest.
	maxMarkerDepth = 3

	// classFallback marks the untitled node for leading unmatched text.
	// Any real marker closes it.
	classFallback markerClass = 100
)

// markerSet holds the compiled heading patterns for one language.
type markerSet struct {
	rules []compiledRule
}

type compiledRule struct {
	class markerClass
	re    *regexp.Regexp
}

func compileMarkers(rules []config.MarkerRule) (*markerSet, error) {
	set := &markerSet{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		var class markerClass
		switch r.Class {
		case "unit":
			class = classUnit
		case "chapter":
			class = classChapter
		case "lesson":
			class = classLesson
		case "numbered":
			class = classNumbered
		default:
			return nil, fmt.Errorf("unknown marker class %q", r.Class)
		}

		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling marker pattern %q: %w", r.Pattern, err)
		}
		set.rules = append(set.rules, compiledRule{class: class, re: re})
	}
	return set, nil
}

// match reports whether the line is a structural heading. First rule wins.
func (s *markerSet) match(line string) (markerClass, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return 0, false
	}
	for _, r := range s.rules {
		if r.re.MatchString(trimmed) {
			return r.class, true
		}
	}
	return 0, false
}

// openNode is a stack entry during tree construction.
type openNode struct {
	id    int
	class markerClass
}

// treeBuilder assembles the hierarchy arena from a marker-classified line
// stream. Encountering a marker closes every open node of an equal or deeper
// class before opening the new one.
type treeBuilder struct {
	tree  *domain.HierarchyTree
	stack []openNode

	// spans accumulates each node's direct text lines, keyed by node ID.
	spans map[int][]line
}

func newTreeBuilder() *treeBuilder {
	return &treeBuilder{
		tree:  &domain.HierarchyTree{},
		spans: map[int][]line{},
	}
}

// openMarker starts a new hierarchy node for a heading line.
func (b *treeBuilder) openMarker(class markerClass, title string, page int) {
	if class == classNumbered {
		// Numbered headings nest under whatever is open.
		if len(b.stack) == 0 || b.stack[len(b.stack)-1].class == classFallback {
			class = classUnit
		} else {
			class = b.stack[len(b.stack)-1].class + 1
			if class > maxMarkerDepth {
				class = maxMarkerDepth
			}
		}
	}

	for len(b.stack) > 0 && b.stack[len(b.stack)-1].class >= class {
		b.stack = b.stack[:len(b.stack)-1]
	}

	parentID := domain.RootNodeID
	if len(b.stack) > 0 {
		parentID = b.stack[len(b.stack)-1].id
	}

	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, domain.HierarchyNode{
		ID:        id,
		Level:     len(b.stack) + 1,
		Title:     strings.TrimSpace(title),
		ParentID:  parentID,
		StartPage: page,
		EndPage:   page,
	})
	if parentID != domain.RootNodeID {
		parent := &b.tree.Nodes[parentID]
		parent.ChildIDs = append(parent.ChildIDs, id)
	}
	b.stack = append(b.stack, openNode{id: id, class: class})
}

// addLine assigns a text line to the innermost open node. Text arriving
// before any marker opens an untitled fallback node so nothing is discarded.
func (b *treeBuilder) addLine(l line) {
	if len(b.stack) == 0 {
		id := len(b.tree.Nodes)
		b.tree.Nodes = append(b.tree.Nodes, domain.HierarchyNode{
			ID:        id,
			Level:     1,
			ParentID:  domain.RootNodeID,
			StartPage: l.page,
			EndPage:   l.page,
		})
		b.stack = append(b.stack, openNode{id: id, class: classFallback})
	}

	id := b.stack[len(b.stack)-1].id
	b.spans[id] = append(b.spans[id], l)

	// Extend the page range of the node and every open ancestor.
	for _, open := range b.stack {
		if l.page > b.tree.Nodes[open.id].EndPage {
			b.tree.Nodes[open.id].EndPage = l.page
		}
	}
}

// build runs the classified line stream through the builder.
func (b *treeBuilder) build(lines []line, markers *markerSet) {
	for _, l := range lines {
		if class, ok := markers.match(l.text); ok {
			b.openMarker(class, l.text, l.page)
			continue
		}
		b.addLine(l)
	}
}
