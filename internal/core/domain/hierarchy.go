package domain

// RootNodeID is the parent sentinel for root-level hierarchy nodes.
const RootNodeID = -1

// HierarchyNode is a logical structural unit of a document (unit, chapter,
// lesson, or an untitled fallback for leading text without markers).
// Nodes live in an arena owned by HierarchyTree and reference each other by
// index, never by pointer, so chunk lifetimes stay decoupled from the tree.
type HierarchyNode struct {
	// ID is the node's index in the tree arena.
	ID int

	// Level is the ordinal depth, starting at 1 for root-level nodes.
	Level int

	// Title is the heading text. Empty for the fallback node.
	Title string

	// ParentID is the arena index of the parent, or RootNodeID.
	ParentID int

	// ChildIDs are the arena indexes of child nodes, in document order.
	ChildIDs []int

	// StartPage and EndPage bound the pages this node's text spans.
	StartPage int
	EndPage   int
}

// HierarchyTree is an arena of nodes for one document. Node 0, when present,
// is the first root-level node encountered.
type HierarchyTree struct {
	Nodes []HierarchyNode
}

// Roots returns the IDs of all root-level nodes in document order.
func (t *HierarchyTree) Roots() []int {
	var roots []int
	for _, n := range t.Nodes {
		if n.ParentID == RootNodeID {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// Path returns the ancestor titles from root to the given node, omitting
// empty (fallback) titles. This is the materialised path stored on chunks.
func (t *HierarchyTree) Path(nodeID int) []string {
	var rev []string
	for id := nodeID; id != RootNodeID; {
		n := t.Nodes[id]
		if n.Title != "" {
			rev = append(rev, n.Title)
		}
		id = n.ParentID
	}

	path := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return path
}

// TopLevelAncestor returns the root-level ancestor ID for a node.
// Chunks from different top-level ancestors must never merge.
func (t *HierarchyTree) TopLevelAncestor(nodeID int) int {
	id := nodeID
	for t.Nodes[id].ParentID != RootNodeID {
		id = t.Nodes[id].ParentID
	}
	return id
}
