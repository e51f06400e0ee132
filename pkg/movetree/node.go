// Package movetree holds the variation tree of a game: moves as nodes with
// parent/child links, the main line being the chain of first children from
// the first root.
package movetree

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/gmkornilov/chess-puzzle-book-backend/pkg/rules"
)

type Node struct {
	ID            string     `json:"id" bson:"id"`
	Move          rules.Move `json:"move" bson:"move"`
	PositionAfter string     `json:"position_after" bson:"position_after"`
	ParentID      string     `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	Children      []string   `json:"children" bson:"children"`
	Depth         int        `json:"depth" bson:"depth"`
	IsMainLine    bool       `json:"is_main_line" bson:"is_main_line"`
	IsRequired    bool       `json:"is_required" bson:"is_required"`
	Annotation    string     `json:"annotation,omitempty" bson:"annotation,omitempty"`
	MoveNumber    int        `json:"move_number" bson:"move_number"`
	Color         string     `json:"color" bson:"color"`
}

// Tree owns its nodes in creation order. Roots lists the moves played from
// the starting position; Roots[0] starts the main line.
type Tree struct {
	Start   string   `json:"start" bson:"start"`
	Nodes   []*Node  `json:"nodes" bson:"nodes"`
	Roots   []string `json:"roots" bson:"roots"`
	Comment string   `json:"comment,omitempty" bson:"comment,omitempty"`

	index map[string]*Node
}

func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Node looks a node up by id. The index is rebuilt after decoding.
func (t *Tree) Node(id string) (*Node, bool) {
	if t.index == nil || len(t.index) != len(t.Nodes) {
		t.reindex()
	}
	n, ok := t.index[id]
	return n, ok
}

func (t *Tree) reindex() {
	t.index = make(map[string]*Node, len(t.Nodes))
	for _, n := range t.Nodes {
		t.index[n.ID] = n
	}
}

// MainLine follows first children from the first root.
func (t *Tree) MainLine() []*Node {
	var line []*Node
	if len(t.Roots) == 0 {
		return line
	}
	cur, ok := t.Node(t.Roots[0])
	for ok {
		line = append(line, cur)
		if len(cur.Children) == 0 {
			break
		}
		cur, ok = t.Node(cur.Children[0])
	}
	return line
}

// PathTo returns the nodes from a root down to id, inclusive.
func (t *Tree) PathTo(id string) []*Node {
	var path []*Node
	cur, ok := t.Node(id)
	for ok {
		path = append(path, cur)
		if cur.ParentID == "" {
			break
		}
		cur, ok = t.Node(cur.ParentID)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (t *Tree) MaxDepth() int {
	deepest := 0
	for _, n := range t.Nodes {
		if n.Depth > deepest {
			deepest = n.Depth
		}
	}
	return deepest
}

// Clone copies the tree and all its nodes.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		Start:   t.Start,
		Nodes:   make([]*Node, len(t.Nodes)),
		Roots:   append([]string(nil), t.Roots...),
		Comment: t.Comment,
	}
	for i, n := range t.Nodes {
		cp := *n
		cp.Children = append([]string{}, n.Children...)
		c.Nodes[i] = &cp
	}
	c.reindex()
	return c
}

// Siblings returns the ids sharing n's parent, n included, in order.
func (t *Tree) Siblings(n *Node) []string {
	if n.ParentID == "" {
		return t.Roots
	}
	if parent, ok := t.Node(n.ParentID); ok {
		return parent.Children
	}
	return nil
}

// IDSource hands out node ids that are never reused.
type IDSource interface {
	NextID() string
}

// Sequence is a monotonic IDSource producing n1, n2, ...
type Sequence struct {
	prefix string
	last   atomic.Uint64
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NextID() string {
	return s.prefix + strconv.FormatUint(s.last.Add(1), 10)
}

var processIDs = NewSequence("n")

// DefaultIDs is shared by every build in the process, so ids stay unique
// across trees.
func DefaultIDs() IDSource {
	return processIDs
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.ID, n.Move.Notation)
}
