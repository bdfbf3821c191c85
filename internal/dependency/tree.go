package dependency

import (
	"github.com/beevik/etree"
	"github.com/rflorenc/deploy-ledger/internal/contract"
)

// Element tags for the tree encoding.
const (
	TreeTag = "PSXDependencyTree"
	EdgeTag = "PSXDependencyEdge"
)

type node struct {
	dep      *Dependency
	children []Key
	parents  []Key
}

// Tree is an arena of dependencies addressed by Key. A dependency appears
// once no matter how many parents reference it, and edges are stored as key
// lists so that no node points at another.
//
// A Tree is not safe for concurrent mutation.
type Tree struct {
	nodes map[Key]*node
	order []Key
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[Key]*node)}
}

// Len returns the number of distinct dependencies.
func (t *Tree) Len() int { return len(t.order) }

// Get returns the dependency stored under k, or nil.
func (t *Tree) Get(k Key) *Dependency {
	if n, ok := t.nodes[k]; ok {
		return n.dep
	}
	return nil
}

// AddRoot adds dep as a top-level node. Adding an identical dependency twice
// is a no-op; a different dependency under an existing key is rejected.
func (t *Tree) AddRoot(dep *Dependency) error {
	_, err := t.intern(dep)
	return err
}

// AddChild records dep as a child of parent, adding dep to the arena if
// needed. Edges that would create a cycle are rejected.
func (t *Tree) AddChild(parent Key, dep *Dependency) error {
	p, ok := t.nodes[parent]
	if !ok {
		return contract.Invalid("parent", "is not in the tree: "+parent.String())
	}
	if dep == nil {
		return contract.Required("dependency")
	}
	child := dep.Key()
	if child == parent || t.reaches(child, parent) {
		return contract.Invalid("dependency", "would create a cycle: "+child.String()+" -> "+parent.String())
	}
	c, err := t.intern(dep)
	if err != nil {
		return err
	}
	for _, k := range p.children {
		if k == child {
			return nil
		}
	}
	p.children = append(p.children, child)
	c.parents = append(c.parents, parent)
	return nil
}

func (t *Tree) intern(dep *Dependency) (*node, error) {
	if dep == nil {
		return nil, contract.Required("dependency")
	}
	k := dep.Key()
	if n, ok := t.nodes[k]; ok {
		if !n.dep.Equal(dep) {
			return nil, contract.Invalid("dependency", "conflicts with existing node "+k.String())
		}
		return n, nil
	}
	n := &node{dep: dep}
	t.nodes[k] = n
	t.order = append(t.order, k)
	return n, nil
}

// reaches reports whether to is reachable from from by following child edges.
func (t *Tree) reaches(from, to Key) bool {
	seen := make(map[Key]bool)
	stack := []Key{from}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if k == to {
			return true
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		if n, ok := t.nodes[k]; ok {
			stack = append(stack, n.children...)
		}
	}
	return false
}

// Roots returns the dependencies that have no parent, in insertion order.
func (t *Tree) Roots() []*Dependency {
	var out []*Dependency
	for _, k := range t.order {
		if n := t.nodes[k]; len(n.parents) == 0 {
			out = append(out, n.dep)
		}
	}
	return out
}

// Children returns the direct children of k in the order they were added.
func (t *Tree) Children(k Key) []*Dependency {
	return t.resolve(k, func(n *node) []Key { return n.children })
}

// Parents returns every node that lists k as a child.
func (t *Tree) Parents(k Key) []*Dependency {
	return t.resolve(k, func(n *node) []Key { return n.parents })
}

func (t *Tree) resolve(k Key, edges func(*node) []Key) []*Dependency {
	n, ok := t.nodes[k]
	if !ok {
		return nil
	}
	keys := edges(n)
	out := make([]*Dependency, 0, len(keys))
	for _, ck := range keys {
		out = append(out, t.nodes[ck].dep)
	}
	return out
}

// Walk visits every node once in pre-order starting from the roots. depth is
// zero for roots. Returning false from fn skips the node's descendants.
func (t *Tree) Walk(fn func(dep *Dependency, depth int) bool) {
	seen := make(map[Key]bool)
	var visit func(k Key, depth int)
	visit = func(k Key, depth int) {
		if seen[k] {
			return
		}
		seen[k] = true
		n := t.nodes[k]
		if !fn(n.dep, depth) {
			return
		}
		for _, ck := range n.children {
			visit(ck, depth+1)
		}
	}
	for _, root := range t.Roots() {
		visit(root.Key(), 0)
	}
}

// Equal compares nodes in insertion order and every edge list.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.order) != len(o.order) {
		return false
	}
	for i, k := range t.order {
		if o.order[i] != k {
			return false
		}
		a, b := t.nodes[k], o.nodes[k]
		if !a.dep.Equal(b.dep) || !sameKeys(a.children, b.children) {
			return false
		}
	}
	return true
}

func sameKeys(a, b []Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ToXML writes the nodes in insertion order followed by one edge element per
// parent/child pair.
func (t *Tree) ToXML() *etree.Element {
	el := etree.NewElement(TreeTag)
	for _, k := range t.order {
		el.AddChild(t.nodes[k].dep.ToXML())
	}
	for _, k := range t.order {
		for _, ck := range t.nodes[k].children {
			edge := el.CreateElement(EdgeTag)
			edge.CreateAttr("parentType", k.ObjectType)
			edge.CreateAttr("parentId", k.DependencyID)
			edge.CreateAttr("childType", ck.ObjectType)
			edge.CreateAttr("childId", ck.DependencyID)
		}
	}
	return el
}

// DecodeTree reads a PSXDependencyTree element.
func DecodeTree(el *etree.Element) (*Tree, error) {
	if err := contract.CheckTag(el, TreeTag); err != nil {
		return nil, err
	}
	children := contract.ChildrenOf(el)
	deps, err := contract.DecodeAll(children.While(DependencyTag), Decode)
	if err != nil {
		return nil, err
	}
	t := NewTree()
	for _, d := range deps {
		if _, err := t.intern(d); err != nil {
			return nil, &contract.InvalidAttributeError{Name: "dependencyId", Value: d.ID()}
		}
	}
	for _, edgeEl := range children.Rest() {
		if err := contract.CheckTag(edgeEl, EdgeTag); err != nil {
			return nil, err
		}
		var parent, child Key
		for _, f := range []struct {
			name string
			dst  *string
		}{
			{"parentType", &parent.ObjectType},
			{"parentId", &parent.DependencyID},
			{"childType", &child.ObjectType},
			{"childId", &child.DependencyID},
		} {
			if *f.dst, err = contract.Attr(edgeEl, f.name); err != nil {
				return nil, err
			}
		}
		if _, ok := t.nodes[parent]; !ok {
			return nil, &contract.InvalidAttributeError{Name: "parentId", Value: parent.DependencyID}
		}
		dep := t.Get(child)
		if dep == nil {
			return nil, &contract.InvalidAttributeError{Name: "childId", Value: child.DependencyID}
		}
		if err := t.AddChild(parent, dep); err != nil {
			return nil, &contract.InvalidAttributeError{Name: "childId", Value: child.DependencyID}
		}
	}
	return t, nil
}
