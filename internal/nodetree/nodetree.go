package nodetree

// RootName is the label of the synthetic node every call path starts from.
const RootName = "root"

type (
	// Node is one frame position in an aggregated call tree. Children are
	// keyed by frame name and kept in first-insertion order.
	Node struct {
		Name      string
		Value     int64
		Diff      int64
		Timeshare int64
		Children  []*Node

		index map[string]int
	}
)

func NewNode(name string) *Node {
	return &Node{Name: name}
}

func NewRoot() *Node {
	return NewNode(RootName)
}

// Insert adds one call path below n. Every node on the way, n included,
// gets value added to its Value and its Diff overwritten with diff. In
// delta mode the timeshare grows by value*diff instead of value.
func (n *Node) Insert(path []string, value, diff int64, delta bool) {
	node := n
	for i := 0; ; i++ {
		node.Value += value
		node.Diff = diff
		if delta {
			node.Timeshare += value * diff
		} else {
			node.Timeshare += value
		}
		if i == len(path) {
			return
		}
		node = node.childOrCreate(path[i])
	}
}

// Child returns the direct child called name, or nil.
func (n *Node) Child(name string) *Node {
	if n.index == nil {
		return nil
	}
	i, exists := n.index[name]
	if !exists {
		return nil
	}
	return n.Children[i]
}

// Find follows path from n and returns the node it ends at, or nil.
func (n *Node) Find(path ...string) *Node {
	node := n
	for _, name := range path {
		node = node.Child(name)
		if node == nil {
			return nil
		}
	}
	return node
}

func (n *Node) childOrCreate(name string) *Node {
	if c := n.Child(name); c != nil {
		return c
	}
	if n.index == nil {
		n.index = make(map[string]int)
	}
	c := NewNode(name)
	n.index[name] = len(n.Children)
	n.Children = append(n.Children, c)
	return c
}

