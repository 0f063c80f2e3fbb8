// Package transfer implements the piecewise-linear scalar transfer
// functions used to classify voxel values (density to opacity, density to
// colour channel) while sampling a volume.
//
// A Function goes through a fixed editing sequence before it may be
// evaluated:
//
//	f.AddNode(...)   // any number of times, any order
//	f.SortNodes()
//	f.CleanUp()
//	f.Evaluate(x)    // read-only, safe from many goroutines
//
// Evaluating a function whose nodes were added after the last SortNodes
// gives unspecified results. Nothing here returns an error: a full function
// drops further nodes and evaluation always yields a number.
package transfer

import (
	"cmp"
	"slices"
)

// MaxNodes is the capacity of a Function. One slot is kept free, so at
// most MaxNodes-1 nodes can be added. Raising it grows every Function and
// the cost of editing, and allows finer transfer functions.
const MaxNodes = 64

// Node is one control point of a transfer function
type Node struct {
	Position float32
	Value    float32
}

// Function is a bounded, ordered list of control nodes defining a
// piecewise-linear function with constant extrapolation at both ends.
// The zero value is an empty function that evaluates to 0.
//
// Function is a plain value: assigning it copies all nodes.
type Function struct {
	count     int
	position  [MaxNodes]float32
	value     [MaxNodes]float32
	nodeRange [2]float32
	sorted    bool
}

// AddNode appends a node. The node list is not reordered. Once the
// function holds MaxNodes-1 nodes further calls are silently ignored;
// callers that care must check Count.
func (f *Function) AddNode(position, value float32) {
	if f.count+1 >= MaxNodes {
		return
	}

	if f.count == 0 {
		f.nodeRange = [2]float32{position, position}
	} else {
		if position < f.nodeRange[0] {
			f.nodeRange[0] = position
		}
		if position > f.nodeRange[1] {
			f.nodeRange[1] = position
		}
	}

	f.position[f.count] = position
	f.value[f.count] = value
	f.count++
	f.sorted = false
}

// SortNodes orders the nodes by position. Nodes with equal positions keep
// their insertion order, so sorting twice is the same as sorting once.
func (f *Function) SortNodes() {
	nodes := f.Nodes()
	slices.SortStableFunc(nodes, func(a, b Node) int {
		return cmp.Compare(a.Position, b.Position)
	})
	f.setNodes(nodes)
	f.sorted = true
}

// CleanUp removes interior nodes whose value equals both neighbours'.
// Such nodes sit inside a flat run and do not change the interpolated
// curve. It expects sorted nodes and does nothing for two or fewer.
//
// Nodes sharing a position with different values are kept; Evaluate never
// divides by the zero-width interval between them.
func (f *Function) CleanUp() {
	if f.count <= 2 {
		return
	}

	kept := make([]Node, 0, f.count)
	for i := 0; i < f.count; i++ {
		if i > 0 && i < f.count-1 &&
			f.value[i-1] == f.value[i] && f.value[i] == f.value[i+1] {
			continue
		}
		kept = append(kept, Node{f.position[i], f.value[i]})
	}
	f.setNodes(kept)
}

// Canonicalize sorts the nodes and removes redundant ones
func (f *Function) Canonicalize() {
	f.SortNodes()
	f.CleanUp()
}

// Evaluate returns the function value at position.
//
//   - no nodes: 0
//   - below the node range: the first value
//   - above the node range: the last value
//   - otherwise: linear interpolation inside the first half-open interval
//     [Position[i-1], Position[i]) holding position, or the last value when
//     position sits exactly on the last node
//
// Zero-width intervals never match, so coincident nodes act as a step to
// the later node's value. If nothing matches, which only happens with
// unsorted or NaN data, the result is 0.
func (f *Function) Evaluate(position float32) float32 {
	if f.count <= 0 {
		return 0
	}

	if position < f.nodeRange[0] {
		return f.value[0]
	}
	if position > f.nodeRange[1] {
		return f.value[f.count-1]
	}
	if f.count == 1 {
		return f.value[0]
	}

	for i := 1; i < f.count; i++ {
		p1, p2 := f.position[i-1], f.position[i]
		if position >= p1 && position < p2 {
			t := (position - p1) / (p2 - p1)
			return f.value[i-1] + t*(f.value[i]-f.value[i-1])
		}
	}

	if position == f.position[f.count-1] {
		return f.value[f.count-1]
	}
	return 0
}

// Count returns the number of active nodes
func (f *Function) Count() int { return f.count }

// NodeRange returns the smallest and largest position ever added since the
// last Reset. It is tracked on insertion and not recomputed by CleanUp.
func (f *Function) NodeRange() [2]float32 { return f.nodeRange }

// Canonical reports whether SortNodes has run since the last AddNode
func (f *Function) Canonical() bool { return f.sorted || f.count == 0 }

// Node returns node i. It panics if i is out of range.
func (f *Function) Node(i int) Node {
	if i < 0 || i >= f.count {
		panic("transfer: node index out of range")
	}
	return Node{f.position[i], f.value[i]}
}

// Nodes returns a copy of the active nodes in their current order
func (f *Function) Nodes() []Node {
	nodes := make([]Node, f.count)
	for i := range nodes {
		nodes[i] = Node{f.position[i], f.value[i]}
	}
	return nodes
}

// Reset removes all nodes
func (f *Function) Reset() {
	*f = Function{}
}

func (f *Function) setNodes(nodes []Node) {
	for i, n := range nodes {
		f.position[i] = n.Position
		f.value[i] = n.Value
	}
	f.count = len(nodes)
}
