/*
 * Strata - Persistent Collections over Key-Value Storage
 *
 * Copyright Strata Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package strata

import "golang.org/x/exp/constraints"

// treeNode is one red-black tree node, persisted in its own storage slot.
// Child and parent references are node identifiers resolved through the
// tree's cache, not memory addresses: nodes are values in an arena keyed by
// id, and multi-node surgery loads each node once and mutates the shared
// in-memory copy.
type treeNode[K constraints.Ordered] struct {
	ID           uint64
	Parent       uint64 // 0 = none
	Left         uint64
	Right        uint64
	Red          bool
	IsRightChild bool
	Value        K
}

type treeMetadata struct {
	Root   uint64
	Length uint64
	NextID uint64
}

// Tree is a storage-backed red-black tree holding distinct ordered values,
// one storage slot per node. It maintains the standard invariants after
// every public operation:
//
//   - the root is black
//   - no red node has a red child
//   - every path from a node to a descendant nil reference passes the same
//     number of black nodes
//   - in-order traversal yields strictly ascending values
//
// Node identifiers are minted from a counter that only grows, so an id is
// never reused while stale references to it could still exist.
type Tree[K constraints.Ordered] struct {
	ledger     Ledger
	prefix     []byte
	nodePrefix []byte
	root       uint64
	length     uint64
	nextID     uint64
	metaDirty  bool
	nodes      *lazyCache[treeNode[K]]
}

// NewTree attaches to the tree stored under prefix, creating an empty one if
// no metadata record exists.
func NewTree[K constraints.Ordered](ledger Ledger, prefix []byte) (*Tree[K], error) {
	t := &Tree[K]{
		ledger:     ledger,
		prefix:     prefix,
		nodePrefix: derivePrefix(prefix, subPrefixEntries),
		nodes:      newLazyCache[treeNode[K]](ledger),
	}

	data, err := ledger.GetValue(metadataKey(prefix))
	if err != nil {
		return nil, wrapStorageError(err)
	}
	if data != nil {
		meta, err := decodeElement[treeMetadata](data)
		if err != nil {
			// err is already categorized by decodeElement.
			return nil, err
		}
		t.root = meta.Root
		t.length = meta.Length
		t.nextID = meta.NextID
	}
	return t, nil
}

// Len returns the number of values in the tree.
func (t *Tree[K]) Len() uint64 {
	return t.length
}

// IsEmpty returns true if the tree contains no values.
func (t *Tree[K]) IsEmpty() bool {
	return t.length == 0
}

func (t *Tree[K]) nodeKey(id uint64) []byte {
	return deriveIDKey(t.nodePrefix, id)
}

// node loads the node with the given id. A zero id yields nil; a nonzero id
// that fails to load is a dangling reference and fatal.
func (t *Tree[K]) node(id uint64) (*treeNode[K], error) {
	if id == 0 {
		return nil, nil
	}
	n, err := t.nodes.load(t.nodeKey(id))
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, NewNodeNotFoundError(id)
	}
	return n, nil
}

// save marks a loaded node as diverged from storage.
func (t *Tree[K]) save(n *treeNode[K]) {
	t.nodes.markModified(t.nodeKey(n.ID))
}

func (t *Tree[K]) setRoot(id uint64) {
	t.root = id
	t.metaDirty = true
}

func (t *Tree[K]) mintID() uint64 {
	t.nextID++
	t.metaDirty = true
	return t.nextID
}

// find returns the node holding value, or nil.
func (t *Tree[K]) find(value K) (*treeNode[K], error) {
	id := t.root
	for id != 0 {
		n, err := t.node(id)
		if err != nil {
			return nil, err
		}
		switch {
		case value < n.Value:
			id = n.Left
		case value > n.Value:
			id = n.Right
		default:
			return n, nil
		}
	}
	return nil, nil
}

// Has returns true if value is present.
func (t *Tree[K]) Has(value K) (bool, error) {
	n, err := t.find(value)
	return n != nil, err
}

// Get returns the stored value equal to value, or found=false.
func (t *Tree[K]) Get(value K) (K, bool, error) {
	var zero K
	n, err := t.find(value)
	if err != nil {
		return zero, false, err
	}
	if n == nil {
		return zero, false, nil
	}
	return n.Value, true, nil
}

// Add inserts value and returns true if it was newly inserted. Duplicates
// are rejected, not updated; a rejected duplicate is a normal outcome.
func (t *Tree[K]) Add(value K) (bool, error) {
	// Search phase: walk to the leaf position or an equal node.
	var parent *treeNode[K]
	isRight := false
	id := t.root
	for id != 0 {
		n, err := t.node(id)
		if err != nil {
			return false, err
		}
		switch {
		case value < n.Value:
			parent = n
			isRight = false
			id = n.Left
		case value > n.Value:
			parent = n
			isRight = true
			id = n.Right
		default:
			return false, nil
		}
	}

	// Attach phase: link a new red leaf under the found parent.
	newID := t.mintID()
	n := treeNode[K]{ID: newID, Red: true, Value: value}
	if parent != nil {
		n.Parent = parent.ID
		n.IsRightChild = isRight
	}
	t.nodes.set(t.nodeKey(newID), n)
	ptr, err := t.node(newID)
	if err != nil {
		return false, err
	}

	if parent == nil {
		ptr.Red = false
		t.save(ptr)
		t.setRoot(newID)
	} else {
		if isRight {
			parent.Right = newID
		} else {
			parent.Left = newID
		}
		t.save(parent)
		if err := t.fixupInsert(ptr); err != nil {
			return false, err
		}
	}

	t.length++
	t.metaDirty = true
	return true, nil
}

// fixupInsert restores the red-black invariants after attaching a red leaf,
// walking upward: a red uncle propagates a recoloring to the grandparent; a
// black uncle resolves with one or two rotations.
func (t *Tree[K]) fixupInsert(n *treeNode[K]) error {
	for {
		if n.Parent == 0 {
			if n.Red {
				n.Red = false
				t.save(n)
			}
			return nil
		}
		p, err := t.node(n.Parent)
		if err != nil {
			return err
		}
		if !p.Red {
			return nil
		}
		// A red parent is never the root, so the grandparent exists.
		g, err := t.node(p.Parent)
		if err != nil {
			return err
		}

		var uncleID uint64
		if p.IsRightChild {
			uncleID = g.Left
		} else {
			uncleID = g.Right
		}
		u, err := t.node(uncleID)
		if err != nil {
			return err
		}

		if u != nil && u.Red {
			p.Red = false
			u.Red = false
			g.Red = true
			t.save(p)
			t.save(u)
			t.save(g)
			n = g
			continue
		}

		if !p.IsRightChild {
			if n.IsRightChild {
				if err := t.rotateLeft(p); err != nil {
					return err
				}
				n, p = p, n
			}
			p.Red = false
			g.Red = true
			t.save(p)
			t.save(g)
			return t.rotateRight(g)
		}

		if !n.IsRightChild {
			if err := t.rotateRight(p); err != nil {
				return err
			}
			n, p = p, n
		}
		p.Red = false
		g.Red = true
		t.save(p)
		t.save(g)
		return t.rotateLeft(g)
	}
}

// rotateLeft promotes x's right child into x's position. Only the nodes on
// the rotation path are touched; each is persisted on the next flush.
func (t *Tree[K]) rotateLeft(x *treeNode[K]) error {
	y, err := t.node(x.Right)
	if err != nil {
		return err
	}
	if y == nil {
		return NewInconsistentStateErrorf("left rotation of node %d with no right child", x.ID)
	}

	x.Right = y.Left
	if y.Left != 0 {
		inner, err := t.node(y.Left)
		if err != nil {
			return err
		}
		inner.Parent = x.ID
		inner.IsRightChild = true
		t.save(inner)
	}

	y.Parent = x.Parent
	y.IsRightChild = x.IsRightChild
	if x.Parent == 0 {
		t.setRoot(y.ID)
	} else {
		p, err := t.node(x.Parent)
		if err != nil {
			return err
		}
		if x.IsRightChild {
			p.Right = y.ID
		} else {
			p.Left = y.ID
		}
		t.save(p)
	}

	y.Left = x.ID
	x.Parent = y.ID
	x.IsRightChild = false
	t.save(x)
	t.save(y)
	return nil
}

// rotateRight promotes x's left child into x's position.
func (t *Tree[K]) rotateRight(x *treeNode[K]) error {
	y, err := t.node(x.Left)
	if err != nil {
		return err
	}
	if y == nil {
		return NewInconsistentStateErrorf("right rotation of node %d with no left child", x.ID)
	}

	x.Left = y.Right
	if y.Right != 0 {
		inner, err := t.node(y.Right)
		if err != nil {
			return err
		}
		inner.Parent = x.ID
		inner.IsRightChild = false
		t.save(inner)
	}

	y.Parent = x.Parent
	y.IsRightChild = x.IsRightChild
	if x.Parent == 0 {
		t.setRoot(y.ID)
	} else {
		p, err := t.node(x.Parent)
		if err != nil {
			return err
		}
		if x.IsRightChild {
			p.Right = y.ID
		} else {
			p.Left = y.ID
		}
		t.save(p)
	}

	y.Right = x.ID
	x.Parent = y.ID
	x.IsRightChild = true
	t.save(x)
	t.save(y)
	return nil
}

// transplant replaces the subtree rooted at u with the subtree rooted at
// vID in u's parent.
func (t *Tree[K]) transplant(u *treeNode[K], vID uint64) error {
	if u.Parent == 0 {
		t.setRoot(vID)
	} else {
		p, err := t.node(u.Parent)
		if err != nil {
			return err
		}
		if u.IsRightChild {
			p.Right = vID
		} else {
			p.Left = vID
		}
		t.save(p)
	}
	if vID != 0 {
		v, err := t.node(vID)
		if err != nil {
			return err
		}
		v.Parent = u.Parent
		v.IsRightChild = u.IsRightChild
		t.save(v)
	}
	return nil
}

// subtreeMin returns the leftmost node of the subtree rooted at n.
func (t *Tree[K]) subtreeMin(n *treeNode[K]) (*treeNode[K], error) {
	for n.Left != 0 {
		next, err := t.node(n.Left)
		if err != nil {
			return nil, err
		}
		n = next
	}
	return n, nil
}

// Remove deletes value and returns true if it was present.
func (t *Tree[K]) Remove(value K) (bool, error) {
	z, err := t.find(value)
	if err != nil {
		return false, err
	}
	if z == nil {
		return false, nil
	}

	// Splice z (or its successor) out, tracking where the detached subtree
	// x ends up so the fixup knows which side lost a black node. x may be a
	// nil reference, so its position is carried as (parent, side).
	spliced := z.Red
	var xID, xParentID uint64
	var xIsRight bool

	switch {
	case z.Left == 0:
		xID = z.Right
		xParentID = z.Parent
		xIsRight = z.IsRightChild
		if err := t.transplant(z, xID); err != nil {
			return false, err
		}
	case z.Right == 0:
		xID = z.Left
		xParentID = z.Parent
		xIsRight = z.IsRightChild
		if err := t.transplant(z, xID); err != nil {
			return false, err
		}
	default:
		right, err := t.node(z.Right)
		if err != nil {
			return false, err
		}
		y, err := t.subtreeMin(right)
		if err != nil {
			return false, err
		}
		spliced = y.Red
		xID = y.Right
		if y.Parent == z.ID {
			xParentID = y.ID
			xIsRight = true
		} else {
			xParentID = y.Parent
			xIsRight = y.IsRightChild
			if err := t.transplant(y, xID); err != nil {
				return false, err
			}
			y.Right = z.Right
			r, err := t.node(y.Right)
			if err != nil {
				return false, err
			}
			r.Parent = y.ID
			r.IsRightChild = true
			t.save(r)
		}
		if err := t.transplant(z, y.ID); err != nil {
			return false, err
		}
		y.Left = z.Left
		l, err := t.node(y.Left)
		if err != nil {
			return false, err
		}
		l.Parent = y.ID
		l.IsRightChild = false
		t.save(l)
		y.Red = z.Red
		t.save(y)
	}

	t.nodes.remove(t.nodeKey(z.ID))
	t.length--
	t.metaDirty = true

	if !spliced {
		if err := t.fixupDelete(xID, xParentID, xIsRight); err != nil {
			return false, err
		}
	}
	return true, nil
}

// fixupDelete restores the black-height invariant after a black node was
// spliced out above the position (xID under xParentID). This is the
// standard double-black resolution: a red sibling is rotated into a black
// one, two black nephews recolor and push the deficit upward, and a red
// nephew resolves with one or two rotations.
func (t *Tree[K]) fixupDelete(xID, xParentID uint64, xIsRight bool) error {
	for xParentID != 0 {
		x, err := t.node(xID)
		if err != nil {
			return err
		}
		if x != nil && x.Red {
			break
		}
		p, err := t.node(xParentID)
		if err != nil {
			return err
		}

		if !xIsRight {
			w, err := t.node(p.Right)
			if err != nil {
				return err
			}
			if w == nil {
				return NewInconsistentStateErrorf("node %d lost its sibling during delete fixup", xID)
			}
			if w.Red {
				w.Red = false
				p.Red = true
				t.save(w)
				t.save(p)
				if err := t.rotateLeft(p); err != nil {
					return err
				}
				w, err = t.node(p.Right)
				if err != nil {
					return err
				}
				if w == nil {
					return NewInconsistentStateErrorf("node %d lost its sibling during delete fixup", xID)
				}
			}

			wl, err := t.node(w.Left)
			if err != nil {
				return err
			}
			wr, err := t.node(w.Right)
			if err != nil {
				return err
			}
			if (wl == nil || !wl.Red) && (wr == nil || !wr.Red) {
				w.Red = true
				t.save(w)
				xID = p.ID
				xParentID = p.Parent
				xIsRight = p.IsRightChild
				continue
			}
			if wr == nil || !wr.Red {
				wl.Red = false
				w.Red = true
				t.save(wl)
				t.save(w)
				if err := t.rotateRight(w); err != nil {
					return err
				}
				w, err = t.node(p.Right)
				if err != nil {
					return err
				}
				wr, err = t.node(w.Right)
				if err != nil {
					return err
				}
			}
			w.Red = p.Red
			p.Red = false
			wr.Red = false
			t.save(w)
			t.save(p)
			t.save(wr)
			if err := t.rotateLeft(p); err != nil {
				return err
			}
			xID = t.root
			break
		}

		w, err := t.node(p.Left)
		if err != nil {
			return err
		}
		if w == nil {
			return NewInconsistentStateErrorf("node %d lost its sibling during delete fixup", xID)
		}
		if w.Red {
			w.Red = false
			p.Red = true
			t.save(w)
			t.save(p)
			if err := t.rotateRight(p); err != nil {
				return err
			}
			w, err = t.node(p.Left)
			if err != nil {
				return err
			}
			if w == nil {
				return NewInconsistentStateErrorf("node %d lost its sibling during delete fixup", xID)
			}
		}

		wl, err := t.node(w.Left)
		if err != nil {
			return err
		}
		wr, err := t.node(w.Right)
		if err != nil {
			return err
		}
		if (wl == nil || !wl.Red) && (wr == nil || !wr.Red) {
			w.Red = true
			t.save(w)
			xID = p.ID
			xParentID = p.Parent
			xIsRight = p.IsRightChild
			continue
		}
		if wl == nil || !wl.Red {
			wr.Red = false
			w.Red = true
			t.save(wr)
			t.save(w)
			if err := t.rotateLeft(w); err != nil {
				return err
			}
			w, err = t.node(p.Left)
			if err != nil {
				return err
			}
			wl, err = t.node(w.Left)
			if err != nil {
				return err
			}
		}
		w.Red = p.Red
		p.Red = false
		wl.Red = false
		t.save(w)
		t.save(p)
		t.save(wl)
		if err := t.rotateRight(p); err != nil {
			return err
		}
		xID = t.root
		break
	}

	if xID != 0 {
		x, err := t.node(xID)
		if err != nil {
			return err
		}
		if x.Red {
			x.Red = false
			t.save(x)
		}
	}
	return nil
}

// Min returns the smallest value, or found=false on an empty tree.
func (t *Tree[K]) Min() (K, bool, error) {
	var zero K
	if t.root == 0 {
		return zero, false, nil
	}
	n, err := t.node(t.root)
	if err != nil {
		return zero, false, err
	}
	n, err = t.subtreeMin(n)
	if err != nil {
		return zero, false, err
	}
	return n.Value, true, nil
}

// Max returns the largest value, or found=false on an empty tree.
func (t *Tree[K]) Max() (K, bool, error) {
	var zero K
	id := t.root
	var last *treeNode[K]
	for id != 0 {
		n, err := t.node(id)
		if err != nil {
			return zero, false, err
		}
		last = n
		id = n.Right
	}
	if last == nil {
		return zero, false, nil
	}
	return last.Value, true, nil
}

// Above returns the smallest value strictly greater than value.
func (t *Tree[K]) Above(value K) (K, bool, error) {
	return t.bound(value, false, false)
}

// Below returns the largest value strictly less than value.
func (t *Tree[K]) Below(value K) (K, bool, error) {
	return t.bound(value, true, false)
}

// Ceil returns the smallest value greater than or equal to value.
func (t *Tree[K]) Ceil(value K) (K, bool, error) {
	return t.bound(value, false, true)
}

// Floor returns the largest value less than or equal to value.
func (t *Tree[K]) Floor(value K) (K, bool, error) {
	return t.bound(value, true, true)
}

// bound walks the tree keeping the best candidate on the query side of
// value.
func (t *Tree[K]) bound(value K, below, inclusive bool) (K, bool, error) {
	var zero K
	var candidate *K

	id := t.root
	for id != 0 {
		n, err := t.node(id)
		if err != nil {
			return zero, false, err
		}
		if inclusive && n.Value == value {
			return n.Value, true, nil
		}
		if below {
			if n.Value < value {
				v := n.Value
				candidate = &v
				id = n.Right
			} else {
				id = n.Left
			}
		} else {
			if n.Value > value {
				v := n.Value
				candidate = &v
				id = n.Left
			} else {
				id = n.Right
			}
		}
	}
	if candidate == nil {
		return zero, false, nil
	}
	return *candidate, true, nil
}

// Clear removes every node. Slot deletions are issued against the ledger
// immediately.
func (t *Tree[K]) Clear() error {
	// Collect ids first; removing while walking would cut branches loose.
	ids := make([]uint64, 0, t.length)
	stack := []uint64{}
	id := t.root
	for id != 0 || len(stack) > 0 {
		for id != 0 {
			stack = append(stack, id)
			n, err := t.node(id)
			if err != nil {
				return err
			}
			id = n.Left
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ids = append(ids, top)
		n, err := t.node(top)
		if err != nil {
			return err
		}
		id = n.Right
	}

	for _, id := range ids {
		key := t.nodeKey(id)
		if _, err := t.ledger.RemoveValue(key); err != nil {
			return wrapStorageError(err)
		}
		t.nodes.drop(key)
	}
	t.root = 0
	t.length = 0
	t.nextID = 0
	t.metaDirty = true
	return nil
}

// Iterate calls fn for each value in ascending order until fn returns
// resume=false or an error.
func (t *Tree[K]) Iterate(fn func(value K) (resume bool, err error)) error {
	return t.iterate(t.Iterator(), fn)
}

// IterateFrom behaves like Iterate but starts at the smallest value greater
// than or equal to from.
func (t *Tree[K]) IterateFrom(from K, fn func(value K) (resume bool, err error)) error {
	it, err := t.IteratorFrom(from)
	if err != nil {
		return err
	}
	return t.iterate(it, fn)
}

// IterateRev calls fn for each value in descending order.
func (t *Tree[K]) IterateRev(fn func(value K) (resume bool, err error)) error {
	return t.iterate(t.IteratorRev(), fn)
}

// IterateRevFrom behaves like IterateRev but starts at the largest value
// less than or equal to from.
func (t *Tree[K]) IterateRevFrom(from K, fn func(value K) (resume bool, err error)) error {
	it, err := t.IteratorRevFrom(from)
	if err != nil {
		return err
	}
	return t.iterate(it, fn)
}

// IterateRange calls fn for each value in [lo, hi) in ascending order.
// Returns an InvalidRangeError if lo > hi.
func (t *Tree[K]) IterateRange(lo, hi K, fn func(value K) (resume bool, err error)) error {
	if lo > hi {
		return NewInvalidRangeError("lower bound is greater than upper bound")
	}
	return t.IterateFrom(lo, func(value K) (bool, error) {
		if value >= hi {
			return false, nil
		}
		return fn(value)
	})
}

func (t *Tree[K]) iterate(it *TreeIterator[K], fn func(value K) (resume bool, err error)) error {
	for {
		value, found, err := it.Next()
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		resume, err := fn(value)
		if err != nil {
			return err
		}
		if !resume {
			return nil
		}
	}
}

// Flush writes every modified node and the tree's metadata record to the
// ledger.
func (t *Tree[K]) Flush() error {
	if err := t.nodes.flush(); err != nil {
		return err
	}
	if t.metaDirty {
		data, err := encodeElement(treeMetadata{Root: t.root, Length: t.length, NextID: t.nextID})
		if err != nil {
			return err
		}
		if _, err := t.ledger.SetValue(metadataKey(t.prefix), data); err != nil {
			return wrapStorageError(err)
		}
		t.metaDirty = false
	}
	return nil
}
