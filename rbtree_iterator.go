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

// TreeIterator walks a Tree's values in sorted order without recursion. The
// stack holds the ids of nodes whose value is still pending, each with its
// near-side subtree not yet descended into. The tree must not be mutated
// while an iterator is live.
type TreeIterator[K constraints.Ordered] struct {
	tree    *Tree[K]
	stack   []uint64
	reverse bool
	primed  bool
	start   K
	started bool
}

// Iterator returns an iterator over all values in ascending order.
func (t *Tree[K]) Iterator() *TreeIterator[K] {
	return &TreeIterator[K]{tree: t}
}

// IteratorRev returns an iterator over all values in descending order.
func (t *Tree[K]) IteratorRev() *TreeIterator[K] {
	return &TreeIterator[K]{tree: t, reverse: true}
}

// IteratorFrom returns an ascending iterator starting at the smallest value
// greater than or equal to from.
func (t *Tree[K]) IteratorFrom(from K) (*TreeIterator[K], error) {
	return &TreeIterator[K]{tree: t, start: from, started: true}, nil
}

// IteratorRevFrom returns a descending iterator starting at the largest
// value less than or equal to from.
func (t *Tree[K]) IteratorRevFrom(from K) (*TreeIterator[K], error) {
	return &TreeIterator[K]{tree: t, reverse: true, start: from, started: true}, nil
}

// prime seeds the stack with the path to the first value: the near-side
// spine of the whole tree, or, for a bounded iterator, every node on the
// root path whose value lies on the iteration side of the bound.
func (i *TreeIterator[K]) prime() error {
	i.primed = true
	id := i.tree.root
	for id != 0 {
		n, err := i.tree.node(id)
		if err != nil {
			return err
		}
		if !i.reverse {
			if !i.started || n.Value >= i.start {
				i.stack = append(i.stack, id)
				id = n.Left
			} else {
				id = n.Right
			}
		} else {
			if !i.started || n.Value <= i.start {
				i.stack = append(i.stack, id)
				id = n.Right
			} else {
				id = n.Left
			}
		}
	}
	return nil
}

// descend pushes the near-side spine of the subtree rooted at id.
func (i *TreeIterator[K]) descend(id uint64) error {
	for id != 0 {
		n, err := i.tree.node(id)
		if err != nil {
			return err
		}
		i.stack = append(i.stack, id)
		if i.reverse {
			id = n.Right
		} else {
			id = n.Left
		}
	}
	return nil
}

// Next returns the next value, or found=false when the iterator is
// exhausted.
func (i *TreeIterator[K]) Next() (K, bool, error) {
	var zero K
	if !i.primed {
		if err := i.prime(); err != nil {
			return zero, false, err
		}
	}
	if len(i.stack) == 0 {
		return zero, false, nil
	}

	id := i.stack[len(i.stack)-1]
	i.stack = i.stack[:len(i.stack)-1]
	n, err := i.tree.node(id)
	if err != nil {
		return zero, false, err
	}

	far := n.Right
	if i.reverse {
		far = n.Left
	}
	if err := i.descend(far); err != nil {
		return zero, false, err
	}
	return n.Value, true, nil
}
