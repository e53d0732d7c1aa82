// Package bvh implements a dynamic bounding volume hierarchy for 3D spatial
// indexing: a mutable collection of axis-aligned bounding boxes, each tagged
// with an opaque application identifier, supporting incremental insertion,
// removal, hierarchical refitting, a Morton-order bottom-up rebuild, and
// predicate-guided traversal for ray casts, frustum culling and overlap
// queries.
package bvh

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"slices"
)

// BVH is a dynamic bounding volume hierarchy keyed by an opaque, comparable
// item identifier. It is not safe for concurrent use.
type BVH[Item comparable] struct {
	logger golog.Logger

	pool  *pool[Item]
	index map[Item]nodeIndex
	root  nodeIndex

	// rebuildOrder and rebuildQueue back BottomUp's rebuild, reused across
	// calls rather than reallocated.
	rebuildOrder []nodeIndex
	rebuildQueue []nodeIndex
}

// New creates an empty BVH. A zero-value Config is valid.
func New[Item comparable](cfg Config) (*BVH[Item], error) {
	cfg, err := cfg.validate()
	if err != nil {
		return nil, errors.Wrap(err, "bvh.New")
	}
	return &BVH[Item]{
		logger: cfg.Logger,
		pool:   newPool[Item](cfg.Capacity),
		index:  make(map[Item]nodeIndex),
		root:   nullNode,
	}, nil
}

// Capacity returns the current node-pool capacity.
func (b *BVH[Item]) Capacity() int {
	return b.pool.capacity()
}

// Len returns the number of items currently tracked by the tree.
func (b *BVH[Item]) Len() int {
	return len(b.index)
}

// Height returns the number of edges on the longest path from the root to a
// leaf, or 0 for an empty or single-item tree.
func (b *BVH[Item]) Height() int {
	return b.height(b.root)
}

func (b *BVH[Item]) height(i nodeIndex) int {
	if i == nullNode {
		return 0
	}
	n := b.pool.at(i)
	if n.isLeaf {
		return 0
	}
	lh := b.height(n.left)
	rh := b.height(n.right)
	if lh > rh {
		return lh + 1
	}
	return rh + 1
}

// Insert adds item with the given bounds, returning false without modifying
// the tree if item is already tracked.
func (b *BVH[Item]) Insert(item Item, bounds Bounds) bool {
	if _, exists := b.index[item]; exists {
		b.logger.Debugw("rejecting duplicate insert", "item", item)
		return false
	}

	leaf := b.pool.allocate()
	ln := b.pool.at(leaf)
	ln.bounds = bounds
	ln.item = item
	ln.isLeaf = true
	ln.parent = nullNode
	ln.left = nullNode
	ln.right = nullNode
	b.index[item] = leaf

	if b.root == nullNode {
		b.root = leaf
		return true
	}

	sibling := b.chooseSibling(bounds)
	b.spliceInAbove(sibling, leaf)

	return true
}

// chooseSibling performs the SAH greedy descent from root, returning the
// leaf whose subtree is the cheapest to grow by absorbing bounds.
func (b *BVH[Item]) chooseSibling(bounds Bounds) nodeIndex {
	cur := b.root
	for {
		n := b.pool.at(cur)
		if n.isLeaf {
			return cur
		}
		leftArea := Union(bounds, b.pool.at(n.left).bounds).SurfaceArea()
		rightArea := Union(bounds, b.pool.at(n.right).bounds).SurfaceArea()
		if rightArea < leftArea {
			cur = n.right
		} else {
			cur = n.left
		}
	}
}

// spliceInAbove allocates a new interior node above sibling, making leaf its
// other child, rewires the grandparent link, and refits ancestors.
func (b *BVH[Item]) spliceInAbove(sibling, leaf nodeIndex) {
	oldParent := b.pool.at(sibling).parent

	newInterior := b.pool.allocate()
	in := b.pool.at(newInterior)
	in.left = sibling
	in.right = leaf
	in.parent = oldParent
	in.isLeaf = false
	in.bounds = Union(b.pool.at(sibling).bounds, b.pool.at(leaf).bounds)

	b.pool.at(sibling).parent = newInterior
	b.pool.at(leaf).parent = newInterior

	if oldParent == nullNode {
		b.root = newInterior
	} else {
		p := b.pool.at(oldParent)
		if p.left == sibling {
			p.left = newInterior
		} else {
			p.right = newInterior
		}
	}

	// newInterior's own bounds are already exact (set above); refit only
	// needs to propagate the enlargement to its ancestors.
	b.refitFrom(oldParent)
}

// refitFrom walks upward from i, recomputing each ancestor's bounds as the
// union of its children, stopping as soon as an ancestor already contains
// that union.
func (b *BVH[Item]) refitFrom(i nodeIndex) {
	for i != nullNode {
		n := b.pool.at(i)
		u := Union(b.pool.at(n.left).bounds, b.pool.at(n.right).bounds)
		if Contains(n.bounds, u) {
			return
		}
		n.bounds = u
		i = n.parent
	}
}

// Remove deletes item from the tree, returning false if it was not tracked.
func (b *BVH[Item]) Remove(item Item) bool {
	leaf, ok := b.index[item]
	if !ok {
		b.logger.Debugw("ignoring remove of untracked item", "item", item)
		return false
	}
	delete(b.index, item)
	b.removeLeaf(leaf)
	return true
}

func (b *BVH[Item]) removeLeaf(leaf nodeIndex) {
	ln := b.pool.at(leaf)
	if ln.parent == nullNode {
		b.root = nullNode
		b.pool.freeSlot(leaf)
		return
	}

	parent := ln.parent
	pn := b.pool.at(parent)
	grandparent := pn.parent
	var sibling nodeIndex
	if pn.left == leaf {
		sibling = pn.right
	} else {
		sibling = pn.left
	}

	b.pool.at(sibling).parent = grandparent
	if grandparent == nullNode {
		b.root = sibling
	} else {
		gp := b.pool.at(grandparent)
		if gp.left == parent {
			gp.left = sibling
		} else {
			gp.right = sibling
		}
	}

	b.pool.freeSlot(parent)
	b.pool.freeSlot(leaf)
}

// Move relocates a tracked item to newBounds, implemented as Remove followed
// by Insert with no fat-AABB inflation. It returns false if item was not
// tracked.
func (b *BVH[Item]) Move(item Item, newBounds Bounds) bool {
	if !b.Remove(item) {
		return false
	}
	return b.Insert(item, newBounds)
}

// Traversal walks the tree pre-order, pruning any subtree whose bounds do
// not satisfy predicate, and invoking callback once for every leaf item
// whose chain of ancestors (including itself) all satisfied predicate.
func (b *BVH[Item]) Traversal(predicate func(Bounds) bool, callback func(Item)) {
	b.traverse(b.root, predicate, callback)
}

func (b *BVH[Item]) traverse(i nodeIndex, predicate func(Bounds) bool, callback func(Item)) {
	if i == nullNode {
		return
	}
	n := b.pool.at(i)
	if !predicate(n.bounds) {
		return
	}
	if n.isLeaf {
		callback(n.item)
		return
	}
	b.traverse(n.left, predicate, callback)
	b.traverse(n.right, predicate, callback)
}

// Query invokes callback once for every item whose bounds overlap the given
// region.
func (b *BVH[Item]) Query(region Bounds, callback func(Item)) {
	b.Traversal(func(bd Bounds) bool { return Overlaps(bd, region) }, callback)
}

// RayCast invokes callback with the item and the ray's entry distance for
// every leaf whose bounds are hit by the ray (origin + t*dir, t in
// [0, maxDistance]), using the standard slab test.
func (b *BVH[Item]) RayCast(origin, dir r3.Vector, maxDistance float64, callback func(Item, float64)) {
	b.Traversal(
		func(bd Bounds) bool {
			hit, _ := slabIntersect(bd, origin, dir, maxDistance)
			return hit
		},
		func(item Item) {
			leaf, ok := b.index[item]
			if !ok {
				return
			}
			_, t := slabIntersect(b.pool.at(leaf).bounds, origin, dir, maxDistance)
			callback(item, t)
		},
	)
}

// slabIntersect implements the standard slab ray-AABB test, returning
// whether the ray hits the box within [0, maxDistance] and the entry
// distance if so.
func slabIntersect(bd Bounds, origin, dir r3.Vector, maxDistance float64) (bool, float64) {
	min, max := bd.Min(), bd.Max()
	tMin, tMax := 0.0, maxDistance

	axes := [3][3]float64{
		{origin.X, dir.X, 0},
		{origin.Y, dir.Y, 0},
		{origin.Z, dir.Z, 0},
	}
	mins := [3]float64{min.X, min.Y, min.Z}
	maxs := [3]float64{max.X, max.Y, max.Z}

	for axis := 0; axis < 3; axis++ {
		o, d := axes[axis][0], axes[axis][1]
		if d == 0 {
			if o < mins[axis] || o > maxs[axis] {
				return false, 0
			}
			continue
		}
		inv := 1 / d
		t1 := (mins[axis] - o) * inv
		t2 := (maxs[axis] - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return false, 0
		}
	}
	return true, tMin
}

// BottomUp rebuilds the hierarchy bottom-up from a Morton-ordered leaf
// sequence, approximating a linear BVH. It is a no-op on an empty tree.
func (b *BVH[Item]) BottomUp() {
	if b.root == nullNode {
		return
	}

	refBounds := b.pool.at(b.root).bounds
	refMin, refMax := refBounds.Min(), refBounds.Max()

	b.rebuildOrder = b.collectLeavesAndFreeInterior(b.root, b.rebuildOrder[:0])

	slices.SortFunc(b.rebuildOrder, func(a, c nodeIndex) int {
		ka := mortonEncode3D(MapVector3(b.pool.at(a).bounds.Center, refMin, refMax, 0, 1))
		kc := mortonEncode3D(MapVector3(b.pool.at(c).bounds.Center, refMin, refMax, 0, 1))
		switch {
		case ka < kc:
			return -1
		case ka > kc:
			return 1
		default:
			return 0
		}
	})

	n := len(b.rebuildOrder)
	b.logger.Debugw("bottom-up rebuild", "leaves", n)

	if n == 1 {
		root := b.rebuildOrder[0]
		b.pool.at(root).parent = nullNode
		b.root = root
		return
	}

	b.rebuildQueue = append(b.rebuildQueue[:0], b.rebuildOrder...)
	head := 0
	for len(b.rebuildQueue)-head > 1 {
		a := b.rebuildQueue[head]
		c := b.rebuildQueue[head+1]
		head += 2

		parent := b.pool.allocate()
		pn := b.pool.at(parent)
		pn.left = a
		pn.right = c
		pn.isLeaf = false
		pn.parent = nullNode
		pn.bounds = Union(b.pool.at(a).bounds, b.pool.at(c).bounds)

		b.pool.at(a).parent = parent
		b.pool.at(c).parent = parent

		b.rebuildQueue = append(b.rebuildQueue, parent)
	}

	b.root = b.rebuildQueue[head]
}

// collectLeavesAndFreeInterior recursively frees every interior ancestor of
// every leaf in the subtree rooted at i (orphaning the leaves), appending
// each leaf's index to out.
func (b *BVH[Item]) collectLeavesAndFreeInterior(i nodeIndex, out []nodeIndex) []nodeIndex {
	n := b.pool.at(i)
	if n.isLeaf {
		n.parent = nullNode
		return append(out, i)
	}
	out = b.collectLeavesAndFreeInterior(n.left, out)
	out = b.collectLeavesAndFreeInterior(n.right, out)
	b.pool.freeSlot(i)
	return out
}

// CheckInvariants walks the whole tree and returns a combined error
// describing every structural invariant that is violated, or nil if none
// are. It is a debug/test helper, not part of the hot-path contract.
func (b *BVH[Item]) CheckInvariants() error {
	var errs error

	if b.pool.len() != expectedAllocatedCount(len(b.index)) {
		errs = multierr.Append(errs, errors.Errorf(
			"allocated node count %d does not match 2*N-1 for N=%d", b.pool.len(), len(b.index)))
	}

	reachable := make(map[nodeIndex]bool)
	errs = multierr.Append(errs, b.checkSubtree(b.root, nullNode, reachable))

	for _, i := range b.pool.free {
		if reachable[i] {
			errs = multierr.Append(errs, errors.Errorf("slot %d is both free and reachable", i))
		}
	}

	leafCount := 0
	for i := range reachable {
		if b.pool.at(i).isLeaf {
			leafCount++
		}
	}
	if leafCount != len(b.index) {
		errs = multierr.Append(errs, errors.Errorf(
			"reachable leaf count %d does not match item index size %d", leafCount, len(b.index)))
	}

	return errs
}

func expectedAllocatedCount(n int) int {
	if n == 0 {
		return 0
	}
	return 2*n - 1
}

func (b *BVH[Item]) checkSubtree(i, expectedParent nodeIndex, reachable map[nodeIndex]bool) error {
	if i == nullNode {
		return nil
	}
	reachable[i] = true
	n := b.pool.at(i)

	var errs error
	if n.parent != expectedParent {
		errs = multierr.Append(errs, errors.Errorf("slot %d has parent %d, expected %d", i, n.parent, expectedParent))
	}

	if n.isLeaf {
		if n.left != nullNode || n.right != nullNode {
			errs = multierr.Append(errs, errors.Errorf("leaf slot %d has non-null child", i))
		}
		return errs
	}

	if n.left == nullNode || n.right == nullNode {
		errs = multierr.Append(errs, errors.Errorf("interior slot %d has a null child", i))
		return errs
	}

	u := Union(b.pool.at(n.left).bounds, b.pool.at(n.right).bounds)
	if !Contains(n.bounds, u) {
		errs = multierr.Append(errs, errors.Errorf("interior slot %d bounds do not contain union of children", i))
	}

	errs = multierr.Append(errs, b.checkSubtree(n.left, i, reachable))
	errs = multierr.Append(errs, b.checkSubtree(n.right, i, reachable))
	return errs
}
