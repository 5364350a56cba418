package vdiff

import (
	"slices"
	"sort"
)

// KeySource says how a list item's reconciliation key is found: either by
// reading a named attribute or by calling a function. Use KeyAttr or KeyFunc;
// the zero value is invalid.
type KeySource struct {
	attr string
	fn   func(Node) string
}

// DefaultKey reads the "key" attribute.
var DefaultKey = KeyAttr("key")

// KeyAttr keys elements by the named attribute. Text items are unkeyed.
func KeyAttr(name string) KeySource {
	return KeySource{attr: name}
}

// KeyFunc keys items with fn. An empty result means unkeyed.
func KeyFunc(fn func(Node) string) KeySource {
	return KeySource{fn: fn}
}

func (k KeySource) resolve() func(Node) string {
	switch {
	case k.fn != nil:
		return func(n Node) string {
			if n == nil {
				return ""
			}
			return k.fn(n)
		}
	case k.attr == "key":
		return func(n Node) string {
			if e, ok := n.(*Element); ok && e != nil {
				return e.Key
			}
			return ""
		}
	case k.attr != "":
		name := k.attr
		return func(n Node) string {
			e, ok := n.(*Element)
			if !ok || e == nil {
				return ""
			}
			v, ok := e.Attrs[name]
			if !ok {
				return ""
			}
			return attrString(v)
		}
	default:
		panic("vdiff: KeySource has neither an attribute name nor a function")
	}
}

// ListDiff is the result of reconciling two sibling lists.
type ListDiff struct {
	// Children is aligned with the old list: the matching new item for each
	// old position, or nil when the old item does not survive.
	Children []Node

	// Updates turn the old list into the new one when applied in order.
	Updates []Update
}

// Reconcile matches oldList against newList by key, and unkeyed items by
// their order among the unkeyed items, and computes the updates that turn
// the old list into the new one.
//
// Removes come first, with indices into the list as it shrinks. Then items
// are placed right to left: survivors on a longest increasing run of old
// positions stay where they are, every other item is inserted or moved to
// just before its right-hand neighbour.
func Reconcile(oldList, newList []Node, key KeySource) ListDiff {
	keyOf := key.resolve()
	newKeys, newFree := keyIndexAndFree(newList, keyOf)

	children := make([]Node, len(oldList))
	newOf := make([]int, len(oldList))
	freeIndex := 0
	for i, item := range oldList {
		newOf[i] = -1
		if k := keyOf(item); k != "" {
			// Repeated keys pair up in order: the n-th old item with key k
			// takes the n-th new item with key k.
			if queue := newKeys[k]; len(queue) > 0 {
				newOf[i] = queue[0]
				newKeys[k] = queue[1:]
			}
		} else {
			if freeIndex < len(newFree) {
				newOf[i] = newFree[freeIndex]
			}
			freeIndex++
		}
		if newOf[i] >= 0 {
			children[i] = newList[newOf[i]]
		}
	}

	var updates []Update
	survivors := 0
	for i := range oldList {
		if newOf[i] < 0 {
			updates = append(updates, Update{Type: UpdateRemove, Index: survivors})
			continue
		}
		survivors++
	}

	oldAt := make([]int, len(newList))
	for j := range oldAt {
		oldAt[j] = -1
	}
	for i, j := range newOf {
		if j >= 0 {
			oldAt[j] = i
		}
	}
	stable := increasingRun(oldAt)

	// Every item that is inserted or moved lands just before its right-hand
	// neighbour, so its final slot is known before anything is placed.
	// Survivors start in their old slots; counting the occupied slots that
	// sort before a slot gives its index in the live list.
	place := make([]slot, len(newList))
	next := slot{base: len(oldList)}
	for j := len(newList) - 1; j >= 0; j-- {
		if stable[j] {
			place[j] = slot{base: oldAt[j]}
		} else {
			place[j] = slot{base: next.base, rank: next.rank - 1}
		}
		next = place[j]
	}
	slots := newSlotIndex(oldAt, place)
	for _, i := range oldAt {
		if i >= 0 {
			slots.add(slot{base: i}, 1)
		}
	}

	for j := len(newList) - 1; j >= 0; j-- {
		if stable[j] {
			continue
		}
		if oldAt[j] < 0 {
			updates = append(updates, Update{Type: UpdateInsert, Index: slots.before(place[j]), Item: newList[j]})
			slots.add(place[j], 1)
			continue
		}
		from := slots.before(slot{base: oldAt[j]})
		slots.add(slot{base: oldAt[j]}, -1)
		to := slots.before(place[j])
		slots.add(place[j], 1)
		if from != to {
			updates = append(updates, Update{Type: UpdateMove, From: from, To: to})
		}
	}

	return ListDiff{Children: children, Updates: updates}
}

// slot orders list items during placement. Survivors sit at their old index
// with rank 0; an item placed before its neighbour shares the neighbour's
// base with a lower rank. base len(oldList) is the end of the list.
type slot struct {
	base, rank int
}

func (s slot) less(o slot) bool {
	return s.base < o.base || (s.base == o.base && s.rank < o.rank)
}

// slotIndex counts occupied slots with a Fenwick tree.
type slotIndex struct {
	slots []slot
	tree  []int
}

func newSlotIndex(oldAt []int, place []slot) *slotIndex {
	all := make([]slot, 0, len(oldAt)+len(place))
	for _, i := range oldAt {
		if i >= 0 {
			all = append(all, slot{base: i})
		}
	}
	all = append(all, place...)
	slices.SortFunc(all, func(a, b slot) int {
		switch {
		case a.less(b):
			return -1
		case b.less(a):
			return 1
		}
		return 0
	})
	all = slices.Compact(all)
	return &slotIndex{slots: all, tree: make([]int, len(all)+1)}
}

func (x *slotIndex) find(s slot) int {
	return sort.Search(len(x.slots), func(i int) bool { return !x.slots[i].less(s) })
}

func (x *slotIndex) add(s slot, delta int) {
	for i := x.find(s) + 1; i < len(x.tree); i += i & -i {
		x.tree[i] += delta
	}
}

// before returns the number of occupied slots ordered before s.
func (x *slotIndex) before(s slot) int {
	n := 0
	for i := x.find(s); i > 0; i -= i & -i {
		n += x.tree[i]
	}
	return n
}

// keyIndexAndFree returns, per key, the new-list indices carrying it in
// order, and the indices of unkeyed items.
func keyIndexAndFree(list []Node, keyOf func(Node) string) (map[string][]int, []int) {
	keyIndex := make(map[string][]int)
	var free []int
	for i, item := range list {
		if k := keyOf(item); k != "" {
			keyIndex[k] = append(keyIndex[k], i)
		} else {
			free = append(free, i)
		}
	}
	return keyIndex, free
}

// increasingRun marks the entries of a longest strictly increasing
// subsequence of seq, ignoring negative entries.
func increasingRun(seq []int) []bool {
	marked := make([]bool, len(seq))
	prev := make([]int, len(seq))
	var tails []int // tails[l] is the index in seq ending the best run of length l+1
	for i, v := range seq {
		if v < 0 {
			continue
		}
		l := sort.Search(len(tails), func(t int) bool { return seq[tails[t]] >= v })
		if l > 0 {
			prev[i] = tails[l-1]
		} else {
			prev[i] = -1
		}
		if l == len(tails) {
			tails = append(tails, i)
		} else {
			tails[l] = i
		}
	}
	if len(tails) == 0 {
		return marked
	}
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		marked[i] = true
	}
	return marked
}
