package vdiff

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileMoveRestoresOrder(t *testing.T) {
	oldList := keyedList("a", "b", "c")
	newList := keyedList("c", "a", "b")

	ld := Reconcile(oldList, newList, DefaultKey)

	require.Equal(t, []Update{{Type: UpdateMove, From: 2, To: 0}}, ld.Updates)
	for i, c := range ld.Children {
		assert.NotNil(t, c, "old position %d", i)
	}
	assert.Equal(t, newList, simulate(t, ld.Children, ld.Updates))
}

func TestReconcileRemove(t *testing.T) {
	oldList := keyedList("a", "b")
	newList := keyedList("a")

	ld := Reconcile(oldList, newList, DefaultKey)

	assert.Equal(t, []Update{{Type: UpdateRemove, Index: 1}}, ld.Updates)
	assert.Equal(t, []Node{newList[0], nil}, ld.Children)
}

func TestReconcileInsert(t *testing.T) {
	oldList := keyedList("a")
	newList := keyedList("a", "b")

	ld := Reconcile(oldList, newList, DefaultKey)

	assert.Equal(t, []Update{{Type: UpdateInsert, Index: 1, Item: newList[1]}}, ld.Updates)
	assert.Equal(t, []Node{newList[0]}, ld.Children)
}

func TestReconcileRemoveIndicesShrink(t *testing.T) {
	ld := Reconcile(keyedList("a", "b", "c", "d"), keyedList("b", "d"), DefaultKey)

	assert.Equal(t, []Update{
		{Type: UpdateRemove, Index: 0},
		{Type: UpdateRemove, Index: 1},
	}, ld.Updates)
}

func TestReconcileSingleMoveForRotation(t *testing.T) {
	oldList := keyedList("a", "b", "c", "d")
	newList := keyedList("b", "c", "d", "a")

	ld := Reconcile(oldList, newList, DefaultKey)

	assert.Equal(t, []Update{{Type: UpdateMove, From: 0, To: 3}}, ld.Updates)
	assert.Equal(t, newList, simulate(t, ld.Children, ld.Updates))
}

func TestReconcileFreeItems(t *testing.T) {
	oldList := []Node{Text("x"), El("p", "free"), li("a")}
	newList := []Node{li("a"), Text("y"), El("p", "free2"), Text("z")}

	ld := Reconcile(oldList, newList, DefaultKey)

	// Unkeyed items pair up by their order among unkeyed items.
	assert.Equal(t, []Node{newList[1], newList[2], newList[0]}, ld.Children)
	assert.Equal(t, newList, simulate(t, ld.Children, ld.Updates))
}

func TestReconcileUnkeyedInsertedWithoutFreeSlot(t *testing.T) {
	oldList := keyedList("a")
	newList := []Node{li("a"), Text("new")}

	ld := Reconcile(oldList, newList, DefaultKey)

	assert.Equal(t, []Update{{Type: UpdateInsert, Index: 1, Item: Text("new")}}, ld.Updates)
}

func TestReconcileDuplicateKeys(t *testing.T) {
	t.Run("Identical lists", func(t *testing.T) {
		list := keyedList("a", "a", "b", "a")

		ld := Reconcile(list, list, DefaultKey)

		assert.Empty(t, ld.Updates)
		assert.Equal(t, list, ld.Children)
	})

	t.Run("Pair up in order", func(t *testing.T) {
		oldList := keyedList("a", "a", "b")
		newList := keyedList("b", "a")

		ld := Reconcile(oldList, newList, DefaultKey)

		// The first old "a" takes the only new "a"; the second is removed.
		assert.Equal(t, []Node{newList[1], nil, newList[0]}, ld.Children)
		assert.Equal(t, []Update{
			{Type: UpdateRemove, Index: 1},
			{Type: UpdateMove, From: 1, To: 0},
		}, ld.Updates)
		assert.Equal(t, newList, simulate(t, ld.Children, ld.Updates))
	})

	t.Run("Extra new copy is inserted", func(t *testing.T) {
		oldList := keyedList("a")
		newList := keyedList("a", "a")

		ld := Reconcile(oldList, newList, DefaultKey)

		assert.Equal(t, []Update{{Type: UpdateInsert, Index: 1, Item: newList[1]}}, ld.Updates)
	})
}

func TestReconcileKeySources(t *testing.T) {
	byID := func(ids ...string) []Node {
		out := make([]Node, len(ids))
		for i, id := range ids {
			out[i] = El("div", Attrs{"id": id})
		}
		return out
	}

	t.Run("Attribute", func(t *testing.T) {
		oldList, newList := byID("x", "y"), byID("y", "x")
		ld := Reconcile(oldList, newList, KeyAttr("id"))
		assert.Equal(t, []Node{newList[1], newList[0]}, ld.Children)
		assert.Equal(t, newList, simulate(t, ld.Children, ld.Updates))
	})

	t.Run("Function", func(t *testing.T) {
		oldList := []Node{Text("one"), Text("two")}
		newList := []Node{Text("two"), Text("one")}
		key := KeyFunc(func(n Node) string {
			if s, ok := n.(Text); ok {
				return string(s)
			}
			return ""
		})
		ld := Reconcile(oldList, newList, key)
		assert.Len(t, ld.Updates, 1)
		assert.Equal(t, newList, simulate(t, ld.Children, ld.Updates))
	})

	t.Run("Zero value panics", func(t *testing.T) {
		assert.Panics(t, func() { Reconcile(byID("x"), byID("x"), KeySource{}) })
	})
}

func TestReconcileRandomPermutations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 300; round++ {
		var oldList, newList []Node
		pool := make([]Node, 12)
		for i := range pool {
			pool[i] = li(fmt.Sprintf("k%d", i))
		}
		for _, n := range pool {
			if rng.Intn(4) > 0 {
				oldList = append(oldList, n)
			}
		}
		for _, i := range rng.Perm(len(pool)) {
			if rng.Intn(4) > 0 {
				newList = append(newList, pool[i])
			}
		}
		extra := rng.Intn(3)
		for i := 0; i < extra; i++ {
			oldList = append(oldList, Text(fmt.Sprintf("old%d", i)))
			newList = append(newList, Text(fmt.Sprintf("new%d", i)))
		}

		ld := Reconcile(oldList, newList, DefaultKey)
		got := simulate(t, ld.Children, ld.Updates)
		if len(newList) == 0 {
			require.Empty(t, got, "round %d", round)
		} else {
			require.Equal(t, newList, got, "round %d", round)
		}

		moves := 0
		for _, u := range ld.Updates {
			if u.Type == UpdateMove {
				moves++
			}
		}
		assert.LessOrEqual(t, moves, max(len(newList)-1, 0), "round %d", round)
	}
}

func TestReconcileLargeReversal(t *testing.T) {
	keys := make([]string, 2000)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	oldList := keyedList(keys...)
	newList := make([]Node, len(oldList))
	for i, n := range oldList {
		newList[len(newList)-1-i] = n
	}

	ld := Reconcile(oldList, newList, DefaultKey)

	assert.Len(t, ld.Updates, len(keys)-1)
	assert.Equal(t, newList, simulate(t, ld.Children, ld.Updates))
}

func TestIncreasingRun(t *testing.T) {
	assert.Equal(t, []bool{false, true, true}, increasingRun([]int{2, 0, 1}))
	assert.Equal(t, []bool{true, false, true, true}, increasingRun([]int{0, -1, 1, 2}))
	assert.Equal(t, []bool{}, increasingRun([]int{}))
}
