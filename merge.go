package vdiff

import (
	"fmt"
	"slices"
	"time"
)

// Merge combines two patch sets computed against the same base tree. When
// the sets conflict nothing is merged and the conflicts are returned.
func Merge(base Node, a, b Patches, opts ...Option) (Patches, []Conflict) {
	cfg := newConfig(opts)
	nodes := Positions(base)

	conflicts := detectConflicts(base, nodes, a, b)
	if len(conflicts) > 0 {
		cfg.metrics.observeConflicts(len(conflicts))
		cfg.logger.Debug("vdiff: merge conflicts", "count", len(conflicts))
		return nil, conflicts
	}

	merged := make(Patches, len(a)+len(b))
	for pos, ops := range a {
		merged[pos] = combine(nil, ops, childCount(nodes, pos))
	}
	for pos, ops := range b {
		merged[pos] = combine(merged[pos], ops, childCount(nodes, pos))
	}
	return merged, nil
}

// MergeAll folds Merge over sets, stopping at the first conflict.
func MergeAll(base Node, sets []Patches, opts ...Option) (Patches, []Conflict) {
	merged := make(Patches)
	for _, set := range sets {
		var conflicts []Conflict
		merged, conflicts = Merge(base, merged, set, opts...)
		if len(conflicts) > 0 {
			return nil, conflicts
		}
	}
	return merged, nil
}

// MergeHTML merges deltas computed against baseHTML and applies the result.
func MergeHTML(baseHTML string, deltas []*Delta, opts ...Option) (string, *Delta, []Conflict, error) {
	root, err := ParseHTML(baseHTML)
	if err != nil {
		return "", nil, nil, err
	}
	base := FromHTML(root)
	baseHash := Fingerprint(base)

	sets := make([]Patches, 0, len(deltas))
	for _, d := range deltas {
		if d.BaseHash != baseHash {
			return "", nil, nil, fmt.Errorf("delta by %q: %w", d.Author, ErrBaseMismatch)
		}
		sets = append(sets, d.Patches)
	}

	merged, conflicts := MergeAll(base, sets, opts...)
	if len(conflicts) > 0 {
		return "", nil, conflicts, nil
	}

	mergedDelta := &Delta{
		BaseHash:  baseHash,
		Patches:   merged,
		Author:    "system-merge",
		Timestamp: time.Now().Unix(),
	}
	patched, err := PatchHTML(baseHTML, mergedDelta, opts...)
	return patched, mergedDelta, nil, err
}

func detectConflicts(base Node, nodes []Node, a, b Patches) []Conflict {
	var conflicts []Conflict
	add := func(kind, desc string, pos int, ops ...Op) {
		path, _ := PathOf(base, pos)
		conflicts = append(conflicts, Conflict{
			Type:        kind,
			Description: desc,
			Position:    pos,
			Path:        path,
			Ops:         ops,
		})
	}

	for _, pos := range sortedPositions(b) {
		opsA, ok := a[pos]
		if !ok {
			continue
		}
		for _, opA := range opsA {
			for _, opB := range b[pos] {
				if isConflict(opA, opB, childCount(nodes, pos)) {
					add("Direct", fmt.Sprintf("Conflict on node %d: %s vs %s", pos, opA.Type, opB.Type), pos, opA, opB)
				}
			}
		}
	}

	// An edit inside a subtree the other side replaces or removes is lost.
	structural := func(x, y Patches) {
		for _, p := range sortedPositions(x) {
			if p >= len(nodes) {
				continue
			}
			for _, op := range x[p] {
				switch op.Type {
				case OpReplace:
					for _, q := range sortedPositions(y) {
						if contains(p, nodes[p], q) {
							add("Structure", "Modification of replaced node", q, op)
						}
					}
				case OpReorder:
					gone := removedChildren(op.Updates, len(childrenOf(nodes[p])))
					for i, cp := range childPositions(p, nodes[p]) {
						if !gone[i] {
							continue
						}
						child := nodes[cp]
						for _, q := range sortedPositions(y) {
							if q == cp || contains(cp, child, q) {
								add("Structure", "Modification of deleted node", q, op)
							}
						}
					}
				}
			}
		}
	}
	structural(a, b)
	structural(b, a)

	return conflicts
}

// isConflict reports whether two ops at the same position cannot both apply.
// n is the number of children the node has in the base tree.
func isConflict(a, b Op, n int) bool {
	if a.Type == OpReplace || b.Type == OpReplace {
		// Replace vs anything else is a conflict; identical replacements are not.
		return a.Type != b.Type || Fingerprint(a.Node) != Fingerprint(b.Node)
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case OpReorder:
		if updatesEqual(a.Updates, b.Updates) {
			return false
		}
		// Two batches of pure inserts combine; anything else rearranges
		// the old children in ways that cannot both hold.
		_, okA := insertGaps(a.Updates, n)
		_, okB := insertGaps(b.Updates, n)
		return !okA || !okB
	case OpProps:
		for k, va := range a.Props {
			if vb, ok := b.Props[k]; ok && !attrEqual(va, vb) {
				return true
			}
		}
		return false
	case OpText:
		return a.Text != b.Text
	}
	return false
}

// combine adds ops to existing, keeping one op per type in the order
// Replace, Reorder, Props, Text. Callers have ruled out conflicts, so two
// different reorders are both pure inserts into a node with n children.
func combine(existing, ops []Op, n int) []Op {
	byType := make(map[OpType]Op, len(existing)+len(ops))
	for _, op := range slices.Concat(existing, ops) {
		prev, ok := byType[op.Type]
		if ok && op.Type == OpReorder && !updatesEqual(prev.Updates, op.Updates) {
			op.Updates = mergeInserts(prev.Updates, op.Updates, n)
		}
		if ok && op.Type == OpProps {
			props := make(AttrPatch, len(prev.Props)+len(op.Props))
			for k, v := range prev.Props {
				props[k] = v
			}
			for k, v := range op.Props {
				props[k] = v
			}
			op.Props = props
		}
		byType[op.Type] = op
	}

	out := make([]Op, 0, len(byType))
	for _, t := range []OpType{OpReplace, OpReorder, OpProps, OpText} {
		if op, ok := byType[t]; ok {
			out = append(out, op)
		}
	}
	return out
}

func updatesEqual(a, b []Update) bool {
	return slices.EqualFunc(a, b, func(x, y Update) bool {
		return x.Type == y.Type && x.Index == y.Index && x.From == y.From && x.To == y.To &&
			(x.Item == nil) == (y.Item == nil) && (x.Item == nil || Fingerprint(x.Item) == Fingerprint(y.Item))
	})
}

// insertGaps replays a batch of inserts over n old children and groups the
// inserted items by gap: gap g is just before old child g, gap n the end.
// It reports false when the batch does anything but insert.
func insertGaps(updates []Update, n int) (map[int][]Node, bool) {
	type entry struct {
		old  int
		item Node
	}
	live := make([]entry, n)
	for i := range live {
		live[i] = entry{old: i}
	}
	for _, u := range updates {
		if u.Type != UpdateInsert {
			return nil, false
		}
		live = slices.Insert(live, min(max(u.Index, 0), len(live)), entry{old: -1, item: u.Item})
	}

	gaps := make(map[int][]Node)
	gap := 0
	for _, e := range live {
		if e.old >= 0 {
			gap = e.old + 1
			continue
		}
		gaps[gap] = append(gaps[gap], e.item)
	}
	return gaps, true
}

// mergeInserts rebuilds two insert batches as one batch against the same n
// old children. Items inserted into the same gap keep a's before b's.
func mergeInserts(a, b []Update, n int) []Update {
	gapsA, _ := insertGaps(a, n)
	gapsB, _ := insertGaps(b, n)

	var out []Update
	index := 0
	for g := 0; g <= n; g++ {
		for _, item := range slices.Concat(gapsA[g], gapsB[g]) {
			out = append(out, Update{Type: UpdateInsert, Index: index, Item: item})
			index++
		}
		index++ // old child g
	}
	return out
}

func childCount(nodes []Node, pos int) int {
	if pos < 0 || pos >= len(nodes) {
		return 0
	}
	return len(childrenOf(nodes[pos]))
}

// removedChildren replays updates over n old children and reports which of
// them are no longer in the list.
func removedChildren(updates []Update, n int) map[int]bool {
	live := make([]int, n)
	for i := range live {
		live[i] = i
	}
	for _, u := range updates {
		switch u.Type {
		case UpdateRemove:
			if u.Index >= 0 && u.Index < len(live) {
				live = slices.Delete(live, u.Index, u.Index+1)
			}
		case UpdateInsert:
			live = slices.Insert(live, min(max(u.Index, 0), len(live)), -1)
		case UpdateMove:
			if u.From < 0 || u.From >= len(live) {
				continue
			}
			v := live[u.From]
			live = slices.Delete(live, u.From, u.From+1)
			live = slices.Insert(live, min(max(u.To, 0), len(live)), v)
		}
	}
	gone := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		gone[i] = true
	}
	for _, v := range live {
		delete(gone, v)
	}
	return gone
}

// childPositions returns the positions of the direct children of the node n
// at position pos.
func childPositions(pos int, n Node) []int {
	children := childrenOf(n)
	out := make([]int, len(children))
	next := pos + 1
	for i, c := range children {
		out[i] = next
		next += 1 + Count(c)
	}
	return out
}

func sortedPositions(p Patches) []int {
	out := make([]int, 0, len(p))
	for pos := range p {
		out = append(out, pos)
	}
	slices.Sort(out)
	return out
}
