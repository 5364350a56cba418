package vdiff

import (
	"fmt"
	"time"
)

// Diff calculates the patches needed to transform oldTree into newTree.
// Positions refer to the pre-order numbering of oldTree (see Preorder).
func Diff(oldTree, newTree Node, opts ...Option) Patches {
	cfg := newConfig(opts)
	patches := make(Patches)
	if oldTree != nil {
		w := &differ{key: cfg.key, patches: patches}
		w.walk(oldTree, newTree, 0)
	}
	cfg.metrics.observeDiff(patches)
	cfg.logger.Debug("vdiff: diff complete", "positions", len(patches), "ops", patches.Len())
	return patches
}

// DiffHTML calculates the delta that transforms oldHTML into newHTML.
func DiffHTML(oldHTML, newHTML, author string, opts ...Option) (*Delta, error) {
	oldDoc, err := ParseHTML(oldHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse old HTML: %w", err)
	}
	newDoc, err := ParseHTML(newHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse new HTML: %w", err)
	}

	oldTree := FromHTML(oldDoc)
	return &Delta{
		BaseHash:  Fingerprint(oldTree),
		Patches:   Diff(oldTree, FromHTML(newDoc), opts...),
		Timestamp: time.Now().Unix(),
		Author:    author,
	}, nil
}

type differ struct {
	key     KeySource
	patches Patches
}

// walk compares the node at position pos of the old tree with its
// counterpart. A nil newNode means "no instruction", not "delete": removals
// are expressed by the parent's reorder.
func (w *differ) walk(oldNode, newNode Node, pos int) {
	var ops []Op

	switch {
	case newNode == nil:
	case isText(oldNode) && isText(newNode):
		if oldNode.(Text) != newNode.(Text) {
			ops = append(ops, Op{Type: OpText, Text: string(newNode.(Text))})
		}
	case sameElement(oldNode, newNode):
		oldEl, newEl := oldNode.(*Element), newNode.(*Element)
		ops = w.children(oldEl.Children, newEl.Children, pos, ops)
		if props := diffAttrs(oldEl.Attrs, newEl.Attrs); props != nil {
			ops = append(ops, Op{Type: OpProps, Props: props})
		}
	default:
		ops = append(ops, Op{Type: OpReplace, Node: newNode})
	}

	if len(ops) > 0 {
		w.patches[pos] = ops
	}
}

// children reconciles two sibling lists and walks each old child against its
// aligned new child. Positions advance by the old sibling's count because
// Patch walks the old (live) tree.
func (w *differ) children(oldChildren, newChildren []Node, pos int, ops []Op) []Op {
	ld := Reconcile(oldChildren, newChildren, w.key)
	if len(ld.Updates) > 0 {
		ops = append(ops, Op{Type: OpReorder, Updates: ld.Updates})
	}

	current := pos
	var left Node
	for i, oldChild := range oldChildren {
		if left == nil {
			current++
		} else {
			current += Count(left) + 1
		}
		w.walk(oldChild, ld.Children[i], current)
		left = oldChild
	}
	return ops
}

// diffAttrs returns the changed, added and removed attributes, or nil.
func diffAttrs(oldAttrs, newAttrs Attrs) AttrPatch {
	var patch AttrPatch
	set := func(k string, v any) {
		if patch == nil {
			patch = make(AttrPatch)
		}
		patch[k] = v
	}

	for k, vOld := range oldAttrs {
		vNew, exists := newAttrs[k]
		if !exists {
			set(k, Removed)
		} else if !attrEqual(vOld, vNew) {
			set(k, vNew)
		}
	}
	for k, vNew := range newAttrs {
		if _, exists := oldAttrs[k]; !exists {
			set(k, vNew)
		}
	}
	return patch
}

func isText(n Node) bool {
	_, ok := n.(Text)
	return ok
}

func sameElement(a, b Node) bool {
	ae, ok := a.(*Element)
	if !ok || ae == nil {
		return false
	}
	be, ok := b.(*Element)
	if !ok || be == nil {
		return false
	}
	return ae.Tag == be.Tag && ae.Key == be.Key
}
