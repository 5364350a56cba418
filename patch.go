package vdiff

import (
	"fmt"
	"slices"
	"time"

	"golang.org/x/net/html"
)

// Host is the live tree a patch set is applied to. N identifies a host node;
// nodes are compared by identity.
type Host[N comparable] interface {
	CreateElement(tag string) N
	CreateText(text string) N
	SetAttr(n N, key, value string)
	RemoveAttr(n N, key string)
	AppendChild(parent, child N)
	InsertBefore(parent, child, ref N)
	RemoveChild(parent, child N)
	ReplaceChild(parent, newChild, oldChild N)
	Children(n N) []N
	SetText(n N, text string)
}

// parenter is implemented by hosts that can find a node's parent. Patch uses
// it only to re-link a replaced root.
type parenter[N comparable] interface {
	Parent(n N) (N, bool)
}

type target[N comparable] struct {
	node      N
	parent    N
	hasParent bool
}

// Patch applies patches to the host tree rooted at root and returns the root,
// which differs from the input only when the root itself was replaced.
//
// The patch set is validated and every position is resolved against the
// unmodified tree before anything is applied, so a failing call leaves the
// host tree untouched.
func Patch[N comparable](h Host[N], root N, patches Patches, opts ...Option) (N, error) {
	cfg := newConfig(opts)
	start := time.Now()

	if err := validate(patches); err != nil {
		cfg.metrics.observeFailure()
		return root, err
	}

	targets := make(map[int]target[N], len(patches))
	Preorder(root, h.Children, func(pos int, n, parent N, hasParent bool) bool {
		if _, ok := patches[pos]; ok {
			targets[pos] = target[N]{node: n, parent: parent, hasParent: hasParent}
		}
		return len(targets) < len(patches)
	})
	positions := make([]int, 0, len(patches))
	for pos := range patches {
		if _, ok := targets[pos]; !ok {
			cfg.metrics.observeFailure()
			return root, fmt.Errorf("position %d: %w", pos, ErrPositionNotFound)
		}
		positions = append(positions, pos)
	}
	slices.Sort(positions)

	a := &applier[N]{host: h, cfg: cfg}
	for _, pos := range positions {
		t := targets[pos]
		cfg.logger.Debug("vdiff: applying patch", "position", pos, "ops", len(patches[pos]))
		node := a.apply(t, patches[pos])
		if pos == 0 {
			root = node
		}
	}

	cfg.metrics.observePatch(patches, time.Since(start))
	return root, nil
}

func validate(patches Patches) error {
	for pos, ops := range patches {
		for i, op := range ops {
			switch op.Type {
			case OpReplace:
				if op.Node == nil {
					return fmt.Errorf("position %d op %d: %w", pos, i, ErrMissingNode)
				}
			case OpReorder:
				for j, u := range op.Updates {
					switch u.Type {
					case UpdateRemove, UpdateMove:
					case UpdateInsert:
						if u.Item == nil {
							return fmt.Errorf("position %d op %d update %d: %w", pos, i, j, ErrMissingNode)
						}
					default:
						return fmt.Errorf("position %d op %d update %d (%q): %w", pos, i, j, u.Type, ErrUnknownUpdate)
					}
				}
			case OpProps, OpText:
			default:
				return fmt.Errorf("position %d op %d (%q): %w", pos, i, op.Type, ErrUnknownOp)
			}
		}
	}
	return nil
}

type applier[N comparable] struct {
	host Host[N]
	cfg  *config
}

// apply runs ops against one target and returns the node now at that place.
func (a *applier[N]) apply(t target[N], ops []Op) N {
	node := t.node
	for _, op := range ops {
		switch op.Type {
		case OpReplace:
			node = a.replace(t, node, op.Node)
		case OpReorder:
			a.reorder(node, op.Updates)
		case OpProps:
			a.setProps(node, op.Props)
		case OpText:
			a.host.SetText(node, op.Text)
		}
	}
	return node
}

func (a *applier[N]) replace(t target[N], old N, with Node) N {
	node := Render(a.host, with)
	parent, hasParent := t.parent, t.hasParent
	if !hasParent {
		if p, ok := a.host.(parenter[N]); ok {
			parent, hasParent = p.Parent(old)
		}
	}
	if hasParent {
		a.host.ReplaceChild(parent, node, old)
	}
	return node
}

// reorder applies updates one after the other against the live child list.
// Indices past the end of the list are stale and skipped.
func (a *applier[N]) reorder(node N, updates []Update) {
	children := a.host.Children(node)
	for _, u := range updates {
		switch u.Type {
		case UpdateRemove:
			if u.Index < 0 || u.Index >= len(children) {
				a.cfg.logger.Debug("vdiff: skipping stale remove", "index", u.Index, "children", len(children))
				continue
			}
			a.host.RemoveChild(node, children[u.Index])
			children = slices.Delete(children, u.Index, u.Index+1)
		case UpdateInsert:
			children = a.insertAt(node, Render(a.host, u.Item), u.Index, children)
		case UpdateMove:
			if u.From < 0 || u.From >= len(children) {
				a.cfg.logger.Debug("vdiff: skipping stale move", "from", u.From, "children", len(children))
				continue
			}
			child := children[u.From]
			a.host.RemoveChild(node, child)
			children = slices.Delete(children, u.From, u.From+1)
			children = a.insertAt(node, child, u.To, children)
		}
	}
}

// insertAt puts child before children[index], or appends it when index is
// out of range, and returns the updated child list.
func (a *applier[N]) insertAt(parent, child N, index int, children []N) []N {
	if index >= 0 && index < len(children) {
		a.host.InsertBefore(parent, child, children[index])
		return slices.Insert(children, index, child)
	}
	a.host.AppendChild(parent, child)
	return append(children, child)
}

func (a *applier[N]) setProps(node N, props AttrPatch) {
	for k, v := range props {
		if v == Removed {
			a.host.RemoveAttr(node, k)
		} else {
			a.host.SetAttr(node, k, attrString(v))
		}
	}
}

// PatchHTML applies the changes in delta to baseHTML and renders the result.
func PatchHTML(baseHTML string, delta *Delta, opts ...Option) (string, error) {
	doc, err := ParseHTML(baseHTML)
	if err != nil {
		return "", err
	}

	if current := Fingerprint(FromHTML(doc)); current != delta.BaseHash {
		return "", fmt.Errorf("expected %s, got %s: %w", delta.BaseHash, current, ErrBaseMismatch)
	}

	root, err := Patch[*html.Node](HTMLHost{}, doc, delta.Patches, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to apply delta by %q: %w", delta.Author, err)
	}
	return RenderDocument(root)
}
