package vdiff

import (
	"fmt"
	"reflect"
	"strconv"
)

// Node is a virtual tree node: either an *Element or a Text leaf.
type Node interface {
	isNode()
}

// Text is a leaf holding text content.
type Text string

func (Text) isNode() {}

// Attrs maps attribute names to scalar values (string, bool, integers, floats).
type Attrs map[string]any

// Element is a labeled container node. Build it with El so that Key and the
// descendant count are filled in; nodes are treated as immutable afterwards.
type Element struct {
	Tag      string
	Attrs    Attrs
	Children []Node
	Key      string // Reconciliation key, from the "key" attribute

	count int
}

func (*Element) isNode() {}

// Count returns the number of nodes below e, text and elements alike.
func (e *Element) Count() int {
	if e == nil {
		return 0
	}
	return e.count
}

// Count returns the descendant count of n. Text nodes have none.
func Count(n Node) int {
	if e, ok := n.(*Element); ok {
		return e.Count()
	}
	return 0
}

// El creates an element.
// Arguments can be: nil, Attrs, map[string]any, Node, []Node, string.
// Strings become text children.
func El(tag string, args ...any) *Element {
	e := &Element{
		Tag:   tag,
		Attrs: make(Attrs),
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attrs:
			e.setAttrs(v)
		case map[string]any:
			e.setAttrs(v)
		case *Element:
			if v != nil {
				e.Children = append(e.Children, v)
			}
		case Text:
			e.Children = append(e.Children, v)
		case string:
			e.Children = append(e.Children, Text(v))
		case []Node:
			for _, c := range v {
				if c != nil {
					e.Children = append(e.Children, c)
				}
			}
		default:
			panic(fmt.Sprintf("vdiff: unsupported El argument of type %T", arg))
		}
	}

	for _, c := range e.Children {
		e.count += 1 + Count(c)
	}
	return e
}

func (e *Element) setAttrs(attrs map[string]any) {
	for k, v := range attrs {
		if v == nil {
			continue
		}
		e.Attrs[k] = v
		if k == "key" {
			e.Key = attrString(v)
		}
	}
}

// attrEqual is strict equality: same dynamic type and same value.
func attrEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

// attrString converts an attribute value to its host representation.
func attrString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func childrenOf(n Node) []Node {
	if e, ok := n.(*Element); ok && e != nil {
		return e.Children
	}
	return nil
}
