package vdiff

import "sort"

// Render realizes a virtual node as a new host node: create the node, set its
// attributes, append its realized children.
func Render[N comparable](h Host[N], n Node) N {
	switch v := n.(type) {
	case Text:
		return h.CreateText(string(v))
	case *Element:
		el := h.CreateElement(v.Tag)
		keys := make([]string, 0, len(v.Attrs))
		for k := range v.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.SetAttr(el, k, attrString(v.Attrs[k]))
		}
		for _, c := range v.Children {
			h.AppendChild(el, Render(h, c))
		}
		return el
	}
	var zero N
	return zero
}
