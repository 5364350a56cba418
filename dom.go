package vdiff

import (
	"bytes"
	"errors"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseHTML parses a document and returns its <html> element. Comment and
// doctype nodes are pruned: the virtual tree only knows elements and text, and
// both sides of a diff must number the same nodes.
func ParseHTML(content string) (*html.Node, error) {
	// Parse normalizes the tree into html/head/body even for fragments, so the
	// html element is always there to act as the root.
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	root := findElement(doc, atom.Html)
	if root == nil {
		return nil, errors.New("document has no html element")
	}
	prune(doc)
	return root, nil
}

// RenderNode converts a node tree back to a string.
func RenderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderDocument renders the whole document n belongs to.
func RenderDocument(n *html.Node) (string, error) {
	for n.Parent != nil {
		n = n.Parent
	}
	return RenderNode(n)
}

// FromHTML converts a host subtree into a virtual tree.
func FromHTML(n *html.Node) Node {
	if n.Type == html.TextNode {
		return Text(n.Data)
	}
	attrs := make(Attrs, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	var children []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, FromHTML(c))
	}
	return El(n.Data, attrs, children)
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func prune(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || c.Type == html.DoctypeNode {
			n.RemoveChild(c)
		} else {
			prune(c)
		}
		c = next
	}
}

// HTMLHost adapts golang.org/x/net/html node trees to Host.
type HTMLHost struct{}

var _ Host[*html.Node] = HTMLHost{}

func (HTMLHost) CreateElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

func (HTMLHost) CreateText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func (HTMLHost) SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func (HTMLHost) RemoveAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}

func (HTMLHost) AppendChild(parent, child *html.Node) {
	parent.AppendChild(child)
}

func (HTMLHost) InsertBefore(parent, child, ref *html.Node) {
	parent.InsertBefore(child, ref)
}

func (HTMLHost) RemoveChild(parent, child *html.Node) {
	parent.RemoveChild(child)
}

func (HTMLHost) ReplaceChild(parent, newChild, oldChild *html.Node) {
	parent.InsertBefore(newChild, oldChild)
	parent.RemoveChild(oldChild)
}

// Children returns a snapshot of n's children.
// Note: html.Node's children are a linked list (FirstChild, NextSibling).
func (HTMLHost) Children(n *html.Node) []*html.Node {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	return children
}

func (HTMLHost) SetText(n *html.Node, text string) {
	n.Data = text
}

// Parent implements the optional capability Patch uses to re-link a replaced root.
func (HTMLHost) Parent(n *html.Node) (*html.Node, bool) {
	return n.Parent, n.Parent != nil
}
