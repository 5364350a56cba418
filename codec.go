package vdiff

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire form: elements are {"tag","attrs","children"} objects, text nodes are
// JSON strings, and Removed attribute values are null.

type elementJSON struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]any    `json:"attrs,omitempty"`
	Children []json.RawMessage `json:"children,omitempty"`
}

func (e *Element) MarshalJSON() ([]byte, error) {
	out := elementJSON{Tag: e.Tag}
	if len(e.Attrs) > 0 {
		out.Attrs = e.Attrs
	}
	for _, c := range e.Children {
		data, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, data)
	}
	return json.Marshal(out)
}

// UnmarshalNode decodes a node from its wire form. null decodes to nil.
func UnmarshalNode(data []byte) (Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Text(s), nil
	case '{':
		var raw elementJSON
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		children := make([]Node, 0, len(raw.Children))
		for i, c := range raw.Children {
			child, err := UnmarshalNode(c)
			if err != nil {
				return nil, fmt.Errorf("child %d of <%s>: %w", i, raw.Tag, err)
			}
			children = append(children, child)
		}
		return El(raw.Tag, raw.Attrs, children), nil
	default:
		return nil, fmt.Errorf("node must be a JSON string or object, got %.20q", data)
	}
}

func (p AttrPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p))
	for k, v := range p {
		if v == Removed {
			out[k] = nil
		} else {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func (p *AttrPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = make(AttrPatch, len(raw))
	for k, v := range raw {
		if v == nil {
			(*p)[k] = Removed
		} else {
			(*p)[k] = v
		}
	}
	return nil
}

type opJSON struct {
	Type    OpType          `json:"type"`
	Node    json.RawMessage `json:"node,omitempty"`
	Updates []Update        `json:"updates,omitempty"`
	Props   AttrPatch       `json:"props,omitempty"`
	Text    *string         `json:"text,omitempty"`
}

func (op Op) MarshalJSON() ([]byte, error) {
	out := opJSON{Type: op.Type, Updates: op.Updates, Props: op.Props}
	if op.Node != nil {
		data, err := json.Marshal(op.Node)
		if err != nil {
			return nil, err
		}
		out.Node = data
	}
	if op.Type == OpText {
		text := op.Text
		out.Text = &text
	}
	return json.Marshal(out)
}

func (op *Op) UnmarshalJSON(data []byte) error {
	var raw opJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	node, err := UnmarshalNode(raw.Node)
	if err != nil {
		return fmt.Errorf("%s node: %w", raw.Type, err)
	}
	*op = Op{Type: raw.Type, Node: node, Updates: raw.Updates, Props: raw.Props}
	if raw.Text != nil {
		op.Text = *raw.Text
	}
	return nil
}

type updateJSON struct {
	Type  UpdateType      `json:"type"`
	Index *int            `json:"index,omitempty"`
	Item  json.RawMessage `json:"item,omitempty"`
	From  *int            `json:"from,omitempty"`
	To    *int            `json:"to,omitempty"`
}

func (u Update) MarshalJSON() ([]byte, error) {
	out := updateJSON{Type: u.Type}
	switch u.Type {
	case UpdateMove:
		out.From, out.To = &u.From, &u.To
	default:
		out.Index = &u.Index
	}
	if u.Item != nil {
		data, err := json.Marshal(u.Item)
		if err != nil {
			return nil, err
		}
		out.Item = data
	}
	return json.Marshal(out)
}

func (u *Update) UnmarshalJSON(data []byte) error {
	var raw updateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	item, err := UnmarshalNode(raw.Item)
	if err != nil {
		return fmt.Errorf("%s item: %w", raw.Type, err)
	}
	*u = Update{Type: raw.Type, Item: item}
	if raw.Index != nil {
		u.Index = *raw.Index
	}
	if raw.From != nil {
		u.From = *raw.From
	}
	if raw.To != nil {
		u.To = *raw.To
	}
	return nil
}
