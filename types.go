package vdiff

type OpType string

const (
	OpReplace OpType = "REPLACE" // Replace the whole subtree
	OpReorder OpType = "REORDER" // Edit the direct children
	OpProps   OpType = "PROPS"   // Change/Add/Remove attributes
	OpText    OpType = "TEXT"    // Replace text content
)

// Op is one operation at a patch position.
type Op struct {
	Type    OpType
	Node    Node      // For Replace
	Updates []Update  // For Reorder
	Props   AttrPatch // For Props
	Text    string    // For Text
}

type UpdateType string

const (
	UpdateRemove UpdateType = "REMOVE"
	UpdateInsert UpdateType = "INSERT"
	UpdateMove   UpdateType = "MOVE"
)

// Update is a single edit of a child list. Indices address the live list at
// the moment the update is applied, after every earlier update of the batch.
type Update struct {
	Type  UpdateType
	Index int  // Remove, Insert
	Item  Node // Insert
	From  int  // Move
	To    int  // Move
}

// Patches maps a pre-order position in the old tree to its operations.
type Patches map[int][]Op

// AttrPatch maps attribute names to new values. A value of Removed deletes
// the attribute.
type AttrPatch map[string]any

type removed struct{}

// Removed marks an attribute for removal in an AttrPatch.
var Removed any = removed{}

// Len returns the total number of operations.
func (p Patches) Len() int {
	n := 0
	for _, ops := range p {
		n += len(ops)
	}
	return n
}

// Delta represents a set of changes applied to a base document.
type Delta struct {
	BaseHash  string  `json:"base_hash"` // Fingerprint of the original tree to ensure validity
	Patches   Patches `json:"patches"`
	Timestamp int64   `json:"timestamp"`
	Author    string  `json:"author"`
}

// Conflict represents a detected conflict between two operations.
type Conflict struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Position    int      `json:"position"`
	Path        NodePath `json:"path"`
	Ops         []Op     `json:"ops"`
}
