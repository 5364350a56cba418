package vdiff

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaJSONRoundTrip(t *testing.T) {
	oldHTML := `<ul class="a" id="l"><li key="a">a</li><li key="b">b</li><li key="c">c</li></ul>`
	newHTML := `<ul id="l"><li key="c">c</li><li key="a">A</li><li key="d"><b>d</b></li></ul>`

	delta, err := DiffHTML(oldHTML, newHTML, "tester")
	require.NoError(t, err)

	data, err := json.Marshal(delta)
	require.NoError(t, err)

	var decoded Delta
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, delta, &decoded)

	patched, err := PatchHTML(oldHTML, &decoded)
	require.NoError(t, err)
	requireSameTree(t, FromHTML(mustParse(t, newHTML)), FromHTML(mustParse(t, patched)))
}

func TestNodeJSON(t *testing.T) {
	tree := El("p", Attrs{"id": "x", "key": "k"}, "hi", El("b"))

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tag":"p","attrs":{"id":"x","key":"k"},"children":["hi",{"tag":"b"}]}`, string(data))

	got, err := UnmarshalNode(data)
	require.NoError(t, err)
	requireSameTree(t, tree, got)
	assert.Equal(t, "k", got.(*Element).Key)

	text, err := UnmarshalNode([]byte(`"plain"`))
	require.NoError(t, err)
	assert.Equal(t, Text("plain"), text)

	none, err := UnmarshalNode([]byte(" null "))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUnmarshalNodeErrors(t *testing.T) {
	_, err := UnmarshalNode([]byte(`42`))
	assert.Error(t, err)

	_, err = UnmarshalNode([]byte(`{"tag":"p","children":[7]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "child 0 of <p>")

	var op Op
	err = json.Unmarshal([]byte(`{"type":"REPLACE","node":true}`), &op)
	assert.Error(t, err)
}

func TestAttrPatchJSON(t *testing.T) {
	patch := AttrPatch{"gone": Removed, "class": "b"}

	data, err := json.Marshal(patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"gone":null,"class":"b"}`, string(data))

	var decoded AttrPatch
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, patch, decoded)
}

func TestOpJSON(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		want string
	}{
		{
			name: "Empty text",
			op:   Op{Type: OpText},
			want: `{"type":"TEXT","text":""}`,
		},
		{
			name: "Replace",
			op:   Op{Type: OpReplace, Node: El("em", "a")},
			want: `{"type":"REPLACE","node":{"tag":"em","children":["a"]}}`,
		},
		{
			name: "Reorder",
			op: Op{Type: OpReorder, Updates: []Update{
				{Type: UpdateRemove, Index: 0},
				{Type: UpdateInsert, Index: 1, Item: Text("x")},
				{Type: UpdateMove, From: 2, To: 0},
			}},
			want: `{"type":"REORDER","updates":[
				{"type":"REMOVE","index":0},
				{"type":"INSERT","index":1,"item":"x"},
				{"type":"MOVE","from":2,"to":0}]}`,
		},
		{
			name: "Props",
			op:   Op{Type: OpProps, Props: AttrPatch{"a": Removed}},
			want: `{"type":"PROPS","props":{"a":null}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.op)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var decoded Op
			require.NoError(t, json.Unmarshal(data, &decoded))
			if diff := cmpOps(tt.op, decoded); diff != "" {
				t.Errorf("decoded op mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func cmpOps(want, got Op) string {
	return cmp.Diff(want, got, treeOpts)
}
