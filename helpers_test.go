package vdiff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

var treeOpts = cmp.AllowUnexported(Element{})

// li builds a keyed list item whose text is its key.
func li(key string) Node {
	return El("li", Attrs{"key": key}, key)
}

func keyedList(keys ...string) []Node {
	out := make([]Node, len(keys))
	for i, k := range keys {
		out[i] = li(k)
	}
	return out
}

// simulate replays updates over the aligned old list the same way Patch does
// over host children.
func simulate(t *testing.T, aligned []Node, updates []Update) []Node {
	t.Helper()
	live := append([]Node(nil), aligned...)
	for _, u := range updates {
		switch u.Type {
		case UpdateRemove:
			require.Less(t, u.Index, len(live), "remove index out of range")
			live = append(live[:u.Index], live[u.Index+1:]...)
		case UpdateInsert:
			require.LessOrEqual(t, u.Index, len(live), "insert index out of range")
			live = append(live[:u.Index], append([]Node{u.Item}, live[u.Index:]...)...)
		case UpdateMove:
			require.Less(t, u.From, len(live), "move source out of range")
			n := live[u.From]
			live = append(live[:u.From], live[u.From+1:]...)
			require.LessOrEqual(t, u.To, len(live), "move target out of range")
			live = append(live[:u.To], append([]Node{n}, live[u.To:]...)...)
		default:
			t.Fatalf("unexpected update type %q", u.Type)
		}
	}
	return live
}

func mustParse(t *testing.T, content string) *html.Node {
	t.Helper()
	root, err := ParseHTML(content)
	require.NoError(t, err)
	return root
}

// roundTrip realizes oldTree on the HTML host, patches it towards newTree and
// returns what the host tree looks like afterwards.
func roundTrip(t *testing.T, oldTree, newTree Node, opts ...Option) Node {
	t.Helper()
	h := HTMLHost{}
	root := Render[*html.Node](h, oldTree)
	root, err := Patch[*html.Node](h, root, Diff(oldTree, newTree, opts...), opts...)
	require.NoError(t, err)
	return FromHTML(root)
}

func requireSameTree(t *testing.T, want, got Node) {
	t.Helper()
	if diff := cmp.Diff(want, got, treeOpts); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}
