package vdiff

import (
	"encoding/binary"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the shape and content of a tree: tags, attributes, text
// and child boundaries. Trees with the same fingerprint number their nodes
// identically, so a patch set computed against one applies to the other.
func Fingerprint(n Node) string {
	d := xxhash.New()
	writeNode(d, n)
	return strconv.FormatUint(d.Sum64(), 16)
}

func writeNode(d *xxhash.Digest, n Node) {
	switch v := n.(type) {
	case nil:
		d.Write([]byte{0})
	case Text:
		d.Write([]byte{'T'})
		writeString(d, string(v))
	case *Element:
		d.Write([]byte{'E'})
		writeString(d, v.Tag)
		keys := make([]string, 0, len(v.Attrs))
		for k := range v.Attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		writeLen(d, len(keys))
		for _, k := range keys {
			writeString(d, k)
			writeString(d, attrString(v.Attrs[k]))
		}
		writeLen(d, len(v.Children))
		for _, c := range v.Children {
			writeNode(d, c)
		}
	}
}

func writeString(d *xxhash.Digest, s string) {
	writeLen(d, len(s))
	d.WriteString(s)
}

func writeLen(d *xxhash.Digest, n int) {
	var buf [binary.MaxVarintLen64]byte
	d.Write(buf[:binary.PutUvarint(buf[:], uint64(n))])
}
