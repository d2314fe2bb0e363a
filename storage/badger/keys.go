package badger

import (
	"github.com/poiesic/vidrag/core"
)

// Key prefixes for different data types
const (
	indexSpecPrefix  = "vidx"
	vectorPrefix     = "vec"
	transcriptPrefix = "trn"
)

// makeIndexSpecKey generates the key holding an index's spec.
func makeIndexSpecKey(index string) []byte {
	return []byte(indexSpecPrefix + ":" + index)
}

// makeNamespacePrefix generates the prefix shared by all vectors of a namespace.
// Format: vec:index:namespace:
func makeNamespacePrefix(index string, ns core.Namespace) []byte {
	return []byte(vectorPrefix + ":" + index + ":" + string(ns) + ":")
}

// makeVectorKey generates a key for one vector record.
// Format: vec:index:namespace:id
func makeVectorKey(index string, ns core.Namespace, id string) []byte {
	return append(makeNamespacePrefix(index, ns), id...)
}

// vectorIDFromKey strips the namespace prefix from a vector key.
func vectorIDFromKey(prefix, key []byte) string {
	return string(key[len(prefix):])
}

// makeTranscriptKey generates a key for a transcript by namespace.
func makeTranscriptKey(ns core.Namespace) []byte {
	return []byte(transcriptPrefix + ":" + string(ns))
}
