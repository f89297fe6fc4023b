package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// PropertiesDigest computes a deterministic hash of an edge's property
// map. Part of the edge uniqueness key, so key order must not matter.
func PropertiesDigest(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s\x00%s\x00", k, props[k])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
