package graph

import (
	"encoding/json"
	"hash/fnv"
	"sort"
)

// ContentHash computes a stable FNV-1a hash over the canonical JSON form of
// properties: keys sorted, so two semantically identical property sets
// always hash the same regardless of map iteration order.
func ContentHash(properties map[string]string) string {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]struct{ K, V string }, len(keys))
	for i, k := range keys {
		ordered[i] = struct{ K, V string }{k, properties[k]}
	}
	data, _ := json.Marshal(ordered)

	h := fnv.New64a()
	h.Write(data)
	return fnvToHex(h.Sum64())
}

func fnvToHex(v uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf)
}
