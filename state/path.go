package state

import "strings"

// Paths are dot-delimited and purely structural: "a.b.c" navigates nested
// map[string]any levels. Writing creates intermediate maps as needed and
// never touches sibling branches.

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// lookup resolves path against root. An empty path resolves to root itself.
func lookup(root map[string]any, path string) (any, bool) {
	if path == "" {
		return root, true
	}

	var current any = root
	for _, seg := range splitPath(path) {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// writeAt replaces the value at path, creating intermediate maps for missing
// or non-map segments along the way.
func writeAt(root map[string]any, path string, value any) {
	segs := splitPath(path)
	node := root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = value
}

// removeAt deletes the value at path. Missing intermediate segments are a
// no-op; empty intermediate maps are left in place.
func removeAt(root map[string]any, path string) {
	segs := splitPath(path)
	node := root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		node = next
	}
	delete(node, segs[len(segs)-1])
}
