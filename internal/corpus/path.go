package corpus

import (
	"strconv"
	"strings"
)

// PathOf builds the slash-joined ancestor name path of node. A node whose name repeats
// among its earlier siblings is suffixed with its occurrence index, e.g. "Root/Light[1]",
// so same-named siblings get distinct paths. Literal '\', '[', ']' and '/' in names are
// backslash-escaped, so a node named "Light[1]" is "Root/Light\[1\]".
func PathOf(g Graph, node Handle) string {
	var segments []string
	current := node
	for {
		segments = append(segments, segment(g, current))
		parent, ok := g.Parent(current)
		if !ok {
			break
		}
		current = parent
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, "/")
}

func segment(g Graph, node Handle) string {
	name := g.Name(node)
	var siblings []Handle
	if parent, ok := g.Parent(node); ok {
		siblings = g.Children(parent)
	} else {
		siblings = g.Roots()
	}
	occurrence := 0
	for _, s := range siblings {
		if s == node {
			break
		}
		if g.Name(s) == name {
			occurrence++
		}
	}
	escaped := EscapeName(name)
	if occurrence == 0 {
		return escaped
	}
	return escaped + "[" + strconv.Itoa(occurrence) + "]"
}

// EscapeName escapes the path metacharacters of a single node name.
func EscapeName(name string) string {
	if !strings.ContainsAny(name, `\[]/`) {
		return name
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '\\', '[', ']', '/':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FindByPath resolves a path produced by PathOf.
func FindByPath(g Graph, path string) (Handle, bool) {
	if path == "" {
		return Handle{}, false
	}
	candidates := g.Roots()
	var found Handle
	for _, seg := range splitPath(path) {
		name, occurrence, ok := splitSegment(seg)
		if !ok {
			return Handle{}, false
		}
		match, ok := nthNamed(g, candidates, name, occurrence)
		if !ok {
			return Handle{}, false
		}
		found = match
		candidates = g.Children(match)
	}
	return found, true
}

// splitPath splits on unescaped slashes, keeping escapes in the segments.
func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '\\':
			i++
		case '/':
			out = append(out, path[start:i])
			start = i + 1
		}
	}
	return append(out, path[start:])
}

// splitSegment unescapes a segment's name and parses its optional trailing
// unescaped "[n]" occurrence suffix.
func splitSegment(seg string) (string, int, bool) {
	var name strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		switch c {
		case '\\':
			if i+1 == len(seg) {
				return "", 0, false
			}
			i++
			name.WriteByte(seg[i])
		case '[':
			if !strings.HasSuffix(seg, "]") {
				return "", 0, false
			}
			n, err := strconv.Atoi(seg[i+1 : len(seg)-1])
			if err != nil || n < 1 {
				return "", 0, false
			}
			return name.String(), n, true
		case ']':
			return "", 0, false
		default:
			name.WriteByte(c)
		}
	}
	return name.String(), 0, true
}

func nthNamed(g Graph, nodes []Handle, name string, occurrence int) (Handle, bool) {
	seen := 0
	for _, n := range nodes {
		if g.Name(n) != name {
			continue
		}
		if seen == occurrence {
			return n, true
		}
		seen++
	}
	return Handle{}, false
}
