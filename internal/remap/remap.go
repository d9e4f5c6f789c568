// Package remap decides where a recorded property lands on a target schema.
package remap

import (
	"strings"
)

// Rules is the configurable form of a Remapper. Skip patterns are exact names,
// "prefix*" or "*suffix"; all matching is case-insensitive.
type Rules struct {
	Skip     []string
	Synonyms map[string]string
}

// DefaultRules covers common shader family renames and the bookkeeping properties
// shaders carry that must never be copied.
func DefaultRules() Rules {
	return Rules{
		Skip: []string{
			"_QueueOffset",
			"_QueueControl",
			"unity_*",
			"*_ST",
			"*_TexelSize",
			"*_HDR",
		},
		Synonyms: map[string]string{
			"_Smoothness":       "_Glossiness",
			"_Cutoff":           "_AlphaCutoff",
			"_BaseColor":        "_Color",
			"_BaseMap":          "_MainTex",
			"_BumpMap":          "_NormalMap",
			"_BumpScale":        "_NormalScale",
			"_EmissionColor":    "_EmissiveColor",
			"_OcclusionMap":     "_OcclusionTexture",
			"_MetallicGlossMap": "_MetallicMap",
		},
	}
}

// Merge returns r extended with other; other's synonyms win.
func (r Rules) Merge(other Rules) Rules {
	out := Rules{Skip: append(append([]string{}, r.Skip...), other.Skip...), Synonyms: map[string]string{}}
	for k, v := range r.Synonyms {
		out.Synonyms[k] = v
	}
	for k, v := range other.Synonyms {
		out.Synonyms[k] = v
	}
	return out
}

// Remapper resolves source property names against a target schema.
type Remapper struct {
	exact    map[string]bool
	prefixes []string
	suffixes []string
	synonyms map[string]string
}

func New(r Rules) *Remapper {
	m := &Remapper{exact: map[string]bool{}, synonyms: map[string]string{}}
	for _, p := range r.Skip {
		p = strings.ToLower(strings.TrimSpace(p))
		switch {
		case p == "" || p == "*":
		case strings.HasSuffix(p, "*"):
			m.prefixes = append(m.prefixes, strings.TrimSuffix(p, "*"))
		case strings.HasPrefix(p, "*"):
			m.suffixes = append(m.suffixes, strings.TrimPrefix(p, "*"))
		default:
			m.exact[p] = true
		}
	}
	for from, to := range r.Synonyms {
		m.synonyms[strings.ToLower(from)] = to
	}
	return m
}

// Default is a Remapper over DefaultRules.
func Default() *Remapper { return New(DefaultRules()) }

// Skipped reports whether name is excluded from any transfer.
func (m *Remapper) Skipped(name string) bool {
	lower := strings.ToLower(name)
	if m.exact[lower] {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	for _, s := range m.suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// Resolve returns the target schema's spelling of the property source maps to.
// Skip rules win over synonyms, and synonyms win over a verbatim match.
func (m *Remapper) Resolve(source string, target []string) (string, bool) {
	if m.Skipped(source) {
		return "", false
	}
	if candidate, ok := m.synonyms[strings.ToLower(source)]; ok {
		if name, ok := lookup(candidate, target); ok {
			return name, true
		}
	}
	return lookup(source, target)
}

func lookup(name string, names []string) (string, bool) {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}
