// Package scope turns a scope selector into the concrete entities a capture visits.
package scope

import (
	"fmt"
	"strings"

	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/property"
)

type Kind string

const (
	EntireCorpus  Kind = "corpus"
	SingleEntity  Kind = "entity"
	EntitySubtree Kind = "subtree"
)

// ParseKind accepts the selector names used in config and on the command line.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "corpus", "all", "scene":
		return EntireCorpus, nil
	case "entity", "single", "node":
		return SingleEntity, nil
	case "subtree", "recursive", "hierarchy":
		return EntitySubtree, nil
	}
	return "", fmt.Errorf("unsupported scope: %s", s)
}

type Scope struct {
	Kind Kind
	Root corpus.Handle
}

func Corpus() Scope { return Scope{Kind: EntireCorpus} }

func Entity(root corpus.Handle) Scope { return Scope{Kind: SingleEntity, Root: root} }

func Subtree(root corpus.Handle) Scope { return Scope{Kind: EntitySubtree, Root: root} }

// Recursive reports whether descendants of the root are visited.
func (s Scope) Recursive() bool { return s.Kind != SingleEntity }

// Target is one resolved entity. Restorable is false for entities without a stable
// identity; they are captured but can never be matched on restore.
type Target struct {
	Handle     corpus.Handle
	Identity   string
	Restorable bool
}

// Resolver enumerates entities for a scope. It only reads from the host.
type Resolver struct {
	Host corpus.Host
}

func (r Resolver) validate(s Scope) error {
	switch s.Kind {
	case EntireCorpus:
		return nil
	case SingleEntity, EntitySubtree:
		if !s.Root.Valid() || s.Root.Kind != corpus.KindNode {
			return fmt.Errorf("scope %s needs a node root, got %s", s.Kind, s.Root)
		}
		return nil
	}
	return fmt.Errorf("unsupported scope: %s", s.Kind)
}

// Nodes returns the scope's nodes in pre-order, inactive ones included.
func (r Resolver) Nodes(s Scope) ([]Target, error) {
	if err := r.validate(s); err != nil {
		return nil, err
	}
	var roots []corpus.Handle
	if s.Kind == EntireCorpus {
		roots = r.Host.Roots()
	} else {
		roots = []corpus.Handle{s.Root}
	}
	seen := map[corpus.Handle]bool{}
	var out []Target
	var walk func(h corpus.Handle)
	walk = func(h corpus.Handle) {
		if seen[h] {
			return
		}
		seen[h] = true
		out = append(out, Target{Handle: h, Identity: corpus.PathOf(r.Host, h), Restorable: true})
		if !s.Recursive() {
			return
		}
		for _, c := range r.Host.Children(h) {
			walk(c)
		}
	}
	for _, root := range roots {
		walk(root)
	}
	return out, nil
}

// Materials returns every distinct material on the scope's nodes. For the whole
// corpus the asset index is included so unreferenced material assets are captured too.
func (r Resolver) Materials(s Scope) ([]Target, error) {
	nodes, err := r.Nodes(s)
	if err != nil {
		return nil, err
	}
	seen := map[corpus.Handle]bool{}
	var out []Target
	add := func(h corpus.Handle) {
		if seen[h] {
			return
		}
		seen[h] = true
		id, ok := r.Host.Identity(h)
		out = append(out, Target{Handle: h, Identity: id, Restorable: ok && id != ""})
	}
	for _, n := range nodes {
		for _, m := range r.Host.Attached(n.Handle, corpus.KindMaterial) {
			add(m)
		}
	}
	if s.Kind == EntireCorpus {
		for _, m := range r.Host.Assets(corpus.KindMaterial) {
			add(m)
		}
	}
	return out, nil
}

// Behaviors returns the behaviors attached to the scope's nodes. Identity is the
// owner node path.
func (r Resolver) Behaviors(s Scope) ([]Target, error) {
	nodes, err := r.Nodes(s)
	if err != nil {
		return nil, err
	}
	seen := map[corpus.Handle]bool{}
	var out []Target
	for _, n := range nodes {
		for _, b := range r.Host.Attached(n.Handle, corpus.KindBehavior) {
			if seen[b] {
				continue
			}
			seen[b] = true
			out = append(out, Target{Handle: b, Identity: n.Identity, Restorable: true})
		}
	}
	return out, nil
}

// Textures returns the texture assets referenced by the scope's materials, or the
// whole texture index for the corpus scope.
func (r Resolver) Textures(s Scope) ([]Target, error) {
	materials, err := r.Materials(s)
	if err != nil {
		return nil, err
	}
	seen := map[corpus.Handle]bool{}
	var out []Target
	add := func(h corpus.Handle) {
		if seen[h] {
			return
		}
		seen[h] = true
		id, ok := r.Host.Identity(h)
		out = append(out, Target{Handle: h, Identity: id, Restorable: ok})
	}
	for _, m := range materials {
		for _, tex := range r.referencedTextures(m.Handle) {
			add(tex)
		}
	}
	if s.Kind == EntireCorpus {
		for _, tex := range r.Host.Assets(corpus.KindTexture) {
			add(tex)
		}
	}
	return out, nil
}

func (r Resolver) referencedTextures(material corpus.Handle) []corpus.Handle {
	props, err := r.Host.ListProperties(material)
	if err != nil {
		return nil
	}
	var out []corpus.Handle
	for _, p := range props {
		if p.Type != property.TagAssetReference {
			continue
		}
		v, err := r.Host.GetProperty(material, p.Name)
		if err != nil {
			continue
		}
		ref, ok := v.(property.ObjectRef)
		if !ok || !ref.Portable() {
			continue
		}
		if tex, ok := r.Host.ResolveByIdentity(corpus.KindTexture, ref.Path); ok {
			out = append(out, tex)
		}
	}
	return out
}
