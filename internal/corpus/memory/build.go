package memory

import (
	"fmt"

	"github.com/rowjay/scenesnap/internal/corpus"
)

// DefineShader registers or replaces a material schema.
func (s *Scene) DefineShader(name string, props ...PropertyDef) {
	s.shaders[name] = &schemaDef{name: name, props: withDefaults(props)}
}

// DefineBehaviorType registers or replaces a behavior schema.
func (s *Scene) DefineBehaviorType(name string, props ...PropertyDef) {
	s.behaviorTypes[name] = &schemaDef{name: name, props: withDefaults(props)}
}

func withDefaults(props []PropertyDef) []PropertyDef {
	out := make([]PropertyDef, len(props))
	for i, p := range props {
		if p.Default == nil && p.Type.Supported() {
			p.Default = zeroValue(p.Type)
		}
		out[i] = p
	}
	return out
}

// AddNode appends an active node under parent, or at the top level for a zero parent.
func (s *Scene) AddNode(parent corpus.Handle, name string) corpus.Handle {
	n := &node{id: s.id(), name: name, active: true}
	n.transform.LocalRotation.W = 1
	n.transform.LocalScale.X, n.transform.LocalScale.Y, n.transform.LocalScale.Z = 1, 1, 1
	s.nodes[n.id] = n
	if p, ok := s.nodes[parent.ID]; ok && parent.Kind == corpus.KindNode {
		n.parent = p.id
		p.children = append(p.children, n.id)
	} else {
		s.roots = append(s.roots, n.id)
	}
	return nodeHandle(n.id)
}

// AddMaterial creates a material; an empty path makes a scene-internal material.
func (s *Scene) AddMaterial(path, shader string) (corpus.Handle, error) {
	if _, ok := s.shaders[shader]; !ok {
		return corpus.Handle{}, fmt.Errorf("unknown shader %q", shader)
	}
	m := &material{id: s.id(), path: path, schema: shader, values: map[string]any{}}
	s.materials[m.id] = m
	return corpus.Handle{Kind: corpus.KindMaterial, ID: m.id}, nil
}

// AttachMaterial puts mat on node's renderer.
func (s *Scene) AttachMaterial(nodeH, mat corpus.Handle) error {
	n, err := s.node(nodeH)
	if err != nil {
		return err
	}
	if _, ok := s.materials[mat.ID]; !ok || mat.Kind != corpus.KindMaterial {
		return fmt.Errorf("%s: %w", mat, corpus.ErrNotFound)
	}
	n.materials = append(n.materials, mat.ID)
	return nil
}

func (s *Scene) AddBehavior(nodeH corpus.Handle, typeName string) (corpus.Handle, error) {
	n, err := s.node(nodeH)
	if err != nil {
		return corpus.Handle{}, err
	}
	if _, ok := s.behaviorTypes[typeName]; !ok {
		return corpus.Handle{}, fmt.Errorf("unknown behavior type %q", typeName)
	}
	b := &behavior{id: s.id(), owner: n.id, schema: typeName, values: map[string]any{}}
	s.behaviors[b.id] = b
	n.behaviors = append(n.behaviors, b.id)
	return corpus.Handle{Kind: corpus.KindBehavior, ID: b.id}, nil
}

func (s *Scene) AddTexture(path string, settings corpus.TextureSettings, data []byte) corpus.Handle {
	t := &texture{id: s.id(), path: path, settings: settings, data: data}
	s.textures[t.id] = t
	return corpus.Handle{Kind: corpus.KindTexture, ID: t.id}
}

// SetEnvironment records a host environment value reported in manifests.
func (s *Scene) SetEnvironment(key, value string) { s.env[key] = value }

// RemoveNode detaches node and its subtree from the scene.
func (s *Scene) RemoveNode(h corpus.Handle) error {
	n, err := s.node(h)
	if err != nil {
		return err
	}
	if n.parent != 0 {
		p := s.nodes[n.parent]
		p.children = without(p.children, n.id)
	} else {
		s.roots = without(s.roots, n.id)
	}
	var drop func(id int64)
	drop = func(id int64) {
		cur := s.nodes[id]
		for _, c := range cur.children {
			drop(c)
		}
		for _, b := range cur.behaviors {
			delete(s.behaviors, b)
		}
		delete(s.nodes, id)
	}
	drop(n.id)
	return nil
}

func without(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
