// Package memory is an in-process corpus host. Scenes are built programmatically or
// loaded from YAML scene documents.
package memory

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/property"
)

// PropertyDef declares one property of a shader or behavior type.
type PropertyDef struct {
	Name    string
	Type    property.Tag
	Default any
}

type schemaDef struct {
	name  string
	props []PropertyDef
}

func (s *schemaDef) find(name string) (PropertyDef, bool) {
	for _, p := range s.props {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDef{}, false
}

type node struct {
	id        int64
	name      string
	active    bool
	transform corpus.Transform
	parent    int64
	children  []int64
	materials []int64
	behaviors []int64
}

type material struct {
	id     int64
	path   string
	schema string
	values map[string]any
}

type behavior struct {
	id     int64
	owner  int64
	schema string
	values map[string]any
}

type texture struct {
	id       int64
	path     string
	source   string
	data     []byte
	settings corpus.TextureSettings
}

// Scene is a mutable in-memory corpus. It is not safe for concurrent use.
type Scene struct {
	nextID        int64
	roots         []int64
	nodes         map[int64]*node
	materials     map[int64]*material
	behaviors     map[int64]*behavior
	textures      map[int64]*texture
	shaders       map[string]*schemaDef
	behaviorTypes map[string]*schemaDef
	faults        map[string]error
	env           map[string]string
	baseDir       string
}

var (
	_ corpus.Host        = (*Scene)(nil)
	_ corpus.AssetSource = (*Scene)(nil)
	_ corpus.Environment = (*Scene)(nil)
)

func New() *Scene {
	return &Scene{
		nodes:         map[int64]*node{},
		materials:     map[int64]*material{},
		behaviors:     map[int64]*behavior{},
		textures:      map[int64]*texture{},
		shaders:       map[string]*schemaDef{},
		behaviorTypes: map[string]*schemaDef{},
		faults:        map[string]error{},
		env:           map[string]string{},
	}
}

func (s *Scene) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Scene) node(h corpus.Handle) (*node, error) {
	if h.Kind != corpus.KindNode {
		return nil, fmt.Errorf("%s is not a node", h)
	}
	n, ok := s.nodes[h.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", h, corpus.ErrNotFound)
	}
	return n, nil
}

func nodeHandle(id int64) corpus.Handle { return corpus.Handle{Kind: corpus.KindNode, ID: id} }

func handles(kind corpus.Kind, ids []int64) []corpus.Handle {
	out := make([]corpus.Handle, 0, len(ids))
	for _, id := range ids {
		out = append(out, corpus.Handle{Kind: kind, ID: id})
	}
	return out
}

func (s *Scene) Roots() []corpus.Handle { return handles(corpus.KindNode, s.roots) }

func (s *Scene) Children(h corpus.Handle) []corpus.Handle {
	n, err := s.node(h)
	if err != nil {
		return nil
	}
	return handles(corpus.KindNode, n.children)
}

func (s *Scene) Parent(h corpus.Handle) (corpus.Handle, bool) {
	n, err := s.node(h)
	if err != nil || n.parent == 0 {
		return corpus.Handle{}, false
	}
	return nodeHandle(n.parent), true
}

func (s *Scene) Name(h corpus.Handle) string {
	n, err := s.node(h)
	if err != nil {
		return ""
	}
	return n.name
}

func (s *Scene) Active(h corpus.Handle) bool {
	n, err := s.node(h)
	return err == nil && n.active
}

func (s *Scene) SetActive(h corpus.Handle, active bool) error {
	n, err := s.node(h)
	if err != nil {
		return err
	}
	n.active = active
	return nil
}

func (s *Scene) Transform(h corpus.Handle) (corpus.Transform, error) {
	n, err := s.node(h)
	if err != nil {
		return corpus.Transform{}, err
	}
	return n.transform, nil
}

func (s *Scene) SetTransform(h corpus.Handle, t corpus.Transform) error {
	n, err := s.node(h)
	if err != nil {
		return err
	}
	n.transform = t
	return nil
}

func (s *Scene) Assets(kind corpus.Kind) []corpus.Handle {
	var ids []int64
	switch kind {
	case corpus.KindMaterial:
		for id, m := range s.materials {
			if m.path != "" {
				ids = append(ids, id)
			}
		}
	case corpus.KindTexture:
		for id := range s.textures {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return handles(kind, ids)
}

func (s *Scene) Attached(h corpus.Handle, kind corpus.Kind) []corpus.Handle {
	n, err := s.node(h)
	if err != nil {
		return nil
	}
	switch kind {
	case corpus.KindMaterial:
		return handles(kind, n.materials)
	case corpus.KindBehavior:
		return handles(kind, n.behaviors)
	}
	return nil
}

func (s *Scene) Identity(h corpus.Handle) (string, bool) {
	switch h.Kind {
	case corpus.KindMaterial:
		if m, ok := s.materials[h.ID]; ok && m.path != "" {
			return m.path, true
		}
	case corpus.KindTexture:
		if t, ok := s.textures[h.ID]; ok {
			return t.path, true
		}
	case corpus.KindNode:
		if _, ok := s.nodes[h.ID]; ok {
			return corpus.PathOf(s, h), true
		}
	}
	return "", false
}

func (s *Scene) ResolveByIdentity(kind corpus.Kind, path string) (corpus.Handle, bool) {
	switch kind {
	case corpus.KindMaterial:
		for id, m := range s.materials {
			if m.path != "" && m.path == path {
				return corpus.Handle{Kind: kind, ID: id}, true
			}
		}
	case corpus.KindTexture:
		for id, t := range s.textures {
			if t.path == path {
				return corpus.Handle{Kind: kind, ID: id}, true
			}
		}
	case corpus.KindNode:
		return corpus.FindByPath(s, path)
	}
	return corpus.Handle{}, false
}

func (s *Scene) entity(h corpus.Handle) (*schemaDef, map[string]any, error) {
	switch h.Kind {
	case corpus.KindMaterial:
		m, ok := s.materials[h.ID]
		if !ok {
			return nil, nil, fmt.Errorf("%s: %w", h, corpus.ErrNotFound)
		}
		def, ok := s.shaders[m.schema]
		if !ok {
			return nil, nil, fmt.Errorf("%s: unknown shader %q", h, m.schema)
		}
		return def, m.values, nil
	case corpus.KindBehavior:
		b, ok := s.behaviors[h.ID]
		if !ok {
			return nil, nil, fmt.Errorf("%s: %w", h, corpus.ErrNotFound)
		}
		def, ok := s.behaviorTypes[b.schema]
		if !ok {
			return nil, nil, fmt.Errorf("%s: unknown behavior type %q", h, b.schema)
		}
		return def, b.values, nil
	}
	return nil, nil, fmt.Errorf("%s has no properties", h)
}

func (s *Scene) ListProperties(h corpus.Handle) ([]property.Info, error) {
	def, _, err := s.entity(h)
	if err != nil {
		return nil, err
	}
	return infos(def), nil
}

func infos(def *schemaDef) []property.Info {
	out := make([]property.Info, 0, len(def.props))
	for _, p := range def.props {
		out = append(out, property.Info{Name: p.Name, Type: p.Type})
	}
	return out
}

func faultKey(h corpus.Handle, name string) string { return h.String() + "/" + name }

func (s *Scene) GetProperty(h corpus.Handle, name string) (any, error) {
	if err := s.faults[faultKey(h, name)]; err != nil {
		return nil, err
	}
	def, values, err := s.entity(h)
	if err != nil {
		return nil, err
	}
	p, ok := def.find(name)
	if !ok {
		return nil, fmt.Errorf("property %s on %s: %w", name, h, corpus.ErrNotFound)
	}
	if v, ok := values[name]; ok {
		return v, nil
	}
	return p.Default, nil
}

func (s *Scene) SetProperty(h corpus.Handle, name string, v any) error {
	if err := s.faults[faultKey(h, name)]; err != nil {
		return err
	}
	def, values, err := s.entity(h)
	if err != nil {
		return err
	}
	p, ok := def.find(name)
	if !ok {
		return fmt.Errorf("property %s on %s: %w", name, h, corpus.ErrNotFound)
	}
	if _, err := property.Encode(v, p.Type); err != nil {
		return fmt.Errorf("set %s on %s: %w", name, h, err)
	}
	values[name] = v
	return nil
}

func (s *Scene) SchemaName(h corpus.Handle) string {
	switch h.Kind {
	case corpus.KindMaterial:
		if m, ok := s.materials[h.ID]; ok {
			return m.schema
		}
	case corpus.KindBehavior:
		if b, ok := s.behaviors[h.ID]; ok {
			return b.schema
		}
	}
	return ""
}

// SetSchema switches the shader or behavior type. Values reset to the new defaults.
func (s *Scene) SetSchema(h corpus.Handle, schema string) error {
	switch h.Kind {
	case corpus.KindMaterial:
		m, ok := s.materials[h.ID]
		if !ok {
			return fmt.Errorf("%s: %w", h, corpus.ErrNotFound)
		}
		if _, ok := s.shaders[schema]; !ok {
			return fmt.Errorf("unknown shader %q", schema)
		}
		m.schema = schema
		m.values = map[string]any{}
		return nil
	case corpus.KindBehavior:
		b, ok := s.behaviors[h.ID]
		if !ok {
			return fmt.Errorf("%s: %w", h, corpus.ErrNotFound)
		}
		if _, ok := s.behaviorTypes[schema]; !ok {
			return fmt.Errorf("unknown behavior type %q", schema)
		}
		b.schema = schema
		b.values = map[string]any{}
		return nil
	}
	return fmt.Errorf("%s has no schema", h)
}

func (s *Scene) SchemaProperties(kind corpus.Kind, schema string) ([]property.Info, error) {
	var defs map[string]*schemaDef
	switch kind {
	case corpus.KindMaterial:
		defs = s.shaders
	case corpus.KindBehavior:
		defs = s.behaviorTypes
	default:
		return nil, fmt.Errorf("%s entities have no schema", kind)
	}
	def, ok := defs[schema]
	if !ok {
		return nil, fmt.Errorf("schema %q: %w", schema, corpus.ErrNotFound)
	}
	return infos(def), nil
}

func (s *Scene) texture(h corpus.Handle) (*texture, error) {
	t, ok := s.textures[h.ID]
	if h.Kind != corpus.KindTexture || !ok {
		return nil, fmt.Errorf("%s: %w", h, corpus.ErrNotFound)
	}
	return t, nil
}

func (s *Scene) TextureSettings(h corpus.Handle) (corpus.TextureSettings, error) {
	t, err := s.texture(h)
	if err != nil {
		return corpus.TextureSettings{}, err
	}
	return t.settings, nil
}

func (s *Scene) SetTextureSettings(h corpus.Handle, settings corpus.TextureSettings) error {
	t, err := s.texture(h)
	if err != nil {
		return err
	}
	t.settings = settings
	return nil
}

// OpenAsset streams the bytes of a texture asset, from memory or from its source file
// relative to the scene document.
func (s *Scene) OpenAsset(path string) (io.ReadCloser, error) {
	for _, t := range s.textures {
		if t.path != path {
			continue
		}
		if t.data != nil {
			return io.NopCloser(bytes.NewReader(t.data)), nil
		}
		if t.source == "" {
			return nil, fmt.Errorf("asset %s has no data", path)
		}
		src := t.source
		if !filepath.IsAbs(src) {
			src = filepath.Join(s.baseDir, src)
		}
		return os.Open(src)
	}
	return nil, fmt.Errorf("asset %s: %w", path, corpus.ErrNotFound)
}

func (s *Scene) Environment() map[string]string {
	out := map[string]string{"host": "memory"}
	for k, v := range s.env {
		out[k] = v
	}
	return out
}

// InjectFault makes reads and writes of one property fail with err. A nil err clears it.
func (s *Scene) InjectFault(h corpus.Handle, name string, err error) {
	if err == nil {
		delete(s.faults, faultKey(h, name))
		return
	}
	s.faults[faultKey(h, name)] = err
}

// FindNode is a convenience lookup by path.
func (s *Scene) FindNode(path string) (corpus.Handle, bool) {
	return corpus.FindByPath(s, strings.TrimPrefix(path, "/"))
}
