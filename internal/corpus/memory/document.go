package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/property"
)

type document struct {
	Environment   map[string]string `yaml:"environment,omitempty"`
	Shaders       []schemaDoc       `yaml:"shaders"`
	BehaviorTypes []schemaDoc       `yaml:"behavior_types,omitempty"`
	Textures      []textureDoc      `yaml:"textures,omitempty"`
	Materials     []materialDoc     `yaml:"materials,omitempty"`
	Nodes         []nodeDoc         `yaml:"nodes"`
}

type schemaDoc struct {
	Name       string        `yaml:"name"`
	Properties []propertyDoc `yaml:"properties"`
}

type propertyDoc struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Default string `yaml:"default,omitempty"`
}

type textureDoc struct {
	Path        string `yaml:"path"`
	Source      string `yaml:"source,omitempty"`
	MaxSize     int    `yaml:"max_size"`
	Compression string `yaml:"compression"`
	Crunched    bool   `yaml:"crunched"`
	Quality     int    `yaml:"quality"`
	Format      string `yaml:"format"`
}

type materialDoc struct {
	Path       string            `yaml:"path,omitempty"`
	Shader     string            `yaml:"shader"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

type behaviorDoc struct {
	Type       string            `yaml:"type"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

type nodeDoc struct {
	Name      string        `yaml:"name"`
	Active    *bool         `yaml:"active,omitempty"`
	Position  string        `yaml:"position,omitempty"`
	Rotation  string        `yaml:"rotation,omitempty"`
	Scale     string        `yaml:"scale,omitempty"`
	Materials []string      `yaml:"materials,omitempty"`
	Instances []materialDoc `yaml:"instance_materials,omitempty"`
	Behaviors []behaviorDoc `yaml:"behaviors,omitempty"`
	Children  []nodeDoc     `yaml:"children,omitempty"`
}

// Load reads a YAML scene document.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	s, err := fromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("build scene %s: %w", path, err)
	}
	s.baseDir = filepath.Dir(path)
	return s, nil
}

// Save writes the scene back as a YAML document.
func Save(s *Scene, path string) error {
	doc, err := s.toDocument()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	return os.Rename(tmp, path)
}

func fromDocument(doc document) (*Scene, error) {
	s := New()
	for k, v := range doc.Environment {
		s.SetEnvironment(k, v)
	}
	for _, sd := range doc.Shaders {
		props, err := schemaProps(sd)
		if err != nil {
			return nil, err
		}
		s.DefineShader(sd.Name, props...)
	}
	for _, sd := range doc.BehaviorTypes {
		props, err := schemaProps(sd)
		if err != nil {
			return nil, err
		}
		s.DefineBehaviorType(sd.Name, props...)
	}
	for _, td := range doc.Textures {
		h := s.AddTexture(td.Path, corpus.TextureSettings{
			MaxSize:                  td.MaxSize,
			CompressionMode:          td.Compression,
			UseAggressiveCompression: td.Crunched,
			CompressionQuality:       td.Quality,
			PlatformFormat:           td.Format,
		}, nil)
		s.textures[h.ID].source = td.Source
	}
	byPath := map[string]corpus.Handle{}
	for _, md := range doc.Materials {
		h, err := s.addMaterialDoc(md)
		if err != nil {
			return nil, err
		}
		if md.Path != "" {
			byPath[md.Path] = h
		}
	}
	for _, nd := range doc.Nodes {
		if err := s.addNodeDoc(corpus.Handle{}, nd, byPath); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func schemaProps(sd schemaDoc) ([]PropertyDef, error) {
	props := make([]PropertyDef, 0, len(sd.Properties))
	for _, pd := range sd.Properties {
		tag, err := property.ParseTag(pd.Type)
		if err != nil {
			return nil, fmt.Errorf("schema %s property %s: %w", sd.Name, pd.Name, err)
		}
		def := PropertyDef{Name: pd.Name, Type: tag}
		switch {
		case !tag.Supported():
		case pd.Default == "":
			def.Default = zeroValue(tag)
		default:
			if def.Default, err = property.Decode(pd.Default, tag); err != nil {
				return nil, fmt.Errorf("schema %s property %s default: %w", sd.Name, pd.Name, err)
			}
		}
		props = append(props, def)
	}
	return props, nil
}

func zeroValue(tag property.Tag) any {
	zero := "0"
	if n := tag.Components(); n > 0 {
		zero = strings.TrimSuffix(strings.Repeat("0,", n), ",")
	}
	if tag == property.TagString || tag == property.TagAssetReference {
		zero = ""
	}
	v, _ := property.Decode(zero, tag)
	return v
}

func (s *Scene) addMaterialDoc(md materialDoc) (corpus.Handle, error) {
	h, err := s.AddMaterial(md.Path, md.Shader)
	if err != nil {
		return corpus.Handle{}, err
	}
	if err := s.applyValues(h, md.Properties); err != nil {
		return corpus.Handle{}, err
	}
	return h, nil
}

func (s *Scene) applyValues(h corpus.Handle, values map[string]string) error {
	def, _, err := s.entity(h)
	if err != nil {
		return err
	}
	for name, raw := range values {
		p, ok := def.find(name)
		if !ok {
			return fmt.Errorf("%s has no property %s", def.name, name)
		}
		v, err := property.Decode(raw, p.Type)
		if err != nil {
			return err
		}
		if err := s.SetProperty(h, name, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) addNodeDoc(parent corpus.Handle, nd nodeDoc, materials map[string]corpus.Handle) error {
	h := s.AddNode(parent, nd.Name)
	n := s.nodes[h.ID]
	if nd.Active != nil {
		n.active = *nd.Active
	}
	if err := decodeInto(nd.Position, property.TagVector3, &n.transform.LocalPosition); err != nil {
		return fmt.Errorf("node %s position: %w", nd.Name, err)
	}
	if err := decodeInto(nd.Rotation, property.TagQuaternion, &n.transform.LocalRotation); err != nil {
		return fmt.Errorf("node %s rotation: %w", nd.Name, err)
	}
	if err := decodeInto(nd.Scale, property.TagVector3, &n.transform.LocalScale); err != nil {
		return fmt.Errorf("node %s scale: %w", nd.Name, err)
	}
	for _, path := range nd.Materials {
		m, ok := materials[path]
		if !ok {
			return fmt.Errorf("node %s references unknown material %s", nd.Name, path)
		}
		n.materials = append(n.materials, m.ID)
	}
	for _, md := range nd.Instances {
		md.Path = ""
		m, err := s.addMaterialDoc(md)
		if err != nil {
			return err
		}
		n.materials = append(n.materials, m.ID)
	}
	for _, bd := range nd.Behaviors {
		b, err := s.AddBehavior(h, bd.Type)
		if err != nil {
			return err
		}
		if err := s.applyValues(b, bd.Properties); err != nil {
			return err
		}
	}
	for _, child := range nd.Children {
		if err := s.addNodeDoc(h, child, materials); err != nil {
			return err
		}
	}
	return nil
}

func decodeInto[T any](raw string, tag property.Tag, dst *T) error {
	if raw == "" {
		return nil
	}
	v, err := property.Decode(raw, tag)
	if err != nil {
		return err
	}
	*dst = v.(T)
	return nil
}

func (s *Scene) toDocument() (document, error) {
	doc := document{Environment: s.env}
	doc.Shaders = schemaDocs(s.shaders)
	doc.BehaviorTypes = schemaDocs(s.behaviorTypes)
	for _, h := range s.Assets(corpus.KindTexture) {
		t := s.textures[h.ID]
		doc.Textures = append(doc.Textures, textureDoc{
			Path:        t.path,
			Source:      t.source,
			MaxSize:     t.settings.MaxSize,
			Compression: t.settings.CompressionMode,
			Crunched:    t.settings.UseAggressiveCompression,
			Quality:     t.settings.CompressionQuality,
			Format:      t.settings.PlatformFormat,
		})
	}
	for _, h := range s.Assets(corpus.KindMaterial) {
		md, err := s.materialDoc(h)
		if err != nil {
			return document{}, err
		}
		doc.Materials = append(doc.Materials, md)
	}
	for _, id := range s.roots {
		nd, err := s.nodeDoc(id)
		if err != nil {
			return document{}, err
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	return doc, nil
}

func schemaDocs(defs map[string]*schemaDef) []schemaDoc {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]schemaDoc, 0, len(names))
	for _, name := range names {
		sd := schemaDoc{Name: name}
		for _, p := range defs[name].props {
			pd := propertyDoc{Name: p.Name, Type: string(p.Type)}
			if p.Default != nil {
				pd.Default, _ = property.Encode(p.Default, p.Type)
			}
			sd.Properties = append(sd.Properties, pd)
		}
		out = append(out, sd)
	}
	return out
}

func (s *Scene) encodedValues(def *schemaDef, values map[string]any) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for name, v := range values {
		p, ok := def.find(name)
		if !ok {
			continue
		}
		encoded, err := property.Encode(v, p.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.name, name, err)
		}
		out[name] = encoded
	}
	return out, nil
}

func (s *Scene) materialDoc(h corpus.Handle) (materialDoc, error) {
	m := s.materials[h.ID]
	def, values, err := s.entity(h)
	if err != nil {
		return materialDoc{}, err
	}
	props, err := s.encodedValues(def, values)
	if err != nil {
		return materialDoc{}, err
	}
	return materialDoc{Path: m.path, Shader: m.schema, Properties: props}, nil
}

func (s *Scene) nodeDoc(id int64) (nodeDoc, error) {
	n := s.nodes[id]
	active := n.active
	nd := nodeDoc{Name: n.name, Active: &active}
	nd.Position, _ = property.Encode(n.transform.LocalPosition, property.TagVector3)
	nd.Rotation, _ = property.Encode(n.transform.LocalRotation, property.TagQuaternion)
	nd.Scale, _ = property.Encode(n.transform.LocalScale, property.TagVector3)
	for _, mid := range n.materials {
		mh := corpus.Handle{Kind: corpus.KindMaterial, ID: mid}
		if m := s.materials[mid]; m.path != "" {
			nd.Materials = append(nd.Materials, m.path)
			continue
		}
		md, err := s.materialDoc(mh)
		if err != nil {
			return nodeDoc{}, err
		}
		nd.Instances = append(nd.Instances, md)
	}
	for _, bid := range n.behaviors {
		bh := corpus.Handle{Kind: corpus.KindBehavior, ID: bid}
		def, values, err := s.entity(bh)
		if err != nil {
			return nodeDoc{}, err
		}
		props, err := s.encodedValues(def, values)
		if err != nil {
			return nodeDoc{}, err
		}
		nd.Behaviors = append(nd.Behaviors, behaviorDoc{Type: def.name, Properties: props})
	}
	for _, c := range n.children {
		cd, err := s.nodeDoc(c)
		if err != nil {
			return nodeDoc{}, err
		}
		nd.Children = append(nd.Children, cd)
	}
	return nd, nil
}
