// Package corpus defines the capabilities a host scene must expose to be captured
// and restored. The snapshot engine never depends on a concrete entity shape.
package corpus

import (
	"errors"
	"fmt"
	"io"

	"github.com/rowjay/scenesnap/internal/property"
)

// ErrNotFound is returned when an identity or name cannot be resolved.
var ErrNotFound = errors.New("entity not found")

// Kind is the category of a capturable entity.
type Kind string

const (
	KindNode     Kind = "node"
	KindMaterial Kind = "material"
	KindBehavior Kind = "behavior"
	KindTexture  Kind = "texture"
)

// Handle is a runtime reference to an entity. ID is only stable within one session.
type Handle struct {
	Kind Kind
	ID   int64
}

func (h Handle) String() string { return fmt.Sprintf("%s#%d", h.Kind, h.ID) }

// Valid reports whether h points at anything.
func (h Handle) Valid() bool { return h.Kind != "" && h.ID != 0 }

type Transform struct {
	LocalPosition property.Vector3
	LocalRotation property.Quaternion
	LocalScale    property.Vector3
}

// TextureSettings are the import settings of a texture asset.
type TextureSettings struct {
	MaxSize                  int
	CompressionMode          string
	UseAggressiveCompression bool
	CompressionQuality       int
	PlatformFormat           string
}

// Graph is the node hierarchy.
type Graph interface {
	Roots() []Handle
	Children(node Handle) []Handle
	Parent(node Handle) (Handle, bool)
	Name(node Handle) string
	Active(node Handle) bool
	SetActive(node Handle, active bool) error
	Transform(node Handle) (Transform, error)
	SetTransform(node Handle, t Transform) error
}

// Properties is the dynamically typed property surface of materials and behaviors.
type Properties interface {
	ListProperties(h Handle) ([]property.Info, error)
	GetProperty(h Handle, name string) (any, error)
	SetProperty(h Handle, name string, v any) error
}

// Schemas exposes the shader or behavior type driving an entity's property set.
type Schemas interface {
	SchemaName(h Handle) string
	SetSchema(h Handle, schema string) error
	SchemaProperties(kind Kind, schema string) ([]property.Info, error)
}

// Host is everything the snapshot engine consumes from the corpus.
type Host interface {
	Graph
	Properties
	Schemas

	// Assets lists every asset-backed entity of kind.
	Assets(kind Kind) []Handle
	// Attached lists the materials or behaviors carried by node.
	Attached(node Handle, kind Kind) []Handle
	// Identity returns the stable asset path of h, if it has one.
	Identity(h Handle) (string, bool)
	ResolveByIdentity(kind Kind, path string) (Handle, bool)

	TextureSettings(texture Handle) (TextureSettings, error)
	SetTextureSettings(texture Handle, s TextureSettings) error
}

// AssetSource is implemented by hosts that can stream raw asset bytes.
type AssetSource interface {
	OpenAsset(path string) (io.ReadCloser, error)
}

// Environment is implemented by hosts that describe themselves in snapshot manifests.
type Environment interface {
	Environment() map[string]string
}
