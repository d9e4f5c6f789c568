package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rowjay/scenesnap/internal/property"
)

const FormatVersion = 1

// Category names one independently persisted record list.
type Category string

const (
	CategoryMaterials Category = "materials"
	CategoryBehaviors Category = "behaviors"
	CategoryTextures  Category = "textures"
	CategoryHierarchy Category = "hierarchy"
	CategoryAssets    Category = "assets"
)

// Categories in write order.
var Categories = []Category{CategoryMaterials, CategoryBehaviors, CategoryTextures, CategoryHierarchy, CategoryAssets}

// FileName is the on-disk file of a category.
func (c Category) FileName() string {
	if c == CategoryAssets {
		return "assets.csv"
	}
	return string(c) + ".json"
}

// ParseCategories parses a list of category names; an empty list selects all.
func ParseCategories(names []string) ([]Category, error) {
	if len(names) == 0 {
		return append([]Category(nil), Categories...), nil
	}
	set := map[Category]bool{}
	for _, n := range names {
		c := Category(strings.ToLower(strings.TrimSpace(n)))
		switch c {
		case CategoryMaterials, CategoryBehaviors, CategoryTextures, CategoryHierarchy, CategoryAssets:
			set[c] = true
		case "nodes":
			set[CategoryHierarchy] = true
		default:
			return nil, fmt.Errorf("unknown category: %s", n)
		}
	}
	return orderedCategories(set), nil
}

func orderedCategories(set map[Category]bool) []Category {
	out := []Category{}
	for _, c := range Categories {
		if set[c] {
			out = append(out, c)
		}
	}
	return out
}

type MaterialRecord struct {
	AssetPath  string           `json:"assetPath"`
	ShaderName string           `json:"shaderName"`
	Properties []property.Entry `json:"properties"`
}

// Restorable reports whether the record can be matched to a live material.
func (r MaterialRecord) Restorable() bool { return r.AssetPath != "" }

type BehaviorRecord struct {
	OwnerPath    string           `json:"ownerPath"`
	BehaviorType string           `json:"behaviorTypeName"`
	Properties   []property.Entry `json:"properties"`
}

type TextureRecord struct {
	AssetPath                string `json:"assetPath"`
	MaxSize                  int    `json:"maxSize"`
	CompressionMode          string `json:"compressionMode"`
	UseAggressiveCompression bool   `json:"useAggressiveCompression"`
	CompressionQuality       int    `json:"compressionQuality"`
	PlatformFormat           string `json:"platformFormat"`
}

// NodeRecord stores vectors in the property codec's canonical component form.
type NodeRecord struct {
	Path          string `json:"path"`
	LocalPosition string `json:"localPosition"`
	LocalRotation string `json:"localRotation"`
	LocalScale    string `json:"localScale"`
	IsActive      bool   `json:"isActive"`
}

// AssetRow is one line of assets.csv.
type AssetRow struct {
	Path      string
	SizeBytes int64
	Hash      string
}

type Manifest struct {
	FormatVersion     int               `json:"formatVersion"`
	ID                string            `json:"id"`
	Label             string            `json:"label,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	ScopeKind         string            `json:"scopeKind"`
	TargetIdentity    string            `json:"targetIdentity"`
	CategoriesPresent []Category        `json:"categoriesPresent"`
	Counts            map[Category]int  `json:"counts,omitempty"`
	Provider          string            `json:"provider,omitempty"`
	HostEnvironment   map[string]string `json:"hostEnvironmentInfo,omitempty"`
	ToolVersion       string            `json:"toolVersion,omitempty"`
}

// Has reports whether c was captured.
func (m Manifest) Has(c Category) bool {
	for _, p := range m.CategoriesPresent {
		if p == c {
			return true
		}
	}
	return false
}

// Snapshot is the in-memory aggregate of one capture. A nil category slice means the
// category was not requested or not present on disk.
type Snapshot struct {
	Manifest  Manifest
	Materials []MaterialRecord
	Behaviors []BehaviorRecord
	Textures  []TextureRecord
	Nodes     []NodeRecord
	Assets    []AssetRow
	// Path is the folder or bundle file the snapshot was read from.
	Path string
}

// Present lists the categories carried by s, in write order.
func (s *Snapshot) Present() []Category {
	set := map[Category]bool{
		CategoryMaterials: s.Materials != nil,
		CategoryBehaviors: s.Behaviors != nil,
		CategoryTextures:  s.Textures != nil,
		CategoryHierarchy: s.Nodes != nil,
		CategoryAssets:    s.Assets != nil,
	}
	return orderedCategories(set)
}

func (s *Snapshot) count(c Category) int {
	switch c {
	case CategoryMaterials:
		return len(s.Materials)
	case CategoryBehaviors:
		return len(s.Behaviors)
	case CategoryTextures:
		return len(s.Textures)
	case CategoryHierarchy:
		return len(s.Nodes)
	case CategoryAssets:
		return len(s.Assets)
	}
	return 0
}
