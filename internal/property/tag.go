package property

import (
	"fmt"
	"strings"
)

// Tag identifies how a property value is encoded.
type Tag string

const (
	TagInteger        Tag = "Integer"
	TagBoolean        Tag = "Boolean"
	TagFloat          Tag = "Float"
	TagString         Tag = "String"
	TagColor          Tag = "Color"
	TagVector2        Tag = "Vector2"
	TagVector3        Tag = "Vector3"
	TagVector4        Tag = "Vector4"
	TagQuaternion     Tag = "Quaternion"
	TagRect           Tag = "Rect"
	TagBounds         Tag = "Bounds"
	TagAssetReference Tag = "AssetReference"
	TagEnum           Tag = "Enum"
	TagArraySize      Tag = "ArraySize"
	TagLayerMask      Tag = "LayerMask"
	TagUnsupported    Tag = "Unsupported"
)

var allTags = []Tag{
	TagInteger, TagBoolean, TagFloat, TagString, TagColor, TagVector2, TagVector3, TagVector4,
	TagQuaternion, TagRect, TagBounds, TagAssetReference, TagEnum, TagArraySize, TagLayerMask,
	TagUnsupported,
}

// Tags returns the closed tag set.
func Tags() []Tag {
	return append([]Tag(nil), allTags...)
}

// ParseTag matches a tag name case-insensitively.
func ParseTag(name string) (Tag, error) {
	for _, t := range allTags {
		if strings.EqualFold(string(t), strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown property type: %q", name)
}

func (t Tag) String() string { return string(t) }

// Components is the scalar count of a composite tag, 0 for scalar tags.
func (t Tag) Components() int {
	switch t {
	case TagVector2:
		return 2
	case TagVector3:
		return 3
	case TagColor, TagVector4, TagQuaternion, TagRect:
		return 4
	case TagBounds:
		return 6
	default:
		return 0
	}
}

// Composite reports whether values of t encode as a component list.
func (t Tag) Composite() bool { return t.Components() > 0 }

// Supported reports whether t is a member of the set and can be encoded.
func (t Tag) Supported() bool {
	if t == TagUnsupported {
		return false
	}
	for _, known := range allTags {
		if known == t {
			return true
		}
	}
	return false
}

// Info describes a property exposed by an entity's schema.
type Info struct {
	Name string
	Type Tag
}

// Entry is one recorded property: Value is the canonical encoding for Type.
type Entry struct {
	Key   string `json:"key"`
	Type  Tag    `json:"type"`
	Value string `json:"value"`
}
