package property

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		tag  Tag
		val  any
	}{
		{"int zero", TagInteger, int64(0)},
		{"int min", TagInteger, int64(math.MinInt64)},
		{"int max", TagInteger, int64(math.MaxInt64)},
		{"bool true", TagBoolean, true},
		{"bool false", TagBoolean, false},
		{"float half", TagFloat, 0.5},
		{"float max", TagFloat, math.MaxFloat64},
		{"float min", TagFloat, -math.MaxFloat64},
		{"float smallest", TagFloat, math.SmallestNonzeroFloat64},
		{"float inf", TagFloat, math.Inf(1)},
		{"string empty", TagString, ""},
		{"string commas", TagString, "a,b;c\\d"},
		{"color", TagColor, Color{1, 0, 0, 1}},
		{"vector2 zero", TagVector2, Vector2{}},
		{"vector3", TagVector3, Vector3{-1.25, 2, 1e-7}},
		{"vector4 zero", TagVector4, Vector4{}},
		{"quaternion identity", TagQuaternion, Quaternion{0, 0, 0, 1}},
		{"rect", TagRect, Rect{0, 0, 1920, 1080}},
		{"bounds", TagBounds, Bounds{Center: Vector3{1, 2, 3}, Extents: Vector3{0.5, 0.5, math.MaxFloat64}}},
		{"ref path", TagAssetReference, ObjectRef{Path: "Assets/Textures/Brick.png"}},
		{"ref runtime", TagAssetReference, ObjectRef{InstanceID: -14220}},
		{"ref null", TagAssetReference, ObjectRef{}},
		{"enum ordinal", TagEnum, Enum{Ordinal: 3}},
		{"enum name", TagEnum, Enum{Name: "Fade", Ordinal: -1}},
		{"array size", TagArraySize, ArraySize(0)},
		{"layer mask all", TagLayerMask, LayerMask(math.MaxUint32)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Encode(tc.val, tc.tag)
			require.NoError(t, err)
			decoded, err := Decode(encoded, tc.tag)
			require.NoError(t, err)
			assert.Equal(t, tc.val, decoded)
		})
	}
}

func TestEncodeCanonicalText(t *testing.T) {
	s, err := Encode(Vector3{1, 2, 3}, TagVector3)
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", s)

	s, err = Encode(Color{1, 0, 0, 1}, TagColor)
	require.NoError(t, err)
	assert.Equal(t, "1,0,0,1", s)

	s, err = Encode(0.5, TagFloat)
	require.NoError(t, err)
	assert.Equal(t, "0.5", s)

	s, err = Encode(float32(0.1), TagFloat)
	require.NoError(t, err)
	assert.Equal(t, "0.1", s)

	s, err = Encode(Enum{Name: "Opaque", Ordinal: 0}, TagEnum)
	require.NoError(t, err)
	assert.Equal(t, "Opaque", s)
}

func TestAssetReferencePrecedence(t *testing.T) {
	s, err := Encode(ObjectRef{Path: "Assets/a.png", InstanceID: 42}, TagAssetReference)
	require.NoError(t, err)
	assert.Equal(t, "Assets/a.png", s)

	s, err = Encode(ObjectRef{InstanceID: 42}, TagAssetReference)
	require.NoError(t, err)
	assert.Equal(t, "42", s)

	s, err = Encode(nil, TagAssetReference)
	require.NoError(t, err)
	assert.Equal(t, "null", s)

	v, err := Decode("42", TagAssetReference)
	require.NoError(t, err)
	assert.False(t, v.(ObjectRef).Portable())
}

func TestAssetReferencePathsThatLookLikeIDs(t *testing.T) {
	cases := map[string]string{
		"1024":         `\1024`,
		"null":         `\null`,
		`\share\a.png`: `\\share\a.png`,
		"Assets/7.png": "Assets/7.png",
	}
	for path, want := range cases {
		s, err := Encode(ObjectRef{Path: path}, TagAssetReference)
		require.NoError(t, err)
		assert.Equal(t, want, s, path)

		v, err := Decode(s, TagAssetReference)
		require.NoError(t, err)
		assert.Equal(t, ObjectRef{Path: path}, v, path)
		assert.True(t, v.(ObjectRef).Portable(), path)
	}
}

func TestDecodeRejectsComponentMismatch(t *testing.T) {
	for _, in := range []string{"1,2", "1,2,3,4", "", "1,,3"} {
		_, err := Decode(in, TagVector3)
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr, in)
		assert.Equal(t, TagVector3, decErr.Tag)
	}
	_, err := Decode("1,0,0", TagColor)
	assert.Error(t, err)
}

func TestUnsupported(t *testing.T) {
	_, err := Encode(struct{}{}, TagUnsupported)
	assert.True(t, errors.Is(err, ErrUnsupported))
	_, err = Decode("x", TagUnsupported)
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.False(t, TagUnsupported.Supported())
	assert.False(t, Tag("Curve").Supported())
}

func TestEncodeTypeMismatch(t *testing.T) {
	_, err := Encode("1", TagInteger)
	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	_, err = Encode(Vector2{}, TagVector3)
	assert.ErrorAs(t, err, &encErr)
}

func TestConvert(t *testing.T) {
	v, err := Convert(Entry{Key: "_Tint", Type: TagColor, Value: "1,0.5,0,1"}, TagVector4)
	require.NoError(t, err)
	assert.Equal(t, Vector4{1, 0.5, 0, 1}, v)

	v, err = Convert(Entry{Key: "_Count", Type: TagInteger, Value: "3"}, TagFloat)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = Convert(Entry{Key: "_On", Type: TagBoolean, Value: "true"}, TagInteger)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = Convert(Entry{Key: "_Cutoff", Type: TagFloat, Value: "0.5"}, TagInteger)
	assert.Error(t, err)
}

func TestParseTag(t *testing.T) {
	tag, err := ParseTag("vector3")
	require.NoError(t, err)
	assert.Equal(t, TagVector3, tag)
	_, err = ParseTag("AnimationCurve")
	assert.Error(t, err)
	assert.Len(t, Tags(), 16)
}
