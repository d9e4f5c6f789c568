package remap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/corpus/memory"
	"github.com/rowjay/scenesnap/internal/property"
)

func TestResolvePrecedence(t *testing.T) {
	m := New(Rules{
		Skip:     []string{"fooPrefix_*", "*_internal", "_Exact"},
		Synonyms: map[string]string{"fooPrefix_x": "_X", "_A": "_B", "_Smoothness": "_Glossiness"},
	})

	tests := []struct {
		name   string
		source string
		target []string
		want   string
		ok     bool
	}{
		{"prefix skip beats synonym", "fooPrefix_x", []string{"_X", "fooPrefix_x"}, "", false},
		{"prefix skip case-insensitive", "FOOPREFIX_y", []string{"FOOPREFIX_y"}, "", false},
		{"suffix skip", "_Tex_Internal", []string{"_Tex_Internal"}, "", false},
		{"exact skip", "_exact", []string{"_exact"}, "", false},
		{"synonym wins", "_Smoothness", []string{"_Smoothness", "_Glossiness"}, "_Glossiness", true},
		{"synonym target missing falls back to verbatim", "_A", []string{"_A"}, "_A", true},
		{"verbatim case-insensitive keeps target spelling", "_color", []string{"_Color"}, "_Color", true},
		{"no match", "_Missing", []string{"_Color"}, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := m.Resolve(tc.source, tc.target)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDefaultRules(t *testing.T) {
	m := Default()
	got, ok := m.Resolve("_Cutoff", []string{"_AlphaCutoff", "_Color"})
	require.True(t, ok)
	assert.Equal(t, "_AlphaCutoff", got)
	assert.True(t, m.Skipped("_MainTex_ST"))
	assert.True(t, m.Skipped("unity_Lightmaps"))

	merged := DefaultRules().Merge(Rules{Synonyms: map[string]string{"_Cutoff": "_Clip"}})
	got, ok = New(merged).Resolve("_Cutoff", []string{"_Clip", "_AlphaCutoff"})
	require.True(t, ok)
	assert.Equal(t, "_Clip", got)
}

func TestApplyIsolatesFailures(t *testing.T) {
	s := memory.New()
	s.DefineShader("Lit",
		memory.PropertyDef{Name: "_Color", Type: property.TagColor},
		memory.PropertyDef{Name: "_AlphaCutoff", Type: property.TagFloat},
		memory.PropertyDef{Name: "_Mode", Type: property.TagInteger},
		memory.PropertyDef{Name: "_Tex", Type: property.TagAssetReference},
	)
	mat, err := s.AddMaterial("Assets/m.mat", "Lit")
	require.NoError(t, err)
	target, err := s.ListProperties(mat)
	require.NoError(t, err)

	entries := []property.Entry{
		{Key: "_Color", Type: property.TagColor, Value: "1,0,0,1"},
		{Key: "_Cutoff", Type: property.TagFloat, Value: "0.5"},
		{Key: "_Mode", Type: property.TagFloat, Value: "1.5"},
		{Key: "_Tex", Type: property.TagAssetReference, Value: "991"},
		{Key: "_Unknown", Type: property.TagFloat, Value: "1"},
	}
	hook := func(key string, v any) (any, error) {
		if ref, ok := v.(property.ObjectRef); ok && !ref.Portable() {
			return nil, fmt.Errorf("%s: %w", key, corpus.ErrNotFound)
		}
		return v, nil
	}
	res := Default().Apply(s, mat, entries, target, hook)
	assert.Equal(t, 2, res.Transferred)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.NotFound)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Messages, 2)

	v, err := s.GetProperty(mat, "_AlphaCutoff")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
}

func TestSwapSchema(t *testing.T) {
	s := memory.New()
	s.DefineShader("Legacy/Standard",
		memory.PropertyDef{Name: "_Color", Type: property.TagColor},
		memory.PropertyDef{Name: "_Smoothness", Type: property.TagFloat},
		memory.PropertyDef{Name: "_MainTex_ST", Type: property.TagVector4},
		memory.PropertyDef{Name: "_Broken", Type: property.TagFloat},
	)
	s.DefineShader("Lit",
		memory.PropertyDef{Name: "_Color", Type: property.TagColor},
		memory.PropertyDef{Name: "_Glossiness", Type: property.TagFloat},
		memory.PropertyDef{Name: "_MainTex_ST", Type: property.TagVector4},
		memory.PropertyDef{Name: "_Broken", Type: property.TagFloat},
	)
	mat, err := s.AddMaterial("Assets/m.mat", "Legacy/Standard")
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(mat, "_Color", property.Color{G: 1, A: 1}))
	require.NoError(t, s.SetProperty(mat, "_Smoothness", 0.8))
	require.NoError(t, s.SetProperty(mat, "_Broken", 1.0))

	boom := errors.New("read-only")
	// Reads of _Broken fail, so it is counted as skipped rather than transferred.
	s.InjectFault(mat, "_Broken", boom)

	res, err := SwapSchema(s, mat, "Lit", Default(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "Lit", s.SchemaName(mat))
	assert.Equal(t, 2, res.Transferred)
	assert.Equal(t, 2, res.Skipped, "_MainTex_ST is skipped, _Broken unreadable")

	v, err := s.GetProperty(mat, "_Glossiness")
	require.NoError(t, err)
	assert.Equal(t, 0.8, v)

	_, err = SwapSchema(s, mat, "Nope", Default(), zerolog.Nop())
	assert.Error(t, err)
}
