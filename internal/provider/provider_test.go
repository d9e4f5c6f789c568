package provider

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/corpus/memory"
	"github.com/rowjay/scenesnap/internal/property"
	"github.com/rowjay/scenesnap/internal/scope"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

func fixture(t *testing.T) (*memory.Scene, corpus.Handle) {
	t.Helper()
	s := memory.New()
	s.DefineShader("Lit", memory.PropertyDef{Name: "_MainTex", Type: property.TagAssetReference})
	s.DefineBehaviorType("Spin", memory.PropertyDef{Name: "speed", Type: property.TagFloat, Default: 90.0})
	s.AddTexture("Assets/Bark.png", corpus.TextureSettings{MaxSize: 1024}, []byte("bark"))
	s.AddTexture("Assets/Unused.png", corpus.TextureSettings{MaxSize: 64}, []byte("unused"))

	root := s.AddNode(corpus.Handle{}, "Tree")
	trunk := s.AddNode(root, "Trunk")
	mat, err := s.AddMaterial("Assets/Bark.mat", "Lit")
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(mat, "_MainTex", property.ObjectRef{Path: "Assets/Bark.png"}))
	require.NoError(t, s.AttachMaterial(trunk, mat))
	_, err = s.AddBehavior(trunk, "Spin")
	require.NoError(t, err)
	return s, root
}

func TestNewProvider(t *testing.T) {
	for kind, name := range map[string]string{"": "full", "FULL": "full", "materials": "materials"} {
		p, err := New(kind, Options{Log: zerolog.Nop()})
		require.NoError(t, err, kind)
		assert.Equal(t, name, p.Name())
	}
	_, err := New("partial", Options{})
	assert.Error(t, err)
}

func TestFullCaptureOfSubtree(t *testing.T) {
	s, root := fixture(t)
	p, err := New("full", Options{Log: zerolog.Nop()})
	require.NoError(t, err)

	res, err := p.Capture(s, scope.Subtree(root), snapshot.Categories)
	require.NoError(t, err)
	snap := res.Snapshot

	assert.Equal(t, "Tree", snap.Manifest.TargetIdentity)
	assert.Equal(t, "subtree", snap.Manifest.ScopeKind)
	assert.Equal(t, "full", snap.Manifest.Provider)
	assert.Equal(t, "memory", snap.Manifest.HostEnvironment["host"])
	assert.Empty(t, res.Unsupported)

	require.Len(t, snap.Materials, 1)
	assert.Equal(t, "Assets/Bark.mat", snap.Materials[0].AssetPath)
	require.Len(t, snap.Behaviors, 1)
	assert.Equal(t, "Tree/Trunk", snap.Behaviors[0].OwnerPath)
	require.Len(t, snap.Nodes, 2)

	// Only the texture referenced from the subtree is in scope.
	require.Len(t, snap.Textures, 1)
	assert.Equal(t, 1024, snap.Textures[0].MaxSize)
	require.Len(t, snap.Assets, 1)
	assert.Equal(t, snapshot.SHA256([]byte("bark")), snap.Assets[0].Hash)
	assert.Equal(t, 1, res.Stats[snapshot.CategoryAssets].Entities)
}

func TestMaterialsProviderReportsUnsupported(t *testing.T) {
	s, _ := fixture(t)
	p := NewMaterialsProvider(Options{Log: zerolog.Nop()})

	res, err := p.Capture(s, scope.Corpus(), []snapshot.Category{snapshot.CategoryMaterials, snapshot.CategoryHierarchy})
	require.NoError(t, err)
	assert.Equal(t, []snapshot.Category{snapshot.CategoryHierarchy}, res.Unsupported)
	assert.Len(t, res.Snapshot.Materials, 1)
	assert.Nil(t, res.Snapshot.Nodes)
	assert.Equal(t, "corpus", res.Snapshot.Manifest.TargetIdentity)
}

func TestCaptureRejectsInvalidScope(t *testing.T) {
	s, _ := fixture(t)
	p := NewFullProvider(Options{Log: zerolog.Nop()})
	_, err := p.Capture(s, scope.Entity(corpus.Handle{}), snapshot.Categories)
	assert.Error(t, err)
}
