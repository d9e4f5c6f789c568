package capture

import (
	"errors"
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

func TestPropertiesSkipsReservedNestedAndUnsupported(t *testing.T) {
	s := memory.New()
	s.DefineBehaviorType("Mover",
		memory.PropertyDef{Name: "m_Script", Type: property.TagAssetReference},
		memory.PropertyDef{Name: "m_ObjectHideFlags", Type: property.TagInteger},
		memory.PropertyDef{Name: "speed", Type: property.TagFloat, Default: 2.5},
		memory.PropertyDef{Name: "path.points", Type: property.TagArraySize},
		memory.PropertyDef{Name: "curve", Type: property.TagUnsupported},
		memory.PropertyDef{Name: "mode", Type: property.TagEnum, Default: property.Enum{Name: "Loop"}},
		memory.PropertyDef{Name: "broken", Type: property.TagInteger},
	)
	root := s.AddNode(corpus.Handle{}, "Root")
	b, err := s.AddBehavior(root, "Mover")
	require.NoError(t, err)
	s.InjectFault(b, "broken", errors.New("boom"))

	entries, skipped, err := Serializer{Host: s, Log: zerolog.Nop()}.Properties(b)
	require.NoError(t, err)
	assert.Equal(t, 5, skipped)
	assert.Equal(t, []property.Entry{
		{Key: "speed", Type: property.TagFloat, Value: "2.5"},
		{Key: "mode", Type: property.TagEnum, Value: "Loop"},
	}, entries)
}

func TestSubtreeScenario(t *testing.T) {
	s := memory.New()
	s.DefineShader("Cutout",
		memory.PropertyDef{Name: "_Cutoff", Type: property.TagFloat},
		memory.PropertyDef{Name: "_Color", Type: property.TagColor},
	)
	root := s.AddNode(corpus.Handle{}, "Root")
	left := s.AddNode(root, "Left")
	right := s.AddNode(root, "Right")
	require.NoError(t, s.SetActive(right, false))
	mat, err := s.AddMaterial("Assets/Leaves.mat", "Cutout")
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(mat, "_Cutoff", 0.5))
	require.NoError(t, s.SetProperty(mat, "_Color", property.Color{R: 1, A: 1}))
	require.NoError(t, s.AttachMaterial(left, mat))
	require.NoError(t, s.AttachMaterial(right, mat))

	r := scope.Resolver{Host: s}
	ser := Serializer{Host: s, Log: zerolog.Nop()}

	nodeTargets, err := r.Nodes(scope.Subtree(root))
	require.NoError(t, err)
	nodes, stats := ser.Nodes(nodeTargets)
	require.Len(t, nodes, 3)
	assert.Equal(t, 3, stats.Entities)
	inactive := 0
	for _, n := range nodes {
		if !n.IsActive {
			inactive++
			assert.Equal(t, "Root/Right", n.Path)
		}
	}
	assert.Equal(t, 1, inactive)
	assert.Equal(t, "0,0,0,1", nodes[0].LocalRotation)

	matTargets, err := r.Materials(scope.Subtree(root))
	require.NoError(t, err)
	// Feed the shared material twice to check identity dedup.
	mats, mstats := ser.Materials(append(matTargets, matTargets...))
	require.Len(t, mats, 1)
	assert.Equal(t, 1, mstats.Duplicates)
	assert.Equal(t, snapshot.MaterialRecord{
		AssetPath:  "Assets/Leaves.mat",
		ShaderName: "Cutout",
		Properties: []property.Entry{
			{Key: "_Cutoff", Type: property.TagFloat, Value: "0.5"},
			{Key: "_Color", Type: property.TagColor, Value: "1,0,0,1"},
		},
	}, mats[0])
}

func TestInstanceMaterialIsCaptureOnly(t *testing.T) {
	s := memory.New()
	s.DefineShader("Unlit", memory.PropertyDef{Name: "_Color", Type: property.TagColor})
	root := s.AddNode(corpus.Handle{}, "Root")
	inst, err := s.AddMaterial("", "Unlit")
	require.NoError(t, err)
	require.NoError(t, s.AttachMaterial(root, inst))

	targets, err := scope.Resolver{Host: s}.Materials(scope.Entity(root))
	require.NoError(t, err)
	mats, _ := Serializer{Host: s, Log: zerolog.Nop()}.Materials(targets)
	require.Len(t, mats, 1)
	assert.False(t, mats[0].Restorable())
}

func TestTexturesAndAssets(t *testing.T) {
	s := memory.New()
	s.DefineShader("Std", memory.PropertyDef{Name: "_MainTex", Type: property.TagAssetReference})
	root := s.AddNode(corpus.Handle{}, "Root")
	s.AddTexture("Assets/t.png", corpus.TextureSettings{MaxSize: 512, CompressionMode: "HighQuality", CompressionQuality: 80, PlatformFormat: "ASTC_6x6"}, []byte("abc"))
	mat, err := s.AddMaterial("Assets/m.mat", "Std")
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(mat, "_MainTex", property.ObjectRef{Path: "Assets/t.png"}))
	require.NoError(t, s.AttachMaterial(root, mat))

	targets, err := scope.Resolver{Host: s}.Textures(scope.Subtree(root))
	require.NoError(t, err)
	texs, _ := Serializer{Host: s, Log: zerolog.Nop()}.Textures(targets)
	require.Len(t, texs, 1)
	assert.Equal(t, snapshot.TextureRecord{AssetPath: "Assets/t.png", MaxSize: 512, CompressionMode: "HighQuality", CompressionQuality: 80, PlatformFormat: "ASTC_6x6"}, texs[0])

	rows, stats := Assets(s, []string{"Assets/t.png", "Assets/t.png", "Assets/m.mat"}, snapshot.SHA256, zerolog.Nop())
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].SizeBytes)
	assert.Equal(t, snapshot.SHA256([]byte("abc")), rows[0].Hash)
	assert.Equal(t, 1, stats.Failed)
}
