package restore

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/corpus/memory"
	"github.com/rowjay/scenesnap/internal/property"
	"github.com/rowjay/scenesnap/internal/snapshot"
)

func loaded(s *snapshot.Snapshot) *snapshot.Loaded {
	return &snapshot.Loaded{Snapshot: s, Errors: map[snapshot.Category]error{}, HasManifest: true}
}

func engine(s *memory.Scene) *Engine {
	return &Engine{Host: s, Log: zerolog.Nop()}
}

func TestRestoreRemapsRenamedProperty(t *testing.T) {
	s := memory.New()
	s.DefineShader("Foliage",
		memory.PropertyDef{Name: "_AlphaCutoff", Type: property.TagFloat},
		memory.PropertyDef{Name: "_Color", Type: property.TagColor},
	)
	mat, err := s.AddMaterial("Assets/Leaves.mat", "Foliage")
	require.NoError(t, err)

	snap := &snapshot.Snapshot{Materials: []snapshot.MaterialRecord{{
		AssetPath:  "Assets/Leaves.mat",
		ShaderName: "Cutout",
		Properties: []property.Entry{
			{Key: "_Cutoff", Type: property.TagFloat, Value: "0.5"},
			{Key: "_Color", Type: property.TagColor, Value: "1,0,0,1"},
		},
	}}}

	sum := engine(s).Restore(loaded(snap), []snapshot.Category{snapshot.CategoryMaterials})
	res := sum.Result(snapshot.CategoryMaterials)
	require.NotNil(t, res)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 2, res.Properties.Transferred)
	assert.Equal(t, 1, res.Succeeded)

	v, err := s.GetProperty(mat, "_AlphaCutoff")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
	v, err = s.GetProperty(mat, "_Color")
	require.NoError(t, err)
	assert.Equal(t, property.Color{R: 1, A: 1}, v)
}

func TestRestoreContinuesPastFailures(t *testing.T) {
	s := memory.New()
	s.DefineShader("Lit",
		memory.PropertyDef{Name: "_A", Type: property.TagFloat},
		memory.PropertyDef{Name: "_B", Type: property.TagFloat},
		memory.PropertyDef{Name: "_C", Type: property.TagFloat},
		memory.PropertyDef{Name: "_D", Type: property.TagFloat},
	)
	mat, err := s.AddMaterial("Assets/M.mat", "Lit")
	require.NoError(t, err)
	other, err := s.AddMaterial("Assets/N.mat", "Lit")
	require.NoError(t, err)
	s.InjectFault(mat, "_B", errors.New("locked"))

	entries := []property.Entry{
		{Key: "_A", Type: property.TagFloat, Value: "1"},
		{Key: "_B", Type: property.TagFloat, Value: "2"},
		{Key: "_C", Type: property.TagFloat, Value: "3"},
		{Key: "_D", Type: property.TagFloat, Value: "4"},
	}
	snap := &snapshot.Snapshot{Materials: []snapshot.MaterialRecord{
		{AssetPath: "Assets/M.mat", ShaderName: "Lit", Properties: entries},
		{AssetPath: "Assets/N.mat", ShaderName: "Lit", Properties: entries},
	}}

	res := engine(s).Restore(loaded(snap), nil).Result(snapshot.CategoryMaterials)
	assert.Equal(t, StatePartiallyFailed, res.State)
	assert.Equal(t, 1, res.Properties.Failed)
	assert.Equal(t, 2*len(entries)-1, res.Properties.Transferred)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Messages, 1)
	assert.Contains(t, res.Messages[0], "locked")

	for _, name := range []string{"_A", "_C", "_D"} {
		v, err := s.GetProperty(mat, name)
		require.NoError(t, err)
		assert.NotZero(t, v, name)
	}
	v, err := s.GetProperty(other, "_D")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}

func TestRestoreMissingEntitiesAreWarnings(t *testing.T) {
	s := memory.New()
	s.DefineShader("Lit", memory.PropertyDef{Name: "_MainTex", Type: property.TagAssetReference})
	mat, err := s.AddMaterial("Assets/M.mat", "Lit")
	require.NoError(t, err)

	snap := &snapshot.Snapshot{
		Materials: []snapshot.MaterialRecord{
			{AssetPath: "Assets/Gone.mat", ShaderName: "Lit"},
			{AssetPath: "", ShaderName: "Lit"},
			{AssetPath: "Assets/M.mat", ShaderName: "Lit", Properties: []property.Entry{
				{Key: "_MainTex", Type: property.TagAssetReference, Value: "4711"},
			}},
		},
		Textures: []snapshot.TextureRecord{{AssetPath: "Assets/Gone.png", MaxSize: 512}},
	}

	sum := engine(s).Restore(loaded(snap), nil)
	mats := sum.Result(snapshot.CategoryMaterials)
	assert.Equal(t, StateDone, mats.State)
	assert.Equal(t, 2, mats.Warnings)
	assert.Equal(t, 1, mats.Skipped)
	assert.Equal(t, 1, mats.Properties.NotFound)

	v, err := s.GetProperty(mat, "_MainTex")
	require.NoError(t, err)
	assert.Equal(t, property.ObjectRef{}, v, "runtime references are not written")

	tex := sum.Result(snapshot.CategoryTextures)
	assert.Equal(t, 1, tex.Warnings)
	assert.True(t, sum.OK())
}

func TestRestoreNodes(t *testing.T) {
	s := memory.New()
	root := s.AddNode(corpus.Handle{}, "Root")
	child := s.AddNode(root, "Child")

	snap := &snapshot.Snapshot{Nodes: []snapshot.NodeRecord{
		{Path: "Root/Child", LocalPosition: "1,2,3", LocalRotation: "0,0,0,1", LocalScale: "2,2,2", IsActive: false},
		{Path: "Root/Deleted", LocalPosition: "0,0,0", LocalRotation: "0,0,0,1", LocalScale: "1,1,1", IsActive: true},
		{Path: "Root", LocalPosition: "0,0", LocalRotation: "0,0,0,1", LocalScale: "1,1,1", IsActive: true},
	}}

	res := engine(s).Restore(loaded(snap), []snapshot.Category{snapshot.CategoryHierarchy}).Result(snapshot.CategoryHierarchy)
	assert.Equal(t, StatePartiallyFailed, res.State)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Unsupported)
	assert.Equal(t, 1, res.Failed)

	tr, err := s.Transform(child)
	require.NoError(t, err)
	assert.Equal(t, property.Vector3{X: 1, Y: 2, Z: 3}, tr.LocalPosition)
	assert.Equal(t, property.Vector3{X: 2, Y: 2, Z: 2}, tr.LocalScale)
	assert.False(t, s.Active(child))
	_, ok := s.FindNode("Root/Deleted")
	assert.False(t, ok, "restore never creates nodes")
}

func TestRestoreBehaviorsByOccurrence(t *testing.T) {
	s := memory.New()
	s.DefineBehaviorType("Light", memory.PropertyDef{Name: "intensity", Type: property.TagFloat})
	lamp := s.AddNode(corpus.Handle{}, "Lamp")
	first, err := s.AddBehavior(lamp, "Light")
	require.NoError(t, err)
	second, err := s.AddBehavior(lamp, "Light")
	require.NoError(t, err)

	snap := &snapshot.Snapshot{Behaviors: []snapshot.BehaviorRecord{
		{OwnerPath: "Lamp", BehaviorType: "Light", Properties: []property.Entry{{Key: "intensity", Type: property.TagFloat, Value: "1.5"}}},
		{OwnerPath: "Lamp", BehaviorType: "Light", Properties: []property.Entry{{Key: "intensity", Type: property.TagFloat, Value: "3"}}},
		{OwnerPath: "Lamp", BehaviorType: "Light"},
	}}

	res := engine(s).Restore(loaded(snap), []snapshot.Category{snapshot.CategoryBehaviors}).Result(snapshot.CategoryBehaviors)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Warnings)

	v, _ := s.GetProperty(first, "intensity")
	assert.Equal(t, 1.5, v)
	v, _ = s.GetProperty(second, "intensity")
	assert.Equal(t, 3.0, v)
}

func TestRestoreUnreadableCategoryFails(t *testing.T) {
	s := memory.New()
	s.AddTexture("Assets/T.png", corpus.TextureSettings{MaxSize: 256}, nil)
	l := loaded(&snapshot.Snapshot{Textures: []snapshot.TextureRecord{{AssetPath: "Assets/T.png", MaxSize: 1024}}})
	l.Errors[snapshot.CategoryMaterials] = errors.New("unexpected end of JSON input")

	sum := engine(s).Restore(l, []snapshot.Category{snapshot.CategoryMaterials, snapshot.CategoryTextures})
	assert.Equal(t, StateFailed, sum.Result(snapshot.CategoryMaterials).State)
	assert.Equal(t, StateDone, sum.Result(snapshot.CategoryTextures).State)
	assert.False(t, sum.OK())

	h, _ := s.ResolveByIdentity(corpus.KindTexture, "Assets/T.png")
	settings, err := s.TextureSettings(h)
	require.NoError(t, err)
	assert.Equal(t, 1024, settings.MaxSize)
}

func TestDryRunDoesNotMutate(t *testing.T) {
	s := memory.New()
	s.DefineShader("Lit", memory.PropertyDef{Name: "_Glossiness", Type: property.TagFloat})
	mat, err := s.AddMaterial("Assets/M.mat", "Lit")
	require.NoError(t, err)
	node := s.AddNode(corpus.Handle{}, "Root")
	tex := s.AddTexture("Assets/T.png", corpus.TextureSettings{MaxSize: 256}, nil)

	snap := &snapshot.Snapshot{
		Materials: []snapshot.MaterialRecord{{AssetPath: "Assets/M.mat", ShaderName: "Lit", Properties: []property.Entry{
			{Key: "_Glossiness", Type: property.TagFloat, Value: "0.8"},
		}}},
		Textures: []snapshot.TextureRecord{{AssetPath: "Assets/T.png", MaxSize: 2048}},
		Nodes:    []snapshot.NodeRecord{{Path: "Root", LocalPosition: "5,5,5", LocalRotation: "0,0,0,1", LocalScale: "1,1,1"}},
	}

	e := engine(s)
	e.DryRun = true
	sum := e.Restore(loaded(snap), nil)
	assert.True(t, sum.DryRun)
	assert.Equal(t, 1, sum.Result(snapshot.CategoryMaterials).Properties.Transferred)
	assert.Equal(t, 1, sum.Result(snapshot.CategoryHierarchy).Succeeded)

	v, _ := s.GetProperty(mat, "_Glossiness")
	assert.Equal(t, 0.0, v)
	settings, _ := s.TextureSettings(tex)
	assert.Equal(t, 256, settings.MaxSize)
	assert.True(t, s.Active(node))
	tr, _ := s.Transform(node)
	assert.Zero(t, tr.LocalPosition)
}

func TestAssetsAreVerified(t *testing.T) {
	s := memory.New()
	s.AddTexture("Assets/Same.png", corpus.TextureSettings{}, []byte("same"))
	s.AddTexture("Assets/Changed.png", corpus.TextureSettings{}, []byte("new bytes"))

	snap := &snapshot.Snapshot{Assets: []snapshot.AssetRow{
		{Path: "Assets/Same.png", SizeBytes: 4, Hash: snapshot.SHA256([]byte("same"))},
		{Path: "Assets/Changed.png", SizeBytes: 3, Hash: snapshot.SHA256([]byte("old"))},
		{Path: "Assets/Missing.png", SizeBytes: 1, Hash: "00"},
	}}

	res := engine(s).Restore(loaded(snap), []snapshot.Category{snapshot.CategoryAssets}).Result(snapshot.CategoryAssets)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 2, res.Warnings)
}

func TestProgressIsMonotonic(t *testing.T) {
	s := memory.New()
	s.DefineShader("Lit", memory.PropertyDef{Name: "_A", Type: property.TagFloat})
	var records []snapshot.MaterialRecord
	for i := 0; i < 7; i++ {
		records = append(records, snapshot.MaterialRecord{AssetPath: "Assets/Missing.mat", ShaderName: "Lit"})
	}

	var fractions []float64
	e := engine(s)
	e.ProgressEvery = 2
	e.Progress = func(_ string, f float64) { fractions = append(fractions, f) }
	e.Restore(loaded(&snapshot.Snapshot{Materials: records}), []snapshot.Category{snapshot.CategoryMaterials, snapshot.CategoryHierarchy})

	require.NotEmpty(t, fractions)
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}
