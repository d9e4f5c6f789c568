package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowjay/scenesnap/internal/corpus"
	"github.com/rowjay/scenesnap/internal/property"
)

const sceneYAML = `
environment:
  editor: "2022.3"
shaders:
  - name: Standard
    properties:
      - {name: _Color, type: Color, default: "1,1,1,1"}
      - {name: _Cutoff, type: Float, default: "0.5"}
      - {name: _MainTex, type: AssetReference}
behavior_types:
  - name: Rotator
    properties:
      - {name: speed, type: Float}
      - {name: axis, type: Vector3, default: "0,1,0"}
textures:
  - path: Assets/Textures/Brick.png
    source: brick.png
    max_size: 2048
    compression: NormalQuality
    quality: 50
    format: Automatic
materials:
  - path: Assets/Materials/Brick.mat
    shader: Standard
    properties:
      _Color: "1,0,0,1"
      _MainTex: Assets/Textures/Brick.png
nodes:
  - name: Root
    children:
      - name: Wall
        position: "1,2,3"
        materials: [Assets/Materials/Brick.mat]
        behaviors:
          - type: Rotator
            properties: {speed: "10"}
      - name: Hidden
        active: false
        instance_materials:
          - shader: Standard
`

func writeScene(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sceneYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brick.png"), []byte("png-bytes"), 0o644))
	return path
}

func TestLoadScene(t *testing.T) {
	s, err := Load(writeScene(t))
	require.NoError(t, err)

	wall, ok := s.FindNode("Root/Wall")
	require.True(t, ok)
	tr, err := s.Transform(wall)
	require.NoError(t, err)
	assert.Equal(t, property.Vector3{X: 1, Y: 2, Z: 3}, tr.LocalPosition)
	assert.Equal(t, property.Quaternion{W: 1}, tr.LocalRotation)

	hidden, ok := s.FindNode("Root/Hidden")
	require.True(t, ok)
	assert.False(t, s.Active(hidden))

	mats := s.Attached(wall, corpus.KindMaterial)
	require.Len(t, mats, 1)
	v, err := s.GetProperty(mats[0], "_Color")
	require.NoError(t, err)
	assert.Equal(t, property.Color{R: 1, A: 1}, v)
	v, err = s.GetProperty(mats[0], "_Cutoff")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	inst := s.Attached(hidden, corpus.KindMaterial)
	require.Len(t, inst, 1)
	_, ok = s.Identity(inst[0])
	assert.False(t, ok)

	rc, err := s.OpenAsset("Assets/Textures/Brick.png")
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "2022.3", s.Environment()["editor"])
}

func TestSaveRoundTrip(t *testing.T) {
	path := writeScene(t)
	s, err := Load(path)
	require.NoError(t, err)

	wall, _ := s.FindNode("Root/Wall")
	beh := s.Attached(wall, corpus.KindBehavior)[0]
	require.NoError(t, s.SetProperty(beh, "speed", 42.0))
	require.NoError(t, Save(s, path))

	again, err := Load(path)
	require.NoError(t, err)
	wall, ok := again.FindNode("Root/Wall")
	require.True(t, ok)
	v, err := again.GetProperty(again.Attached(wall, corpus.KindBehavior)[0], "speed")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	hidden, ok := again.FindNode("Root/Hidden")
	require.True(t, ok)
	assert.False(t, again.Active(hidden))
	assert.Len(t, again.Attached(hidden, corpus.KindMaterial), 1)
}

func TestSetPropertyValidates(t *testing.T) {
	s := New()
	s.DefineShader("Unlit", PropertyDef{Name: "_Color", Type: property.TagColor})
	m, err := s.AddMaterial("Assets/a.mat", "Unlit")
	require.NoError(t, err)

	assert.Error(t, s.SetProperty(m, "_Color", 1.0))
	assert.ErrorIs(t, s.SetProperty(m, "_Missing", 1.0), corpus.ErrNotFound)

	v, err := s.GetProperty(m, "_Color")
	require.NoError(t, err)
	assert.Equal(t, property.Color{}, v)

	require.NoError(t, s.SetSchema(m, "Unlit"))
	assert.Error(t, s.SetSchema(m, "Nope"))
}
