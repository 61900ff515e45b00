package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world"
	"github.com/annel0/cavein/internal/world/block"
)

func setupTestStorage(t *testing.T) *WorldStorage {
	t.Helper()
	ws, err := NewWorldStorage(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestSaveAndLoadChunk(t *testing.T) {
	ws := setupTestStorage(t)
	coords := vec.Vec2{X: -3, Z: 7}
	voxels := map[vec.Vec3]world.Voxel{
		{X: 1, Y: 10, Z: 2}:  {ID: block.StoneID},
		{X: 15, Y: 0, Z: 15}: {ID: block.BedrockID},
		{X: 4, Y: 33, Z: 0}:  {ID: block.SandID, Variant: 2},
	}

	require.NoError(t, ws.SaveChunk("world", coords, voxels))

	got, ok, err := ws.LoadChunk("world", coords)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, voxels, got)

	_, ok, err = ws.LoadChunk("nether", coords)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveGridAndLoadGrid(t *testing.T) {
	ws := setupTestStorage(t)

	src := world.NewMemoryGrid("world", 64)
	require.NoError(t, src.Fill(vec.Vec3{X: -2, Y: 0, Z: -2}, vec.Vec3{X: 20, Y: 4, Z: 3}, block.StoneID))
	require.NoError(t, src.SetMaterial(vec.Vec3{X: 5, Y: 5, Z: 1}, block.GravelID, 1))

	saved, err := ws.SaveGrid(src)
	require.NoError(t, err)
	assert.Equal(t, 6, saved) // x: чанки -1..1, z: -1..0
	assert.Empty(t, src.DirtyChunks())

	// Повторное сохранение без изменений ничего не пишет
	saved, err = ws.SaveGrid(src)
	require.NoError(t, err)
	assert.Zero(t, saved)

	// Другой мир с тем же префиксом имени не должен подмешиваться
	other := world.NewMemoryGrid("world2", 64)
	require.NoError(t, other.SetMaterial(vec.Vec3{X: 0, Y: 1, Z: 0}, block.DirtID, 0))
	_, err = ws.SaveGrid(other)
	require.NoError(t, err)

	dst := world.NewMemoryGrid("world", 64)
	loaded, err := ws.LoadGrid(dst)
	require.NoError(t, err)
	assert.Equal(t, 6, loaded)
	assert.Equal(t, world.Voxel{ID: block.GravelID, Variant: 1}, dst.MaterialAt(vec.Vec3{X: 5, Y: 5, Z: 1}))
	assert.Equal(t, 5, dst.HighestSolidY(5, 1))
	assert.Equal(t, 4, dst.HighestSolidY(20, 3))
	assert.Equal(t, block.StoneID, dst.MaterialAt(vec.Vec3{X: -2, Y: 0, Z: -2}).ID)
	assert.Equal(t, block.StoneID, dst.MaterialAt(vec.Vec3{X: 0, Y: 1, Z: 0}).ID)
	assert.Empty(t, dst.DirtyChunks(), "загрузка не помечает чанки изменёнными")
}

func TestParseChunkKey(t *testing.T) {
	name, coords, err := parseChunkKey("chunk:my:world:-1:12")
	require.NoError(t, err)
	assert.Equal(t, "my:world", name)
	assert.Equal(t, vec.Vec2{X: -1, Z: 12}, coords)

	_, _, err = parseChunkKey("chunk:world:x:1")
	assert.Error(t, err)
	_, _, err = parseChunkKey("entities:1:2")
	assert.Error(t, err)
}

func TestClosedStorage(t *testing.T) {
	ws, err := NewWorldStorage(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, ws.Close())
	require.NoError(t, ws.Close())

	assert.ErrorIs(t, ws.SaveChunk("world", vec.Vec2{}, nil), ErrNotReady)
	_, err = ws.LoadGrid(world.NewMemoryGrid("world", 16))
	assert.ErrorIs(t, err, ErrNotReady)
}
