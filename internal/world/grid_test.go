package world

import (
	"errors"
	"testing"

	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGrid_SetAndGet(t *testing.T) {
	g := NewMemoryGrid("world", 64)
	pos := vec.Vec3{X: -5, Y: 10, Z: 33}

	assert.True(t, g.MaterialAt(pos).IsAir(), "пустой мир должен возвращать воздух")

	require.NoError(t, g.SetMaterial(pos, block.IronOreID, 3))
	assert.Equal(t, Voxel{ID: block.IronOreID, Variant: 3}, g.MaterialAt(pos))

	require.NoError(t, g.SetMaterial(pos, block.AirID, 0))
	assert.True(t, g.MaterialAt(pos).IsAir())
}

func TestMemoryGrid_Bounds(t *testing.T) {
	g := NewMemoryGrid("world", 32)

	err := g.SetMaterial(vec.Vec3{Y: 32}, block.StoneID, 0)
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	err = g.SetMaterial(vec.Vec3{Y: -1}, block.StoneID, 0)
	assert.True(t, errors.Is(err, ErrOutOfBounds))

	err = g.SetMaterial(vec.Vec3{Y: 1}, block.MaterialID(9999), 0)
	assert.True(t, errors.Is(err, ErrUnknownMaterial))

	assert.True(t, g.MaterialAt(vec.Vec3{Y: 500}).IsAir())
}

func TestMemoryGrid_HighestSolidY(t *testing.T) {
	g := NewMemoryGrid("world", 64)
	assert.Equal(t, -1, g.HighestSolidY(3, 3))

	require.NoError(t, g.Fill(vec.Vec3{X: 3, Y: 0, Z: 3}, vec.Vec3{X: 3, Y: 20, Z: 3}, block.StoneID))
	assert.Equal(t, 20, g.HighestSolidY(3, 3))

	// Жидкость не считается твёрдой поверхностью
	require.NoError(t, g.SetMaterial(vec.Vec3{X: 3, Y: 21, Z: 3}, block.WaterID, 0))
	assert.Equal(t, 20, g.HighestSolidY(3, 3))

	// Снятие верхнего блока опускает карту высот до следующего твёрдого
	require.NoError(t, g.SetMaterial(vec.Vec3{X: 3, Y: 18, Z: 3}, block.AirID, 0))
	require.NoError(t, g.SetMaterial(vec.Vec3{X: 3, Y: 19, Z: 3}, block.AirID, 0))
	require.NoError(t, g.SetMaterial(vec.Vec3{X: 3, Y: 20, Z: 3}, block.AirID, 0))
	assert.Equal(t, 17, g.HighestSolidY(3, 3))
}

func TestMemoryGrid_DirtyChunksAndApply(t *testing.T) {
	g := NewMemoryGrid("world", 64)
	require.NoError(t, g.SetMaterial(vec.Vec3{X: 17, Y: 5, Z: 2}, block.GravelID, 1))

	dirty := g.DirtyChunks()
	require.Len(t, dirty, 1)
	assert.Equal(t, vec.Vec2{X: 1, Z: 0}, dirty[0])

	voxels := g.ChunkVoxels(dirty[0])
	assert.Equal(t, Voxel{ID: block.GravelID, Variant: 1}, voxels[vec.Vec3{X: 1, Y: 5, Z: 2}])

	g.ClearChanges(dirty[0])
	assert.Empty(t, g.DirtyChunks())

	other := NewMemoryGrid("world", 64)
	other.ApplyChunk(dirty[0], voxels)
	assert.Equal(t, Voxel{ID: block.GravelID, Variant: 1}, other.MaterialAt(vec.Vec3{X: 17, Y: 5, Z: 2}))
	assert.Equal(t, 5, other.HighestSolidY(17, 2))
	assert.Empty(t, other.DirtyChunks(), "загруженный чанк не должен быть помечен изменённым")
}
