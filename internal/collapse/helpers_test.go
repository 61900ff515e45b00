package collapse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world"
	"github.com/annel0/cavein/internal/world/block"
)

const testWorld = "world"

// stoneWorld строит сплошной каменный массив x,z ∈ [-r, r], y ∈ [0, surface]
func stoneWorld(t *testing.T, r, surface int) *world.MemoryGrid {
	t.Helper()
	g := world.NewMemoryGrid(testWorld, 64)
	require.NoError(t, g.Fill(vec.Vec3{X: -r, Y: 0, Z: -r}, vec.Vec3{X: r, Y: surface, Z: r}, block.StoneID))
	return g
}

// dig вырезает воздух в параллелепипеде [from, to]
func dig(t *testing.T, g *world.MemoryGrid, from, to vec.Vec3) {
	t.Helper()
	require.NoError(t, g.Fill(from, to, block.AirID))
}

func put(t *testing.T, g *world.MemoryGrid, x, y, z int, id block.MaterialID) {
	t.Helper()
	require.NoError(t, g.SetMaterial(vec.Vec3{X: x, Y: y, Z: z}, id, 0))
}

// snapshotRegion копирует все воксели массива для сравнения до/после
func snapshotRegion(g *world.MemoryGrid, r, top int) map[vec.Vec3]world.Voxel {
	out := make(map[vec.Vec3]world.Voxel)
	for x := -r; x <= r; x++ {
		for y := 0; y <= top; y++ {
			for z := -r; z <= r; z++ {
				p := vec.Vec3{X: x, Y: y, Z: z}
				out[p] = g.MaterialAt(p)
			}
		}
	}
	return out
}

func breakEvent(g world.Grid, actor world.Actor, x, y, z int) *world.BreakEvent {
	pos := world.At(testWorld, x, y, z)
	return &world.BreakEvent{Actor: actor, Grid: g, Pos: pos, Before: g.MaterialAt(pos.Vec3)}
}

func newActor(x, y, z int) *world.Player {
	return world.NewPlayer("miner", world.At(testWorld, x, y, z))
}
