package world

import (
	"fmt"
	"sync"

	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world/block"
)

// Grid предоставляет доступ к вокселям одного мира.
// Реализуется хостом; MemoryGrid — реализация для тестов и dev-хоста.
type Grid interface {
	// Name возвращает имя мира
	Name() string

	// MaterialAt возвращает воксель в точке; вне границ — воздух
	MaterialAt(pos vec.Vec3) Voxel

	// SetMaterial записывает материал и вариант в точку
	SetMaterial(pos vec.Vec3, id block.MaterialID, variant byte) error

	// HighestSolidY возвращает высоту верхнего твёрдого вокселя колонны или -1
	HighestSolidY(x, z int) int

	// MaxHeight возвращает высоту мира (допустимые Y: 0..MaxHeight-1)
	MaxHeight() int
}

// Chunk хранит воксели колонны 16x16 на всю высоту мира.
// Воздух не хранится: отсутствие ключа означает пустую клетку.
type Chunk struct {
	Coords vec.Vec2 // Координаты чанка

	voxels  map[vec.Vec3]Voxel    // Локальные координаты (0..15, y, 0..15) -> воксель
	heights [16][16]int           // Карта высот: верхний твёрдый Y колонны, -1 если пусто
	changes map[vec.Vec3]struct{} // Изменённые клетки с последнего сохранения

	ChangeCounter int // Счетчик изменений
}

func newChunk(coords vec.Vec2) *Chunk {
	c := &Chunk{
		Coords:  coords,
		voxels:  make(map[vec.Vec3]Voxel),
		changes: make(map[vec.Vec3]struct{}),
	}
	for x := range c.heights {
		for z := range c.heights[x] {
			c.heights[x][z] = -1
		}
	}
	return c
}

// MemoryGrid — разреженная in-memory сетка, разбитая на чанки 16x16
type MemoryGrid struct {
	name      string
	maxHeight int

	mu     sync.RWMutex
	chunks map[vec.Vec2]*Chunk
}

// NewMemoryGrid создаёт пустой мир указанной высоты
func NewMemoryGrid(name string, maxHeight int) *MemoryGrid {
	if maxHeight <= 0 {
		maxHeight = 256
	}
	return &MemoryGrid{
		name:      name,
		maxHeight: maxHeight,
		chunks:    make(map[vec.Vec2]*Chunk),
	}
}

// Name возвращает имя мира
func (g *MemoryGrid) Name() string { return g.name }

// MaxHeight возвращает высоту мира
func (g *MemoryGrid) MaxHeight() int { return g.maxHeight }

// MaterialAt возвращает воксель в точке
func (g *MemoryGrid) MaterialAt(pos vec.Vec3) Voxel {
	if pos.Y < 0 || pos.Y >= g.maxHeight {
		return Air
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	chunk, ok := g.chunks[pos.Column().ToChunkCoords()]
	if !ok {
		return Air
	}
	if v, ok := chunk.voxels[localPos(pos)]; ok {
		return v
	}
	return Air
}

// SetMaterial записывает воксель; воздух удаляет запись
func (g *MemoryGrid) SetMaterial(pos vec.Vec3, id block.MaterialID, variant byte) error {
	if pos.Y < 0 || pos.Y >= g.maxHeight {
		return fmt.Errorf("%w: y=%d (высота мира %d)", ErrOutOfBounds, pos.Y, g.maxHeight)
	}
	if !block.IsValid(id) {
		return fmt.Errorf("%w: %d", ErrUnknownMaterial, id)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	chunk := g.chunkLocked(pos.Column().ToChunkCoords())
	local := localPos(pos)
	if id == block.AirID {
		delete(chunk.voxels, local)
	} else {
		chunk.voxels[local] = Voxel{ID: id, Variant: variant}
	}
	chunk.changes[local] = struct{}{}
	chunk.ChangeCounter++

	g.updateHeightLocked(chunk, local, id)
	return nil
}

// HighestSolidY возвращает верхний твёрдый воксель колонны
func (g *MemoryGrid) HighestSolidY(x, z int) int {
	col := vec.Vec2{X: x, Z: z}

	g.mu.RLock()
	defer g.mu.RUnlock()

	chunk, ok := g.chunks[col.ToChunkCoords()]
	if !ok {
		return -1
	}
	l := col.LocalInChunk()
	return chunk.heights[l.X][l.Z]
}

// Fill заполняет параллелепипед [from, to] материалом (границы включительно)
func (g *MemoryGrid) Fill(from, to vec.Vec3, id block.MaterialID) error {
	for x := min(from.X, to.X); x <= max(from.X, to.X); x++ {
		for y := min(from.Y, to.Y); y <= max(from.Y, to.Y); y++ {
			for z := min(from.Z, to.Z); z <= max(from.Z, to.Z); z++ {
				if err := g.SetMaterial(vec.Vec3{X: x, Y: y, Z: z}, id, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DirtyChunks возвращает координаты чанков с несохранёнными изменениями
func (g *MemoryGrid) DirtyChunks() []vec.Vec2 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	dirty := make([]vec.Vec2, 0)
	for coords, chunk := range g.chunks {
		if chunk.ChangeCounter > 0 {
			dirty = append(dirty, coords)
		}
	}
	return dirty
}

// ChunkVoxels возвращает копию содержимого чанка в локальных координатах
func (g *MemoryGrid) ChunkVoxels(coords vec.Vec2) map[vec.Vec3]Voxel {
	g.mu.RLock()
	defer g.mu.RUnlock()

	chunk, ok := g.chunks[coords]
	if !ok {
		return nil
	}
	result := make(map[vec.Vec3]Voxel, len(chunk.voxels))
	for k, v := range chunk.voxels {
		result[k] = v
	}
	return result
}

// ClearChanges сбрасывает счётчик изменений чанка после сохранения
func (g *MemoryGrid) ClearChanges(coords vec.Vec2) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if chunk, ok := g.chunks[coords]; ok {
		chunk.changes = make(map[vec.Vec3]struct{})
		chunk.ChangeCounter = 0
	}
}

// MarkDirty помечает чанк изменённым (например, после неудачного сохранения)
func (g *MemoryGrid) MarkDirty(coords vec.Vec2) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if chunk, ok := g.chunks[coords]; ok {
		chunk.ChangeCounter++
	}
}

// ApplyChunk заменяет содержимое чанка (загрузка из хранилища), не помечая его изменённым
func (g *MemoryGrid) ApplyChunk(coords vec.Vec2, voxels map[vec.Vec3]Voxel) {
	g.mu.Lock()
	defer g.mu.Unlock()

	chunk := newChunk(coords)
	for local, v := range voxels {
		if local.X < 0 || local.X > 15 || local.Z < 0 || local.Z > 15 {
			continue
		}
		if local.Y < 0 || local.Y >= g.maxHeight || v.IsAir() {
			continue
		}
		chunk.voxels[local] = v
		if block.IsSolid(v.ID) && local.Y > chunk.heights[local.X][local.Z] {
			chunk.heights[local.X][local.Z] = local.Y
		}
	}
	g.chunks[coords] = chunk
}

// ChunkCount возвращает количество загруженных чанков
func (g *MemoryGrid) ChunkCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.chunks)
}

func (g *MemoryGrid) chunkLocked(coords vec.Vec2) *Chunk {
	chunk, ok := g.chunks[coords]
	if !ok {
		chunk = newChunk(coords)
		g.chunks[coords] = chunk
	}
	return chunk
}

// updateHeightLocked поддерживает карту высот после записи
func (g *MemoryGrid) updateHeightLocked(chunk *Chunk, local vec.Vec3, id block.MaterialID) {
	h := &chunk.heights[local.X][local.Z]
	if id != block.AirID && block.IsSolid(id) {
		if local.Y > *h {
			*h = local.Y
		}
		return
	}
	if local.Y != *h {
		return
	}

	// Верхний воксель убран — ищем следующий твёрдый ниже
	for y := local.Y - 1; y >= 0; y-- {
		v, ok := chunk.voxels[vec.Vec3{X: local.X, Y: y, Z: local.Z}]
		if ok && block.IsSolid(v.ID) {
			*h = y
			return
		}
	}
	*h = -1
}

func localPos(pos vec.Vec3) vec.Vec3 {
	l := pos.Column().LocalInChunk()
	return vec.Vec3{X: l.X, Y: pos.Y, Z: l.Z}
}
