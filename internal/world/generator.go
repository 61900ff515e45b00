package world

import (
	"math/rand"

	"github.com/annel0/cavein/internal/util"
	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world/block"
)

// WorldGenerator генерирует рельеф: бедрок, толща камня с рудами, земля и трава сверху
type WorldGenerator struct {
	Seed       int64   // Сид для генерации шума
	NoiseScale float64 // Масштаб шума высот
	BaseHeight int     // Средняя высота поверхности
	Amplitude  int     // Размах холмов
	OreChance  float64 // Вероятность руды в клетке камня

	noise *util.Noise
}

// NewWorldGenerator создаёт новый генератор мира
func NewWorldGenerator(seed int64) *WorldGenerator {
	return &WorldGenerator{
		Seed:       seed,
		NoiseScale: 0.03, // Настройка сглаженности ландшафта
		BaseHeight: 48,
		Amplitude:  16,
		OreChance:  0.02,
		noise:      util.NewNoise(seed),
	}
}

// HeightAt возвращает высоту поверхности в колонне (x, z)
func (wg *WorldGenerator) HeightAt(x, z int) int {
	n := wg.noise.At2D(float64(x)*wg.NoiseScale, float64(z)*wg.NoiseScale)
	return wg.BaseHeight + int(float64(wg.Amplitude)*(n-0.5)*2)
}

// GenerateChunk заполняет чанк coords в мире grid
func (wg *WorldGenerator) GenerateChunk(grid *MemoryGrid, coords vec.Vec2) error {
	// Локальный генератор случайных чисел на основе сида и координат для детерминированности
	chunkSeed := wg.Seed + int64(coords.X*31) + int64(coords.Z*17)
	rng := rand.New(rand.NewSource(chunkSeed))

	startX := coords.X << 4
	startZ := coords.Z << 4

	for dx := 0; dx < 16; dx++ {
		for dz := 0; dz < 16; dz++ {
			x, z := startX+dx, startZ+dz
			top := wg.HeightAt(x, z)
			if top >= grid.MaxHeight() {
				top = grid.MaxHeight() - 1
			}

			for y := 0; y <= top; y++ {
				id := wg.materialFor(y, top, rng)
				if err := grid.SetMaterial(vec.Vec3{X: x, Y: y, Z: z}, id, 0); err != nil {
					return err
				}
			}
		}
	}

	// Сгенерированный рельеф не считается изменением мира
	grid.ClearChanges(coords)
	return nil
}

// GenerateRegion генерирует все чанки в радиусе radius чанков вокруг (0, 0)
func (wg *WorldGenerator) GenerateRegion(grid *MemoryGrid, radius int) error {
	for cx := -radius; cx <= radius; cx++ {
		for cz := -radius; cz <= radius; cz++ {
			if err := wg.GenerateChunk(grid, vec.Vec2{X: cx, Z: cz}); err != nil {
				return err
			}
		}
	}
	return nil
}

// materialFor выбирает материал слоя
func (wg *WorldGenerator) materialFor(y, top int, rng *rand.Rand) block.MaterialID {
	switch {
	case y == 0:
		return block.BedrockID
	case y == top:
		return block.GrassID
	case y >= top-3:
		return block.DirtID
	}

	if rng.Float64() >= wg.OreChance {
		return block.StoneID
	}

	// Чем глубже, тем ценнее руда
	switch {
	case y < 12:
		return pick(rng, block.DiamondOreID, block.RedstoneOreID, block.GoldOreID)
	case y < 24:
		return pick(rng, block.GoldOreID, block.LapisOreID, block.IronOreID)
	default:
		return pick(rng, block.CoalOreID, block.IronOreID)
	}
}

func pick(rng *rand.Rand, ids ...block.MaterialID) block.MaterialID {
	return ids[rng.Intn(len(ids))]
}
