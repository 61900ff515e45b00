package util

import (
	"github.com/aquilax/go-perlin"
)

// Noise — генератор шума Перлина, привязанный к сиду
type Noise struct {
	seed   int64
	perlin *perlin.Perlin
}

// NewNoise создаёт генератор шума с указанным сидом
func NewNoise(seed int64) *Noise {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Noise{seed: seed, perlin: perlin.NewPerlin(alpha, beta, n, seed)}
}

// Seed возвращает сид генератора
func (n *Noise) Seed() int64 { return n.seed }

// At2D возвращает значение шума для координат (от 0 до 1)
func (n *Noise) At2D(x, y float64) float64 {
	// Получаем значение шума (от -1 до 1) и переводим в [0, 1]
	v := (n.perlin.Noise2D(x, y) + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
