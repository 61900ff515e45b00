package vec

// Vec2 представляет горизонтальную пару координат (x, z) — колонну мира
type Vec2 struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// ToChunkCoords преобразует координаты колонны в координаты чанка
func (v Vec2) ToChunkCoords() Vec2 {
	return Vec2{X: v.X >> 4, Z: v.Z >> 4} // Деление на 16
}

// LocalInChunk возвращает локальные координаты внутри чанка
func (v Vec2) LocalInChunk() Vec2 {
	return Vec2{X: v.X & 0xF, Z: v.Z & 0xF} // Модуль 16
}

// At поднимает колонну до трёхмерной точки на высоте y
func (v Vec2) At(y int) Vec3 {
	return Vec3{X: v.X, Y: y, Z: v.Z}
}
