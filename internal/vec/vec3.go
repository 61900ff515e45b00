package vec

// Vec3 представляет целочисленные координаты вокселя в мире.
// Y — вертикальная ось, X и Z — горизонтальные.
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Offset возвращает вектор, сдвинутый на (dx, dy, dz)
func (v Vec3) Offset(dx, dy, dz int) Vec3 {
	return Vec3{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

// Up возвращает вектор на n вокселей выше
func (v Vec3) Up(n int) Vec3 {
	return Vec3{X: v.X, Y: v.Y + n, Z: v.Z}
}

// Down возвращает вектор на n вокселей ниже
func (v Vec3) Down(n int) Vec3 {
	return Vec3{X: v.X, Y: v.Y - n, Z: v.Z}
}

// Column возвращает горизонтальную проекцию (x, z)
func (v Vec3) Column() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

// DistanceSq возвращает квадрат расстояния до другого вектора
func (v Vec3) DistanceSq(other Vec3) int {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return dx*dx + dy*dy + dz*dz
}
