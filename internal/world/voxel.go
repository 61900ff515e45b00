package world

import (
	"errors"
	"fmt"

	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world/block"
)

var (
	// ErrOutOfBounds возвращается при записи за пределы высоты мира
	ErrOutOfBounds = errors.New("координата вне границ мира")
	// ErrUnknownMaterial возвращается при записи незарегистрированного материала
	ErrUnknownMaterial = errors.New("неизвестный материал")
	// ErrUnsupported возвращается хостом, который не умеет выполнять операцию
	ErrUnsupported = errors.New("операция не поддерживается хостом")
	// ErrUnknownWorld возвращается, если мир с таким именем не зарегистрирован
	ErrUnknownWorld = errors.New("неизвестный мир")
	// ErrEmptyVoxel возвращается при попытке сломать воздух
	ErrEmptyVoxel = errors.New("в указанной точке нет блока")
	// ErrNoActor возвращается при сломе без инициатора
	ErrNoActor = errors.New("слом без инициатора")
)

// Voxel — состояние одной клетки: материал и байт варианта
type Voxel struct {
	ID      block.MaterialID `json:"id"`
	Variant byte             `json:"variant,omitempty"`
}

// Air — пустой воксель
var Air = Voxel{ID: block.AirID}

// IsAir сообщает, пуста ли клетка
func (v Voxel) IsAir() bool {
	return v.ID == block.AirID
}

// String возвращает читаемое представление вокселя
func (v Voxel) String() string {
	if v.Variant == 0 {
		return v.ID.String()
	}
	return fmt.Sprintf("%s:%d", v.ID, v.Variant)
}

// Coord — координата вокселя вместе с именем мира
type Coord struct {
	World string `json:"world"`
	vec.Vec3
}

// At создаёт координату в мире world
func At(world string, x, y, z int) Coord {
	return Coord{World: world, Vec3: vec.Vec3{X: x, Y: y, Z: z}}
}

// Offset возвращает координату, сдвинутую в пределах того же мира
func (c Coord) Offset(dx, dy, dz int) Coord {
	return Coord{World: c.World, Vec3: c.Vec3.Offset(dx, dy, dz)}
}

// String возвращает "world:x,y,z"
func (c Coord) String() string {
	return fmt.Sprintf("%s:%d,%d,%d", c.World, c.X, c.Y, c.Z)
}
