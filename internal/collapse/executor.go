package collapse

import (
	"fmt"

	"github.com/annel0/cavein/internal/logging"
	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world"
	"github.com/annel0/cavein/internal/world/block"
)

// Result — итог исполнения обрушения
type Result struct {
	Kind    Kind
	Spawned int // создано падающих объектов
	Cleared int // вокселей снято с сетки
}

// budget ограничивает число падающих объектов за один вызов Execute
type budget struct {
	spawned int
	max     int
}

func (b *budget) exhausted() bool { return b.spawned >= b.max }

// Executor исполняет классифицированные обрушения
type Executor struct {
	settings Settings
	spawner  world.Spawner
	logger   *logging.Logger
}

// NewExecutor создаёт исполнитель. logger может быть nil.
func NewExecutor(settings Settings, spawner world.Spawner, logger *logging.Logger) *Executor {
	return &Executor{settings: settings, spawner: spawner, logger: logger}
}

// Execute применяет обрушение к сетке. Подпёртые и пустые классификации
// ничего не делают.
func (e *Executor) Execute(grid world.Grid, c Classification, origin world.Coord, broken block.MaterialID, actor world.Actor) Result {
	res := Result{Kind: c.Kind}
	if grid == nil || e.spawner == nil || !c.Triggered() {
		return res
	}

	b := &budget{max: e.settings.Limits.MaxFallingBlocks}
	fill := e.settings.fillMaterial(broken)

	switch c.Kind {
	case KindVerticalShaft:
		if e.settings.Policy.VerticalMode == VerticalLayered {
			e.fillLayered(grid, origin.World, c.Anchor, fill, b)
		} else {
			e.fillShaft(grid, origin, fill, b)
		}
	case KindHorizontalTunnel:
		res.Cleared = e.collapseTunnel(grid, origin, c, b)
	case KindCaveCeiling:
		e.fillCaveCeiling(grid, origin, fill, b)
	}

	res.Spawned = b.spawned
	if e.settings.Debug && actor != nil {
		actor.SendMessage(debugMessage(c, origin))
	}
	return res
}

// fillShaft засыпает воздух в окрестности 3×3 на высотах 1..MaxVerticalHeight над точкой.
// Сетка не меняется: падающие объекты сами заполнят шахту.
func (e *Executor) fillShaft(grid world.Grid, origin world.Coord, fill block.MaterialID, b *budget) {
	for dy := 1; dy <= e.settings.Limits.MaxVerticalHeight; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for dz := -1; dz <= 1; dz++ {
				if b.exhausted() {
					return
				}
				pos := origin.Offset(dx, dy, dz)
				if !grid.MaterialAt(pos.Vec3).IsAir() {
					continue
				}
				e.spawn(pos, world.Voxel{ID: fill}, b)
			}
		}
	}
}

// fillLayered засыпает шахту над игроком: 3×3 от его высоты до +16 (в пределах мира)
func (e *Executor) fillLayered(grid world.Grid, worldName string, anchor vec.Vec3, fill block.MaterialID, b *budget) {
	top := anchor.Y + layeredFillHeight
	if limit := grid.MaxHeight() - 1; top > limit {
		top = limit
	}
	for y := anchor.Y; y <= top; y++ {
		for dx := -1; dx <= 1; dx++ {
			for dz := -1; dz <= 1; dz++ {
				if b.exhausted() {
					return
				}
				pos := world.At(worldName, anchor.X+dx, y, anchor.Z+dz)
				if !grid.MaterialAt(pos.Vec3).IsAir() {
					continue
				}
				e.spawn(pos, world.Voxel{ID: fill}, b)
			}
		}
	}
}

// collapseTunnel обходит RunLength шагов вдоль оси, по три столбца на шаг
func (e *Executor) collapseTunnel(grid world.Grid, origin world.Coord, c Classification, b *budget) int {
	cleared := 0
	for d := 1; d <= c.RunLength; d++ {
		for side := -1; side <= 1; side++ {
			dx, dz := c.Axis.along(c.Direction*d, side)
			cleared += e.collapseColumn(grid, origin.Offset(dx, 0, dz), b)
			if b.exhausted() {
				return cleared
			}
		}
	}
	return cleared
}

// collapseColumn обрушает столбец над base: воздух пропускается, материалы вне
// whitelist остаются на месте, остальное снимается и падает с тем же материалом.
func (e *Executor) collapseColumn(grid world.Grid, base world.Coord, b *budget) int {
	cleared := 0
	for dy := 1; dy <= e.settings.Limits.MaxHorizontalHeight; dy++ {
		if b.exhausted() {
			return cleared
		}
		pos := base.Offset(0, dy, 0)
		if pos.Y >= grid.MaxHeight() {
			return cleared
		}

		v := grid.MaterialAt(pos.Vec3)
		if v.IsAir() || !e.settings.Whitelist.Contains(v.ID) {
			continue
		}
		if err := grid.SetMaterial(pos.Vec3, block.AirID, 0); err != nil {
			e.logger.Debug("не удалось снять воксель %s: %v", pos, err)
			continue
		}
		cleared++
		if !e.spawn(pos, v, b) {
			// Хост не создал объект: возвращаем воксель на место
			_ = grid.SetMaterial(pos.Vec3, v.ID, v.Variant)
			cleared--
		}
	}
	return cleared
}

// fillCaveCeiling для каждого столбца 5×5 считает воздух на 1..5 ниже точки
// и создаёт столько же объектов засыпки стопкой от origin.y-1 вверх.
func (e *Executor) fillCaveCeiling(grid world.Grid, origin world.Coord, fill block.MaterialID, b *budget) {
	for dx := -caveCeilingRadius; dx <= caveCeilingRadius; dx++ {
		for dz := -caveCeilingRadius; dz <= caveCeilingRadius; dz++ {
			air := 0
			for dy := 1; dy <= caveCeilingDepth; dy++ {
				if origin.Y-dy < 0 {
					break
				}
				if grid.MaterialAt(origin.Vec3.Offset(dx, -dy, dz)).IsAir() {
					air++
				}
			}
			for i := 0; i < air; i++ {
				if b.exhausted() {
					return
				}
				e.spawn(origin.Offset(dx, i-1, dz), world.Voxel{ID: fill}, b)
			}
		}
	}
}

// spawn создаёт падающий объект без дропа и урона
func (e *Executor) spawn(pos world.Coord, v world.Voxel, b *budget) bool {
	fb, err := e.spawner.Spawn(pos, v)
	if err != nil {
		e.logger.Debug("spawn %s at %s: %v", v, pos, err)
		return false
	}
	b.spawned++
	disarm(fb, e.logger)
	return true
}

// disarm выключает дроп и урон у падающего объекта. Ошибки переключателей
// (старый хост) только логируются: объект всё равно падает.
func disarm(fb world.FallingBlock, logger *logging.Logger) {
	if err := fb.SetDropItem(false); err != nil {
		logger.Trace("SetDropItem не поддерживается: %v", err)
	}
	if err := fb.SetHurtEntities(false); err != nil {
		logger.Trace("SetHurtEntities не поддерживается: %v", err)
	}
}

// debugMessage формирует диагностическое сообщение для игрока
func debugMessage(c Classification, origin world.Coord) string {
	switch c.Kind {
	case KindHorizontalTunnel:
		return fmt.Sprintf("[DEBUG] Tunnel cave-in triggered along axis %s (direction %+d) at %d, %d, %d (airRun=%d, supportFound=%t)",
			c.Axis, c.Direction, origin.X, origin.Y, origin.Z, c.RunLength, c.SupportFound)
	case KindVerticalShaft:
		if c.AirRun == 0 {
			return fmt.Sprintf("[DEBUG] Vertical shaft collapse triggered at %d, %d, %d (layers: L1=%t, L2=%t, L3=%t, L4=%t)",
				origin.X, origin.Y, origin.Z, c.Layers[0], c.Layers[1], c.Layers[2], c.Layers[3])
		}
		return fmt.Sprintf("[DEBUG] Vertical shaft collapse triggered at %d, %d, %d (airRun=%d, supportFound=%t)",
			origin.X, origin.Y, origin.Z, c.AirRun, c.SupportFound)
	default:
		return fmt.Sprintf("[DEBUG] %s collapse triggered at %d, %d, %d", c.Kind, origin.X, origin.Y, origin.Z)
	}
}
