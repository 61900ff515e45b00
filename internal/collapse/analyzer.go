package collapse

import (
	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world"
	"github.com/annel0/cavein/internal/world/block"
)

// Kind — результат классификации слома
type Kind int

const (
	KindNone Kind = iota
	KindVerticalShaft
	KindHorizontalTunnel
	KindCaveCeiling
)

func (k Kind) String() string {
	switch k {
	case KindVerticalShaft:
		return "VERTICAL_SHAFT"
	case KindHorizontalTunnel:
		return "HORIZONTAL_TUNNEL"
	case KindCaveCeiling:
		return "CAVE_CEILING"
	default:
		return "NONE"
	}
}

// Axis — горизонтальная ось туннеля
type Axis int

const (
	AxisX Axis = iota
	AxisZ
)

func (a Axis) String() string {
	if a == AxisZ {
		return "Z"
	}
	return "X"
}

// along возвращает смещение на d шагов по оси и на side поперёк неё
func (a Axis) along(d, side int) (dx, dz int) {
	if a == AxisX {
		return d, side
	}
	return side, d
}

// Classification описывает решение анализатора
type Classification struct {
	Kind         Kind
	Axis         Axis
	Direction    int // +1 или -1 вдоль Axis
	RunLength    int // число шагов обрушения туннеля
	AirRun       int // длина столба воздуха (вертикальная шахта)
	SupportFound bool

	// Anchor — позиция игрока для засыпки в режиме layered
	Anchor vec.Vec3
	// Layers — устойчивость слоёв 1..4 в режиме layered
	Layers [4]bool
}

// Triggered сообщает, должно ли обрушение исполняться
func (c Classification) Triggered() bool {
	return c.Kind != KindNone && !c.SupportFound
}

// Analyzer классифицирует сломы по локальной геометрии сетки
type Analyzer struct {
	settings Settings
}

// NewAnalyzer создаёт анализатор
func NewAnalyzer(settings Settings) *Analyzer {
	return &Analyzer{settings: settings}
}

// Classify определяет, дестабилизирует ли слом окрестность.
// Порядок проверок: потолок пещеры (если включён), вертикаль, ось X, ось Z.
// Первое неподпёртое совпадение побеждает; подпёртый туннель не останавливает
// проверку следующей оси и возвращается, только если ничего другого не сработало.
func (a *Analyzer) Classify(grid world.Grid, origin world.Coord, before block.MaterialID, actor world.Actor) Classification {
	none := Classification{Kind: KindNone}
	if grid == nil || !a.settings.Whitelist.Contains(before) {
		return none
	}

	oreOnly := a.settings.Policy.OreExemption && block.IsOre(before)
	if !oreOnly {
		deep := a.isDeep(grid, origin.Vec3)
		if deep && a.settings.Policy.CaveCeiling && grid.MaterialAt(origin.Down(1)).IsAir() {
			return Classification{Kind: KindCaveCeiling}
		}
		if c, ok := a.vertical(grid, origin, deep, actor); ok {
			return c
		}
	}

	var shored *Classification
	for _, axis := range [...]Axis{AxisX, AxisZ} {
		c, ok := a.horizontal(grid, origin.Vec3, axis)
		if !ok {
			continue
		}
		if !c.SupportFound {
			return c
		}
		if shored == nil {
			shored = &c
		}
	}
	if shored != nil {
		return *shored
	}
	return none
}

// isDeep — точка не менее чем на MinDepth ниже поверхности столбца
func (a *Analyzer) isDeep(grid world.Grid, pos vec.Vec3) bool {
	surface := grid.HighestSolidY(pos.X, pos.Z)
	return pos.Y <= surface-a.settings.Limits.MinDepth
}

func (a *Analyzer) vertical(grid world.Grid, origin world.Coord, deep bool, actor world.Actor) (Classification, bool) {
	if !deep {
		return Classification{}, false
	}
	if a.settings.Policy.VerticalMode == VerticalLayered {
		return a.layered(grid, origin, actor)
	}

	required := a.settings.Limits.RequiredAirRun
	run := 0
	for dy := 1; dy <= required; dy++ {
		if !grid.MaterialAt(origin.Up(dy)).IsAir() {
			break
		}
		run++
	}
	if run < required {
		return Classification{}, false
	}
	return Classification{Kind: KindVerticalShaft, AirRun: run}, true
}

// layered проверяет четыре слоя над точкой; обрушение требует, чтобы хотя бы
// один слой был неустойчив, а игрок стоял в том же столбце на 1..3 выше.
func (a *Analyzer) layered(grid world.Grid, origin world.Coord, actor world.Actor) (Classification, bool) {
	c := Classification{Kind: KindVerticalShaft}
	allStable := true
	for i, l := range stabilityLayers {
		c.Layers[i] = layerStable(grid, origin.Vec3, l)
		allStable = allStable && c.Layers[i]
	}
	if allStable || actor == nil {
		return Classification{}, false
	}

	feet := actor.Position()
	if feet.World != origin.World || feet.X != origin.X || feet.Z != origin.Z {
		return Classification{}, false
	}
	if dy := feet.Y - origin.Y; dy < 1 || dy > layeredMaxFeetDistance {
		return Classification{}, false
	}
	c.Anchor = feet.Vec3
	return c, true
}

func layerStable(grid world.Grid, origin vec.Vec3, l layer) bool {
	y := origin.Y + l.offset
	air := 0
	for dx := -l.radius; dx <= l.radius; dx++ {
		for dz := -l.radius; dz <= l.radius; dz++ {
			if grid.MaterialAt(vec.Vec3{X: origin.X + dx, Y: y, Z: origin.Z + dz}).IsAir() {
				air++
			}
		}
	}
	return air >= l.requiredAir
}

func (a *Analyzer) horizontal(grid world.Grid, origin vec.Vec3, axis Axis) (Classification, bool) {
	limit := a.settings.Limits.RequiredAirRun
	pos := airRun(grid, origin, axis, 1, limit)
	neg := airRun(grid, origin, axis, -1, limit)
	total := pos + neg + 1
	if total < limit {
		return Classification{}, false
	}

	dir := 1
	if pos < neg {
		dir = -1
	}
	run := total
	if maxDist := a.settings.Limits.MaxHorizontalDistance; run > maxDist {
		run = maxDist
	}
	return Classification{
		Kind:         KindHorizontalTunnel,
		Axis:         axis,
		Direction:    dir,
		RunLength:    run,
		SupportFound: a.hasWoodSupport(grid, origin, axis, dir),
	}, true
}

// airRun считает подряд идущий воздух от точки в направлении dir (без самой точки)
func airRun(grid world.Grid, origin vec.Vec3, axis Axis, dir, limit int) int {
	n := 0
	for d := 1; d <= limit; d++ {
		dx, dz := axis.along(dir*d, 0)
		if !grid.MaterialAt(origin.Offset(dx, 0, dz)).IsAir() {
			break
		}
		n++
	}
	return n
}

// hasWoodSupport ищет дерево в окне 3×3 (высота ±1, поперёк ±1) на каждом шаге вдоль оси
func (a *Analyzer) hasWoodSupport(grid world.Grid, origin vec.Vec3, axis Axis, dir int) bool {
	for d := 1; d <= a.settings.Limits.MaxHorizontalDistance; d++ {
		for dy := -1; dy <= 1; dy++ {
			for side := -1; side <= 1; side++ {
				dx, dz := axis.along(dir*d, side)
				if block.IsWood(grid.MaterialAt(origin.Offset(dx, dy, dz)).ID) {
					return true
				}
			}
		}
	}
	return false
}
