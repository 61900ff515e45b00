package collapse

import (
	"context"

	"github.com/annel0/cavein/internal/eventbus"
	"github.com/annel0/cavein/internal/logging"
	"github.com/annel0/cavein/internal/world"
	"github.com/annel0/cavein/internal/world/block"
)

// DefaultCollapseHeight — высота обрушаемого блока 3×3 над точкой
const DefaultCollapseHeight = 6

// CeilingDetector обрушает неподпёртый потолок над сломанным вокселем и
// планирует его восстановление. Работает независимо от Engine и whitelist.
type CeilingDetector struct {
	height    int
	maxBlocks int
	spawner   world.Spawner
	cooldown  CooldownLedger
	restorer  *Restorer
	metrics   *Metrics
	pub       publisher
	logger    *logging.Logger
}

// CeilingConfig — зависимости детектора потолков
type CeilingConfig struct {
	Height    int
	MaxBlocks int
	Spawner   world.Spawner
	Cooldown  CooldownLedger
	Restorer  *Restorer
	Metrics   *Metrics
	Bus       eventbus.EventBus
	Logger    *logging.Logger
}

// NewCeilingDetector создаёт детектор
func NewCeilingDetector(cfg CeilingConfig) *CeilingDetector {
	if cfg.Height <= 0 {
		cfg.Height = DefaultCollapseHeight
	}
	if cfg.MaxBlocks <= 0 {
		cfg.MaxBlocks = DefaultLimits().MaxFallingBlocks
	}
	if cfg.Cooldown == nil {
		cfg.Cooldown = NewLedger(DefaultCooldown)
	}
	return &CeilingDetector{
		height:    cfg.Height,
		maxBlocks: cfg.MaxBlocks,
		spawner:   cfg.Spawner,
		cooldown:  cfg.Cooldown,
		restorer:  cfg.Restorer,
		metrics:   cfg.Metrics,
		pub:       publisher{bus: cfg.Bus, logger: cfg.Logger},
		logger:    cfg.Logger,
	}
}

// HandleBreak реализует world.BreakHandler
func (d *CeilingDetector) HandleBreak(ctx context.Context, ev *world.BreakEvent) {
	if ev == nil || ev.Actor == nil || ev.Grid == nil || d.spawner == nil {
		return
	}
	if block.IsProtected(ev.Before.ID) {
		return
	}

	actorID := ev.Actor.ID()
	if d.cooldown.IsCoolingDown(ctx, actorID, ev.Pos) {
		d.metrics.observeCooldown(detectorCeiling)
		return
	}
	if hasSupport(ev.Grid, ev.Pos) {
		return
	}

	snapshots := d.collapse(ev.Grid, ev.Pos)
	d.cooldown.MarkTriggered(ctx, actorID, ev.Pos)
	d.restorer.Schedule(ev.Grid, snapshots)

	ev.Spawned += len(snapshots)
	res := Result{Kind: KindCaveCeiling, Spawned: len(snapshots), Cleared: len(snapshots)}
	d.metrics.observeCollapse(KindCaveCeiling, res.Spawned)
	logging.LogCollapse(d.logger, "CEILING", ev.Pos.String(), res.Spawned, res.Cleared)
	d.pub.publish(ctx, eventbus.EventCollapseTriggered, newReport(ev.Pos, Classification{Kind: KindCaveCeiling}, res, ev.Actor))
}

// hasSupport — хотя бы один из 8 соседей на той же высоте является твёрдой опорой
func hasSupport(grid world.Grid, center world.Coord) bool {
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			if isSupport(grid.MaterialAt(center.Vec3.Offset(dx, 0, dz)).ID) {
				return true
			}
		}
	}
	return false
}

func isSupport(id block.MaterialID) bool {
	return !block.IsAir(id) && !block.IsLiquid(id) && block.IsSolid(id) && !block.IsProtected(id)
}

// collapse снимает воксели блока 3×3×height, включая саму точку слома,
// и создаёт падающие объекты. Хост потом снимает уже пустую точку.
func (d *CeilingDetector) collapse(grid world.Grid, origin world.Coord) []Snapshot {
	var snapshots []Snapshot
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			for dy := 0; dy < d.height; dy++ {
				if len(snapshots) >= d.maxBlocks {
					return snapshots
				}

				pos := origin.Offset(dx, dy, dz)
				v := grid.MaterialAt(pos.Vec3)
				if v.IsAir() || block.IsProtected(v.ID) {
					continue
				}

				if err := grid.SetMaterial(pos.Vec3, block.AirID, 0); err != nil {
					d.logger.Debug("не удалось снять воксель %s: %v", pos, err)
					continue
				}
				fb, err := d.spawner.Spawn(pos, v)
				if err != nil {
					_ = grid.SetMaterial(pos.Vec3, v.ID, v.Variant)
					d.logger.Debug("spawn %s at %s: %v", v, pos, err)
					continue
				}
				disarm(fb, d.logger)
				snapshots = append(snapshots, Snapshot{Pos: pos, Voxel: v})
			}
		}
	}
	return snapshots
}

var _ world.BreakHandler = (*CeilingDetector)(nil)
