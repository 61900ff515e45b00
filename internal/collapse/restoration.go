package collapse

import (
	"context"
	"fmt"

	"github.com/annel0/cavein/internal/eventbus"
	"github.com/annel0/cavein/internal/logging"
	"github.com/annel0/cavein/internal/world"
)

// DefaultRestoreDelay — задержка восстановления в тиках
const DefaultRestoreDelay int64 = 200

// Snapshot — состояние вокселя до обрушения
type Snapshot struct {
	Pos   world.Coord
	Voxel world.Voxel
}

// RestoreStats — итог одного прохода восстановления
type RestoreStats struct {
	Restored int
	Skipped  int // клетку уже кто-то занял
	Failed   int
}

// Restorer возвращает снятые воксели на место через заданное число тиков
type Restorer struct {
	scheduler world.Scheduler
	delay     int64
	metrics   *Metrics
	pub       publisher
	logger    *logging.Logger
}

// NewRestorer создаёт планировщик восстановления. delay <= 0 отключает восстановление.
func NewRestorer(scheduler world.Scheduler, delay int64, metrics *Metrics, bus eventbus.EventBus, logger *logging.Logger) *Restorer {
	return &Restorer{
		scheduler: scheduler,
		delay:     delay,
		metrics:   metrics,
		pub:       publisher{bus: bus, logger: logger},
		logger:    logger,
	}
}

// Schedule ставит одну отложенную задачу на весь список снимков.
// Пустой список, отключённая задержка или отсутствие планировщика — ничего не делает.
func (r *Restorer) Schedule(grid world.Grid, snapshots []Snapshot) bool {
	if r == nil || r.scheduler == nil || grid == nil || len(snapshots) == 0 || r.delay <= 0 {
		return false
	}

	pending := make([]Snapshot, len(snapshots))
	copy(pending, snapshots)

	r.scheduler.RunAfter(r.delay, func() {
		stats := Restore(grid, pending, r.logger)
		r.metrics.observeRestore(stats)
		r.logger.Debug("восстановление %d вокселей: restored=%d skipped=%d failed=%d",
			len(pending), stats.Restored, stats.Skipped, stats.Failed)

		origin := pending[0].Pos
		r.pub.publish(context.Background(), eventbus.EventCollapseRestored, eventbus.CollapseReport{
			World:    origin.World,
			X:        origin.X,
			Y:        origin.Y,
			Z:        origin.Z,
			Kind:     KindCaveCeiling.String(),
			Restored: stats.Restored,
		})
	})
	return true
}

// Restore возвращает каждый снимок, только если его клетка всё ещё пуста.
// Ошибка одного снимка не прерывает остальные.
func Restore(grid world.Grid, snapshots []Snapshot, logger *logging.Logger) RestoreStats {
	var stats RestoreStats
	for _, s := range snapshots {
		restored, err := restoreOne(grid, s)
		switch {
		case err != nil:
			stats.Failed++
			logger.Debug("восстановление %s пропущено: %v", s.Pos, err)
		case restored:
			stats.Restored++
		default:
			stats.Skipped++
		}
	}
	return stats
}

func restoreOne(grid world.Grid, s Snapshot) (restored bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			restored, err = false, fmt.Errorf("panic: %v", p)
		}
	}()

	if !grid.MaterialAt(s.Pos.Vec3).IsAir() {
		return false, nil
	}
	if err := grid.SetMaterial(s.Pos.Vec3, s.Voxel.ID, s.Voxel.Variant); err != nil {
		return false, err
	}
	return true, nil
}
