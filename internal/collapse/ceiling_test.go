package collapse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world"
	"github.com/annel0/cavein/internal/world/block"
)

// pillarWorld — каменная колонна 3×3 на y 11..15 над одиночным вокселем на y=10
func pillarWorld(t *testing.T) *world.MemoryGrid {
	t.Helper()
	g := world.NewMemoryGrid(testWorld, 64)
	require.NoError(t, g.Fill(vec.Vec3{X: -1, Y: 11, Z: -1}, vec.Vec3{X: 1, Y: 15, Z: 1}, block.StoneID))
	put(t, g, 0, 10, 0, block.StoneID)
	return g
}

func newCeiling(sched world.Scheduler, sp world.Spawner, delay int64) *CeilingDetector {
	return NewCeilingDetector(CeilingConfig{
		Spawner:  sp,
		Restorer: NewRestorer(sched, delay, nil, nil, nil),
	})
}

func TestCeiling_SupportedBreakIgnored(t *testing.T) {
	g := pillarWorld(t)
	put(t, g, 1, 10, 1, block.CobblestoneID)
	sp := world.NewMemorySpawner()

	newCeiling(world.NewTickScheduler(), sp, DefaultRestoreDelay).HandleBreak(context.Background(), breakEvent(g, newActor(0, 9, 0), 0, 10, 0))
	assert.Zero(t, sp.Count())
}

func TestCeiling_NonSupportingNeighbours(t *testing.T) {
	g := pillarWorld(t)
	put(t, g, 1, 10, 0, block.WaterID)
	put(t, g, -1, 10, 0, block.BedrockID)
	sp := world.NewMemorySpawner()

	newCeiling(world.NewTickScheduler(), sp, DefaultRestoreDelay).HandleBreak(context.Background(), breakEvent(g, newActor(0, 9, 0), 0, 10, 0))
	assert.Equal(t, 46, sp.Count(), "вода и бедрок не считаются опорой")
}

func TestCeiling_CollapseAndRestore(t *testing.T) {
	g := pillarWorld(t)
	require.NoError(t, g.SetMaterial(vec.Vec3{X: 1, Y: 13, Z: 1}, block.SandID, 3))
	sched := world.NewTickScheduler()
	sp := world.NewMemorySpawner()

	ev := breakEvent(g, newActor(0, 9, 0), 0, 10, 0)
	newCeiling(sched, sp, DefaultRestoreDelay).HandleBreak(context.Background(), ev)

	assert.Equal(t, 46, sp.Count())
	assert.Equal(t, 46, ev.Spawned)
	assert.True(t, g.MaterialAt(vec.Vec3{X: 0, Y: 10, Z: 0}).IsAir(), "точка слома падает вместе с потолком")
	assert.True(t, g.MaterialAt(vec.Vec3{X: 0, Y: 12, Z: 0}).IsAir())
	originFell := false
	for _, e := range sp.Entities() {
		assert.False(t, e.DropItem)
		if e.Pos.Vec3 == (vec.Vec3{X: 0, Y: 10, Z: 0}) {
			originFell = true
			assert.Equal(t, block.StoneID, e.Voxel.ID)
		}
	}
	assert.True(t, originFell)
	require.Equal(t, 1, sched.Pending())

	// Одну клетку занимают до восстановления
	put(t, g, -1, 14, -1, block.DirtID)

	sched.Advance(int(DefaultRestoreDelay) - 1)
	assert.True(t, g.MaterialAt(vec.Vec3{X: 0, Y: 12, Z: 0}).IsAir())

	sched.Tick()
	assert.Zero(t, sched.Pending())
	assert.Equal(t, block.StoneID, g.MaterialAt(vec.Vec3{X: 0, Y: 12, Z: 0}).ID)
	assert.Equal(t, block.StoneID, g.MaterialAt(vec.Vec3{X: 0, Y: 10, Z: 0}).ID)
	assert.Equal(t, world.Voxel{ID: block.SandID, Variant: 3}, g.MaterialAt(vec.Vec3{X: 1, Y: 13, Z: 1}))
	assert.Equal(t, block.DirtID, g.MaterialAt(vec.Vec3{X: -1, Y: 14, Z: -1}).ID)
}

func TestCeiling_ThroughDispatcherRestoresOrigin(t *testing.T) {
	g := pillarWorld(t)
	sched := world.NewTickScheduler()
	sp := world.NewMemorySpawner()
	d := world.NewDispatcher(g)
	d.Register(newCeiling(d.Serialized(sched), sp, DefaultRestoreDelay))

	_, err := d.Break(context.Background(), newActor(0, 9, 0), world.At(testWorld, 0, 10, 0))
	require.NoError(t, err)
	assert.True(t, g.MaterialAt(vec.Vec3{X: 0, Y: 10, Z: 0}).IsAir())

	sched.Advance(int(DefaultRestoreDelay))
	assert.Equal(t, block.StoneID, g.MaterialAt(vec.Vec3{X: 0, Y: 10, Z: 0}).ID)
}

func TestCeiling_LegacySpawnerStillCollapses(t *testing.T) {
	g := pillarWorld(t)
	sp := world.NewMemorySpawner()
	sp.Legacy = true

	newCeiling(world.NewTickScheduler(), sp, DefaultRestoreDelay).HandleBreak(context.Background(), breakEvent(g, newActor(0, 9, 0), 0, 10, 0))
	assert.Equal(t, 46, sp.Count(), "ошибки переключателей не мешают обрушению")
	for _, e := range sp.Entities() {
		assert.True(t, e.DropItem)
	}
}

// Восстановление первого обрушения не должно вклиниться в обработку второго слома
func TestCeiling_RestoreWaitsForConcurrentCollapse(t *testing.T) {
	g := pillarWorld(t)
	sched := world.NewTickScheduler()
	sp := world.NewMemorySpawner()
	d := world.NewDispatcher(g)
	d.Register(newCeiling(d.Serialized(sched), sp, DefaultRestoreDelay))

	origin := world.At(testWorld, 0, 10, 0)
	cell := vec.Vec3{X: 0, Y: 12, Z: 0}

	_, err := d.Break(context.Background(), newActor(0, 9, 0), origin)
	require.NoError(t, err)
	sched.Advance(int(DefaultRestoreDelay) - 1)

	// Упавший грунт лёг на место колонны до восстановления
	require.NoError(t, g.Fill(vec.Vec3{X: -1, Y: 11, Z: -1}, vec.Vec3{X: 1, Y: 15, Z: 1}, block.DirtID))
	put(t, g, 0, 10, 0, block.DirtID)

	var duringBreak world.Voxel
	done := make(chan struct{})
	d.Register(world.BreakHandlerFunc(func(ctx context.Context, ev *world.BreakEvent) {
		go func() {
			sched.Tick()
			close(done)
		}()
		time.Sleep(30 * time.Millisecond)
		duringBreak = g.MaterialAt(cell)
	}))

	_, err = d.Break(context.Background(), newActor(0, 9, 0), origin)
	require.NoError(t, err)
	<-done

	assert.True(t, duringBreak.IsAir(), "клетка снята вторым обрушением и ещё не восстановлена")

	perPass := map[block.MaterialID]int{}
	for _, e := range sp.Entities() {
		if e.Pos.Vec3 == cell {
			perPass[e.Voxel.ID]++
		}
	}
	assert.Equal(t, map[block.MaterialID]int{block.StoneID: 1, block.DirtID: 1}, perPass)
	assert.Equal(t, block.StoneID, g.MaterialAt(cell).ID, "восстановление первого прохода после слома")
}

func TestCeiling_ProtectedOriginIgnored(t *testing.T) {
	for _, id := range []block.MaterialID{block.BedrockID, block.LavaID} {
		g := pillarWorld(t)
		put(t, g, 0, 10, 0, id)
		sp := world.NewMemorySpawner()

		newCeiling(world.NewTickScheduler(), sp, DefaultRestoreDelay).HandleBreak(context.Background(), breakEvent(g, newActor(0, 9, 0), 0, 10, 0))
		assert.Zero(t, sp.Count(), id.String())
	}
}

func TestCeiling_CooldownAndNoRestoreDelay(t *testing.T) {
	g := pillarWorld(t)
	sched := world.NewTickScheduler()
	sp := world.NewMemorySpawner()
	d := newCeiling(sched, sp, 0)
	actor := newActor(0, 9, 0)

	d.HandleBreak(context.Background(), breakEvent(g, actor, 0, 10, 0))
	require.Equal(t, 46, sp.Count())
	assert.Zero(t, sched.Pending(), "задержка 0 отключает восстановление")

	// Колонну восстановили вручную — повторный слом в окне подавлен
	require.NoError(t, g.Fill(vec.Vec3{X: -1, Y: 11, Z: -1}, vec.Vec3{X: 1, Y: 15, Z: 1}, block.StoneID))
	put(t, g, 0, 10, 0, block.StoneID)
	d.HandleBreak(context.Background(), breakEvent(g, actor, 0, 10, 0))
	assert.Equal(t, 46, sp.Count())
}

func TestCeiling_NilActorIsNoop(t *testing.T) {
	g := pillarWorld(t)
	sp := world.NewMemorySpawner()
	d := newCeiling(world.NewTickScheduler(), sp, DefaultRestoreDelay)

	d.HandleBreak(context.Background(), breakEvent(g, nil, 0, 10, 0))
	d.HandleBreak(context.Background(), nil)
	assert.Zero(t, sp.Count())
}

// brokenGrid паникует при записи в выбранную точку
type brokenGrid struct {
	*world.MemoryGrid
	panicAt vec.Vec3
}

func (g brokenGrid) SetMaterial(pos vec.Vec3, id block.MaterialID, variant byte) error {
	if pos == g.panicAt {
		panic("хост не может записать воксель")
	}
	return g.MemoryGrid.SetMaterial(pos, id, variant)
}

func TestRestore_FailuresDoNotAbort(t *testing.T) {
	mg := world.NewMemoryGrid(testWorld, 16)
	g := brokenGrid{MemoryGrid: mg, panicAt: vec.Vec3{X: 0, Y: 1, Z: 0}}
	require.NoError(t, mg.SetMaterial(vec.Vec3{X: 0, Y: 3, Z: 0}, block.DirtID, 0))
	snaps := []Snapshot{
		{Pos: world.At(testWorld, 0, 1, 0), Voxel: world.Voxel{ID: block.StoneID}},
		{Pos: world.At(testWorld, 0, 99, 0), Voxel: world.Voxel{ID: block.StoneID}}, // вне мира
		{Pos: world.At(testWorld, 0, 2, 0), Voxel: world.Voxel{ID: block.GravelID, Variant: 1}},
		{Pos: world.At(testWorld, 0, 3, 0), Voxel: world.Voxel{ID: block.StoneID}}, // занято
	}

	stats := Restore(g, snaps, nil)
	assert.Equal(t, RestoreStats{Restored: 1, Skipped: 1, Failed: 2}, stats)
	assert.Equal(t, world.Voxel{ID: block.GravelID, Variant: 1}, mg.MaterialAt(vec.Vec3{X: 0, Y: 2, Z: 0}))
}

func TestRestorer_EmptyListNotScheduled(t *testing.T) {
	sched := world.NewTickScheduler()
	r := NewRestorer(sched, 10, nil, nil, nil)
	assert.False(t, r.Schedule(world.NewMemoryGrid(testWorld, 16), nil))
	assert.Zero(t, sched.Pending())

	var nilRestorer *Restorer
	assert.False(t, nilRestorer.Schedule(world.NewMemoryGrid(testWorld, 16), []Snapshot{{}}))
}
