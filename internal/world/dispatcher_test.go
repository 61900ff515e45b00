package world

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annel0/cavein/internal/vec"
	"github.com/annel0/cavein/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_BreakRemovesVoxel(t *testing.T) {
	g := NewMemoryGrid("world", 32)
	pos := At("world", 1, 1, 1)
	require.NoError(t, g.SetMaterial(pos.Vec3, block.StoneID, 0))

	d := NewDispatcher(g)
	var seen []Voxel
	d.Register(BreakHandlerFunc(func(ctx context.Context, ev *BreakEvent) {
		// Обработчик видит воксель до удаления
		seen = append(seen, ev.Grid.MaterialAt(ev.Pos.Vec3))
		assert.Equal(t, block.StoneID, ev.Before.ID)
	}))

	ev, err := d.Break(context.Background(), NewPlayer("steve", pos), pos)
	require.NoError(t, err)
	assert.False(t, ev.Cancelled())
	assert.Equal(t, []Voxel{{ID: block.StoneID}}, seen)
	assert.True(t, g.MaterialAt(pos.Vec3).IsAir())
}

func TestDispatcher_CancelledBreakKeepsVoxel(t *testing.T) {
	g := NewMemoryGrid("world", 32)
	pos := At("world", 0, 3, 0)
	require.NoError(t, g.SetMaterial(pos.Vec3, block.GlassID, 0))

	d := NewDispatcher(g)
	d.Register(BreakHandlerFunc(func(ctx context.Context, ev *BreakEvent) { ev.Cancel() }))

	ev, err := d.Break(context.Background(), NewPlayer("alex", pos), pos)
	require.NoError(t, err)
	assert.True(t, ev.Cancelled())
	assert.Equal(t, block.GlassID, g.MaterialAt(vec.Vec3{Y: 3}).ID)
}

func TestDispatcher_Errors(t *testing.T) {
	d := NewDispatcher(NewMemoryGrid("world", 32))
	p := NewPlayer("steve", At("world", 0, 6, 0))

	_, err := d.Break(context.Background(), p, At("nether", 0, 0, 0))
	assert.True(t, errors.Is(err, ErrUnknownWorld))

	_, err = d.Break(context.Background(), p, At("world", 0, 5, 0))
	assert.True(t, errors.Is(err, ErrEmptyVoxel))
}

func TestDispatcher_NilActorKeepsVoxel(t *testing.T) {
	g := NewMemoryGrid("world", 32)
	pos := At("world", 2, 4, 2)
	require.NoError(t, g.SetMaterial(pos.Vec3, block.StoneID, 0))

	d := NewDispatcher(g)
	called := false
	d.Register(BreakHandlerFunc(func(ctx context.Context, ev *BreakEvent) { called = true }))

	ev, err := d.Break(context.Background(), nil, pos)
	assert.True(t, errors.Is(err, ErrNoActor))
	assert.Nil(t, ev)
	assert.False(t, called)
	assert.Equal(t, block.StoneID, g.MaterialAt(pos.Vec3).ID)
}

func TestDispatcher_SerializedJobWaitsForBreak(t *testing.T) {
	g := NewMemoryGrid("world", 32)
	pos := At("world", 0, 2, 0)
	require.NoError(t, g.SetMaterial(pos.Vec3, block.StoneID, 0))

	sched := NewTickScheduler()
	d := NewDispatcher(g)

	var ran atomic.Bool
	d.Serialized(sched).RunAfter(1, func() { ran.Store(true) })

	done := make(chan struct{})
	d.Register(BreakHandlerFunc(func(ctx context.Context, ev *BreakEvent) {
		go func() {
			sched.Tick()
			close(done)
		}()
		// Тик идёт в другой горутине, но задача ждёт конца слома
		time.Sleep(30 * time.Millisecond)
		assert.False(t, ran.Load())
	}))

	_, err := d.Break(context.Background(), NewPlayer("steve", pos), pos)
	require.NoError(t, err)

	<-done
	assert.True(t, ran.Load())
}

func TestDispatcher_Do(t *testing.T) {
	d := NewDispatcher()
	n := 0
	d.Do(func() { n++ })
	d.Do(nil)
	assert.Equal(t, 1, n)
}
