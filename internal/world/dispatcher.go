package world

import (
	"context"
	"fmt"
	"sync"
)

// Dispatcher доставляет события удаления вокселей зарегистрированным обработчикам.
// Все события сериализуются одним мьютексом — аналог главного потока симуляции хоста,
// поэтому обрушения разных событий не перемешиваются.
type Dispatcher struct {
	mu       sync.Mutex
	grids    map[string]Grid
	handlers []BreakHandler
}

// NewDispatcher создаёт диспетчер для набора миров
func NewDispatcher(grids ...Grid) *Dispatcher {
	d := &Dispatcher{grids: make(map[string]Grid, len(grids))}
	for _, g := range grids {
		d.grids[g.Name()] = g
	}
	return d
}

// Register добавляет обработчики; вызываются в порядке регистрации
func (d *Dispatcher) Register(handlers ...BreakHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			d.handlers = append(d.handlers, h)
		}
	}
}

// Grid возвращает мир по имени
func (d *Dispatcher) Grid(name string) (Grid, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	g, ok := d.grids[name]
	return g, ok
}

// Do выполняет fn под тем же мьютексом, что и обработка сломов.
// fn не должна вызывать методы диспетчера.
func (d *Dispatcher) Do(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Serialized оборачивает планировщик: его задачи выполняются через Do и
// не пересекаются с обработкой сломов.
func (d *Dispatcher) Serialized(s Scheduler) Scheduler {
	return serialScheduler{dispatcher: d, next: s}
}

type serialScheduler struct {
	dispatcher *Dispatcher
	next       Scheduler
}

func (s serialScheduler) RunAfter(delayTicks int64, job func()) {
	if job == nil || s.next == nil {
		return
	}
	s.next.RunAfter(delayTicks, func() { s.dispatcher.Do(job) })
}

// Break ломает воксель от имени actor: строит событие, прогоняет обработчики
// и удаляет воксель, если никто не отменил событие. Без actor мир не меняется.
func (d *Dispatcher) Break(ctx context.Context, actor Actor, pos Coord) (*BreakEvent, error) {
	if actor == nil {
		return nil, ErrNoActor
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	grid, ok := d.grids[pos.World]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorld, pos.World)
	}

	before := grid.MaterialAt(pos.Vec3)
	if before.IsAir() {
		return nil, fmt.Errorf("%w: %s", ErrEmptyVoxel, pos)
	}

	ev := &BreakEvent{Actor: actor, Grid: grid, Pos: pos, Before: before}
	for _, h := range d.handlers {
		h.HandleBreak(ctx, ev)
	}

	if ev.Cancelled() {
		return ev, nil
	}
	if err := grid.SetMaterial(pos.Vec3, Air.ID, 0); err != nil {
		return ev, fmt.Errorf("удаление вокселя %s: %w", pos, err)
	}
	return ev, nil
}
