package world

import (
	"context"

	"github.com/google/uuid"
)

// Actor — инициатор события (игрок или другой агент хоста)
type Actor interface {
	ID() uuid.UUID
	Position() Coord
	SendMessage(msg string)
}

// BreakEvent создаётся хостом при каждом удалении вокселя.
// Обработчики вызываются до фактического удаления: в Grid клетка ещё содержит Before.
type BreakEvent struct {
	Actor  Actor // Кто сломал блок (может быть nil)
	Grid   Grid  // Мир, в котором произошло событие
	Pos    Coord // Координата вокселя
	Before Voxel // Воксель до удаления

	// Spawned — сколько падающих объектов создали обработчики
	Spawned int

	cancelled bool
}

// Cancel отменяет удаление вокселя
func (e *BreakEvent) Cancel() { e.cancelled = true }

// Cancelled сообщает, отменено ли удаление
func (e *BreakEvent) Cancelled() bool { return e.cancelled }

// BreakHandler обрабатывает события удаления вокселей
type BreakHandler interface {
	HandleBreak(ctx context.Context, ev *BreakEvent)
}

// BreakHandlerFunc адаптирует функцию к BreakHandler
type BreakHandlerFunc func(ctx context.Context, ev *BreakEvent)

// HandleBreak вызывает f(ctx, ev)
func (f BreakHandlerFunc) HandleBreak(ctx context.Context, ev *BreakEvent) {
	f(ctx, ev)
}
