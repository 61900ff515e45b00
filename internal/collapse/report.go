package collapse

import (
	"context"
	"time"

	"github.com/annel0/cavein/internal/eventbus"
	"github.com/annel0/cavein/internal/logging"
	"github.com/annel0/cavein/internal/world"
)

// publisher отправляет отчёты об обрушениях в шину событий
type publisher struct {
	bus    eventbus.EventBus
	logger *logging.Logger
}

func (p publisher) publish(ctx context.Context, eventType string, r eventbus.CollapseReport) {
	if p.bus == nil {
		return
	}
	env, err := eventbus.NewEnvelope(r.World, eventType, r)
	if err != nil {
		p.logger.Warn("отчёт %s не сериализован: %v", eventType, err)
		return
	}
	if err := p.bus.Publish(ctx, env); err != nil {
		p.logger.Warn("публикация %s: %v", eventType, err)
	}
}

func newReport(origin world.Coord, c Classification, res Result, actor world.Actor) eventbus.CollapseReport {
	r := eventbus.CollapseReport{
		World:        origin.World,
		X:            origin.X,
		Y:            origin.Y,
		Z:            origin.Z,
		Kind:         c.Kind.String(),
		SupportFound: c.SupportFound,
		Spawned:      res.Spawned,
		Cleared:      res.Cleared,
		At:           time.Now().UTC(),
	}
	if c.Kind == KindHorizontalTunnel {
		r.Axis = c.Axis.String()
		r.Direction = c.Direction
		r.RunLength = c.RunLength
	}
	if actor != nil {
		r.ActorID = actor.ID().String()
	}
	return r
}
