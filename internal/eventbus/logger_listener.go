package eventbus

import (
	"context"

	"github.com/annel0/cavein/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus, logger *logging.Logger) (Subscription, error) {
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		r, err := DecodeReport(ev)
		if err != nil {
			logger.Debug("[EventBus] %s %s src=%s size=%dB", ev.ID, ev.EventType, ev.Source, len(ev.Payload))
			return
		}
		logger.Debug("[EventBus] %s %s %s:%d,%d,%d kind=%s spawned=%d restored=%d",
			ev.ID, ev.EventType, r.World, r.X, r.Y, r.Z, r.Kind, r.Spawned, r.Restored)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
