package collapse

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/cavein/internal/eventbus"
	"github.com/annel0/cavein/internal/logging"
	"github.com/annel0/cavein/internal/world"
)

const tracerName = "github.com/annel0/cavein/internal/collapse"

// Engine — обработчик сломов для шахт и туннелей:
// антидребезг → классификация → исполнение → отметка срабатывания.
type Engine struct {
	analyzer *Analyzer
	executor *Executor
	cooldown CooldownLedger
	metrics  *Metrics
	pub      publisher
	logger   *logging.Logger
	tracer   trace.Tracer
}

// Option настраивает Engine
type Option func(*Engine)

// WithMetrics подключает Prometheus-метрики
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEventBus публикует отчёты об обрушениях в шину
func WithEventBus(bus eventbus.EventBus) Option {
	return func(e *Engine) { e.pub.bus = bus }
}

// WithLogger задаёт логгер компонента
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = l
		e.pub.logger = l
	}
}

// WithCooldown подменяет журнал антидребезга (например, на Redis)
func WithCooldown(c CooldownLedger) Option {
	return func(e *Engine) { e.cooldown = c }
}

// NewEngine создаёт движок
func NewEngine(settings Settings, spawner world.Spawner, opts ...Option) *Engine {
	e := &Engine{
		analyzer: NewAnalyzer(settings),
		cooldown: NewLedger(DefaultCooldown),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.executor = NewExecutor(settings, spawner, e.logger)
	return e
}

// HandleBreak реализует world.BreakHandler. Событие никогда не отменяется.
func (e *Engine) HandleBreak(ctx context.Context, ev *world.BreakEvent) {
	res, _ := e.Process(ctx, ev)
	if ev != nil {
		ev.Spawned += res.Spawned
	}
}

// Process выполняет полный проход по событию и возвращает итог.
// Событие без игрока или мира пропускается.
func (e *Engine) Process(ctx context.Context, ev *world.BreakEvent) (Result, Classification) {
	if ev == nil || ev.Actor == nil || ev.Grid == nil {
		return Result{}, Classification{}
	}
	start := time.Now()
	defer e.metrics.observeDuration(start)

	ctx, span := e.tracer.Start(ctx, "collapse.HandleBreak", trace.WithAttributes(
		attribute.String("world", ev.Pos.World),
		attribute.Int("x", ev.Pos.X),
		attribute.Int("y", ev.Pos.Y),
		attribute.Int("z", ev.Pos.Z),
		attribute.String("material", ev.Before.ID.String()),
	))
	defer span.End()

	logging.LogBreakEvent(e.logger, ev.Actor.ID().String(), ev.Pos.String(), ev.Before.String())

	actorID := ev.Actor.ID()
	if e.cooldown.IsCoolingDown(ctx, actorID, ev.Pos) {
		e.metrics.observeCooldown(detectorShaft)
		span.SetAttributes(attribute.Bool("cooldown", true))
		return Result{}, Classification{}
	}

	c := e.analyzer.Classify(ev.Grid, ev.Pos, ev.Before.ID, ev.Actor)
	span.SetAttributes(attribute.String("kind", c.Kind.String()))
	if c.Kind == KindNone {
		return Result{}, c
	}
	if c.SupportFound {
		e.metrics.observeSupport()
		span.SetAttributes(attribute.Bool("support_found", true))
		e.logger.Trace("туннель по оси %s у %s удержан крепью", c.Axis, ev.Pos)
		return Result{Kind: c.Kind}, c
	}

	res := e.executor.Execute(ev.Grid, c, ev.Pos, ev.Before.ID, ev.Actor)
	e.cooldown.MarkTriggered(ctx, actorID, ev.Pos)

	span.SetAttributes(attribute.Int("spawned", res.Spawned))
	e.metrics.observeCollapse(c.Kind, res.Spawned)
	logging.LogCollapse(e.logger, c.Kind.String(), ev.Pos.String(), res.Spawned, res.Cleared)
	e.pub.publish(ctx, eventbus.EventCollapseTriggered, newReport(ev.Pos, c, res, ev.Actor))
	return res, c
}

var _ world.BreakHandler = (*Engine)(nil)
