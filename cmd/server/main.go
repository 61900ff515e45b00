package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/cavein/internal/api"
	"github.com/annel0/cavein/internal/cache"
	"github.com/annel0/cavein/internal/collapse"
	"github.com/annel0/cavein/internal/config"
	"github.com/annel0/cavein/internal/eventbus"
	"github.com/annel0/cavein/internal/logging"
	"github.com/annel0/cavein/internal/observability"
	"github.com/annel0/cavein/internal/storage"
	"github.com/annel0/cavein/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML-конфигурации (или CAVEIN_CONFIG)")
	flag.Parse()

	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка загрузки конфигурации: %v", err)
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	setupLogLevels(cfg.Logging.Level)

	logging.Info("⛏️  Запуск сервера обрушений (мир %s, REST :%d)", cfg.World.Name, cfg.Server.GetRESTPort())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// === ТРАССИРОВКА ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    true,
		})
		if err != nil {
			logging.Warn("Трассировка отключена: %v", err)
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				_ = shutdown(sctx)
			}()
		}
	}

	// === МИР ===
	grid := world.NewMemoryGrid(cfg.World.Name, cfg.World.MaxHeight)
	logging.Debug("Генерация мира: сид %d, радиус %d чанков", cfg.World.Seed, cfg.World.Radius)
	if err := world.NewWorldGenerator(cfg.World.Seed).GenerateRegion(grid, cfg.World.Radius); err != nil {
		log.Fatalf("❌ Ошибка генерации мира: %v", err)
	}

	var ws *storage.WorldStorage
	if cfg.World.DataDir != "" {
		ws, err = storage.NewWorldStorage(cfg.World.DataDir, logging.GetStorageLogger())
		if err != nil {
			log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
		}
		defer ws.Close()

		loaded, err := ws.LoadGrid(grid)
		if err != nil {
			logging.Error("❌ Ошибка загрузки мира: %v", err)
		} else {
			logging.Info("💾 Загружено сохранённых чанков: %d", loaded)
		}
	}

	// === ШИНА СОБЫТИЙ ===
	bus, err := newEventBus(cfg.EventBus)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения шины событий: %v", err)
	}
	eventbus.Init(bus)
	defer bus.Close()

	if _, err := eventbus.StartLoggingListener(ctx, bus, logging.GetEventsLogger()); err != nil {
		logging.Warn("Слушатель событий не запущен: %v", err)
	}

	// === МЕТРИКИ ===
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := collapse.NewMetrics(reg)
	if err != nil {
		log.Fatalf("❌ Ошибка регистрации метрик: %v", err)
	}
	if err := eventbus.NewCollector(bus).Register(reg); err != nil {
		logging.Warn("Метрики шины не зарегистрированы: %v", err)
	}

	// === ДВИЖОК ===
	settings, err := cfg.Collapse.Settings()
	if err != nil {
		log.Fatalf("❌ Ошибка настроек обрушений: %v", err)
	}

	shaftCooldown, ceilingCooldown, err := newCooldowns(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения Redis: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	spawner := world.NewMemorySpawner()
	scheduler := world.NewTickScheduler()
	g.Go(func() error {
		scheduler.Run(gctx, cfg.World.TickRate)
		return nil
	})

	dispatcher := world.NewDispatcher(grid)
	dispatcher.Register(collapse.NewEngine(settings, spawner,
		collapse.WithMetrics(metrics),
		collapse.WithEventBus(bus),
		collapse.WithLogger(logging.GetCollapseLogger()),
		collapse.WithCooldown(shaftCooldown),
	))

	if cfg.Collapse.CeilingEnabled {
		restorer := collapse.NewRestorer(dispatcher.Serialized(scheduler), cfg.Collapse.RestoreDelay, metrics, bus, logging.GetRestoreLogger())
		dispatcher.Register(collapse.NewCeilingDetector(collapse.CeilingConfig{
			Height:    cfg.Collapse.CollapseHeight,
			MaxBlocks: settings.Limits.MaxFallingBlocks,
			Spawner:   spawner,
			Cooldown:  ceilingCooldown,
			Restorer:  restorer,
			Metrics:   metrics,
			Bus:       bus,
			Logger:    logging.GetCollapseLogger(),
		}))
	}
	logging.Info("✅ Движок обрушений готов: whitelist=%v, режим=%s", settings.Whitelist.Names(), settings.Policy.VerticalMode)

	// === REST API ===
	rest, err := api.NewRestServer(api.Config{
		Port:       fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		Dispatcher: dispatcher,
		Spawner:    spawner,
		Scheduler:  scheduler,
		Registry:   reg,
		Logger:     logging.GetAPILogger(),
	})
	if err != nil {
		log.Fatalf("❌ Ошибка создания REST API: %v", err)
	}
	g.Go(func() error {
		if err := rest.Start(); err != nil {
			return fmt.Errorf("REST API: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		return rest.Stop(stopCtx)
	})

	if ws != nil && cfg.World.AutosaveSecs > 0 {
		g.Go(func() error {
			autosave(gctx, ws, grid, time.Duration(cfg.World.AutosaveSecs)*time.Second)
			return nil
		})
	}

	logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.Server.GetRESTPort())
	logging.Info("   💥 Слом: curl -X POST http://localhost:%d/api/worlds/%s/break -d '{\"x\":0,\"y\":20,\"z\":0}'",
		cfg.Server.GetRESTPort(), cfg.World.Name)

	<-gctx.Done()
	logging.Info("📡 Получен сигнал завершения, останавливаемся...")

	// === GRACEFUL SHUTDOWN ===
	if err := g.Wait(); err != nil {
		logging.Error("❌ Ошибка при остановке: %v", err)
	}

	if ws != nil {
		if saved, err := ws.SaveGrid(grid); err != nil {
			logging.Error("❌ Ошибка финального сохранения: %v", err)
		} else {
			logging.Info("💾 Сохранено чанков: %d", saved)
		}
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// setupLogLevels применяет уровень консоли к компонентным логгерам
func setupLogLevels(level string) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		logging.Warn("%v, используется INFO", err)
	}
	logging.GetLoggerManager().SetConsoleLevel(lvl)
}

func newEventBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	switch cfg.Driver {
	case "jetstream":
		logging.Info("📨 Шина событий: NATS JetStream %s (стрим %s)", cfg.URL, cfg.Stream)
		return eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	default:
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}
}

// newCooldowns создаёт журналы антидребезга движка и детектора потолков
func newCooldowns(cfg *config.Config) (collapse.CooldownLedger, collapse.CooldownLedger, error) {
	window := cfg.Collapse.Cooldown()
	if cfg.Cooldown.Backend != "redis" {
		return collapse.NewLedger(window), collapse.NewLedger(window), nil
	}

	rcfg := cache.RedisConfig{
		Addr:      cfg.Cooldown.RedisAddr,
		Password:  cfg.Cooldown.RedisPass,
		DB:        cfg.Cooldown.RedisDB,
		KeyPrefix: cfg.Cooldown.KeyPrefix + "shaft:",
	}
	shaft, client, err := cache.NewRedisLedger(rcfg, window, logging.GetCollapseLogger())
	if err != nil {
		return nil, nil, err
	}
	ceiling := cache.NewRedisLedgerWithClient(client, cfg.Cooldown.KeyPrefix+"ceiling:", window, rcfg.Timeout, logging.GetCollapseLogger())
	logging.Info("🧊 Антидребезг в Redis %s", cfg.Cooldown.RedisAddr)
	return shaft, ceiling, nil
}

// autosave периодически сохраняет изменённые чанки
func autosave(ctx context.Context, ws *storage.WorldStorage, grid *world.MemoryGrid, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ws.SaveGrid(grid); err != nil {
				logging.Error("❌ Ошибка автосохранения: %v", err)
			}
		}
	}
}
