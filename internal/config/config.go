package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/cavein/internal/collapse"
	"github.com/annel0/cavein/internal/world/block"
)

// ErrUnknownMaterial — в конфигурации указан незарегистрированный материал
var ErrUnknownMaterial = errors.New("unknown material")

// Config корневая структура конфигурации сервера обрушений.
type Config struct {
	Collapse  CollapseConfig  `yaml:"collapse"`
	World     WorldConfig     `yaml:"world"`
	Server    ServerConfig    `yaml:"server"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Cooldown  CooldownConfig  `yaml:"cooldown"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// CollapseConfig — параметры движка обрушений
type CollapseConfig struct {
	CollapseHeight   int          `yaml:"collapse-height"`
	RestoreDelay     int64        `yaml:"collapse-restore-delay"` // в тиках
	CooldownMs       int64        `yaml:"collapse-cooldown-ms"`
	Debug            bool         `yaml:"debug"`
	Whitelist        []string     `yaml:"whitelist"`
	FallbackMaterial string       `yaml:"fallback-material"`
	CeilingEnabled   bool         `yaml:"ceiling-enabled"`
	Policy           PolicyConfig `yaml:"policy"`
}

// PolicyConfig включает дополнительные правила классификации
type PolicyConfig struct {
	OreExemption   bool   `yaml:"ore-exemption"`
	CaveCeiling    bool   `yaml:"cave-ceiling"`
	VerticalMode   string `yaml:"vertical-mode"` // air-run | layered
	FillWithBroken bool   `yaml:"fill-with-broken"`
}

type WorldConfig struct {
	Name         string `yaml:"name"`
	Seed         int64  `yaml:"seed"`
	MaxHeight    int    `yaml:"max_height"`
	Radius       int    `yaml:"radius_chunks"`
	DataDir      string `yaml:"data_dir"` // пусто — без сохранения
	AutosaveSecs int    `yaml:"autosave_seconds"`
	TickRate     int    `yaml:"tick_rate"`
}

type ServerConfig struct {
	RESTPort int `yaml:"rest_port"`
}

type EventBusConfig struct {
	Driver    string `yaml:"driver"` // memory | jetstream
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type CooldownConfig struct {
	Backend   string `yaml:"backend"` // memory | redis
	RedisAddr string `yaml:"redis_addr"`
	RedisPass string `yaml:"redis_password"`
	RedisDB   int    `yaml:"redis_db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Collapse: CollapseConfig{
			CollapseHeight:   collapse.DefaultCollapseHeight,
			RestoreDelay:     collapse.DefaultRestoreDelay,
			CooldownMs:       collapse.DefaultCooldown.Milliseconds(),
			Whitelist:        block.DefaultWhitelist().Names(),
			FallbackMaterial: "DIRT",
			CeilingEnabled:   true,
			Policy:           PolicyConfig{VerticalMode: "air-run"},
		},
		World: WorldConfig{
			Name:         "world",
			Seed:         1,
			MaxHeight:    128,
			Radius:       2,
			AutosaveSecs: 60,
			TickRate:     20,
		},
		EventBus: EventBusConfig{
			Driver:    "memory",
			Stream:    "CAVEIN",
			Retention: 24,
			Buffer:    1024,
		},
		Cooldown: CooldownConfig{
			Backend:   "memory",
			KeyPrefix: "cavein:cooldown:",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4318",
			ServiceName: "cavein-server",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// GetRESTPort возвращает REST API порт с приоритетом: config -> env -> default
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "CAVEIN_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return defaultPort
}

// Load читает YAML поверх значений по умолчанию.
// Если path == "", берётся ENV CAVEIN_CONFIG; если и он пуст — только дефолты.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CAVEIN_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения и разрешает имена материалов
func (c *Config) Validate() error {
	if _, err := c.Collapse.Settings(); err != nil {
		return err
	}
	if c.Collapse.CollapseHeight < 0 {
		return fmt.Errorf("collapse.collapse-height: отрицательное значение %d", c.Collapse.CollapseHeight)
	}
	if c.Collapse.CooldownMs < 0 {
		return fmt.Errorf("collapse.collapse-cooldown-ms: отрицательное значение %d", c.Collapse.CooldownMs)
	}
	if c.World.MaxHeight <= 0 {
		return fmt.Errorf("world.max_height должен быть > 0")
	}
	switch c.EventBus.Driver {
	case "", "memory", "jetstream":
	default:
		return fmt.Errorf("eventbus.driver: неизвестный драйвер %q", c.EventBus.Driver)
	}
	switch c.Cooldown.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("cooldown.backend: неизвестный backend %q", c.Cooldown.Backend)
	}
	return nil
}

// Settings собирает параметры движка обрушений
func (c *CollapseConfig) Settings() (collapse.Settings, error) {
	s := collapse.DefaultSettings()
	s.Debug = c.Debug

	if len(c.Whitelist) > 0 {
		wl, err := block.ParseWhitelist(c.Whitelist)
		if err != nil {
			return s, fmt.Errorf("collapse.whitelist: %w: %v", ErrUnknownMaterial, err)
		}
		s.Whitelist = wl
	}

	if c.FallbackMaterial != "" {
		id, ok := block.ByName(c.FallbackMaterial)
		if !ok || block.IsAir(id) || block.IsProtected(id) {
			return s, fmt.Errorf("collapse.fallback-material %q: %w", c.FallbackMaterial, ErrUnknownMaterial)
		}
		s.Fallback = id
	}

	mode, err := collapse.ParseVerticalMode(c.Policy.VerticalMode)
	if err != nil {
		return s, fmt.Errorf("collapse.policy.vertical-mode: %w", err)
	}
	s.Policy = collapse.Policy{
		OreExemption:   c.Policy.OreExemption,
		CaveCeiling:    c.Policy.CaveCeiling,
		VerticalMode:   mode,
		FillWithBroken: c.Policy.FillWithBroken,
	}
	return s, nil
}

// Cooldown возвращает окно антидребезга
func (c *CollapseConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}
