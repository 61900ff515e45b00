package collapse

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Имена детекторов для метки detector
const (
	detectorShaft   = "shaft"
	detectorCeiling = "ceiling"
)

// Metrics — Prometheus-метрики движка. Методы безопасны для nil.
type Metrics struct {
	collapses          *prometheus.CounterVec
	fallingBlocks      *prometheus.CounterVec
	cooldownSuppressed *prometheus.CounterVec
	supportSuppressed  prometheus.Counter
	restorations       *prometheus.CounterVec
	breakDuration      prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil — глобальный реестр)
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		collapses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cavein_collapses_total",
			Help: "Сработавшие обрушения по типу.",
		}, []string{"kind"}),
		fallingBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cavein_falling_blocks_total",
			Help: "Созданные падающие объекты по типу обрушения.",
		}, []string{"kind"}),
		cooldownSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cavein_cooldown_suppressed_total",
			Help: "События, подавленные антидребезгом.",
		}, []string{"detector"}),
		supportSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cavein_support_suppressed_total",
			Help: "Туннели, удержанные деревянной крепью.",
		}),
		restorations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cavein_restorations_total",
			Help: "Результаты восстановления вокселей (restored, skipped, failed).",
		}, []string{"result"}),
		breakDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cavein_break_duration_seconds",
			Help:    "Время обработки события слома.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
	}

	for _, c := range []prometheus.Collector{
		m.collapses, m.fallingBlocks, m.cooldownSuppressed,
		m.supportSuppressed, m.restorations, m.breakDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeCollapse(kind Kind, spawned int) {
	if m == nil {
		return
	}
	m.collapses.WithLabelValues(kind.String()).Inc()
	m.fallingBlocks.WithLabelValues(kind.String()).Add(float64(spawned))
}

func (m *Metrics) observeCooldown(detector string) {
	if m == nil {
		return
	}
	m.cooldownSuppressed.WithLabelValues(detector).Inc()
}

func (m *Metrics) observeSupport() {
	if m == nil {
		return
	}
	m.supportSuppressed.Inc()
}

func (m *Metrics) observeRestore(s RestoreStats) {
	if m == nil {
		return
	}
	m.restorations.WithLabelValues("restored").Add(float64(s.Restored))
	m.restorations.WithLabelValues("skipped").Add(float64(s.Skipped))
	m.restorations.WithLabelValues("failed").Add(float64(s.Failed))
}

func (m *Metrics) observeDuration(start time.Time) {
	if m == nil {
		return
	}
	m.breakDuration.Observe(time.Since(start).Seconds())
}
