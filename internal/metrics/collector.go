package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"oxray-share/internal/domain"
)

// Module provides the metrics collector
var Module = fx.Options(
	fx.Provide(NewCollector),
	fx.Provide(func(c *Collector) domain.MetricsRecorder { return c }),
)

type Collector struct {
	logger          *zap.Logger
	importsTotal    *prometheus.CounterVec
	importDuration  prometheus.Histogram
	expansionsTotal *prometheus.CounterVec
	sweepsTotal     prometheus.Counter
	recordsRemoved  prometheus.Counter
}

func NewCollector(logger *zap.Logger) *Collector {
	return &Collector{
		logger: logger,
		importsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "share_imports_total",
				Help: "Total number of share imports by outcome",
			},
			[]string{"result"},
		),
		importDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "share_import_duration_seconds",
				Help:    "Duration of share imports",
				Buckets: prometheus.DefBuckets,
			},
		),
		expansionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "share_template_expansions_total",
				Help: "Total number of template expansions",
			},
			[]string{"template_id"},
		),
		sweepsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "share_ledger_sweeps_total",
				Help: "Total number of ledger cleanup passes",
			},
		),
		recordsRemoved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "share_ledger_records_removed_total",
				Help: "Total number of expired test records removed",
			},
		),
	}
}

func (c *Collector) RecordImport(result string, duration time.Duration) {
	c.importsTotal.WithLabelValues(result).Inc()
	c.importDuration.Observe(duration.Seconds())
}

func (c *Collector) RecordTemplateExpansion(templateID string) {
	c.expansionsTotal.WithLabelValues(templateID).Inc()
}

func (c *Collector) RecordSweep(removed int) {
	c.sweepsTotal.Inc()
	c.recordsRemoved.Add(float64(removed))
}
