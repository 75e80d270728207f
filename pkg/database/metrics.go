package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type poolMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(*pgxpool.Stat) float64
}

// PoolCollector exports pgxpool statistics as Prometheus metrics.
type PoolCollector struct {
	stat    func() *pgxpool.Stat
	metrics []poolMetric
}

var _ prometheus.Collector = (*PoolCollector)(nil)

// NewPoolCollector creates a collector for pool, labelled with service.
func NewPoolCollector(pool *pgxpool.Pool, service string) *PoolCollector {
	return newPoolCollector(pool.Stat, service)
}

func newPoolCollector(stat func() *pgxpool.Stat, service string) *PoolCollector {
	labels := prometheus.Labels{"service": service}
	metric := func(name, help string, kind prometheus.ValueType, fn func(*pgxpool.Stat) float64) poolMetric {
		return poolMetric{
			desc:  prometheus.NewDesc("db_pool_"+name, help, nil, labels),
			kind:  kind,
			value: fn,
		}
	}

	return &PoolCollector{
		stat: stat,
		metrics: []poolMetric{
			metric("acquired_connections", "Connections currently checked out.", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			metric("idle_connections", "Connections currently idle.", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			metric("total_connections", "Connections currently open.", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
			metric("max_connections", "Configured connection limit.", prometheus.GaugeValue,
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			metric("acquire_count_total", "Successful connection acquires.", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			metric("acquire_duration_seconds_total", "Time spent waiting for connections.", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			metric("empty_acquire_count_total", "Acquires that had to wait for a free connection.", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
			metric("canceled_acquire_count_total", "Acquires abandoned because the context ended.", prometheus.CounterValue,
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.stat()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(stat))
	}
}

// RegisterPoolMetrics registers a PoolCollector with the default registry.
// Registering the same service twice is not an error.
func RegisterPoolMetrics(pool *pgxpool.Pool, service string) error {
	err := prometheus.Register(NewPoolCollector(pool, service))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
