package metrics

import (
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatter exposes connection pool statistics.
type PoolStatter interface {
	Stat() *pgxpool.Stat
}

func registerPoolMetrics(pool PoolStatter, logger *log.Logger) {
	gauge := func(name, help string, read func(*pgxpool.Stat) float64) {
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: metricPrefix + name,
				Help: help,
			},
			func() float64 {
				return poolValue(pool, logger, read)
			},
		))
	}

	gauge("pool_acquired_conns", "Connections currently checked out of the pool", func(s *pgxpool.Stat) float64 {
		return float64(s.AcquiredConns())
	})
	gauge("pool_idle_conns", "Idle connections in the pool", func(s *pgxpool.Stat) float64 {
		return float64(s.IdleConns())
	})
	gauge("pool_max_conns", "Configured pool size", func(s *pgxpool.Stat) float64 {
		return float64(s.MaxConns())
	})
	gauge("pool_empty_acquire_total", "Acquires that had to wait for a connection", func(s *pgxpool.Stat) float64 {
		return float64(s.EmptyAcquireCount())
	})
	gauge("pool_canceled_acquire_total", "Acquires abandoned before a connection was available", func(s *pgxpool.Stat) float64 {
		return float64(s.CanceledAcquireCount())
	})
}

func poolValue(pool PoolStatter, logger *log.Logger, read func(*pgxpool.Stat) float64) float64 {
	stat := pool.Stat()
	if stat == nil {
		if logger != nil {
			logger.Printf("metrics pool stat unavailable")
		}
		return 0
	}
	return read(stat)
}
