package metrics

import (
	"context"
	"time"

	"hermes/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// CustomCollector collects inventory-style metrics from the databases
type CustomCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn

	// Descriptors
	observationRows *prometheus.Desc
	biasDirections  *prometheus.Desc
	pendingEvents   *prometheus.Desc
	releases24h     *prometheus.Desc
	priceRows       *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn) *CustomCollector {
	return &CustomCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,

		observationRows: prometheus.NewDesc(
			"hermes_observation_rows",
			"Total stored indicator observations",
			nil, nil,
		),
		biasDirections: prometheus.NewDesc(
			"hermes_bias_directions",
			"Current macro biases by direction",
			[]string{"direction"}, nil,
		),
		pendingEvents: prometheus.NewDesc(
			"hermes_pending_events",
			"Scheduled economic events without a release",
			nil, nil,
		),
		releases24h: prometheus.NewDesc(
			"hermes_releases_24h",
			"Economic releases recorded in last 24h",
			nil, nil,
		),
		priceRows: prometheus.NewDesc(
			"hermes_price_rows",
			"Total stored daily price points",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.observationRows
	ch <- c.biasDirections
	ch <- c.pendingEvents
	ch <- c.releases24h
	ch <- c.priceRows
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectObservationRows(ctx, ch)
	c.collectBiasDirections(ctx, ch)
	c.collectEventStats(ctx, ch)
	c.collectPriceRows(ctx, ch)
}

func (c *CustomCollector) collectObservationRows(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int
	err := c.postgres.GetContext(ctx, &count, "SELECT COUNT(*) FROM indicator_observations")
	if err != nil {
		c.log.Error("Failed to collect observation count metric", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.observationRows,
		prometheus.GaugeValue,
		float64(count),
	)
}

func (c *CustomCollector) collectBiasDirections(ctx context.Context, ch chan<- prometheus.Metric) {
	type DirectionStat struct {
		Direction string `db:"direction"`
		Count     int    `db:"count"`
	}

	var stats []DirectionStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT direction, COUNT(*) as count
		FROM macro_biases
		GROUP BY direction
	`)
	if err != nil {
		c.log.Error("Failed to collect bias direction stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.biasDirections,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Direction,
		)
	}
}

func (c *CustomCollector) collectEventStats(ctx context.Context, ch chan<- prometheus.Metric) {
	var pending int
	err := c.postgres.GetContext(ctx, &pending, `
		SELECT COUNT(*)
		FROM economic_events e
		WHERE NOT EXISTS (
			SELECT 1 FROM economic_releases r WHERE r.event_id = e.id
		)
	`)
	if err != nil {
		c.log.Error("Failed to collect pending event stats", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.pendingEvents,
		prometheus.GaugeValue,
		float64(pending),
	)

	var recent int
	err = c.postgres.GetContext(ctx, &recent, `
		SELECT COUNT(*)
		FROM economic_releases
		WHERE observed_at > NOW() - INTERVAL '24 hours'
	`)
	if err != nil {
		c.log.Error("Failed to collect release stats", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.releases24h,
		prometheus.CounterValue,
		float64(recent),
	)
}

func (c *CustomCollector) collectPriceRows(ctx context.Context, ch chan<- prometheus.Metric) {
	if c.clickhouse == nil {
		return
	}

	var count uint64
	row := c.clickhouse.QueryRow(ctx, "SELECT COUNT(*) FROM daily_prices")
	if err := row.Scan(&count); err != nil {
		c.log.Error("Failed to collect price row count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.priceRows,
		prometheus.GaugeValue,
		float64(count),
	)
}

// RegisterCustomCollector registers the custom collector
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
