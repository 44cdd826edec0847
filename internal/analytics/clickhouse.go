// Package analytics is the delivery-measurement backend: it ingests the
// delivery rows that get_media_buy_delivery and the reporting-webhook
// scheduler fetch from an adapter, and rolls them up per media buy on
// request (QueryHistory).
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/ClickHouse/clickhouse-go/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/advelops/adcp-salesagent/internal/adapter"
	"github.com/advelops/adcp-salesagent/internal/observability"
)

// ErrUnavailable is returned by every Store method when the store was built
// with a nil underlying connection, so callers can degrade (skip ingestion,
// fall back to a live adapter fetch) instead of failing outright.
var ErrUnavailable = errors.New("analytics store unavailable")

const schemaSQL = `CREATE TABLE IF NOT EXISTS delivery_events (
    tenant_id     String,
    media_buy_id  String,
    buyer_ref     String,
    period_start  Date,
    period_end    Date,
    impressions   Int64,
    clicks        Int64,
    spend         Float64,
    currency      String,
    recorded_at   DateTime
) ENGINE=MergeTree() ORDER BY (tenant_id, media_buy_id, period_start)`

// Store wraps a ClickHouse connection holding ingested delivery rows.
type Store struct {
	db      *sql.DB
	metrics observability.MetricsRegistry
}

// New connects to ClickHouse and ensures the delivery_events table exists.
func New(dsn string, maxOpenConns int, metrics observability.MetricsRegistry) (*Store, error) {
	driverName, err := otelsql.Register("clickhouse",
		otelsql.WithAttributes(attribute.String("db.system", "clickhouse")),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	return &Store{db: db, metrics: metrics}, nil
}

// Close terminates the ClickHouse connection. Safe to call on a nil Store.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		zap.L().Warn("clickhouse close", zap.Error(err))
	}
}

// RecordDelivery ingests the rows returned by an adapter's
// GetMediaBuyDelivery call for the given reporting period, so later
// QueryHistory calls have a durable record even after the adapter's own
// retention window has passed.
func (s *Store) RecordDelivery(ctx context.Context, tenantID string, rows []adapter.DeliveryRow, periodStart, periodEnd time.Time) error {
	if s == nil || s.db == nil {
		return ErrUnavailable
	}
	now := time.Now().UTC()
	for _, row := range rows {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO delivery_events (tenant_id, media_buy_id, buyer_ref, period_start, period_end, impressions, clicks, spend, currency, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tenantID, row.MediaBuyID, row.BuyerRef, periodStart, periodEnd, row.Impressions, row.Clicks, row.Spend, row.Currency, now,
		)
		if err != nil {
			if s.metrics != nil {
				s.metrics.IncrementAdapterCall("clickhouse", "record_delivery", "failure")
			}
			return fmt.Errorf("insert delivery event for %s: %w", row.MediaBuyID, err)
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementAdapterCall("clickhouse", "record_delivery", "success")
	}
	return nil
}

// Rollup is a media buy's total delivery across every ingested period that
// lies within the queried range.
type Rollup struct {
	MediaBuyID  string  `json:"media_buy_id"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
	Currency    string  `json:"currency"`
}

// QueryHistory sums ingested delivery events per media buy over [start, end].
func (s *Store) QueryHistory(ctx context.Context, tenantID string, mediaBuyIDs []string, start, end time.Time) ([]Rollup, error) {
	if s == nil || s.db == nil {
		return nil, ErrUnavailable
	}

	query := `SELECT media_buy_id, sum(impressions), sum(clicks), sum(spend), any(currency)
        FROM delivery_events
        WHERE tenant_id = ? AND period_start >= ? AND period_end <= ?`
	args := []any{tenantID, start, end}
	if len(mediaBuyIDs) > 0 {
		query += " AND media_buy_id IN ("
		for i, id := range mediaBuyIDs {
			if i > 0 {
				query += ", "
			}
			query += "?"
			args = append(args, id)
		}
		query += ")"
	}
	query += " GROUP BY media_buy_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query delivery history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Rollup
	for rows.Next() {
		var r Rollup
		if err := rows.Scan(&r.MediaBuyID, &r.Impressions, &r.Clicks, &r.Spend, &r.Currency); err != nil {
			return nil, fmt.Errorf("scan delivery rollup: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
