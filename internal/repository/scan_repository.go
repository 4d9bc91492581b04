package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edcshuttle/passgate/internal/domain"
)

// ScanRepository is the append-only audit trail. Every validation attempt,
// including failures and garbage scans, lands here; rows are never updated
// or deleted.
type ScanRepository interface {
	Append(ctx context.Context, event *domain.ScanEvent) error
	ListByToken(ctx context.Context, token string, limit int) ([]domain.ScanEvent, error)
	ListByTimeRange(ctx context.Context, from, to time.Time, limit int) ([]domain.ScanEvent, error)
}

type scanRepository struct {
	pool *pgxpool.Pool
}

func NewScanRepository(pool *pgxpool.Pool) ScanRepository {
	return &scanRepository{pool: pool}
}

const scanCols = `id, token, scan_type, result, message, device_id, scanned_at`

func (r *scanRepository) Append(ctx context.Context, event *domain.ScanEvent) error {
	const q = `INSERT INTO scans (token, scan_type, result, message, device_id, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if event.ScannedAt.IsZero() {
		event.ScannedAt = time.Now()
	}

	return r.pool.QueryRow(ctx, q,
		event.Token, event.ScanType, event.Result, event.Message, event.DeviceID, event.ScannedAt,
	).Scan(&event.ID)
}

func (r *scanRepository) ListByToken(ctx context.Context, token string, limit int) ([]domain.ScanEvent, error) {
	const q = `SELECT ` + scanCols + ` FROM scans WHERE token=$1 ORDER BY scanned_at DESC LIMIT $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, token, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *scanRepository) ListByTimeRange(ctx context.Context, from, to time.Time, limit int) ([]domain.ScanEvent, error) {
	const q = `SELECT ` + scanCols + ` FROM scans WHERE scanned_at >= $1 AND scanned_at <= $2
		ORDER BY scanned_at DESC LIMIT $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, from, to, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

type scanRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows scanRows) ([]domain.ScanEvent, error) {
	var events []domain.ScanEvent
	for rows.Next() {
		var e domain.ScanEvent
		if err := rows.Scan(&e.ID, &e.Token, &e.ScanType, &e.Result, &e.Message, &e.DeviceID, &e.ScannedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
