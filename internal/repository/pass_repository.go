package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edcshuttle/passgate/internal/domain"
)

// PassRepository owns the durable token -> pass mapping and the atomic
// check-and-mark transition. Consume must be serializable per token: two
// staff scanning the same physical code within milliseconds must never both
// see ALLOWED.
type PassRepository interface {
	// Consume atomically marks the leg matching scanType as used.
	// A returned error means the store itself failed; callers must fail
	// closed on it.
	Consume(ctx context.Context, token string, scanType domain.ScanType) (domain.ConsumeResult, error)
	GetByToken(ctx context.Context, token string) (*domain.Pass, error)
	// Create loads an issued pass into the ledger. Issuance itself lives
	// upstream; this is how its output reaches the gate.
	Create(ctx context.Context, pass *domain.Pass) error
}

type passRepository struct {
	pool *pgxpool.Pool
}

func NewPassRepository(pool *pgxpool.Pool) PassRepository {
	return &passRepository{pool: pool}
}

const passCols = `token, direction, depart_used_at, return_used_at, created_at`

// Consume relies on a conditional UPDATE as the compare-and-swap: the row is
// only touched while the relevant leg is still NULL, so no interleaving of
// concurrent calls can commit the same leg twice. Rows-affected 0 is then
// disambiguated into "unknown token" vs "already used" by a plain read.
func (r *passRepository) Consume(ctx context.Context, token string, scanType domain.ScanType) (domain.ConsumeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	q := `UPDATE passes SET depart_used_at = now() WHERE token=$1 AND depart_used_at IS NULL`
	if scanType == domain.ScanReturn {
		q = `UPDATE passes SET return_used_at = now() WHERE token=$1 AND return_used_at IS NULL`
	}

	tag, err := r.pool.Exec(ctx, q, token)
	if err != nil {
		return domain.ConsumeResult{Outcome: domain.OutcomeError, Message: domain.MsgScanError}, err
	}
	if tag.RowsAffected() > 0 {
		return domain.ConsumeResult{Outcome: domain.OutcomeAllowed, Message: domain.MsgValidPass}, nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM passes WHERE token=$1)`, token).Scan(&exists)
	if err != nil {
		return domain.ConsumeResult{Outcome: domain.OutcomeError, Message: domain.MsgScanError}, err
	}
	if !exists {
		return domain.ConsumeResult{Outcome: domain.OutcomeInvalid, Message: domain.MsgInvalidQR}, nil
	}
	return domain.ConsumeResult{Outcome: domain.OutcomeAlreadyUsed, Message: domain.MsgAlreadyUsed}, nil
}

func (r *passRepository) GetByToken(ctx context.Context, token string) (*domain.Pass, error) {
	const q = `SELECT ` + passCols + ` FROM passes WHERE token=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Pass
	err := r.pool.QueryRow(ctx, q, token).Scan(
		&p.Token, &p.Direction, &p.DepartUsedAt, &p.ReturnUsedAt, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &p, err
}

func (r *passRepository) Create(ctx context.Context, pass *domain.Pass) error {
	const q = `INSERT INTO passes (token, direction, created_at) VALUES ($1, $2, now())`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, pass.Token, pass.Direction)
	return err
}
