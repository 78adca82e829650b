package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const transactionColumns = `id, item_id, item_title, buyer_id, seller_id, quantity, unit_price, total_amount,
	delivery_method, status, cancelled_by, cancel_reason, delivery_tracking_code, payment_id, paid_at,
	expires_at, created_at, updated_at, completed_at, cancelled_at, version`

// TransactionRepository implements transaction.Repository using PostgreSQL.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new transaction. The partial unique index on
// (item_id, buyer_id) rejects a second active transaction.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		t.ID, t.ItemID, t.ItemTitle, t.BuyerID, t.SellerID, t.Quantity, t.UnitPrice, t.TotalAmount,
		string(t.DeliveryMethod), string(t.Status), t.CancelledBy, t.CancelReason, t.DeliveryTrackingCode,
		t.PaymentID, t.PaidAt, t.ExpiresAt, t.CreatedAt, t.UpdatedAt, t.CompletedAt, t.CancelledAt, t.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domainErrors.InvalidData("an active transaction already exists for this item", domainErrors.ErrActiveTransactionExists)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return r.scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// FindActive returns nil, nil when no active transaction exists.
func (r *TransactionRepository) FindActive(ctx context.Context, itemID, buyerID string) (*transaction.Transaction, error) {
	t, err := r.scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE item_id = $1 AND buyer_id = $2 AND status = ANY($3)
		 LIMIT 1`, itemID, buyerID, activeStatusStrings()))
	if errors.Is(err, domainErrors.ErrTransactionNotFound) {
		return nil, nil
	}
	return t, err
}

// Update writes every mutable column, guarded by the expected status and version.
func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction, expected transaction.Status) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE transactions SET
		  status=$1, cancelled_by=$2, cancel_reason=$3, delivery_tracking_code=$4,
		  payment_id=$5, paid_at=$6, expires_at=$7, updated_at=$8, completed_at=$9, cancelled_at=$10,
		  version=version+1
		 WHERE id=$11 AND status=$12 AND version=$13`,
		string(t.Status), t.CancelledBy, t.CancelReason, t.DeliveryTrackingCode,
		t.PaymentID, t.PaidAt, t.ExpiresAt, t.UpdatedAt, t.CompletedAt, t.CancelledAt,
		t.ID, string(expected), t.Version,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrStatusConflict
	}
	t.Version++
	return nil
}

func (r *TransactionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*transaction.Transaction, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE status IN ('PENDING', 'PAYMENT_PENDING')
		   AND paid_at IS NULL
		   AND expires_at < $1
		 ORDER BY expires_at
		 LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired transactions: %w", err)
	}
	defer rows.Close()

	var out []*transaction.Transaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepository) scanTransaction(row scanner) (*transaction.Transaction, error) {
	var (
		t      transaction.Transaction
		method string
		status string
	)
	err := row.Scan(
		&t.ID, &t.ItemID, &t.ItemTitle, &t.BuyerID, &t.SellerID, &t.Quantity, &t.UnitPrice, &t.TotalAmount,
		&method, &status, &t.CancelledBy, &t.CancelReason, &t.DeliveryTrackingCode, &t.PaymentID, &t.PaidAt,
		&t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.CancelledAt, &t.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.DeliveryMethod = transaction.DeliveryMethod(method)
	t.Status = transaction.Status(status)
	return &t, nil
}

func activeStatusStrings() []string {
	out := make([]string, len(transaction.ActiveStatuses))
	for i, s := range transaction.ActiveStatuses {
		out[i] = string(s)
	}
	return out
}
