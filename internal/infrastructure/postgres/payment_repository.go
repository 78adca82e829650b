package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentRepository implements payment.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payments
		 (id, user_id, transaction_id, item_id, amount, currency, provider, provider_reference,
		  status, failure_reason, refund_reason, created_at, updated_at, completed_at, refunded_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		p.ID, p.UserID, p.TransactionID, p.ItemID, p.Amount, p.Currency, p.Provider, p.ProviderReference,
		string(p.Status), p.FailureReason, p.RefundReason, p.CreatedAt, p.UpdatedAt, p.CompletedAt, p.RefundedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var (
		p      payment.Payment
		status string
	)
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, user_id, transaction_id, item_id, amount, currency, provider, provider_reference,
		        status, failure_reason, refund_reason, created_at, updated_at, completed_at, refunded_at
		 FROM payments WHERE id = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.TransactionID, &p.ItemID, &p.Amount, &p.Currency, &p.Provider, &p.ProviderReference,
		&status, &p.FailureReason, &p.RefundReason, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt, &p.RefundedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	p.Status = payment.Status(status)
	return &p, nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment, expected payment.Status) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments SET
		  status=$1, provider_reference=$2, failure_reason=$3, refund_reason=$4,
		  updated_at=$5, completed_at=$6, refunded_at=$7
		 WHERE id=$8 AND status=$9`,
		string(p.Status), p.ProviderReference, p.FailureReason, p.RefundReason,
		p.UpdatedAt, p.CompletedAt, p.RefundedAt, p.ID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrStatusConflict
	}
	return nil
}
