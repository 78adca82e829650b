package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/errors"
	"github.com/LuongTanDat03/reuse-hub-sub000/internal/domain/item"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ItemRepository implements item.Repository using PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func (r *ItemRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *ItemRepository) Create(ctx context.Context, it *item.Item) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO items (id, seller_id, title, price, status, reserved_by_transaction_id, boosted_until, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		it.ID, it.SellerID, it.Title, it.Price, string(it.Status), it.ReservedByTransactionID,
		it.BoostedUntil, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*item.Item, error) {
	var (
		it     item.Item
		status string
	)
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, seller_id, title, price, status, reserved_by_transaction_id, boosted_until, created_at, updated_at
		 FROM items WHERE id = $1`, id,
	).Scan(&it.ID, &it.SellerID, &it.Title, &it.Price, &status, &it.ReservedByTransactionID,
		&it.BoostedUntil, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	it.Status = item.Status(status)
	return &it, nil
}

// Reserve is a compare-and-set on status: two concurrent reservations of the
// same AVAILABLE item cannot both succeed.
func (r *ItemRepository) Reserve(ctx context.Context, id, transactionID string) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE items SET status = $1, reserved_by_transaction_id = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4`,
		string(item.StatusReserved), transactionID, id, string(item.StatusAvailable),
	)
	if err != nil {
		return false, fmt.Errorf("reserve item: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ItemRepository) Release(ctx context.Context, id, transactionID string) (bool, error) {
	return r.settle(ctx, id, transactionID, item.StatusAvailable, nil)
}

// MarkSold keeps the holder so the sale stays traceable to its transaction.
func (r *ItemRepository) MarkSold(ctx context.Context, id, transactionID string) (bool, error) {
	return r.settle(ctx, id, transactionID, item.StatusSold, &transactionID)
}

func (r *ItemRepository) settle(ctx context.Context, id, transactionID string, to item.Status, holder *string) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE items SET status = $1, reserved_by_transaction_id = $2, updated_at = NOW()
		 WHERE id = $3 AND status = $4 AND reserved_by_transaction_id = $5`,
		string(to), holder, id, string(item.StatusReserved), transactionID,
	)
	if err != nil {
		return false, fmt.Errorf("settle item reservation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ItemRepository) SetBoostedUntil(ctx context.Context, id string, until time.Time) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE items SET boosted_until = $1, updated_at = NOW() WHERE id = $2`, until, id)
	if err != nil {
		return fmt.Errorf("set boosted_until: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrItemNotFound
	}
	return nil
}
