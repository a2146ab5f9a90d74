package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"shop-orders/internal/database"
	"shop-orders/internal/domain"
)

type VoucherRepo interface {
	Create(ctx context.Context, tx *sql.Tx, voucher *domain.Voucher) error
	FindByCode(ctx context.Context, code string) (*domain.Voucher, error)
	// FindByCodeForUpdate locks the voucher so its usage counter can be
	// checked and incremented atomically.
	FindByCodeForUpdate(ctx context.Context, tx *sql.Tx, code string) (*domain.Voucher, error)
	IncrementUsage(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	ListByOwner(ctx context.Context, customerID uuid.UUID) ([]domain.Voucher, error)
}

type voucherRepo struct {
	db *sql.DB
}

func NewVoucherRepo(db *sql.DB) VoucherRepo {
	return &voucherRepo{db: db}
}

const voucherColumns = `id, code, discount_type, discount_value, start_date, end_date, min_order, max_discount,
	usage_limit, usage_count, is_active, is_root, metadata, point_cost, created_at, updated_at`

func scanVoucher(row interface{ Scan(...any) error }) (*domain.Voucher, error) {
	var (
		v          domain.Voucher
		usageLimit sql.NullInt64
		pointCost  sql.NullInt64
	)
	err := row.Scan(
		&v.ID,
		&v.Code,
		&v.DiscountType,
		&v.DiscountValue,
		&v.StartDate,
		&v.EndDate,
		&v.MinOrder,
		&v.MaxDiscount,
		&usageLimit,
		&v.UsageCount,
		&v.IsActive,
		&v.IsRoot,
		&v.Metadata,
		&pointCost,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	v.UsageLimit = intFromNull(usageLimit)
	v.PointCost = intFromNull(pointCost)
	return &v, nil
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	i := int(n.Int64)
	return &i
}

func nullFromInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func (r *voucherRepo) Create(ctx context.Context, tx *sql.Tx, v *domain.Voucher) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vouchers (id, code, discount_type, discount_value, start_date, end_date, min_order, max_discount,
		                      usage_limit, usage_count, is_active, is_root, metadata, point_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		v.ID, v.Code, v.DiscountType, v.DiscountValue, v.StartDate, v.EndDate, v.MinOrder, v.MaxDiscount,
		nullFromInt(v.UsageLimit), v.UsageCount, v.IsActive, v.IsRoot, v.Metadata, nullFromInt(v.PointCost),
		v.CreatedAt, v.UpdatedAt)
	if database.IsUniqueViolation(err, "vouchers_code_key") {
		return domain.ErrVoucherCodeTaken.Withf("voucher code %s already exists", v.Code)
	}
	return pkgerrors.Wrap(err, "insert voucher")
}

func (r *voucherRepo) FindByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	return r.findByCode(ctx, r.db, "SELECT "+voucherColumns+" FROM vouchers WHERE code = $1", code)
}

func (r *voucherRepo) FindByCodeForUpdate(ctx context.Context, tx *sql.Tx, code string) (*domain.Voucher, error) {
	return r.findByCode(ctx, tx, "SELECT "+voucherColumns+" FROM vouchers WHERE code = $1 FOR UPDATE", code)
}

func (r *voucherRepo) findByCode(ctx context.Context, q database.DBTX, query, code string) (*domain.Voucher, error) {
	v, err := scanVoucher(q.QueryRowContext(ctx, query, domain.NormalizeVoucherCode(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select voucher")
	}
	return v, nil
}

func (r *voucherRepo) IncrementUsage(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE vouchers SET usage_count = usage_count + 1, updated_at = $2 WHERE id = $1", id, time.Now())
	return pkgerrors.Wrap(err, "increment voucher usage")
}

func (r *voucherRepo) ListByOwner(ctx context.Context, customerID uuid.UUID) ([]domain.Voucher, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+voucherColumns+" FROM vouchers WHERE metadata->>'customer_id' = $1 ORDER BY created_at DESC, id",
		customerID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list vouchers")
	}
	defer rows.Close()

	var vouchers []domain.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan voucher")
		}
		vouchers = append(vouchers, *v)
	}
	return vouchers, pkgerrors.Wrap(rows.Err(), "iterate vouchers")
}
