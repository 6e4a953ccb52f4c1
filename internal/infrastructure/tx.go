package infrastructure

import (
	"context"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/shared"

	"gorm.io/gorm"
)

type txKey struct{}

// GormTransactor carries the open *gorm.DB transaction in the context so that
// every repository called inside fn joins it.
type GormTransactor struct {
	DB *gorm.DB
}

var _ shared.Transactor = (*GormTransactor)(nil)

func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction bound to ctx, or db when there is none.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
