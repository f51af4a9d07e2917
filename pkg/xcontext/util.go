package xcontext

import (
	"context"

	"gorm.io/gorm"
)

type dbTransaction struct {
	tx   *gorm.DB
	done bool
}

// WithDBTransaction begins a transaction on the database of ctx. All following
// calls of DB on the returned context run inside this transaction.
func WithDBTransaction(ctx context.Context) context.Context {
	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		return ctx
	}

	holder := &dbTransaction{tx: db.WithContext(ctx).Begin()}
	ctx = context.WithValue(ctx, dbTxHolderKey{}, holder)
	return context.WithValue(ctx, dbTxKey{}, holder.tx)
}

func WithCommitDBTransaction(ctx context.Context) error {
	holder, ok := ctx.Value(dbTxHolderKey{}).(*dbTransaction)
	if !ok || holder.done {
		return nil
	}

	holder.done = true
	return holder.tx.Commit().Error
}

func WithRollbackDBTransaction(ctx context.Context) {
	holder, ok := ctx.Value(dbTxHolderKey{}).(*dbTransaction)
	if !ok || holder.done {
		return
	}

	holder.done = true
	holder.tx.Rollback()
}

type dbTxHolderKey struct{}
