package sessionctx

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

// dbKey carries the session-scoped transaction through the request context
const dbKey contextKey = "sessionctx_db"

// WithDB attaches a session-scoped transaction to the context. The security
// context middleware uses this so repositories run on the connection whose
// session variables were established.
func WithDB(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey, tx)
}

// DBFromContext returns the session-scoped transaction, if any
func DBFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(dbKey).(*gorm.DB)
	return tx, ok
}
