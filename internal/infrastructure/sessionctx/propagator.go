// Package sessionctx pushes the caller's tenant context into the database
// session so row-level policies can read it. All three variables are set
// together before any statement runs and reset together afterwards; a
// session that never had a context established stays fully restrictive
// because the policies treat missing settings as no affiliation.
package sessionctx

import (
	"context"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bizsuite/backend/internal/domain/identity"
	"github.com/bizsuite/backend/internal/domain/shared"
	"github.com/bizsuite/backend/internal/infrastructure/logger"
)

// Session variable names read by the row-level policies.
const (
	VarOrganizationID  = "app.organization_id"
	VarPartnerID       = "app.partner_id"
	VarIsPlatformAdmin = "app.is_platform_admin"
)

const setConfigStmt = "SELECT set_config($1, $2, false), set_config($3, $4, false), set_config($5, $6, false)"

// Propagator establishes and tears down the database session tenant
// context. When disabled (application-level scoping active instead) both
// operations are no-ops.
type Propagator struct {
	enabled          bool
	teardownFailures atomic.Int64
}

// NewPropagator creates a propagator. enabled should mirror the
// database.row_policy_enabled setting.
func NewPropagator(enabled bool) *Propagator {
	return &Propagator{enabled: enabled}
}

// Enabled reports whether session propagation is active.
func (p *Propagator) Enabled() bool {
	return p.enabled
}

// Establish pushes the tenant context onto the given session. The session
// must be pinned to a single connection (a transaction) or the settings
// would land on an arbitrary pooled connection. A failure here is fatal
// for the request: proceeding without the variables set would run every
// statement fully restricted, which callers must not mistake for an empty
// result set.
func (p *Propagator) Establish(ctx context.Context, tx *gorm.DB, tc identity.TenantContext) error {
	if !p.enabled {
		return nil
	}

	err := tx.WithContext(ctx).Exec(setConfigStmt,
		VarOrganizationID, strconv.FormatInt(tc.OrganizationID(), 10),
		VarPartnerID, strconv.FormatInt(tc.PartnerID(), 10),
		VarIsPlatformAdmin, strconv.FormatBool(tc.IsPlatformAdmin()),
	).Error
	if err != nil {
		return shared.NewContextPropagationError("establish", err)
	}
	return nil
}

// Teardown resets the session variables to the restrictive defaults
// (0 / 0 / false). The error is returned for observability but safe to
// swallow: a reset failure leaves the connection restrictive or dead, it
// never leaks another tenant's visibility onto the next statement executed
// inside this bracket.
func (p *Propagator) Teardown(ctx context.Context, tx *gorm.DB) error {
	if !p.enabled {
		return nil
	}

	err := tx.WithContext(ctx).Exec(setConfigStmt,
		VarOrganizationID, "0",
		VarPartnerID, "0",
		VarIsPlatformAdmin, "false",
	).Error
	if err != nil {
		p.teardownFailures.Add(1)
		return shared.NewContextPropagationError("teardown", err)
	}
	return nil
}

// TeardownFailures returns the number of teardown errors observed since
// startup. Exposed on the health endpoint.
func (p *Propagator) TeardownFailures() int64 {
	return p.teardownFailures.Load()
}

// Scoped runs fn inside a transaction with the tenant context established.
// Teardown always runs before commit or rollback, even when fn fails; a
// teardown error is logged and counted but does not override fn's result.
func (p *Propagator) Scoped(ctx context.Context, db *gorm.DB, tc identity.TenantContext, fn func(tx *gorm.DB) error) error {
	if !p.enabled {
		return fn(db.WithContext(ctx))
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.Establish(ctx, tx, tc); err != nil {
			return err
		}
		defer func() {
			if err := p.Teardown(ctx, tx); err != nil {
				logger.L(ctx).Error("session context teardown failed",
					zap.Error(err),
					zap.Int64("organization_id", tc.OrganizationID()),
					zap.Int64("partner_id", tc.PartnerID()))
			}
		}()
		return fn(tx)
	})
}
