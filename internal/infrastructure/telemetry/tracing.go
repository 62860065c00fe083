package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizsuite/backend/internal/infrastructure/logger"
)

// TenantAttributes returns span attributes identifying the request's
// tenancy as resolved after authentication.
func TenantAttributes(ctx context.Context) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("tenant.organization_id", logger.GetOrganizationID(ctx)),
		attribute.Int64("tenant.partner_id", logger.GetPartnerID(ctx)),
		attribute.Bool("tenant.platform_admin", logger.GetPlatformAdmin(ctx)),
	}
}

// AnnotateTenancy attaches tenant attributes to the span already active
// on the context, if any. Safe to call with no active span.
func AnnotateTenancy(ctx context.Context) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(TenantAttributes(ctx)...)
}
