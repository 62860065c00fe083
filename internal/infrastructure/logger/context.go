package logger

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// OrganizationIDKey is the context key for the organization id
	OrganizationIDKey contextKey = "organization_id"
	// PartnerIDKey is the context key for the partner id
	PartnerIDKey contextKey = "partner_id"
	// PlatformAdminKey is the context key for the platform-admin flag
	PlatformAdminKey contextKey = "is_platform_admin"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns an enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithTenancy adds the tenancy triple to context and returns an enriched
// logger. It is set by the security-context middleware once per request.
func WithTenancy(ctx context.Context, logger *zap.Logger, organizationID, partnerID int64, isPlatformAdmin bool) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, OrganizationIDKey, organizationID)
	ctx = context.WithValue(ctx, PartnerIDKey, partnerID)
	ctx = context.WithValue(ctx, PlatformAdminKey, isPlatformAdmin)
	enriched := logger.With(
		zap.Int64("organization_id", organizationID),
		zap.Int64("partner_id", partnerID),
		zap.Bool("is_platform_admin", isPlatformAdmin),
	)
	return WithContext(ctx, enriched), enriched
}

// WithUserID adds user ID to context and returns an enriched logger
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	enriched := logger.With(zap.String("user_id", userID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetOrganizationID retrieves the organization id from context, 0 when absent
func GetOrganizationID(ctx context.Context) int64 {
	if id, ok := ctx.Value(OrganizationIDKey).(int64); ok {
		return id
	}
	return 0
}

// GetPartnerID retrieves the partner id from context, 0 when absent
func GetPartnerID(ctx context.Context) int64 {
	if id, ok := ctx.Value(PartnerIDKey).(int64); ok {
		return id
	}
	return 0
}

// GetPlatformAdmin retrieves the platform-admin flag from context
func GetPlatformAdmin(ctx context.Context) bool {
	if admin, ok := ctx.Value(PlatformAdminKey).(bool); ok {
		return admin
	}
	return false
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetTraceID extracts the trace ID from the context's span.
// Returns an empty string if no active span exists or trace is invalid.
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// L returns a logger enriched with trace and tenancy fields from context.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)

	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if spanCtx.IsValid() {
		l = l.With(
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		l = l.With(zap.String("request_id", requestID))
	}
	if orgID := GetOrganizationID(ctx); orgID != 0 {
		l = l.With(zap.String("organization_id", strconv.FormatInt(orgID, 10)))
	}
	if userID := GetUserID(ctx); userID != "" {
		l = l.With(zap.String("user_id", userID))
	}
	return l
}
