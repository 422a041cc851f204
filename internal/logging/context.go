package logging

import (
	"context"

	"go.uber.org/zap"
)

type runCtxKey struct{}
type contactCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if ctx == nil {
		return fields
	}
	if id := RunIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("run_id", id))
	}
	if id := ContactIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("contact_id", id))
	}
	return fields
}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runCtxKey{}, runID)
}

func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runCtxKey{}).(string); ok {
		return id
	}
	return ""
}

func WithContactID(ctx context.Context, contactID string) context.Context {
	return context.WithValue(ctx, contactCtxKey{}, contactID)
}

func ContactIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contactCtxKey{}).(string); ok {
		return id
	}
	return ""
}
