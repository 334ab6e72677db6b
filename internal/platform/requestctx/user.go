// Package requestctx carries per-request identity through context so the
// service layer can check seat ownership without threading extra params.
package requestctx

import "context"

type userIDContextKey struct{}

// WithUserID stores an authenticated user identifier in context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the user identifier stored in context, or an
// empty string for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(userIDContextKey{}).(string)
	return value
}
