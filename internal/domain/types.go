package domain

import "context"

// ID is used across domain entities.
type ID int64

// RequestContext carries authenticated user info when available.
type RequestContext struct {
	UserID    int64  `json:"userId"`
	Role      string `json:"role"`
	RequestID string `json:"requestId"`
}

type requestContextKey struct{}

// WithRequestContext attaches rc to ctx for services further down.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext returns the RequestContext stored in ctx or the zero value.
func FromContext(ctx context.Context) RequestContext {
	if ctx == nil {
		return RequestContext{}
	}
	rc, _ := ctx.Value(requestContextKey{}).(RequestContext)
	return rc
}

// RequestID is a shorthand for FromContext(ctx).RequestID.
func RequestID(ctx context.Context) string {
	return FromContext(ctx).RequestID
}

// ReleaseReason tells ReleaseOrder why seats go back to inventory.
type ReleaseReason string

const (
	ReleaseCancel ReleaseReason = "cancel"
	ReleaseExpire ReleaseReason = "expire"
)
