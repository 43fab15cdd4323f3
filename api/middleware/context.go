package middleware

import "context"

type contextKey string

const (
	ctxSubject contextKey = "subject"
	ctxGroups  contextKey = "groups"
)

// SubjectFromContext returns the authenticated admin's token subject.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSubject).(string); ok {
		return v
	}
	return ""
}

func GroupsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxGroups).([]string); ok {
		return v
	}
	return nil
}

// WithSubject injects the admin subject into the context.
func WithSubject(ctx context.Context, subject string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSubject, subject)
}
