package service

import "context"

type contextKey string

const requestIDKey contextKey = "requestID"

// WithRequestID добавляет в контекст идентификатор входящего события для журналов.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext извлекает идентификатор входящего события из контекста.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}
