package logger

import "context"

type (
	loggerCtxKey struct{}
	opCtxKey     struct{}
)

// WithLogger attaches l to ctx for L and LOr.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, l)
}

// WithOperation tags ctx with the store operation in progress (set, get,
// clear). The innermost tag wins.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opCtxKey{}, op)
}

func OperationFromContext(ctx context.Context) string {
	op, _ := ctx.Value(opCtxKey{}).(string)
	return op
}

// L returns the logger carried by ctx, or the process default.
func L(ctx context.Context) Logger {
	return LOr(ctx, Default())
}

// LOr returns the logger carried by ctx, or fallback. Either way the
// result is tagged with the operation from ctx, if any.
func LOr(ctx context.Context, fallback Logger) Logger {
	l, ok := ctx.Value(loggerCtxKey{}).(Logger)
	if !ok {
		l = fallback
	}
	if op := OperationFromContext(ctx); op != "" {
		l = l.With("op", op)
	}
	return l.WithContext(ctx)
}
