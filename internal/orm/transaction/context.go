package transaction

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

// FromContext retrieves the active transaction from the context.
func FromContext(ctx context.Context) (*Transaction, bool) {
	txn, ok := ctx.Value(contextKey{}).(*Transaction)
	return txn, ok
}

// WithContext returns a new context carrying the transaction.
func WithContext(ctx context.Context, txn *Transaction) context.Context {
	return context.WithValue(ctx, contextKey{}, txn)
}
