package transaction

import (
	"context"
	"testing"
)

func TestFromContext(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	ctx := context.Background()

	t.Run("NoTransaction", func(t *testing.T) {
		txn, ok := FromContext(ctx)
		if ok {
			t.Error("expected ok to be false")
		}
		if txn != nil {
			t.Error("expected nil transaction")
		}
	})

	t.Run("WithTransaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		mgr := NewManager(db, nil)
		txn, err := mgr.Begin(ctx)
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		defer txn.Rollback()

		txCtx := WithContext(ctx, txn)
		retrieved, ok := FromContext(txCtx)
		if !ok {
			t.Error("expected ok to be true")
		}
		if retrieved != txn {
			t.Error("retrieved transaction is not the same as original")
		}

		// The parent context is untouched.
		if _, ok := FromContext(ctx); ok {
			t.Error("parent context should not carry the transaction")
		}
	})
}
