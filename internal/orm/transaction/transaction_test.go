package transaction

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock database: %v", err)
	}
	return db, mock
}

func TestManagerBegin(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	mgr := NewManager(db, nil)
	tx, err := mgr.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if tx == nil {
		t.Fatal("expected non-nil transaction")
	}
	if tx.Tx() == nil {
		t.Fatal("expected underlying sql.Tx")
	}

	if err := tx.Rollback(); err != nil {
		t.Errorf("Rollback failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTransactionCommit(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	mgr := NewManager(db, nil)
	tx, err := mgr.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// A finished transaction rejects further completion.
	if err := tx.Commit(); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("expected ErrAlreadyFinished, got %v", err)
	}
	if err := tx.Rollback(); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("expected ErrAlreadyFinished, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notes").
		WithArgs("hello").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mgr := NewManager(db, nil)
	err := mgr.WithTransaction(context.Background(), func(ctx context.Context) error {
		txn, ok := FromContext(ctx)
		if !ok {
			t.Fatal("expected transaction in context")
		}
		_, err := txn.Tx().ExecContext(ctx, "INSERT INTO notes (body) VALUES (?)", "hello")
		return err
	})
	if err != nil {
		t.Fatalf("WithTransaction failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	mgr := NewManager(db, nil)
	err := mgr.WithTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithTransactionJoinsExisting(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	// Only one begin/commit pair for the whole nested sequence.
	mock.ExpectBegin()
	mock.ExpectCommit()

	mgr := NewManager(db, nil)
	err := mgr.WithTransaction(context.Background(), func(ctx context.Context) error {
		outer, _ := FromContext(ctx)
		return mgr.WithTransaction(ctx, func(ctx context.Context) error {
			inner, ok := FromContext(ctx)
			if !ok {
				t.Fatal("expected transaction in nested context")
			}
			if inner != outer {
				t.Error("nested call should join the outer transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("WithTransaction failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	mgr := NewManager(db, nil)
	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = mgr.WithTransaction(context.Background(), func(ctx context.Context) error {
			panic("kaboom")
		})
	}()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestIsolationLevelString(t *testing.T) {
	tests := []struct {
		level IsolationLevel
		want  string
	}{
		{ReadCommitted, "READ COMMITTED"},
		{RepeatableRead, "REPEATABLE READ"},
		{Serializable, "SERIALIZABLE"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestIsolationLevelToSQLOptions(t *testing.T) {
	tests := []struct {
		level IsolationLevel
		want  sql.IsolationLevel
	}{
		{ReadCommitted, sql.LevelReadCommitted},
		{RepeatableRead, sql.LevelRepeatableRead},
		{Serializable, sql.LevelSerializable},
	}
	for _, tt := range tests {
		opts := tt.level.ToSQLOptions()
		if opts.Isolation != tt.want {
			t.Errorf("ToSQLOptions().Isolation = %v, want %v", opts.Isolation, tt.want)
		}
	}
}
