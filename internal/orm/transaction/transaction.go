// Package transaction provides the transaction manager used by the SQL
// store. Multi-record association mutations run inside a single transaction
// acquired here, guaranteeing all-or-nothing application of the writes.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrAlreadyFinished is returned when Commit or Rollback is called on a
// transaction that was already committed or rolled back.
var ErrAlreadyFinished = errors.New("transaction already finished")

// IsolationLevel represents the transaction isolation level.
type IsolationLevel int

const (
	// ReadCommitted prevents dirty reads (the default).
	ReadCommitted IsolationLevel = iota
	// RepeatableRead prevents non-repeatable reads.
	RepeatableRead
	// Serializable provides full isolation.
	Serializable
)

// String returns the string representation of the isolation level.
func (l IsolationLevel) String() string {
	switch l {
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "READ COMMITTED"
	}
}

// ToSQLOptions converts the isolation level to sql.TxOptions.
func (l IsolationLevel) ToSQLOptions() *sql.TxOptions {
	var level sql.IsolationLevel
	switch l {
	case RepeatableRead:
		level = sql.LevelRepeatableRead
	case Serializable:
		level = sql.LevelSerializable
	default:
		level = sql.LevelReadCommitted
	}
	return &sql.TxOptions{Isolation: level}
}

// Transaction wraps one database transaction.
type Transaction struct {
	tx       *sql.Tx
	finished bool
}

// Tx exposes the underlying sql.Tx for query execution.
func (t *Transaction) Tx() *sql.Tx { return t.tx }

// Commit commits the transaction.
func (t *Transaction) Commit() error {
	if t.finished {
		return ErrAlreadyFinished
	}
	t.finished = true
	return t.tx.Commit()
}

// Rollback rolls the transaction back.
func (t *Transaction) Rollback() error {
	if t.finished {
		return ErrAlreadyFinished
	}
	t.finished = true
	return t.tx.Rollback()
}

// Manager manages database transactions for a single *sql.DB.
type Manager struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewManager creates a new transaction manager. logger may be nil.
func NewManager(db *sql.DB, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{db: db, logger: logger}
}

// Begin starts a new transaction with the default isolation level.
func (m *Manager) Begin(ctx context.Context) (*Transaction, error) {
	return m.BeginWithIsolation(ctx, ReadCommitted)
}

// BeginWithIsolation starts a new transaction with the given isolation
// level.
func (m *Manager) BeginWithIsolation(ctx context.Context, level IsolationLevel) (*Transaction, error) {
	tx, err := m.db.BeginTx(ctx, level.ToSQLOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: tx}, nil
}

// WithTransaction executes fn inside a transaction, committing on success
// and rolling back on error or panic. If the context already carries a
// transaction, fn joins it instead of opening a nested one.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := FromContext(ctx); ok {
		return fn(ctx)
	}

	txn, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			if err := txn.Rollback(); err != nil && !errors.Is(err, ErrAlreadyFinished) {
				m.logger.Error("rollback after panic failed", zap.Error(err))
			}
			panic(p)
		}
	}()

	if err := fn(WithContext(ctx, txn)); err != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	return txn.Commit()
}
