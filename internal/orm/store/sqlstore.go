package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relatekit/relate/internal/orm/record"
	"github.com/relatekit/relate/internal/orm/reflection"
	"github.com/relatekit/relate/internal/orm/transaction"
)

// Querier is the query surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SQLStore is the database/sql-backed Store. Statements execute against the
// transaction carried in the context when one is active, so association
// mutations inside RunInTransaction see their own writes.
type SQLStore struct {
	db     *sql.DB
	txmgr  *transaction.Manager
	logger *zap.Logger

	mu         sync.RWMutex
	validators map[string][]Validator
}

// NewSQLStore creates a Store over an open database handle. logger may be
// nil.
func NewSQLStore(db *sql.DB, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{
		db:         db,
		txmgr:      transaction.NewManager(db, logger),
		logger:     logger,
		validators: make(map[string][]Validator),
	}
}

// RegisterValidator adds a validator run before every insert or update of
// the given resource.
func (s *SQLStore) RegisterValidator(resource string, v Validator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validators[resource] = append(s.validators[resource], v)
}

func (s *SQLStore) validate(rec *record.Record) error {
	s.mu.RLock()
	validators := s.validators[rec.Resource()]
	s.mu.RUnlock()

	rec.ClearErrors()
	for _, v := range validators {
		v(rec)
	}
	if rec.HasErrors() {
		return record.NewValidationError(rec)
	}
	return nil
}

// querier returns the active transaction when one is in the context, the
// plain handle otherwise.
func (s *SQLStore) querier(ctx context.Context) Querier {
	if txn, ok := transaction.FromContext(ctx); ok {
		return txn.Tx()
	}
	return s.db
}

// Insert implements Store.
func (s *SQLStore) Insert(ctx context.Context, rec *record.Record) error {
	if err := s.validate(rec); err != nil {
		return err
	}

	if isBlank(rec.ID()) {
		rec.SetID(uuid.New().String())
	}

	attrs := rec.Attributes()
	columns := sortedColumns(attrs)

	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		placeholders[i] = "?"
		args[i] = attrs[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		reflection.TableName(rec.Resource()),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))

	if _, err := s.querier(ctx).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %s: %w", rec.Resource(), ConvertDBError(err))
	}

	rec.MarkPersisted()
	s.logger.Debug("inserted record",
		zap.String("resource", rec.Resource()),
		zap.Any("id", rec.ID()))
	return nil
}

// Update implements Store.
func (s *SQLStore) Update(ctx context.Context, rec *record.Record) error {
	if err := s.validate(rec); err != nil {
		return err
	}

	attrs := rec.Attributes()

	// Write only the attributes that changed since the last sync with
	// storage; a record without tracked changes falls back to a full write.
	columns := make([]string, 0, len(attrs))
	if changes := rec.Changes(); len(changes) > 0 {
		for _, ch := range changes {
			if ch.Field != "id" {
				columns = append(columns, ch.Field)
			}
		}
	} else {
		for _, col := range sortedColumns(attrs) {
			if col != "id" {
				columns = append(columns, col)
			}
		}
	}

	var assignments []string
	var args []interface{}
	for _, col := range columns {
		assignments = append(assignments, col+" = ?")
		args = append(args, attrs[col])
	}
	args = append(args, rec.ID())

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		reflection.TableName(rec.Resource()),
		strings.Join(assignments, ", "))

	result, err := s.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rec.Resource(), ConvertDBError(err))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	rec.AcceptChanges()
	return nil
}

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, rec *record.Record) error {
	if rec.IsNewRecord() {
		return s.Insert(ctx, rec)
	}
	return s.Update(ctx, rec)
}

// Find implements Store. Result order follows the database, not the
// supplied ids.
func (s *SQLStore) Find(ctx context.Context, resource string, ids []interface{}) ([]*record.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	for i := range ids {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE id IN (%s)",
		reflection.TableName(resource), strings.Join(placeholders, ", "))

	rows, err := s.querier(ctx).QueryContext(ctx, query, ids...)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", resource, ConvertDBError(err))
	}
	defer rows.Close()

	return scanRecords(rows, resource)
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, rec *record.Record) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", reflection.TableName(rec.Resource()))
	result, err := s.querier(ctx).ExecContext(ctx, query, rec.ID())
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", rec.Resource(), ConvertDBError(err))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	rec.MarkDestroyed()
	return nil
}

// DeleteWhere implements Store.
func (s *SQLStore) DeleteWhere(ctx context.Context, resource, field string, value interface{}) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", reflection.TableName(resource), field)
	result, err := s.querier(ctx).ExecContext(ctx, query, value)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", resource, ConvertDBError(err))
	}
	return result.RowsAffected()
}

// Exists implements Store.
func (s *SQLStore) Exists(ctx context.Context, resource string, id interface{}) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ? LIMIT 1", reflection.TableName(resource))
	var one int
	err := s.querier(ctx).QueryRowContext(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, ConvertDBError(err)
	}
	return true, nil
}

// RunInTransaction implements Store.
func (s *SQLStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.txmgr.WithTransaction(ctx, fn)
}

// scanRecords scans all rows into persisted records using the result's
// column order.
func scanRecords(rows *sql.Rows, resource string) ([]*record.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []*record.Record
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		attrs := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			attrs[col] = normalizeValue(values[i])
		}
		out = append(out, record.NewPersisted(resource, attrs))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeValue converts driver byte slices to strings so identity keys
// compare by value.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func sortedColumns(attrs map[string]interface{}) []string {
	columns := make([]string, 0, len(attrs))
	for col := range attrs {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
