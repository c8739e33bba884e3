package scope

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/relatekit/relate/internal/orm/record"
	"github.com/relatekit/relate/internal/orm/reflection"
)

// Querier is the query surface the SQL scope needs; satisfied by *sql.DB
// and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLFactory builds scopes that execute against a SQL database.
type SQLFactory struct {
	db     Querier
	logger *zap.Logger
}

// NewSQLFactory creates a scope factory over the given querier. logger may
// be nil.
func NewSQLFactory(db Querier, logger *zap.Logger) *SQLFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLFactory{db: db, logger: logger}
}

// For implements Factory.
func (f *SQLFactory) For(resource, foreignKey string, key interface{}) Scope {
	return &sqlScope{
		db:         f.db,
		logger:     f.logger,
		resource:   resource,
		table:      reflection.TableName(resource),
		foreignKey: foreignKey,
		key:        key,
	}
}

type sqlScope struct {
	db         Querier
	logger     *zap.Logger
	resource   string
	table      string
	foreignKey string
	key        interface{}
}

func (s *sqlScope) ToList(ctx context.Context) ([]*record.Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ?", s.table, s.foreignKey)
	s.logger.Debug("executing scope query", zap.String("query", query))

	rows, err := s.db.QueryContext(ctx, query, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s scope: %w", s.resource, err)
	}
	defer rows.Close()

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
			if b, ok := values[i].([]byte); ok {
				attrs[col] = string(b)
			} else {
				attrs[col] = values[i]
			}
		}
		out = append(out, record.NewPersisted(s.resource, attrs))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Pluck issues a single-column projection; full rows are never materialized
// just to read one field.
func (s *sqlScope) Pluck(ctx context.Context, field string) ([]interface{}, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", field, s.table, s.foreignKey)
	rows, err := s.db.QueryContext(ctx, query, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to pluck %s.%s: %w", s.resource, field, err)
	}
	defer rows.Close()

	var out []interface{}
	for rows.Next() {
		var v interface{}
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if b, ok := v.([]byte); ok {
			out = append(out, string(b))
		} else {
			out = append(out, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *sqlScope) ExistsBy(ctx context.Context, id interface{}) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ?", s.table, s.foreignKey)
	args := []interface{}{s.key}
	if id != nil {
		query += " AND id = ?"
		args = append(args, id)
	}
	query += " LIMIT 1"

	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqlScope) ScopeForCreate() map[string]interface{} {
	return map[string]interface{}{s.foreignKey: s.key}
}
