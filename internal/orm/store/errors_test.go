package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/relatekit/relate/internal/orm/record"
)

func TestConvertDBErrorNil(t *testing.T) {
	assert.Nil(t, ConvertDBError(nil))
}

func TestConvertDBErrorNoRows(t *testing.T) {
	err := ConvertDBError(sql.ErrNoRows)
	assert.True(t, IsNotFound(err))
}

func TestConvertDBErrorPostgres(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"23505", ErrUniqueViolation},
		{"23503", ErrForeignKeyViolation},
		{"23502", ErrNotNullViolation},
	}
	for _, tc := range cases {
		err := ConvertDBError(&pgconn.PgError{Code: tc.code, Detail: "detail"})
		assert.True(t, errors.Is(err, tc.want), tc.code)
	}
}

func TestConvertDBErrorPassthrough(t *testing.T) {
	plain := errors.New("plain failure")
	assert.Same(t, plain, ConvertDBError(plain))
}

func TestIsValidationError(t *testing.T) {
	rec := record.New("Post", nil)
	rec.AddError("title", "cannot be blank")

	assert.True(t, IsValidationError(record.NewValidationError(rec)))
	assert.False(t, IsValidationError(errors.New("other")))
	assert.False(t, IsValidationError(nil))
}
