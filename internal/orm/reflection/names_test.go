package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Post", "post"},
		{"ReleaseNote", "release_note"},
		{"UserID", "user_id"},
		{"APIKey", "api_key"},
		{"HTTPServer", "http_server"},
		{"already_snake", "already_snake"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, toSnakeCase(tc.in), tc.in)
	}
}

func TestTableName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Post", "posts"},
		{"Comment", "comments"},
		{"Story", "stories"},
		{"Box", "boxes"},
		{"ReleaseNote", "release_notes"},
		{"Status", "statuses"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, TableName(tc.in), tc.in)
	}
}
