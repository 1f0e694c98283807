package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		dbName   string
		expected string
	}{
		{
			name:     "no database name returns base unchanged",
			baseURL:  "postgres://u:p@localhost:5432/earnbot",
			dbName:   "",
			expected: "postgres://u:p@localhost:5432/earnbot",
		},
		{
			name:     "appends name and sslmode",
			baseURL:  "postgres://u:p@localhost:5432",
			dbName:   "earnbot",
			expected: "postgres://u:p@localhost:5432/earnbot?sslmode=disable",
		},
		{
			name:     "trailing slash is trimmed",
			baseURL:  "postgres://u:p@localhost:5432/",
			dbName:   "earnbot",
			expected: "postgres://u:p@localhost:5432/earnbot?sslmode=disable",
		},
		{
			name:     "existing query is preserved",
			baseURL:  "postgres://u:p@localhost:5432?connect_timeout=5",
			dbName:   "earnbot",
			expected: "postgres://u:p@localhost:5432/earnbot?connect_timeout=5&sslmode=disable",
		},
		{
			name:     "existing sslmode is kept",
			baseURL:  "postgres://u:p@db:5432?sslmode=require",
			dbName:   "earnbot",
			expected: "postgres://u:p@db:5432/earnbot?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConstructDatabaseURL(tt.baseURL, tt.dbName))
		})
	}
}
