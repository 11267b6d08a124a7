package repository

import (
	"testing"

	"pomoroom/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		env  string
		in   string
		want string
	}{
		{"dev url", "development", "postgres://u:p@localhost/db", "postgres://u:p@localhost/db?sslmode=disable"},
		{"dev url with params", "development", "postgres://u:p@localhost/db?x=1", "postgres://u:p@localhost/db?x=1&sslmode=disable"},
		{"dev keyword", "development", "host=localhost dbname=db", "host=localhost dbname=db sslmode=disable"},
		{"dev explicit sslmode", "development", "postgres://h/db?sslmode=require", "postgres://h/db?sslmode=require"},
		{"production untouched", "production", "postgres://h/db", "postgres://h/db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Environment: tt.env, DBConnectionString: tt.in}
			assert.Equal(t, tt.want, DSN(cfg))
		})
	}
}
