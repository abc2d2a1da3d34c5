package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProductionLike(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", false},
		{"test", false},
		{"staging", true},
		{"production", true},
		{"PRODUCTION", true},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, IsProductionLike(tt.env))
		})
	}
}
