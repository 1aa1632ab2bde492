package mobilemoney

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(zerolog.Nop())
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name   string
		code   string
		amount int64
		want   bool
	}{
		{"valid code", "123456", 1000, true},
		{"too short", "12345", 1000, false},
		{"too long", "1234567", 1000, false},
		{"non numeric", "12a456", 1000, false},
		{"zero amount", "123456", 0, false},
		{"negative amount", "123456", -100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := v.Validate(ctx, userID, tt.code, tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}
