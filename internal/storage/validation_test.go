package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	assert.NoError(t, validateString("Food", "name"))

	err := validateString(" \t", "name")
	assert.ErrorIs(t, err, ErrEmptyString)
	assert.True(t, common.IsValidation(err))
	assert.Contains(t, err.Error(), "name")
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, validateID(1, "id"))
	assert.True(t, common.IsValidation(validateID(0, "id")))
	assert.True(t, common.IsValidation(validateID(-3, "id")))
}

func TestValidateDateRange(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "both empty"},
		{name: "normalizes", start: "5/1/2024", end: "2024-01-31", wantStart: "2024-01-05", wantEnd: "2024-01-31"},
		{name: "open end", start: "2024-01-01", wantStart: "2024-01-01"},
		{name: "same day", start: "2024-01-01", end: "2024-01-01", wantStart: "2024-01-01", wantEnd: "2024-01-01"},
		{name: "reversed", start: "2024-02-01", end: "2024-01-01", wantErr: true},
		{name: "garbage", start: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := validateDateRange(tt.start, tt.end)
			if tt.wantErr {
				assert.True(t, common.IsValidation(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}
