package common

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00 ৳"},
		{"5", "5.00 ৳"},
		{"999.5", "999.50 ৳"},
		{"1000", "1,000.00 ৳"},
		{"1234567.89", "1,234,567.89 ৳"},
		{"-2500.1", "-2,500.10 ৳"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFormatWait(t *testing.T) {
	assert.Equal(t, "now", FormatWait(0))
	assert.Equal(t, "1s", FormatWait(200*time.Millisecond))
	assert.Equal(t, "45s", FormatWait(45*time.Second))
	assert.Equal(t, "2m 5s", FormatWait(125*time.Second))
	assert.Equal(t, "3h 20m", FormatWait(3*time.Hour+20*time.Minute+10*time.Second))
}
