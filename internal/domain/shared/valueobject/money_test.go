package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsFromDecimal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Cents
		wantErr bool
	}{
		{name: "whole amount", input: "3450.00", want: 345000},
		{name: "no decimals", input: "100", want: 10000},
		{name: "single decimal", input: "99.5", want: 9950},
		{name: "negative amount", input: "-25.75", want: -2575},
		{name: "zero", input: "0", want: 0},
		{name: "sub-cent precision rejected", input: "10.005", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.input)
			require.NoError(t, err)

			got, err := CentsFromDecimal(d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCentsFromMajorString(t *testing.T) {
	c, err := CentsFromMajorString("1234.56")
	require.NoError(t, err)
	assert.Equal(t, Cents(123456), c)

	_, err = CentsFromMajorString("not-a-number")
	assert.Error(t, err)
}

func TestCentsFormatting(t *testing.T) {
	assert.Equal(t, "3450.00", Cents(345000).String())
	assert.Equal(t, "-0.01", Cents(-1).String())
	assert.Equal(t, "0.00", Zero.String())
	assert.InDelta(t, 3450.0, Cents(345000).Float64(), 0.0001)
}

func TestCentsPredicates(t *testing.T) {
	assert.True(t, Cents(1).IsPositive())
	assert.True(t, Cents(-1).IsNegative())
	assert.True(t, Zero.IsZero())
	assert.Equal(t, Cents(5), Cents(-5).Abs())
	assert.Equal(t, Cents(5), Cents(5).Abs())
}
