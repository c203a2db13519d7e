package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentbox/internal/domain/shared/daterange"
	"rentbox/internal/domain/shared/money"
)

func TestQuoteBillsStartedWeeks(t *testing.T) {
	calc := Calculator{}
	b, err := calc.Quote(daterange.Range{Start: daterange.MustParseDate("2024-08-01"), End: daterange.MustParseDate("2024-08-14")})
	require.NoError(t, err)
	assert.Equal(t, 14, b.Days)
	assert.Equal(t, 2, b.Weeks)
	assert.Equal(t, money.Must(6000, "CAD"), b.Total)

	b, err = calc.Quote(daterange.Range{Start: daterange.MustParseDate("2024-08-01"), End: daterange.MustParseDate("2024-08-08")})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Weeks)
}

func TestNewCalculatorRejectsEmptyRate(t *testing.T) {
	_, err := NewCalculator(money.Money{})
	assert.ErrorIs(t, err, ErrRateUnset)

	calc, err := NewCalculator(money.Must(4500, "usd"))
	require.NoError(t, err)
	b, err := calc.Quote(daterange.Range{Start: daterange.MustParseDate("2024-08-01"), End: daterange.MustParseDate("2024-08-07")})
	require.NoError(t, err)
	assert.Equal(t, money.Must(4500, "USD"), b.Total)
}
