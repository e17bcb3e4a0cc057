package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceIsRecurring(t *testing.T) {
	assert.False(t, (&Price{BillingPeriod: BillingPeriodOneTime}).IsRecurring())
	assert.True(t, (&Price{BillingPeriod: BillingPeriodMonthly}).IsRecurring())
	assert.True(t, (&Price{BillingPeriod: BillingPeriodYearly}).IsRecurring())
}

func TestPricePeriodEnd(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Nil(t, (&Price{BillingPeriod: BillingPeriodOneTime}).PeriodEnd(start))

	monthly := (&Price{BillingPeriod: BillingPeriodMonthly}).PeriodEnd(start)
	require.NotNil(t, monthly)
	assert.Equal(t, start.AddDate(0, 0, 30), *monthly)

	yearly := (&Price{BillingPeriod: BillingPeriodYearly}).PeriodEnd(start)
	require.NotNil(t, yearly)
	assert.Equal(t, start.AddDate(0, 0, 365), *yearly)
}
