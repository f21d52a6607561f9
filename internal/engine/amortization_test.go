package engine

import (
	"testing"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEMI(t *testing.T) {
	tests := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		tenure    int
		expected  decimal.Decimal
	}{
		{
			name:      "standard loan at 1.5% monthly",
			principal: dec(100000),
			rate:      dec(18),
			tenure:    12,
			expected:  dec(9168),
		},
		{
			name:      "merged top-up principal",
			principal: dec(70000),
			rate:      dec(18),
			tenure:    10,
			expected:  dec(7590),
		},
		{
			name:      "fractional annual rate",
			principal: dec(500000),
			rate:      decimal.NewFromFloat(10.5),
			tenure:    24,
			expected:  dec(23188),
		},
		{
			name:      "one percent monthly",
			principal: dec(50000),
			rate:      dec(12),
			tenure:    6,
			expected:  dec(8627),
		},
		{
			name:      "zero interest rate splits evenly",
			principal: dec(120000),
			rate:      decimal.Zero,
			tenure:    12,
			expected:  dec(10000),
		},
		{
			name:      "zero interest rate rounds",
			principal: dec(1000),
			rate:      decimal.Zero,
			tenure:    3,
			expected:  dec(333),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ComputeEMI(tt.principal, tt.rate, tt.tenure)
			require.NoError(t, err)
			assert.True(t, result.Equal(tt.expected), "Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestComputeEMI_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		tenure    int
	}{
		{name: "zero principal", principal: decimal.Zero, rate: dec(18), tenure: 12},
		{name: "negative principal", principal: dec(-5), rate: dec(18), tenure: 12},
		{name: "zero tenure", principal: dec(1000), rate: dec(18), tenure: 0},
		{name: "negative tenure", principal: dec(1000), rate: dec(18), tenure: -3},
		{name: "negative rate", principal: dec(1000), rate: dec(-1), tenure: 12},
		{name: "tenure above maximum", principal: dec(1000), rate: dec(18), tenure: MaxTenureMonths + 1},
		{name: "huge tenure", principal: dec(1000), rate: dec(18), tenure: 1 << 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeEMI(tt.principal, tt.rate, tt.tenure)
			assert.ErrorIs(t, err, customError.ErrInvalidInput)
		})
	}
}

func TestGenerateSchedule(t *testing.T) {
	first := date(2024, 2, 5)
	schedule, err := GenerateSchedule(dec(100000), dec(9168), dec(18), 12, first)
	require.NoError(t, err)
	require.Len(t, schedule, 12)

	for i, inst := range schedule {
		assert.Equal(t, i+1, inst.Number)
		assert.Equal(t, domain.InstallmentStatusPending, inst.Status)
		assert.True(t, inst.Amount.Equal(dec(9168)))
		assert.Equal(t, 5, inst.DueDate.Day())
		if i > 0 {
			assert.Equal(t, schedule[i-1].DueDate.AddDate(0, 1, 0), inst.DueDate)
			assert.True(t, schedule[i-1].ClosingBalance.Equal(inst.OpeningBalance))
		}
	}

	assert.Equal(t, first, schedule[0].DueDate)
	assert.Equal(t, date(2025, 1, 5), schedule[11].DueDate)

	assert.True(t, schedule[0].OpeningBalance.Equal(dec(100000)))
	assert.True(t, schedule[0].Interest.Equal(dec(1500)))
	assert.True(t, schedule[0].Principal.Equal(dec(7668)))
	assert.True(t, schedule[0].ClosingBalance.Equal(dec(92332)))
	assert.True(t, schedule[2].ClosingBalance.Equal(dec(76649)))

	// the last period overshoots slightly and is clamped at zero
	assert.True(t, schedule[11].OpeningBalance.Equal(dec(9031)))
	assert.True(t, schedule[11].ClosingBalance.IsZero())
}

func TestGenerateSchedule_Shape(t *testing.T) {
	tests := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		tenure    int
		first     time.Time
	}{
		{name: "due day 28 across leap february", principal: dec(100000), rate: dec(18), tenure: 6, first: date(2024, 1, 28)},
		{name: "due day 28 across common february", principal: dec(50000), rate: dec(10), tenure: 14, first: date(2022, 12, 28)},
		{name: "zero rate", principal: dec(1200), rate: decimal.Zero, tenure: 12, first: date(2024, 3, 1)},
		{name: "single installment", principal: dec(10000), rate: dec(24), tenure: 1, first: date(2024, 6, 15)},
		{name: "maximum tenure", principal: dec(5000000), rate: dec(9), tenure: MaxTenureMonths, first: date(2024, 1, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emi, err := ComputeEMI(tt.principal, tt.rate, tt.tenure)
			require.NoError(t, err)

			schedule, err := GenerateSchedule(tt.principal, emi, tt.rate, tt.tenure, tt.first)
			require.NoError(t, err)
			require.Len(t, schedule, tt.tenure)

			assert.Equal(t, tt.first, schedule[0].DueDate)
			assert.True(t, schedule[0].OpeningBalance.Equal(tt.principal))
			for i, inst := range schedule {
				assert.Equal(t, i+1, inst.Number)
				assert.Equal(t, tt.first.Day(), inst.DueDate.Day())
				assert.Equal(t, domain.InstallmentStatusPending, inst.Status)
				assert.True(t, inst.Amount.Equal(emi))
				assert.False(t, inst.ClosingBalance.IsNegative())
				if i > 0 {
					prev := schedule[i-1]
					months := (inst.DueDate.Year()-prev.DueDate.Year())*12 + int(inst.DueDate.Month()) - int(prev.DueDate.Month())
					assert.Equal(t, 1, months, "installment %d", inst.Number)
					assert.True(t, prev.ClosingBalance.Equal(inst.OpeningBalance))
				}
			}

			last := schedule[len(schedule)-1]
			assert.True(t, last.ClosingBalance.LessThan(emi), "closing %s", last.ClosingBalance)
		})
	}
}

func TestGenerateSchedule_FinalBalanceWithinRounding(t *testing.T) {
	emi, err := ComputeEMI(dec(70000), dec(18), 10)
	require.NoError(t, err)

	schedule, err := GenerateSchedule(dec(70000), emi, dec(18), 10, date(2024, 5, 5))
	require.NoError(t, err)

	last := schedule[len(schedule)-1]
	assert.True(t, last.ClosingBalance.Equal(dec(5)), "got %s", last.ClosingBalance)
}

func TestComputeEMI_MaximumTenure(t *testing.T) {
	emi, err := ComputeEMI(dec(1000000), dec(12), MaxTenureMonths)
	require.NoError(t, err)
	// interest alone is 10000 a month, so the installment sits just above it
	assert.True(t, emi.GreaterThan(dec(10000)), "got %s", emi)
	assert.True(t, emi.LessThan(dec(10100)), "got %s", emi)
}

func TestGenerateSchedule_InvalidInput(t *testing.T) {
	_, err := GenerateSchedule(dec(1000), dec(100), dec(12), 0, date(2024, 2, 5))
	assert.ErrorIs(t, err, customError.ErrInvalidInput)

	_, err = GenerateSchedule(dec(1000), dec(100), dec(12), MaxTenureMonths+1, date(2024, 2, 5))
	assert.ErrorIs(t, err, customError.ErrInvalidInput)

	_, err = GenerateSchedule(dec(1000), decimal.Zero, dec(12), 12, date(2024, 2, 5))
	assert.ErrorIs(t, err, customError.ErrInvalidInput)

	_, err = GenerateSchedule(dec(1000), dec(100), dec(12), 12, time.Time{})
	assert.ErrorIs(t, err, customError.ErrInvalidInput)
}

func TestOutstandingPrincipal(t *testing.T) {
	loan := disbursedLoan(t)
	assert.True(t, OutstandingPrincipal(loan).Equal(dec(100000)))

	loan = payInstallments(t, loan, 3)
	assert.True(t, OutstandingPrincipal(loan).Equal(dec(76649)))
	assert.True(t, OutstandingPrincipal(loan).Equal(loan.Schedule[2].ClosingBalance))
}

func TestOutstandingPrincipal_AllPaidReachesZero(t *testing.T) {
	for _, tc := range []struct {
		principal int64
		rate      int64
		tenure    int
	}{
		{100000, 18, 12},
		{50000, 12, 6},
		{60000, 12, 12},
	} {
		loan := directLoan(t, tc.principal, tc.rate, tc.tenure)
		for i := range loan.Schedule {
			loan.Schedule[i].Status = domain.InstallmentStatusPaid
		}
		assert.True(t, OutstandingPrincipal(loan).IsZero() ||
			OutstandingPrincipal(loan).LessThanOrEqual(dec(int64(tc.tenure))),
			"outstanding %s", OutstandingPrincipal(loan))
	}
}

func TestOutstandingPrincipal_SelfCorrects(t *testing.T) {
	loan := payInstallments(t, disbursedLoan(t), 2)
	require.True(t, OutstandingPrincipal(loan).Equal(loan.Schedule[1].ClosingBalance))

	loan.Schedule[1].Status = domain.InstallmentStatusPending
	assert.True(t, OutstandingPrincipal(loan).Equal(loan.Schedule[0].ClosingBalance))
}

func TestOutstandingPrincipal_NilLoan(t *testing.T) {
	assert.True(t, OutstandingPrincipal(nil).IsZero())
}
