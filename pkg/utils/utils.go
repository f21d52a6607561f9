package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundCurrency rounds an amount to whole currency units, half away from zero.
func RoundCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(0)
}

// PercentOf returns round(amount * percent / 100).
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return RoundCurrency(amount.Mul(percent).Div(hundred))
}

// MaxZero clamps negative amounts to zero.
func MaxZero(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FirstDueDateAfter returns dueDay in the calendar month following from.
// dueDay must be in 1..28 so every month contains it.
func FirstDueDateAfter(from time.Time, dueDay int) time.Time {
	y, m, _ := from.Date()
	return time.Date(y, m+1, dueDay, 0, 0, 0, 0, time.UTC)
}

// CalculateDueDate returns the due date of the n-th installment (1-based)
// when the first one falls on firstDueDate.
func CalculateDueDate(firstDueDate time.Time, installmentNumber int) time.Time {
	return firstDueDate.AddDate(0, installmentNumber-1, 0)
}

// IsDateOverdue reports whether dueDate is strictly before asOf, comparing
// calendar days only.
func IsDateOverdue(dueDate, asOf time.Time) bool {
	return DateOnly(dueDate).Before(DateOnly(asOf))
}

// IsValidDueDay reports whether day can be used as an EMI due day.
func IsValidDueDay(day int) bool {
	return day >= 1 && day <= 28
}
