package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is the settlement state of one installment.
type InstallmentStatus string

// Business logic constants
const (
	InstallmentStatusPending   InstallmentStatus = "pending"
	InstallmentStatusPaid      InstallmentStatus = "paid"
	InstallmentStatusOverdue   InstallmentStatus = "overdue"
	InstallmentStatusCancelled InstallmentStatus = "cancelled"
)

// Installment is one scheduled EMI. Once paid, Amount, PaidDate and
// AmountPaid never change.
type Installment struct {
	Number         int               `json:"number"`
	DueDate        time.Time         `json:"due_date"`
	Amount         decimal.Decimal   `json:"amount"`
	OpeningBalance decimal.Decimal   `json:"opening_balance"`
	Interest       decimal.Decimal   `json:"interest"`
	Principal      decimal.Decimal   `json:"principal"`
	ClosingBalance decimal.Decimal   `json:"closing_balance"`
	Status         InstallmentStatus `json:"status"`
	PaidDate       *time.Time        `json:"paid_date,omitempty"`
	AmountPaid     decimal.Decimal   `json:"amount_paid"`
	PaymentMethod  string            `json:"payment_method,omitempty"`
}

// IsUnpaid reports whether the installment still awaits payment.
func (i Installment) IsUnpaid() bool {
	return i.Status == InstallmentStatusPending || i.Status == InstallmentStatusOverdue
}

// IsSettled reports whether the installment needs no further payment.
func (i Installment) IsSettled() bool {
	return i.Status == InstallmentStatusPaid || i.Status == InstallmentStatusCancelled
}

// CloneSchedule deep-copies a schedule.
func CloneSchedule(schedule []Installment) []Installment {
	if schedule == nil {
		return nil
	}
	out := make([]Installment, len(schedule))
	for i, inst := range schedule {
		if inst.PaidDate != nil {
			d := *inst.PaidDate
			inst.PaidDate = &d
		}
		out[i] = inst
	}
	return out
}
