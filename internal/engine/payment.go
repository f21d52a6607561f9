package engine

import (
	"strings"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// PaymentParams describe one EMI collection.
type PaymentParams struct {
	PaidDate      time.Time
	AmountPaid    decimal.Decimal
	PaymentMethod string
}

// PaymentResult carries the updated loan and the installment that was
// settled. Completed is true when the payment closed the loan.
type PaymentResult struct {
	Loan        *domain.Loan
	Installment domain.Installment
	Completed   bool
}

// RecordPayment settles the earliest unpaid installment, so paid
// installments always form the leading part of the schedule.
func RecordPayment(loan *domain.Loan, params PaymentParams) (*PaymentResult, error) {
	if loan == nil {
		return nil, customError.InvalidInput("loan is required")
	}
	if loan.Status != domain.LoanStatusDisbursed {
		return nil, customError.InvalidState("loan %s cannot take payments in status %s", loan.ID, loan.Status)
	}
	if !params.AmountPaid.IsPositive() {
		return nil, customError.InvalidInput("amount paid must be positive, got %s", params.AmountPaid)
	}
	if params.PaidDate.IsZero() {
		return nil, customError.InvalidInput("paid date is required")
	}

	idx := -1
	for i, inst := range loan.Schedule {
		if inst.IsUnpaid() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, customError.InvalidState("loan %s has no unpaid installment", loan.ID)
	}

	method := strings.TrimSpace(params.PaymentMethod)
	if method == "" {
		method = "cash"
	}
	paidDate := utils.DateOnly(params.PaidDate)

	next := loan.Clone()
	inst := &next.Schedule[idx]
	inst.Status = domain.InstallmentStatusPaid
	inst.PaidDate = &paidDate
	inst.AmountPaid = params.AmountPaid
	inst.PaymentMethod = method
	settled := *inst

	next, completed := CheckCompletion(next)
	return &PaymentResult{Loan: next, Installment: settled, Completed: completed}, nil
}

// MarkOverdue flags every pending installment due before asOf. It returns the
// input unchanged and zero when nothing is overdue.
func MarkOverdue(loan *domain.Loan, asOf time.Time) (*domain.Loan, int) {
	if loan == nil || loan.Status != domain.LoanStatusDisbursed {
		return loan, 0
	}

	var next *domain.Loan
	marked := 0
	for i, inst := range loan.Schedule {
		if inst.Status != domain.InstallmentStatusPending || !utils.IsDateOverdue(inst.DueDate, asOf) {
			continue
		}
		if next == nil {
			next = loan.Clone()
		}
		next.Schedule[i].Status = domain.InstallmentStatusOverdue
		marked++
	}
	if next == nil {
		return loan, 0
	}
	return next, marked
}
