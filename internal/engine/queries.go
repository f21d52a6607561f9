package engine

import (
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/utils"
)

// NextDueInstallment returns a copy of the earliest unpaid installment.
func NextDueInstallment(loan *domain.Loan) (*domain.Installment, bool) {
	if loan == nil {
		return nil, false
	}
	var next *domain.Installment
	for _, inst := range loan.Schedule {
		if !inst.IsUnpaid() {
			continue
		}
		if next == nil || inst.Number < next.Number {
			found := inst
			next = &found
		}
	}
	return next, next != nil
}

// IsOverdue reports whether a disbursed loan has an unpaid installment that
// was due before asOf. A stored overdue flag does not count for dates before
// the installment fell due.
func IsOverdue(loan *domain.Loan, asOf time.Time) bool {
	if loan == nil || loan.Status != domain.LoanStatusDisbursed {
		return false
	}
	for _, inst := range loan.Schedule {
		if inst.IsUnpaid() && utils.IsDateOverdue(inst.DueDate, asOf) {
			return true
		}
	}
	return false
}
