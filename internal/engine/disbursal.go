package engine

import (
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// DisbursalParams are the inputs chosen at payout time.
type DisbursalParams struct {
	DisbursalDate time.Time
	EMIDueDay     int
}

// DisbursalResult carries the disbursed loan and the figures reported to the
// borrower.
type DisbursalResult struct {
	Loan         *domain.Loan
	NetDisbursed decimal.Decimal
	FirstDueDate time.Time
}

// Disburse activates an approved loan and generates its first schedule. The
// first EMI falls on EMIDueDay in the month after the disbursal month.
func Disburse(loan *domain.Loan, params DisbursalParams) (*DisbursalResult, error) {
	if loan == nil {
		return nil, customError.InvalidInput("loan is required")
	}
	if loan.Status != domain.LoanStatusApproved {
		return nil, customError.InvalidState("loan %s cannot be disbursed from status %s", loan.ID, loan.Status)
	}
	if params.DisbursalDate.IsZero() {
		return nil, customError.InvalidInput("disbursal date is required")
	}
	if !utils.IsValidDueDay(params.EMIDueDay) {
		return nil, customError.InvalidInput("emi due day must be between 1 and 28, got %d", params.EMIDueDay)
	}

	emi := loan.EMI
	if !emi.IsPositive() {
		var err error
		emi, err = ComputeEMI(loan.Principal, loan.AnnualInterestRatePercent, loan.TenureMonths)
		if err != nil {
			return nil, err
		}
	}

	firstDueDate := utils.FirstDueDateAfter(params.DisbursalDate, params.EMIDueDay)
	schedule, err := GenerateSchedule(loan.Principal, emi, loan.AnnualInterestRatePercent, loan.TenureMonths, firstDueDate)
	if err != nil {
		return nil, err
	}

	disbursalDate := utils.DateOnly(params.DisbursalDate)

	next := loan.Clone()
	next.Status = domain.LoanStatusDisbursed
	next.DisbursalDate = &disbursalDate
	next.EMIDueDay = params.EMIDueDay
	next.EMI = emi
	if next.OriginalEMI.IsZero() {
		next.OriginalEMI = emi
	}
	next.Schedule = schedule
	next.ProcessingFeeAccumulated = next.ProcessingFeeAccumulated.Add(loan.ProcessingFee)

	return &DisbursalResult{
		Loan:         next,
		NetDisbursed: utils.MaxZero(loan.Principal.Sub(loan.ProcessingFee)),
		FirstDueDate: firstDueDate,
	}, nil
}
