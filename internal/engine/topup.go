package engine

import (
	"fmt"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// TopUpParams are the terms of additional credit merged into a loan.
type TopUpParams struct {
	Date                 time.Time
	TopUpAmount          decimal.Decimal
	NewTenureMonths      int
	NewAnnualRatePercent decimal.Decimal
	ProcessingFeePercent decimal.Decimal
}

// TopUpResult carries the re-amortized loan and the record appended to its
// history.
type TopUpResult struct {
	Loan   *domain.Loan
	Record domain.TopUpRecord
}

// UndoTopUpResult carries the restored loan, the record that was removed and
// the posting that reverses its ledger entries.
type UndoTopUpResult struct {
	Loan     *domain.Loan
	Undone   domain.TopUpRecord
	Reversal domain.LedgerReversal
}

// TopUp merges TopUpAmount into the outstanding principal and re-amortizes it
// over NewTenureMonths. Paid installments stay as they are; every unpaid
// installment is replaced by the new tail, numbered after the last paid one.
func TopUp(loan *domain.Loan, params TopUpParams) (*TopUpResult, error) {
	if loan == nil {
		return nil, customError.InvalidInput("loan is required")
	}
	if loan.Status != domain.LoanStatusDisbursed {
		return nil, customError.InvalidState("loan %s cannot be topped up from status %s", loan.ID, loan.Status)
	}
	if !params.TopUpAmount.IsPositive() {
		return nil, customError.InvalidInput("top-up amount must be positive, got %s", params.TopUpAmount)
	}
	if err := validateTenure("new tenure", params.NewTenureMonths); err != nil {
		return nil, err
	}
	if params.ProcessingFeePercent.IsNegative() {
		return nil, customError.InvalidInput("processing fee percent must not be negative, got %s", params.ProcessingFeePercent)
	}
	if params.Date.IsZero() {
		return nil, customError.InvalidInput("top-up date is required")
	}

	paid, err := paidPrefix(loan)
	if err != nil {
		return nil, err
	}

	previousOutstanding := OutstandingPrincipal(loan)
	newPrincipal := previousOutstanding.Add(params.TopUpAmount)
	newEMI, err := ComputeEMI(newPrincipal, params.NewAnnualRatePercent, params.NewTenureMonths)
	if err != nil {
		return nil, err
	}
	fee := utils.PercentOf(params.TopUpAmount, params.ProcessingFeePercent)

	firstNewNumber := len(paid) + 1
	firstNewDate := utils.FirstDueDateAfter(params.Date, topUpDueDay(loan))
	tail, err := generateInstallments(firstNewNumber, newPrincipal, newEMI, params.NewAnnualRatePercent, params.NewTenureMonths, firstNewDate)
	if err != nil {
		return nil, err
	}

	record := domain.TopUpRecord{
		ID:                          fmt.Sprintf("%s-topup-%d", loan.ID, len(loan.TopUpHistory)+1),
		Date:                        utils.DateOnly(params.Date),
		TopUpAmount:                 params.TopUpAmount,
		PreviousOutstanding:         previousOutstanding,
		PreviousPrincipal:           loan.Principal,
		NewPrincipal:                newPrincipal,
		PreviousEMI:                 loan.EMI,
		NewEMI:                      newEMI,
		PreviousTenureMonths:        loan.TenureMonths,
		NewTenureMonths:             params.NewTenureMonths,
		ProcessingFee:               fee,
		PreviousInterestRatePercent: loan.AnnualInterestRatePercent,
		InterestRateAtTime:          params.NewAnnualRatePercent,
		FirstNewInstallmentDate:     firstNewDate,
		FirstNewInstallmentNumber:   firstNewNumber,
		PreviousScheduleSnapshot:    domain.CloneSchedule(loan.Schedule),
		LedgerEntries: domain.LedgerEntries{
			LoanOutstandingDebit:      params.TopUpAmount,
			CashCredit:                params.TopUpAmount.Sub(fee),
			ProcessingFeeIncomeCredit: fee,
		},
	}

	next := loan.Clone()
	next.Schedule = append(paid, tail...)
	next.Principal = newPrincipal
	if next.OriginalEMI.IsZero() {
		next.OriginalEMI = loan.EMI
	}
	next.EMI = newEMI
	next.AnnualInterestRatePercent = params.NewAnnualRatePercent
	next.TenureMonths = len(paid) + params.NewTenureMonths
	next.TopUpHistory = append(next.TopUpHistory, record)
	next.ProcessingFeeAccumulated = next.ProcessingFeeAccumulated.Add(fee)

	return &TopUpResult{Loan: next, Record: record.Clone()}, nil
}

// UndoTopUp restores the loan exactly as it was before its most recent
// top-up. It refuses once any installment of that top-up's tail is paid,
// since restoring the snapshot would discard those payments.
func UndoTopUp(loan *domain.Loan) (*UndoTopUpResult, error) {
	if loan == nil {
		return nil, customError.InvalidInput("loan is required")
	}
	record, ok := loan.LastTopUp()
	if !ok {
		return nil, customError.NothingToUndo("loan %s has no top-up to undo", loan.ID)
	}
	if loan.Status != domain.LoanStatusDisbursed {
		return nil, customError.InvalidState("top-up of loan %s cannot be undone from status %s", loan.ID, loan.Status)
	}
	for _, inst := range loan.Schedule {
		if inst.Number >= record.FirstNewInstallmentNumber && inst.Status == domain.InstallmentStatusPaid {
			return nil, customError.InvalidState("installment %d of top-up %s is already paid", inst.Number, record.ID)
		}
	}

	next := loan.Clone()
	next.Principal = record.PreviousPrincipal
	next.EMI = record.PreviousEMI
	next.TenureMonths = record.PreviousTenureMonths
	next.AnnualInterestRatePercent = record.PreviousInterestRatePercent
	next.Schedule = domain.CloneSchedule(record.PreviousScheduleSnapshot)
	next.TopUpHistory = next.TopUpHistory[:len(next.TopUpHistory)-1]
	if len(next.TopUpHistory) == 0 {
		next.TopUpHistory = nil
	}
	next.ProcessingFeeAccumulated = utils.MaxZero(next.ProcessingFeeAccumulated.Sub(record.ProcessingFee))

	return &UndoTopUpResult{
		Loan:     next,
		Undone:   record.Clone(),
		Reversal: record.LedgerEntries.Reverse(),
	}, nil
}

// paidPrefix returns copies of the paid installments, which must form the
// leading part of the schedule.
func paidPrefix(loan *domain.Loan) ([]domain.Installment, error) {
	paid := make([]domain.Installment, 0, len(loan.Schedule))
	seenUnpaid := false
	for _, inst := range loan.Schedule {
		if inst.Status != domain.InstallmentStatusPaid {
			seenUnpaid = true
			continue
		}
		if seenUnpaid {
			return nil, customError.InvalidState("loan %s has paid installment %d after an unpaid one", loan.ID, inst.Number)
		}
		paid = append(paid, inst)
	}
	return domain.CloneSchedule(paid), nil
}

// topUpDueDay keeps the day of month of the first pending installment so the
// borrower's EMI date does not move.
func topUpDueDay(loan *domain.Loan) int {
	for _, inst := range loan.Schedule {
		if inst.Status == domain.InstallmentStatusPending {
			return inst.DueDate.Day()
		}
	}
	if utils.IsValidDueDay(loan.EMIDueDay) {
		return loan.EMIDueDay
	}
	if loan.DisbursalDate != nil {
		return min(loan.DisbursalDate.Day(), 28)
	}
	return 1
}
