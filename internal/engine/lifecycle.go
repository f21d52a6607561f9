package engine

import (
	"strings"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// ApplicationParams describes a new loan application.
type ApplicationParams struct {
	LoanID                    string
	BorrowerID                string
	Principal                 decimal.Decimal
	AnnualInterestRatePercent decimal.Decimal
	TenureMonths              int
	ProcessingFeePercent      decimal.Decimal
	CreatedAt                 time.Time
}

// NewLoanApplication creates a pending loan with its EMI and disbursal fee
// already priced. No schedule exists until disbursal.
func NewLoanApplication(params ApplicationParams) (*domain.Loan, error) {
	if strings.TrimSpace(params.LoanID) == "" {
		return nil, customError.InvalidInput("loan id is required")
	}
	if params.ProcessingFeePercent.IsNegative() {
		return nil, customError.InvalidInput("processing fee percent must not be negative, got %s", params.ProcessingFeePercent)
	}

	emi, err := ComputeEMI(params.Principal, params.AnnualInterestRatePercent, params.TenureMonths)
	if err != nil {
		return nil, err
	}

	return &domain.Loan{
		ID:                        params.LoanID,
		BorrowerID:                params.BorrowerID,
		Principal:                 params.Principal,
		AnnualInterestRatePercent: params.AnnualInterestRatePercent,
		TenureMonths:              params.TenureMonths,
		EMI:                       emi,
		Status:                    domain.LoanStatusPending,
		ProcessingFee:             utils.PercentOf(params.Principal, params.ProcessingFeePercent),
		ProcessingFeeAccumulated:  decimal.Zero,
		CreatedAt:                 params.CreatedAt,
		UpdatedAt:                 params.CreatedAt,
	}, nil
}

// Approve moves a pending application to approved.
func Approve(loan *domain.Loan) (*domain.Loan, error) {
	if loan == nil {
		return nil, customError.InvalidInput("loan is required")
	}
	if loan.Status != domain.LoanStatusPending {
		return nil, customError.InvalidState("loan %s cannot be approved from status %s", loan.ID, loan.Status)
	}

	next := loan.Clone()
	next.Status = domain.LoanStatusApproved
	return next, nil
}

// Reject closes a pending or approved application.
func Reject(loan *domain.Loan, reason string) (*domain.Loan, error) {
	if loan == nil {
		return nil, customError.InvalidInput("loan is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, customError.InvalidInput("rejection reason is required")
	}
	if loan.Status != domain.LoanStatusPending && loan.Status != domain.LoanStatusApproved {
		return nil, customError.InvalidState("loan %s cannot be rejected from status %s", loan.ID, loan.Status)
	}

	next := loan.Clone()
	next.Status = domain.LoanStatusRejected
	next.RejectionReason = reason
	return next, nil
}

// CheckCompletion marks a disbursed loan completed once every installment is
// paid or cancelled. It returns the input unchanged and false when nothing
// needs to change, so applying it repeatedly is safe.
func CheckCompletion(loan *domain.Loan) (*domain.Loan, bool) {
	if loan == nil || loan.Status != domain.LoanStatusDisbursed || len(loan.Schedule) == 0 {
		return loan, false
	}
	for _, inst := range loan.Schedule {
		if !inst.IsSettled() {
			return loan, false
		}
	}

	next := loan.Clone()
	next.Status = domain.LoanStatusCompleted
	return next, true
}
