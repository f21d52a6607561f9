package engine

import (
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// ForeclosureParams are the terms of an early settlement.
type ForeclosureParams struct {
	Date           time.Time
	ChargesPercent decimal.Decimal
	AmountReceived bool
}

// ForeclosureResult carries the completed loan and its payoff figures.
type ForeclosureResult struct {
	Loan    *domain.Loan
	Details domain.ForeclosureDetails
}

// Foreclose settles a disbursed loan early. Unpaid installments are
// cancelled, never removed, and the payoff is the outstanding principal plus
// the foreclosure charge.
func Foreclose(loan *domain.Loan, params ForeclosureParams) (*ForeclosureResult, error) {
	if loan == nil {
		return nil, customError.InvalidInput("loan is required")
	}
	if loan.Status != domain.LoanStatusDisbursed {
		return nil, customError.InvalidState("loan %s cannot be foreclosed from status %s", loan.ID, loan.Status)
	}
	if params.ChargesPercent.IsNegative() {
		return nil, customError.InvalidInput("charges percent must not be negative, got %s", params.ChargesPercent)
	}
	if params.Date.IsZero() {
		return nil, customError.InvalidInput("foreclosure date is required")
	}

	outstanding := OutstandingPrincipal(loan)
	charges := utils.PercentOf(outstanding, params.ChargesPercent)

	details := domain.ForeclosureDetails{
		Date:                          utils.DateOnly(params.Date),
		OutstandingPrincipalAtClosure: outstanding,
		ChargesPercent:                params.ChargesPercent,
		Charges:                       charges,
		TotalPayable:                  outstanding.Add(charges),
		AmountReceived:                params.AmountReceived,
	}

	next := loan.Clone()
	for i := range next.Schedule {
		if next.Schedule[i].IsUnpaid() {
			next.Schedule[i].Status = domain.InstallmentStatusCancelled
		}
	}
	next.Status = domain.LoanStatusCompleted
	fd := details
	next.ForeclosureDetails = &fd

	return &ForeclosureResult{Loan: next, Details: details}, nil
}

// UndoForeclosure reopens a foreclosed loan: cancelled installments become
// pending again and the foreclosure details are cleared.
func UndoForeclosure(loan *domain.Loan) (*domain.Loan, error) {
	if loan == nil {
		return nil, customError.InvalidInput("loan is required")
	}
	if loan.ForeclosureDetails == nil {
		return nil, customError.NothingToUndo("loan %s has no foreclosure to undo", loan.ID)
	}
	if loan.Status != domain.LoanStatusCompleted {
		return nil, customError.InvalidState("foreclosure of loan %s cannot be undone from status %s", loan.ID, loan.Status)
	}

	next := loan.Clone()
	for i := range next.Schedule {
		if next.Schedule[i].Status == domain.InstallmentStatusCancelled {
			next.Schedule[i].Status = domain.InstallmentStatusPending
		}
	}
	next.Status = domain.LoanStatusDisbursed
	next.ForeclosureDetails = nil

	return next, nil
}
