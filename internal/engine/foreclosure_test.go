package engine

import (
	"testing"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForeclose(t *testing.T) {
	loan := directLoan(t, 30000, 12, 6)
	before := loan.Clone()

	res, err := Foreclose(loan, ForeclosureParams{
		Date:           date(2024, 1, 20),
		ChargesPercent: dec(2),
		AmountReceived: true,
	})
	require.NoError(t, err)

	assert.True(t, res.Details.OutstandingPrincipalAtClosure.Equal(dec(30000)))
	assert.True(t, res.Details.Charges.Equal(dec(600)))
	assert.True(t, res.Details.TotalPayable.Equal(dec(30600)))
	assert.True(t, res.Details.AmountReceived)
	assert.Equal(t, date(2024, 1, 20), res.Details.Date)

	next := res.Loan
	assert.Equal(t, domain.LoanStatusCompleted, next.Status)
	require.NotNil(t, next.ForeclosureDetails)
	assert.Equal(t, res.Details, *next.ForeclosureDetails)
	assert.True(t, next.IsForeclosed())
	require.Len(t, next.Schedule, 6)
	for _, inst := range next.Schedule {
		assert.Equal(t, domain.InstallmentStatusCancelled, inst.Status)
	}

	assert.Equal(t, before, loan)
}

func TestForeclose_KeepsPaidInstallments(t *testing.T) {
	loan := payInstallments(t, disbursedLoan(t), 3)
	loan.Schedule[3].Status = domain.InstallmentStatusOverdue
	before := loan.Clone()

	res, err := Foreclose(loan, ForeclosureParams{Date: date(2024, 5, 10), ChargesPercent: dec(4)})
	require.NoError(t, err)

	assertPaidUnchanged(t, before.Schedule, res.Loan.Schedule)
	for _, inst := range res.Loan.Schedule[3:] {
		assert.Equal(t, domain.InstallmentStatusCancelled, inst.Status)
	}
	assert.True(t, res.Details.OutstandingPrincipalAtClosure.Equal(dec(76649)))
	assert.True(t, res.Details.Charges.Equal(dec(3066)))
	assert.True(t, res.Details.TotalPayable.Equal(dec(79715)))
}

func TestForeclose_Errors(t *testing.T) {
	_, err := Foreclose(approvedLoan(t), ForeclosureParams{Date: date(2024, 1, 20)})
	assert.ErrorIs(t, err, customError.ErrInvalidState)

	closed, err := Foreclose(disbursedLoan(t), ForeclosureParams{Date: date(2024, 1, 20)})
	require.NoError(t, err)
	_, err = Foreclose(closed.Loan, ForeclosureParams{Date: date(2024, 1, 21)})
	assert.ErrorIs(t, err, customError.ErrInvalidState)

	_, err = Foreclose(disbursedLoan(t), ForeclosureParams{Date: date(2024, 1, 20), ChargesPercent: dec(-1)})
	assert.ErrorIs(t, err, customError.ErrInvalidInput)

	_, err = Foreclose(disbursedLoan(t), ForeclosureParams{})
	assert.ErrorIs(t, err, customError.ErrInvalidInput)
}

func TestUndoForeclosure_RoundTrip(t *testing.T) {
	loan := payInstallments(t, disbursedLoan(t), 2)
	before := loan.Clone()

	closed, err := Foreclose(loan, ForeclosureParams{Date: date(2024, 4, 1), ChargesPercent: dec(2)})
	require.NoError(t, err)

	reopened, err := UndoForeclosure(closed.Loan)
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusDisbursed, reopened.Status)
	assert.Nil(t, reopened.ForeclosureDetails)
	for _, inst := range reopened.Schedule {
		assert.NotEqual(t, domain.InstallmentStatusCancelled, inst.Status)
	}
	assert.Equal(t, before, reopened)
	assert.Equal(t, domain.LoanStatusCompleted, closed.Loan.Status)
}

func TestUndoForeclosure_Errors(t *testing.T) {
	_, err := UndoForeclosure(disbursedLoan(t))
	assert.ErrorIs(t, err, customError.ErrNothingToUndo)

	loan := payInstallments(t, disbursedLoan(t), 12)
	require.Equal(t, domain.LoanStatusCompleted, loan.Status)
	_, err = UndoForeclosure(loan)
	assert.ErrorIs(t, err, customError.ErrNothingToUndo)
}
