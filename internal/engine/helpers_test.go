package engine

import (
	"testing"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// approvedLoan is the 100,000 / 18% / 12 month loan with a 2% disbursal fee.
func approvedLoan(t *testing.T) *domain.Loan {
	t.Helper()
	loan, err := NewLoanApplication(ApplicationParams{
		LoanID:                    "LOAN123",
		BorrowerID:                "BORROWER1",
		Principal:                 dec(100000),
		AnnualInterestRatePercent: dec(18),
		TenureMonths:              12,
		ProcessingFeePercent:      dec(2),
		CreatedAt:                 date(2024, 1, 2),
	})
	require.NoError(t, err)
	loan, err = Approve(loan)
	require.NoError(t, err)
	return loan
}

func disbursedLoan(t *testing.T) *domain.Loan {
	t.Helper()
	res, err := Disburse(approvedLoan(t), DisbursalParams{DisbursalDate: date(2024, 1, 10), EMIDueDay: 5})
	require.NoError(t, err)
	return res.Loan
}

func payInstallments(t *testing.T, loan *domain.Loan, n int) *domain.Loan {
	t.Helper()
	for i := 0; i < n; i++ {
		due, ok := NextDueInstallment(loan)
		require.True(t, ok)
		res, err := RecordPayment(loan, PaymentParams{
			PaidDate:      due.DueDate,
			AmountPaid:    due.Amount,
			PaymentMethod: "bank_transfer",
		})
		require.NoError(t, err)
		loan = res.Loan
	}
	return loan
}

// directLoan builds a disbursed loan whose schedule starts from principal
// with nothing paid, so its outstanding principal equals principal.
func directLoan(t *testing.T, principal int64, rate int64, tenure int) *domain.Loan {
	t.Helper()
	emi, err := ComputeEMI(dec(principal), dec(rate), tenure)
	require.NoError(t, err)
	schedule, err := GenerateSchedule(dec(principal), emi, dec(rate), tenure, date(2024, 2, 5))
	require.NoError(t, err)
	disbursed := date(2024, 1, 10)
	return &domain.Loan{
		ID:                        "LOAN-DIRECT",
		Principal:                 dec(principal),
		AnnualInterestRatePercent: dec(rate),
		TenureMonths:              tenure,
		EMI:                       emi,
		OriginalEMI:               emi,
		EMIDueDay:                 5,
		DisbursalDate:             &disbursed,
		Status:                    domain.LoanStatusDisbursed,
		Schedule:                  schedule,
	}
}

func assertPaidUnchanged(t *testing.T, before, after []domain.Installment) {
	t.Helper()
	byNumber := make(map[int]domain.Installment, len(after))
	for _, inst := range after {
		byNumber[inst.Number] = inst
	}
	for _, inst := range before {
		if inst.Status != domain.InstallmentStatusPaid {
			continue
		}
		got, ok := byNumber[inst.Number]
		require.True(t, ok, "paid installment %d disappeared", inst.Number)
		require.Equal(t, domain.InstallmentStatusPaid, got.Status)
		require.True(t, inst.Amount.Equal(got.Amount))
		require.True(t, inst.AmountPaid.Equal(got.AmountPaid))
		require.Equal(t, *inst.PaidDate, *got.PaidDate)
	}
}
