package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TopUpRecord captures one top-up together with everything needed to undo
// it exactly.
type TopUpRecord struct {
	ID                          string          `json:"id"`
	Date                        time.Time       `json:"date"`
	TopUpAmount                 decimal.Decimal `json:"top_up_amount"`
	PreviousOutstanding         decimal.Decimal `json:"previous_outstanding"`
	PreviousPrincipal           decimal.Decimal `json:"previous_principal"`
	NewPrincipal                decimal.Decimal `json:"new_principal"`
	PreviousEMI                 decimal.Decimal `json:"previous_emi"`
	NewEMI                      decimal.Decimal `json:"new_emi"`
	PreviousTenureMonths        int             `json:"previous_tenure_months"`
	NewTenureMonths             int             `json:"new_tenure_months"`
	ProcessingFee               decimal.Decimal `json:"processing_fee"`
	PreviousInterestRatePercent decimal.Decimal `json:"previous_interest_rate_percent"`
	InterestRateAtTime          decimal.Decimal `json:"interest_rate_at_time"`
	FirstNewInstallmentDate     time.Time       `json:"first_new_installment_date"`
	FirstNewInstallmentNumber   int             `json:"first_new_installment_number"`
	PreviousScheduleSnapshot    []Installment   `json:"previous_schedule_snapshot"`
	LedgerEntries               LedgerEntries   `json:"ledger_entries"`
}

// Clone deep-copies the record including its schedule snapshot.
func (r TopUpRecord) Clone() TopUpRecord {
	r.PreviousScheduleSnapshot = CloneSchedule(r.PreviousScheduleSnapshot)
	return r
}

// LedgerEntries is the double-entry posting of a top-up: the loan account is
// debited with the full top-up, split between cash paid out and fee income.
type LedgerEntries struct {
	LoanOutstandingDebit      decimal.Decimal `json:"loan_outstanding_debit"`
	CashCredit                decimal.Decimal `json:"cash_credit"`
	ProcessingFeeIncomeCredit decimal.Decimal `json:"processing_fee_income_credit"`
}

// IsBalanced reports whether debits equal credits.
func (e LedgerEntries) IsBalanced() bool {
	return e.LoanOutstandingDebit.Equal(e.CashCredit.Add(e.ProcessingFeeIncomeCredit))
}

// Reverse returns the mirrored posting that cancels e.
func (e LedgerEntries) Reverse() LedgerReversal {
	return LedgerReversal{
		LoanOutstandingCredit:    e.LoanOutstandingDebit,
		CashDebit:                e.CashCredit,
		ProcessingFeeIncomeDebit: e.ProcessingFeeIncomeCredit,
	}
}

// LedgerReversal mirrors a top-up posting when the top-up is undone.
type LedgerReversal struct {
	LoanOutstandingCredit    decimal.Decimal `json:"loan_outstanding_credit"`
	CashDebit                decimal.Decimal `json:"cash_debit"`
	ProcessingFeeIncomeDebit decimal.Decimal `json:"processing_fee_income_debit"`
}

// IsBalanced reports whether debits equal credits.
func (r LedgerReversal) IsBalanced() bool {
	return r.LoanOutstandingCredit.Equal(r.CashDebit.Add(r.ProcessingFeeIncomeDebit))
}
