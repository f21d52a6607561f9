package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle stage of a loan.
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusDisbursed LoanStatus = "disbursed"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusRejected  LoanStatus = "rejected"
)

// Loan is the aggregate root: the loan terms, its installment schedule and
// the history needed to reverse top-ups and foreclosure.
type Loan struct {
	ID                        string              `json:"id"`
	BorrowerID                string              `json:"borrower_id,omitempty"`
	Principal                 decimal.Decimal     `json:"principal"`
	AnnualInterestRatePercent decimal.Decimal     `json:"annual_interest_rate_percent"`
	TenureMonths              int                 `json:"tenure_months"`
	EMI                       decimal.Decimal     `json:"emi"`
	OriginalEMI               decimal.Decimal     `json:"original_emi"`
	EMIDueDay                 int                 `json:"emi_due_day,omitempty"`
	DisbursalDate             *time.Time          `json:"disbursal_date,omitempty"`
	Status                    LoanStatus          `json:"status"`
	Schedule                  []Installment       `json:"schedule"`
	TopUpHistory              []TopUpRecord       `json:"top_up_history"`
	ForeclosureDetails        *ForeclosureDetails `json:"foreclosure_details,omitempty"`
	ProcessingFee             decimal.Decimal     `json:"processing_fee"`
	ProcessingFeeAccumulated  decimal.Decimal     `json:"processing_fee_accumulated"`
	RejectionReason           string              `json:"rejection_reason,omitempty"`
	Version                   int64               `json:"version"`
	CreatedAt                 time.Time           `json:"created_at"`
	UpdatedAt                 time.Time           `json:"updated_at"`
}

// ForeclosureDetails is present while a loan is completed by foreclosure.
type ForeclosureDetails struct {
	Date                          time.Time       `json:"date"`
	OutstandingPrincipalAtClosure decimal.Decimal `json:"outstanding_principal_at_closure"`
	ChargesPercent                decimal.Decimal `json:"charges_percent"`
	Charges                       decimal.Decimal `json:"charges"`
	TotalPayable                  decimal.Decimal `json:"total_payable"`
	AmountReceived                bool            `json:"amount_received"`
}

// PaidCount returns the number of installments in status paid.
func (l *Loan) PaidCount() int {
	n := 0
	for _, inst := range l.Schedule {
		if inst.Status == InstallmentStatusPaid {
			n++
		}
	}
	return n
}

// LastTopUp returns the most recent top-up, if any.
func (l *Loan) LastTopUp() (TopUpRecord, bool) {
	if len(l.TopUpHistory) == 0 {
		return TopUpRecord{}, false
	}
	return l.TopUpHistory[len(l.TopUpHistory)-1], true
}

// IsForeclosed reports whether the loan was completed through foreclosure
// rather than by settling every installment.
func (l *Loan) IsForeclosed() bool {
	return l.Status == LoanStatusCompleted && l.ForeclosureDetails != nil
}

// Clone returns a deep copy so operations can mutate without touching the
// caller's loan.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	next := *l
	if l.DisbursalDate != nil {
		d := *l.DisbursalDate
		next.DisbursalDate = &d
	}
	next.Schedule = CloneSchedule(l.Schedule)
	if l.TopUpHistory != nil {
		next.TopUpHistory = make([]TopUpRecord, len(l.TopUpHistory))
		for i, rec := range l.TopUpHistory {
			next.TopUpHistory[i] = rec.Clone()
		}
	}
	if l.ForeclosureDetails != nil {
		fd := *l.ForeclosureDetails
		next.ForeclosureDetails = &fd
	}
	return &next
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanID                    string           `json:"loan_id" validate:"omitempty,max=64"`
	BorrowerID                string           `json:"borrower_id" validate:"omitempty,max=64"`
	Principal                 decimal.Decimal  `json:"principal" validate:"decimal_gt0"`
	AnnualInterestRatePercent decimal.Decimal  `json:"annual_interest_rate_percent" validate:"decimal_gte0"`
	TenureMonths              int              `json:"tenure_months" validate:"required,gt=0,max=600"`
	ProcessingFeePercent      *decimal.Decimal `json:"processing_fee_percent,omitempty"`
}

type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type DisburseLoanRequest struct {
	DisbursalDate string `json:"disbursal_date" validate:"omitempty,datetime=2006-01-02"`
	EMIDueDay     int    `json:"emi_due_day" validate:"required,min=1,max=28"`
}

type TopUpRequest struct {
	Date                 string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	TopUpAmount          decimal.Decimal  `json:"top_up_amount" validate:"decimal_gt0"`
	NewTenureMonths      int              `json:"new_tenure_months" validate:"required,gt=0,max=600"`
	NewAnnualRatePercent *decimal.Decimal `json:"new_annual_rate_percent,omitempty"`
	ProcessingFeePercent *decimal.Decimal `json:"processing_fee_percent,omitempty"`
}

type ForecloseRequest struct {
	Date           string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	ChargesPercent *decimal.Decimal `json:"charges_percent,omitempty"`
	AmountReceived bool             `json:"amount_received"`
}

type MakePaymentRequest struct {
	PaidDate      string          `json:"paid_date" validate:"omitempty,datetime=2006-01-02"`
	AmountPaid    decimal.Decimal `json:"amount_paid" validate:"decimal_gt0"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,max=32"`
}

type DisbursalResponse struct {
	Loan         *Loan           `json:"loan"`
	NetDisbursed decimal.Decimal `json:"net_disbursed"`
	FirstDueDate time.Time       `json:"first_due_date"`
}

type TopUpResponse struct {
	Loan  *Loan       `json:"loan"`
	TopUp TopUpRecord `json:"top_up"`
}

type UndoTopUpResponse struct {
	Loan     *Loan          `json:"loan"`
	Undone   TopUpRecord    `json:"undone"`
	Reversal LedgerReversal `json:"reversal"`
}

type ForeclosureResponse struct {
	Loan        *Loan              `json:"loan"`
	Foreclosure ForeclosureDetails `json:"foreclosure"`
}

type PaymentResponse struct {
	Loan        *Loan       `json:"loan"`
	Installment Installment `json:"installment"`
	Completed   bool        `json:"completed"`
}

type OutstandingResponse struct {
	LoanID      string          `json:"loan_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type NextDueResponse struct {
	LoanID      string       `json:"loan_id"`
	Installment *Installment `json:"installment"`
}

type OverdueResponse struct {
	LoanID    string    `json:"loan_id"`
	AsOf      time.Time `json:"as_of"`
	IsOverdue bool      `json:"is_overdue"`
}
