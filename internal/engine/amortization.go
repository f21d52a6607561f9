package engine

import (
	"sort"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// powPrecision bounds the digits kept while compounding (1+r)^n.
const powPrecision = 24

// MaxTenureMonths caps every schedule at fifty years of monthly installments.
const MaxTenureMonths = 600

var monthsTimesPercent = decimal.NewFromInt(1200)

func validateTenure(name string, months int) error {
	if months <= 0 {
		return customError.InvalidInput("%s must be positive, got %d", name, months)
	}
	if months > MaxTenureMonths {
		return customError.InvalidInput("%s must not exceed %d months, got %d", name, MaxTenureMonths, months)
	}
	return nil
}

// MonthlyRate converts a nominal annual percentage into the monthly rate.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(monthsTimesPercent)
}

// ComputeEMI returns the equal monthly installment for a reducing-balance
// loan compounded monthly, rounded to whole currency units.
//
//	r   = annualRatePercent / 12 / 100
//	emi = P * r * (1+r)^n / ((1+r)^n - 1)
func ComputeEMI(principal, annualRatePercent decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if !principal.IsPositive() {
		return decimal.Zero, customError.InvalidInput("principal must be positive, got %s", principal)
	}
	if err := validateTenure("tenure", tenureMonths); err != nil {
		return decimal.Zero, err
	}
	if annualRatePercent.IsNegative() {
		return decimal.Zero, customError.InvalidInput("interest rate must not be negative, got %s", annualRatePercent)
	}

	r := MonthlyRate(annualRatePercent)
	if r.IsZero() {
		return utils.RoundCurrency(principal.Div(decimal.NewFromInt(int64(tenureMonths)))), nil
	}

	factor := compound(r, tenureMonths)
	emi := principal.Mul(r).Mul(factor).Div(factor.Sub(decimal.NewFromInt(1)))
	return utils.RoundCurrency(emi), nil
}

// compound returns (1+r)^n.
func compound(r decimal.Decimal, n int) decimal.Decimal {
	base := decimal.NewFromInt(1).Add(r)
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(powPrecision)
		}
		base = base.Mul(base).Round(powPrecision)
		n >>= 1
	}
	return result
}

// GenerateSchedule builds tenureMonths pending installments numbered from 1,
// due on firstDueDate and then monthly on the same day of month.
//
// Interest and principal are rounded per period and the balance is clamped
// at zero, so the final closing balance may sit a few units off zero.
func GenerateSchedule(principal, emi, annualRatePercent decimal.Decimal, tenureMonths int, firstDueDate time.Time) ([]domain.Installment, error) {
	return generateInstallments(1, principal, emi, annualRatePercent, tenureMonths, firstDueDate)
}

func generateInstallments(firstNumber int, principal, emi, annualRatePercent decimal.Decimal, tenureMonths int, firstDueDate time.Time) ([]domain.Installment, error) {
	if !principal.IsPositive() {
		return nil, customError.InvalidInput("principal must be positive, got %s", principal)
	}
	if !emi.IsPositive() {
		return nil, customError.InvalidInput("emi must be positive, got %s", emi)
	}
	if err := validateTenure("tenure", tenureMonths); err != nil {
		return nil, err
	}
	if annualRatePercent.IsNegative() {
		return nil, customError.InvalidInput("interest rate must not be negative, got %s", annualRatePercent)
	}
	if firstDueDate.IsZero() {
		return nil, customError.InvalidInput("first due date is required")
	}

	r := MonthlyRate(annualRatePercent)
	balance := principal
	schedule := make([]domain.Installment, 0, tenureMonths)

	for i := 1; i <= tenureMonths; i++ {
		interest, principalPaid, closing := amortize(balance, emi, r)

		schedule = append(schedule, domain.Installment{
			Number:         firstNumber + i - 1,
			DueDate:        utils.CalculateDueDate(firstDueDate, i),
			Amount:         emi,
			OpeningBalance: balance,
			Interest:       interest,
			Principal:      principalPaid,
			ClosingBalance: closing,
			Status:         domain.InstallmentStatusPending,
		})
		balance = closing
	}

	return schedule, nil
}

// amortize applies one period of the schedule formula to balance.
func amortize(balance, emi, r decimal.Decimal) (interest, principalPaid, closing decimal.Decimal) {
	interest = utils.RoundCurrency(balance.Mul(r))
	principalPaid = utils.RoundCurrency(emi.Sub(interest))
	closing = utils.MaxZero(balance.Sub(principalPaid))
	return interest, principalPaid, closing
}

// OutstandingPrincipal replays paid installments through the amortization
// formula and returns the principal still owed. After a top-up the replay
// starts from the merged principal and only covers the new tail.
func OutstandingPrincipal(loan *domain.Loan) decimal.Decimal {
	if loan == nil {
		return decimal.Zero
	}

	startNumber := 1
	if last, ok := loan.LastTopUp(); ok {
		startNumber = last.FirstNewInstallmentNumber
	}

	paid := make([]domain.Installment, 0, len(loan.Schedule))
	for _, inst := range loan.Schedule {
		if inst.Number >= startNumber && inst.Status == domain.InstallmentStatusPaid {
			paid = append(paid, inst)
		}
	}
	sort.Slice(paid, func(i, j int) bool { return paid[i].Number < paid[j].Number })

	r := MonthlyRate(loan.AnnualInterestRatePercent)
	balance := loan.Principal
	for range paid {
		_, _, balance = amortize(balance, loan.EMI, r)
	}

	return utils.MaxZero(balance)
}
