package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/config"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/engine"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/metrics"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"
)

const dateLayout = "2006-01-02"

type LoanService struct {
	loanRepo  repository.LoanRepository
	eventRepo repository.EventRepository
	cache     cache.LoanCache
	config    *config.Config
	logger    *zap.Logger
	locks     *loanLocks
	now       func() time.Time
}

// Option customizes a LoanService.
type Option func(*LoanService)

// WithClock replaces time.Now as the source of operation dates.
func WithClock(now func() time.Time) Option {
	return func(s *LoanService) {
		s.now = now
	}
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	eventRepo repository.EventRepository,
	loanCache cache.LoanCache,
	config *config.Config,
	log *zap.Logger,
	opts ...Option,
) *LoanService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &LoanService{
		loanRepo:  loanRepo,
		eventRepo: eventRepo,
		cache:     loanCache,
		config:    config,
		logger:    log,
		locks:     newLoanLocks(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// change is what an operation hands back to mutate: the loan to persist,
// the value returned to the caller and the audit payload.
type change[T any] struct {
	loan    *domain.Loan
	result  T
	payload interface{}
	fields  []zap.Field
}

// CreateLoan prices a new application and stores it in pending status
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (loan *domain.Loan, err error) {
	start := time.Now()
	loanID := request.LoanID
	if loanID == "" {
		loanID = uuid.NewString()
	}
	defer func() {
		metrics.ObserveOperation(domain.OperationCreate, start, err)
		s.logResult(domain.OperationCreate, loanID, err)
	}()

	feePercent := s.config.GetDefaultProcessingFeePercent()
	if request.ProcessingFeePercent != nil {
		feePercent = *request.ProcessingFeePercent
	}

	loan, err = engine.NewLoanApplication(engine.ApplicationParams{
		LoanID:                    loanID,
		BorrowerID:                request.BorrowerID,
		Principal:                 request.Principal,
		AnnualInterestRatePercent: request.AnnualInterestRatePercent,
		TenureMonths:              request.TenureMonths,
		ProcessingFeePercent:      feePercent,
		CreatedAt:                 s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	event, err := newEvent(domain.OperationCreate, map[string]interface{}{
		"principal":                    loan.Principal,
		"annual_interest_rate_percent": loan.AnnualInterestRatePercent,
		"tenure_months":                loan.TenureMonths,
		"emi":                          loan.EMI,
		"processing_fee":               loan.ProcessingFee,
	})
	if err != nil {
		return nil, err
	}

	if err := s.loanRepo.Create(ctx, loan, event); err != nil {
		return nil, err
	}
	s.refreshCache(ctx, loan)

	s.logger.Info("loan application created",
		append(logger.LoanFields(domain.OperationCreate, loan.ID),
			zap.String("principal", loan.Principal.String()),
			zap.String("emi", loan.EMI.String()),
		)...,
	)
	return loan, nil
}

// Approve moves a pending application to approved
func (s *LoanService) Approve(ctx context.Context, loanID string) (*domain.Loan, error) {
	return mutate(ctx, s, domain.OperationApprove, loanID, func(loan *domain.Loan, _ time.Time) (change[*domain.Loan], error) {
		next, err := engine.Approve(loan)
		if err != nil {
			return change[*domain.Loan]{}, err
		}
		return change[*domain.Loan]{
			loan:    next,
			result:  next,
			payload: map[string]interface{}{"status": next.Status},
		}, nil
	})
}

// Reject closes a pending or approved application without disbursal
func (s *LoanService) Reject(ctx context.Context, loanID string, request *domain.RejectLoanRequest) (*domain.Loan, error) {
	return mutate(ctx, s, domain.OperationReject, loanID, func(loan *domain.Loan, _ time.Time) (change[*domain.Loan], error) {
		next, err := engine.Reject(loan, request.Reason)
		if err != nil {
			return change[*domain.Loan]{}, err
		}
		return change[*domain.Loan]{
			loan:    next,
			result:  next,
			payload: map[string]interface{}{"reason": request.Reason},
		}, nil
	})
}

// Disburse pays out an approved loan and generates its schedule
func (s *LoanService) Disburse(ctx context.Context, loanID string, request *domain.DisburseLoanRequest) (*domain.DisbursalResponse, error) {
	return mutate(ctx, s, domain.OperationDisburse, loanID, func(loan *domain.Loan, now time.Time) (change[*domain.DisbursalResponse], error) {
		disbursalDate, err := s.parseDate(request.DisbursalDate, now)
		if err != nil {
			return change[*domain.DisbursalResponse]{}, err
		}

		res, err := engine.Disburse(loan, engine.DisbursalParams{
			DisbursalDate: disbursalDate,
			EMIDueDay:     request.EMIDueDay,
		})
		if err != nil {
			return change[*domain.DisbursalResponse]{}, err
		}

		return change[*domain.DisbursalResponse]{
			loan: res.Loan,
			result: &domain.DisbursalResponse{
				Loan:         res.Loan,
				NetDisbursed: res.NetDisbursed,
				FirstDueDate: res.FirstDueDate,
			},
			payload: map[string]interface{}{
				"disbursal_date": disbursalDate.Format(dateLayout),
				"emi_due_day":    request.EMIDueDay,
				"net_disbursed":  res.NetDisbursed,
				"first_due_date": res.FirstDueDate.Format(dateLayout),
			},
			fields: []zap.Field{
				zap.String("net_disbursed", res.NetDisbursed.String()),
				zap.Int("installments", len(res.Loan.Schedule)),
			},
		}, nil
	})
}

// TopUp merges additional credit into the outstanding principal
func (s *LoanService) TopUp(ctx context.Context, loanID string, request *domain.TopUpRequest) (*domain.TopUpResponse, error) {
	return mutate(ctx, s, domain.OperationTopUp, loanID, func(loan *domain.Loan, now time.Time) (change[*domain.TopUpResponse], error) {
		date, err := s.parseDate(request.Date, now)
		if err != nil {
			return change[*domain.TopUpResponse]{}, err
		}

		rate := loan.AnnualInterestRatePercent
		if request.NewAnnualRatePercent != nil {
			rate = *request.NewAnnualRatePercent
		}
		feePercent := s.config.GetDefaultProcessingFeePercent()
		if request.ProcessingFeePercent != nil {
			feePercent = *request.ProcessingFeePercent
		}

		res, err := engine.TopUp(loan, engine.TopUpParams{
			Date:                 date,
			TopUpAmount:          request.TopUpAmount,
			NewTenureMonths:      request.NewTenureMonths,
			NewAnnualRatePercent: rate,
			ProcessingFeePercent: feePercent,
		})
		if err != nil {
			return change[*domain.TopUpResponse]{}, err
		}

		return change[*domain.TopUpResponse]{
			loan:    res.Loan,
			result:  &domain.TopUpResponse{Loan: res.Loan, TopUp: res.Record},
			payload: res.Record,
			fields: []zap.Field{
				zap.String("top_up_id", res.Record.ID),
				zap.String("top_up_amount", res.Record.TopUpAmount.String()),
				zap.String("new_principal", res.Record.NewPrincipal.String()),
				zap.String("new_emi", res.Record.NewEMI.String()),
			},
		}, nil
	})
}

// UndoTopUp reverses the most recent top-up
func (s *LoanService) UndoTopUp(ctx context.Context, loanID string) (*domain.UndoTopUpResponse, error) {
	return mutate(ctx, s, domain.OperationUndoTopUp, loanID, func(loan *domain.Loan, _ time.Time) (change[*domain.UndoTopUpResponse], error) {
		res, err := engine.UndoTopUp(loan)
		if err != nil {
			return change[*domain.UndoTopUpResponse]{}, err
		}

		return change[*domain.UndoTopUpResponse]{
			loan: res.Loan,
			result: &domain.UndoTopUpResponse{
				Loan:     res.Loan,
				Undone:   res.Undone,
				Reversal: res.Reversal,
			},
			payload: map[string]interface{}{
				"top_up_id": res.Undone.ID,
				"reversal":  res.Reversal,
			},
			fields: []zap.Field{zap.String("top_up_id", res.Undone.ID)},
		}, nil
	})
}

// Foreclose settles a disbursed loan early
func (s *LoanService) Foreclose(ctx context.Context, loanID string, request *domain.ForecloseRequest) (*domain.ForeclosureResponse, error) {
	return mutate(ctx, s, domain.OperationForeclose, loanID, func(loan *domain.Loan, now time.Time) (change[*domain.ForeclosureResponse], error) {
		date, err := s.parseDate(request.Date, now)
		if err != nil {
			return change[*domain.ForeclosureResponse]{}, err
		}

		chargesPercent := s.config.GetDefaultForeclosureChargesPercent()
		if request.ChargesPercent != nil {
			chargesPercent = *request.ChargesPercent
		}

		res, err := engine.Foreclose(loan, engine.ForeclosureParams{
			Date:           date,
			ChargesPercent: chargesPercent,
			AmountReceived: request.AmountReceived,
		})
		if err != nil {
			return change[*domain.ForeclosureResponse]{}, err
		}

		return change[*domain.ForeclosureResponse]{
			loan:    res.Loan,
			result:  &domain.ForeclosureResponse{Loan: res.Loan, Foreclosure: res.Details},
			payload: res.Details,
			fields: []zap.Field{
				zap.String("outstanding", res.Details.OutstandingPrincipalAtClosure.String()),
				zap.String("total_payable", res.Details.TotalPayable.String()),
			},
		}, nil
	})
}

// UndoForeclosure reopens a foreclosed loan
func (s *LoanService) UndoForeclosure(ctx context.Context, loanID string) (*domain.Loan, error) {
	return mutate(ctx, s, domain.OperationUndoForeclosure, loanID, func(loan *domain.Loan, _ time.Time) (change[*domain.Loan], error) {
		next, err := engine.UndoForeclosure(loan)
		if err != nil {
			return change[*domain.Loan]{}, err
		}
		return change[*domain.Loan]{
			loan:    next,
			result:  next,
			payload: map[string]interface{}{"status": next.Status},
		}, nil
	})
}

// RecordPayment settles the earliest unpaid installment
func (s *LoanService) RecordPayment(ctx context.Context, loanID string, request *domain.MakePaymentRequest) (*domain.PaymentResponse, error) {
	return mutate(ctx, s, domain.OperationPayment, loanID, func(loan *domain.Loan, now time.Time) (change[*domain.PaymentResponse], error) {
		paidDate, err := s.parseDate(request.PaidDate, now)
		if err != nil {
			return change[*domain.PaymentResponse]{}, err
		}

		res, err := engine.RecordPayment(loan, engine.PaymentParams{
			PaidDate:      paidDate,
			AmountPaid:    request.AmountPaid,
			PaymentMethod: request.PaymentMethod,
		})
		if err != nil {
			return change[*domain.PaymentResponse]{}, err
		}

		return change[*domain.PaymentResponse]{
			loan: res.Loan,
			result: &domain.PaymentResponse{
				Loan:        res.Loan,
				Installment: res.Installment,
				Completed:   res.Completed,
			},
			payload: res.Installment,
			fields: []zap.Field{
				zap.Int("installment", res.Installment.Number),
				zap.String("amount_paid", res.Installment.AmountPaid.String()),
				zap.Int("paid_installments", res.Loan.PaidCount()),
				zap.Bool("completed", res.Completed),
			},
		}, nil
	})
}

// GetLoan returns the loan, completing it first when every installment is
// already settled
func (s *LoanService) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.read(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if _, completed := engine.CheckCompletion(loan); !completed {
		return loan, nil
	}

	return mutate(ctx, s, domain.OperationComplete, loanID, func(loan *domain.Loan, _ time.Time) (change[*domain.Loan], error) {
		return change[*domain.Loan]{loan: loan, result: loan}, nil
	})
}

// GetOutstanding returns the outstanding principal of a loan
func (s *LoanService) GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResponse, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	outstanding := decimal.Zero
	if loan.Status == domain.LoanStatusDisbursed {
		outstanding = engine.OutstandingPrincipal(loan)
	}
	return &domain.OutstandingResponse{LoanID: loan.ID, Outstanding: outstanding}, nil
}

// GetNextDue returns the earliest unpaid installment, if any
func (s *LoanService) GetNextDue(ctx context.Context, loanID string) (*domain.NextDueResponse, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	response := &domain.NextDueResponse{LoanID: loan.ID}
	if inst, ok := engine.NextDueInstallment(loan); ok {
		response.Installment = inst
	}
	return response, nil
}

// IsOverdue reports whether the loan has an installment past due on asOf.
// An empty asOf means today.
func (s *LoanService) IsOverdue(ctx context.Context, loanID string, asOf string) (*domain.OverdueResponse, error) {
	date, err := s.parseDate(asOf, s.now())
	if err != nil {
		return nil, err
	}

	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return &domain.OverdueResponse{
		LoanID:    loan.ID,
		AsOf:      date,
		IsOverdue: engine.IsOverdue(loan, date),
	}, nil
}

// ListEvents returns the audit trail of a loan
func (s *LoanService) ListEvents(ctx context.Context, loanID string) ([]domain.LoanEvent, error) {
	if _, err := s.read(ctx, loanID); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByLoanID(ctx, loanID)
}

// MarkOverdueInstallments flags pending installments due before asOf on every
// disbursed loan. Failures on one loan do not stop the sweep.
func (s *LoanService) MarkOverdueInstallments(ctx context.Context, asOf time.Time) (int, error) {
	loans, err := s.loanRepo.ListByStatus(ctx, domain.LoanStatusDisbursed)
	if err != nil {
		return 0, err
	}

	asOf = utils.DateOnly(asOf)
	total := 0
	var errs []error
	for _, candidate := range loans {
		if _, n := engine.MarkOverdue(candidate, asOf); n == 0 {
			continue
		}

		marked, err := mutate(ctx, s, domain.OperationMarkOverdue, candidate.ID, func(loan *domain.Loan, _ time.Time) (change[int], error) {
			next, n := engine.MarkOverdue(loan, asOf)
			return change[int]{
				loan:    next,
				result:  n,
				payload: map[string]interface{}{"as_of": asOf.Format(dateLayout), "marked": n},
				fields:  []zap.Field{zap.Int("marked", n)},
			}, nil
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		total += marked
	}

	metrics.InstallmentsMarkedOverdue.Add(float64(total))
	return total, errors.Join(errs...)
}

// CompleteSettledLoans completes every disbursed loan whose installments are
// all paid or cancelled.
func (s *LoanService) CompleteSettledLoans(ctx context.Context) (int, error) {
	loans, err := s.loanRepo.ListByStatus(ctx, domain.LoanStatusDisbursed)
	if err != nil {
		return 0, err
	}

	completed := 0
	var errs []error
	for _, candidate := range loans {
		if _, done := engine.CheckCompletion(candidate); !done {
			continue
		}

		loan, err := mutate(ctx, s, domain.OperationComplete, candidate.ID, func(loan *domain.Loan, _ time.Time) (change[*domain.Loan], error) {
			return change[*domain.Loan]{loan: loan, result: loan}, nil
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if loan.Status == domain.LoanStatusCompleted {
			completed++
		}
	}
	return completed, errors.Join(errs...)
}

// mutate loads the loan under its lock, applies op and persists the result
// with an optimistic version check. An op that returns the loan it was given
// leaves the stored row untouched.
func mutate[T any](
	ctx context.Context,
	s *LoanService,
	operation, loanID string,
	op func(loan *domain.Loan, now time.Time) (change[T], error),
) (result T, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveOperation(operation, start, err)
		s.logResult(operation, loanID, err)
	}()

	unlock := s.locks.lock(loanID)
	defer unlock()

	loan, err := s.loadForWrite(ctx, loanID)
	if err != nil {
		return result, err
	}

	now := s.now()
	c, err := op(loan, now)
	if err != nil {
		return result, err
	}
	if c.loan == loan {
		return c.result, nil
	}

	event, err := newEvent(operation, c.payload)
	if err != nil {
		return result, err
	}

	c.loan.UpdatedAt = now.UTC()
	if err := s.loanRepo.Update(ctx, c.loan, event); err != nil {
		s.invalidateCache(ctx, loanID)
		return result, err
	}
	s.refreshCache(ctx, c.loan)

	fields := append(logger.LoanFields(operation, loanID),
		zap.String("status", string(c.loan.Status)),
		zap.Int64("version", c.loan.Version),
	)
	s.logger.Info("loan operation applied", append(fields, c.fields...)...)
	return c.result, nil
}

// loadForWrite reads the stored loan and persists an auto-completion before
// any operation sees it.
func (s *LoanService) loadForWrite(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	next, completed := engine.CheckCompletion(loan)
	if !completed {
		return loan, nil
	}

	event, err := newEvent(domain.OperationComplete, map[string]interface{}{"status": next.Status})
	if err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now().UTC()
	if err := s.loanRepo.Update(ctx, next, event); err != nil {
		s.invalidateCache(ctx, loanID)
		return nil, err
	}
	s.refreshCache(ctx, next)
	s.logger.Info("loan completed", logger.LoanFields(domain.OperationComplete, loanID)...)
	return next, nil
}

// read serves a loan from the cache, falling back to the database.
func (s *LoanService) read(ctx context.Context, loanID string) (*domain.Loan, error) {
	if s.cache != nil {
		loan, ok, err := s.cache.Get(ctx, loanID)
		if err != nil {
			s.logger.Warn("loan cache read failed", zap.String("loan_id", loanID), zap.Error(err))
		}
		metrics.ObserveCacheLookup(ok)
		if ok {
			return loan, nil
		}
	}

	loan, err := s.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	// Set never replaces a newer version a writer stored after this read
	if s.cache != nil {
		if err := s.cache.Set(ctx, loan); err != nil {
			s.logger.Warn("loan cache fill failed", zap.String("loan_id", loanID), zap.Error(err))
		}
	}
	return loan, nil
}

// refreshCache stores a freshly written loan. When that fails the entry is
// dropped so readers fall through to the database instead of an old copy.
func (s *LoanService) refreshCache(ctx context.Context, loan *domain.Loan) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, loan); err != nil {
		s.logger.Warn("loan cache write failed", zap.String("loan_id", loan.ID), zap.Error(err))
		s.invalidateCache(ctx, loan.ID)
	}
}

func (s *LoanService) invalidateCache(ctx context.Context, loanID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, loanID); err != nil {
		s.logger.Warn("loan cache invalidation failed", zap.String("loan_id", loanID), zap.Error(err))
	}
}

// parseDate reads a YYYY-MM-DD date. Empty means today in the configured
// timezone.
func (s *LoanService) parseDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return utils.DateOnly(now.In(s.config.GetSchedulerLocation())), nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, customError.InvalidInput("date %q must be formatted as %s", raw, dateLayout)
	}
	return date, nil
}

func (s *LoanService) logResult(operation, loanID string, err error) {
	if err == nil {
		return
	}
	fields := append(logger.LoanFields(operation, loanID),
		zap.String("code", customError.CodeOf(err)),
		zap.Error(err),
	)
	switch customError.CodeOf(err) {
	case customError.ErrCodeDatabaseError, customError.ErrCodeCacheError, customError.ErrCodeInternal:
		s.logger.Error("loan operation failed", fields...)
	default:
		s.logger.Warn("loan operation rejected", fields...)
	}
}

func newEvent(operation string, payload interface{}) (*domain.LoanEvent, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, customError.NewBusinessError(customError.ErrCodeInternal, "unable to encode loan event", err)
	}
	return &domain.LoanEvent{Operation: operation, Payload: raw}, nil
}
