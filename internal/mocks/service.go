package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/segyhp/lending-engine/internal/domain"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, request)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLoanService) Approve(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLoanService) Reject(ctx context.Context, loanID string, request *domain.RejectLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, request)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLoanService) Disburse(ctx context.Context, loanID string, request *domain.DisburseLoanRequest) (*domain.DisbursalResponse, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DisbursalResponse), args.Error(1)
}

func (m *MockLoanService) TopUp(ctx context.Context, loanID string, request *domain.TopUpRequest) (*domain.TopUpResponse, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TopUpResponse), args.Error(1)
}

func (m *MockLoanService) UndoTopUp(ctx context.Context, loanID string) (*domain.UndoTopUpResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UndoTopUpResponse), args.Error(1)
}

func (m *MockLoanService) Foreclose(ctx context.Context, loanID string, request *domain.ForecloseRequest) (*domain.ForeclosureResponse, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ForeclosureResponse), args.Error(1)
}

func (m *MockLoanService) UndoForeclosure(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLoanService) RecordPayment(ctx context.Context, loanID string, request *domain.MakePaymentRequest) (*domain.PaymentResponse, error) {
	args := m.Called(ctx, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentResponse), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	return loanOrNil(args.Get(0)), args.Error(1)
}

func (m *MockLoanService) GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OutstandingResponse), args.Error(1)
}

func (m *MockLoanService) GetNextDue(ctx context.Context, loanID string) (*domain.NextDueResponse, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NextDueResponse), args.Error(1)
}

func (m *MockLoanService) IsOverdue(ctx context.Context, loanID string, asOf string) (*domain.OverdueResponse, error) {
	args := m.Called(ctx, loanID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OverdueResponse), args.Error(1)
}

func (m *MockLoanService) ListEvents(ctx context.Context, loanID string) ([]domain.LoanEvent, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanEvent), args.Error(1)
}

func loanOrNil(v interface{}) *domain.Loan {
	if v == nil {
		return nil
	}
	return v.(*domain.Loan)
}
