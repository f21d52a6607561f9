package repository

import (
	"context"

	"github.com/segyhp/lending-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create stores a new loan at version 1 together with its creation event
	Create(ctx context.Context, loan *domain.Loan, event *domain.LoanEvent) error

	// GetByLoanID retrieves a loan by its loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// Update saves the loan if its stored version still equals loan.Version,
	// bumps the version and appends the event in the same transaction
	Update(ctx context.Context, loan *domain.Loan, event *domain.LoanEvent) error

	// ListByStatus returns every loan in the given status
	ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error)
}

// EventRepository defines read access to the loan audit trail
type EventRepository interface {
	// ListByLoanID returns the events of a loan, oldest first
	ListByLoanID(ctx context.Context, loanID string) ([]domain.LoanEvent, error)
}
