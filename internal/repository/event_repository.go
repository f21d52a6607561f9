package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) ListByLoanID(ctx context.Context, loanID string) ([]domain.LoanEvent, error) {
	query := `
		SELECT id, loan_id, operation, version, payload, created_at
		FROM loan_events
		WHERE loan_id = $1
		ORDER BY version, created_at
	`

	events := []domain.LoanEvent{}
	if err := r.db.SelectContext(ctx, &events, query, loanID); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return events, nil
}
