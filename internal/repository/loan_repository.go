package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const uniqueViolation = "23505"

type loanRow struct {
	Document []byte `db:"document"`
	Version  int64  `db:"version"`
}

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan, event *domain.LoanEvent) error {
	query := `
		INSERT INTO loans (loan_id, borrower_id, status, document, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	loan.Version = 1
	document, err := json.Marshal(loan)
	if err != nil {
		loan.Version = 0
		return customError.WrapDatabaseError(err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		loan.Version = 0
		return customError.WrapDatabaseError(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, query,
		loan.ID,
		loan.BorrowerID,
		loan.Status,
		document,
		loan.Version,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		loan.Version = 0
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return customError.WrapLoanAlreadyExists(loan.ID)
		}
		return customError.WrapDatabaseError(err)
	}

	if err := insertEvent(ctx, tx, loan, event); err != nil {
		loan.Version = 0
		return err
	}

	if err := tx.Commit(); err != nil {
		loan.Version = 0
		return customError.WrapDatabaseError(err)
	}
	return nil
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT document, version
		FROM loans
		WHERE loan_id = $1
	`

	var row loanRow
	err := r.db.GetContext(ctx, &row, query, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return row.decode()
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan, event *domain.LoanEvent) error {
	query := `
		UPDATE loans
		SET status = $2, document = $3, version = $4, updated_at = $5
		WHERE loan_id = $1 AND version = $6
	`

	expected := loan.Version
	loan.Version = expected + 1
	document, err := json.Marshal(loan)
	if err != nil {
		loan.Version = expected
		return customError.WrapDatabaseError(err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		loan.Version = expected
		return customError.WrapDatabaseError(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query,
		loan.ID,
		loan.Status,
		document,
		loan.Version,
		loan.UpdatedAt,
		expected,
	)
	if err != nil {
		loan.Version = expected
		return customError.WrapDatabaseError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		loan.Version = expected
		return customError.WrapDatabaseError(err)
	}
	if affected == 0 {
		loan.Version = expected
		return customError.WrapVersionConflict(loan.ID, expected)
	}

	if err := insertEvent(ctx, tx, loan, event); err != nil {
		loan.Version = expected
		return err
	}

	if err := tx.Commit(); err != nil {
		loan.Version = expected
		return customError.WrapDatabaseError(err)
	}
	return nil
}

func (r *loanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	query := `
		SELECT document, version
		FROM loans
		WHERE status = $1
		ORDER BY loan_id
	`

	var rows []loanRow
	if err := r.db.SelectContext(ctx, &rows, query, status); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loan, err := row.decode()
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, nil
}

func (row loanRow) decode() (*domain.Loan, error) {
	var loan domain.Loan
	if err := json.Unmarshal(row.Document, &loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	loan.Version = row.Version
	return &loan, nil
}

func insertEvent(ctx context.Context, tx *sqlx.Tx, loan *domain.Loan, event *domain.LoanEvent) error {
	if event == nil {
		return nil
	}

	query := `
		INSERT INTO loan_events (id, loan_id, operation, version, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.LoanID = loan.ID
	event.Version = loan.Version
	if event.CreatedAt.IsZero() {
		event.CreatedAt = loan.UpdatedAt
	}
	payload := event.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	_, err := tx.ExecContext(ctx, query,
		event.ID,
		event.LoanID,
		event.Operation,
		event.Version,
		[]byte(payload),
		event.CreatedAt,
	)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	return nil
}
