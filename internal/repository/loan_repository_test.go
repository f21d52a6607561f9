package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return sqlx.NewDb(db, "sqlmock"), mock
}

func testLoan() *domain.Loan {
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	return &domain.Loan{
		ID:                        "LN-1",
		BorrowerID:                "B-1",
		Principal:                 decimal.NewFromInt(100000),
		AnnualInterestRatePercent: decimal.NewFromInt(18),
		TenureMonths:              12,
		EMI:                       decimal.NewFromInt(9168),
		Status:                    domain.LoanStatusPending,
		ProcessingFee:             decimal.NewFromInt(2000),
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

func TestLoanRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)
	loan := testLoan()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO loans`).
		WithArgs("LN-1", "B-1", "pending", sqlmock.AnyArg(), int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO loan_events`).
		WithArgs(sqlmock.AnyArg(), "LN-1", domain.OperationCreate, int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	event := &domain.LoanEvent{Operation: domain.OperationCreate}
	err := repo.Create(context.Background(), loan, event)

	require.NoError(t, err)
	assert.Equal(t, int64(1), loan.Version)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "LN-1", event.LoanID)
	assert.Equal(t, loan.UpdatedAt, event.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Create_Duplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)
	loan := testLoan()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO loans`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), loan, &domain.LoanEvent{Operation: domain.OperationCreate})

	require.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrLoanExists))
	assert.Equal(t, int64(0), loan.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_GetByLoanID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)

	stored := testLoan()
	document, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT document, version FROM loans WHERE loan_id`).
		WithArgs("LN-1").
		WillReturnRows(sqlmock.NewRows([]string{"document", "version"}).AddRow(document, int64(4)))

	loan, err := repo.GetByLoanID(context.Background(), "LN-1")

	require.NoError(t, err)
	assert.Equal(t, "LN-1", loan.ID)
	assert.Equal(t, int64(4), loan.Version)
	assert.True(t, loan.Principal.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, domain.LoanStatusPending, loan.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_GetByLoanID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)

	mock.ExpectQuery(`SELECT document, version FROM loans`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	loan, err := repo.GetByLoanID(context.Background(), "missing")

	assert.Nil(t, loan)
	assert.True(t, errors.Is(err, customError.ErrLoanNotFound))
	assert.Equal(t, customError.ErrCodeLoanNotFound, customError.CodeOf(err))
}

func TestLoanRepository_GetByLoanID_DatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)

	mock.ExpectQuery(`SELECT document, version FROM loans`).
		WithArgs("LN-1").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByLoanID(context.Background(), "LN-1")

	assert.Equal(t, customError.ErrCodeDatabaseError, customError.CodeOf(err))
}

func TestLoanRepository_Update(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)
	loan := testLoan()
	loan.Version = 2
	loan.Status = domain.LoanStatusApproved

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE loans`).
		WithArgs("LN-1", "approved", sqlmock.AnyArg(), int64(3), sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO loan_events`).
		WithArgs(sqlmock.AnyArg(), "LN-1", domain.OperationApprove, int64(3), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), loan, &domain.LoanEvent{Operation: domain.OperationApprove})

	require.NoError(t, err)
	assert.Equal(t, int64(3), loan.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Update_WithoutEvent(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)
	loan := testLoan()
	loan.Version = 1

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE loans`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), loan, nil))
	assert.Equal(t, int64(2), loan.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_Update_VersionConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)
	loan := testLoan()
	loan.Version = 5

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE loans`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), loan, &domain.LoanEvent{Operation: domain.OperationPayment})

	assert.True(t, errors.Is(err, customError.ErrVersionConflict))
	assert.Equal(t, int64(5), loan.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ListByStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)

	first := testLoan()
	second := testLoan()
	second.ID = "LN-2"
	firstDoc, _ := json.Marshal(first)
	secondDoc, _ := json.Marshal(second)

	mock.ExpectQuery(`SELECT document, version FROM loans WHERE status`).
		WithArgs("disbursed").
		WillReturnRows(sqlmock.NewRows([]string{"document", "version"}).
			AddRow(firstDoc, int64(7)).
			AddRow(secondDoc, int64(2)))

	loans, err := repo.ListByStatus(context.Background(), domain.LoanStatusDisbursed)

	require.NoError(t, err)
	require.Len(t, loans, 2)
	assert.Equal(t, "LN-1", loans[0].ID)
	assert.Equal(t, int64(7), loans[0].Version)
	assert.Equal(t, "LN-2", loans[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepository_ListByStatus_CorruptDocument(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLoanRepository(db)

	mock.ExpectQuery(`SELECT document, version FROM loans`).
		WillReturnRows(sqlmock.NewRows([]string{"document", "version"}).AddRow([]byte("{not json"), int64(1)))

	_, err := repo.ListByStatus(context.Background(), domain.LoanStatusDisbursed)

	assert.Equal(t, customError.ErrCodeDatabaseError, customError.CodeOf(err))
}
