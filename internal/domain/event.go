package domain

import (
	"encoding/json"
	"time"
)

// LoanEvent is an append-only audit entry written alongside every state
// change of a loan.
type LoanEvent struct {
	ID        string          `json:"id" db:"id"`
	LoanID    string          `json:"loan_id" db:"loan_id"`
	Operation string          `json:"operation" db:"operation"`
	Version   int64           `json:"version" db:"version"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Operation names recorded in loan events and metrics.
const (
	OperationCreate          = "create"
	OperationApprove         = "approve"
	OperationReject          = "reject"
	OperationDisburse        = "disburse"
	OperationTopUp           = "top_up"
	OperationUndoTopUp       = "undo_top_up"
	OperationForeclose       = "foreclose"
	OperationUndoForeclosure = "undo_foreclosure"
	OperationPayment         = "payment"
	OperationMarkOverdue     = "mark_overdue"
	OperationComplete        = "complete"
)
