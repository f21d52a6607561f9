package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/response"
)

// LoanService is the set of loan operations exposed over HTTP
type LoanService interface {
	CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error)
	Approve(ctx context.Context, loanID string) (*domain.Loan, error)
	Reject(ctx context.Context, loanID string, request *domain.RejectLoanRequest) (*domain.Loan, error)
	Disburse(ctx context.Context, loanID string, request *domain.DisburseLoanRequest) (*domain.DisbursalResponse, error)
	TopUp(ctx context.Context, loanID string, request *domain.TopUpRequest) (*domain.TopUpResponse, error)
	UndoTopUp(ctx context.Context, loanID string) (*domain.UndoTopUpResponse, error)
	Foreclose(ctx context.Context, loanID string, request *domain.ForecloseRequest) (*domain.ForeclosureResponse, error)
	UndoForeclosure(ctx context.Context, loanID string) (*domain.Loan, error)
	RecordPayment(ctx context.Context, loanID string, request *domain.MakePaymentRequest) (*domain.PaymentResponse, error)
	GetLoan(ctx context.Context, loanID string) (*domain.Loan, error)
	GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResponse, error)
	GetNextDue(ctx context.Context, loanID string) (*domain.NextDueResponse, error)
	IsOverdue(ctx context.Context, loanID string, asOf string) (*domain.OverdueResponse, error)
	ListEvents(ctx context.Context, loanID string) ([]domain.LoanEvent, error)
}

type LoanHandler struct {
	service   LoanService
	validator *validator.Validate
}

func NewLoanHandler(service LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: NewValidator(),
	}
}

// NewValidator returns a validator that understands decimal amounts through
// the decimal_gt0 and decimal_gte0 tags
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("decimal_gt0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	_ = v.RegisterValidation("decimal_gte0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	})
	return v
}

// RegisterRoutes mounts the loan endpoints on the API subrouter
func (h *LoanHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", h.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/approve", h.Approve).Methods("POST")
	api.HandleFunc("/loans/{loanId}/reject", h.Reject).Methods("POST")
	api.HandleFunc("/loans/{loanId}/disburse", h.Disburse).Methods("POST")
	api.HandleFunc("/loans/{loanId}/topups", h.TopUp).Methods("POST")
	api.HandleFunc("/loans/{loanId}/topups/undo", h.UndoTopUp).Methods("POST")
	api.HandleFunc("/loans/{loanId}/foreclosure", h.Foreclose).Methods("POST")
	api.HandleFunc("/loans/{loanId}/foreclosure/undo", h.UndoForeclosure).Methods("POST")
	api.HandleFunc("/loans/{loanId}/payments", h.RecordPayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/outstanding", h.GetOutstanding).Methods("GET")
	api.HandleFunc("/loans/{loanId}/next-due", h.GetNextDue).Methods("GET")
	api.HandleFunc("/loans/{loanId}/overdue", h.IsOverdue).Methods("GET")
	api.HandleFunc("/loans/{loanId}/events", h.ListEvents).Methods("GET")
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, loan)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.GetLoan(r.Context(), loanID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.Approve(r.Context(), loanID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req domain.RejectLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.Reject(r.Context(), loanID(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	var req domain.DisburseLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.Disburse(r.Context(), loanID(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

func (h *LoanHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req domain.TopUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.TopUp(r.Context(), loanID(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, res)
}

func (h *LoanHandler) UndoTopUp(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.UndoTopUp(r.Context(), loanID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

func (h *LoanHandler) Foreclose(w http.ResponseWriter, r *http.Request) {
	var req domain.ForecloseRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.Foreclose(r.Context(), loanID(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

func (h *LoanHandler) UndoForeclosure(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.UndoForeclosure(r.Context(), loanID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, loan)
}

// RecordPayment handles POST /api/v1/loans/{loanId}/payments
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.MakePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.RecordPayment(r.Context(), loanID(r), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, res)
}

func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetOutstanding(r.Context(), loanID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

func (h *LoanHandler) GetNextDue(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetNextDue(r.Context(), loanID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

// IsOverdue handles GET /api/v1/loans/{loanId}/overdue?as_of=YYYY-MM-DD
func (h *LoanHandler) IsOverdue(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.IsOverdue(r.Context(), loanID(r), r.URL.Query().Get("as_of"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

func (h *LoanHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListEvents(r.Context(), loanID(r))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, events)
}

// decode reads and validates a JSON body. It writes the 400 response itself
// and reports false when the request cannot proceed.
func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func loanID(r *http.Request) string {
	return mux.Vars(r)["loanId"]
}
