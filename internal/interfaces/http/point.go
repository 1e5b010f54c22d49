package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"points/internal/domain/point"
	"points/internal/shared/middleware"
)

const maxBodyBytes = 1 << 10

// PointService is the slice of point.Service the handlers depend on.
type PointService interface {
	Charge(ctx context.Context, id point.AccountID, amount int64) (point.Account, error)
	Use(ctx context.Context, id point.AccountID, amount int64) (point.Account, error)
	Query(ctx context.Context, id point.AccountID) (point.Account, error)
	History(ctx context.Context, id point.AccountID) ([]point.TransactionRecord, error)
}

type PointHandler struct {
	points PointService
}

func NewPointHandler(points PointService) *PointHandler {
	return &PointHandler{points: points}
}

type AmountRequest struct {
	Amount int64 `json:"amount"`
}

type AccountResponse struct {
	ID        int64     `json:"id"`
	Point     int64     `json:"point"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type HistoryResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Amount    int64     `json:"amount"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toAccountResponse(a point.Account) AccountResponse {
	return AccountResponse{ID: int64(a.ID), Point: a.Balance, UpdatedAt: a.UpdatedAt}
}

func toHistoryResponse(r point.TransactionRecord) HistoryResponse {
	return HistoryResponse{
		ID:        r.ID,
		UserID:    int64(r.AccountID),
		Amount:    r.Amount,
		Type:      string(r.Type),
		Timestamp: r.Timestamp,
	}
}

// HandleGet returns the account snapshot; unknown accounts read as zero.
func (h *PointHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	acct, err := h.points.Query(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

// HandleHistories returns the account's records in insertion order.
func (h *PointHandler) HandleHistories(w http.ResponseWriter, r *http.Request) {
	id, err := accountIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := h.points.History(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]HistoryResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, toHistoryResponse(rec))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *PointHandler) HandleCharge(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, h.points.Charge)
}

func (h *PointHandler) HandleUse(w http.ResponseWriter, r *http.Request) {
	h.handleMutation(w, r, h.points.Use)
}

func (h *PointHandler) handleMutation(w http.ResponseWriter, r *http.Request,
	op func(context.Context, point.AccountID, int64) (point.Account, error)) {
	id, err := accountIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := decodeAmount(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	acct, err := op(r.Context(), id, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

var errBadBody = errors.New("request body must be a number or {\"amount\": number}")

func accountIDFromPath(r *http.Request) (point.AccountID, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", point.ErrInvalidAccountID, raw)
	}
	return point.AccountID(id), nil
}

// decodeAmount accepts either a bare JSON number or {"amount": n}.
func decodeAmount(r *http.Request) (int64, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBadBody, err)
	}
	if len(body) > maxBodyBytes {
		return 0, fmt.Errorf("%w: body too large", errBadBody)
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var req AmountRequest
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return 0, fmt.Errorf("%w: %v", errBadBody, err)
		}
		if dec.More() {
			return 0, fmt.Errorf("%w: unexpected data after object", errBadBody)
		}
		return req.Amount, nil
	}

	var amount int64
	if err := json.Unmarshal(body, &amount); err != nil {
		return 0, fmt.Errorf("%w: %v", errBadBody, err)
	}
	return amount, nil
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, point.ErrInvalidAccountID):
		return http.StatusBadRequest, "INVALID_ACCOUNT_ID"
	case errors.Is(err, point.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, "INVALID_BODY"
	case errors.Is(err, point.ErrInsufficientBalance):
		return http.StatusConflict, "INSUFFICIENT_BALANCE"
	case errors.Is(err, point.ErrLockTimeout):
		return http.StatusServiceUnavailable, "LOCK_TIMEOUT"
	case errors.Is(err, point.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("Error handling %s %s (req=%s): %v",
			r.Method, r.URL.Path, middleware.RequestIDFromContext(r.Context()), err)
		message = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
