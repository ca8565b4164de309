package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sig-0/remesas/settlement"
	"github.com/sig-0/remesas/storage/types"
)

func (s *Server) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req settlement.CreateRequest

	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	tx, err := s.settlement.CreateTransaction(r.Context(), callerID(r), req)
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// Transactions lists the caller's own transactions
func (s *Server) Transactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(
		r.URL.Query().Get("limit"),
		r.URL.Query().Get("offset"),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	page, err := s.settlement.Transactions(r.Context(), callerID(r), limit, offset)
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) Transaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.settlement.Transaction(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// AttachReceipt attaches the caller's payment receipt to their transaction
func (s *Server) AttachReceipt(w http.ResponseWriter, r *http.Request) {
	var req ReceiptRequest

	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	tx, err := s.settlement.AttachUserReceipt(
		r.Context(),
		callerID(r),
		chi.URLParam(r, "id"),
		req.ReceiptURL,
	)
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) PaymentInstructions(w http.ResponseWriter, r *http.Request) {
	in, err := s.settlement.PaymentInstructions(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, in)
}

// AllTransactions lists every transaction [ADMIN]
func (s *Server) AllTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(
		r.URL.Query().Get("limit"),
		r.URL.Query().Get("offset"),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	status, err := parseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	q := &types.TransactionQuery{
		Status: status,
		Limit:  limit,
		Offset: offset,
	}

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		q.UserID = &userID
	}

	page, err := s.settlement.AllTransactions(r.Context(), callerID(r), q)
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, page)
}

// UpdateTransactionStatus changes a transaction status [ADMIN]
func (s *Server) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest

	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	tx, err := s.settlement.UpdateStatus(
		r.Context(),
		callerID(r),
		chi.URLParam(r, "id"),
		req.Status,
		req.AdminReceiptURL,
	)
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) Accounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.settlement.Accounts(r.Context())
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, &AccountsResponse{
		Results: accounts,
	})
}

// SaveAccount creates or replaces a settlement account [ADMIN]
func (s *Server) SaveAccount(w http.ResponseWriter, r *http.Request) {
	var acc types.AdminAccount

	if err := decodeJSON(w, r, &acc); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	saved, err := s.settlement.SaveAccount(r.Context(), callerID(r), acc)
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, saved)
}

// DeleteAccount deletes a settlement account [ADMIN]
func (s *Server) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.settlement.DeleteAccount(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Margins serves the margins in effect [ADMIN]
func (s *Server) Margins(w http.ResponseWriter, r *http.Request) {
	m, err := s.settlement.Margins(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, &MarginsResponse{
		Percent:  settlement.ToPercents(m),
		Fraction: m,
	})
}

// UpdateMargins applies a percentage margin update [ADMIN]
func (s *Server) UpdateMargins(w http.ResponseWriter, r *http.Request) {
	var req settlement.MarginPercents

	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	m, err := s.settlement.UpdateMargins(r.Context(), callerID(r), req)
	if err != nil {
		s.writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, &MarginsResponse{
		Percent:  settlement.ToPercents(m),
		Fraction: m,
	})
}
