package http

import (
	"net/http"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Transactions(r.URL.Query().Get("category"))
	writeResult(w, r, http.StatusOK, emptyIfNil(txs), err)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	tx, err := req.toTransaction(s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	added, err := s.svc.AddTransaction(r.Context(), tx)
	writeResult(w, r, http.StatusCreated, added, err)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	tx, err := req.toTransaction(s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	tx.ID = r.PathValue("id")
	updated, err := s.svc.UpdateTransaction(r.Context(), tx)
	writeResult(w, r, http.StatusOK, updated, err)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	writeNoContent(w, r, s.svc.DeleteTransaction(r.Context(), r.PathValue("id")))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories()
	writeResult(w, r, http.StatusOK, emptyIfNil(cats), err)
}
