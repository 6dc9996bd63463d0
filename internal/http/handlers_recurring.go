package http

import (
	"net/http"
)

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	upcoming, err := s.svc.Recurring()
	writeResult(w, r, http.StatusOK, emptyIfNil(upcoming), err)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	rec, err := req.toRecurring(s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	added, err := s.svc.AddRecurring(r.Context(), rec)
	writeResult(w, r, http.StatusCreated, added, err)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	rec, err := req.toRecurring(s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	rec.ID = r.PathValue("id")
	writeNoContent(w, r, s.svc.UpdateRecurring(r.Context(), rec))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	writeNoContent(w, r, s.svc.DeleteRecurring(r.Context(), r.PathValue("id")))
}

func (s *Server) handleMarkRecurringPaid(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.MarkRecurringPaid(r.Context(), r.PathValue("id"))
	writeResult(w, r, http.StatusCreated, tx, err)
}

// handleCheckRecurring posts every due occurrence and returns the new
// transactions.
func (s *Server) handleCheckRecurring(w http.ResponseWriter, r *http.Request) {
	posted, err := s.svc.CheckRecurring(r.Context())
	writeResult(w, r, http.StatusOK, map[string]any{
		"posted":       len(posted),
		"transactions": emptyIfNil(posted),
	}, err)
}
