package http

import (
	"net/http"
)

func (s *Server) handleListPlanned(w http.ResponseWriter, r *http.Request) {
	planned, err := s.svc.Planned()
	writeResult(w, r, http.StatusOK, emptyIfNil(planned), err)
}

func (s *Server) handleCreatePlanned(w http.ResponseWriter, r *http.Request) {
	var req plannedRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	p, err := req.toPlanned(s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	added, err := s.svc.AddPlanned(r.Context(), p)
	writeResult(w, r, http.StatusCreated, added, err)
}

func (s *Server) handleUpdatePlanned(w http.ResponseWriter, r *http.Request) {
	var req plannedRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	p, err := req.toPlanned(s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	p.ID = r.PathValue("id")
	writeResult(w, r, http.StatusOK, p, s.svc.UpdatePlanned(r.Context(), p))
}

func (s *Server) handleDeletePlanned(w http.ResponseWriter, r *http.Request) {
	writeNoContent(w, r, s.svc.DeletePlanned(r.Context(), r.PathValue("id")))
}

func (s *Server) handleConvertPlanned(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.ConvertPlanned(r.Context(), r.PathValue("id"))
	writeResult(w, r, http.StatusCreated, tx, err)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Goals()
	writeResult(w, r, http.StatusOK, emptyIfNil(goals), err)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	g, err := req.toGoal(s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	added, err := s.svc.AddGoal(r.Context(), g)
	writeResult(w, r, http.StatusCreated, added, err)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	g, err := req.toGoal(s.loc)
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	g.ID = r.PathValue("id")
	writeResult(w, r, http.StatusOK, g, s.svc.UpdateGoal(r.Context(), g))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	writeNoContent(w, r, s.svc.DeleteGoal(r.Context(), r.PathValue("id")))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets()
	writeResult(w, r, http.StatusOK, emptyIfNil(budgets), err)
}

// handleSetBudget creates or replaces the monthly limit of the category in
// the path.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	usage, err := s.svc.SetBudget(r.Context(), sanitizeInput(r.PathValue("category")), req.Limit.Decimal)
	writeResult(w, r, http.StatusOK, usage, err)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	writeNoContent(w, r, s.svc.DeleteBudget(r.Context(), r.PathValue("category")))
}
