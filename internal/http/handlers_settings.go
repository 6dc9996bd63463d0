package http

import (
	"fmt"
	"net/http"

	"fintrack/internal/state"
)

const defaultRateDays = 30

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard()
	writeResult(w, r, http.StatusOK, d, err)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.Settings()
	writeResult(w, r, http.StatusOK, settings, err)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch state.SettingsPatch
	if err := decodeJSON(w, r, &patch, maxBodyBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	settings, err := s.svc.UpdateSettings(r.Context(), patch)
	writeResult(w, r, http.StatusOK, settings, err)
}

func (s *Server) handleListExchangeRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.svc.ExchangeRates(parseDays(r.URL.Query(), defaultRateDays))
	writeResult(w, r, http.StatusOK, emptyIfNil(rates), err)
}

func (s *Server) handleRefreshExchangeRate(w http.ResponseWriter, r *http.Request) {
	rate, err := s.svc.RefreshExchangeRate(r.Context())
	writeResult(w, r, http.StatusOK, rate, err)
}

// handleExport downloads the whole state as an export document.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Export()
	if err != nil {
		FromError(r, err).Write(w)
		return
	}
	filename := fmt.Sprintf("fintrack-export-%s.json", snap.ExportDate.In(s.loc).Format("2006-01-02"))
	NewResponse().Attachment(filename).JSON(snap).Write(w)
}

// handleImport merges the transactions and goals of an export document.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var batch state.ImportBatch
	if err := decodeJSON(w, r, &batch, maxImportBytes); err != nil {
		FromError(r, err).Write(w)
		return
	}
	res, err := s.svc.Import(r.Context(), batch)
	writeResult(w, r, http.StatusOK, res, err)
}
