package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/eflav/aio-index/pkg/lookup"
	"github.com/eflav/aio-index/pkg/slug"
	"github.com/eflav/aio-index/pkg/storage"
)

type AnalyzeRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing URL"})
		return
	}
	if s.Analyzer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analyzer not configured"})
		return
	}

	res, err := s.Analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		s.record(r, storage.Record{
			Source:  req.URL,
			Slug:    slug.Normalize(req.URL),
			Domain:  slug.Domain(req.URL),
			Kind:    storage.KindAnalyze,
			Status:  storage.StatusFailed,
			Message: err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.record(r, storage.Record{
		Source: req.URL,
		Slug:   slug.Normalize(req.URL),
		Domain: slug.Domain(req.URL),
		Kind:   storage.KindAnalyze,
		Status: storage.StatusSucceeded,
		Score:  res.Report.Data.AIOScore,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"url":       req.URL,
		"aio_score": res.Report.Data.AIOScore,
		"summary":   res.Report.Data.Summary,
	})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing URL"})
		return
	}

	st := s.Lookups.Lookup(r.Context(), raw)

	rec := storage.Record{
		Source: raw,
		Slug:   slug.Normalize(raw),
		Domain: slug.Domain(raw),
		Kind:   storage.KindLookup,
	}
	if st.Phase == lookup.Succeeded {
		rec.Status = storage.StatusSucceeded
		rec.Score = st.Score
	} else {
		rec.Status = storage.StatusFailed
		rec.Message = st.Message
	}
	s.record(r, rec)

	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history not enabled", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.DB.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history not enabled", http.StatusNotFound)
		return
	}
	stats, err := s.DB.GetDomainStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// record stores an event when history is enabled. Failures to record never
// fail the request.
func (s *Server) record(r *http.Request, rec storage.Record) {
	if s.DB == nil {
		return
	}
	_ = s.DB.InsertRecord(r.Context(), rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
