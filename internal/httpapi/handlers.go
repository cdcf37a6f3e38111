package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meterbook-dev/meterbook/internal/ledger"
	"github.com/meterbook-dev/meterbook/internal/model"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	view, err := s.ledger.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub ledger.Submission
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sub); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", "invalid request body")
		return
	}

	s.writeMu.Lock()
	res, err := s.ledger.Submit(sub)
	s.writeMu.Unlock()
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := submitResponseJSON{Date: model.FormatStorage(res.Date), Replaced: res.Replaced}
	status := http.StatusCreated
	if res.Warning != nil {
		resp.Warning = res.Warning.Error()
		status = http.StatusOK
	}
	_ = writeJSON(w, status, resp)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	input := chi.URLParam(r, "date")

	s.writeMu.Lock()
	found, err := s.ledger.Delete(input)
	s.writeMu.Unlock()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !found {
		writeAPIError(w, http.StatusNotFound, "not_found", fmt.Sprintf("no reading for %s", input))
		return
	}
	date, _ := model.ParseDate(input)
	_ = writeJSON(w, http.StatusOK, deleteResponseJSON{Date: model.FormatStorage(date), Deleted: true})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.ledger.Series(chi.URLParam(r, "metric"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleAggregates(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = "M"
	}
	view, err := s.ledger.Aggregates(chi.URLParam(r, "metric"), timeframe)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	year := 0
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_argument", "invalid year")
			return
		}
		year = n
	}
	in, err := s.ledger.Insights(chi.URLParam(r, "metric"), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.ledger.Export(&buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.ledger.ExportFileName()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.writeMu.Lock()
	res, err := s.ledger.Import(r.Context())
	s.writeMu.Unlock()
	if err != nil {
		writeError(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, res)
}
