package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"renda/internal/core"
	"renda/internal/service"
	"renda/internal/store"
)

const maxRequestBody = 1 << 20 // statements arrive as plain text, 1 MiB is generous

type analyzeRequest struct {
	ClientName    string `json:"clientName"`
	FatherName    string `json:"fatherName"`
	MotherName    string `json:"motherName"`
	RawInput      string `json:"rawInput"`
	ReferenceDate string `json:"referenceDate"` // RFC 3339 or YYYY-MM-DD, optional
}

type patchTransactionRequest struct {
	IsValid *bool       `json:"isValid"`
	Amount  *core.Money `json:"amount"`
}

type exportResponse struct {
	Summary core.SummaryRecord `json:"summary"`
	Rows    []core.ExportRow   `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	svcReq := service.AnalyzeRequest{
		ClientName: strings.TrimSpace(req.ClientName),
		FatherName: strings.TrimSpace(req.FatherName),
		MotherName: strings.TrimSpace(req.MotherName),
		RawInput:   req.RawInput,
	}
	if raw := strings.TrimSpace(req.ReferenceDate); raw != "" {
		ref, err := parseReferenceDate(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid referenceDate: "+raw)
			return
		}
		svcReq.ReferenceDate = ref
	}

	v, err := s.svc.Analyze(r.Context(), svcReq)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.invalidate("")
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if list, ok := s.listCache.Get(listCacheKey); ok {
		writeJSON(w, http.StatusOK, list)
		return
	}

	list, err := s.svc.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []core.IncomeVerification{}
	}
	s.listCache.Set(listCacheKey, list)
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if v, ok := s.verificationCache.Get(id); ok {
		writeJSON(w, http.StatusOK, v)
		return
	}

	v, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.verificationCache.Set(id, v)
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	summary, rows, err := s.svc.Export(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Summary: summary, Rows: rows})
}

func (s *Server) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	txID := r.PathValue("txID")
	monthIndex, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "month index must be an integer")
		return
	}

	var req patchTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if (req.IsValid == nil) == (req.Amount == nil) {
		writeError(w, http.StatusUnprocessableEntity, "exactly one of isValid or amount must be set")
		return
	}

	var v core.IncomeVerification
	if req.IsValid != nil {
		v, err = s.svc.SetValidity(r.Context(), id, monthIndex, txID, *req.IsValid)
	} else {
		v, err = s.svc.SetAmount(r.Context(), id, monthIndex, txID, *req.Amount)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.invalidate(id)
	writeJSON(w, http.StatusOK, v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func parseReferenceDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// writeDomainError maps domain sentinels onto HTTP statuses: malformed input
// is the client's problem, a missing record is 404 and a segmenter outage is
// a retryable upstream failure.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrMalformedInput),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyClientName):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "verification or transaction not found")
	case errors.Is(err, core.ErrSegmenterUnavailable):
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusBadGateway, "statement segmenter unavailable, retry later")
	default:
		slog.ErrorContext(r.Context(), "Unhandled request error",
			"error", err,
			"method", r.Method,
			"url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
