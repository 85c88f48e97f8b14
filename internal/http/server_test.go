package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"renda/internal/core"
	"renda/internal/service"
	"renda/internal/store/memory"
)

type stubSegmenter struct {
	candidates []core.Candidate
	err        error
}

func (s *stubSegmenter) Segment(_ context.Context, _ string, _ core.CaseContext) ([]core.Candidate, error) {
	return s.candidates, s.err
}

func newTestServer(seg *stubSegmenter) (*Server, *httptest.Server) {
	svc := service.NewVerificationService(seg, memory.New(), nil, core.DefaultClassifierConfig())
	s := NewServer(":0", svc)
	ts := httptest.NewServer(s.Handler)
	return s, ts
}

func goodSegmenter() *stubSegmenter {
	return &stubSegmenter{candidates: []core.Candidate{{
		Date:        time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		Description: "PIX recebido",
		Sender:      "Empresa XYZ",
		Bank:        "Nubank",
		Amount:      core.Money{Cents: 150000},
	}}}
}

func analyzeBody() []byte {
	return []byte(`{"clientName":"Ana Silva","rawInput":"extrato","referenceDate":"2026-02-10"}`)
}

func postAnalyze(t *testing.T, ts *httptest.Server) core.IncomeVerification {
	t.Helper()
	resp, err := http.Post(ts.URL+"/verifications", "application/json", bytes.NewReader(analyzeBody()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var v core.IncomeVerification
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func doRequest(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, url, bytes.NewReader(body))
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv, ts := newTestServer(goodSegmenter())
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	v := postAnalyze(t, ts)
	if len(v.MonthlyData) != 6 {
		t.Fatalf("months = %d, want 6", len(v.MonthlyData))
	}
	if v.TotalIncome.Cents != 150000 {
		t.Fatalf("total = %d, want 150000", v.TotalIncome.Cents)
	}
	if v.PeriodStart != "Setembro/2025" || v.PeriodEnd != "Fevereiro/2026" {
		t.Fatalf("period = %s..%s", v.PeriodStart, v.PeriodEnd)
	}
}

func TestGetAndListEndpoints(t *testing.T) {
	srv, ts := newTestServer(goodSegmenter())
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	v := postAnalyze(t, ts)

	resp := doRequest(t, http.MethodGet, ts.URL+"/verifications/"+v.ID, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	listResp := doRequest(t, http.MethodGet, ts.URL+"/verifications", nil)
	defer listResp.Body.Close()
	var list []core.IncomeVerification
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != v.ID {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestGetMissingReturns404(t *testing.T) {
	srv, ts := newTestServer(goodSegmenter())
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	resp := doRequest(t, http.MethodGet, ts.URL+"/verifications/nope", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPatchValidityRecomputes(t *testing.T) {
	srv, ts := newTestServer(goodSegmenter())
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	v := postAnalyze(t, ts)
	monthIndex, txID := -1, ""
	for i, b := range v.MonthlyData {
		if len(b.Transactions) > 0 {
			monthIndex, txID = i, b.Transactions[0].ID
		}
	}
	if monthIndex < 0 {
		t.Fatal("no transaction in fixture")
	}

	url := fmt.Sprintf("%s/verifications/%s/months/%d/transactions/%s", ts.URL, v.ID, monthIndex, txID)
	resp := doRequest(t, http.MethodPatch, url, []byte(`{"isValid":false}`))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	var updated core.IncomeVerification
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.TotalIncome.Cents != 0 {
		t.Fatalf("total after invalidation = %d, want 0", updated.TotalIncome.Cents)
	}

	// The cached read must reflect the write.
	getResp := doRequest(t, http.MethodGet, ts.URL+"/verifications/"+v.ID, nil)
	defer getResp.Body.Close()
	var got core.IncomeVerification
	if err := json.NewDecoder(getResp.Body).Decode(&got); err != nil {
		t.Fatalf("decode get: %v", err)
	}
	if got.TotalIncome.Cents != 0 {
		t.Fatalf("cached total = %d, want 0", got.TotalIncome.Cents)
	}
}

func TestPatchRequiresExactlyOneField(t *testing.T) {
	srv, ts := newTestServer(goodSegmenter())
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	v := postAnalyze(t, ts)
	url := fmt.Sprintf("%s/verifications/%s/months/0/transactions/tx", ts.URL, v.ID)

	for _, body := range []string{`{}`, `{"isValid":true,"amount":12.34}`} {
		resp := doRequest(t, http.MethodPatch, url, []byte(body))
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("body %s: status = %d, want 422", body, resp.StatusCode)
		}
	}
}

func TestDeleteEndpoint(t *testing.T) {
	srv, ts := newTestServer(goodSegmenter())
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	v := postAnalyze(t, ts)

	resp := doRequest(t, http.MethodDelete, ts.URL+"/verifications/"+v.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	again := doRequest(t, http.MethodDelete, ts.URL+"/verifications/"+v.ID, nil)
	again.Body.Close()
	if again.StatusCode != http.StatusNotFound {
		t.Fatalf("double delete status = %d, want 404", again.StatusCode)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, ts := newTestServer(goodSegmenter())
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	v := postAnalyze(t, ts)

	resp := doRequest(t, http.MethodGet, ts.URL+"/verifications/"+v.ID+"/export", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	var out exportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Summary.ClientName != "Ana Silva" || len(out.Summary.Months) != 6 {
		t.Fatalf("unexpected summary: %+v", out.Summary)
	}
	if len(out.Rows) != 1 || out.Rows[0].Sender != "Empresa XYZ" {
		t.Fatalf("unexpected rows: %+v", out.Rows)
	}
}

func TestSegmenterFailureReturns502(t *testing.T) {
	srv, ts := newTestServer(&stubSegmenter{err: core.ErrSegmenterUnavailable})
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	resp, err := http.Post(ts.URL+"/verifications", "application/json", bytes.NewReader(analyzeBody()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestMalformedCandidatesReturn422(t *testing.T) {
	seg := &stubSegmenter{candidates: []core.Candidate{{Description: "sem remetente", Amount: core.Money{Cents: 1000}}}}
	srv, ts := newTestServer(seg)
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	resp, err := http.Post(ts.URL+"/verifications", "application/json", bytes.NewReader(analyzeBody()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, ts := newTestServer(goodSegmenter())
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := doRequest(t, http.MethodGet, ts.URL+path, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s status = %d", path, resp.StatusCode)
		}
	}
}
