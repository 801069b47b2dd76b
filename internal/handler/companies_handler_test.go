package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/octobees/lead-enricher/internal/enrichment"
	"github.com/octobees/lead-enricher/internal/entity"
)

func TestCompaniesHandler_List_Success(t *testing.T) {
	repo := &stubCompaniesRepository{}
	handler := NewCompaniesHandler(newCompaniesService(repo, nil, nil), enrichment.NewTracker())

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/companies?q=acme&per_page=25&business_model=B2C&ecommerce=shopify&updated_since=2026-01-02T15:04:05Z", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if repo.lastFilter.Q != "acme" || repo.lastFilter.BusinessModel != "B2C" || repo.lastFilter.Ecommerce != "shopify" {
		t.Fatalf("expected filters applied, got %+v", repo.lastFilter)
	}
	if repo.lastFilter.PerPage != 25 {
		t.Fatalf("expected per_page 25, got %d", repo.lastFilter.PerPage)
	}
	if repo.lastFilter.UpdatedSince == nil || repo.lastFilter.UpdatedSince.Year() != 2026 {
		t.Fatalf("expected updated_since parsed, got %v", repo.lastFilter.UpdatedSince)
	}

	payload, _ := decodeResponse(t, rec.Body.Bytes())
	if payload.Status != "success" {
		t.Fatalf("unexpected status %q", payload.Status)
	}
}

func TestCompaniesHandler_List_Errors(t *testing.T) {
	e := echo.New()

	handler := NewCompaniesHandler(newCompaniesService(&stubCompaniesRepository{}, nil, nil), enrichment.NewTracker())
	rec := httptest.NewRecorder()
	_ = handler.List(e.NewContext(httptest.NewRequest(http.MethodGet, "/companies?updated_since=yesterday", nil), rec))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad updated_since, got %d", rec.Code)
	}

	failing := NewCompaniesHandler(newCompaniesService(&stubCompaniesRepository{listErr: errors.New("db down")}, nil, nil), enrichment.NewTracker())
	rec = httptest.NewRecorder()
	_ = failing.List(e.NewContext(httptest.NewRequest(http.MethodGet, "/companies", nil), rec))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestCompaniesHandler_GetAndDelete(t *testing.T) {
	id := uuid.New()
	repo := &stubCompaniesRepository{companies: map[uuid.UUID]*entity.Company{
		id: {ID: id, Name: "Acme", Domain: "acme.com"},
	}}
	tracker := enrichment.NewTracker()
	tracker.Start(id, "acme.com")
	handler := NewCompaniesHandler(newCompaniesService(repo, nil, nil), tracker)
	e := echo.New()

	call := func(fn echo.HandlerFunc, method, param string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(method, "/companies/"+param, nil), rec)
		c.SetParamNames("id")
		c.SetParamValues(param)
		if err := fn(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return rec
	}

	rec := call(handler.Get, http.MethodGet, id.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	_, data := decodeResponse(t, rec.Body.Bytes())
	if data["analyzing"] != true {
		t.Fatalf("expected analyzing flag, got %v", data["analyzing"])
	}

	if rec := call(handler.Get, http.MethodGet, "not-a-uuid"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := call(handler.Delete, http.MethodDelete, id.String()); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rec.Code)
	}
	if rec := call(handler.Get, http.MethodGet, id.String()); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := call(handler.Delete, http.MethodDelete, id.String()); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestCompaniesHandler_Create(t *testing.T) {
	registrar := &stubRegistrar{}
	scheduler := &stubScheduler{}
	handler := NewCompaniesHandler(newCompaniesService(&stubCompaniesRepository{}, registrar, scheduler), enrichment.NewTracker())
	e := echo.New()

	body := `{"leads":[{"name":"Acme","domain":"acme.com","registration_number":"01234567"},{"name":"Globex","domain":"globex.com"}]}`
	req := httptest.NewRequest(http.MethodPost, "/companies", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := handler.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(scheduler.submitted) != 2 {
		t.Fatalf("expected 2 queued companies, got %d", len(scheduler.submitted))
	}
	_, data := decodeResponse(t, rec.Body.Bytes())
	if data["queued"] != float64(2) {
		t.Fatalf("unexpected summary: %v", data)
	}

	req = httptest.NewRequest(http.MethodPost, "/companies", strings.NewReader(`{"leads":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	_ = handler.Create(e.NewContext(req, rec))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty leads, got %d", rec.Code)
	}
}

func TestCompaniesHandler_Analyzing(t *testing.T) {
	tracker := enrichment.NewTracker()
	id := uuid.New()
	tracker.Start(id, "acme.com")
	tracker.Advance(id, enrichment.StageExtracting)
	handler := NewCompaniesHandler(newCompaniesService(&stubCompaniesRepository{}, nil, nil), tracker)

	rec := httptest.NewRecorder()
	if err := handler.Analyzing(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/companies/analyzing", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"stage":"extracting"`) || !strings.Contains(rec.Body.String(), id.String()) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
