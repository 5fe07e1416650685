package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shami987/kigali-bn/internal/assignment"
	"github.com/shami987/kigali-bn/pkg/enums"
	pkgerrors "github.com/shami987/kigali-bn/pkg/errors"
)

func withDistributionID(req *http.Request, id uuid.UUID) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("distributionID", id.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestDistributionListActive(t *testing.T) {
	eng := &stubEngine{lists: []assignment.DistributionView{
		{
			ID:         uuid.New(),
			DeviceID:   uuid.New(),
			HolderName: "Alice",
			Status:     enums.DistributionStatusActive,
			AssignedAt: time.Now(),
		},
	}}
	handler := DistributionListActive(eng, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/distributions/active", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data []assignment.DistributionView `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].HolderName != "Alice" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestDistributionGetNotFound(t *testing.T) {
	id := uuid.New()
	eng := &stubEngine{distErr: pkgerrors.New(pkgerrors.CodeNotFound, "distribution not found")}
	handler := DistributionGet(eng, nil)

	req := withDistributionID(httptest.NewRequest(http.MethodGet, "/api/v1/distributions/"+id.String(), nil), id)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestDistributionReturnAlreadyReturned(t *testing.T) {
	id := uuid.New()
	eng := &stubEngine{returnErr: pkgerrors.New(pkgerrors.CodeStateConflict, "distribution already returned")}
	handler := DistributionReturn(eng, nil)

	body := bytes.NewBufferString(`{"reason":"late"}`)
	req := withDistributionID(httptest.NewRequest(http.MethodPut, "/api/v1/distributions/"+id.String()+"/return", body), id)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("already returned")) {
		t.Fatalf("expected already returned message, got %s", rec.Body.String())
	}
}
