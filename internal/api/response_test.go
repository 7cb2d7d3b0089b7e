package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/Kontur/internal/domain"
	"github.com/shaiso/Kontur/internal/flows"
)

func TestResult_SuccessCarriesData(t *testing.T) {
	rec := httptest.NewRecorder()
	Result(rec, flows.OKData("/mnt/data"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body DataResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data != "/mnt/data" {
		t.Errorf("expected data passed through, got %v", body.Data)
	}
}

func TestResult_ErrorCodeMapping(t *testing.T) {
	cases := map[int]ErrorCode{
		403: ErrCodeForbidden,
		404: ErrCodeNotFound,
		409: ErrCodeConflict,
		410: ErrCodeCapacity,
		425: ErrCodeBusy,
		500: ErrCodeInternalError,
		501: ErrCodeNotImplemented,
	}
	for code, want := range cases {
		rec := httptest.NewRecorder()
		Result(rec, flows.Fail(code))

		if rec.Code != code {
			t.Errorf("%d: orchestrator code must pass through, got %d", code, rec.Code)
		}
		var body ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Error.Code != want {
			t.Errorf("%d: expected %s, got %s", code, want, body.Error.Code)
		}
	}
}

// Minimal collaborators: only the checks that run before the failure
// point need real behavior.

type allowAll struct{ deny bool }

func (a *allowAll) CanManage(context.Context, string, string) (bool, error) {
	return !a.deny, nil
}

type neverBusy struct{}

func (neverBusy) HasActive(context.Context, domain.TargetKind, string) (bool, error) {
	return false, nil
}

func TestRoutes_ForbiddenCallPropagates(t *testing.T) {
	volumes := flows.NewVolumes(flows.VolumesConfig{
		Auth: &allowAll{deny: true},
		Gate: neverBusy{},
	})
	h := NewHandler(Config{Volumes: volumes})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/ws1/pvcs",
		strings.NewReader(`{"ns":"ns1","name":"data","volume_name":"vol","pvc_size":"10Gi"}`))
	req.Header.Set(headerAccount, "acc1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRoutes_BadBodyRejected(t *testing.T) {
	volumes := flows.NewVolumes(flows.VolumesConfig{
		Auth: &allowAll{},
		Gate: neverBusy{},
	})
	h := NewHandler(Config{Volumes: volumes})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workspaces/ws1/pvcs",
		strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
