package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/dispatch"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/core/reservation"
	"github.com/evroam/roaminghub/core/session"
	"github.com/evroam/roaminghub/infra/logger"
	"github.com/evroam/roaminghub/simulator"
)

func newTestServer(t *testing.T) (*Server, *session.MemoryStore, *reservation.MemoryStore) {
	t.Helper()
	reg := collaborator.NewRegistry(0)
	sessions := session.NewMemoryStore()
	reservations := reservation.NewMemoryStore()
	d, err := dispatch.NewDispatcher(reg, sessions, reservations, dispatch.Config{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	return &Server{
		Dispatcher:   d,
		Registry:     reg,
		Sessions:     sessions,
		Reservations: reservations,
		Log:          logger.NopLogger{},
	}, sessions, reservations
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetSession(t *testing.T) {
	srv, sessions, _ := newTestServer(t)
	_ = sessions.Create(context.Background(), &model.ChargingSession{ID: "s-1", ProductID: "green"})
	h := srv.Routes()

	rec := doRequest(t, h, http.MethodGet, "/v1/sessions/s-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got model.ChargingSession
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "s-1" || got.ProductID != "green" {
		t.Errorf("session = %+v", got)
	}

	if rec := doRequest(t, h, http.MethodGet, "/v1/sessions/ghost", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d", rec.Code)
	}
}

func TestListSessions(t *testing.T) {
	srv, sessions, _ := newTestServer(t)
	_ = sessions.Create(context.Background(), &model.ChargingSession{ID: "b"})
	_ = sessions.Create(context.Background(), &model.ChargingSession{ID: "a"})

	rec := doRequest(t, srv.Routes(), http.MethodGet, "/v1/sessions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Items []model.ChargingSession `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].ID != "a" {
		t.Errorf("items = %+v", got.Items)
	}
}

func TestReservationHistoryEndpoint(t *testing.T) {
	srv, _, reservations := newTestServer(t)
	ctx := context.Background()
	_ = reservations.Upsert(ctx, &model.ChargingReservation{ID: "r-1", State: model.ReservationCreated})
	_ = reservations.Upsert(ctx, &model.ChargingReservation{ID: "r-1", State: model.ReservationCanceled})
	h := srv.Routes()

	rec := doRequest(t, h, http.MethodGet, "/v1/reservations/r-1/history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got struct {
		Items []model.ChargingReservation `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("history = %+v", got.Items)
	}

	rec = doRequest(t, h, http.MethodGet, "/v1/reservations/r-1", "")
	var latest model.ChargingReservation
	if err := json.Unmarshal(rec.Body.Bytes(), &latest); err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	if latest.State != model.ReservationCanceled {
		t.Errorf("latest state = %s", latest.State)
	}

	if rec := doRequest(t, h, http.MethodGet, "/v1/reservations/ghost/history", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown reservation status = %d", rec.Code)
	}
}

func TestAdminStatusRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Routes()

	rec := doRequest(t, h, http.MethodGet, "/v1/admin/status", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "true") {
		t.Fatalf("initial status: %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodPut, "/v1/admin/status", `{"operational": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d", rec.Code)
	}
	if srv.Dispatcher.Operational() {
		t.Fatal("kill-switch not applied")
	}

	if rec := doRequest(t, h, http.MethodPut, "/v1/admin/status", "{broken"); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}
}

func TestLatencyStatsWithoutTracker(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doRequest(t, srv.Routes(), http.MethodGet, "/v1/stats/latency", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "items") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestListCollaboratorsGroupedByRole(t *testing.T) {
	srv, _, _ := newTestServer(t)
	_ = srv.Registry.RegisterOperator(simulator.New("op-1", collaborator.RoleOperator))
	_ = srv.Registry.RegisterRoamingProvider(simulator.New("cso-1", collaborator.RoleCSORoaming), 1)
	_ = srv.Registry.RegisterProvider(simulator.New("prov-1", collaborator.RoleProvider))

	rec := doRequest(t, srv.Routes(), http.MethodGet, "/v1/collaborators", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string][]struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got["operator"]) != 1 || got["operator"][0].ID != "op-1" {
		t.Errorf("operators = %+v", got["operator"])
	}
	if len(got["cso_roaming_provider"]) != 1 || len(got["provider"]) != 1 {
		t.Errorf("grouping = %+v", got)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	if rec := doRequest(t, srv.Routes(), http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
